package middleware

import (
	"context"
	stdErrors "errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storefront/storefront/internal/models"
	"github.com/storefront/storefront/internal/permissions"
	"github.com/storefront/storefront/pkg/errors"
	"github.com/storefront/storefront/pkg/logger"
	"github.com/storefront/storefront/pkg/metrics"
	"github.com/storefront/storefront/pkg/response"
)

// ContextResolver builds the resource context for the entity a request targets.
type ContextResolver = permissions.ContextResolver[*gin.Context]

// OwnerFromParam uses a route parameter as the owner of the targeted resource.
func OwnerFromParam(param string) ContextResolver {
	return func(_ context.Context, c *gin.Context) (*permissions.ResourceContext, error) {
		return &permissions.ResourceContext{OwnerID: c.Param(param)}, nil
	}
}

// RequireAll admits the request only when every check is authorized.
func RequireAll(authz permissions.Authorizer, checks []permissions.Check, resolve ContextResolver) gin.HandlerFunc {
	return gateHandler("all", permissions.RequireAll[*gin.Context](authz, checks, resolve))
}

// RequireAny admits the request when at least one check is authorized.
func RequireAny(authz permissions.Authorizer, checks []permissions.Check, resolve ContextResolver) gin.HandlerFunc {
	return gateHandler("any", permissions.RequireAny[*gin.Context](authz, checks, resolve))
}

// RequirePermission admits the request when the principal may perform action on resource.
func RequirePermission(authz permissions.Authorizer, action models.Action, resource models.ResourceType) gin.HandlerFunc {
	return RequireAll(authz, []permissions.Check{permissions.Can(action, resource)}, nil)
}

// RequireRole admits the request when the principal holds one of the named roles.
func RequireRole(names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			metrics.GateDecisions.WithLabelValues("role", "unauthenticated").Inc()
			response.Abort(c, errors.ErrUnauthorized)
			return
		}
		if !principal.HasRole(names...) {
			metrics.GateDecisions.WithLabelValues("role", "denied").Inc()
			response.Abort(c, errors.ErrForbidden)
			return
		}
		metrics.GateDecisions.WithLabelValues("role", "allowed").Inc()
		c.Next()
	}
}

func gateHandler(mode string, gate *permissions.Gate[*gin.Context]) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := PrincipalFromContext(c)

		err := gate.Evaluate(c.Request.Context(), principal, c)
		switch {
		case err == nil:
			metrics.GateDecisions.WithLabelValues(mode, "allowed").Inc()
			c.Next()
		case stdErrors.Is(err, permissions.ErrUnauthenticated):
			metrics.GateDecisions.WithLabelValues(mode, "unauthenticated").Inc()
			response.Abort(c, errors.ErrUnauthorized)
		case stdErrors.Is(err, permissions.ErrForbidden):
			metrics.GateDecisions.WithLabelValues(mode, "denied").Inc()
			response.Abort(c, errors.ErrForbidden)
		default:
			metrics.GateDecisions.WithLabelValues(mode, "error").Inc()
			logger.WithModule("http").Error("permission gate failed",
				zap.String("path", c.FullPath()),
				zap.Error(err),
			)
			response.Abort(c, errors.ErrAuthorizationUnavailable)
		}
	}
}
