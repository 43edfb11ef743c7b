package middleware

import (
	"context"
	stdErrors "errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/storefront/storefront/internal/auth"
	"github.com/storefront/storefront/internal/permissions"
	"github.com/storefront/storefront/pkg/errors"
	"github.com/storefront/storefront/pkg/logger"
	"github.com/storefront/storefront/pkg/response"
)

const (
	CtxClaimsKey    = "authClaims"
	CtxUserIDKey    = "userID"
	CtxPrincipalKey = "principal"
)

// PrincipalLoader resolves the authenticated user into the principal gates evaluate.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, userID string) (*permissions.Principal, error)
}

// Auth enforces JWT authentication, then attaches the current principal and a request-scoped
// permission cache to the request.
func Auth(jwt *iauth.JWTService, loader PrincipalLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			c.Header("WWW-Authenticate", "Bearer")
			response.Abort(c, errors.ErrUnauthorized)
			return
		}

		claims, err := jwt.ValidateAccessToken(strings.TrimSpace(authz[7:]))
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			response.Abort(c, errors.ErrUnauthorized)
			return
		}

		ctx := permissions.WithRequestCache(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)

		principal, err := loader.LoadPrincipal(ctx, claims.UserID)
		if err != nil {
			if stdErrors.Is(err, permissions.ErrPrincipalNotFound) {
				response.Abort(c, errors.ErrUnauthorized)
				return
			}
			logger.WithModule("http").Error("load principal failed", zap.String("user_id", claims.UserID), zap.Error(err))
			response.Abort(c, errors.ErrAuthorizationUnavailable)
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, principal.ID)
		c.Set(CtxPrincipalKey, principal)

		c.Next()
	}
}

// PrincipalFromContext returns the principal attached by Auth.
func PrincipalFromContext(c *gin.Context) (*permissions.Principal, bool) {
	v, ok := c.Get(CtxPrincipalKey)
	if !ok {
		return nil, false
	}
	principal, ok := v.(*permissions.Principal)
	return principal, ok && principal != nil
}
