package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/storefront/storefront/internal/models"
	"github.com/storefront/storefront/internal/permissions"
	"github.com/storefront/storefront/pkg/metrics"
)

// grantAuthorizer allows the listed checks. An owner-scoped entry is allowed only when the
// resource context names the principal as owner.
type grantAuthorizer struct {
	allowed map[permissions.Check]bool
	err     error
	seen    []*permissions.ResourceContext
}

func (a *grantAuthorizer) IsAuthorized(_ context.Context, principal *permissions.Principal, check permissions.Check, rc *permissions.ResourceContext) (bool, error) {
	a.seen = append(a.seen, rc)
	if a.err != nil {
		return false, a.err
	}
	ownerOnly, ok := a.allowed[check]
	if !ok {
		return false, nil
	}
	if ownerOnly {
		return rc != nil && rc.OwnerID == principal.ID, nil
	}
	return true, nil
}

func withPrincipal(principal *permissions.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		if principal != nil {
			c.Set(CtxPrincipalKey, principal)
			c.Set(CtxUserIDKey, principal.ID)
		}
		c.Next()
	}
}

func serve(t *testing.T, principal *permissions.Principal, path string, route string, gate gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withPrincipal(principal))
	r.GET(route, gate, func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

var customer = &permissions.Principal{ID: "user-1", RoleIDs: []string{"role-user"}, Roles: []string{"user"}}

func TestRequirePermission(t *testing.T) {
	authz := &grantAuthorizer{allowed: map[permissions.Check]bool{
		permissions.Can(models.ActionRead, models.ResourceProduct): false,
	}}

	w := serve(t, customer, "/products", "/products", RequirePermission(authz, models.ActionRead, models.ResourceProduct))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = serve(t, customer, "/products", "/products", RequirePermission(authz, models.ActionDelete, models.ResourceProduct))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "You do not have permission to perform this action")

	w = serve(t, nil, "/products", "/products", RequirePermission(authz, models.ActionRead, models.ResourceProduct))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAnyWithOwnerFromParam(t *testing.T) {
	authz := &grantAuthorizer{allowed: map[permissions.Check]bool{
		permissions.Can(models.ActionRead, models.ResourceUser): true,
	}}
	gate := RequireAny(authz, []permissions.Check{
		permissions.Can(models.ActionRead, models.ResourceUser),
		permissions.Can(models.ActionManage, models.ResourceUser),
	}, OwnerFromParam("id"))

	w := serve(t, customer, "/users/user-1", "/users/:id", gate)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "user-1", authz.seen[0].OwnerID)

	w = serve(t, customer, "/users/user-2", "/users/:id", gate)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireAllNeedsEveryCheck(t *testing.T) {
	authz := &grantAuthorizer{allowed: map[permissions.Check]bool{
		permissions.Can(models.ActionRead, models.ResourceRole): false,
	}}
	gate := RequireAll(authz, []permissions.Check{
		permissions.Can(models.ActionRead, models.ResourceRole),
		permissions.Can(models.ActionUpdate, models.ResourceRole),
	}, nil)

	w := serve(t, customer, "/roles", "/roles", gate)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestGateErrorIsServerError(t *testing.T) {
	authz := &grantAuthorizer{err: errors.New("store unavailable")}

	w := serve(t, customer, "/products", "/products", RequirePermission(authz, models.ActionRead, models.ResourceProduct))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "AUTHORIZATION_UNAVAILABLE")
	require.NotContains(t, w.Body.String(), "store unavailable")
}

func TestContextResolverErrorIsServerError(t *testing.T) {
	authz := &grantAuthorizer{allowed: map[permissions.Check]bool{}}
	failing := func(context.Context, *gin.Context) (*permissions.ResourceContext, error) {
		return nil, errors.New("order lookup failed")
	}
	gate := RequireAll(authz, []permissions.Check{permissions.Can(models.ActionRead, models.ResourceOrder)}, failing)

	w := serve(t, customer, "/orders/1", "/orders/:id", gate)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Empty(t, authz.seen)
}

func TestRequireRole(t *testing.T) {
	gate := RequireRole("admin", "super-admin")

	w := serve(t, customer, "/admin", "/admin", gate)
	require.Equal(t, http.StatusForbidden, w.Code)

	admin := &permissions.Principal{ID: "admin-1", RoleIDs: []string{"r1", "r2"}, Roles: []string{"user", "admin"}}
	w = serve(t, admin, "/admin", "/admin", gate)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = serve(t, nil, "/admin", "/admin", gate)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGateDecisionsAreCounted(t *testing.T) {
	authz := &grantAuthorizer{allowed: map[permissions.Check]bool{}}
	denied := metrics.GateDecisions.WithLabelValues("all", "denied")
	before := promtestutil.ToFloat64(denied)

	w := serve(t, customer, "/settings", "/settings", RequirePermission(authz, models.ActionUpdate, models.ResourceSettings))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, before+1, promtestutil.ToFloat64(denied))
}
