package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/storefront/storefront/internal/auth"
	"github.com/storefront/storefront/internal/permissions"
)

type stubLoader struct {
	principals map[string]*permissions.Principal
	err        error
}

func (s *stubLoader) LoadPrincipal(_ context.Context, userID string) (*permissions.Principal, error) {
	if s.err != nil {
		return nil, s.err
	}
	principal, ok := s.principals[userID]
	if !ok {
		return nil, permissions.ErrPrincipalNotFound
	}
	return principal, nil
}

func newTestJWT(t *testing.T) *iauth.JWTService {
	t.Helper()
	svc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "middleware-test-secret",
		Issuer:         "storefront-test",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)
	return svc
}

func bearer(t *testing.T, svc *iauth.JWTService, userID string) string {
	t.Helper()
	token, err := svc.GenerateAccessToken(iauth.AccessTokenInput{UserID: userID})
	require.NoError(t, err)
	return "Bearer " + token
}

func authRouter(jwt *iauth.JWTService, loader PrincipalLoader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(jwt, loader))
	r.GET("/me", func(c *gin.Context) {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.String(http.StatusOK, principal.ID)
	})
	return r
}

func TestAuthAttachesPrincipal(t *testing.T) {
	jwt := newTestJWT(t)
	loader := &stubLoader{principals: map[string]*permissions.Principal{
		"user-1": {ID: "user-1", RoleIDs: []string{"role-1"}},
	}}
	r := authRouter(jwt, loader)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", bearer(t, jwt, "user-1"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "user-1", w.Body.String())
}

func TestAuthRejectsMissingOrInvalidToken(t *testing.T) {
	jwt := newTestJWT(t)
	r := authRouter(jwt, &stubLoader{})

	cases := map[string]string{
		"missing": "",
		"scheme":  "Basic abc",
		"garbage": "Bearer not-a-token",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusUnauthorized, w.Code)
			require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestAuthRejectsDeletedPrincipal(t *testing.T) {
	jwt := newTestJWT(t)
	r := authRouter(jwt, &stubLoader{})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", bearer(t, jwt, "ghost"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthStoreFailureIsServerError(t *testing.T) {
	jwt := newTestJWT(t)
	r := authRouter(jwt, &stubLoader{err: errors.New("db down")})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", bearer(t, jwt, "user-1"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "AUTHORIZATION_UNAVAILABLE")
}
