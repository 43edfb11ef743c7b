package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/storefront/storefront/internal/middleware"
	"github.com/storefront/storefront/internal/permissions"
	"github.com/storefront/storefront/pkg/errors"
	"github.com/storefront/storefront/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentPrincipal returns the authenticated principal or writes a 401 and returns false.
func currentPrincipal(c *gin.Context) (*permissions.Principal, bool) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return nil, false
	}
	return principal, true
}
