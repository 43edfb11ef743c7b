package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/storefront/storefront/internal/app"
	iauth "github.com/storefront/storefront/internal/auth"
	"github.com/storefront/storefront/internal/middleware"
	"github.com/storefront/storefront/internal/permissions"
	"github.com/storefront/storefront/internal/services"
)

// dependencies bundles the services shared by the route groups.
type dependencies struct {
	checker     *permissions.Checker
	roles       *services.RoleService
	users       *services.UserService
	permissions *services.PermissionService
}

// NewRouter builds the Gin engine, wires middleware and registers the authorization routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	resolver, err := permissions.NewResolver(db)
	if err != nil {
		return nil, err
	}
	deps, err := newDependencies(db, resolver)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	registerHealthRoutes(r, db)
	registerMetricsRoutes(r, cfg.Monitoring.Prometheus)

	api := r.Group("/api")
	api.Use(middleware.Auth(jwt, resolver))

	if err := registerPermissionRoutes(api, deps); err != nil {
		return nil, err
	}
	if err := registerRoleRoutes(api, deps); err != nil {
		return nil, err
	}
	if err := registerUserRoutes(api, deps); err != nil {
		return nil, err
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func newDependencies(db *gorm.DB, resolver *permissions.Resolver) (*dependencies, error) {
	checker, err := permissions.NewChecker(resolver)
	if err != nil {
		return nil, err
	}
	roles, err := services.NewRoleService(db)
	if err != nil {
		return nil, err
	}
	users, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	perms, err := services.NewPermissionService(db)
	if err != nil {
		return nil, err
	}
	return &dependencies{checker: checker, roles: roles, users: users, permissions: perms}, nil
}
