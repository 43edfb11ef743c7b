package api

import (
	"github.com/gin-gonic/gin"

	"github.com/storefront/storefront/internal/handlers"
	"github.com/storefront/storefront/internal/middleware"
	"github.com/storefront/storefront/internal/models"
	"github.com/storefront/storefront/internal/permissions"
)

func registerUserRoutes(api *gin.RouterGroup, deps *dependencies) error {
	userHandler, err := handlers.NewUserHandler(deps.users, deps.roles, deps.permissions)
	if err != nil {
		return err
	}

	// Role membership changes are reserved for super admins.
	superAdminOnly := middleware.RequireRole(permissions.RoleSuperAdmin)
	superUser := middleware.RequirePermission(deps.checker, models.ActionSuper, models.ResourceUser)
	readUser := middleware.RequireAny(deps.checker, []permissions.Check{
		permissions.Can(models.ActionRead, models.ResourceUser),
		permissions.Can(models.ActionManage, models.ResourceUser),
	}, middleware.OwnerFromParam("id"))
	manageGrants := middleware.RequireAny(deps.checker, []permissions.Check{
		permissions.Can(models.ActionManage, models.ResourcePermission),
		permissions.Can(models.ActionSuper, models.ResourcePermission),
	}, nil)

	users := api.Group("/users")
	{
		users.GET("/:id", readUser, userHandler.Get)
		users.POST("/:id/promote", superAdminOnly, superUser, userHandler.Promote)
		users.POST("/:id/demote", superAdminOnly, superUser, userHandler.Demote)
		users.GET("/:id/permissions", readUser, userHandler.Permissions)
		users.POST("/:id/permissions", manageGrants, userHandler.GrantPermission)
		users.DELETE("/:id/permissions/:permissionID", manageGrants, userHandler.RevokePermission)
	}
	return nil
}
