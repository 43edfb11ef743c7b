package api

import (
	"github.com/gin-gonic/gin"

	"github.com/storefront/storefront/internal/handlers"
	"github.com/storefront/storefront/internal/middleware"
	"github.com/storefront/storefront/internal/models"
	"github.com/storefront/storefront/internal/permissions"
)

func registerPermissionRoutes(api *gin.RouterGroup, deps *dependencies) error {
	permHandler, err := handlers.NewPermissionHandler(deps.permissions)
	if err != nil {
		return err
	}
	authorizeHandler, err := handlers.NewAuthorizeHandler(deps.checker)
	if err != nil {
		return err
	}

	readRoles := middleware.RequireAny(deps.checker, []permissions.Check{
		permissions.Can(models.ActionRead, models.ResourceRole),
		permissions.Can(models.ActionManage, models.ResourceRole),
	}, nil)
	readPermissions := middleware.RequireAny(deps.checker, []permissions.Check{
		permissions.Can(models.ActionRead, models.ResourcePermission),
		permissions.Can(models.ActionManage, models.ResourcePermission),
	}, nil)
	createPermissions := middleware.RequireAny(deps.checker, []permissions.Check{
		permissions.Can(models.ActionCreate, models.ResourcePermission),
		permissions.Can(models.ActionManage, models.ResourcePermission),
	}, nil)

	perms := api.Group("/permissions")
	{
		perms.GET("/my", permHandler.MyPermissions)
		perms.GET("/catalog", readRoles, permHandler.Catalog)
		perms.GET("", readPermissions, permHandler.List)
		perms.POST("", createPermissions, permHandler.Create)
	}

	api.POST("/authorize", authorizeHandler.Authorize)
	return nil
}
