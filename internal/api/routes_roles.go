package api

import (
	"github.com/gin-gonic/gin"

	"github.com/storefront/storefront/internal/handlers"
	"github.com/storefront/storefront/internal/middleware"
	"github.com/storefront/storefront/internal/models"
	"github.com/storefront/storefront/internal/permissions"
)

func registerRoleRoutes(api *gin.RouterGroup, deps *dependencies) error {
	roleHandler, err := handlers.NewRoleHandler(deps.roles)
	if err != nil {
		return err
	}

	roleGate := func(action models.Action) gin.HandlerFunc {
		return middleware.RequireAny(deps.checker, []permissions.Check{
			permissions.Can(action, models.ResourceRole),
			permissions.Can(models.ActionManage, models.ResourceRole),
		}, nil)
	}

	roles := api.Group("/roles")
	{
		roles.GET("", roleGate(models.ActionRead), roleHandler.List)
		roles.GET("/:id", roleGate(models.ActionRead), roleHandler.Get)
		roles.POST("", roleGate(models.ActionCreate), roleHandler.Create)
		roles.POST("/:id/permissions", roleGate(models.ActionUpdate), roleHandler.AddPermissions)
		roles.DELETE("/:id/permissions", roleGate(models.ActionUpdate), roleHandler.RemovePermissions)
		roles.DELETE("/:id/permissions/all", roleGate(models.ActionUpdate), roleHandler.ClearPermissions)
	}
	return nil
}
