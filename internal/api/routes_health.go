package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/storefront/storefront/internal/handlers"
	"github.com/storefront/storefront/internal/monitoring"
	"github.com/storefront/storefront/internal/monitoring/checks"
)

func registerHealthRoutes(r *gin.Engine, db *gorm.DB) {
	manager := monitoring.NewHealthManager(
		checks.Database(db, 0),
		checks.Catalog(db, 0),
	)
	handler := handlers.NewHealthHandler(manager)

	for _, router := range []gin.IRouter{r, r.Group("/api")} {
		router.GET("/health", handler.Summary)
		router.GET("/health/live", handler.Live)
		router.GET("/health/ready", handler.Ready)
	}
}
