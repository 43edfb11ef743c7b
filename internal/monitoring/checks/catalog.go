package checks

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/storefront/storefront/internal/models"
	"github.com/storefront/storefront/internal/monitoring"
	"github.com/storefront/storefront/internal/permissions"
)

// Catalog returns a readiness probe confirming the catalog roles are seeded. A store without a
// default role cannot provision users, so that case is down. Missing optional catalog roles only
// degrade the service.
func Catalog(db *gorm.DB, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("permission_catalog", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if db == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "database not configured"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultDatabaseTimeout))
		defer cancel()

		defs := permissions.Definitions()
		names := make([]string, 0, len(defs))
		for _, def := range defs {
			names = append(names, def.Name)
		}

		var roles []models.Role
		err := db.WithContext(probeCtx).Select("name", "is_default").Where("name IN ?", names).Find(&roles).Error
		if err != nil {
			return monitoring.ResultFromError("permission_catalog", err, time.Since(start))
		}

		hasDefault := false
		for _, role := range roles {
			if role.IsDefault {
				hasDefault = true
			}
		}

		switch {
		case !hasDefault:
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "default role missing"}
		case len(roles) < len(defs):
			return monitoring.ProbeResult{
				Status:  monitoring.StatusDegraded,
				Details: fmt.Sprintf("%d of %d catalog roles seeded", len(roles), len(defs)),
			}
		default:
			return monitoring.ProbeResult{Status: monitoring.StatusUp}
		}
	})
}
