package permissions

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/storefront/storefront/internal/models"
)

func setupPermissionTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(&models.Permission{}, &models.Role{}, &models.User{}))
	return db
}

func createPermission(t *testing.T, db *gorm.DB, resource models.ResourceType, action models.Action, cond *models.Conditions) models.Permission {
	t.Helper()

	perm := models.Permission{
		Name:     PermissionName(resource, action, cond != nil && cond.OwnerOnly) + ":" + uuid.NewString()[:8],
		Action:   action,
		Resource: resource,
	}
	require.NoError(t, perm.SetConditions(cond))
	require.NoError(t, db.Create(&perm).Error)
	return perm
}

func createRoleWith(t *testing.T, db *gorm.DB, name string, perms ...models.Permission) models.Role {
	t.Helper()

	role := models.Role{Name: name, Permissions: perms}
	require.NoError(t, db.Omit("Permissions.*").Create(&role).Error)
	return role
}

func createUserWith(t *testing.T, db *gorm.DB, roles []models.Role, direct ...models.Permission) models.User {
	t.Helper()

	user := models.User{
		Username:    "user-" + uuid.NewString()[:8],
		Roles:       roles,
		Permissions: direct,
	}
	require.NoError(t, db.Omit("Roles.*", "Permissions.*").Create(&user).Error)
	return user
}

// stubSource serves a fixed permission set and counts resolves.
type stubSource struct {
	perms []models.Permission
	err   error
	calls int
}

func (s *stubSource) ResolveEffectivePermissions(context.Context, string) ([]models.Permission, error) {
	s.calls++
	return s.perms, s.err
}

func permissionRecord(t *testing.T, resource models.ResourceType, action models.Action, cond *models.Conditions) models.Permission {
	t.Helper()

	perm := models.Permission{
		BaseModel: models.BaseModel{ID: uuid.NewString()},
		Name:      PermissionName(resource, action, cond != nil && cond.OwnerOnly),
		Action:    action,
		Resource:  resource,
	}
	require.NoError(t, perm.SetConditions(cond))
	return perm
}
