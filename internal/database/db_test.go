package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/storefront/storefront/internal/models"
	"github.com/storefront/storefront/internal/permissions"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Exec("SELECT 1").Error)
	require.NoError(t, Ping(context.Background(), db))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.ErrorContains(t, err, "unsupported database driver")
}

func TestAutoMigrateCreatesJoinTables(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	for _, table := range []string{"users", "roles", "permissions", "user_roles", "role_permissions", "user_permissions"} {
		require.True(t, migrator.HasTable(table), "expected table %s", table)
	}
}

func TestAutoMigrateAndSeedIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrateAndSeed(context.Background(), db))
	require.NoError(t, AutoMigrateAndSeed(context.Background(), db))

	var roleCount int64
	require.NoError(t, db.Model(&models.Role{}).Count(&roleCount).Error)
	require.EqualValues(t, len(permissions.Definitions()), roleCount)

	var defaults int64
	require.NoError(t, db.Model(&models.Role{}).Where("is_default = ?", true).Count(&defaults).Error)
	require.EqualValues(t, 1, defaults)

	var permissionCount int64
	require.NoError(t, db.Model(&models.Permission{}).Count(&permissionCount).Error)
	expected := len(permissions.DefaultUserPermissions()) + len(permissions.AdminPermissions()) + len(permissions.SuperAdminPermissions())
	require.EqualValues(t, expected, permissionCount)
}

func TestAutoMigrateAndSeedRequiresHandle(t *testing.T) {
	require.Error(t, AutoMigrateAndSeed(context.Background(), nil))
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite"})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
