package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/storefront/storefront/internal/models"
	"github.com/storefront/storefront/internal/permissions"
)

// AutoMigrate creates or updates the schema of the authorization graph, join tables included.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Permission{},
		&models.Role{},
		&models.User{},
	)
}

// SeedData materialises the default, admin, and super-admin roles with their catalog permissions.
func SeedData(ctx context.Context, db *gorm.DB) error {
	return permissions.Seed(ctx, db)
}
