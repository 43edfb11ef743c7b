package permissions

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/storefront/storefront/internal/models"
)

// Materialise persists catalog permission objects, leaving existing records with the same name
// untouched, and returns the stored records in input order.
func Materialise(ctx context.Context, db *gorm.DB, objects []PermissionObject) ([]models.Permission, error) {
	if db == nil {
		return nil, errors.New("permission: db is required")
	}
	if len(objects) == 0 {
		return nil, nil
	}

	tx := db.WithContext(ensureContext(ctx))
	names := make([]string, 0, len(objects))
	for _, obj := range objects {
		record := models.Permission{
			Name:        obj.Name,
			Description: obj.Description,
			Action:      obj.Action,
			Resource:    obj.Resource,
		}
		if err := record.SetConditions(obj.Conditions); err != nil {
			return nil, err
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&record).Error; err != nil {
			return nil, fmt.Errorf("permission: materialise %s: %w", obj.Name, err)
		}
		names = append(names, obj.Name)
	}

	var stored []models.Permission
	if err := tx.Where("name IN ?", names).Find(&stored).Error; err != nil {
		return nil, fmt.Errorf("permission: load materialised permissions: %w", err)
	}

	byName := make(map[string]models.Permission, len(stored))
	for _, perm := range stored {
		byName[perm.Name] = perm
	}

	out := make([]models.Permission, 0, len(names))
	for _, name := range names {
		perm, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("permission: %s missing after materialise", name)
		}
		out = append(out, perm)
	}
	return out, nil
}

// EnsureRole returns the role called name, creating it from its catalog definition together with
// its permission set when it does not exist yet. Run it inside a transaction.
func EnsureRole(ctx context.Context, tx *gorm.DB, name string) (*models.Role, error) {
	if tx == nil {
		return nil, errors.New("permission: db is required")
	}

	var role models.Role
	err := tx.WithContext(ensureContext(ctx)).Preload("Permissions").Where("name = ?", name).First(&role).Error
	switch {
	case err == nil:
		return &role, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("permission: load role %s: %w", name, err)
	}

	def, ok := Definition(name)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownRole, name)
	}
	return createRole(ctx, tx, def)
}

// EnsureDefaultRole returns the role flagged as default, materialising the catalog default role
// when none is flagged.
func EnsureDefaultRole(ctx context.Context, tx *gorm.DB) (*models.Role, error) {
	if tx == nil {
		return nil, errors.New("permission: db is required")
	}
	db := tx.WithContext(ensureContext(ctx))

	var role models.Role
	err := db.Preload("Permissions").Where("is_default = ?", true).First(&role).Error
	switch {
	case err == nil:
		return &role, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("permission: load default role: %w", err)
	}

	ensured, err := EnsureRole(ctx, tx, RoleUser)
	if err != nil {
		return nil, err
	}
	if !ensured.IsDefault {
		if err := db.Model(ensured).Update("is_default", true).Error; err != nil {
			return nil, fmt.Errorf("permission: flag default role: %w", err)
		}
		ensured.IsDefault = true
	}
	return ensured, nil
}

// Seed materialises every catalog role. It is idempotent.
func Seed(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("permission: db is required")
	}

	return db.WithContext(ensureContext(ctx)).Transaction(func(tx *gorm.DB) error {
		if _, err := EnsureDefaultRole(ctx, tx); err != nil {
			return err
		}
		for _, def := range Definitions() {
			if _, err := EnsureRole(ctx, tx, def.Name); err != nil {
				return err
			}
		}
		return nil
	})
}

func createRole(ctx context.Context, tx *gorm.DB, def RoleDefinition) (*models.Role, error) {
	if err := ValidateConfigs(def.Configs); err != nil {
		return nil, fmt.Errorf("permission: role definition %s: %w", def.Name, err)
	}

	perms, err := Materialise(ctx, tx, def.Permissions())
	if err != nil {
		return nil, err
	}
	if len(perms) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyRoleDefinition, def.Name)
	}

	role := &models.Role{
		Name:        def.Name,
		Description: def.Description,
		IsDefault:   def.IsDefault,
		Permissions: perms,
	}
	if err := tx.WithContext(ensureContext(ctx)).Omit("Permissions.*").Create(role).Error; err != nil {
		return nil, fmt.Errorf("permission: create role %s: %w", def.Name, err)
	}
	return role, nil
}
