package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/storefront/storefront/internal/models"
	"github.com/storefront/storefront/internal/permissions"
	apperrors "github.com/storefront/storefront/pkg/errors"
	"github.com/storefront/storefront/pkg/validator"
)

// PermissionService exposes the permission catalog and ad hoc permission records.
type PermissionService struct {
	db       *gorm.DB
	resolver *permissions.Resolver
}

// NewPermissionService constructs a PermissionService using the provided database handle.
func NewPermissionService(db *gorm.DB) (*PermissionService, error) {
	if db == nil {
		return nil, errors.New("permission service: db is required")
	}
	resolver, err := permissions.NewResolver(db)
	if err != nil {
		return nil, err
	}
	return &PermissionService{db: db, resolver: resolver}, nil
}

// CreatePermissionInput describes a hand-made permission, typically a narrower condition set
// than the catalog provides.
type CreatePermissionInput struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Action      models.Action       `json:"action" validate:"required,permission_action"`
	Resource    models.ResourceType `json:"resource" validate:"required,permission_resource"`
	Conditions  *models.Conditions  `json:"conditions"`
}

// CreatePermission stores a new permission record. The name defaults to one derived from the
// resource, action and conditions.
func (s *PermissionService) CreatePermission(ctx context.Context, input CreatePermissionInput) (*models.Permission, error) {
	ctx = ensureContext(ctx)

	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewBadRequest(err.Error())
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = permissions.ConditionedPermissionName(input.Resource, input.Action, input.Conditions)
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = fmt.Sprintf("%s %s", input.Action, input.Resource)
	}

	perm := &models.Permission{
		Name:        name,
		Description: description,
		Action:      input.Action,
		Resource:    input.Resource,
	}
	if err := perm.SetConditions(input.Conditions); err != nil {
		return nil, apperrors.NewBadRequest(err.Error())
	}

	if err := s.db.WithContext(ctx).Create(perm).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("permission name already exists")
		}
		return nil, fmt.Errorf("permission service: create permission: %w", err)
	}
	return perm, nil
}

// ListPermissions returns stored permissions, optionally restricted to one resource type.
func (s *PermissionService) ListPermissions(ctx context.Context, resource models.ResourceType) ([]models.Permission, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Order("resource ASC").Order("name ASC")
	if resource != "" {
		query = query.Where("resource = ?", resource)
	}

	var perms []models.Permission
	if err := query.Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("permission service: list permissions: %w", err)
	}
	return perms, nil
}

// ListUserPermissions resolves the effective permissions of the supplied user.
func (s *PermissionService) ListUserPermissions(ctx context.Context, userID string) ([]models.Permission, error) {
	perms, err := s.resolver.ResolveEffectivePermissions(ensureContext(ctx), userID)
	if errors.Is(err, permissions.ErrPrincipalNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("permission service: resolve permissions: %w", err)
	}
	return perms, nil
}

// CatalogRole is the published shape of a catalog role definition.
type CatalogRole struct {
	Name        string                         `json:"name"`
	Description string                         `json:"description"`
	IsDefault   bool                           `json:"is_default"`
	Permissions []permissions.PermissionObject `json:"permissions"`
}

// Catalog lists the predefined roles and the permissions each materialises.
func (s *PermissionService) Catalog() []CatalogRole {
	defs := permissions.Definitions()
	out := make([]CatalogRole, 0, len(defs))
	for _, def := range defs {
		out = append(out, CatalogRole{
			Name:        def.Name,
			Description: def.Description,
			IsDefault:   def.IsDefault,
			Permissions: def.Permissions(),
		})
	}
	return out
}
