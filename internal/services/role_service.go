package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/storefront/storefront/internal/models"
	"github.com/storefront/storefront/internal/permissions"
	apperrors "github.com/storefront/storefront/pkg/errors"
	"github.com/storefront/storefront/pkg/logger"
	"github.com/storefront/storefront/pkg/metrics"
)

// RoleService maintains roles, their permission sets, and role membership.
type RoleService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewRoleService constructs a RoleService using the provided database handle.
func NewRoleService(db *gorm.DB) (*RoleService, error) {
	if db == nil {
		return nil, errors.New("role service: db is required")
	}
	return &RoleService{db: db, log: logger.WithModule("roles")}, nil
}

// CreateRoleInput describes the payload accepted by CreateRole.
type CreateRoleInput struct {
	Name          string
	Description   string
	PermissionIDs []string
}

// ValidateRolePermissions rejects a save that would take a role from a non-empty permission set
// to an empty one. ClearRolePermissions is the only path allowed to do that.
func ValidateRolePermissions(previous, next int) error {
	if previous > 0 && next == 0 {
		return ErrRoleEmptyPermissions
	}
	return nil
}

// EnsureDefaultRole returns the role granted to new users, creating it with the default catalog
// when missing.
func (s *RoleService) EnsureDefaultRole(ctx context.Context) (*models.Role, error) {
	ctx = ensureContext(ctx)

	var role *models.Role
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ensured, err := permissions.EnsureDefaultRole(ctx, tx)
		if err != nil {
			return err
		}
		role = ensured
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("role service: ensure default role: %w", err)
	}
	return role, nil
}

// EnsureRole returns the named role, creating a catalog role with its permissions when missing.
func (s *RoleService) EnsureRole(ctx context.Context, name string) (*models.Role, error) {
	ctx = ensureContext(ctx)

	var role *models.Role
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ensured, err := permissions.EnsureRole(ctx, tx, strings.TrimSpace(name))
		if err != nil {
			return err
		}
		role = ensured
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("role service: ensure role: %w", err)
	}
	return role, nil
}

// CreateRole registers a custom role with an optional initial permission set.
func (s *RoleService) CreateRole(ctx context.Context, input CreateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("role name is required")
	}

	role := &models.Role{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		perms, err := loadPermissions(tx, input.PermissionIDs)
		if err != nil {
			return err
		}

		if err := tx.Create(role).Error; err != nil {
			return err
		}
		if len(perms) == 0 {
			return nil
		}
		if err := tx.Model(role).Association("Permissions").Append(permissionRefs(perms)...); err != nil {
			return fmt.Errorf("role service: attach permissions: %w", err)
		}
		role.Permissions = perms
		return nil
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("role name already exists")
		}
		return nil, wrapServiceError("role service: create role", err)
	}

	metrics.RoleMutations.WithLabelValues("create").Inc()
	s.log.Info("role created", zap.String("role", role.Name), zap.Int("permissions", len(role.Permissions)))
	return role, nil
}

// ListRoles returns all roles with their permissions ordered by creation date.
func (s *RoleService) ListRoles(ctx context.Context) ([]models.Role, error) {
	ctx = ensureContext(ctx)

	var roles []models.Role
	if err := s.db.WithContext(ctx).Preload("Permissions").Order("created_at ASC").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("role service: list roles: %w", err)
	}
	return roles, nil
}

// GetRole loads a role with its permissions and members.
func (s *RoleService) GetRole(ctx context.Context, roleID string) (*models.Role, error) {
	ctx = ensureContext(ctx)

	var role models.Role
	err := s.db.WithContext(ctx).Preload("Permissions").Preload("Users").First(&role, "id = ?", roleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("role service: get role: %w", err)
	}
	return &role, nil
}

// AddRolePermissions attaches permissions to a role in one transaction.
func (s *RoleService) AddRolePermissions(ctx context.Context, roleID string, permissionIDs []string) (*models.Role, error) {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := loadRole(tx, roleID)
		if err != nil {
			return err
		}
		perms, err := loadPermissions(tx, permissionIDs)
		if err != nil {
			return err
		}
		if len(perms) == 0 {
			return apperrors.NewBadRequest("at least one permission is required")
		}

		existing := idSet(role.Permissions)
		var added []models.Permission
		for _, perm := range perms {
			if _, ok := existing[perm.ID]; !ok {
				added = append(added, perm)
			}
		}
		if err := ValidateRolePermissions(len(role.Permissions), len(role.Permissions)+len(added)); err != nil {
			return err
		}
		if len(added) == 0 {
			return nil
		}
		if err := tx.Model(role).Association("Permissions").Append(permissionRefs(added)...); err != nil {
			return fmt.Errorf("role service: add permissions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapServiceError("role service: add role permissions", err)
	}

	permissions.InvalidateRequestCache(ctx)
	metrics.RoleMutations.WithLabelValues("add_permissions").Inc()
	return s.GetRole(ctx, roleID)
}

// RemoveRolePermissions detaches permissions from a role. Removing the last permission is
// rejected; use ClearRolePermissions for that.
func (s *RoleService) RemoveRolePermissions(ctx context.Context, roleID string, permissionIDs []string) (*models.Role, error) {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := loadRole(tx, roleID)
		if err != nil {
			return err
		}

		remove := make(map[string]struct{})
		for _, id := range normaliseIDs(permissionIDs) {
			remove[id] = struct{}{}
		}
		if len(remove) == 0 {
			return apperrors.NewBadRequest("at least one permission is required")
		}

		var removed []models.Permission
		for _, perm := range role.Permissions {
			if _, ok := remove[perm.ID]; ok {
				removed = append(removed, perm)
			}
		}
		if err := ValidateRolePermissions(len(role.Permissions), len(role.Permissions)-len(removed)); err != nil {
			return err
		}
		if len(removed) == 0 {
			return nil
		}
		if err := tx.Model(role).Association("Permissions").Delete(permissionRefs(removed)...); err != nil {
			return fmt.Errorf("role service: remove permissions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapServiceError("role service: remove role permissions", err)
	}

	permissions.InvalidateRequestCache(ctx)
	metrics.RoleMutations.WithLabelValues("remove_permissions").Inc()
	return s.GetRole(ctx, roleID)
}

// ClearRolePermissions explicitly empties a role's permission set.
func (s *RoleService) ClearRolePermissions(ctx context.Context, roleID string) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := loadRole(tx, roleID)
		if err != nil {
			return err
		}
		if err := tx.Model(role).Association("Permissions").Clear(); err != nil {
			return fmt.Errorf("role service: clear permissions: %w", err)
		}
		return nil
	})
	if err != nil {
		return wrapServiceError("role service: clear role permissions", err)
	}

	permissions.InvalidateRequestCache(ctx)
	metrics.RoleMutations.WithLabelValues("clear_permissions").Inc()
	s.log.Warn("role permissions cleared", zap.String("role_id", roleID))
	return nil
}

// Promote grants the named role to a user. Membership on both sides and the copy of the role's
// permissions into the user's direct grants are written in one transaction.
func (s *RoleService) Promote(ctx context.Context, userID, roleName string) (*models.User, error) {
	ctx = ensureContext(ctx)
	roleName = strings.TrimSpace(roleName)
	if roleName == "" {
		return nil, apperrors.NewBadRequest("role name is required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := loadUserGraph(tx, userID)
		if err != nil {
			return err
		}

		role, err := permissions.EnsureRole(ctx, tx, roleName)
		if err != nil {
			return err
		}
		for _, held := range user.Roles {
			if held.ID == role.ID {
				return ErrRoleAlreadyAssigned
			}
		}

		if err := tx.Model(user).Association("Roles").Append(roleRef(role)); err != nil {
			return fmt.Errorf("role service: attach role: %w", err)
		}

		direct := idSet(user.Permissions)
		var grants []models.Permission
		for _, perm := range role.Permissions {
			if _, ok := direct[perm.ID]; ok {
				continue
			}
			direct[perm.ID] = struct{}{}
			grants = append(grants, perm)
		}
		if len(grants) > 0 {
			if err := tx.Model(user).Association("Permissions").Append(permissionRefs(grants)...); err != nil {
				return fmt.Errorf("role service: copy role permissions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapServiceError("role service: promote", err)
	}

	permissions.InvalidateRequestCache(ctx, userID)
	metrics.RoleMutations.WithLabelValues("promote").Inc()
	s.log.Info("user promoted", zap.String("user_id", userID), zap.String("role", roleName))
	return s.loadUser(ctx, userID)
}

// Demote removes the named role from a user. Direct grants copied from the role are dropped
// unless another role the user still holds grants them too. The default role cannot be removed.
func (s *RoleService) Demote(ctx context.Context, userID, roleName string) (*models.User, error) {
	ctx = ensureContext(ctx)
	roleName = strings.TrimSpace(roleName)
	if roleName == "" {
		return nil, apperrors.NewBadRequest("role name is required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := loadUserGraph(tx, userID)
		if err != nil {
			return err
		}

		var target *models.Role
		var remaining []string
		for i := range user.Roles {
			if user.Roles[i].Name == roleName {
				target = &user.Roles[i]
				continue
			}
			remaining = append(remaining, user.Roles[i].ID)
		}
		if target == nil {
			var count int64
			if err := tx.Model(&models.Role{}).Where("name = ?", roleName).Count(&count).Error; err != nil {
				return fmt.Errorf("role service: load role: %w", err)
			}
			if count == 0 {
				return ErrRoleNotFound
			}
			return ErrRoleNotAssigned
		}
		if target.IsDefault {
			return ErrRoleIsDefault
		}

		rolePerms, err := permissionsOfRoles(tx, []string{target.ID})
		if err != nil {
			return err
		}
		kept, err := permissionsOfRoles(tx, remaining)
		if err != nil {
			return err
		}
		keep := idSet(kept)
		direct := idSet(user.Permissions)

		var revoke []models.Permission
		for _, perm := range rolePerms {
			if _, shared := keep[perm.ID]; shared {
				continue
			}
			if _, held := direct[perm.ID]; !held {
				continue
			}
			revoke = append(revoke, perm)
		}

		if err := tx.Model(user).Association("Roles").Delete(roleRef(target)); err != nil {
			return fmt.Errorf("role service: detach role: %w", err)
		}
		if len(revoke) > 0 {
			if err := tx.Model(user).Association("Permissions").Delete(permissionRefs(revoke)...); err != nil {
				return fmt.Errorf("role service: revoke role permissions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapServiceError("role service: demote", err)
	}

	permissions.InvalidateRequestCache(ctx, userID)
	metrics.RoleMutations.WithLabelValues("demote").Inc()
	s.log.Info("user demoted", zap.String("user_id", userID), zap.String("role", roleName))
	return s.loadUser(ctx, userID)
}

func (s *RoleService) loadUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := loadUserGraph(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, wrapServiceError("role service: reload user", err)
	}
	return user, nil
}

func loadRole(tx *gorm.DB, roleID string) (*models.Role, error) {
	var role models.Role
	err := tx.Preload("Permissions").First(&role, "id = ?", strings.TrimSpace(roleID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load role: %w", err)
	}
	return &role, nil
}

func loadUserGraph(tx *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	err := tx.Preload("Roles").Preload("Permissions").First(&user, "id = ?", strings.TrimSpace(userID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// loadPermissions returns the permissions with the given ids or ErrPermissionNotFound when any id
// is unknown.
func loadPermissions(tx *gorm.DB, permissionIDs []string) ([]models.Permission, error) {
	ids := normaliseIDs(permissionIDs)
	if len(ids) == 0 {
		return nil, nil
	}

	var perms []models.Permission
	if err := tx.Where("id IN ?", ids).Order("name ASC").Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("load permissions: %w", err)
	}
	if len(perms) != len(ids) {
		return nil, ErrPermissionNotFound
	}
	return perms, nil
}

func permissionsOfRoles(tx *gorm.DB, roleIDs []string) ([]models.Permission, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}

	var perms []models.Permission
	if err := tx.
		Select("permissions.*").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id IN ?", roleIDs).
		Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("load role permissions: %w", err)
	}
	return perms, nil
}

// wrapServiceError keeps application errors renderable while annotating the rest.
func wrapServiceError(op string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return fmt.Errorf("%s: %w", op, err)
}
