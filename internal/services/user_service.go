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
)

// CreateUserInput describes the fields accepted when creating a user.
type CreateUserInput struct {
	Username string
	Email    string
	// Roles lists additional catalog or custom role names granted on creation.
	Roles []string
}

// UserService manages principals and their direct permission grants.
type UserService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db, log: logger.WithModule("users")}, nil
}

// CreateUser provisions a principal holding the default role, plus any extra roles requested.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, apperrors.NewBadRequest("username is required")
	}

	user := &models.User{
		Username: username,
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		IsActive: true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		defaultRole, err := permissions.EnsureDefaultRole(ctx, tx)
		if err != nil {
			return err
		}
		roles := []*models.Role{defaultRole}
		seen := map[string]struct{}{defaultRole.Name: {}}
		for _, name := range input.Roles {
			name = strings.TrimSpace(name)
			if _, dup := seen[name]; dup || name == "" {
				continue
			}
			seen[name] = struct{}{}

			role, err := permissions.EnsureRole(ctx, tx, name)
			if err != nil {
				return err
			}
			roles = append(roles, role)
		}

		refs := make([]any, 0, len(roles))
		for _, role := range roles {
			refs = append(refs, roleRef(role))
		}
		if err := tx.Model(user).Association("Roles").Append(refs...); err != nil {
			return fmt.Errorf("user service: assign roles: %w", err)
		}
		return nil
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("username already exists")
		}
		return nil, wrapServiceError("user service: create user", err)
	}

	s.log.Info("user created", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return s.GetUser(ctx, user.ID)
}

// GetUser loads a user with roles and direct grants.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := loadUserGraph(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, wrapServiceError("user service: get user", err)
	}
	return user, nil
}

// FindByUsername loads a user by username.
func (s *UserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Preload("Roles").First(&user, "username = ?", strings.TrimSpace(username)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: find user: %w", err)
	}
	return &user, nil
}

// GrantPermission adds a direct permission to a user. Granting a held permission is a no-op.
func (s *UserService) GrantPermission(ctx context.Context, userID, permissionID string) (*models.User, error) {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := loadUserGraph(tx, userID)
		if err != nil {
			return err
		}
		perms, err := loadPermissions(tx, []string{permissionID})
		if err != nil {
			return err
		}
		if len(perms) == 0 {
			return apperrors.NewBadRequest("permission id is required")
		}
		if _, held := idSet(user.Permissions)[perms[0].ID]; held {
			return nil
		}
		if err := tx.Model(user).Association("Permissions").Append(permissionRefs(perms)...); err != nil {
			return fmt.Errorf("user service: grant permission: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapServiceError("user service: grant permission", err)
	}

	permissions.InvalidateRequestCache(ctx, userID)
	s.log.Info("permission granted", zap.String("user_id", userID), zap.String("permission_id", permissionID))
	return s.GetUser(ctx, userID)
}

// RevokePermission removes a direct permission from a user. Role grants are untouched.
func (s *UserService) RevokePermission(ctx context.Context, userID, permissionID string) (*models.User, error) {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := loadUserGraph(tx, userID)
		if err != nil {
			return err
		}
		for _, perm := range user.Permissions {
			if perm.ID != strings.TrimSpace(permissionID) {
				continue
			}
			if err := tx.Model(user).Association("Permissions").Delete(permissionRefs([]models.Permission{perm})...); err != nil {
				return fmt.Errorf("user service: revoke permission: %w", err)
			}
			return nil
		}
		return ErrPermissionNotFound
	})
	if err != nil {
		return nil, wrapServiceError("user service: revoke permission", err)
	}

	permissions.InvalidateRequestCache(ctx, userID)
	s.log.Info("permission revoked", zap.String("user_id", userID), zap.String("permission_id", permissionID))
	return s.GetUser(ctx, userID)
}
