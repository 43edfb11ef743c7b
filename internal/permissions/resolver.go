package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/storefront/storefront/internal/models"
)

// Resolver loads principals and their effective permissions from the store.
type Resolver struct {
	db *gorm.DB
}

// NewResolver constructs a resolver backed by the provided database.
func NewResolver(db *gorm.DB) (*Resolver, error) {
	if db == nil {
		return nil, errors.New("permission resolver: db is required")
	}
	return &Resolver{db: db}, nil
}

// LoadPrincipal returns the principal identity and current role membership for userID.
func (r *Resolver) LoadPrincipal(ctx context.Context, userID string) (*Principal, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrPrincipalNotFound
	}

	var user models.User
	if err := r.db.WithContext(ctx).
		Preload("Roles").
		First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("permission resolver: load principal: %w", err)
	}

	names := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		names = append(names, role.Name)
	}
	return &Principal{ID: user.ID, RoleIDs: user.RoleIDs(), Roles: names}, nil
}

// ResolveEffectivePermissions returns the union of the user's direct permissions and the
// permissions of every role the user holds, deduplicated by permission ID.
func (r *Resolver) ResolveEffectivePermissions(ctx context.Context, userID string) ([]models.Permission, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrPrincipalNotFound
	}

	cache := cacheFrom(ctx)
	if cache != nil {
		if perms, ok := cache.get(userID); ok {
			return perms, nil
		}
	}

	db := r.db.WithContext(ctx)

	// Step one: the principal row with its direct grants and role ids.
	var user models.User
	if err := db.
		Preload("Permissions").
		Preload("Roles").
		First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("permission resolver: load principal: %w", err)
	}

	// Step two: permissions referenced by those roles.
	var rolePerms []models.Permission
	if roleIDs := user.RoleIDs(); len(roleIDs) > 0 {
		if err := db.
			Select("permissions.*").
			Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
			Where("role_permissions.role_id IN ?", roleIDs).
			Order("permissions.name ASC").
			Find(&rolePerms).Error; err != nil {
			return nil, fmt.Errorf("permission resolver: load role permissions: %w", err)
		}
	}

	perms := unionByID(user.Permissions, rolePerms)
	if cache != nil {
		cache.set(userID, perms)
	}
	return perms, nil
}

func unionByID(sets ...[]models.Permission) []models.Permission {
	seen := make(map[string]struct{})
	var out []models.Permission
	for _, set := range sets {
		for _, perm := range set {
			if _, ok := seen[perm.ID]; ok {
				continue
			}
			seen[perm.ID] = struct{}{}
			out = append(out, perm)
		}
	}
	return out
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
