package services

import (
	"context"
	"strings"

	"github.com/storefront/storefront/internal/models"
)

func normaliseIDs(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func idSet(perms []models.Permission) map[string]struct{} {
	set := make(map[string]struct{}, len(perms))
	for _, perm := range perms {
		set[perm.ID] = struct{}{}
	}
	return set
}

// roleRef strips loaded associations so association writes only touch join rows.
func roleRef(role *models.Role) *models.Role {
	ref := *role
	ref.Permissions = nil
	ref.Users = nil
	return &ref
}

func permissionRefs(perms []models.Permission) []any {
	refs := make([]any, 0, len(perms))
	for i := range perms {
		ref := perms[i]
		ref.Roles = nil
		refs = append(refs, &ref)
	}
	return refs
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
