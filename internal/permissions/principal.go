package permissions

import (
	"fmt"

	"github.com/storefront/storefront/internal/models"
)

// Principal is the authenticated actor attached to a request.
type Principal struct {
	ID      string   `json:"id"`
	RoleIDs []string `json:"role_ids"`
	// Roles holds role names for coarse role gates.
	Roles []string `json:"roles,omitempty"`
}

// HasRole reports whether the principal holds any of the named roles.
func (p *Principal) HasRole(names ...string) bool {
	if p == nil {
		return false
	}
	for _, held := range p.Roles {
		for _, name := range names {
			if held == name {
				return true
			}
		}
	}
	return false
}

// Check names one action on one resource type.
type Check struct {
	Action   models.Action       `json:"action" validate:"required,permission_action"`
	Resource models.ResourceType `json:"resource" validate:"required,permission_resource"`
}

// String renders the check as resource:action.
func (c Check) String() string {
	return fmt.Sprintf("%s:%s", c.Resource, c.Action)
}

// Can builds a Check.
func Can(action models.Action, resource models.ResourceType) Check {
	return Check{Action: action, Resource: resource}
}
