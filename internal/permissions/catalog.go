package permissions

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/multierr"

	"github.com/storefront/storefront/internal/models"
	"github.com/storefront/storefront/pkg/validator"
)

// Role names seeded by the catalog.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super-admin"
)

func init() {
	if err := validator.RegisterValidation("permission_action", func(fl validator.FieldLevel) bool {
		return models.Action(fl.Field().String()).Valid()
	}); err != nil {
		panic(err)
	}
	if err := validator.RegisterValidation("permission_resource", func(fl validator.FieldLevel) bool {
		return models.ResourceType(fl.Field().String()).Valid()
	}); err != nil {
		panic(err)
	}
}

// PermissionConfig declares a set of actions granted on one resource.
type PermissionConfig struct {
	Resource    models.ResourceType `json:"resource" validate:"required,permission_resource"`
	Actions     []models.Action     `json:"actions" validate:"required,min=1,dive,permission_action"`
	OwnerOnly   bool                `json:"owner_only"`
	Description string              `json:"description"`
}

// PermissionObject is a permission record synthesised from a config, not yet persisted.
type PermissionObject struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Action      models.Action       `json:"action"`
	Resource    models.ResourceType `json:"resource"`
	Conditions  *models.Conditions  `json:"conditions,omitempty"`
}

// PermissionName derives the canonical permission name for a resource/action pair.
func PermissionName(resource models.ResourceType, action models.Action, ownerOnly bool) string {
	name := fmt.Sprintf("%s:%s", resource, action)
	if ownerOnly {
		name += ":owner"
	}
	return name
}

// ConditionedPermissionName extends PermissionName with the department and status values of cond,
// sorted, so permissions differing only in those conditions get distinct names.
func ConditionedPermissionName(resource models.ResourceType, action models.Action, cond *models.Conditions) string {
	if cond == nil {
		return PermissionName(resource, action, false)
	}
	name := PermissionName(resource, action, cond.OwnerOnly)
	if len(cond.Department) > 0 {
		name += ":department=" + joinSorted(cond.Department)
	}
	if len(cond.Status) > 0 {
		name += ":status=" + joinSorted(cond.Status)
	}
	return name
}

func joinSorted(values []string) string {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return strings.Join(slices.Compact(sorted), ",")
}

// CreatePermissions expands configs into permission objects, keeping the first object for each
// derived name. Output order follows input order.
func CreatePermissions(configs []PermissionConfig) []PermissionObject {
	seen := make(map[string]struct{})
	var out []PermissionObject

	for _, cfg := range configs {
		for _, action := range cfg.Actions {
			name := PermissionName(cfg.Resource, action, cfg.OwnerOnly)
			if _, exists := seen[name]; exists {
				continue
			}
			seen[name] = struct{}{}

			description := cfg.Description
			if description == "" {
				description = fmt.Sprintf("%s %s", action, cfg.Resource)
			}

			obj := PermissionObject{
				Name:        name,
				Description: description,
				Action:      action,
				Resource:    cfg.Resource,
			}
			if cfg.OwnerOnly {
				obj.Conditions = &models.Conditions{OwnerOnly: true}
			}
			out = append(out, obj)
		}
	}

	return out
}

// ValidateConfigs reports every config referencing an action or resource outside the vocabulary.
func ValidateConfigs(configs []PermissionConfig) error {
	var errs error
	for i, cfg := range configs {
		if err := validator.ValidateStruct(cfg); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("permission config %d (%s): %w", i, cfg.Resource, err))
		}
	}
	return errs
}

// RoleDefinition describes a role the catalog knows how to materialise.
type RoleDefinition struct {
	Name        string
	Description string
	IsDefault   bool
	Configs     []PermissionConfig
}

// Permissions returns the role's deduplicated permission objects.
func (d RoleDefinition) Permissions() []PermissionObject {
	return CreatePermissions(d.Configs)
}

var (
	crud   = []models.Action{models.ActionCreate, models.ActionRead, models.ActionUpdate, models.ActionDelete}
	read   = []models.Action{models.ActionRead}
	manage = []models.Action{models.ActionManage}
)

func defaultUserConfigs() []PermissionConfig {
	return []PermissionConfig{
		{Resource: models.ResourceProfile, Actions: []models.Action{models.ActionRead, models.ActionUpdate}, OwnerOnly: true, Description: "Manage own user profile"},
		{Resource: models.ResourceUser, Actions: []models.Action{models.ActionRead, models.ActionUpdate, models.ActionDelete}, OwnerOnly: true, Description: "Manage own user account"},
		{Resource: models.ResourceCart, Actions: crud, OwnerOnly: true, Description: "Manage own shopping cart"},
		{Resource: models.ResourceOrder, Actions: []models.Action{models.ActionCreate, models.ActionRead}, OwnerOnly: true, Description: "Manage own orders"},
		{Resource: models.ResourceProduct, Actions: read, Description: "Product viewing"},
		{Resource: models.ResourceCategory, Actions: read, Description: "Category viewing"},
		{Resource: models.ResourceReview, Actions: []models.Action{models.ActionCreate, models.ActionRead}, Description: "Review operations"},
		{Resource: models.ResourceReview, Actions: []models.Action{models.ActionUpdate, models.ActionDelete}, OwnerOnly: true, Description: "Own review management"},
		{Resource: models.ResourceLike, Actions: []models.Action{models.ActionCreate, models.ActionRead}, Description: "Like operations"},
		{Resource: models.ResourceFavorite, Actions: []models.Action{models.ActionCreate, models.ActionRead, models.ActionDelete}, OwnerOnly: true, Description: "Favorite operations"},
		{Resource: models.ResourceAddress, Actions: crud, OwnerOnly: true, Description: "Address management"},
		{Resource: models.ResourceSettings, Actions: read, Description: "View application settings"},
	}
}

func adminConfigs() []PermissionConfig {
	withManage := []models.Action{models.ActionCreate, models.ActionUpdate, models.ActionDelete, models.ActionManage}
	return []PermissionConfig{
		{Resource: models.ResourceUser, Actions: manage, Description: "Manage user accounts and permissions"},
		{Resource: models.ResourceProduct, Actions: withManage, Description: "Full product management"},
		{Resource: models.ResourceOrder, Actions: []models.Action{models.ActionUpdate, models.ActionManage}, Description: "Process and manage orders"},
		{Resource: models.ResourceReview, Actions: manage, Description: "Moderate reviews"},
		{Resource: models.ResourceCategory, Actions: withManage, Description: "Manage product categories"},
		{Resource: models.ResourceDashboard, Actions: []models.Action{models.ActionRead, models.ActionManage}, Description: "Access analytics dashboard"},
		{Resource: models.ResourceSettings, Actions: []models.Action{models.ActionUpdate}, Description: "Configure system settings"},
		{Resource: models.ResourceRole, Actions: []models.Action{models.ActionCreate, models.ActionRead, models.ActionUpdate, models.ActionDelete, models.ActionManage}, Description: "Manage user roles and permissions"},
	}
}

func superAdminConfigs() []PermissionConfig {
	resources := models.ResourceTypes()
	configs := make([]PermissionConfig, 0, len(resources))
	for _, resource := range resources {
		configs = append(configs, PermissionConfig{
			Resource:    resource,
			Actions:     []models.Action{models.ActionSuper},
			Description: fmt.Sprintf("Super access to %s resources", resource),
		})
	}
	return configs
}

// DefaultUserPermissions is the permission set granted to every new principal.
func DefaultUserPermissions() []PermissionObject {
	return CreatePermissions(defaultUserConfigs())
}

// AdminPermissions is the management-level permission set.
func AdminPermissions() []PermissionObject {
	return CreatePermissions(adminConfigs())
}

// SuperAdminPermissions grants the super action on every resource type.
func SuperAdminPermissions() []PermissionObject {
	return CreatePermissions(superAdminConfigs())
}

// Definitions lists every role the catalog can materialise, default role first.
func Definitions() []RoleDefinition {
	return []RoleDefinition{
		{Name: RoleUser, Description: "Default user role with basic permissions", IsDefault: true, Configs: defaultUserConfigs()},
		{Name: RoleAdmin, Description: "Admin role with management access", Configs: adminConfigs()},
		{Name: RoleSuperAdmin, Description: "Super Admin role with management and super access", Configs: superAdminConfigs()},
	}
}

// Definition looks up a role definition by name.
func Definition(name string) (RoleDefinition, bool) {
	for _, def := range Definitions() {
		if def.Name == name {
			return def, true
		}
	}
	return RoleDefinition{}, false
}
