package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// Action is a capability a permission grants on a resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionManage conventionally covers create/read/update/delete on its resource.
	ActionManage Action = "manage"
	// ActionSuper matches every action on its resource, including ones added later.
	ActionSuper Action = "super"
)

var actions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage, ActionSuper}

// Actions lists the closed action vocabulary.
func Actions() []Action {
	return append([]Action(nil), actions...)
}

// Valid reports whether the action is part of the vocabulary.
func (a Action) Valid() bool {
	for _, candidate := range actions {
		if a == candidate {
			return true
		}
	}
	return false
}

// ResourceType identifies a protected entity class.
type ResourceType string

const (
	ResourceUser       ResourceType = "user"
	ResourceReview     ResourceType = "review"
	ResourceCart       ResourceType = "cart"
	ResourceOrder      ResourceType = "order"
	ResourceProduct    ResourceType = "product"
	ResourceCategory   ResourceType = "category"
	ResourceRole       ResourceType = "role"
	ResourcePermission ResourceType = "permission"
	ResourceSettings   ResourceType = "settings"
	ResourceDashboard  ResourceType = "dashboard"
	ResourceLike       ResourceType = "like"
	ResourceFavorite   ResourceType = "favorite"
	ResourceProfile    ResourceType = "profile"
	ResourceAddress    ResourceType = "address"
)

var resourceTypes = []ResourceType{
	ResourceUser,
	ResourceReview,
	ResourceCart,
	ResourceOrder,
	ResourceProduct,
	ResourceCategory,
	ResourceRole,
	ResourcePermission,
	ResourceSettings,
	ResourceDashboard,
	ResourceLike,
	ResourceFavorite,
	ResourceProfile,
	ResourceAddress,
}

// ResourceTypes lists every resource type in declaration order.
func ResourceTypes() []ResourceType {
	return append([]ResourceType(nil), resourceTypes...)
}

// Valid reports whether the resource type is part of the vocabulary.
func (r ResourceType) Valid() bool {
	for _, candidate := range resourceTypes {
		if r == candidate {
			return true
		}
	}
	return false
}

// Conditions narrow when a permission applies. Absent keys are not evaluated.
type Conditions struct {
	OwnerOnly  bool     `json:"ownerOnly,omitempty"`
	Department []string `json:"department,omitempty"`
	Status     []string `json:"status,omitempty"`
}

// Permission grants one action on one resource type, optionally narrowed by conditions.
type Permission struct {
	BaseModel

	Name        string         `gorm:"uniqueIndex;not null" json:"name"`
	Description string         `gorm:"not null" json:"description"`
	Action      Action         `gorm:"type:varchar(16);not null;index:idx_permission_resource_action,priority:2" json:"action"`
	Resource    ResourceType   `gorm:"type:varchar(32);not null;index:idx_permission_resource_action,priority:1" json:"resource"`
	Conditions  datatypes.JSON `json:"conditions,omitempty"`

	Roles []Role `gorm:"many2many:role_permissions;" json:"roles,omitempty"`
}

// HasConditions reports whether any condition document is attached. An empty object still
// counts as conditioned; it simply evaluates to true.
func (p *Permission) HasConditions() bool {
	if p == nil {
		return false
	}
	raw := string(p.Conditions)
	return raw != "" && raw != "null"
}

// ParsedConditions decodes the stored condition document. It returns nil when none is set.
func (p *Permission) ParsedConditions() (*Conditions, error) {
	if !p.HasConditions() {
		return nil, nil
	}
	var cond Conditions
	if err := json.Unmarshal(p.Conditions, &cond); err != nil {
		return nil, fmt.Errorf("permission %s: decode conditions: %w", p.Name, err)
	}
	return &cond, nil
}

// SetConditions encodes cond into the stored document; nil clears it.
func (p *Permission) SetConditions(cond *Conditions) error {
	if cond == nil {
		p.Conditions = nil
		return nil
	}
	raw, err := json.Marshal(cond)
	if err != nil {
		return fmt.Errorf("permission %s: encode conditions: %w", p.Name, err)
	}
	p.Conditions = datatypes.JSON(raw)
	return nil
}
