package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the principal requests act on behalf of. Roles and direct permission grants are
// independent; the effective permission set is the union of both.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"index" json:"email"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	Roles       []Role       `gorm:"many2many:user_roles;" json:"roles,omitempty"`
	Permissions []Permission `gorm:"many2many:user_permissions;" json:"permissions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// RoleIDs returns the identifiers of the loaded roles.
func (u *User) RoleIDs() []string {
	if u == nil {
		return nil
	}
	ids := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		ids = append(ids, role.ID)
	}
	return ids
}
