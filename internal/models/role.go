package models

// Role bundles permissions that can be granted to many principals at once.
type Role struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`
	IsDefault   bool   `gorm:"default:false;index" json:"is_default"`

	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
	Users       []User       `gorm:"many2many:user_roles;" json:"users,omitempty"`
}

// PermissionIDs returns the identifiers of the loaded permissions.
func (r *Role) PermissionIDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.Permissions))
	for _, perm := range r.Permissions {
		ids = append(ids, perm.ID)
	}
	return ids
}
