package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/storefront/storefront/internal/database/testutil"
	"github.com/storefront/storefront/internal/models"
)

type serviceFixture struct {
	db          *gorm.DB
	roles       *RoleService
	users       *UserService
	permissions *PermissionService
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	roles, err := NewRoleService(db)
	require.NoError(t, err)
	users, err := NewUserService(db)
	require.NoError(t, err)
	perms, err := NewPermissionService(db)
	require.NoError(t, err)

	return serviceFixture{db: db, roles: roles, users: users, permissions: perms}
}

func (f serviceFixture) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := f.users.CreateUser(context.Background(), CreateUserInput{Username: username, Email: username + "@example.com"})
	require.NoError(t, err)
	return user
}

func (f serviceFixture) permissionByName(t *testing.T, name string) models.Permission {
	t.Helper()
	var perm models.Permission
	require.NoError(t, f.db.First(&perm, "name = ?", name).Error)
	return perm
}

func (f serviceFixture) roleByName(t *testing.T, name string) models.Role {
	t.Helper()
	var role models.Role
	require.NoError(t, f.db.Preload("Permissions").Preload("Users").First(&role, "name = ?", name).Error)
	return role
}

func permissionIDs(perms []models.Permission) []string {
	ids := make([]string, 0, len(perms))
	for _, perm := range perms {
		ids = append(ids, perm.ID)
	}
	return ids
}
