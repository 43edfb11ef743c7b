package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storefront/storefront/internal/models"
	"github.com/storefront/storefront/internal/permissions"
)

func TestPermissionService_CreatePermission(t *testing.T) {
	f := newServiceFixture(t)

	perm, err := f.permissions.CreatePermission(context.Background(), CreatePermissionInput{
		Name:       "order:update:fulfilment",
		Action:     models.ActionUpdate,
		Resource:   models.ResourceOrder,
		Conditions: &models.Conditions{Department: []string{"fulfilment"}, Status: []string{"paid"}},
	})
	require.NoError(t, err)
	require.Equal(t, "update order", perm.Description)

	cond, err := perm.ParsedConditions()
	require.NoError(t, err)
	require.Equal(t, []string{"fulfilment"}, cond.Department)

	_, err = f.permissions.CreatePermission(context.Background(), CreatePermissionInput{
		Action:   models.ActionRead,
		Resource: models.ResourceProduct,
	})
	require.Error(t, err, "catalog name product:read already exists")

	_, err = f.permissions.CreatePermission(context.Background(), CreatePermissionInput{
		Action:   "archive",
		Resource: models.ResourceOrder,
	})
	require.Error(t, err)
}

func TestPermissionService_CreatePermissionDerivesConditionedName(t *testing.T) {
	f := newServiceFixture(t)

	perm, err := f.permissions.CreatePermission(context.Background(), CreatePermissionInput{
		Action:     models.ActionUpdate,
		Resource:   models.ResourceOrder,
		Conditions: &models.Conditions{Status: []string{"pending"}},
	})
	require.NoError(t, err)
	require.Equal(t, "order:update:status=pending", perm.Name)

	seeded := f.permissionByName(t, "order:update")
	require.NotEqual(t, seeded.ID, perm.ID)
}

func TestPermissionService_ListPermissions(t *testing.T) {
	f := newServiceFixture(t)

	reviews, err := f.permissions.ListPermissions(context.Background(), models.ResourceReview)
	require.NoError(t, err)
	require.NotEmpty(t, reviews)
	for _, perm := range reviews {
		require.Equal(t, models.ResourceReview, perm.Resource)
	}

	all, err := f.permissions.ListPermissions(context.Background(), "")
	require.NoError(t, err)
	require.Greater(t, len(all), len(reviews))
}

func TestPermissionService_ListUserPermissions(t *testing.T) {
	f := newServiceFixture(t)
	user := f.createUser(t, "carol")

	perms, err := f.permissions.ListUserPermissions(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, perms, len(permissions.DefaultUserPermissions()))

	_, err = f.permissions.ListUserPermissions(context.Background(), "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestPermissionService_Catalog(t *testing.T) {
	f := newServiceFixture(t)

	catalog := f.permissions.Catalog()
	require.Len(t, catalog, 3)
	require.Equal(t, permissions.RoleUser, catalog[0].Name)
	require.True(t, catalog[0].IsDefault)
	require.Len(t, catalog[2].Permissions, len(models.ResourceTypes()))
}

func TestDirectOwnerGrantEndToEnd(t *testing.T) {
	f := newServiceFixture(t)

	author := f.createUser(t, "u1")
	other := f.createUser(t, "u2")

	perm, err := f.permissions.CreatePermission(context.Background(), CreatePermissionInput{
		Name:       "review:delete:owner:direct",
		Action:     models.ActionDelete,
		Resource:   models.ResourceReview,
		Conditions: &models.Conditions{OwnerOnly: true},
	})
	require.NoError(t, err)
	_, err = f.users.GrantPermission(context.Background(), author.ID, perm.ID)
	require.NoError(t, err)

	resolver, err := permissions.NewResolver(f.db)
	require.NoError(t, err)
	checker, err := permissions.NewChecker(resolver)
	require.NoError(t, err)

	principal, err := resolver.LoadPrincipal(context.Background(), author.ID)
	require.NoError(t, err)
	check := permissions.Can(models.ActionDelete, models.ResourceReview)

	allowed, err := checker.IsAuthorized(context.Background(), principal, check, &permissions.ResourceContext{OwnerID: author.ID})
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = checker.IsAuthorized(context.Background(), principal, check, &permissions.ResourceContext{OwnerID: other.ID})
	require.NoError(t, err)
	require.False(t, allowed)
}
