package permissions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/storefront/storefront/internal/models"
)

func newTestChecker(t *testing.T, perms ...models.Permission) (*Checker, *stubSource) {
	t.Helper()
	source := &stubSource{perms: perms}
	checker, err := NewChecker(source)
	require.NoError(t, err)
	return checker, source
}

func member(id string) *Principal {
	return &Principal{ID: id, RoleIDs: []string{"role-user"}}
}

func TestNewCheckerRequiresSource(t *testing.T) {
	_, err := NewChecker(nil)
	require.Error(t, err)
}

func TestCheckerRejectsMissingPrincipal(t *testing.T) {
	checker, source := newTestChecker(t)

	allowed, err := checker.IsAuthorized(context.Background(), nil, Can(models.ActionRead, models.ResourceProduct), nil)
	require.ErrorIs(t, err, ErrUnauthenticated)
	require.False(t, allowed)
	require.Zero(t, source.calls)
}

func TestCheckerSuperBypassesEveryAction(t *testing.T) {
	checker, _ := newTestChecker(t, permissionRecord(t, models.ResourceOrder, models.ActionSuper, nil))
	principal := member("u1")

	for _, action := range models.Actions() {
		for _, rc := range []*ResourceContext{nil, {OwnerID: "someone-else"}, {Status: "cancelled"}} {
			allowed, err := checker.IsAuthorized(context.Background(), principal, Can(action, models.ResourceOrder), rc)
			require.NoError(t, err)
			require.True(t, allowed, "super should allow %s", action)
		}
	}

	allowed, err := checker.IsAuthorized(context.Background(), principal, Can(models.ActionRead, models.ResourceProduct), nil)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestCheckerUnconditionedGrantIsNotShadowed(t *testing.T) {
	checker, _ := newTestChecker(t,
		permissionRecord(t, models.ResourceProduct, models.ActionRead, &models.Conditions{OwnerOnly: true}),
		permissionRecord(t, models.ResourceProduct, models.ActionRead, nil),
	)

	decision, err := checker.Decide(context.Background(), member("u1"), Can(models.ActionRead, models.ResourceProduct), &ResourceContext{OwnerID: "u2"})
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.Equal(t, "product:read", decision.MatchedBy)
}

func TestCheckerOwnershipMatch(t *testing.T) {
	checker, _ := newTestChecker(t, permissionRecord(t, models.ResourceOrder, models.ActionUpdate, &models.Conditions{OwnerOnly: true}))
	principal := member("u1")
	check := Can(models.ActionUpdate, models.ResourceOrder)

	allowed, err := checker.IsAuthorized(context.Background(), principal, check, &ResourceContext{OwnerID: "u1"})
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = checker.IsAuthorized(context.Background(), principal, check, &ResourceContext{OwnerID: "u2"})
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = checker.IsAuthorized(context.Background(), principal, check, nil)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestCheckerDeniesPrincipalWithoutRoles(t *testing.T) {
	checker, source := newTestChecker(t,
		permissionRecord(t, models.ResourceProduct, models.ActionSuper, nil),
		permissionRecord(t, models.ResourceProduct, models.ActionRead, nil),
	)
	principal := &Principal{ID: "u1"}

	for _, resource := range models.ResourceTypes() {
		for _, action := range models.Actions() {
			allowed, err := checker.IsAuthorized(context.Background(), principal, Can(action, resource), nil)
			require.NoError(t, err)
			require.False(t, allowed)
		}
	}
	require.Zero(t, source.calls)
}

func TestCheckerOwnedReviewDeletion(t *testing.T) {
	checker, _ := newTestChecker(t, permissionRecord(t, models.ResourceReview, models.ActionDelete, &models.Conditions{OwnerOnly: true}))
	principal := member("u1")
	check := Can(models.ActionDelete, models.ResourceReview)

	allowed, err := checker.IsAuthorized(context.Background(), principal, check, &ResourceContext{OwnerID: "u1"})
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = checker.IsAuthorized(context.Background(), principal, check, &ResourceContext{OwnerID: "u9"})
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestCheckerManageDoesNotImplyCrud(t *testing.T) {
	checker, _ := newTestChecker(t, permissionRecord(t, models.ResourceProduct, models.ActionManage, nil))

	allowed, err := checker.IsAuthorized(context.Background(), member("u1"), Can(models.ActionDelete, models.ResourceProduct), nil)
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = checker.IsAuthorized(context.Background(), member("u1"), Can(models.ActionManage, models.ResourceProduct), nil)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestCheckerOwnerManagePriority(t *testing.T) {
	checker, _ := newTestChecker(t,
		permissionRecord(t, models.ResourceAddress, models.ActionManage, &models.Conditions{Status: []string{"archived"}}),
		permissionRecord(t, models.ResourceAddress, models.ActionManage, &models.Conditions{OwnerOnly: true}),
	)

	decision, err := checker.Decide(context.Background(), member("u1"), Can(models.ActionManage, models.ResourceAddress), &ResourceContext{OwnerID: "u1"})
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.Equal(t, "owner manage grant", decision.Reason)
	require.Equal(t, "address:manage:owner", decision.MatchedBy)
}

func TestCheckerConditionsAreConjunctive(t *testing.T) {
	checker, _ := newTestChecker(t, permissionRecord(t, models.ResourceOrder, models.ActionUpdate,
		&models.Conditions{Department: []string{"fulfilment"}, Status: []string{"pending", "paid"}}))
	principal := member("u1")
	check := Can(models.ActionUpdate, models.ResourceOrder)

	allowed, err := checker.IsAuthorized(context.Background(), principal, check, &ResourceContext{Department: "fulfilment", Status: "paid"})
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = checker.IsAuthorized(context.Background(), principal, check, &ResourceContext{Department: "fulfilment", Status: "shipped"})
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestCheckerSkipsUnreadableConditions(t *testing.T) {
	broken := permissionRecord(t, models.ResourceCart, models.ActionRead, nil)
	broken.Conditions = datatypes.JSON(`{"status":"open"}`)
	checker, _ := newTestChecker(t, broken)

	allowed, err := checker.IsAuthorized(context.Background(), member("u1"), Can(models.ActionRead, models.ResourceCart), &ResourceContext{Status: "open"})
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestCheckerEmptyConditionDocumentAllows(t *testing.T) {
	perm := permissionRecord(t, models.ResourceCategory, models.ActionRead, &models.Conditions{})
	checker, _ := newTestChecker(t, perm)

	decision, err := checker.Decide(context.Background(), member("u1"), Can(models.ActionRead, models.ResourceCategory), nil)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.Equal(t, "conditions satisfied", decision.Reason)
}

func TestCheckerSourceFailureDenies(t *testing.T) {
	boom := errors.New("connection reset")
	source := &stubSource{err: boom}
	checker, err := NewChecker(source)
	require.NoError(t, err)

	allowed, err := checker.IsAuthorized(context.Background(), member("u1"), Can(models.ActionRead, models.ResourceProduct), nil)
	require.ErrorIs(t, err, boom)
	require.False(t, allowed)
}

func TestCheckerAgainstStore(t *testing.T) {
	db := setupPermissionTestDB(t)

	deleteOwn := createPermission(t, db, models.ResourceReview, models.ActionDelete, &models.Conditions{OwnerOnly: true})
	readProducts := createPermission(t, db, models.ResourceProduct, models.ActionRead, nil)
	userRole := createRoleWith(t, db, RoleUser, readProducts)
	author := createUserWith(t, db, []models.Role{userRole}, deleteOwn)
	other := createUserWith(t, db, []models.Role{userRole})

	resolver, err := NewResolver(db)
	require.NoError(t, err)
	checker, err := NewChecker(resolver)
	require.NoError(t, err)

	principal, err := resolver.LoadPrincipal(context.Background(), author.ID)
	require.NoError(t, err)

	allowed, err := checker.IsAuthorized(context.Background(), principal, Can(models.ActionDelete, models.ResourceReview), &ResourceContext{OwnerID: author.ID})
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = checker.IsAuthorized(context.Background(), principal, Can(models.ActionDelete, models.ResourceReview), &ResourceContext{OwnerID: other.ID})
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = checker.IsAuthorized(context.Background(), principal, Can(models.ActionRead, models.ResourceProduct), nil)
	require.NoError(t, err)
	require.True(t, allowed)
}
