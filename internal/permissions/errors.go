package permissions

import "errors"

var (
	// ErrUnauthenticated indicates no principal was attached to the request.
	ErrUnauthenticated = errors.New("permission: principal not authenticated")
	// ErrForbidden indicates the principal lacks the required permissions.
	ErrForbidden = errors.New("permission: insufficient permissions")
	// ErrPrincipalNotFound indicates the principal no longer exists in the store.
	ErrPrincipalNotFound = errors.New("permission: principal not found")
	// ErrUnknownRole indicates a role name has no catalog definition.
	ErrUnknownRole = errors.New("permission: unknown role definition")
	// ErrEmptyRoleDefinition indicates a catalog role definition materialised no permissions.
	ErrEmptyRoleDefinition = errors.New("permission: role definition has no permissions")
)
