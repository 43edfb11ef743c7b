package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/storefront/storefront/pkg/errors"
)

var (
	// ErrRoleNotFound indicates the requested role does not exist.
	ErrRoleNotFound = apperrors.New("ROLE_NOT_FOUND", "Role not found", http.StatusNotFound)
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrPermissionNotFound indicates one or more referenced permissions do not exist.
	ErrPermissionNotFound = apperrors.New("PERMISSION_NOT_FOUND", "Permission not found", http.StatusNotFound)
	// ErrRoleAlreadyAssigned indicates the user already holds the role.
	ErrRoleAlreadyAssigned = apperrors.New("ROLE_ALREADY_ASSIGNED", "User already holds this role", http.StatusConflict)
	// ErrRoleNotAssigned indicates the user does not hold the role.
	ErrRoleNotAssigned = apperrors.New("ROLE_NOT_ASSIGNED", "User does not hold this role", http.StatusConflict)
	// ErrRoleIsDefault rejects removing the default role, which every user keeps.
	ErrRoleIsDefault = apperrors.New("ROLE_IS_DEFAULT", "The default role cannot be removed from a user", http.StatusConflict)
	// ErrRoleEmptyPermissions rejects saving a role whose permission set would become empty.
	ErrRoleEmptyPermissions = apperrors.New("ROLE_EMPTY_PERMISSIONS", "Role must keep at least one permission; clear it explicitly instead", http.StatusBadRequest)
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") ||
		strings.Contains(lower, "duplicate")
}
