package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storefront/storefront/internal/services"
	"github.com/storefront/storefront/pkg/errors"
	"github.com/storefront/storefront/pkg/response"
)

type UserHandler struct {
	users       *services.UserService
	roles       *services.RoleService
	permissions *services.PermissionService
}

func NewUserHandler(users *services.UserService, roles *services.RoleService, perms *services.PermissionService) (*UserHandler, error) {
	if users == nil || roles == nil || perms == nil {
		return nil, errors.New("USER_HANDLER", "user, role and permission services are required", http.StatusInternalServerError)
	}
	return &UserHandler{users: users, roles: roles, permissions: perms}, nil
}

type roleChangeRequest struct {
	Role string `json:"role" validate:"required,max=64"`
}

type grantPermissionRequest struct {
	PermissionID string `json:"permission_id" validate:"required,uuid"`
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.GetUser(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// POST /api/users/:id/promote
func (h *UserHandler) Promote(c *gin.Context) {
	var body roleChangeRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.roles.Promote(requestContext(c), c.Param("id"), body.Role)
	if err != nil {
		response.Error(c, roleError(err))
		return
	}
	response.Success(c, http.StatusOK, user)
}

// POST /api/users/:id/demote
func (h *UserHandler) Demote(c *gin.Context) {
	var body roleChangeRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.roles.Demote(requestContext(c), c.Param("id"), body.Role)
	if err != nil {
		response.Error(c, roleError(err))
		return
	}
	response.Success(c, http.StatusOK, user)
}

// GET /api/users/:id/permissions
func (h *UserHandler) Permissions(c *gin.Context) {
	perms, err := h.permissions.ListUserPermissions(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perms)
}

// POST /api/users/:id/permissions
func (h *UserHandler) GrantPermission(c *gin.Context) {
	var body grantPermissionRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.users.GrantPermission(requestContext(c), c.Param("id"), body.PermissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// DELETE /api/users/:id/permissions/:permissionID
func (h *UserHandler) RevokePermission(c *gin.Context) {
	user, err := h.users.RevokePermission(requestContext(c), c.Param("id"), c.Param("permissionID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}
