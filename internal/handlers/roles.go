package handlers

import (
	stdErrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storefront/storefront/internal/permissions"
	"github.com/storefront/storefront/internal/services"
	"github.com/storefront/storefront/pkg/errors"
	"github.com/storefront/storefront/pkg/response"
)

type RoleHandler struct {
	svc *services.RoleService
}

func NewRoleHandler(svc *services.RoleService) (*RoleHandler, error) {
	if svc == nil {
		return nil, errors.New("ROLE_HANDLER", "role service is required", http.StatusInternalServerError)
	}
	return &RoleHandler{svc: svc}, nil
}

type createRoleRequest struct {
	Name          string   `json:"name" validate:"required,max=64"`
	Description   string   `json:"description" validate:"max=255"`
	PermissionIDs []string `json:"permission_ids" validate:"omitempty,dive,uuid"`
}

type rolePermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids" validate:"required,min=1,dive,uuid"`
}

// GET /api/roles
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.svc.ListRoles(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, roles)
}

// GET /api/roles/:id
func (h *RoleHandler) Get(c *gin.Context) {
	role, err := h.svc.GetRole(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// POST /api/roles
func (h *RoleHandler) Create(c *gin.Context) {
	var body createRoleRequest
	if !bindAndValidate(c, &body) {
		return
	}

	role, err := h.svc.CreateRole(requestContext(c), services.CreateRoleInput{
		Name:          body.Name,
		Description:   body.Description,
		PermissionIDs: body.PermissionIDs,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, role)
}

// POST /api/roles/:id/permissions
func (h *RoleHandler) AddPermissions(c *gin.Context) {
	var body rolePermissionsRequest
	if !bindAndValidate(c, &body) {
		return
	}

	role, err := h.svc.AddRolePermissions(requestContext(c), c.Param("id"), body.PermissionIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// DELETE /api/roles/:id/permissions
func (h *RoleHandler) RemovePermissions(c *gin.Context) {
	var body rolePermissionsRequest
	if !bindAndValidate(c, &body) {
		return
	}

	role, err := h.svc.RemoveRolePermissions(requestContext(c), c.Param("id"), body.PermissionIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// DELETE /api/roles/:id/permissions/all
func (h *RoleHandler) ClearPermissions(c *gin.Context) {
	if err := h.svc.ClearRolePermissions(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"cleared": true})
}

// roleError maps catalog lookups of undefined roles onto the not found response.
func roleError(err error) error {
	if stdErrors.Is(err, permissions.ErrUnknownRole) {
		return services.ErrRoleNotFound
	}
	return err
}
