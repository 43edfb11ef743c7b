package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/storefront/storefront/internal/models"
	"github.com/storefront/storefront/internal/permissions"
	"github.com/storefront/storefront/internal/services"
	"github.com/storefront/storefront/pkg/errors"
	"github.com/storefront/storefront/pkg/response"
)

type PermissionHandler struct {
	svc *services.PermissionService
}

func NewPermissionHandler(svc *services.PermissionService) (*PermissionHandler, error) {
	if svc == nil {
		return nil, errors.New("PERMISSION_HANDLER", "permission service is required", http.StatusInternalServerError)
	}
	return &PermissionHandler{svc: svc}, nil
}

type createPermissionRequest struct {
	Name        string              `json:"name" validate:"max=128"`
	Description string              `json:"description" validate:"max=255"`
	Action      models.Action       `json:"action" validate:"required,permission_action"`
	Resource    models.ResourceType `json:"resource" validate:"required,permission_resource"`
	Conditions  *models.Conditions  `json:"conditions"`
}

// GET /api/permissions/my
func (h *PermissionHandler) MyPermissions(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	perms, err := h.svc.ListUserPermissions(requestContext(c), principal.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perms)
}

// GET /api/permissions/catalog
func (h *PermissionHandler) Catalog(c *gin.Context) {
	response.Success(c, http.StatusOK, h.svc.Catalog())
}

// GET /api/permissions?resource=
func (h *PermissionHandler) List(c *gin.Context) {
	resource := models.ResourceType(strings.TrimSpace(c.Query("resource")))
	if resource != "" && !resource.Valid() {
		response.Error(c, errors.NewBadRequest("resource is not a known resource"))
		return
	}

	perms, err := h.svc.ListPermissions(requestContext(c), resource)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perms)
}

// POST /api/permissions
func (h *PermissionHandler) Create(c *gin.Context) {
	var body createPermissionRequest
	if !bindAndValidate(c, &body) {
		return
	}

	perm, err := h.svc.CreatePermission(requestContext(c), services.CreatePermissionInput{
		Name:        body.Name,
		Description: body.Description,
		Action:      body.Action,
		Resource:    body.Resource,
		Conditions:  body.Conditions,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, perm)
}

// AuthorizeHandler answers authorization questions for services that own the CRUD surface.
type AuthorizeHandler struct {
	checker *permissions.Checker
}

func NewAuthorizeHandler(checker *permissions.Checker) (*AuthorizeHandler, error) {
	if checker == nil {
		return nil, errors.New("AUTHORIZE_HANDLER", "permission checker is required", http.StatusInternalServerError)
	}
	return &AuthorizeHandler{checker: checker}, nil
}

type authorizeRequest struct {
	Action     models.Action       `json:"action" validate:"required,permission_action"`
	Resource   models.ResourceType `json:"resource" validate:"required,permission_resource"`
	OwnerID    string              `json:"owner_id"`
	Status     string              `json:"status"`
	Department string              `json:"department"`
}

type authorizeResponse struct {
	Allowed bool `json:"allowed"`
}

// POST /api/authorize
func (h *AuthorizeHandler) Authorize(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var body authorizeRequest
	if !bindAndValidate(c, &body) {
		return
	}

	var rc *permissions.ResourceContext
	if body.OwnerID != "" || body.Status != "" || body.Department != "" {
		rc = &permissions.ResourceContext{
			OwnerID:    strings.TrimSpace(body.OwnerID),
			Status:     strings.TrimSpace(body.Status),
			Department: strings.TrimSpace(body.Department),
		}
	}

	decision, err := h.checker.Decide(requestContext(c), principal, permissions.Can(body.Action, body.Resource), rc)
	if err != nil {
		response.Error(c, errors.ErrAuthorizationUnavailable.WithInternal(err))
		return
	}
	response.Success(c, http.StatusOK, authorizeResponse{Allowed: decision.Allowed})
}
