package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/storefront/storefront/pkg/response"
	appValidator "github.com/storefront/storefront/pkg/validator"
)

func bindRequest(t *testing.T, body string, dest any) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var ok bool
	switch d := dest.(type) {
	case *authorizeRequest:
		ok = bindAndValidate(c, d)
	case *rolePermissionsRequest:
		ok = bindAndValidate(c, d)
	default:
		t.Fatalf("unsupported request type %T", dest)
	}
	return w, ok
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var payload response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.NotNil(t, payload.Error)
	return payload.Error.Message
}

func TestBindAndValidateAuthorizeRequest(t *testing.T) {
	var body authorizeRequest
	_, ok := bindRequest(t, `{"action":"read","resource":"order","owner_id":"u1"}`, &body)
	require.True(t, ok)
	require.Equal(t, "u1", body.OwnerID)

	w, ok := bindRequest(t, `{"action":"fly","resource":"spaceship"}`, &authorizeRequest{})
	require.False(t, ok)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "action is not a known action; resource is not a known resource", errorMessage(t, w))

	w, ok = bindRequest(t, `{"resource":"order"}`, &authorizeRequest{})
	require.False(t, ok)
	require.Equal(t, "action is required", errorMessage(t, w))

	w, ok = bindRequest(t, `{not json`, &authorizeRequest{})
	require.False(t, ok)
	require.Equal(t, "invalid JSON payload", errorMessage(t, w))
}

func TestBindAndValidateRolePermissions(t *testing.T) {
	w, ok := bindRequest(t, `{"permission_ids":[]}`, &rolePermissionsRequest{})
	require.False(t, ok)
	require.Equal(t, "permission ids must contain at least 1 item(s)", errorMessage(t, w))

	w, ok = bindRequest(t, `{"permission_ids":["nope"]}`, &rolePermissionsRequest{})
	require.False(t, ok)
	require.Equal(t, "permission ids[0] must be a valid UUID", errorMessage(t, w))
}

func TestFormatValidationErrorFallbacks(t *testing.T) {
	require.Equal(t, "invalid request payload", formatValidationError(nil))
	require.Equal(t, "invalid request payload", formatValidationError(appValidator.ValidationErrors{}))
	require.Equal(t, "name failed validation: oneof=a b", formatValidationError(appValidator.ValidationErrors{
		{Field: "req.name", Tag: "oneof", Param: "a b"},
	}))
}
