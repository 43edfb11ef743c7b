package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	require.Equal(t, "failed: boom", err.Error())
	require.ErrorIs(t, err, internal)
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", http.StatusBadRequest)
	with := base.WithInternal(stdErrors.New("oops"))

	require.NotSame(t, base, with)
	require.Nil(t, base.Internal)
	require.NotNil(t, with.Internal)
}

func TestFromError(t *testing.T) {
	require.Same(t, ErrNotFound, FromError(ErrNotFound))
	require.Nil(t, FromError(nil))

	out := FromError(stdErrors.New("raw"))
	require.Equal(t, ErrInternalServer.Code, out.Code)
	require.NotNil(t, out.Internal)
}

func TestConstructorsKeepSentinelCodes(t *testing.T) {
	bad := NewBadRequest("invalid payload")
	require.Equal(t, ErrBadRequest.Code, bad.Code)
	require.Equal(t, "invalid payload", bad.Message)
	require.Equal(t, http.StatusBadRequest, bad.StatusCode)

	missing := NewNotFound("role")
	require.Equal(t, ErrNotFound.Code, missing.Code)
	require.Equal(t, "role not found", missing.Message)

	conflict := NewConflict("role already assigned")
	require.Equal(t, http.StatusConflict, conflict.StatusCode)
}
