package errors_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/jrsteele09/go-medapp/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		kind   error
	}{
		{http.StatusUnauthorized, errors.ErrAuth},
		{http.StatusBadRequest, errors.ErrValidation},
		{http.StatusForbidden, errors.ErrValidation},
		{http.StatusNotFound, errors.ErrValidation},
		{http.StatusUnprocessableEntity, errors.ErrValidation},
		{http.StatusInternalServerError, errors.ErrServer},
		{http.StatusBadGateway, errors.ErrServer},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := errors.NewAPIError(tt.status, "", nil)
			require.ErrorIs(t, err, tt.kind)
			require.Equal(t, tt.status, errors.StatusCode(err))
		})
	}
}

func TestAPIError_Message(t *testing.T) {
	err := errors.NewAPIError(http.StatusBadRequest, "invalid payload", map[string]string{"email": "required"})
	require.Contains(t, err.Error(), "invalid payload")
	require.Contains(t, err.Error(), "email: required")

	err = errors.NewAPIError(http.StatusNotFound, "", nil)
	require.Contains(t, err.Error(), "not found")
}

func TestNetworkError(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := &errors.NetworkError{Op: "GET /auth/me", Err: cause}

	require.ErrorIs(t, err, errors.ErrNetwork)
	require.ErrorIs(t, err, cause)
	require.Zero(t, errors.StatusCode(err))
}

func TestWrapf(t *testing.T) {
	require.NoError(t, errors.Wrapf(nil, "nothing"))

	err := errors.Wrapf(errors.ErrServer, "load %s", "videos")
	require.ErrorIs(t, err, errors.ErrServer)
	require.Equal(t, "load videos: server error", err.Error())
}
