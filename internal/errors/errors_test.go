package errors

import (
	goerrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTypes_HTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		status int
	}{
		{"validation", ValidationError("bad input"), http.StatusBadRequest},
		{"not found", NotFoundError("missing"), http.StatusNotFound},
		{"too many requests", TooManyRequestsError("slow down"), http.StatusTooManyRequests},
		{"unavailable", UnavailableError("at capacity"), http.StatusServiceUnavailable},
		{"internal", InternalError("boom", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
		})
	}
}

func TestError_UnwrapSupportsErrorsIs(t *testing.T) {
	cause := goerrors.New("connection refused")
	err := InternalError("backend failed", cause)

	assert.True(t, goerrors.Is(err, cause))
	assert.Contains(t, err.Error(), "backend failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestError_WithContext(t *testing.T) {
	err := TooManyRequestsError("rate limited").
		WithContext("remote_addr", "10.0.0.1").
		WithContext("limit", 10)

	assert.Equal(t, "10.0.0.1", err.Context["remote_addr"])
	assert.Equal(t, 10, err.Context["limit"])
}

func TestToResponse_HidesCause(t *testing.T) {
	err := InternalError("db write failed", goerrors.New("secret dsn in here"))
	resp := err.ToResponse()

	assert.Equal(t, "internal", resp.Error)
	assert.Equal(t, "db write failed", resp.Message)
}

func TestAsStructuredError(t *testing.T) {
	structured := ValidationError("bad")
	assert.Same(t, structured, AsStructuredError(structured))

	plain := goerrors.New("plain")
	converted := AsStructuredError(plain)
	require.NotNil(t, converted)
	assert.Equal(t, TypeInternal, converted.Type)
	assert.True(t, goerrors.Is(converted, plain))
}
