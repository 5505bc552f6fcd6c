package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceError_Error(t *testing.T) {
	err := Wrap("storage", "put object", errors.New("disk full"))
	assert.Contains(t, err.Error(), "storage")
	assert.Contains(t, err.Error(), "put object")
	assert.Contains(t, err.Error(), "disk full")
}

func TestServiceError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := Wrap("embedding", "", inner)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "embedding: connection refused", err.Error())

	var se *ServiceError
	assert.True(t, As(err, &se))
	assert.Equal(t, "embedding", se.Service)
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap("db", "query", nil))
}

func TestInvalid(t *testing.T) {
	err := Invalid("name %q is empty", "x")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), `"x"`)
}

func TestValidationResult(t *testing.T) {
	assert.True(t, Valid().Valid)
	r := Rejected("file too large: %d bytes", 42)
	assert.False(t, r.Valid)
	assert.Equal(t, "file too large: 42 bytes", r.Error)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrNotAuthenticated, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{Wrap("db", "get", ErrNotFound), http.StatusNotFound},
		{Invalid("bad"), http.StatusBadRequest},
		{ErrConflict, http.StatusConflict},
		{ErrUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "err=%v", tt.err)
	}
}
