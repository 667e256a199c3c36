package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsCarryCodeAndStatus(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"invalid coordinates", InvalidCoordinates("bad lat"), CodeInvalidCoordinates, http.StatusBadRequest},
		{"not found", NotFound("missing", cause), CodeNotFound, http.StatusNotFound},
		{"unauthorized", Unauthorized("no"), CodeUnauthorized, http.StatusForbidden},
		{"already resolved", AlreadyResolved("too late"), CodeAlreadyResolved, http.StatusConflict},
		{"transient", Transient("redis down", cause), CodeTransient, http.StatusServiceUnavailable},
		{"bad request", BadRequest("malformed", cause), CodeBadRequest, http.StatusBadRequest},
		{"internal", Internal("oops", cause), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantStatus, tt.err.Status)
		})
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Transient("redis unavailable", cause)

	assert.Contains(t, err.Error(), "redis unavailable")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, cause)
}

func TestHasCode(t *testing.T) {
	err := AlreadyResolved("offer resolved")

	assert.True(t, HasCode(err, CodeAlreadyResolved))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeAlreadyResolved))
	assert.False(t, HasCode(nil, CodeAlreadyResolved))

	wrapped := fmt.Errorf("handling event: %w", err)
	assert.True(t, HasCode(wrapped, CodeAlreadyResolved), "code survives wrapping")
}

func TestGetAppError(t *testing.T) {
	appErr := Unauthorized("nope")
	assert.Equal(t, appErr, GetAppError(appErr))

	fallback := GetAppError(errors.New("plain"))
	require.NotNil(t, fallback)
	assert.Equal(t, CodeInternal, fallback.Code)
}
