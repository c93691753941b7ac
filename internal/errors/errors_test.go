package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaxonomyStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
	}{
		{"validation", Validation("Invalid input", "bad"), http.StatusBadRequest},
		{"authentication", Authentication("Access denied", "no token"), http.StatusUnauthorized},
		{"authorization", Authorization("Forbidden", "nope"), http.StatusForbidden},
		{"locked", Locked("later"), http.StatusLocked},
		{"not found", NotFound("Missing", "gone"), http.StatusNotFound},
		{"conflict", Conflict("User already exists", "dup"), http.StatusBadRequest},
		{"upstream", Upstream("Mono unavailable", stderrors.New("boom")), http.StatusInternalServerError},
		{"internal", Internal("Failed", stderrors.New("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
		})
	}
}

func TestWithFieldDoesNotMutateSentinel(t *testing.T) {
	withField := ErrInvalidCredentials.WithField("passcode")

	assert.Equal(t, "passcode", withField.Field)
	assert.Empty(t, ErrInvalidCredentials.Field)
}

func TestAsUnwrapsChain(t *testing.T) {
	cause := stderrors.New("dial tcp: refused")
	wrapped := fmt.Errorf("linking: %w", Upstream("Mono unavailable", cause))

	appErr, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, CodeUpstream, appErr.Code)
	assert.ErrorIs(t, wrapped, cause)

	_, ok = As(cause)
	assert.False(t, ok)
}
