package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation", Validation("message is required"), http.StatusBadRequest},
		{"unauthenticated", Unauthenticated("invalid token", nil), http.StatusUnauthorized},
		{"forbidden", Forbidden("session belongs to another user"), http.StatusForbidden},
		{"not found", NotFound("route not found"), http.StatusNotFound},
		{"configuration", Configuration("missing project id", nil), http.StatusInternalServerError},
		{"upstream 404", Upstream("document missing", http.StatusNotFound, ""), http.StatusNotFound},
		{"upstream 503", Upstream("unavailable", http.StatusServiceUnavailable, ""), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("load: %w", Forbidden("nope")), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestKindOf(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := fmt.Errorf("mint: %w", Configuration("bad credential", cause))

	assert.Equal(t, KindConfiguration, KindOf(err))
	assert.True(t, Is(err, KindConfiguration))
	assert.False(t, Is(nil, KindConfiguration))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindInternal, KindOf(errors.New("x")))
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "sessionId is required", PublicMessage(Validation("sessionId is required")))
	assert.Equal(t, "Internal server error", PublicMessage(Internal("db exploded", errors.New("secret detail"))))
	assert.Equal(t, "Internal server error", PublicMessage(errors.New("raw")))
	assert.Equal(t, "configuration", KindConfiguration.String())
}
