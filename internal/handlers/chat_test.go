package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mkulima/asha/internal/apperr"
	"github.com/mkulima/asha/internal/middleware"
	"github.com/mkulima/asha/internal/models"
	"github.com/mkulima/asha/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAssistant struct {
	resp *models.ChatResponse
	err  error

	calls int
	uid   string
	req   models.ChatRequest
}

func (s *stubAssistant) HandleTurn(_ context.Context, uid string, req models.ChatRequest) (*models.ChatResponse, error) {
	s.calls++
	s.uid = uid
	s.req = req
	return s.resp, s.err
}

func serveChat(t *testing.T, h *ChatHandler, body any, uid string) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.MakeRequest(t, http.MethodPost, "/asha/chat", body)
	if uid != "" {
		req = req.WithContext(middleware.WithUserID(req.Context(), uid))
	}
	rec := httptest.NewRecorder()
	h.Chat(rec, req)
	return rec
}

func TestChat(t *testing.T) {
	t.Run("successful turn", func(t *testing.T) {
		assistant := &stubAssistant{resp: &models.ChatResponse{
			OK:      true,
			Reply:   "I found Fresh tomatoes (Nakuru). Opening it for you.",
			Intent:  models.IntentMarketplace,
			Actions: []models.Action{},
			Memory:  models.DefaultSessionState(),
		}}
		handler := NewChatHandler(assistant)

		rec := serveChat(t, handler, map[string]any{
			"sessionId":     "s-1",
			"message":       "tomatoes please",
			"language":      "en",
			"clientContext": map[string]any{"cartCount": 2, "activeFarmId": "farm_1"},
		}, testutil.TestUID)

		testutil.AssertStatusCode(t, rec, http.StatusOK)
		var body map[string]any
		testutil.ParseJSONResponse(t, rec, &body)
		assert.Equal(t, true, body["ok"])
		assert.Equal(t, "marketplace", body["intent"])
		assert.Contains(t, body, "uiHint")

		require.Equal(t, 1, assistant.calls)
		assert.Equal(t, testutil.TestUID, assistant.uid)
		assert.Equal(t, "s-1", assistant.req.SessionID)
		require.NotNil(t, assistant.req.ClientContext.CartCount)
		assert.Equal(t, 2, *assistant.req.ClientContext.CartCount)
		assert.Equal(t, "farm_1", assistant.req.ClientContext.ActiveFarmID)
	})

	t.Run("invalid JSON answers 400", func(t *testing.T) {
		assistant := &stubAssistant{}
		rec := serveChat(t, NewChatHandler(assistant), `{"sessionId": `, testutil.TestUID)

		testutil.AssertStatusCode(t, rec, http.StatusBadRequest)
		testutil.AssertErrorBody(t, rec, "Invalid JSON body")
		assert.Zero(t, assistant.calls)
	})

	t.Run("missing caller answers 401", func(t *testing.T) {
		assistant := &stubAssistant{}
		rec := serveChat(t, NewChatHandler(assistant), map[string]any{"sessionId": "s", "message": "hi"}, "")

		testutil.AssertStatusCode(t, rec, http.StatusUnauthorized)
		assert.Zero(t, assistant.calls)
	})

	t.Run("oversized body answers 413", func(t *testing.T) {
		big := `{"sessionId":"s","message":"` + strings.Repeat("a", maxChatBodyBytes) + `"}`
		rec := serveChat(t, NewChatHandler(&stubAssistant{}), big, testutil.TestUID)

		testutil.AssertStatusCode(t, rec, http.StatusRequestEntityTooLarge)
	})

	errorCases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", apperr.Validation("message is required"), http.StatusBadRequest, "message is required"},
		{"forbidden session", apperr.Forbidden("Session belongs to another user"), http.StatusForbidden, "Session belongs to another user"},
		{"configuration", apperr.Configuration("service account credential is not configured", nil), http.StatusInternalServerError, "service account credential is not configured"},
		{"upstream not found", apperr.Upstream("document not found", http.StatusNotFound, ""), http.StatusNotFound, "document not found"},
		{"unexpected", errors.New("pq: connection reset"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serveChat(t, NewChatHandler(&stubAssistant{err: tc.err}), map[string]any{"sessionId": "s", "message": "hi"}, testutil.TestUID)

			testutil.AssertStatusCode(t, rec, tc.status)
			testutil.AssertErrorBody(t, rec, tc.message)
		})
	}
}
