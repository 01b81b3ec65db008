package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mkulima/asha/internal/apperr"
	"github.com/mkulima/asha/internal/middleware"
	"github.com/mkulima/asha/internal/models"
	"github.com/mkulima/asha/pkg/utils"
	"github.com/rs/zerolog/log"
)

// maxChatBodyBytes bounds the request body. A 4000-character message in
// multi-byte script plus the envelope fits comfortably.
const maxChatBodyBytes = 64 << 10

// Assistant runs one conversational turn. Implemented by
// assistant.Orchestrator.
type Assistant interface {
	HandleTurn(ctx context.Context, uid string, req models.ChatRequest) (*models.ChatResponse, error)
}

// ChatHandler serves the conversational endpoint.
type ChatHandler struct {
	assistant Assistant
}

// NewChatHandler creates the chat handler.
//
// Example:
//
//	chatHandler := handlers.NewChatHandler(orchestrator)
//	r.With(middleware.Authenticate(verifier)).Post("/asha/chat", chatHandler.Chat)
func NewChatHandler(assistant Assistant) *ChatHandler {
	return &ChatHandler{assistant: assistant}
}

// Chat handles POST /asha/chat.
//
// Request body:
//
//	{"sessionId": "s-1", "message": "any tomatoes near me?", "language": "en",
//	 "clientContext": {"activeFarmId": "farm_1", "cartCount": 2}}
//
// Responses:
//   - 200: models.ChatResponse
//   - 400: malformed JSON or invalid fields
//   - 401: no authenticated caller
//   - 403: session belongs to another user
//   - 500: storage or configuration failure
//
// @Summary      Send a chat message to Asha
// @Description  Runs one conversational turn for the caller's session and returns the reply, UI actions and updated session memory.
// @Tags         assistant
// @Accept       json
// @Produce      json
// @Param        request  body      models.ChatRequest   true  "Chat turn"
// @Success      200      {object}  models.ChatResponse
// @Failure      400      {object}  utils.ErrorResponse  "Invalid JSON body or fields"
// @Failure      401      {object}  utils.ErrorResponse  "Missing or invalid bearer token"
// @Failure      403      {object}  utils.ErrorResponse  "Session belongs to another user"
// @Failure      413      {object}  utils.ErrorResponse  "Request body too large"
// @Failure      429      {object}  utils.ErrorResponse  "Too many requests"
// @Failure      500      {object}  utils.ErrorResponse  "Internal server error"
// @Security     BearerAuth
// @Router       /asha/chat [post]
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.GetUserID(r.Context())
	if !ok {
		utils.RespondWithError(w, r, http.StatusUnauthorized, "Missing bearer token")
		return
	}

	var req models.ChatRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondWithError(w, r, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	resp, err := h.assistant.HandleTurn(r.Context(), uid, req)
	if err != nil {
		status := apperr.HTTPStatus(err)
		event := log.Warn()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.Err(err).
			Str("request_id", utils.GetRequestID(r.Context())).
			Str("uid", uid).
			Str("session_id", req.SessionID).
			Msg("Chat turn failed")

		utils.RespondWithError(w, r, status, apperr.PublicMessage(err))
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, resp)
}
