package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mkulima/asha/internal/apperr"
	"github.com/mkulima/asha/internal/models"
	"github.com/rs/zerolog/log"
)

// ConversationRepository defines the relational operations behind the
// conversation store. Implemented by database.PostgresDB and
// database.SupabaseDB.
type ConversationRepository interface {
	GetSession(ctx context.Context, sessionID string) (*models.SessionRecord, error)
	UpsertSession(ctx context.Context, sessionID, uid string, state models.SessionState) error
	InsertMessage(ctx context.Context, msg models.Message) error
	RecentMessages(ctx context.Context, sessionID, uid string, limit int) ([]models.Message, error)
}

// RouteRepository looks up logistics routes.
type RouteRepository interface {
	FindRoute(ctx context.Context, crop, origin, destination string) (*models.Route, error)
}

// ConversationStore keeps ownership-scoped dialogue state and message
// history. A session row is keyed by session id alone and belongs to the
// uid that first saved it; any other caller gets a Forbidden error and no
// content from the row.
//
// Persistence is best-effort where the reply does not depend on it: load
// failures degrade to a fresh state and message appends never fail a turn.
type ConversationStore struct {
	repo ConversationRepository
	now  func() time.Time
}

// NewConversationStore creates a conversation store over repo.
//
// Example:
//
//	store := services.NewConversationStore(postgresDB)
//	state, err := store.LoadSession(ctx, req.SessionID, uid)
func NewConversationStore(repo ConversationRepository) *ConversationStore {
	return &ConversationStore{repo: repo, now: time.Now}
}

// LoadSession returns the stored state for (sessionID, uid).
//
// Behavior:
//   - Unknown session: default state
//   - Session owned by another uid: Forbidden
//   - Any other storage failure: default state, logged
func (s *ConversationStore) LoadSession(ctx context.Context, sessionID, uid string) (models.SessionState, error) {
	record, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		log.Warn().
			Err(err).
			Str("session_id", sessionID).
			Msg("Failed to load session, starting fresh")
		return models.DefaultSessionState(), nil
	}
	if record == nil {
		return models.DefaultSessionState(), nil
	}
	if record.UID != uid {
		log.Warn().
			Str("session_id", sessionID).
			Str("uid", uid).
			Msg("Session belongs to another user")
		return models.SessionState{}, apperr.Forbidden("Session belongs to another user")
	}
	return record.State.Normalize(), nil
}

// SaveSession upserts the session state. The ownership check and the write
// are two separate round-trips, so two concurrent turns on one session may
// interleave; the last write wins.
func (s *ConversationStore) SaveSession(ctx context.Context, sessionID, uid string, state models.SessionState) error {
	record, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to check session owner: %w", err)
	}
	if record != nil && record.UID != uid {
		return apperr.Forbidden("Session belongs to another user")
	}

	if err := s.repo.UpsertSession(ctx, sessionID, uid, state); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// AppendMessage records one message. Failures are logged and swallowed.
func (s *ConversationStore) AppendMessage(ctx context.Context, sessionID, uid string, role models.Role, text string) {
	msg := models.Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		UID:       uid,
		Role:      role,
		Text:      text,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.InsertMessage(ctx, msg); err != nil {
		log.Warn().
			Err(err).
			Str("session_id", sessionID).
			Str("role", string(role)).
			Msg("Failed to append message")
	}
}

// LoadHistory returns the most recent limit messages, oldest first. Errors
// yield an empty history.
func (s *ConversationStore) LoadHistory(ctx context.Context, sessionID, uid string, limit int) []models.Message {
	if limit <= 0 {
		return nil
	}
	messages, err := s.repo.RecentMessages(ctx, sessionID, uid, limit)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to load history")
		return nil
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages
}
