package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mkulima/asha/internal/apperr"
	"github.com/mkulima/asha/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockConversationRepository is a mock implementation of ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) GetSession(ctx context.Context, sessionID string) (*models.SessionRecord, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionRecord), args.Error(1)
}

func (m *MockConversationRepository) UpsertSession(ctx context.Context, sessionID, uid string, state models.SessionState) error {
	args := m.Called(ctx, sessionID, uid, state)
	return args.Error(0)
}

func (m *MockConversationRepository) InsertMessage(ctx context.Context, msg models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockConversationRepository) RecentMessages(ctx context.Context, sessionID, uid string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, sessionID, uid, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func TestLoadSession(t *testing.T) {
	ctx := context.Background()
	stored := models.SessionState{
		Language:     models.LanguageSwahili,
		Stage:        models.StageCollectProfile,
		ProfileDraft: models.Profile{Phone: "0712345678"},
	}

	t.Run("owner gets stored state", func(t *testing.T) {
		repo := new(MockConversationRepository)
		repo.On("GetSession", ctx, "sess-1").Return(&models.SessionRecord{SessionID: "sess-1", UID: "uid-a", State: stored}, nil)

		state, err := NewConversationStore(repo).LoadSession(ctx, "sess-1", "uid-a")
		require.NoError(t, err)
		assert.Equal(t, stored, state)
	})

	t.Run("other user is forbidden without content", func(t *testing.T) {
		repo := new(MockConversationRepository)
		repo.On("GetSession", ctx, "sess-1").Return(&models.SessionRecord{SessionID: "sess-1", UID: "uid-a", State: stored}, nil)

		state, err := NewConversationStore(repo).LoadSession(ctx, "sess-1", "uid-b")
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindForbidden))
		assert.Equal(t, models.SessionState{}, state)
	})

	t.Run("unknown session is default", func(t *testing.T) {
		repo := new(MockConversationRepository)
		repo.On("GetSession", ctx, "new").Return(nil, nil)

		state, err := NewConversationStore(repo).LoadSession(ctx, "new", "uid-a")
		require.NoError(t, err)
		assert.Equal(t, models.DefaultSessionState(), state)
	})

	t.Run("storage failure degrades to default", func(t *testing.T) {
		repo := new(MockConversationRepository)
		repo.On("GetSession", ctx, "sess-1").Return(nil, errors.New("connection refused"))

		state, err := NewConversationStore(repo).LoadSession(ctx, "sess-1", "uid-a")
		require.NoError(t, err)
		assert.Equal(t, models.StageChat, state.Stage)
	})
}

func TestSaveSession(t *testing.T) {
	ctx := context.Background()
	state := models.DefaultSessionState()

	t.Run("upserts for owner", func(t *testing.T) {
		repo := new(MockConversationRepository)
		repo.On("GetSession", ctx, "sess-1").Return(&models.SessionRecord{UID: "uid-a"}, nil)
		repo.On("UpsertSession", ctx, "sess-1", "uid-a", state).Return(nil)

		require.NoError(t, NewConversationStore(repo).SaveSession(ctx, "sess-1", "uid-a", state))
		repo.AssertExpectations(t)
	})

	t.Run("creates new session", func(t *testing.T) {
		repo := new(MockConversationRepository)
		repo.On("GetSession", ctx, "sess-2").Return(nil, nil)
		repo.On("UpsertSession", ctx, "sess-2", "uid-a", state).Return(nil)

		require.NoError(t, NewConversationStore(repo).SaveSession(ctx, "sess-2", "uid-a", state))
		repo.AssertExpectations(t)
	})

	t.Run("refuses other owner", func(t *testing.T) {
		repo := new(MockConversationRepository)
		repo.On("GetSession", ctx, "sess-1").Return(&models.SessionRecord{UID: "uid-a"}, nil)

		err := NewConversationStore(repo).SaveSession(ctx, "sess-1", "uid-b", state)
		assert.True(t, apperr.Is(err, apperr.KindForbidden))
		repo.AssertNotCalled(t, "UpsertSession", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAppendMessage(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	repo := new(MockConversationRepository)
	repo.On("InsertMessage", ctx, mock.MatchedBy(func(msg models.Message) bool {
		return msg.ID != "" && msg.SessionID == "sess-1" && msg.Role == models.RoleUser && msg.CreatedAt.Equal(fixed)
	})).Return(errors.New("disk full"))

	store := NewConversationStore(repo)
	store.now = func() time.Time { return fixed }

	assert.NotPanics(t, func() {
		store.AppendMessage(ctx, "sess-1", "uid-a", models.RoleUser, "hello")
	})
	repo.AssertExpectations(t)
}

func TestLoadHistory(t *testing.T) {
	ctx := context.Background()
	newestFirst := []models.Message{{ID: "m3"}, {ID: "m2"}, {ID: "m1"}}

	repo := new(MockConversationRepository)
	repo.On("RecentMessages", ctx, "sess-1", "uid-a", 3).Return(newestFirst, nil)
	repo.On("RecentMessages", ctx, "broken", "uid-a", 3).Return(nil, errors.New("timeout"))

	store := NewConversationStore(repo)

	history := store.LoadHistory(ctx, "sess-1", "uid-a", 3)
	require.Len(t, history, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{history[0].ID, history[1].ID, history[2].ID})

	assert.Empty(t, store.LoadHistory(ctx, "broken", "uid-a", 3))
	assert.Empty(t, store.LoadHistory(ctx, "sess-1", "uid-a", 0))
}
