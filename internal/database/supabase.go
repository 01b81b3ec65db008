package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mkulima/asha/internal/metrics"
	"github.com/mkulima/asha/internal/models"
	"github.com/mkulima/asha/pkg/config"
	"github.com/rs/zerolog/log"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

// SupabaseDB stores sessions, messages and routes through the Supabase
// REST gateway. It expects the same tables as Schema.
//
// The REST client does not take a context, so ctx parameters are accepted
// for interface parity only.
type SupabaseDB struct {
	client *supabase.Client
}

type sessionRow struct {
	SessionID string              `json:"session_id"`
	UID       string              `json:"uid"`
	State     models.SessionState `json:"state"`
	UpdatedAt time.Time           `json:"updated_at"`
}

type messageRow struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UID       string    `json:"uid"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type routeRow struct {
	ID           string     `json:"id"`
	Crop         string     `json:"crop"`
	Origin       string     `json:"origin"`
	Destination  string     `json:"destination"`
	DistanceKm   float64    `json:"distance_km"`
	CostPerKg    float64    `json:"cost_per_kg"`
	Currency     string     `json:"currency"`
	TransitHours float64    `json:"transit_hours"`
	Carrier      string     `json:"carrier"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

// NewSupabaseDB creates a Supabase-backed store.
//
// Example:
//
//	store, err := database.NewSupabaseDB(&cfg.Supabase)
//	if err != nil {
//	    log.Fatal().Err(err).Msg("Supabase client failed")
//	}
func NewSupabaseDB(cfg *config.SupabaseConfig) (*SupabaseDB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if cfg.ServiceKey == "" {
		return nil, fmt.Errorf("supabase service key is required")
	}

	client, err := supabase.NewClient(cfg.URL, cfg.ServiceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("Supabase client ready")
	return &SupabaseDB{client: client}, nil
}

// Close is a no-op; the REST client holds no connections of its own.
func (s *SupabaseDB) Close() error {
	return nil
}

// Ping issues a minimal read to verify the gateway is reachable.
func (s *SupabaseDB) Ping(ctx context.Context) error {
	_, _, err := s.client.From("asha_sessions").
		Select("session_id", "", false).
		Limit(1, "").
		Execute()
	if err != nil {
		return fmt.Errorf("supabase ping failed: %w", err)
	}
	return nil
}

// GetSession returns the stored session row, or nil when none exists.
func (s *SupabaseDB) GetSession(ctx context.Context, sessionID string) (*models.SessionRecord, error) {
	start := time.Now()
	var rows []sessionRow
	_, err := s.client.From("asha_sessions").
		Select("session_id,uid,state,updated_at", "", false).
		Eq("session_id", sessionID).
		Limit(1, "").
		ExecuteTo(&rows)
	metrics.RecordDBQuery("supabase", "SELECT", metrics.Status(err), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	return &models.SessionRecord{
		SessionID: row.SessionID,
		UID:       row.UID,
		State:     row.State,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

// UpsertSession inserts or replaces the session row keyed by session_id.
// Unlike PostgresDB there is no conditional update, so the ownership check
// done by the caller is the only guard.
func (s *SupabaseDB) UpsertSession(ctx context.Context, sessionID, uid string, state models.SessionState) error {
	start := time.Now()
	row := sessionRow{SessionID: sessionID, UID: uid, State: state, UpdatedAt: time.Now().UTC()}
	_, _, err := s.client.From("asha_sessions").
		Upsert(row, "session_id", "minimal", "").
		Execute()
	metrics.RecordDBQuery("supabase", "UPSERT", metrics.Status(err), time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

// InsertMessage appends one message to the history table.
func (s *SupabaseDB) InsertMessage(ctx context.Context, msg models.Message) error {
	start := time.Now()
	row := messageRow{
		ID:        msg.ID,
		SessionID: msg.SessionID,
		UID:       msg.UID,
		Role:      string(msg.Role),
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt,
	}
	_, _, err := s.client.From("asha_messages").
		Insert(row, false, "", "minimal", "").
		Execute()
	metrics.RecordDBQuery("supabase", "INSERT", metrics.Status(err), time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit messages of a session, newest first.
func (s *SupabaseDB) RecentMessages(ctx context.Context, sessionID, uid string, limit int) ([]models.Message, error) {
	start := time.Now()
	var rows []messageRow
	_, err := s.client.From("asha_messages").
		Select("id,session_id,uid,role,text,created_at", "", false).
		Eq("session_id", sessionID).
		Eq("uid", uid).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		ExecuteTo(&rows)
	metrics.RecordDBQuery("supabase", "SELECT", metrics.Status(err), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	messages := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, models.Message{
			ID:        row.ID,
			SessionID: row.SessionID,
			UID:       row.UID,
			Role:      models.Role(row.Role),
			Text:      row.Text,
			CreatedAt: row.CreatedAt,
		})
	}
	return messages, nil
}

// FindRoute looks up a route by case-insensitive exact match. ILIKE
// wildcards in the inputs are escaped so they match literally.
func (s *SupabaseDB) FindRoute(ctx context.Context, crop, origin, destination string) (*models.Route, error) {
	start := time.Now()
	var rows []routeRow
	_, err := s.client.From("logistics_routes").
		Select("*", "", false).
		Ilike("crop", escapeLike(crop)).
		Ilike("origin", escapeLike(origin)).
		Ilike("destination", escapeLike(destination)).
		Limit(1, "").
		ExecuteTo(&rows)
	metrics.RecordDBQuery("supabase", "SELECT", metrics.Status(err), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to find route: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	return &models.Route{
		ID:           row.ID,
		Crop:         row.Crop,
		Origin:       row.Origin,
		Destination:  row.Destination,
		DistanceKm:   row.DistanceKm,
		CostPerKg:    row.CostPerKg,
		Currency:     row.Currency,
		TransitHours: row.TransitHours,
		Carrier:      row.Carrier,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
