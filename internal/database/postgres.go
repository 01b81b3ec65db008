// Package database provides the relational store for dialogue sessions,
// message history and logistics routes, plus the Redis connection used for
// caching and rate limiting.
//
// Two relational drivers implement the same methods: PostgresDB talks to
// PostgreSQL directly through database/sql, SupabaseDB goes through the
// Supabase REST gateway. The driver is chosen by STORE_DRIVER at start-up.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mkulima/asha/internal/apperr"
	"github.com/mkulima/asha/internal/metrics"
	"github.com/mkulima/asha/internal/models"
	"github.com/mkulima/asha/pkg/config"
	"github.com/mkulima/asha/pkg/utils"
	"github.com/rs/zerolog/log"
)

// Schema creates the tables used by PostgresDB. It is idempotent and is
// applied by RunMigrations at start-up.
const Schema = `
CREATE TABLE IF NOT EXISTS asha_sessions (
	session_id TEXT PRIMARY KEY,
	uid        TEXT NOT NULL,
	state      JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS asha_messages (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	uid        TEXT NOT NULL,
	role       TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
	text       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS asha_messages_session_created_idx ON asha_messages (session_id, uid, created_at DESC);

CREATE TABLE IF NOT EXISTS logistics_routes (
	id            TEXT PRIMARY KEY,
	crop          TEXT NOT NULL,
	origin        TEXT NOT NULL,
	destination   TEXT NOT NULL,
	distance_km   DOUBLE PRECISION NOT NULL DEFAULT 0,
	cost_per_kg   DOUBLE PRECISION NOT NULL DEFAULT 0,
	currency      TEXT NOT NULL DEFAULT 'KES',
	transit_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
	carrier       TEXT NOT NULL DEFAULT '',
	updated_at    TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS logistics_routes_lookup_idx ON logistics_routes (LOWER(crop), LOWER(origin), LOWER(destination));
`

// PostgresDB wraps a PostgreSQL connection pool.
//
// Features:
//   - Automatic connection retry with exponential backoff
//   - Connection pooling (configurable max connections)
//   - Query metrics for every statement
//   - Health check support
type PostgresDB struct {
	db *sql.DB // Underlying connection pool
}

// NewPostgresDB creates a new PostgreSQL connection with automatic retry.
// Implements exponential backoff retry logic to handle transient connection
// failures during startup (e.g., database container not ready yet).
//
// Connection pool settings:
//   - MaxOpenConns: From configuration (default: 25)
//   - MaxIdleConns: Half of MaxOpenConns
//   - ConnMaxLifetime: 1 hour
//
// Retry configuration:
//   - Max attempts: 5
//   - Initial delay: 100ms
//   - Max delay: 3 seconds
//   - Total timeout: 30 seconds
//
// Example:
//
//	db, err := database.NewPostgresDB(&cfg.Database)
//	if err != nil {
//	    log.Fatal().Err(err).Msg("Database connection failed")
//	}
//	defer db.Close()
func NewPostgresDB(cfg *config.DatabaseConfig) (*PostgresDB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns / 2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = utils.Retry(ctx, utils.ConnectBackoff(), "postgres connect", func(ctx context.Context, attempt int) error {
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		defer pingCancel()
		return classifyConnectError(db.PingContext(pingCtx))
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Successfully connected to PostgreSQL")

	return &PostgresDB{db: db}, nil
}

// classifyConnectError stops connection retries on rejected credentials
// (SQLSTATE class 28) and unknown databases (3D000).
func classifyConnectError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && (pqErr.Code.Class() == "28" || pqErr.Code == "3D000") {
		return utils.Permanent(err)
	}
	return err
}

// NewPostgresDBFromConn wraps an already opened pool. Used by tests with
// go-sqlmock and by callers that manage the pool themselves.
func NewPostgresDBFromConn(db *sql.DB) *PostgresDB {
	return &PostgresDB{db: db}
}

// Close closes the database connection and releases all resources.
func (p *PostgresDB) Close() error {
	return p.db.Close()
}

// Ping checks if the database connection is alive.
// Used by the readiness endpoint.
func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// RunMigrations executes migration SQL against the database.
//
// Example:
//
//	if err := db.RunMigrations(ctx, database.Schema); err != nil {
//	    log.Fatal().Err(err).Msg("Migration failed")
//	}
func (p *PostgresDB) RunMigrations(ctx context.Context, migrationSQL string) error {
	start := time.Now()
	_, err := p.db.ExecContext(ctx, migrationSQL)
	metrics.RecordDBQuery("postgres", "MIGRATE", metrics.Status(err), time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info().Msg("Database migrations applied")
	return nil
}

// GetSession returns the stored session row for sessionID, or nil when the
// session has never been saved. Ownership is checked by the caller.
func (p *PostgresDB) GetSession(ctx context.Context, sessionID string) (*models.SessionRecord, error) {
	query := `
		SELECT session_id, uid, state, updated_at
		FROM asha_sessions
		WHERE session_id = $1
	`

	start := time.Now()
	var record models.SessionRecord
	var state []byte
	err := p.db.QueryRowContext(ctx, query, sessionID).Scan(
		&record.SessionID,
		&record.UID,
		&state,
		&record.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("postgres", "SELECT", "success", time.Since(start))
		return nil, nil
	}
	metrics.RecordDBQuery("postgres", "SELECT", metrics.Status(err), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := json.Unmarshal(state, &record.State); err != nil {
		return nil, fmt.Errorf("failed to decode session state: %w", err)
	}
	return &record, nil
}

// UpsertSession inserts or updates the session row keyed by sessionID.
// The update only applies when the stored uid matches, so a row owned by
// someone else is never overwritten even if the caller skipped the check.
// That case affects no rows and returns a Forbidden error.
func (p *PostgresDB) UpsertSession(ctx context.Context, sessionID, uid string, state models.SessionState) error {
	query := `
		INSERT INTO asha_sessions (session_id, uid, state, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (session_id)
		DO UPDATE SET
			state = EXCLUDED.state,
			updated_at = NOW()
		WHERE asha_sessions.uid = EXCLUDED.uid
	`

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session state: %w", err)
	}

	start := time.Now()
	result, err := p.db.ExecContext(ctx, query, sessionID, uid, data)
	metrics.RecordDBQuery("postgres", "UPSERT", metrics.Status(err), time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check upserted session: %w", err)
	}
	if affected == 0 {
		return apperr.Forbidden("Session belongs to another user")
	}
	return nil
}

// InsertMessage appends one message to the history table.
func (p *PostgresDB) InsertMessage(ctx context.Context, msg models.Message) error {
	query := `
		INSERT INTO asha_messages (id, session_id, uid, role, text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	start := time.Now()
	_, err := p.db.ExecContext(ctx, query, msg.ID, msg.SessionID, msg.UID, string(msg.Role), msg.Text, msg.CreatedAt)
	metrics.RecordDBQuery("postgres", "INSERT", metrics.Status(err), time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit messages of a session, newest first.
func (p *PostgresDB) RecentMessages(ctx context.Context, sessionID, uid string, limit int) ([]models.Message, error) {
	query := `
		SELECT id, session_id, uid, role, text, created_at
		FROM asha_messages
		WHERE session_id = $1 AND uid = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	start := time.Now()
	rows, err := p.db.QueryContext(ctx, query, sessionID, uid, limit)
	if err != nil {
		metrics.RecordDBQuery("postgres", "SELECT", "error", time.Since(start))
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		var role string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.UID, &role, &msg.Text, &msg.CreatedAt); err != nil {
			metrics.RecordDBQuery("postgres", "SELECT", "error", time.Since(start))
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = models.Role(role)
		messages = append(messages, msg)
	}
	err = rows.Err()
	metrics.RecordDBQuery("postgres", "SELECT", metrics.Status(err), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return messages, nil
}

// FindRoute looks up a logistics route by case-insensitive exact match on
// crop, origin and destination. Returns nil when no route matches.
func (p *PostgresDB) FindRoute(ctx context.Context, crop, origin, destination string) (*models.Route, error) {
	query := `
		SELECT id, crop, origin, destination, distance_km, cost_per_kg, currency, transit_hours, carrier, updated_at
		FROM logistics_routes
		WHERE LOWER(crop) = LOWER($1) AND LOWER(origin) = LOWER($2) AND LOWER(destination) = LOWER($3)
		LIMIT 1
	`

	start := time.Now()
	var route models.Route
	var updatedAt sql.NullTime
	err := p.db.QueryRowContext(ctx, query, crop, origin, destination).Scan(
		&route.ID,
		&route.Crop,
		&route.Origin,
		&route.Destination,
		&route.DistanceKm,
		&route.CostPerKg,
		&route.Currency,
		&route.TransitHours,
		&route.Carrier,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("postgres", "SELECT", "success", time.Since(start))
		return nil, nil
	}
	metrics.RecordDBQuery("postgres", "SELECT", metrics.Status(err), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to find route: %w", err)
	}
	if updatedAt.Valid {
		route.UpdatedAt = &updatedAt.Time
	}
	return &route, nil
}
