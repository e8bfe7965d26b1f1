package store

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// Dispatch is one row of the dispatch audit log: a record of a single
// forwarding attempt. It deliberately carries no PII — not even hashed —
// only the event's business attributes and its outcome.
type Dispatch struct {
	ID         uuid.UUID `json:"id"`
	Source     string    `json:"source"` // "webhook" | "forward" | "test"
	EventID    string    `json:"event_id"`
	EventName  string    `json:"event_name"`
	Value      float64   `json:"value"`
	Currency   string    `json:"currency"`
	Skipped    bool      `json:"skipped"`
	StatusCode int       `json:"status_code"`
	Outcome    string    `json:"outcome"`
	CreatedAt  time.Time `json:"created_at"`
}

// PostgresStore persists the dispatch audit log. The store is optional at
// the service level: the forwarding path must keep working when no database
// is configured.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema() error {
	_, err := p.pool.Exec(context.Background(), schemaSQL)
	return err
}

// Ping is used by the readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// InsertDispatch appends one attempt to the audit log. Unlike an event
// store there is no uniqueness constraint: the same event_id may legally
// appear once per attempt.
func (p *PostgresStore) InsertDispatch(ctx context.Context, d Dispatch) error {
	if d.Source == "" {
		return errors.New("source required")
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO dispatch_log(id, source, event_id, event_name, value, currency, skipped, status_code, outcome)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, d.ID, d.Source, d.EventID, d.EventName, d.Value, d.Currency, d.Skipped, d.StatusCode, d.Outcome)

	return err
}

// RecentDispatches returns the newest attempts, most recent first.
func (p *PostgresStore) RecentDispatches(ctx context.Context, limit int) ([]Dispatch, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, source, event_id, event_name, value, currency, skipped, status_code, outcome, created_at
		FROM dispatch_log
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Dispatch
	for rows.Next() {
		var d Dispatch
		if err := rows.Scan(
			&d.ID, &d.Source, &d.EventID, &d.EventName, &d.Value,
			&d.Currency, &d.Skipped, &d.StatusCode, &d.Outcome, &d.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	return out, rows.Err()
}
