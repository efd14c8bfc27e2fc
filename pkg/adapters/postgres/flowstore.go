// Package postgres persists flow definitions in PostgreSQL, implementing
// the FlowStore port. Definitions are stored as JSONB so the schema never
// chases the flow format.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parleyflow/parley/pkg/domain"
)

// Schema is the DDL the store expects. Exposed so operators can apply it
// with their migration tooling of choice.
const Schema = `
CREATE TABLE IF NOT EXISTS flows (
	id         TEXT PRIMARY KEY,
	definition JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// FlowStore implements ports.FlowStore on a pgx pool.
type FlowStore struct {
	pool *pgxpool.Pool
}

// NewPool parses the DSN and connects, verifying with a ping.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// NewFlowStore wraps an existing pool.
func NewFlowStore(pool *pgxpool.Pool) *FlowStore {
	return &FlowStore{pool: pool}
}

// Init applies the schema.
func (s *FlowStore) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("applying flows schema: %w", err)
	}
	return nil
}

// Put upserts the definition.
func (s *FlowStore) Put(ctx context.Context, def *domain.FlowDefinition) error {
	raw, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encoding flow %q: %w", def.ID, err)
	}

	query := `
		INSERT INTO flows (id, definition, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET definition = EXCLUDED.definition, updated_at = now()
	`
	if _, err := s.pool.Exec(ctx, query, def.ID, raw); err != nil {
		return fmt.Errorf("upserting flow %q: %w", def.ID, err)
	}
	return nil
}

// Get loads and decodes the definition.
func (s *FlowStore) Get(ctx context.Context, flowID string) (*domain.FlowDefinition, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT definition FROM flows WHERE id = $1`, flowID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrFlowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading flow %q: %w", flowID, err)
	}

	var def domain.FlowDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("decoding flow %q: %w", flowID, err)
	}
	return &def, nil
}

// Delete removes the definition.
func (s *FlowStore) Delete(ctx context.Context, flowID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM flows WHERE id = $1`, flowID); err != nil {
		return fmt.Errorf("deleting flow %q: %w", flowID, err)
	}
	return nil
}

// List returns every stored flow ID.
func (s *FlowStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM flows ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing flows: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning flow id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close releases the pool.
func (s *FlowStore) Close() {
	s.pool.Close()
}
