// Package postgres is an optional configstore.Persister backed by
// github.com/jackc/pgx/v5, grounded on backend/libs/db/postgres.go (pool
// construction/ping-on-connect) and csms/internal/storage/postgres.go
// (upsert-by-natural-key statement shape). It is additive: spec.md §1 names
// SQL storage as an out-of-scope driver behind a named interface, and
// spec.md's Non-goals cap persistence guarantees at best-effort, so failures
// here are logged and swallowed by the caller rather than treated as fatal.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"stationsim/internal/configstore"
)

// Store persists configuration keys keyed by station id.
type Store struct {
	pool *pgxpool.Pool
}

// NewPool opens a pgx connection pool for the given DSN.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("configstore/postgres: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("configstore/postgres: ping: %w", err)
	}
	return pool, nil
}

// NewStore wraps an already-open pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS station_configuration_keys (
	station_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	value      TEXT NOT NULL,
	readonly   BOOLEAN NOT NULL,
	visible    BOOLEAN NOT NULL,
	reboot     BOOLEAN NOT NULL,
	PRIMARY KEY (station_id, name)
)`

// EnsureSchema creates the backing table if it does not already exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// SaveKeys upserts every key for stationID.
func (s *Store) SaveKeys(ctx context.Context, stationID string, keys []configstore.Key) error {
	if stationID == "" {
		return fmt.Errorf("configstore/postgres: station id is required")
	}

	batch := s.pool
	for _, k := range keys {
		_, err := batch.Exec(ctx, `
			INSERT INTO station_configuration_keys (station_id, name, value, readonly, visible, reboot)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (station_id, name)
			DO UPDATE SET value = EXCLUDED.value,
			              readonly = EXCLUDED.readonly,
			              visible = EXCLUDED.visible,
			              reboot = EXCLUDED.reboot
		`, stationID, k.Name, k.Value, k.Readonly, k.Visible, k.Reboot)
		if err != nil {
			return fmt.Errorf("configstore/postgres: upsert key %q: %w", k.Name, err)
		}
	}
	return nil
}

// LoadKeys returns every persisted key for stationID.
func (s *Store) LoadKeys(ctx context.Context, stationID string) ([]configstore.Key, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name, value, readonly, visible, reboot
		FROM station_configuration_keys
		WHERE station_id = $1
		ORDER BY name
	`, stationID)
	if err != nil {
		return nil, fmt.Errorf("configstore/postgres: query keys: %w", err)
	}
	defer rows.Close()

	var out []configstore.Key
	for rows.Next() {
		var k configstore.Key
		if err := rows.Scan(&k.Name, &k.Value, &k.Readonly, &k.Visible, &k.Reboot); err != nil {
			return nil, fmt.Errorf("configstore/postgres: scan key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
