// Package store persists saved routes and recently used places in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/accessible-nav/route-engine/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLite is a saved-route store backed by a single SQLite database file.
// Pass ":memory:" for an ephemeral store.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string, logger *slog.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// The driver is not safe for concurrent writers over one file.
	db.SetMaxOpenConns(1)
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Save inserts a route snapshot. Saving the same ID twice is an error.
func (s *SQLite) Save(ctx context.Context, route domain.SavedRoute) error {
	stops, err := json.Marshal(route.Stops)
	if err != nil {
		return fmt.Errorf("encode stops: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO saved_route (id, origin, destination, stops, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, route.ID, route.Origin, route.Destination, string(stops), route.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert saved route: %w", err)
	}
	s.logger.Debug("saved route persisted", "id", route.ID, "destination", route.Destination)
	return nil
}

// List returns all saved routes, newest first.
func (s *SQLite) List(ctx context.Context) ([]domain.SavedRoute, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, origin, destination, stops, created_at
		FROM saved_route
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list saved routes: %w", err)
	}
	defer rows.Close()

	var out []domain.SavedRoute
	for rows.Next() {
		var (
			route     domain.SavedRoute
			stops     string
			createdAt string
		)
		if err := rows.Scan(&route.ID, &route.Origin, &route.Destination, &stops, &createdAt); err != nil {
			return nil, fmt.Errorf("scan saved route: %w", err)
		}
		if err := json.Unmarshal([]byte(stops), &route.Stops); err != nil {
			return nil, fmt.Errorf("decode stops for %s: %w", route.ID, err)
		}
		route.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for %s: %w", route.ID, err)
		}
		out = append(out, route)
	}
	return out, rows.Err()
}

// Delete removes a saved route by ID. Deleting an unknown ID is a no-op.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM saved_route WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete saved route %s: %w", id, err)
	}
	return nil
}

// RecordRecent notes that a place label was used as a destination. Reusing a
// label refreshes its position instead of duplicating it.
func (s *SQLite) RecordRecent(ctx context.Context, label string) error {
	if label == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recent_place (label, used_at) VALUES (?, ?)
		ON CONFLICT (label) DO UPDATE SET used_at = excluded.used_at
	`, label, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record recent place: %w", err)
	}
	return nil
}

// RecentPlaces returns up to limit recently used place labels, newest first.
func (s *SQLite) RecentPlaces(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT label FROM recent_place ORDER BY used_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent places: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("scan recent place: %w", err)
		}
		out = append(out, label)
	}
	return out, rows.Err()
}

// createSchema creates all tables. Safe to call multiple times, uses
// IF NOT EXISTS.
func createSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS saved_route (
    id TEXT PRIMARY KEY,
    origin TEXT NOT NULL,
    destination TEXT NOT NULL,
    stops TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_saved_route_created_at ON saved_route(created_at);

CREATE TABLE IF NOT EXISTS recent_place (
    label TEXT PRIMARY KEY,
    used_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_recent_place_used_at ON recent_place(used_at);
`
