package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"route-optimization-service/internal/domain"
	"strings"

	"github.com/jmoiron/sqlx"
)

// InitSchema creates the tables used by the service. The DDL is valid for both
// Postgres and SQLite.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);
	`

	createStopsQuery := `
	CREATE TABLE IF NOT EXISTS stops (
		id TEXT PRIMARY KEY,
		route_id TEXT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		estimated_duration_minutes INTEGER NOT NULL DEFAULT 0,
		recurrence_pattern TEXT NOT NULL DEFAULT '',
		customer_name TEXT NOT NULL DEFAULT '',
		sequence_order INTEGER NOT NULL
	);
	`

	createStopsIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_stops_route_sequence
	ON stops(route_id, sequence_order);
	`

	createTravelCacheQuery := `
	CREATE TABLE IF NOT EXISTS travel_cache (
        origin TEXT NOT NULL,
        destination TEXT NOT NULL,
        duration_minutes DOUBLE PRECISION NOT NULL,
        distance_miles DOUBLE PRECISION NOT NULL,
        updated_at BIGINT NOT NULL,
        PRIMARY KEY (origin, destination)
    );
	`

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
        address TEXT PRIMARY KEY,
        lon DOUBLE PRECISION NOT NULL,
        lat DOUBLE PRECISION NOT NULL
    );
	`

	createTravelIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_travel_cache_destination_origin
    ON travel_cache(destination, origin);
	`

	statements := []string{
		createRoutesQuery,
		createStopsQuery,
		createStopsIndexQuery,
		createTravelCacheQuery,
		createGeocodeCacheQuery,
		createTravelIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type RouteSeed struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Stops []domain.Stop `json:"stops"`
}

// LoadSeeds reads and validates a seed file of routes with their stops.
func LoadSeeds(jsonPath string) ([]RouteSeed, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("seed routes: read %q: %w", jsonPath, err)
	}

	var data []RouteSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("seed routes: parse json: %w", err)
	}

	seen := make(map[string]struct{})
	for i, r := range data {
		if strings.TrimSpace(r.ID) == "" {
			return nil, fmt.Errorf("seed routes: route at index %d: id cannot be empty", i+1)
		}
		for j, st := range r.Stops {
			if strings.TrimSpace(st.ID) == "" {
				return nil, fmt.Errorf("seed routes: route %q stop at index %d: id cannot be empty", r.ID, j+1)
			}
			if strings.TrimSpace(st.Title) == "" {
				return nil, fmt.Errorf("seed routes: stop %q: title cannot be empty", st.ID)
			}
			if _, ok := seen[st.ID]; ok {
				return nil, fmt.Errorf("seed routes: duplicate stop id %q", st.ID)
			}
			seen[st.ID] = struct{}{}
		}
	}

	return data, nil
}

// SeedFromJSON populates routes and stops from a JSON file. Seeding a route
// again replaces its stops, so the command is safe to rerun.
func SeedFromJSON(ctx context.Context, db *sqlx.DB, jsonPath string) error {
	routes, err := LoadSeeds(jsonPath)
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed routes: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsertRoute := tx.Rebind(`
	INSERT INTO routes (id, name)
	VALUES (?, ?)
	ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name;
	`)
	deleteStops := tx.Rebind(`DELETE FROM stops WHERE route_id = ?;`)
	insertStop := `
	INSERT INTO stops (
		id,
		route_id,
		title,
		address,
		estimated_duration_minutes,
		recurrence_pattern,
		customer_name,
		sequence_order
	)
	VALUES (:id, :route_id, :title, :address, :estimated_duration_minutes,
		:recurrence_pattern, :customer_name, :sequence_order);
	`

	for _, r := range routes {
		if _, err := tx.ExecContext(ctx, upsertRoute, r.ID, strings.TrimSpace(r.Name)); err != nil {
			return fmt.Errorf("seed routes: upsert route id=%s: %w", r.ID, err)
		}
		if _, err := tx.ExecContext(ctx, deleteStops, r.ID); err != nil {
			return fmt.Errorf("seed routes: clear stops route=%s: %w", r.ID, err)
		}

		for i, st := range r.Stops {
			row := stopRow{Stop: st, RouteID: r.ID, SequenceOrder: i}
			if _, err := tx.NamedExecContext(ctx, insertStop, row); err != nil {
				return fmt.Errorf("seed routes: insert stop id=%s: %w", st.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed routes: commit tx: %w", err)
	}

	return nil
}
