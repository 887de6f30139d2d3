package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"route-optimization-service/internal/domain"
	"route-optimization-service/internal/platform/obs"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

type travelRow struct {
	Origin          string  `db:"origin"`
	Destination     string  `db:"destination"`
	DurationMinutes float64 `db:"duration_minutes"`
	DistanceMiles   float64 `db:"distance_miles"`
	UpdatedAt       int64   `db:"updated_at"`
}

// SQLTravelCache stores origin -> destination legs in the travel_cache table.
// Rows older than MaxAge are treated as misses; zero keeps rows forever.
// It works with both Postgres and SQLite.
type SQLTravelCache struct {
	DB     *sqlx.DB
	MaxAge time.Duration
	now    func() time.Time
}

func NewSQLTravelCache(db *sql.DB, driverName string, maxAge time.Duration) *SQLTravelCache {
	return &SQLTravelCache{DB: sqlx.NewDb(db, driverName), MaxAge: maxAge, now: time.Now}
}

// Fetch cached legs for one origin and multiple destinations.
func (s *SQLTravelCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]domain.LegResult, err error) {
	defer obs.Time(ctx, "travel.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("travel cache: db is nil")
	}

	if origin == "" {
		return nil, errors.New("get travel cache: origin must not be empty")
	}

	uniq := uniqueKeys(destinations)
	if len(uniq) == 0 {
		return map[string]domain.LegResult{}, nil
	}

	query, args, err := sqlx.In(`
	SELECT origin, destination, duration_minutes, distance_miles, updated_at
	FROM travel_cache
	WHERE origin = ?
		AND updated_at >= ?
		AND destination IN (?);
	`, origin, oldestAllowed(s.now, s.MaxAge), uniq)
	if err != nil {
		return nil, fmt.Errorf("get travel cache: expand query: %w", err)
	}

	var rows []travelRow
	if err := s.DB.SelectContext(ctx, &rows, s.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("get travel cache: query travel_cache table: %w", err)
	}

	out := make(map[string]domain.LegResult, len(rows))
	for _, r := range rows {
		out[r.Destination] = domain.LegResult{TravelTimeMinutes: r.DurationMinutes, DistanceMiles: r.DistanceMiles}
	}
	return out, nil
}

// Store many cached legs for a single origin, stamped with the current time.
func (s *SQLTravelCache) PutMany(
	ctx context.Context,
	origin string,
	results map[string]domain.LegResult,
) (err error) {
	defer obs.Time(ctx, "travel.cache.PutMany")(&err)

	if s.DB == nil {
		return errors.New("travel cache: db is nil")
	}

	if origin == "" {
		return errors.New("insert travel cache: origin must not be empty")
	}

	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert travel cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareNamedContext(ctx, `
	INSERT INTO travel_cache (origin, destination, duration_minutes, distance_miles, updated_at)
	VALUES (:origin, :destination, :duration_minutes, :distance_miles, :updated_at)
	ON CONFLICT (origin, destination) DO UPDATE
	SET duration_minutes = excluded.duration_minutes,
		distance_miles = excluded.distance_miles,
		updated_at = excluded.updated_at;
	`)
	if err != nil {
		return fmt.Errorf("insert travel cache: db prepare: %w", err)
	}
	defer stmt.Close()

	stamp := s.now().Unix()
	for dest, r := range results {
		if strings.TrimSpace(dest) == "" {
			return errors.New("insert travel cache: empty destination key")
		}

		row := travelRow{
			Origin:          origin,
			Destination:     dest,
			DurationMinutes: r.TravelTimeMinutes,
			DistanceMiles:   r.DistanceMiles,
			UpdatedAt:       stamp,
		}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("insert travel cache dest=%q: %w", dest, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert travel cache commit: %w", err)
	}
	return nil
}

// oldestAllowed is the unix time before which rows are expired.
func oldestAllowed(now func() time.Time, maxAge time.Duration) int64 {
	if maxAge <= 0 {
		return 0
	}
	return now().Add(-maxAge).Unix()
}
