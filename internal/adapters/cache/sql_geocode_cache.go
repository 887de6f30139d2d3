package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"route-optimization-service/internal/domain"
	"route-optimization-service/internal/platform/obs"
	"strings"

	"github.com/jmoiron/sqlx"
)

type geocodeRow struct {
	Address string  `db:"address"`
	Lon     float64 `db:"lon"`
	Lat     float64 `db:"lat"`
}

// SQLGeocodeCache maps normalized addresses to coordinates in the
// geocode_cache table. It works with both Postgres and SQLite.
type SQLGeocodeCache struct {
	DB *sqlx.DB
}

func NewSQLGeocodeCache(db *sql.DB, driverName string) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: sqlx.NewDb(db, driverName)}
}

// Fetch cached coordinates for the given addresses. Misses are absent from the map.
func (s *SQLGeocodeCache) GetMany(
	ctx context.Context,
	addresses []string,
) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "geocode.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("geocode cache: db is nil")
	}

	uniq := uniqueKeys(addresses)
	if len(uniq) == 0 {
		return map[string]domain.Coordinates{}, nil
	}

	query, args, err := sqlx.In(`
	SELECT address, lon, lat
	FROM geocode_cache
	WHERE address IN (?);
	`, uniq)
	if err != nil {
		return nil, fmt.Errorf("get geocode cache: expand query: %w", err)
	}

	var rows []geocodeRow
	if err := s.DB.SelectContext(ctx, &rows, s.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("get geocode cache: query geocode_cache table: %w", err)
	}

	out := make(map[string]domain.Coordinates, len(rows))
	for _, r := range rows {
		out[r.Address] = domain.Coordinates{Lon: r.Lon, Lat: r.Lat}
	}
	return out, nil
}

// Store address -> coordinate mappings, overwriting existing rows.
func (s *SQLGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Coordinates) (err error) {
	defer obs.Time(ctx, "geocode.cache.PutMany")(&err)

	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}

	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert geocode cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// ON CONFLICT ... excluded is understood by Postgres and SQLite >= 3.24.
	stmt, err := tx.PrepareNamedContext(ctx, `
	INSERT INTO geocode_cache (address, lon, lat)
	VALUES (:address, :lon, :lat)
	ON CONFLICT (address) DO UPDATE
	SET lon = excluded.lon,
		lat = excluded.lat;
	`)
	if err != nil {
		return fmt.Errorf("insert geocode cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for addr, c := range results {
		if strings.TrimSpace(addr) == "" {
			return errors.New("insert geocode cache: empty address key")
		}

		if _, err := stmt.ExecContext(ctx, geocodeRow{Address: addr, Lon: c.Lon, Lat: c.Lat}); err != nil {
			return fmt.Errorf("insert geocode cache address=%q: %w", addr, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert geocode cache commit: %w", err)
	}
	return nil
}
