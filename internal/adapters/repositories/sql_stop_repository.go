package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"route-optimization-service/internal/domain"
	"route-optimization-service/internal/platform/obs"

	"github.com/jmoiron/sqlx"
)

// stopRow is a stops table row.
type stopRow struct {
	domain.Stop
	RouteID       string `db:"route_id"`
	SequenceOrder int    `db:"sequence_order"`
}

// SQLStopRepository implements StopRepository for Postgres and SQLite.
// Queries are written with "?" and rebound for the driver.
type SQLStopRepository struct{ DB *sqlx.DB }

func NewSQLStopRepository(db *sql.DB, driverName string) *SQLStopRepository {
	return &SQLStopRepository{DB: sqlx.NewDb(db, driverName)}
}

// ListStops returns the route's stops in saved order.
func (s *SQLStopRepository) ListStops(ctx context.Context, routeID string) (_ []domain.Stop, err error) {
	defer obs.Time(ctx, "stops.ListStops")(&err)

	if s.DB == nil {
		return nil, errors.New("stop repository: DB is nil")
	}

	if err := s.routeExists(ctx, s.DB, routeID); err != nil {
		return nil, fmt.Errorf("list stops: %w", err)
	}

	query := s.DB.Rebind(`
	SELECT
		id,
		title,
		address,
		estimated_duration_minutes,
		recurrence_pattern,
		customer_name
	FROM stops
	WHERE route_id = ?
	ORDER BY sequence_order, id;
	`)

	stops := make([]domain.Stop, 0, 16)
	if err := s.DB.SelectContext(ctx, &stops, query, routeID); err != nil {
		return nil, fmt.Errorf("list stops: query stops table: %w", err)
	}

	return stops, nil
}

// SaveOrdering rewrites sequence_order for the route. ids must be a
// permutation of the route's stored stop ids.
func (s *SQLStopRepository) SaveOrdering(ctx context.Context, routeID string, ids []string) (err error) {
	const op = "save ordering"
	defer obs.Time(ctx, "stops.SaveOrdering")(&err)

	if s.DB == nil {
		return errors.New("stop repository: DB is nil")
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.routeExists(ctx, tx, routeID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var stored []string
	if err := tx.SelectContext(ctx, &stored, tx.Rebind(`SELECT id FROM stops WHERE route_id = ?;`), routeID); err != nil {
		return fmt.Errorf("%s: query stop ids: %w", op, err)
	}

	if !domain.SameIDSet(stored, ids) {
		return domain.NewValidationError(op, "ordering does not match the route's saved stops", nil)
	}

	update := tx.Rebind(`UPDATE stops SET sequence_order = ? WHERE id = ? AND route_id = ?;`)
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, update, i, id, routeID); err != nil {
			return fmt.Errorf("%s: update stop id=%s: %w", op, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit tx: %w", op, err)
	}

	return nil
}

func (s *SQLStopRepository) routeExists(ctx context.Context, q sqlx.QueryerContext, routeID string) error {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, s.DB.Rebind(`SELECT COUNT(*) FROM routes WHERE id = ?;`), routeID); err != nil {
		return fmt.Errorf("query routes table: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("route %q: %w", routeID, domain.ErrRouteNotFound)
	}
	return nil
}
