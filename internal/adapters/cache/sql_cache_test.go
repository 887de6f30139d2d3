package cache

import (
	"context"
	"database/sql"
	"path/filepath"
	"route-optimization-service/internal/adapters/repositories"
	"route-optimization-service/internal/domain"
	"route-optimization-service/internal/platform/db"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := repositories.InitSchema(context.Background(), conn); err != nil {
		t.Fatal(err)
	}
	return conn
}

func TestSQLGeocodeCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewSQLGeocodeCache(openTestDB(t), db.DriverSQLite)

	err := c.PutMany(ctx, map[string]domain.Coordinates{
		"1 Main St": {Lon: -112.07, Lat: 33.45},
		"2 Oak Ave": {Lon: -112.01, Lat: 33.50},
	})
	if err != nil {
		t.Fatalf("PutMany: %v", err)
	}

	got, err := c.GetMany(ctx, []string{"1 Main St", " 1 Main St", "9 Nowhere Rd", ""})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(got) != 1 || got["1 Main St"].Lat != 33.45 {
		t.Fatalf("got %v", got)
	}

	// Overwrite keeps one row with the new value.
	if err := c.PutMany(ctx, map[string]domain.Coordinates{"1 Main St": {Lon: 1, Lat: 2}}); err != nil {
		t.Fatal(err)
	}
	got, _ = c.GetMany(ctx, []string{"1 Main St"})
	if got["1 Main St"] != (domain.Coordinates{Lon: 1, Lat: 2}) {
		t.Fatalf("overwrite not applied: %v", got)
	}
}

func TestSQLGeocodeCacheRejectsEmptyKey(t *testing.T) {
	c := NewSQLGeocodeCache(openTestDB(t), db.DriverSQLite)
	if err := c.PutMany(context.Background(), map[string]domain.Coordinates{" ": {}}); err == nil {
		t.Fatal("expected error for empty address key")
	}
}

func TestSQLTravelCacheExpiresOldRows(t *testing.T) {
	ctx := context.Background()
	c := NewSQLTravelCache(openTestDB(t), db.DriverSQLite, 24*time.Hour)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.PutMany(ctx, "A St", map[string]domain.LegResult{
		"B St": {TravelTimeMinutes: 12.5, DistanceMiles: 4.2},
		"C St": {TravelTimeMinutes: 20, DistanceMiles: 9},
	}); err != nil {
		t.Fatalf("PutMany: %v", err)
	}

	got, err := c.GetMany(ctx, "A St", []string{"B St", "C St", "D St"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(got) != 2 || got["B St"].TravelTimeMinutes != 12.5 || got["C St"].DistanceMiles != 9 {
		t.Fatalf("got %v", got)
	}

	// Origin is directional.
	if rev, _ := c.GetMany(ctx, "B St", []string{"A St"}); len(rev) != 0 {
		t.Fatalf("reverse leg should miss, got %v", rev)
	}

	now = now.Add(25 * time.Hour)
	if got, _ := c.GetMany(ctx, "A St", []string{"B St"}); len(got) != 0 {
		t.Fatalf("expired row returned: %v", got)
	}

	c.MaxAge = 0
	if got, _ := c.GetMany(ctx, "A St", []string{"B St"}); len(got) != 1 {
		t.Fatalf("MaxAge 0 should keep rows forever, got %v", got)
	}
}

func TestSQLTravelCacheRequiresOrigin(t *testing.T) {
	c := NewSQLTravelCache(openTestDB(t), db.DriverSQLite, 0)
	if _, err := c.GetMany(context.Background(), "", []string{"B St"}); err == nil {
		t.Fatal("expected error for empty origin")
	}
}
