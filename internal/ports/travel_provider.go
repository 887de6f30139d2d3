package ports

import (
	"context"
	"route-optimization-service/internal/domain"
)

// Contract for retrieving travel time and distance for consecutive legs.
type TravelSegmentProvider interface {
	// Return one result per (origins[i], destinations[i]) pair, in order.
	// Callers pass equal-length, non-empty slices.
	TravelSegments(ctx context.Context, origins, destinations []domain.Location) ([]domain.LegResult, error)
}

// Persistent origin -> destination travel store keyed by normalized address.
type TravelCache interface {
	GetMany(ctx context.Context, origin string, destinations []string) (map[string]domain.LegResult, error)
	PutMany(ctx context.Context, origin string, results map[string]domain.LegResult) error
}
