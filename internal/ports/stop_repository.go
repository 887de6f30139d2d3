package ports

import (
	"context"
	"route-optimization-service/internal/domain"
)

// Port: a boundary for loading route stops and committing a reviewed ordering.
type StopRepository interface {
	// Retrieve the stops of a route in their saved sequence order.
	ListStops(ctx context.Context, routeID string) ([]domain.Stop, error)
	// Persist ids as the route's new sequence order.
	SaveOrdering(ctx context.Context, routeID string, ids []string) error
}
