package ports

import (
	"context"
	"route-optimization-service/internal/domain"
)

// Contract for turning an address into coordinates.
type Geocoder interface {
	// Return coordinates for address, or nil when the address cannot be resolved.
	// An error means the lookup itself failed and may be retried later.
	Geocode(ctx context.Context, address string) (*domain.Coordinates, error)
}

// Geocoder that resolves many addresses at once. Unresolved addresses map to nil.
type BatchGeocoder interface {
	Geocoder
	GeocodeMany(ctx context.Context, addresses []string) (map[string]*domain.Coordinates, error)
}

// Persistent address -> coordinates store. Keys are normalized by the caller.
type GeocodeCache interface {
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error)
	PutMany(ctx context.Context, results map[string]domain.Coordinates) error
}
