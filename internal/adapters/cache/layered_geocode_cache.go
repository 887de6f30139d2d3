package cache

import (
	"context"
	"log"
	"route-optimization-service/internal/domain"
	"route-optimization-service/internal/ports"
)

// LayeredGeocodeCache reads a fast tier before a durable one.
// Durable hits are copied back into the fast tier; writes go to both.
type LayeredGeocodeCache struct {
	fast    ports.GeocodeCache
	durable ports.GeocodeCache
}

func NewLayeredGeocodeCache(fast, durable ports.GeocodeCache) *LayeredGeocodeCache {
	return &LayeredGeocodeCache{fast: fast, durable: durable}
}

func (l *LayeredGeocodeCache) GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error) {
	uniq := uniqueKeys(addresses)

	out, err := l.fast.GetMany(ctx, uniq)
	if err != nil {
		// The fast tier is optional; fall through to the durable one.
		log.Printf("geocode fast tier read failed: %v", err)
		out = map[string]domain.Coordinates{}
	}

	missing := make([]string, 0, len(uniq))
	for _, a := range uniq {
		if _, ok := out[a]; !ok {
			missing = append(missing, a)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	found, err := l.durable.GetMany(ctx, missing)
	if err != nil {
		return nil, err
	}
	for a, c := range found {
		out[a] = c
	}

	if len(found) > 0 {
		if err := l.fast.PutMany(ctx, found); err != nil {
			log.Printf("geocode fast tier backfill failed: %v", err)
		}
	}

	return out, nil
}

func (l *LayeredGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Coordinates) error {
	if err := l.durable.PutMany(ctx, results); err != nil {
		return err
	}
	if err := l.fast.PutMany(ctx, results); err != nil {
		log.Printf("geocode fast tier write failed: %v", err)
	}
	return nil
}
