package geocode

import (
	"context"
	"errors"
	"fmt"
	"log"
	"route-optimization-service/internal/domain"
	"route-optimization-service/internal/ports"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// CachingResolver memoizes a geocoding client by normalized address.
//
// Lookups go memo -> persistent cache -> client. Unresolvable addresses are
// memoized as nil so they are not retried; client errors are not memoized.
// Concurrent lookups of the same address share one client call. The shared
// call is detached from the caller that started it, so one caller giving up
// does not fail the others; each caller still returns when its own ctx ends.
// The resolver is safe for concurrent use.
type CachingResolver struct {
	client      ports.Geocoder
	cache       ports.GeocodeCache
	concurrency int
	// Upper bound on one shared lookup.
	lookupTimeout time.Duration

	mu    sync.RWMutex
	memo  map[string]*domain.Coordinates
	group singleflight.Group
}

const defaultLookupTimeout = 30 * time.Second

// NewCachingResolver wraps client. cache may be nil.
func NewCachingResolver(client ports.Geocoder, cache ports.GeocodeCache, concurrency int) *CachingResolver {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &CachingResolver{
		client:        client,
		cache:         cache,
		concurrency:   concurrency,
		lookupTimeout: defaultLookupTimeout,
		memo:          make(map[string]*domain.Coordinates),
	}
}

func (r *CachingResolver) lookupMemo(key string) (*domain.Coordinates, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.memo[key]
	return c, ok
}

func (r *CachingResolver) remember(key string, c *domain.Coordinates) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memo[key] = c
}

func (r *CachingResolver) Geocode(ctx context.Context, address string) (*domain.Coordinates, error) {
	key := domain.NormalizeAddress(address)
	if key == "" {
		return nil, nil
	}

	if c, ok := r.lookupMemo(key); ok {
		return c, nil
	}

	ch := r.group.DoChan(key, func() (any, error) {
		if c, ok := r.lookupMemo(key); ok {
			return c, nil
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.lookupTimeout)
		defer cancel()

		if r.cache != nil {
			hits, err := r.cache.GetMany(ctx, []string{key})
			if err != nil {
				log.Printf("geocode cache read failed: address=%q err=%v", key, err)
			} else if c, ok := hits[key]; ok {
				r.remember(key, &c)
				return &c, nil
			}
		}

		c, err := r.client.Geocode(ctx, key)
		if err != nil {
			return nil, err
		}
		r.remember(key, c)

		if c != nil && r.cache != nil {
			if err := r.cache.PutMany(ctx, map[string]domain.Coordinates{key: *c}); err != nil {
				log.Printf("geocode cache write failed: %v", err)
			}
		}
		return c, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("geocode %q: %w", key, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("geocode %q: %w", key, res.Err)
		}
		c, _ := res.Val.(*domain.Coordinates)
		return c, nil
	}
}

// GeocodeMany resolves addresses concurrently. The result is keyed by
// normalized address and holds every address that was looked up successfully
// (nil for no match); failed lookups are reported in the joined error.
func (r *CachingResolver) GeocodeMany(ctx context.Context, addresses []string) (map[string]*domain.Coordinates, error) {
	seen := make(map[string]struct{}, len(addresses))
	misses := make([]string, 0, len(addresses))
	out := make(map[string]*domain.Coordinates, len(addresses))

	for _, a := range addresses {
		key := domain.NormalizeAddress(a)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		if c, ok := r.lookupMemo(key); ok {
			out[key] = c
			continue
		}
		misses = append(misses, key)
	}

	if len(misses) == 0 {
		return out, nil
	}

	// One batched cache read before falling back to per-address lookups.
	if r.cache != nil {
		hits, err := r.cache.GetMany(ctx, misses)
		if err != nil {
			log.Printf("geocode cache read failed: addresses=%d err=%v", len(misses), err)
		} else {
			remaining := misses[:0]
			for _, key := range misses {
				if c, ok := hits[key]; ok {
					r.remember(key, &c)
					out[key] = &c
					continue
				}
				remaining = append(remaining, key)
			}
			misses = remaining
		}
	}

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(r.concurrency)

	for _, key := range misses {
		g.Go(func() error {
			c, err := r.Geocode(ctx, key)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			out[key] = c
			return nil
		})
	}
	_ = g.Wait()

	return out, errors.Join(errs...)
}
