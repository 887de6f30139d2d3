package services

import (
	"context"
	"route-optimization-service/internal/domain"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
)

func stopsFor(ids ...string) []domain.Stop {
	out := make([]domain.Stop, 0, len(ids))
	for i, id := range ids {
		out = append(out, domain.Stop{
			ID:                       id,
			Title:                    "Job " + id,
			Address:                  id + " Main St",
			EstimatedDurationMinutes: 30 + i*5,
		})
	}
	return out
}

func newStore(t *testing.T, ids ...string) *OrderingStore {
	t.Helper()
	s := NewOrderingStore()
	if err := s.Initialize(stopsFor(ids...)); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return s
}

func assertIDs(t *testing.T, s *OrderingStore, want ...string) {
	t.Helper()
	if got := s.IDs(); !slices.Equal(got, want) {
		t.Fatalf("ordering = %v, want %v", got, want)
	}
}

// reorderedStops returns stops in the order given by ids.
func reorderedStops(stops []domain.Stop, ids ...string) []domain.Stop {
	out := make([]domain.Stop, 0, len(ids))
	for _, id := range ids {
		i := slices.IndexFunc(stops, func(s domain.Stop) bool { return s.ID == id })
		if i < 0 {
			out = append(out, domain.Stop{ID: id, Title: "unknown"})
			continue
		}
		out = append(out, stops[i])
	}
	return out
}

type optimizerFunc func(ctx context.Context, stops []domain.Stop, c domain.Constraints) (*domain.OptimizationResult, error)

func (f optimizerFunc) Optimize(ctx context.Context, stops []domain.Stop, c domain.Constraints) (*domain.OptimizationResult, error) {
	return f(ctx, stops, c)
}

// gatedOptimizer blocks until release is closed, then answers with ids.
type gatedOptimizer struct {
	started chan struct{}
	release chan struct{}
	ids     []string
	once    sync.Once
}

func newGatedOptimizer(ids ...string) *gatedOptimizer {
	return &gatedOptimizer{
		started: make(chan struct{}),
		release: make(chan struct{}),
		ids:     ids,
	}
}

func (g *gatedOptimizer) Optimize(ctx context.Context, stops []domain.Stop, _ domain.Constraints) (*domain.OptimizationResult, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &domain.OptimizationResult{
		OptimizedOrdering:         reorderedStops(stops, g.ids...),
		Reasoning:                 "grouped by neighborhood",
		EstimatedTimeSavedMinutes: 12,
	}, nil
}

// countingGeocoder wraps a Geocoder and counts lookups.
type countingGeocoder struct {
	next interface {
		Geocode(ctx context.Context, address string) (*domain.Coordinates, error)
	}
	calls atomic.Int64
}

func (c *countingGeocoder) Geocode(ctx context.Context, address string) (*domain.Coordinates, error) {
	c.calls.Add(1)
	return c.next.Geocode(ctx, address)
}

// blockingTravel never answers until ctx ends.
type blockingTravel struct {
	started chan struct{}
	once    sync.Once
}

func (b *blockingTravel) TravelSegments(ctx context.Context, origins, _ []domain.Location) ([]domain.LegResult, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

type memoryRepo struct {
	mu     sync.Mutex
	routes map[string][]domain.Stop
	saved  map[string][]string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{routes: map[string][]domain.Stop{}, saved: map[string][]string{}}
}

func (r *memoryRepo) ListStops(_ context.Context, routeID string) ([]domain.Stop, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stops, ok := r.routes[routeID]
	if !ok {
		return nil, domain.ErrRouteNotFound
	}
	return slices.Clone(stops), nil
}

func (r *memoryRepo) SaveOrdering(_ context.Context, routeID string, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.routes[routeID]; !ok {
		return domain.ErrRouteNotFound
	}
	r.saved[routeID] = slices.Clone(ids)
	return nil
}
