package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"route-optimization-service/internal/domain"
	"route-optimization-service/internal/ports"
	"sync"
	"time"
)

// TravelStatus describes how the segments of a RouteView were obtained.
type TravelStatus string

const (
	// Fewer than two addressed stops: the provider was not called.
	TravelSkipped TravelStatus = "skipped"
	TravelReady   TravelStatus = "ready"
	// The provider failed; metrics were computed without segments.
	TravelError TravelStatus = "error"
)

// RouteView is the data contract of the route preview: the ordering plus
// everything derived from it at one store version.
type RouteView struct {
	Version      uint64              `json:"version"`
	Stops        []domain.Stop       `json:"stops"`
	Metrics      domain.RouteMetrics `json:"metrics"`
	Band         domain.Band         `json:"band"`
	TravelStatus TravelStatus        `json:"travelStatus"`
	TravelError  string              `json:"travelError,omitempty"`
	// Ids of stops whose address could not be geocoded.
	Unresolved []string  `json:"unresolved"`
	ComputedAt time.Time `json:"computedAt"`
}

// Legs are the consecutive addressed stop pairs of an ordering.
type Legs struct {
	Origins      []domain.Location
	Destinations []domain.Location
	// Segments carry positions and stop ids; travel values are filled later.
	Segments []domain.Segment
	// Stops with an address that did not resolve.
	Unresolved []string
}

// BuildLegs pairs each routable stop with the next routable stop.
// A stop is routable when it has an address and coords holds non-nil
// coordinates for its normalized address. Other stops are skipped, so
// k routable stops always yield max(0, k-1) legs.
func BuildLegs(stops []domain.Stop, coords map[string]*domain.Coordinates) Legs {
	legs := Legs{Unresolved: []string{}}

	prev := -1
	var prevLoc domain.Location
	for i, st := range stops {
		if !st.HasAddress() {
			continue
		}

		addr := domain.NormalizeAddress(st.Address)
		c := coords[addr]
		if c == nil {
			legs.Unresolved = append(legs.Unresolved, st.ID)
			continue
		}

		loc := domain.Location{Address: addr, Coords: *c}
		if prev >= 0 {
			legs.Origins = append(legs.Origins, prevLoc)
			legs.Destinations = append(legs.Destinations, loc)
			legs.Segments = append(legs.Segments, domain.Segment{
				FromStopID:   stops[prev].ID,
				ToStopID:     st.ID,
				FromPosition: prev,
				ToPosition:   i,
			})
		}
		prev = i
		prevLoc = loc
	}

	return legs
}

// RoutePipeline recomputes the RouteView whenever the store changes.
//
// Coordinates are looked up by address, so a reorder reuses what the geocoder
// already resolved, while segments are always fetched again because they
// depend on position. Each trigger supersedes the previous in-flight run and
// nothing is published after Close.
type RoutePipeline struct {
	store         *OrderingStore
	geocoder      ports.Geocoder
	travel        ports.TravelSegmentProvider
	calc          *MetricsCalculator
	travelTimeout time.Duration
	publish       func(RouteView)

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu         sync.Mutex
	cancel     context.CancelFunc
	generation uint64
	closed     bool
	latest     *RouteView
	wg         sync.WaitGroup

	// Serializes publish calls so views are delivered in generation order.
	deliverMu sync.Mutex
}

type PipelineConfig struct {
	Geocoder      ports.Geocoder
	Travel        ports.TravelSegmentProvider
	Calculator    *MetricsCalculator
	TravelTimeout time.Duration
	// Publish receives every fresh view. It must not call back into the pipeline.
	Publish func(RouteView)
}

func NewRoutePipeline(store *OrderingStore, cfg PipelineConfig) *RoutePipeline {
	calc := cfg.Calculator
	if calc == nil {
		calc = defaultCalculator
	}

	timeout := cfg.TravelTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &RoutePipeline{
		store:         store,
		geocoder:      cfg.Geocoder,
		travel:        cfg.Travel,
		calc:          calc,
		travelTimeout: timeout,
		publish:       cfg.Publish,
		baseCtx:       ctx,
		baseCancel:    cancel,
	}
}

// Trigger schedules an asynchronous recomputation, cancelling any run in flight.
func (p *RoutePipeline) Trigger() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(p.baseCtx)
	p.cancel = cancel
	p.generation++
	gen := p.generation
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer cancel()

		view, err := p.Refresh(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Printf("route pipeline: version=%d degraded: %v", view.Version, err)
		}
		p.deliver(gen, view)
	}()
}

func (p *RoutePipeline) deliver(gen uint64, view RouteView) {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	if p.closed || gen != p.generation {
		p.mu.Unlock()
		return
	}
	p.latest = &view
	publish := p.publish
	p.mu.Unlock()

	if publish != nil {
		publish(view)
	}
}

// Latest returns the most recently delivered view.
func (p *RoutePipeline) Latest() (RouteView, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.latest == nil {
		return RouteView{}, false
	}
	return *p.latest, true
}

// Wait blocks until in-flight recomputations finish.
func (p *RoutePipeline) Wait() {
	p.wg.Wait()
}

// Close cancels in-flight work; later triggers and completions are ignored.
func (p *RoutePipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.baseCancel()
	p.wg.Wait()
}

// Refresh computes a view of the current store state synchronously.
// The returned view is always usable; a non-nil error describes which
// derived data is missing (TransientServiceError) or that ctx ended.
func (p *RoutePipeline) Refresh(ctx context.Context) (RouteView, error) {
	stops, version := p.store.Snapshot()

	view := RouteView{
		Version:      version,
		Stops:        stops,
		TravelStatus: TravelSkipped,
		Unresolved:   []string{},
	}

	coords, geoErr := p.resolve(ctx, stops)
	if err := ctx.Err(); err != nil {
		return view, err
	}

	legs := BuildLegs(stops, coords)
	view.Unresolved = legs.Unresolved

	var travelErr error
	segments := []domain.Segment{}
	if len(legs.Segments) > 0 && p.travel != nil {
		results, err := p.fetchSegments(ctx, legs)
		switch {
		case ctx.Err() != nil:
			return view, ctx.Err()
		case err != nil:
			travelErr = &domain.TransientServiceError{Service: "travel-time provider", Err: err}
			view.TravelStatus = TravelError
			view.TravelError = err.Error()
		default:
			segments = results
			view.TravelStatus = TravelReady
		}
	}

	view.Metrics = p.calc.Compute(stops, segments)
	view.Band = view.Metrics.Band()
	view.ComputedAt = time.Now()

	return view, errors.Join(geoErr, travelErr)
}

func (p *RoutePipeline) fetchSegments(ctx context.Context, legs Legs) ([]domain.Segment, error) {
	ctx, cancel := context.WithTimeout(ctx, p.travelTimeout)
	defer cancel()

	results, err := p.travel.TravelSegments(ctx, legs.Origins, legs.Destinations)
	if err != nil {
		return nil, err
	}
	if len(results) != len(legs.Segments) {
		return nil, fmt.Errorf("provider returned %d results for %d legs", len(results), len(legs.Segments))
	}

	segments := make([]domain.Segment, len(legs.Segments))
	for i, seg := range legs.Segments {
		seg.TravelTimeMinutes = results[i].TravelTimeMinutes
		seg.DistanceMiles = results[i].DistanceMiles
		segments[i] = seg
	}
	return segments, nil
}

// resolve geocodes the distinct addresses of stops. Failed lookups are left
// out of the map, which excludes those stops from travel computation.
func (p *RoutePipeline) resolve(ctx context.Context, stops []domain.Stop) (map[string]*domain.Coordinates, error) {
	seen := make(map[string]struct{}, len(stops))
	addresses := make([]string, 0, len(stops))
	for _, st := range stops {
		if !st.HasAddress() {
			continue
		}
		a := domain.NormalizeAddress(st.Address)
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		addresses = append(addresses, a)
	}

	out := make(map[string]*domain.Coordinates, len(addresses))
	if len(addresses) == 0 || p.geocoder == nil {
		return out, nil
	}

	var err error
	if bg, ok := p.geocoder.(ports.BatchGeocoder); ok {
		var got map[string]*domain.Coordinates
		got, err = bg.GeocodeMany(ctx, addresses)
		for k, v := range got {
			out[k] = v
		}
	} else {
		var errs []error
		for _, a := range addresses {
			c, e := p.geocoder.Geocode(ctx, a)
			if e != nil {
				errs = append(errs, fmt.Errorf("geocode %q: %w", a, e))
				continue
			}
			out[a] = c
		}
		err = errors.Join(errs...)
	}

	if err != nil {
		return out, &domain.TransientServiceError{Service: "geocoder", Err: err}
	}
	return out, nil
}
