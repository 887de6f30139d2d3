package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"route-optimization-service/internal/domain"
	"route-optimization-service/internal/platform/obs"
	"route-optimization-service/internal/ports"
)

// NearestNeighborService orders stops with a greedy nearest-neighbor pass
// over straight-line distances.
//
// The route starts at the first addressed stop in the current ordering and
// always continues to the closest remaining stop. It does not attempt global
// optimization; the result is deterministic and needs no remote service.
// Stops without resolvable coordinates keep their relative order at the end.
type NearestNeighborService struct {
	geocoder ports.Geocoder
	mph      float64
}

func NewNearestNeighborService(geocoder ports.Geocoder, avgSpeedMph float64) (*NearestNeighborService, error) {
	if geocoder == nil {
		return nil, errors.New("nearest neighbor optimizer: geocoder is nil")
	}
	if avgSpeedMph <= 0 {
		avgSpeedMph = 30
	}
	return &NearestNeighborService{geocoder: geocoder, mph: avgSpeedMph}, nil
}

type placedStop struct {
	stop   domain.Stop
	coords domain.Coordinates
}

func (n *NearestNeighborService) Optimize(
	ctx context.Context,
	stops []domain.Stop,
	constraints domain.Constraints,
) (_ *domain.OptimizationResult, err error) {
	defer obs.Time(ctx, "optimizer.nearest.Optimize")(&err)

	coords, err := n.resolve(ctx, stops)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbor: %w", err)
	}

	placed := make([]placedStop, 0, len(stops))
	unplaced := make([]domain.Stop, 0)
	for _, st := range stops {
		c, ok := coords[domain.NormalizeAddress(st.Address)]
		if !st.HasAddress() || !ok || c == nil {
			unplaced = append(unplaced, st)
			continue
		}
		placed = append(placed, placedStop{stop: st, coords: *c})
	}

	result := &domain.OptimizationResult{Suggestions: []string{}}

	if len(placed) < 2 {
		result.OptimizedOrdering = append(stopsOf(placed), unplaced...)
		result.Reasoning = "Fewer than two stops have a usable address, so the order was kept."
		result.Suggestions = append(result.Suggestions, unplacedSuggestion(unplaced)...)
		return result, nil
	}

	route := nearestNeighborRoute(placed)

	before := pathMiles(placed)
	after := pathMiles(route)

	result.OptimizedOrdering = append(stopsOf(route), unplaced...)
	result.EstimatedTimeSavedMinutes = int(math.Round((before - after) / n.mph * 60))
	result.Reasoning = fmt.Sprintf(
		"Starting from %q, each next stop is the closest one not yet visited. Straight-line driving goes from %.1f to %.1f miles.",
		label(route[0].stop), before, after,
	)

	result.Suggestions = append(result.Suggestions, unplacedSuggestion(unplaced)...)
	if s := n.overLimit(route, constraints); s != "" {
		result.Suggestions = append(result.Suggestions, s)
	}

	return result, nil
}

// nearestNeighborRoute keeps placed[0] as the start. Ties go to the lower stop id.
func nearestNeighborRoute(placed []placedStop) []placedStop {
	remaining := make(map[int]struct{}, len(placed)-1)
	for i := 1; i < len(placed); i++ {
		remaining[i] = struct{}{}
	}

	route := make([]placedStop, 0, len(placed))
	route = append(route, placed[0])
	current := placed[0]

	for len(remaining) > 0 {
		best := -1
		bestMiles := math.MaxFloat64

		// Select next stop by minimum distance (greedy step).
		for i := range remaining {
			d := domain.MilesBetween(current.coords, placed[i].coords)
			if best < 0 || d < bestMiles || (d == bestMiles && placed[i].stop.ID < placed[best].stop.ID) {
				best = i
				bestMiles = d
			}
		}

		route = append(route, placed[best])
		current = placed[best]
		delete(remaining, best)
	}

	return route
}

func label(s domain.Stop) string {
	if s.Title != "" {
		return s.Title
	}
	return s.ID
}

func pathMiles(route []placedStop) float64 {
	total := 0.0
	for i := 1; i < len(route); i++ {
		total += domain.MilesBetween(route[i-1].coords, route[i].coords)
	}
	return total
}

func stopsOf(placed []placedStop) []domain.Stop {
	out := make([]domain.Stop, 0, len(placed))
	for _, p := range placed {
		out = append(out, p.stop)
	}
	return out
}

func unplacedSuggestion(unplaced []domain.Stop) []string {
	if len(unplaced) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("%d stops could not be placed on the map and were moved to the end.", len(unplaced))}
}

// overLimit warns when job time plus estimated driving exceeds the working day.
func (n *NearestNeighborService) overLimit(route []placedStop, c domain.Constraints) string {
	if c.MaxDailyHours <= 0 {
		return ""
	}

	minutes := pathMiles(route) / n.mph * 60
	for _, p := range route {
		minutes += float64(max(p.stop.EstimatedDurationMinutes, 0))
	}

	hours := minutes / 60
	if hours <= c.MaxDailyHours {
		return ""
	}
	return fmt.Sprintf("This route needs about %.1f hours, more than the %g hour limit. Consider moving a stop to another day.", hours, c.MaxDailyHours)
}

func (n *NearestNeighborService) resolve(ctx context.Context, stops []domain.Stop) (map[string]*domain.Coordinates, error) {
	seen := make(map[string]struct{}, len(stops))
	addresses := make([]string, 0, len(stops))
	for _, st := range stops {
		a := domain.NormalizeAddress(st.Address)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		addresses = append(addresses, a)
	}

	if bg, ok := n.geocoder.(ports.BatchGeocoder); ok {
		return bg.GeocodeMany(ctx, addresses)
	}

	out := make(map[string]*domain.Coordinates, len(addresses))
	for _, a := range addresses {
		c, err := n.geocoder.Geocode(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("geocode %q: %w", a, err)
		}
		out[a] = c
	}
	return out, nil
}
