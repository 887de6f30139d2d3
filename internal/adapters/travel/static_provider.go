package travel

import (
	"context"
	"fmt"
	"route-optimization-service/internal/domain"
	"sync/atomic"
)

type StaticLeg struct {
	From, To string
	Minutes  float64
	Miles    float64
}

// StaticProvider answers from a fixed table of address pairs.
// Pairs are looked up in both directions. Unknown pairs are an error unless
// an average speed is set, in which case they are estimated from coordinates.
type StaticProvider struct {
	m        map[string]domain.LegResult
	calls    atomic.Int64
	avgSpeed float64
}

func NewStaticProvider(legs []StaticLeg) *StaticProvider {
	m := make(map[string]domain.LegResult, 2*len(legs))
	for _, l := range legs {
		r := domain.LegResult{TravelTimeMinutes: l.Minutes, DistanceMiles: l.Miles}
		from := domain.NormalizeAddress(l.From)
		to := domain.NormalizeAddress(l.To)
		m[from+"|"+to] = r
		if _, ok := m[to+"|"+from]; !ok {
			m[to+"|"+from] = r
		}
	}
	return &StaticProvider{m: m}
}

// WithEstimate estimates unknown pairs by straight-line distance at mph.
func (p *StaticProvider) WithEstimate(mph float64) *StaticProvider {
	p.avgSpeed = mph
	return p
}

// Calls returns how many times TravelSegments has been invoked.
func (p *StaticProvider) Calls() int64 { return p.calls.Load() }

func (p *StaticProvider) TravelSegments(
	ctx context.Context,
	origins []domain.Location,
	destinations []domain.Location,
) ([]domain.LegResult, error) {
	p.calls.Add(1)

	if err := checkPairs(origins, destinations); err != nil {
		return nil, err
	}

	out := make([]domain.LegResult, len(origins))
	for i := range origins {
		from := domain.NormalizeAddress(origins[i].Address)
		to := domain.NormalizeAddress(destinations[i].Address)
		if from == to {
			continue
		}

		r, ok := p.m[from+"|"+to]
		switch {
		case ok:
			out[i] = r
		case p.avgSpeed > 0:
			miles := domain.MilesBetween(origins[i].Coords, destinations[i].Coords)
			out[i] = domain.LegResult{
				TravelTimeMinutes: miles / p.avgSpeed * 60,
				DistanceMiles:     miles,
			}
		default:
			return nil, fmt.Errorf("missing pair %q -> %q", from, to)
		}
	}

	return out, nil
}
