package travel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"route-optimization-service/internal/domain"
	"route-optimization-service/internal/platform/httpclient"
	"route-optimization-service/internal/platform/obs"
	"route-optimization-service/internal/ports"
	"time"
)

// ORSProvider implements TravelSegmentProvider using OpenRouteService.
//
// It coordinates:
//   - Persistent travel caching keyed by normalized address pairs
//   - Matrix requests for uncached legs, at most maxLegsPerRequest legs each
//   - External API calls with retry/backoff
//
// The provider is safe for concurrent use.
type ORSProvider struct {
	http    *httpclient.Client
	baseURL string
	profile string
	cache   ports.TravelCache
	// A request for k legs asks ORS for a k x k matrix; keep k*k under the
	// plan's element cap (3500 on the public API).
	maxLegsPerRequest int
}

const defaultMaxLegsPerRequest = 50

func NewORSProvider(apiKey string, cache ports.TravelCache, opts ...httpclient.Option) (*ORSProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	opts = append([]httpclient.Option{httpclient.WithHeader("Authorization", apiKey)}, opts...)
	return &ORSProvider{
		http:    httpclient.New(10*time.Second, opts...),
		baseURL: "https://api.openrouteservice.org",
		profile: "driving-car",
		cache:   cache,

		maxLegsPerRequest: defaultMaxLegsPerRequest,
	}, nil
}

// WithBaseURL points the provider at another ORS deployment.
func (o *ORSProvider) WithBaseURL(u string) *ORSProvider {
	o.baseURL = u
	return o
}

func errLengthMismatch(origins, destinations int) error {
	return fmt.Errorf("origins and destinations must have the same length: %d != %d", origins, destinations)
}

func (o *ORSProvider) TravelSegments(
	ctx context.Context,
	origins []domain.Location,
	destinations []domain.Location,
) (_ []domain.LegResult, err error) {
	defer obs.Time(ctx, "ors.TravelSegments")(&err)

	if err := checkPairs(origins, destinations); err != nil {
		return nil, err
	}

	out := make([]domain.LegResult, len(origins))
	known := make([]bool, len(origins))

	// Same-address legs cost nothing and never reach the API.
	for i := range origins {
		if domain.NormalizeAddress(origins[i].Address) == domain.NormalizeAddress(destinations[i].Address) {
			known[i] = true
		}
	}

	// Check persistent travel cache before issuing external API calls.
	if o.cache != nil {
		byOrigin := make(map[string][]string)
		for i := range origins {
			if known[i] {
				continue
			}
			org := domain.NormalizeAddress(origins[i].Address)
			byOrigin[org] = append(byOrigin[org], domain.NormalizeAddress(destinations[i].Address))
		}

		hits := make(map[string]map[string]domain.LegResult, len(byOrigin))
		for org, dests := range byOrigin {
			h, err := o.cache.GetMany(ctx, org, dests)
			if err != nil {
				return nil, fmt.Errorf("ORS get travel cache: %w", err)
			}
			hits[org] = h
		}

		for i := range origins {
			if known[i] {
				continue
			}
			org := domain.NormalizeAddress(origins[i].Address)
			if r, ok := hits[org][domain.NormalizeAddress(destinations[i].Address)]; ok {
				out[i] = r
				known[i] = true
			}
		}
	}

	missIdx := make([]int, 0, len(origins))
	for i := range origins {
		if !known[i] {
			missIdx = append(missIdx, i)
		}
	}
	if len(missIdx) == 0 {
		return out, nil
	}

	missOrigins := make([]domain.Coordinates, 0, len(missIdx))
	missDests := make([]domain.Coordinates, 0, len(missIdx))
	for _, i := range missIdx {
		missOrigins = append(missOrigins, origins[i].Coords)
		missDests = append(missDests, destinations[i].Coords)
	}

	fetched, err := o.fetchLegs(ctx, missOrigins, missDests)
	if err != nil {
		return nil, fmt.Errorf("fetching matrix legs: %w", err)
	}

	fresh := make(map[string]map[string]domain.LegResult)
	for k, i := range missIdx {
		out[i] = fetched[k]

		org := domain.NormalizeAddress(origins[i].Address)
		if fresh[org] == nil {
			fresh[org] = make(map[string]domain.LegResult)
		}
		fresh[org][domain.NormalizeAddress(destinations[i].Address)] = fetched[k]
	}

	if o.cache != nil {
		for org, results := range fresh {
			if err := o.cache.PutMany(ctx, org, results); err != nil {
				log.Printf("travel cache write failed: %v", err)
			}
		}
	}

	return out, nil
}
