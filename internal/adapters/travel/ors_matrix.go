package travel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"route-optimization-service/internal/domain"
)

type matrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
	Sources      []int       `json:"sources"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// fetchLegs retrieves distance and duration for each (origins[i], destinations[i])
// pair, splitting the legs into matrix requests of at most maxLegsPerRequest.
func (o *ORSProvider) fetchLegs(
	ctx context.Context,
	origins []domain.Coordinates,
	destinations []domain.Coordinates,
) ([]domain.LegResult, error) {
	if len(origins) != len(destinations) {
		return nil, errors.New("origins and destinations are expected to have the same length")
	}

	chunk := o.maxLegsPerRequest
	if chunk <= 0 {
		chunk = defaultMaxLegsPerRequest
	}

	out := make([]domain.LegResult, 0, len(origins))
	for start := 0; start < len(origins); start += chunk {
		end := min(start+chunk, len(origins))
		legs, err := o.fetchLegChunk(ctx, origins[start:end], destinations[start:end])
		if err != nil {
			return nil, fmt.Errorf("legs %d-%d: %w", start, end-1, err)
		}
		out = append(out, legs...)
	}
	return out, nil
}

// fetchLegChunk reads the legs from the diagonal of one matrix request whose
// sources are the origins and destinations are the destinations.
func (o *ORSProvider) fetchLegChunk(
	ctx context.Context,
	origins []domain.Coordinates,
	destinations []domain.Coordinates,
) ([]domain.LegResult, error) {
	n := len(origins)
	if n == 0 {
		return []domain.LegResult{}, nil
	}

	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, o.profile)

	// Locations are origins followed by destinations.
	locations := make([][]float64, 0, 2*n)
	sources := make([]int, 0, n)
	dests := make([]int, 0, n)
	for i, c := range origins {
		locations = append(locations, c.CoordsToList())
		sources = append(sources, i)
	}
	for i, c := range destinations {
		locations = append(locations, c.CoordsToList())
		dests = append(dests, n+i)
	}

	bodyObj := matrixRequest{
		Locations:    locations,
		Destinations: dests,
		Metrics:      []string{"distance", "duration"},
		Sources:      sources,
	}

	payload, err := json.Marshal(bodyObj)
	if err != nil {
		return nil, fmt.Errorf("marshal matrix request: %w", err)
	}

	resp, err := o.http.DoWithRetry(ctx, func() (*http.Request, error) {
		return o.http.NewRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("matrix request failed: %w", err)
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("decode matrix response: %w", err)
	}

	if len(mr.Distances) != n || len(mr.Durations) != n {
		return nil, fmt.Errorf(
			"expected %d source rows; got distances=%d durations=%d",
			n, len(mr.Distances), len(mr.Durations),
		)
	}

	out := make([]domain.LegResult, n)
	for i := 0; i < n; i++ {
		if len(mr.Distances[i]) != n || len(mr.Durations[i]) != n {
			return nil, fmt.Errorf(
				"row %d length does not match destinations: distances=%d durations=%d destinations=%d",
				i, len(mr.Distances[i]), len(mr.Durations[i]), n,
			)
		}

		metersPtr := mr.Distances[i][i]
		secondsPtr := mr.Durations[i][i]
		if metersPtr == nil || secondsPtr == nil {
			return nil, fmt.Errorf("matrix returned no route for leg %d", i)
		}

		out[i] = legFromMetric(*metersPtr, *secondsPtr)
	}

	return out, nil
}
