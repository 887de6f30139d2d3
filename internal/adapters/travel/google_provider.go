package travel

import (
	"context"
	"errors"
	"fmt"
	"route-optimization-service/internal/domain"
	"route-optimization-service/internal/platform/obs"

	"googlemaps.github.io/maps"
)

// Distance Matrix allows 100 elements per request; 10 legs make a 10x10 block.
const googleLegsPerRequest = 10

// GoogleProvider implements TravelSegmentProvider with the Google Distance Matrix API.
type GoogleProvider struct {
	client *maps.Client
	mode   maps.Mode
}

func NewGoogleProvider(client *maps.Client) (*GoogleProvider, error) {
	if client == nil {
		return nil, errors.New("google maps client is nil")
	}
	return &GoogleProvider{client: client, mode: maps.TravelModeDriving}, nil
}

func (g *GoogleProvider) TravelSegments(
	ctx context.Context,
	origins []domain.Location,
	destinations []domain.Location,
) (_ []domain.LegResult, err error) {
	defer obs.Time(ctx, "google.TravelSegments")(&err)

	if err := checkPairs(origins, destinations); err != nil {
		return nil, err
	}

	out := make([]domain.LegResult, 0, len(origins))
	for start := 0; start < len(origins); start += googleLegsPerRequest {
		end := min(start+googleLegsPerRequest, len(origins))

		chunk, err := g.fetchChunk(ctx, origins[start:end], destinations[start:end])
		if err != nil {
			return nil, fmt.Errorf("legs %d-%d: %w", start, end-1, err)
		}
		out = append(out, chunk...)
	}

	return out, nil
}

func (g *GoogleProvider) fetchChunk(
	ctx context.Context,
	origins []domain.Location,
	destinations []domain.Location,
) ([]domain.LegResult, error) {
	req := &maps.DistanceMatrixRequest{
		Origins:      googlePlaces(origins),
		Destinations: googlePlaces(destinations),
		Mode:         g.mode,
		Units:        maps.UnitsImperial,
	}

	resp, err := g.client.DistanceMatrix(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("distance matrix request: %w", err)
	}

	if len(resp.Rows) != len(origins) {
		return nil, fmt.Errorf("expected %d rows, got %d", len(origins), len(resp.Rows))
	}

	out := make([]domain.LegResult, len(origins))
	for i, row := range resp.Rows {
		if len(row.Elements) != len(destinations) {
			return nil, fmt.Errorf("row %d: expected %d elements, got %d", i, len(destinations), len(row.Elements))
		}

		el := row.Elements[i]
		if el == nil || el.Status != "OK" {
			status := "missing"
			if el != nil {
				status = el.Status
			}
			return nil, fmt.Errorf("no route for %q -> %q: status %s", origins[i].Address, destinations[i].Address, status)
		}

		out[i] = domain.LegResult{
			TravelTimeMinutes: el.Duration.Minutes(),
			DistanceMiles:     float64(el.Distance.Meters) / metersPerMile,
		}
	}

	return out, nil
}

// googlePlaces prefers addresses and falls back to "lat,lng".
func googlePlaces(locs []domain.Location) []string {
	out := make([]string, 0, len(locs))
	for _, l := range locs {
		if l.Address != "" {
			out = append(out, l.Address)
			continue
		}
		out = append(out, fmt.Sprintf("%f,%f", l.Coords.Lat, l.Coords.Lon))
	}
	return out
}
