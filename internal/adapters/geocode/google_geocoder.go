package geocode

import (
	"context"
	"errors"
	"fmt"
	"route-optimization-service/internal/domain"
	"route-optimization-service/internal/platform/obs"

	"googlemaps.github.io/maps"
)

// GoogleGeocoder resolves addresses with the Google Geocoding API.
type GoogleGeocoder struct {
	client *maps.Client
}

func NewGoogleGeocoder(client *maps.Client) (*GoogleGeocoder, error) {
	if client == nil {
		return nil, errors.New("google maps client is nil")
	}
	return &GoogleGeocoder{client: client}, nil
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (_ *domain.Coordinates, err error) {
	defer obs.Time(ctx, "google.geocode")(&err)

	norm := domain.NormalizeAddress(address)
	if norm == "" {
		return nil, nil
	}

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: norm})
	if err != nil {
		return nil, fmt.Errorf("google geocode %q: %w", norm, err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	loc := results[0].Geometry.Location
	return &domain.Coordinates{Lon: loc.Lng, Lat: loc.Lat}, nil
}
