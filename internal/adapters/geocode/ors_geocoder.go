package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"route-optimization-service/internal/domain"
	"route-optimization-service/internal/platform/httpclient"
	"route-optimization-service/internal/platform/obs"
	"time"
)

type orsGeocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// ORSGeocoder resolves addresses with OpenRouteService (/geocode/search).
type ORSGeocoder struct {
	http    *httpclient.Client
	baseURL string
	country string
}

func NewORSGeocoder(apiKey string, opts ...httpclient.Option) (*ORSGeocoder, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	opts = append([]httpclient.Option{httpclient.WithHeader("Authorization", apiKey)}, opts...)
	return &ORSGeocoder{
		http:    httpclient.New(10*time.Second, opts...),
		baseURL: "https://api.openrouteservice.org",
		country: "US",
	}, nil
}

// WithBaseURL points the geocoder at another ORS deployment.
func (o *ORSGeocoder) WithBaseURL(u string) *ORSGeocoder {
	o.baseURL = u
	return o
}

func (o *ORSGeocoder) Geocode(ctx context.Context, address string) (_ *domain.Coordinates, err error) {
	defer obs.Time(ctx, "ors.geocode")(&err)

	norm := domain.NormalizeAddress(address)
	if norm == "" {
		return nil, nil
	}

	endpoint := o.baseURL + "/geocode/search"

	resp, err := o.http.DoWithRetry(ctx, func() (*http.Request, error) {
		req, err := o.http.NewRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", norm)
		q.Set("boundary.country", o.country)
		q.Set("size", "1")
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	var decoded orsGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}

	if len(decoded.Features) == 0 {
		return nil, nil
	}

	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) != 2 {
		return nil, fmt.Errorf("invalid coordinate format for %q", norm)
	}

	return &domain.Coordinates{Lon: coords[0], Lat: coords[1]}, nil
}
