package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"route-optimization-service/internal/platform/httpclient"

	"googlemaps.github.io/maps"
)

func TestORSGeocoderResolvesAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/geocode/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "ors-key" {
			t.Errorf("missing api key header")
		}
		switch r.URL.Query().Get("text") {
		case "1901 W Madison St, Phoenix, AZ":
			w.Write([]byte(`{"features":[{"geometry":{"coordinates":[-112.098,33.481]}}]}`))
		default:
			w.Write([]byte(`{"features":[]}`))
		}
	}))
	defer srv.Close()

	g, err := NewORSGeocoder("ors-key", httpclient.WithRetry(1, time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	g.WithBaseURL(srv.URL)

	c, err := g.Geocode(context.Background(), "1901 W  Madison St, Phoenix, AZ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c == nil || c.Lon != -112.098 || c.Lat != 33.481 {
		t.Fatalf("coords = %+v", c)
	}

	miss, err := g.Geocode(context.Background(), "Atlantis")
	if err != nil || miss != nil {
		t.Fatalf("expected no match, got %v, %v", miss, err)
	}
}

func TestORSGeocoderSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g, _ := NewORSGeocoder("ors-key", httpclient.WithRetry(2, time.Millisecond))
	g.WithBaseURL(srv.URL)

	if _, err := g.Geocode(context.Background(), "1 Main St"); err == nil {
		t.Fatal("expected error")
	}
}

func TestGoogleGeocoder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("address") == "Atlantis" {
			w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
			return
		}
		w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":33.45,"lng":-112.07}}}]}`))
	}))
	defer srv.Close()

	mc, err := maps.NewClient(maps.WithAPIKey("AIza-test"), maps.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	g, err := NewGoogleGeocoder(mc)
	if err != nil {
		t.Fatal(err)
	}

	c, err := g.Geocode(context.Background(), "200 W Washington St, Phoenix")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c == nil || c.Lat != 33.45 || c.Lon != -112.07 {
		t.Fatalf("coords = %+v", c)
	}

	miss, err := g.Geocode(context.Background(), "Atlantis")
	if err != nil || miss != nil {
		t.Fatalf("expected no match, got %v, %v", miss, err)
	}
}

func TestStaticGeocoderSynthesizesStableCoordinates(t *testing.T) {
	g := NewStaticGeocoder(nil)

	if c, _ := g.Geocode(context.Background(), "9 Elm St"); c != nil {
		t.Fatalf("expected nil without Synthesize, got %+v", c)
	}

	g.Synthesize = true
	a, _ := g.Geocode(context.Background(), "9 Elm St")
	b, _ := g.Geocode(context.Background(), " 9  Elm St ")
	if a == nil || b == nil || *a != *b {
		t.Fatalf("expected stable coordinates, got %+v and %+v", a, b)
	}
	lo, hi := g.Bounds[0], g.Bounds[1]
	if a.Lon < lo.Lon || a.Lon > hi.Lon || a.Lat < lo.Lat || a.Lat > hi.Lat {
		t.Fatalf("coordinates %+v outside bounds", a)
	}
}
