package travel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"route-optimization-service/internal/domain"
	"route-optimization-service/internal/platform/httpclient"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type memoryTravelCache struct {
	mu sync.Mutex
	m  map[string]map[string]domain.LegResult
}

func newMemoryTravelCache() *memoryTravelCache {
	return &memoryTravelCache{m: make(map[string]map[string]domain.LegResult)}
}

func (c *memoryTravelCache) GetMany(_ context.Context, origin string, destinations []string) (map[string]domain.LegResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]domain.LegResult)
	for _, d := range destinations {
		if r, ok := c.m[origin][d]; ok {
			out[d] = r
		}
	}
	return out, nil
}

func (c *memoryTravelCache) PutMany(_ context.Context, origin string, results map[string]domain.LegResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m[origin] == nil {
		c.m[origin] = make(map[string]domain.LegResult)
	}
	for d, r := range results {
		c.m[origin][d] = r
	}
	return nil
}

func loc(addr string, lon, lat float64) domain.Location {
	return domain.Location{Address: addr, Coords: domain.Coordinates{Lon: lon, Lat: lat}}
}

func ptr(v float64) *float64 { return &v }

// matrixServer answers with an n x n matrix whose diagonal holds leg i as
// (i+1) miles and (i+1)*10 minutes; off-diagonal cells are junk.
func matrixServer(t *testing.T, calls *atomic.Int32, lastReq *matrixRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/v2/matrix/driving-car" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "ors-key" {
			t.Errorf("missing api key header")
		}

		var req matrixRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		*lastReq = req

		n := len(req.Sources)
		resp := matrixResponse{
			Distances: make([][]*float64, n),
			Durations: make([][]*float64, n),
		}
		for i := 0; i < n; i++ {
			resp.Distances[i] = make([]*float64, n)
			resp.Durations[i] = make([]*float64, n)
			for j := 0; j < n; j++ {
				resp.Distances[i][j] = ptr(99999)
				resp.Durations[i][j] = ptr(99999)
			}
			resp.Distances[i][i] = ptr(float64(i+1) * metersPerMile)
			resp.Durations[i][i] = ptr(float64(i+1) * 600)
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestORSProviderReadsMatrixDiagonal(t *testing.T) {
	var calls atomic.Int32
	var req matrixRequest
	srv := matrixServer(t, &calls, &req)
	defer srv.Close()

	p, err := NewORSProvider("ors-key", nil, httpclient.WithRetry(1, time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	p.WithBaseURL(srv.URL)

	a, b, c := loc("A St", -112.0, 33.4), loc("B St", -112.1, 33.5), loc("C St", -112.2, 33.6)
	got, err := p.TravelSegments(context.Background(), []domain.Location{a, b}, []domain.Location{b, c})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []domain.LegResult{
		{TravelTimeMinutes: 10, DistanceMiles: 1},
		{TravelTimeMinutes: 20, DistanceMiles: 2},
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("legs = %+v, want %+v", got, want)
	}

	if len(req.Locations) != 4 {
		t.Fatalf("locations = %v, want origins then destinations", req.Locations)
	}
	if req.Sources[1] != 1 || req.Destinations[0] != 2 || req.Destinations[1] != 3 {
		t.Fatalf("sources=%v destinations=%v", req.Sources, req.Destinations)
	}
	if req.Locations[0][0] != -112.0 || req.Locations[3][1] != 33.6 {
		t.Fatalf("locations must be [lon, lat]: %v", req.Locations)
	}
}

func TestORSProviderUsesCache(t *testing.T) {
	var calls atomic.Int32
	var req matrixRequest
	srv := matrixServer(t, &calls, &req)
	defer srv.Close()

	cache := newMemoryTravelCache()
	cache.PutMany(context.Background(), "A St", map[string]domain.LegResult{
		"B St": {TravelTimeMinutes: 7, DistanceMiles: 3},
	})

	p, _ := NewORSProvider("ors-key", cache, httpclient.WithRetry(1, time.Millisecond))
	p.WithBaseURL(srv.URL)

	a, b, c := loc("A St", -112.0, 33.4), loc("B  St", -112.1, 33.5), loc("C St", -112.2, 33.6)
	got, err := p.TravelSegments(context.Background(), []domain.Location{a, b}, []domain.Location{b, c})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].TravelTimeMinutes != 7 {
		t.Fatalf("cached leg = %+v", got[0])
	}
	if got[1].TravelTimeMinutes != 10 {
		t.Fatalf("fetched leg = %+v", got[1])
	}
	if calls.Load() != 1 || len(req.Sources) != 1 {
		t.Fatalf("expected one request for the single miss, calls=%d sources=%v", calls.Load(), req.Sources)
	}
	if _, ok := cache.m["B St"]["C St"]; !ok {
		t.Fatal("fetched leg was not written back to the cache")
	}

	if _, err := p.TravelSegments(context.Background(), []domain.Location{a, b}, []domain.Location{b, c}); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Fatalf("warm cache still hit the API: calls=%d", calls.Load())
	}
}

func TestORSProviderSameAddressIsFree(t *testing.T) {
	var calls atomic.Int32
	var req matrixRequest
	srv := matrixServer(t, &calls, &req)
	defer srv.Close()

	p, _ := NewORSProvider("ors-key", nil)
	p.WithBaseURL(srv.URL)

	a := loc("A St", -112.0, 33.4)
	got, err := p.TravelSegments(context.Background(), []domain.Location{a}, []domain.Location{loc(" A St ", -112.0, 33.4)})
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != (domain.LegResult{}) || calls.Load() != 0 {
		t.Fatalf("expected zero leg without a request, got %+v calls=%d", got[0], calls.Load())
	}
}

func TestORSProviderNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"distances":[[null]],"durations":[[null]]}`))
	}))
	defer srv.Close()

	p, _ := NewORSProvider("ors-key", nil)
	p.WithBaseURL(srv.URL)

	_, err := p.TravelSegments(context.Background(),
		[]domain.Location{loc("A St", 1, 1)}, []domain.Location{loc("B St", 2, 2)})
	if err == nil {
		t.Fatal("expected error for an unroutable leg")
	}
}

func TestCheckPairsLengthMismatch(t *testing.T) {
	p := NewStaticProvider(nil)
	if _, err := p.TravelSegments(context.Background(), []domain.Location{loc("A", 0, 0)}, nil); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestORSProviderSplitsLongRoutesIntoChunks(t *testing.T) {
	var calls atomic.Int32
	var req matrixRequest
	srv := matrixServer(t, &calls, &req)
	defer srv.Close()

	p, _ := NewORSProvider("ors-key", nil, httpclient.WithRetry(1, time.Millisecond))
	p.WithBaseURL(srv.URL)
	p.maxLegsPerRequest = 2

	stops := []domain.Location{
		loc("A St", -112.0, 33.40),
		loc("B St", -112.1, 33.41),
		loc("C St", -112.2, 33.42),
		loc("D St", -112.3, 33.43),
		loc("E St", -112.4, 33.44),
		loc("F St", -112.5, 33.45),
	}
	got, err := p.TravelSegments(context.Background(), stops[:5], stops[1:])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := calls.Load(); n != 3 {
		t.Fatalf("matrix requests = %d, want 3", n)
	}
	if len(req.Sources) != 1 || len(req.Locations) != 2 {
		t.Fatalf("last request sources=%v locations=%d, want the single remaining leg", req.Sources, len(req.Locations))
	}

	wantMinutes := []float64{10, 20, 10, 20, 10}
	if len(got) != len(wantMinutes) {
		t.Fatalf("legs = %d, want %d", len(got), len(wantMinutes))
	}
	for i, w := range wantMinutes {
		if got[i].TravelTimeMinutes != w {
			t.Fatalf("leg %d minutes = %v, want %v (legs %+v)", i, got[i].TravelTimeMinutes, w, got)
		}
	}
}
