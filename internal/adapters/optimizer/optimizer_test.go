package optimizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"route-optimization-service/internal/adapters/geocode"
	"route-optimization-service/internal/domain"
	"route-optimization-service/internal/platform/httpclient"
	"slices"
	"strings"
	"testing"
	"time"
)

var workday = domain.Constraints{MaxDailyHours: 8, StartTime: "08:00", EndTime: "17:00"}

func TestHTTPClientOptimize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}

		var req optimizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Stops) != 2 || req.Constraints.StartTime != "08:00" {
			t.Errorf("unexpected request: %+v", req)
		}

		w.Write([]byte(`{
			"optimizedTemplates": [{"id": "b", "title": "B"}, {"id": "a", "title": "A"}],
			"reasoning": "b is closer to the depot",
			"estimatedTimeSaved": 12.6,
			"suggestions": ["start earlier"]
		}`))
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, "secret", httpclient.WithRetry(1, time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	res, err := c.Optimize(context.Background(), []domain.Stop{{ID: "a"}, {ID: "b"}}, workday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ids := domain.StopIDs(res.OptimizedOrdering); len(ids) != 2 || ids[0] != "b" || ids[1] != "a" {
		t.Fatalf("ordering = %v", ids)
	}
	if res.EstimatedTimeSavedMinutes != 13 {
		t.Fatalf("time saved = %d, want 13", res.EstimatedTimeSavedMinutes)
	}
	if res.Reasoning == "" || len(res.Suggestions) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestHTTPClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := NewHTTPClient(srv.URL, "", httpclient.WithRetry(2, time.Millisecond))
	if _, err := c.Optimize(context.Background(), []domain.Stop{{ID: "a"}, {ID: "b"}}, workday); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewHTTPClientRequiresEndpoint(t *testing.T) {
	if _, err := NewHTTPClient("  ", "k"); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}

func nearestFixture(t *testing.T) *NearestNeighborService {
	t.Helper()
	geo := geocode.NewStaticGeocoder(map[string]domain.Coordinates{
		"1 Start St": {Lon: -112.00, Lat: 33.40},
		"2 Far St":   {Lon: -112.00, Lat: 33.60},
		"3 Near St":  {Lon: -112.00, Lat: 33.42},
		"4 Mid St":   {Lon: -112.00, Lat: 33.50},
	})
	svc, err := NewNearestNeighborService(geo, 30)
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func TestNearestNeighborVisitsClosestNext(t *testing.T) {
	stops := []domain.Stop{
		{ID: "a", Title: "Start", Address: "1 Start St", EstimatedDurationMinutes: 30},
		{ID: "b", Title: "Far", Address: "2 Far St", EstimatedDurationMinutes: 30},
		{ID: "x", Title: "No address"},
		{ID: "c", Title: "Near", Address: "3 Near St", EstimatedDurationMinutes: 30},
		{ID: "d", Title: "Mid", Address: "4  Mid St", EstimatedDurationMinutes: 30},
	}

	res, err := nearestFixture(t).Optimize(context.Background(), stops, workday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := domain.StopIDs(res.OptimizedOrdering)
	if !slices.Equal(ids, []string{"a", "c", "d", "b", "x"}) {
		t.Fatalf("ordering = %v", ids)
	}

	// 0.46 degrees of latitude before, 0.20 after: about 18 miles saved at 30 mph.
	if res.EstimatedTimeSavedMinutes < 35 || res.EstimatedTimeSavedMinutes > 38 {
		t.Fatalf("time saved = %d", res.EstimatedTimeSavedMinutes)
	}
	if len(res.Suggestions) != 1 {
		t.Fatalf("suggestions = %v, want one about the unplaced stop", res.Suggestions)
	}
	if stops[1].ID != "b" {
		t.Fatal("input slice was modified")
	}
}

func TestNearestNeighborWarnsOverDailyLimit(t *testing.T) {
	stops := []domain.Stop{
		{ID: "a", Address: "1 Start St", EstimatedDurationMinutes: 200},
		{ID: "b", Address: "3 Near St", EstimatedDurationMinutes: 200},
	}
	short := domain.Constraints{MaxDailyHours: 4, StartTime: "08:00", EndTime: "12:00"}

	res, err := nearestFixture(t).Optimize(context.Background(), stops, short)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Suggestions) != 1 || !strings.Contains(res.Suggestions[0], "4 hour limit") {
		t.Fatalf("suggestions = %v", res.Suggestions)
	}
}

func TestNearestNeighborKeepsOrderWithoutCoordinates(t *testing.T) {
	stops := []domain.Stop{
		{ID: "a", Address: "1 Start St"},
		{ID: "b", Address: "Unknown Rd"},
		{ID: "c"},
	}

	res, err := nearestFixture(t).Optimize(context.Background(), stops, workday)
	if err != nil {
		t.Fatal(err)
	}
	if ids := domain.StopIDs(res.OptimizedOrdering); !slices.Equal(ids, []string{"a", "b", "c"}) {
		t.Fatalf("ordering = %v", ids)
	}
	if res.EstimatedTimeSavedMinutes != 0 {
		t.Fatalf("time saved = %d", res.EstimatedTimeSavedMinutes)
	}
}

func TestNewNearestNeighborServiceRequiresGeocoder(t *testing.T) {
	if _, err := NewNearestNeighborService(nil, 30); err == nil {
		t.Fatal("expected error")
	}
}
