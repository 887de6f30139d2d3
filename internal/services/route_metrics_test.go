package services

import (
	"math"
	"route-optimization-service/internal/domain"
	"strings"
	"testing"

	"github.com/kr/pretty"
)

func jobStops() []domain.Stop {
	return []domain.Stop{
		{ID: "A", Title: "A", EstimatedDurationMinutes: 30},
		{ID: "B", Title: "B", EstimatedDurationMinutes: 45},
		{ID: "C", Title: "C", EstimatedDurationMinutes: 20},
	}
}

func TestComputeMetricsWithoutTravel(t *testing.T) {
	m := ComputeMetrics(jobStops(), nil)

	want := domain.RouteMetrics{
		TotalJobTime:    95,
		TotalTravelTime: 0,
		TotalDistance:   0,
		EfficiencyScore: 100,
		Segments:        []domain.Segment{},
		Suggestions: []string{
			"Add addresses to the 3 stops without one to get accurate travel estimates.",
		},
	}
	if diff := pretty.Diff(m, want); len(diff) > 0 {
		t.Fatalf("metrics mismatch:\n%s", strings.Join(diff, "\n"))
	}
	if m.Band() != domain.BandGood {
		t.Fatalf("band = %s, want good", m.Band())
	}
}

func TestComputeMetricsWithSegments(t *testing.T) {
	stops := jobStops()
	for i := range stops {
		stops[i].Address = stops[i].ID + " St"
	}
	segments := []domain.Segment{
		{FromStopID: "A", ToStopID: "B", FromPosition: 0, ToPosition: 1, TravelTimeMinutes: 10, DistanceMiles: 5},
		{FromStopID: "B", ToStopID: "C", FromPosition: 1, ToPosition: 2, TravelTimeMinutes: 5, DistanceMiles: 2},
	}

	m := ComputeMetrics(stops, segments)

	if m.TotalJobTime != 95 {
		t.Errorf("TotalJobTime = %d, want 95", m.TotalJobTime)
	}
	if m.TotalTravelTime != 15 {
		t.Errorf("TotalTravelTime = %v, want 15", m.TotalTravelTime)
	}
	if m.TotalDistance != 7 {
		t.Errorf("TotalDistance = %v, want 7", m.TotalDistance)
	}
	if m.EfficiencyScore != 86 {
		t.Errorf("EfficiencyScore = %d, want 86", m.EfficiencyScore)
	}
	if len(m.Segments) != 2 {
		t.Errorf("segments = %d, want 2", len(m.Segments))
	}
}

func TestEfficiencyScoreDegenerateCases(t *testing.T) {
	tests := []struct {
		name   string
		job    int
		travel float64
		want   int
	}{
		{"empty route", 0, 0, 100},
		{"no travel", 30, 0, 100},
		{"travel only", 0, 10, 0},
		{"negative travel", 30, -5, 100},
		{"nan travel", 30, math.NaN(), 100},
		{"even split", 50, 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EfficiencyScore(tt.job, tt.travel); got != tt.want {
				t.Fatalf("EfficiencyScore(%d, %v) = %d, want %d", tt.job, tt.travel, got, tt.want)
			}
		})
	}
}

func TestEfficiencyScoreNeverIncreasesWithTravel(t *testing.T) {
	for _, job := range []int{0, 1, 20, 95, 480} {
		prev := EfficiencyScore(job, 0)
		for travel := 0.25; travel < 1000; travel *= 1.5 {
			got := EfficiencyScore(job, travel)
			if got > prev {
				t.Fatalf("job=%d travel=%v: score rose from %d to %d", job, travel, prev, got)
			}
			prev = got
		}
	}
}

func TestBandBoundaries(t *testing.T) {
	tests := map[int]domain.Band{
		100: domain.BandGood,
		75:  domain.BandGood,
		74:  domain.BandFair,
		50:  domain.BandFair,
		49:  domain.BandPoor,
		0:   domain.BandPoor,
	}
	for score, want := range tests {
		if got := domain.BandFor(score); got != want {
			t.Errorf("BandFor(%d) = %s, want %s", score, got, want)
		}
	}
}

func TestComputeMetricsClampsMalformedSegments(t *testing.T) {
	segments := []domain.Segment{
		{FromStopID: "A", ToStopID: "B", TravelTimeMinutes: -4, DistanceMiles: math.NaN()},
	}

	m := ComputeMetrics(jobStops(), segments)

	if m.TotalTravelTime != 0 || m.TotalDistance != 0 {
		t.Fatalf("expected clamped totals, got travel=%v distance=%v", m.TotalTravelTime, m.TotalDistance)
	}
	if m.EfficiencyScore != 100 {
		t.Fatalf("EfficiencyScore = %d, want 100", m.EfficiencyScore)
	}
}

func TestDefaultSuggestionsOrdering(t *testing.T) {
	stops := []domain.Stop{
		{ID: "a", Title: "Lawn care", Address: "1 A St", EstimatedDurationMinutes: 60},
		{ID: "b", Title: "Pool", Address: "2 B St", EstimatedDurationMinutes: 60},
		{ID: "c", Title: "Hedges", Address: "3 C St", EstimatedDurationMinutes: 60},
		{ID: "d", Title: "Trees", Address: "4 D St", EstimatedDurationMinutes: 60},
		{ID: "e", Title: "Gutters", EstimatedDurationMinutes: 10},
		{ID: "f", Title: "Windows", EstimatedDurationMinutes: 10},
	}
	segments := []domain.Segment{
		{FromStopID: "a", ToStopID: "b", FromPosition: 0, ToPosition: 1, TravelTimeMinutes: 30},
		{FromStopID: "b", ToStopID: "c", FromPosition: 1, ToPosition: 2, TravelTimeMinutes: 5},
		{FromStopID: "c", ToStopID: "d", FromPosition: 2, ToPosition: 3, TravelTimeMinutes: 5},
	}

	m := ComputeMetrics(stops, segments)

	if len(m.Suggestions) != 2 {
		t.Fatalf("suggestions = %# v", pretty.Formatter(m.Suggestions))
	}
	if !strings.Contains(m.Suggestions[0], `"Lawn care" (stop 1)`) {
		t.Errorf("first suggestion should name the outlier leg, got %q", m.Suggestions[0])
	}
	if !strings.Contains(m.Suggestions[1], "2 stops without one") {
		t.Errorf("second suggestion should report missing addresses, got %q", m.Suggestions[1])
	}
}

func TestDefaultSuggestionsPoorScore(t *testing.T) {
	stops := []domain.Stop{
		{ID: "a", Title: "A", Address: "1 A St", EstimatedDurationMinutes: 5},
		{ID: "b", Title: "B", Address: "2 B St", EstimatedDurationMinutes: 5},
	}
	segments := []domain.Segment{{FromStopID: "a", ToStopID: "b", TravelTimeMinutes: 90}}

	m := ComputeMetrics(stops, segments)

	if m.Band() != domain.BandPoor {
		t.Fatalf("band = %s, want poor", m.Band())
	}
	if len(m.Suggestions) != 1 || !strings.Contains(m.Suggestions[0], "AI optimization") {
		t.Fatalf("suggestions = %v", m.Suggestions)
	}
}

func TestCustomSuggestionStrategy(t *testing.T) {
	var seen SuggestionInput
	calc := NewMetricsCalculator(SuggestionFunc(func(in SuggestionInput) []string {
		seen = in
		return nil
	}))

	m := calc.Compute(jobStops(), nil)

	if m.Suggestions == nil || len(m.Suggestions) != 0 {
		t.Fatalf("suggestions = %#v, want empty non-nil slice", m.Suggestions)
	}
	if seen.TotalJobTime != 95 || seen.EfficiencyScore != 100 {
		t.Fatalf("strategy input = %+v", seen)
	}
}
