package services

import (
	"cmp"
	"fmt"
	"math"
	"route-optimization-service/internal/domain"
	"slices"
)

// SuggestionInput is everything a SuggestionStrategy may look at.
type SuggestionInput struct {
	Stops           []domain.Stop
	Segments        []domain.Segment
	TotalJobTime    int
	TotalTravelTime float64
	EfficiencyScore int
}

// SuggestionStrategy turns computed totals into human-readable advice.
// Implementations must be pure and deterministic.
type SuggestionStrategy interface {
	Suggest(in SuggestionInput) []string
}

// SuggestionFunc adapts a plain function to SuggestionStrategy.
type SuggestionFunc func(in SuggestionInput) []string

func (f SuggestionFunc) Suggest(in SuggestionInput) []string { return f(in) }

// DefaultSuggestions emits advice ordered by severity:
// outlier legs, then a low score, then missing addresses.
type DefaultSuggestions struct {
	// A leg longer than OutlierShare of total travel time is an outlier.
	OutlierShare float64
	// Outliers are only reported once the route has this many legs.
	MinSegmentsForOutlier int
	// Scores below PoorScore recommend AI optimization.
	PoorScore int
	// Report missing addresses once this many stops have none.
	MissingAddressThreshold int
}

func NewDefaultSuggestions() DefaultSuggestions {
	return DefaultSuggestions{
		OutlierShare:            0.4,
		MinSegmentsForOutlier:   3,
		PoorScore:               50,
		MissingAddressThreshold: 2,
	}
}

func (d DefaultSuggestions) Suggest(in SuggestionInput) []string {
	out := []string{}

	if len(in.Segments) >= d.MinSegmentsForOutlier && in.TotalTravelTime > 0 {
		limit := d.OutlierShare * in.TotalTravelTime

		outliers := make([]domain.Segment, 0, 2)
		for _, seg := range in.Segments {
			if seg.TravelTimeMinutes > limit {
				outliers = append(outliers, seg)
			}
		}

		// Longest leg first; ties keep route order.
		slices.SortStableFunc(outliers, func(a, b domain.Segment) int {
			return cmp.Compare(b.TravelTimeMinutes, a.TravelTimeMinutes)
		})

		titles := make(map[string]string, len(in.Stops))
		for _, s := range in.Stops {
			titles[s.ID] = stopLabel(s)
		}

		for _, seg := range outliers {
			share := math.Round(100 * seg.TravelTimeMinutes / in.TotalTravelTime)
			out = append(out, fmt.Sprintf(
				"Consider repositioning %q (stop %d): the drive that follows it takes %.0f%% of total travel time.",
				titles[seg.FromStopID], seg.FromPosition+1, share,
			))
		}
	}

	if in.EfficiencyScore < d.PoorScore {
		out = append(out, "Travel takes up a large share of this route. Try AI optimization to find a tighter stop order.")
	}

	missing := 0
	for _, s := range in.Stops {
		if !s.HasAddress() {
			missing++
		}
	}
	if missing >= d.MissingAddressThreshold {
		out = append(out, fmt.Sprintf("Add addresses to the %d stops without one to get accurate travel estimates.", missing))
	}

	return out
}

func stopLabel(s domain.Stop) string {
	if s.Title != "" {
		return s.Title
	}
	if s.CustomerName != "" {
		return s.CustomerName
	}
	return s.ID
}

// MetricsCalculator derives RouteMetrics from an ordering and its travel segments.
// Compute never fails: malformed numbers degrade to zero instead of erroring.
type MetricsCalculator struct {
	suggestions SuggestionStrategy
}

// NewMetricsCalculator uses strategy for suggestions, or the defaults when nil.
func NewMetricsCalculator(strategy SuggestionStrategy) *MetricsCalculator {
	if strategy == nil {
		strategy = NewDefaultSuggestions()
	}
	return &MetricsCalculator{suggestions: strategy}
}

var defaultCalculator = NewMetricsCalculator(nil)

// ComputeMetrics runs the default calculator.
func ComputeMetrics(stops []domain.Stop, segments []domain.Segment) domain.RouteMetrics {
	return defaultCalculator.Compute(stops, segments)
}

func (c *MetricsCalculator) Compute(stops []domain.Stop, segments []domain.Segment) domain.RouteMetrics {
	// Job time counts every stop, addressed or not.
	jobTime := 0
	for _, s := range stops {
		if s.EstimatedDurationMinutes > 0 {
			jobTime += s.EstimatedDurationMinutes
		}
	}

	segs := make([]domain.Segment, 0, len(segments))
	travelTime := 0.0
	distance := 0.0
	for _, seg := range segments {
		seg.TravelTimeMinutes = nonNegative(seg.TravelTimeMinutes)
		seg.DistanceMiles = nonNegative(seg.DistanceMiles)
		travelTime += seg.TravelTimeMinutes
		distance += seg.DistanceMiles
		segs = append(segs, seg)
	}

	score := EfficiencyScore(jobTime, travelTime)

	suggestions := c.suggestions.Suggest(SuggestionInput{
		Stops:           stops,
		Segments:        segs,
		TotalJobTime:    jobTime,
		TotalTravelTime: travelTime,
		EfficiencyScore: score,
	})
	if suggestions == nil {
		suggestions = []string{}
	}

	return domain.RouteMetrics{
		TotalJobTime:    jobTime,
		TotalTravelTime: travelTime,
		TotalDistance:   distance,
		EfficiencyScore: score,
		Segments:        segs,
		Suggestions:     suggestions,
	}
}

// EfficiencyScore is the share of elapsed time spent working, 0-100.
// A route with no travel, including an empty one, scores 100.
func EfficiencyScore(jobTime int, travelTime float64) int {
	travelTime = nonNegative(travelTime)
	if jobTime < 0 {
		jobTime = 0
	}
	if travelTime == 0 {
		return 100
	}

	total := float64(jobTime) + travelTime
	return int(math.Round(100 * float64(jobTime) / total))
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if math.IsInf(v, 1) {
		return math.MaxFloat64
	}
	return v
}
