package domain

// Segment is the travel leg between two consecutive addressed stops.
// Positions index into the full ordering, so unaddressed stops between
// From and To are skipped rather than contributing a zero-length leg.
type Segment struct {
	FromStopID        string  `json:"fromStopId"`
	ToStopID          string  `json:"toStopId"`
	FromPosition      int     `json:"fromPosition"`
	ToPosition        int     `json:"toPosition"`
	TravelTimeMinutes float64 `json:"travelTimeMinutes"`
	DistanceMiles     float64 `json:"distanceMiles"`
}

// LegResult is a provider's answer for one origin -> destination pair.
type LegResult struct {
	TravelTimeMinutes float64
	DistanceMiles     float64
}

// Band is the presentation bucket an efficiency score falls into.
type Band string

const (
	BandGood Band = "good"
	BandFair Band = "fair"
	BandPoor Band = "poor"
)

// BandFor maps a score to its band: >=75 good, 50-74 fair, <50 poor.
func BandFor(score int) Band {
	switch {
	case score >= 75:
		return BandGood
	case score >= 50:
		return BandFair
	default:
		return BandPoor
	}
}

// RouteMetrics is derived from an ordering and its segments. It is never persisted.
type RouteMetrics struct {
	TotalJobTime    int       `json:"totalJobTime"`
	TotalTravelTime float64   `json:"totalTravelTime"`
	TotalDistance   float64   `json:"totalDistance"`
	EfficiencyScore int       `json:"efficiencyScore"`
	Segments        []Segment `json:"segments"`
	Suggestions     []string  `json:"suggestions"`
}

// Band returns the presentation band of the metrics' efficiency score.
func (m RouteMetrics) Band() Band { return BandFor(m.EfficiencyScore) }
