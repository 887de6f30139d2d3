package domain

import "strings"

// Stop is one scheduled visit derived from a recurring job template.
// ID is stable across reorders; Address may be empty, in which case the stop
// keeps its place in the ordering but takes no part in travel computation.
type Stop struct {
	ID                       string `json:"id" db:"id"`
	Title                    string `json:"title" db:"title"`
	Address                  string `json:"address,omitempty" db:"address"`
	EstimatedDurationMinutes int    `json:"estimatedDurationMinutes" db:"estimated_duration_minutes"`
	RecurrencePattern        string `json:"recurrencePattern,omitempty" db:"recurrence_pattern"`
	CustomerName             string `json:"customerName,omitempty" db:"customer_name"`
}

// HasAddress reports whether the stop carries a non-blank address.
func (s Stop) HasAddress() bool {
	return strings.TrimSpace(s.Address) != ""
}

// StopIDs returns the ids of stops in order.
func StopIDs(stops []Stop) []string {
	ids := make([]string, 0, len(stops))
	for _, s := range stops {
		ids = append(ids, s.ID)
	}
	return ids
}

// SameIDSet reports whether a and b contain exactly the same ids, each once.
func SameIDSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	counts := make(map[string]int, len(a))
	for _, id := range a {
		counts[id]++
	}
	for _, id := range b {
		if counts[id] == 0 {
			return false
		}
		counts[id]--
	}

	return true
}
