package domain

import (
	"fmt"
	"time"
)

// Constraints bound the working day handed to the optimization service.
// StartTime and EndTime use the "HH:MM" 24h format.
type Constraints struct {
	MaxDailyHours float64 `json:"maxDailyHours"`
	StartTime     string  `json:"startTime"`
	EndTime       string  `json:"endTime"`
}

// Validate checks the constraint values before they leave the process.
func (c Constraints) Validate() error {
	if c.MaxDailyHours <= 0 || c.MaxDailyHours > 24 {
		return fmt.Errorf("maxDailyHours must be in (0, 24], got %v", c.MaxDailyHours)
	}

	start, err := time.Parse("15:04", c.StartTime)
	if err != nil {
		return fmt.Errorf("startTime %q is not HH:MM", c.StartTime)
	}

	end, err := time.Parse("15:04", c.EndTime)
	if err != nil {
		return fmt.Errorf("endTime %q is not HH:MM", c.EndTime)
	}

	if !end.After(start) {
		return fmt.Errorf("endTime %s must be after startTime %s", c.EndTime, c.StartTime)
	}

	return nil
}

// OptimizationResult is the optimization service's answer. OptimizedOrdering
// is untrusted until checked against the current stop-id set.
type OptimizationResult struct {
	OptimizedOrdering         []Stop
	Reasoning                 string
	EstimatedTimeSavedMinutes int
	Suggestions               []string
}

// DisplayTimeSaved clamps negative savings to zero. Internal math keeps the raw value.
func (r OptimizationResult) DisplayTimeSaved() int {
	if r.EstimatedTimeSavedMinutes < 0 {
		return 0
	}
	return r.EstimatedTimeSavedMinutes
}
