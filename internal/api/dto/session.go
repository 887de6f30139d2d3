package dto

import (
	"route-optimization-service/internal/domain"
	"route-optimization-service/internal/services"
	"time"
)

// CreateSessionRequest seeds a session from a saved route or an inline stop list.
type CreateSessionRequest struct {
	RouteID string        `json:"route_id"`
	Stops   []StopRequest `json:"stops"`
}

type SessionResponse struct {
	SessionID string             `json:"session_id"`
	RouteID   string             `json:"route_id,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	View      services.RouteView `json:"view"`
	// Set when the view was computed without some derived data.
	Warning string `json:"warning,omitempty"`
}

type ReorderRequest struct {
	FromIndex *int `json:"from_index"`
	ToIndex   *int `json:"to_index"`
}

type DragRequest struct {
	SourceID      string `json:"source_id"`
	DestinationID string `json:"destination_id"`
}

type MutationResponse struct {
	Changed bool          `json:"changed"`
	Version uint64        `json:"version"`
	Stops   []domain.Stop `json:"stops"`
}

type OptimizeRequest struct {
	MaxDailyHours float64 `json:"max_daily_hours"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
}

// Constraints fills omitted fields with an 8 hour day from 08:00 to 17:00.
func (r OptimizeRequest) Constraints() domain.Constraints {
	c := domain.Constraints{
		MaxDailyHours: r.MaxDailyHours,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
	}
	if c.MaxDailyHours == 0 {
		c.MaxDailyHours = 8
	}
	if c.StartTime == "" {
		c.StartTime = "08:00"
	}
	if c.EndTime == "" {
		c.EndTime = "17:00"
	}
	return c
}

type OptimizeResponse struct {
	Ordering                  []domain.Stop `json:"ordering"`
	Reasoning                 string        `json:"reasoning"`
	EstimatedTimeSavedMinutes int           `json:"estimated_time_saved_minutes"`
	DisplayTimeSavedMinutes   int           `json:"display_time_saved_minutes"`
	Suggestions               []string      `json:"suggestions"`
}

func NewOptimizeResponse(o *services.OptimizationOutcome) OptimizeResponse {
	return OptimizeResponse{
		Ordering:                  o.Ordering,
		Reasoning:                 o.Reasoning,
		EstimatedTimeSavedMinutes: o.EstimatedTimeSavedMinutes,
		DisplayTimeSavedMinutes:   o.DisplayTimeSavedMinutes,
		Suggestions:               o.Suggestions,
	}
}

type CommitResponse struct {
	RouteID string   `json:"route_id"`
	StopIDs []string `json:"stop_ids"`
}
