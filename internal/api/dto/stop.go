package dto

import "route-optimization-service/internal/domain"

type StopRequest struct {
	ID                       string `json:"id"`
	Title                    string `json:"title"`
	Address                  string `json:"address"`
	EstimatedDurationMinutes int    `json:"estimated_duration_minutes"`
	RecurrencePattern        string `json:"recurrence_pattern"`
	CustomerName             string `json:"customer_name"`
}

func (s StopRequest) ToDomain() domain.Stop {
	return domain.Stop{
		ID:                       s.ID,
		Title:                    s.Title,
		Address:                  s.Address,
		EstimatedDurationMinutes: s.EstimatedDurationMinutes,
		RecurrencePattern:        s.RecurrencePattern,
		CustomerName:             s.CustomerName,
	}
}

type ListStopsResponse struct {
	RouteID string        `json:"route_id"`
	Stops   []domain.Stop `json:"stops"`
}
