package ports

import (
	"context"
	"route-optimization-service/internal/domain"
)

// Boundary to the external AI route optimization service.
type OptimizationService interface {
	// Return a proposed reordering of stops with its rationale.
	Optimize(ctx context.Context, stops []domain.Stop, constraints domain.Constraints) (*domain.OptimizationResult, error)
}
