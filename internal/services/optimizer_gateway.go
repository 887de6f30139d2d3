package services

import (
	"context"
	"errors"
	"route-optimization-service/internal/domain"
	"route-optimization-service/internal/platform/obs"
	"route-optimization-service/internal/ports"
	"time"
)

// OptimizationOutcome is what the caller sees after a successful optimization.
// It is produced only when the proposed ordering was applied.
type OptimizationOutcome struct {
	Ordering                  []domain.Stop `json:"ordering"`
	Reasoning                 string        `json:"reasoning"`
	EstimatedTimeSavedMinutes int           `json:"estimatedTimeSavedMinutes"`
	DisplayTimeSavedMinutes   int           `json:"displayTimeSavedMinutes"`
	Suggestions               []string      `json:"suggestions"`
}

// OptimizerGateway sends the current ordering to the optimization service and
// applies its answer. The answer is checked against the store's stop set at
// the time it arrives, not at the time it was requested.
type OptimizerGateway struct {
	store   *OrderingStore
	service ports.OptimizationService
	timeout time.Duration
}

func NewOptimizerGateway(store *OrderingStore, service ports.OptimizationService, timeout time.Duration) *OptimizerGateway {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &OptimizerGateway{store: store, service: service, timeout: timeout}
}

// Optimize blocks until the service answers, ctx ends or the timeout passes.
//
// Errors:
//   - ValidationError: fewer than 2 stops, bad constraints, a result that is not a
//     permutation of the current stops (wrapping ErrStaleResult if the stops changed
//     mid-flight).
//   - TransientServiceError: the service failed or timed out.
//   - ctx.Err(): the caller went away; nothing is applied.
//
// On any error the ordering is unchanged.
func (g *OptimizerGateway) Optimize(ctx context.Context, constraints domain.Constraints) (_ *OptimizationOutcome, err error) {
	const op = "optimize route"
	defer obs.Time(ctx, "optimizer.Optimize")(&err)

	stops := g.store.Ordering()
	if len(stops) < 2 {
		return nil, domain.NewValidationError(op, "add at least 2 stops before optimizing", domain.ErrNotEnoughStops)
	}
	if err := constraints.Validate(); err != nil {
		return nil, domain.NewValidationError(op, "invalid constraints", err)
	}
	if g.service == nil {
		return nil, &domain.TransientServiceError{Service: "route optimizer", Err: errors.New("no optimization service configured")}
	}

	requested := domain.StopIDs(stops)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.service.Optimize(callCtx, stops, constraints)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, &domain.TransientServiceError{Service: "route optimizer", Err: err}
	}
	if result == nil {
		return nil, &domain.TransientServiceError{Service: "route optimizer", Err: errors.New("empty response")}
	}

	applied, err := g.store.replace(result.OptimizedOrdering, requested)
	if err != nil {
		return nil, err
	}

	suggestions := result.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}

	return &OptimizationOutcome{
		Ordering:                  applied,
		Reasoning:                 result.Reasoning,
		EstimatedTimeSavedMinutes: result.EstimatedTimeSavedMinutes,
		DisplayTimeSavedMinutes:   result.DisplayTimeSaved(),
		Suggestions:               suggestions,
	}, nil
}
