package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"route-optimization-service/internal/domain"
	"route-optimization-service/internal/platform/httpclient"
	"route-optimization-service/internal/platform/obs"
	"strings"
	"time"
)

// HTTPClient implements OptimizationService against a remote JSON endpoint.
type HTTPClient struct {
	http     *httpclient.Client
	endpoint string
}

func NewHTTPClient(endpoint, apiKey string, opts ...httpclient.Option) (*HTTPClient, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("optimizer endpoint is empty")
	}

	if apiKey != "" {
		opts = append([]httpclient.Option{httpclient.WithHeader("Authorization", "Bearer "+apiKey)}, opts...)
	}

	// The gateway owns the deadline; the client timeout only caps a single attempt.
	return &HTTPClient{
		http:     httpclient.New(60*time.Second, opts...),
		endpoint: endpoint,
	}, nil
}

type optimizeRequest struct {
	Stops       []domain.Stop      `json:"stops"`
	Constraints domain.Constraints `json:"constraints"`
}

type optimizeResponse struct {
	OptimizedTemplates []domain.Stop `json:"optimizedTemplates"`
	Reasoning          string        `json:"reasoning"`
	EstimatedTimeSaved float64       `json:"estimatedTimeSaved"`
	Suggestions        []string      `json:"suggestions"`
}

func (c *HTTPClient) Optimize(
	ctx context.Context,
	stops []domain.Stop,
	constraints domain.Constraints,
) (_ *domain.OptimizationResult, err error) {
	defer obs.Time(ctx, "optimizer.http.Optimize")(&err)

	payload, err := json.Marshal(optimizeRequest{Stops: stops, Constraints: constraints})
	if err != nil {
		return nil, fmt.Errorf("marshal optimize request: %w", err)
	}

	resp, err := c.http.DoWithRetry(ctx, func() (*http.Request, error) {
		return c.http.NewRequest(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("optimize request failed: %w", err)
	}
	defer resp.Body.Close()

	var or optimizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return nil, fmt.Errorf("decode optimize response: %w", err)
	}

	saved := or.EstimatedTimeSaved
	if math.IsNaN(saved) || math.IsInf(saved, 0) {
		saved = 0
	}

	return &domain.OptimizationResult{
		OptimizedOrdering:         or.OptimizedTemplates,
		Reasoning:                 or.Reasoning,
		EstimatedTimeSavedMinutes: int(math.Round(saved)),
		Suggestions:               or.Suggestions,
	}, nil
}
