package matcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ndt-connect/internal/metrics"
	"ndt-connect/internal/models"
)

// ProviderSource yields the active provider directory.
type ProviderSource interface {
	GetAllActive(ctx context.Context) ([]*models.Provider, error)
}

// RecommendationRequest is a client search over the provider directory.
type RecommendationRequest struct {
	Filters models.FilterCriteria         `json:"filters"`
	Weights *models.RecommendationWeights `json:"weights,omitempty"`
	Limit   int                           `json:"limit,omitempty"`
}

// RecommendationResult contains a ranked provider list and pipeline statistics.
type RecommendationResult struct {
	Providers      []models.ScoredProvider `json:"providers"`
	TotalProviders int                     `json:"total_providers"`
	FilteredOut    int                     `json:"filtered_out"`
	Returned       int                     `json:"returned"`
	ProcessingTime time.Duration           `json:"processing_time_ns"`
}

// Service fetches the directory and runs the ranking pipeline over it.
type Service struct {
	source ProviderSource
	logger *zap.Logger
}

// NewService creates a new recommendation service.
func NewService(source ProviderSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, logger: logger}
}

// Recommend ranks the active providers for a search. Missing weights enable every dimension.
func (s *Service) Recommend(ctx context.Context, req RecommendationRequest) (*RecommendationResult, error) {
	startTime := time.Now()

	filters := req.Filters.Normalize()
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	weights := models.DefaultWeights()
	if req.Weights != nil {
		weights = *req.Weights
	}

	providers, err := s.source.GetAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get providers: %w", err)
	}

	ranked := RankProviders(providers, filters, weights)
	metrics.RecommendationCandidates.Observe(float64(len(ranked)))

	result := &RecommendationResult{
		TotalProviders: len(providers),
		FilteredOut:    len(providers) - len(ranked),
	}
	result.Providers = TopN(ranked, req.Limit)
	result.Returned = len(result.Providers)
	result.ProcessingTime = time.Since(startTime)

	metrics.RecommendationsServed.Inc()

	s.logger.Info("Recommendation pipeline complete",
		zap.Int("providers", result.TotalProviders),
		zap.Int("filtered_out", result.FilteredOut),
		zap.Int("returned", result.Returned),
		zap.String("selected_service", filters.SelectedService),
		zap.Duration("processing_time", result.ProcessingTime),
	)

	return result, nil
}
