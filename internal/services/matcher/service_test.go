package matcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndt-connect/internal/models"
)

type fakeSource struct {
	providers []*models.Provider
	err       error
	calls     int
}

func (f *fakeSource) GetAllActive(ctx context.Context) ([]*models.Provider, error) {
	f.calls++
	return f.providers, f.err
}

func TestService_Recommend(t *testing.T) {
	source := &fakeSource{providers: directory()}
	svc := NewService(source, nil)

	result, err := svc.Recommend(context.Background(), RecommendationRequest{
		Filters: models.FilterCriteria{MinRating: 3},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, 4, result.TotalProviders)
	assert.Equal(t, 1, result.FilteredOut)
	assert.Equal(t, 3, result.Returned)
	assert.Equal(t, []int64{1, 3, 2}, ids(result.Providers))
}

func TestService_Recommend_Limit(t *testing.T) {
	svc := NewService(&fakeSource{providers: directory()}, nil)

	result, err := svc.Recommend(context.Background(), RecommendationRequest{Limit: 2})

	require.NoError(t, err)
	assert.Equal(t, 4, result.TotalProviders)
	assert.Zero(t, result.FilteredOut)
	assert.Equal(t, 2, result.Returned)
	assert.Len(t, result.Providers, 2)
}

func TestService_Recommend_ExplicitWeights(t *testing.T) {
	svc := NewService(&fakeSource{providers: directory()}, nil)
	weights := models.WeightsFor(models.DimensionCertifications)

	result, err := svc.Recommend(context.Background(), RecommendationRequest{Weights: &weights})

	require.NoError(t, err)
	require.NotEmpty(t, result.Providers)
	assert.Equal(t, int64(1), result.Providers[0].ID)
	assert.Equal(t, 100.0, result.Providers[0].RecommendationScore)
	assert.InDelta(t, 20.0, result.Providers[1].RecommendationScore, 1e-9)
}

func TestService_Recommend_InvalidFilters(t *testing.T) {
	source := &fakeSource{providers: directory()}
	svc := NewService(source, nil)

	tests := []struct {
		name     string
		filters  models.FilterCriteria
		expected error
	}{
		{"rating above five", models.FilterCriteria{MinRating: 5.5}, models.ErrInvalidMinRating},
		{"negative rating", models.FilterCriteria{MinRating: -1}, models.ErrInvalidMinRating},
		{"negative budget", models.FilterCriteria{MaxBudget: -10}, models.ErrInvalidBudget},
		{"unknown verified filter", models.FilterCriteria{Verified: "maybe"}, models.ErrInvalidVerifiedFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Recommend(context.Background(), RecommendationRequest{Filters: tt.filters})
			assert.ErrorIs(t, err, tt.expected)
		})
	}
	assert.Zero(t, source.calls)
}

func TestService_Recommend_SourceError(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewService(&fakeSource{err: boom}, nil)

	_, err := svc.Recommend(context.Background(), RecommendationRequest{})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to get providers")
}
