package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndt-connect/internal/metrics"
	"ndt-connect/internal/models"
)

type countingSource struct {
	providers []*models.Provider
	err       error
	calls     int
}

func (s *countingSource) GetAllActive(ctx context.Context) ([]*models.Provider, error) {
	s.calls++
	return s.providers, s.err
}

func setupCache(t *testing.T, source ProviderSource) (*ProviderCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewProviderCache(client, source, time.Minute, nil), mr
}

func testProviders() []*models.Provider {
	return []*models.Provider{
		{
			ID:          1,
			UserID:      "PRV001",
			UserType:    models.UserTypeProvider,
			CompanyName: "Gulf NDT Services",
			Rating:      4.5,
			Services:    []models.ServiceOffering{{ServiceID: "ut", Charge: 400, Currency: "AED"}},
			Verified:    true,
			IsActive:    true,
		},
		{ID: 2, UserID: "INS002", UserType: models.UserTypeInspector, CompanyName: "Sara", IsActive: true},
	}
}

func TestProviderCache_ReadThrough(t *testing.T) {
	source := &countingSource{providers: testProviders()}
	cache, mr := setupCache(t, source)
	ctx := context.Background()

	hits := testutil.ToFloat64(metrics.ProviderCacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(metrics.ProviderCacheLookups.WithLabelValues("miss"))

	first, err := cache.GetAllActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)
	assert.True(t, mr.Exists(ActiveProvidersKey))

	second, err := cache.GetAllActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls, "second read should be served from Redis")
	assert.Equal(t, first, second)

	assert.Equal(t, misses+1, testutil.ToFloat64(metrics.ProviderCacheLookups.WithLabelValues("miss")))
	assert.Equal(t, hits+1, testutil.ToFloat64(metrics.ProviderCacheLookups.WithLabelValues("hit")))
}

func TestProviderCache_TTL(t *testing.T) {
	source := &countingSource{providers: testProviders()}
	cache, mr := setupCache(t, source)
	ctx := context.Background()

	_, err := cache.GetAllActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(ActiveProvidersKey))

	mr.FastForward(2 * time.Minute)

	_, err = cache.GetAllActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}

func TestProviderCache_Invalidate(t *testing.T) {
	source := &countingSource{providers: testProviders()}
	cache, mr := setupCache(t, source)
	ctx := context.Background()

	_, err := cache.GetAllActive(ctx)
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(ctx))
	assert.False(t, mr.Exists(ActiveProvidersKey))

	_, err = cache.GetAllActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}

func TestProviderCache_CorruptEntryFallsThrough(t *testing.T) {
	source := &countingSource{providers: testProviders()}
	cache, mr := setupCache(t, source)

	require.NoError(t, mr.Set(ActiveProvidersKey, "{not json"))

	providers, err := cache.GetAllActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, providers, 2)
	assert.Equal(t, 1, source.calls)
}

func TestProviderCache_RedisDownFallsThrough(t *testing.T) {
	source := &countingSource{providers: testProviders()}
	cache, mr := setupCache(t, source)
	mr.Close()

	providers, err := cache.GetAllActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, providers, 2)
	assert.Error(t, cache.Ping(context.Background()))
}

func TestProviderCache_SourceError(t *testing.T) {
	boom := errors.New("database unavailable")
	cache, mr := setupCache(t, &countingSource{err: boom})

	_, err := cache.GetAllActive(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(ActiveProvidersKey))
}
