package mapbox

import (
	"context"
	"errors"
	"testing"

	"github.com/couchcryptid/outage-tracker/internal/domain"
	"github.com/couchcryptid/outage-tracker/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGeocoder struct {
	forwardCalls int
	reverseCalls int
	result       domain.GeocodingResult
	err          error
}

func (m *countingGeocoder) ForwardGeocode(_ context.Context, _ string) (domain.GeocodingResult, error) {
	m.forwardCalls++
	return m.result, m.err
}

func (m *countingGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	m.reverseCalls++
	return m.result, m.err
}

func TestCachedGeocoder_ForwardCacheHit(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{Lat: -8.05, Lon: -34.9, City: "Recife"}}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedGeocoder(inner, 10, metrics)

	r1, err := cached.ForwardGeocode(context.Background(), "Rua A, Recife")
	require.NoError(t, err)
	r2, err := cached.ForwardGeocode(context.Background(), "  rua a,   RECIFE ")
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, inner.forwardCalls, "normalized queries share one entry")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("forward", "hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("forward", "miss")), 0)
}

func TestCachedGeocoder_ReverseCacheHit(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{Street: "Rua A", City: "Recife"}}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.ReverseGeocode(context.Background(), -8.0631, -34.8771)
	require.NoError(t, err)
	_, err = cached.ReverseGeocode(context.Background(), -8.0631, -34.8771)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.reverseCalls)
}

func TestCachedGeocoder_DoesNotCacheEmptyOrErrors(t *testing.T) {
	tests := []struct {
		name  string
		inner *countingGeocoder
	}{
		{"empty result", &countingGeocoder{}},
		{"error", &countingGeocoder{err: errors.New("timeout")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cached := NewCachedGeocoder(tt.inner, 10, observability.NewMetricsForTesting())

			_, _ = cached.ForwardGeocode(context.Background(), "Recife")
			_, _ = cached.ForwardGeocode(context.Background(), "Recife")

			assert.Equal(t, 2, tt.inner.forwardCalls)
			assert.Zero(t, cached.cache.len())
		})
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", domain.GeocodingResult{City: "A"})
	c.put("b", domain.GeocodingResult{City: "B"})
	c.put("c", domain.GeocodingResult{City: "C"})

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	result, ok := c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", result.City)
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", domain.GeocodingResult{City: "A"})
	c.put("b", domain.GeocodingResult{City: "B"})
	c.get("a")
	c.put("c", domain.GeocodingResult{City: "C"})

	_, ok := c.get("a")
	assert.True(t, ok, "a was used recently")
	_, ok = c.get("b")
	assert.False(t, ok, "b was least recently used")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", domain.GeocodingResult{City: "A1"})
	c.put("a", domain.GeocodingResult{City: "A2"})

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", result.City)
	assert.Equal(t, 1, c.len())
}
