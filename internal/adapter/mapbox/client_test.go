package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/outage-tracker/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string) *Client {
	return &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func recifeFeature() feature {
	return feature{
		ID:        "address.4821",
		Center:    []float64{-34.8771, -8.0631},
		Text:      "Rua da Aurora",
		Address:   "295",
		Relevance: 0.95,
		Context: []contextEntry{
			{ID: "neighborhood.101", Text: "Boa Vista"},
			{ID: "postcode.202", Text: "50050-000"},
			{ID: "place.303", Text: "Recife"},
			{ID: "region.404", Text: "Pernambuco"},
			{ID: "country.505", Text: "Brazil"},
		},
	}
}

func serveFeatures(t *testing.T, features ...feature) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		assert.NoError(t, json.NewEncoder(w).Encode(response{Features: features}))
	}))
}

func TestClient_ForwardGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "Rua da Aurora")
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))

		w.Header().Set(headerContentType, contentTypeJSON)
		assert.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{recifeFeature()}}))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	result, err := c.ForwardGeocode(context.Background(), "Rua da Aurora, Recife")
	require.NoError(t, err)

	assert.InDelta(t, -8.0631, result.Lat, 0.00001)
	assert.InDelta(t, -34.8771, result.Lon, 0.00001)
	assert.Equal(t, "Rua da Aurora 295", result.Street)
	assert.Equal(t, "Boa Vista", result.District)
	assert.Equal(t, "Recife", result.City)
	assert.Equal(t, "Pernambuco", result.Region)
	assert.Equal(t, "50050-000", result.PostalCode)
	assert.InDelta(t, 0.95, result.Confidence, 0.0001)
	assert.Equal(t, "Rua da Aurora 295, Boa Vista, Recife, Pernambuco", result.Location())
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues("forward", "success")), 0)
}

func TestClient_ReverseGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "-34.877100,-8.063100")
		w.Header().Set(headerContentType, contentTypeJSON)
		assert.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{recifeFeature()}}))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	result, err := c.ReverseGeocode(context.Background(), -8.0631, -34.8771)
	require.NoError(t, err)

	assert.Equal(t, "Boa Vista", result.District)
	assert.Equal(t, "Recife", result.City)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues("reverse", "success")), 0)
}

func TestFeature_ToResult_LocalityFallsBackToDistrict(t *testing.T) {
	f := feature{
		ID:   "place.1",
		Text: "Olinda",
		Context: []contextEntry{
			{ID: "locality.2", Text: "Carmo"},
			{ID: "region.3", Text: "Pernambuco"},
		},
	}

	result := f.toResult()
	assert.Empty(t, result.Street)
	assert.Equal(t, "Carmo", result.District)
	assert.Equal(t, "Olinda", result.City)
	assert.Equal(t, "Pernambuco", result.Region)
}

func TestClient_ForwardGeocode_NoResults(t *testing.T) {
	srv := serveFeatures(t)
	defer srv.Close()

	c := testClient(srv.URL)
	result, err := c.ForwardGeocode(context.Background(), "nowhere at all")
	require.NoError(t, err)
	assert.True(t, result.Empty())
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues("forward", "empty")), 0)
}

func TestClient_ForwardGeocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.token = "bad-token"

	_, err := c.ForwardGeocode(context.Background(), "Recife")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues("forward", "error")), 0)
}

func TestClient_ForwardGeocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

	_, err := c.ForwardGeocode(context.Background(), "Recife")
	require.Error(t, err)
}
