package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/outage-tracker/internal/domain"
	"github.com/couchcryptid/outage-tracker/internal/observability"
)

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.mapbox.com/geocoding/v5/mapbox.places",
		logger:  logger,
		metrics: metrics,
	}
}

// ForwardGeocode converts a free-text address to coordinates.
func (c *Client) ForwardGeocode(ctx context.Context, query string) (domain.GeocodingResult, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(strings.TrimSpace(query)))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"address,street,neighborhood,locality,place"},
	}

	return c.doRequest(ctx, u+"?"+params.Encode(), "forward")
}

// ReverseGeocode converts coordinates to an address.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	// Mapbox uses lon,lat order.
	coord := fmt.Sprintf("%.6f,%.6f", lon, lat)
	u := fmt.Sprintf("%s/%s.json", c.baseURL, coord)
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"address"},
	}

	return c.doRequest(ctx, u+"?"+params.Encode(), "reverse")
}

func (c *Client) doRequest(ctx context.Context, fullURL, method string) (domain.GeocodingResult, error) {
	start := time.Now()
	result, err := c.fetch(ctx, fullURL, method)
	c.metrics.GeocodeAPIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
	case result.Empty():
		c.metrics.GeocodeRequests.WithLabelValues(method, "empty").Inc()
		c.logger.Debug("geocoding returned no features", "method", method)
	default:
		c.metrics.GeocodeRequests.WithLabelValues(method, "success").Inc()
	}
	return result, err
}

func (c *Client) fetch(ctx context.Context, fullURL, method string) (domain.GeocodingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("%s geocode request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.GeocodingResult{}, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("decode response: %w", err)
	}

	if len(mapboxResp.Features) == 0 {
		return domain.GeocodingResult{}, nil
	}
	return mapboxResp.Features[0].toResult(), nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

// Feature and context IDs are "<type>.<n>", e.g. "address.123". Center is
// [lon, lat]. Address holds the house number on address features.
type feature struct {
	ID        string         `json:"id"`
	Center    []float64      `json:"center"`
	Text      string         `json:"text"`
	Address   string         `json:"address"`
	Relevance float64        `json:"relevance"`
	Context   []contextEntry `json:"context"`
}

type contextEntry struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// toResult flattens a feature and its context hierarchy into address parts.
func (f feature) toResult() domain.GeocodingResult {
	result := domain.GeocodingResult{Confidence: f.Relevance}
	if len(f.Center) == 2 {
		result.Lon = f.Center[0]
		result.Lat = f.Center[1]
	}

	// The feature itself is the most specific level of its own hierarchy.
	entries := append([]contextEntry{{ID: f.ID, Text: f.Text}}, f.Context...)
	for _, e := range entries {
		kind, _, _ := strings.Cut(e.ID, ".")
		switch kind {
		case "address", "street":
			result.Street = e.Text
			if f.Address != "" && kind == "address" {
				result.Street = e.Text + " " + f.Address
			}
		case "neighborhood":
			result.District = e.Text
		case "locality":
			if result.District == "" {
				result.District = e.Text
			}
		case "place":
			result.City = e.Text
		case "region":
			result.Region = e.Text
		case "postcode":
			result.PostalCode = e.Text
		}
	}
	return result
}
