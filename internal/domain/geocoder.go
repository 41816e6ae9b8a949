package domain

import (
	"context"
	"strings"
)

// GeocodingResult contains address data returned by a geocoding provider.
type GeocodingResult struct {
	Lat        float64
	Lon        float64
	Street     string
	District   string
	City       string
	Region     string
	PostalCode string
	Confidence float64 // 0.0–1.0 provider confidence score
}

// Empty reports whether the provider found nothing usable.
func (r GeocodingResult) Empty() bool {
	return r.Location() == "" && r.Lat == 0 && r.Lon == 0
}

// Location joins the non-blank address parts as "street, district, city,
// region", the format Event.Area relies on.
func (r GeocodingResult) Location() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{r.Street, r.District, r.City, r.Region} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Geocoder resolves between free-text addresses and coordinates.
type Geocoder interface {
	// ForwardGeocode converts an address to coordinates.
	ForwardGeocode(ctx context.Context, query string) (GeocodingResult, error)

	// ReverseGeocode converts coordinates to an address.
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}
