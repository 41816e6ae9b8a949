package domain

import (
	"context"
	"log/slog"
	"strings"
)

// GeoSource records how a draft's location data was obtained.
type GeoSource string

const (
	GeoSourceNone     GeoSource = ""
	GeoSourceOriginal GeoSource = "original"
	GeoSourceForward  GeoSource = "forward"
	GeoSourceReverse  GeoSource = "reverse"
	GeoSourceFailed   GeoSource = "failed"
)

// EnrichWithGeocoding fills whichever half of the location a draft is
// missing: a blank location is resolved from coordinates, absent
// coordinates are resolved from the location text. A nil geocoder or a
// provider failure leaves the draft as it was.
func EnrichWithGeocoding(ctx context.Context, d Draft, geocoder Geocoder, logger *slog.Logger) (Draft, GeoSource) {
	if geocoder == nil {
		return d, GeoSourceNone
	}

	hasCoords := d.Latitude != nil && d.Longitude != nil
	hasLocation := strings.TrimSpace(d.Location) != ""

	switch {
	case !hasLocation && hasCoords:
		result, err := geocoder.ReverseGeocode(ctx, *d.Latitude, *d.Longitude)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"lat", *d.Latitude,
				"lon", *d.Longitude,
				"error", err,
			)
			return d, GeoSourceFailed
		}
		if loc := result.Location(); loc != "" {
			d.Location = loc
			return d, GeoSourceReverse
		}
		return d, GeoSourceOriginal

	case hasLocation && d.Latitude == nil && d.Longitude == nil:
		result, err := geocoder.ForwardGeocode(ctx, d.Location)
		if err != nil {
			logger.Warn("forward geocoding failed",
				"location", d.Location,
				"error", err,
			)
			return d, GeoSourceFailed
		}
		if result.Lat != 0 || result.Lon != 0 {
			d.Latitude = floatPtr(result.Lat)
			d.Longitude = floatPtr(result.Lon)
			return d, GeoSourceForward
		}
		return d, GeoSourceOriginal
	}

	return d, GeoSourceOriginal
}
