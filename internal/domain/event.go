package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Severity is the caller-assigned impact level of an outage.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// DefaultSeverity is assigned when a draft omits severity.
const DefaultSeverity = SeverityMedium

// ParseSeverity validates a severity label. Matching is case-insensitive.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityLow:
		return SeverityLow, nil
	case SeverityMedium:
		return SeverityMedium, nil
	case SeverityHigh:
		return SeverityHigh, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
}

// Valid reports whether s is one of the three known levels.
func (s Severity) Valid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

// weight maps a severity onto the 1..3 scale used for averaging.
func (s Severity) weight() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	}
	return 0
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Event is one recorded outage occurrence. Which optional fields are set
// depends on the form that produced it (see FormKind).
type Event struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	Description string    `json:"description,omitempty"`
	Severity    Severity  `json:"severity,omitempty"`
	Duration    string    `json:"duration,omitempty"` // canonical form, see FormatDuration
	Damage      string    `json:"damage,omitempty"`
}

// HasLocation reports whether the event carries a non-blank location.
func (e Event) HasLocation() bool { return strings.TrimSpace(e.Location) != "" }

// HasDuration reports whether the event carries a non-blank duration.
func (e Event) HasDuration() bool { return strings.TrimSpace(e.Duration) != "" }

// HasDamage reports whether the event carries a non-blank damage description.
func (e Event) HasDamage() bool { return strings.TrimSpace(e.Damage) != "" }

// HasCoordinates reports whether both latitude and longitude are set.
func (e Event) HasCoordinates() bool { return e.Latitude != nil && e.Longitude != nil }

// Coordinates returns the event position when both coordinates are set.
func (e Event) Coordinates() (Geo, bool) {
	if !e.HasCoordinates() {
		return Geo{}, false
	}
	return Geo{Lat: *e.Latitude, Lon: *e.Longitude}, true
}

// Area returns the second comma-delimited segment of the location, trimmed.
// Locations are written as "street, district, city, ..." so this is usually
// the district. The boolean is false when the segment is absent or blank.
func (e Event) Area() (string, bool) {
	parts := strings.Split(e.Location, ",")
	if len(parts) < 2 {
		return "", false
	}
	area := strings.TrimSpace(parts[1])
	return area, area != ""
}

// Kind infers which form produced the record. Damage wins over duration,
// duration wins over a bare location.
func (e Event) Kind() FormKind {
	switch {
	case e.HasDamage():
		return FormDamage
	case e.HasDuration():
		return FormDuration
	default:
		return FormLocation
	}
}

// DurationMinutes returns the stored duration in minutes using the lenient
// read-path extractor.
func (e Event) DurationMinutes() int { return DurationMinutes(e.Duration) }

// EncodeEvents serializes the whole collection as a JSON array. A nil
// collection encodes as an empty array.
func EncodeEvents(events []Event) ([]byte, error) {
	if events == nil {
		events = []Event{}
	}
	data, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}
	return data, nil
}

// DecodeEvents parses a stored collection. Blank input is an empty
// collection; anything that is not a JSON array of events wraps
// ErrCorruptCollection.
func DecodeEvents(data []byte) ([]Event, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []Event{}, nil
	}
	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCollection, err)
	}
	if events == nil {
		events = []Event{}
	}
	return events, nil
}

func floatPtr(v float64) *float64 { return &v }
