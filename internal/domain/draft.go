package domain

import (
	"fmt"
	"strings"
	"time"
)

// FormKind identifies which capture form produced a draft.
type FormKind string

const (
	FormLocation FormKind = "location"
	FormDuration FormKind = "duration"
	FormDamage   FormKind = "damage"
)

// ParseFormKind validates a form label.
func ParseFormKind(s string) (FormKind, error) {
	switch k := FormKind(strings.ToLower(strings.TrimSpace(s))); k {
	case FormLocation, FormDuration, FormDamage:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFormKind, s)
}

// RequiresKnownLocation reports whether drafts of this kind must reference a
// location already present in the collection.
func (k FormKind) RequiresKnownLocation() bool {
	return k == FormDuration || k == FormDamage
}

// Draft is unvalidated input for creating or replacing an event.
type Draft struct {
	Kind        FormKind  `json:"kind"`
	ID          string    `json:"id,omitempty"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	Description string    `json:"description,omitempty"`
	Severity    string    `json:"severity,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	Damage      string    `json:"damage,omitempty"`
}

// BuildEvent validates a draft and turns it into an Event. A zero date
// becomes now; the duration is stored in canonical form; a missing ID is
// filled by newID.
func BuildEvent(d Draft, now time.Time, newID func() string) (Event, error) {
	kind, err := ParseFormKind(string(d.Kind))
	if err != nil {
		return Event{}, err
	}

	location := strings.TrimSpace(d.Location)
	if location == "" {
		return Event{}, fmt.Errorf("%w: location", ErrMissingRequiredField)
	}
	if kind == FormDuration && strings.TrimSpace(d.Duration) == "" {
		return Event{}, fmt.Errorf("%w: duration", ErrMissingRequiredField)
	}
	if kind == FormDamage && strings.TrimSpace(d.Damage) == "" {
		return Event{}, fmt.Errorf("%w: damage", ErrMissingRequiredField)
	}

	if (d.Latitude == nil) != (d.Longitude == nil) {
		return Event{}, ErrIncompleteCoordinates
	}

	date := d.Date
	if date.IsZero() {
		date = now
	}
	if date.After(now) {
		return Event{}, fmt.Errorf("%w: %s", ErrFutureDate, date.Format(time.RFC3339))
	}

	severity := DefaultSeverity
	if strings.TrimSpace(d.Severity) != "" {
		if severity, err = ParseSeverity(d.Severity); err != nil {
			return Event{}, err
		}
	}

	var duration string
	if strings.TrimSpace(d.Duration) != "" {
		if duration, err = NormalizeDuration(d.Duration); err != nil {
			return Event{}, err
		}
	}

	id := strings.TrimSpace(d.ID)
	if id == "" {
		id = newID()
	}

	return Event{
		ID:          id,
		Date:        date,
		Location:    location,
		Latitude:    d.Latitude,
		Longitude:   d.Longitude,
		Description: strings.TrimSpace(d.Description),
		Severity:    severity,
		Duration:    duration,
		Damage:      strings.TrimSpace(d.Damage),
	}, nil
}

// DraftFromEvent returns a draft that rebuilds e unchanged. Edits start
// from it so that a replace carries every field.
func DraftFromEvent(e Event) Draft {
	return Draft{
		Kind:        e.Kind(),
		ID:          e.ID,
		Date:        e.Date,
		Location:    e.Location,
		Latitude:    e.Latitude,
		Longitude:   e.Longitude,
		Description: e.Description,
		Severity:    string(e.Severity),
		Duration:    e.Duration,
		Damage:      e.Damage,
	}
}
