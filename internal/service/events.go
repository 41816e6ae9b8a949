package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/couchcryptid/outage-tracker/internal/domain"
)

// Query narrows List results. Zero fields do not filter, except Window,
// which falls back to the service default.
type Query struct {
	Window   domain.Window
	Severity domain.Severity
	Category domain.Category
	Kind     domain.FormKind
}

// List returns matching events, newest first.
func (s *Service) List(ctx context.Context, q Query) ([]domain.Event, error) {
	events, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	out := domain.FilterByWindow(events, s.clock.Now(), s.resolveWindow(q.Window))
	out = domain.FilterBySeverity(out, q.Severity)
	out = domain.FilterByKind(out, q.Kind)
	if q.Category != "" {
		out = domain.FilterByCategory(out, q.Category)
	}
	return domain.SortByDateDesc(out), nil
}

// Get returns one event by ID.
func (s *Service) Get(ctx context.Context, id string) (domain.Event, error) {
	events, err := s.load(ctx)
	if err != nil {
		return domain.Event{}, err
	}
	i := indexOf(events, id)
	if i < 0 {
		return domain.Event{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	return events[i], nil
}

// Create validates a draft and appends the resulting event.
func (s *Service) Create(ctx context.Context, d domain.Draft) (domain.Event, error) {
	kind, err := domain.ParseFormKind(string(d.Kind))
	if err != nil {
		return domain.Event{}, s.rejected(err)
	}
	d.Kind = kind
	d = s.enrich(ctx, d)

	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.load(ctx)
	if err != nil {
		return domain.Event{}, err
	}
	if d.Kind.RequiresKnownLocation() && !domain.IsKnownLocation(events, d.Location) {
		return domain.Event{}, s.rejected(fmt.Errorf("%w: %q", ErrUnknownLocation, d.Location))
	}

	event, err := domain.BuildEvent(d, s.clock.Now(), s.newID)
	if err != nil {
		return domain.Event{}, s.rejected(err)
	}
	if indexOf(events, event.ID) >= 0 {
		return domain.Event{}, s.rejected(fmt.Errorf("%w: %s", ErrDuplicateID, event.ID))
	}

	if err := s.save(ctx, append(slices.Clip(events), event)); err != nil {
		return domain.Event{}, err
	}
	s.logger.Info("event created", "event_id", event.ID, "kind", d.Kind, "location", event.Location)
	s.publish(domain.ChangeCreated, event)
	return event, nil
}

// Update replaces the event with the given ID. Every field comes from the
// draft; an empty kind keeps the stored record's kind and a zero date keeps
// its date.
func (s *Service) Update(ctx context.Context, id string, d domain.Draft) (domain.Event, error) {
	d.ID = id
	d = s.enrich(ctx, d)

	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.load(ctx)
	if err != nil {
		return domain.Event{}, err
	}
	i := indexOf(events, id)
	if i < 0 {
		return domain.Event{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}

	current := events[i]
	if d.Kind == "" {
		d.Kind = current.Kind()
	}
	kind, err := domain.ParseFormKind(string(d.Kind))
	if err != nil {
		return domain.Event{}, s.rejected(err)
	}
	d.Kind = kind
	if d.Date.IsZero() {
		d.Date = current.Date
	}
	if d.Kind.RequiresKnownLocation() && !domain.IsKnownLocation(events, d.Location) {
		return domain.Event{}, s.rejected(fmt.Errorf("%w: %q", ErrUnknownLocation, d.Location))
	}

	event, err := domain.BuildEvent(d, s.clock.Now(), s.newID)
	if err != nil {
		return domain.Event{}, s.rejected(err)
	}

	updated := slices.Clone(events)
	updated[i] = event
	if err := s.save(ctx, updated); err != nil {
		return domain.Event{}, err
	}
	s.logger.Info("event updated", "event_id", event.ID)
	s.publish(domain.ChangeUpdated, event)
	return event, nil
}

// Delete removes the event with the given ID.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(events, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	removed := events[i]

	remaining := slices.Delete(slices.Clone(events), i, i+1)
	if err := s.save(ctx, remaining); err != nil {
		return err
	}
	s.logger.Info("event deleted", "event_id", id)
	s.publish(domain.ChangeDeleted, removed)
	return nil
}

// KnownLocations lists the distinct recorded locations, the choices offered
// by the duration and damage forms.
func (s *Service) KnownLocations(ctx context.Context) ([]domain.LocationEntry, error) {
	events, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return domain.KnownLocations(events), nil
}

// DurationCheck is the live feedback for a duration being typed.
type DurationCheck struct {
	Minutes   int           `json:"minutes"`
	Canonical string        `json:"canonical"`
	Impact    domain.Impact `json:"impact"`
}

// CheckDuration validates duration input without storing anything.
func (s *Service) CheckDuration(input string) (DurationCheck, error) {
	minutes, err := domain.ParseDuration(input)
	if err != nil {
		return DurationCheck{}, err
	}
	return DurationCheck{
		Minutes:   minutes,
		Canonical: domain.FormatDuration(minutes),
		Impact:    domain.ImpactForDuration(minutes),
	}, nil
}

// enrich runs geocoding outside the write lock.
func (s *Service) enrich(ctx context.Context, d domain.Draft) domain.Draft {
	if s.geocoder == nil {
		return d
	}
	enriched, source := domain.EnrichWithGeocoding(ctx, d, s.geocoder, s.logger)
	if source != domain.GeoSourceNone && source != domain.GeoSourceOriginal {
		s.logger.Debug("draft geocoded", "source", source, "location", enriched.Location)
	}
	return enriched
}

func (s *Service) resolveWindow(w domain.Window) domain.Window {
	if w == "" {
		return s.window
	}
	return w
}
