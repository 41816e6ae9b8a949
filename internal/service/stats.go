package service

import (
	"context"

	"github.com/couchcryptid/outage-tracker/internal/domain"
)

// Overview computes the dashboard summary.
func (s *Service) Overview(ctx context.Context, w domain.Window) (domain.Overview, error) {
	events, err := s.load(ctx)
	if err != nil {
		return domain.Overview{}, err
	}
	return domain.ComputeOverview(events, s.clock.Now(), s.resolveWindow(w)), nil
}

// DurationView computes outage duration statistics.
func (s *Service) DurationView(ctx context.Context, w domain.Window) (domain.DurationView, error) {
	events, err := s.load(ctx)
	if err != nil {
		return domain.DurationView{}, err
	}
	return domain.ComputeDurationView(events, s.clock.Now(), s.resolveWindow(w)), nil
}

// DamageView computes damage statistics. An empty category means all.
func (s *Service) DamageView(ctx context.Context, w domain.Window, category domain.Category) (domain.DamageView, error) {
	events, err := s.load(ctx)
	if err != nil {
		return domain.DamageView{}, err
	}
	if category == "" {
		category = domain.CategoryAll
	}
	return domain.ComputeDamageView(events, s.clock.Now(), s.resolveWindow(w), category), nil
}

// LocationView computes location statistics. An empty severity means all.
func (s *Service) LocationView(ctx context.Context, severity domain.Severity) (domain.LocationView, error) {
	events, err := s.load(ctx)
	if err != nil {
		return domain.LocationView{}, err
	}
	return domain.ComputeLocationView(events, s.clock.Now(), severity), nil
}

// Snapshot returns every event, newest first, together with the all-time
// overview. Exports use it so both parts come from the same load.
func (s *Service) Snapshot(ctx context.Context) ([]domain.Event, domain.Overview, error) {
	events, err := s.load(ctx)
	if err != nil {
		return nil, domain.Overview{}, err
	}
	now := s.clock.Now()
	return domain.SortByDateDesc(events), domain.ComputeOverview(events, now, domain.WindowAll), nil
}
