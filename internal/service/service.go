// Package service runs the load, transform, save cycle over the event
// collection. The domain package supplies every transformation; this package
// owns time, identity, persistence and side effects.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/outage-tracker/internal/domain"
	"github.com/couchcryptid/outage-tracker/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrDuplicateID     = errors.New("event id already exists")
	ErrUnknownLocation = errors.New("location has no registered events")
)

// Store persists the whole collection under one key. Load on an absent key
// returns an empty collection.
type Store interface {
	Load(ctx context.Context) ([]domain.Event, error)
	Save(ctx context.Context, events []domain.Event) error
}

// ChangeSink receives committed changes. Enqueue must not block.
type ChangeSink interface {
	Enqueue(change domain.Change)
}

type readinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Service coordinates reads and writes of the event collection.
type Service struct {
	store    Store
	geocoder domain.Geocoder
	changes  ChangeSink
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
	newID    func() string
	window   domain.Window

	// mu serializes read-modify-write cycles.
	mu    sync.Mutex
	ready atomic.Bool
}

// Option configures optional collaborators.
type Option func(*Service)

// WithGeocoder enables location enrichment. A nil geocoder disables it.
func WithGeocoder(g domain.Geocoder) Option { return func(s *Service) { s.geocoder = g } }

// WithChangeSink publishes committed changes to sink.
func WithChangeSink(sink ChangeSink) Option { return func(s *Service) { s.changes = sink } }

// WithClock swaps the time source, for tests.
func WithClock(c clockwork.Clock) Option { return func(s *Service) { s.clock = c } }

// WithIDGenerator swaps the event ID generator, for tests.
func WithIDGenerator(f func() string) Option { return func(s *Service) { s.newID = f } }

// WithDefaultWindow sets the window used when a query leaves it empty.
func WithDefaultWindow(w domain.Window) Option { return func(s *Service) { s.window = w } }

// New creates a Service over store.
func New(store Store, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  logger,
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
		newID:   uuid.NewString,
		window:  domain.WindowAll,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Warmup loads the collection once so readiness reflects a reachable store.
func (s *Service) Warmup(ctx context.Context) error {
	events, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("event store loaded", "events", len(events))
	return nil
}

// CheckReadiness returns nil once the store has been loaded successfully and
// still answers its own readiness probe.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if !s.ready.Load() {
		return errors.New("event store has not been loaded yet")
	}
	if rc, ok := s.store.(readinessChecker); ok {
		return rc.CheckReadiness(ctx)
	}
	return nil
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time { return s.clock.Now() }

func (s *Service) load(ctx context.Context) ([]domain.Event, error) {
	start := time.Now()
	events, err := s.store.Load(ctx)
	s.metrics.StoreDuration.WithLabelValues("load").Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.StoreOperations.WithLabelValues("load", "error").Inc()
		s.logger.Error("load events failed", "error", err)
		return nil, fmt.Errorf("load events: %w", err)
	}
	s.metrics.StoreOperations.WithLabelValues("load", "success").Inc()
	s.metrics.CollectionSize.Set(float64(len(events)))
	s.ready.Store(true)
	return events, nil
}

func (s *Service) save(ctx context.Context, events []domain.Event) error {
	start := time.Now()
	err := s.store.Save(ctx, events)
	s.metrics.StoreDuration.WithLabelValues("save").Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.StoreOperations.WithLabelValues("save", "error").Inc()
		s.logger.Error("save events failed", "error", err, "events", len(events))
		return fmt.Errorf("save events: %w", err)
	}
	s.metrics.StoreOperations.WithLabelValues("save", "success").Inc()
	s.metrics.CollectionSize.Set(float64(len(events)))
	return nil
}

// publish hands a committed change to the sink, if any.
func (s *Service) publish(op domain.ChangeOp, e domain.Event) {
	s.metrics.EventWrites.WithLabelValues(string(op)).Inc()
	if s.changes == nil {
		return
	}
	s.changes.Enqueue(domain.NewChange(op, e, s.clock.Now()))
}

// rejected records a validation failure and returns err unchanged.
func (s *Service) rejected(err error) error {
	s.metrics.ValidationErrors.WithLabelValues(reason(err)).Inc()
	return err
}

// reason maps an error onto a bounded metric label.
func reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidFormat):
		return "invalid_duration_format"
	case errors.Is(err, domain.ErrNonPositiveDuration):
		return "non_positive_duration"
	case errors.Is(err, domain.ErrDurationTooLong):
		return "duration_too_long"
	case errors.Is(err, domain.ErrMissingRequiredField):
		return "missing_field"
	case errors.Is(err, domain.ErrInvalidSeverity):
		return "invalid_severity"
	case errors.Is(err, domain.ErrIncompleteCoordinates):
		return "incomplete_coordinates"
	case errors.Is(err, domain.ErrFutureDate):
		return "future_date"
	case errors.Is(err, domain.ErrInvalidFormKind):
		return "invalid_kind"
	case errors.Is(err, ErrUnknownLocation):
		return "unknown_location"
	case errors.Is(err, ErrDuplicateID):
		return "duplicate_id"
	default:
		return "other"
	}
}

func indexOf(events []domain.Event, id string) int {
	for i := range events {
		if events[i].ID == id {
			return i
		}
	}
	return -1
}
