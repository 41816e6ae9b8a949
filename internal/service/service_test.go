package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/outage-tracker/internal/domain"
	"github.com/couchcryptid/outage-tracker/internal/observability"
	"github.com/couchcryptid/outage-tracker/internal/service"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockStore struct {
	mu        sync.Mutex
	events    []domain.Event
	loadErr   error
	saveErr   error
	saveCalls int
}

func (m *mockStore) Load(_ context.Context) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]domain.Event, len(m.events))
	copy(out, m.events)
	return out, nil
}

func (m *mockStore) Save(_ context.Context, events []domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.events = append([]domain.Event(nil), events...)
	return nil
}

type mockSink struct {
	changes []domain.Change
}

func (m *mockSink) Enqueue(c domain.Change) { m.changes = append(m.changes, c) }

type mockGeocoder struct {
	result domain.GeocodingResult
	calls  int
}

func (m *mockGeocoder) ForwardGeocode(_ context.Context, _ string) (domain.GeocodingResult, error) {
	m.calls++
	return m.result, nil
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	m.calls++
	return m.result, nil
}

// --- helpers ---

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "id-" + strconv.Itoa(n)
	}
}

type fixture struct {
	svc     *service.Service
	store   *mockStore
	sink    *mockSink
	metrics *observability.Metrics
	clock   *clockwork.FakeClock
}

func newFixture(t *testing.T, events []domain.Event, opts ...service.Option) fixture {
	t.Helper()
	f := fixture{
		store:   &mockStore{events: events},
		sink:    &mockSink{},
		metrics: observability.NewMetricsForTesting(),
		clock:   clockwork.NewFakeClockAt(testNow),
	}
	opts = append([]service.Option{
		service.WithClock(f.clock),
		service.WithIDGenerator(sequentialIDs()),
		service.WithChangeSink(f.sink),
	}, opts...)
	f.svc = service.New(f.store, discardLogger(), f.metrics, opts...)
	return f
}

func seedEvents() []domain.Event {
	return []domain.Event{
		{ID: "a", Date: testNow.Add(-2 * 24 * time.Hour), Location: "Rua A, Centro, Recife", Severity: domain.SeverityHigh},
		{ID: "b", Date: testNow.Add(-1 * 24 * time.Hour), Location: "Rua A, Centro, Recife", Severity: domain.SeverityMedium, Duration: "2h"},
		{ID: "c", Date: testNow.Add(-40 * 24 * time.Hour), Location: "Rua B, Derby, Recife", Severity: domain.SeverityLow, Damage: "geladeira queimou"},
	}
}

// --- tests ---

func TestService_CreateLocation(t *testing.T) {
	f := newFixture(t, nil)

	got, err := f.svc.Create(context.Background(), domain.Draft{
		Kind:     domain.FormLocation,
		Location: "  Rua C, Boa Vista, Recife ",
	})
	require.NoError(t, err)

	assert.Equal(t, "id-1", got.ID)
	assert.Equal(t, testNow, got.Date)
	assert.Equal(t, "Rua C, Boa Vista, Recife", got.Location)
	assert.Equal(t, domain.SeverityMedium, got.Severity)
	require.Len(t, f.store.events, 1)

	require.Len(t, f.sink.changes, 1)
	assert.Equal(t, domain.ChangeCreated, f.sink.changes[0].Op)
	assert.Equal(t, "id-1", f.sink.changes[0].EventID)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.EventWrites.WithLabelValues("created")), 0)
}

func TestService_CreateDurationNormalizes(t *testing.T) {
	f := newFixture(t, seedEvents())

	got, err := f.svc.Create(context.Background(), domain.Draft{
		Kind:     domain.FormDuration,
		Location: "Rua A, Centro, Recife",
		Duration: "1.5h",
	})
	require.NoError(t, err)
	assert.Equal(t, "1h 30m", got.Duration)
	assert.Len(t, f.store.events, 4)
}

func TestService_CreateRejects(t *testing.T) {
	tests := []struct {
		name    string
		draft   domain.Draft
		wantErr error
		reason  string
	}{
		{
			name:    "unknown location for duration form",
			draft:   domain.Draft{Kind: domain.FormDuration, Location: "Rua Z, Nowhere", Duration: "2h"},
			wantErr: service.ErrUnknownLocation,
			reason:  "unknown_location",
		},
		{
			name:    "mixed-case duration form still needs a known location",
			draft:   domain.Draft{Kind: "Duration", Location: "Nowhere, Ghost", Duration: "2h"},
			wantErr: service.ErrUnknownLocation,
			reason:  "unknown_location",
		},
		{
			name:    "mixed-case damage form still needs a known location",
			draft:   domain.Draft{Kind: " DAMAGE ", Location: "Nowhere, Ghost", Damage: "tv queimou"},
			wantErr: service.ErrUnknownLocation,
			reason:  "unknown_location",
		},
		{
			name:    "unknown form kind",
			draft:   domain.Draft{Kind: "outage", Location: "Rua A, Centro, Recife"},
			wantErr: domain.ErrInvalidFormKind,
			reason:  "invalid_kind",
		},
		{
			name:    "invalid duration",
			draft:   domain.Draft{Kind: domain.FormDuration, Location: "Rua A, Centro, Recife", Duration: "abc"},
			wantErr: domain.ErrInvalidFormat,
			reason:  "invalid_duration_format",
		},
		{
			name:    "duration too long",
			draft:   domain.Draft{Kind: domain.FormDuration, Location: "Rua A, Centro, Recife", Duration: "25h"},
			wantErr: domain.ErrDurationTooLong,
			reason:  "duration_too_long",
		},
		{
			name:    "missing location",
			draft:   domain.Draft{Kind: domain.FormLocation},
			wantErr: domain.ErrMissingRequiredField,
			reason:  "missing_field",
		},
		{
			name:    "future date",
			draft:   domain.Draft{Kind: domain.FormLocation, Location: "Rua D", Date: testNow.Add(time.Hour)},
			wantErr: domain.ErrFutureDate,
			reason:  "future_date",
		},
		{
			name:    "duplicate id",
			draft:   domain.Draft{Kind: domain.FormLocation, Location: "Rua D", ID: "a"},
			wantErr: service.ErrDuplicateID,
			reason:  "duplicate_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, seedEvents())

			_, err := f.svc.Create(context.Background(), tt.draft)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, f.store.events, 3, "collection must be unchanged")
			assert.Zero(t, f.store.saveCalls)
			assert.Empty(t, f.sink.changes)
			assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.ValidationErrors.WithLabelValues(tt.reason)), 0)
		})
	}
}

func TestService_CreateSaveError(t *testing.T) {
	f := newFixture(t, nil)
	f.store.saveErr = errors.New("disk full")

	_, err := f.svc.Create(context.Background(), domain.Draft{Kind: domain.FormLocation, Location: "Rua A"})
	require.Error(t, err)
	assert.Empty(t, f.sink.changes)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.StoreOperations.WithLabelValues("save", "error")), 0)
}

func TestService_CreateGeocodesBeforeSaving(t *testing.T) {
	geo := &mockGeocoder{result: domain.GeocodingResult{Lat: -8.05, Lon: -34.9, City: "Recife"}}
	f := newFixture(t, nil, service.WithGeocoder(geo))

	got, err := f.svc.Create(context.Background(), domain.Draft{Kind: domain.FormLocation, Location: "Rua A, Centro, Recife"})
	require.NoError(t, err)
	assert.Equal(t, 1, geo.calls)

	c, ok := got.Coordinates()
	require.True(t, ok)
	assert.InDelta(t, -8.05, c.Lat, 0.0001)
	assert.Equal(t, "Rua A, Centro, Recife", got.Location)
}

func TestService_Update(t *testing.T) {
	f := newFixture(t, seedEvents())

	got, err := f.svc.Update(context.Background(), "b", domain.Draft{
		Location: "Rua A, Centro, Recife",
		Duration: "45",
		Severity: "high",
	})
	require.NoError(t, err)

	assert.Equal(t, "b", got.ID)
	assert.Equal(t, "45m", got.Duration)
	assert.Equal(t, domain.SeverityHigh, got.Severity)
	assert.Equal(t, testNow.Add(-24*time.Hour), got.Date, "zero date keeps the stored date")

	stored, err := f.svc.Get(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, got, stored)

	require.Len(t, f.sink.changes, 1)
	assert.Equal(t, domain.ChangeUpdated, f.sink.changes[0].Op)
}

func TestService_UpdateMixedCaseKindNeedsKnownLocation(t *testing.T) {
	f := newFixture(t, seedEvents())

	_, err := f.svc.Update(context.Background(), "b", domain.Draft{
		Kind:     "Duration",
		Location: "Nowhere, Ghost",
		Duration: "2h",
	})
	require.ErrorIs(t, err, service.ErrUnknownLocation)
	assert.Zero(t, f.store.saveCalls)
	assert.Empty(t, f.sink.changes)
}

func TestService_UpdateNotFound(t *testing.T) {
	f := newFixture(t, seedEvents())

	_, err := f.svc.Update(context.Background(), "missing", domain.Draft{Kind: domain.FormLocation, Location: "Rua A"})
	require.ErrorIs(t, err, service.ErrEventNotFound)
	assert.Zero(t, f.store.saveCalls)
}

func TestService_Delete(t *testing.T) {
	f := newFixture(t, seedEvents())

	require.NoError(t, f.svc.Delete(context.Background(), "a"))
	assert.Len(t, f.store.events, 2)

	_, err := f.svc.Get(context.Background(), "a")
	require.ErrorIs(t, err, service.ErrEventNotFound)

	require.Len(t, f.sink.changes, 1)
	assert.Equal(t, domain.ChangeDeleted, f.sink.changes[0].Op)
	assert.Nil(t, f.sink.changes[0].Event)

	err = f.svc.Delete(context.Background(), "a")
	require.ErrorIs(t, err, service.ErrEventNotFound)
}

func TestService_List(t *testing.T) {
	f := newFixture(t, seedEvents(), service.WithDefaultWindow(domain.Window30Days))

	tests := []struct {
		name  string
		query service.Query
		want  []string
	}{
		{"default window", service.Query{}, []string{"b", "a"}},
		{"all", service.Query{Window: domain.WindowAll}, []string{"b", "a", "c"}},
		{"severity", service.Query{Window: domain.WindowAll, Severity: domain.SeverityLow}, []string{"c"}},
		{"kind", service.Query{Window: domain.WindowAll, Kind: domain.FormDuration}, []string{"b"}},
		{"category", service.Query{Window: domain.WindowAll, Category: domain.CategoryPersonal}, []string{"c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := f.svc.List(context.Background(), tt.query)
			require.NoError(t, err)

			ids := make([]string, 0, len(events))
			for _, e := range events {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestService_LoadError(t *testing.T) {
	f := newFixture(t, nil)
	f.store.loadErr = errors.New("corrupt")

	_, err := f.svc.List(context.Background(), service.Query{})
	require.Error(t, err)
	require.Error(t, f.svc.CheckReadiness(context.Background()))
}

func TestService_Readiness(t *testing.T) {
	f := newFixture(t, seedEvents())

	require.Error(t, f.svc.CheckReadiness(context.Background()))
	require.NoError(t, f.svc.Warmup(context.Background()))
	require.NoError(t, f.svc.CheckReadiness(context.Background()))
	assert.InDelta(t, 3, testutil.ToFloat64(f.metrics.CollectionSize), 0)
}

func TestService_Views(t *testing.T) {
	f := newFixture(t, seedEvents())
	ctx := context.Background()

	overview, err := f.svc.Overview(ctx, domain.WindowAll)
	require.NoError(t, err)
	assert.Equal(t, 3, overview.Counts.Total)
	assert.Equal(t, "Centro", overview.MostAffectedArea)

	durations, err := f.svc.DurationView(ctx, domain.WindowAll)
	require.NoError(t, err)
	assert.Equal(t, 1, durations.Stats.Count)
	assert.InDelta(t, 120, durations.Stats.AverageMinutes, 0.001)

	damage, err := f.svc.DamageView(ctx, domain.WindowAll, "")
	require.NoError(t, err)
	assert.Equal(t, 1, damage.Total)

	locations, err := f.svc.LocationView(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, locations.Total)

	known, err := f.svc.KnownLocations(ctx)
	require.NoError(t, err)
	assert.Len(t, known, 2)

	events, snap, err := f.svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 3)
	assert.Equal(t, 3, snap.Counts.Total)
}

func TestService_CheckDuration(t *testing.T) {
	f := newFixture(t, nil)

	got, err := f.svc.CheckDuration("2h30")
	require.NoError(t, err)
	assert.Equal(t, service.DurationCheck{Minutes: 150, Canonical: "2h 30m", Impact: domain.ImpactModerate}, got)

	_, err = f.svc.CheckDuration("0")
	require.ErrorIs(t, err, domain.ErrNonPositiveDuration)
	assert.Zero(t, f.store.saveCalls)
}
