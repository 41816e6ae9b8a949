package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/couchcryptid/outage-tracker/internal/adapter/filestore"
	"github.com/couchcryptid/outage-tracker/internal/domain"
	"github.com/couchcryptid/outage-tracker/internal/observability"
	"github.com/couchcryptid/outage-tracker/internal/service"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_CreateReloadOverview(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	clock := clockwork.NewFakeClockAt(testNow)

	writer := service.New(filestore.New(dir, "@outage-tracker:events"), discardLogger(),
		observability.NewMetricsForTesting(), service.WithClock(clock), service.WithIDGenerator(sequentialIDs()))

	created, err := writer.Create(ctx, domain.Draft{
		Kind:     domain.FormLocation,
		Location: "Rua A, Bairro B",
		Duration: "2h30",
		Severity: "high",
	})
	require.NoError(t, err)
	assert.Equal(t, "2h 30m", created.Duration)

	stored, err := filestore.New(dir, "@outage-tracker:events").Load(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "2h 30m", stored[0].Duration)
	assert.Equal(t, domain.SeverityHigh, stored[0].Severity)

	clock.Advance(24 * time.Hour)
	reader := service.New(filestore.New(dir, "@outage-tracker:events"), discardLogger(),
		observability.NewMetricsForTesting(), service.WithClock(clock))

	overview, err := reader.Overview(ctx, domain.Window7Days)
	require.NoError(t, err)
	assert.Equal(t, 1, overview.Counts.Total)
	assert.Equal(t, 1, overview.Durations.Count)
	assert.InDelta(t, 150, overview.Durations.AverageMinutes, 0)
	assert.Equal(t, "Bairro B", overview.MostAffectedArea)
}
