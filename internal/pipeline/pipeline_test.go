package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/outage-tracker/internal/domain"
	"github.com/couchcryptid/outage-tracker/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockLoader struct {
	mu      sync.Mutex
	batches [][]domain.Change
	failN   int
	calls   int
}

func (m *mockLoader) LoadBatch(_ context.Context, changes []domain.Change) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failN {
		return errors.New("broker unavailable")
	}
	m.batches = append(m.batches, append([]domain.Change(nil), changes...))
	return nil
}

func (m *mockLoader) loaded() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func (m *mockLoader) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func change(id string) domain.Change {
	return domain.NewChange(domain.ChangeCreated, domain.Event{ID: id}, time.Now())
}

func newTestFeed(loader BatchLoader, batchSize int, opts ...Option) (*Feed, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	f := New(loader, discardLogger(), metrics, batchSize, time.Hour, opts...)
	f.initialBackoff = time.Millisecond
	f.maxBackoff = 5 * time.Millisecond
	return f, metrics
}

func runFeed(t *testing.T, f *Feed) (context.CancelFunc, <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, f.Run(ctx))
	}()
	return cancel, done
}

// --- tests ---

func TestFeed_FlushesOnBatchSize(t *testing.T) {
	loader := &mockLoader{}
	f, metrics := newTestFeed(loader, 2)

	cancel, done := runFeed(t, f)
	f.Enqueue(change("a"))
	f.Enqueue(change("b"))

	require.Eventually(t, func() bool { return loader.loaded() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, loader.batchCount())

	cancel()
	<-done
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.ChangesPublished), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.FeedRunning), 0)
}

func TestFeed_FlushesOnInterval(t *testing.T) {
	loader := &mockLoader{}
	clock := clockwork.NewFakeClock()
	f, _ := newTestFeed(loader, 10, WithClock(clock))

	cancel, done := runFeed(t, f)
	defer func() {
		cancel()
		<-done
	}()

	ctx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	f.Enqueue(change("a"))
	require.Eventually(t, func() bool { return len(f.queue) == 0 }, time.Second, time.Millisecond)
	assert.Zero(t, loader.loaded(), "nothing is flushed before the interval")

	clock.Advance(time.Hour)
	require.Eventually(t, func() bool { return loader.loaded() == 1 }, time.Second, 5*time.Millisecond)
}

func TestFeed_RetriesThenDelivers(t *testing.T) {
	loader := &mockLoader{failN: 2}
	f, metrics := newTestFeed(loader, 1)

	cancel, done := runFeed(t, f)
	f.Enqueue(change("a"))

	require.Eventually(t, func() bool { return loader.loaded() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.PublishErrors), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.ChangesDropped), 0)
}

func TestFeed_DropsAfterMaxAttempts(t *testing.T) {
	loader := &mockLoader{failN: maxAttempts}
	f, metrics := newTestFeed(loader, 1)

	cancel, done := runFeed(t, f)
	f.Enqueue(change("a"))

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.ChangesDropped) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Zero(t, loader.loaded())
	assert.InDelta(t, float64(maxAttempts), testutil.ToFloat64(metrics.PublishErrors), 0)
}

func TestFeed_DrainsOnShutdown(t *testing.T) {
	loader := &mockLoader{}
	f, _ := newTestFeed(loader, 10)

	f.Enqueue(change("a"))
	f.Enqueue(change("b"))
	f.Enqueue(change("c"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.Run(ctx))

	assert.Equal(t, 3, loader.loaded())
}

func TestFeed_EnqueueNeverBlocks(t *testing.T) {
	loader := &mockLoader{}
	f, metrics := newTestFeed(loader, 1)

	for i := 0; i < queueFactor+2; i++ {
		f.Enqueue(change("a"))
	}

	assert.Len(t, f.queue, queueFactor)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.ChangesDropped), 0)
}

func TestFeed_EnqueueAfterShutdownIsDropped(t *testing.T) {
	loader := &mockLoader{}
	f, metrics := newTestFeed(loader, 10)

	cancel, done := runFeed(t, f)
	cancel()
	<-done

	f.Enqueue(change("late"))

	assert.Zero(t, loader.loaded())
	assert.Empty(t, f.queue)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ChangesDropped), 0)
}
