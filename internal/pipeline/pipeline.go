// Package pipeline batches committed event changes and hands them to a
// loader, usually the Kafka writer, without ever blocking the write path.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/outage-tracker/internal/domain"
	"github.com/couchcryptid/outage-tracker/internal/observability"
	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

const (
	// queueFactor sizes the buffer as a multiple of the batch size.
	queueFactor = 4
	// maxAttempts bounds delivery retries for one batch before it is dropped.
	maxAttempts = 5
	// drainTimeout bounds the final flush after shutdown begins.
	drainTimeout = 5 * time.Second
)

// BatchLoader writes multiple changes to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, changes []domain.Change) error
}

// Feed buffers changes and flushes them by size or by interval.
type Feed struct {
	queue         chan domain.Change
	loader        BatchLoader
	logger        *slog.Logger
	metrics       *observability.Metrics
	clock         clockwork.Clock
	batchSize     int
	flushInterval time.Duration

	initialBackoff time.Duration
	maxBackoff     time.Duration

	// mu guards closed. Enqueue holds the read lock across its send so the
	// final drain sees every change accepted before the feed closed.
	mu     sync.RWMutex
	closed bool
}

// Option configures a Feed.
type Option func(*Feed)

// WithClock swaps the clock driving the flush ticker, for tests.
func WithClock(c clockwork.Clock) Option { return func(f *Feed) { f.clock = c } }

// New creates a Feed that delivers to loader.
func New(loader BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int, flushInterval time.Duration, opts ...Option) *Feed {
	if batchSize < 1 {
		batchSize = 1
	}
	f := &Feed{
		queue:          make(chan domain.Change, batchSize*queueFactor),
		loader:         loader,
		logger:         logger,
		metrics:        metrics,
		clock:          clockwork.NewRealClock(),
		batchSize:      batchSize,
		flushInterval:  flushInterval,
		initialBackoff: 200 * time.Millisecond,
		maxBackoff:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Enqueue buffers a change. When the buffer is full, or the feed has
// already shut down, the change is dropped and counted; the caller is never
// blocked.
func (f *Feed) Enqueue(change domain.Change) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		f.metrics.ChangesDropped.Inc()
		f.logger.Warn("change feed closed, dropping change", "event_id", change.EventID, "op", change.Op)
		return
	}
	select {
	case f.queue <- change:
	default:
		f.metrics.ChangesDropped.Inc()
		f.logger.Warn("change feed full, dropping change", "event_id", change.EventID, "op", change.Op)
	}
}

// Run flushes buffered changes until the context is cancelled, then makes
// one last attempt to deliver whatever is still pending.
func (f *Feed) Run(ctx context.Context) error {
	f.logger.Info("change feed started", "batch_size", f.batchSize, "flush_interval", f.flushInterval)
	f.metrics.FeedRunning.Set(1)
	defer f.metrics.FeedRunning.Set(0)

	ticker := f.clock.NewTicker(f.flushInterval)
	defer ticker.Stop()

	batch := make([]domain.Change, 0, f.batchSize)
	for {
		select {
		case <-ctx.Done():
			f.logger.Info("change feed stopping", "reason", ctx.Err())
			f.drain(ctx, batch)
			return nil
		case change := <-f.queue:
			batch = append(batch, change)
			if len(batch) >= f.batchSize {
				batch = f.flush(ctx, batch)
			}
		case <-ticker.Chan():
			if len(batch) > 0 {
				batch = f.flush(ctx, batch)
			}
		}
	}
}

// flush delivers batch with exponential backoff. It returns the changes
// still pending: none on success or after giving up, the whole batch if
// the context was cancelled mid-retry.
func (f *Feed) flush(ctx context.Context, batch []domain.Change) []domain.Change {
	backoff := f.initialBackoff
	for attempt := 1; ; attempt++ {
		err := f.loader.LoadBatch(ctx, batch)
		if err == nil {
			f.delivered(batch)
			return make([]domain.Change, 0, f.batchSize)
		}
		if ctx.Err() != nil {
			return batch
		}

		f.metrics.PublishErrors.Inc()
		f.logger.Error("publish changes failed", "error", err, "batch_size", len(batch), "attempt", attempt)
		if attempt >= maxAttempts {
			f.dropped(batch)
			return make([]domain.Change, 0, f.batchSize)
		}
		if !sharedretry.SleepWithContext(ctx, backoff) {
			return batch
		}
		backoff = sharedretry.NextBackoff(backoff, f.maxBackoff)
	}
}

// drain closes the feed to new changes, collects everything left in the
// queue and delivers it once on a context detached from the cancelled parent.
func (f *Feed) drain(ctx context.Context, batch []domain.Change) {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	for {
		select {
		case change := <-f.queue:
			batch = append(batch, change)
			continue
		default:
		}
		break
	}
	if len(batch) == 0 {
		return
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()

	if err := f.loader.LoadBatch(drainCtx, batch); err != nil {
		f.metrics.PublishErrors.Inc()
		f.logger.Error("final publish failed", "error", err, "batch_size", len(batch))
		f.dropped(batch)
		return
	}
	f.delivered(batch)
}

func (f *Feed) delivered(batch []domain.Change) {
	f.metrics.ChangesPublished.Add(float64(len(batch)))
	f.metrics.FeedBatchSize.Observe(float64(len(batch)))
}

func (f *Feed) dropped(batch []domain.Change) {
	f.metrics.ChangesDropped.Add(float64(len(batch)))
	f.logger.Warn("dropping undeliverable changes", "count", len(batch))
}
