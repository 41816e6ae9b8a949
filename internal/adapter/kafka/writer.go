package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/outage-tracker/internal/config"
	"github.com/couchcryptid/outage-tracker/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes event changes to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured change topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes changes in a single WriteMessages call. Changes are
// keyed by event ID so every change to one event lands on one partition.
func (w *Writer) LoadBatch(ctx context.Context, changes []domain.Change) error {
	if len(changes) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(changes))
	for i := range changes {
		msg, err := serializeToMessage(changes[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish changes: %w", err)
	}
	w.logger.Debug("changes published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Change into a Kafka message.
func serializeToMessage(change domain.Change) (kafkago.Message, error) {
	data, err := json.Marshal(change)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize change: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(change.EventID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "op", Value: []byte(change.Op)},
			{Key: "changed_at", Value: []byte(change.ChangedAt.Format(time.RFC3339))},
		},
	}, nil
}
