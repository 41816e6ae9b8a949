package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/couchcryptid/outage-tracker/internal/adapter/filestore"
	httpadapter "github.com/couchcryptid/outage-tracker/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/outage-tracker/internal/adapter/kafka"
	"github.com/couchcryptid/outage-tracker/internal/adapter/mapbox"
	"github.com/couchcryptid/outage-tracker/internal/adapter/sqlite"
	"github.com/couchcryptid/outage-tracker/internal/config"
	"github.com/couchcryptid/outage-tracker/internal/domain"
	"github.com/couchcryptid/outage-tracker/internal/observability"
	"github.com/couchcryptid/outage-tracker/internal/pipeline"
	"github.com/couchcryptid/outage-tracker/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open event store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	logger.Info("event store opened", "backend", cfg.StoreBackend, "path", cfg.StorePath)

	opts := []service.Option{service.WithDefaultWindow(cfg.DefaultWindow)}

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		var geocoder domain.Geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		opts = append(opts, service.WithGeocoder(geocoder))
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	// Initialize change feed (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	var (
		feed   *pipeline.Feed
		writer *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		feed = pipeline.New(writer, logger, metrics, cfg.BatchSize, cfg.BatchFlushInterval)
		opts = append(opts, service.WithChangeSink(feed))
		logger.Info("kafka change feed enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka change feed disabled")
	}

	svc := service.New(store, logger, metrics, opts...)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Warmup(ctx); err != nil {
		// Readiness stays false until a later request loads the store.
		logger.Warn("initial load failed", "error", err)
	}

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start change feed. It stops only after the HTTP server has shut down.
	feedCtx, stopFeed := context.WithCancel(context.Background())
	defer stopFeed()
	var wg sync.WaitGroup
	if feed != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := feed.Run(feedCtx); err != nil {
				logger.Error("change feed error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	stopFeed()
	wg.Wait()
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := closeStore(); err != nil {
		logger.Error("event store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// openStore builds the configured storage backend and its close function.
func openStore(cfg *config.Config) (service.Store, func() error, error) {
	if cfg.StoreBackend == config.StoreSQLite {
		s, err := sqlite.Open(cfg.StorePath, cfg.StoreKey)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return filestore.New(cfg.StorePath, cfg.StoreKey), func() error { return nil }, nil
}
