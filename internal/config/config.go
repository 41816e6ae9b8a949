package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/outage-tracker/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Storage backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Event store.
	StoreBackend  string
	StorePath     string
	StoreKey      string
	DefaultWindow domain.Window

	// Change feed. Disabled unless KAFKA_BROKERS is set or KAFKA_ENABLED is true.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaTopic         string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s"))
	if err != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	window, err := domain.ParseWindow(sharedcfg.EnvOrDefault("DEFAULT_WINDOW", string(domain.Window30Days)))
	if err != nil {
		return nil, errors.New("invalid DEFAULT_WINDOW: must be 7d, 30d, 90d or all")
	}

	backend := sharedcfg.EnvOrDefault("STORE_BACKEND", StoreFile)

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	brokers := sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		StoreBackend:  backend,
		StorePath:     sharedcfg.EnvOrDefault("STORE_PATH", defaultStorePath(backend)),
		StoreKey:      sharedcfg.EnvOrDefault("STORE_KEY", "@outage-tracker:events"),
		DefaultWindow: window,

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       brokers,
		KafkaTopic:         sharedcfg.EnvOrDefault("KAFKA_TOPIC", "outage-events"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if cfg.StoreBackend != StoreFile && cfg.StoreBackend != StoreSQLite {
		return nil, errors.New("invalid STORE_BACKEND: must be file or sqlite")
	}
	if cfg.StoreKey == "" {
		return nil, errors.New("STORE_KEY is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func defaultStorePath(backend string) string {
	if backend == StoreSQLite {
		return "data/events.db"
	}
	return "data"
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
