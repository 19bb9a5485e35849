package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // ZONE_TIMEZONE must resolve on hosts without zoneinfo

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DBPath            string
	ZonesFile         string
	ZoneTimezone      *time.Location
	DownstreamTimeout time.Duration

	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaLocationTopic string
	KafkaAlertTopic    string
	KafkaGroupID       string

	BatchSize          int
	BatchFlushInterval time.Duration

	// Mapbox reverse geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// APIRateLimit is the sustained requests per second allowed on /api routes.
	APIRateLimit float64
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first when present; variables
// already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	downstreamTimeout, err := parsePositiveDuration("DOWNSTREAM_TIMEOUT", "3s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	flushInterval, err := parsePositiveDuration("BATCH_FLUSH_INTERVAL", "500ms")
	if err != nil {
		return nil, err
	}
	batchSize, err := parseIntInRange("BATCH_SIZE", 50, 1, 1000)
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", true)
	if err != nil {
		return nil, err
	}

	tzName := envOrDefault("ZONE_TIMEZONE", "Asia/Kolkata")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid ZONE_TIMEZONE %q: %w", tzName, err)
	}

	rateLimit := 20.0
	if s := os.Getenv("API_RATE_LIMIT"); s != "" {
		rateLimit, err = strconv.ParseFloat(s, 64)
		if err != nil || rateLimit <= 0 {
			return nil, errors.New("invalid API_RATE_LIMIT")
		}
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DBPath:            envOrDefault("DB_PATH", "./data/tourist-safety.db"),
		ZonesFile:         os.Getenv("ZONES_FILE"),
		ZoneTimezone:      loc,
		DownstreamTimeout: downstreamTimeout,

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaLocationTopic: envOrDefault("KAFKA_LOCATION_TOPIC", "tourist-locations"),
		KafkaAlertTopic:    envOrDefault("KAFKA_ALERT_TOPIC", "tourist-alerts"),
		KafkaGroupID:       envOrDefault("KAFKA_GROUP_ID", "tourist-safety"),

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),

		APIRateLimit: rateLimit,
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
