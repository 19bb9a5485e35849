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

	httpadapter "github.com/couchcryptid/tourist-safety-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/tourist-safety-service/internal/adapter/kafka"
	"github.com/couchcryptid/tourist-safety-service/internal/adapter/mapbox"
	"github.com/couchcryptid/tourist-safety-service/internal/adapter/sqlite"
	"github.com/couchcryptid/tourist-safety-service/internal/adapter/zonefile"
	"github.com/couchcryptid/tourist-safety-service/internal/config"
	"github.com/couchcryptid/tourist-safety-service/internal/domain"
	"github.com/couchcryptid/tourist-safety-service/internal/notify"
	"github.com/couchcryptid/tourist-safety-service/internal/observability"
	"github.com/couchcryptid/tourist-safety-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		logger.Error("service failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	zones, err := loadZones(cfg.ZonesFile, logger)
	if err != nil {
		return err
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("database opened", "path", cfg.DBPath)

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var (
		publisher notify.Publisher = notify.NewLogPublisher(logger)
		writer    *kafkaadapter.Writer
		reader    *kafkaadapter.Reader
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		reader = kafkaadapter.NewReader(cfg, logger)
		publisher = writer
	} else {
		logger.Info("kafka disabled, notifications are logged only")
	}

	p, err := pipeline.New(pipeline.Deps{
		Zones:     zones,
		Directory: store,
		Alerts:    store,
		Locations: store,
		Notifier:  notify.NewGateway(publisher, logger),
		Audit:     store,
		Geocoder:  geocoder,
		Logger:    logger,
		Metrics:   metrics,
	}, pipeline.Config{
		ZoneLocation:      cfg.ZoneTimezone,
		DownstreamTimeout: cfg.DownstreamTimeout,
	})
	if err != nil {
		return err
	}

	checks := []httpadapter.ReadinessChecker{httpadapter.ReadinessFunc(store.Ping)}
	var consumer *pipeline.Consumer
	if reader != nil {
		consumer = pipeline.NewConsumer(reader, p, logger, metrics, nil, cfg.BatchSize)
		checks = append(checks, consumer)
	}

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:      cfg.HTTPAddr,
		RateLimit: cfg.APIRateLimit,
	}, p, httpadapter.AllReady(checks...), metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start location consumer.
	var wg sync.WaitGroup
	if consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx); err != nil {
				logger.Error("consumer error", "error", err)
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
	wg.Wait()
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// loadZones reads the zone table from path, or the built-in table when path
// is empty.
func loadZones(path string, logger *slog.Logger) (*domain.ZoneRegistry, error) {
	if path == "" {
		logger.Info("using built-in zone table")
		return domain.NewDefaultZoneRegistry(), nil
	}
	active, night, err := zonefile.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Info("zone table loaded", "path", path, "active", len(active), "night", len(night))
	return domain.NewZoneRegistry(active, night)
}
