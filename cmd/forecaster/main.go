package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/sap-forecast/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/sap-forecast/internal/adapter/kafka"
	"github.com/couchcryptid/sap-forecast/internal/adapter/mapbox"
	"github.com/couchcryptid/sap-forecast/internal/adapter/openmeteo"
	"github.com/couchcryptid/sap-forecast/internal/config"
	"github.com/couchcryptid/sap-forecast/internal/domain"
	"github.com/couchcryptid/sap-forecast/internal/forecast"
	"github.com/couchcryptid/sap-forecast/internal/observability"
	"github.com/couchcryptid/sap-forecast/internal/pipeline"
)

// readinessCheckers is ready when every member is.
type readinessCheckers []interface {
	CheckReadiness(ctx context.Context) error
}

func (r readinessCheckers) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled, address requests will be rejected")
	}

	weather := openmeteo.NewClient(cfg.OpenMeteoURL, cfg.OpenMeteoTimezone, cfg.OpenMeteoTimeout, logger, metrics)

	fcfg := forecast.DefaultConfig()
	fcfg.BridgeHistory = cfg.BridgeHistory
	svc, err := forecast.NewService(fcfg, weather, geocoder, clockwork.NewRealClock(), logger, metrics)
	if err != nil {
		logger.Error("failed to build forecast service", "error", err)
		os.Exit(1)
	}

	ready := readinessCheckers{weather}

	var (
		p      *pipeline.Pipeline
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p = pipeline.New(reader, pipeline.NewTransformer(svc, logger), writer, logger, metrics, cfg.BatchSize)
		ready = append(ready, p)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, ready, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start request pipeline.
	if p != nil {
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
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
}
