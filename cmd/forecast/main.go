// Command forecast prints a single tap-date forecast as JSON.
//
// Usage:
//
//	go run ./cmd/forecast -lat 43.7315 -lon -79.7624
//	go run ./cmd/forecast -address "Brampton, ON"
//
// Settings such as OPEN_METEO_URL and MAPBOX_TOKEN are read from the
// environment (or a .env file) exactly as the service reads them.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/sap-forecast/internal/adapter/mapbox"
	"github.com/couchcryptid/sap-forecast/internal/adapter/openmeteo"
	"github.com/couchcryptid/sap-forecast/internal/config"
	"github.com/couchcryptid/sap-forecast/internal/domain"
	"github.com/couchcryptid/sap-forecast/internal/forecast"
	"github.com/couchcryptid/sap-forecast/internal/observability"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var (
		lat     = flag.Float64("lat", 0, "latitude in decimal degrees")
		lon     = flag.Float64("lon", 0, "longitude in decimal degrees")
		address = flag.String("address", "", "free-text address, used when -lat/-lon are not given")
		bridge  = flag.Bool("bridge", false, "predict every day between the last observation and the window")
		rows    = flag.Bool("rows", false, "include the per-day index rows in the output")
	)
	flag.Parse()

	req := domain.Request{Address: *address}
	if isFlagSet("lat") || isFlagSet("lon") {
		req.Latitude, req.Longitude = lat, lon
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		geocoder = mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
	} else if req.Address != "" && !req.HasCoordinates() {
		return errors.New("-address needs MAPBOX_TOKEN; pass -lat and -lon instead")
	}

	weather := openmeteo.NewClient(cfg.OpenMeteoURL, cfg.OpenMeteoTimezone, cfg.OpenMeteoTimeout, logger, metrics)

	fcfg := forecast.DefaultConfig()
	fcfg.BridgeHistory = cfg.BridgeHistory || *bridge
	svc, err := forecast.NewService(fcfg, weather, geocoder, clockwork.NewRealClock(), logger, metrics)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := svc.Forecast(ctx, req)
	if err != nil {
		return fmt.Errorf("forecast: %w", err)
	}
	if !*rows {
		res.Rows = nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
