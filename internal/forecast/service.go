// Package forecast sequences the weather signals into a tap-date forecast for
// one location.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/sap-forecast/internal/domain"
	"github.com/couchcryptid/sap-forecast/internal/observability"
)

// Config gathers the per-signal configuration of a forecast.
type Config struct {
	Pressure         domain.PredictorConfig
	SoilMoisture     domain.PredictorConfig
	PressureRule     domain.Rule
	SoilMoistureRule domain.Rule
	FreezeThaw       domain.FreezeThawConfig
	Climatology      domain.ClimatologyConfig
	Index            domain.IndexConfig

	// BridgeHistory predicts every day from the end of the fetched history up
	// to the window, so the short lags of the first window days see predicted
	// values instead of the last observed ones.
	BridgeHistory bool
}

// DefaultConfig returns the production forecast configuration.
func DefaultConfig() Config {
	return Config{
		Pressure:         domain.PressurePredictorConfig(),
		SoilMoisture:     domain.SoilMoisturePredictorConfig(),
		PressureRule:     domain.PressureRule(),
		SoilMoistureRule: domain.SoilMoistureRule(),
		FreezeThaw:       domain.DefaultFreezeThawConfig(),
		Climatology:      domain.DefaultClimatologyConfig(),
		Index:            domain.DefaultIndexConfig(),
	}
}

// Service computes forecasts. It holds no per-request state and is safe for
// concurrent use.
type Service struct {
	cfg      Config
	pressure *domain.Predictor
	soil     *domain.Predictor
	detector *domain.Detector
	weather  domain.WeatherSource
	geocoder domain.Geocoder
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewService validates cfg and wires the forecast collaborators. geocoder may
// be nil, in which case only coordinate requests can be served.
func NewService(cfg Config, weather domain.WeatherSource, geocoder domain.Geocoder, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) (*Service, error) {
	if weather == nil {
		return nil, errors.New("forecast: weather source is required")
	}
	pressure, err := domain.NewPredictor(cfg.Pressure)
	if err != nil {
		return nil, fmt.Errorf("pressure predictor: %w", err)
	}
	soil, err := domain.NewPredictor(cfg.SoilMoisture)
	if err != nil {
		return nil, fmt.Errorf("soil moisture predictor: %w", err)
	}
	detector, err := domain.NewDetector(cfg.FreezeThaw)
	if err != nil {
		return nil, fmt.Errorf("freeze-thaw detector: %w", err)
	}
	return &Service{
		cfg:      cfg,
		pressure: pressure,
		soil:     soil,
		detector: detector,
		weather:  weather,
		geocoder: geocoder,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Forecast predicts the freeze-thaw window for the request's location and
// picks the most favorable tap date inside it. Any failure aborts the whole
// forecast.
func (s *Service) Forecast(ctx context.Context, req domain.Request) (domain.Result, error) {
	start := s.clock.Now()
	res, err := s.forecast(ctx, req)
	s.metrics.ForecastDuration.Observe(s.clock.Since(start).Seconds())
	s.metrics.Forecasts.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		return domain.Result{}, err
	}
	if res.Degraded {
		s.metrics.ForecastsDegraded.Inc()
	}
	return res, nil
}

func (s *Service) forecast(ctx context.Context, req domain.Request) (domain.Result, error) {
	if err := req.Validate(); err != nil {
		return domain.Result{}, err
	}
	loc, err := domain.ResolveLocation(ctx, req, s.geocoder, s.logger)
	if err != nil {
		return domain.Result{}, err
	}
	if err := loc.Validate(); err != nil {
		return domain.Result{}, err
	}

	now := s.clock.Now().UTC()
	window, obs, err := s.freezeThawWindow(ctx, loc.Location, now)
	if err != nil {
		return domain.Result{}, err
	}

	h, err := s.fetchHistories(ctx, loc.Location, window, now)
	if err != nil {
		return domain.Result{}, err
	}

	pressure, err := s.predict(s.pressure, "pressure", h.pressure, window)
	if err != nil {
		return domain.Result{}, fmt.Errorf("pressure: %w", err)
	}
	soil, err := s.predict(s.soil, "soil_moisture", h.soil, window)
	if err != nil {
		return domain.Result{}, fmt.Errorf("soil moisture: %w", err)
	}

	pressureScore, err := s.cfg.PressureRule.ApplySeries(pressure.Series)
	if err != nil {
		return domain.Result{}, fmt.Errorf("pressure: %w", err)
	}
	soilScore, err := s.cfg.SoilMoistureRule.ApplySeries(soil.Series)
	if err != nil {
		return domain.Result{}, fmt.Errorf("soil moisture: %w", err)
	}

	temp, err := domain.Climatology(h.temperature, window.Start, window.End, s.cfg.Climatology)
	if err != nil {
		return domain.Result{}, fmt.Errorf("temperature: %w", err)
	}
	tempScore := domain.MinMax(domain.Interpolate(temp))

	rows, err := domain.Combine(s.cfg.Index, tempScore, pressureScore, soilScore)
	if err != nil {
		return domain.Result{}, err
	}
	pick, err := domain.PickBest(rows)
	if err != nil {
		return domain.Result{}, err
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	degraded := pressure.Degraded || soil.Degraded

	s.logger.Info("forecast complete",
		"request_id", id,
		"lat", loc.Lat,
		"lon", loc.Lon,
		"window_start", domain.FormatDate(window.Start),
		"window_end", domain.FormatDate(window.End),
		"seasons_used", len(obs),
		"pick_date", domain.FormatDate(pick.Date),
		"pick_score", pick.Score,
		"degraded", degraded,
	)

	return domain.Result{
		ID:                  id,
		Latitude:            loc.Lat,
		Longitude:           loc.Lon,
		PlaceName:           loc.PlaceName,
		GeoSource:           loc.GeoSource,
		StartDateFreezeThaw: domain.FormatDate(window.Start),
		EndDateFreezeThaw:   domain.FormatDate(window.End),
		PickDate:            domain.FormatDate(pick.Date),
		PickOffset:          pick.Offset,
		PickScore:           pick.Score,
		Degraded:            degraded,
		Rows:                rows,
		GeneratedAt:         now,
	}, nil
}

// freezeThawWindow fetches every lookback season concurrently and runs the
// detector over them.
func (s *Service) freezeThawWindow(ctx context.Context, loc domain.Location, now time.Time) (domain.Window, []domain.YearlyObservation, error) {
	years := s.detector.LookbackYears(now)
	seasons := make(map[int][]domain.TemperatureDay, len(years))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, year := range years {
		g.Go(func() error {
			from, to := s.detector.Season(year)
			days, err := s.weather.DailyTemperatures(gctx, loc, from, to)
			if err != nil {
				return fmt.Errorf("fetch %d season temperatures: %w", year, err)
			}
			mu.Lock()
			seasons[year] = days
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Window{}, nil, err
	}

	window, obs, err := s.detector.Predict(seasons, now)
	if err != nil {
		return domain.Window{}, nil, err
	}
	if len(obs) < len(years) {
		s.logger.Warn("freeze-thaw window from partial history",
			"lat", loc.Lat,
			"lon", loc.Lon,
			"seasons_requested", len(years),
			"seasons_used", len(obs),
		)
	}
	return window, obs, nil
}

type histories struct {
	pressure    domain.Series
	soil        domain.Series
	temperature domain.Series
}

// fetchHistories loads the three signal histories concurrently. Each fetch
// reaches back far enough for the longest lag of the first predicted day and
// ends yesterday.
func (s *Service) fetchHistories(ctx context.Context, loc domain.Location, window domain.Window, now time.Time) (histories, error) {
	to := domain.Day(now).AddDate(0, 0, -1)
	first := window.Start
	if s.cfg.BridgeHistory && to.Before(first) {
		first = to.AddDate(0, 0, 1)
	}
	var h histories

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		from := first.AddDate(0, 0, -s.cfg.Pressure.MaxOffset())
		series, err := s.weather.DailyPressure(gctx, loc, from, to)
		if err != nil {
			return fmt.Errorf("fetch pressure history: %w", err)
		}
		h.pressure = series
		return nil
	})
	g.Go(func() error {
		from := first.AddDate(0, 0, -s.cfg.SoilMoisture.MaxOffset())
		series, err := s.weather.DailySoilMoisture(gctx, loc, from, to)
		if err != nil {
			return fmt.Errorf("fetch soil moisture history: %w", err)
		}
		h.soil = series
		return nil
	})
	g.Go(func() error {
		from := window.Start.AddDate(-s.cfg.Climatology.MaxYears, 0, 0)
		days, err := s.weather.DailyTemperatures(gctx, loc, from, to)
		if err != nil {
			return fmt.Errorf("fetch temperature history: %w", err)
		}
		series, err := dailyMaxima(days)
		if err != nil {
			return fmt.Errorf("temperature history: %w", err)
		}
		h.temperature = series
		return nil
	})
	if err := g.Wait(); err != nil {
		return histories{}, err
	}
	return h, nil
}

// predict runs p over the window. With BridgeHistory the prediction starts
// the day after the last observation and is trimmed to the window.
func (s *Service) predict(p *domain.Predictor, signal string, history domain.Series, window domain.Window) (domain.Prediction, error) {
	start := window.Start
	if s.cfg.BridgeHistory {
		if last, ok := history.Last(); ok && last.Date.Before(start) {
			start = last.Date.AddDate(0, 0, 1)
		}
	}

	pred, err := p.Predict(history, start, window.End)
	if err != nil {
		return domain.Prediction{}, err
	}
	if pred.FallbackLookups > 0 {
		s.metrics.PredictorFallbacks.WithLabelValues(signal).Add(float64(pred.FallbackLookups))
		s.logger.Debug("lag lookups fell back to distant history",
			"signal", signal,
			"fallback_lookups", pred.FallbackLookups,
		)
	}
	if !start.Equal(window.Start) {
		pred.Series = pred.Series.Slice(window.Start, window.End)
	}
	return pred, nil
}

func dailyMaxima(days []domain.TemperatureDay) (domain.Series, error) {
	pts := make([]domain.Point, len(days))
	for i, d := range days {
		if d.Valid {
			pts[i] = domain.Value(d.Date, d.Max)
		} else {
			pts[i] = domain.Missing(d.Date)
		}
	}
	return domain.NewSeries(pts)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrNoQualifyingData):
		return "no_data"
	default:
		return "error"
	}
}
