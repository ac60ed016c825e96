// Package openmeteo implements domain.WeatherSource over the Open-Meteo
// historical weather archive. Hourly reanalysis values are aggregated to
// daily values on the client.
package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/couchcryptid/sap-forecast/internal/domain"
	"github.com/couchcryptid/sap-forecast/internal/observability"
)

// Hourly archive variables.
const (
	varTemperature  = "temperature_2m"
	varPressure     = "surface_pressure"
	varSoilMoisture = "soil_moisture_0_to_7cm"
)

// errRejected marks a 4xx answer. It fails the request but does not count
// against the circuit breaker.
var errRejected = errors.New("open-meteo rejected request")

// Client implements domain.WeatherSource using the Open-Meteo archive API.
type Client struct {
	baseURL    string
	timezone   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[hourly]
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an archive client. baseURL is the full archive endpoint,
// e.g. https://archive-api.open-meteo.com/v1/archive.
func NewClient(baseURL, timezone string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	c := &Client{
		baseURL:    baseURL,
		timezone:   timezone,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
	}
	c.breaker = gobreaker.NewCircuitBreaker[hourly](gobreaker.Settings{
		Name:        "open-meteo",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errRejected) || errors.Is(err, context.Canceled)
		},
		OnStateChange: c.onStateChange,
	})
	return c
}

func (c *Client) onStateChange(name string, from, to gobreaker.State) {
	c.logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
	if to == gobreaker.StateOpen {
		c.metrics.BreakerOpen.Set(1)
	} else {
		c.metrics.BreakerOpen.Set(0)
	}
}

// CheckReadiness fails while the circuit breaker is open.
func (c *Client) CheckReadiness(_ context.Context) error {
	if c.breaker.State() == gobreaker.StateOpen {
		return errors.New("open-meteo circuit breaker is open")
	}
	return nil
}

// DailyTemperatures returns the daily minimum and maximum of the hourly 2 m
// air temperature. Days without any hourly value are marked invalid.
func (c *Client) DailyTemperatures(ctx context.Context, loc domain.Location, from, to time.Time) ([]domain.TemperatureDay, error) {
	h, err := c.fetch(ctx, "temperature", varTemperature, loc, from, to)
	if err != nil {
		return nil, err
	}
	groups, err := groupByDay(h.Time, h.Temperature2m)
	if err != nil {
		return nil, err
	}
	days := make([]domain.TemperatureDay, len(groups))
	for i, g := range groups {
		days[i] = domain.TemperatureDay{Date: g.date}
		if lo, hi, ok := g.extremes(); ok {
			days[i].Min, days[i].Max, days[i].Valid = lo, hi, true
		}
	}
	return days, nil
}

// DailyPressure returns the daily mean surface pressure in hPa.
func (c *Client) DailyPressure(ctx context.Context, loc domain.Location, from, to time.Time) (domain.Series, error) {
	h, err := c.fetch(ctx, "pressure", varPressure, loc, from, to)
	if err != nil {
		return domain.Series{}, err
	}
	return dailyMeans(h.Time, h.SurfacePressure)
}

// DailySoilMoisture returns the daily mean volumetric soil moisture of the
// top 7 cm in m³/m³.
func (c *Client) DailySoilMoisture(ctx context.Context, loc domain.Location, from, to time.Time) (domain.Series, error) {
	h, err := c.fetch(ctx, "soil_moisture", varSoilMoisture, loc, from, to)
	if err != nil {
		return domain.Series{}, err
	}
	return dailyMeans(h.Time, h.SoilMoisture0To7cm)
}

func (c *Client) fetch(ctx context.Context, signal, variable string, loc domain.Location, from, to time.Time) (hourly, error) {
	from, to = domain.Day(from), domain.Day(to)
	if from.After(to) {
		return hourly{}, fmt.Errorf("%w: %s range %s..%s is inverted", domain.ErrInvalidInput, signal, domain.FormatDate(from), domain.FormatDate(to))
	}

	params := url.Values{
		"latitude":   {strconv.FormatFloat(loc.Lat, 'f', 4, 64)},
		"longitude":  {strconv.FormatFloat(loc.Lon, 'f', 4, 64)},
		"start_date": {domain.FormatDate(from)},
		"end_date":   {domain.FormatDate(to)},
		"hourly":     {variable},
		"timezone":   {c.timezone},
	}
	fullURL := c.baseURL + "?" + params.Encode()

	start := time.Now()
	h, err := c.breaker.Execute(func() (hourly, error) {
		return c.doRequest(ctx, fullURL)
	})
	c.metrics.UpstreamDuration.WithLabelValues(signal).Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.UpstreamRequests.WithLabelValues(signal, "rejected").Inc()
		return hourly{}, fmt.Errorf("%s history: weather archive unavailable: %w", signal, err)
	case err != nil:
		c.metrics.UpstreamRequests.WithLabelValues(signal, "error").Inc()
		c.logger.Warn("weather archive request failed",
			"signal", signal,
			"lat", loc.Lat,
			"lon", loc.Lon,
			"start_date", domain.FormatDate(from),
			"end_date", domain.FormatDate(to),
			"error", err,
		)
		return hourly{}, fmt.Errorf("%s history: %w", signal, err)
	}
	c.metrics.UpstreamRequests.WithLabelValues(signal, "success").Inc()
	return h, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (hourly, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return hourly{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return hourly{}, fmt.Errorf("archive request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr errorResponse
		reason := string(body)
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Reason != "" {
			reason = apiErr.Reason
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return hourly{}, fmt.Errorf("%w: status %d: %s", errRejected, resp.StatusCode, reason)
		}
		return hourly{}, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, reason)
	}

	var ar archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return hourly{}, fmt.Errorf("decode response: %w", err)
	}
	return ar.Hourly, nil
}

// Open-Meteo API response types.

type archiveResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	Hourly    hourly  `json:"hourly"`
}

type hourly struct {
	Time               []string   `json:"time"`
	Temperature2m      []*float64 `json:"temperature_2m"`
	SurfacePressure    []*float64 `json:"surface_pressure"`
	SoilMoisture0To7cm []*float64 `json:"soil_moisture_0_to_7cm"`
}

type errorResponse struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}
