//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/sap-forecast/internal/domain"
	"github.com/couchcryptid/sap-forecast/internal/forecast"
	"github.com/couchcryptid/sap-forecast/internal/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("sap-forecast-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// syntheticWeather repeats one season every year: frozen except for a
// freeze-thaw streak on January 10-14, with flat pressure and soil moisture.
type syntheticWeather struct{}

var thawMaxima = map[int]float64{10: 5, 11: 6, 12: 9, 13: 7, 14: 6}

func (syntheticWeather) DailyTemperatures(_ context.Context, _ domain.Location, from, to time.Time) ([]domain.TemperatureDay, error) {
	var days []domain.TemperatureDay
	for _, d := range domain.DateRange(from, to) {
		day := domain.TemperatureDay{Date: d, Min: -8, Max: -1, Valid: true}
		if hi, ok := thawMaxima[d.Day()]; ok && d.Month() == time.January {
			day.Min, day.Max = -3, hi
		}
		days = append(days, day)
	}
	return days, nil
}

func (syntheticWeather) DailyPressure(_ context.Context, _ domain.Location, from, to time.Time) (domain.Series, error) {
	return flatSeries(from, to, 1000), nil
}

func (syntheticWeather) DailySoilMoisture(_ context.Context, _ domain.Location, from, to time.Time) (domain.Series, error) {
	return flatSeries(from, to, 0.30), nil
}

func flatSeries(from, to time.Time, v float64) domain.Series {
	days := domain.DateRange(from, to)
	pts := make([]domain.Point, len(days))
	for i, d := range days {
		pts[i] = domain.Value(d, v)
	}
	return domain.MustSeries(pts)
}

func newForecastService(t *testing.T, metrics *observability.Metrics) *forecast.Service {
	t.Helper()
	now := time.Date(2026, time.October, 18, 14, 30, 0, 0, time.UTC)
	svc, err := forecast.NewService(forecast.DefaultConfig(), syntheticWeather{}, nil,
		clockwork.NewFakeClockAt(now), discardLogger(), metrics)
	require.NoError(t, err)
	return svc
}
