package openmeteo

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sap-forecast/internal/domain"
	"github.com/couchcryptid/sap-forecast/internal/observability"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

var brampton = domain.Location{Lat: 43.7315, Lon: -79.7624}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func f(v float64) *float64 { return &v }

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *observability.Metrics) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	metrics := observability.NewMetricsForTesting()
	return NewClient(srv.URL, "UTC", 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics), metrics
}

func writeHourly(t *testing.T, w http.ResponseWriter, h hourly) {
	t.Helper()
	w.Header().Set(headerContentType, contentTypeJSON)
	require.NoError(t, json.NewEncoder(w).Encode(archiveResponse{Latitude: 43.73, Longitude: -79.76, Timezone: "GMT", Hourly: h}))
}

func TestClient_DailyTemperatures(t *testing.T) {
	c, metrics := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "43.7315", q.Get("latitude"))
		assert.Equal(t, "-79.7624", q.Get("longitude"))
		assert.Equal(t, "2025-01-01", q.Get("start_date"))
		assert.Equal(t, "2025-01-03", q.Get("end_date"))
		assert.Equal(t, "temperature_2m", q.Get("hourly"))
		assert.Equal(t, "UTC", q.Get("timezone"))

		writeHourly(t, w, hourly{
			Time: []string{
				"2025-01-01T00:00", "2025-01-01T06:00", "2025-01-01T14:00",
				"2025-01-02T00:00", "2025-01-02T12:00",
				"2025-01-03T00:00",
			},
			Temperature2m: []*float64{f(-4.2), f(-6), f(6.5), nil, f(1), nil},
		})
	})

	days, err := c.DailyTemperatures(context.Background(), brampton, day(2025, time.January, 1), day(2025, time.January, 3))
	require.NoError(t, err)
	require.Len(t, days, 3)

	assert.Equal(t, domain.TemperatureDay{Date: day(2025, time.January, 1), Min: -6, Max: 6.5, Valid: true}, days[0])
	assert.Equal(t, domain.TemperatureDay{Date: day(2025, time.January, 2), Min: 1, Max: 1, Valid: true}, days[1])
	assert.False(t, days[2].Valid)
	assert.Equal(t, day(2025, time.January, 3), days[2].Date)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.UpstreamRequests.WithLabelValues("temperature", "success")), 0)
}

func TestClient_DailyPressureAndSoilMoisture(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("hourly") {
		case "surface_pressure":
			writeHourly(t, w, hourly{
				Time:            []string{"2025-03-01T00:00", "2025-03-01T12:00", "2025-03-02T00:00"},
				SurfacePressure: []*float64{f(1000), f(1010), f(998.5)},
			})
		case "soil_moisture_0_to_7cm":
			writeHourly(t, w, hourly{
				Time:               []string{"2025-03-01T00:00", "2025-03-02T00:00"},
				SoilMoisture0To7cm: []*float64{f(0.31), nil},
			})
		default:
			http.Error(w, "unexpected variable", http.StatusBadRequest)
		}
	})

	pressure, err := c.DailyPressure(context.Background(), brampton, day(2025, time.March, 1), day(2025, time.March, 2))
	require.NoError(t, err)
	require.Equal(t, 2, pressure.Len())
	assert.Equal(t, 1005.0, pressure.At(0).Value)
	assert.Equal(t, 998.5, pressure.At(1).Value)

	soil, err := c.DailySoilMoisture(context.Background(), brampton, day(2025, time.March, 1), day(2025, time.March, 2))
	require.NoError(t, err)
	require.Equal(t, 2, soil.Len())
	assert.Equal(t, 0.31, soil.At(0).Value)
	assert.False(t, soil.At(1).Valid)
}

func TestClient_RejectedRequest(t *testing.T) {
	c, metrics := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":true,"reason":"Parameter 'start_date' is out of allowed range"}`))
	})

	_, err := c.DailyPressure(context.Background(), brampton, day(1900, time.January, 1), day(1900, time.January, 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, errRejected)
	assert.Contains(t, err.Error(), "out of allowed range")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.UpstreamRequests.WithLabelValues("pressure", "error")), 0)
}

func TestClient_InvertedRange(t *testing.T) {
	var calls atomic.Int32
	c, _ := testClient(t, func(http.ResponseWriter, *http.Request) { calls.Add(1) })

	_, err := c.DailySoilMoisture(context.Background(), brampton, day(2025, time.March, 2), day(2025, time.March, 1))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, calls.Load())
}

func TestClient_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	c, metrics := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	})

	for range 6 {
		_, err := c.DailyPressure(context.Background(), brampton, day(2025, time.March, 1), day(2025, time.March, 2))
		require.Error(t, err)
	}
	assert.Equal(t, int32(6), calls.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.BreakerOpen), 0)
	require.Error(t, c.CheckReadiness(context.Background()))

	_, err := c.DailyPressure(context.Background(), brampton, day(2025, time.March, 1), day(2025, time.March, 2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")
	assert.Equal(t, int32(6), calls.Load(), "open breaker short-circuits the request")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.UpstreamRequests.WithLabelValues("pressure", "rejected")), 0)
}

func TestClient_ClientErrorsDoNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	c, metrics := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":true,"reason":"bad"}`, http.StatusBadRequest)
	})

	for range 8 {
		_, err := c.DailyPressure(context.Background(), brampton, day(2025, time.March, 1), day(2025, time.March, 2))
		require.ErrorIs(t, err, errRejected)
	}
	assert.Equal(t, int32(8), calls.Load())
	assert.Zero(t, testutil.ToFloat64(metrics.BreakerOpen))
	require.NoError(t, c.CheckReadiness(context.Background()))
}

func TestGroupByDay_MismatchedLengths(t *testing.T) {
	_, err := groupByDay([]string{"2025-01-01T00:00"}, nil)
	require.Error(t, err)

	_, err = groupByDay([]string{"yesterday"}, []*float64{f(1)})
	require.Error(t, err)
}
