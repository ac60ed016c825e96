package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// flatHistory returns n consecutive days ending the day before end, all with value v.
func flatHistory(end time.Time, n int, v float64) Series {
	pts := make([]Point, n)
	for i := range pts {
		pts[i] = Value(end.AddDate(0, 0, -(n - i)), v)
	}
	return MustSeries(pts)
}

func TestLagWeightsSumToOne(t *testing.T) {
	for name, cfg := range map[string]PredictorConfig{
		"pressure":      PressurePredictorConfig(),
		"soil_moisture": SoilMoisturePredictorConfig(),
	} {
		t.Run(name, func(t *testing.T) {
			assert.InDelta(t, 1.0, cfg.TotalWeight(), 1e-9)
		})
	}
	assert.Len(t, PressurePredictorConfig().Lags, 7)
	assert.Len(t, SoilMoisturePredictorConfig().Lags, 4)
	assert.Equal(t, 1825, PressurePredictorConfig().MaxOffset())
	assert.Equal(t, 730, SoilMoisturePredictorConfig().MaxOffset())
}

func TestNewPredictor_RejectsBadConfig(t *testing.T) {
	_, err := NewPredictor(PredictorConfig{})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewPredictor(PredictorConfig{Lags: []LagSpec{{Name: "neg", Offset: 1, Weight: -0.5}}})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestPredict_CoversRangeWithoutGaps(t *testing.T) {
	p, err := NewPredictor(PressurePredictorConfig())
	require.NoError(t, err)

	start, end := date(2026, time.March, 4), date(2026, time.March, 30)
	history := flatHistory(date(2025, time.November, 1), 6*365, 1010)

	pred, err := p.Predict(history, start, end)
	require.NoError(t, err)

	require.Equal(t, 27, pred.Series.Len())
	for i := 0; i < pred.Series.Len(); i++ {
		assert.Equal(t, start.AddDate(0, 0, i), pred.Series.At(i).Date)
		assert.True(t, pred.Series.At(i).Valid)
	}
}

func TestPredict_FlatHistoryStaysFlat(t *testing.T) {
	p, err := NewPredictor(SoilMoisturePredictorConfig())
	require.NoError(t, err)

	start := date(2026, time.February, 1)
	history := flatHistory(start, 3*365, 0.3)

	pred, err := p.Predict(history, start, start.AddDate(0, 0, 14))
	require.NoError(t, err)
	for _, pt := range pred.Series.Points() {
		assert.InDelta(t, 0.3, pt.Value, 1e-12)
	}
	assert.False(t, pred.Degraded)
}

func TestPredict_Deterministic(t *testing.T) {
	p, err := NewPredictor(PressurePredictorConfig())
	require.NoError(t, err)

	pts := make([]Point, 0, 2000)
	base := date(2020, time.January, 1)
	for i := 0; i < 2000; i++ {
		pts = append(pts, Value(base.AddDate(0, 0, i), 1000+float64(i%17)))
	}
	history := MustSeries(pts)
	start, end := base.AddDate(0, 0, 2000), base.AddDate(0, 0, 2030)

	a, err := p.Predict(history, start, end)
	require.NoError(t, err)
	b, err := p.Predict(history, start, end)
	require.NoError(t, err)
	assert.Equal(t, a.Series.Points(), b.Series.Points())
}

func TestPredict_DoesNotMutateHistory(t *testing.T) {
	p, err := NewPredictor(SoilMoisturePredictorConfig())
	require.NoError(t, err)

	start := date(2026, time.February, 1)
	history := flatHistory(start, 800, 0.25)
	before := history.Points()

	_, err = p.Predict(history, start, start.AddDate(0, 0, 10))
	require.NoError(t, err)
	assert.Equal(t, before, history.Points())
	assert.Equal(t, 800, history.Len())
}

func TestPredict_SelfReference(t *testing.T) {
	// A single one-day lag carries each prediction into the next day.
	p, err := NewPredictor(PredictorConfig{
		Lags:             []LagSpec{{Name: "1d", Offset: 1, Weight: 1}},
		FallbackDistance: 3,
	})
	require.NoError(t, err)

	start := date(2026, time.March, 1)
	history := MustSeries([]Point{
		Value(start.AddDate(0, 0, -2), 5),
		Value(start.AddDate(0, 0, -1), 7),
	})

	pred, err := p.Predict(history, start, start.AddDate(0, 0, 4))
	require.NoError(t, err)
	for i := 1; i < pred.Series.Len(); i++ {
		assert.Equal(t, pred.Series.At(i-1).Value, pred.Series.At(i).Value)
	}
	assert.Equal(t, 7.0, pred.Series.At(0).Value)
	assert.False(t, pred.Degraded)
}

func TestPredict_SelfReferenceFeedsTwoDayLag(t *testing.T) {
	// Fibonacci-like recurrence: day d = 0.5·(d−1) + 0.5·(d−2).
	p, err := NewPredictor(PredictorConfig{
		Lags: []LagSpec{
			{Name: "1d", Offset: 1, Weight: 0.5},
			{Name: "2d", Offset: 2, Weight: 0.5},
		},
		FallbackDistance: 3,
	})
	require.NoError(t, err)

	start := date(2026, time.March, 1)
	history := MustSeries([]Point{
		Value(start.AddDate(0, 0, -2), 0),
		Value(start.AddDate(0, 0, -1), 8),
	})

	pred, err := p.Predict(history, start, start.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 6, 5}, values(pred.Series))
}

func TestPredict_RoundsOnlyEmittedValues(t *testing.T) {
	p, err := NewPredictor(PredictorConfig{
		Lags:             []LagSpec{{Name: "1d", Offset: 1, Weight: 2}},
		Round:            true,
		Decimals:         2,
		FallbackDistance: 3,
	})
	require.NoError(t, err)

	start := date(2026, time.March, 1)
	history := MustSeries([]Point{Value(start.AddDate(0, 0, -1), 1.004)})

	pred, err := p.Predict(history, start, start.AddDate(0, 0, 2))
	require.NoError(t, err)

	// Unrounded values feed the next day: 2.008, 4.016, 8.032.
	// Feeding rounded values back would give 8.04 on the third day.
	assert.Equal(t, []float64{2.01, 4.02, 8.03}, values(pred.Series))
}

func TestPredict_OverwritesOverlappingHistory(t *testing.T) {
	p, err := NewPredictor(PredictorConfig{
		Lags:             []LagSpec{{Name: "1d", Offset: 1, Weight: 1}},
		FallbackDistance: 3,
	})
	require.NoError(t, err)

	start := date(2026, time.March, 1)
	history := MustSeries([]Point{
		Value(start.AddDate(0, 0, -1), 3),
		Value(start, 100),
		Value(start.AddDate(0, 0, 1), 100),
	})

	pred, err := p.Predict(history, start, start.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 3}, values(pred.Series))
}

func TestPredict_NearestNeighbourTieBreakPrefersEarlier(t *testing.T) {
	p, err := NewPredictor(PredictorConfig{
		Lags:             []LagSpec{{Name: "10d", Offset: 10, Weight: 1}},
		FallbackDistance: 5,
	})
	require.NoError(t, err)

	start := date(2026, time.March, 20)
	lookup := start.AddDate(0, 0, -10) // March 10
	history := MustSeries([]Point{
		Value(lookup.AddDate(0, 0, -2), 111), // March 8, two days before
		Value(lookup.AddDate(0, 0, 2), 222),  // March 12, two days after
	})

	pred, err := p.Predict(history, start, start)
	require.NoError(t, err)
	assert.Equal(t, 111.0, pred.Series.At(0).Value)
}

func TestDateIndex_Nearest(t *testing.T) {
	ix := newDateIndex(MustSeries([]Point{
		Value(date(2026, time.January, 1), 1),
		Value(date(2026, time.January, 5), 5),
		Missing(date(2026, time.January, 6)),
		Value(date(2026, time.January, 10), 10),
	}))

	tests := []struct {
		lookup   time.Time
		want     float64
		distance int
	}{
		{date(2026, time.January, 5), 5, 0},
		{date(2026, time.January, 6), 5, 1},   // missing entries are skipped
		{date(2026, time.January, 3), 1, 2},   // tie between Jan 1 and Jan 5
		{date(2026, time.January, 8), 10, 2},  // Jan 10 is closer
		{date(2025, time.December, 1), 1, 31}, // before the first entry
		{date(2026, time.March, 1), 10, 50},   // after the last entry
	}
	for _, tt := range tests {
		t.Run(FormatDate(tt.lookup), func(t *testing.T) {
			p, d := ix.nearest(tt.lookup)
			assert.Equal(t, tt.want, p.Value)
			assert.Equal(t, tt.distance, d)
		})
	}
}

func TestPredict_FarExtrapolationIsDegradedNotFatal(t *testing.T) {
	p, err := NewPredictor(PressurePredictorConfig())
	require.NoError(t, err)

	// Only 30 days of history, all long before the range.
	history := flatHistory(date(2024, time.January, 1), 30, 1002)
	pred, err := p.Predict(history, date(2026, time.March, 1), date(2026, time.March, 5))
	require.NoError(t, err)
	assert.True(t, pred.Degraded)
	assert.Positive(t, pred.FallbackLookups)
	assert.Equal(t, 5, pred.Series.Len())
}

func TestPredict_InputErrors(t *testing.T) {
	p, err := NewPredictor(SoilMoisturePredictorConfig())
	require.NoError(t, err)
	start := date(2026, time.March, 1)

	_, err = p.Predict(Series{}, start, start)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = p.Predict(MustSeries([]Point{Missing(start.AddDate(0, 0, -1))}), start, start)
	require.ErrorIs(t, err, ErrInvalidInput, "a history of only nulls has nothing to predict from")

	_, err = p.Predict(flatHistory(start, 10, 0.2), start, start.AddDate(0, 0, -1))
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = p.Predict(flatHistory(start, 10, 0.2), time.Time{}, start)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewSeries_RejectsDuplicates(t *testing.T) {
	_, err := NewSeries([]Point{
		Value(date(2026, time.January, 1), 1),
		Value(time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC), 2),
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewSeries_SortsAndSlices(t *testing.T) {
	s := MustSeries([]Point{
		Value(date(2026, time.January, 3), 3),
		Value(date(2026, time.January, 1), 1),
		Value(date(2026, time.January, 2), 2),
	})
	assert.Equal(t, []float64{1, 2, 3}, values(s))
	assert.Equal(t, []float64{2, 3}, values(s.Slice(date(2026, time.January, 2), date(2026, time.January, 9))))
	assert.Equal(t, 0, s.Slice(date(2026, time.February, 1), date(2026, time.February, 9)).Len())
}

func values(s Series) []float64 {
	out := make([]float64, s.Len())
	for i := range out {
		out[i] = s.At(i).Value
	}
	return out
}
