package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClimatology_AveragesSameDayOfYear(t *testing.T) {
	history := MustSeries([]Point{
		Value(date(2023, time.January, 10), 100), // three years back, outside the span
		Value(date(2024, time.January, 10), 2),
		Value(date(2025, time.January, 10), 6),
		Value(date(2025, time.January, 11), 8),
		Missing(date(2024, time.January, 11)),
	})

	got, err := Climatology(history, date(2026, time.January, 10), date(2026, time.January, 12), DefaultClimatologyConfig())
	require.NoError(t, err)
	require.Equal(t, 3, got.Len())

	assert.Equal(t, 4.0, got.At(0).Value)
	assert.Equal(t, 8.0, got.At(1).Value)
	assert.False(t, got.At(2).Valid)
	assert.Equal(t, date(2026, time.January, 12), got.At(2).Date)
}

func TestClimatology_BadInput(t *testing.T) {
	_, err := Climatology(Series{}, date(2026, time.March, 2), date(2026, time.March, 1), DefaultClimatologyConfig())
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = Climatology(Series{}, date(2026, time.March, 1), date(2026, time.March, 2), ClimatologyConfig{MinYears: 2, MaxYears: 1})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestInterpolate(t *testing.T) {
	start := date(2026, time.March, 1)
	s := MustSeries([]Point{
		Missing(start),
		Value(start.AddDate(0, 0, 1), 2),
		Missing(start.AddDate(0, 0, 2)),
		Missing(start.AddDate(0, 0, 3)),
		Value(start.AddDate(0, 0, 4), 8),
		Missing(start.AddDate(0, 0, 5)),
	})

	got := Interpolate(s)
	assert.False(t, got.At(0).Valid)
	assert.Equal(t, []float64{2, 4, 6, 8, 8}, values(got)[1:])
	assert.False(t, s.At(2).Valid, "input is not modified")
}

func TestMinMax(t *testing.T) {
	start := date(2026, time.March, 1)
	got := MinMax(MustSeries([]Point{
		Value(start, 2),
		Missing(start.AddDate(0, 0, 1)),
		Value(start.AddDate(0, 0, 2), 6),
		Value(start.AddDate(0, 0, 3), 4),
	}))
	assert.Equal(t, 0.0, got.At(0).Value)
	assert.False(t, got.At(1).Valid)
	assert.Equal(t, 1.0, got.At(2).Value)
	assert.Equal(t, 0.5, got.At(3).Value)

	flat := MinMax(seriesFrom(start, 3, 3, 3))
	assert.Equal(t, []float64{1, 1, 1}, values(flat))
}
