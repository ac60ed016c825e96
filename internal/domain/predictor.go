package domain

import (
	"fmt"
	"math"
	"time"
)

// LagSpec names a historical offset in whole days and the weight its value
// carries in a prediction.
type LagSpec struct {
	Name   string
	Offset int
	Weight float64
}

// PredictorConfig configures a LagWeightedPredictor for one signal.
type PredictorConfig struct {
	Lags []LagSpec

	// Round emits predictions rounded to Decimals places. The working series
	// always keeps full precision.
	Round    bool
	Decimals int

	// FallbackDistance is the largest nearest-neighbour distance in days that
	// still counts as a normal lookup. Farther lookups mark the prediction
	// as degraded.
	FallbackDistance int
}

// PressurePredictorConfig returns the seven-lag surface pressure configuration
// (1 day to 5 years). Predictions are rounded to hundredths of a hectopascal.
func PressurePredictorConfig() PredictorConfig {
	return PredictorConfig{
		Lags: []LagSpec{
			{Name: "1d", Offset: 1, Weight: 0.25},
			{Name: "2d", Offset: 2, Weight: 0.10},
			{Name: "1y", Offset: 365, Weight: 0.20},
			{Name: "2y", Offset: 730, Weight: 0.15},
			{Name: "3y", Offset: 1095, Weight: 0.10},
			{Name: "4y", Offset: 1460, Weight: 0.10},
			{Name: "5y", Offset: 1825, Weight: 0.10},
		},
		Round:            true,
		Decimals:         2,
		FallbackDistance: 3,
	}
}

// SoilMoisturePredictorConfig returns the four-lag soil moisture
// configuration (1 day to 2 years) at full precision.
func SoilMoisturePredictorConfig() PredictorConfig {
	return PredictorConfig{
		Lags: []LagSpec{
			{Name: "1d", Offset: 1, Weight: 0.35},
			{Name: "2d", Offset: 2, Weight: 0.15},
			{Name: "1y", Offset: 365, Weight: 0.30},
			{Name: "2y", Offset: 730, Weight: 0.20},
		},
		FallbackDistance: 3,
	}
}

// MaxOffset returns the longest lag in days.
func (c PredictorConfig) MaxOffset() int {
	longest := 0
	for _, l := range c.Lags {
		longest = max(longest, l.Offset)
	}
	return longest
}

// TotalWeight returns the sum of all lag weights.
func (c PredictorConfig) TotalWeight() float64 {
	var sum float64
	for _, l := range c.Lags {
		sum += l.Weight
	}
	return sum
}

// Predictor extrapolates a daily series forward as a weighted sum of lagged
// values, feeding each prediction back in as history for the following days.
type Predictor struct {
	cfg PredictorConfig
}

// NewPredictor validates cfg and returns a Predictor.
func NewPredictor(cfg PredictorConfig) (*Predictor, error) {
	if len(cfg.Lags) == 0 {
		return nil, fmt.Errorf("%w: predictor needs at least one lag", ErrInvalidInput)
	}
	for _, l := range cfg.Lags {
		if l.Offset < 0 || l.Weight < 0 {
			return nil, fmt.Errorf("%w: lag %q has negative offset or weight", ErrInvalidInput, l.Name)
		}
	}
	if cfg.Round && cfg.Decimals < 0 {
		return nil, fmt.Errorf("%w: negative rounding precision", ErrInvalidInput)
	}
	return &Predictor{cfg: cfg}, nil
}

// Config returns the predictor configuration.
func (p *Predictor) Config() PredictorConfig { return p.cfg }

// Prediction is the output of one Predict call.
type Prediction struct {
	Series Series

	// Degraded is set when at least one lag had to fall back to a neighbour
	// farther than FallbackDistance days away. The values are still usable.
	Degraded        bool
	FallbackLookups int
}

// Predict produces one value for every day in [start, end]. Days are
// processed in ascending order: each day's unrounded prediction is written
// into a private working copy of history before the next day is computed.
// Missing historical values are not used as lag sources. history is not
// modified.
func (p *Predictor) Predict(history Series, start, end time.Time) (Prediction, error) {
	if start.IsZero() || end.IsZero() {
		return Prediction{}, fmt.Errorf("%w: prediction range needs a start and an end", ErrInvalidInput)
	}
	start, end = Day(start), Day(end)
	if start.After(end) {
		return Prediction{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidInput, FormatDate(start), FormatDate(end))
	}
	working := newDateIndex(history)
	if working.len() == 0 {
		return Prediction{}, fmt.Errorf("%w: historical series has no values", ErrInvalidInput)
	}

	days := DateRange(start, end)
	out := make([]Point, 0, len(days))
	var fallbacks int
	for _, d := range days {
		var sum float64
		for _, lag := range p.cfg.Lags {
			v, dist := working.nearest(d.AddDate(0, 0, -lag.Offset))
			if dist > p.cfg.FallbackDistance {
				fallbacks++
			}
			sum += lag.Weight * v.Value
		}
		working.upsert(d, sum)

		emitted := sum
		if p.cfg.Round {
			emitted = round(sum, p.cfg.Decimals)
		}
		out = append(out, Point{Date: d, Value: emitted, Valid: true})
	}

	return Prediction{
		Series:          Series{points: out},
		Degraded:        fallbacks > 0,
		FallbackLookups: fallbacks,
	}, nil
}

func round(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
