package domain

import (
	"fmt"
	"time"
)

// ClimatologyConfig bounds the historical span averaged for each forecast day:
// values from MaxYears to MinYears before the day, on the same day of year.
type ClimatologyConfig struct {
	MinYears int
	MaxYears int
}

// DefaultClimatologyConfig averages the same day of year one and two years back.
func DefaultClimatologyConfig() ClimatologyConfig {
	return ClimatologyConfig{MinYears: 1, MaxYears: 2}
}

// Climatology predicts each day in [start, end] as the mean of the historical
// values sharing its day of year within the configured span. Days without any
// such value are missing.
func Climatology(history Series, start, end time.Time, cfg ClimatologyConfig) (Series, error) {
	start, end = Day(start), Day(end)
	if start.After(end) {
		return Series{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidInput, FormatDate(start), FormatDate(end))
	}
	if cfg.MinYears < 0 || cfg.MaxYears < cfg.MinYears {
		return Series{}, fmt.Errorf("%w: climatology span %d..%d years", ErrInvalidInput, cfg.MinYears, cfg.MaxYears)
	}

	days := DateRange(start, end)
	out := make([]Point, len(days))
	for i, d := range days {
		past := history.Slice(d.AddDate(-cfg.MaxYears, 0, 0), d.AddDate(-cfg.MinYears, 0, 0))
		var sum float64
		var n int
		for _, p := range past.points {
			if p.Valid && p.Date.YearDay() == d.YearDay() {
				sum += p.Value
				n++
			}
		}
		if n == 0 {
			out[i] = Missing(d)
			continue
		}
		out[i] = Value(d, sum/float64(n))
	}
	return Series{points: out}, nil
}

// Interpolate fills interior gaps linearly by position, forward-fills
// trailing gaps with the last value and leaves leading gaps missing.
func Interpolate(s Series) Series {
	out := s.Clone()
	pts := out.points
	prev := -1
	for i, p := range pts {
		if !p.Valid {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			from, to := pts[prev].Value, p.Value
			span := float64(i - prev)
			for j := prev + 1; j < i; j++ {
				pts[j].Value = from + (to-from)*float64(j-prev)/span
				pts[j].Valid = true
			}
		}
		prev = i
	}
	if prev >= 0 {
		for j := prev + 1; j < len(pts); j++ {
			pts[j].Value = pts[prev].Value
			pts[j].Valid = true
		}
	}
	return out
}

// MinMax rescales the valid values of s onto [0, 1]. When every valid value
// is equal each of them scores 1. Missing values stay missing.
func MinMax(s Series) Series {
	out := s.Clone()
	lo, hi := 0.0, 0.0
	seen := false
	for _, p := range out.points {
		if !p.Valid {
			continue
		}
		if !seen {
			lo, hi, seen = p.Value, p.Value, true
			continue
		}
		lo = min(lo, p.Value)
		hi = max(hi, p.Value)
	}
	for i, p := range out.points {
		if !p.Valid {
			continue
		}
		if hi == lo {
			out.points[i].Value = 1
			continue
		}
		out.points[i].Value = (p.Value - lo) / (hi - lo)
	}
	return out
}
