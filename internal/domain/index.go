package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// NullFill decides how the combined index treats a missing normalized input.
type NullFill int

const (
	// FillZero scores a missing input as 0 before weighting.
	FillZero NullFill = iota
)

// IndexConfig weights the three normalized signals in the combined index.
type IndexConfig struct {
	TemperatureWeight float64
	PressureWeight    float64
	MoistureWeight    float64
	Nulls             NullFill
}

// DefaultIndexConfig weights temperature 0.4, pressure 0.3 and moisture 0.3.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		TemperatureWeight: 0.4,
		PressureWeight:    0.3,
		MoistureWeight:    0.3,
		Nulls:             FillZero,
	}
}

// IndexRow is one day of the combined index.
type IndexRow struct {
	Date        time.Time `json:"-"`
	Temperature *float64  `json:"temperature_normalized"`
	Pressure    *float64  `json:"pressure_normalized"`
	Moisture    *float64  `json:"soil_moisture_normalized"`
	Score       float64   `json:"score"`
}

// MarshalJSON renders the row with an ISO-8601 date.
func (r IndexRow) MarshalJSON() ([]byte, error) {
	type row IndexRow
	return json.Marshal(struct {
		Date string `json:"date"`
		row
	}{Date: FormatDate(r.Date), row: row(r)})
}

// Pick is the selected date of a combined index.
type Pick struct {
	Date   time.Time
	Offset int
	Score  float64
}

// Combine blends three normalized series sharing one date axis into a
// per-day weighted score.
func Combine(cfg IndexConfig, temperature, pressure, moisture Series) ([]IndexRow, error) {
	if temperature.Len() == 0 {
		return nil, fmt.Errorf("%w: combined index needs at least one day", ErrInvalidInput)
	}
	if !temperature.SameAxis(pressure) || !temperature.SameAxis(moisture) {
		return nil, fmt.Errorf("%w: normalized series are not aligned on the same dates", ErrInvalidInput)
	}

	rows := make([]IndexRow, temperature.Len())
	for i := range rows {
		t, p, m := temperature.At(i), pressure.At(i), moisture.At(i)
		rows[i] = IndexRow{
			Date:        t.Date,
			Temperature: optional(t),
			Pressure:    optional(p),
			Moisture:    optional(m),
			Score: cfg.TemperatureWeight*cfg.fill(t) +
				cfg.PressureWeight*cfg.fill(p) +
				cfg.MoistureWeight*cfg.fill(m),
		}
	}
	return rows, nil
}

func (c IndexConfig) fill(p Point) float64 {
	if p.Valid {
		return p.Value
	}
	// FillZero is the only policy.
	return 0
}

func optional(p Point) *float64 {
	if !p.Valid {
		return nil
	}
	v := p.Value
	return &v
}

// PickBest returns the row with the highest score. Ties resolve to the
// earliest row. Offset counts days from the first row.
func PickBest(rows []IndexRow) (Pick, error) {
	if len(rows) == 0 {
		return Pick{}, fmt.Errorf("%w: no index rows to pick from", ErrInvalidInput)
	}
	best := 0
	for i := 1; i < len(rows); i++ {
		if rows[i].Score > rows[best].Score {
			best = i
		}
	}
	return Pick{
		Date:   rows[best].Date,
		Offset: DaysBetween(rows[0].Date, rows[best].Date),
		Score:  rows[best].Score,
	}, nil
}
