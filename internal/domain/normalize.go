package domain

import "fmt"

// Bound is one end of a Band.
type Bound struct {
	Value     float64
	Inclusive bool
}

// Incl returns an inclusive bound.
func Incl(v float64) *Bound { return &Bound{Value: v, Inclusive: true} }

// Excl returns an exclusive bound.
func Excl(v float64) *Bound { return &Bound{Value: v} }

// Band maps the values between Lower and Upper to a score. A nil bound is
// unbounded on that side. Linear bands interpolate from From at Lower to To at
// Upper; fixed bands always score From.
type Band struct {
	Lower, Upper *Bound
	From, To     float64
	Linear       bool
}

func (b Band) contains(v float64) bool {
	if b.Lower != nil {
		if v < b.Lower.Value || (v == b.Lower.Value && !b.Lower.Inclusive) {
			return false
		}
	}
	if b.Upper != nil {
		if v > b.Upper.Value || (v == b.Upper.Value && !b.Upper.Inclusive) {
			return false
		}
	}
	return true
}

func (b Band) score(v float64) float64 {
	if !b.Linear || b.Lower == nil || b.Upper == nil || b.Upper.Value == b.Lower.Value {
		return b.From
	}
	frac := (v - b.Lower.Value) / (b.Upper.Value - b.Lower.Value)
	return b.From + frac*(b.To-b.From)
}

// NullPolicy decides what a Rule does with a missing value.
type NullPolicy int

const (
	// NullPropagate maps a missing value to a missing score.
	NullPropagate NullPolicy = iota
	// NullReject fails with ErrMissingValue.
	NullReject
)

// Rule is an ordered list of bands evaluated top to bottom; the first band
// containing the value wins. Values no band contains score Default.
type Rule struct {
	Name    string
	Bands   []Band
	Default float64
	Nulls   NullPolicy
}

// PressureRule scores surface pressure in hPa. Low pressure favours sap flow;
// the score falls linearly across four bands and is 0 above 1015 hPa.
func PressureRule() Rule {
	return Rule{
		Name: "pressure",
		Bands: []Band{
			{Upper: Excl(990), From: 1.0},
			{Lower: Incl(990), Upper: Excl(995), From: 1.0, To: 0.9, Linear: true},
			{Lower: Incl(995), Upper: Excl(1005), From: 0.9, To: 0.7, Linear: true},
			{Lower: Incl(1005), Upper: Excl(1013), From: 0.7, To: 0.5, Linear: true},
			{Lower: Incl(1013), Upper: Incl(1015), From: 0.5, To: 0.25, Linear: true},
		},
		Default: 0,
		Nulls:   NullReject,
	}
}

// SoilMoistureRule scores volumetric surface soil moisture (m³/m³) in discrete
// steps. Values between the closed bands (0.17–0.18, 0.20–0.21, 0.41–0.42)
// fall through to the default of 0.
func SoilMoistureRule() Rule {
	return Rule{
		Name: "soil_moisture",
		Bands: []Band{
			{Upper: Excl(0.14), From: 0},
			{Lower: Incl(0.14), Upper: Incl(0.17), From: 0.5},
			{Lower: Incl(0.18), Upper: Incl(0.20), From: 0.7},
			{Lower: Incl(0.21), Upper: Incl(0.41), From: 1},
			{Lower: Incl(0.42), Upper: Incl(0.54), From: 0.6},
			{Lower: Excl(0.54), From: 0.4},
		},
		Default: 0,
		Nulls:   NullPropagate,
	}
}

// Score maps a raw value to its favorability score.
func (r Rule) Score(v float64) float64 {
	for _, b := range r.Bands {
		if b.contains(v) {
			return b.score(v)
		}
	}
	return r.Default
}

// Apply scores a single point, honouring the rule's null policy.
func (r Rule) Apply(p Point) (Point, error) {
	if !p.Valid {
		if r.Nulls == NullReject {
			return Point{}, fmt.Errorf("%w: %s on %s", ErrMissingValue, r.Name, FormatDate(p.Date))
		}
		return Missing(p.Date), nil
	}
	return Value(p.Date, r.Score(p.Value)), nil
}

// ApplySeries scores every point of s.
func (r Rule) ApplySeries(s Series) (Series, error) {
	out := make([]Point, s.Len())
	for i, p := range s.points {
		np, err := r.Apply(p)
		if err != nil {
			return Series{}, err
		}
		out[i] = np
	}
	return Series{points: out}, nil
}
