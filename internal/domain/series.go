package domain

import (
	"fmt"
	"slices"
	"time"
)

// DateLayout is the ISO-8601 calendar date format used on every external surface.
const DateLayout = "2006-01-02"

// Point is one daily observation. Valid is false when the value is missing.
type Point struct {
	Date  time.Time
	Value float64
	Valid bool
}

// Value returns a valid point for date.
func Value(date time.Time, v float64) Point {
	return Point{Date: Day(date), Value: v, Valid: true}
}

// Missing returns a point with no value for date.
func Missing(date time.Time) Point {
	return Point{Date: Day(date)}
}

// Series is an ordered daily time series with unique, strictly increasing dates.
// The zero value is an empty series.
type Series struct {
	points []Point
}

// NewSeries builds a Series from points in any order. Dates are truncated to
// UTC midnight; duplicate dates are rejected.
func NewSeries(points []Point) (Series, error) {
	out := make([]Point, len(points))
	for i, p := range points {
		if p.Date.IsZero() {
			return Series{}, fmt.Errorf("%w: point %d has no date", ErrInvalidInput, i)
		}
		p.Date = Day(p.Date)
		out[i] = p
	}
	slices.SortFunc(out, func(a, b Point) int { return a.Date.Compare(b.Date) })
	for i := 1; i < len(out); i++ {
		if out[i].Date.Equal(out[i-1].Date) {
			return Series{}, fmt.Errorf("%w: duplicate date %s", ErrInvalidInput, FormatDate(out[i].Date))
		}
	}
	return Series{points: out}, nil
}

// MustSeries is NewSeries for statically known input. It panics on error.
func MustSeries(points []Point) Series {
	s, err := NewSeries(points)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.points) }

// Points returns a copy of the points in date order.
func (s Series) Points() []Point { return slices.Clone(s.points) }

// At returns the i-th point.
func (s Series) At(i int) Point { return s.points[i] }

// Clone returns an independent copy.
func (s Series) Clone() Series { return Series{points: slices.Clone(s.points)} }

// First returns the earliest point; ok is false for an empty series.
func (s Series) First() (Point, bool) {
	if len(s.points) == 0 {
		return Point{}, false
	}
	return s.points[0], true
}

// Last returns the latest point; ok is false for an empty series.
func (s Series) Last() (Point, bool) {
	if len(s.points) == 0 {
		return Point{}, false
	}
	return s.points[len(s.points)-1], true
}

// Dates returns the date axis.
func (s Series) Dates() []time.Time {
	out := make([]time.Time, len(s.points))
	for i, p := range s.points {
		out[i] = p.Date
	}
	return out
}

// ValidCount returns the number of non-missing points.
func (s Series) ValidCount() int {
	n := 0
	for _, p := range s.points {
		if p.Valid {
			n++
		}
	}
	return n
}

// Slice returns the points with dates inside [start, end].
func (s Series) Slice(start, end time.Time) Series {
	start, end = Day(start), Day(end)
	lo, _ := slices.BinarySearchFunc(s.points, start, comparePointDate)
	hi, found := slices.BinarySearchFunc(s.points, end, comparePointDate)
	if found {
		hi++
	}
	if lo >= hi {
		return Series{}
	}
	return Series{points: slices.Clone(s.points[lo:hi])}
}

// SameAxis reports whether both series carry exactly the same dates.
func (s Series) SameAxis(o Series) bool {
	if len(s.points) != len(o.points) {
		return false
	}
	for i := range s.points {
		if !s.points[i].Date.Equal(o.points[i].Date) {
			return false
		}
	}
	return true
}

func comparePointDate(p Point, t time.Time) int { return p.Date.Compare(t) }

// dateIndex is the working series used during prediction: valid points kept
// sorted by date, with nearest-date lookup by binary search. Upserts keep the
// order so a value written for day d is visible to every later lookup.
type dateIndex struct {
	points []Point
}

func newDateIndex(s Series) *dateIndex {
	pts := make([]Point, 0, s.Len())
	for _, p := range s.points {
		if p.Valid {
			pts = append(pts, p)
		}
	}
	return &dateIndex{points: pts}
}

func (ix *dateIndex) len() int { return len(ix.points) }

// upsert inserts the value for date, overwriting an existing entry.
func (ix *dateIndex) upsert(date time.Time, v float64) {
	i, found := slices.BinarySearchFunc(ix.points, date, comparePointDate)
	if found {
		ix.points[i].Value = v
		return
	}
	ix.points = slices.Insert(ix.points, i, Point{Date: date, Value: v, Valid: true})
}

// nearest resolves the value at date. An exact match wins; otherwise the entry
// with the smallest absolute day distance is used, and on a tie the earlier
// date. distance is 0 for an exact match. The index must not be empty.
func (ix *dateIndex) nearest(date time.Time) (p Point, distance int) {
	i, found := slices.BinarySearchFunc(ix.points, date, comparePointDate)
	if found {
		return ix.points[i], 0
	}
	switch {
	case i == 0:
		return ix.points[0], DaysBetween(date, ix.points[0].Date)
	case i == len(ix.points):
		last := ix.points[len(ix.points)-1]
		return last, DaysBetween(last.Date, date)
	}
	before, after := ix.points[i-1], ix.points[i]
	dBefore := DaysBetween(before.Date, date)
	dAfter := DaysBetween(date, after.Date)
	if dAfter < dBefore {
		return after, dAfter
	}
	return before, dBefore
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of days from a to b (negative when b is before a).
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// DateRange returns every day in [start, end]; empty when start is after end.
func DateRange(start, end time.Time) []time.Time {
	start, end = Day(start), Day(end)
	if start.After(end) {
		return nil
	}
	out := make([]time.Time, 0, DaysBetween(start, end)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// ParseDate parses an ISO-8601 calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed date %q", ErrInvalidInput, s)
	}
	return t, nil
}

// FormatDate renders t as an ISO-8601 calendar date.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }
