package openmeteo

import (
	"fmt"
	"time"

	"github.com/couchcryptid/sap-forecast/internal/domain"
)

// hourLayout is the local timestamp format of the hourly time axis.
const hourLayout = "2006-01-02T15:04"

type dayGroup struct {
	date   time.Time
	values []float64
}

// groupByDay buckets hourly values by their local calendar day, keeping days
// in the order they appear. Null hours are skipped but their day is kept.
func groupByDay(times []string, values []*float64) ([]dayGroup, error) {
	if len(times) != len(values) {
		return nil, fmt.Errorf("hourly response has %d timestamps but %d values", len(times), len(values))
	}
	var groups []dayGroup
	for i, ts := range times {
		t, err := time.Parse(hourLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse hourly timestamp %q: %w", ts, err)
		}
		day := domain.Day(t)
		if n := len(groups); n == 0 || !groups[n-1].date.Equal(day) {
			groups = append(groups, dayGroup{date: day})
		}
		if v := values[i]; v != nil {
			g := &groups[len(groups)-1]
			g.values = append(g.values, *v)
		}
	}
	return groups, nil
}

func (g dayGroup) mean() (float64, bool) {
	if len(g.values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range g.values {
		sum += v
	}
	return sum / float64(len(g.values)), true
}

func (g dayGroup) extremes() (lo, hi float64, ok bool) {
	if len(g.values) == 0 {
		return 0, 0, false
	}
	lo, hi = g.values[0], g.values[0]
	for _, v := range g.values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi, true
}

func dailyMeans(times []string, values []*float64) (domain.Series, error) {
	groups, err := groupByDay(times, values)
	if err != nil {
		return domain.Series{}, err
	}
	pts := make([]domain.Point, len(groups))
	for i, g := range groups {
		if m, ok := g.mean(); ok {
			pts[i] = domain.Value(g.date, m)
		} else {
			pts[i] = domain.Missing(g.date)
		}
	}
	return domain.NewSeries(pts)
}
