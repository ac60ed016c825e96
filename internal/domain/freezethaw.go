package domain

import (
	"fmt"
	"slices"
	"time"
)

// TemperatureDay holds the daily air temperature extremes in °C.
type TemperatureDay struct {
	Date  time.Time
	Min   float64
	Max   float64
	Valid bool
}

// FreezeThawConfig configures the freeze-thaw window detector.
type FreezeThawConfig struct {
	// A day qualifies when Min < FreezeBelow and ThawAbove < Max <= ThawAtMost.
	FreezeBelow float64
	ThawAbove   float64
	ThawAtMost  float64

	// MinStreak is the shortest run of qualifying days that counts.
	MinStreak int

	// LookbackYears is how many calendar years before the current one are mined.
	LookbackYears int

	// The season mined in every lookback year, as month/day pairs.
	SeasonStartMonth time.Month
	SeasonStartDay   int
	SeasonEndMonth   time.Month
	SeasonEndDay     int

	// After CutoverMonth the forecast targets next year's season.
	CutoverMonth time.Month
}

// DefaultFreezeThawConfig mines Jan 1 – Apr 30 of the two previous years for
// streaks of at least three nights below 0 °C followed by 4–10 °C days.
func DefaultFreezeThawConfig() FreezeThawConfig {
	return FreezeThawConfig{
		FreezeBelow:      0,
		ThawAbove:        4,
		ThawAtMost:       10,
		MinStreak:        3,
		LookbackYears:    2,
		SeasonStartMonth: time.January,
		SeasonStartDay:   1,
		SeasonEndMonth:   time.April,
		SeasonEndDay:     30,
		CutoverMonth:     time.April,
	}
}

// StreakWindow is the date span a detected freeze-thaw pattern covers.
type StreakWindow struct {
	Start time.Time
	End   time.Time
}

// Window is the predicted freeze-thaw window for the upcoming season.
type Window struct {
	Start time.Time
	End   time.Time
	Year  int
}

// Days returns the number of days in the window, inclusive.
func (w Window) Days() int { return DaysBetween(w.Start, w.End) + 1 }

// YearlyObservation is the window detected in one historical season.
type YearlyObservation struct {
	Year           int
	StartDayOfYear int
	DurationDays   int
}

// Streak is a maximal run of equal boolean values starting at index Start.
type Streak struct {
	Value  bool
	Start  int
	Length int
}

// Streaks run-length encodes flags into maximal same-value runs.
func Streaks(flags []bool) []Streak {
	var out []Streak
	for i, f := range flags {
		if n := len(out); n > 0 && out[n-1].Value == f {
			out[n-1].Length++
			continue
		}
		out = append(out, Streak{Value: f, Start: i, Length: 1})
	}
	return out
}

// Detector predicts the freeze-thaw window from historical seasons.
type Detector struct {
	cfg FreezeThawConfig
}

// NewDetector validates cfg and returns a Detector.
func NewDetector(cfg FreezeThawConfig) (*Detector, error) {
	if cfg.MinStreak < 1 {
		return nil, fmt.Errorf("%w: freeze-thaw streak length must be positive", ErrInvalidInput)
	}
	if cfg.LookbackYears < 1 {
		return nil, fmt.Errorf("%w: freeze-thaw lookback must cover at least one year", ErrInvalidInput)
	}
	return &Detector{cfg: cfg}, nil
}

// Config returns the detector configuration.
func (d *Detector) Config() FreezeThawConfig { return d.cfg }

// LookbackYears returns the calendar years to mine, oldest first.
func (d *Detector) LookbackYears(now time.Time) []int {
	years := make([]int, 0, d.cfg.LookbackYears)
	for i := d.cfg.LookbackYears; i >= 1; i-- {
		years = append(years, now.Year()-i)
	}
	return years
}

// Season returns the first and last day of the mined season in year.
func (d *Detector) Season(year int) (time.Time, time.Time) {
	start := time.Date(year, d.cfg.SeasonStartMonth, d.cfg.SeasonStartDay, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, d.cfg.SeasonEndMonth, d.cfg.SeasonEndDay, 0, 0, 0, 0, time.UTC)
	return start, end
}

// Qualifies reports whether a day shows the freeze-thaw pattern. Days with
// missing temperatures never qualify.
func (d *Detector) Qualifies(day TemperatureDay) bool {
	return day.Valid &&
		day.Min < d.cfg.FreezeBelow &&
		day.Max > d.cfg.ThawAbove &&
		day.Max <= d.cfg.ThawAtMost
}

// DetectYearWindow finds the window in one season. The window runs from the
// first day of the earliest qualifying streak to the last day of the latest
// one, so it spans any gaps between streaks. ok is false when no streak of at
// least MinStreak days exists.
func (d *Detector) DetectYearWindow(days []TemperatureDay) (StreakWindow, bool) {
	days = slices.Clone(days)
	slices.SortFunc(days, func(a, b TemperatureDay) int { return a.Date.Compare(b.Date) })

	flags := make([]bool, len(days))
	for i, day := range days {
		flags[i] = d.Qualifies(day)
	}

	first, last := -1, -1
	for _, s := range Streaks(flags) {
		if !s.Value || s.Length < d.cfg.MinStreak {
			continue
		}
		if first < 0 {
			first = s.Start
		}
		last = s.Start + s.Length - 1
	}
	if first < 0 {
		return StreakWindow{}, false
	}
	return StreakWindow{Start: Day(days[first].Date), End: Day(days[last].Date)}, true
}

// Observe reduces every season to its yearly observation, dropping seasons
// without a qualifying streak. Observations are ordered by year.
func (d *Detector) Observe(seasons map[int][]TemperatureDay) []YearlyObservation {
	years := make([]int, 0, len(seasons))
	for y := range seasons {
		years = append(years, y)
	}
	slices.Sort(years)

	var obs []YearlyObservation
	for _, y := range years {
		w, ok := d.DetectYearWindow(seasons[y])
		if !ok {
			continue
		}
		obs = append(obs, YearlyObservation{
			Year:           y,
			StartDayOfYear: w.Start.YearDay(),
			DurationDays:   DaysBetween(w.Start, w.End),
		})
	}
	return obs
}

// TargetYear is the season the forecast is for: next year once now is past
// the cutover month, otherwise the current year.
func (d *Detector) TargetYear(now time.Time) int {
	if now.Month() > d.cfg.CutoverMonth {
		return now.Year() + 1
	}
	return now.Year()
}

// Predict projects the median historical window onto the target season.
// The start is Jan 1 of the target year plus (median start day-of-year − 1)
// days and the end is the start plus (median duration − 1) days.
func (d *Detector) Predict(seasons map[int][]TemperatureDay, now time.Time) (Window, []YearlyObservation, error) {
	obs := d.Observe(seasons)
	if len(obs) == 0 {
		return Window{}, nil, fmt.Errorf("%w: no freeze-thaw streak in %d historical seasons", ErrNoQualifyingData, len(seasons))
	}

	starts := make([]int, len(obs))
	durations := make([]int, len(obs))
	for i, o := range obs {
		starts[i] = o.StartDayOfYear
		durations[i] = o.DurationDays
	}
	medianStart := median(starts)
	medianDuration := median(durations)

	year := d.TargetYear(now)
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, medianStart-1)
	end := start.AddDate(0, 0, medianDuration-1)
	return Window{Start: start, End: end, Year: year}, obs, nil
}

// median returns the middle value, or for an even count the mean of the two
// middle values truncated toward zero.
func median(vals []int) int {
	s := slices.Clone(vals)
	slices.Sort(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
