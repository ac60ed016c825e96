// Package domain holds the forecasting core: daily time series, the
// lag-weighted predictor, piecewise normalization, the freeze-thaw window
// detector and the combined index.
//
// # Signals
//
// Three daily signals are forecast for a location and scored onto a common
// [0, 1] favorability scale, where 1 means ideal sap flow conditions:
//
//	Temperature:    daily maximum air temperature, projected by same-day-of-year
//	                climatology over the previous two years and min-max scaled
//	                across the window.
//	Pressure:       daily mean surface pressure (hPa), projected by the
//	                lag-weighted predictor and scored by [PressureRule].
//	Soil moisture:  daily mean surface soil moisture (m³/m³), projected by the
//	                lag-weighted predictor and scored by [SoilMoistureRule].
//
// # Lag-weighted prediction
//
// For every day d in the requested range, each configured lag (offset, weight)
// looks up the value at d − offset and the prediction is the weighted sum.
// Lookups resolve against the history plus every value already predicted in
// the same call, so the one- and two-day lags of later days see earlier
// predictions. A date with no entry resolves to the nearest entry by day
// distance; when two entries are equally near, the earlier date is used.
// Lookups farther than the configured fallback distance mark the prediction
// as degraded rather than failing it.
//
// # Freeze-thaw window
//
// A day is a freeze-thaw day when its minimum is below 0 °C and its maximum is
// above 4 °C and at most 10 °C. For each of the two previous seasons (Jan 1 –
// Apr 30) the runs of at least three such days are found and the season's
// window spans the earliest to the latest of them. The median start day of
// year and the median duration are projected onto the upcoming season.
//
// # Null handling
//
// The soil moisture rule propagates missing values, the pressure rule rejects
// them with [ErrMissingValue], and the combined index scores a missing input
// as 0. Each policy is a named setting on its configuration.
package domain
