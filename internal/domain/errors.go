package domain

import "errors"

var (
	// ErrInvalidInput covers empty or malformed series, inverted date ranges
	// and missing locations. It is never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoQualifyingData is returned when the inputs are well formed but hold
	// nothing the computation can use, e.g. no year with a freeze-thaw streak.
	ErrNoQualifyingData = errors.New("no qualifying data")

	// ErrMissingValue is returned by normalization rules that reject nulls.
	ErrMissingValue = errors.New("missing value")
)
