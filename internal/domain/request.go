package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Location is a WGS-84 latitude/longitude pair in decimal degrees.
type Location struct {
	Lat float64 `json:"latitude" validate:"latitude"`
	Lon float64 `json:"longitude" validate:"longitude"`
}

// Request asks for a tap-date forecast. Either Address or both coordinates
// must be present; coordinates win when both are given.
type Request struct {
	ID        string   `json:"id,omitempty"`
	Address   string   `json:"address,omitempty" validate:"omitempty,max=256"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"required_with=Longitude,omitempty,latitude"`
	Longitude *float64 `json:"longitude,omitempty" validate:"required_with=Latitude,omitempty,longitude"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and that the request names a place.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag())
			}
			return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !r.HasCoordinates() && strings.TrimSpace(r.Address) == "" {
		return fmt.Errorf("%w: location is required (address or latitude/longitude)", ErrInvalidInput)
	}
	return nil
}

// HasCoordinates reports whether both coordinates are set.
func (r Request) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Validate checks that the location is on the globe.
func (l Location) Validate() error {
	if err := validate.Struct(l); err != nil {
		return fmt.Errorf("%w: location %.6f,%.6f out of range", ErrInvalidInput, l.Lat, l.Lon)
	}
	return nil
}

// Result is the forecast returned to callers. Dates are ISO-8601 strings.
type Result struct {
	ID                  string     `json:"id"`
	Latitude            float64    `json:"latitude"`
	Longitude           float64    `json:"longitude"`
	PlaceName           string     `json:"place_name,omitempty"`
	GeoSource           string     `json:"geo_source,omitempty"` // "request", "forward", "reverse", "failed"
	StartDateFreezeThaw string     `json:"start_date_freeze_thaw"`
	EndDateFreezeThaw   string     `json:"end_date_freeze_thaw"`
	PickDate            string     `json:"pick_date"`
	PickOffset          int        `json:"pick_offset"`
	PickScore           float64    `json:"pick_score"`
	Degraded            bool       `json:"degraded"`
	Rows                []IndexRow `json:"rows,omitempty"`
	GeneratedAt         time.Time  `json:"generated_at"`
}
