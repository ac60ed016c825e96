package domain

import (
	"context"
	"time"
)

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves free-text addresses and coordinates.
type Geocoder interface {
	// ForwardGeocode converts a free-text address to coordinates.
	ForwardGeocode(ctx context.Context, address string) (GeocodingResult, error)

	// ReverseGeocode converts coordinates to place details.
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}

// WeatherSource supplies materialized daily histories for a location. Every
// returned series covers [from, to] as far as the provider has data.
type WeatherSource interface {
	// DailyTemperatures returns daily minimum and maximum air temperature in °C.
	DailyTemperatures(ctx context.Context, loc Location, from, to time.Time) ([]TemperatureDay, error)

	// DailyPressure returns the daily mean surface pressure in hPa.
	DailyPressure(ctx context.Context, loc Location, from, to time.Time) (Series, error)

	// DailySoilMoisture returns the daily mean surface soil moisture in m³/m³.
	DailySoilMoisture(ctx context.Context, loc Location, from, to time.Time) (Series, error)
}
