package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Geo sources recorded on a resolved location.
const (
	GeoSourceRequest = "request"
	GeoSourceForward = "forward"
	GeoSourceReverse = "reverse"
	GeoSourceFailed  = "failed"
)

// ResolvedLocation is a request's location after geocoding.
type ResolvedLocation struct {
	Location
	PlaceName string
	GeoSource string
}

// ResolveLocation turns a validated request into coordinates.
//
// Coordinates on the request are used as given and reverse geocoded for a
// place name; a reverse failure only degrades the place name. A request with
// only an address must be forward geocoded, so a missing geocoder, a provider
// error or an empty answer is an ErrInvalidInput failure.
func ResolveLocation(ctx context.Context, req Request, geocoder Geocoder, logger *slog.Logger) (ResolvedLocation, error) {
	if req.HasCoordinates() {
		loc := ResolvedLocation{
			Location:  Location{Lat: *req.Latitude, Lon: *req.Longitude},
			GeoSource: GeoSourceRequest,
		}
		if geocoder == nil {
			return loc, nil
		}
		result, err := geocoder.ReverseGeocode(ctx, loc.Lat, loc.Lon)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"request_id", req.ID,
				"lat", loc.Lat,
				"lon", loc.Lon,
				"error", err,
			)
			loc.GeoSource = GeoSourceFailed
			return loc, nil
		}
		if result.FormattedAddress != "" {
			loc.PlaceName = result.FormattedAddress
			loc.GeoSource = GeoSourceReverse
		}
		return loc, nil
	}

	address := strings.TrimSpace(req.Address)
	if address == "" {
		return ResolvedLocation{}, fmt.Errorf("%w: location is required", ErrInvalidInput)
	}
	if geocoder == nil {
		return ResolvedLocation{}, fmt.Errorf("%w: address %q given but geocoding is disabled", ErrInvalidInput, address)
	}

	result, err := geocoder.ForwardGeocode(ctx, address)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"request_id", req.ID,
			"address", address,
			"error", err,
		)
		return ResolvedLocation{}, fmt.Errorf("geocode %q: %w", address, err)
	}
	if result.Lat == 0 && result.Lon == 0 {
		return ResolvedLocation{}, fmt.Errorf("%w: address %q not found", ErrInvalidInput, address)
	}
	return ResolvedLocation{
		Location:  Location{Lat: result.Lat, Lon: result.Lon},
		PlaceName: result.FormattedAddress,
		GeoSource: GeoSourceForward,
	}, nil
}
