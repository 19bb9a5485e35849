package domain

import (
	"context"
	"log/slog"
)

// ResolveAddress returns address unchanged when it is set. Otherwise it asks
// the geocoder for one; when geocoder is nil or the lookup fails the empty
// address is kept (graceful degradation).
func ResolveAddress(ctx context.Context, address string, c Coordinate, geocoder Geocoder, logger *slog.Logger) string {
	if address != "" || geocoder == nil {
		return address
	}

	result, err := geocoder.ReverseGeocode(ctx, c.Lat, c.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"lat", c.Lat,
			"lon", c.Lon,
			"error", err,
		)
		return ""
	}
	return result.FormattedAddress
}
