package domain

import "math"

// EarthRadiusMeters is the mean radius used for the spherical approximation.
const EarthRadiusMeters = 6371000.0

// Distance returns the great-circle distance in meters between two points
// using the haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := deg2rad(lat1)
	phi2 := deg2rad(lat2)
	dPhi := deg2rad(lat2 - lat1)
	dLambda := deg2rad(lon2 - lon1)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda

	// Floating-point overshoot near antipodes can push a past 1.
	a = math.Max(0, math.Min(1, a))

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(a))
}

// DistanceBetween is Distance for two Coordinates.
func DistanceBetween(a, b Coordinate) float64 {
	return Distance(a.Lat, a.Lon, b.Lat, b.Lon)
}

func deg2rad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Bounds is a latitude/longitude box, edges inclusive.
type Bounds struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoundsAround returns a box that encloses every point within radiusM of c.
// The box spans all longitudes when the circle reaches a pole or crosses the
// antimeridian.
func BoundsAround(c Coordinate, radiusM float64) Bounds {
	// Slack keeps points exactly on the circle inside the box.
	angular := radiusM / EarthRadiusMeters * (1 + 1e-6)
	dLat := angular * 180 / math.Pi

	b := Bounds{
		MinLat: math.Max(c.Lat-dLat, -90),
		MaxLat: math.Min(c.Lat+dLat, 90),
		MinLon: -180,
		MaxLon: 180,
	}
	if b.MinLat == -90 || b.MaxLat == 90 {
		return b
	}
	s := math.Sin(angular) / math.Cos(deg2rad(c.Lat))
	if s >= 1 {
		return b
	}
	dLon := math.Asin(s) * 180 / math.Pi
	if c.Lon-dLon < -180 || c.Lon+dLon > 180 {
		return b
	}
	b.MinLon, b.MaxLon = c.Lon-dLon, c.Lon+dLon
	return b
}

// Contains reports whether c lies inside the box.
func (b Bounds) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}
