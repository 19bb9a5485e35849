package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance_SamePoint(t *testing.T) {
	assert.InDelta(t, 0, Distance(26.6337, 92.7933, 26.6337, 92.7933), 1e-9)
}

func TestDistance_KnownPairs(t *testing.T) {
	tests := []struct {
		name       string
		lat1, lon1 float64
		lat2, lon2 float64
		want       float64
		delta      float64
	}{
		{"one degree of latitude", 0, 0, 1, 0, 111195, 1},
		{"one degree of longitude at equator", 0, 0, 0, 1, 111195, 1},
		{"Guwahati to Tezpur", 26.1445, 91.7362, 26.6337, 92.7933, 118000, 2000},
		{"antipodes", 0, 0, 0, 180, math.Pi * EarthRadiusMeters, 1},
		{"pole to pole", 90, 0, -90, 0, math.Pi * EarthRadiusMeters, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.want, got, tt.delta)
		})
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := Distance(25.2624, 91.7362, 26.5775, 93.3562)
	b := Distance(26.5775, 93.3562, 25.2624, 91.7362)
	assert.InDelta(t, a, b, 1e-6)
}

func TestDistance_NeverNaN(t *testing.T) {
	// Near-antipodal pairs can overshoot the asin domain without clamping.
	got := Distance(45, 0, -45, 180)
	assert.False(t, math.IsNaN(got))
	assert.InDelta(t, math.Pi*EarthRadiusMeters, got, 1)
}

func TestDistanceBetween_UsesLatLonOrder(t *testing.T) {
	a := Coordinate{Lon: 91.7458, Lat: 26.1733}
	b := Coordinate{Lon: 91.7458, Lat: 26.1823}
	assert.InDelta(t, Distance(a.Lat, a.Lon, b.Lat, b.Lon), DistanceBetween(a, b), 1e-9)
	assert.InDelta(t, 1000.75, DistanceBetween(a, b), 1)
}

// destination returns the point distM along the given bearing from c.
func destination(c Coordinate, bearingDeg, distM float64) Coordinate {
	d := distM / EarthRadiusMeters
	phi1, lambda1, theta := deg2rad(c.Lat), deg2rad(c.Lon), deg2rad(bearingDeg)
	phi2 := math.Asin(math.Sin(phi1)*math.Cos(d) + math.Cos(phi1)*math.Sin(d)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(math.Sin(theta)*math.Sin(d)*math.Cos(phi1), math.Cos(d)-math.Sin(phi1)*math.Sin(phi2))
	return Coordinate{Lat: phi2 * 180 / math.Pi, Lon: lambda2 * 180 / math.Pi}
}

func TestBoundsAround_EnclosesCircle(t *testing.T) {
	for _, center := range []Coordinate{
		{Lon: 91.7362, Lat: 26.1445},
		{Lon: 0, Lat: 0},
		{Lon: 18.0686, Lat: 59.3293},
	} {
		b := BoundsAround(center, 1000)
		for bearing := 0.0; bearing < 360; bearing += 5 {
			p := destination(center, bearing, 1000)
			assert.True(t, b.Contains(p), "center %v bearing %.0f point %v", center, bearing, p)
		}
		assert.False(t, b.Contains(destination(center, 0, 1100)))
		assert.False(t, b.Contains(destination(center, 90, 1100)))
	}
}

func TestBoundsAround_Degenerate(t *testing.T) {
	polar := BoundsAround(Coordinate{Lon: 10, Lat: 89.995}, 1000)
	assert.InDelta(t, 90, polar.MaxLat, 0)
	assert.Equal(t, -180.0, polar.MinLon)
	assert.Equal(t, 180.0, polar.MaxLon)

	dateLine := BoundsAround(Coordinate{Lon: 179.999, Lat: 0}, 1000)
	assert.Equal(t, -180.0, dateLine.MinLon)
	assert.Equal(t, 180.0, dateLine.MaxLon)
	assert.InDelta(t, 0.009, dateLine.MaxLat, 0.0001)
}
