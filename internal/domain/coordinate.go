package domain

import (
	"fmt"
	"math"
)

// Coordinate is a WGS-84 position. Longitude comes first to match GeoJSON
// ordering used by the mobile clients.
type Coordinate struct {
	Lon float64 `json:"longitude"`
	Lat float64 `json:"latitude"`
}

// Valid reports whether both components are finite and inside their ranges.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lon) || math.IsNaN(c.Lat) {
		return false
	}
	return c.Lon >= -180 && c.Lon <= 180 && c.Lat >= -90 && c.Lat <= 90
}

// Validate returns ErrInvalidInput when the coordinate is out of range.
func (c Coordinate) Validate() error {
	if !c.Valid() {
		return fmt.Errorf("coordinate (%g, %g): %w", c.Lon, c.Lat, ErrInvalidInput)
	}
	return nil
}

// Telemetry carries the optional device readings sent with a location report.
// Nil fields were not reported.
type Telemetry struct {
	Accuracy *float64 `json:"accuracy,omitempty"`
	Altitude *float64 `json:"altitude,omitempty"`
	Speed    *float64 `json:"speed,omitempty"`
	Heading  *float64 `json:"heading,omitempty"`
}

// DefaultAccuracyMeters is recorded when a device omits its accuracy.
const DefaultAccuracyMeters = 10.0

// Validate checks physically meaningful bounds. Altitude may be negative.
func (t Telemetry) Validate() error {
	if t.Accuracy != nil && (math.IsNaN(*t.Accuracy) || *t.Accuracy < 0) {
		return fmt.Errorf("accuracy must be non-negative: %w", ErrInvalidInput)
	}
	if t.Speed != nil && (math.IsNaN(*t.Speed) || *t.Speed < 0) {
		return fmt.Errorf("speed must be non-negative: %w", ErrInvalidInput)
	}
	if t.Heading != nil && (math.IsNaN(*t.Heading) || *t.Heading < 0 || *t.Heading > 360) {
		return fmt.Errorf("heading must be within [0,360]: %w", ErrInvalidInput)
	}
	if t.Altitude != nil && math.IsNaN(*t.Altitude) {
		return fmt.Errorf("altitude is not a number: %w", ErrInvalidInput)
	}
	return nil
}

// WithDefaults fills the accuracy default when the device did not report one.
func (t Telemetry) WithDefaults() Telemetry {
	if t.Accuracy == nil {
		acc := DefaultAccuracyMeters
		t.Accuracy = &acc
	}
	return t
}
