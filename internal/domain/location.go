package domain

import "time"

// LocationStatus summarizes the geofence outcome of a sample.
type LocationStatus string

const (
	LocationNormal  LocationStatus = "normal"
	LocationWarning LocationStatus = "warning"
	LocationDanger  LocationStatus = "danger"
)

// StatusFor maps a verdict to the status recorded on the location sample.
func StatusFor(v Verdict) LocationStatus {
	if !v.Violated {
		return LocationNormal
	}
	if v.Action == ActionImmediateAlert {
		return LocationDanger
	}
	return LocationWarning
}

// LocationSample is one persisted position report.
type LocationSample struct {
	ID         string         `json:"id"`
	TouristID  string         `json:"tourist_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Coordinate Coordinate     `json:"coordinates"`
	Address    string         `json:"address,omitempty"`
	Status     LocationStatus `json:"status"`
	Telemetry  Telemetry      `json:"telemetry"`
}
