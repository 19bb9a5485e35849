package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/tourist-safety-service/internal/domain"
)

// PanicReport is a panic-button press from a tourist's device.
type PanicReport struct {
	TouristID string   `json:"tourist_id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address,omitempty"`
}

// PanicResult identifies the alert created for a panic report.
type PanicResult struct {
	AlertID   string             `json:"alert_id"`
	Status    domain.AlertStatus `json:"status"`
	Timestamp time.Time          `json:"timestamp"`
	Notified  int                `json:"notified"`
}

// LocationReport is one position update from a tourist's device.
type LocationReport struct {
	TouristID string   `json:"tourist_id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`

	// sampleID, when set, is reused for the stored sample instead of a new ID.
	sampleID string
}

// LocationResult tells the caller what was recorded and whether the position
// raised a geofence alert.
type LocationResult struct {
	LocationID    string                `json:"location_id"`
	Status        domain.LocationStatus `json:"status"`
	GeofenceAlert bool                  `json:"geofence_alert"`
	AlertID       string                `json:"alert_id,omitempty"`
	Verdict       domain.Verdict        `json:"geofence"`
}

// NearbyTourist is a tourist whose latest position is close to a search point.
type NearbyTourist struct {
	Tourist        TouristSummary        `json:"tourist"`
	Location       domain.LocationSample `json:"location"`
	DistanceMeters int64                 `json:"distance"`
}

// TouristSummary is the public part of a tourist's registration.
type TouristSummary struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Nationality string               `json:"nationality"`
	Status      domain.TouristStatus `json:"status"`
}

func summarize(t domain.Tourist) TouristSummary {
	return TouristSummary{ID: t.ID, Name: t.Name, Nationality: t.Nationality, Status: t.Status}
}

func (r LocationReport) telemetry() domain.Telemetry {
	return domain.Telemetry{
		Accuracy: r.Accuracy,
		Altitude: r.Altitude,
		Speed:    r.Speed,
		Heading:  r.Heading,
	}
}

func requireTouristID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("tourist_id is required: %w", domain.ErrInvalidInput)
	}
	return nil
}

// coordinateFrom requires both components to be present and in range.
func coordinateFrom(lat, lon *float64) (domain.Coordinate, error) {
	if lat == nil || lon == nil {
		return domain.Coordinate{}, fmt.Errorf("latitude and longitude are required: %w", domain.ErrInvalidInput)
	}
	c := domain.Coordinate{Lon: *lon, Lat: *lat}
	if err := c.Validate(); err != nil {
		return domain.Coordinate{}, err
	}
	return c, nil
}
