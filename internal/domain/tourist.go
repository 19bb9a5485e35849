package domain

import "time"

// TouristStatus is the registration state of a tourist.
type TouristStatus string

const (
	TouristActive   TouristStatus = "active"
	TouristInactive TouristStatus = "inactive"
	TouristExpired  TouristStatus = "expired"
)

// DefaultSafetyScore is assigned at registration.
const DefaultSafetyScore = 75

// EmergencyContact is someone notified when the tourist presses panic.
type EmergencyContact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
}

// Tourist is a registered visitor as held by the tourist directory.
type Tourist struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	PhoneNo           string             `json:"phone_no"`
	Nationality       string             `json:"nationality"`
	Itinerary         []string           `json:"trip_itinerary,omitempty"`
	EmergencyContacts []EmergencyContact `json:"emergency_contacts,omitempty"`
	ValidFrom         time.Time          `json:"valid_from"`
	ValidTo           time.Time          `json:"valid_to"`
	SafetyScore       int                `json:"safety_score"`
	Status            TouristStatus      `json:"status"`
	LastSeen          time.Time          `json:"last_seen"`
}

// Valid reports whether now is inside [ValidFrom, ValidTo] and the tourist is active.
func (t Tourist) Valid(now time.Time) bool {
	return !now.Before(t.ValidFrom) && !now.After(t.ValidTo) && t.Status == TouristActive
}
