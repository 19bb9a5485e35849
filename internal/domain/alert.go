package domain

import (
	"fmt"
	"math"
	"time"
)

// AlertType names what raised an alert.
type AlertType string

const (
	AlertPanicButton      AlertType = "panic_button"
	AlertGeofenceBreach   AlertType = "geofence_breach"
	AlertInactivity       AlertType = "inactivity"
	AlertDeviceOffline    AlertType = "device_offline"
	AlertEmergencyContact AlertType = "emergency_contact"
)

// AlertStatus tracks an alert through response.
type AlertStatus string

const (
	StatusPending      AlertStatus = "pending"
	StatusAcknowledged AlertStatus = "acknowledged"
	StatusInProgress   AlertStatus = "in_progress"
	StatusResolved     AlertStatus = "resolved"
	StatusFalseAlarm   AlertStatus = "false_alarm"
)

// Active reports whether the alert still needs a response.
func (s AlertStatus) Active() bool {
	return s == StatusPending || s == StatusAcknowledged || s == StatusInProgress
}

// ActiveStatuses lists the statuses considered open.
var ActiveStatuses = []AlertStatus{StatusPending, StatusAcknowledged, StatusInProgress}

// Channel is a recipient tag an alert was dispatched to.
type Channel string

const (
	ChannelTouristApp        Channel = "tourist_app"
	ChannelEmergencyContacts Channel = "emergency_contacts"
	ChannelNearestPolice     Channel = "nearest_police_unit"
	ChannelLocalPolice       Channel = "local_police"
	ChannelTourismOffice     Channel = "tourism_office"
)

// MaxNotesLength bounds resolution notes.
const MaxNotesLength = 1000

// Alert is a recorded panic or geofence event. Alerts are never deleted;
// the only mutation is Resolve.
type Alert struct {
	ID                  string            `json:"id"`
	TouristID           string            `json:"tourist_id"`
	Type                AlertType         `json:"type"`
	Timestamp           time.Time         `json:"timestamp"`
	Location            Coordinate        `json:"location"`
	Address             string            `json:"address,omitempty"`
	Description         string            `json:"description"`
	Severity            Severity          `json:"severity"`
	SentTo              []Channel         `json:"sent_to"`
	Status              AlertStatus       `json:"status"`
	ResponseTimeMinutes *int64            `json:"response_time,omitempty"`
	ResolvedAt          *time.Time        `json:"resolved_at,omitempty"`
	ResolvedBy          string            `json:"resolved_by,omitempty"`
	Notes               string            `json:"notes,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
}

// SentToContains reports whether ch is among the alert's recipients.
func (a Alert) SentToContains(ch Channel) bool {
	for _, c := range a.SentTo {
		if c == ch {
			return true
		}
	}
	return false
}

// Resolve marks the alert resolved at now and records the response time in
// whole minutes, rounded to nearest.
func (a *Alert) Resolve(resolvedBy, notes string, now time.Time) error {
	if resolvedBy == "" {
		return fmt.Errorf("resolved_by is required: %w", ErrInvalidInput)
	}
	if len(notes) > MaxNotesLength {
		return fmt.Errorf("notes exceed %d characters: %w", MaxNotesLength, ErrInvalidInput)
	}
	minutes := ResponseMinutes(a.Timestamp, now)
	a.Status = StatusResolved
	a.ResolvedAt = &now
	a.ResolvedBy = resolvedBy
	a.Notes = notes
	a.ResponseTimeMinutes = &minutes
	return nil
}

// ResponseMinutes returns resolvedAt - raisedAt in whole minutes, never negative.
func ResponseMinutes(raisedAt, resolvedAt time.Time) int64 {
	m := int64(math.Round(resolvedAt.Sub(raisedAt).Minutes()))
	if m < 0 {
		return 0
	}
	return m
}
