package domain

import "time"

// EventKind enumerates audited events.
type EventKind string

const (
	EventTouristRegistered   EventKind = "tourist_registered"
	EventTouristLogin        EventKind = "tourist_login"
	EventTouristLogout       EventKind = "tourist_logout"
	EventPanicAlertTriggered EventKind = "panic_alert_triggered"
	EventGeofenceBreach      EventKind = "geofence_breach"
	EventLocationUpdated     EventKind = "location_updated"
	EventProfileUpdated      EventKind = "profile_updated"
	EventAlertResolved       EventKind = "alert_resolved"
	EventSystemAccess        EventKind = "system_access"
)

// ActorRole is who caused an audited event.
type ActorRole string

const (
	RoleTourist ActorRole = "tourist"
	RoleStaff   ActorRole = "staff"
	RolePolice  ActorRole = "police"
	RoleAdmin   ActorRole = "admin"
	RoleSystem  ActorRole = "system"
)

// AuditEvent is an append-only audit trail entry.
type AuditEvent struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"event"`
	TouristID string    `json:"tourist_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	ActorRole ActorRole `json:"user_role"`
	Details   string    `json:"details"`
	AlertID   string    `json:"alert_id,omitempty"`
}
