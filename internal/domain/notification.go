package domain

import "time"

// Notification is one message addressed to a single recipient about an alert.
type Notification struct {
	AlertID   string     `json:"alert_id"`
	AlertType AlertType  `json:"alert_type"`
	TouristID string     `json:"tourist_id"`
	Channel   Channel    `json:"channel"`
	Recipient string     `json:"recipient"`
	Name      string     `json:"recipient_name,omitempty"`
	Relation  string     `json:"relationship,omitempty"`
	Message   string     `json:"message"`
	Severity  Severity   `json:"severity"`
	Location  Coordinate `json:"location"`
	CreatedAt time.Time  `json:"created_at"`
}
