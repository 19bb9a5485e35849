// Package notify turns alerts into per-recipient notifications and hands
// them to a publisher for delivery.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/tourist-safety-service/internal/domain"
)

// Publisher delivers notifications and reports how many were accepted.
// A partial failure returns the accepted count with a non-nil error.
type Publisher interface {
	Publish(ctx context.Context, msgs ...domain.Notification) (int, error)
}

// PoliceRecipient addresses the police dispatch desk.
const PoliceRecipient = "police-dispatch"

// Gateway fans alerts out to emergency contacts, police and the tourist app.
type Gateway struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewGateway creates a Gateway publishing through p.
func NewGateway(p Publisher, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{publisher: p, logger: logger}
}

// NotifyPanic sends one SMS-style message per emergency contact plus one
// police dispatch. It returns the number of messages accepted.
func (g *Gateway) NotifyPanic(ctx context.Context, t domain.Tourist, a domain.Alert) (int, error) {
	msgs := make([]domain.Notification, 0, len(t.EmergencyContacts)+1)
	for _, c := range t.EmergencyContacts {
		msgs = append(msgs, base(t, a, domain.ChannelEmergencyContacts, c.Phone, panicContactMessage(t, a), func(n *domain.Notification) {
			n.Name = c.Name
			n.Relation = c.Relationship
		}))
	}
	msgs = append(msgs, base(t, a, domain.ChannelNearestPolice, PoliceRecipient, panicPoliceMessage(t, a), nil))

	g.logger.Info("sending panic alert notifications",
		"alert_id", a.ID,
		"tourist_id", t.ID,
		"emergency_contacts", len(t.EmergencyContacts),
	)

	sent, err := g.publisher.Publish(ctx, msgs...)
	if err != nil {
		return sent, fmt.Errorf("publish panic notifications: %w: %w", domain.ErrNotificationFailure, err)
	}
	return sent, nil
}

// NotifyGeofence warns the tourist through the app and, for high and
// critical zones, also alerts local police.
func (g *Gateway) NotifyGeofence(ctx context.Context, t domain.Tourist, a domain.Alert) error {
	msgs := []domain.Notification{
		base(t, a, domain.ChannelTouristApp, t.ID, geofenceTouristMessage(a), nil),
	}
	if a.Severity == domain.SeverityHigh || a.Severity == domain.SeverityCritical {
		msgs = append(msgs, base(t, a, domain.ChannelLocalPolice, PoliceRecipient, geofencePoliceMessage(t, a), nil))
	}

	g.logger.Info("sending geofence alert",
		"alert_id", a.ID,
		"tourist_id", t.ID,
		"severity", a.Severity,
		"recipients", len(msgs),
	)

	sent, err := g.publisher.Publish(ctx, msgs...)
	if err == nil && sent < len(msgs) {
		err = errors.New("publisher accepted fewer messages than sent")
	}
	if err != nil {
		return fmt.Errorf("publish geofence notifications: %w: %w", domain.ErrNotificationFailure, err)
	}
	return nil
}

func base(t domain.Tourist, a domain.Alert, ch domain.Channel, recipient, msg string, opt func(*domain.Notification)) domain.Notification {
	n := domain.Notification{
		AlertID:   a.ID,
		AlertType: a.Type,
		TouristID: t.ID,
		Channel:   ch,
		Recipient: recipient,
		Message:   msg,
		Severity:  a.Severity,
		Location:  a.Location,
		CreatedAt: a.Timestamp,
	}
	if opt != nil {
		opt(&n)
	}
	return n
}

func addressOrUnknown(a domain.Alert) string {
	if a.Address == "" {
		return "Unknown"
	}
	return a.Address
}

func panicContactMessage(t domain.Tourist, a domain.Alert) string {
	return fmt.Sprintf("EMERGENCY ALERT: %s has pressed panic button. Location: %s. Please contact authorities immediately.",
		t.Name, addressOrUnknown(a))
}

func panicPoliceMessage(t domain.Tourist, a domain.Alert) string {
	return fmt.Sprintf("PANIC: tourist %s (%s, phone %s) at %.6f, %.6f (%s). Severity %s.",
		t.Name, t.ID, t.PhoneNo, a.Location.Lat, a.Location.Lon, addressOrUnknown(a), a.Severity)
}

func geofenceTouristMessage(a domain.Alert) string {
	return "Safety warning: " + a.Description + ". Please leave the area or contact local authorities."
}

func geofencePoliceMessage(t domain.Tourist, a domain.Alert) string {
	return fmt.Sprintf("GEOFENCE: tourist %s (%s) at %.6f, %.6f. %s.",
		t.Name, t.ID, a.Location.Lat, a.Location.Lon, a.Description)
}
