package notify

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/tourist-safety-service/internal/domain"
)

// LogPublisher writes each notification to the log instead of a broker. It
// stands in for delivery when no message stream is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs every message and reports them all as accepted.
func (p *LogPublisher) Publish(ctx context.Context, msgs ...domain.Notification) (int, error) {
	for _, m := range msgs {
		p.logger.InfoContext(ctx, "notification",
			"alert_id", m.AlertID,
			"alert_type", m.AlertType,
			"channel", m.Channel,
			"recipient", m.Recipient,
			"severity", m.Severity,
			"message", m.Message,
		)
	}
	return len(msgs), nil
}
