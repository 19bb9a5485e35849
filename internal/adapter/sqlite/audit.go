package sqlite

import (
	"context"

	"github.com/couchcryptid/tourist-safety-service/internal/domain"
)

// RecordAudit appends an audit trail entry.
func (s *Store) RecordAudit(ctx context.Context, e domain.AuditEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, event, tourist_id, timestamp, user_role, details, alert_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Kind), e.TouristID, formatTime(e.Timestamp), string(e.ActorRole), e.Details, e.AlertID,
	)
	if err != nil {
		return wrap("record audit", err)
	}
	return nil
}

// ListAudit returns a tourist's audit trail newest first.
func (s *Store) ListAudit(ctx context.Context, touristID string, limit int) ([]domain.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event, tourist_id, timestamp, user_role, details, alert_id
		FROM audit_logs WHERE tourist_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, touristID, limit)
	if err != nil {
		return nil, wrap("list audit", err)
	}
	defer rows.Close()

	var out []domain.AuditEvent
	for rows.Next() {
		var (
			e              domain.AuditEvent
			kind, ts, role string
		)
		if err := rows.Scan(&e.ID, &kind, &e.TouristID, &ts, &role, &e.Details, &e.AlertID); err != nil {
			return nil, wrap("list audit", err)
		}
		e.Kind = domain.EventKind(kind)
		e.ActorRole = domain.ActorRole(role)
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, wrap("list audit", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list audit", err)
	}
	return out, nil
}
