package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/tourist-safety-service/internal/domain"
)

const alertColumns = `id, tourist_id, type, timestamp, longitude, latitude, address, description,
	severity, sent_to, status, response_time, resolved_at, resolved_by, notes, metadata`

type rowScanner interface {
	Scan(dest ...any) error
}

// AppendAlert stores a new alert. Ids are unique; a duplicate is rejected.
func (s *Store) AppendAlert(ctx context.Context, a domain.Alert) error {
	sentTo, err := json.Marshal(nonNil(a.SentTo))
	if err != nil {
		return fmt.Errorf("encode sent_to: %w", err)
	}
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	var resolvedAt sql.NullString
	if a.ResolvedAt != nil {
		resolvedAt = sql.NullString{String: formatTime(*a.ResolvedAt), Valid: true}
	}
	var responseTime sql.NullInt64
	if a.ResponseTimeMinutes != nil {
		responseTime = sql.NullInt64{Int64: *a.ResponseTimeMinutes, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO alerts (`+alertColumns+`) VALUES (`+placeholders(16)+`)`,
		a.ID, a.TouristID, string(a.Type), formatTime(a.Timestamp), a.Location.Lon, a.Location.Lat,
		a.Address, a.Description, string(a.Severity), string(sentTo), string(a.Status),
		responseTime, resolvedAt, a.ResolvedBy, a.Notes, string(metadata),
	)
	if err != nil {
		return wrap("append alert", err)
	}
	return nil
}

// GetAlert returns one alert or domain.ErrNotFound.
func (s *Store) GetAlert(ctx context.Context, id string) (domain.Alert, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)
	a, err := scanAlert(row)
	if err != nil {
		return domain.Alert{}, wrap("get alert", err)
	}
	return a, nil
}

// ResolveAlert marks an alert resolved inside a transaction and returns the
// updated record.
func (s *Store) ResolveAlert(ctx context.Context, id, resolvedBy, notes string, now time.Time) (domain.Alert, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Alert{}, wrap("resolve alert", err)
	}
	defer func() { _ = tx.Rollback() }()

	a, err := scanAlert(tx.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id))
	if err != nil {
		return domain.Alert{}, wrap("resolve alert", err)
	}
	if err := a.Resolve(resolvedBy, notes, now); err != nil {
		return domain.Alert{}, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE alerts SET status = ?, resolved_at = ?, resolved_by = ?, notes = ?, response_time = ?
		WHERE id = ?`,
		string(a.Status), formatTime(*a.ResolvedAt), a.ResolvedBy, a.Notes, *a.ResponseTimeMinutes, a.ID,
	)
	if err != nil {
		return domain.Alert{}, wrap("resolve alert", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Alert{}, wrap("resolve alert", err)
	}
	return a, nil
}

// ListAlertsByTourist returns a tourist's alerts newest first.
func (s *Store) ListAlertsByTourist(ctx context.Context, touristID string, limit, offset int) ([]domain.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE tourist_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?`, touristID, limit, offset)
	if err != nil {
		return nil, wrap("list alerts by tourist", err)
	}
	return collectAlerts(rows, "list alerts by tourist")
}

// ListActiveAlerts returns alerts still awaiting a response, newest first.
func (s *Store) ListActiveAlerts(ctx context.Context) ([]domain.Alert, error) {
	args := make([]any, len(domain.ActiveStatuses))
	for i, st := range domain.ActiveStatuses {
		args[i] = string(st)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE status IN (`+placeholders(len(args))+`)
		ORDER BY timestamp DESC, id DESC`, args...)
	if err != nil {
		return nil, wrap("list active alerts", err)
	}
	return collectAlerts(rows, "list active alerts")
}

func collectAlerts(rows *sql.Rows, op string) ([]domain.Alert, error) {
	defer rows.Close()

	var out []domain.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return out, nil
}

func scanAlert(r rowScanner) (domain.Alert, error) {
	var (
		a                         domain.Alert
		typ, ts, severity, status string
		sentTo, metadata          string
		responseTime              sql.NullInt64
		resolvedAt                sql.NullString
	)
	err := r.Scan(&a.ID, &a.TouristID, &typ, &ts, &a.Location.Lon, &a.Location.Lat, &a.Address,
		&a.Description, &severity, &sentTo, &status, &responseTime, &resolvedAt, &a.ResolvedBy,
		&a.Notes, &metadata)
	if err != nil {
		return domain.Alert{}, err
	}

	a.Type = domain.AlertType(typ)
	a.Severity = domain.Severity(severity)
	a.Status = domain.AlertStatus(status)
	if a.Timestamp, err = parseTime(ts); err != nil {
		return domain.Alert{}, fmt.Errorf("decode timestamp: %w", err)
	}
	if err := json.Unmarshal([]byte(sentTo), &a.SentTo); err != nil {
		return domain.Alert{}, fmt.Errorf("decode sent_to: %w", err)
	}
	if err := json.Unmarshal([]byte(metadata), &a.Metadata); err != nil {
		return domain.Alert{}, fmt.Errorf("decode metadata: %w", err)
	}
	if responseTime.Valid {
		m := responseTime.Int64
		a.ResponseTimeMinutes = &m
	}
	if resolvedAt.Valid {
		t, err := parseTime(resolvedAt.String)
		if err != nil {
			return domain.Alert{}, fmt.Errorf("decode resolved_at: %w", err)
		}
		a.ResolvedAt = &t
	}
	return a, nil
}
