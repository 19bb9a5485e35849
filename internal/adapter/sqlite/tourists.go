package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/tourist-safety-service/internal/domain"
)

// SaveTourist inserts or replaces a tourist registration.
func (s *Store) SaveTourist(ctx context.Context, t domain.Tourist) error {
	itinerary, err := json.Marshal(nonNil(t.Itinerary))
	if err != nil {
		return fmt.Errorf("encode itinerary: %w", err)
	}
	contacts, err := json.Marshal(nonNil(t.EmergencyContacts))
	if err != nil {
		return fmt.Errorf("encode emergency contacts: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tourists (id, name, phone_no, nationality, itinerary, emergency_contacts,
			valid_from, valid_to, safety_score, status, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone_no = excluded.phone_no,
			nationality = excluded.nationality,
			itinerary = excluded.itinerary,
			emergency_contacts = excluded.emergency_contacts,
			valid_from = excluded.valid_from,
			valid_to = excluded.valid_to,
			safety_score = excluded.safety_score,
			status = excluded.status`,
		t.ID, t.Name, t.PhoneNo, t.Nationality, string(itinerary), string(contacts),
		formatTime(t.ValidFrom), formatTime(t.ValidTo), t.SafetyScore, string(t.Status), formatTime(t.LastSeen),
	)
	if err != nil {
		return wrap("save tourist", err)
	}
	return nil
}

// FindTourist returns the tourist with id or domain.ErrNotFound.
func (s *Store) FindTourist(ctx context.Context, id string) (domain.Tourist, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone_no, nationality, itinerary, emergency_contacts,
			valid_from, valid_to, safety_score, status, last_seen
		FROM tourists WHERE id = ?`, id)

	var (
		t                        domain.Tourist
		itinerary, contacts      string
		validFrom, validTo, seen string
		status                   string
	)
	if err := row.Scan(&t.ID, &t.Name, &t.PhoneNo, &t.Nationality, &itinerary, &contacts,
		&validFrom, &validTo, &t.SafetyScore, &status, &seen); err != nil {
		return domain.Tourist{}, wrap("find tourist", err)
	}
	t.Status = domain.TouristStatus(status)

	if err := json.Unmarshal([]byte(itinerary), &t.Itinerary); err != nil {
		return domain.Tourist{}, fmt.Errorf("decode itinerary: %w", err)
	}
	if err := json.Unmarshal([]byte(contacts), &t.EmergencyContacts); err != nil {
		return domain.Tourist{}, fmt.Errorf("decode emergency contacts: %w", err)
	}
	var err error
	if t.ValidFrom, err = parseTime(validFrom); err != nil {
		return domain.Tourist{}, fmt.Errorf("decode valid_from: %w", err)
	}
	if t.ValidTo, err = parseTime(validTo); err != nil {
		return domain.Tourist{}, fmt.Errorf("decode valid_to: %w", err)
	}
	if t.LastSeen, err = parseTime(seen); err != nil {
		return domain.Tourist{}, fmt.Errorf("decode last_seen: %w", err)
	}
	return t, nil
}

// TouchLastSeen records now as the tourist's last-seen time.
func (s *Store) TouchLastSeen(ctx context.Context, id string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tourists SET last_seen = ? WHERE id = ?`, formatTime(now), id)
	if err != nil {
		return wrap("touch last seen", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("touch last seen %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
