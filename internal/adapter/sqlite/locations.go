package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/couchcryptid/tourist-safety-service/internal/domain"
)

const locationColumns = `id, tourist_id, timestamp, longitude, latitude, address, status,
	accuracy, altitude, speed, heading`

// AppendLocation stores a position sample. A sample whose ID is already
// stored is left as it is.
func (s *Store) AppendLocation(ctx context.Context, l domain.LocationSample) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO locations (`+locationColumns+`) VALUES (`+placeholders(11)+`)
		ON CONFLICT(id) DO NOTHING`,
		l.ID, l.TouristID, formatTime(l.Timestamp), l.Coordinate.Lon, l.Coordinate.Lat, l.Address, string(l.Status),
		nullFloat(l.Telemetry.Accuracy), nullFloat(l.Telemetry.Altitude), nullFloat(l.Telemetry.Speed), nullFloat(l.Telemetry.Heading),
	)
	if err != nil {
		return wrap("append location", err)
	}
	return nil
}

// ListLocations returns a tourist's samples newest first.
func (s *Store) ListLocations(ctx context.Context, touristID string, limit, offset int) ([]domain.LocationSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+locationColumns+` FROM locations
		WHERE tourist_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?`, touristID, limit, offset)
	if err != nil {
		return nil, wrap("list locations", err)
	}
	defer rows.Close()

	var out []domain.LocationSample
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, wrap("list locations", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list locations", err)
	}
	return out, nil
}

// LatestLocation returns the newest sample or domain.ErrNotFound.
func (s *Store) LatestLocation(ctx context.Context, touristID string) (domain.LocationSample, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+locationColumns+` FROM locations
		WHERE tourist_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1`, touristID)
	l, err := scanLocation(row)
	if err != nil {
		return domain.LocationSample{}, wrap("latest location", err)
	}
	return l, nil
}

// LatestLocationsWithin returns the newest sample of every tourist whose
// newest sample lies inside b.
func (s *Store) LatestLocationsWithin(ctx context.Context, b domain.Bounds) ([]domain.LocationSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+locationColumns+` FROM locations AS l
		WHERE l.id = (
			SELECT latest.id FROM locations AS latest
			WHERE latest.tourist_id = l.tourist_id
			ORDER BY latest.timestamp DESC, latest.id DESC
			LIMIT 1
		)
		AND l.latitude BETWEEN ? AND ?
		AND l.longitude BETWEEN ? AND ?
		ORDER BY l.tourist_id`, b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
	if err != nil {
		return nil, wrap("latest locations within", err)
	}
	defer rows.Close()

	var out []domain.LocationSample
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, wrap("latest locations within", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("latest locations within", err)
	}
	return out, nil
}

func scanLocation(r rowScanner) (domain.LocationSample, error) {
	var (
		l                        domain.LocationSample
		ts, status               string
		acc, alt, speed, heading sql.NullFloat64
	)
	if err := r.Scan(&l.ID, &l.TouristID, &ts, &l.Coordinate.Lon, &l.Coordinate.Lat, &l.Address, &status,
		&acc, &alt, &speed, &heading); err != nil {
		return domain.LocationSample{}, err
	}
	var err error
	if l.Timestamp, err = parseTime(ts); err != nil {
		return domain.LocationSample{}, fmt.Errorf("decode timestamp: %w", err)
	}
	l.Status = domain.LocationStatus(status)
	l.Telemetry = domain.Telemetry{
		Accuracy: floatPtr(acc),
		Altitude: floatPtr(alt),
		Speed:    floatPtr(speed),
		Heading:  floatPtr(heading),
	}
	return l, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
