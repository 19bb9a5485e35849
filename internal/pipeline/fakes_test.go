package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/tourist-safety-service/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func f64(v float64) *float64 { return &v }

// --- tourist directory ---

type fakeDirectory struct {
	mu       sync.Mutex
	tourists map[string]domain.Tourist
	lastSeen map[string]time.Time
	findErr  error
	touchErr error
}

func newFakeDirectory(ts ...domain.Tourist) *fakeDirectory {
	d := &fakeDirectory{tourists: map[string]domain.Tourist{}, lastSeen: map[string]time.Time{}}
	for _, t := range ts {
		d.tourists[t.ID] = t
	}
	return d
}

func (d *fakeDirectory) FindTourist(_ context.Context, id string) (domain.Tourist, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.findErr != nil {
		return domain.Tourist{}, d.findErr
	}
	t, ok := d.tourists[id]
	if !ok {
		return domain.Tourist{}, domain.ErrNotFound
	}
	return t, nil
}

func (d *fakeDirectory) TouchLastSeen(_ context.Context, id string, now time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.touchErr != nil {
		return d.touchErr
	}
	d.lastSeen[id] = now
	return nil
}

// --- alert store ---

type fakeAlertStore struct {
	mu        sync.Mutex
	alerts    []domain.Alert
	appendErr error
	// failAppends makes that many appends fail with errConnRefused first.
	failAppends int
	block       bool
	lastLimit   int
}

func (s *fakeAlertStore) AppendAlert(ctx context.Context, a domain.Alert) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	if s.failAppends > 0 {
		s.failAppends--
		return errConnRefused
	}
	s.alerts = append(s.alerts, a)
	return nil
}

func (s *fakeAlertStore) ResolveAlert(_ context.Context, id, by, notes string, now time.Time) (domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			if err := s.alerts[i].Resolve(by, notes, now); err != nil {
				return domain.Alert{}, err
			}
			return s.alerts[i], nil
		}
	}
	return domain.Alert{}, domain.ErrNotFound
}

func (s *fakeAlertStore) ListAlertsByTourist(_ context.Context, touristID string, limit, offset int) ([]domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLimit = limit
	var out []domain.Alert
	for i := len(s.alerts) - 1; i >= 0; i-- {
		if s.alerts[i].TouristID == touristID {
			out = append(out, s.alerts[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeAlertStore) ListActiveAlerts(_ context.Context) ([]domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Alert
	for _, a := range s.alerts {
		if a.Status.Active() {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeAlertStore) GetAlert(_ context.Context, id string) (domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.alerts {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Alert{}, domain.ErrNotFound
}

func (s *fakeAlertStore) all() []domain.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.alerts)
}

// --- location store ---

type fakeLocationStore struct {
	mu        sync.Mutex
	samples   []domain.LocationSample
	appendErr error
	lastLimit int
}

func (s *fakeLocationStore) AppendLocation(_ context.Context, sample domain.LocationSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	if slices.ContainsFunc(s.samples, func(l domain.LocationSample) bool { return l.ID == sample.ID }) {
		return nil
	}
	s.samples = append(s.samples, sample)
	return nil
}

func (s *fakeLocationStore) ListLocations(_ context.Context, touristID string, limit, _ int) ([]domain.LocationSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLimit = limit
	var out []domain.LocationSample
	for i := len(s.samples) - 1; i >= 0 && len(out) < limit; i-- {
		if s.samples[i].TouristID == touristID {
			out = append(out, s.samples[i])
		}
	}
	return out, nil
}

func (s *fakeLocationStore) LatestLocation(ctx context.Context, touristID string) (domain.LocationSample, error) {
	out, _ := s.ListLocations(ctx, touristID, 1, 0)
	if len(out) == 0 {
		return domain.LocationSample{}, domain.ErrNotFound
	}
	return out[0], nil
}

func (s *fakeLocationStore) LatestLocationsWithin(_ context.Context, b domain.Bounds) ([]domain.LocationSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return nil, s.appendErr
	}
	seen := map[string]bool{}
	var out []domain.LocationSample
	for i := len(s.samples) - 1; i >= 0; i-- {
		l := s.samples[i]
		if seen[l.TouristID] {
			continue
		}
		seen[l.TouristID] = true
		if b.Contains(l.Coordinate) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *fakeLocationStore) all() []domain.LocationSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.samples)
}

// --- notification gateway ---

type fakeNotifier struct {
	mu       sync.Mutex
	panics   []domain.Alert
	geofence []domain.Alert
	err      error
}

func (n *fakeNotifier) NotifyPanic(_ context.Context, t domain.Tourist, a domain.Alert) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.panics = append(n.panics, a)
	if n.err != nil {
		return 0, n.err
	}
	return len(t.EmergencyContacts) + 1, nil
}

func (n *fakeNotifier) NotifyGeofence(_ context.Context, _ domain.Tourist, a domain.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.geofence = append(n.geofence, a)
	return n.err
}

// --- audit sink ---

type fakeAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (a *fakeAudit) RecordAudit(_ context.Context, e domain.AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
	return nil
}

func (a *fakeAudit) all() []domain.AuditEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.events)
}

// --- geocoder ---

type fakeGeocoder struct {
	address string
	err     error
	calls   int
}

func (g *fakeGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	g.calls++
	if g.err != nil {
		return domain.GeocodingResult{}, g.err
	}
	return domain.GeocodingResult{FormattedAddress: g.address}, nil
}

var errConnRefused = errors.New("dial tcp 10.0.0.5:5432: connection refused")
