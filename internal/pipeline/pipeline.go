package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/tourist-safety-service/internal/domain"
	"github.com/couchcryptid/tourist-safety-service/internal/observability"
)

// TouristDirectory resolves registered tourists.
type TouristDirectory interface {
	FindTourist(ctx context.Context, id string) (domain.Tourist, error)
	TouchLastSeen(ctx context.Context, id string, now time.Time) error
}

// AlertStore durably records alerts.
type AlertStore interface {
	AppendAlert(ctx context.Context, alert domain.Alert) error
	ResolveAlert(ctx context.Context, id, resolvedBy, notes string, now time.Time) (domain.Alert, error)
	ListAlertsByTourist(ctx context.Context, touristID string, limit, offset int) ([]domain.Alert, error)
	ListActiveAlerts(ctx context.Context) ([]domain.Alert, error)
	GetAlert(ctx context.Context, id string) (domain.Alert, error)
}

// LocationStore records position samples. AppendLocation must ignore a
// sample whose ID is already stored.
type LocationStore interface {
	AppendLocation(ctx context.Context, sample domain.LocationSample) error
	ListLocations(ctx context.Context, touristID string, limit, offset int) ([]domain.LocationSample, error)
	LatestLocation(ctx context.Context, touristID string) (domain.LocationSample, error)
	LatestLocationsWithin(ctx context.Context, b domain.Bounds) ([]domain.LocationSample, error)
}

// NotificationGateway dispatches alerts to people. Delivery is best-effort.
type NotificationGateway interface {
	NotifyPanic(ctx context.Context, tourist domain.Tourist, alert domain.Alert) (int, error)
	NotifyGeofence(ctx context.Context, tourist domain.Tourist, alert domain.Alert) error
}

// AuditSink appends audit trail entries.
type AuditSink interface {
	RecordAudit(ctx context.Context, event domain.AuditEvent) error
}

// Page sizes applied when a query passes a non-positive limit.
const (
	DefaultAlertLimit    = 20
	DefaultLocationLimit = 50
	MaxPageLimit         = 500
)

// Search radii for NearbyTourists, in meters.
const (
	DefaultNearbyRadius = 1000
	MaxNearbyRadius     = 50000
)

// DefaultDownstreamTimeout bounds each store, directory, gateway and geocoder call.
const DefaultDownstreamTimeout = 3 * time.Second

// Deps are the collaborators of a Pipeline. Geocoder is optional; the rest
// are required.
type Deps struct {
	Zones     *domain.ZoneRegistry
	Directory TouristDirectory
	Alerts    AlertStore
	Locations LocationStore
	Notifier  NotificationGateway
	Audit     AuditSink
	Geocoder  domain.Geocoder
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

// Config tunes a Pipeline.
type Config struct {
	// ZoneLocation is the timezone night windows are judged in.
	ZoneLocation      *time.Location
	DownstreamTimeout time.Duration
	Clock             clockwork.Clock
}

// Pipeline turns panic presses and location reports into stored samples and
// alerts. It is safe for concurrent use.
type Pipeline struct {
	zones     *domain.ZoneRegistry
	evaluator *domain.Evaluator
	factory   *domain.AlertFactory
	ids       *domain.IDGenerator

	directory TouristDirectory
	alerts    AlertStore
	locations LocationStore
	notifier  NotificationGateway
	audit     AuditSink
	geocoder  domain.Geocoder

	clock   clockwork.Clock
	timeout time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New wires a Pipeline. It fails when a required collaborator is missing.
func New(d Deps, cfg Config) (*Pipeline, error) {
	switch {
	case d.Zones == nil:
		return nil, errors.New("pipeline: zone registry is required")
	case d.Directory == nil:
		return nil, errors.New("pipeline: tourist directory is required")
	case d.Alerts == nil:
		return nil, errors.New("pipeline: alert store is required")
	case d.Locations == nil:
		return nil, errors.New("pipeline: location store is required")
	case d.Notifier == nil:
		return nil, errors.New("pipeline: notification gateway is required")
	case d.Audit == nil:
		return nil, errors.New("pipeline: audit sink is required")
	case d.Metrics == nil:
		return nil, errors.New("pipeline: metrics are required")
	}

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	timeout := cfg.DownstreamTimeout
	if timeout <= 0 {
		timeout = DefaultDownstreamTimeout
	}
	ids := domain.NewIDGenerator(clock)

	return &Pipeline{
		zones:     d.Zones,
		evaluator: domain.NewEvaluator(d.Zones, cfg.ZoneLocation, logger),
		factory:   domain.NewAlertFactory(ids, clock),
		ids:       ids,
		directory: d.Directory,
		alerts:    d.Alerts,
		locations: d.Locations,
		notifier:  d.Notifier,
		audit:     d.Audit,
		geocoder:  d.Geocoder,
		clock:     clock,
		timeout:   timeout,
		logger:    logger,
		metrics:   d.Metrics,
	}, nil
}

// ReportPanic records a critical alert for the tourist and dispatches it to
// police and emergency contacts. The geofence is not consulted. Once the
// alert is stored the call succeeds; notification and audit failures are
// logged only.
func (p *Pipeline) ReportPanic(ctx context.Context, r PanicReport) (PanicResult, error) {
	start := p.clock.Now()
	defer func() { p.metrics.ReportDuration.WithLabelValues("panic").Observe(p.clock.Since(start).Seconds()) }()

	if err := requireTouristID(r.TouristID); err != nil {
		return PanicResult{}, err
	}
	tourist, err := p.findTourist(ctx, r.TouristID)
	if err != nil {
		return PanicResult{}, err
	}
	coord, err := coordinateFrom(r.Latitude, r.Longitude)
	if err != nil {
		return PanicResult{}, err
	}
	p.warnIfInvalid(tourist)

	address := p.resolveAddress(ctx, r.Address, coord)
	alert := p.factory.FromPanic(tourist.ID, coord, address)

	if err := p.appendAlert(ctx, alert); err != nil {
		return PanicResult{}, err
	}
	p.metrics.PanicAlerts.Inc()
	p.logger.Warn("panic alert created",
		"alert_id", alert.ID,
		"tourist_id", tourist.ID,
		"latitude", coord.Lat,
		"longitude", coord.Lon,
	)

	// The alert is committed; follow-up work must not be cut short by the caller going away.
	after := context.WithoutCancel(ctx)

	notified := p.notifyPanic(after, tourist, alert)
	p.recordAudit(after, domain.AuditEvent{
		Kind:      domain.EventPanicAlertTriggered,
		TouristID: tourist.ID,
		ActorRole: domain.RoleTourist,
		Details:   fmt.Sprintf("Panic alert triggered at %.6f, %.6f", coord.Lat, coord.Lon),
		AlertID:   alert.ID,
	})

	return PanicResult{
		AlertID:   alert.ID,
		Status:    alert.Status,
		Timestamp: alert.Timestamp,
		Notified:  notified,
	}, nil
}

// ReportLocation stores a position sample, refreshes the tourist's last-seen
// marker and raises a geofence alert when the position is inside a zone.
func (p *Pipeline) ReportLocation(ctx context.Context, r LocationReport) (LocationResult, error) {
	start := p.clock.Now()
	defer func() {
		p.metrics.ReportDuration.WithLabelValues("location").Observe(p.clock.Since(start).Seconds())
	}()

	if err := requireTouristID(r.TouristID); err != nil {
		return LocationResult{}, err
	}
	tourist, err := p.findTourist(ctx, r.TouristID)
	if err != nil {
		return LocationResult{}, err
	}
	coord, err := coordinateFrom(r.Latitude, r.Longitude)
	if err != nil {
		return LocationResult{}, err
	}
	telemetry := r.telemetry()
	if err := telemetry.Validate(); err != nil {
		return LocationResult{}, err
	}
	p.warnIfInvalid(tourist)

	now := p.clock.Now()
	verdict := p.evaluator.Evaluate(coord, now)
	if verdict.EvaluationError {
		p.metrics.EvaluationErrors.Inc()
	}

	address := p.resolveAddress(ctx, r.Address, coord)
	id := r.sampleID
	if id == "" {
		id = p.ids.Next(domain.PrefixLocation)
	}
	sample := domain.LocationSample{
		ID:         id,
		TouristID:  tourist.ID,
		Timestamp:  now.UTC(),
		Coordinate: coord,
		Address:    address,
		Status:     domain.StatusFor(verdict),
		Telemetry:  telemetry.WithDefaults(),
	}

	if err := p.withTimeout(ctx, func(ctx context.Context) error {
		return p.locations.AppendLocation(ctx, sample)
	}); err != nil {
		return LocationResult{}, classify("append location", err)
	}
	// From here on a failed call still reports the stored sample so that a
	// retry can reuse its ID.
	stored := LocationResult{LocationID: sample.ID, Status: sample.Status}
	if err := p.withTimeout(ctx, func(ctx context.Context) error {
		return p.directory.TouchLastSeen(ctx, tourist.ID, now)
	}); err != nil {
		return stored, classify("touch last seen", err)
	}

	result := LocationResult{
		LocationID: sample.ID,
		Status:     sample.Status,
		Verdict:    verdict,
	}

	if verdict.Violated {
		alert := p.factory.FromViolation(tourist.ID, coord, address, verdict)
		if err := p.appendAlert(ctx, alert); err != nil {
			return stored, err
		}
		p.metrics.GeofenceAlerts.WithLabelValues(string(alert.Severity)).Inc()

		after := context.WithoutCancel(ctx)
		p.notifyGeofence(after, tourist, alert)
		p.recordAudit(after, domain.AuditEvent{
			Kind:      domain.EventGeofenceBreach,
			TouristID: tourist.ID,
			ActorRole: domain.RoleSystem,
			Details:   fmt.Sprintf("Geofence breach: %s (%s), %d m from center", verdict.ZoneName, verdict.ZoneID, verdict.DistanceMeters),
			AlertID:   alert.ID,
		})

		result.GeofenceAlert = true
		result.AlertID = alert.ID
	}

	p.metrics.LocationReports.WithLabelValues(string(sample.Status)).Inc()
	return result, nil
}

// ResolveAlert closes an alert on behalf of a responder and records the
// response time.
func (p *Pipeline) ResolveAlert(ctx context.Context, alertID, resolvedBy, notes string) (domain.Alert, error) {
	if alertID == "" {
		return domain.Alert{}, fmt.Errorf("alert id is required: %w", domain.ErrInvalidInput)
	}
	if resolvedBy == "" {
		return domain.Alert{}, fmt.Errorf("resolved_by is required: %w", domain.ErrInvalidInput)
	}
	if len(notes) > domain.MaxNotesLength {
		return domain.Alert{}, fmt.Errorf("notes exceed %d characters: %w", domain.MaxNotesLength, domain.ErrInvalidInput)
	}

	var resolved domain.Alert
	err := p.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		resolved, err = p.alerts.ResolveAlert(ctx, alertID, resolvedBy, notes, p.clock.Now().UTC())
		return err
	})
	if err != nil {
		return domain.Alert{}, classify("resolve alert", err)
	}

	p.logger.Info("alert resolved",
		"alert_id", resolved.ID,
		"tourist_id", resolved.TouristID,
		"resolved_by", resolvedBy,
	)
	p.recordAudit(context.WithoutCancel(ctx), domain.AuditEvent{
		Kind:      domain.EventAlertResolved,
		TouristID: resolved.TouristID,
		ActorRole: domain.RolePolice,
		Details:   "Alert resolved by " + resolvedBy,
		AlertID:   resolved.ID,
	})
	return resolved, nil
}

// Alert returns one alert by id.
func (p *Pipeline) Alert(ctx context.Context, id string) (domain.Alert, error) {
	var a domain.Alert
	err := p.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		a, err = p.alerts.GetAlert(ctx, id)
		return err
	})
	return a, classify("get alert", err)
}

// TouristAlerts lists a tourist's alerts, newest first.
func (p *Pipeline) TouristAlerts(ctx context.Context, touristID string, limit, offset int) ([]domain.Alert, error) {
	if err := requireTouristID(touristID); err != nil {
		return nil, err
	}
	limit, offset = page(limit, offset, DefaultAlertLimit)

	var alerts []domain.Alert
	err := p.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		alerts, err = p.alerts.ListAlertsByTourist(ctx, touristID, limit, offset)
		return err
	})
	return alerts, classify("list tourist alerts", err)
}

// ActiveAlerts lists alerts still awaiting a response.
func (p *Pipeline) ActiveAlerts(ctx context.Context) ([]domain.Alert, error) {
	var alerts []domain.Alert
	err := p.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		alerts, err = p.alerts.ListActiveAlerts(ctx)
		return err
	})
	return alerts, classify("list active alerts", err)
}

// LocationHistory lists a tourist's position samples, newest first.
func (p *Pipeline) LocationHistory(ctx context.Context, touristID string, limit, offset int) ([]domain.LocationSample, error) {
	if err := requireTouristID(touristID); err != nil {
		return nil, err
	}
	limit, offset = page(limit, offset, DefaultLocationLimit)

	var samples []domain.LocationSample
	err := p.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		samples, err = p.locations.ListLocations(ctx, touristID, limit, offset)
		return err
	})
	return samples, classify("list locations", err)
}

// LatestLocation returns a tourist's most recent sample.
func (p *Pipeline) LatestLocation(ctx context.Context, touristID string) (domain.LocationSample, error) {
	if err := requireTouristID(touristID); err != nil {
		return domain.LocationSample{}, err
	}
	var sample domain.LocationSample
	err := p.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		sample, err = p.locations.LatestLocation(ctx, touristID)
		return err
	})
	return sample, classify("latest location", err)
}

// NearbyTourists lists tourists whose latest position is within radiusM of
// c, nearest first. A zero radius means DefaultNearbyRadius.
func (p *Pipeline) NearbyTourists(ctx context.Context, c domain.Coordinate, radiusM float64) ([]NearbyTourist, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch {
	case math.IsNaN(radiusM) || radiusM < 0:
		return nil, fmt.Errorf("radius must be non-negative: %w", domain.ErrInvalidInput)
	case radiusM == 0:
		radiusM = DefaultNearbyRadius
	case radiusM > MaxNearbyRadius:
		radiusM = MaxNearbyRadius
	}

	var samples []domain.LocationSample
	err := p.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		samples, err = p.locations.LatestLocationsWithin(ctx, domain.BoundsAround(c, radiusM))
		return err
	})
	if err != nil {
		return nil, classify("latest locations within", err)
	}

	var out []NearbyTourist
	for _, l := range samples {
		d := domain.DistanceBetween(c, l.Coordinate)
		if d > radiusM {
			continue
		}
		t, err := p.findTourist(ctx, l.TouristID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, NearbyTourist{
			Tourist:        summarize(t),
			Location:       l,
			DistanceMeters: int64(math.Round(d)),
		})
	}
	slices.SortStableFunc(out, func(a, b NearbyTourist) int {
		return cmp.Compare(a.DistanceMeters, b.DistanceMeters)
	})
	return out, nil
}

// Zones returns the zone lists currently in effect.
func (p *Pipeline) Zones() domain.ZoneSnapshot {
	return p.zones.Snapshot()
}

// AddZone registers an always-active zone. Evaluations that already started
// are unaffected.
func (p *Pipeline) AddZone(z domain.Zone) (domain.ZoneID, error) {
	id, err := p.zones.AddZone(z)
	if err != nil {
		return "", err
	}
	p.logger.Info("zone registered", "zone_id", id, "zone_name", z.Name, "radius_m", z.RadiusM)
	return id, nil
}

func (p *Pipeline) findTourist(ctx context.Context, id string) (domain.Tourist, error) {
	var t domain.Tourist
	err := p.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		t, err = p.directory.FindTourist(ctx, id)
		return err
	})
	if err != nil {
		return domain.Tourist{}, classify("find tourist", err)
	}
	return t, nil
}

func (p *Pipeline) warnIfInvalid(t domain.Tourist) {
	if !t.Valid(p.clock.Now()) {
		p.logger.Warn("tourist registration not valid",
			"tourist_id", t.ID,
			"status", t.Status,
			"valid_from", t.ValidFrom,
			"valid_to", t.ValidTo,
		)
	}
}

func (p *Pipeline) appendAlert(ctx context.Context, a domain.Alert) error {
	err := p.withTimeout(ctx, func(ctx context.Context) error {
		return p.alerts.AppendAlert(ctx, a)
	})
	return classify("append alert", err)
}

func (p *Pipeline) resolveAddress(ctx context.Context, address string, c domain.Coordinate) string {
	if address != "" || p.geocoder == nil {
		return address
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return domain.ResolveAddress(ctx, address, c, p.geocoder, p.logger)
}

func (p *Pipeline) notifyPanic(ctx context.Context, t domain.Tourist, a domain.Alert) int {
	var delivered int
	err := p.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		delivered, err = p.notifier.NotifyPanic(ctx, t, a)
		return err
	})
	p.metrics.NotificationsSent.WithLabelValues("panic").Add(float64(delivered))
	if err != nil {
		p.metrics.NotificationFailures.WithLabelValues("panic").Inc()
		p.logger.Error("panic notification failed",
			"alert_id", a.ID,
			"tourist_id", t.ID,
			"delivered", delivered,
			"error", err,
		)
	}
	return delivered
}

func (p *Pipeline) notifyGeofence(ctx context.Context, t domain.Tourist, a domain.Alert) {
	err := p.withTimeout(ctx, func(ctx context.Context) error {
		return p.notifier.NotifyGeofence(ctx, t, a)
	})
	if err != nil {
		p.metrics.NotificationFailures.WithLabelValues("geofence").Inc()
		p.logger.Warn("geofence notification failed",
			"alert_id", a.ID,
			"tourist_id", t.ID,
			"error", err,
		)
		return
	}
	p.metrics.NotificationsSent.WithLabelValues("geofence").Inc()
}

func (p *Pipeline) recordAudit(ctx context.Context, e domain.AuditEvent) {
	e.ID = p.ids.Next(domain.PrefixAudit)
	e.Timestamp = p.clock.Now().UTC()
	err := p.withTimeout(ctx, func(ctx context.Context) error {
		return p.audit.RecordAudit(ctx, e)
	})
	if err != nil {
		p.logger.Error("audit record failed",
			"event", e.Kind,
			"alert_id", e.AlertID,
			"error", err,
		)
	}
}

func (p *Pipeline) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return fn(ctx)
}

// classify keeps an error's class when it already has one and otherwise
// reports it as an unavailable upstream. A nil error stays nil.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUpstreamUnavailable):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrUpstreamUnavailable, err)
	}
}

func page(limit, offset, fallback int) (int, int) {
	if limit <= 0 {
		limit = fallback
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
