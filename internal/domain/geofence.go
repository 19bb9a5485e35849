package domain

import (
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Action tells the pipeline how urgently a violation must be raised.
type Action string

const (
	ActionImmediateAlert Action = "immediate_alert"
	ActionWarningAlert   Action = "warning_alert"
)

// ZoneTypeNightRestriction is reported as the zone type of night-only matches.
const ZoneTypeNightRestriction = "night_restriction"

// Verdict is the outcome of evaluating one coordinate against the registry.
// Zone fields are only meaningful when Violated is true. EvaluationError
// marks a fail-open result: the position could not be checked and is
// treated as safe.
type Verdict struct {
	Violated        bool         `json:"violation"`
	EvaluationError bool         `json:"error,omitempty"`
	ZoneID          ZoneID       `json:"zone_id,omitempty"`
	ZoneName        string       `json:"zone_name,omitempty"`
	ZoneType        string       `json:"zone_type,omitempty"`
	Category        ZoneCategory `json:"category,omitempty"`
	Severity        Severity     `json:"severity,omitempty"`
	Description     string       `json:"description,omitempty"`
	DistanceMeters  int64        `json:"distance,omitempty"`
	Action          Action       `json:"action,omitempty"`
}

// ZoneSource supplies the zone snapshot an Evaluator iterates.
type ZoneSource interface {
	Snapshot() ZoneSnapshot
}

// Evaluator checks coordinates against a zone registry. It performs no I/O.
type Evaluator struct {
	zones  ZoneSource
	loc    *time.Location
	logger *slog.Logger
}

// NewEvaluator creates an Evaluator. Night windows are judged in loc; a nil
// loc uses the location carried by each evaluation time.
func NewEvaluator(zones ZoneSource, loc *time.Location, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{zones: zones, loc: loc, logger: logger}
}

// Evaluate returns the first zone containing c. Always-active zones are
// checked first in registration order; night-only zones are checked only when
// at is inside their window. Boundaries are inclusive. Any failure yields a
// safe verdict with EvaluationError set.
func (e *Evaluator) Evaluate(c Coordinate, at time.Time) (v Verdict) {
	if !c.Valid() {
		e.logger.Warn("geofence check skipped, coordinate out of range",
			"longitude", c.Lon, "latitude", c.Lat)
		return Verdict{EvaluationError: true}
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("geofence check failed, assuming safe", "panic", fmt.Sprint(r))
			v = Verdict{EvaluationError: true}
		}
	}()

	snap := e.zones.Snapshot()

	for _, z := range snap.Active {
		d := DistanceBetween(c, z.Center)
		if d <= z.RadiusM {
			dist := int64(math.Round(d))
			e.logger.Warn("geofence violation detected",
				"zone_id", z.ID,
				"zone_name", z.Name,
				"distance", dist,
				"severity", z.Severity,
			)
			return Verdict{
				Violated:       true,
				ZoneID:         z.ID,
				ZoneName:       z.Name,
				ZoneType:       string(z.Category),
				Category:       z.Category,
				Severity:       z.Severity,
				Description:    z.Description,
				DistanceMeters: dist,
				Action:         ActionImmediateAlert,
			}
		}
	}

	local := at
	if e.loc != nil {
		local = at.In(e.loc)
	}
	hour := local.Hour()

	for _, z := range snap.Night {
		w := NightWindow
		if z.Window != nil {
			w = *z.Window
		}
		if !w.Contains(hour) {
			continue
		}
		d := DistanceBetween(c, z.Center)
		if d <= z.RadiusM {
			dist := int64(math.Round(d))
			e.logger.Warn("night time geofence violation",
				"zone_id", z.ID,
				"zone_name", z.Name,
				"time", local.Format(time.RFC3339),
				"distance", dist,
			)
			return Verdict{
				Violated:       true,
				ZoneID:         z.ID,
				ZoneName:       z.Name,
				ZoneType:       ZoneTypeNightRestriction,
				Category:       z.Category,
				Severity:       SeverityMedium,
				Description:    fmt.Sprintf("%s (Night time: %d:%02d)", z.Description, hour, local.Minute()),
				DistanceMeters: dist,
				Action:         ActionWarningAlert,
			}
		}
	}

	return Verdict{}
}
