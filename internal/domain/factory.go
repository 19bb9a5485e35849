package domain

import (
	"fmt"
	"strconv"

	"github.com/jonboulle/clockwork"
)

// PanicDescription is recorded on every panic-button alert.
const PanicDescription = "Emergency panic button pressed by tourist"

// AlertFactory builds alert entities with deterministic fields. Timestamps are
// taken at construction so alerts for one tourist keep the order in which
// their triggers were accepted.
type AlertFactory struct {
	ids   *IDGenerator
	clock clockwork.Clock
}

// NewAlertFactory creates a factory sharing ids and clock with its caller.
func NewAlertFactory(ids *IDGenerator, clock clockwork.Clock) *AlertFactory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ids == nil {
		ids = NewIDGenerator(clock)
	}
	return &AlertFactory{ids: ids, clock: clock}
}

// FromPanic builds a critical panic-button alert routed to police and the
// tourist's emergency contacts.
func (f *AlertFactory) FromPanic(touristID string, c Coordinate, address string) Alert {
	return Alert{
		ID:          f.ids.Next(PrefixAlert),
		TouristID:   touristID,
		Type:        AlertPanicButton,
		Timestamp:   f.clock.Now().UTC(),
		Location:    c,
		Address:     address,
		Description: PanicDescription,
		Severity:    SeverityCritical,
		SentTo:      []Channel{ChannelNearestPolice, ChannelEmergencyContacts},
		Status:      StatusPending,
	}
}

// FromViolation builds a geofence-breach alert from a violated verdict.
func (f *AlertFactory) FromViolation(touristID string, c Coordinate, address string, v Verdict) Alert {
	return Alert{
		ID:          f.ids.Next(PrefixAlert),
		TouristID:   touristID,
		Type:        AlertGeofenceBreach,
		Timestamp:   f.clock.Now().UTC(),
		Location:    c,
		Address:     address,
		Description: fmt.Sprintf("Tourist entered %s zone: %s", v.ZoneType, v.ZoneName),
		Severity:    v.Severity,
		SentTo:      []Channel{ChannelTouristApp, ChannelLocalPolice},
		Status:      StatusPending,
		Metadata: map[string]string{
			"zone_id":         string(v.ZoneID),
			"zone_category":   string(v.Category),
			"distance_meters": strconv.FormatInt(v.DistanceMeters, 10),
			"action":          string(v.Action),
		},
	}
}
