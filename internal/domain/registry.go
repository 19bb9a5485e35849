package domain

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

// ZoneSnapshot is an immutable view of the registry taken at one instant.
// Callers must not modify the returned slices.
type ZoneSnapshot struct {
	Active []Zone `json:"restricted"`
	Night  []Zone `json:"night_time"`
}

// ZoneRegistry holds the always-active and night-only zone lists. Reads are
// lock-free against a copy-on-write snapshot; writers serialize on a mutex
// and publish a fresh snapshot, so evaluations already in flight keep
// iterating the lists they started with.
type ZoneRegistry struct {
	mu     sync.Mutex
	snap   atomic.Pointer[ZoneSnapshot]
	custom int
}

// NewZoneRegistry validates and copies the initial zone lists. Iteration
// order is the order given here.
func NewZoneRegistry(active, night []Zone) (*ZoneRegistry, error) {
	seen := make(map[ZoneID]struct{}, len(active)+len(night))
	for i, list := range [][]Zone{active, night} {
		for _, z := range list {
			if err := z.Validate(); err != nil {
				return nil, err
			}
			if i == 0 {
				if err := alwaysActive(z); err != nil {
					return nil, err
				}
			}
			if z.ID == "" {
				return nil, fmt.Errorf("zone %q has no id: %w", z.Name, ErrInvalidInput)
			}
			if _, dup := seen[z.ID]; dup {
				return nil, fmt.Errorf("duplicate zone id %q: %w", z.ID, ErrInvalidInput)
			}
			seen[z.ID] = struct{}{}
		}
	}

	r := &ZoneRegistry{}
	r.snap.Store(&ZoneSnapshot{
		Active: slices.Clone(active),
		Night:  slices.Clone(night),
	})
	return r, nil
}

// NewDefaultZoneRegistry builds a registry from DefaultZones.
func NewDefaultZoneRegistry() *ZoneRegistry {
	active, night := DefaultZones()
	r, err := NewZoneRegistry(active, night)
	if err != nil {
		panic(fmt.Sprintf("built-in zone table is invalid: %v", err))
	}
	return r
}

// Snapshot returns both lists from a single consistent point in time.
func (r *ZoneRegistry) Snapshot() ZoneSnapshot {
	return *r.snap.Load()
}

// ActiveZones returns the always-active zones in evaluation order.
func (r *ZoneRegistry) ActiveZones() []Zone {
	return r.snap.Load().Active
}

// NightZones returns the night-only zones in evaluation order.
func (r *ZoneRegistry) NightZones() []Zone {
	return r.snap.Load().Night
}

// AddZone appends a zone to the always-active list. An empty ID is assigned
// as CUSTOM_<n>.
func (r *ZoneRegistry) AddZone(z Zone) (ZoneID, error) {
	if err := z.Validate(); err != nil {
		return "", err
	}
	if err := alwaysActive(z); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	if z.ID == "" {
		r.custom++
		z.ID = ZoneID(fmt.Sprintf("CUSTOM_%03d", r.custom))
	}
	if containsZone(cur.Active, z.ID) || containsZone(cur.Night, z.ID) {
		return "", fmt.Errorf("duplicate zone id %q: %w", z.ID, ErrInvalidInput)
	}
	next := &ZoneSnapshot{
		Active: append(slices.Clone(cur.Active), z),
		Night:  cur.Night,
	}
	r.snap.Store(next)
	return z.ID, nil
}

// alwaysActive rejects a time window on a zone headed for the active list,
// where it would never be consulted.
func alwaysActive(z Zone) error {
	if z.Window != nil {
		return fmt.Errorf("zone %q: time_window is only allowed on night zones: %w", z.ID, ErrInvalidInput)
	}
	return nil
}

func containsZone(zones []Zone, id ZoneID) bool {
	return slices.ContainsFunc(zones, func(z Zone) bool { return z.ID == id })
}
