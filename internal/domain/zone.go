package domain

import (
	"fmt"
	"strings"
)

// ZoneID identifies a hazard zone.
type ZoneID string

// ZoneCategory classifies what makes a zone hazardous.
type ZoneCategory string

const (
	CategoryMilitary      ZoneCategory = "military"
	CategoryNaturalHazard ZoneCategory = "natural_hazard"
	CategoryBorder        ZoneCategory = "border"
	CategoryWildlife      ZoneCategory = "wildlife"
	CategoryHighway       ZoneCategory = "highway"
	CategoryCustom        ZoneCategory = "custom"
)

// Valid reports whether c is a known category.
func (c ZoneCategory) Valid() bool {
	switch c {
	case CategoryMilitary, CategoryNaturalHazard, CategoryBorder, CategoryWildlife, CategoryHighway, CategoryCustom:
		return true
	default:
		return false
	}
}

// Severity is shared by zones, verdicts and alerts.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// TimeWindow restricts a zone to the local hours [StartHour, EndHour], both
// inclusive. A window with StartHour > EndHour wraps past midnight.
type TimeWindow struct {
	StartHour int `json:"start_hour" yaml:"start_hour"`
	EndHour   int `json:"end_hour" yaml:"end_hour"`
}

// NightWindow is the 20:00-06:59 restriction applied to night-only zones.
// Hour 6 is inside the window.
var NightWindow = TimeWindow{StartHour: 20, EndHour: 6}

func nightWindow() *TimeWindow {
	w := NightWindow
	return &w
}

// Contains reports whether hour falls inside the window.
func (w TimeWindow) Contains(hour int) bool {
	if w.StartHour <= w.EndHour {
		return hour >= w.StartHour && hour <= w.EndHour
	}
	return hour >= w.StartHour || hour <= w.EndHour
}

// Zone is a circular hazard area. Zones are immutable once registered.
// Window only applies to time-restricted zones; a nil Window there means
// NightWindow.
type Zone struct {
	ID          ZoneID       `json:"id"`
	Name        string       `json:"name"`
	Center      Coordinate   `json:"center"`
	RadiusM     float64      `json:"radius_m"`
	Category    ZoneCategory `json:"type"`
	Severity    Severity     `json:"severity"`
	Description string       `json:"description"`
	Window      *TimeWindow  `json:"time_window,omitempty"`
}

// Validate checks the zone geometry and classification.
func (z Zone) Validate() error {
	if strings.TrimSpace(z.Name) == "" {
		return fmt.Errorf("zone name is required: %w", ErrInvalidInput)
	}
	if !z.Center.Valid() {
		return fmt.Errorf("zone %q center out of range: %w", z.Name, ErrInvalidInput)
	}
	if !(z.RadiusM > 0) {
		return fmt.Errorf("zone %q radius must be positive: %w", z.Name, ErrInvalidInput)
	}
	if !z.Category.Valid() {
		return fmt.Errorf("zone %q category %q unknown: %w", z.Name, z.Category, ErrInvalidInput)
	}
	if !z.Severity.Valid() {
		return fmt.Errorf("zone %q severity %q unknown: %w", z.Name, z.Severity, ErrInvalidInput)
	}
	if w := z.Window; w != nil && (w.StartHour < 0 || w.StartHour > 23 || w.EndHour < 0 || w.EndHour > 23) {
		return fmt.Errorf("zone %q time window hours must be within 0..23: %w", z.Name, ErrInvalidInput)
	}
	return nil
}

// DefaultZones returns the built-in Northeast India zone table: four
// always-active zones followed by one night-only zone list.
func DefaultZones() (active, night []Zone) {
	active = []Zone{
		{
			ID:          "DANGER_001",
			Name:        "Restricted Military Area - Tezpur",
			Center:      Coordinate{Lon: 92.7933, Lat: 26.6337},
			RadiusM:     2000,
			Category:    CategoryMilitary,
			Severity:    SeverityCritical,
			Description: "Military restricted area - no civilian access",
		},
		{
			ID:          "DANGER_002",
			Name:        "Landslide Prone Area - Cherrapunji",
			Center:      Coordinate{Lon: 91.7362, Lat: 25.2624},
			RadiusM:     1500,
			Category:    CategoryNaturalHazard,
			Severity:    SeverityHigh,
			Description: "High landslide risk area - avoid during monsoon",
		},
		{
			ID:          "DANGER_003",
			Name:        "Border Area - Indo-Myanmar Border",
			Center:      Coordinate{Lon: 94.5980, Lat: 25.2677},
			RadiusM:     5000,
			Category:    CategoryBorder,
			Severity:    SeverityHigh,
			Description: "International border area - requires special permits",
		},
		{
			ID:          "CAUTION_001",
			Name:        "Dense Forest Area - Kaziranga",
			Center:      Coordinate{Lon: 93.3562, Lat: 26.5775},
			RadiusM:     3000,
			Category:    CategoryWildlife,
			Severity:    SeverityMedium,
			Description: "Dense forest with wildlife - guided tours recommended",
		},
	}
	night = []Zone{
		{
			ID:          "NIGHT_001",
			Name:        "Remote Highway - NH37",
			Center:      Coordinate{Lon: 91.7458, Lat: 26.1733},
			RadiusM:     1000,
			Category:    CategoryHighway,
			Severity:    SeverityMedium,
			Description: "Remote highway section - not safe for night travel",
			Window:      nightWindow(),
		},
	}
	return active, night
}
