// Package zonefile loads zone tables from YAML files.
package zonefile

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/tourist-safety-service/internal/domain"
)

// File is the on-disk shape of a zone table.
type File struct {
	Restricted []Entry `yaml:"restricted"`
	NightTime  []Entry `yaml:"night_time"`
}

// Entry is one zone as written in the file.
type Entry struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Longitude   float64            `yaml:"longitude"`
	Latitude    float64            `yaml:"latitude"`
	Radius      float64            `yaml:"radius_m"`
	Type        string             `yaml:"type"`
	Severity    string             `yaml:"severity"`
	Description string             `yaml:"description"`
	TimeWindow  *domain.TimeWindow `yaml:"time_window,omitempty"`
}

// Load reads a zone table from path and returns the active and night lists
// in file order.
func Load(path string) (active, night []domain.Zone, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read zone file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a zone table. Unknown keys are rejected so typos surface at
// startup instead of silently dropping a field.
func Parse(r io.Reader) (active, night []domain.Zone, err error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, nil, fmt.Errorf("decode zone file: %w: %w", domain.ErrInvalidInput, err)
	}

	active, err = toZones(f.Restricted, false)
	if err != nil {
		return nil, nil, err
	}
	night, err = toZones(f.NightTime, true)
	if err != nil {
		return nil, nil, err
	}
	return active, night, nil
}

func toZones(entries []Entry, timed bool) ([]domain.Zone, error) {
	zones := make([]domain.Zone, 0, len(entries))
	for i, e := range entries {
		z := domain.Zone{
			ID:          domain.ZoneID(e.ID),
			Name:        e.Name,
			Center:      domain.Coordinate{Lon: e.Longitude, Lat: e.Latitude},
			RadiusM:     e.Radius,
			Category:    domain.ZoneCategory(e.Type),
			Severity:    domain.Severity(e.Severity),
			Description: e.Description,
		}
		if timed {
			w := domain.NightWindow
			if e.TimeWindow != nil {
				w = *e.TimeWindow
			}
			z.Window = &w
		} else if e.TimeWindow != nil {
			return nil, fmt.Errorf("zone %d (%s): time_window is only allowed on night_time zones: %w", i, e.ID, domain.ErrInvalidInput)
		}
		if err := z.Validate(); err != nil {
			return nil, fmt.Errorf("zone %d (%s): %w", i, e.ID, err)
		}
		zones = append(zones, z)
	}
	return zones, nil
}
