// Command validate checks a zone table before it is deployed: it parses the
// file, then probes every zone through the real geofence evaluator to catch
// zones shadowed by earlier entries and night windows that never fire.
//
// Usage:
//
//	go run ./cmd/validate -zones config/zones.yaml
//	go run ./cmd/validate            # checks the built-in table
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/tourist-safety-service/internal/adapter/zonefile"
	"github.com/couchcryptid/tourist-safety-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	zonesPath := flag.String("zones", "", "zone table YAML file (empty checks the built-in table)")
	tz := flag.String("tz", "Asia/Kolkata", "timezone night windows are judged in")
	flag.Parse()

	os.Exit(run(*zonesPath, *tz))
}

func run(zonesPath, tz string) int {
	fmt.Println("=== Zone Table Validation ===")
	fmt.Println()

	loc, err := time.LoadLocation(tz)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load timezone: %v\n", err)
		return 1
	}

	active, night := domain.DefaultZones()
	source := "built-in table"
	if zonesPath != "" {
		if active, night, err = zonefile.Load(zonesPath); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
		source = zonesPath
	}

	registry, err := domain.NewZoneRegistry(active, night)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: build registry: %v\n", err)
		return 1
	}
	eval := domain.NewEvaluator(registry, loc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	phases := []*phase{
		validateActiveCenters(eval, active, loc),
		validateNightWindows(eval, active, night, loc),
		validateOverlap(append(append([]domain.Zone(nil), active...), night...)),
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Zones: %d always-active, %d night-only (%s)\n", len(active), len(night), source)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	return 0
}

// validateActiveCenters checks that each always-active zone claims its own
// center at midday. An earlier zone covering the point wins the first match.
func validateActiveCenters(eval *domain.Evaluator, active []domain.Zone, loc *time.Location) *phase {
	p := &phase{name: "Always-active zones reachable"}
	noon := time.Date(2024, time.January, 15, 12, 0, 0, 0, loc)

	for _, z := range active {
		v := eval.Evaluate(z.Center, noon)
		switch {
		case v.EvaluationError:
			p.errorf("%s: evaluation failed at its center", z.ID)
		case !v.Violated:
			p.errorf("%s: center not flagged", z.ID)
		case v.ZoneID != z.ID:
			p.errorf("%s: center resolves to %s, which is listed earlier", z.ID, v.ZoneID)
		}
	}
	return p
}

// validateNightWindows checks that each night zone fires inside its window
// and stays quiet outside it.
func validateNightWindows(eval *domain.Evaluator, active, night []domain.Zone, loc *time.Location) *phase {
	p := &phase{name: "Night windows fire and clear"}

	for _, z := range night {
		if covered(active, z.Center) {
			p.errorf("%s: center lies inside an always-active zone, night rule never applies", z.ID)
			continue
		}
		w := domain.NightWindow
		if z.Window != nil {
			w = *z.Window
		}

		in, out := -1, -1
		for h := 0; h < 24; h++ {
			if w.Contains(h) && in < 0 {
				in = h
			}
			if !w.Contains(h) && out < 0 {
				out = h
			}
		}
		if in < 0 {
			p.errorf("%s: window %02d-%02d contains no hour", z.ID, w.StartHour, w.EndHour)
			continue
		}

		at := func(h int) time.Time { return time.Date(2024, time.January, 15, h, 30, 0, 0, loc) }
		if v := eval.Evaluate(z.Center, at(in)); !v.Violated || v.ZoneID != z.ID {
			p.errorf("%s: not flagged at %02d:30 inside its window", z.ID, in)
		}
		if out >= 0 {
			if v := eval.Evaluate(z.Center, at(out)); v.Violated {
				p.errorf("%s: flagged at %02d:30 outside its window (by %s)", z.ID, out, v.ZoneID)
			}
		}
	}
	return p
}

// validateOverlap reports zone pairs whose circles intersect.
func validateOverlap(zones []domain.Zone) *phase {
	p := &phase{name: "No overlapping zones"}
	for i := range zones {
		for j := i + 1; j < len(zones); j++ {
			a, b := zones[i], zones[j]
			d := domain.DistanceBetween(a.Center, b.Center)
			if d < a.RadiusM+b.RadiusM {
				p.errorf("%s and %s overlap: centers %.0fm apart, radii %.0fm + %.0fm",
					a.ID, b.ID, d, a.RadiusM, b.RadiusM)
			}
		}
	}
	return p
}

func covered(zones []domain.Zone, c domain.Coordinate) bool {
	for _, z := range zones {
		if domain.DistanceBetween(z.Center, c) <= z.RadiusM {
			return true
		}
	}
	return false
}
