// Command validate performs integrity checks on a stored event collection:
// it decodes the collection, re-runs every record through the write-path
// validation, and verifies identity, references and summary consistency.
//
// Usage:
//
//	go run ./cmd/validate -backend file -path data/mock
//	go run ./cmd/validate -backend sqlite -path data/events.db
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/couchcryptid/outage-tracker/internal/adapter/filestore"
	"github.com/couchcryptid/outage-tracker/internal/adapter/sqlite"
	"github.com/couchcryptid/outage-tracker/internal/config"
	"github.com/couchcryptid/outage-tracker/internal/domain"
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
	backend := flag.String("backend", config.StoreFile, "storage backend: file or sqlite")
	path := flag.String("path", "data", "store directory (file) or database path (sqlite)")
	key := flag.String("key", "@outage-tracker:events", "storage key")
	nowFlag := flag.String("now", "", "reference time (RFC 3339), defaults to the current time")
	flag.Parse()

	now := time.Now()
	if *nowFlag != "" {
		t, err := time.Parse(time.RFC3339, *nowFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: parse -now: %v\n", err)
			os.Exit(1)
		}
		now = t
	}

	events, err := load(*backend, *path, *key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load events: %v\n", err)
		os.Exit(1)
	}

	if code := run(events, now); code != 0 {
		os.Exit(code)
	}
}

func load(backend, path, key string) ([]domain.Event, error) {
	ctx := context.Background()
	switch backend {
	case config.StoreFile:
		return filestore.New(path, key).Load(ctx)
	case config.StoreSQLite:
		s, err := sqlite.Open(path, key)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		return s.Load(ctx)
	}
	return nil, fmt.Errorf("unknown backend %q", backend)
}

func run(events []domain.Event, now time.Time) int {
	fmt.Println("=== Outage Event Integrity Validation ===")
	fmt.Println()

	phases := []*phase{
		validateRecords(events, now),
		validateIdentity(events),
		validateReferences(events),
		validateSummary(events, now),
	}

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
	fmt.Printf("Records: %d\n", len(events))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Record validity ──
// Every stored record must survive a rebuild through the write path unchanged.

func validateRecords(events []domain.Event, now time.Time) *phase {
	p := &phase{name: "Phase 1: Record Validity (write path)"}

	noID := func() string { return "" }
	for i, e := range events {
		rebuilt, err := domain.BuildEvent(domain.DraftFromEvent(e), now, noID)
		if err != nil {
			p.errorf("record %d (ID %s): %v", i, e.ID, err)
			continue
		}
		if e.ID == "" {
			p.errorf("record %d: missing ID", i)
		}
		if !reflect.DeepEqual(normalize(rebuilt), normalize(e)) {
			p.errorf("record %d (ID %s): not in canonical form (duration %q, severity %q)", i, e.ID, e.Duration, e.Severity)
		}
	}
	return p
}

// normalize drops the monotonic clock reading and location so dates compare by instant.
func normalize(e domain.Event) domain.Event {
	e.Date = e.Date.UTC().Round(0)
	return e
}

// ── Phase 2: Identity ──

func validateIdentity(events []domain.Event) *phase {
	p := &phase{name: "Phase 2: Identity (unique IDs)"}

	seen := make(map[string]int, len(events))
	for i, e := range events {
		if first, ok := seen[e.ID]; ok {
			p.errorf("record %d: ID %q already used by record %d", i, e.ID, first)
			continue
		}
		seen[e.ID] = i
	}
	return p
}

// ── Phase 3: References ──
// A duration or damage report refers to a location some other record carries,
// the rule the service applies on write. A report alone at its location came
// in through the location form, unless its location is a respelling of one
// already logged.

func validateReferences(events []domain.Event) *phase {
	p := &phase{name: "Phase 3: References (known locations)"}

	carriers := map[string]int{}
	spellings := map[string]string{}
	for _, e := range events {
		if !e.HasLocation() {
			continue
		}
		carriers[e.Location]++
		if _, ok := spellings[foldLocation(e.Location)]; !ok {
			spellings[foldLocation(e.Location)] = e.Location
		}
	}

	for i, e := range events {
		if !e.Kind().RequiresKnownLocation() {
			continue
		}
		if !domain.IsKnownLocation(events, e.Location) {
			p.errorf("record %d (ID %s): %s report location %q cannot be referenced", i, e.ID, e.Kind(), e.Location)
			continue
		}
		if carriers[e.Location] > 1 {
			continue
		}
		if known := spellings[foldLocation(e.Location)]; known != e.Location {
			p.errorf("record %d (ID %s): %s report for %q matches known location %q only by spelling", i, e.ID, e.Kind(), e.Location, known)
		}
	}
	return p
}

// foldLocation ignores case and spacing around the comma-separated segments.
func foldLocation(location string) string {
	parts := strings.Split(location, ",")
	for i, part := range parts {
		parts[i] = strings.ToLower(strings.Join(strings.Fields(part), " "))
	}
	return strings.Join(parts, ",")
}

// ── Phase 4: Summary consistency ──

func validateSummary(events []domain.Event, now time.Time) *phase {
	p := &phase{name: "Phase 4: Summary Consistency (statistics)"}

	o := domain.ComputeOverview(events, now, domain.WindowAll)
	if o.Counts.Total != len(events) {
		p.errorf("total: expected %d, got %d", len(events), o.Counts.Total)
	}
	if got := o.Severity.Distribution.Total(); got != len(events) {
		p.errorf("severity distribution covers %d of %d records", got, len(events))
	}
	if o.Durations.Count > o.Counts.WithDuration {
		p.errorf("duration stats count %d exceeds records with duration %d", o.Durations.Count, o.Counts.WithDuration)
	}
	if o.Durations.MaxMinutes > domain.MaxDurationMinutes {
		p.errorf("longest duration %d exceeds %d minutes", o.Durations.MaxMinutes, domain.MaxDurationMinutes)
	}

	damageTotal := 0
	for _, n := range domain.CountByCategory(events) {
		damageTotal += n
	}
	if damageTotal != o.Counts.WithDamage {
		p.errorf("damage categories cover %d of %d damage records", damageTotal, o.Counts.WithDamage)
	}
	return p
}
