// Command genmock writes a deterministic mock event collection for local
// development and manual testing. Every record goes through the service
// write path, so the fixture obeys the same validation as the API.
//
// Usage:
//
//	go run ./cmd/genmock -dir data/mock -count 60 -seed 42
package main

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/couchcryptid/outage-tracker/internal/adapter/filestore"
	"github.com/couchcryptid/outage-tracker/internal/domain"
	"github.com/couchcryptid/outage-tracker/internal/observability"
	"github.com/couchcryptid/outage-tracker/internal/service"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var streets = []string{
	"Rua da Aurora", "Avenida Conde da Boa Vista", "Rua do Hospício",
	"Avenida Boa Viagem", "Rua da Hora", "Estrada do Arraial",
	"Rua Real da Torre", "Avenida Caxangá",
}

var districts = []string{"Boa Vista", "Boa Viagem", "Espinheiro", "Casa Amarela", "Madalena", "Várzea"}

var damages = []string{
	"geladeira queimou após a volta da energia",
	"computador parou de ligar",
	"loja ficou fechada a tarde inteira",
	"estabelecimento perdeu estoque refrigerado",
	"poste caiu na esquina",
	"fiação rompida na calçada",
	"casa ficou sem água por causa da bomba",
	"apartamento com portão elétrico travado",
	"perdi alimentos do congelador, prejuízo de R$ 300",
	"danos não especificados",
}

var durations = []string{"15m", "30min", "45", "1h", "1h30", "2h", "2.5h", "3h 15m", "5h", "8h", "12h", "90 minutos"}

var severities = []string{"low", "medium", "medium", "high"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dir := flag.String("dir", "data/mock", "output directory")
	key := flag.String("key", "@outage-tracker:events", "storage key")
	count := flag.Int("count", 60, "number of events to generate")
	seed := flag.Uint64("seed", 42, "random seed")
	nowFlag := flag.String("now", "2025-06-15T12:00:00Z", "reference time (RFC 3339)")
	days := flag.Int("days", 90, "spread events over this many days before -now")
	flag.Parse()

	now, err := time.Parse(time.RFC3339, *nowFlag)
	if err != nil {
		return fmt.Errorf("parse -now: %w", err)
	}
	if *count < 1 || *days < 1 {
		return fmt.Errorf("-count and -days must be positive")
	}

	store := filestore.New(*dir, *key)
	if err := store.Save(context.Background(), nil); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}

	ids := 0
	svc := service.New(store,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewMetricsForTesting(),
		service.WithClock(clockwork.NewFakeClockAt(now)),
		service.WithIDGenerator(func() string {
			ids++
			return uuid.NewSHA1(uuid.NameSpaceURL, fmt.Appendf(nil, "outage-tracker/mock/%d", ids)).String()
		}),
	)

	rng := rand.New(rand.NewPCG(*seed, *seed))
	drafts := generateDrafts(rng, now, *count, *days)

	ctx := context.Background()
	for i, d := range drafts {
		if _, err := svc.Create(ctx, d); err != nil {
			return fmt.Errorf("draft %d (%s): %w", i, d.Kind, err)
		}
	}
	log.Printf("wrote %d events to %s", len(drafts), store.Path())

	overview, err := svc.Overview(ctx, domain.WindowAll)
	if err != nil {
		return err
	}
	printStats(overview)
	return nil
}

// generateDrafts returns drafts oldest first. The first draft for every
// location is a location report so later duration and damage reports refer
// to a known location.
func generateDrafts(rng *rand.Rand, now time.Time, count, days int) []domain.Draft {
	offsets := make([]time.Duration, count)
	for i := range offsets {
		offsets[i] = time.Duration(rng.Int64N(int64(days) * int64(24*time.Hour)))
	}
	// Largest offset first, so drafts come out oldest first.
	slices.SortFunc(offsets, func(a, b time.Duration) int { return cmp.Compare(b, a) })

	known := map[string]bool{}
	drafts := make([]domain.Draft, 0, count)
	for _, off := range offsets {
		location := fmt.Sprintf("%s, %s, Recife", pick(rng, streets), pick(rng, districts))
		d := domain.Draft{
			Date:     now.Add(-off).Truncate(time.Minute),
			Location: location,
			Severity: pick(rng, severities),
		}

		switch {
		case !known[location]:
			d.Kind = domain.FormLocation
			d.Description = "Falta de energia relatada por morador"
			known[location] = true
		case rng.IntN(2) == 0:
			d.Kind = domain.FormDuration
			d.Duration = pick(rng, durations)
		default:
			d.Kind = domain.FormDamage
			d.Damage = pick(rng, damages)
		}
		drafts = append(drafts, d)
	}
	return drafts
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.IntN(len(items))]
}

func printStats(o domain.Overview) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d (location=%d, duration=%d, damage=%d)\n",
		o.Counts.Total, o.Counts.WithLocation, o.Counts.WithDuration, o.Counts.WithDamage)
	fmt.Printf("Severity: low=%d, medium=%d, high=%d (average %s, %.2f)\n",
		o.Severity.Distribution.Low, o.Severity.Distribution.Medium, o.Severity.Distribution.High,
		o.Severity.Average, o.Severity.AverageWeight)
	fmt.Printf("Durations: count=%d avg=%.1fm max=%s min=%s\n",
		o.Durations.Count, o.Durations.AverageMinutes,
		domain.FormatDuration(o.Durations.MaxMinutes), domain.FormatDuration(o.Durations.MinMinutes))
	fmt.Printf("Most affected area: %s (%d)\n", o.MostAffectedArea, o.MostAffectedCount)
	fmt.Printf("Trend: %s, monthly growth: %.1f%%\n", o.CountTrend, o.MonthlyGrowth)
}
