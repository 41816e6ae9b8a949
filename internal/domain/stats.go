package domain

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"
)

// Window is a trailing time range used to filter events for statistics.
type Window string

const (
	Window7Days  Window = "7d"
	Window30Days Window = "30d"
	Window90Days Window = "90d"
	WindowAll    Window = "all"
)

// ParseWindow validates a window label. An empty label means WindowAll.
func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.ToLower(strings.TrimSpace(s))); w {
	case Window7Days, Window30Days, Window90Days, WindowAll:
		return w, nil
	case "":
		return WindowAll, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidWindow, s)
}

// Days returns the window length in days, or 0 for WindowAll.
func (w Window) Days() int {
	switch w {
	case Window7Days:
		return 7
	case Window30Days:
		return 30
	case Window90Days:
		return 90
	}
	return 0
}

// FilterByWindow keeps events dated strictly after now minus the window.
// WindowAll keeps everything. The input is never modified.
func FilterByWindow(events []Event, now time.Time, w Window) []Event {
	days := w.Days()
	if days == 0 {
		return slices.Clone(events)
	}
	cutoff := now.AddDate(0, 0, -days)
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Date.After(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// FilterBySeverity keeps events with the given severity. An empty severity
// keeps everything.
func FilterBySeverity(events []Event, severity Severity) []Event {
	if severity == "" {
		return slices.Clone(events)
	}
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Severity == severity {
			out = append(out, e)
		}
	}
	return out
}

// FilterByKind keeps events whose inferred form kind matches. An empty kind
// keeps everything.
func FilterByKind(events []Event, kind FormKind) []Event {
	if kind == "" {
		return slices.Clone(events)
	}
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Kind() == kind {
			out = append(out, e)
		}
	}
	return out
}

// filterEvents keeps events satisfying keep.
func filterEvents(events []Event, keep func(Event) bool) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Counts holds the collection size and per-field presence tallies.
type Counts struct {
	Total        int `json:"total"`
	WithLocation int `json:"with_location"`
	WithDuration int `json:"with_duration"`
	WithDamage   int `json:"with_damage"`
}

// CountEvents tallies the collection by field presence.
func CountEvents(events []Event) Counts {
	c := Counts{Total: len(events)}
	for _, e := range events {
		if e.HasLocation() {
			c.WithLocation++
		}
		if e.HasDuration() {
			c.WithDuration++
		}
		if e.HasDamage() {
			c.WithDamage++
		}
	}
	return c
}

// DurationStats summarizes events whose duration yields a positive minute
// count. All fields are zero when no such event exists.
type DurationStats struct {
	Count          int     `json:"count"`
	AverageMinutes float64 `json:"average_minutes"`
	MaxMinutes     int     `json:"max_minutes"`
	MinMinutes     int     `json:"min_minutes"`
	TotalMinutes   int     `json:"total_minutes"`
}

// ComputeDurationStats computes mean, extremes and total downtime.
func ComputeDurationStats(events []Event) DurationStats {
	var s DurationStats
	for _, e := range events {
		if !e.HasDuration() {
			continue
		}
		m := e.DurationMinutes()
		if m <= 0 {
			continue
		}
		if s.Count == 0 || m > s.MaxMinutes {
			s.MaxMinutes = m
		}
		if s.Count == 0 || m < s.MinMinutes {
			s.MinMinutes = m
		}
		s.Count++
		s.TotalMinutes += m
	}
	if s.Count > 0 {
		s.AverageMinutes = float64(s.TotalMinutes) / float64(s.Count)
	}
	return s
}

// averageDuration is the mean positive duration, or 0.
func averageDuration(events []Event) float64 {
	return ComputeDurationStats(events).AverageMinutes
}

// SeverityDistribution counts events per severity level.
type SeverityDistribution struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// Total is the number of events with a recognized severity.
func (d SeverityDistribution) Total() int { return d.Low + d.Medium + d.High }

// SeverityStats combines the distribution with a weighted average.
type SeverityStats struct {
	Distribution  SeverityDistribution `json:"distribution"`
	AverageWeight float64              `json:"average_weight"`
	Average       Severity             `json:"average"`
}

// ComputeSeverityStats weights low=1, medium=2, high=3 over events with a
// recognized severity. The mean maps back to low below 1.5, high above 2.5
// and medium otherwise. With no such events the average is low and the
// weight is zero.
func ComputeSeverityStats(events []Event) SeverityStats {
	var s SeverityStats
	sum := 0
	for _, e := range events {
		switch e.Severity {
		case SeverityLow:
			s.Distribution.Low++
		case SeverityMedium:
			s.Distribution.Medium++
		case SeverityHigh:
			s.Distribution.High++
		default:
			continue
		}
		sum += e.Severity.weight()
	}

	n := s.Distribution.Total()
	if n == 0 {
		s.Average = SeverityLow
		return s
	}
	s.AverageWeight = float64(sum) / float64(n)
	switch {
	case s.AverageWeight < 1.5:
		s.Average = SeverityLow
	case s.AverageWeight > 2.5:
		s.Average = SeverityHigh
	default:
		s.Average = SeverityMedium
	}
	return s
}

// Trend describes how a quantity moved between two consecutive periods.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// Relative change needed before a trend is reported.
const (
	CountTrendThreshold    = 0.2
	DurationTrendThreshold = 0.1
)

// CompareTrend is up when recent exceeds previous by more than threshold,
// down when it falls short by more than threshold, stable otherwise. With a
// zero previous value any positive recent value is up.
func CompareTrend(recent, previous, threshold float64) Trend {
	switch {
	case recent > previous*(1+threshold):
		return TrendUp
	case recent < previous*(1-threshold):
		return TrendDown
	default:
		return TrendStable
	}
}

// splitWeeks partitions events into the last seven days, (now-7d, ...), and
// the seven days before that, (now-14d, now-7d].
func splitWeeks(events []Event, now time.Time) (recent, previous []Event) {
	weekAgo := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -14)
	for _, e := range events {
		switch {
		case e.Date.After(weekAgo):
			recent = append(recent, e)
		case e.Date.After(twoWeeksAgo):
			previous = append(previous, e)
		}
	}
	return recent, previous
}

// EventCountTrend compares event counts of the last week against the week
// before it.
func EventCountTrend(events []Event, now time.Time) Trend {
	recent, previous := splitWeeks(events, now)
	return CompareTrend(float64(len(recent)), float64(len(previous)), CountTrendThreshold)
}

// DurationTrend compares mean outage duration of the last week against the
// week before it.
func DurationTrend(events []Event, now time.Time) Trend {
	recent, previous := splitWeeks(events, now)
	return CompareTrend(averageDuration(recent), averageDuration(previous), DurationTrendThreshold)
}

// NoAffectedArea is displayed when no event has an area segment.
const NoAffectedArea = "Nenhuma"

// AreaCount is an area label with the number of events that name it.
type AreaCount struct {
	Area  string `json:"area"`
	Count int    `json:"count"`
}

// MostAffectedArea returns the area named by the most events. Ties go to
// the area seen first. Locations without a second segment are skipped.
func MostAffectedArea(events []Event) (AreaCount, bool) {
	counts := make(map[string]int)
	var order []string
	for _, e := range events {
		area, ok := e.Area()
		if !ok {
			continue
		}
		if _, seen := counts[area]; !seen {
			order = append(order, area)
		}
		counts[area]++
	}

	var best AreaCount
	for _, area := range order {
		if counts[area] > best.Count {
			best = AreaCount{Area: area, Count: counts[area]}
		}
	}
	return best, best.Count > 0
}

// monthBounds returns [start, end) of the calendar month containing t, in
// t's location.
func monthBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}

func countBetween(events []Event, start, end time.Time) int {
	n := 0
	for _, e := range events {
		if !e.Date.Before(start) && e.Date.Before(end) {
			n++
		}
	}
	return n
}

// CountThisMonth counts events in the calendar month containing now.
func CountThisMonth(events []Event, now time.Time) int {
	start, end := monthBounds(now)
	return countBetween(events, start, end)
}

// MonthlyGrowth compares the calendar month of now with the calendar month
// containing now minus 30 days, as a signed percentage. It is 0 when the
// earlier month has no events. Near month ends both references can fall in
// the same month, which yields 0.
func MonthlyGrowth(events []Event, now time.Time) float64 {
	current := CountThisMonth(events, now)
	prevStart, prevEnd := monthBounds(now.AddDate(0, 0, -30))
	previous := countBetween(events, prevStart, prevEnd)
	if previous == 0 {
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}

// DayCount is the number of events on one calendar day.
type DayCount struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// DailyCounts returns one bucket per calendar day for the last days days,
// oldest first and ending with the day of now. Days are taken in now's
// location.
func DailyCounts(events []Event, now time.Time, days int) []DayCount {
	if days <= 0 {
		return nil
	}
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	first := today.AddDate(0, 0, -(days - 1))

	buckets := make([]DayCount, days)
	for i := range buckets {
		buckets[i].Date = first.AddDate(0, 0, i)
	}
	for _, e := range events {
		d := e.Date.In(loc)
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
		if day.Before(first) || day.After(today) {
			continue
		}
		// AddDate keeps calendar days aligned across DST changes, so search
		// instead of dividing by 24h.
		for i := range buckets {
			if buckets[i].Date.Equal(day) {
				buckets[i].Count++
				break
			}
		}
	}
	return buckets
}

// WeekAverage is the mean outage duration of one ISO week.
type WeekAverage struct {
	Year           int     `json:"year"`
	Week           int     `json:"week"`
	Count          int     `json:"count"`
	AverageMinutes float64 `json:"average_minutes"`
}

// WeeklyDurationAverages groups events with a positive duration by ISO week
// and averages their minutes, oldest week first. Durations that read as zero
// are skipped, as in ComputeDurationStats.
func WeeklyDurationAverages(events []Event) []WeekAverage {
	type key struct{ year, week int }
	sums := make(map[key]*WeekAverage)
	var keys []key
	for _, e := range events {
		m := e.DurationMinutes()
		if !e.HasDuration() || m <= 0 {
			continue
		}
		y, w := e.Date.ISOWeek()
		k := key{y, w}
		wa, ok := sums[k]
		if !ok {
			wa = &WeekAverage{Year: y, Week: w}
			sums[k] = wa
			keys = append(keys, k)
		}
		wa.Count++
		wa.AverageMinutes += float64(m)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].week < keys[j].week
	})
	out := make([]WeekAverage, 0, len(keys))
	for _, k := range keys {
		wa := *sums[k]
		wa.AverageMinutes /= float64(wa.Count)
		out = append(out, wa)
	}
	return out
}

// DurationPoint is one event on the duration timeline.
type DurationPoint struct {
	EventID string    `json:"event_id"`
	Date    time.Time `json:"date"`
	Minutes int       `json:"minutes"`
}

// DurationTimeline lists duration-bearing events oldest first.
func DurationTimeline(events []Event) []DurationPoint {
	out := make([]DurationPoint, 0, len(events))
	for _, e := range events {
		if e.HasDuration() {
			out = append(out, DurationPoint{EventID: e.ID, Date: e.Date, Minutes: e.DurationMinutes()})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// SortByDateDesc returns a copy of events ordered newest first.
func SortByDateDesc(events []Event) []Event {
	out := slices.Clone(events)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// RecentEvents returns up to n events, newest first.
func RecentEvents(events []Event, n int) []Event {
	sorted := SortByDateDesc(events)
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// LocationEntry summarizes the events recorded at one location.
type LocationEntry struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
	Latest   Event  `json:"latest"`
}

// KnownLocations lists each distinct location once, sorted by name, with
// its most recent event.
func KnownLocations(events []Event) []LocationEntry {
	byLocation := make(map[string]*LocationEntry)
	for _, e := range events {
		if !e.HasLocation() {
			continue
		}
		entry, ok := byLocation[e.Location]
		if !ok {
			byLocation[e.Location] = &LocationEntry{Location: e.Location, Count: 1, Latest: e}
			continue
		}
		entry.Count++
		if e.Date.After(entry.Latest.Date) {
			entry.Latest = e
		}
	}

	out := make([]LocationEntry, 0, len(byLocation))
	for _, entry := range byLocation {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out
}

// IsKnownLocation reports whether any event was recorded at location.
func IsKnownLocation(events []Event, location string) bool {
	location = strings.TrimSpace(location)
	for _, e := range events {
		if e.Location == location {
			return true
		}
	}
	return false
}

// roundTo rounds v to the given number of decimals.
func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
