package domain

import (
	"fmt"
	"math"
	"time"
)

// Number of items in overview lists.
const (
	RecentEventsLimit = 5
	DailySeriesDays   = 15
)

// Overview is the dashboard summary of the whole collection.
type Overview struct {
	Window            Window        `json:"window"`
	GeneratedAt       time.Time     `json:"generated_at"`
	Counts            Counts        `json:"counts"`
	Durations         DurationStats `json:"durations"`
	Severity          SeverityStats `json:"severity"`
	CountTrend        Trend         `json:"count_trend"`
	MostAffectedArea  string        `json:"most_affected_area"`
	MostAffectedCount int           `json:"most_affected_count"`
	MonthlyGrowth     float64       `json:"monthly_growth"`
	Daily             []DayCount    `json:"daily"`
	Recent            []Event       `json:"recent"`
	Insights          []Insight     `json:"insights"`
}

// ComputeOverview builds the dashboard for events inside the window. Trend,
// monthly growth and the daily series use their own fixed ranges and look
// at the whole collection.
func ComputeOverview(events []Event, now time.Time, w Window) Overview {
	scoped := FilterByWindow(events, now, w)

	o := Overview{
		Window:           w,
		GeneratedAt:      now,
		Counts:           CountEvents(scoped),
		Durations:        ComputeDurationStats(scoped),
		Severity:         ComputeSeverityStats(scoped),
		CountTrend:       EventCountTrend(events, now),
		MostAffectedArea: NoAffectedArea,
		MonthlyGrowth:    roundTo(MonthlyGrowth(events, now), 1),
		Daily:            DailyCounts(events, now, DailySeriesDays),
		Recent:           RecentEvents(scoped, RecentEventsLimit),
	}
	if area, ok := MostAffectedArea(scoped); ok {
		o.MostAffectedArea = area.Area
		o.MostAffectedCount = area.Count
	}
	o.Insights = DeriveInsights(o)
	return o
}

// DurationView backs the outage duration screen.
type DurationView struct {
	Window   Window          `json:"window"`
	Stats    DurationStats   `json:"stats"`
	Impact   Impact          `json:"impact"`
	Trend    Trend           `json:"trend"`
	Weekly   []WeekAverage   `json:"weekly"`
	Timeline []DurationPoint `json:"timeline"`
	Events   []Event         `json:"events"`
}

// ComputeDurationView summarizes duration-bearing events inside the window.
// The impact label describes the average outage.
func ComputeDurationView(events []Event, now time.Time, w Window) DurationView {
	scoped := FilterByWindow(filterEvents(events, Event.HasDuration), now, w)
	stats := ComputeDurationStats(scoped)
	return DurationView{
		Window:   w,
		Stats:    stats,
		Impact:   ImpactForDuration(int(math.Round(stats.AverageMinutes))),
		Trend:    DurationTrend(scoped, now),
		Weekly:   WeeklyDurationAverages(scoped),
		Timeline: DurationTimeline(scoped),
		Events:   SortByDateDesc(scoped),
	}
}

// DamageView backs the damage report screen.
type DamageView struct {
	Window     Window           `json:"window"`
	Category   Category         `json:"category"`
	Total      int              `json:"total"`
	ByCategory map[Category]int `json:"by_category"`
	Severity   SeverityStats    `json:"severity"`
	Trend      Trend            `json:"trend"`
	Events     []Event          `json:"events"`
}

// ComputeDamageView summarizes damage-bearing events inside the window.
// Totals cover every category; Events is narrowed to category.
func ComputeDamageView(events []Event, now time.Time, w Window, category Category) DamageView {
	scoped := FilterByWindow(FilterByCategory(events, CategoryAll), now, w)
	return DamageView{
		Window:     w,
		Category:   category,
		Total:      len(scoped),
		ByCategory: CountByCategory(scoped),
		Severity:   ComputeSeverityStats(scoped),
		Trend:      EventCountTrend(scoped, now),
		Events:     SortByDateDesc(FilterByCategory(scoped, category)),
	}
}

// LocationView backs the location screen.
type LocationView struct {
	Severity          Severity        `json:"severity,omitempty"`
	Total             int             `json:"total"`
	ThisMonth         int             `json:"this_month"`
	MostAffectedArea  string          `json:"most_affected_area"`
	MostAffectedCount int             `json:"most_affected_count"`
	Locations         []LocationEntry `json:"locations"`
	Events            []Event         `json:"events"`
}

// ComputeLocationView summarizes every located event, optionally narrowed
// to one severity.
func ComputeLocationView(events []Event, now time.Time, severity Severity) LocationView {
	scoped := FilterBySeverity(filterEvents(events, Event.HasLocation), severity)
	v := LocationView{
		Severity:         severity,
		Total:            len(scoped),
		ThisMonth:        CountThisMonth(scoped, now),
		MostAffectedArea: NoAffectedArea,
		Locations:        KnownLocations(scoped),
		Events:           SortByDateDesc(scoped),
	}
	if area, ok := MostAffectedArea(scoped); ok {
		v.MostAffectedArea = area.Area
		v.MostAffectedCount = area.Count
	}
	return v
}

// InsightKind classifies a generated insight.
type InsightKind string

const (
	InsightWarning InsightKind = "warning"
	InsightSuccess InsightKind = "success"
	InsightAlert   InsightKind = "alert"
	InsightInfo    InsightKind = "info"
)

// Insight is a short observation derived from an Overview.
type Insight struct {
	Kind    InsightKind `json:"kind"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
}

// Insight thresholds.
const (
	LongAverageMinutes = 120
	HighSeverityShare  = 0.3
)

// DeriveInsights turns overview figures into observations, in a fixed order:
// weekly trend, long average outages, high severity share, hotspot.
func DeriveInsights(o Overview) []Insight {
	insights := []Insight{}

	switch o.CountTrend {
	case TrendUp:
		insights = append(insights, Insight{
			Kind:    InsightWarning,
			Title:   "More outages",
			Message: "Outages increased noticeably over the last week.",
		})
	case TrendDown:
		insights = append(insights, Insight{
			Kind:    InsightSuccess,
			Title:   "Grid improving",
			Message: "Outages decreased over the last week.",
		})
	}

	if o.Durations.AverageMinutes > LongAverageMinutes {
		insights = append(insights, Insight{
			Kind:    InsightWarning,
			Title:   "Long outages",
			Message: fmt.Sprintf("Average outage lasts %d min.", int(math.Round(o.Durations.AverageMinutes))),
		})
	}

	if float64(o.Severity.Distribution.High) > float64(o.Counts.Total)*HighSeverityShare {
		insights = append(insights, Insight{
			Kind:    InsightAlert,
			Title:   "High severity",
			Message: "Many high severity outages were recorded.",
		})
	}

	if o.MostAffectedArea != NoAffectedArea && o.MostAffectedArea != "" {
		insights = append(insights, Insight{
			Kind:    InsightInfo,
			Title:   "Hotspot",
			Message: fmt.Sprintf("%s is the area most affected by outages.", o.MostAffectedArea),
		})
	}

	return insights
}
