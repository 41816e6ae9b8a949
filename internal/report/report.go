// Package report renders the event collection and its summary statistics
// as downloadable spreadsheet and PDF documents.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/couchcryptid/outage-tracker/internal/domain"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "summary"
	eventsSheet  = "events"
	dateLayout   = "2006-01-02 15:04"
)

// Content types for the rendered documents.
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
)

var eventColumns = []string{"ID", "Date", "Location", "Area", "Severity", "Duration", "Minutes", "Damage", "Category", "Description"}

// BuildXLSX renders a workbook with a summary sheet and one row per event.
func BuildXLSX(events []domain.Event, o domain.Overview) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(eventsSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	for i, row := range summaryRows(o) {
		values := []any{row.label, row.value}
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &values); err != nil {
			return nil, fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}

	header := append([]string(nil), eventColumns...)
	if err := f.SetSheetRow(eventsSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, e := range events {
		row := i + 2
		area, _ := e.Area()
		category := ""
		if e.HasDamage() {
			category = string(domain.ClassifyDamage(e.Damage))
		}
		values := []any{
			e.ID, e.Date.Format(dateLayout), e.Location, area, string(e.Severity),
			e.Duration, e.DurationMinutes(), e.Damage, category, e.Description,
		}
		if err := f.SetSheetRow(eventsSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return nil, fmt.Errorf("write event row %d: %w", row, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildPDF renders a one-page summary followed by a table of recent events.
func BuildPDF(o domain.Overview, recent []domain.Event) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Power Outage Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	for _, row := range summaryRows(o) {
		pdf.Cell(0, 6, tr(fmt.Sprintf("%s: %v", row.label, row.value)))
		pdf.Ln(5)
	}

	if len(o.Insights) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, "Insights")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		for _, in := range o.Insights {
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("%s: %s", in.Title, in.Message)), "", "L", false)
		}
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(32, 6, "Date", "1", 0, "C", false, 0, "")
	pdf.CellFormat(88, 6, "Location", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Severity", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Duration", "1", 0, "C", false, 0, "")
	pdf.CellFormat(26, 6, "Damage", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, e := range recent {
		damage := "-"
		if e.HasDamage() {
			damage = string(domain.ClassifyDamage(e.Damage))
		}
		pdf.CellFormat(32, 6, e.Date.Format(dateLayout), "1", 0, "C", false, 0, "")
		pdf.CellFormat(88, 6, tr(truncate(e.Location, 48)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(22, 6, string(e.Severity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(22, 6, orDash(e.Duration), "1", 0, "C", false, 0, "")
		pdf.CellFormat(26, 6, damage, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type summaryRow struct {
	label string
	value any
}

func summaryRows(o domain.Overview) []summaryRow {
	return []summaryRow{
		{"Generated", o.GeneratedAt.Format(time.RFC3339)},
		{"Window", string(o.Window)},
		{"Total events", o.Counts.Total},
		{"With duration", o.Counts.WithDuration},
		{"With damage", o.Counts.WithDamage},
		{"Average duration (min)", o.Durations.AverageMinutes},
		{"Longest outage", domain.FormatDuration(o.Durations.MaxMinutes)},
		{"Average severity", string(o.Severity.Average)},
		{"Trend", string(o.CountTrend)},
		{"Most affected area", o.MostAffectedArea},
		{"Monthly growth (%)", o.MonthlyGrowth},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
