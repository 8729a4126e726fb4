package view

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/docmatch/internal/deviation"
	"github.com/MrJamesThe3rd/docmatch/internal/report"
)

const dbTimeout = 5 * time.Second

// FormatDate formats a time.Time into YYYY-MM-DD HH:MM.
func FormatDate(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

// FormatCertainty renders the certainty metric of r as a percentage.
func FormatCertainty(r *report.Report) string {
	v, ok := r.Metric(report.MetricCertainty)
	if !ok {
		return "-"
	}

	f, ok := v.(float64)
	if !ok {
		return fmt.Sprint(v)
	}

	return fmt.Sprintf("%.0f%%", f*100)
}

// FormatDocuments joins the document ids of r.
func FormatDocuments(r *report.Report) string {
	return strings.Join(r.DocumentIDs(), " / ")
}

var severityColors = map[deviation.Severity]lipgloss.Color{
	deviation.SeverityNone:   lipgloss.Color("240"),
	deviation.SeverityInfo:   lipgloss.Color("39"),
	deviation.SeverityLow:    lipgloss.Color("46"),
	deviation.SeverityMedium: lipgloss.Color("214"),
	deviation.SeverityHigh:   lipgloss.Color("196"),
}

func SeverityStyle(s deviation.Severity) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(severityColors[s])
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
