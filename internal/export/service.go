package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/MrJamesThe3rd/docmatch/internal/report"
)

const (
	sheetReports    = "Reports"
	sheetDeviations = "Deviations"
)

var reportHeaders = []string{
	"report_id", "created_at", "site", "documents", "labels",
	"certainty", "deviation_severity", "matched_item_pairs", "candidate_documents",
}

var deviationHeaders = []string{
	"report_id", "scope", "item_indices", "code", "severity", "message", "field_values",
}

type Lister interface {
	List(ctx context.Context, filter report.ListFilter) ([]*report.Report, error)
}

// Service writes stored match reports to spreadsheet workbooks.
type Service struct {
	reports Lister
}

func NewService(reports Lister) *Service {
	return &Service{reports: reports}
}

// Export writes the reports matching filter as an XLSX workbook to w and
// returns how many reports it contains.
func (s *Service) Export(ctx context.Context, filter report.ListFilter, w io.Writer) (int, error) {
	reports, err := s.reports.List(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("listing reports: %w", err)
	}

	f, err := Workbook(reports)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("writing workbook: %w", err)
	}

	return len(reports), nil
}

// ExportFile is Export to a file, creating its directory.
func (s *Service) ExportFile(ctx context.Context, filter report.ListFilter, path string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating file: %w", err)
	}
	defer out.Close()

	n, err := s.Export(ctx, filter, out)
	if err != nil {
		return 0, err
	}

	return n, out.Close()
}

// Workbook lays reports out on two sheets: one row per report, and one row
// per deviation.
func Workbook(reports []*report.Report) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), sheetReports); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	if _, err := f.NewSheet(sheetDeviations); err != nil {
		return nil, fmt.Errorf("adding sheet: %w", err)
	}

	writeRow(f, sheetReports, 1, toAny(reportHeaders))
	writeRow(f, sheetDeviations, 1, toAny(deviationHeaders))

	devRow := 2

	for i, r := range reports {
		writeRow(f, sheetReports, i+2, []any{
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Site,
			strings.Join(r.DocumentIDs(), ", "),
			strings.Join(r.Labels, ", "),
			metric(r, report.MetricCertainty),
			metric(r, report.MetricDeviationSeverity),
			metric(r, report.MetricMatchedItemPairs),
			metric(r, report.MetricCandidateDocuments),
		})

		for _, d := range r.Deviations {
			writeRow(f, sheetDeviations, devRow, []any{
				r.ID, "document", "", string(d.Code), d.Severity.String(), d.Message,
				strings.Join(d.FieldValues, " | "),
			})
			devRow++
		}

		for _, p := range r.ItemPairs {
			for _, d := range p.Deviations {
				writeRow(f, sheetDeviations, devRow, []any{
					r.ID, "item", indices(p), string(d.Code), d.Severity.String(), d.Message,
					strings.Join(d.FieldValues, " | "),
				})
				devRow++
			}
		}
	}

	return f, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}

	return out
}

// metric returns a metric as a cell value; numbers stay numeric.
func metric(r *report.Report, name string) any {
	v, ok := r.Metric(name)
	if !ok || v == nil {
		return ""
	}

	switch v.(type) {
	case float64, int:
		return v
	}

	return fmt.Sprint(v)
}

func indices(p report.ItemPair) string {
	side := func(i *int) string {
		if i == nil {
			return "-"
		}

		return fmt.Sprint(*i)
	}

	return side(p.ItemIndices[0]) + "/" + side(p.ItemIndices[1])
}

// Summary renders a short plain-text line per report.
func Summary(reports []*report.Report) string {
	var sb strings.Builder

	for _, r := range reports {
		fmt.Fprintf(&sb, "* %s | %s | %s | certainty %v | severity %v\n",
			r.CreatedAt.Format("2006-01-02"),
			strings.Join(r.DocumentIDs(), " <> "),
			strings.Join(r.Labels, ","),
			metric(r, report.MetricCertainty),
			metric(r, report.MetricDeviationSeverity),
		)
	}

	return sb.String()
}
