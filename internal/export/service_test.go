package export_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/MrJamesThe3rd/docmatch/internal/deviation"
	"github.com/MrJamesThe3rd/docmatch/internal/document"
	"github.com/MrJamesThe3rd/docmatch/internal/export"
	"github.com/MrJamesThe3rd/docmatch/internal/report"
)

type fakeLister struct {
	reports []*report.Report
	err     error
	filter  report.ListFilter
}

func (f *fakeLister) List(_ context.Context, filter report.ListFilter) ([]*report.Report, error) {
	f.filter = filter
	return f.reports, f.err
}

func sampleReport() *report.Report {
	one := 1

	r := &report.Report{
		ID:   "rep-0011aabb",
		Site: "north",
		Documents: []report.DocumentRef{
			{Kind: document.KindInvoice, ID: "inv-1"},
			{Kind: document.KindPurchaseOrder, ID: "po-1"},
		},
		Labels: []string{report.LabelMatched, report.LabelMatchedItems},
		Deviations: []deviation.Deviation{
			{Code: deviation.CodeAmountsDiffer, Severity: deviation.SeverityMedium, Message: "Amounts differ", FieldValues: []string{"125", "100"}},
		},
		ItemPairs: []report.ItemPair{
			{
				ItemIndices: [2]*int{&one, nil},
				MatchType:   report.MatchTypeUnmatched,
				Deviations: []deviation.Deviation{
					{Code: deviation.CodeUnmatchedItem, Severity: deviation.SeverityLow, Message: "Unmatched item"},
				},
			},
		},
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	r.SetMetric(report.MetricCertainty, 0.95)
	r.SetMetric(report.MetricDeviationSeverity, deviation.SeverityMedium)

	return r
}

func TestService_Export(t *testing.T) {
	label := report.LabelMatched
	lister := &fakeLister{reports: []*report.Report{sampleReport()}}

	svc := export.NewService(lister)

	var buf bytes.Buffer

	n, err := svc.Export(context.Background(), report.ListFilter{Label: &label}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, &label, lister.filter.Label)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Reports")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "report_id", rows[0][0])
	assert.Equal(t, "rep-0011aabb", rows[1][0])
	assert.Equal(t, "inv-1, po-1", rows[1][3])
	assert.Equal(t, "matched, matched-items", rows[1][4])
	assert.Equal(t, "0.95", rows[1][5])
	assert.Equal(t, "medium", rows[1][6])

	devs, err := f.GetRows("Deviations")
	require.NoError(t, err)
	require.Len(t, devs, 3)
	assert.Equal(t, []string{"rep-0011aabb", "document", "", "AMOUNTS_DIFFER", "medium", "Amounts differ", "125 | 100"}, devs[1])
	assert.Equal(t, "1/-", devs[2][2])
	assert.Equal(t, "UNMATCHED_ITEM", devs[2][3])
}

func TestService_ExportListError(t *testing.T) {
	svc := export.NewService(&fakeLister{err: errors.New("db error")})

	_, err := svc.Export(context.Background(), report.ListFilter{}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestService_ExportFile(t *testing.T) {
	svc := export.NewService(&fakeLister{reports: []*report.Report{sampleReport()}})

	path := filepath.Join(t.TempDir(), "out", "reports.xlsx")

	n, err := svc.ExportFile(context.Background(), report.ListFilter{}, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Reports", "Deviations"}, f.GetSheetList())
}

func TestSummary(t *testing.T) {
	got := export.Summary([]*report.Report{sampleReport()})

	assert.True(t, strings.HasPrefix(got, "* 2024-03-01 | inv-1 <> po-1 | matched,matched-items"))
	assert.Contains(t, got, "certainty 0.95")
	assert.Contains(t, got, "severity medium")
}
