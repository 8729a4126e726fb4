package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/docmatch/internal/deviation"
	"github.com/MrJamesThe3rd/docmatch/internal/report"
)

const reportPageSize = 200

var labelFilters = []string{"", report.LabelMatched, report.LabelUncertain, report.LabelNoMatch}

type ReportsModel struct {
	CommonModel
	reportService *report.Service

	table   table.Model
	reports []*report.Report

	labelFilterIdx int
	showDetail     bool

	loading bool
	err     error
}

func NewReportsModel(svc *report.Service) ReportsModel {
	columns := []table.Column{
		{Title: "Created", Width: 17},
		{Title: "Documents", Width: 30},
		{Title: "Labels", Width: 34},
		{Title: "Certainty", Width: 10},
		{Title: "Deviations", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return ReportsModel{
		reportService: svc,
		table:         t,
		loading:       true,
	}
}

func (m ReportsModel) Title() string { return "Reports" }

func (m ReportsModel) ShortHelp() string {
	return "Esc: back | Enter: details | l: label filter | r: refresh"
}

func (m ReportsModel) Init() tea.Cmd {
	return m.loadReportsCmd()
}

func (m ReportsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadReportsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.reports = msg.reports
		m.refreshTable()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if m.showDetail {
				m.showDetail = false
				return m, nil
			}

			return m, Back
		case "enter":
			m.showDetail = !m.showDetail
			return m, nil
		case "r":
			m.loading = true
			return m, m.loadReportsCmd()
		case "l":
			m.labelFilterIdx = (m.labelFilterIdx + 1) % len(labelFilters)
			m.loading = true

			return m, m.loadReportsCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m ReportsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading reports...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	label := labelFilters[m.labelFilterIdx]
	if label == "" {
		label = "all"
	}

	header := fmt.Sprintf("Filter: [l] Label: %s | %d reports", activeStyle(label), len(m.reports))

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.showDetail {
		if r := m.selected(); r != nil {
			panel := lipgloss.NewStyle().
				Padding(1, 2).
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63")).
				Width(60).
				Render(RenderReport(r))

			content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
		}
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m ReportsModel) selected() *report.Report {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.reports) {
		return nil
	}

	return m.reports[idx]
}

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

// RenderReport lists the document and item deviations of r.
func RenderReport(r *report.Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s\n%s\n", lipgloss.NewStyle().Bold(true).Render(r.ID), FormatDocuments(r))
	fmt.Fprintf(&sb, "Site: %s | Certainty: %s\n", r.Site, FormatCertainty(r))
	fmt.Fprintf(&sb, "Labels: %s\n", strings.Join(r.Labels, ", "))

	if len(r.Deviations) > 0 {
		sb.WriteString("\nDocument deviations:\n")

		for _, d := range r.Deviations {
			sb.WriteString(renderDeviation(d))
		}
	}

	for _, p := range r.ItemPairs {
		if len(p.Deviations) == 0 {
			continue
		}

		fmt.Fprintf(&sb, "\nItems %s (%s):\n", itemIndices(p), p.MatchType)

		for _, d := range p.Deviations {
			sb.WriteString(renderDeviation(d))
		}
	}

	return sb.String()
}

func renderDeviation(d deviation.Deviation) string {
	return fmt.Sprintf("  %s %s\n", SeverityStyle(d.Severity).Render(fmt.Sprintf("[%s]", d.Severity)), d.Message)
}

func itemIndices(p report.ItemPair) string {
	side := func(i *int) string {
		if i == nil {
			return "-"
		}

		return fmt.Sprint(*i)
	}

	return side(p.ItemIndices[0]) + "/" + side(p.ItemIndices[1])
}

func (m *ReportsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.reports))

	for _, r := range m.reports {
		devs := len(r.Deviations)
		for _, p := range r.ItemPairs {
			devs += len(p.Deviations)
		}

		rows = append(rows, table.Row{
			FormatDate(r.CreatedAt),
			FormatDocuments(r),
			strings.Join(r.Labels, ","),
			FormatCertainty(r),
			fmt.Sprint(devs),
		})
	}

	m.table.SetRows(rows)
}

type loadReportsMsg struct {
	reports []*report.Report
	err     error
}

func (m ReportsModel) loadReportsCmd() tea.Cmd {
	filter := report.ListFilter{Limit: reportPageSize}
	if label := labelFilters[m.labelFilterIdx]; label != "" {
		filter.Label = &label
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		reports, err := m.reportService.List(ctx, filter)

		return loadReportsMsg{reports: reports, err: err}
	}
}
