package view

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/docmatch/internal/matching"
	"github.com/MrJamesThe3rd/docmatch/internal/report"
)

const matchTimeout = time.Minute

type matchState int

const (
	matchStateFilePick matchState = iota
	matchStateMatching
	matchStateResult
)

// MatchModel runs a match request read from a JSON file in the wire format
// of the match endpoint.
type MatchModel struct {
	CommonModel
	matchingService *matching.Service
	processingCap   int

	state      matchState
	filePicker filepicker.Model
	spinner    spinner.Model

	path      string
	truncated int
	report    *report.Report
	err       error
}

func NewMatchModel(svc *matching.Service, processingCap int) MatchModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".json"}
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return MatchModel{
		matchingService: svc,
		processingCap:   processingCap,
		filePicker:      fp,
		spinner:         s,
	}
}

func (m MatchModel) Title() string { return "Match Documents" }

func (m MatchModel) ShortHelp() string {
	if m.state == matchStateResult {
		return "Esc: pick another file"
	}

	return "Esc: back | Enter: select"
}

func (m MatchModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m MatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			if m.state == matchStateResult {
				m.state = matchStateFilePick
				m.report = nil
				m.err = nil

				return m, nil
			}

			return m, Back
		}

	case matchResultMsg:
		m.state = matchStateResult
		m.report = msg.report
		m.truncated = msg.truncated
		m.err = msg.err

		return m, nil
	}

	switch m.state {
	case matchStateFilePick:
		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.path = path
			m.state = matchStateMatching

			return m, tea.Batch(m.spinner.Tick, m.matchCmd(path))
		}

		return m, cmd

	case matchStateMatching:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m MatchModel) View() string {
	switch m.state {
	case matchStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Select a match request (.json):\n\n%s", m.filePicker.View()),
		)
	case matchStateMatching:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("%s Matching %s...", m.spinner.View(), filepath.Base(m.path)),
		)
	case matchStateResult:
		return m.viewResult()
	}

	return ""
}

func (m MatchModel) viewResult() string {
	style := lipgloss.NewStyle().Padding(1)

	if m.err != nil {
		return style.Render(
			lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(fmt.Sprintf("Error: %v", m.err)),
		)
	}

	out := RenderReport(m.report)

	if m.truncated > 0 {
		out = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).
			Render(fmt.Sprintf("Candidates truncated from %d to %d.", m.truncated, m.processingCap)) + "\n\n" + out
	}

	return style.Render(out)
}

type matchResultMsg struct {
	report    *report.Report
	truncated int
	err       error
}

func (m MatchModel) matchCmd(path string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return matchResultMsg{err: err}
		}
		defer f.Close()

		var req matching.Request
		if err := json.NewDecoder(f).Decode(&req); err != nil {
			return matchResultMsg{err: fmt.Errorf("decoding %s: %w", filepath.Base(path), err)}
		}

		var truncated int
		if n, cut := req.Truncate(m.processingCap); cut {
			truncated = n
		}

		ctx, cancel := context.WithTimeout(context.Background(), matchTimeout)
		defer cancel()

		ctx = matching.WithTraceID(ctx, "tui-"+filepath.Base(path))

		rep, err := m.matchingService.MatchRequest(ctx, req)

		return matchResultMsg{report: rep, truncated: truncated, err: err}
	}
}
