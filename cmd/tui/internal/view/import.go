package view

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/docmatch/internal/document"
	"github.com/MrJamesThe3rd/docmatch/internal/importer"
)

const importTimeout = 2 * time.Minute

type importState int

const (
	importStateSourceSelect importState = iota
	importStateFilePick
	importStateImporting
	importStateConflicts
	importStateResult
)

type ImportModel struct {
	CommonModel
	docService    *document.Service
	importService *importer.Service

	state          importState
	filePicker     filepicker.Model
	selectedSource importer.Source
	sourceOptions  []importer.Source
	sourceCursor   int

	path      string
	conflicts []string
	invalid   []document.InvalidDocument

	status string
	err    error
}

func NewImportModel(docSvc *document.Service, impSvc *importer.Service) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".txt"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		docService:    docSvc,
		importService: impSvc,
		filePicker:    fp,
		sourceOptions: []importer.Source{importer.SourceERP},
	}
}

func (m ImportModel) Title() string { return "Import Documents" }

func (m ImportModel) ShortHelp() string {
	if m.state == importStateConflicts {
		return "o: overwrite existing | Esc: cancel"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		switch m.state {
		case importStateSourceSelect:
			return m.updateSourceSelect(msg)
		case importStateConflicts:
			if msg.String() == "o" {
				m.state = importStateImporting
				m.status = fmt.Sprintf("Overwriting %d documents...", len(m.conflicts))

				return m, m.importCmd(m.path, true)
			}

			return m, nil
		}

	case importResultMsg:
		return m.handleResult(msg)
	}

	if m.state != importStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.path = path
		m.state = importStateImporting
		m.status = fmt.Sprintf("Importing from %s...", path)

		return m, m.importCmd(path, false)
	}

	return m, cmd
}

func (m ImportModel) handleResult(msg importResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.state = importStateResult
		m.err = msg.err
		m.status = fmt.Sprintf("Error: %v", msg.err)

		return m, nil
	}

	m.invalid = msg.result.Invalid

	if len(msg.result.Conflicts) > 0 {
		m.conflicts = msg.result.Conflicts
		m.state = importStateConflicts

		return m, nil
	}

	m.state = importStateResult
	m.status = fmt.Sprintf("Imported %d documents.", len(msg.result.Imported))

	return m, nil
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStateFilePick:
		m.state = importStateSourceSelect
		return m, nil
	case importStateResult, importStateConflicts:
		m.state = importStateSourceSelect
		m.err = nil
		m.status = ""
		m.conflicts = nil
		m.invalid = nil

		return m, nil
	}

	return m, Back
}

func (m ImportModel) updateSourceSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if m.sourceCursor > 0 {
			m.sourceCursor--
		}
	case tea.KeyDown:
		if m.sourceCursor < len(m.sourceOptions)-1 {
			m.sourceCursor++
		}
	case tea.KeyEnter:
		m.selectedSource = m.sourceOptions[m.sourceCursor]
		m.state = importStateFilePick

		return m, m.filePicker.Init()
	}

	return m, nil
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateSourceSelect:
		return m.viewSourceSelect()
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Select file to import (%s):\n\n%s", m.selectedSource, m.filePicker.View()),
		)
	case importStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStateConflicts:
		return m.viewConflicts()
	case importStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ImportModel) viewSourceSelect() string {
	s := "Select Source:\n\n"

	for i, source := range m.sourceOptions {
		cursor := " "
		if i == m.sourceCursor {
			cursor = ">"
		}

		s += fmt.Sprintf("%s %s\n", cursor, string(source))
	}

	return lipgloss.NewStyle().Padding(2).Render(s)
}

func (m ImportModel) viewConflicts() string {
	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")).
		Render(fmt.Sprintf("%d documents already exist. Nothing was imported.", len(m.conflicts)))

	return lipgloss.NewStyle().Padding(2).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header,
			"",
			strings.Join(m.conflicts, "\n"),
			"",
			"Press o to overwrite them, Esc to cancel.",
		),
	)
}

func (m ImportModel) viewResult() string {
	style := lipgloss.NewStyle().Padding(2)
	if m.err != nil {
		return style.Render(
			lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.status) +
				"\n\n(Esc to go back)",
		)
	}

	out := lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render(m.status)

	if len(m.invalid) > 0 {
		lines := make([]string, 0, len(m.invalid))
		for _, inv := range m.invalid {
			lines = append(lines, fmt.Sprintf("  %s: %s", inv.ID, inv.Reason))
		}

		out += "\n\nSkipped:\n" + lipgloss.NewStyle().Faint(true).Render(strings.Join(lines, "\n"))
	}

	return style.Render(out + "\n\n(Esc to go back)")
}

type importResultMsg struct {
	result *document.ImportResult
	err    error
}

func (m ImportModel) importCmd(path string, overwrite bool) tea.Cmd {
	source := m.selectedSource

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importResultMsg{err: err}
		}
		defer f.Close()

		payloads, err := m.importService.Import(source, f)
		if err != nil {
			return importResultMsg{err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		result, err := m.docService.ImportBatch(ctx, payloads, overwrite)
		if err != nil {
			return importResultMsg{err: err}
		}

		return importResultMsg{result: result}
	}
}
