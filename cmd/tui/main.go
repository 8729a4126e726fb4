package main

import (
	"context"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/docmatch/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/docmatch/internal/app"
	"github.com/MrJamesThe3rd/docmatch/internal/config"
)

type model struct {
	app *app.App
	cfg *config.Config

	currentView View

	matchView   view.MatchModel
	reportsView view.ReportsModel
	importView  view.ImportModel
	exportView  view.ExportModel
}

type View int

const (
	ViewMenu    View = 0
	ViewMatch   View = 1
	ViewReports View = 2
	ViewImport  View = 3
	ViewExport  View = 4
)

func initialModel(a *app.App, cfg *config.Config) model {
	return model{
		app:         a,
		cfg:         cfg,
		currentView: ViewMenu,
		matchView:   view.NewMatchModel(a.Matching, cfg.Matching.ProcessingCap),
		reportsView: view.NewReportsModel(a.Reports),
		importView:  view.NewImportModel(a.Documents, a.Importer),
		exportView:  view.NewExportModel(a.Export, a.Reports),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewMatch
				m.matchView = view.NewMatchModel(m.app.Matching, m.cfg.Matching.ProcessingCap)

				return m, m.matchView.Init()
			case "2":
				m.currentView = ViewReports
				m.reportsView = view.NewReportsModel(m.app.Reports)

				return m, m.reportsView.Init()
			case "3":
				m.currentView = ViewImport
				return m, m.importView.Init()
			case "4":
				m.currentView = ViewExport
				m.exportView = view.NewExportModel(m.app.Export, m.app.Reports)

				return m, m.exportView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewMatch:
		var newModel tea.Model
		newModel, cmd = m.matchView.Update(msg)
		m.matchView = newModel.(view.MatchModel)
	case ViewReports:
		var newModel tea.Model
		newModel, cmd = m.reportsView.Update(msg)
		m.reportsView = newModel.(view.ReportsModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewExport:
		var newModel tea.Model
		newModel, cmd = m.exportView.Update(msg)
		m.exportView = newModel.(view.ExportModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"docmatch\n\n" +
				"1. Match Request File\n" +
				"2. Browse Reports\n" +
				"3. Import Documents\n" +
				"4. Export Reports\n\n" +
				"q. Quit",
		)
	case ViewMatch:
		return m.matchView.View()
	case ViewReports:
		return m.reportsView.View()
	case ViewImport:
		return m.importView.View()
	case ViewExport:
		return m.exportView.View()
	}

	return "Unknown View"
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	p := tea.NewProgram(initialModel(a, cfg))
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
