package view

import (
	tea "github.com/charmbracelet/bubbletea"
)

// View is the interface that all TUI screens implement.
type View interface {
	tea.Model
	Title() string
	ShortHelp() string
}

var (
	_ View = MatchModel{}
	_ View = ReportsModel{}
	_ View = ImportModel{}
	_ View = ExportModel{}
)
