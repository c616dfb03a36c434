package tui

import "github.com/charmbracelet/lipgloss"

// 256-color palette codes.
var (
	colorTitle     = lipgloss.Color("39")
	colorBorder    = lipgloss.Color("245")
	colorState     = lipgloss.Color("34")
	colorMigration = lipgloss.Color("214")
	colorFailure   = lipgloss.Color("196")
	colorMuted     = lipgloss.Color("240")
)

var (
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorTitle)

	// PlanBoxStyle frames the ordered script list of a plan.
	PlanBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	MigrationStyle = lipgloss.NewStyle().Foreground(colorMigration)
	StateStyle     = lipgloss.NewStyle().Foreground(colorState)
	MutedStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	ErrorStyle     = lipgloss.NewStyle().Foreground(colorFailure)
)

const (
	SymbolCheck      = "✓"
	SymbolCross      = "✗"
	SymbolArrowRight = "→"
	SymbolBullet     = "•"
)
