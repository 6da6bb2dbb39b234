package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/abdul674/aws-connector/internal/session"
)

// Session state colors.
var (
	colorStarting = lipgloss.Color("#7c3aed")
	colorRunning  = lipgloss.Color("#22c55e")
	colorClosing  = lipgloss.Color("#d97706")
	colorErrored  = lipgloss.Color("#dc2626")
	colorClosed   = lipgloss.Color("#4b5563")
)

// UI chrome colors.
var (
	colorBorder = lipgloss.Color("#4b5563")
	colorDimmed = lipgloss.Color("#6b7280")
	colorBright = lipgloss.Color("#f9fafb")
	colorAccent = lipgloss.Color("#3b82f6")
	colorUnread = lipgloss.Color("#f59e0b")
)

var (
	styleTabActive = lipgloss.NewStyle().
			Foreground(colorBright).
			Background(colorAccent).
			Padding(0, 1)

	styleTabInactive = lipgloss.NewStyle().
				Foreground(colorDimmed).
				Padding(0, 1)

	styleTabBar = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(colorBorder)

	styleStatusBar = lipgloss.NewStyle().
			Foreground(colorDimmed)

	styleUnreadDot = lipgloss.NewStyle().Foreground(colorUnread)

	styleErrorMark = lipgloss.NewStyle().Foreground(colorErrored)

	styleOverlay = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(1, 2)

	stylePickerLabel = lipgloss.NewStyle().Foreground(colorDimmed)
)

var stateColors = map[session.State]lipgloss.Color{
	session.Starting: colorStarting,
	session.Running:  colorRunning,
	session.Closing:  colorClosing,
	session.Closed:   colorClosed,
	session.Errored:  colorErrored,
}

// renderState paints a state name in its lifecycle color.
func renderState(s session.State) string {
	return lipgloss.NewStyle().Foreground(stateColors[s]).Render(s.String())
}
