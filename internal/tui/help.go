package tui

import "github.com/charmbracelet/glamour"

const helpMarkdown = `# AWS Connector

Tabbed terminal for container exec, remote shell, and port-forward
sessions.

## Keys

| Key | Action |
|-----|--------|
| ctrl+t | new session |
| ctrl+w | close current session |
| ctrl+n / ctrl+p | next / previous tab |
| ctrl+l | switch between terminal and log surfaces |
| ctrl+h | this help |
| ctrl+q | quit |

Everything else is sent to the active session.

## Tabs

Tabs follow creation order. A dot marks unread output on an inactive
tab; a cross marks a failed session, which stays visible until you
close it.
`

// renderHelp renders the help overlay once; the result is cached on the
// model.
func renderHelp(width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(min(width-8, 72)),
	)
	if err != nil {
		return helpMarkdown
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return styleOverlay.Render(out)
}
