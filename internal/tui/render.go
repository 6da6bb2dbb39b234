package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/abdul674/aws-connector/internal/session"
)

// chromeRows is the vertical space the tab bar and status bar take away
// from session content.
const chromeRows = 3

// View renders the full frame.
func (m Model) View() string {
	if m.width == 0 {
		return "starting..."
	}

	var tabs, content string
	if m.surface == surfaceLogs {
		tabs = m.logTabBar()
		content = m.logContent()
	} else {
		tabs = m.terminalTabBar()
		content = m.terminalContent()
	}

	frame := lipgloss.JoinVertical(lipgloss.Left,
		styleTabBar.Width(m.width).Render(tabs),
		content,
		m.statusBar(),
	)

	switch m.overlay {
	case overlayPicker:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.picker.View())
	case overlayHelp:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.help)
	}
	return frame
}

func (m Model) terminalTabBar() string {
	sessions := m.eng.ListSessions()
	if len(sessions) == 0 {
		return styleTabInactive.Render("no sessions (ctrl+t to connect)")
	}

	active := m.eng.Terminals().Active()
	parts := make([]string, 0, len(sessions))
	for i, v := range sessions {
		label := fmt.Sprintf("%d %s", i+1, v.Title)
		switch {
		case v.State == session.Errored:
			label += " " + styleErrorMark.Render("✗")
		case m.eng.Terminals().Unread(v.ID):
			label += " " + styleUnreadDot.Render("●")
		}
		if v.ID == active {
			parts = append(parts, styleTabActive.Render(label))
		} else {
			parts = append(parts, styleTabInactive.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) logTabBar() string {
	tails := m.tailer.List()
	if len(tails) == 0 {
		return styleTabInactive.Render("no log tails (ctrl+t, option 5)")
	}

	active := m.logMux.Active()
	parts := make([]string, 0, len(tails))
	for i, v := range tails {
		label := fmt.Sprintf("%d %s", i+1, v.Group)
		if m.logMux.Unread(v.ID) {
			label += " " + styleUnreadDot.Render("●")
		}
		if v.ID == active {
			parts = append(parts, styleTabActive.Render(label))
		} else {
			parts = append(parts, styleTabInactive.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) terminalContent() string {
	rows := m.height - chromeRows
	if rows < 1 {
		rows = 1
	}

	active := m.eng.Terminals().Active()
	if active == "" {
		return strings.Repeat("\n", rows-1)
	}

	if diag, ok := m.errors[active]; ok {
		if v, found := m.eng.Get(active); found && v.State == session.Errored {
			body := styleErrorMark.Render("session failed: "+diag) +
				"\n\n" + styleStatusBar.Render("ctrl+w to dismiss")
			return padRows(body, rows)
		}
	}

	return padRows(tailLines(sanitize(m.content[active]), rows), rows)
}

func (m Model) logContent() string {
	rows := m.height - chromeRows
	if rows < 1 {
		rows = 1
	}

	active := m.logMux.Active()
	if active == "" {
		return strings.Repeat("\n", rows-1)
	}

	records := m.tailer.Records(active)
	if len(records) > rows {
		records = records[len(records)-rows:]
	}
	lines := make([]string, 0, len(records))
	for _, r := range records {
		ts := time.UnixMilli(r.TimestampMillis).Format("15:04:05")
		lines = append(lines, styleStatusBar.Render(ts)+" "+strings.TrimRight(r.Message, "\n"))
	}
	return padRows(strings.Join(lines, "\n"), rows)
}

func (m Model) statusBar() string {
	var left string
	if m.surface == surfaceLogs {
		if v, ok := m.tailer.Get(m.logMux.Active()); ok {
			left = fmt.Sprintf("logs · %s · %s", v.Group, v.State)
		} else {
			left = "logs"
		}
	} else {
		if v, ok := m.eng.Get(m.eng.Terminals().Active()); ok {
			left = fmt.Sprintf("%s · %s", string(v.Kind.Type), renderState(v.State))
		} else {
			left = "terminal"
		}
	}
	hint := "ctrl+t new  ctrl+n/p tabs  ctrl+l logs  ctrl+h help  ctrl+q quit"

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(hint)
	if gap < 1 {
		gap = 1
	}
	return styleStatusBar.Render(left + strings.Repeat(" ", gap) + hint)
}

// sanitize strips escape sequences and control bytes so raw PTY output
// can be painted inside the frame. Full escape interpretation belongs
// to a terminal emulator, which this surface deliberately is not.
func sanitize(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw))

	const (
		plain    = iota
		escStart // saw ESC, introducer byte next
		inCSI    // ends on a final byte in 0x40..0x7e
		inOSC    // ends on BEL or ESC \
	)
	state := plain

	for _, c := range raw {
		switch state {
		case escStart:
			switch c {
			case '[':
				state = inCSI
			case ']':
				state = inOSC
			default:
				// Two-byte sequence (charset select, keypad modes).
				state = plain
			}
		case inCSI:
			if c >= 0x40 && c <= 0x7e {
				state = plain
			}
		case inOSC:
			if c == 0x07 {
				state = plain
			} else if c == 0x1b {
				state = escStart
			}
		default:
			switch {
			case c == 0x1b:
				state = escStart
			case c == '\n' || c == '\t':
				b.WriteByte(c)
			case c == '\r':
				// dropped; newlines carry the line breaks
			case c >= 0x20:
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}

func tailLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func padRows(s string, rows int) string {
	have := strings.Count(s, "\n") + 1
	if have < rows {
		s += strings.Repeat("\n", rows-have)
	}
	return s
}
