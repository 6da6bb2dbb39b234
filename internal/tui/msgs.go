package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abdul674/aws-connector/internal/session"
)

// sessionEventMsg delivers a registry lifecycle event.
type sessionEventMsg struct {
	ev session.Event
}

// outputMsg delivers one chunk of session output.
type outputMsg struct {
	id   string
	data []byte
}

// logRecordsMsg signals that a tail session received new records.
type logRecordsMsg struct {
	id string
}

// logStoppedMsg signals that a tail session stopped.
type logStoppedMsg struct {
	id string
}

// push hands a message from a subscription callback to the Bubble Tea
// loop without ever blocking the producing goroutine. A full queue
// drops the message; output buffering lives in the dispatcher, so a
// drop here only delays a repaint.
func (m *Model) push(msg tea.Msg) {
	select {
	case m.msgCh <- msg:
	default:
	}
}

// waitMsg re-arms the channel read after every delivered message,
// mirroring the read-loop command pattern used for streaming clients.
func (m *Model) waitMsg() tea.Cmd {
	return func() tea.Msg {
		return <-m.msgCh
	}
}
