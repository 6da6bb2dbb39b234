// Package tui is the tabbed terminal surface over the session engine.
// Exactly one session renders at a time per surface; inactive sessions
// keep streaming into the dispatcher's buffers and show an unread
// marker on their tab.
package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abdul674/aws-connector/internal/aws"
	"github.com/abdul674/aws-connector/internal/engine"
	"github.com/abdul674/aws-connector/internal/logtail"
	"github.com/abdul674/aws-connector/internal/session"
	"github.com/abdul674/aws-connector/internal/view"
)

type surface int

const (
	surfaceTerminal surface = iota
	surfaceLogs
)

type overlay int

const (
	overlayNone overlay = iota
	overlayPicker
	overlayHelp
)

// scrollbackBytes caps the per-session render cache. The dispatcher
// holds the authoritative bounded buffer; this cache only serves
// painting.
const scrollbackBytes = 256 * 1024

// Model is the root Bubble Tea model.
type Model struct {
	eng    *engine.Engine
	tailer *logtail.Tailer
	logMux *view.Mux
	disc   aws.Discovery

	keys   KeyMap
	width  int
	height int

	surface surface
	overlay overlay
	picker  *picker
	help    string

	content map[string][]byte
	errors  map[string]string

	msgCh         chan tea.Msg
	cancelEvents  func()
	outputCancels map[string]func()
	logCancels    map[string][]func()
}

// New builds the root model around an engine, a log tailer and the
// discovery backend feeding the new-session picker.
func New(eng *engine.Engine, tailer *logtail.Tailer, disc aws.Discovery) Model {
	logMux := view.New(tailer)
	tailer.SetRemoveHook(logMux.OnSessionRemoved)
	tailer.SetRecordNote(logMux.NoteOutput)

	m := Model{
		eng:           eng,
		tailer:        tailer,
		logMux:        logMux,
		disc:          disc,
		keys:          DefaultKeyMap(),
		content:       make(map[string][]byte),
		errors:        make(map[string]string),
		msgCh:         make(chan tea.Msg, 512),
		outputCancels: make(map[string]func()),
		logCancels:    make(map[string][]func()),
	}

	events, cancel := eng.Events()
	m.cancelEvents = cancel
	go func() {
		for ev := range events {
			m.push(sessionEventMsg{ev: ev})
		}
	}()

	return m
}

// Init starts the message pump.
func (m Model) Init() tea.Cmd {
	return m.waitMsg()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help = ""
		m.forwardGeometry()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sessionEventMsg:
		m.applyEvent(msg.ev)
		return m, m.waitMsg()

	case outputMsg:
		buf := append(m.content[msg.id], msg.data...)
		if len(buf) > scrollbackBytes {
			buf = buf[len(buf)-scrollbackBytes:]
		}
		m.content[msg.id] = buf
		return m, m.waitMsg()

	case logRecordsMsg:
		// Repaint; record state lives in the tailer.
		return m, m.waitMsg()

	case logStoppedMsg:
		if cancels, ok := m.logCancels[msg.id]; ok {
			for _, cancel := range cancels {
				cancel()
			}
			delete(m.logCancels, msg.id)
		}
		return m, m.waitMsg()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.overlay == overlayHelp {
		m.overlay = overlayNone
		return m, nil
	}
	if m.overlay == overlayPicker {
		if key.Matches(msg, m.keys.Escape) {
			m.overlay = overlayNone
			m.picker = nil
			return m, nil
		}
		cmd := m.picker.Update(msg)
		if m.picker.done {
			result := m.picker.result
			m.overlay = overlayNone
			m.picker = nil
			m.openSession(result)
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.shutdown()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		if m.help == "" {
			m.help = renderHelp(m.width)
		}
		m.overlay = overlayHelp
		return m, nil

	case key.Matches(msg, m.keys.NewTab):
		m.overlay = overlayPicker
		m.picker = newPicker(m.disc)
		return m, nil

	case key.Matches(msg, m.keys.CloseTab):
		if m.surface == surfaceLogs {
			m.tailer.Stop(m.logMux.Active())
		} else {
			m.eng.CloseSession(m.eng.Terminals().Active())
		}
		return m, nil

	case key.Matches(msg, m.keys.NextTab):
		m.navigate(1)
		return m, nil

	case key.Matches(msg, m.keys.PrevTab):
		m.navigate(-1)
		return m, nil

	case key.Matches(msg, m.keys.Logs):
		if m.surface == surfaceTerminal {
			m.surface = surfaceLogs
		} else {
			m.surface = surfaceTerminal
		}
		return m, nil
	}

	if m.surface == surfaceTerminal {
		if active := m.eng.Terminals().Active(); active != "" {
			if b := keyBytes(msg); b != nil {
				// Local write failures are non-fatal; the session is
				// simply not writable right now.
				_ = m.eng.Write(active, b)
			}
		}
	}
	return m, nil
}

func (m Model) navigate(delta int) {
	if m.surface == surfaceLogs {
		m.logMux.Navigate(delta)
		return
	}
	m.eng.Terminals().Navigate(delta)
	m.forwardGeometry()
}

// forwardGeometry resizes only the session active on the terminal
// surface; inactive sessions keep their last geometry.
func (m Model) forwardGeometry() {
	active := m.eng.Terminals().Active()
	if active == "" || m.width == 0 {
		return
	}
	rows := m.height - chromeRows
	if rows < 1 {
		rows = 1
	}
	_ = m.eng.Resize(active, uint16(m.width), uint16(rows))
}

// openSession acts on a completed picker: a terminal session or a log
// tail.
func (m *Model) openSession(result pickerResult) {
	if result.logGroup != "" {
		id := m.tailer.Start(result.logGroup, result.filter)
		cancelRecords := m.tailer.OnRecords(id, func([]logtail.Record) {
			m.push(logRecordsMsg{id: id})
		})
		cancelStopped := m.tailer.OnStopped(id, func() {
			m.push(logStoppedMsg{id: id})
		})
		m.logCancels[id] = []func(){cancelRecords, cancelStopped}
		m.logMux.SwitchTo(id)
		m.surface = surfaceLogs
		return
	}

	v, err := m.eng.CreateSession(result.kind, result.title)
	if err != nil {
		// The errored session stays listed as a failed tab.
		m.errors[v.ID] = err.Error()
	}
	id := v.ID
	m.outputCancels[id] = m.eng.OnOutput(id, func(p []byte) {
		m.push(outputMsg{id: id, data: p})
	})
	m.surface = surfaceTerminal
	m.forwardGeometry()
}

// applyEvent folds a registry lifecycle event into view state.
func (m Model) applyEvent(ev session.Event) {
	id := ev.Session.ID
	switch ev.Type {
	case session.EventState:
		if ev.Session.State == session.Errored && ev.Diagnostic != "" {
			m.errors[id] = ev.Diagnostic
		}
	case session.EventRemoved:
		if cancel, ok := m.outputCancels[id]; ok {
			cancel()
			delete(m.outputCancels, id)
		}
		delete(m.content, id)
		delete(m.errors, id)
	}
}

// shutdown closes every live session and releases subscriptions before
// quitting.
func (m Model) shutdown() {
	for _, v := range m.eng.ListSessions() {
		m.eng.CloseSession(v.ID)
	}
	for _, v := range m.tailer.List() {
		m.tailer.Stop(v.ID)
	}
	for _, cancel := range m.outputCancels {
		cancel()
	}
	for _, cancels := range m.logCancels {
		for _, cancel := range cancels {
			cancel()
		}
	}
	if m.cancelEvents != nil {
		m.cancelEvents()
	}
}
