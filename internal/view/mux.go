// Package view enforces the "exactly one rendered session per logical
// surface" constraint. The terminal surface and the log surface are
// independent Mux instances; inactive sessions keep streaming into
// their buffers and are flagged unread here, never blocked or dropped
// for being off screen.
package view

import "sync"

// Lister supplies session identities in creation order. Creation order
// drives tab navigation and is load-bearing for keyboard shortcuts.
type Lister interface {
	OrderedIDs() []string
}

// Mux tracks which single session identity is active on one surface,
// plus per-session unread flags.
type Mux struct {
	mu     sync.Mutex
	lister Lister
	active string
	unread map[string]bool
}

func New(lister Lister) *Mux {
	return &Mux{
		lister: lister,
		unread: make(map[string]bool),
	}
}

// SwitchTo makes id the active session and clears its unread flag. Pure
// state update, no I/O.
func (m *Mux) SwitchTo(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = id
	delete(m.unread, id)
}

// Active returns the active identity, or "" when no session is active.
func (m *Mux) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// NoteOutput records output arrival for a session, flagging it unread
// when it is not the one being rendered. Idempotent.
func (m *Mux) NoteOutput(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id != m.active {
		m.unread[id] = true
	}
}

// Unread reports whether a session has output the user has not seen.
func (m *Mux) Unread(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unread[id]
}

// Navigate moves the active identity forward or backward through the
// registry's creation order, wrapping at both ends. A no-op when no
// sessions exist.
func (m *Mux) Navigate(delta int) {
	// Fetch ordering before taking the mux lock; the registry's remove
	// hook runs under its own lock and calls into this mux, so the
	// reverse order here would invert lock acquisition.
	ids := m.lister.OrderedIDs()

	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(ids)
	if n == 0 {
		return
	}
	idx := 0
	for i, id := range ids {
		if id == m.active {
			idx = (i + delta%n + n) % n
			break
		}
	}
	m.active = ids[idx]
	delete(m.unread, m.active)
}

// OnSessionRemoved reacts to a registry removal. If the removed session
// was active, the first remaining session in creation order becomes
// active, or none if the registry is now empty. The registry invokes
// this inside its removal critical section so the active identity never
// dangles.
func (m *Mux) OnSessionRemoved(removed string, remaining []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.unread, removed)
	if m.active != removed {
		return
	}
	if len(remaining) == 0 {
		m.active = ""
		return
	}
	m.active = remaining[0]
	delete(m.unread, m.active)
}
