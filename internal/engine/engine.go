// Package engine wires the session registry, transports, output
// dispatcher, and the terminal surface multiplexer into the interface
// UI surfaces consume: create, write, resize, close, list, subscribe.
package engine

import (
	"errors"
	"fmt"

	"github.com/abdul674/aws-connector/internal/dispatch"
	"github.com/abdul674/aws-connector/internal/session"
	"github.com/abdul674/aws-connector/internal/transport"
	"github.com/abdul674/aws-connector/internal/view"
)

// ErrUnknownSession is returned by Write and Resize when no session
// holds the given identity.
var ErrUnknownSession = errors.New("unknown session")

// Starter is what the engine needs from a transport: the session-owned
// duplex channel plus one-shot launch.
type Starter interface {
	session.Transport
	Start(transport.Callbacks) error
}

// Factory builds an unstarted transport for a session kind. Injected so
// tests can run the full engine against fake transports.
type Factory func(kind session.Kind) Starter

// PTYFactory is the production factory: one PTY-attached child process
// per session.
func PTYFactory(opts transport.Options) Factory {
	return func(kind session.Kind) Starter {
		return transport.New(kind, opts)
	}
}

// Engine owns one registry instance and everything attached to it. It
// is not a singleton; tests instantiate as many as they like.
type Engine struct {
	registry   *session.Registry
	dispatcher *dispatch.Dispatcher
	terminals  *view.Mux
	factory    Factory
}

// New assembles an engine. bufferChunks bounds per-session scrollback
// retained by the dispatcher; <= 0 selects the default.
func New(factory Factory, bufferChunks int) *Engine {
	reg := session.NewRegistry()
	disp := dispatch.New(bufferChunks)
	terminals := view.New(reg)

	// Removal, dispatcher detach, and active-view reassignment happen in
	// one registry critical section: unsubscription precedes the removal
	// acknowledgement and the active identity never dangles.
	reg.SetRemoveHook(func(removed string, remaining []string) {
		disp.Detach(removed)
		terminals.OnSessionRemoved(removed, remaining)
	})
	disp.SetOutputNote(terminals.NoteOutput)

	return &Engine{
		registry:   reg,
		dispatcher: disp,
		terminals:  terminals,
		factory:    factory,
	}
}

// CreateSession allocates an identity, launches a transport for kind,
// and makes the new session active on the terminal surface. On launch
// failure the returned error is a *transport.LaunchError and the
// session stays listed in Errored until explicitly closed, so the UI
// can show the failed tab instead of silently losing it.
func (e *Engine) CreateSession(kind session.Kind, title string) (session.View, error) {
	tr := e.factory(kind)
	v := e.registry.Create(kind, title, tr)
	e.dispatcher.Attach(v.ID)

	id := v.ID
	err := tr.Start(transport.Callbacks{
		Output: func(p []byte) {
			e.dispatcher.Deliver(id, p)
		},
		Exit: func(clean bool, diagnostic string) {
			e.handleExit(id, clean, diagnostic)
		},
	})
	if err != nil {
		e.registry.SetErrored(id, err.Error())
		e.terminals.SwitchTo(id)
		v, _ = e.registry.Get(id)
		return v, err
	}

	e.registry.SetRunning(id)
	e.terminals.SwitchTo(id)
	v, _ = e.registry.Get(id)
	return v, nil
}

// Write forwards raw input bytes to a session's transport. Failures are
// local to this call and never tear the session down.
func (e *Engine) Write(id string, p []byte) error {
	tr, ok := e.registry.Transport(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return tr.Write(p)
}

// Resize adjusts a session's terminal geometry. Callers forward
// geometry only for the session active on their surface.
func (e *Engine) Resize(id string, cols, rows uint16) error {
	tr, ok := e.registry.Transport(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return tr.Resize(cols, rows)
}

// CloseSession tears a session down. Idempotent, including for
// identities that never existed.
func (e *Engine) CloseSession(id string) {
	e.registry.Close(id)
}

// Get returns one session snapshot.
func (e *Engine) Get(id string) (session.View, bool) {
	return e.registry.Get(id)
}

// ListSessions returns snapshots in creation order.
func (e *Engine) ListSessions() []session.View {
	return e.registry.List()
}

// Terminals is the active-view multiplexer for the terminal surface.
func (e *Engine) Terminals() *view.Mux {
	return e.terminals
}

// Events subscribes to session lifecycle events. The cancel function
// must be called exactly once.
func (e *Engine) Events() (<-chan session.Event, func()) {
	return e.registry.Subscribe()
}

// OnOutput subscribes to a session's output stream.
func (e *Engine) OnOutput(id string, fn func([]byte)) (cancel func()) {
	return e.dispatcher.OnOutput(id, fn)
}

// OnClosed subscribes to a session's clean-exit notification.
func (e *Engine) OnClosed(id string, fn func()) (cancel func()) {
	return e.dispatcher.OnClosed(id, fn)
}

// OnError subscribes to a session's failure notification.
func (e *Engine) OnError(id string, fn func(string)) (cancel func()) {
	return e.dispatcher.OnError(id, fn)
}

// Buffered returns a session's retained scrollback, oldest first.
func (e *Engine) Buffered(id string) [][]byte {
	return e.dispatcher.Buffered(id)
}

// handleExit reacts to the transport's single exit notification: notify
// subscribers, then let the registry resolve the terminal state. A
// clean exit removes the session; a failure leaves it listed as Errored.
func (e *Engine) handleExit(id string, clean bool, diagnostic string) {
	if clean {
		e.dispatcher.NotifyClosed(id)
	} else {
		e.dispatcher.NotifyError(id, diagnostic)
	}
	e.registry.HandleExit(id, clean, diagnostic)
}
