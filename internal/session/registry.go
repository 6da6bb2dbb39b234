package session

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RemoveHook runs whenever a session leaves the registry, in the same
// critical section as the removal itself. remaining holds the surviving
// identities in creation order. The hook must not call back into the
// registry.
type RemoveHook func(removed string, remaining []string)

// Registry is the sole authority for session existence and identity
// allocation. All mutation happens under one lock so list ordering and
// the active-identity invariant are never observed in a torn state.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[string]*record
	order      []string // identities in creation order
	removeHook RemoveHook

	subMu       sync.Mutex
	subs        map[int]chan Event
	nextSub     int
	dropped     int64
	lastDropLog time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*record),
		subs:     make(map[int]chan Event),
	}
}

// SetRemoveHook installs the removal hook. Must be called during wiring,
// before any session exists.
func (r *Registry) SetRemoveHook(h RemoveHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeHook = h
}

// Create allocates a fresh identity and stores a session in Starting
// that owns tr. An empty title falls back to the kind's default.
func (r *Registry) Create(kind Kind, title string, tr Transport) View {
	if title == "" {
		title = kind.DefaultTitle()
	}
	view := View{
		ID:        uuid.NewString(),
		Title:     title,
		Kind:      kind,
		State:     Starting,
		CreatedAt: time.Now(),
	}

	r.mu.Lock()
	r.sessions[view.ID] = &record{view: view, transport: tr}
	r.order = append(r.order, view.ID)
	r.mu.Unlock()

	r.emit(Event{Type: EventCreated, Session: view})
	return view
}

// SetRunning moves a session from Starting to Running after a
// successful launch.
func (r *Registry) SetRunning(id string) {
	r.transition(id, Running, "")
}

// SetErrored moves a session into Errored with a diagnostic. The
// session stays listed (visible to the UI as a failed tab) until it is
// explicitly closed.
func (r *Registry) SetErrored(id, diagnostic string) {
	r.transition(id, Errored, diagnostic)
}

// Close tears a session down. Unknown identities are a no-op so UI
// close actions are idempotent. A live session moves to Closing and has
// its transport signalled; removal follows the exit notification. A
// session already in a terminal state is removed immediately (its
// process is gone, no notification is coming).
func (r *Registry) Close(id string) {
	r.mu.Lock()
	rec, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return
	}

	switch rec.view.State {
	case Closing:
		// Already being torn down; the exit notification will finish it.
		r.mu.Unlock()
		return
	case Closed, Errored:
		ev := r.removeLocked(id)
		r.mu.Unlock()
		r.emit(ev)
		return
	}

	rec.view.State = Closing
	tr := rec.transport
	view := rec.view
	r.mu.Unlock()

	r.emit(Event{Type: EventState, Session: view})
	if tr != nil {
		tr.RequestClose()
	}
}

// HandleExit records the transport's exit notification. A clean exit
// resolves to Closed and removes the session; a failure resolves to
// Errored and keeps it listed until explicitly closed. A session the
// user is already closing resolves to Closed either way.
func (r *Registry) HandleExit(id string, clean bool, diagnostic string) {
	r.mu.Lock()
	rec, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return
	}

	state := rec.view.State
	switch {
	case state == Closing, clean && state.canMoveTo(Closed):
		rec.view.State = Closed
		stateEv := Event{Type: EventState, Session: rec.view}
		removeEv := r.removeLocked(id)
		r.mu.Unlock()
		r.emit(stateEv)
		r.emit(removeEv)
	case state.canMoveTo(Errored):
		rec.view.State = Errored
		view := rec.view
		r.mu.Unlock()
		r.emit(Event{Type: EventState, Session: view, Diagnostic: diagnostic})
	default:
		// Stale notification for a session already terminal.
		r.mu.Unlock()
	}
}

// Get returns a read-only snapshot of one session.
func (r *Registry) Get(id string) (View, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.sessions[id]
	if !ok {
		return View{}, false
	}
	return rec.view, true
}

// List returns session snapshots in creation order. Creation order
// governs tab order and keyboard index navigation.
func (r *Registry) List() []View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]View, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id].view)
	}
	return out
}

// OrderedIDs returns the identities in creation order.
func (r *Registry) OrderedIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Transport returns the owned transport for direct write/resize calls.
func (r *Registry) Transport(id string) (Transport, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.sessions[id]
	if !ok || rec.transport == nil {
		return nil, false
	}
	return rec.transport, true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Subscribe registers a lifecycle event observer. The returned cancel
// function must be called exactly once when the observer stops
// listening; after it returns no further events are delivered.
func (r *Registry) Subscribe() (<-chan Event, func()) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	id := r.nextSub
	r.nextSub++
	ch := make(chan Event, 64)
	r.subs[id] = ch
	return ch, func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()
		if _, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(ch)
		}
	}
}

// removeLocked deletes a session and fires the remove hook while the
// registry lock is held, so removal and active-view reassignment are
// one atomic step. Returns the removal event for the caller to emit.
func (r *Registry) removeLocked(id string) Event {
	rec := r.sessions[id]
	delete(r.sessions, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.removeHook != nil {
		remaining := make([]string, len(r.order))
		copy(remaining, r.order)
		r.removeHook(id, remaining)
	}
	return Event{Type: EventRemoved, Session: rec.view}
}

// transition applies a guarded state change and emits on success.
// Illegal transitions are dropped as stale signals.
func (r *Registry) transition(id string, next State, diagnostic string) {
	r.mu.Lock()
	rec, ok := r.sessions[id]
	if !ok || !rec.view.State.canMoveTo(next) {
		r.mu.Unlock()
		return
	}
	rec.view.State = next
	view := rec.view
	r.mu.Unlock()
	r.emit(Event{Type: EventState, Session: view, Diagnostic: diagnostic})
}

// emit delivers an event to all subscribers without blocking. Slow
// subscribers lose events; drops are counted and logged at most once
// per 10 seconds to avoid log spam under sustained backpressure.
func (r *Registry) emit(ev Event) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- ev:
		default:
			r.dropped++
			now := time.Now()
			if r.lastDropLog.IsZero() || now.Sub(r.lastDropLog) >= 10*time.Second {
				log.Printf("[session] lifecycle events dropped: %d (subscriber not draining)", r.dropped)
				r.dropped = 0
				r.lastDropLog = now
			}
		}
	}
}
