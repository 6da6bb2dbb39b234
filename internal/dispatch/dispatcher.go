// Package dispatch routes transport output to UI consumers, keyed
// strictly by session identity. Each session gets its own bounded
// scrollback buffer and subscriber set; no two sessions share a buffer
// or a lock, so a slow consumer on one tab can never stall another.
package dispatch

import (
	"sync"
)

// DefaultBufferChunks bounds per-session scrollback retained for
// replay. Beyond the bound the oldest chunks for that session are
// dropped, favoring liveness over complete history.
const DefaultBufferChunks = 256

// Dispatcher fans each session's output out to its subscribers and
// retains a bounded replay buffer per session.
type Dispatcher struct {
	mu         sync.Mutex
	entries    map[string]*entry
	bufferCap  int
	outputNote func(id string) // fires after each delivered chunk
}

type entry struct {
	mu         sync.Mutex
	detached   bool
	buffer     [][]byte
	start      int // ring read position
	count      int
	outputSubs map[int]func([]byte)
	closedSubs map[int]func()
	errorSubs  map[int]func(string)
	nextToken  int
}

func New(bufferCap int) *Dispatcher {
	if bufferCap <= 0 {
		bufferCap = DefaultBufferChunks
	}
	return &Dispatcher{
		entries:   make(map[string]*entry),
		bufferCap: bufferCap,
	}
}

// SetOutputNote installs a hook invoked with the session identity after
// every delivered chunk. The active-view layer uses it to flag unread
// output on inactive sessions. Must be set during wiring.
func (d *Dispatcher) SetOutputNote(fn func(id string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outputNote = fn
}

// Attach creates the dispatch entry for a new session.
func (d *Dispatcher) Attach(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[id]; ok {
		return
	}
	d.entries[id] = &entry{
		buffer:     make([][]byte, d.bufferCap),
		outputSubs: make(map[int]func([]byte)),
		closedSubs: make(map[int]func()),
		errorSubs:  make(map[int]func(string)),
	}
}

// Detach drops the entry for a removed session. When Detach returns, no
// callback for that identity will fire again: late deliveries find no
// entry, and in-flight ones have finished because detachment takes the
// same per-entry lock delivery runs under.
func (d *Dispatcher) Detach(id string) {
	d.mu.Lock()
	e, ok := d.entries[id]
	if ok {
		delete(d.entries, id)
	}
	d.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.detached = true
	e.outputSubs = nil
	e.closedSubs = nil
	e.errorSubs = nil
	e.mu.Unlock()
}

// Deliver pushes one output chunk from a transport read loop. Chunks
// are delivered to subscribers in production order and appended to the
// session's replay buffer, dropping the oldest once the bound is hit.
func (d *Dispatcher) Deliver(id string, p []byte) {
	d.mu.Lock()
	e, ok := d.entries[id]
	note := d.outputNote
	d.mu.Unlock()
	if !ok {
		return
	}

	e.mu.Lock()
	if e.detached {
		e.mu.Unlock()
		return
	}
	if e.count == len(e.buffer) {
		e.start = (e.start + 1) % len(e.buffer)
		e.count--
	}
	e.buffer[(e.start+e.count)%len(e.buffer)] = p
	e.count++
	for _, fn := range e.outputSubs {
		fn(p)
	}
	// The note runs under the entry lock so Detach cannot slip between
	// the delivery and the note; once Detach returns, no late note can
	// mark a removed session unread.
	if note != nil {
		note(id)
	}
	e.mu.Unlock()
}

// NotifyClosed fires the on-closed subscribers for a session.
func (d *Dispatcher) NotifyClosed(id string) {
	e := d.lookup(id)
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, fn := range e.closedSubs {
		fn()
	}
}

// NotifyError fires the on-error subscribers with a diagnostic.
func (d *Dispatcher) NotifyError(id, message string) {
	e := d.lookup(id)
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, fn := range e.errorSubs {
		fn(message)
	}
}

// OnOutput subscribes to a session's output stream. The returned cancel
// must be invoked exactly once when the caller stops observing; after
// it returns the callback will not fire again.
func (d *Dispatcher) OnOutput(id string, fn func([]byte)) (cancel func()) {
	e := d.lookup(id)
	if e == nil {
		return func() {}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return func() {}
	}
	token := e.nextToken
	e.nextToken++
	e.outputSubs[token] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.outputSubs != nil {
			delete(e.outputSubs, token)
		}
	}
}

// OnClosed subscribes to the session's clean-termination notification.
func (d *Dispatcher) OnClosed(id string, fn func()) (cancel func()) {
	e := d.lookup(id)
	if e == nil {
		return func() {}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return func() {}
	}
	token := e.nextToken
	e.nextToken++
	e.closedSubs[token] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closedSubs != nil {
			delete(e.closedSubs, token)
		}
	}
}

// OnError subscribes to the session's failure notification.
func (d *Dispatcher) OnError(id string, fn func(string)) (cancel func()) {
	e := d.lookup(id)
	if e == nil {
		return func() {}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return func() {}
	}
	token := e.nextToken
	e.nextToken++
	e.errorSubs[token] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.errorSubs != nil {
			delete(e.errorSubs, token)
		}
	}
}

// Buffered returns a copy of the session's retained output, oldest
// first. Used to backfill a tab that was inactive while output arrived.
func (d *Dispatcher) Buffered(id string) [][]byte {
	e := d.lookup(id)
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]byte, 0, e.count)
	for i := 0; i < e.count; i++ {
		out = append(out, e.buffer[(e.start+i)%len(e.buffer)])
	}
	return out
}

func (d *Dispatcher) lookup(id string) *entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.entries[id]
}
