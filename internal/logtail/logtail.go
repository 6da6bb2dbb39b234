// Package logtail manages log tail sessions: polling followers of a
// remote log group that feed a per-session bounded record buffer. The
// poller behind each session (CloudWatch in production) is an injected
// collaborator; this package owns only the session lifecycle and the
// subscribe/unsubscribe contract, which mirrors the terminal
// dispatcher's.
package logtail

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one log event.
type Record struct {
	TimestampMillis int64  `json:"timestamp"`
	Message         string `json:"message"`
}

// State of a tail session.
type State int

const (
	Running State = iota
	Stopped
	Errored
)

var stateNames = map[State]string{
	Running: "running",
	Stopped: "stopped",
	Errored: "errored",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// View is the read-only projection of a tail session.
type View struct {
	ID        string    `json:"id"`
	Group     string    `json:"group"`
	Filter    string    `json:"filter,omitempty"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
}

// Poller fetches log records newer than sinceMillis and returns them
// with the new high-water timestamp. Poll errors do not stop the tail;
// they are surfaced to error subscribers and polling continues, since
// remote log APIs fail transiently.
type Poller interface {
	Poll(ctx context.Context, group, filter string, sinceMillis int64) ([]Record, int64, error)
}

// RemoveHook runs inside the tailer's removal critical section, like
// the session registry's remove hook.
type RemoveHook func(removed string, remaining []string)

// Options tune the poll loop and retention.
type Options struct {
	PollInterval time.Duration
	Lookback     time.Duration // how far back the first poll reaches
	Retention    int           // most-recent records kept per session
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.Lookback <= 0 {
		o.Lookback = 30 * time.Second
	}
	if o.Retention <= 0 {
		o.Retention = 5000
	}
	return o
}

// Tailer is the registry of tail sessions.
type Tailer struct {
	mu         sync.Mutex
	sessions   map[string]*tailSession
	order      []string
	poller     Poller
	opts       Options
	removeHook RemoveHook
	recordNote func(id string)
}

type tailSession struct {
	mu          sync.Mutex
	view        View
	records     []Record
	start       int
	count       int
	recordSubs  map[int]func([]Record)
	errorSubs   map[int]func(string)
	stoppedSubs map[int]func()
	nextToken   int
	cancel      context.CancelFunc
}

func New(poller Poller, opts Options) *Tailer {
	return &Tailer{
		sessions: make(map[string]*tailSession),
		poller:   poller,
		opts:     opts.withDefaults(),
	}
}

// SetRemoveHook installs the removal hook. Must be called during wiring.
func (t *Tailer) SetRemoveHook(h RemoveHook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeHook = h
}

// SetRecordNote installs the hook fired after each record delivery,
// used for unread flagging on the log surface.
func (t *Tailer) SetRecordNote(fn func(id string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recordNote = fn
}

// Start creates a tail session for a log group and begins polling.
func (t *Tailer) Start(group, filter string) string {
	ctx, cancel := context.WithCancel(context.Background())
	s := &tailSession{
		view: View{
			ID:        uuid.NewString(),
			Group:     group,
			Filter:    filter,
			State:     Running,
			CreatedAt: time.Now(),
		},
		records:     make([]Record, t.opts.Retention),
		recordSubs:  make(map[int]func([]Record)),
		errorSubs:   make(map[int]func(string)),
		stoppedSubs: make(map[int]func()),
		cancel:      cancel,
	}

	t.mu.Lock()
	t.sessions[s.view.ID] = s
	t.order = append(t.order, s.view.ID)
	t.mu.Unlock()

	go t.run(ctx, s)
	return s.view.ID
}

// Stop signals a tail session to stop. Idempotent; unknown identities
// are a no-op. The session leaves the registry once the poll loop has
// observed the stop and notified subscribers.
func (t *Tailer) Stop(id string) {
	t.mu.Lock()
	s, ok := t.sessions[id]
	t.mu.Unlock()
	if !ok {
		return
	}
	s.cancel()
}

// Get returns one tail session snapshot.
func (t *Tailer) Get(id string) (View, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sessions[id]
	if !ok {
		return View{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view, true
}

// List returns snapshots in creation order.
func (t *Tailer) List() []View {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]View, 0, len(t.order))
	for _, id := range t.order {
		s := t.sessions[id]
		s.mu.Lock()
		out = append(out, s.view)
		s.mu.Unlock()
	}
	return out
}

// OrderedIDs returns tail session identities in creation order,
// satisfying the view multiplexer's Lister.
func (t *Tailer) OrderedIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Records returns the retained records, oldest first, bounded to the
// configured retention.
func (t *Tailer) Records(id string) []Record {
	t.mu.Lock()
	s, ok := t.sessions[id]
	t.mu.Unlock()
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, s.count)
	for i := 0; i < s.count; i++ {
		out = append(out, s.records[(s.start+i)%len(s.records)])
	}
	return out
}

// OnRecords subscribes to new record batches. The cancel function must
// be called exactly once when the caller stops observing.
func (t *Tailer) OnRecords(id string, fn func([]Record)) (cancel func()) {
	return t.subscribe(id, func(s *tailSession, token int) {
		s.recordSubs[token] = fn
	}, func(s *tailSession, token int) {
		delete(s.recordSubs, token)
	})
}

// OnError subscribes to poll failures. Polling continues afterwards.
func (t *Tailer) OnError(id string, fn func(string)) (cancel func()) {
	return t.subscribe(id, func(s *tailSession, token int) {
		s.errorSubs[token] = fn
	}, func(s *tailSession, token int) {
		delete(s.errorSubs, token)
	})
}

// OnStopped subscribes to the stop notification, fired exactly once.
func (t *Tailer) OnStopped(id string, fn func()) (cancel func()) {
	return t.subscribe(id, func(s *tailSession, token int) {
		s.stoppedSubs[token] = fn
	}, func(s *tailSession, token int) {
		delete(s.stoppedSubs, token)
	})
}

func (t *Tailer) subscribe(id string, add func(*tailSession, int), remove func(*tailSession, int)) func() {
	t.mu.Lock()
	s, ok := t.sessions[id]
	t.mu.Unlock()
	if !ok {
		return func() {}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	token := s.nextToken
	s.nextToken++
	add(s, token)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		remove(s, token)
	}
}

// run is the poll loop: initial lookback window, then fixed-interval
// polls until stopped.
func (t *Tailer) run(ctx context.Context, s *tailSession) {
	since := time.Now().Add(-t.opts.Lookback).UnixMilli()
	ticker := time.NewTicker(t.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.finish(s)
			return
		case <-ticker.C:
		}

		records, newSince, err := t.poller.Poll(ctx, s.view.Group, s.view.Filter, since)
		if err != nil {
			if ctx.Err() != nil {
				t.finish(s)
				return
			}
			log.Printf("[logtail] poll error for %s: %v", s.view.Group, err)
			s.mu.Lock()
			for _, fn := range s.errorSubs {
				fn(err.Error())
			}
			s.mu.Unlock()
			continue
		}
		if len(records) == 0 {
			continue
		}
		since = newSince

		s.mu.Lock()
		for _, r := range records {
			if s.count == len(s.records) {
				s.start = (s.start + 1) % len(s.records)
				s.count--
			}
			s.records[(s.start+s.count)%len(s.records)] = r
			s.count++
		}
		for _, fn := range s.recordSubs {
			fn(records)
		}
		s.mu.Unlock()

		t.mu.Lock()
		note := t.recordNote
		t.mu.Unlock()
		if note != nil {
			note(s.view.ID)
		}
	}
}

// finish marks the session stopped, notifies subscribers, and removes
// it from the registry in the same critical section as the remove hook.
func (t *Tailer) finish(s *tailSession) {
	s.mu.Lock()
	s.view.State = Stopped
	stopped := make([]func(), 0, len(s.stoppedSubs))
	for _, fn := range s.stoppedSubs {
		stopped = append(stopped, fn)
	}
	s.mu.Unlock()

	for _, fn := range stopped {
		fn()
	}

	t.mu.Lock()
	delete(t.sessions, s.view.ID)
	for i, id := range t.order {
		if id == s.view.ID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	if t.removeHook != nil {
		remaining := make([]string, len(t.order))
		copy(remaining, t.order)
		t.removeHook(s.view.ID, remaining)
	}
	t.mu.Unlock()
}
