package session

// EventType classifies session lifecycle events.
type EventType int

const (
	EventCreated EventType = iota // session entered the registry
	EventState                    // state transition
	EventRemoved                  // session left the registry
)

// Event carries a session view snapshot to observers. Diagnostic is set
// on transitions into Errored.
type Event struct {
	Type       EventType
	Session    View // snapshot (safe to retain)
	Diagnostic string
}
