package session

import "time"

// Transport is the duplex byte channel behind a session. The registry
// owns exactly one per identity and destroys it with the session. Write
// and Resize are non-fatal: a failure never tears the session down.
type Transport interface {
	Write(p []byte) error
	Resize(cols, rows uint16) error
	// RequestClose signals the process to terminate without blocking.
	// Completion is observed through the transport's exit notification.
	RequestClose()
}

// View is the read-only projection of a session handed to UI surfaces.
// It never exposes the transport handle.
type View struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Kind      Kind      `json:"kind"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
}

// record is the registry-internal session: the view fields plus the
// owned transport.
type record struct {
	view      View
	transport Transport
}
