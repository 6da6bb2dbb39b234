package ws

import (
	"github.com/abdul674/aws-connector/internal/session"
)

type MessageType string

const (
	// Session-list stream (/ws).
	MsgSnapshot MessageType = "snapshot"
	MsgDelta    MessageType = "delta"

	// Attach stream (/ws/session/{id}).
	MsgOutput MessageType = "output"
	MsgClosed MessageType = "closed"
	MsgError  MessageType = "error"
	MsgInput  MessageType = "input"
	MsgResize MessageType = "resize"
	MsgClose  MessageType = "close"
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type SnapshotPayload struct {
	Sessions []session.View `json:"sessions"`
}

type DeltaPayload struct {
	Updates []session.View `json:"updates,omitempty"`
	Removed []string       `json:"removed,omitempty"`
}

// OutputPayload carries one chunk of session output. Data is base64 so
// arbitrary terminal bytes survive the JSON framing.
type OutputPayload struct {
	Data string `json:"data"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// AttachRequest is a client-to-server frame on an attach stream.
type AttachRequest struct {
	Type MessageType `json:"type"`
	Data string      `json:"data,omitempty"` // base64 input bytes
	Cols uint16      `json:"cols,omitempty"`
	Rows uint16      `json:"rows,omitempty"`
}

// CreateRequest is the body of POST /api/sessions.
type CreateRequest struct {
	Kind  session.Kind `json:"kind"`
	Title string       `json:"title,omitempty"`
}

// CreateResponse is the body returned for a created (or errored)
// session.
type CreateResponse struct {
	Session session.View `json:"session"`
	Error   string       `json:"error,omitempty"`
}
