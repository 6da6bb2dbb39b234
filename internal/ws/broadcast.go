package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/abdul674/aws-connector/internal/engine"
	"github.com/abdul674/aws-connector/internal/session"
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, 64),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Broadcaster streams the session list to /ws clients: a full snapshot
// on connect, then per-event deltas.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*client]bool
	eng     *engine.Engine
}

func NewBroadcaster(eng *engine.Engine) *Broadcaster {
	return &Broadcaster{
		clients: make(map[*client]bool),
		eng:     eng,
	}
}

// Run consumes lifecycle events until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) {
	events, cancel := b.eng.Events()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			b.broadcast(deltaFor(ev))
		}
	}
}

func deltaFor(ev session.Event) WSMessage {
	payload := DeltaPayload{}
	if ev.Type == session.EventRemoved {
		payload.Removed = []string{ev.Session.ID}
	} else {
		payload.Updates = []session.View{ev.Session}
	}
	return WSMessage{Type: MsgDelta, Payload: payload}
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) *client {
	c := newClient(conn)

	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	snapshot := WSMessage{
		Type: MsgSnapshot,
		Payload: SnapshotPayload{
			Sessions: b.eng.ListSessions(),
		},
	}
	data, _ := json.Marshal(snapshot)

	select {
	case c.send <- data:
	default:
		// Client too slow, drop the snapshot
	}

	return c
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

func (b *Broadcaster) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return
	}

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			// Client can't keep up, disconnect it
			log.Printf("ws client too slow, disconnecting")
			b.RemoveClient(c)
		}
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
