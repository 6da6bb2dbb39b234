package ws

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/abdul674/aws-connector/internal/engine"
)

// Server exposes the session engine to detached UIs: a session-list
// stream, per-session attach streams, and a small REST surface for
// create/list/close.
type Server struct {
	eng            *engine.Engine
	broadcaster    *Broadcaster
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	authToken      string
}

func NewServer(eng *engine.Engine, broadcaster *Broadcaster, allowedOrigins []string, authToken string) *Server {
	s := &Server{
		eng:            eng,
		broadcaster:    broadcaster,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		authToken:      authToken,
	}

	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleList)
	mux.HandleFunc("/ws/session/", s.handleAttach)
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/sessions/", s.handleSessionRoutes)
}

// handleList streams the session list: snapshot on connect, deltas
// afterwards.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	log.Printf("list client connected: %s", r.RemoteAddr)
	c := s.broadcaster.AddClient(conn)

	go func() {
		defer func() {
			s.broadcaster.RemoveClient(c)
			log.Printf("list client disconnected: %s", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// replayGate orders the frames of a late attach. Live output is
// subscribed before the scrollback replay starts, so nothing produced
// in between is lost; chunks arriving during the replay queue here and
// flush once the replay has drained. A chunk straddling the boundary
// may go out twice, which clients tolerate; a gap is the failure mode
// this avoids.
type replayGate struct {
	emit    func([]byte)
	mu      sync.Mutex
	open    bool
	pending [][]byte
}

func newReplayGate(emit func([]byte)) *replayGate {
	return &replayGate{emit: emit}
}

// Deliver emits a live chunk, or queues it while the gate is closed.
func (g *replayGate) Deliver(p []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		g.pending = append(g.pending, p)
		return
	}
	g.emit(p)
}

// Open flushes the queued chunks in arrival order and lets subsequent
// deliveries through directly.
func (g *replayGate) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range g.pending {
		g.emit(p)
	}
	g.pending = nil
	g.open = true
}

// handleAttach binds a client to one session: output frames out, input
// and resize frames in. Retained scrollback is replayed before live
// output so a late attach sees what it missed, up to the buffer bound.
func (s *Server) handleAttach(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/ws/session/")
	if _, ok := s.eng.Get(id); !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	c := newClient(conn)
	send := func(msg WSMessage) {
		data, err := json.Marshal(msg)
		if err != nil {
			return
		}
		select {
		case c.send <- data:
		default:
			// Slow attach client: drop the frame for this client only.
		}
	}

	gate := newReplayGate(func(p []byte) {
		send(WSMessage{Type: MsgOutput, Payload: OutputPayload{Data: base64.StdEncoding.EncodeToString(p)}})
	})

	cancelOutput := s.eng.OnOutput(id, gate.Deliver)
	cancelClosed := s.eng.OnClosed(id, func() {
		send(WSMessage{Type: MsgClosed})
	})
	cancelError := s.eng.OnError(id, func(message string) {
		send(WSMessage{Type: MsgError, Payload: ErrorPayload{Message: message}})
	})

	for _, chunk := range s.eng.Buffered(id) {
		send(WSMessage{Type: MsgOutput, Payload: OutputPayload{Data: base64.StdEncoding.EncodeToString(chunk)}})
	}
	gate.Open()

	log.Printf("attach client connected: %s -> %s", r.RemoteAddr, id)

	go func() {
		defer func() {
			cancelOutput()
			cancelClosed()
			cancelError()
			c.close()
			log.Printf("attach client disconnected: %s", r.RemoteAddr)
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req AttachRequest
			if err := json.Unmarshal(data, &req); err != nil {
				log.Printf("attach frame parse error: %v", err)
				continue
			}
			switch req.Type {
			case MsgInput:
				raw, err := base64.StdEncoding.DecodeString(req.Data)
				if err != nil {
					log.Printf("attach input decode error: %v", err)
					continue
				}
				if err := s.eng.Write(id, raw); err != nil {
					send(WSMessage{Type: MsgError, Payload: ErrorPayload{Message: err.Error()}})
				}
			case MsgResize:
				if req.Cols > 0 && req.Rows > 0 {
					if err := s.eng.Resize(id, req.Cols, req.Rows); err != nil {
						log.Printf("resize %s: %v", id, err)
					}
				}
			case MsgClose:
				s.eng.CloseSession(id)
			default:
				log.Printf("attach frame with unknown type %q", req.Type)
			}
		}
	}()
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.eng.ListSessions())

	case http.MethodPost:
		var req CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		view, err := s.eng.CreateSession(req.Kind, req.Title)
		resp := CreateResponse{Session: view}
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			// The session stays listed in Errored; report both.
			resp.Error = err.Error()
			w.WriteHeader(http.StatusBadGateway)
		} else {
			w.WriteHeader(http.StatusCreated)
		}
		json.NewEncoder(w).Encode(resp)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSessionRoutes(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := url.PathUnescape(strings.TrimPrefix(r.URL.Path, "/api/sessions/"))
	if err != nil || id == "" {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		view, ok := s.eng.Get(id)
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(view)

	case http.MethodDelete:
		// Close is idempotent; deleting an unknown id succeeds.
		s.eng.CloseSession(id)
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}
	if r.URL.Query().Get("token") == s.authToken {
		return true
	}
	return r.Header.Get("X-AWS-Connector-Token") == s.authToken
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if s.allowedOrigins[origin] {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if s.allowedHosts[parsed.Host] {
		return true
	}
	host := parsed.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}

// ListenAndServe starts the bridge on host:port.
func ListenAndServe(host string, port int, mux *http.ServeMux) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	log.Printf("bridge listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
