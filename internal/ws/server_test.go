package ws

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abdul674/aws-connector/internal/engine"
	"github.com/abdul674/aws-connector/internal/session"
	"github.com/abdul674/aws-connector/internal/transport"
)

// fakeStarter lets tests drive output and exit through the captured
// callbacks. Writes arrive from server goroutines, so access is locked.
type fakeStarter struct {
	startErr error
	cb       transport.Callbacks

	mu     sync.Mutex
	writes [][]byte
}

func (f *fakeStarter) Start(cb transport.Callbacks) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.cb = cb
	return nil
}

func (f *fakeStarter) Write(p []byte) error {
	cp := make([]byte, len(p))
	copy(cp, p)
	f.mu.Lock()
	f.writes = append(f.writes, cp)
	f.mu.Unlock()
	return nil
}

func (f *fakeStarter) written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.writes))
	copy(out, f.writes)
	return out
}

func (f *fakeStarter) Resize(cols, rows uint16) error { return nil }

func (f *fakeStarter) RequestClose() { f.cb.Exit(true, "") }

func newTestServer(t *testing.T, transports ...*fakeStarter) (*httptest.Server, *engine.Engine) {
	t.Helper()
	next := 0
	eng := engine.New(func(kind session.Kind) engine.Starter {
		tr := transports[next]
		next++
		return tr
	}, 8)

	srv := NewServer(eng, NewBroadcaster(eng), nil, "")
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, eng
}

func TestServer_CreateListDelete(t *testing.T) {
	ts, eng := newTestServer(t, &fakeStarter{})

	body, _ := json.Marshal(CreateRequest{
		Kind:  session.Kind{Type: session.Local},
		Title: "bridge shell",
	})
	resp, err := http.Post(ts.URL+"/api/sessions", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want 201", resp.StatusCode)
	}
	var created CreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if created.Session.Title != "bridge shell" || created.Session.State != session.Running {
		t.Errorf("created session = %+v", created.Session)
	}

	resp, err = http.Get(ts.URL + "/api/sessions")
	if err != nil {
		t.Fatal(err)
	}
	var listed []session.View
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if len(listed) != 1 || listed[0].ID != created.Session.ID {
		t.Errorf("GET list = %+v, want the created session", listed)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/sessions/"+created.Session.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want 204", resp.StatusCode)
	}
	if len(eng.ListSessions()) != 0 {
		t.Error("session still listed after DELETE")
	}

	// Deleting again is idempotent.
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/sessions/"+created.Session.ID, nil)
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("repeat DELETE status = %d, want 204", resp.StatusCode)
	}
}

func TestServer_CreateLaunchFailure(t *testing.T) {
	tr := &fakeStarter{startErr: &transport.LaunchError{
		Reason: "executable missing", Err: errors.New("no aws"),
	}}
	ts, eng := newTestServer(t, tr)

	body, _ := json.Marshal(CreateRequest{
		Kind: session.Kind{Type: session.RemoteShell, HostRef: "i-0abc"},
	})
	resp, err := http.Post(ts.URL+"/api/sessions", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("POST status = %d, want 502", resp.StatusCode)
	}
	var created CreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.Error == "" {
		t.Error("launch failure response carried no error message")
	}
	if created.Session.State != session.Errored {
		t.Errorf("session state = %v, want Errored", created.Session.State)
	}
	// The failed session stays listed for the client to inspect and close.
	if len(eng.ListSessions()) != 1 {
		t.Errorf("ListSessions = %d, want 1", len(eng.ListSessions()))
	}
}

func TestServer_GetSession(t *testing.T) {
	ts, eng := newTestServer(t, &fakeStarter{})
	v, _ := eng.CreateSession(session.Kind{Type: session.Local}, "")

	resp, err := http.Get(ts.URL + "/api/sessions/" + v.ID)
	if err != nil {
		t.Fatal(err)
	}
	var got session.View
	json.NewDecoder(resp.Body).Decode(&got)
	resp.Body.Close()
	if got.ID != v.ID {
		t.Errorf("GET session = %+v, want id %s", got, v.ID)
	}

	resp, err = http.Get(ts.URL + "/api/sessions/no-such-id")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET unknown session status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_AuthToken(t *testing.T) {
	eng := engine.New(func(session.Kind) engine.Starter { return &fakeStarter{} }, 8)
	srv := NewServer(eng, NewBroadcaster(eng), nil, "secret")
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	resp, _ := http.Get(ts.URL + "/api/sessions")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", resp.StatusCode)
	}

	resp, _ = http.Get(ts.URL + "/api/sessions?token=secret")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("query token status = %d, want 200", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/sessions", nil)
	req.Header.Set("X-AWS-Connector-Token", "secret")
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("header token status = %d, want 200", resp.StatusCode)
	}

	req.Header.Set("X-AWS-Connector-Token", "wrong")
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", resp.StatusCode)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("parse frame %s: %v", data, err)
	}
	return msg
}

func TestServer_AttachStream(t *testing.T) {
	tr := &fakeStarter{}
	ts, eng := newTestServer(t, tr)
	v, _ := eng.CreateSession(session.Kind{Type: session.Local}, "")

	// Output produced before the attach is replayed from the buffer.
	tr.cb.Output([]byte("early\r\n"))

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/session/" + v.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msg := readFrame(t, conn)
	if msg.Type != MsgOutput {
		t.Fatalf("first frame type = %s, want output", msg.Type)
	}
	payload, _ := json.Marshal(msg.Payload)
	var out OutputPayload
	json.Unmarshal(payload, &out)
	raw, _ := base64.StdEncoding.DecodeString(out.Data)
	if string(raw) != "early\r\n" {
		t.Errorf("replayed output = %q, want %q", raw, "early\r\n")
	}

	// Input frames reach the transport.
	input, _ := json.Marshal(AttachRequest{
		Type: MsgInput,
		Data: base64.StdEncoding.EncodeToString([]byte("ls\r")),
	})
	if err := conn.WriteMessage(websocket.TextMessage, input); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for len(tr.written()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("input frame never reached the transport")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := tr.written(); !bytes.Equal(got[0], []byte("ls\r")) {
		t.Errorf("transport received %q, want %q", got[0], "ls\r")
	}

	// Live output streams after the replay.
	tr.cb.Output([]byte("bin\r\n"))
	msg = readFrame(t, conn)
	if msg.Type != MsgOutput {
		t.Fatalf("live frame type = %s, want output", msg.Type)
	}

	// A close frame tears the session down and a closed frame comes back.
	closeFrame, _ := json.Marshal(AttachRequest{Type: MsgClose})
	conn.WriteMessage(websocket.TextMessage, closeFrame)
	msg = readFrame(t, conn)
	if msg.Type != MsgClosed {
		t.Errorf("final frame type = %s, want closed", msg.Type)
	}
}

func TestServer_AttachUnknownSession(t *testing.T) {
	ts, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/session/no-such-id"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("attach to unknown session succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("attach rejection status = %v, want 404 before upgrade", resp)
	}
}

func TestServer_ListStream(t *testing.T) {
	tr := &fakeStarter{}
	ts, eng := newTestServer(t, tr)
	v, _ := eng.CreateSession(session.Kind{Type: session.Local}, "watched")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msg := readFrame(t, conn)
	if msg.Type != MsgSnapshot {
		t.Fatalf("first frame type = %s, want snapshot", msg.Type)
	}
	payload, _ := json.Marshal(msg.Payload)
	var snap SnapshotPayload
	json.Unmarshal(payload, &snap)
	if len(snap.Sessions) != 1 || snap.Sessions[0].ID != v.ID {
		t.Errorf("snapshot sessions = %+v, want [%s]", snap.Sessions, v.ID)
	}
}

func TestDeltaFor(t *testing.T) {
	v := session.View{ID: "s1", State: session.Running}

	msg := deltaFor(session.Event{Type: session.EventState, Session: v})
	delta := msg.Payload.(DeltaPayload)
	if len(delta.Updates) != 1 || delta.Updates[0].ID != "s1" || len(delta.Removed) != 0 {
		t.Errorf("state delta = %+v", delta)
	}

	msg = deltaFor(session.Event{Type: session.EventRemoved, Session: v})
	delta = msg.Payload.(DeltaPayload)
	if len(delta.Removed) != 1 || delta.Removed[0] != "s1" || len(delta.Updates) != 0 {
		t.Errorf("removed delta = %+v", delta)
	}
}

func TestBroadcaster_ClientCountTracksListClients(t *testing.T) {
	eng := engine.New(func(session.Kind) engine.Starter { return &fakeStarter{} }, 8)
	b := NewBroadcaster(eng)
	srv := NewServer(eng, b, nil, "")
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	waitCount := func(want int) {
		t.Helper()
		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			if b.ClientCount() == want {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatalf("ClientCount = %d, want %d", b.ClientCount(), want)
	}

	if n := b.ClientCount(); n != 0 {
		t.Fatalf("ClientCount = %d before any client, want 0", n)
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitCount(1)

	conn.Close()
	waitCount(0)
}

func TestReplayGate_HoldsLiveOutputUntilReplayDrains(t *testing.T) {
	var sent []string
	g := newReplayGate(func(p []byte) { sent = append(sent, string(p)) })

	g.Deliver([]byte("live-1"))
	g.Deliver([]byte("live-2"))
	if len(sent) != 0 {
		t.Fatalf("live chunks emitted mid-replay: %v", sent)
	}

	g.Open()
	if len(sent) != 2 || sent[0] != "live-1" || sent[1] != "live-2" {
		t.Fatalf("flushed chunks = %v, want [live-1 live-2] in arrival order", sent)
	}

	g.Deliver([]byte("live-3"))
	if len(sent) != 3 || sent[2] != "live-3" {
		t.Errorf("post-replay chunk held back: %v", sent)
	}
}
