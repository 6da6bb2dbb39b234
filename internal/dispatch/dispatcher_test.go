package dispatch

import (
	"bytes"
	"fmt"
	"testing"
	"time"
)

func TestDispatcher_DeliverReachesSubscribers(t *testing.T) {
	d := New(8)
	d.Attach("s1")

	var got [][]byte
	cancel := d.OnOutput("s1", func(p []byte) { got = append(got, p) })
	defer cancel()

	d.Deliver("s1", []byte("one"))
	d.Deliver("s1", []byte("two"))

	if len(got) != 2 {
		t.Fatalf("subscriber saw %d chunks, want 2", len(got))
	}
	if !bytes.Equal(got[0], []byte("one")) || !bytes.Equal(got[1], []byte("two")) {
		t.Errorf("chunks out of order: %q, %q", got[0], got[1])
	}
}

func TestDispatcher_CancelStopsDelivery(t *testing.T) {
	d := New(8)
	d.Attach("s1")

	calls := 0
	cancel := d.OnOutput("s1", func([]byte) { calls++ })

	d.Deliver("s1", []byte("a"))
	cancel()
	d.Deliver("s1", []byte("b"))

	if calls != 1 {
		t.Errorf("subscriber called %d times, want 1 (cancel must stop delivery)", calls)
	}
}

func TestDispatcher_BufferDropsOldest(t *testing.T) {
	d := New(4)
	d.Attach("s1")

	for i := 0; i < 7; i++ {
		d.Deliver("s1", []byte(fmt.Sprintf("chunk-%d", i)))
	}

	buf := d.Buffered("s1")
	if len(buf) != 4 {
		t.Fatalf("Buffered returned %d chunks, want 4 (bound)", len(buf))
	}
	for i, p := range buf {
		want := fmt.Sprintf("chunk-%d", i+3)
		if string(p) != want {
			t.Errorf("Buffered[%d] = %q, want %q (oldest must be dropped first)", i, p, want)
		}
	}
}

func TestDispatcher_SessionsAreIsolated(t *testing.T) {
	d := New(8)
	d.Attach("s1")
	d.Attach("s2")

	var s1Chunks, s2Chunks int
	d.OnOutput("s1", func([]byte) { s1Chunks++ })
	d.OnOutput("s2", func([]byte) { s2Chunks++ })

	d.Deliver("s1", []byte("a"))
	d.Deliver("s1", []byte("b"))
	d.Deliver("s2", []byte("c"))

	if s1Chunks != 2 || s2Chunks != 1 {
		t.Errorf("delivery crossed sessions: s1=%d s2=%d, want 2 and 1", s1Chunks, s2Chunks)
	}
	if n := len(d.Buffered("s2")); n != 1 {
		t.Errorf("s2 buffer holds %d chunks, want 1", n)
	}
}

func TestDispatcher_DetachSilencesSession(t *testing.T) {
	d := New(8)
	d.Attach("s1")

	outputCalls, closedCalls, errorCalls := 0, 0, 0
	d.OnOutput("s1", func([]byte) { outputCalls++ })
	d.OnClosed("s1", func() { closedCalls++ })
	d.OnError("s1", func(string) { errorCalls++ })

	d.Detach("s1")

	d.Deliver("s1", []byte("late"))
	d.NotifyClosed("s1")
	d.NotifyError("s1", "late failure")

	if outputCalls+closedCalls+errorCalls != 0 {
		t.Errorf("callbacks fired after Detach: output=%d closed=%d error=%d",
			outputCalls, closedCalls, errorCalls)
	}
	if buf := d.Buffered("s1"); buf != nil {
		t.Errorf("Buffered after Detach = %v, want nil", buf)
	}

	// Subscribing to a detached session yields a usable no-op cancel.
	cancel := d.OnOutput("s1", func([]byte) { outputCalls++ })
	cancel()
}

func TestDispatcher_NotifyClosedAndError(t *testing.T) {
	d := New(8)
	d.Attach("s1")

	closed := false
	var diag string
	d.OnClosed("s1", func() { closed = true })
	d.OnError("s1", func(m string) { diag = m })

	d.NotifyClosed("s1")
	d.NotifyError("s1", "exit status 137")

	if !closed {
		t.Error("closed subscriber never fired")
	}
	if diag != "exit status 137" {
		t.Errorf("error subscriber got %q, want %q", diag, "exit status 137")
	}
}

func TestDispatcher_OutputNoteFiresPerChunk(t *testing.T) {
	d := New(8)
	var noted []string
	d.SetOutputNote(func(id string) { noted = append(noted, id) })
	d.Attach("s1")

	d.Deliver("s1", []byte("a"))
	d.Deliver("s1", []byte("b"))
	d.Deliver("unknown", []byte("c"))

	if len(noted) != 2 || noted[0] != "s1" || noted[1] != "s1" {
		t.Errorf("output note calls = %v, want [s1 s1]", noted)
	}
}

func TestDispatcher_OutputNoteOrderedBeforeDetach(t *testing.T) {
	d := New(8)
	d.Attach("s1")

	noteStarted := make(chan struct{})
	noteRelease := make(chan struct{})
	d.SetOutputNote(func(string) {
		close(noteStarted)
		<-noteRelease
	})

	go d.Deliver("s1", []byte("late"))
	<-noteStarted

	detached := make(chan struct{})
	go func() {
		d.Detach("s1")
		close(detached)
	}()

	select {
	case <-detached:
		t.Fatal("Detach completed while a note was in flight; a removal could race the note and leave a stale unread mark")
	case <-time.After(50 * time.Millisecond):
	}

	close(noteRelease)
	select {
	case <-detached:
	case <-time.After(time.Second):
		t.Fatal("Detach never completed after the note finished")
	}
}

func TestDispatcher_AttachIsIdempotent(t *testing.T) {
	d := New(8)
	d.Attach("s1")
	d.Deliver("s1", []byte("kept"))
	d.Attach("s1")

	if n := len(d.Buffered("s1")); n != 1 {
		t.Errorf("re-Attach cleared the buffer: %d chunks, want 1", n)
	}
}
