package view

import "testing"

// staticLister serves a fixed ordering.
type staticLister struct {
	ids []string
}

func (s *staticLister) OrderedIDs() []string { return s.ids }

func TestMux_SwitchToClearsUnread(t *testing.T) {
	m := New(&staticLister{ids: []string{"a", "b"}})

	m.SwitchTo("a")
	m.NoteOutput("b")
	if !m.Unread("b") {
		t.Fatal("inactive session with output must be flagged unread")
	}

	m.SwitchTo("b")
	if m.Unread("b") {
		t.Error("switching to a session must clear its unread flag")
	}
	if m.Active() != "b" {
		t.Errorf("Active() = %q, want %q", m.Active(), "b")
	}
}

func TestMux_ActiveSessionNeverUnread(t *testing.T) {
	m := New(&staticLister{ids: []string{"a"}})
	m.SwitchTo("a")
	m.NoteOutput("a")
	if m.Unread("a") {
		t.Error("output on the active session must not flag it unread")
	}
}

func TestMux_NavigateWrapsBothEnds(t *testing.T) {
	lister := &staticLister{ids: []string{"a", "b", "c"}}
	m := New(lister)
	m.SwitchTo("a")

	m.Navigate(-1)
	if m.Active() != "c" {
		t.Errorf("backward from first = %q, want %q (wrap)", m.Active(), "c")
	}

	m.Navigate(1)
	if m.Active() != "a" {
		t.Errorf("forward from last = %q, want %q (wrap)", m.Active(), "a")
	}

	m.Navigate(1)
	if m.Active() != "b" {
		t.Errorf("forward from a = %q, want %q", m.Active(), "b")
	}
}

func TestMux_NavigateEmptyIsNoop(t *testing.T) {
	m := New(&staticLister{})
	m.Navigate(1)
	m.Navigate(-1)
	if m.Active() != "" {
		t.Errorf("Active() = %q, want empty", m.Active())
	}
}

func TestMux_NavigateClearsUnreadOnArrival(t *testing.T) {
	m := New(&staticLister{ids: []string{"a", "b"}})
	m.SwitchTo("a")
	m.NoteOutput("b")

	m.Navigate(1)
	if m.Active() != "b" {
		t.Fatalf("Active() = %q, want %q", m.Active(), "b")
	}
	if m.Unread("b") {
		t.Error("navigating to a session must clear its unread flag")
	}
}

func TestMux_NavigateDefaultsToFirstWhenActiveGone(t *testing.T) {
	m := New(&staticLister{ids: []string{"x", "y"}})
	m.SwitchTo("never-listed")
	m.Navigate(1)
	if m.Active() != "x" {
		t.Errorf("Active() = %q, want %q (first in order)", m.Active(), "x")
	}
}

func TestMux_RemovalReassignsActive(t *testing.T) {
	m := New(&staticLister{ids: []string{"a", "b", "c"}})
	m.SwitchTo("b")

	m.OnSessionRemoved("b", []string{"a", "c"})
	if m.Active() != "a" {
		t.Errorf("Active() after removing active = %q, want %q", m.Active(), "a")
	}

	m.OnSessionRemoved("c", []string{"a"})
	if m.Active() != "a" {
		t.Errorf("Active() after removing inactive = %q, want %q (unchanged)", m.Active(), "a")
	}

	m.OnSessionRemoved("a", nil)
	if m.Active() != "" {
		t.Errorf("Active() after last removal = %q, want empty", m.Active())
	}
}

func TestMux_RemovalDropsUnreadFlag(t *testing.T) {
	m := New(&staticLister{ids: []string{"a", "b"}})
	m.SwitchTo("a")
	m.NoteOutput("b")

	m.OnSessionRemoved("b", []string{"a"})
	if m.Unread("b") {
		t.Error("removed session still flagged unread")
	}
}
