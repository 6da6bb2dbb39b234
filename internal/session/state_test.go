package session

import (
	"encoding/json"
	"testing"
)

func TestState_Transitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
		want bool
	}{
		{"starting to running", Starting, Running, true},
		{"starting to errored", Starting, Errored, true},
		{"starting to closing", Starting, Closing, true},
		{"starting to closed", Starting, Closed, false},
		{"running to closing", Running, Closing, true},
		{"running to closed", Running, Closed, true},
		{"running to errored", Running, Errored, true},
		{"running to starting", Running, Starting, false},
		{"closing to closed", Closing, Closed, true},
		{"closing to errored", Closing, Errored, true},
		{"closing to running", Closing, Running, false},
		{"closed is terminal", Closed, Running, false},
		{"errored is terminal", Errored, Running, false},
		{"errored stays errored", Errored, Closed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.canMoveTo(tt.to); got != tt.want {
				t.Errorf("%v -> %v = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestState_Terminal(t *testing.T) {
	for _, s := range []State{Starting, Running, Closing} {
		if s.Terminal() {
			t.Errorf("%v.Terminal() = true, want false", s)
		}
	}
	for _, s := range []State{Closed, Errored} {
		if !s.Terminal() {
			t.Errorf("%v.Terminal() = false, want true", s)
		}
	}
}

func TestState_JSONRoundTrip(t *testing.T) {
	for _, s := range []State{Starting, Running, Closing, Closed, Errored} {
		data, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", s, err)
		}
		var back State
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("Unmarshal(%s): %v", data, err)
		}
		if back != s {
			t.Errorf("round trip %v -> %s -> %v", s, data, back)
		}
	}
}

func TestKind_DefaultTitle(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		want string
	}{
		{
			"container exec",
			Kind{Type: ContainerExec, Cluster: "prod", Task: "abc", Container: "web"},
			"ECS: web",
		},
		{
			"remote shell",
			Kind{Type: RemoteShell, HostRef: "i-0123456789"},
			"Remote: i-0123456789",
		},
		{
			"port forward",
			Kind{Type: PortForward, HostRef: "i-0123", LocalPort: 5432, RemotePort: 5432},
			"Port Forward: 5432 -> 5432",
		},
		{
			"local shell",
			Kind{Type: Local},
			"Local Shell",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.DefaultTitle(); got != tt.want {
				t.Errorf("DefaultTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}
