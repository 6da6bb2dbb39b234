package tui

import (
	"bytes"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "hello world", "hello world"},
		{"keeps newlines and tabs", "a\n\tb", "a\n\tb"},
		{"drops carriage returns", "line\r\n", "line\n"},
		{"strips color codes", "\x1b[31mred\x1b[0m", "red"},
		{"strips cursor movement", "\x1b[2Jcleared", "cleared"},
		{"strips osc title", "\x1b]0;title\x07prompt", "prompt"},
		{"drops stray control bytes", "a\x00\x08b", "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitize([]byte(tt.in)); got != tt.want {
				t.Errorf("sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTailLines(t *testing.T) {
	if got := tailLines("a\nb\nc\nd", 2); got != "c\nd" {
		t.Errorf("tailLines = %q, want %q", got, "c\nd")
	}
	if got := tailLines("a\nb", 5); got != "a\nb" {
		t.Errorf("tailLines under limit = %q, want %q", got, "a\nb")
	}
	if got := tailLines("", 3); got != "" {
		t.Errorf("tailLines empty = %q, want empty", got)
	}
}

func TestKeyBytes(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want []byte
	}{
		{"runes", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("ls")}, []byte("ls")},
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}, []byte{'\r'}},
		{"backspace", tea.KeyMsg{Type: tea.KeyBackspace}, []byte{0x7f}},
		{"up arrow", tea.KeyMsg{Type: tea.KeyUp}, []byte{0x1b, '[', 'A'}},
		{"ctrl+c", tea.KeyMsg{Type: tea.KeyCtrlC}, []byte{0x03}},
		{"tab", tea.KeyMsg{Type: tea.KeyTab}, []byte{'\t'}},
		{"unmapped", tea.KeyMsg{Type: tea.KeyF1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keyBytes(tt.msg); !bytes.Equal(got, tt.want) {
				t.Errorf("keyBytes = %v, want %v", got, tt.want)
			}
		})
	}
}
