// Package transport owns the external processes behind interactive
// sessions. Each PTY wraps exactly one child attached to a
// pseudo-terminal and exposes duplex byte I/O plus resize and
// termination signalling. Crashes, signals, and I/O faults are all
// normalized to a single exit notification; the transport never retries
// internally.
package transport

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"

	"github.com/abdul674/aws-connector/internal/session"
)

const (
	defaultCols uint16 = 80
	defaultRows uint16 = 24

	readBufferSize = 32 * 1024
)

// Write/resize failures are local to the calling operation and must not
// be treated as fatal to the owning session.
var (
	ErrNotStarted = errors.New("transport not started")
	ErrClosed     = errors.New("transport closed")
)

// LaunchError reports that a session's process could not be started:
// the executable is missing, the target arguments are invalid, or the
// PTY could not be allocated.
type LaunchError struct {
	Reason string
	Err    error
}

func (e *LaunchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("launch failed: %s: %v", e.Reason, e.Err)
	}
	return "launch failed: " + e.Reason
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Options configures how commands are built.
type Options struct {
	AWSCLIPath   string
	DefaultShell string
}

// Callbacks receive the transport's output stream and its exit
// notification. Output is invoked from the read loop in production
// order; Exit fires exactly once, after the last Output call, and never
// again.
type Callbacks struct {
	Output func(p []byte)
	Exit   func(clean bool, diagnostic string)
}

type ptyState int

const (
	stateCreated ptyState = iota
	stateRunning
	stateClosing
	stateDone
)

// PTY runs one session kind as a child process on a pseudo-terminal.
type PTY struct {
	kind session.Kind
	opts Options

	mu    sync.Mutex
	state ptyState
	ptmx  *os.File
	cmd   *exec.Cmd

	exitOnce sync.Once
}

// New builds an unstarted transport for kind.
func New(kind session.Kind, opts Options) *PTY {
	return &PTY{kind: kind, opts: opts}
}

// Start spawns the child on a PTY sized to the default geometry and
// begins the read loop. Launch failures are reported synchronously as
// *LaunchError; after a nil return the exit notification is the only
// failure channel.
func (t *PTY) Start(cb Callbacks) error {
	argv, err := buildCommand(t.kind, t.opts)
	if err != nil {
		return &LaunchError{Reason: "invalid target", Err: err}
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return &LaunchError{Reason: "executable missing", Err: err}
	}

	cmd := exec.Command(path, argv[1:]...)
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: defaultCols, Rows: defaultRows})
	if err != nil {
		return &LaunchError{Reason: "pty allocation", Err: err}
	}

	t.mu.Lock()
	t.cmd = cmd
	t.ptmx = ptmx
	t.state = stateRunning
	t.mu.Unlock()

	go t.readLoop(cb)
	return nil
}

// Write forwards raw bytes to the child's input. The write itself runs
// outside the state lock so an in-flight write can never stall a
// concurrent RequestClose.
func (t *PTY) Write(p []byte) error {
	t.mu.Lock()
	switch t.state {
	case stateCreated:
		t.mu.Unlock()
		return ErrNotStarted
	case stateClosing, stateDone:
		t.mu.Unlock()
		return ErrClosed
	}
	ptmx := t.ptmx
	t.mu.Unlock()

	if _, err := ptmx.Write(p); err != nil {
		return fmt.Errorf("pty write: %w", err)
	}
	return nil
}

// Resize adjusts the pseudo-terminal geometry. Safe to call redundantly
// and a no-op once the child has exited.
func (t *PTY) Resize(cols, rows uint16) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == stateCreated {
		return ErrNotStarted
	}
	if t.state == stateDone {
		return nil
	}
	if err := pty.Setsize(t.ptmx, &pty.Winsize{Cols: cols, Rows: rows}); err != nil {
		return fmt.Errorf("pty resize: %w", err)
	}
	return nil
}

// RequestClose signals the child to terminate and returns immediately.
// The exit notification reports completion.
func (t *PTY) RequestClose() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != stateRunning {
		return
	}
	t.state = stateClosing
	if t.cmd != nil && t.cmd.Process != nil {
		// SIGTERM first; the PTY hangup when we close the master will
		// finish off anything that ignores it.
		_ = t.cmd.Process.Signal(syscall.SIGTERM)
	}
}

// readLoop streams PTY output until the child exits, then fires the
// exit notification exactly once.
func (t *PTY) readLoop(cb Callbacks) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := t.ptmx.Read(buf)
		if n > 0 && cb.Output != nil {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			cb.Output(chunk)
		}
		if err != nil {
			// EOF, or EIO once the child side of the PTY is gone.
			break
		}
	}

	waitErr := t.cmd.Wait()

	t.mu.Lock()
	requested := t.state == stateClosing
	t.state = stateDone
	ptmx := t.ptmx
	t.mu.Unlock()
	if ptmx != nil {
		_ = ptmx.Close()
	}

	clean := waitErr == nil
	diagnostic := ""
	if waitErr != nil {
		diagnostic = waitErr.Error()
	}
	if requested {
		// Termination the caller asked for is not a failure, whatever
		// the exit status says.
		clean = true
		diagnostic = ""
	}

	t.exitOnce.Do(func() {
		if cb.Exit != nil {
			cb.Exit(clean, diagnostic)
		}
	})
}
