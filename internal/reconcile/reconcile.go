// Package reconcile discovers session processes already running when
// the program starts: aws CLI sessions and the session-manager-plugin
// children they spawn. Recovery is best-effort: orphans are reported
// for display, never adopted, since their stdio belongs to whoever
// started them.
package reconcile

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/abdul674/aws-connector/internal/session"
)

// Orphan is a live session process found at startup.
type Orphan struct {
	PID       int32
	Cmdline   string
	Kind      session.KindType
	StartedAt time.Time
}

// Discover scans the process table for session processes.
func Discover() ([]Orphan, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	var out []Orphan
	for _, p := range procs {
		cmdline, err := p.Cmdline()
		if err != nil || cmdline == "" {
			continue
		}
		kind, ok := Classify(cmdline)
		if !ok {
			continue
		}
		started := time.Time{}
		if ms, err := p.CreateTime(); err == nil {
			started = time.UnixMilli(ms)
		}
		out = append(out, Orphan{
			PID:       p.Pid,
			Cmdline:   cmdline,
			Kind:      kind,
			StartedAt: started,
		})
	}
	return out, nil
}

// Classify maps a command line to the session kind it would have been
// created as. Returns false for processes that are not session
// processes.
func Classify(cmdline string) (session.KindType, bool) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return "", false
	}

	exe := filepath.Base(fields[0])
	switch exe {
	case "session-manager-plugin":
		// The plugin's argv carries the SSM document name as JSON.
		if strings.Contains(cmdline, "StartPortForwardingSession") {
			return session.PortForward, true
		}
		return session.RemoteShell, true
	case "aws":
		if hasSubcommand(fields, "ecs", "execute-command") {
			return session.ContainerExec, true
		}
		if hasSubcommand(fields, "ssm", "start-session") {
			if strings.Contains(cmdline, "StartPortForwardingSession") {
				return session.PortForward, true
			}
			return session.RemoteShell, true
		}
	}
	return "", false
}

func hasSubcommand(fields []string, service, command string) bool {
	for i := 1; i+1 < len(fields); i++ {
		if fields[i] == service && fields[i+1] == command {
			return true
		}
	}
	return false
}
