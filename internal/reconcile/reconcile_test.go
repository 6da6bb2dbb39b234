package reconcile

import (
	"testing"

	"github.com/abdul674/aws-connector/internal/session"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		cmdline  string
		wantKind session.KindType
		wantOK   bool
	}{
		{
			name:     "ecs exec",
			cmdline:  "aws ecs execute-command --cluster prod --task t1 --container web --interactive --command /bin/sh",
			wantKind: session.ContainerExec,
			wantOK:   true,
		},
		{
			name:     "ecs exec with full path",
			cmdline:  "/usr/local/bin/aws ecs execute-command --cluster prod --task t1 --container web --interactive --command /bin/sh",
			wantKind: session.ContainerExec,
			wantOK:   true,
		},
		{
			name:     "ssm remote shell",
			cmdline:  "aws ssm start-session --target i-0abc",
			wantKind: session.RemoteShell,
			wantOK:   true,
		},
		{
			name:     "ssm port forward",
			cmdline:  "aws ssm start-session --target i-0abc --document-name AWS-StartPortForwardingSession --parameters portNumber=80,localPortNumber=8080",
			wantKind: session.PortForward,
			wantOK:   true,
		},
		{
			name:     "plugin shell session",
			cmdline:  `session-manager-plugin {"SessionId":"x"} eu-west-1 StartSession`,
			wantKind: session.RemoteShell,
			wantOK:   true,
		},
		{
			name:     "plugin port forward",
			cmdline:  `session-manager-plugin {"SessionId":"x","DocumentName":"AWS-StartPortForwardingSessionToRemoteHost"} eu-west-1 StartSession`,
			wantKind: session.PortForward,
			wantOK:   true,
		},
		{
			name:    "unrelated aws call",
			cmdline: "aws s3 ls",
			wantOK:  false,
		},
		{
			name:    "unrelated process",
			cmdline: "/usr/bin/vim reconcile.go",
			wantOK:  false,
		},
		{
			name:    "empty",
			cmdline: "",
			wantOK:  false,
		},
		{
			name:    "ecs without execute-command",
			cmdline: "aws ecs list-tasks --cluster prod",
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := Classify(tt.cmdline)
			if ok != tt.wantOK {
				t.Fatalf("Classify(%q) ok = %v, want %v", tt.cmdline, ok, tt.wantOK)
			}
			if ok && kind != tt.wantKind {
				t.Errorf("Classify(%q) = %v, want %v", tt.cmdline, kind, tt.wantKind)
			}
		})
	}
}

func TestDiscover_DoesNotFail(t *testing.T) {
	// The scan walks the live process table; content is environment
	// dependent, but the walk itself must succeed.
	orphans, err := Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	for _, o := range orphans {
		if o.PID <= 0 {
			t.Errorf("orphan with non-positive pid: %+v", o)
		}
		if _, ok := Classify(o.Cmdline); !ok {
			t.Errorf("Discover returned a process Classify rejects: %q", o.Cmdline)
		}
	}
}
