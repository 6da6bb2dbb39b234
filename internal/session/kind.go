package session

import "fmt"

// KindType identifies what kind of remote target a session connects to.
type KindType string

const (
	ContainerExec KindType = "container_exec"
	RemoteShell   KindType = "remote_shell"
	PortForward   KindType = "port_forward"
	Local         KindType = "local"
)

// Kind describes the target of a session. It is immutable after
// creation and determines how the transport is launched, but not how it
// is streamed. All target fields are opaque strings supplied by the
// resource-discovery layer; nothing here validates AWS shapes.
type Kind struct {
	Type KindType `json:"type" yaml:"type"`

	// ContainerExec fields.
	Cluster   string `json:"cluster,omitempty" yaml:"cluster,omitempty"`
	Task      string `json:"task,omitempty" yaml:"task,omitempty"`
	Container string `json:"container,omitempty" yaml:"container,omitempty"`
	Shell     string `json:"shell,omitempty" yaml:"shell,omitempty"`

	// RemoteShell and PortForward target (instance id or host reference).
	HostRef string `json:"hostRef,omitempty" yaml:"host_ref,omitempty"`

	// PortForward fields. RemoteHost is optional; when set the forward
	// terminates at that host instead of the instance itself.
	LocalPort  int    `json:"localPort,omitempty" yaml:"local_port,omitempty"`
	RemotePort int    `json:"remotePort,omitempty" yaml:"remote_port,omitempty"`
	RemoteHost string `json:"remoteHost,omitempty" yaml:"remote_host,omitempty"`

	// Credential context, carried opaquely on every kind.
	Profile string `json:"profile,omitempty" yaml:"profile,omitempty"`
	Region  string `json:"region,omitempty" yaml:"region,omitempty"`
}

// DefaultTitle derives a human-readable tab title for sessions created
// without one.
func (k Kind) DefaultTitle() string {
	switch k.Type {
	case ContainerExec:
		return "ECS: " + k.Container
	case RemoteShell:
		return "Remote: " + k.HostRef
	case PortForward:
		return fmt.Sprintf("Port Forward: %d -> %d", k.LocalPort, k.RemotePort)
	default:
		return "Local Shell"
	}
}
