package transport

import (
	"fmt"

	"github.com/abdul674/aws-connector/internal/session"
)

// buildCommand translates a session kind into the argv that backs it.
// Remote kinds all go through the aws CLI; the protocols themselves
// (SSM, ECS exec) live inside that process and are opaque here.
func buildCommand(kind session.Kind, opts Options) ([]string, error) {
	shell := kind.Shell
	if shell == "" {
		shell = opts.DefaultShell
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	awsCLI := opts.AWSCLIPath
	if awsCLI == "" {
		awsCLI = "aws"
	}

	switch kind.Type {
	case session.ContainerExec:
		if kind.Cluster == "" || kind.Task == "" || kind.Container == "" {
			return nil, fmt.Errorf("container exec requires cluster, task, and container")
		}
		args := []string{
			awsCLI, "ecs", "execute-command",
			"--cluster", kind.Cluster,
			"--task", kind.Task,
			"--container", kind.Container,
			"--interactive",
			"--command", shell,
		}
		return appendCredentials(args, kind), nil

	case session.RemoteShell:
		if kind.HostRef == "" {
			return nil, fmt.Errorf("remote shell requires a host reference")
		}
		args := []string{awsCLI, "ssm", "start-session", "--target", kind.HostRef}
		return appendCredentials(args, kind), nil

	case session.PortForward:
		if kind.HostRef == "" {
			return nil, fmt.Errorf("port forward requires a host reference")
		}
		if kind.LocalPort <= 0 || kind.RemotePort <= 0 {
			return nil, fmt.Errorf("port forward requires local and remote ports")
		}
		args := []string{awsCLI, "ssm", "start-session", "--target", kind.HostRef}
		if kind.RemoteHost != "" {
			// Forward to a remote endpoint (RDS, ElastiCache) reachable
			// from the instance.
			args = append(args,
				"--document-name", "AWS-StartPortForwardingSessionToRemoteHost",
				"--parameters", fmt.Sprintf("host=%s,portNumber=%d,localPortNumber=%d",
					kind.RemoteHost, kind.RemotePort, kind.LocalPort),
			)
		} else {
			args = append(args,
				"--document-name", "AWS-StartPortForwardingSession",
				"--parameters", fmt.Sprintf("portNumber=%d,localPortNumber=%d",
					kind.RemotePort, kind.LocalPort),
			)
		}
		return appendCredentials(args, kind), nil

	case session.Local:
		return []string{shell}, nil

	default:
		return nil, fmt.Errorf("unknown session kind %q", string(kind.Type))
	}
}

func appendCredentials(args []string, kind session.Kind) []string {
	if kind.Profile != "" {
		args = append(args, "--profile", kind.Profile)
	}
	if kind.Region != "" {
		args = append(args, "--region", kind.Region)
	}
	return args
}
