// Package aws declares the resource-discovery collaborator consumed by
// the session picker, plus the CLI-backed log poller. Identifiers are
// opaque strings end to end; the session layer never interprets AWS
// shapes.
package aws

import "context"

// Cluster is a container cluster the picker can target.
type Cluster struct {
	ARN  string `json:"arn"`
	Name string `json:"name"`
}

// Task is a running task within a cluster.
type Task struct {
	ARN        string   `json:"arn"`
	Cluster    string   `json:"cluster"`
	Containers []string `json:"containers"`
	ExecEnable bool     `json:"execEnabled"`
}

// Instance is a remote host reachable for shell or port-forward
// sessions.
type Instance struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LogGroup is a tailable log group.
type LogGroup struct {
	Name string `json:"name"`
}

// Discovery enumerates session targets for one credential context.
type Discovery interface {
	ListClusters(ctx context.Context, profile, region string) ([]Cluster, error)
	ListTasks(ctx context.Context, profile, region, cluster string) ([]Task, error)
	ListInstances(ctx context.Context, profile, region string) ([]Instance, error)
	ListLogGroups(ctx context.Context, profile, region string) ([]LogGroup, error)
}

// Static serves fixed fixtures. Used by tests and by the TUI when no
// discovery backend is wired.
type Static struct {
	Clusters  []Cluster
	Tasks     []Task
	Instances []Instance
	LogGroups []LogGroup
}

func (s *Static) ListClusters(ctx context.Context, profile, region string) ([]Cluster, error) {
	return s.Clusters, nil
}

func (s *Static) ListTasks(ctx context.Context, profile, region, cluster string) ([]Task, error) {
	out := make([]Task, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		if cluster == "" || t.Cluster == cluster {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Static) ListInstances(ctx context.Context, profile, region string) ([]Instance, error) {
	return s.Instances, nil
}

func (s *Static) ListLogGroups(ctx context.Context, profile, region string) ([]LogGroup, error) {
	return s.LogGroups, nil
}
