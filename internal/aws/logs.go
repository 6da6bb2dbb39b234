package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/abdul674/aws-connector/internal/logtail"
)

// CLIPoller fetches log records through `aws logs filter-log-events`.
// One poller serves every tail session for a credential context.
type CLIPoller struct {
	CLIPath string
	Profile string
	Region  string
}

type filterEventsOutput struct {
	Events []struct {
		Timestamp int64  `json:"timestamp"`
		Message   string `json:"message"`
	} `json:"events"`
}

func (p *CLIPoller) Poll(ctx context.Context, group, filter string, sinceMillis int64) ([]logtail.Record, int64, error) {
	cliPath := p.CLIPath
	if cliPath == "" {
		cliPath = "aws"
	}

	args := []string{
		"logs", "filter-log-events",
		"--log-group-name", group,
		"--start-time", strconv.FormatInt(sinceMillis, 10),
		"--output", "json",
	}
	if filter != "" {
		args = append(args, "--filter-pattern", filter)
	}
	if p.Profile != "" {
		args = append(args, "--profile", p.Profile)
	}
	if p.Region != "" {
		args = append(args, "--region", p.Region)
	}

	out, err := exec.CommandContext(ctx, cliPath, args...).Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return nil, sinceMillis, fmt.Errorf("filter-log-events: %s", ee.Stderr)
		}
		return nil, sinceMillis, fmt.Errorf("filter-log-events: %w", err)
	}

	var parsed filterEventsOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, sinceMillis, fmt.Errorf("filter-log-events output: %w", err)
	}

	records := make([]logtail.Record, 0, len(parsed.Events))
	next := sinceMillis
	for _, ev := range parsed.Events {
		records = append(records, logtail.Record{
			TimestampMillis: ev.Timestamp,
			Message:         ev.Message,
		})
		if ev.Timestamp >= next {
			// advance past the newest event so the next poll does not
			// return it again
			next = ev.Timestamp + 1
		}
	}
	return records, next, nil
}
