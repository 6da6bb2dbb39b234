package tui

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abdul674/aws-connector/internal/aws"
	"github.com/abdul674/aws-connector/internal/session"
)

// pickerResult is what a completed picker hands back to the app.
type pickerResult struct {
	kind     session.Kind
	title    string
	logGroup string // non-empty selects a log tail instead of a terminal
	filter   string
}

type pickerStage int

const (
	stageKind pickerStage = iota
	stageFields
)

type pickerField struct {
	label    string
	optional bool
	input    textinput.Model
}

// picker is the new-session overlay: choose what to connect to, then
// fill in the opaque target identifiers. Known targets from the
// discovery backend show up as inline suggestions on each field.
type picker struct {
	disc   aws.Discovery
	stage  pickerStage
	choice int
	fields []pickerField
	index  int
	done   bool
	result pickerResult
}

var pickerChoices = []string{
	"Container exec (ECS)",
	"Remote shell (SSM)",
	"Port forward",
	"Local shell",
	"Log tail",
}

func newPicker(disc aws.Discovery) *picker {
	return &picker{disc: disc}
}

func field(label string, optional bool) pickerField {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 256
	return pickerField{label: label, optional: optional, input: ti}
}

func (p *picker) fieldsFor(choice int) []pickerField {
	switch choice {
	case 0:
		return []pickerField{
			field("cluster", false),
			field("task", false),
			field("container", false),
			field("profile", true),
			field("region", true),
		}
	case 1:
		return []pickerField{
			field("instance / host", false),
			field("profile", true),
			field("region", true),
		}
	case 2:
		return []pickerField{
			field("instance / host", false),
			field("local port", false),
			field("remote port", false),
			field("remote host", true),
			field("profile", true),
			field("region", true),
		}
	case 4:
		return []pickerField{
			field("log group", false),
			field("filter pattern", true),
		}
	default:
		return nil
	}
}

// Update handles one key press. Returns a command for the focused text
// input; p.done flips when the picker has a complete result.
func (p *picker) Update(msg tea.KeyMsg) tea.Cmd {
	switch p.stage {
	case stageKind:
		switch msg.String() {
		case "up", "k":
			if p.choice > 0 {
				p.choice--
			}
		case "down", "j":
			if p.choice < len(pickerChoices)-1 {
				p.choice++
			}
		case "1", "2", "3", "4", "5":
			p.choice = int(msg.String()[0] - '1')
			p.confirmKind()
		case "enter":
			p.confirmKind()
		}
		return nil

	case stageFields:
		switch msg.String() {
		case "enter":
			cur := &p.fields[p.index]
			if strings.TrimSpace(cur.input.Value()) == "" && !cur.optional {
				return nil
			}
			cur.input.Blur()
			if p.index+1 < len(p.fields) {
				p.index++
				return p.fields[p.index].input.Focus()
			}
			p.finish()
			return nil
		default:
			var cmd tea.Cmd
			p.fields[p.index].input, cmd = p.fields[p.index].input.Update(msg)
			return cmd
		}
	}
	return nil
}

func (p *picker) confirmKind() {
	p.fields = p.fieldsFor(p.choice)
	if len(p.fields) == 0 {
		// Local shell needs no target.
		p.done = true
		p.result = pickerResult{kind: session.Kind{Type: session.Local}}
		return
	}
	p.stage = stageFields
	p.index = 0
	p.loadSuggestions()
	p.fields[0].input.Focus()
}

// loadSuggestions fills the target fields with names the discovery
// backend knows about. Best effort: on error the fields stay plain
// text inputs.
func (p *picker) loadSuggestions() {
	if p.disc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	suggest := func(label string, values []string) {
		if len(values) == 0 {
			return
		}
		for i := range p.fields {
			if p.fields[i].label == label {
				p.fields[i].input.ShowSuggestions = true
				p.fields[i].input.SetSuggestions(values)
			}
		}
	}

	switch p.choice {
	case 0:
		if clusters, err := p.disc.ListClusters(ctx, "", ""); err == nil {
			names := make([]string, 0, len(clusters))
			for _, c := range clusters {
				names = append(names, c.Name)
			}
			suggest("cluster", names)
		}
		if tasks, err := p.disc.ListTasks(ctx, "", "", ""); err == nil {
			arns := make([]string, 0, len(tasks))
			var containers []string
			for _, t := range tasks {
				arns = append(arns, t.ARN)
				containers = append(containers, t.Containers...)
			}
			suggest("task", arns)
			suggest("container", containers)
		}
	case 1, 2:
		if instances, err := p.disc.ListInstances(ctx, "", ""); err == nil {
			ids := make([]string, 0, len(instances))
			for _, inst := range instances {
				ids = append(ids, inst.ID)
			}
			suggest("instance / host", ids)
		}
	case 4:
		if groups, err := p.disc.ListLogGroups(ctx, "", ""); err == nil {
			names := make([]string, 0, len(groups))
			for _, g := range groups {
				names = append(names, g.Name)
			}
			suggest("log group", names)
		}
	}
}

func (p *picker) value(i int) string {
	return strings.TrimSpace(p.fields[i].input.Value())
}

func (p *picker) finish() {
	switch p.choice {
	case 0:
		p.result.kind = session.Kind{
			Type:      session.ContainerExec,
			Cluster:   p.value(0),
			Task:      p.value(1),
			Container: p.value(2),
			Profile:   p.value(3),
			Region:    p.value(4),
		}
	case 1:
		p.result.kind = session.Kind{
			Type:    session.RemoteShell,
			HostRef: p.value(0),
			Profile: p.value(1),
			Region:  p.value(2),
		}
	case 2:
		local, _ := strconv.Atoi(p.value(1))
		remote, _ := strconv.Atoi(p.value(2))
		p.result.kind = session.Kind{
			Type:       session.PortForward,
			HostRef:    p.value(0),
			LocalPort:  local,
			RemotePort: remote,
			RemoteHost: p.value(3),
			Profile:    p.value(4),
			Region:     p.value(5),
		}
	case 4:
		p.result.logGroup = p.value(0)
		p.result.filter = p.value(1)
	}
	p.done = true
}

// View renders the overlay body.
func (p *picker) View() string {
	var b strings.Builder
	switch p.stage {
	case stageKind:
		b.WriteString("New session\n\n")
		for i, c := range pickerChoices {
			cursor := "  "
			line := c
			if i == p.choice {
				cursor = "> "
				line = lipgloss.NewStyle().Foreground(colorAccent).Render(c)
			}
			b.WriteString(cursor + strconv.Itoa(i+1) + ". " + line + "\n")
		}
		b.WriteString("\n" + stylePickerLabel.Render("enter: select  esc: cancel"))
	case stageFields:
		b.WriteString(pickerChoices[p.choice] + "\n\n")
		for i, f := range p.fields {
			marker := "  "
			if i == p.index {
				marker = "> "
			}
			label := f.label
			if f.optional {
				label += " (optional)"
			}
			b.WriteString(marker + stylePickerLabel.Render(label+": ") + f.input.View() + "\n")
		}
		b.WriteString("\n" + stylePickerLabel.Render("enter: next  esc: cancel"))
	}
	return styleOverlay.Render(b.String())
}
