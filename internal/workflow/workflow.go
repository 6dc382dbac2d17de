// Package workflow models the GitHub Actions document that drives the
// monitor in CI, renders the canonical one and checks any document
// against the trigger and secrets contract.
package workflow

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSchedule = "*/5 * * * *"
	DefaultJobID    = "monitor"

	// MonitorCommand is how CI invokes one monitor pass.
	MonitorCommand = "go run ./cmd run"
	InstallCommand = "go mod download"

	header = "# Generated by `signalwatch workflow render`. Check with `signalwatch workflow check`.\n"
)

// SecretNames are handed to the monitor step under the same env names.
var SecretNames = []string{
	"TELEGRAM_TOKEN",
	"CHAT_ID",
	"MONGODB_URI",
	"HF_API_TOKEN",
	"GROQ_API_TOKEN",
}

type Workflow struct {
	Name        string            `yaml:"name,omitempty"`
	On          Triggers          `yaml:"on"`
	Concurrency *Concurrency      `yaml:"concurrency,omitempty"`
	Env         map[string]string `yaml:"env,omitempty"`
	Jobs        map[string]Job    `yaml:"jobs"`
}

type Concurrency struct {
	Group            string `yaml:"group"`
	CancelInProgress bool   `yaml:"cancel-in-progress"`
}

type Schedule struct {
	Cron string `yaml:"cron"`
}

// Triggers is the `on:` block. Only the two events the monitor uses are
// modelled; other events are ignored.
type Triggers struct {
	WorkflowDispatch bool
	Schedule         []Schedule
}

type Job struct {
	Name           string            `yaml:"name,omitempty"`
	If             string            `yaml:"if,omitempty"`
	RunsOn         string            `yaml:"runs-on"`
	TimeoutMinutes int               `yaml:"timeout-minutes,omitempty"`
	Env            map[string]string `yaml:"env,omitempty"`
	Steps          []Step            `yaml:"steps"`
}

type Step struct {
	Name string            `yaml:"name,omitempty"`
	If   string            `yaml:"if,omitempty"`
	Uses string            `yaml:"uses,omitempty"`
	With map[string]string `yaml:"with,omitempty"`
	Run  string            `yaml:"run,omitempty"`
	Env  map[string]string `yaml:"env,omitempty"`
}

type triggersDocument struct {
	WorkflowDispatch *struct{}  `yaml:"workflow_dispatch,omitempty"`
	Schedule         []Schedule `yaml:"schedule,omitempty"`
}

func (t Triggers) MarshalYAML() (interface{}, error) {
	doc := triggersDocument{Schedule: t.Schedule}
	if t.WorkflowDispatch {
		doc.WorkflowDispatch = &struct{}{}
	}

	return doc, nil
}

// UnmarshalYAML accepts the three shapes GitHub allows for `on:`: a
// single event name, a list of names, or a map of event to config. A
// bare `workflow_dispatch:` key with a null value still counts.
func (t *Triggers) UnmarshalYAML(value *yaml.Node) error {
	*t = Triggers{}

	switch value.Kind {
	case yaml.ScalarNode:
		t.WorkflowDispatch = value.Value == "workflow_dispatch"
	case yaml.SequenceNode:
		for _, n := range value.Content {
			if n.Value == "workflow_dispatch" {
				t.WorkflowDispatch = true
			}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(value.Content); i += 2 {
			key, val := value.Content[i], value.Content[i+1]

			switch key.Value {
			case "workflow_dispatch":
				t.WorkflowDispatch = true
			case "schedule":
				if err := val.Decode(&t.Schedule); err != nil {
					return fmt.Errorf("invalid schedule trigger: %w", err)
				}
			}
		}
	default:
		return fmt.Errorf("unsupported `on` block at line %d", value.Line)
	}

	return nil
}

func SecretRef(name string) string {
	return fmt.Sprintf("${{ secrets.%s }}", name)
}

// Default is the canonical monitor workflow.
func Default() Workflow {
	env := make(map[string]string, len(SecretNames))
	for _, name := range SecretNames {
		env[name] = SecretRef(name)
	}

	return Workflow{
		Name: "Truth Social market monitor",
		On: Triggers{
			WorkflowDispatch: true,
			Schedule:         []Schedule{{Cron: DefaultSchedule}},
		},
		Concurrency: &Concurrency{
			Group:            "signalwatch-monitor",
			CancelInProgress: false,
		},
		Jobs: map[string]Job{
			DefaultJobID: {
				RunsOn:         "ubuntu-latest",
				TimeoutMinutes: 10,
				Steps: []Step{
					{
						Name: "Check out repository",
						Uses: "actions/checkout@v4",
					},
					{
						Name: "Set up Go",
						Uses: "actions/setup-go@v5",
						With: map[string]string{"go-version-file": "go.mod"},
					},
					{
						Name: "Install dependencies",
						Run:  InstallCommand,
					},
					{
						Name: "Run monitor",
						Run:  MonitorCommand,
						Env:  env,
					},
				},
			},
		},
	}
}

func Render(w Workflow) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(header)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(w); err != nil {
		return nil, fmt.Errorf("failed to render workflow: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to render workflow: %w", err)
	}

	return buf.Bytes(), nil
}

func Parse(data []byte) (Workflow, error) {
	var w Workflow

	if err := yaml.Unmarshal(data, &w); err != nil {
		return Workflow{}, fmt.Errorf("failed to parse workflow: %w", err)
	}

	return w, nil
}
