package workflow

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Property string

const (
	PropertyTriggers       Property = "triggers"
	PropertySchedule       Property = "schedule"
	PropertySecrets        Property = "secrets"
	PropertyMonitorStep    Property = "monitor-step"
	PropertyStepOrder      Property = "step-order"
	PropertyTriggerNeutral Property = "trigger-neutral"
)

const ScheduleInterval = 5 * time.Minute

// Violation is one broken property.
type Violation struct {
	Property Property
	Message  string
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Property, v.Message)
}

type stepKind int

const (
	stepOther stepKind = iota
	stepCheckout
	stepSetup
	stepInstall
	stepMonitor
)

var (
	installCommands = []string{InstallCommand, "go build", "pip install"}
	monitorCommands = []string{MonitorCommand, "signalwatch run"}

	eventConditionPattern = regexp.MustCompile(`github\.event_name|github\.event\.schedule|github\.event\.inputs`)
)

func classify(step Step) stepKind {
	switch {
	case strings.HasPrefix(step.Uses, "actions/checkout@"):
		return stepCheckout
	case strings.HasPrefix(step.Uses, "actions/setup-"):
		return stepSetup
	}

	run := strings.TrimSpace(step.Run)
	for _, cmd := range monitorCommands {
		if strings.Contains(run, cmd) {
			return stepMonitor
		}
	}
	for _, cmd := range installCommands {
		if strings.Contains(run, cmd) {
			return stepInstall
		}
	}

	return stepOther
}

// Validate checks the trigger, schedule, secrets and step-order contract
// and returns every violation found. An empty result means the workflow
// is sound.
func Validate(w Workflow) []Violation {
	var violations []Violation

	violations = append(violations, validateTriggers(w.On)...)
	violations = append(violations, validateSchedule(w.On.Schedule)...)

	jobID, job, stepIndex, more := validateMonitorStep(w, &violations)
	if stepIndex < 0 {
		return violations
	}

	if !more {
		violations = append(violations, validateSecrets(w, job, job.Steps[stepIndex])...)
		violations = append(violations, validateOrder(jobID, job, stepIndex)...)
	}

	violations = append(violations, validateTriggerNeutral(w)...)

	return violations
}

func validateTriggers(on Triggers) []Violation {
	var violations []Violation

	if !on.WorkflowDispatch {
		violations = append(violations, Violation{PropertyTriggers, "workflow_dispatch trigger is missing"})
	}
	if len(on.Schedule) == 0 {
		violations = append(violations, Violation{PropertyTriggers, "schedule trigger is missing"})
	}

	return violations
}

// validateSchedule walks every fire time of a full leap year across all
// cron entries and requires each gap to be exactly ScheduleInterval.
// The year covers every month, day of month and weekday.
func validateSchedule(schedules []Schedule) []Violation {
	if len(schedules) == 0 {
		return nil
	}

	parsed := make([]cron.Schedule, 0, len(schedules))
	for _, s := range schedules {
		sched, err := cron.ParseStandard(s.Cron)
		if err != nil {
			return []Violation{{PropertySchedule, fmt.Sprintf("cron %q does not parse: %v", s.Cron, err)}}
		}
		parsed = append(parsed, sched)
	}

	next := func(after time.Time) time.Time {
		var earliest time.Time
		for _, s := range parsed {
			t := s.Next(after)
			if earliest.IsZero() || t.Before(earliest) {
				earliest = t
			}
		}
		return earliest
	}

	start := time.Date(2028, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	prev := next(start.Add(-time.Second))
	if prev.IsZero() || prev.Sub(start) >= ScheduleInterval {
		return []Violation{{PropertySchedule, fmt.Sprintf("schedule does not fire every %s", ScheduleInterval)}}
	}

	for prev.Before(end) {
		t := next(prev)
		if gap := t.Sub(prev); gap != ScheduleInterval {
			return []Violation{{PropertySchedule, fmt.Sprintf(
				"schedule fires %s after %s, want every %s", gap, prev.Format("Jan 2 15:04"), ScheduleInterval)}}
		}
		prev = t
	}

	return nil
}

// validateMonitorStep finds the single monitor step. more reports that
// more than one was found.
func validateMonitorStep(w Workflow, violations *[]Violation) (string, Job, int, bool) {
	type hit struct {
		jobID string
		index int
	}

	var hits []hit
	for _, jobID := range sortedKeys(w.Jobs) {
		for i, step := range w.Jobs[jobID].Steps {
			if classify(step) == stepMonitor {
				hits = append(hits, hit{jobID, i})
			}
		}
	}

	switch len(hits) {
	case 0:
		*violations = append(*violations, Violation{PropertyMonitorStep, "no step runs the monitor"})
		return "", Job{}, -1, false
	case 1:
		return hits[0].jobID, w.Jobs[hits[0].jobID], hits[0].index, false
	default:
		*violations = append(*violations, Violation{PropertyMonitorStep,
			fmt.Sprintf("%d steps run the monitor, want exactly one", len(hits))})
		return hits[0].jobID, w.Jobs[hits[0].jobID], hits[0].index, true
	}
}

// validateSecrets resolves the monitor step's env the way the runner
// does: workflow env, then job env, then step env.
func validateSecrets(w Workflow, job Job, step Step) []Violation {
	env := map[string]string{}
	for _, layer := range []map[string]string{w.Env, job.Env, step.Env} {
		for k, v := range layer {
			env[k] = v
		}
	}

	var violations []Violation
	for _, name := range SecretNames {
		value, ok := env[name]
		if !ok {
			violations = append(violations, Violation{PropertySecrets, fmt.Sprintf("%s is not passed to the monitor step", name)})
			continue
		}

		if !isSecretRef(value, name) {
			violations = append(violations, Violation{PropertySecrets,
				fmt.Sprintf("%s must be %s, got %q", name, SecretRef(name), value)})
		}
	}

	return violations
}

func isSecretRef(value, name string) bool {
	pattern := `^\$\{\{\s*secrets\.` + regexp.QuoteMeta(name) + `\s*\}\}$`
	return regexp.MustCompile(pattern).MatchString(strings.TrimSpace(value))
}

func validateOrder(jobID string, job Job, monitorIndex int) []Violation {
	first := map[stepKind]int{}
	for i, step := range job.Steps[:monitorIndex] {
		kind := classify(step)
		if _, seen := first[kind]; !seen {
			first[kind] = i
		}
	}

	required := []struct {
		kind stepKind
		name string
	}{
		{stepCheckout, "checkout"},
		{stepSetup, "environment setup"},
		{stepInstall, "dependency install"},
	}

	var violations []Violation
	prev, prevName := -1, ""

	for _, r := range required {
		idx, ok := first[r.kind]
		if !ok {
			violations = append(violations, Violation{PropertyStepOrder,
				fmt.Sprintf("job %s has no %s step before the monitor step", jobID, r.name)})
			continue
		}

		if idx < prev {
			violations = append(violations, Violation{PropertyStepOrder,
				fmt.Sprintf("job %s runs %s before %s", jobID, r.name, prevName)})
		}

		prev, prevName = idx, r.name
	}

	return violations
}

// validateTriggerNeutral rejects conditions that let dispatch and
// schedule runs take different step sequences.
func validateTriggerNeutral(w Workflow) []Violation {
	var violations []Violation

	for _, jobID := range sortedKeys(w.Jobs) {
		job := w.Jobs[jobID]

		if eventConditionPattern.MatchString(job.If) {
			violations = append(violations, Violation{PropertyTriggerNeutral,
				fmt.Sprintf("job %s is conditioned on the trigger: %s", jobID, job.If)})
		}

		for i, step := range job.Steps {
			if eventConditionPattern.MatchString(step.If) {
				violations = append(violations, Violation{PropertyTriggerNeutral,
					fmt.Sprintf("job %s step %d (%s) is conditioned on the trigger: %s", jobID, i+1, step.Name, step.If)})
			}
		}
	}

	return violations
}

func sortedKeys(jobs map[string]Job) []string {
	keys := make([]string, 0, len(jobs))
	for k := range jobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// Sound is shorthand for len(Validate(w)) == 0.
func Sound(w Workflow) bool {
	return len(Validate(w)) == 0
}
