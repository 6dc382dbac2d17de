package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func properties(violations []Violation) []Property {
	var out []Property
	for _, v := range violations {
		out = append(out, v.Property)
	}
	return out
}

func withMonitorJob(w Workflow, mutate func(j *Job)) Workflow {
	job := w.Jobs[DefaultJobID]

	steps := make([]Step, len(job.Steps))
	copy(steps, job.Steps)
	job.Steps = steps

	mutate(&job)
	w.Jobs = map[string]Job{DefaultJobID: job}

	return w
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(w Workflow) Workflow
		want   []Property
	}{
		{
			name:   "default",
			mutate: func(w Workflow) Workflow { return w },
		},
		{
			name: "equivalent five minute schedules",
			mutate: func(w Workflow) Workflow {
				w.On.Schedule = []Schedule{{Cron: "0-55/5 * * * *"}}
				return w
			},
		},
		{
			name: "two interleaved ten minute schedules",
			mutate: func(w Workflow) Workflow {
				w.On.Schedule = []Schedule{{Cron: "*/10 * * * *"}, {Cron: "5-55/10 * * * *"}}
				return w
			},
		},
		{
			name: "ten minute schedule",
			mutate: func(w Workflow) Workflow {
				w.On.Schedule = []Schedule{{Cron: "*/10 * * * *"}}
				return w
			},
			want: []Property{PropertySchedule},
		},
		{
			name: "business hours only",
			mutate: func(w Workflow) Workflow {
				w.On.Schedule = []Schedule{{Cron: "*/5 9-17 * * *"}}
				return w
			},
			want: []Property{PropertySchedule},
		},
		{
			name: "january only",
			mutate: func(w Workflow) Workflow {
				w.On.Schedule = []Schedule{{Cron: "*/5 * * 1 *"}}
				return w
			},
			want: []Property{PropertySchedule},
		},
		{
			name: "skips the 31st",
			mutate: func(w Workflow) Workflow {
				w.On.Schedule = []Schedule{{Cron: "*/5 * 1-30 * *"}}
				return w
			},
			want: []Property{PropertySchedule},
		},
		{
			name: "weekdays only",
			mutate: func(w Workflow) Workflow {
				w.On.Schedule = []Schedule{{Cron: "*/5 * * * 1-5"}}
				return w
			},
			want: []Property{PropertySchedule},
		},
		{
			name: "day split across two entries",
			mutate: func(w Workflow) Workflow {
				w.On.Schedule = []Schedule{{Cron: "*/5 0-11 * * *"}, {Cron: "*/5 12-23 * * *"}}
				return w
			},
		},
		{
			name: "unparseable cron",
			mutate: func(w Workflow) Workflow {
				w.On.Schedule = []Schedule{{Cron: "every 5 minutes"}}
				return w
			},
			want: []Property{PropertySchedule},
		},
		{
			name: "no manual dispatch",
			mutate: func(w Workflow) Workflow {
				w.On.WorkflowDispatch = false
				return w
			},
			want: []Property{PropertyTriggers},
		},
		{
			name: "secret renamed",
			mutate: func(w Workflow) Workflow {
				return withMonitorJob(w, func(j *Job) {
					env := map[string]string{}
					for k, v := range j.Steps[3].Env {
						env[k] = v
					}
					env["CHAT_ID"] = "${{ secrets.TELEGRAM_CHAT }}"
					j.Steps[3].Env = env
				})
			},
			want: []Property{PropertySecrets},
		},
		{
			name: "secrets at job level",
			mutate: func(w Workflow) Workflow {
				return withMonitorJob(w, func(j *Job) {
					j.Env = j.Steps[3].Env
					j.Steps[3].Env = nil
				})
			},
		},
		{
			name: "secret missing",
			mutate: func(w Workflow) Workflow {
				return withMonitorJob(w, func(j *Job) {
					j.Steps[3].Env = map[string]string{"TELEGRAM_TOKEN": SecretRef("TELEGRAM_TOKEN")}
				})
			},
			want: []Property{PropertySecrets, PropertySecrets, PropertySecrets, PropertySecrets},
		},
		{
			name: "monitor runs twice",
			mutate: func(w Workflow) Workflow {
				return withMonitorJob(w, func(j *Job) {
					j.Steps = append(j.Steps, j.Steps[3])
				})
			},
			want: []Property{PropertyMonitorStep},
		},
		{
			name: "no monitor step",
			mutate: func(w Workflow) Workflow {
				return withMonitorJob(w, func(j *Job) {
					j.Steps = j.Steps[:3]
				})
			},
			want: []Property{PropertyMonitorStep},
		},
		{
			name: "install after monitor",
			mutate: func(w Workflow) Workflow {
				return withMonitorJob(w, func(j *Job) {
					j.Steps[2], j.Steps[3] = j.Steps[3], j.Steps[2]
				})
			},
			want: []Property{PropertyStepOrder},
		},
		{
			name: "setup before checkout",
			mutate: func(w Workflow) Workflow {
				return withMonitorJob(w, func(j *Job) {
					j.Steps[0], j.Steps[1] = j.Steps[1], j.Steps[0]
				})
			},
			want: []Property{PropertyStepOrder},
		},
		{
			name: "step skipped on schedule",
			mutate: func(w Workflow) Workflow {
				return withMonitorJob(w, func(j *Job) {
					j.Steps[2].If = "github.event_name == 'workflow_dispatch'"
				})
			},
			want: []Property{PropertyTriggerNeutral},
		},
		{
			name: "job conditioned on schedule",
			mutate: func(w Workflow) Workflow {
				return withMonitorJob(w, func(j *Job) {
					j.If = "github.event.schedule != ''"
				})
			},
			want: []Property{PropertyTriggerNeutral},
		},
		{
			name: "unrelated condition",
			mutate: func(w Workflow) Workflow {
				return withMonitorJob(w, func(j *Job) {
					j.If = "github.repository == 'flowbaker/signalwatch'"
				})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.mutate(Default()))
			assert.Equal(t, tt.want, properties(got), "%v", got)
		})
	}
}

func TestIsSecretRef(t *testing.T) {
	assert.True(t, isSecretRef("${{ secrets.CHAT_ID }}", "CHAT_ID"))
	assert.True(t, isSecretRef("${{secrets.CHAT_ID}}", "CHAT_ID"))
	assert.False(t, isSecretRef("${{ secrets.CHAT_ID_2 }}", "CHAT_ID"))
	assert.False(t, isSecretRef("literal", "CHAT_ID"))
}

func TestViolation_Error(t *testing.T) {
	v := Violation{Property: PropertySchedule, Message: "too slow"}
	assert.Equal(t, "schedule: too slow", v.Error())
}
