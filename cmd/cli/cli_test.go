package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/flowbaker/signalwatch/internal/workflow"
	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/flowbaker/signalwatch/pkg/integrations/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func TestWorkflowRender(t *testing.T) {
	out, err := execute(t, "workflow", "render")
	require.NoError(t, err)

	w, err := workflow.Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, workflow.Default(), w)
}

func TestWorkflowRenderThenCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.yml")

	_, err := execute(t, "workflow", "render", "--output", path)
	require.NoError(t, err)

	out, err := execute(t, "workflow", "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
}

func TestWorkflowCheck_Violations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.yml")
	doc := `on:
  schedule:
    - cron: '0 * * * *'
jobs:
  monitor:
    runs-on: ubuntu-latest
    steps:
      - run: go run ./cmd run
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	out, err := execute(t, "workflow", "check", path)
	require.Error(t, err)

	assert.Contains(t, out, "workflow_dispatch trigger is missing")
	assert.Contains(t, out, "schedule:")
	assert.Contains(t, out, "TELEGRAM_TOKEN is not passed")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "signalwatch")
}

// withoutConfig leaves LoadConfig nothing but its defaults.
func withoutConfig(t *testing.T) {
	t.Helper()

	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	for _, env := range []string{"MONGODB_URI", "CLASSIFIER", "GROQ_API_TOKEN", "HF_API_TOKEN", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "CONFIDENCE_THRESHOLD", "FETCH_MAX_ATTEMPTS"} {
		t.Setenv(env, "")
	}
}

func TestCommands_MissingConfigFails(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "run", args: []string{"run"}},
		{name: "checkpoint show", args: []string{"checkpoint", "show"}},
		{name: "checkpoint reset", args: []string{"checkpoint", "reset", "--to", "114000000000000001"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withoutConfig(t)

			_, err := execute(t, tt.args...)
			require.Error(t, err)

			assert.ErrorIs(t, err, domain.ErrMissingConfig)
			assert.Contains(t, err.Error(), "MONGODB_URI")
		})
	}
}

type brokenCheckpoints struct {
	*memory.CheckpointStore
}

func (brokenCheckpoints) Get(ctx context.Context) (string, error) {
	return "", errors.New("connection refused")
}

func TestShowCheckpoint(t *testing.T) {
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, showCheckpoint(ctx, &out, memory.NewCheckpointStore("")))
	assert.Contains(t, out.String(), "No checkpoint stored")

	out.Reset()
	require.NoError(t, showCheckpoint(ctx, &out, memory.NewCheckpointStore("114000000000000002")))
	assert.Equal(t, "114000000000000002\n", out.String())

	err := showCheckpoint(ctx, &out, brokenCheckpoints{memory.NewCheckpointStore("")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read checkpoint")
}

func TestResetCheckpoint(t *testing.T) {
	ctx := context.Background()
	store := memory.NewCheckpointStore("114000000000000002")

	require.NoError(t, resetCheckpoint(ctx, store, "114000000000000001"))
	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "114000000000000001", got)

	require.NoError(t, resetCheckpoint(ctx, store, ""))
	got, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}
