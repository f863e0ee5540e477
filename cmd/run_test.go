// cmd/run_test.go
package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"project_name=Apollo", "status=In Progress"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"project_name": "Apollo",
		"status":       "In Progress",
	}, params)
}

func TestParseParamsRejectsMalformedPair(t *testing.T) {
	_, err := parseParams([]string{"no-separator"})
	assert.Error(t, err)

	_, err = parseParams([]string{"=value"})
	assert.Error(t, err)
}

func TestParseParamsEmpty(t *testing.T) {
	params, err := parseParams(nil)
	require.NoError(t, err)
	assert.Nil(t, params)
}

func TestCollectTasksSingleFromFlags(t *testing.T) {
	cmd := newRunCmd()
	require.NoError(t, cmd.Flags().Set("objective", "Create a new project named Apollo"))
	require.NoError(t, cmd.Flags().Set("param", "project_name=Apollo"))

	tasks, err := collectTasks(cmd, []string{"tracker.test"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	assert.NotEmpty(t, tasks[0].ID)
	assert.Equal(t, "https://tracker.test", tasks[0].StartURL)
	assert.Equal(t, "Apollo", tasks[0].Parameters["project_name"])
}

func TestCollectTasksRequiresObjectiveOrFile(t *testing.T) {
	cmd := newRunCmd()
	_, err := collectTasks(cmd, []string{"https://tracker.test"})
	assert.ErrorContains(t, err, "--objective or --tasks")
}

func TestCollectTasksFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	payload := `[
		{"objective": "Create a new project named Apollo", "start_url": "https://tracker.test", "parameters": {"project_name": "Apollo"}},
		{"id": "fixed-id", "objective": "Filter issues by status", "parameters": {"filter": "Done"}}
	]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	cmd := newRunCmd()
	require.NoError(t, cmd.Flags().Set("tasks", path))

	tasks, err := collectTasks(cmd, []string{"https://fallback.test"})
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.NotEmpty(t, tasks[0].ID)
	assert.Equal(t, "https://tracker.test", tasks[0].StartURL)
	// The second task has no URL of its own and inherits the argument.
	assert.Equal(t, "fixed-id", tasks[1].ID)
	assert.Equal(t, "https://fallback.test", tasks[1].StartURL)
}

func TestCollectTasksFileMissingURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"objective": "look around"}]`), 0o644))

	cmd := newRunCmd()
	require.NoError(t, cmd.Flags().Set("tasks", path))

	_, err := collectTasks(cmd, nil)
	assert.ErrorContains(t, err, "no start URL")
}
