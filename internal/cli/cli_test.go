package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpilot/internal/config"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// testEnv isolates config and database in temp dirs and returns a runner that
// prepends --db and decodes the JSON envelope.
func testEnv(t *testing.T) (dir string, run func(args ...string) map[string]any) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)
	t.Setenv(config.EnvDB, "")
	t.Setenv(config.EnvFormat, "")
	t.Setenv(config.EnvLogLevel, "")
	db := filepath.Join(dir, "test.db")

	run = func(args ...string) map[string]any {
		t.Helper()
		stdout, stderr, err := runCLI(t, append([]string{"--db", db}, args...))
		require.NoError(t, err, "taskpilot %v\nstderr:\n%s", args, stderr)
		var env map[string]any
		require.NoError(t, json.Unmarshal(stdout, &env), "stdout:\n%s", stdout)
		require.Contains(t, env, "data")
		return env
	}
	return dir, run
}

func runErr(t *testing.T, dir string, args ...string) string {
	t.Helper()
	_, stderr, err := runCLI(t, append([]string{"--db", filepath.Join(dir, "test.db")}, args...))
	require.Error(t, err)
	return string(stderr)
}

func dataMap(t *testing.T, env map[string]any) map[string]any {
	t.Helper()
	m, ok := env["data"].(map[string]any)
	require.True(t, ok, "data is %T", env["data"])
	return m
}

func idOf(t *testing.T, env map[string]any) string {
	t.Helper()
	id, ok := dataMap(t, env)["id"].(float64)
	require.True(t, ok)
	return jsonNumber(id)
}

func jsonNumber(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

// field collects one field from every element of a data array.
func field(t *testing.T, env map[string]any, name string) []any {
	t.Helper()
	xs, ok := env["data"].([]any)
	require.True(t, ok, "data is %T", env["data"])
	out := make([]any, 0, len(xs))
	for _, x := range xs {
		out = append(out, x.(map[string]any)[name])
	}
	return out
}

func TestInitWritesConfigOnce(t *testing.T) {
	dir, run := testEnv(t)

	out := dataMap(t, run("init", "--write-config"))
	assert.Equal(t, float64(1), out["schemaVersion"])
	assert.Equal(t, true, out["configWritten"])
	assert.Equal(t, filepath.Join(dir, "config.yaml"), out["config"])
	_, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	out = dataMap(t, run("init", "--write-config"))
	assert.Equal(t, false, out["configWritten"])
}

func TestProjectsMove(t *testing.T) {
	dir, run := testEnv(t)
	for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
		run("projects", "create", "--name", name)
	}

	res := dataMap(t, run("projects", "move", "3", "--to", "0"))
	assert.Equal(t, true, res["moved"])
	assert.Equal(t, float64(2), res["from"])
	assert.Equal(t, float64(0), res["to"])
	assert.Equal(t, []any{float64(3), float64(1), float64(2)}, res["order"])

	assert.Equal(t, []any{"Charlie", "Alpha", "Bravo"}, field(t, run("projects", "list"), "name"))

	// Moving down takes the same path.
	run("projects", "move", "3", "--to", "2")
	assert.Equal(t, []any{"Alpha", "Bravo", "Charlie"}, field(t, run("projects", "list"), "name"))

	// In place is not a move.
	res = dataMap(t, run("projects", "move", "1", "--to", "0"))
	assert.Equal(t, false, res["moved"])

	assert.Contains(t, runErr(t, dir, "projects", "move", "1", "--to", "3"), "out of range")
	assert.Contains(t, runErr(t, dir, "projects", "move", "99", "--to", "0"), "project not found: 99")
}

func TestProjectsMoveCountsVisibleOnly(t *testing.T) {
	_, run := testEnv(t)
	for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
		run("projects", "create", "--name", name)
	}
	run("projects", "archive", "2")

	res := dataMap(t, run("projects", "move", "3", "--to", "0"))
	assert.Equal(t, []any{float64(3), float64(1)}, res["order"])

	assert.Equal(t, []any{"Charlie", "Alpha", "Bravo"}, field(t, run("projects", "list", "--archived"), "name"))
}

func TestProjectsListSortedIsNotReorderable(t *testing.T) {
	_, run := testEnv(t)
	run("projects", "create", "--name", "Bravo")
	run("projects", "create", "--name", "Alpha", "--description", "first letter")

	env := run("projects", "list", "--sort", "name")
	assert.Equal(t, []any{"Alpha", "Bravo"}, field(t, env, "name"))
	meta := env["meta"].(map[string]any)
	assert.Equal(t, false, meta["canReorder"])
	assert.Equal(t, "name", meta["sort"])

	env = run("projects", "list", "--query", "letter")
	assert.Equal(t, []any{"Alpha"}, field(t, env, "name"))

	env = run("projects", "list")
	assert.Equal(t, true, env["meta"].(map[string]any)["canReorder"])
}

func TestProjectsUpdate(t *testing.T) {
	dir, run := testEnv(t)
	id := idOf(t, run("projects", "create", "--name", "Alpha"))

	out := dataMap(t, run("projects", "update", id, "--name", "Renamed", "--color", "#336699"))
	assert.Equal(t, "Renamed", out["name"])
	assert.Equal(t, "#336699", out["color"])

	assert.Contains(t, runErr(t, dir, "projects", "update", id), "nothing to update")
	assert.Contains(t, runErr(t, dir, "projects", "update", "abc", "--name", "x"), "invalid project id")
}

func TestTasksLifecycle(t *testing.T) {
	dir, run := testEnv(t)
	pid := idOf(t, run("projects", "create", "--name", "Alpha"))
	t1 := idOf(t, run("tasks", "create", "--project", pid, "--title", "one", "--priority", "high", "--due", "2026-11-01"))
	run("tasks", "create", "--project", pid, "--title", "two")
	t3 := idOf(t, run("tasks", "create", "--project", pid, "--title", "three"))

	sub := dataMap(t, run("tasks", "create", "--parent", t1, "--title", "sub"))
	assert.Equal(t, float64(1), sub["hierarchyLevel"])
	run("tasks", "status", idOf(t, map[string]any{"data": sub}), "done")

	show := run("tasks", "show", t1)
	assert.Equal(t, float64(100), show["meta"].(map[string]any)["progress"])
	assert.Len(t, dataMap(t, show)["subTasks"], 1)

	res := dataMap(t, run("tasks", "move", t3, "--to", "0"))
	assert.Equal(t, true, res["moved"])
	assert.Equal(t, []any{"three", "one", "two"}, field(t, run("tasks", "list", "--project", pid), "title"))

	env := run("tasks", "list", "--project", pid, "--sort", "priority")
	assert.Equal(t, "one", field(t, env, "title")[0])
	assert.Equal(t, false, env["meta"].(map[string]any)["canReorder"])

	assert.Contains(t, runErr(t, dir, "tasks", "move", idOf(t, map[string]any{"data": sub}), "--to", "0"), "not a top-level")
	assert.Contains(t, runErr(t, dir, "tasks", "status", t1, "bogus"), "invalid status")
	assert.Contains(t, runErr(t, dir, "tasks", "create", "--title", "orphan"), "--project or --parent")

	run("tasks", "delete", t1)
	assert.Contains(t, runErr(t, dir, "tasks", "show", t1), "task not found")
}

func TestMilestonesAndTypesMove(t *testing.T) {
	_, run := testEnv(t)
	pid := idOf(t, run("projects", "create", "--name", "Alpha"))
	run("milestones", "create", "--project", pid, "--name", "M1")
	m2 := idOf(t, run("milestones", "create", "--project", pid, "--name", "M2", "--due", "2026-12-24"))

	run("milestones", "move", m2, "--to", "0")
	assert.Equal(t, []any{"M2", "M1"}, field(t, run("milestones", "list", "--project", pid), "name"))

	bug := idOf(t, run("types", "create", "--name", "Bug"))
	run("types", "create", "--name", "Feature")
	child := dataMap(t, run("types", "create", "--name", "Regression", "--parent", bug))
	assert.Equal(t, float64(1), child["level"])

	run("types", "move", bug, "--to", "2")
	assert.Equal(t, []any{"Feature", "Regression", "Bug"}, field(t, run("types", "list"), "name"))
}

func TestFormatEDN(t *testing.T) {
	dir, run := testEnv(t)
	run("projects", "create", "--name", "Alpha")

	stdout, _, err := runCLI(t, []string{"--db", filepath.Join(dir, "test.db"), "--format", "edn", "projects", "list"})
	require.NoError(t, err)
	out := string(stdout)
	assert.True(t, strings.HasPrefix(out, "{:data [{"), out)
	assert.Contains(t, out, `:name "Alpha"`)
	assert.Contains(t, out, ":sort-order 0")
	assert.Contains(t, out, ":can-reorder true")

	_, _, err = runCLI(t, []string{"--db", filepath.Join(dir, "test.db"), "--format", "xml", "projects", "list"})
	assert.Error(t, err)
}

func TestDBBackup(t *testing.T) {
	dir, run := testEnv(t)
	run("projects", "create", "--name", "Alpha")

	dest := filepath.Join(dir, "copy", "backup.db")
	out := dataMap(t, run("db", "backup", dest))
	assert.Equal(t, dest, out["backup"])
	_, err := os.Stat(dest)
	require.NoError(t, err)

	assert.Contains(t, runErr(t, dir, "db", "backup", dest), "exists")

	run("db", "vacuum")
}

func TestDocs(t *testing.T) {
	dir, run := testEnv(t)

	topics := dataMap(t, run("docs"))["topics"]
	assert.Equal(t, []any{"config", "output", "reordering"}, topics)

	stdout, _, err := runCLI(t, []string{"--db", filepath.Join(dir, "test.db"), "docs", "reordering", "--raw"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(stdout), "# Reordering"))

	assert.Contains(t, runErr(t, dir, "docs", "nope"), "unknown docs topic")
}
