package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

// testEnv runs taskstore commands in-process against isolated directories.
type testEnv struct {
	t         *testing.T
	configDir string
	dataDir   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	return &testEnv{
		t:         t,
		configDir: filepath.Join(root, "config"),
		dataDir:   filepath.Join(root, "data"),
	}
}

// run executes one command line and returns its stdout.
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--config-dir", e.configDir, "--data-dir", e.dataDir))
	err := root.Execute()
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "taskstore %v", args)
	return out
}

// runJSON executes a command with --json and decodes its output into v.
func (e *testEnv) runJSON(v any, args ...string) {
	e.t.Helper()
	out := e.mustRun(append(args, "--json")...)
	require.NoError(e.t, json.Unmarshal([]byte(out), v), "decode output of %v: %s", args, out)
}

func (e *testEnv) addProject(name string) *types.Project {
	e.t.Helper()
	var p types.Project
	e.runJSON(&p, "project", "add", name)
	return &p
}

func (e *testEnv) addSection(projectID int64, name string) *types.Section {
	e.t.Helper()
	var s types.Section
	e.runJSON(&s, "section", "add", itoa(projectID), name)
	return &s
}

func (e *testEnv) addTask(sectionID int64, name string) *types.Task {
	e.t.Helper()
	var task types.Task
	e.runJSON(&task, "task", "add", name, "--section", itoa(sectionID))
	return &task
}

func (e *testEnv) addSubtask(parentID int64, name string) *types.Task {
	e.t.Helper()
	var task types.Task
	e.runJSON(&task, "task", "add", name, "--parent", itoa(parentID))
	return &task
}

func (e *testEnv) getTask(id int64) *types.Task {
	e.t.Helper()
	var task types.Task
	e.runJSON(&task, "task", "show", itoa(id))
	return &task
}

func (e *testEnv) listTasks(args ...string) []*types.Task {
	e.t.Helper()
	var tasks []*types.Task
	e.runJSON(&tasks, append([]string{"task", "list"}, args...)...)
	return tasks
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func names(tasks []*types.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Name
	}
	return out
}

func TestInitWritesConfigAndDatabase(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("init")
	assert.Contains(t, out, "schema v")

	data, err := os.ReadFile(filepath.Join(env.configDir, configFileExt))
	require.NoError(t, err)
	assert.Contains(t, string(data), "db_file: "+types.DefaultDBFile)
	assert.Contains(t, string(data), "log_level: warn")

	_, err = os.Stat(filepath.Join(env.dataDir, types.DefaultDBFile))
	assert.NoError(t, err)

	// A second init leaves the existing config untouched.
	require.NoError(t, os.WriteFile(filepath.Join(env.configDir, configFileExt), []byte("db_file: other.db\n"), 0o644))
	env.mustRun("init")
	_, err = os.Stat(filepath.Join(env.dataDir, "other.db"))
	assert.NoError(t, err)
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)

	assert.Contains(t, env.mustRun("version", "--short"), Version)
	assert.Contains(t, env.mustRun("version", "-o", "json"), Version)
}

func TestProjectCommands(t *testing.T) {
	env := newTestEnv(t)

	work := env.addProject("Work")
	home := env.addProject("Home")
	assert.Equal(t, int64(1), work.Index)
	assert.Equal(t, int64(2), home.Index)

	env.mustRun("project", "move", itoa(home.ID), "0")
	var projects []*types.Project
	env.runJSON(&projects, "project", "list")
	require.Len(t, projects, 3)
	assert.Equal(t, home.ID, projects[0].ID)

	// Out-of-range targets clamp to the end.
	env.mustRun("project", "move", itoa(home.ID), "99")
	env.runJSON(&projects, "project", "list")
	assert.Equal(t, home.ID, projects[2].ID)
	assert.Equal(t, int64(2), projects[2].Index)

	env.mustRun("project", "archive", itoa(work.ID))
	env.runJSON(&projects, "project", "list")
	assert.Len(t, projects, 2)
	env.runJSON(&projects, "project", "list", "--all")
	assert.Len(t, projects, 3)

	env.runJSON(&projects, "project", "find", "ork", "--all")
	require.Len(t, projects, 1)
	assert.Equal(t, work.ID, projects[0].ID)

	out := env.mustRun("project", "list", "--all")
	assert.Contains(t, out, "Home")
	assert.Contains(t, out, "archived")

	env.mustRun("project", "rm", itoa(work.ID))
	_, err := env.run("project", "show", itoa(work.ID))
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestSectionCommands(t *testing.T) {
	env := newTestEnv(t)

	work := env.addProject("Work")
	todo := env.addSection(work.ID, "Todo")
	done := env.addSection(work.ID, "Done")
	assert.Equal(t, int64(0), todo.Index)
	assert.Equal(t, int64(1), done.Index)

	env.mustRun("section", "move", itoa(done.ID), "0")
	var sections []*types.Section
	env.runJSON(&sections, "section", "list", itoa(work.ID))
	require.Len(t, sections, 2)
	assert.Equal(t, []int64{done.ID, todo.ID}, []int64{sections[0].ID, sections[1].ID})

	task := env.addTask(todo.ID, "write")
	home := env.addProject("Home")
	env.mustRun("section", "move", itoa(todo.ID), "--project", itoa(home.ID))
	assert.Equal(t, home.ID, env.getTask(task.ID).Project)

	env.runJSON(&sections, "section", "list", itoa(work.ID))
	require.Len(t, sections, 1)
	assert.Equal(t, int64(0), sections[0].Index)

	_, err := env.run("section", "move", itoa(todo.ID))
	assert.ErrorIs(t, err, errUsage)

	env.mustRun("section", "rm", itoa(todo.ID))
	_, err = env.run("task", "show", itoa(task.ID))
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestTaskOrdering(t *testing.T) {
	env := newTestEnv(t)

	work := env.addProject("Work")
	todo := env.addSection(work.ID, "Todo")
	a := env.addTask(todo.ID, "A")
	env.addTask(todo.ID, "B")
	c := env.addTask(todo.ID, "C")
	assert.Equal(t, int64(2), c.Position)
	assert.Equal(t, work.ID, c.Project)

	env.mustRun("task", "move", itoa(c.ID), "0")
	assert.Equal(t, []string{"C", "A", "B"}, names(env.listTasks("--section", itoa(todo.ID))))

	sub := env.addSubtask(a.ID, "A.1")
	assert.Equal(t, a.ID, sub.Parent)
	assert.Equal(t, todo.ID, sub.Section)
	assert.Equal(t, int64(0), sub.Position)

	env.mustRun("task", "move", itoa(sub.ID), "--top-level")
	lifted := env.getTask(sub.ID)
	assert.True(t, lifted.IsTopLevel())
	assert.Equal(t, int64(3), lifted.Position)

	env.mustRun("task", "move", itoa(sub.ID), "--parent", itoa(c.ID))
	reparented := env.getTask(sub.ID)
	assert.Equal(t, c.ID, reparented.Parent)
	assert.Equal(t, int64(0), reparented.Position)

	_, err := env.run("task", "move", itoa(c.ID), "--parent", itoa(sub.ID))
	assert.ErrorIs(t, err, types.ErrInvalidData)

	_, err = env.run("task", "move", itoa(c.ID))
	assert.ErrorIs(t, err, errUsage)

	assert.Equal(t, "ok\n", env.mustRun("check"))
}

func TestTaskMoveToSectionInAnotherProject(t *testing.T) {
	env := newTestEnv(t)

	work := env.addProject("Work")
	todo := env.addSection(work.ID, "Todo")
	task := env.addTask(todo.ID, "A")
	sub := env.addSubtask(task.ID, "A.1")

	env.mustRun("task", "move", itoa(task.ID), "--section", "1")
	moved := env.getTask(task.ID)
	assert.Equal(t, int64(1), moved.Section)
	assert.Equal(t, int64(1), moved.Project)
	assert.Equal(t, int64(0), moved.Position)
	assert.Equal(t, int64(1), env.getTask(sub.ID).Project)

	_, err := env.run("task", "move", itoa(sub.ID), "--section", itoa(todo.ID))
	assert.ErrorIs(t, err, errUsage)
}

func TestTaskDoneSuspendRestorePurge(t *testing.T) {
	env := newTestEnv(t)

	a := env.addTask(1, "A")
	child := env.addSubtask(a.ID, "A.1")
	b := env.addTask(1, "B")

	env.mustRun("task", "done", itoa(b.ID))
	assert.Equal(t, []string{"B"}, names(env.listTasks("--done")))
	env.mustRun("task", "done", itoa(b.ID), "--undo")
	assert.Empty(t, env.listTasks("--done"))

	env.mustRun("task", "suspend", itoa(a.ID))
	assert.True(t, env.getTask(child.ID).Suspended)
	assert.Equal(t, []string{"B"}, names(env.listTasks()))
	assert.Len(t, env.listTasks("--all"), 3)

	env.mustRun("task", "restore", itoa(a.ID))
	assert.False(t, env.getTask(child.ID).Suspended)

	env.mustRun("task", "suspend", itoa(a.ID))
	var purged map[string]int
	env.runJSON(&purged, "task", "purge")
	assert.Equal(t, 1, purged["purged"])
	assert.Equal(t, []string{"B"}, names(env.listTasks("--all")))
	assert.Equal(t, int64(0), env.getTask(b.ID).Position)
}

func TestTaskTreeFindAndEdit(t *testing.T) {
	env := newTestEnv(t)

	root := env.addTask(1, "release")
	first := env.addSubtask(root.ID, "write notes")
	second := env.addSubtask(root.ID, "tag build")
	leaf := env.addSubtask(first.ID, "proofread notes")

	env.mustRun("task", "edit", itoa(leaf.ID), "--date", "2024-05-01")
	var ids []int64
	env.runJSON(&ids, "task", "tree", itoa(root.ID))
	assert.Equal(t, []int64{root.ID, first.ID, second.ID, leaf.ID}, ids)
	env.runJSON(&ids, "task", "tree", itoa(root.ID), "--dated")
	assert.Equal(t, []int64{leaf.ID}, ids)

	out := env.mustRun("task", "tree", itoa(root.ID))
	assert.Contains(t, out, "    proofread notes")

	assert.Equal(t, []string{"write notes", "proofread notes"}, names(findTasks(env, "notes")))

	env.mustRun("task", "edit", itoa(first.ID), "--name", "write changelog", "-d", "short")
	edited := env.getTask(first.ID)
	assert.Equal(t, "write changelog", edited.Name)
	assert.Equal(t, "short", edited.Description)

	env.mustRun("task", "edit", itoa(leaf.ID), "--clear-date")
	assert.False(t, env.getTask(leaf.ID).HasDate())
}

func findTasks(env *testEnv, text string) []*types.Task {
	var tasks []*types.Task
	env.runJSON(&tasks, "task", "find", text)
	return tasks
}

func TestTaskAddValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run("task", "add", "orphan")
	assert.ErrorIs(t, err, errUsage)
	_, err = env.run("task", "add", "both", "--section", "1", "--parent", "1")
	assert.ErrorIs(t, err, errUsage)
	_, err = env.run("task", "add", "missing", "--section", "42")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = env.run("task", "show", "abc")
	assert.ErrorIs(t, err, types.ErrInvalidID)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestRecordCommands(t *testing.T) {
	env := newTestEnv(t)

	task := env.addTask(1, "focus")
	child := env.addSubtask(task.ID, "deep work")

	var rec types.Record
	env.runJSON(&rec, "record", "start", itoa(task.ID), "--at", "1000")
	assert.True(t, rec.Running())

	var running []*types.Record
	env.runJSON(&running, "record", "list", itoa(task.ID), "--running")
	require.Len(t, running, 1)

	env.runJSON(&rec, "record", "stop", itoa(rec.ID), "--at", "1100")
	assert.Equal(t, int64(100), rec.Duration)

	listing := env.mustRun("record", "list", itoa(task.ID))
	assert.Contains(t, listing, "END")
	assert.Contains(t, listing, formatTime(1000))
	assert.Contains(t, listing, formatTime(1100), "closed records show when they ended")

	_, err := env.run("record", "stop", itoa(rec.ID), "--at", "1200")
	assert.ErrorIs(t, err, types.ErrRecordClosed)

	env.mustRun("record", "log", itoa(child.ID), "90s", "--at", "5000")
	assert.Equal(t, "3m10s\n", env.mustRun("task", "duration", itoa(task.ID)))

	var closed []*types.Record
	env.runJSON(&closed, "record", "list", itoa(task.ID))
	require.Len(t, closed, 1)
	env.mustRun("record", "rm", itoa(closed[0].ID))
	assert.Equal(t, "1m30s\n", env.mustRun("task", "duration", itoa(task.ID)))

	_, err = env.run("record", "log", itoa(task.ID), "0s")
	assert.ErrorIs(t, err, errUsage)
}

func TestSingleOpenRecordFromConfig(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.MkdirAll(env.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(env.configDir, configFileExt),
		[]byte("single_open_record: true\n"), 0o644))

	a := env.addTask(1, "A")
	b := env.addTask(1, "B")
	env.mustRun("record", "start", itoa(a.ID))
	_, err := env.run("record", "start", itoa(b.ID))
	assert.ErrorIs(t, err, types.ErrRecordRunning)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestReminderCommands(t *testing.T) {
	env := newTestEnv(t)

	task := env.addTask(1, "call")
	var early, late types.Reminder
	env.runJSON(&early, "reminder", "add", itoa(task.ID), "1000", "-p", "2")
	env.runJSON(&late, "reminder", "add", itoa(task.ID), "9000")
	assert.Equal(t, int64(2), early.Priority)

	var due []*types.Reminder
	env.runJSON(&due, "reminder", "due", "--at", "2000")
	require.Len(t, due, 1)
	assert.Equal(t, early.ID, due[0].ID)

	env.mustRun("reminder", "due", "--at", "2000", "--dismiss")
	env.runJSON(&due, "reminder", "due", "--at", "2000")
	assert.Empty(t, due)

	var pending []*types.Reminder
	env.runJSON(&pending, "reminder", "list", itoa(task.ID))
	require.Len(t, pending, 1)
	assert.Equal(t, late.ID, pending[0].ID)

	env.mustRun("reminder", "dismiss", itoa(late.ID))
	env.mustRun("reminder", "rm", itoa(late.ID))
	_, err := env.run("reminder", "rm", itoa(late.ID))
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newTestEnv(t)
	work := src.addProject("Work")
	todo := src.addSection(work.ID, "Todo")
	parent := src.addTask(todo.ID, "ship")
	src.addSubtask(parent.ID, "test")
	src.mustRun("record", "log", itoa(parent.ID), "1m", "--at", "100")
	src.mustRun("reminder", "add", itoa(parent.ID), "500")

	snapshot := filepath.Join(t.TempDir(), "snapshot")
	var exported types.Manifest
	src.runJSON(&exported, "export", snapshot)
	assert.NotEmpty(t, exported.SnapshotID)
	assert.Equal(t, 2, exported.Counts["tasks"])

	dst := newTestEnv(t)
	var imported types.Manifest
	dst.runJSON(&imported, "import", snapshot)
	assert.Equal(t, exported.SnapshotID, imported.SnapshotID)
	assert.Equal(t, exported.Counts, imported.Counts)

	assert.Equal(t, src.mustRun("task", "list", "--json"), dst.mustRun("task", "list", "--json"))
	assert.Equal(t, "ok\n", dst.mustRun("check"))

	_, err := dst.run("import", snapshot)
	assert.ErrorIs(t, err, types.ErrStoreNotEmpty)
}

func TestCheckRepairJSON(t *testing.T) {
	env := newTestEnv(t)
	env.addTask(1, "A")

	var report struct {
		Repaired   int               `json:"repaired"`
		Violations []types.Violation `json:"violations"`
	}
	env.runJSON(&report, "check", "--repair")
	assert.Equal(t, 0, report.Repaired)
	assert.Empty(t, report.Violations)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"usage", usageErrorf("bad"), exitUserError},
		{"not found", types.ErrNotFound, exitUserError},
		{"snapshot version", types.ErrSnapshotVersion, exitUserError},
		{"violations", errViolations, exitUserError},
		{"closed store", types.ErrStoreClosed, exitSysError},
		{"other", os.ErrPermission, exitSysError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
