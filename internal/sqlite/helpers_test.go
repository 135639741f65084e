package sqlite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

// Seed rows present in every freshly opened store.
const (
	seedProjectID int64 = 1
	seedSectionID int64 = 1
)

// newOpenBackend opens a backend on a fresh file under t.TempDir and
// closes it when the test ends.
func newOpenBackend(t *testing.T, mutate ...func(*types.Config)) *Backend {
	t.Helper()
	config := types.Config{DataDir: t.TempDir()}
	for _, m := range mutate {
		m(&config)
	}
	b := NewBackend()
	require.NoError(t, b.Open(config))
	t.Cleanup(func() { b.Close() })
	return b
}

// addTask appends a top-level task to a section of the seed project.
func addTask(t *testing.T, b *Backend, name string, sectionID int64) *types.Task {
	t.Helper()
	pos, err := b.Tasks().NextPositionInSection(sectionID)
	require.NoError(t, err)
	task, err := b.Tasks().Create(&types.Task{Name: name, Project: seedProjectID, Section: sectionID, Position: pos})
	require.NoError(t, err)
	return task
}

// addSubtask appends a subtask under parent, inheriting its project and
// section.
func addSubtask(t *testing.T, b *Backend, name string, parent *types.Task) *types.Task {
	t.Helper()
	pos, err := b.Tasks().NextPositionUnderParent(parent.ID)
	require.NoError(t, err)
	task, err := b.Tasks().Create(&types.Task{
		Name: name, Project: parent.Project, Section: parent.Section, Parent: parent.ID, Position: pos,
	})
	require.NoError(t, err)
	return task
}

// mustTask reads a task, failing the test if it is missing.
func mustTask(t *testing.T, b *Backend, id int64) *types.Task {
	t.Helper()
	task, err := b.Tasks().Get(id)
	require.NoError(t, err)
	return task
}

// positionsOf returns the id -> position map of a scope.
func positionsOf(t *testing.T, b *Backend, s scope) map[int64]int64 {
	t.Helper()
	out := map[int64]int64{}
	require.NoError(t, b.view(func(q querier) error {
		ids, pos, err := positions(q, s)
		if err != nil {
			return err
		}
		for i, id := range ids {
			out[id] = pos[i]
		}
		return nil
	}))
	return out
}

// requireDense fails unless every scope in the store is numbered 0..n-1.
func requireDense(t *testing.T, b *Backend) {
	t.Helper()
	violations, err := b.Check()
	require.NoError(t, err)
	for _, v := range violations {
		if v.Kind == types.ViolationGap || v.Kind == types.ViolationDuplicate {
			require.Failf(t, "scope not dense", "%s", v.String())
		}
	}
}
