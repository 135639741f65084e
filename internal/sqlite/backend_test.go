// Tests for opening, closing, and seeding the SQLite backend.
package sqlite

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

func TestBackend_Open(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	config := types.Config{DataDir: dir}

	b := NewBackend()
	require.NoError(t, b.Open(config))
	defer b.Close()

	_, err := os.Stat(filepath.Join(dir, types.DefaultDBFile))
	require.NoError(t, err, "database file should be created")

	assert.ErrorIs(t, b.Open(config), types.ErrAlreadyOpen)
}

func TestBackend_OpenRejectsInvalidConfig(t *testing.T) {
	b := NewBackend()
	assert.ErrorIs(t, b.Open(types.Config{}), types.ErrDataDirEmpty)
	assert.ErrorIs(t, b.Open(types.Config{DataDir: t.TempDir(), DBFile: ":memory:"}), types.ErrDBFileInvalid)
}

func TestBackend_Close(t *testing.T) {
	b := NewBackend()
	require.NoError(t, b.Open(types.Config{DataDir: t.TempDir()}))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close(), "second Close should be a no-op")

	_, err := b.Projects().List(true)
	assert.ErrorIs(t, err, types.ErrStoreClosed)
	_, err = b.Tasks().Create(&types.Task{Name: "late"})
	assert.ErrorIs(t, err, types.ErrStoreClosed)
	_, err = b.SchemaVersion()
	assert.ErrorIs(t, err, types.ErrStoreClosed)
}

func TestBackend_SeedsDefaults(t *testing.T) {
	b := newOpenBackend(t)

	projects, err := b.Projects().List(true)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, defaultProjectName, projects[0].Name)
	assert.Equal(t, int64(0), projects[0].Index)

	sections, err := b.Sections().List(projects[0].ID)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, defaultListName, sections[0].Name)
	assert.Equal(t, int64(0), sections[0].Index)
}

func TestBackend_ViewRunsInReadTransaction(t *testing.T) {
	b := newOpenBackend(t)

	require.NoError(t, b.view(func(q querier) error {
		_, ok := q.(*sql.Tx)
		assert.True(t, ok, "reads should see one transaction, got %T", q)
		return nil
	}))

	boom := errors.New("boom")
	err := b.view(func(q querier) error {
		if _, err := q.Exec("INSERT INTO projects (name) VALUES ('x')"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	projects, err := b.Projects().List(true)
	require.NoError(t, err)
	assert.Len(t, projects, 1, "writes issued inside a view are rolled back")

	_, err = b.Projects().Create("after", "", "")
	assert.NoError(t, err, "the connection is released after a failed view")
}

func TestBackend_SchemaVersion(t *testing.T) {
	b := newOpenBackend(t)

	v, err := b.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, latestVersion(), v)
}

func TestBackend_DataPersistsAcrossReopen(t *testing.T) {
	config := types.Config{DataDir: t.TempDir()}

	b := NewBackend()
	require.NoError(t, b.Open(config))
	p, err := b.Projects().Create("Work", "W", "day job")
	require.NoError(t, err)
	task, err := b.Tasks().Create(&types.Task{Name: "ship", Project: p.ID, Section: seedSectionID})
	require.NoError(t, err)
	require.NoError(t, b.Close())

	b = NewBackend()
	require.NoError(t, b.Open(config))
	defer b.Close()

	gotP, err := b.Projects().Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, gotP)

	gotT, err := b.Tasks().Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, task, gotT)

	projects, err := b.Projects().List(true)
	require.NoError(t, err)
	assert.Len(t, projects, 2, "reopen must not seed again")
}

func TestBackend_InvalidIDs(t *testing.T) {
	b := newOpenBackend(t)

	_, err := b.Projects().Get(0)
	assert.ErrorIs(t, err, types.ErrInvalidID)
	_, err = b.Sections().Get(-1)
	assert.ErrorIs(t, err, types.ErrInvalidID)
	_, err = b.Tasks().Get(0)
	assert.ErrorIs(t, err, types.ErrInvalidID)
	assert.ErrorIs(t, b.Records().Delete(0), types.ErrInvalidID)
	assert.ErrorIs(t, b.Reminders().MarkPast(0), types.ErrInvalidID)
}

func TestBackend_NotFound(t *testing.T) {
	b := newOpenBackend(t)

	_, err := b.Projects().Get(999)
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = b.Sections().Get(999)
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = b.Tasks().Get(999)
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = b.Records().Get(999)
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = b.Reminders().Get(999)
	assert.ErrorIs(t, err, types.ErrNotFound)

	assert.ErrorIs(t, b.Tasks().Delete(999), types.ErrNotFound)
	assert.ErrorIs(t, b.Tasks().Update(&types.Task{ID: 999}), types.ErrNotFound)
	assert.ErrorIs(t, b.Records().Delete(999), types.ErrNotFound)
	assert.ErrorIs(t, b.Reminders().Delete(999), types.ErrNotFound)
}

func TestSqliteDSN(t *testing.T) {
	dsn := sqliteDSN("/tmp/store/taskstore.db")
	assert.Contains(t, dsn, "file:///tmp/store/taskstore.db")
	assert.Contains(t, dsn, "mode=rwc")
	assert.Contains(t, dsn, "busy_timeout")

	assert.Equal(t, "file:x.db?mode=ro", sqliteDSN("file:x.db?mode=ro"))
}
