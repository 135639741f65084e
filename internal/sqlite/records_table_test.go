package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

func TestRecords_CRUD(t *testing.T) {
	b := newOpenBackend(t)
	task := addTask(t, b, "T", seedSectionID)

	r, err := b.Records().Create(1_000, task.ID, 60)
	require.NoError(t, err)
	assert.NotZero(t, r.ID)

	got, err := b.Records().Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)

	got.Start = 2_000
	got.Duration = 90
	require.NoError(t, b.Records().Update(got))

	again, err := b.Records().Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, &types.Record{ID: r.ID, Start: 2_000, Duration: 90, Task: task.ID}, again)

	require.NoError(t, b.Records().Delete(r.ID))
	_, err = b.Records().Get(r.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRecords_List(t *testing.T) {
	b := newOpenBackend(t)
	task := addTask(t, b, "T", seedSectionID)
	other := addTask(t, b, "O", seedSectionID)

	for _, r := range []struct{ start, dur, task int64 }{
		{100, 10, task.ID},
		{300, 10, task.ID},
		{200, 10, task.ID},
		{400, 0, task.ID},
		{500, 10, other.ID},
	} {
		_, err := b.Records().Create(r.start, r.task, r.dur)
		require.NoError(t, err)
	}

	starts := func(rs []*types.Record) []int64 {
		out := make([]int64, len(rs))
		for i, r := range rs {
			out[i] = r.Start
		}
		return out
	}

	closed, err := b.Records().List(types.RecordFilter{Task: task.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{300, 200, 100}, starts(closed), "closed records, newest first")

	open, err := b.Records().List(types.RecordFilter{Task: task.ID, Incomplete: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{400}, starts(open))

	window, err := b.Records().List(types.RecordFilter{Task: task.ID, From: types.Int64(200), To: types.Int64(300)})
	require.NoError(t, err)
	assert.Equal(t, []int64{200}, starts(window), "start bound inclusive, end exclusive")

	_, err = b.Records().List(types.RecordFilter{})
	assert.ErrorIs(t, err, types.ErrInvalidID)
}

func TestRecords_Stop(t *testing.T) {
	b := newOpenBackend(t)
	task := addTask(t, b, "T", seedSectionID)

	r, err := b.Records().Create(1_000, task.ID, 0)
	require.NoError(t, err)
	assert.True(t, r.Running())

	stopped, err := b.Records().Stop(r.ID, 1_125)
	require.NoError(t, err)
	assert.Equal(t, int64(125), stopped.Duration)
	assert.Equal(t, int64(1_125), stopped.End())

	_, err = b.Records().Stop(r.ID, 2_000)
	assert.ErrorIs(t, err, types.ErrRecordClosed)

	// An end at or before start still closes the record.
	quick, err := b.Records().Create(5_000, task.ID, 0)
	require.NoError(t, err)
	quick, err = b.Records().Stop(quick.ID, 5_000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), quick.Duration)
}

func TestRecords_MultipleOpenAllowedByDefault(t *testing.T) {
	b := newOpenBackend(t)
	task := addTask(t, b, "T", seedSectionID)

	_, err := b.Records().Create(100, task.ID, 0)
	require.NoError(t, err)
	_, err = b.Records().Create(200, task.ID, 0)
	require.NoError(t, err)

	open, err := b.Records().List(types.RecordFilter{Task: task.ID, Incomplete: true})
	require.NoError(t, err)
	assert.Len(t, open, 2)
}

func TestRecords_SingleOpenRecord(t *testing.T) {
	b := newOpenBackend(t, func(c *types.Config) { c.SingleOpenRecord = true })
	task := addTask(t, b, "T", seedSectionID)
	other := addTask(t, b, "O", seedSectionID)

	running, err := b.Records().Create(100, task.ID, 0)
	require.NoError(t, err)

	_, err = b.Records().Create(200, task.ID, 0)
	assert.ErrorIs(t, err, types.ErrRecordRunning)

	_, err = b.Records().Create(200, other.ID, 0)
	assert.NoError(t, err, "the limit is per task")

	_, err = b.Records().Create(50, task.ID, 30)
	assert.NoError(t, err, "closed records are unaffected")

	closed, err := b.Records().Create(10, task.ID, 5)
	require.NoError(t, err)
	closed.Duration = 0
	assert.ErrorIs(t, b.Records().Update(closed), types.ErrRecordRunning)

	// Updating the running record itself is fine.
	running.Start = 120
	assert.NoError(t, b.Records().Update(running))
}
