package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

var _ types.RecordStore = (*recordsTable)(nil)

// recordsTable implements RecordStore. Records carry no position.
type recordsTable struct {
	backend *Backend
}

// Create inserts a record. A duration of 0 starts a running timer; with
// SingleOpenRecord a task may hold only one.
func (rt *recordsTable) Create(start, taskID, duration int64) (*types.Record, error) {
	r := &types.Record{Start: start, Task: taskID, Duration: duration}
	err := rt.backend.update(func(tx *sql.Tx) error {
		if err := rt.checkOpen(tx, r); err != nil {
			return err
		}
		res, err := tx.Exec("INSERT INTO records (start, duration, task) VALUES (?, ?, ?)", r.Start, r.Duration, r.Task)
		if err != nil {
			return fmt.Errorf("inserting record: %w", err)
		}
		r.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading record id: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// List returns the open or closed records of one task, newest first.
func (rt *recordsTable) List(filter types.RecordFilter) ([]*types.Record, error) {
	if filter.Task <= 0 {
		return nil, types.ErrInvalidID
	}
	p := (&predicates{}).eq("task", filter.Task)
	if filter.Incomplete {
		p.add("duration = 0")
	} else {
		p.add("duration > 0")
	}
	p.halfOpen("start", filter.From, filter.To)

	query, args := selectQuery(recordColumns, "records", p, "start DESC, id DESC")
	out := []*types.Record{}
	err := rt.backend.view(func(q querier) error {
		rows, err := q.Query(query, args...)
		if err != nil {
			return fmt.Errorf("listing records of task %d: %w", filter.Task, err)
		}
		defer rows.Close()
		for rows.Next() {
			r, err := hydrateRecord(rows)
			if err != nil {
				return fmt.Errorf("hydrating record: %w", err)
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (rt *recordsTable) Get(id int64) (*types.Record, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	var r *types.Record
	err := rt.backend.view(func(q querier) error {
		var err error
		r, err = getRecord(q, id)
		return err
	})
	return r, err
}

// Update overwrites start, duration, and task.
func (rt *recordsTable) Update(r *types.Record) error {
	if r == nil {
		return types.ErrInvalidData
	}
	if r.ID <= 0 {
		return types.ErrInvalidID
	}
	return rt.backend.update(func(tx *sql.Tx) error {
		if _, err := getRecord(tx, r.ID); err != nil {
			return err
		}
		if err := rt.checkOpen(tx, r); err != nil {
			return err
		}
		return writeRecord(tx, r)
	})
}

// Stop closes a running record at end. The stored duration is at least one
// second so the record never reads as running again.
func (rt *recordsTable) Stop(id, end int64) (*types.Record, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	var r *types.Record
	err := rt.backend.update(func(tx *sql.Tx) error {
		var err error
		r, err = getRecord(tx, id)
		if err != nil {
			return err
		}
		if !r.Running() {
			return fmt.Errorf("stopping record %d: %w", id, types.ErrRecordClosed)
		}
		r.Duration = max(end-r.Start, 1)
		return writeRecord(tx, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (rt *recordsTable) Delete(id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	return rt.backend.update(func(tx *sql.Tx) error {
		res, err := tx.Exec("DELETE FROM records WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting record %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("deleting record %d: %w", id, err)
		}
		if n == 0 {
			return types.ErrNotFound
		}
		return nil
	})
}

// checkOpen enforces SingleOpenRecord for a record about to be written.
func (rt *recordsTable) checkOpen(q querier, r *types.Record) error {
	if !rt.backend.config.SingleOpenRecord || !r.Running() {
		return nil
	}
	var n int
	err := q.QueryRow("SELECT COUNT(*) FROM records WHERE task = ? AND duration = 0 AND id != ?", r.Task, r.ID).Scan(&n)
	if err != nil {
		return fmt.Errorf("counting open records of task %d: %w", r.Task, err)
	}
	if n > 0 {
		return fmt.Errorf("task %d: %w", r.Task, types.ErrRecordRunning)
	}
	return nil
}

func writeRecord(q querier, r *types.Record) error {
	_, err := q.Exec("UPDATE records SET start = ?, duration = ?, task = ? WHERE id = ?", r.Start, r.Duration, r.Task, r.ID)
	if err != nil {
		return fmt.Errorf("updating record %d: %w", r.ID, err)
	}
	return nil
}

func getRecord(q querier, id int64) (*types.Record, error) {
	row := q.QueryRow("SELECT "+recordColumns+" FROM records WHERE id = ?", id)
	r, err := hydrateRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting record %d: %w", id, err)
	}
	return r, nil
}

func hydrateRecord(s scanner) (*types.Record, error) {
	var r types.Record
	if err := s.Scan(&r.ID, &r.Start, &r.Duration, &r.Task); err != nil {
		return nil, err
	}
	return &r, nil
}
