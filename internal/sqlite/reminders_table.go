package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

var _ types.ReminderStore = (*remindersTable)(nil)

type remindersTable struct {
	backend *Backend
}

func (rt *remindersTable) Create(datetime, taskID, priority int64) (*types.Reminder, error) {
	r := &types.Reminder{Datetime: datetime, Task: taskID, Priority: priority}
	err := rt.backend.update(func(tx *sql.Tx) error {
		res, err := tx.Exec("INSERT INTO reminders (datetime, past, task, priority) VALUES (?, 0, ?, ?)", r.Datetime, r.Task, r.Priority)
		if err != nil {
			return fmt.Errorf("inserting reminder: %w", err)
		}
		r.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading reminder id: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// List returns the pending reminders of a task, latest first.
func (rt *remindersTable) List(taskID int64) ([]*types.Reminder, error) {
	if taskID <= 0 {
		return nil, types.ErrInvalidID
	}
	query, args := selectQuery(reminderColumns, "reminders",
		(&predicates{}).eq("task", taskID).flag("past", false), "datetime DESC, id DESC")
	return rt.fetch(query, args)
}

// Due returns pending reminders at or before now whose task is active,
// earliest first.
func (rt *remindersTable) Due(now int64) ([]*types.Reminder, error) {
	query := `SELECT r.id, r.datetime, r.past, r.task, r.priority FROM reminders r
JOIN tasks t ON t.id = r.task
WHERE r.past = 0 AND r.datetime <= ? AND t.suspended = 0
ORDER BY r.datetime ASC, r.id ASC`
	return rt.fetch(query, []any{now})
}

func (rt *remindersTable) Get(id int64) (*types.Reminder, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	var r *types.Reminder
	err := rt.backend.view(func(q querier) error {
		var err error
		r, err = getReminder(q, id)
		return err
	})
	return r, err
}

func (rt *remindersTable) Update(r *types.Reminder) error {
	if r == nil {
		return types.ErrInvalidData
	}
	if r.ID <= 0 {
		return types.ErrInvalidID
	}
	return rt.backend.update(func(tx *sql.Tx) error {
		if _, err := getReminder(tx, r.ID); err != nil {
			return err
		}
		_, err := tx.Exec("UPDATE reminders SET datetime = ?, past = ?, task = ?, priority = ? WHERE id = ?",
			r.Datetime, boolToInt(r.Past), r.Task, r.Priority, r.ID)
		if err != nil {
			return fmt.Errorf("updating reminder %d: %w", r.ID, err)
		}
		return nil
	})
}

// MarkPast flags a reminder as delivered.
func (rt *remindersTable) MarkPast(id int64) error {
	return rt.exec(id, "UPDATE reminders SET past = 1 WHERE id = ?", "marking reminder")
}

func (rt *remindersTable) Delete(id int64) error {
	return rt.exec(id, "DELETE FROM reminders WHERE id = ?", "deleting reminder")
}

// exec runs a single-row statement keyed by id, reporting ErrNotFound when
// no row matched.
func (rt *remindersTable) exec(id int64, stmt, verb string) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	return rt.backend.update(func(tx *sql.Tx) error {
		res, err := tx.Exec(stmt, id)
		if err != nil {
			return fmt.Errorf("%s %d: %w", verb, id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%s %d: %w", verb, id, err)
		}
		if n == 0 {
			return types.ErrNotFound
		}
		return nil
	})
}

func (rt *remindersTable) fetch(query string, args []any) ([]*types.Reminder, error) {
	out := []*types.Reminder{}
	err := rt.backend.view(func(q querier) error {
		rows, err := q.Query(query, args...)
		if err != nil {
			return fmt.Errorf("fetching reminders: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			r, err := hydrateReminder(rows)
			if err != nil {
				return fmt.Errorf("hydrating reminder: %w", err)
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

func getReminder(q querier, id int64) (*types.Reminder, error) {
	row := q.QueryRow("SELECT "+reminderColumns+" FROM reminders WHERE id = ?", id)
	r, err := hydrateReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting reminder %d: %w", id, err)
	}
	return r, nil
}

func hydrateReminder(s scanner) (*types.Reminder, error) {
	var r types.Reminder
	if err := s.Scan(&r.ID, &r.Datetime, &r.Past, &r.Task, &r.Priority); err != nil {
		return nil, err
	}
	return &r, nil
}
