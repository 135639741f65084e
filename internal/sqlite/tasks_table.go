package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

var _ types.TaskStore = (*tasksTable)(nil)

// tasksTable implements TaskStore. Top-level tasks are positioned within
// their section, subtasks within their parent.
type tasksTable struct {
	backend *Backend
}

// Create inserts t as given. The caller picks section, parent, and
// position, normally through NextPositionInSection or
// NextPositionUnderParent.
func (tt *tasksTable) Create(t *types.Task) (*types.Task, error) {
	if t == nil {
		return nil, types.ErrInvalidData
	}
	created := *t
	err := tt.backend.update(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`INSERT INTO tasks (name, done, project, section, parent, position, suspended, description, date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			created.Name, boolToInt(created.Done), created.Project, created.Section, created.Parent,
			created.Position, boolToInt(created.Suspended), created.Description, created.Date,
		)
		if err != nil {
			return fmt.Errorf("inserting task: %w", err)
		}
		created.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading task id: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (tt *tasksTable) Get(id int64) (*types.Task, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	var t *types.Task
	err := tt.backend.view(func(q querier) error {
		var err error
		t, err = getTask(q, id)
		return err
	})
	return t, err
}

// List returns tasks matching filter ordered by position.
func (tt *tasksTable) List(filter types.TaskFilter) ([]*types.Task, error) {
	p := (&predicates{}).
		optEq("project", filter.Project).
		optEq("section", filter.Section).
		optEq("parent", filter.Parent).
		halfOpen("date", filter.From, filter.To)
	if filter.Done != nil {
		p.flag("done", *filter.Done)
	}
	if !filter.IncludeSuspended {
		p.flag("suspended", false)
	}
	return tt.fetch(p)
}

// Children returns the direct subtasks of parentID, suspended included.
func (tt *tasksTable) Children(parentID int64) ([]*types.Task, error) {
	if parentID <= 0 {
		return nil, types.ErrInvalidID
	}
	return tt.fetch((&predicates{}).eq("parent", parentID))
}

// Update writes t over the stored task. Position maintenance follows the
// first matching case: parent changed from top-level, parent changed from
// a subtask, section changed for a top-level task, position changed within
// the scope. A project change reaches the direct children, or the whole
// subtree with DeepProjectPropagation. Suspending cascades to every
// descendant; clearing suspended does not (see Restore).
func (tt *tasksTable) Update(t *types.Task) error {
	if t == nil {
		return types.ErrInvalidData
	}
	if t.ID <= 0 {
		return types.ErrInvalidID
	}
	return tt.backend.update(func(tx *sql.Tx) error {
		stored, err := getTask(tx, t.ID)
		if err != nil {
			return err
		}

		switch {
		case stored.Parent != t.Parent:
			if err := tt.checkParent(tx, t); err != nil {
				return err
			}
			if err := closeGap(tx, taskScope(stored), stored.Position); err != nil {
				return err
			}
			if err := openSlot(tx, taskScope(t), t.Position); err != nil {
				return err
			}
		case stored.IsTopLevel() && stored.Section != t.Section:
			if err := closeGap(tx, sectionTaskScope(stored.Section), stored.Position); err != nil {
				return err
			}
			if err := openSlot(tx, sectionTaskScope(t.Section), t.Position); err != nil {
				return err
			}
		case stored.Position != t.Position:
			if err := shift(tx, taskScope(stored), t.ID, stored.Position, t.Position); err != nil {
				return err
			}
		}

		if stored.Project != t.Project {
			if err := tt.propagateProject(tx, t); err != nil {
				return err
			}
		}
		if !stored.Suspended && t.Suspended {
			ids, err := descendants(tx, t.ID)
			if err != nil {
				return err
			}
			if err := setSuspended(tx, ids, true); err != nil {
				return err
			}
			tt.backend.logger.Debug("suspended subtree", "id", t.ID, "descendants", len(ids))
		}

		_, err = tx.Exec(
			`UPDATE tasks SET name = ?, done = ?, project = ?, section = ?, position = ?, suspended = ?,
parent = ?, description = ?, date = ? WHERE id = ?`,
			t.Name, boolToInt(t.Done), t.Project, t.Section, t.Position, boolToInt(t.Suspended),
			t.Parent, t.Description, t.Date, t.ID,
		)
		if err != nil {
			return fmt.Errorf("updating task %d: %w", t.ID, err)
		}
		return nil
	})
}

// checkParent rejects a parent that would put t inside its own subtree.
func (tt *tasksTable) checkParent(q querier, t *types.Task) error {
	if t.Parent == 0 {
		return nil
	}
	if t.Parent == t.ID {
		return fmt.Errorf("task %d cannot be its own parent: %w", t.ID, types.ErrInvalidData)
	}
	below, err := descendants(q, t.ID)
	if err != nil {
		return err
	}
	if slices.Contains(below, t.Parent) {
		return fmt.Errorf("task %d cannot move under its descendant %d: %w", t.ID, t.Parent, types.ErrInvalidData)
	}
	return nil
}

func (tt *tasksTable) propagateProject(q querier, t *types.Task) error {
	var (
		ids []int64
		err error
	)
	if tt.backend.config.DeepProjectPropagation {
		ids, err = descendants(q, t.ID)
	} else {
		ids, err = childIDs(q, t.ID)
	}
	if err != nil {
		return err
	}
	tt.backend.logger.Debug("propagating project", "id", t.ID, "project", t.Project, "tasks", len(ids))
	return setProject(q, ids, t.Project)
}

// Delete removes the task, its subtree, and every record and reminder of
// those tasks, then closes the gap at the task's former position.
func (tt *tasksTable) Delete(id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	return tt.backend.update(func(tx *sql.Tx) error {
		stored, err := getTask(tx, id)
		if err != nil {
			return err
		}
		_, err = tt.deleteTree(tx, stored)
		return err
	})
}

func (tt *tasksTable) deleteTree(q querier, stored *types.Task) (int, error) {
	ids, err := subtree(q, stored.ID)
	if err != nil {
		return 0, err
	}
	if err := deleteTaskRows(q, ids); err != nil {
		return 0, err
	}
	if err := closeGap(q, taskScope(stored), stored.Position); err != nil {
		return 0, err
	}
	tt.backend.logger.Debug("deleted task", "id", stored.ID, "subtree", len(ids))
	return len(ids), nil
}

// Restore clears suspended on the task and its whole subtree.
func (tt *tasksTable) Restore(id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	return tt.backend.update(func(tx *sql.Tx) error {
		if _, err := getTask(tx, id); err != nil {
			return err
		}
		ids, err := subtree(tx, id)
		if err != nil {
			return err
		}
		return setSuspended(tx, ids, false)
	})
}

// PurgeSuspended deletes every suspended task whose parent is not
// suspended, along with its subtree, and returns how many such roots were
// removed.
func (tt *tasksTable) PurgeSuspended() (int, error) {
	purged := 0
	err := tt.backend.update(func(tx *sql.Tx) error {
		rows, err := tx.Query(`SELECT t.id FROM tasks t
WHERE t.suspended = 1
  AND NOT EXISTS (SELECT 1 FROM tasks p WHERE p.id = t.parent AND p.suspended = 1)
ORDER BY t.id`)
		if err != nil {
			return fmt.Errorf("reading suspended tasks: %w", err)
		}
		roots, err := scanIDs(rows)
		if err != nil {
			return err
		}
		for _, id := range roots {
			stored, err := getTask(tx, id)
			if errors.Is(err, types.ErrNotFound) {
				// Already removed with an earlier root's subtree.
				continue
			}
			if err != nil {
				return err
			}
			if _, err := tt.deleteTree(tx, stored); err != nil {
				return err
			}
			purged++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}

// Tree returns the ids of the task and all its descendants, root first.
// With onlyWithDate only tasks with a date are kept.
func (tt *tasksTable) Tree(id int64, onlyWithDate bool) ([]int64, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	var ids []int64
	err := tt.backend.view(func(q querier) error {
		if _, err := getTask(q, id); err != nil {
			return err
		}
		var err error
		ids, err = subtree(q, id)
		if err != nil || !onlyWithDate {
			return err
		}
		ids, err = withDate(q, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Duration sums record durations over the task and its descendants.
func (tt *tasksTable) Duration(id int64) (int64, error) {
	if id <= 0 {
		return 0, types.ErrInvalidID
	}
	var total int64
	err := tt.backend.view(func(q querier) error {
		if _, err := getTask(q, id); err != nil {
			return err
		}
		ids, err := subtree(q, id)
		if err != nil {
			return err
		}
		total, err = sumDuration(q, ids)
		return err
	})
	return total, err
}

// Find returns non-suspended tasks whose name contains text literally.
func (tt *tasksTable) Find(text string, includeDone bool) ([]*types.Task, error) {
	p := (&predicates{}).contains("name", text).flag("suspended", false)
	if !includeDone {
		p.flag("done", false)
	}
	return tt.fetch(p)
}

// NextPositionInSection returns the slot after the last top-level task of
// the section.
func (tt *tasksTable) NextPositionInSection(sectionID int64) (int64, error) {
	return tt.next(sectionTaskScope(sectionID))
}

// NextPositionUnderParent returns the slot after the last subtask of the
// parent.
func (tt *tasksTable) NextPositionUnderParent(parentID int64) (int64, error) {
	return tt.next(parentTaskScope(parentID))
}

func (tt *tasksTable) next(s scope) (int64, error) {
	var next int64
	err := tt.backend.view(func(q querier) error {
		var err error
		next, err = nextPosition(q, s)
		return err
	})
	return next, err
}

func (tt *tasksTable) fetch(p *predicates) ([]*types.Task, error) {
	query, args := selectQuery(taskColumns, "tasks", p, "position ASC, id ASC")
	out := []*types.Task{}
	err := tt.backend.view(func(q querier) error {
		rows, err := q.Query(query, args...)
		if err != nil {
			return fmt.Errorf("fetching tasks: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			t, err := hydrateTask(rows)
			if err != nil {
				return fmt.Errorf("hydrating task: %w", err)
			}
			out = append(out, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func getTask(q querier, id int64) (*types.Task, error) {
	row := q.QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	t, err := hydrateTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %d: %w", id, err)
	}
	return t, nil
}

func hydrateTask(s scanner) (*types.Task, error) {
	var t types.Task
	err := s.Scan(&t.ID, &t.Name, &t.Done, &t.Project, &t.Section, &t.Parent,
		&t.Position, &t.Suspended, &t.Description, &t.Date)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
