package sqlite

import (
	"database/sql"
	"fmt"
)

// idChunk bounds the number of bound parameters per IN list.
const idChunk = 500

// childIDs returns the ids of the direct subtasks of parentID, suspended or
// not, ordered by position.
func childIDs(q querier, parentID int64) ([]int64, error) {
	rows, err := q.Query("SELECT id FROM tasks WHERE parent = ? ORDER BY position ASC, id ASC", parentID)
	if err != nil {
		return nil, fmt.Errorf("reading children of task %d: %w", parentID, err)
	}
	return scanIDs(rows)
}

// subtree returns roots followed by all their descendants, breadth first.
// The walk uses an explicit worklist; a task reached twice (corrupt parent
// cycle) is visited once.
func subtree(q querier, roots ...int64) ([]int64, error) {
	seen := make(map[int64]bool, len(roots))
	var out []int64
	queue := make([]int64, 0, len(roots))
	for _, id := range roots {
		if !seen[id] {
			seen[id] = true
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		out = append(out, id)

		children, err := childIDs(q, id)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			if seen[c] {
				continue
			}
			seen[c] = true
			queue = append(queue, c)
		}
	}
	return out, nil
}

// descendants returns the subtree of id without id itself.
func descendants(q querier, id int64) ([]int64, error) {
	ids, err := subtree(q, id)
	if err != nil {
		return nil, err
	}
	return ids[1:], nil
}

// withDate keeps the ids whose task has a non-zero date, preserving order.
func withDate(q querier, ids []int64) ([]int64, error) {
	dated := make(map[int64]bool, len(ids))
	err := eachChunk(ids, func(chunk []int64) error {
		query, args := selectQuery("id", "tasks", (&predicates{}).in("id", chunk).add("date != 0"), "")
		rows, err := q.Query(query, args...)
		if err != nil {
			return fmt.Errorf("filtering dated tasks: %w", err)
		}
		found, err := scanIDs(rows)
		if err != nil {
			return err
		}
		for _, id := range found {
			dated[id] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(dated))
	for _, id := range ids {
		if dated[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// sumDuration adds up record durations over the given tasks.
func sumDuration(q querier, ids []int64) (int64, error) {
	var total int64
	err := eachChunk(ids, func(chunk []int64) error {
		query, args := selectQuery("COALESCE(SUM(duration), 0)", "records", (&predicates{}).in("task", chunk), "")
		var part int64
		if err := q.QueryRow(query, args...).Scan(&part); err != nil {
			return fmt.Errorf("summing durations: %w", err)
		}
		total += part
		return nil
	})
	return total, err
}

// setSuspended writes the suspended flag on every given task.
func setSuspended(q querier, ids []int64, suspended bool) error {
	return eachChunk(ids, func(chunk []int64) error {
		p := (&predicates{}).in("id", chunk)
		args := append([]any{boolToInt(suspended)}, p.values()...)
		if _, err := q.Exec("UPDATE tasks SET suspended = ?"+p.where(), args...); err != nil {
			return fmt.Errorf("setting suspended: %w", err)
		}
		return nil
	})
}

// setProject writes project on every given task.
func setProject(q querier, ids []int64, project int64) error {
	return eachChunk(ids, func(chunk []int64) error {
		p := (&predicates{}).in("id", chunk)
		args := append([]any{project}, p.values()...)
		if _, err := q.Exec("UPDATE tasks SET project = ?"+p.where(), args...); err != nil {
			return fmt.Errorf("setting project: %w", err)
		}
		return nil
	})
}

// deleteTaskRows removes the given tasks with their records and reminders.
// Positions are not touched; callers close the gap of the removed root.
func deleteTaskRows(q querier, ids []int64) error {
	return eachChunk(ids, func(chunk []int64) error {
		for _, stmt := range []struct{ table, column string }{
			{"records", "task"},
			{"reminders", "task"},
			{"tasks", "id"},
		} {
			p := (&predicates{}).in(stmt.column, chunk)
			if _, err := q.Exec("DELETE FROM "+stmt.table+p.where(), p.values()...); err != nil {
				return fmt.Errorf("deleting %s: %w", stmt.table, err)
			}
		}
		return nil
	})
}

// taskLink is the parent edge and project of one task.
type taskLink struct {
	parent  int64
	project int64
	section int64
}

// loadTaskLinks reads the parent edge of every task in one pass.
func loadTaskLinks(q querier) (map[int64]taskLink, error) {
	rows, err := q.Query("SELECT id, parent, project, section FROM tasks")
	if err != nil {
		return nil, fmt.Errorf("reading task links: %w", err)
	}
	defer rows.Close()
	links := make(map[int64]taskLink)
	for rows.Next() {
		var id int64
		var l taskLink
		if err := rows.Scan(&id, &l.parent, &l.project, &l.section); err != nil {
			return nil, fmt.Errorf("scanning task link: %w", err)
		}
		links[id] = l
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task links: %w", err)
	}
	return links, nil
}

// rootOf follows parent edges from id up to its top-level ancestor. A
// missing parent or a repeated task ends the walk at the last task reached.
func rootOf(links map[int64]taskLink, id int64) int64 {
	root := id
	seen := map[int64]bool{id: true}
	for {
		l, ok := links[root]
		if !ok || l.parent == 0 {
			return root
		}
		if _, ok := links[l.parent]; !ok || seen[l.parent] {
			return root
		}
		root = l.parent
		seen[root] = true
	}
}

// eachChunk calls fn on consecutive slices of at most idChunk ids.
func eachChunk(ids []int64, fn func(chunk []int64) error) error {
	for start := 0; start < len(ids); start += idChunk {
		end := min(start+idChunk, len(ids))
		if err := fn(ids[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// scanIDs drains rows holding a single id column and closes them.
func scanIDs(rows *sql.Rows) ([]int64, error) {
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ids: %w", err)
	}
	return ids, nil
}
