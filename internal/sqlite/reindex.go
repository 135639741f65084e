package sqlite

import (
	"fmt"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

// scope identifies one sibling set whose positions form 0..n-1.
type scope struct {
	table  string // projects, sections, tasks
	column string // "index" or position
	label  string // human-readable, used in logs and violations
	preds  func() *predicates
}

const (
	indexColumn    = `"index"`
	positionColumn = "position"
)

// projectScope is the single scope of all projects.
func projectScope() scope {
	return scope{
		table:  "projects",
		column: indexColumn,
		label:  "projects",
		preds:  func() *predicates { return &predicates{} },
	}
}

// sectionScope holds the sections of one project.
func sectionScope(projectID int64) scope {
	return scope{
		table:  "sections",
		column: indexColumn,
		label:  fmt.Sprintf("sections:project=%d", projectID),
		preds:  func() *predicates { return (&predicates{}).eq("project", projectID) },
	}
}

// sectionTaskScope holds the top-level tasks of one section.
func sectionTaskScope(sectionID int64) scope {
	return scope{
		table:  "tasks",
		column: positionColumn,
		label:  fmt.Sprintf("tasks:section=%d", sectionID),
		preds:  func() *predicates { return (&predicates{}).eq("section", sectionID).eq("parent", 0) },
	}
}

// parentTaskScope holds the direct subtasks of one task.
func parentTaskScope(parentID int64) scope {
	return scope{
		table:  "tasks",
		column: positionColumn,
		label:  fmt.Sprintf("tasks:parent=%d", parentID),
		preds:  func() *predicates { return (&predicates{}).eq("parent", parentID) },
	}
}

// taskScope returns the scope a task belongs to.
func taskScope(t *types.Task) scope {
	if t.Parent != 0 {
		return parentTaskScope(t.Parent)
	}
	return sectionTaskScope(t.Section)
}

// shift makes room for entity id moving from one slot to another within
// s. It must run before the mover's own position is written.
func shift(q querier, s scope, id, from, to int64) error {
	if from == to {
		return nil
	}
	p := s.preds().add("id != ?", id)
	var delta string
	if to > from {
		delta = "- 1"
		p.add(s.column+" > ?", from).add(s.column+" <= ?", to)
	} else {
		delta = "+ 1"
		p.add(s.column+" >= ?", to).add(s.column+" < ?", from)
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s = %s %s%s", s.table, s.column, s.column, delta, p.where())
	if _, err := q.Exec(stmt, p.values()...); err != nil {
		return fmt.Errorf("shifting %s: %w", s.label, err)
	}
	return nil
}

// closeGap pulls every sibling after old one slot down.
func closeGap(q querier, s scope, old int64) error {
	p := s.preds().add(s.column+" > ?", old)
	stmt := fmt.Sprintf("UPDATE %s SET %s = %s - 1%s", s.table, s.column, s.column, p.where())
	if _, err := q.Exec(stmt, p.values()...); err != nil {
		return fmt.Errorf("closing gap in %s: %w", s.label, err)
	}
	return nil
}

// openSlot pushes every sibling at or after at one slot up.
func openSlot(q querier, s scope, at int64) error {
	p := s.preds().add(s.column+" >= ?", at)
	stmt := fmt.Sprintf("UPDATE %s SET %s = %s + 1%s", s.table, s.column, s.column, p.where())
	if _, err := q.Exec(stmt, p.values()...); err != nil {
		return fmt.Errorf("opening slot in %s: %w", s.label, err)
	}
	return nil
}

// nextPosition returns max(position)+1 over s, or 0 when s is empty.
func nextPosition(q querier, s scope) (int64, error) {
	p := s.preds()
	stmt := fmt.Sprintf("SELECT COALESCE(MAX(%s) + 1, 0) FROM %s%s", s.column, s.table, p.where())
	var next int64
	if err := q.QueryRow(stmt, p.values()...).Scan(&next); err != nil {
		return 0, fmt.Errorf("computing next position in %s: %w", s.label, err)
	}
	return next, nil
}

// positions returns the ids and positions of s ordered by (position, id).
func positions(q querier, s scope) (ids, pos []int64, err error) {
	query, args := selectQuery("id, "+s.column, s.table, s.preds(), s.column+" ASC, id ASC")
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("reading positions of %s: %w", s.label, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, p int64
		if err := rows.Scan(&id, &p); err != nil {
			return nil, nil, fmt.Errorf("scanning position in %s: %w", s.label, err)
		}
		ids = append(ids, id)
		pos = append(pos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating positions of %s: %w", s.label, err)
	}
	return ids, pos, nil
}

// renumber rewrites s as 0..n-1 keeping the (position, id) order and
// returns how many rows changed.
func renumber(q querier, s scope) (int, error) {
	ids, pos, err := positions(q, s)
	if err != nil {
		return 0, err
	}
	moved := 0
	stmt := fmt.Sprintf("UPDATE %s SET %s = ? WHERE id = ?", s.table, s.column)
	for i, id := range ids {
		if pos[i] == int64(i) {
			continue
		}
		if _, err := q.Exec(stmt, i, id); err != nil {
			return moved, fmt.Errorf("renumbering %s: %w", s.label, err)
		}
		moved++
	}
	return moved, nil
}
