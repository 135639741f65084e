package sqlite

import (
	"database/sql"
	"fmt"
	"slices"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

// Check walks every sibling scope and the task hierarchy and reports what
// it finds broken. It never writes.
func (b *Backend) Check() ([]types.Violation, error) {
	var out []types.Violation
	err := b.view(func(q querier) error {
		scopes, err := allScopes(q)
		if err != nil {
			return err
		}
		for _, s := range scopes {
			ids, pos, err := positions(q, s)
			if err != nil {
				return err
			}
			out = append(out, scopeViolations(s, ids, pos)...)
		}

		links, err := loadTaskLinks(q)
		if err != nil {
			return err
		}
		sections, err := existingIDs(q, "sections")
		if err != nil {
			return err
		}
		out = append(out, hierarchyViolations(links, sections)...)

		for _, o := range []struct{ table, kind string }{
			{"records", types.ViolationOrphanRecord},
			{"reminders", types.ViolationOrphanRemind},
		} {
			rows, err := q.Query("SELECT id FROM " + o.table + " WHERE task NOT IN (SELECT id FROM tasks) ORDER BY id")
			if err != nil {
				return fmt.Errorf("finding orphaned %s: %w", o.table, err)
			}
			ids, err := scanIDs(rows)
			if err != nil {
				return err
			}
			for _, id := range ids {
				out = append(out, types.Violation{Kind: o.kind, Scope: o.table, ID: id, Detail: "task does not exist"})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Repair renumbers every sibling scope to 0..n-1 in (position, id) order
// and returns how many rows moved.
func (b *Backend) Repair() (int, error) {
	moved := 0
	err := b.update(func(tx *sql.Tx) error {
		scopes, err := allScopes(tx)
		if err != nil {
			return err
		}
		for _, s := range scopes {
			n, err := renumber(tx, s)
			if err != nil {
				return err
			}
			if n > 0 {
				b.logger.Debug("renumbered scope", "scope", s.label, "moved", n)
			}
			moved += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	b.logger.Info("repair finished", "moved", moved)
	return moved, nil
}

// allScopes lists every non-empty sibling scope in the store.
func allScopes(q querier) ([]scope, error) {
	scopes := []scope{projectScope()}

	projects, err := distinct(q, "SELECT DISTINCT project FROM sections ORDER BY project")
	if err != nil {
		return nil, err
	}
	for _, id := range projects {
		scopes = append(scopes, sectionScope(id))
	}

	sections, err := distinct(q, "SELECT DISTINCT section FROM tasks WHERE parent = 0 ORDER BY section")
	if err != nil {
		return nil, err
	}
	for _, id := range sections {
		scopes = append(scopes, sectionTaskScope(id))
	}

	parents, err := distinct(q, "SELECT DISTINCT parent FROM tasks WHERE parent != 0 ORDER BY parent")
	if err != nil {
		return nil, err
	}
	for _, id := range parents {
		scopes = append(scopes, parentTaskScope(id))
	}
	return scopes, nil
}

func distinct(q querier, query string) ([]int64, error) {
	rows, err := q.Query(query)
	if err != nil {
		return nil, fmt.Errorf("listing scopes: %w", err)
	}
	return scanIDs(rows)
}

func existingIDs(q querier, table string) (map[int64]bool, error) {
	rows, err := q.Query("SELECT id FROM " + table)
	if err != nil {
		return nil, fmt.Errorf("reading %s ids: %w", table, err)
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// scopeViolations compares positions, sorted by (position, id), against
// 0..n-1. Every repeat of a position is a duplicate; a scope whose distinct
// positions are not contiguous from zero has a gap.
func scopeViolations(s scope, ids, pos []int64) []types.Violation {
	var out []types.Violation
	distinctPos := make([]int64, 0, len(pos))
	for i, p := range pos {
		if i > 0 && p == pos[i-1] {
			out = append(out, types.Violation{
				Kind:   types.ViolationDuplicate,
				Scope:  s.label,
				ID:     ids[i],
				Detail: fmt.Sprintf("position %d shared with id %d", p, ids[i-1]),
			})
			continue
		}
		distinctPos = append(distinctPos, p)
	}
	for i, p := range distinctPos {
		if p != int64(i) {
			out = append(out, types.Violation{
				Kind:   types.ViolationGap,
				Scope:  s.label,
				Detail: fmt.Sprintf("positions %v are not 0..%d", distinctPos, len(distinctPos)-1),
			})
			break
		}
	}
	return out
}

// hierarchyViolations reports subtasks whose parent is gone, top-level
// tasks whose section is gone, and subtasks whose project differs from
// their top-level ancestor.
func hierarchyViolations(links map[int64]taskLink, sections map[int64]bool) []types.Violation {
	ids := make([]int64, 0, len(links))
	for id := range links {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var out []types.Violation
	for _, id := range ids {
		l := links[id]
		if l.parent == 0 {
			if !sections[l.section] {
				out = append(out, types.Violation{
					Kind: types.ViolationOrphanTask, Scope: "tasks", ID: id,
					Detail: fmt.Sprintf("section %d does not exist", l.section),
				})
			}
			continue
		}
		if _, ok := links[l.parent]; !ok {
			out = append(out, types.Violation{
				Kind: types.ViolationOrphanTask, Scope: "tasks", ID: id,
				Detail: fmt.Sprintf("parent %d does not exist", l.parent),
			})
			continue
		}
		root := rootOf(links, id)
		if want := links[root].project; want != l.project {
			out = append(out, types.Violation{
				Kind: types.ViolationProject, Scope: "tasks", ID: id,
				Detail: fmt.Sprintf("project %d, top-level ancestor %d has project %d", l.project, root, want),
			})
		}
	}
	return out
}
