package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

var _ types.SectionStore = (*sectionsTable)(nil)

// sectionsTable implements SectionStore. Index is dense per project.
type sectionsTable struct {
	backend *Backend
}

func (st *sectionsTable) Create(name string, projectID int64) (*types.Section, error) {
	s := &types.Section{Name: name, Project: projectID}
	err := st.backend.update(func(tx *sql.Tx) error {
		next, err := nextPosition(tx, sectionScope(projectID))
		if err != nil {
			return err
		}
		s.Index = next
		res, err := tx.Exec(`INSERT INTO sections (name, project, "index") VALUES (?, ?, ?)`, s.Name, s.Project, s.Index)
		if err != nil {
			return fmt.Errorf("inserting section: %w", err)
		}
		s.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading section id: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// List returns the sections of a project ordered by index.
func (st *sectionsTable) List(projectID int64) ([]*types.Section, error) {
	query, args := selectQuery(sectionColumns, "sections", (&predicates{}).eq("project", projectID), `"index" ASC, id ASC`)
	out := []*types.Section{}
	err := st.backend.view(func(q querier) error {
		rows, err := q.Query(query, args...)
		if err != nil {
			return fmt.Errorf("listing sections of project %d: %w", projectID, err)
		}
		defer rows.Close()
		for rows.Next() {
			s, err := hydrateSection(rows)
			if err != nil {
				return fmt.Errorf("hydrating section: %w", err)
			}
			out = append(out, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (st *sectionsTable) Get(id int64) (*types.Section, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	var s *types.Section
	err := st.backend.view(func(q querier) error {
		var err error
		s, err = getSection(q, id)
		return err
	})
	return s, err
}

// Update reorders the section within its project. When the project
// changes the section leaves a gap in the old project, takes the requested
// slot in the new one, and carries its tasks along.
func (st *sectionsTable) Update(s *types.Section) error {
	if s == nil {
		return types.ErrInvalidData
	}
	if s.ID <= 0 {
		return types.ErrInvalidID
	}
	return st.backend.update(func(tx *sql.Tx) error {
		stored, err := getSection(tx, s.ID)
		if err != nil {
			return err
		}

		if stored.Project != s.Project {
			if err := closeGap(tx, sectionScope(stored.Project), stored.Index); err != nil {
				return err
			}
			if err := openSlot(tx, sectionScope(s.Project), s.Index); err != nil {
				return err
			}
			ids, err := sectionTaskIDs(tx, s.ID)
			if err != nil {
				return err
			}
			if err := setProject(tx, ids, s.Project); err != nil {
				return err
			}
			st.backend.logger.Debug("moved section", "id", s.ID, "from", stored.Project, "to", s.Project, "tasks", len(ids))
		} else if err := shift(tx, sectionScope(s.Project), s.ID, stored.Index, s.Index); err != nil {
			return err
		}

		_, err = tx.Exec(`UPDATE sections SET name = ?, project = ?, "index" = ? WHERE id = ?`, s.Name, s.Project, s.Index, s.ID)
		if err != nil {
			return fmt.Errorf("updating section %d: %w", s.ID, err)
		}
		return nil
	})
}

// Delete removes the section with its tasks and their subtrees, then
// closes the gap among the project's sections.
func (st *sectionsTable) Delete(id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	return st.backend.update(func(tx *sql.Tx) error {
		stored, err := getSection(tx, id)
		if err != nil {
			return err
		}
		ids, err := sectionTaskIDs(tx, id)
		if err != nil {
			return err
		}
		if err := deleteTaskRows(tx, ids); err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM sections WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting section %d: %w", id, err)
		}
		st.backend.logger.Debug("deleted section", "id", id, "tasks", len(ids))
		return closeGap(tx, sectionScope(stored.Project), stored.Index)
	})
}

// sectionTaskIDs returns the top-level tasks filed under the section
// together with the subtrees below them. Subtasks keep a section column of
// their own, which goes stale when an ancestor moves, so it is not used to
// pick roots.
func sectionTaskIDs(q querier, sectionID int64) ([]int64, error) {
	rows, err := q.Query("SELECT id FROM tasks WHERE section = ? AND parent = 0", sectionID)
	if err != nil {
		return nil, fmt.Errorf("reading tasks of section %d: %w", sectionID, err)
	}
	roots, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}
	return subtree(q, roots...)
}

func getSection(q querier, id int64) (*types.Section, error) {
	row := q.QueryRow("SELECT "+sectionColumns+" FROM sections WHERE id = ?", id)
	s, err := hydrateSection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting section %d: %w", id, err)
	}
	return s, nil
}

func hydrateSection(sc scanner) (*types.Section, error) {
	var s types.Section
	if err := sc.Scan(&s.ID, &s.Name, &s.Project, &s.Index); err != nil {
		return nil, err
	}
	return &s, nil
}
