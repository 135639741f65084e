package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

var _ types.ProjectStore = (*projectsTable)(nil)

// projectsTable implements ProjectStore. Index is dense over all projects.
type projectsTable struct {
	backend *Backend
}

// Create appends a project after every existing one.
func (pt *projectsTable) Create(name, icon, description string) (*types.Project, error) {
	p := &types.Project{Name: name, Icon: icon, Description: description}
	err := pt.backend.update(func(tx *sql.Tx) error {
		next, err := nextPosition(tx, projectScope())
		if err != nil {
			return err
		}
		p.Index = next
		res, err := tx.Exec(
			`INSERT INTO projects (name, archive, "index", icon, description) VALUES (?, 0, ?, ?, ?)`,
			p.Name, p.Index, p.Icon, p.Description,
		)
		if err != nil {
			return fmt.Errorf("inserting project: %w", err)
		}
		p.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading project id: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List returns projects ordered by index, archived ones only on request.
func (pt *projectsTable) List(includeArchived bool) ([]*types.Project, error) {
	p := &predicates{}
	if !includeArchived {
		p.flag("archive", false)
	}
	return pt.fetch(p)
}

// Get retrieves a project by id.
func (pt *projectsTable) Get(id int64) (*types.Project, error) {
	if id <= 0 {
		return nil, types.ErrInvalidID
	}
	var p *types.Project
	err := pt.backend.view(func(q querier) error {
		var err error
		p, err = getProject(q, id)
		return err
	})
	return p, err
}

// Update moves the project to its requested index, shifting the others,
// then writes every mutable field.
func (pt *projectsTable) Update(p *types.Project) error {
	if p == nil {
		return types.ErrInvalidData
	}
	if p.ID <= 0 {
		return types.ErrInvalidID
	}
	return pt.backend.update(func(tx *sql.Tx) error {
		stored, err := getProject(tx, p.ID)
		if err != nil {
			return err
		}
		if err := shift(tx, projectScope(), p.ID, stored.Index, p.Index); err != nil {
			return err
		}
		_, err = tx.Exec(
			`UPDATE projects SET name = ?, archive = ?, "index" = ?, icon = ?, description = ? WHERE id = ?`,
			p.Name, boolToInt(p.Archived), p.Index, p.Icon, p.Description, p.ID,
		)
		if err != nil {
			return fmt.Errorf("updating project %d: %w", p.ID, err)
		}
		return nil
	})
}

// Delete removes the project with its sections, tasks, records, and
// reminders, then closes the gap it leaves among projects.
func (pt *projectsTable) Delete(id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	return pt.backend.update(func(tx *sql.Tx) error {
		stored, err := getProject(tx, id)
		if err != nil {
			return err
		}

		roots, err := projectTaskRoots(tx, id)
		if err != nil {
			return err
		}
		ids, err := subtree(tx, roots...)
		if err != nil {
			return err
		}
		if err := deleteTaskRows(tx, ids); err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM sections WHERE project = ?", id); err != nil {
			return fmt.Errorf("deleting sections of project %d: %w", id, err)
		}
		if _, err := tx.Exec("DELETE FROM projects WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting project %d: %w", id, err)
		}
		pt.backend.logger.Debug("deleted project", "id", id, "tasks", len(ids))

		return closeGap(tx, projectScope(), stored.Index)
	})
}

// Find returns projects whose name contains text literally.
func (pt *projectsTable) Find(text string, includeArchived bool) ([]*types.Project, error) {
	p := (&predicates{}).contains("name", text)
	if !includeArchived {
		p.flag("archive", false)
	}
	return pt.fetch(p)
}

func (pt *projectsTable) fetch(p *predicates) ([]*types.Project, error) {
	query, args := selectQuery(projectColumns, "projects", p, `"index" ASC, id ASC`)
	var out []*types.Project
	err := pt.backend.view(func(q querier) error {
		rows, err := q.Query(query, args...)
		if err != nil {
			return fmt.Errorf("fetching projects: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			p, err := hydrateProject(rows)
			if err != nil {
				return fmt.Errorf("hydrating project: %w", err)
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*types.Project{}
	}
	return out, nil
}

// projectTaskRoots returns the top-level tasks owned by the project
// directly or through one of its sections. Subtasks are reached only by
// walking down from these roots, so a subtask whose stored project is
// stale after shallow propagation stays with its ancestor.
func projectTaskRoots(q querier, projectID int64) ([]int64, error) {
	rows, err := q.Query(
		"SELECT id FROM tasks WHERE parent = 0 AND (project = ? OR section IN (SELECT id FROM sections WHERE project = ?))",
		projectID, projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("reading tasks of project %d: %w", projectID, err)
	}
	return scanIDs(rows)
}

func getProject(q querier, id int64) (*types.Project, error) {
	row := q.QueryRow("SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	p, err := hydrateProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting project %d: %w", id, err)
	}
	return p, nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func hydrateProject(s scanner) (*types.Project, error) {
	var p types.Project
	if err := s.Scan(&p.ID, &p.Name, &p.Archived, &p.Index, &p.Icon, &p.Description); err != nil {
		return nil, err
	}
	return &p, nil
}
