package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// migration is one forward-only schema step. Applied versions are stamped
// in PRAGMA user_version inside the same transaction as the step.
type migration struct {
	version int
	name    string
	apply   func(tx *sql.Tx) error
}

// migrations is append-only: never reorder, edit, or remove a shipped step.
var migrations = []migration{
	{1, "add projects.icon", execStep(`ALTER TABLE projects ADD COLUMN icon TEXT NOT NULL DEFAULT ''`)},
	{2, "add projects.description", execStep(`ALTER TABLE projects ADD COLUMN description TEXT NOT NULL DEFAULT ''`)},
	{3, "rename lists to sections", execStep(`ALTER TABLE lists RENAME TO sections`)},
	{4, "rename tasks.list to section", execStep(`ALTER TABLE tasks RENAME COLUMN list TO section`)},
	{5, "add tasks.suspended", execStep(`ALTER TABLE tasks ADD COLUMN suspended INTEGER NOT NULL DEFAULT 0`)},
	{6, "add tasks.parent", execStep(`ALTER TABLE tasks ADD COLUMN parent INTEGER NOT NULL DEFAULT 0`)},
	{7, "add tasks.description", execStep(`ALTER TABLE tasks ADD COLUMN description TEXT NOT NULL DEFAULT ''`)},
	{8, "create records", execStep(`CREATE TABLE records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    start INTEGER NOT NULL,
    duration INTEGER NOT NULL DEFAULT 0,
    task INTEGER NOT NULL
)`)},
	{9, "add tasks.date", execStep(`ALTER TABLE tasks ADD COLUMN date INTEGER NOT NULL DEFAULT 0`)},
	{10, "backfill subtask project", backfillSubtaskProjects},
	{11, "create reminders", execStep(`CREATE TABLE reminders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    datetime INTEGER NOT NULL,
    past INTEGER NOT NULL DEFAULT 0,
    task INTEGER NOT NULL,
    priority INTEGER NOT NULL DEFAULT 0
)`)},
	{12, "create lookup indexes", execStep(
		`CREATE INDEX IF NOT EXISTS idx_sections_project ON sections(project)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_section_parent ON tasks(section, parent)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project)`,
		`CREATE INDEX IF NOT EXISTS idx_records_task ON records(task)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_task ON reminders(task)`,
	)},
}

// latestVersion returns the version of the last migration.
func latestVersion() int {
	return migrations[len(migrations)-1].version
}

// execStep returns a migration body running the statements in order.
func execStep(stmts ...string) func(tx *sql.Tx) error {
	return func(tx *sql.Tx) error {
		for _, s := range stmts {
			if _, err := tx.Exec(s); err != nil {
				return err
			}
		}
		return nil
	}
}

// runMigrations applies every migration with current < version <= target.
func runMigrations(db *sql.DB, logger *slog.Logger, target int) error {
	current, err := userVersion(db)
	if err != nil {
		return err
	}
	logger.Debug("current schema version", "version", current)

	for _, m := range migrations {
		if m.version <= current || m.version > target {
			continue
		}
		if err := applyMigration(db, logger, m); err != nil {
			return err
		}
	}
	return nil
}

// applyMigration runs one step and stamps its version atomically.
func applyMigration(db *sql.DB, logger *slog.Logger, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.version, err)
	}
	defer tx.Rollback()

	if err := m.apply(tx); err != nil {
		return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
	}
	// PRAGMA cannot be parameterized.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return fmt.Errorf("stamp version %d: %w", m.version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.version, err)
	}

	logger.Info("applied migration", "version", m.version, "name", m.name)
	return nil
}

// backfillSubtaskProjects copies the top-level ancestor's project onto every
// subtask. Broken chains (missing parent) stop at the last reachable task,
// and cycles are cut when a task repeats.
func backfillSubtaskProjects(tx *sql.Tx) error {
	links, err := loadTaskLinks(tx)
	if err != nil {
		return err
	}
	for id, l := range links {
		if l.parent == 0 {
			continue
		}
		project := links[rootOf(links, id)].project
		if project == l.project {
			continue
		}
		if _, err := tx.Exec("UPDATE tasks SET project = ? WHERE id = ?", project, id); err != nil {
			return fmt.Errorf("backfilling project of task %d: %w", id, err)
		}
	}
	return nil
}
