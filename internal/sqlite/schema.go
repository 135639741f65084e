package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// Base schema DDL, created once on a fresh database file. Later columns and
// tables arrive through migrations so old files and new files converge.
const (
	createProjects = `CREATE TABLE projects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    archive INTEGER NOT NULL DEFAULT 0,
    "index" INTEGER NOT NULL DEFAULT 0
);`

	createLists = `CREATE TABLE lists (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    project INTEGER NOT NULL,
    "index" INTEGER NOT NULL DEFAULT 0
);`

	createTasks = `CREATE TABLE tasks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    done INTEGER NOT NULL DEFAULT 0,
    project INTEGER NOT NULL DEFAULT 0,
    list INTEGER NOT NULL DEFAULT 0,
    position INTEGER NOT NULL DEFAULT 0
);`
)

// baseDDL lists the base CREATE TABLE statements in creation order.
var baseDDL = []string{
	createProjects,
	createLists,
	createTasks,
}

// Column lists shared by reads and snapshot loading. The order matches the
// hydrate functions of each table accessor.
const (
	projectColumns  = `id, name, archive, "index", icon, description`
	sectionColumns  = `id, name, project, "index"`
	taskColumns     = `id, name, done, project, section, parent, position, suspended, description, date`
	recordColumns   = `id, start, duration, task`
	reminderColumns = `id, datetime, past, task, priority`
)

// ensureBaseSchema creates the base tables and seed rows when the file has
// no projects table yet. Existing files are left for the migrations.
func ensureBaseSchema(db *sql.DB, logger *slog.Logger) error {
	var n int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'projects'",
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspecting schema: %w", err)
	}
	if n > 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning schema transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ddl := range baseDDL {
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("executing base DDL: %w", err)
		}
	}
	if err := seedDefaults(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing base schema: %w", err)
	}

	logger.Info("created base schema")
	return nil
}

// userVersion reads the applied migration version.
func userVersion(q querier) (int, error) {
	var v int
	if err := q.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}
