package sqlite

import (
	"database/sql"
	"fmt"
)

// Seed rows written with the base schema on first run.
const (
	defaultProjectName = "Inbox"
	defaultListName    = "Tasks"
)

// seedDefaults inserts one default project holding one default list. It
// runs against the base schema, before any migration has renamed lists to
// sections.
func seedDefaults(tx *sql.Tx) error {
	res, err := tx.Exec(
		`INSERT INTO projects (name, archive, "index") VALUES (?, 0, 0)`,
		defaultProjectName,
	)
	if err != nil {
		return fmt.Errorf("seeding project: %w", err)
	}
	projectID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading seeded project id: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO lists (name, project, "index") VALUES (?, ?, 0)`,
		defaultListName, projectID,
	); err != nil {
		return fmt.Errorf("seeding list: %w", err)
	}
	return nil
}
