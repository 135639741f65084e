package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

// snapshotTable moves one table between SQLite and its JSONL file.
type snapshotTable struct {
	name string // file stem and manifest count key
	dump func(q querier) ([]json.RawMessage, error)
	load func(tx *sql.Tx, lines []json.RawMessage, logger *slog.Logger) (int, error)
}

// snapshotTables lists the tables in load order: containers before the rows
// that reference them.
var snapshotTables = []snapshotTable{
	tableCodec("projects", projectColumns, `"index", id`, hydrateProject, func(p *types.Project) []any {
		return []any{p.ID, p.Name, boolToInt(p.Archived), p.Index, p.Icon, p.Description}
	}),
	tableCodec("sections", sectionColumns, `project, "index", id`, hydrateSection, func(s *types.Section) []any {
		return []any{s.ID, s.Name, s.Project, s.Index}
	}),
	tableCodec("tasks", taskColumns, "id", hydrateTask, func(t *types.Task) []any {
		return []any{t.ID, t.Name, boolToInt(t.Done), t.Project, t.Section, t.Parent,
			t.Position, boolToInt(t.Suspended), t.Description, t.Date}
	}),
	tableCodec("records", recordColumns, "id", hydrateRecord, func(r *types.Record) []any {
		return []any{r.ID, r.Start, r.Duration, r.Task}
	}),
	tableCodec("reminders", reminderColumns, "id", hydrateReminder, func(r *types.Reminder) []any {
		return []any{r.ID, r.Datetime, boolToInt(r.Past), r.Task, r.Priority}
	}),
}

// tableCodec builds the dump and load functions of a table whose rows
// hydrate into T. args must return values in columns order.
func tableCodec[T any](table, columns, order string, hydrate func(scanner) (*T, error), args func(*T) []any) snapshotTable {
	return snapshotTable{
		name: table,
		dump: func(q querier) ([]json.RawMessage, error) {
			rows, err := q.Query("SELECT " + columns + " FROM " + table + " ORDER BY " + order)
			if err != nil {
				return nil, fmt.Errorf("dumping %s: %w", table, err)
			}
			defer rows.Close()
			var lines []json.RawMessage
			for rows.Next() {
				v, err := hydrate(rows)
				if err != nil {
					return nil, fmt.Errorf("hydrating %s row: %w", table, err)
				}
				line, err := json.Marshal(v)
				if err != nil {
					return nil, fmt.Errorf("encoding %s row: %w", table, err)
				}
				lines = append(lines, line)
			}
			return lines, rows.Err()
		},
		load: func(tx *sql.Tx, lines []json.RawMessage, logger *slog.Logger) (int, error) {
			return insertRecords(tx, table, columns, lines, args, logger)
		},
	}
}

// insertRecords decodes each line into T and inserts it with its id.
// Unknown fields are ignored; lines that do not decode or that collide
// with an existing row are skipped.
func insertRecords[T any](tx *sql.Tx, table, columns string, lines []json.RawMessage, args func(*T) []any, logger *slog.Logger) (int, error) {
	if len(lines) == 0 {
		return 0, nil
	}
	n := len(args(new(T)))
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, columns, placeholders(n)))
	if err != nil {
		return 0, fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	inserted := 0
	for i, line := range lines {
		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			logger.Warn("skipping undecodable line", "table", table, "line", i+1, "error", err)
			continue
		}
		if _, err := stmt.Exec(args(&v)...); err != nil {
			logger.Warn("skipping conflicting row", "table", table, "line", i+1, "error", err)
			continue
		}
		inserted++
	}
	return inserted, nil
}
