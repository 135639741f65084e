package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

// Export writes every table to <dir>/<table>.jsonl and then manifest.json.
// All tables are read in one pass under the read lock.
func (b *Backend) Export(dir string) (*types.Manifest, error) {
	dumps := make(map[string][]json.RawMessage, len(snapshotTables))
	var version int
	err := b.view(func(q querier) error {
		var err error
		version, err = userVersion(q)
		if err != nil {
			return err
		}
		for _, t := range snapshotTables {
			lines, err := t.dump(q)
			if err != nil {
				return err
			}
			dumps[t.name] = lines
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating snapshot id: %w", err)
	}
	m := &types.Manifest{
		SnapshotID:    id.String(),
		SchemaVersion: version,
		CreatedAt:     time.Now().UTC(),
		Counts:        make(map[string]int, len(snapshotTables)),
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir: %w", err)
	}
	for _, t := range snapshotTables {
		if err := writeJSONL(snapshotPath(dir, t.name), dumps[t.name]); err != nil {
			return nil, fmt.Errorf("writing %s: %w", t.name, err)
		}
		m.Counts[t.name] = len(dumps[t.name])
	}
	if err := writeManifest(dir, m); err != nil {
		return nil, err
	}

	b.logger.Info("exported snapshot", "dir", dir, "snapshot", m.SnapshotID, "counts", m.Counts)
	return m, nil
}

// Import loads a snapshot written by Export into a store that holds no
// tasks, records, or reminders and at most the seed project and section,
// still carrying their seed names. Those seed rows are replaced by the
// snapshot. Loading is one
// transaction; rows keep their ids. The returned manifest carries the
// counts actually inserted.
func (b *Backend) Import(dir string) (*types.Manifest, error) {
	src, err := readManifest(dir)
	if err != nil {
		return nil, err
	}

	m := &types.Manifest{Counts: make(map[string]int, len(snapshotTables))}
	if src != nil {
		m.SnapshotID = src.SnapshotID
		m.CreatedAt = src.CreatedAt
	}

	err = b.update(func(tx *sql.Tx) error {
		version, err := userVersion(tx)
		if err != nil {
			return err
		}
		if src != nil && src.SchemaVersion > version {
			return fmt.Errorf("snapshot version %d, store version %d: %w", src.SchemaVersion, version, types.ErrSnapshotVersion)
		}
		m.SchemaVersion = version

		if err := requireEmpty(tx); err != nil {
			return err
		}
		for _, stmt := range []string{"DELETE FROM sections", "DELETE FROM projects"} {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("clearing seed rows: %w", err)
			}
		}

		for _, t := range snapshotTables {
			lines, err := readJSONL(snapshotPath(dir, t.name))
			if err != nil {
				return err
			}
			n, err := t.load(tx, lines, b.logger)
			if err != nil {
				return err
			}
			m.Counts[t.name] = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	violations, err := b.Check()
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		b.logger.Warn("imported snapshot has violations", "count", len(violations), "first", violations[0].String())
	}
	b.logger.Info("imported snapshot", "dir", dir, "snapshot", m.SnapshotID, "counts", m.Counts)
	return m, nil
}

// requireEmpty fails with ErrStoreNotEmpty unless the store holds only
// what a fresh Open seeds.
func requireEmpty(q querier) error {
	limits := []struct {
		table string
		max   int
	}{
		{"projects", 1},
		{"sections", 1},
		{"tasks", 0},
		{"records", 0},
		{"reminders", 0},
	}
	for _, l := range limits {
		var n int
		if err := q.QueryRow("SELECT COUNT(*) FROM " + l.table).Scan(&n); err != nil {
			return fmt.Errorf("counting %s: %w", l.table, err)
		}
		if n > l.max {
			return fmt.Errorf("%s has %d rows: %w", l.table, n, types.ErrStoreNotEmpty)
		}
	}
	for _, seed := range []struct {
		table string
		name  string
	}{
		{"projects", defaultProjectName},
		{"sections", defaultListName},
	} {
		var n int
		if err := q.QueryRow("SELECT COUNT(*) FROM "+seed.table+" WHERE name != ?", seed.name).Scan(&n); err != nil {
			return fmt.Errorf("reading %s: %w", seed.table, err)
		}
		if n > 0 {
			return fmt.Errorf("%s holds a row other than %q: %w", seed.table, seed.name, types.ErrStoreNotEmpty)
		}
	}
	return nil
}

func snapshotPath(dir, table string) string {
	return filepath.Join(dir, table+".jsonl")
}
