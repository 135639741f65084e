// Package sqlite implements the taskstore Store on a single SQLite file.
//
// Every public repository operation runs in one transaction. Position
// maintenance (reindex.go), subtree walks (tree.go), and predicate
// assembly (query.go) are shared by the table accessors.
package sqlite

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/taskstore/pkg/types"
)

// Compile-time interface check.
var _ types.Store = (*Backend)(nil)

// querier is satisfied by *sql.DB and *sql.Tx, so helpers run unchanged
// inside or outside a transaction.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Backend implements types.Store using SQLite. The zero value is not
// usable; create one with NewBackend and call Open.
type Backend struct {
	mu     sync.RWMutex
	open   bool
	config types.Config
	db     *sql.DB
	logger *slog.Logger

	projects  *projectsTable
	sections  *sectionsTable
	tasks     *tasksTable
	records   *recordsTable
	reminders *remindersTable
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBackend creates a closed backend. Call Open with a Config to use it.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.projects = &projectsTable{backend: b}
	b.sections = &sectionsTable{backend: b}
	b.tasks = &tasksTable{backend: b}
	b.records = &recordsTable{backend: b}
	b.reminders = &remindersTable{backend: b}
	return b
}

// Open creates DataDir if needed, opens the database file, creates the
// base schema with seed data on first run, and applies pending migrations.
// Returns ErrAlreadyOpen if the backend is already open.
func (b *Backend) Open(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		return types.ErrAlreadyOpen
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	path := config.DBPath()
	b.logger.Info("opening task store", "path", path)

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return fmt.Errorf("opening sqlite: %w", err)
	}
	// Single local writer: one connection serialises every statement.
	db.SetMaxOpenConns(1)

	if err := setPragmas(db, b.logger); err != nil {
		db.Close()
		return err
	}
	if err := ensureBaseSchema(db, b.logger); err != nil {
		db.Close()
		return fmt.Errorf("creating base schema: %w", err)
	}
	if err := runMigrations(db, b.logger, latestVersion()); err != nil {
		db.Close()
		return err
	}

	b.db = db
	b.config = config
	b.open = true

	b.logger.Info("task store ready", "path", path)
	return nil
}

// Close releases the database. After Close every operation returns
// ErrStoreClosed. Close is idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return nil
	}
	b.open = false
	err := b.db.Close()
	b.db = nil
	if err != nil {
		return fmt.Errorf("closing sqlite: %w", err)
	}
	b.logger.Info("task store closed")
	return nil
}

// Projects returns the project repository.
func (b *Backend) Projects() types.ProjectStore { return b.projects }

// Sections returns the section repository.
func (b *Backend) Sections() types.SectionStore { return b.sections }

// Tasks returns the task repository.
func (b *Backend) Tasks() types.TaskStore { return b.tasks }

// Records returns the record repository.
func (b *Backend) Records() types.RecordStore { return b.records }

// Reminders returns the reminder repository.
func (b *Backend) Reminders() types.ReminderStore { return b.reminders }

// SchemaVersion returns the last applied migration version.
func (b *Backend) SchemaVersion() (int, error) {
	var v int
	err := b.view(func(q querier) error {
		var err error
		v, err = userVersion(q)
		return err
	})
	return v, err
}

// view runs fn inside one read transaction under the read lock, so every
// query fn issues sees the same snapshot. The transaction is always rolled
// back.
func (b *Backend) view(fn func(q querier) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.open {
		return types.ErrStoreClosed
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning read transaction: %w", err)
	}
	defer tx.Rollback()

	return fn(tx)
}

// update runs fn inside one transaction under the write lock. The
// transaction commits only when fn returns nil.
func (b *Backend) update(fn func(tx *sql.Tx) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return types.ErrStoreClosed
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// setPragmas configures the connection for a single local writer.
func setPragmas(db *sql.DB, logger *slog.Logger) error {
	pragmas := []struct {
		sql  string
		desc string
	}{
		{"PRAGMA journal_mode = WAL", "WAL mode"},
		{"PRAGMA synchronous = NORMAL", "synchronous NORMAL"},
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p.sql); err != nil {
			return fmt.Errorf("setting pragma %s: %w", p.desc, err)
		}
		logger.Debug("pragma set", "pragma", p.desc)
	}
	return nil
}

// sqliteDSN turns a file path into a file: URI with a busy timeout.
func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
