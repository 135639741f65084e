package types

import "errors"

// Store is the entry point to a task store. Repositories are obtained from
// an open Store; Close releases the backing file.
type Store interface {
	Projects() ProjectStore
	Sections() SectionStore
	Tasks() TaskStore
	Records() RecordStore
	Reminders() ReminderStore

	// Check reports every invariant violation found in the store.
	Check() ([]Violation, error)

	// Repair renumbers every sibling scope densely and returns the number
	// of rows whose position changed.
	Repair() (int, error)

	// Export writes a JSONL snapshot of the store into dir.
	Export(dir string) (*Manifest, error)

	// Import loads a JSONL snapshot from dir into an empty store.
	Import(dir string) (*Manifest, error)

	// SchemaVersion returns the last applied migration version.
	SchemaVersion() (int, error)

	// Close releases the backing file. Close is idempotent.
	Close() error
}

// ProjectStore manages projects. Index is dense over all projects.
type ProjectStore interface {
	Create(name, icon, description string) (*Project, error)
	List(includeArchived bool) ([]*Project, error)
	Get(id int64) (*Project, error)
	Update(p *Project) error
	Delete(id int64) error
	Find(text string, includeArchived bool) ([]*Project, error)
}

// SectionStore manages sections. Index is dense per project.
type SectionStore interface {
	Create(name string, projectID int64) (*Section, error)
	List(projectID int64) ([]*Section, error)
	Get(id int64) (*Section, error)
	Update(s *Section) error
	Delete(id int64) error
}

// TaskStore manages tasks and their subtask trees.
type TaskStore interface {
	Create(t *Task) (*Task, error)
	Get(id int64) (*Task, error)
	List(filter TaskFilter) ([]*Task, error)
	Children(parentID int64) ([]*Task, error)
	Update(t *Task) error
	Delete(id int64) error
	Restore(id int64) error
	PurgeSuspended() (int, error)
	Tree(id int64, onlyWithDate bool) ([]int64, error)
	Duration(id int64) (int64, error)
	Find(text string, includeDone bool) ([]*Task, error)
	NextPositionInSection(sectionID int64) (int64, error)
	NextPositionUnderParent(parentID int64) (int64, error)
}

// RecordStore manages time-tracking records.
type RecordStore interface {
	Create(start, taskID, duration int64) (*Record, error)
	List(filter RecordFilter) ([]*Record, error)
	Get(id int64) (*Record, error)
	Update(r *Record) error
	Stop(id, end int64) (*Record, error)
	Delete(id int64) error
}

// ReminderStore manages task reminders.
type ReminderStore interface {
	Create(datetime, taskID, priority int64) (*Reminder, error)
	List(taskID int64) ([]*Reminder, error)
	Due(now int64) ([]*Reminder, error)
	Get(id int64) (*Reminder, error)
	Update(r *Reminder) error
	MarkPast(id int64) error
	Delete(id int64) error
}

// Store lifecycle errors.
var (
	ErrStoreClosed = errors.New("store is closed")
	ErrAlreadyOpen = errors.New("store is already open")
)

// Repository errors.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidID     = errors.New("invalid entity ID")
	ErrInvalidData   = errors.New("invalid entity data")
	ErrRecordRunning = errors.New("task already has a running record")
	ErrRecordClosed  = errors.New("record is already closed")
)

// Snapshot errors.
var (
	ErrStoreNotEmpty   = errors.New("store is not empty")
	ErrSnapshotVersion = errors.New("snapshot schema version is newer than the store")
)
