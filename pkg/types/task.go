package types

// Task is a unit of work. A top-level task (Parent == 0) is positioned
// among the top-level tasks of its Section; a subtask is positioned among
// the children of its Parent.
type Task struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Done        bool   `json:"done"`
	Project     int64  `json:"project"`
	Section     int64  `json:"section"`
	Parent      int64  `json:"parent"`
	Position    int64  `json:"position"`
	Suspended   bool   `json:"suspended"`
	Description string `json:"description"`
	Date        int64  `json:"date"` // unix seconds, 0 when unset
}

// IsTopLevel reports whether the task has no parent.
func (t *Task) IsTopLevel() bool {
	return t.Parent == 0
}

// HasDate reports whether a due date is set.
func (t *Task) HasDate() bool {
	return t.Date != 0
}

// SameScope reports whether t and o are siblings: both top-level in the
// same section, or both children of the same parent.
func (t *Task) SameScope(o *Task) bool {
	if t.Parent != o.Parent {
		return false
	}
	if t.Parent != 0 {
		return true
	}
	return t.Section == o.Section
}

// Record is a time-tracking interval. Duration 0 means the timer is running.
type Record struct {
	ID       int64 `json:"id"`
	Start    int64 `json:"start"`    // unix seconds
	Duration int64 `json:"duration"` // seconds
	Task     int64 `json:"task"`
}

// Running reports whether the record is still open.
func (r *Record) Running() bool {
	return r.Duration == 0
}

// End returns the unix time the record closed, or 0 while running.
func (r *Record) End() int64 {
	if r.Running() {
		return 0
	}
	return r.Start + r.Duration
}

// Reminder schedules a notification for a task.
type Reminder struct {
	ID       int64 `json:"id"`
	Datetime int64 `json:"datetime"` // unix seconds
	Past     bool  `json:"past"`
	Task     int64 `json:"task"`
	Priority int64 `json:"priority"`
}
