package types

// TaskFilter selects tasks for TaskStore.List. Nil fields do not filter.
// Suspended tasks are excluded unless IncludeSuspended is set.
type TaskFilter struct {
	Project          *int64
	Section          *int64
	Parent           *int64
	Done             *bool
	From             *int64 // inclusive lower bound on Date
	To               *int64 // exclusive upper bound on Date
	IncludeSuspended bool
}

// RecordFilter selects records of one task for RecordStore.List.
// Incomplete selects open records (duration 0); otherwise closed ones.
type RecordFilter struct {
	Task       int64
	Incomplete bool
	From       *int64 // inclusive lower bound on Start
	To         *int64 // exclusive upper bound on Start
}

// Int64 returns a pointer to v, for filter literals.
func Int64(v int64) *int64 { return &v }

// Bool returns a pointer to v, for filter literals.
func Bool(v bool) *bool { return &v }
