package types

import (
	"fmt"
	"time"
)

// Violation kinds reported by Store.Check.
const (
	ViolationGap          = "gap"
	ViolationDuplicate    = "duplicate"
	ViolationProject      = "project_mismatch"
	ViolationOrphanTask   = "orphan_task"
	ViolationOrphanRecord = "orphan_record"
	ViolationOrphanRemind = "orphan_reminder"
)

// Violation describes one broken invariant. Scope names the sibling scope
// (for example "sections:project=3") or the table of an orphaned row.
type Violation struct {
	Kind   string `json:"kind"`
	Scope  string `json:"scope"`
	ID     int64  `json:"id"`
	Detail string `json:"detail"`
}

func (v Violation) String() string {
	if v.ID != 0 {
		return fmt.Sprintf("%s %s id=%d: %s", v.Kind, v.Scope, v.ID, v.Detail)
	}
	return fmt.Sprintf("%s %s: %s", v.Kind, v.Scope, v.Detail)
}

// Manifest describes a JSONL snapshot written by Store.Export.
type Manifest struct {
	SnapshotID    string         `json:"snapshot_id"`
	SchemaVersion int            `json:"schema_version"`
	CreatedAt     time.Time      `json:"created_at"`
	Counts        map[string]int `json:"counts"`
}
