// Package types defines the entity types, filters, repository interfaces,
// configuration, and standard errors for the taskstore ordered task store.
//
// Projects own sections, sections own top-level tasks, and tasks own
// subtasks, records, and reminders. Projects, sections, and tasks carry a
// dense zero-based position within their sibling scope.
package types
