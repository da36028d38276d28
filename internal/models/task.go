// Package models defines the domain types shared between the vault, the
// remote task service, and the sync engine.
package models

import "time"

// Priority is the three-level importance shared by both sides.
type Priority string

// Priority levels, matching the remote service's importance values.
const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Status is the remote task lifecycle state.
type Status string

// Remote task statuses.
const (
	StatusNotStarted Status = "notStarted"
	StatusInProgress Status = "inProgress"
	StatusCompleted  Status = "completed"
)

// Completed reports whether the status counts as done for sync purposes.
func (s Status) Completed() bool {
	return s == StatusCompleted
}

// StatusForCompleted maps a checkbox state to a remote status. An unchecked
// box always maps to notStarted; inProgress is never produced locally.
func StatusForCompleted(done bool) Status {
	if done {
		return StatusCompleted
	}
	return StatusNotStarted
}

// LocalTask is a checklist line found in a vault document. Doc and Line
// identify the line within one read of the document and are used to locate
// it again for rewriting; they are not stable across external edits.
type LocalTask struct {
	Doc      string
	Line     int
	Text     string // inner text after the checkbox, markers included
	Raw      string // the original full line, for in-place rewrite
	Done     bool
	Due      string // ISO date (2006-01-02), empty when absent
	Priority Priority
	Tags     []string
	RemoteID string // remote link marker target, empty when unlinked
}

// RemoteTask is a task held by the remote list service.
type RemoteTask struct {
	ID         string
	ListID     string
	Title      string
	Status     Status
	Importance Priority
	Due        string // ISO date, empty when absent
	CreatedAt  time.Time
	ModifiedAt time.Time
	Body       string
}

// RemoteTaskDraft is the payload for creating a remote task.
type RemoteTaskDraft struct {
	Title      string
	Status     Status
	Importance Priority
	Due        string
	Body       string
}

// TaskPatch is a partial remote update; nil fields are left untouched.
type TaskPatch struct {
	Title      *string
	Status     *Status
	Importance *Priority
	Due        *string
	Body       *string
}

// ListRef identifies a remote task list. WellKnown is the service-assigned
// role name ("defaultList") when the list has one.
type ListRef struct {
	ID        string
	Name      string
	WellKnown string
}

// DocumentRef is lightweight metadata for one vault document.
type DocumentRef struct {
	Path     string
	Checksum string
	ModTime  time.Time
}

// ProjectedState is the comparable view of one side of a pair after
// normalization. Two sides agree exactly when their projections are equal.
type ProjectedState struct {
	Completed bool
	Title     string
	Priority  Priority
	Due       string
}

// ContentEquals reports whether the content fields (everything except the
// completion flag) match.
func (p ProjectedState) ContentEquals(o ProjectedState) bool {
	return p.Title == o.Title && p.Priority == o.Priority && p.Due == o.Due
}
