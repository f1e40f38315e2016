// Package models defines the data types shared by the task assignment and
// lifecycle engine: tasks, subtasks, agents, leases, assignment records,
// decisions, and artifacts.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the task state machine's status value.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
)

// Priority is ordered low < medium < high < urgent.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

// Weight returns a numeric weight usable in fit scoring; higher is more urgent.
func (p Priority) Weight() float64 {
	switch p {
	case PriorityUrgent:
		return 1.0
	case PriorityHigh:
		return 0.75
	case PriorityMedium:
		return 0.5
	default:
		return 0.25
	}
}

// DependencyType distinguishes hard (blocking) from soft (mockable) edges.
type DependencyType string

const (
	DependencyHard DependencyType = "hard"
	DependencySoft DependencyType = "soft"
)

// Dependency is a single edge from a task to one of its predecessors.
type Dependency struct {
	TaskID int64
	Type   DependencyType
}

// NewID generates a stable opaque identifier for any entity in this package.
func NewID() string {
	return uuid.NewString()
}

// Task is the primary unit of work.
type Task struct {
	ID           int64
	Name         string
	Description  string
	Labels       map[string]struct{}
	Priority     Priority
	EffortHours  float64
	Status       Status
	Assignee     string // agent id, empty if unassigned
	Capabilities map[string]struct{}

	Dependencies []Dependency

	ParentID *int64 // set only for subtasks
	Children []int64

	CreatedAt time.Time
	UpdatedAt time.Time

	Progress      int // 0..100, last reported progress (spec §4.5)
	BlockedReason string
	BlockedAt     time.Time
	RecoveryNotes []string
	RollupComment string

	// Order, Provides, and Requires are only meaningful when IsSubtask() is
	// true: the per-parent ordering index and the free-text interface
	// contract a sibling subtask can rely on (spec §3 Subtask).
	Order    int
	Provides string
	Requires string

	// Conventions holds shared conventions (base path, naming, response
	// format) a parent task records for its children to follow; only
	// meaningful on a task that has children.
	Conventions string
}

// HasLabel reports whether the task carries the given label.
func (t *Task) HasLabel(label string) bool {
	_, ok := t.Labels[label]
	return ok
}

// HasAllCapabilities reports whether the agent's capability set is a
// superset of the task's required capabilities.
func (t *Task) HasAllCapabilities(agentCaps map[string]struct{}) bool {
	for c := range t.Capabilities {
		if _, ok := agentCaps[c]; !ok {
			return false
		}
	}
	return true
}

// IsSubtask reports whether this task is a child of another task.
func (t *Task) IsSubtask() bool {
	return t.ParentID != nil
}

// HardDependencyIDs returns the task ids of hard predecessors only.
func (t *Task) HardDependencyIDs() []int64 {
	var out []int64
	for _, d := range t.Dependencies {
		if d.Type == DependencyHard {
			out = append(out, d.TaskID)
		}
	}
	return out
}

// SoftDependencyIDs returns the task ids of soft predecessors only.
func (t *Task) SoftDependencyIDs() []int64 {
	var out []int64
	for _, d := range t.Dependencies {
		if d.Type == DependencySoft {
			out = append(out, d.TaskID)
		}
	}
	return out
}

// Clone returns a deep-enough copy of the task suitable for handing to a
// reader outside the serialization point (spec §4.1: readers observe
// consistent snapshots).
func (t *Task) Clone() *Task {
	clone := *t
	clone.Labels = cloneSet(t.Labels)
	clone.Capabilities = cloneSet(t.Capabilities)
	clone.Dependencies = append([]Dependency(nil), t.Dependencies...)
	clone.Children = append([]int64(nil), t.Children...)
	clone.RecoveryNotes = append([]string(nil), t.RecoveryNotes...)
	if t.ParentID != nil {
		id := *t.ParentID
		clone.ParentID = &id
	}
	return &clone
}

func cloneSet(in map[string]struct{}) map[string]struct{} {
	if in == nil {
		return nil
	}
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

// NewLabelSet builds a label/capability set from a slice of strings.
func NewLabelSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, i := range items {
		out[i] = struct{}{}
	}
	return out
}
