package models

import "errors"

// Validation errors, in the sentinel-error style the teacher uses
// throughout internal/models/validation.go.
var (
	ErrEmptyName          = errors.New("task name cannot be empty")
	ErrInvalidEffort      = errors.New("estimated effort must be non-negative")
	ErrSelfDependency     = errors.New("task cannot depend on itself")
	ErrSubtaskOfSubtask   = errors.New("a subtask's parent must not itself be a subtask")
	ErrEmptyAgentID       = errors.New("agent id cannot be empty")
	ErrEmptyFilename      = errors.New("artifact filename cannot be empty")
	ErrEmptyDecisionText  = errors.New("decision text cannot be empty")
	ErrInvalidArtifactType = errors.New("invalid artifact type")
)

// Validate checks the Task's own fields in isolation; graph-level
// invariants (dependency existence, cycles, single-level subtasks) are
// enforced by the taskgraph and dependency packages, which have the
// context of the whole graph.
func (t *Task) Validate() error {
	if t.Name == "" {
		return ErrEmptyName
	}
	if t.EffortHours < 0 {
		return ErrInvalidEffort
	}
	for _, d := range t.Dependencies {
		if d.TaskID == t.ID {
			return ErrSelfDependency
		}
	}
	return nil
}

// ValidArtifactType reports whether t is one of the closed set of artifact
// types from spec §3/§6.
func ValidArtifactType(t ArtifactType) bool {
	switch t {
	case ArtifactSpecification, ArtifactDesign, ArtifactAPI, ArtifactDocumentation, ArtifactArchitecture, ArtifactOther:
		return true
	default:
		return false
	}
}
