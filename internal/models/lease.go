package models

import "time"

// Lease is a time-bounded claim by an agent over a task (spec §3/§4.4).
type Lease struct {
	TaskID    int64
	AgentID   string
	GrantedAt time.Time
	ExpiresAt time.Time
	Renewals  int
	Version   int // monotonically increasing per task; renewals increment it
}

// Expired reports whether the lease has passed its expiry as of now.
func (l *Lease) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// AssignmentRecord is the durable tuple persisted before the provider is
// told to move a task to in-progress (spec §3).
type AssignmentRecord struct {
	TaskID    int64
	AgentID   string
	Lease     Lease
	CreatedAt time.Time
}

// Decision is an append-only record of a choice made against a task.
type Decision struct {
	ID        string
	TaskID    int64
	AgentID   string
	Timestamp time.Time
	Text      string
}

// ArtifactType classifies an artifact for canonical directory placement.
type ArtifactType string

const (
	ArtifactSpecification ArtifactType = "specification"
	ArtifactDesign        ArtifactType = "design"
	ArtifactAPI           ArtifactType = "api"
	ArtifactDocumentation ArtifactType = "documentation"
	ArtifactArchitecture  ArtifactType = "architecture"
	ArtifactOther         ArtifactType = "other"
)

// CanonicalDirectory returns the default directory for this artifact type
// (spec §6 "Canonical artifact directories").
func (t ArtifactType) CanonicalDirectory() string {
	switch t {
	case ArtifactSpecification:
		return "docs/specifications/"
	case ArtifactDesign:
		return "docs/design/"
	case ArtifactAPI:
		return "docs/api/"
	case ArtifactArchitecture:
		return "docs/architecture/"
	default:
		return "docs/"
	}
}

// Artifact is a named, typed file produced by an agent (spec §3). Only
// metadata and a location path are ever stored; content is never stored by
// the core (spec §9 Open Questions).
type Artifact struct {
	ID        string
	TaskID    int64
	AgentID   string
	Filename  string
	Type      ArtifactType
	Location  string
	Timestamp time.Time
}
