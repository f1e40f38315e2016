// Package progress implements spec §4.5: the four inputs agents send once
// they hold a task — progress updates, blocker reports, completions, and
// decision/artifact logs — plus the parent rollup that follows a child
// completion.
//
// Grounded on the teacher's internal/repository/task_history_repository.go
// and task_note_repository.go for the append-only decision/artifact
// persistence shape, and the epic-status rollup table in
// internal/cli/commands/epic.go, adapted here into the auto-complete-parent
// summary comment.
package progress

import (
	"time"

	"github.com/jwwelbor/marcus/internal/models"
	"github.com/jwwelbor/marcus/internal/persistence"
)

// Journal is the append-only decision/artifact log (spec §3: "Decisions and
// artifacts are immutable once logged"). It satisfies
// contextbuilder.DecisionArtifactReader.
type Journal struct {
	store     persistence.Store // optional; nil means in-memory only
	decisions map[int64][]models.Decision
	artifacts map[int64][]models.Artifact
}

// NewJournal builds a Journal. store may be nil for tests and for
// in-memory-only deployments; when non-nil, every logged decision/artifact
// is also durably written under the spec §6 key layout.
func NewJournal(store persistence.Store) *Journal {
	return &Journal{
		store:     store,
		decisions: make(map[int64][]models.Decision),
		artifacts: make(map[int64][]models.Artifact),
	}
}

// LogDecision appends a Decision (spec §4.5 "Decision log").
func (j *Journal) LogDecision(taskID int64, agentID, text string) models.Decision {
	d := models.Decision{
		ID:        models.NewID(),
		TaskID:    taskID,
		AgentID:   agentID,
		Timestamp: time.Now(),
		Text:      text,
	}
	j.decisions[taskID] = append(j.decisions[taskID], d)
	j.persistDecision(d)
	return d
}

// DecisionsForTask returns every decision logged against taskID, in log
// order.
func (j *Journal) DecisionsForTask(taskID int64) []models.Decision {
	return append([]models.Decision(nil), j.decisions[taskID]...)
}

// LogArtifact canonicalizes filename under its type's default directory
// unless location is supplied explicitly (spec §4.5 "Artifact log").
// Logging the same (task, filename, type) twice yields two distinct
// records unless the caller supplies the same explicit location, in which
// case the second call overwrites metadata only — content, which the core
// never stores, is untouched (spec §8 round-trip law).
func (j *Journal) LogArtifact(taskID int64, agentID, filename string, artType models.ArtifactType, location string) models.Artifact {
	canonical := location
	if canonical == "" {
		canonical = artType.CanonicalDirectory() + filename
	}

	if location != "" {
		for i, existing := range j.artifacts[taskID] {
			if existing.Filename == filename && existing.Type == artType && existing.Location == location {
				j.artifacts[taskID][i].Timestamp = time.Now()
				j.artifacts[taskID][i].AgentID = agentID
				j.persistArtifact(j.artifacts[taskID][i])
				return j.artifacts[taskID][i]
			}
		}
	}

	a := models.Artifact{
		ID:        models.NewID(),
		TaskID:    taskID,
		AgentID:   agentID,
		Filename:  filename,
		Type:      artType,
		Location:  canonical,
		Timestamp: time.Now(),
	}
	j.artifacts[taskID] = append(j.artifacts[taskID], a)
	j.persistArtifact(a)
	return a
}

// ArtifactsForTask returns every artifact logged against taskID, in log
// order.
func (j *Journal) ArtifactsForTask(taskID int64) []models.Artifact {
	return append([]models.Artifact(nil), j.artifacts[taskID]...)
}

func (j *Journal) persistDecision(d models.Decision) {
	if j.store == nil {
		return
	}
	_ = j.store.Put(persistence.DecisionKey(d.TaskID, d.ID), []byte(d.Text))
}

func (j *Journal) persistArtifact(a models.Artifact) {
	if j.store == nil {
		return
	}
	_ = j.store.Put(persistence.ArtifactKey(a.TaskID, a.ID), []byte(a.Location))
}
