// Package contextbuilder implements spec §4.6: assembling everything an
// agent needs to execute a task without further dialogue — the task's own
// fields, its dependencies' artifacts and decisions, sibling subtasks and
// parent conventions, and AI-oracle predictions with a fallback.
package contextbuilder

import (
	"context"

	"github.com/jwwelbor/marcus/internal/aiclient"
	"github.com/jwwelbor/marcus/internal/models"
	"github.com/jwwelbor/marcus/internal/taskgraph"
)

// DecisionArtifactReader is the read side of whatever logs decisions and
// artifacts (internal/progress owns the write side); defined here, on the
// consumer, per Go convention, so this package never needs to import
// internal/progress.
type DecisionArtifactReader interface {
	DecisionsForTask(taskID int64) []models.Decision
	ArtifactsForTask(taskID int64) []models.Artifact
}

// DependencyContext is what ContextBuilder exposes for one predecessor.
type DependencyContext struct {
	Task      *models.Task
	Mockable  bool // true for soft dependencies (spec §4.6: "mockable" marker)
	Provides  string
	Artifacts []models.Artifact
	Decisions []models.Decision
}

// ParentContext is included only for subtasks (spec §4.6).
type ParentContext struct {
	Parent      *models.Task
	Siblings    []SiblingContext
	Conventions string
}

// SiblingContext is a subtask's view of another subtask sharing its parent.
type SiblingContext struct {
	TaskID   int64
	Name     string
	Status   models.Status
	Provides string
}

// TaskContext is the fully self-contained payload handed to an agent;
// spec §4.6 requires the agent need no further calls to execute.
type TaskContext struct {
	Task       *models.Task
	Hard       []DependencyContext
	Soft       []DependencyContext
	Dependents []*models.Task
	Parent     *ParentContext
	Prediction aiclient.Prediction
}

// Builder assembles TaskContext values from the live TaskGraph, the
// decision/artifact log, and the AI oracle client.
type Builder struct {
	graph   *taskgraph.Graph
	journal DecisionArtifactReader
	oracle  *aiclient.Client
}

func New(graph *taskgraph.Graph, journal DecisionArtifactReader, oracle *aiclient.Client) *Builder {
	return &Builder{graph: graph, journal: journal, oracle: oracle}
}

// Build assembles the context for taskID per spec §4.6.
func (b *Builder) Build(ctx context.Context, taskID int64, historicalSuccess, historicalDuration float64) (*TaskContext, error) {
	task, err := b.graph.Get(taskID)
	if err != nil {
		return nil, err
	}

	tc := &TaskContext{Task: task}

	for _, dep := range task.Dependencies {
		depTask, err := b.graph.Get(dep.TaskID)
		if err != nil {
			// A dangling dependency is a diagnostics concern, not a
			// context-building failure; skip it here.
			continue
		}
		depCtx := DependencyContext{
			Task:      depTask,
			Mockable:  dep.Type == models.DependencySoft,
			Provides:  depTask.Provides,
			Artifacts: b.journal.ArtifactsForTask(depTask.ID),
			Decisions: b.journal.DecisionsForTask(depTask.ID),
		}
		if dep.Type == models.DependencyHard {
			tc.Hard = append(tc.Hard, depCtx)
		} else {
			tc.Soft = append(tc.Soft, depCtx)
		}
	}

	tc.Dependents = b.graph.DependentsOf(taskID)

	if task.IsSubtask() {
		parent, err := b.graph.Get(*task.ParentID)
		if err == nil {
			pc := &ParentContext{Parent: parent, Conventions: parent.Conventions}
			for _, sibling := range b.graph.ChildrenOf(parent.ID) {
				if sibling.ID == task.ID {
					continue
				}
				pc.Siblings = append(pc.Siblings, SiblingContext{
					TaskID:   sibling.ID,
					Name:     sibling.Name,
					Status:   sibling.Status,
					Provides: sibling.Provides,
				})
			}
			tc.Parent = pc
		}
	}

	labels := task.Labels
	tc.Prediction = b.oracle.Predict(ctx, labels, historicalSuccess, historicalDuration)

	return tc, nil
}
