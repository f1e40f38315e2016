package dependency

import (
	"sort"

	"github.com/jwwelbor/marcus/internal/models"
)

// StatusLookup resolves a task id to its current status, without requiring
// the dependency package to import taskgraph (avoids a cyclic import — the
// taskgraph package is the one that imports dependency, not vice versa).
type StatusLookup func(taskID int64) (models.Status, bool)

// IsReady reports whether a task is ready per spec §4.2(b): status is TODO
// and every hard predecessor is DONE. Soft predecessors never gate
// readiness (spec §9 Open Questions: "never block" is the design).
func IsReady(task *models.Task, lookup StatusLookup) bool {
	if task.Status != models.StatusTodo {
		return false
	}
	for _, dep := range task.Dependencies {
		if dep.Type != models.DependencyHard {
			continue
		}
		status, ok := lookup(dep.TaskID)
		if !ok || status != models.StatusDone {
			return false
		}
	}
	return true
}

// ReadyTasks filters candidates to the ready subset and orders them using
// the spec §4.2 tie-break: priority DESC, then effort ASC, then creation
// time ASC, then id ASC. The ordering is deterministic across calls.
func ReadyTasks(candidates []*models.Task, lookup StatusLookup) []*models.Task {
	ready := make([]*models.Task, 0, len(candidates))
	for _, t := range candidates {
		if IsReady(t, lookup) {
			ready = append(ready, t)
		}
	}
	SortByTieBreak(ready)
	return ready
}

// SortByTieBreak orders tasks in place per the spec §4.2 tie-break rule.
func SortByTieBreak(tasks []*models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority // priority DESC
		}
		if a.EffortHours != b.EffortHours {
			return a.EffortHours < b.EffortHours // effort ASC
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt) // creation time ASC
		}
		return a.ID < b.ID // id ASC
	})
}
