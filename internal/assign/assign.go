// Package assign implements spec §4.3: selecting the next task for an
// agent and enforcing at-most-once assignment across concurrent requests.
//
// Assigner holds no lock of its own — like taskgraph.Graph, registry.Registry,
// and lease.Manager, it assumes the caller (internal/core.Core) holds the
// single serialization point of spec §5 for any method that mutates state.
// Read-only methods (CurrentAssignment, ReadyCandidates) are safe to call
// under a read lock; Reserve must be called under the exclusive lock since
// it is the atomic "re-check then reserve" critical section spec §5 calls
// out by name.
//
// Grounded on the teacher's internal/repository/task_repository.go
// UpdateStatus/UpdateStatusForced (compare-and-set style transition under a
// guard) and internal/repository/order_resequence.go's ordering discipline,
// reapplied here as the ready-set tie-break.
package assign

import (
	"time"

	"github.com/jwwelbor/marcus/internal/coreerrors"
	"github.com/jwwelbor/marcus/internal/dependency"
	"github.com/jwwelbor/marcus/internal/lease"
	"github.com/jwwelbor/marcus/internal/models"
	"github.com/jwwelbor/marcus/internal/registry"
	"github.com/jwwelbor/marcus/internal/taskgraph"
)

// IncompatibleLabel marks a task as unassignable to any agent (spec §4.3
// step 3: "exclude tasks whose labels mark them agent-incompatible").
const IncompatibleLabel = "human-only"

// Assigner implements the candidate selection and atomic reservation of
// spec §4.3. It is constructed once and reused across requests; all of its
// state lives in the shared graph/registry/leases it was given.
type Assigner struct {
	graph  *taskgraph.Graph
	reg    *registry.Registry
	leases *lease.Manager
}

// New builds an Assigner over the shared core structures.
func New(graph *taskgraph.Graph, reg *registry.Registry, leases *lease.Manager) *Assigner {
	return &Assigner{graph: graph, reg: reg, leases: leases}
}

// CurrentAssignment implements spec §4.3 step 1: if the agent already has
// an open assignment, its task is returned so request_next_task is
// idempotent rather than handing out a second task.
func (a *Assigner) CurrentAssignment(agentID string) (*models.Task, error) {
	agent, err := a.reg.Get(agentID)
	if err != nil {
		return nil, err
	}
	if agent.CurrentTaskID == nil {
		return nil, nil
	}
	return a.graph.Get(*agent.CurrentTaskID)
}

// ReadyCandidates implements spec §4.3 steps 2-3: snapshot the ready set
// and filter by capability, agent-incompatible labels, and the agent's
// own eligibility. Parent tasks that have subtasks are never candidates:
// they reach DONE through the progress handler's rollup. The result is still ordered by the spec §4.2 tie-break
// since taskgraph.ReadyTasks already applies it.
func (a *Assigner) ReadyCandidates(agentID string) ([]*models.Task, error) {
	agent, err := a.reg.Get(agentID)
	if err != nil {
		return nil, err
	}
	if !agent.IsIdle() {
		return nil, nil
	}

	ready := a.graph.ReadyTasks()
	out := make([]*models.Task, 0, len(ready))
	for _, t := range ready {
		if t.HasLabel(IncompatibleLabel) {
			continue
		}
		if len(t.Children) > 0 {
			continue
		}
		if !t.HasAllCapabilities(agent.Capabilities) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Reserve is the atomic critical section of spec §4.3 step 6: re-check
// that taskID is still ready and TODO, then transition it to IN_PROGRESS,
// assign it to agentID, and grant a lease. Callers must hold the exclusive
// serialization lock for the duration of this call. Returns
// coreerrors.Conflict if another request won the race since the snapshot
// was taken, so the caller knows to retry from a fresh snapshot (spec §4.3
// "If the re-check fails, retry from step 2 up to a small bound").
func (a *Assigner) Reserve(taskID int64, agentID string, leaseDuration time.Duration) (*models.Task, *models.Lease, error) {
	task, err := a.graph.Get(taskID)
	if err != nil {
		return nil, nil, err
	}
	agent, err := a.reg.Get(agentID)
	if err != nil {
		return nil, nil, err
	}
	if !agent.IsIdle() {
		return nil, nil, coreerrors.New(coreerrors.Conflict, "agent %q already holds a task", agentID)
	}
	if !dependency.IsReady(task, a.statusLookup()) {
		return nil, nil, coreerrors.New(coreerrors.Conflict, "task %d is no longer ready", taskID)
	}

	if err := a.graph.SetStatus(taskID, models.StatusInProgress); err != nil {
		return nil, nil, coreerrors.New(coreerrors.Conflict, "%v", err)
	}
	task.Assignee = agentID
	task.UpdatedAt = time.Now()

	if err := a.reg.SetAssignment(agentID, &taskID); err != nil {
		return nil, nil, err
	}
	l := a.leases.Grant(taskID, agentID, leaseDuration)
	return task, l, nil
}

func (a *Assigner) statusLookup() dependency.StatusLookup {
	return func(id int64) (models.Status, bool) {
		t, err := a.graph.Get(id)
		if err != nil {
			return "", false
		}
		return t.Status, true
	}
}
