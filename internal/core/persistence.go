package core

import (
	"encoding/json"

	"github.com/jwwelbor/marcus/internal/coreerrors"
	"github.com/jwwelbor/marcus/internal/models"
	"github.com/jwwelbor/marcus/internal/persistence"
)

// persistTask durably records task under its spec §6 key, wrapping any
// backend failure as coreerrors.PersistenceFailure (spec §7). A nil store
// (in-memory-only deployments, most unit tests) makes every method in this
// file a no-op, matching the optional-store pattern already used by
// progress.Journal.
func (c *Core) persistTask(task *models.Task) error {
	if c.store == nil {
		return nil
	}
	if err := persistence.PutJSON(c.store, persistence.TaskKey(task.ID), task); err != nil {
		return coreerrors.New(coreerrors.PersistenceFailure, "persisting task %d: %v", task.ID, err)
	}
	return nil
}

// persistAgent durably records an agent registration under its spec §6 key.
func (c *Core) persistAgent(agent *models.Agent) error {
	if c.store == nil {
		return nil
	}
	if err := persistence.PutJSON(c.store, persistence.AgentKey(agent.ID), agent); err != nil {
		return coreerrors.New(coreerrors.PersistenceFailure, "persisting agent %q: %v", agent.ID, err)
	}
	return nil
}

// persistLease durably records the active lease for a task.
func (c *Core) persistLease(l *models.Lease) error {
	if c.store == nil {
		return nil
	}
	if err := persistence.PutJSON(c.store, persistence.LeaseKey(l.TaskID), l); err != nil {
		return coreerrors.New(coreerrors.PersistenceFailure, "persisting lease for task %d: %v", l.TaskID, err)
	}
	return nil
}

// deleteLease removes a task's lease record once it is released (complete,
// cancelled, or swept as expired).
func (c *Core) deleteLease(taskID int64) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Delete(persistence.LeaseKey(taskID)); err != nil {
		return coreerrors.New(coreerrors.PersistenceFailure, "deleting lease for task %d: %v", taskID, err)
	}
	return nil
}

// persistAssignment durably records the Assignment Record spec §3 requires
// be written "before the provider is told" a task moved to in-progress.
func (c *Core) persistAssignment(rec *models.AssignmentRecord) error {
	if c.store == nil {
		return nil
	}
	if err := persistence.PutJSON(c.store, persistence.AssignmentKey(rec.AgentID), rec); err != nil {
		return coreerrors.New(coreerrors.PersistenceFailure, "persisting assignment for agent %q: %v", rec.AgentID, err)
	}
	return nil
}

// deleteAssignment removes an agent's assignment record once it goes idle
// (completion, cancellation, or sweeper recovery).
func (c *Core) deleteAssignment(agentID string) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Delete(persistence.AssignmentKey(agentID)); err != nil {
		return coreerrors.New(coreerrors.PersistenceFailure, "deleting assignment for agent %q: %v", agentID, err)
	}
	return nil
}

// persistReservation durably writes the task, its new lease, and the
// Assignment Record tying them together — the three records spec §3 and §6
// require be on disk before request_next_task reflects the assignment to
// the provider or returns it to the caller. Called under the exclusive
// lock, immediately after a successful assign.Assigner.Reserve.
func (c *Core) persistReservation(task *models.Task, l *models.Lease, agentID string) error {
	if c.store == nil {
		return nil
	}
	if err := c.persistTask(task); err != nil {
		return err
	}
	if err := c.persistLease(l); err != nil {
		return err
	}
	rec := &models.AssignmentRecord{
		TaskID:    task.ID,
		AgentID:   agentID,
		Lease:     *l,
		CreatedAt: l.GrantedAt,
	}
	return c.persistAssignment(rec)
}

// persistTaskAgentAndLease durably reflects the outcome of a progress
// report or blocker report: the task itself, its parent (parent rollup may
// have completed it), the reporting agent, and the task's lease state
// (persisted if still held, deleted if completion/cancellation released
// it). Called under the exclusive lock, after the progress.Handler call
// that produced the in-memory mutation has already returned success.
func (c *Core) persistTaskAgentAndLease(taskID int64, agentID string) error {
	if c.store == nil {
		return nil
	}
	task, err := c.graph.Get(taskID)
	if err != nil {
		return nil // task vanished out from under us; nothing to persist
	}
	if err := c.persistTask(task); err != nil {
		return err
	}
	if task.ParentID != nil {
		if parent, err := c.graph.Get(*task.ParentID); err == nil {
			if err := c.persistTask(parent); err != nil {
				return err
			}
		}
	}

	agent, err := c.registry.Get(agentID)
	if err == nil {
		if err := c.persistAgent(agent); err != nil {
			return err
		}
	}

	if l, ok := c.leases.Get(taskID); ok {
		if err := c.persistLease(l); err != nil {
			return err
		}
	} else if err := c.deleteLease(taskID); err != nil {
		return err
	}

	if agent != nil && agent.CurrentTaskID == nil {
		if err := c.deleteAssignment(agentID); err != nil {
			return err
		}
	} else if l, ok := c.leases.Get(taskID); ok {
		rec := &models.AssignmentRecord{TaskID: taskID, AgentID: agentID, Lease: *l, CreatedAt: l.GrantedAt}
		if err := c.persistAssignment(rec); err != nil {
			return err
		}
	}
	return nil
}

// Rehydrate replays every durably persisted task, agent, and lease back
// into the live Graph/Registry/LeaseManager (spec §3 "Used to recover
// after restart"). It must be called once, immediately after New and
// before Start or any request is served; a nil store makes it a no-op
// (in-memory-only deployments have nothing to replay).
func (c *Core) Rehydrate() error {
	if c.store == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	taskRows, err := c.store.Scan(persistence.TaskPrefix())
	if err != nil {
		return coreerrors.New(coreerrors.PersistenceFailure, "scanning tasks: %v", err)
	}
	for _, kv := range taskRows {
		var task models.Task
		if err := json.Unmarshal(kv.Value, &task); err != nil {
			return coreerrors.New(coreerrors.PersistenceFailure, "decoding task %q: %v", kv.Key, err)
		}
		c.graph.LoadTask(&task)
	}

	agentRows, err := c.store.Scan(persistence.AgentPrefix())
	if err != nil {
		return coreerrors.New(coreerrors.PersistenceFailure, "scanning agents: %v", err)
	}
	for _, kv := range agentRows {
		var agent models.Agent
		if err := json.Unmarshal(kv.Value, &agent); err != nil {
			return coreerrors.New(coreerrors.PersistenceFailure, "decoding agent %q: %v", kv.Key, err)
		}
		c.registry.LoadAgent(&agent)
	}

	leaseRows, err := c.store.Scan(persistence.LeasePrefix())
	if err != nil {
		return coreerrors.New(coreerrors.PersistenceFailure, "scanning leases: %v", err)
	}
	for _, kv := range leaseRows {
		var l models.Lease
		if err := json.Unmarshal(kv.Value, &l); err != nil {
			return coreerrors.New(coreerrors.PersistenceFailure, "decoding lease %q: %v", kv.Key, err)
		}
		c.leases.LoadLease(&l)
	}

	return nil
}
