package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jwwelbor/marcus/internal/models"
)

// runSweeper implements spec §5's lease sweeper: every cfg.SweeperInterval,
// scan for expired leases and apply their recovery actions (task -> TODO,
// clear assignee, append a recovery note) under the serialization lock.
func (c *Core) runSweeper(ctx context.Context) {
	interval := c.cfg.SweeperInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweepOnce(time.Now())
		}
	}
}

// sweepOnce applies one sweep pass; it is a separate method so in-package
// tests can control "now" deterministically rather than waiting on a
// ticker.
func (c *Core) sweepOnce(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	actions := c.leases.SweepExpired(now)
	for _, action := range actions {
		task, err := c.graph.Get(action.TaskID)
		if err != nil {
			continue
		}
		if task.Status != models.StatusInProgress {
			continue
		}
		if err := c.graph.SetStatus(action.TaskID, models.StatusTodo); err != nil {
			continue
		}
		task.Assignee = ""
		task.RecoveryNotes = append(task.RecoveryNotes, action.Note)
		task.UpdatedAt = now
		_ = c.registry.SetAssignment(action.AgentID, nil)

		// Persist the recovered task/lease/assignment state; this is a
		// background loop with no caller to return an error to, so a
		// durability failure here is logged, not propagated (unlike the
		// equivalent hot-path writes in handlers.go).
		if err := c.persistTask(task); err != nil {
			c.logger.Printf("lease sweep: failed to persist recovered task %d: %v", action.TaskID, err)
		}
		if err := c.deleteLease(action.TaskID); err != nil {
			c.logger.Printf("lease sweep: failed to delete lease for task %d: %v", action.TaskID, err)
		}
		if err := c.deleteAssignment(action.AgentID); err != nil {
			c.logger.Printf("lease sweep: failed to delete assignment for agent %s: %v", action.AgentID, err)
		}
		if agent, err := c.registry.Get(action.AgentID); err == nil {
			if err := c.persistAgent(agent); err != nil {
				c.logger.Printf("lease sweep: failed to persist agent %s: %v", action.AgentID, err)
			}
		}

		// orphan_recovered event (spec §4.4); the core has no external event
		// bus wired in this increment, so the recovery note on the task is
		// the durable record of it.
		c.logger.Printf("lease swept: task %d recovered from agent %s: %s", action.TaskID, action.AgentID, action.Note)
	}
}

// runReconciliation implements spec §5's reconciliation worker: every
// cfg.ReconciliationInterval, cross-check local state against the provider
// and repair divergence under a "local wins" policy (spec §9 Open
// Questions), logging mismatches rather than overwriting local state.
func (c *Core) runReconciliation(ctx context.Context) {
	interval := c.cfg.ReconciliationInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			c.reconcileOnce(ctx)
		}
	}
}

// reconcileOnce pulls the provider's board and flags tasks whose provider
// status disagrees with the local status. It never mutates local state —
// only the provider write-through path in reflectToProvider does — in
// keeping with spec §9's "local wins" resolution.
func (c *Core) reconcileOnce(ctx context.Context) []string {
	if c.provider == nil {
		return nil
	}
	board, err := c.provider.ListBoard(ctx)
	if err != nil {
		c.logger.Printf("reconciliation: provider list board failed: %v", err)
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var divergences []string
	for _, bt := range board {
		taskID, ok := parseTaskID(bt.ExternalID)
		if !ok {
			continue
		}
		local, err := c.graph.Get(taskID)
		if err != nil {
			continue
		}
		if string(local.Status) != bt.Status {
			msg := fmt.Sprintf(
				"task %d: local=%s provider=%s (local wins, no local state changed)",
				taskID, local.Status, bt.Status)
			divergences = append(divergences, msg)
			c.logger.Printf("reconciliation: %s", msg)
		}
	}
	return divergences
}

func parseTaskID(externalID string) (int64, bool) {
	var id int64
	if _, err := fmt.Sscanf(externalID, "%d", &id); err != nil {
		return 0, false
	}
	return id, true
}
