package progress

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jwwelbor/marcus/internal/aiclient"
	"github.com/jwwelbor/marcus/internal/coreerrors"
	"github.com/jwwelbor/marcus/internal/lease"
	"github.com/jwwelbor/marcus/internal/models"
	"github.com/jwwelbor/marcus/internal/registry"
	"github.com/jwwelbor/marcus/internal/taskgraph"
)

// ReportStatus is the closed set of statuses report_task_progress accepts
// (spec §6).
type ReportStatus string

const (
	StatusInProgressReport ReportStatus = "in_progress"
	StatusBlockedReport    ReportStatus = "blocked"
	StatusPausedReport     ReportStatus = "paused"
	StatusCompletedReport  ReportStatus = "completed"
)

// Handler implements spec §4.5. Like Assigner, it holds no lock of its
// own; internal/core.Core calls every mutating method under its exclusive
// serialization lock.
type Handler struct {
	graph   *taskgraph.Graph
	reg     *registry.Registry
	leases  *lease.Manager
	journal *Journal
	oracle  *aiclient.Client
	policy  string // "reject" | "clamp" (spec §6 progress_monotonic_policy)
}

// New builds a progress Handler.
func New(graph *taskgraph.Graph, reg *registry.Registry, leases *lease.Manager, journal *Journal, oracle *aiclient.Client, monotonicPolicy string) *Handler {
	return &Handler{graph: graph, reg: reg, leases: leases, journal: journal, oracle: oracle, policy: monotonicPolicy}
}

func (h *Handler) requireHolder(taskID int64, agentID string) (*models.Task, error) {
	task, err := h.graph.Get(taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == models.StatusDone || task.Status == models.StatusCancelled {
		return nil, coreerrors.New(coreerrors.InvalidTransition, "task %d is already %s", taskID, task.Status)
	}
	if task.Assignee != agentID {
		return nil, coreerrors.New(coreerrors.NotHolder, "agent %q does not hold task %d", agentID, taskID)
	}
	holder, ok := h.leases.Holder(taskID)
	if !ok {
		return nil, coreerrors.New(coreerrors.LeaseExpired, "no active lease for task %d", taskID)
	}
	if holder != agentID {
		return nil, coreerrors.New(coreerrors.WrongLeaseHolder, "task %d is leased by %q", taskID, holder)
	}
	return task, nil
}

// ReportProgress implements spec §4.5's progress-update input and the
// status-carrying report_task_progress operation of spec §6. "paused"
// updates progress and renews the lease without moving the state machine;
// "in_progress" additionally unblocks a BLOCKED task and, at progress 100,
// routes to completion; "completed" always routes to completion;
// "blocked" records the message as a low-severity blocker and returns no
// suggestions (agents wanting suggestions use ReportBlocker instead). The
// message of a paused or in_progress report is not recorded anywhere.
func (h *Handler) ReportProgress(ctx context.Context, agentID string, taskID int64, status ReportStatus, progressPct int, message string, leaseDuration time.Duration) error {
	task, err := h.requireHolder(taskID, agentID)
	if err != nil {
		return err
	}

	switch status {
	case StatusCompletedReport:
		return h.complete(task, agentID)
	case StatusBlockedReport:
		return h.block(task, agentID, message, "low")
	case StatusPausedReport, StatusInProgressReport:
		next, err := h.clampedProgress(task, progressPct)
		if err != nil {
			return err
		}
		if status == StatusInProgressReport && task.Status == models.StatusBlocked {
			if err := h.graph.SetStatus(taskID, models.StatusInProgress); err != nil {
				return err
			}
		}
		task.Progress = next
		task.UpdatedAt = time.Now()
		if err := h.leases.Renew(taskID, agentID, leaseDuration, time.Now()); err != nil {
			return err
		}
		if status == StatusInProgressReport && next >= 100 {
			return h.complete(task, agentID)
		}
		return nil
	default:
		return coreerrors.New(coreerrors.InvalidTransition, "unrecognized report status %q", status)
	}
}

// clampedProgress validates monotonic non-decreasing progress (spec §4.5)
// per the configured policy: "reject" refuses a regression outright;
// "clamp" silently holds at the previous high-water mark.
func (h *Handler) clampedProgress(task *models.Task, progressPct int) (int, error) {
	if progressPct < 0 || progressPct > 100 {
		return 0, coreerrors.New(coreerrors.InvalidTransition, "progress %d out of range 0..100", progressPct)
	}
	if progressPct < task.Progress {
		if h.policy == "clamp" {
			return task.Progress, nil
		}
		return 0, coreerrors.New(coreerrors.InvalidTransition, "progress %d regresses below previous %d", progressPct, task.Progress)
	}
	return progressPct, nil
}

// ReportBlocker implements spec §4.5's blocker input and spec §6's
// report_blocker operation: transitions to BLOCKED, records the blocker,
// and returns oracle-or-fallback mitigation suggestions. The lease is not
// released — the holder keeps the task until it completes or its lease
// expires.
func (h *Handler) ReportBlocker(ctx context.Context, agentID string, taskID int64, description, severity string) ([]string, error) {
	task, err := h.requireHolder(taskID, agentID)
	if err != nil {
		return nil, err
	}
	if err := h.block(task, agentID, description, severity); err != nil {
		return nil, err
	}
	return h.oracle.SuggestMitigations(ctx, description, severity), nil
}

func (h *Handler) block(task *models.Task, agentID, description, severity string) error {
	if task.Status == models.StatusInProgress {
		if err := h.graph.SetStatus(task.ID, models.StatusBlocked); err != nil {
			return err
		}
	} else if task.Status != models.StatusBlocked {
		return coreerrors.New(coreerrors.InvalidTransition, "cannot block task %d from %s", task.ID, task.Status)
	}
	task.BlockedReason = fmt.Sprintf("[%s] %s", severity, description)
	task.BlockedAt = time.Now()
	task.UpdatedAt = time.Now()
	return nil
}

// Complete is the public entry point for an explicit completion call
// (report_task_progress with status=completed); ReportProgress also routes
// here at progress 100.
func (h *Handler) Complete(agentID string, taskID int64) error {
	task, err := h.requireHolder(taskID, agentID)
	if err != nil {
		return err
	}
	return h.complete(task, agentID)
}

// complete implements spec §4.5's completion transition: DONE, dependents
// re-evaluate automatically since readiness is computed on demand, clear
// assignee and lease, record the agent's performance, and run parent
// rollup.
func (h *Handler) complete(task *models.Task, agentID string) error {
	if err := h.graph.SetStatus(task.ID, models.StatusDone); err != nil {
		return err
	}
	task.Progress = 100
	task.Assignee = ""
	task.UpdatedAt = time.Now()

	h.leases.Release(task.ID)
	if err := h.reg.SetAssignment(agentID, nil); err != nil {
		return err
	}
	_ = h.reg.RecordCompletion(agentID, task.Labels, true)

	if task.ParentID != nil {
		return h.rollupParent(*task.ParentID)
	}
	return nil
}

// rollupParent implements spec §4.5 parent rollup: when every child of a
// parent is DONE, the parent auto-transitions to DONE with a summary
// comment listing its children (spec §8 scenario 4).
func (h *Handler) rollupParent(parentID int64) error {
	parent, err := h.graph.Get(parentID)
	if err != nil {
		return err
	}
	if parent.Status == models.StatusDone {
		return nil
	}
	children := h.graph.ChildrenOf(parentID)
	names := make([]string, 0, len(children))
	for _, c := range children {
		if c.Status != models.StatusDone {
			return nil
		}
		names = append(names, c.Name)
	}
	if len(children) == 0 {
		return nil
	}
	if err := h.graph.SetStatusForced(parentID, models.StatusDone); err != nil {
		return err
	}
	parent.RollupComment = fmt.Sprintf("Auto-completed: all %d subtasks done (%s).", len(children), strings.Join(names, ", "))
	parent.UpdatedAt = time.Now()
	return nil
}
