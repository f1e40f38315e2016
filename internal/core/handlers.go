package core

import (
	"context"
	"fmt"

	"github.com/jwwelbor/marcus/internal/assign"
	"github.com/jwwelbor/marcus/internal/contextbuilder"
	"github.com/jwwelbor/marcus/internal/coreerrors"
	"github.com/jwwelbor/marcus/internal/diagnostics"
	"github.com/jwwelbor/marcus/internal/models"
	"github.com/jwwelbor/marcus/internal/progress"
)

// RegisterAgent implements spec §6 register_agent, idempotent by agent id.
// The registration is durably persisted before this call returns success
// (spec §3/§5), so a restart never forgets a previously registered agent.
func (c *Core) RegisterAgent(agentID string, role models.AgentRole, capabilities []string) (agent *models.Agent, alreadyRegistered bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, created := c.registry.Register(agentID, role, capabilities)
	if err := c.persistAgent(a); err != nil {
		return a, !created, err
	}
	return a, !created, nil
}

// NextTaskResult is the payload request_next_task returns (spec §6): either
// a task with its context and predictions, or an empty result with
// diagnostics explaining why.
type NextTaskResult struct {
	Empty       bool
	Task        *models.Task
	Context     *contextbuilder.TaskContext
	Diagnostics *diagnostics.Report
}

// RequestNextTask implements spec §4.3's full algorithm: idempotent replay
// of an existing assignment, ready-set snapshot + capability filter,
// out-of-lock scoring, and an atomic re-check-then-reserve critical
// section retried up to cfg.AssignmentRetryBound times on a lost race.
func (c *Core) RequestNextTask(ctx context.Context, agentID string) (*NextTaskResult, error) {
	result, err, _ := c.inflight.Do(agentID, func() (interface{}, error) {
		return c.requestNextTask(ctx, agentID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*NextTaskResult), nil
}

func (c *Core) requestNextTask(ctx context.Context, agentID string) (*NextTaskResult, error) {
	// Step 1: idempotent replay of an existing assignment.
	c.mu.RLock()
	existing, err := c.assigner.CurrentAssignment(agentID)
	c.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return c.buildResult(ctx, existing)
	}

	agent, err := c.getAgentSnapshot(agentID)
	if err != nil {
		return nil, err
	}

	bound := c.cfg.AssignmentRetryBound
	if bound <= 0 {
		bound = 3
	}

	for attempt := 0; attempt < bound; attempt++ {
		c.mu.RLock()
		candidates, err := c.assigner.ReadyCandidates(agentID)
		c.mu.RUnlock()
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			return c.emptyResult(diagnostics.ReasonNoReadyTasks), nil
		}

		scored := assign.ScoreCandidates(ctx, c.oracle, c.registry, agent, candidates)
		best := assign.Best(scored)
		if best == nil {
			return c.emptyResult(diagnostics.ReasonCapabilityMismatch), nil
		}

		c.mu.Lock()
		task, grantedLease, reserveErr := c.assigner.Reserve(best.Task.ID, agentID, c.cfg.LeaseDuration)
		var persistErr error
		if reserveErr == nil {
			// Spec §3: the Assignment Record (and the task/lease it ties
			// together) must be durable before the provider is ever told.
			persistErr = c.persistReservation(task, grantedLease, agentID)
		}
		c.mu.Unlock()

		if persistErr != nil {
			return nil, persistErr
		}

		if reserveErr == nil {
			if err := c.reflectToProvider(ctx, fmt.Sprintf("assign-%d-%s", task.ID, agentID), fmt.Sprintf("%d", task.ID), string(models.StatusInProgress)); err != nil {
				// Local state is already the source of truth (spec §4.8);
				// log and continue rather than unwind the assignment.
				c.logger.Printf("provider reflect: %v", err)
			}
			return c.buildResult(ctx, task)
		}

		ce, ok := coreerrors.As(reserveErr)
		if !ok || ce.Kind != coreerrors.Conflict {
			return nil, reserveErr
		}
		// Lost the race (spec §8 "concurrent_lost_race"): retry from a
		// fresh snapshot.
	}

	return c.emptyResult(diagnostics.ReasonConcurrentLost), nil
}

func (c *Core) getAgentSnapshot(agentID string) (*models.Agent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	agent, err := c.registry.Get(agentID)
	if err != nil {
		return nil, err
	}
	return agent.Clone(), nil
}

func (c *Core) buildResult(ctx context.Context, task *models.Task) (*NextTaskResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	success, duration := c.historicalStats(task)
	tc, err := c.contextBuilder.Build(ctx, task.ID, success, duration)
	if err != nil {
		return nil, err
	}
	return &NextTaskResult{Task: task, Context: tc}, nil
}

// historicalStats derives the fallback prediction inputs spec §4.6 calls
// for: the assignee's own historical success ratio for this label set when
// the task is already assigned, otherwise a neutral prior.
func (c *Core) historicalStats(task *models.Task) (success, duration float64) {
	duration = task.EffortHours
	if task.Assignee != "" {
		return c.registry.SuccessRatio(task.Assignee, task.Labels), duration
	}
	return 0.5, duration
}

func (c *Core) emptyResult(reason diagnostics.Reason) *NextTaskResult {
	c.mu.RLock()
	report := c.diagEngine.Diagnose(reason)
	c.mu.RUnlock()
	return &NextTaskResult{Empty: true, Diagnostics: report}
}

// ReportTaskProgress implements spec §6 report_task_progress. The
// resulting task, lease, and agent state is durably persisted before this
// call returns success (spec §3/§5).
func (c *Core) ReportTaskProgress(ctx context.Context, agentID string, taskID int64, status progress.ReportStatus, progressPct int, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.progressHandler.ReportProgress(ctx, agentID, taskID, status, progressPct, message, c.cfg.LeaseDuration); err != nil {
		return err
	}
	return c.persistTaskAgentAndLease(taskID, agentID)
}

// ReportBlocker implements spec §6 report_blocker. The resulting task and
// lease state is durably persisted before this call returns success.
func (c *Core) ReportBlocker(ctx context.Context, agentID string, taskID int64, description, severity string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	suggestions, err := c.progressHandler.ReportBlocker(ctx, agentID, taskID, description, severity)
	if err != nil {
		return nil, err
	}
	if err := c.persistTaskAgentAndLease(taskID, agentID); err != nil {
		return nil, err
	}
	return suggestions, nil
}

// LogDecision implements spec §6 log_decision.
func (c *Core) LogDecision(agentID string, taskID int64, text string) (models.Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.graph.Get(taskID); err != nil {
		return models.Decision{}, err
	}
	return c.journal.LogDecision(taskID, agentID, text), nil
}

// LogArtifact implements spec §6 log_artifact, returning the canonical
// location the caller should treat as the artifact's address.
func (c *Core) LogArtifact(agentID string, taskID int64, filename string, artType models.ArtifactType, location string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.graph.Get(taskID); err != nil {
		return "", err
	}
	a := c.journal.LogArtifact(taskID, agentID, filename, artType, location)
	return a.Location, nil
}

// GetTaskContext implements spec §6 get_task_context / §4.6.
func (c *Core) GetTaskContext(ctx context.Context, taskID int64) (*contextbuilder.TaskContext, error) {
	c.mu.RLock()
	task, err := c.graph.Get(taskID)
	if err != nil {
		c.mu.RUnlock()
		return nil, err
	}
	success, duration := c.historicalStats(task)
	tc, err := c.contextBuilder.Build(ctx, taskID, success, duration)
	c.mu.RUnlock()
	return tc, err
}

// DependencyReport is the payload for spec §6 check_task_dependencies.
type DependencyReport struct {
	Upstream     []*models.Task
	Downstream   []*models.Task
	Cycles       [][]int64
	CriticalPath []int64
}

// CheckTaskDependencies implements spec §6 check_task_dependencies.
func (c *Core) CheckTaskDependencies(taskID int64) (*DependencyReport, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	task, err := c.graph.Get(taskID)
	if err != nil {
		return nil, err
	}
	report := &DependencyReport{}
	for _, dep := range task.Dependencies {
		if depTask, err := c.graph.Get(dep.TaskID); err == nil {
			report.Upstream = append(report.Upstream, depTask)
		}
	}
	report.Downstream = c.graph.DependentsOf(taskID)

	diag := c.diagEngine.Diagnose(diagnostics.ReasonNoReadyTasks)
	for _, issue := range diag.Issues {
		if issue.Kind == "cycle" {
			report.Cycles = append(report.Cycles, issue.AffectedTasks)
		}
	}
	return report, nil
}

// ListAgents implements spec §6 list_agents.
func (c *Core) ListAgents() []*models.Agent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registry.All()
}

// GetAgentStatus implements spec §6 get_agent_status.
func (c *Core) GetAgentStatus(agentID string) (*models.Agent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, err := c.registry.Get(agentID)
	if err != nil {
		return nil, err
	}
	return a.Clone(), nil
}

// ProjectStatusReport is the payload for spec §6 project_status.
type ProjectStatusReport struct {
	Total      int
	ByStatus   map[models.Status]int
	AgentCount int
}

// ProjectStatus implements spec §6 project_status.
func (c *Core) ProjectStatus() *ProjectStatusReport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	report := &ProjectStatusReport{ByStatus: make(map[models.Status]int)}
	for _, t := range c.graph.AllTasks() {
		report.Total++
		report.ByStatus[t.Status]++
	}
	report.AgentCount = len(c.registry.All())
	return report
}

// BoardHealthReport is the payload for spec §6 board_health.
type BoardHealthReport struct {
	ProjectStatusReport
	Issues []diagnostics.Issue
}

// BoardHealth implements spec §6 board_health: project status plus a
// diagnostics pass, always available on demand (spec §4.7).
func (c *Core) BoardHealth() *BoardHealthReport {
	status := c.ProjectStatus()
	c.mu.RLock()
	diag := c.diagEngine.Diagnose(diagnostics.ReasonNoReadyTasks)
	c.mu.RUnlock()
	return &BoardHealthReport{ProjectStatusReport: *status, Issues: diag.Issues}
}

// Diagnose implements spec §6 diagnose().
func (c *Core) Diagnose() *diagnostics.Report {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.diagEngine.Diagnose(diagnostics.ReasonNoReadyTasks)
}
