// Package diagnostics implements spec §4.7: explaining why an assignment
// attempt came back empty, and the on-demand board-health summary.
//
// Grounded on the teacher's internal/reporting package (status-breakdown /
// health-report shape, reused here as the severity+recommendation report)
// and internal/dependency/detector.go's cycle detection, which
// the Engine's cycle check reuses directly rather than re-implementing.
package diagnostics

import (
	"context"
	"fmt"
	"sort"

	"github.com/jwwelbor/marcus/internal/dependency"
	"github.com/jwwelbor/marcus/internal/models"
	"github.com/jwwelbor/marcus/internal/registry"
	"github.com/jwwelbor/marcus/internal/taskgraph"
)

// Severity is the closed set of issue severities spec §4.7 assigns.
type Severity string

const (
	SeverityCritical      Severity = "critical"
	SeverityHigh          Severity = "high"
	SeverityMedium        Severity = "medium"
	SeverityInformational Severity = "informational"
)

// Issue is one diagnostic finding: a severity, the affected tasks, and a
// human-readable recommendation (spec §4.7).
type Issue struct {
	Kind           string // "cycle" | "dangling_dependency" | "bottleneck" | "long_chain" | "all_blocked" | "no_fit" | "suggested_dependency"
	Severity       Severity
	AffectedTasks  []int64
	Recommendation string
}

// Reason is the closed set of empty-assignment reasons spec §8 names.
type Reason string

const (
	ReasonNoReadyTasks      Reason = "no_ready_tasks"
	ReasonConcurrentLost    Reason = "concurrent_lost_race"
	ReasonCapabilityMismatch Reason = "capability_mismatch"
)

// Report is the structured diagnostic summary returned alongside an empty
// assignment, and by the diagnose() operator operation.
type Report struct {
	Reason Reason
	Issues []Issue
}

// Config carries the two tunable thresholds spec §6 defines for
// diagnostics.
type Config struct {
	BottleneckThreshold int
	LongChainDepth      int
}

// Engine computes diagnostics over a live TaskGraph/Registry snapshot.
type Engine struct {
	graph *taskgraph.Graph
	reg   *registry.Registry
	cfg   Config

	// suggested accumulates inferred edges the dependency engine rejected
	// for falling below the confidence threshold (spec §4.2(c): "recorded
	// as 'suggested' in diagnostics but not enforced"). internal/core
	// appends to this via RecordSuggestedEdge whenever it runs the
	// pattern-rule/AI inference hook.
	suggested []dependency.CandidateEdge
}

// New builds a diagnostics Engine.
func New(graph *taskgraph.Graph, reg *registry.Registry, cfg Config) *Engine {
	return &Engine{graph: graph, reg: reg, cfg: cfg}
}

// RecordSuggestedEdge records a below-threshold inferred edge so it
// surfaces on the next Diagnose call (spec §4.2(c)).
func (e *Engine) RecordSuggestedEdge(edge dependency.CandidateEdge) {
	e.suggested = append(e.suggested, edge)
}

// Diagnose runs every check of spec §4.7 and assembles a Report. reason
// classifies why the triggering request_next_task call came back empty, or
// ReasonNoReadyTasks when called on demand (diagnose()).
func (e *Engine) Diagnose(reason Reason) *Report {
	report := &Report{Reason: reason}
	report.Issues = append(report.Issues, e.cycles()...)
	report.Issues = append(report.Issues, e.danglingDependencies()...)
	report.Issues = append(report.Issues, e.bottlenecks()...)
	report.Issues = append(report.Issues, e.longChains()...)
	if issue := e.allBlocked(); issue != nil {
		report.Issues = append(report.Issues, *issue)
	}
	report.Issues = append(report.Issues, e.noFit()...)
	report.Issues = append(report.Issues, e.suggestedDependencies()...)
	return report
}

// suggestedDependencies surfaces inferred edges that were evaluated but
// rejected for falling below the confidence threshold (spec §4.2(c):
// informational, since the edge was never applied).
func (e *Engine) suggestedDependencies() []Issue {
	if len(e.suggested) == 0 {
		return nil
	}
	issues := make([]Issue, 0, len(e.suggested))
	for _, edge := range e.suggested {
		issues = append(issues, Issue{
			Kind:           "suggested_dependency",
			Severity:       SeverityInformational,
			AffectedTasks:  []int64{edge.Task, edge.DependsOn},
			Recommendation: fmt.Sprintf("Inferred %s dependency task %d -> %d (confidence %.2f, source %s) did not meet the confidence threshold; review manually.", edge.Type, edge.Task, edge.DependsOn, edge.Confidence, edge.Source),
		})
	}
	return issues
}

// cycles detects cycles over hard edges (spec §4.7 "Cycles", critical).
func (e *Engine) cycles() []Issue {
	dg := dependency.NewGraph()
	for _, t := range e.graph.AllTasks() {
		for _, depID := range t.HardDependencyIDs() {
			dg.AddEdge(t.ID, depID)
		}
	}
	has, cycle := dg.AnyCycle(context.Background())
	if !has {
		return nil
	}
	return []Issue{{
		Kind:           "cycle",
		Severity:       SeverityCritical,
		AffectedTasks:  cycle,
		Recommendation: fmt.Sprintf("Break the hard-dependency cycle among tasks %v; no task on the cycle can ever become ready.", cycle),
	}}
}

// danglingDependencies finds edges referencing non-existent tasks (spec
// §4.7 "Dangling dependencies", high).
func (e *Engine) danglingDependencies() []Issue {
	var affected []int64
	for _, t := range e.graph.AllTasks() {
		for _, dep := range t.Dependencies {
			if _, err := e.graph.Get(dep.TaskID); err != nil {
				affected = append(affected, t.ID)
				break
			}
		}
	}
	if len(affected) == 0 {
		return nil
	}
	sort.Slice(affected, func(i, j int) bool { return affected[i] < affected[j] })
	return []Issue{{
		Kind:           "dangling_dependency",
		Severity:       SeverityHigh,
		AffectedTasks:  affected,
		Recommendation: "Remove or correct dependency edges referencing tasks that no longer exist.",
	}}
}

// bottlenecks finds IN_PROGRESS tasks that are the sole hard predecessor of
// at least cfg.BottleneckThreshold TODO tasks (spec §4.7, medium).
func (e *Engine) bottlenecks() []Issue {
	inProgress := make(map[int64]*models.Task)
	for _, t := range e.graph.AllTasks() {
		if t.Status == models.StatusInProgress {
			inProgress[t.ID] = t
		}
	}

	blockCount := make(map[int64]int)
	for _, t := range e.graph.AllTasks() {
		if t.Status != models.StatusTodo {
			continue
		}
		hard := t.HardDependencyIDs()
		if len(hard) != 1 {
			continue
		}
		if _, ok := inProgress[hard[0]]; ok {
			blockCount[hard[0]]++
		}
	}

	var issues []Issue
	var bottleneckIDs []int64
	for id, count := range blockCount {
		if count >= e.cfg.BottleneckThreshold {
			bottleneckIDs = append(bottleneckIDs, id)
		}
	}
	sort.Slice(bottleneckIDs, func(i, j int) bool { return bottleneckIDs[i] < bottleneckIDs[j] })
	for _, id := range bottleneckIDs {
		issues = append(issues, Issue{
			Kind:           "bottleneck",
			Severity:       SeverityMedium,
			AffectedTasks:  []int64{id},
			Recommendation: fmt.Sprintf("Prioritize completing task %d to unblock %d tasks.", id, blockCount[id]),
		})
	}
	return issues
}

// longChains finds hard-dependency paths longer than cfg.LongChainDepth
// (spec §4.7, informational).
func (e *Engine) longChains() []Issue {
	depth := make(map[int64]int)
	var order []int64
	visiting := make(map[int64]bool)

	var visit func(id int64) int
	visit = func(id int64) int {
		if d, ok := depth[id]; ok {
			return d
		}
		if visiting[id] {
			return 0 // cycle guard; cycles() reports this separately
		}
		visiting[id] = true
		task, err := e.graph.Get(id)
		best := 0
		if err == nil {
			for _, depID := range task.HardDependencyIDs() {
				if d := visit(depID) + 1; d > best {
					best = d
				}
			}
		}
		visiting[id] = false
		depth[id] = best
		order = append(order, id)
		return best
	}

	for _, t := range e.graph.AllTasks() {
		visit(t.ID)
	}

	var longest []int64
	maxDepth := 0
	for _, id := range order {
		if depth[id] > maxDepth {
			maxDepth = depth[id]
			longest = []int64{id}
		} else if depth[id] == maxDepth {
			longest = append(longest, id)
		}
	}
	if maxDepth <= e.cfg.LongChainDepth {
		return nil
	}
	sort.Slice(longest, func(i, j int) bool { return longest[i] < longest[j] })
	return []Issue{{
		Kind:           "long_chain",
		Severity:       SeverityInformational,
		AffectedTasks:  longest,
		Recommendation: fmt.Sprintf("A hard-dependency chain %d levels deep ends at task(s) %v; consider splitting work to shorten the critical path.", maxDepth, longest),
	}}
}

// allBlocked reports when every TODO task is blocked on something and
// there exist IN_PROGRESS tasks — not an error, just an explanation (spec
// §4.7 "All-blocked").
func (e *Engine) allBlocked() *Issue {
	todo := 0
	blockedTodo := 0
	inProgress := 0
	for _, t := range e.graph.AllTasks() {
		switch t.Status {
		case models.StatusTodo:
			todo++
			ready := dependency.IsReady(t, e.statusLookup())
			if !ready {
				blockedTodo++
			}
		case models.StatusInProgress:
			inProgress++
		}
	}
	if todo == 0 || blockedTodo != todo || inProgress == 0 {
		return nil
	}
	return &Issue{
		Kind:           "all_blocked",
		Severity:       SeverityMedium,
		Recommendation: fmt.Sprintf("All %d TODO tasks are waiting on %d in-progress tasks; nothing is independently ready.", todo, inProgress),
	}
}

// noFit finds ready TODO tasks that no registered agent's capability set
// satisfies (spec §4.7 "No-fit", medium).
func (e *Engine) noFit() []Issue {
	agents := e.reg.All()
	var affected []int64
	for _, t := range e.graph.ReadyTasks() {
		fits := false
		for _, a := range agents {
			if t.HasAllCapabilities(a.Capabilities) && !t.HasLabel("human-only") {
				fits = true
				break
			}
		}
		if !fits {
			affected = append(affected, t.ID)
		}
	}
	if len(affected) == 0 {
		return nil
	}
	return []Issue{{
		Kind:           "no_fit",
		Severity:       SeverityMedium,
		AffectedTasks:  affected,
		Recommendation: fmt.Sprintf("No registered agent's capabilities satisfy ready task(s) %v; register an agent with the required skills.", affected),
	}}
}

func (e *Engine) statusLookup() dependency.StatusLookup {
	return func(id int64) (models.Status, bool) {
		t, err := e.graph.Get(id)
		if err != nil {
			return "", false
		}
		return t.Status, true
	}
}
