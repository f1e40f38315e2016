// Package taskgraph implements spec §4.1: the in-memory model of tasks,
// subtasks, and dependencies, indexed by id/status/label/parent, with the
// query surface (ready_tasks, dependents_of, children_of) the rest of the
// core relies on.
//
// TaskGraph is NOT itself the serialization point of spec §5 — it has no
// internal locking. internal/core.Core owns a single coarse mutex guarding
// TaskGraph, registry.Registry, and lease.Manager together, matching the
// "coarse read-write lock" option spec §5 allows. This mirrors the
// teacher's internal/repository/task_repository.go in spirit (an indexed
// query surface with explicit mutation methods) but is restructured from a
// SQL-row store into pure in-memory indexes, because spec §4.1 describes
// an in-memory model, not a per-call SQL query layer.
package taskgraph

import (
	"fmt"

	"github.com/jwwelbor/marcus/internal/coreerrors"
	"github.com/jwwelbor/marcus/internal/dependency"
	"github.com/jwwelbor/marcus/internal/models"
)

// Graph holds all tasks indexed by id, with secondary indexes by status,
// label, and parent.
type Graph struct {
	tasks map[int64]*models.Task

	byStatus map[models.Status]map[int64]struct{}
	byLabel  map[string]map[int64]struct{}
	byParent map[int64]map[int64]struct{} // parent id -> child ids

	nextID int64
}

// New creates an empty TaskGraph.
func New() *Graph {
	return &Graph{
		tasks:    make(map[int64]*models.Task),
		byStatus: make(map[models.Status]map[int64]struct{}),
		byLabel:  make(map[string]map[int64]struct{}),
		byParent: make(map[int64]map[int64]struct{}),
		nextID:   1,
	}
}

// AllowedTransitions is the task state machine of spec §3.
var AllowedTransitions = map[models.Status]map[models.Status]bool{
	models.StatusTodo:       {models.StatusInProgress: true, models.StatusCancelled: true},
	models.StatusInProgress: {models.StatusInProgress: true, models.StatusBlocked: true, models.StatusDone: true, models.StatusTodo: true},
	models.StatusBlocked:    {models.StatusInProgress: true, models.StatusDone: true},
	models.StatusDone:       {},
	models.StatusCancelled:  {},
}

// Add inserts a new task, assigning it an id if it does not already have
// one (id 0 means "assign one"). Returns coreerrors.UnknownTask-wrapped
// errors if a referenced dependency or parent does not exist, and
// coreerrors.CycleWouldForm if a hard edge would close a cycle.
func (g *Graph) Add(task *models.Task) (*models.Task, error) {
	if task.ID == 0 {
		task.ID = g.nextID
	}
	if task.ID >= g.nextID {
		g.nextID = task.ID + 1
	}

	for _, dep := range task.Dependencies {
		if _, ok := g.tasks[dep.TaskID]; !ok {
			return nil, coreerrors.New(coreerrors.UnknownTask, "dependency %d does not exist", dep.TaskID)
		}
	}
	if task.ParentID != nil {
		parent, ok := g.tasks[*task.ParentID]
		if !ok {
			return nil, coreerrors.New(coreerrors.UnknownTask, "parent %d does not exist", *task.ParentID)
		}
		if parent.IsSubtask() {
			return nil, coreerrors.New(coreerrors.InvalidTransition, "parent %d is itself a subtask", *task.ParentID)
		}
	}
	for _, depID := range task.HardDependencyIDs() {
		if would, cycle := g.hardGraph().WouldFormCycle(task.ID, depID); would {
			return nil, coreerrors.New(coreerrors.CycleWouldForm, "%v", cycle)
		}
	}

	g.tasks[task.ID] = task
	g.indexAdd(task)
	if task.ParentID != nil {
		parent := g.tasks[*task.ParentID]
		parent.Children = append(parent.Children, task.ID)
	}
	return task, nil
}

// LoadTask inserts an already-validated task straight into the graph's
// indexes, bypassing the dependency/cycle/parent checks Add performs. It
// exists solely for replaying durably persisted tasks back into the graph
// at startup (spec §3 "Used to recover after restart"); callers must not
// use it once the graph is serving live traffic.
func (g *Graph) LoadTask(task *models.Task) {
	if task.ID >= g.nextID {
		g.nextID = task.ID + 1
	}
	g.tasks[task.ID] = task
	g.indexAdd(task)
}

// Get returns the task by id, or coreerrors.UnknownTask.
func (g *Graph) Get(id int64) (*models.Task, error) {
	t, ok := g.tasks[id]
	if !ok {
		return nil, coreerrors.New(coreerrors.UnknownTask, "task %d not found", id)
	}
	return t, nil
}

// AddDependency adds a dependency edge from task to dependsOn. Fails with
// CycleWouldForm if a hard edge would close a cycle (spec §4.1 failure
// modes); soft edges are never rejected for cycles.
func (g *Graph) AddDependency(taskID, dependsOnID int64, depType models.DependencyType) error {
	task, err := g.Get(taskID)
	if err != nil {
		return err
	}
	if _, err := g.Get(dependsOnID); err != nil {
		return err
	}
	if taskID == dependsOnID {
		return coreerrors.New(coreerrors.InvalidTransition, "task cannot depend on itself")
	}
	if depType == models.DependencyHard {
		if would, cycle := g.hardGraph().WouldFormCycle(taskID, dependsOnID); would {
			return coreerrors.New(coreerrors.CycleWouldForm, "%v", cycle)
		}
	}
	task.Dependencies = append(task.Dependencies, models.Dependency{TaskID: dependsOnID, Type: depType})
	return nil
}

// SetStatus transitions task to newStatus if the transition is legal per
// spec §3's state machine, updating the status index.
func (g *Graph) SetStatus(taskID int64, newStatus models.Status) error {
	task, err := g.Get(taskID)
	if err != nil {
		return err
	}
	if !AllowedTransitions[task.Status][newStatus] {
		return coreerrors.New(coreerrors.InvalidTransition, "cannot move task %d from %s to %s", taskID, task.Status, newStatus)
	}
	g.indexRemoveStatus(task)
	task.Status = newStatus
	g.indexAddStatus(task)
	return nil
}

// SetStatusForced transitions a task regardless of the normal state
// machine. Its one caller is progress's parent rollup (a parent may still
// be TODO when every child completes); lease recovery and the BLOCKED ->
// DONE operator override both go through SetStatus, whose table already
// allows those moves.
func (g *Graph) SetStatusForced(taskID int64, newStatus models.Status) error {
	task, err := g.Get(taskID)
	if err != nil {
		return err
	}
	g.indexRemoveStatus(task)
	task.Status = newStatus
	g.indexAddStatus(task)
	return nil
}

// ReadyTasks returns tasks with status TODO and all hard predecessors
// DONE, ordered per the spec §4.2 tie-break.
func (g *Graph) ReadyTasks() []*models.Task {
	todo := g.byStatus[models.StatusTodo]
	candidates := make([]*models.Task, 0, len(todo))
	for id := range todo {
		candidates = append(candidates, g.tasks[id])
	}
	return dependency.ReadyTasks(candidates, g.statusLookup())
}

// DependentsOf returns tasks that list taskID as a dependency (any type).
func (g *Graph) DependentsOf(taskID int64) []*models.Task {
	var out []*models.Task
	for _, t := range g.tasks {
		for _, d := range t.Dependencies {
			if d.TaskID == taskID {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// ChildrenOf returns the subtasks of a parent task, in order.
func (g *Graph) ChildrenOf(parentID int64) []*models.Task {
	parent, ok := g.tasks[parentID]
	if !ok {
		return nil
	}
	out := make([]*models.Task, 0, len(parent.Children))
	for _, id := range parent.Children {
		if c, ok := g.tasks[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ByLabel returns all tasks carrying the given label.
func (g *Graph) ByLabel(label string) []*models.Task {
	ids := g.byLabel[label]
	out := make([]*models.Task, 0, len(ids))
	for id := range ids {
		out = append(out, g.tasks[id])
	}
	return out
}

// AllTasks returns every task in the graph (callers should treat the
// result as a read-only snapshot).
func (g *Graph) AllTasks() []*models.Task {
	out := make([]*models.Task, 0, len(g.tasks))
	for _, t := range g.tasks {
		out = append(out, t)
	}
	return out
}

// Delete removes a task entirely (spec §3 "destroyed only by explicit
// deletion").
func (g *Graph) Delete(taskID int64) error {
	task, err := g.Get(taskID)
	if err != nil {
		return err
	}
	g.indexRemove(task)
	delete(g.tasks, taskID)
	return nil
}

func (g *Graph) statusLookup() dependency.StatusLookup {
	return func(id int64) (models.Status, bool) {
		t, ok := g.tasks[id]
		if !ok {
			return "", false
		}
		return t.Status, true
	}
}

// HardDependencyGraph builds a standalone dependency.Graph snapshot of the
// current hard-edge subgraph, for callers (the inference engine,
// diagnostics) that need to validate candidate edges against it without
// reaching into Graph's internals.
func (g *Graph) HardDependencyGraph() *dependency.Graph {
	return g.hardGraph()
}

func (g *Graph) hardGraph() *dependency.Graph {
	dg := dependency.NewGraph()
	for id, t := range g.tasks {
		for _, depID := range t.HardDependencyIDs() {
			dg.AddEdge(id, depID)
		}
	}
	return dg
}

func (g *Graph) indexAdd(t *models.Task) {
	g.indexAddStatus(t)
	for label := range t.Labels {
		if g.byLabel[label] == nil {
			g.byLabel[label] = make(map[int64]struct{})
		}
		g.byLabel[label][t.ID] = struct{}{}
	}
	if t.ParentID != nil {
		if g.byParent[*t.ParentID] == nil {
			g.byParent[*t.ParentID] = make(map[int64]struct{})
		}
		g.byParent[*t.ParentID][t.ID] = struct{}{}
	}
}

func (g *Graph) indexAddStatus(t *models.Task) {
	if g.byStatus[t.Status] == nil {
		g.byStatus[t.Status] = make(map[int64]struct{})
	}
	g.byStatus[t.Status][t.ID] = struct{}{}
}

func (g *Graph) indexRemoveStatus(t *models.Task) {
	if m := g.byStatus[t.Status]; m != nil {
		delete(m, t.ID)
	}
}

func (g *Graph) indexRemove(t *models.Task) {
	g.indexRemoveStatus(t)
	for label := range t.Labels {
		if m := g.byLabel[label]; m != nil {
			delete(m, t.ID)
		}
	}
	if t.ParentID != nil {
		if m := g.byParent[*t.ParentID]; m != nil {
			delete(m, t.ID)
		}
	}
}

// HardPredecessorsDone is an invariant check that nothing in the module
// calls: it reports
// an error string describing which hard predecessor of V is not DONE even
// though V is IN_PROGRESS or DONE (spec §8 invariant).
func (g *Graph) HardPredecessorsDone(taskID int64) error {
	t, err := g.Get(taskID)
	if err != nil {
		return err
	}
	if t.Status != models.StatusInProgress && t.Status != models.StatusDone {
		return nil
	}
	for _, depID := range t.HardDependencyIDs() {
		dep, ok := g.tasks[depID]
		if !ok || dep.Status != models.StatusDone {
			return fmt.Errorf("task %d is %s but hard predecessor %d is not done", taskID, t.Status, depID)
		}
	}
	return nil
}
