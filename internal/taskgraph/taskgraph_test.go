package taskgraph

import (
	"testing"

	"github.com/jwwelbor/marcus/internal/coreerrors"
	"github.com/jwwelbor/marcus/internal/models"
	"github.com/stretchr/testify/require"
)

func mustAdd(t *testing.T, g *Graph, task *models.Task) *models.Task {
	t.Helper()
	added, err := g.Add(task)
	require.NoError(t, err)
	return added
}

func TestLinearChainReadiness(t *testing.T) {
	g := New()
	a := mustAdd(t, g, &models.Task{Name: "A", Status: models.StatusTodo})
	b := mustAdd(t, g, &models.Task{Name: "B", Status: models.StatusTodo, Dependencies: []models.Dependency{{TaskID: a.ID, Type: models.DependencyHard}}})
	c := mustAdd(t, g, &models.Task{Name: "C", Status: models.StatusTodo, Dependencies: []models.Dependency{{TaskID: b.ID, Type: models.DependencyHard}}})

	ready := g.ReadyTasks()
	require.Len(t, ready, 1)
	require.Equal(t, a.ID, ready[0].ID)

	require.NoError(t, g.SetStatus(a.ID, models.StatusInProgress))
	require.NoError(t, g.SetStatus(a.ID, models.StatusDone))

	ready = g.ReadyTasks()
	require.Len(t, ready, 1)
	require.Equal(t, b.ID, ready[0].ID)

	require.NoError(t, g.SetStatus(b.ID, models.StatusInProgress))
	require.NoError(t, g.SetStatus(b.ID, models.StatusDone))
	ready = g.ReadyTasks()
	require.Equal(t, c.ID, ready[0].ID)
}

func TestCycleRejected(t *testing.T) {
	g := New()
	a := mustAdd(t, g, &models.Task{Name: "A", Status: models.StatusTodo})
	b := mustAdd(t, g, &models.Task{Name: "B", Status: models.StatusTodo, Dependencies: []models.Dependency{{TaskID: a.ID, Type: models.DependencyHard}}})
	c := mustAdd(t, g, &models.Task{Name: "C", Status: models.StatusTodo, Dependencies: []models.Dependency{{TaskID: b.ID, Type: models.DependencyHard}}})

	err := g.AddDependency(a.ID, c.ID, models.DependencyHard)
	require.Error(t, err)
	ce, ok := coreerrors.As(err)
	require.True(t, ok)
	require.Equal(t, coreerrors.CycleWouldForm, ce.Kind)

	// graph unchanged
	require.Len(t, a.Dependencies, 0)
}

func TestInvalidTransitionRejected(t *testing.T) {
	g := New()
	a := mustAdd(t, g, &models.Task{Name: "A", Status: models.StatusTodo})
	err := g.SetStatus(a.ID, models.StatusDone)
	require.Error(t, err)
	ce, _ := coreerrors.As(err)
	require.Equal(t, coreerrors.InvalidTransition, ce.Kind)
}

func TestUnknownTaskDependency(t *testing.T) {
	g := New()
	_, err := g.Add(&models.Task{Name: "A", Status: models.StatusTodo, Dependencies: []models.Dependency{{TaskID: 999, Type: models.DependencyHard}}})
	require.Error(t, err)
	ce, _ := coreerrors.As(err)
	require.Equal(t, coreerrors.UnknownTask, ce.Kind)
}

func TestParentRollupIndexes(t *testing.T) {
	g := New()
	parent := mustAdd(t, g, &models.Task{Name: "Parent", Status: models.StatusTodo})
	child1 := mustAdd(t, g, &models.Task{Name: "Child1", Status: models.StatusTodo, ParentID: &parent.ID})
	child2 := mustAdd(t, g, &models.Task{Name: "Child2", Status: models.StatusTodo, ParentID: &parent.ID})

	children := g.ChildrenOf(parent.ID)
	require.Len(t, children, 2)
	require.ElementsMatch(t, []int64{child1.ID, child2.ID}, []int64{children[0].ID, children[1].ID})
}

func TestSubtaskOfSubtaskRejected(t *testing.T) {
	g := New()
	parent := mustAdd(t, g, &models.Task{Name: "Parent", Status: models.StatusTodo})
	child := mustAdd(t, g, &models.Task{Name: "Child", Status: models.StatusTodo, ParentID: &parent.ID})

	_, err := g.Add(&models.Task{Name: "Grandchild", Status: models.StatusTodo, ParentID: &child.ID})
	require.Error(t, err)
}

func TestSoftDependencyNeverBlocksReadiness(t *testing.T) {
	g := New()
	a := mustAdd(t, g, &models.Task{Name: "A", Status: models.StatusTodo})
	b := mustAdd(t, g, &models.Task{Name: "B", Status: models.StatusTodo, Dependencies: []models.Dependency{{TaskID: a.ID, Type: models.DependencySoft}}})

	ready := g.ReadyTasks()
	require.Len(t, ready, 2)
	_ = b
}
