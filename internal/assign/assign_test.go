package assign

import (
	"context"
	"testing"
	"time"

	"github.com/jwwelbor/marcus/internal/aiclient"
	"github.com/jwwelbor/marcus/internal/lease"
	"github.com/jwwelbor/marcus/internal/models"
	"github.com/jwwelbor/marcus/internal/registry"
	"github.com/jwwelbor/marcus/internal/taskgraph"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T) (*taskgraph.Graph, *registry.Registry, *lease.Manager, *Assigner) {
	t.Helper()
	g := taskgraph.New()
	reg := registry.New()
	leases := lease.New()
	return g, reg, leases, New(g, reg, leases)
}

func TestReadyCandidatesFiltersByCapability(t *testing.T) {
	g, reg, _, a := newFixture(t)
	_, err := g.Add(&models.Task{Name: "backend task", Status: models.StatusTodo, Capabilities: models.NewLabelSet([]string{"go"})})
	require.NoError(t, err)
	_, err = g.Add(&models.Task{Name: "frontend task", Status: models.StatusTodo, Capabilities: models.NewLabelSet([]string{"react"})})
	require.NoError(t, err)

	reg.Register("agent-1", models.RoleAgent, []string{"go"})

	candidates, err := a.ReadyCandidates("agent-1")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "backend task", candidates[0].Name)
}

func TestReadyCandidatesExcludesHumanOnly(t *testing.T) {
	g, reg, _, a := newFixture(t)
	task := &models.Task{Name: "design review", Status: models.StatusTodo, Labels: models.NewLabelSet([]string{IncompatibleLabel})}
	_, err := g.Add(task)
	require.NoError(t, err)
	reg.Register("agent-1", models.RoleAgent, nil)

	candidates, err := a.ReadyCandidates("agent-1")
	require.NoError(t, err)
	require.Empty(t, candidates)
}

func TestReserveIsAtomicAgainstDoubleAssignment(t *testing.T) {
	g, reg, leases, a := newFixture(t)
	task, err := g.Add(&models.Task{Name: "solo task", Status: models.StatusTodo})
	require.NoError(t, err)
	reg.Register("agent-1", models.RoleAgent, nil)
	reg.Register("agent-2", models.RoleAgent, nil)

	reserved, l, err := a.Reserve(task.ID, "agent-1", time.Minute)
	require.NoError(t, err)
	require.Equal(t, "agent-1", reserved.Assignee)
	require.Equal(t, models.StatusInProgress, reserved.Status)
	require.NotNil(t, l)

	_, _, err = a.Reserve(task.ID, "agent-2", time.Minute)
	require.Error(t, err, "second reservation of the same task must fail")

	holder, ok := leases.Holder(task.ID)
	require.True(t, ok)
	require.Equal(t, "agent-1", holder)
}

func TestCurrentAssignmentIdempotent(t *testing.T) {
	g, reg, _, a := newFixture(t)
	task, err := g.Add(&models.Task{Name: "t", Status: models.StatusTodo})
	require.NoError(t, err)
	reg.Register("agent-1", models.RoleAgent, nil)

	_, _, err = a.Reserve(task.ID, "agent-1", time.Minute)
	require.NoError(t, err)

	again, err := a.CurrentAssignment("agent-1")
	require.NoError(t, err)
	require.Equal(t, task.ID, again.ID)
}

func TestScoreCandidatesPicksHighestFallbackScore(t *testing.T) {
	_, reg, _, _ := newFixture(t)
	reg.Register("agent-1", models.RoleAgent, []string{"go"})
	agent, err := reg.Get("agent-1")
	require.NoError(t, err)

	urgent := &models.Task{ID: 1, Priority: models.PriorityUrgent, EffortHours: 1, Labels: models.NewLabelSet([]string{"go"})}
	low := &models.Task{ID: 2, Priority: models.PriorityLow, EffortHours: 8, Labels: models.NewLabelSet([]string{"go"})}

	oracle := aiclient.NewClient(nil, time.Second)
	scored := ScoreCandidates(context.Background(), oracle, reg, agent, []*models.Task{low, urgent})
	best := Best(scored)
	require.NotNil(t, best)
	require.Equal(t, int64(1), best.Task.ID)
}
