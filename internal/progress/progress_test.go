package progress

import (
	"context"
	"testing"
	"time"

	"github.com/jwwelbor/marcus/internal/aiclient"
	"github.com/jwwelbor/marcus/internal/coreerrors"
	"github.com/jwwelbor/marcus/internal/lease"
	"github.com/jwwelbor/marcus/internal/models"
	"github.com/jwwelbor/marcus/internal/registry"
	"github.com/jwwelbor/marcus/internal/taskgraph"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T) (*taskgraph.Graph, *registry.Registry, *lease.Manager, *Handler) {
	t.Helper()
	g := taskgraph.New()
	reg := registry.New()
	leases := lease.New()
	journal := NewJournal(nil)
	oracle := aiclient.NewClient(nil, time.Second)
	h := New(g, reg, leases, journal, oracle, "reject")
	return g, reg, leases, h
}

func assignTask(t *testing.T, g *taskgraph.Graph, reg *registry.Registry, leases *lease.Manager, agentID string, task *models.Task) *models.Task {
	t.Helper()
	task.Status = models.StatusTodo
	added, err := g.Add(task)
	require.NoError(t, err)
	reg.Register(agentID, models.RoleAgent, nil)
	require.NoError(t, g.SetStatus(added.ID, models.StatusInProgress))
	added.Assignee = agentID
	require.NoError(t, reg.SetAssignment(agentID, &added.ID))
	leases.Grant(added.ID, agentID, time.Hour)
	return added
}

func TestReportProgressRejectsNonHolder(t *testing.T) {
	g, reg, leases, h := newFixture(t)
	task := assignTask(t, g, reg, leases, "agent-1", &models.Task{Name: "t"})

	err := h.ReportProgress(context.Background(), "agent-2", task.ID, StatusInProgressReport, 50, "", time.Hour)
	require.Error(t, err)
	ce, ok := coreerrors.As(err)
	require.True(t, ok)
	require.Equal(t, coreerrors.NotHolder, ce.Kind)
}

func TestReportProgressRejectsRegression(t *testing.T) {
	g, reg, leases, h := newFixture(t)
	task := assignTask(t, g, reg, leases, "agent-1", &models.Task{Name: "t"})

	require.NoError(t, h.ReportProgress(context.Background(), "agent-1", task.ID, StatusInProgressReport, 50, "", time.Hour))
	err := h.ReportProgress(context.Background(), "agent-1", task.ID, StatusInProgressReport, 25, "", time.Hour)
	require.Error(t, err)
	ce, ok := coreerrors.As(err)
	require.True(t, ok)
	require.Equal(t, coreerrors.InvalidTransition, ce.Kind)
}

func TestReportProgressAt100RoutesToCompletion(t *testing.T) {
	g, reg, leases, h := newFixture(t)
	task := assignTask(t, g, reg, leases, "agent-1", &models.Task{Name: "t"})

	require.NoError(t, h.ReportProgress(context.Background(), "agent-1", task.ID, StatusInProgressReport, 100, "done", time.Hour))
	require.Equal(t, models.StatusDone, task.Status)
	require.Empty(t, task.Assignee)
	_, leased := leases.Holder(task.ID)
	require.False(t, leased)
}

func TestCompletedThenFurtherProgressFails(t *testing.T) {
	g, reg, leases, h := newFixture(t)
	task := assignTask(t, g, reg, leases, "agent-1", &models.Task{Name: "t"})
	require.NoError(t, h.Complete("agent-1", task.ID))

	err := h.ReportProgress(context.Background(), "agent-1", task.ID, StatusInProgressReport, 50, "", time.Hour)
	require.Error(t, err)
}

func TestReportBlockerKeepsLeaseAndReturnsSuggestions(t *testing.T) {
	g, reg, leases, h := newFixture(t)
	task := assignTask(t, g, reg, leases, "agent-1", &models.Task{Name: "t"})

	suggestions, err := h.ReportBlocker(context.Background(), "agent-1", task.ID, "missing OAuth creds", "high")
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)
	require.Equal(t, models.StatusBlocked, task.Status)
	require.Equal(t, "agent-1", task.Assignee)

	holder, ok := leases.Holder(task.ID)
	require.True(t, ok)
	require.Equal(t, "agent-1", holder)
}

func TestParentRollupOnAllChildrenDone(t *testing.T) {
	g, reg, leases, h := newFixture(t)
	reg.Register("agent-1", models.RoleAgent, nil)

	parent, err := g.Add(&models.Task{Name: "parent feature", Status: models.StatusTodo})
	require.NoError(t, err)

	q1, err := g.Add(&models.Task{Name: "Q1", Status: models.StatusTodo, ParentID: &parent.ID})
	require.NoError(t, err)
	q2, err := g.Add(&models.Task{Name: "Q2", Status: models.StatusTodo, ParentID: &parent.ID})
	require.NoError(t, err)

	for _, child := range []*models.Task{q1, q2} {
		require.NoError(t, g.SetStatus(child.ID, models.StatusInProgress))
		child.Assignee = "agent-1"
		require.NoError(t, reg.SetAssignment("agent-1", &child.ID))
		leases.Grant(child.ID, "agent-1", time.Hour)
		require.NoError(t, h.Complete("agent-1", child.ID))
	}

	require.Equal(t, models.StatusDone, parent.Status)
	require.Contains(t, parent.RollupComment, "Q1")
	require.Contains(t, parent.RollupComment, "Q2")
}

func TestLogDecisionAndArtifactVisibleThroughJournal(t *testing.T) {
	journal := NewJournal(nil)
	journal.LogDecision(1, "agent-1", "chose postgres")
	a := journal.LogArtifact(1, "agent-1", "design.md", models.ArtifactDesign, "")

	require.Len(t, journal.DecisionsForTask(1), 1)
	require.Equal(t, "docs/design/design.md", a.Location)

	// Logging the same (task, filename, type) again without an explicit
	// location yields a second distinct record (spec §8 round-trip law).
	journal.LogArtifact(1, "agent-1", "design.md", models.ArtifactDesign, "")
	require.Len(t, journal.ArtifactsForTask(1), 2)
}
