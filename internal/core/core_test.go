package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jwwelbor/marcus/internal/config"
	"github.com/jwwelbor/marcus/internal/models"
	"github.com/jwwelbor/marcus/internal/progress"
	"github.com/jwwelbor/marcus/internal/provider"
	"github.com/stretchr/testify/require"
)

func newTestCore(t *testing.T) *Core {
	t.Helper()
	cfg := config.Defaults()
	cfg.LeaseDuration = 50 * time.Millisecond
	cfg.SweeperInterval = 10 * time.Millisecond
	return New(cfg, nil, provider.NewInMemory(), nil)
}

func TestSimpleLinearChain(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()

	a, err := c.AddTask(&models.Task{Name: "A", Status: models.StatusTodo})
	require.NoError(t, err)
	b, err := c.AddTask(&models.Task{Name: "B", Status: models.StatusTodo, Dependencies: []models.Dependency{{TaskID: a.ID, Type: models.DependencyHard}}})
	require.NoError(t, err)
	cTask, err := c.AddTask(&models.Task{Name: "C", Status: models.StatusTodo, Dependencies: []models.Dependency{{TaskID: b.ID, Type: models.DependencyHard}}})
	require.NoError(t, err)

	c.RegisterAgent("X", models.RoleAgent, nil)

	res, err := c.RequestNextTask(ctx, "X")
	require.NoError(t, err)
	require.False(t, res.Empty)
	require.Equal(t, a.ID, res.Task.ID)

	require.NoError(t, c.ReportTaskProgress(ctx, "X", a.ID, progress.StatusCompletedReport, 100, "done"))

	res, err = c.RequestNextTask(ctx, "X")
	require.NoError(t, err)
	require.False(t, res.Empty)
	require.Equal(t, b.ID, res.Task.ID)

	require.NoError(t, c.ReportTaskProgress(ctx, "X", b.ID, progress.StatusCompletedReport, 100, "done"))

	res, err = c.RequestNextTask(ctx, "X")
	require.NoError(t, err)
	require.Equal(t, cTask.ID, res.Task.ID)

	require.NoError(t, c.ReportTaskProgress(ctx, "X", cTask.ID, progress.StatusCompletedReport, 100, "done"))

	res, err = c.RequestNextTask(ctx, "X")
	require.NoError(t, err)
	require.True(t, res.Empty)
	require.Equal(t, "no_ready_tasks", string(res.Diagnostics.Reason))
}

func TestTwoAgentsParallelWorkNeverDouble(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()

	p1, err := c.AddTask(&models.Task{Name: "P1", Status: models.StatusTodo})
	require.NoError(t, err)
	p2, err := c.AddTask(&models.Task{Name: "P2", Status: models.StatusTodo})
	require.NoError(t, err)

	c.RegisterAgent("X", models.RoleAgent, nil)
	c.RegisterAgent("Y", models.RoleAgent, nil)

	var wg sync.WaitGroup
	results := make([]*NextTaskResult, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		r, err := c.RequestNextTask(ctx, "X")
		require.NoError(t, err)
		results[0] = r
	}()
	go func() {
		defer wg.Done()
		r, err := c.RequestNextTask(ctx, "Y")
		require.NoError(t, err)
		results[1] = r
	}()
	wg.Wait()

	require.False(t, results[0].Empty)
	require.False(t, results[1].Empty)
	require.NotEqual(t, results[0].Task.ID, results[1].Task.ID)

	ids := map[int64]bool{p1.ID: true, p2.ID: true}
	require.True(t, ids[results[0].Task.ID])
	require.True(t, ids[results[1].Task.ID])
}

func TestLeaseExpiryRecovery(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()

	task, err := c.AddTask(&models.Task{Name: "T", Status: models.StatusTodo})
	require.NoError(t, err)
	c.RegisterAgent("X", models.RoleAgent, nil)
	c.RegisterAgent("Y", models.RoleAgent, nil)

	res, err := c.RequestNextTask(ctx, "X")
	require.NoError(t, err)
	require.Equal(t, task.ID, res.Task.ID)

	require.NoError(t, c.ReportTaskProgress(ctx, "X", task.ID, progress.StatusInProgressReport, 25, "in progress"))

	// Simulate the sweeper firing after lease_duration has elapsed.
	c.sweepOnce(time.Now().Add(time.Hour))

	c.mu.RLock()
	reloaded, err := c.graph.Get(task.ID)
	c.mu.RUnlock()
	require.NoError(t, err)
	require.Equal(t, models.StatusTodo, reloaded.Status)
	require.Empty(t, reloaded.Assignee)
	require.NotEmpty(t, reloaded.RecoveryNotes)

	res, err = c.RequestNextTask(ctx, "Y")
	require.NoError(t, err)
	require.Equal(t, task.ID, res.Task.ID)
}

func TestParentRollupThroughCore(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()

	q, err := c.AddTask(&models.Task{Name: "Q", Status: models.StatusTodo})
	require.NoError(t, err)
	q1, err := c.AddTask(&models.Task{Name: "Q1", Status: models.StatusTodo, ParentID: &q.ID})
	require.NoError(t, err)
	q2, err := c.AddTask(&models.Task{Name: "Q2", Status: models.StatusTodo, ParentID: &q.ID, Dependencies: []models.Dependency{{TaskID: q1.ID, Type: models.DependencyHard}}})
	require.NoError(t, err)
	q3, err := c.AddTask(&models.Task{Name: "Q3", Status: models.StatusTodo, ParentID: &q.ID, Dependencies: []models.Dependency{{TaskID: q2.ID, Type: models.DependencyHard}}})
	require.NoError(t, err)

	c.RegisterAgent("X", models.RoleAgent, nil)

	for _, child := range []int64{q1.ID, q2.ID, q3.ID} {
		res, err := c.RequestNextTask(ctx, "X")
		require.NoError(t, err)
		require.Equal(t, child, res.Task.ID)
		require.NoError(t, c.ReportTaskProgress(ctx, "X", child, progress.StatusCompletedReport, 100, "done"))
	}

	c.mu.RLock()
	parent, err := c.graph.Get(q.ID)
	c.mu.RUnlock()
	require.NoError(t, err)
	require.Equal(t, models.StatusDone, parent.Status)
	require.Contains(t, parent.RollupComment, "Q1")
	require.Contains(t, parent.RollupComment, "Q3")
}

func TestCycleRejectionViaCore(t *testing.T) {
	c := newTestCore(t)
	a, err := c.AddTask(&models.Task{Name: "A", Status: models.StatusTodo})
	require.NoError(t, err)
	b, err := c.AddTask(&models.Task{Name: "B", Status: models.StatusTodo, Dependencies: []models.Dependency{{TaskID: a.ID, Type: models.DependencyHard}}})
	require.NoError(t, err)
	_, err = c.AddTask(&models.Task{Name: "C", Status: models.StatusTodo, Dependencies: []models.Dependency{{TaskID: b.ID, Type: models.DependencyHard}}})
	require.NoError(t, err)

	c.mu.Lock()
	err = c.graph.AddDependency(a.ID, 3, models.DependencyHard)
	c.mu.Unlock()
	require.Error(t, err)
}

func TestBlockerReturnsSuggestionsAndKeepsIdempotentAssignment(t *testing.T) {
	c := newTestCore(t)
	ctx := context.Background()

	task, err := c.AddTask(&models.Task{Name: "T", Status: models.StatusTodo})
	require.NoError(t, err)
	c.RegisterAgent("X", models.RoleAgent, nil)

	res, err := c.RequestNextTask(ctx, "X")
	require.NoError(t, err)
	require.Equal(t, task.ID, res.Task.ID)

	suggestions, err := c.ReportBlocker(ctx, "X", task.ID, "missing OAuth creds", "high")
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)

	again, err := c.RequestNextTask(ctx, "X")
	require.NoError(t, err)
	require.False(t, again.Empty)
	require.Equal(t, task.ID, again.Task.ID)
}
