package diagnostics

import (
	"testing"

	"github.com/jwwelbor/marcus/internal/models"
	"github.com/jwwelbor/marcus/internal/registry"
	"github.com/jwwelbor/marcus/internal/taskgraph"
	"github.com/stretchr/testify/require"
)

func defaultCfg() Config {
	return Config{BottleneckThreshold: 3, LongChainDepth: 2}
}

func TestNoFitWhenNoAgentSatisfiesReadyTask(t *testing.T) {
	g := taskgraph.New()
	_, err := g.Add(&models.Task{Name: "needs rust", Status: models.StatusTodo, Capabilities: models.NewLabelSet([]string{"rust"})})
	require.NoError(t, err)
	reg := registry.New()
	reg.Register("agent-1", models.RoleAgent, []string{"go"})

	report := New(g, reg, defaultCfg()).Diagnose(ReasonNoReadyTasks)
	found := false
	for _, issue := range report.Issues {
		if issue.Kind == "no_fit" {
			found = true
		}
	}
	require.True(t, found)
}

func TestBottleneckDetection(t *testing.T) {
	g := taskgraph.New()
	blocker, err := g.Add(&models.Task{Name: "blocker", Status: models.StatusTodo})
	require.NoError(t, err)
	require.NoError(t, g.SetStatus(blocker.ID, models.StatusInProgress))

	for i := 0; i < 3; i++ {
		_, err := g.Add(&models.Task{
			Name:         "dependent",
			Status:       models.StatusTodo,
			Dependencies: []models.Dependency{{TaskID: blocker.ID, Type: models.DependencyHard}},
		})
		require.NoError(t, err)
	}

	reg := registry.New()
	report := New(g, reg, defaultCfg()).Diagnose(ReasonNoReadyTasks)
	found := false
	for _, issue := range report.Issues {
		if issue.Kind == "bottleneck" {
			found = true
			require.Equal(t, []int64{blocker.ID}, issue.AffectedTasks)
		}
	}
	require.True(t, found)
}

func TestDanglingDependencyDetection(t *testing.T) {
	g := taskgraph.New()
	root, err := g.Add(&models.Task{Name: "root", Status: models.StatusTodo})
	require.NoError(t, err)
	// manually inject a dangling edge bypassing Add's validation, simulating
	// a dependency whose target was later deleted.
	rootTask, _ := g.Get(root.ID)
	rootTask.Dependencies = append(rootTask.Dependencies, models.Dependency{TaskID: 9999, Type: models.DependencyHard})

	reg := registry.New()
	report := New(g, reg, defaultCfg()).Diagnose(ReasonNoReadyTasks)
	found := false
	for _, issue := range report.Issues {
		if issue.Kind == "dangling_dependency" {
			found = true
		}
	}
	require.True(t, found)
}

func TestAllBlockedSummary(t *testing.T) {
	g := taskgraph.New()
	inProgress, err := g.Add(&models.Task{Name: "working", Status: models.StatusTodo})
	require.NoError(t, err)
	require.NoError(t, g.SetStatus(inProgress.ID, models.StatusInProgress))

	_, err = g.Add(&models.Task{
		Name:         "waiting",
		Status:       models.StatusTodo,
		Dependencies: []models.Dependency{{TaskID: inProgress.ID, Type: models.DependencyHard}},
	})
	require.NoError(t, err)

	reg := registry.New()
	report := New(g, reg, defaultCfg()).Diagnose(ReasonNoReadyTasks)
	found := false
	for _, issue := range report.Issues {
		if issue.Kind == "all_blocked" {
			found = true
		}
	}
	require.True(t, found)
}
