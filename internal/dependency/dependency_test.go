package dependency

import (
	"testing"
	"time"

	"github.com/jwwelbor/marcus/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphCycleDetection(t *testing.T) {
	g := NewGraph()
	g.AddEdge(2, 1) // 2 depends on 1
	g.AddEdge(3, 2) // 3 depends on 2

	would, _ := g.WouldFormCycle(1, 3) // 1 -> 3 would close 1->3->2->1
	assert.True(t, would)

	would, _ = g.WouldFormCycle(4, 1)
	assert.False(t, would)
}

func TestAnyCycle(t *testing.T) {
	g := NewGraph()
	g.AddEdge(1, 2)
	g.AddEdge(2, 3)
	has, _ := g.AnyCycle(nil)
	require.False(t, has)

	g.AddEdge(3, 1)
	has, cycle := g.AnyCycle(nil)
	require.True(t, has)
	require.NotEmpty(t, cycle)
}

func statusOf(statuses map[int64]models.Status) StatusLookup {
	return func(id int64) (models.Status, bool) {
		s, ok := statuses[id]
		return s, ok
	}
}

func TestIsReadyHardVsSoft(t *testing.T) {
	statuses := map[int64]models.Status{1: models.StatusTodo, 2: models.StatusDone}
	task := &models.Task{
		ID:     3,
		Status: models.StatusTodo,
		Dependencies: []models.Dependency{
			{TaskID: 1, Type: models.DependencySoft}, // not done, but soft: never blocks
			{TaskID: 2, Type: models.DependencyHard},
		},
	}
	assert.True(t, IsReady(task, statusOf(statuses)))

	task.Dependencies[0].Type = models.DependencyHard
	assert.False(t, IsReady(task, statusOf(statuses)))
}

func TestReadyTasksTieBreak(t *testing.T) {
	now := time.Now()
	lookup := statusOf(map[int64]models.Status{})
	tasks := []*models.Task{
		{ID: 5, Status: models.StatusTodo, Priority: models.PriorityMedium, EffortHours: 2, CreatedAt: now},
		{ID: 1, Status: models.StatusTodo, Priority: models.PriorityUrgent, EffortHours: 5, CreatedAt: now},
		{ID: 2, Status: models.StatusTodo, Priority: models.PriorityUrgent, EffortHours: 1, CreatedAt: now},
		{ID: 3, Status: models.StatusTodo, Priority: models.PriorityLow, EffortHours: 1, CreatedAt: now},
	}
	ordered := ReadyTasks(tasks, lookup)
	require.Len(t, ordered, 4)
	assert.Equal(t, int64(2), ordered[0].ID) // urgent + shortest effort
	assert.Equal(t, int64(1), ordered[1].ID) // urgent + longer effort
	assert.Equal(t, int64(5), ordered[2].ID) // medium
	assert.Equal(t, int64(3), ordered[3].ID) // low
}

func TestInferenceEngineThresholdAndCycle(t *testing.T) {
	g := NewGraph()
	g.AddEdge(2, 1)
	eng := NewEngine(g, 0.6)

	below := eng.Evaluate(CandidateEdge{Task: 3, DependsOn: 4, Type: models.DependencyHard, Confidence: 0.4})
	assert.False(t, below.Applied)
	assert.Equal(t, "below_threshold", below.Reason)

	cyclic := eng.Evaluate(CandidateEdge{Task: 1, DependsOn: 2, Type: models.DependencyHard, Confidence: 0.9})
	assert.False(t, cyclic.Applied)
	assert.Equal(t, "would_cycle", cyclic.Reason)

	ok := eng.Evaluate(CandidateEdge{Task: 3, DependsOn: 1, Type: models.DependencyHard, Confidence: 0.9})
	assert.True(t, ok.Applied)
}
