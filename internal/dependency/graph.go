// Package dependency implements spec §4.2: static cycle validation over
// hard edges, readiness computation, and an inference hook gated by a
// confidence threshold.
//
// The cycle-detection algorithm is a direct, DFS-based descendant of the
// teacher's internal/dependency/detector.go, generalized from string task
// keys to int64 task ids and from a single undifferentiated edge type to
// hard/soft edges (only hard edges participate in cycle detection; soft
// edges are informational per spec §4.2(a)).
package dependency

import (
	"context"
	"fmt"
)

// Graph is an adjacency-list view over hard dependency edges only, used
// purely for cycle validation. The caller (taskgraph) owns the full
// dependency list including soft edges; this type is rebuilt from a
// snapshot whenever a proposed edge needs validating.
type Graph struct {
	// edges maps a task to the hard predecessors it depends on.
	edges map[int64][]int64
}

// NewGraph creates an empty hard-edge graph.
func NewGraph() *Graph {
	return &Graph{edges: make(map[int64][]int64)}
}

// AddEdge records that task depends on dependsOn via a hard edge.
func (g *Graph) AddEdge(task, dependsOn int64) {
	g.edges[task] = append(g.edges[task], dependsOn)
}

// WouldFormCycle reports whether adding the edge (task -> dependsOn) would
// introduce a cycle in the hard-edge subgraph. It does not mutate g.
func (g *Graph) WouldFormCycle(task, dependsOn int64) (bool, []int64) {
	trial := g.clone()
	trial.AddEdge(task, dependsOn)
	return trial.DetectCycle(context.Background(), task)
}

// DetectCycle runs DFS-based cycle detection starting from startTask.
func (g *Graph) DetectCycle(ctx context.Context, startTask int64) (bool, []int64) {
	visiting := make(map[int64]bool)
	visited := make(map[int64]bool)
	var path []int64
	return g.dfs(startTask, visiting, visited, &path)
}

// AnyCycle scans the whole graph for any cycle, used by diagnostics.
func (g *Graph) AnyCycle(ctx context.Context) (bool, []int64) {
	visited := make(map[int64]bool)
	for node := range g.edges {
		if visited[node] {
			continue
		}
		visiting := make(map[int64]bool)
		var path []int64
		if has, cycle := g.dfsMarking(node, visiting, visited, &path); has {
			return true, cycle
		}
	}
	return false, nil
}

func (g *Graph) dfs(task int64, visiting, visited map[int64]bool, path *[]int64) (bool, []int64) {
	if visited[task] {
		return false, nil
	}
	if visiting[task] {
		cycleStart := -1
		for i, t := range *path {
			if t == task {
				cycleStart = i
				break
			}
		}
		cycle := append(append([]int64(nil), (*path)[cycleStart:]...), task)
		return true, cycle
	}

	visiting[task] = true
	*path = append(*path, task)

	for _, dep := range g.edges[task] {
		if has, cycle := g.dfs(dep, visiting, visited, path); has {
			return true, cycle
		}
	}

	*path = (*path)[:len(*path)-1]
	visiting[task] = false
	visited[task] = true
	return false, nil
}

// dfsMarking is like dfs but also records fully-visited nodes into the
// shared visited map across calls, so AnyCycle's outer loop does not
// re-walk already-cleared subtrees.
func (g *Graph) dfsMarking(task int64, visiting, visited map[int64]bool, path *[]int64) (bool, []int64) {
	return g.dfs(task, visiting, visited, path)
}

func (g *Graph) clone() *Graph {
	c := NewGraph()
	for k, v := range g.edges {
		c.edges[k] = append([]int64(nil), v...)
	}
	return c
}

// CycleError describes a detected hard-edge cycle in human-readable form.
func CycleError(cycle []int64) error {
	return fmt.Errorf("circular dependency detected: %v", cycle)
}
