package dependency

import "github.com/jwwelbor/marcus/internal/models"

// CandidateEdge is a proposed dependency edge offered by an external
// inferer (pattern rules or the AI oracle, spec §1/§4.2(c)).
type CandidateEdge struct {
	Task       int64
	DependsOn  int64
	Type       models.DependencyType
	Confidence float64
	Source     string // e.g. "pattern-rule", "ai-oracle"
}

// InferenceResult records the outcome of evaluating one candidate edge.
type InferenceResult struct {
	Edge     CandidateEdge
	Applied  bool
	Reason   string // "applied" | "below_threshold" | "would_cycle"
}

// Engine evaluates inferred edges against the static cycle validator and a
// confidence threshold before they are allowed to become real edges.
type Engine struct {
	graph     *Graph
	threshold float64
}

// NewEngine creates an inference engine over the given hard-edge graph
// snapshot with the configured confidence threshold (spec §4.2(c), default
// 0.6 per spec §6).
func NewEngine(graph *Graph, threshold float64) *Engine {
	return &Engine{graph: graph, threshold: threshold}
}

// Evaluate applies edge if, and only if, it passes static cycle validation
// and meets the confidence threshold. Hard edges below threshold are
// recorded as "suggested" only (reason below_threshold) and never applied;
// soft edges may form cycles and are informational, so they bypass the
// cycle check but are still threshold-gated for consistency.
func (e *Engine) Evaluate(edge CandidateEdge) InferenceResult {
	if edge.Confidence < e.threshold {
		return InferenceResult{Edge: edge, Applied: false, Reason: "below_threshold"}
	}
	if edge.Type == models.DependencyHard {
		if would, _ := e.graph.WouldFormCycle(edge.Task, edge.DependsOn); would {
			return InferenceResult{Edge: edge, Applied: false, Reason: "would_cycle"}
		}
	}
	return InferenceResult{Edge: edge, Applied: true, Reason: "applied"}
}

// EvaluateAll evaluates a batch of candidate edges in order, applying
// accepted hard edges to the engine's graph as it goes so that later
// candidates are validated against an up-to-date picture.
func (e *Engine) EvaluateAll(edges []CandidateEdge) []InferenceResult {
	results := make([]InferenceResult, 0, len(edges))
	for _, edge := range edges {
		res := e.Evaluate(edge)
		if res.Applied && edge.Type == models.DependencyHard {
			e.graph.AddEdge(edge.Task, edge.DependsOn)
		}
		results = append(results, res)
	}
	return results
}

// InferByLabelOverlap is the pattern-rule inferer spec §4.2(c) names
// alongside the AI oracle ("candidate edges from an external inferer
// (pattern rules, AI)"). It proposes a soft dependency from task onto each
// other task that shares at least one label with it, with confidence equal
// to the fraction of task's labels the candidate predecessor also carries.
// Soft, because label overlap alone is too weak a signal to ever gate
// assignment; running it through Engine.Evaluate still gives every
// candidate a chance to clear the confidence threshold and become a real
// edge, or else surface as a suggested diagnostic (spec §4.7) when it
// doesn't.
func InferByLabelOverlap(task *models.Task, existing []*models.Task) []CandidateEdge {
	if len(task.Labels) == 0 {
		return nil
	}
	alreadyLinked := make(map[int64]bool, len(task.Dependencies))
	for _, d := range task.Dependencies {
		alreadyLinked[d.TaskID] = true
	}

	var candidates []CandidateEdge
	for _, other := range existing {
		if other.ID == task.ID || alreadyLinked[other.ID] {
			continue
		}
		overlap := 0
		for label := range task.Labels {
			if _, ok := other.Labels[label]; ok {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		candidates = append(candidates, CandidateEdge{
			Task:       task.ID,
			DependsOn:  other.ID,
			Type:       models.DependencySoft,
			Confidence: float64(overlap) / float64(len(task.Labels)),
			Source:     "pattern-rule:label-overlap",
		})
	}
	return candidates
}
