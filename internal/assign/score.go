package assign

import (
	"context"

	"github.com/jwwelbor/marcus/internal/aiclient"
	"github.com/jwwelbor/marcus/internal/models"
	"github.com/jwwelbor/marcus/internal/registry"
)

// Scored pairs a candidate task with the fit score computed against one
// agent (spec §4.3 step 4).
type Scored struct {
	Task  *models.Task
	Score aiclient.FitScore
}

// ScoreCandidates scores every candidate against the agent's capability set
// and historical performance, using the oracle client with its built-in
// bounded deadline and deterministic fallback (spec §4.3 step 4: "If the
// oracle does not return within a bounded time, use the fallback"). This
// must be called outside the serialization point's exclusive lock, since
// it may perform oracle I/O (spec §5: "AI oracle calls occur outside
// critical sections").
func ScoreCandidates(ctx context.Context, oracle *aiclient.Client, reg *registry.Registry, agent *models.Agent, candidates []*models.Task) []Scored {
	out := make([]Scored, 0, len(candidates))
	for _, t := range candidates {
		in := aiclient.FitInput{
			AgentID:          agent.ID,
			AgentCapability:  agent.Capabilities,
			TaskLabels:       t.Labels,
			TaskPriority:     t.Priority.Weight(),
			ExpectedDuration: t.EffortHours,
			HistoricalRatio:  reg.SuccessRatio(agent.ID, t.Labels),
		}
		out = append(out, Scored{Task: t, Score: oracle.ScoreFit(ctx, in)})
	}
	return out
}

// Best picks the highest-scoring candidate, breaking ties using the spec
// §4.2 order the candidates already arrived in (ScoreCandidates preserves
// input order, and ReadyCandidates returns tasks pre-sorted by the tie-break
// rule), so the first-seen maximum is the correct winner.
func Best(scored []Scored) *Scored {
	if len(scored) == 0 {
		return nil
	}
	best := scored[0]
	for _, s := range scored[1:] {
		if s.Score.Score > best.Score.Score {
			best = s
		}
	}
	return &best
}
