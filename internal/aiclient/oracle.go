// Package aiclient models the AI inference service as an external oracle
// (spec §1: "consulted for fit scoring, dependency inference, and
// decomposition; treated as an oracle with timeouts and a deterministic
// fallback"). No concrete network implementation ships in this core; the
// Oracle interface is the seam a later integration plugs into.
package aiclient

import (
	"context"
	"time"
)

// FitInput is what the Assigner and ContextBuilder hand to the oracle.
type FitInput struct {
	AgentID          string
	AgentCapability  map[string]struct{}
	TaskLabels       map[string]struct{}
	TaskPriority     float64 // 0..1, already weighted
	ExpectedDuration float64 // hours
	HistoricalRatio  float64 // 0..1
}

// FitScore is the oracle's (or fallback's) opinion of how well an agent
// fits a task.
type FitScore struct {
	Score  float64 // 0..1, higher is better
	Source string  // "oracle" | "fallback"
}

// Prediction is returned for a task about to be (or already) assigned.
type Prediction struct {
	SuccessProbability float64
	ExpectedDuration   float64 // hours
	BlockageRisk       float64 // 0..1
	Source             string
}

// MitigationSuggestion is offered in response to a reported blocker.
type MitigationSuggestion struct {
	Text   string
	Source string
}

// Oracle is the AI inference service's interface as consumed by the core.
// Implementations must return within the caller's context deadline; the
// core never blocks past it (spec §4.3 step 4, default 2s per spec §6).
type Oracle interface {
	ScoreFit(ctx context.Context, in FitInput) (FitScore, error)
	Predict(ctx context.Context, labels map[string]struct{}, historicalSuccess, historicalDuration float64) (Prediction, error)
	SuggestMitigations(ctx context.Context, description string, severity string) ([]string, error)
}

// Client wraps an Oracle with a bounded deadline and a deterministic
// fallback, so callers never need their own timeout/fallback logic (spec
// §4.3 step 4, §9 "mandates a deterministic fallback").
type Client struct {
	oracle   Oracle // may be nil: always fall back
	deadline time.Duration
}

// NewClient builds a bounded oracle client. If oracle is nil, every call
// always uses the deterministic fallback (the default configuration — no
// concrete oracle is wired in this core, per spec §1).
func NewClient(oracle Oracle, deadline time.Duration) *Client {
	return &Client{oracle: oracle, deadline: deadline}
}

// ScoreFit returns the oracle's fit score if it answers within the
// deadline, otherwise the deterministic fallback formula (spec §4.3(ii)).
func (c *Client) ScoreFit(ctx context.Context, in FitInput) FitScore {
	if c.oracle == nil {
		return FallbackFitScore(in)
	}
	cctx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	type result struct {
		score FitScore
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		score, err := c.oracle.ScoreFit(cctx, in)
		ch <- result{score, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return FallbackFitScore(in)
		}
		return r.score
	case <-cctx.Done():
		return FallbackFitScore(in)
	}
}

// Predict returns oracle predictions or a statistics-derived fallback.
func (c *Client) Predict(ctx context.Context, labels map[string]struct{}, historicalSuccess, historicalDuration float64) Prediction {
	if c.oracle == nil {
		return FallbackPrediction(historicalSuccess, historicalDuration)
	}
	cctx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	type result struct {
		pred Prediction
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		pred, err := c.oracle.Predict(cctx, labels, historicalSuccess, historicalDuration)
		ch <- result{pred, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return FallbackPrediction(historicalSuccess, historicalDuration)
		}
		return r.pred
	case <-cctx.Done():
		return FallbackPrediction(historicalSuccess, historicalDuration)
	}
}

// SuggestMitigations returns oracle suggestions or a fallback rule book
// keyed by severity (spec §8 scenario 6: "non-empty suggestions list
// (oracle or fallback rule book)").
func (c *Client) SuggestMitigations(ctx context.Context, description, severity string) []string {
	if c.oracle == nil {
		return FallbackMitigations(description, severity)
	}
	cctx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	type result struct {
		suggestions []string
		err         error
	}
	ch := make(chan result, 1)
	go func() {
		s, err := c.oracle.SuggestMitigations(cctx, description, severity)
		ch <- result{s, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil || len(r.suggestions) == 0 {
			return FallbackMitigations(description, severity)
		}
		return r.suggestions
	case <-cctx.Done():
		return FallbackMitigations(description, severity)
	}
}
