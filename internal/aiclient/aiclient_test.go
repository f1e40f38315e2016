package aiclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFallbackFitScoreRange(t *testing.T) {
	in := FitInput{
		AgentCapability:  map[string]struct{}{"backend": {}},
		TaskLabels:       map[string]struct{}{"backend": {}},
		TaskPriority:     1,
		ExpectedDuration: 1,
		HistoricalRatio:  1,
	}
	score := FallbackFitScore(in)
	require.Equal(t, "fallback", score.Source)
	require.Greater(t, score.Score, 0.0)
	require.LessOrEqual(t, score.Score, 1.0)
}

func TestClientFallsBackWithNilOracle(t *testing.T) {
	c := NewClient(nil, 2*time.Second)
	score := c.ScoreFit(context.Background(), FitInput{TaskLabels: map[string]struct{}{}})
	require.Equal(t, "fallback", score.Source)
}

type slowOracle struct{ delay time.Duration }

func (s slowOracle) ScoreFit(ctx context.Context, in FitInput) (FitScore, error) {
	select {
	case <-time.After(s.delay):
		return FitScore{Score: 0.99, Source: "oracle"}, nil
	case <-ctx.Done():
		return FitScore{}, ctx.Err()
	}
}
func (s slowOracle) Predict(ctx context.Context, labels map[string]struct{}, hs, hd float64) (Prediction, error) {
	return Prediction{}, errors.New("not implemented")
}
func (s slowOracle) SuggestMitigations(ctx context.Context, description, severity string) ([]string, error) {
	return nil, errors.New("not implemented")
}

func TestClientTimesOutToFallback(t *testing.T) {
	c := NewClient(slowOracle{delay: 50 * time.Millisecond}, 5*time.Millisecond)
	score := c.ScoreFit(context.Background(), FitInput{TaskLabels: map[string]struct{}{}})
	require.Equal(t, "fallback", score.Source)
}

func TestClientUsesOracleWhenFast(t *testing.T) {
	c := NewClient(slowOracle{delay: time.Millisecond}, 50*time.Millisecond)
	score := c.ScoreFit(context.Background(), FitInput{TaskLabels: map[string]struct{}{}})
	require.Equal(t, "oracle", score.Source)
}

func TestSuggestMitigationsBySeverity(t *testing.T) {
	c := NewClient(nil, time.Second)
	high := c.SuggestMitigations(context.Background(), "missing creds", "high")
	require.NotEmpty(t, high)
	low := c.SuggestMitigations(context.Background(), "minor issue", "low")
	require.NotEmpty(t, low)
}
