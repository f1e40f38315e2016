package registry

import (
	"testing"

	"github.com/jwwelbor/marcus/internal/models"
	"github.com/stretchr/testify/require"
)

func TestRegisterIdempotent(t *testing.T) {
	r := New()
	_, first := r.Register("a1", models.RoleAgent, []string{"backend"})
	require.True(t, first)

	agent, second := r.Register("a1", models.RoleAgent, []string{"backend", "api"})
	require.False(t, second)
	require.Len(t, agent.Capabilities, 2)
}

func TestSuccessRatioDefaultsNeutral(t *testing.T) {
	r := New()
	r.Register("a1", models.RoleAgent, nil)
	labels := models.NewLabelSet([]string{"backend"})
	require.Equal(t, 0.5, r.SuccessRatio("a1", labels))

	require.NoError(t, r.RecordCompletion("a1", labels, true))
	require.NoError(t, r.RecordCompletion("a1", labels, false))
	require.Equal(t, 0.5, r.SuccessRatio("a1", labels))

	require.NoError(t, r.RecordCompletion("a1", labels, true))
	require.InDelta(t, 2.0/3.0, r.SuccessRatio("a1", labels), 1e-9)
}

func TestUnknownAgent(t *testing.T) {
	r := New()
	_, err := r.Get("ghost")
	require.Error(t, err)
}
