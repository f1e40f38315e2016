package lease

import (
	"testing"
	"time"

	"github.com/jwwelbor/marcus/internal/coreerrors"
	"github.com/stretchr/testify/require"
)

func TestGrantAndRenew(t *testing.T) {
	m := New()
	l := m.Grant(1, "agent-a", time.Hour)
	require.Equal(t, "agent-a", l.AgentID)

	now := l.GrantedAt.Add(time.Minute)
	require.NoError(t, m.Renew(1, "agent-a", time.Hour, now))

	renewed, ok := m.Get(1)
	require.True(t, ok)
	require.Equal(t, 1, renewed.Renewals)
	require.Equal(t, 2, renewed.Version)
}

func TestRenewWrongHolder(t *testing.T) {
	m := New()
	m.Grant(1, "agent-a", time.Hour)

	err := m.Renew(1, "agent-b", time.Hour, time.Now())
	require.Error(t, err)
	ce, ok := coreerrors.As(err)
	require.True(t, ok)
	require.Equal(t, coreerrors.WrongLeaseHolder, ce.Kind)
}

func TestRenewAfterExpiry(t *testing.T) {
	m := New()
	l := m.Grant(1, "agent-a", time.Minute)

	err := m.Renew(1, "agent-a", time.Hour, l.ExpiresAt.Add(time.Second))
	require.Error(t, err)
	ce, ok := coreerrors.As(err)
	require.True(t, ok)
	require.Equal(t, coreerrors.LeaseExpired, ce.Kind)

	_, ok = m.Get(1)
	require.False(t, ok, "expired lease should be dropped on renewal attempt")
}

func TestReleaseAndHolder(t *testing.T) {
	m := New()
	m.Grant(1, "agent-a", time.Hour)

	holder, ok := m.Holder(1)
	require.True(t, ok)
	require.Equal(t, "agent-a", holder)

	m.Release(1)
	_, ok = m.Holder(1)
	require.False(t, ok)
}

func TestSweepExpiredProducesRecoveryActions(t *testing.T) {
	m := New()
	m.Grant(1, "agent-a", time.Minute)
	m.Grant(2, "agent-b", time.Hour)

	future := time.Now().Add(2 * time.Minute)
	actions := m.SweepExpired(future)
	require.Len(t, actions, 1)
	require.Equal(t, int64(1), actions[0].TaskID)
	require.Equal(t, "agent-a", actions[0].AgentID)
	require.NotEmpty(t, actions[0].Note)

	_, stillLeased := m.Get(1)
	require.False(t, stillLeased)
	_, ok := m.Get(2)
	require.True(t, ok, "non-expired lease must remain")
}
