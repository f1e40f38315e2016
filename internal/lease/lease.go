// Package lease implements spec §4.4: lease grant, renewal, expiry bookkeeping.
//
// Manager only tracks lease state; it does not itself touch the TaskGraph
// or AgentRegistry. The sweeper in sweeper.go (and internal/core, which
// owns the serialization point) is responsible for applying the
// consequences of an expired lease (task -> TODO, clear assignee, append a
// recovery note, emit an orphan_recovered event) to those structures. This
// split mirrors the teacher's separation between "forced" status-transition
// helpers in internal/repository/task_repository.go and the caller that
// decides when force applies.
package lease

import (
	"time"

	"github.com/jwwelbor/marcus/internal/coreerrors"
	"github.com/jwwelbor/marcus/internal/models"
)

// Manager grants, renews, and tracks expiry of leases. Exactly one active
// lease may exist per task at a time (spec §3); Manager enforces that by
// construction (one entry per task id).
type Manager struct {
	leases map[int64]*models.Lease
}

// New creates an empty lease manager.
func New() *Manager {
	return &Manager{leases: make(map[int64]*models.Lease)}
}

// Grant issues a new lease for (agentID, taskID), replacing any existing
// lease for that task (the caller is expected to have already verified no
// other agent holds it, under the serialization point).
func (m *Manager) Grant(taskID int64, agentID string, duration time.Duration) *models.Lease {
	now := time.Now()
	l := &models.Lease{
		TaskID:    taskID,
		AgentID:   agentID,
		GrantedAt: now,
		ExpiresAt: now.Add(duration),
		Renewals:  0,
		Version:   1,
	}
	m.leases[taskID] = l
	return l
}

// LoadLease inserts an already-persisted lease straight into the manager,
// bypassing Grant's issuance semantics. Used only to replay leases back
// from the durable store at startup (spec §3 "Used to recover after
// restart").
func (m *Manager) LoadLease(l *models.Lease) {
	m.leases[l.TaskID] = l
}

// Get returns the active lease for a task, if any.
func (m *Manager) Get(taskID int64) (*models.Lease, bool) {
	l, ok := m.leases[taskID]
	return l, ok
}

// Renew extends the lease by duration, incrementing its version. Per spec
// §4.4 edge cases: renewal by a different agent than the holder is
// rejected with WrongLeaseHolder; renewal after expiry is rejected with
// LeaseExpired (the agent must request a fresh task).
func (m *Manager) Renew(taskID int64, agentID string, duration time.Duration, now time.Time) error {
	l, ok := m.leases[taskID]
	if !ok {
		return coreerrors.New(coreerrors.LeaseExpired, "no active lease for task %d", taskID)
	}
	if l.AgentID != agentID {
		return coreerrors.New(coreerrors.WrongLeaseHolder, "task %d is leased by %q, not %q", taskID, l.AgentID, agentID)
	}
	if l.Expired(now) {
		delete(m.leases, taskID)
		return coreerrors.New(coreerrors.LeaseExpired, "lease for task %d expired at %s", taskID, l.ExpiresAt)
	}
	l.ExpiresAt = now.Add(duration)
	l.Renewals++
	l.Version++
	return nil
}

// Release cancels the lease unconditionally for the current holder (spec
// §4.4: "completion always succeeds for the current holder regardless of
// lease remaining, and implicitly cancels the lease").
func (m *Manager) Release(taskID int64) {
	delete(m.leases, taskID)
}

// Holder returns the current lease holder's agent id, if any.
func (m *Manager) Holder(taskID int64) (string, bool) {
	l, ok := m.leases[taskID]
	if !ok {
		return "", false
	}
	return l.AgentID, true
}

// Expired returns every lease that has passed its expiry as of now,
// without mutating manager state (the sweeper decides what to do with
// them and then calls Release).
func (m *Manager) Expired(now time.Time) []*models.Lease {
	var out []*models.Lease
	for _, l := range m.leases {
		if l.Expired(now) {
			out = append(out, l)
		}
	}
	return out
}
