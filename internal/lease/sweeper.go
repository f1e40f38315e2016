package lease

import "time"

// RecoveryAction describes what the sweeper wants applied to the TaskGraph
// and AgentRegistry for one orphaned task; internal/core applies it under
// the serialization point and is the only thing allowed to touch those
// structures (spec §5: "internal state mutations ... pass through a single
// logical serialization point").
type RecoveryAction struct {
	TaskID  int64
	AgentID string
	Note    string
}

// SweepExpired releases every lease expired as of now and returns the
// recovery action core.Core must apply to the TaskGraph and AgentRegistry
// for each one (spec §4.4: transition IN_PROGRESS -> TODO, clear assignee,
// append a recovery note, emit an orphan_recovered event).
func (m *Manager) SweepExpired(now time.Time) []RecoveryAction {
	expired := m.Expired(now)
	actions := make([]RecoveryAction, 0, len(expired))
	for _, l := range expired {
		actions = append(actions, RecoveryAction{
			TaskID:  l.TaskID,
			AgentID: l.AgentID,
			Note:    "lease expired at " + l.ExpiresAt.Format(time.RFC3339) + "; task returned to TODO by sweeper",
		})
		m.Release(l.TaskID)
	}
	return actions
}
