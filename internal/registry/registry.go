// Package registry implements spec §4.9: agent identities, capabilities,
// health heartbeat, current assignment, and rolling performance window.
//
// Grounded on the teacher's internal/models/work_session.go (agent/session
// shape) and the rollup-counting idiom of
// internal/repository/task_repository.go's GetStatusBreakdown, repurposed
// from "status counts for a feature" into "completion counts per agent per
// label set".
package registry

import (
	"sort"
	"strings"
	"time"

	"github.com/jwwelbor/marcus/internal/coreerrors"
	"github.com/jwwelbor/marcus/internal/models"
)

// Registry tracks agents registered this process lifetime.
type Registry struct {
	agents map[string]*models.Agent
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{agents: make(map[string]*models.Agent)}
}

// Register is idempotent by agent id (spec §4.9/§8): re-registration
// updates capabilities and role but preserves the current assignment and
// performance history.
func (r *Registry) Register(id string, role models.AgentRole, capabilities []string) (*models.Agent, bool) {
	now := time.Now()
	if existing, ok := r.agents[id]; ok {
		existing.Role = role
		existing.Capabilities = models.NewLabelSet(capabilities)
		existing.LastHeartbeat = now
		return existing, false // already registered
	}
	agent := &models.Agent{
		ID:            id,
		Role:          role,
		Capabilities:  models.NewLabelSet(capabilities),
		RegisteredAt:  now,
		LastHeartbeat: now,
		Performance:   make(map[string]*models.LabelStats),
	}
	r.agents[id] = agent
	return agent, true
}

// LoadAgent inserts an already-persisted agent record straight into the
// registry, bypassing Register's idempotency/merge semantics. Used only to
// replay agent registrations back from the durable store at startup (spec
// §3 "Used to recover after restart").
func (r *Registry) LoadAgent(agent *models.Agent) {
	r.agents[agent.ID] = agent
}

// Get returns the agent by id, or coreerrors.UnknownAgent.
func (r *Registry) Get(id string) (*models.Agent, error) {
	a, ok := r.agents[id]
	if !ok {
		return nil, coreerrors.New(coreerrors.UnknownAgent, "agent %q not registered", id)
	}
	return a, nil
}

// All returns every registered agent.
func (r *Registry) All() []*models.Agent {
	out := make([]*models.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	return out
}

// Heartbeat updates the agent's last-seen timestamp.
func (r *Registry) Heartbeat(id string) error {
	a, err := r.Get(id)
	if err != nil {
		return err
	}
	a.LastHeartbeat = time.Now()
	return nil
}

// SetAssignment records or clears the agent's current open task. Spec §8
// invariant: at most one task T has assignee=A and status in
// {IN_PROGRESS, BLOCKED}; enforcing that is the caller's (Assigner's)
// responsibility under the serialization point — Registry only stores the
// pointer.
func (r *Registry) SetAssignment(agentID string, taskID *int64) error {
	a, err := r.Get(agentID)
	if err != nil {
		return err
	}
	a.CurrentTaskID = taskID
	return nil
}

// LabelSetKey builds a deterministic key for a task's label set, used to
// index the agent performance window.
func LabelSetKey(labels map[string]struct{}) string {
	items := make([]string, 0, len(labels))
	for l := range labels {
		items = append(items, l)
	}
	sort.Strings(items)
	return strings.Join(items, ",")
}

// RecordCompletion updates the agent's rolling performance window for the
// given label set (spec §4.9 "rolling performance window").
func (r *Registry) RecordCompletion(agentID string, labels map[string]struct{}, succeeded bool) error {
	a, err := r.Get(agentID)
	if err != nil {
		return err
	}
	key := LabelSetKey(labels)
	stats, ok := a.Performance[key]
	if !ok {
		stats = models.NewLabelStats()
		a.Performance[key] = stats
	}
	stats.Record(succeeded)
	return nil
}

// SuccessRatio returns the historical success ratio for an agent against a
// label set, defaulting to neutral 0.5 when there's no history.
func (r *Registry) SuccessRatio(agentID string, labels map[string]struct{}) float64 {
	a, err := r.Get(agentID)
	if err != nil {
		return 0.5
	}
	key := LabelSetKey(labels)
	stats, ok := a.Performance[key]
	if !ok {
		return 0.5
	}
	return stats.SuccessRatio()
}
