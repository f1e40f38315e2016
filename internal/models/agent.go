package models

import "time"

// AgentRole distinguishes the roles recognized on inbound calls (spec §6).
type AgentRole string

const (
	RoleAgent     AgentRole = "agent"
	RoleDeveloper AgentRole = "developer"
	RoleObserver  AgentRole = "observer"
	RoleAdmin     AgentRole = "admin"
)

// CanWriteAgentLifecycle reports whether the role may perform
// agent-lifecycle write operations (register, request, report, log).
func (r AgentRole) CanWriteAgentLifecycle() bool {
	return r == RoleAgent || r == RoleAdmin
}

// CanRead reports whether the role may perform read-only operations.
func (r AgentRole) CanRead() bool {
	switch r {
	case RoleAgent, RoleDeveloper, RoleObserver, RoleAdmin:
		return true
	default:
		return false
	}
}

// PerformanceWindowSize bounds the rolling performance window (spec §4.9,
// SPEC_FULL.md §C.1 "a fixed-size ring of the last N completions per label
// set") to the most recent N completions per label set.
const PerformanceWindowSize = 20

// LabelStats tracks a rolling performance window for one label set key: a
// fixed-size ring of the most recent PerformanceWindowSize completions,
// not a lifetime counter, so an agent's fallback fit score (spec §4.3(ii))
// reflects recent performance rather than being dragged down (or up) by
// work from long ago. Fields are exported so the struct round-trips
// through persistence.PutJSON/GetJSON.
type LabelStats struct {
	Outcomes []bool // ring buffer; true = succeeded
	Next     int    // next write index into Outcomes
	Full     bool   // true once Outcomes has wrapped at least once
}

// NewLabelStats allocates an empty ring of the configured window size.
func NewLabelStats() *LabelStats {
	return &LabelStats{Outcomes: make([]bool, PerformanceWindowSize)}
}

// Record appends one completion outcome to the ring, overwriting the
// oldest entry once the window is full.
func (s *LabelStats) Record(succeeded bool) {
	if len(s.Outcomes) == 0 {
		s.Outcomes = make([]bool, PerformanceWindowSize)
	}
	s.Outcomes[s.Next] = succeeded
	s.Next = (s.Next + 1) % len(s.Outcomes)
	if s.Next == 0 {
		s.Full = true
	}
}

func (s *LabelStats) window() []bool {
	if s.Full {
		return s.Outcomes
	}
	return s.Outcomes[:s.Next]
}

// SuccessRatio returns the success ratio over the current window,
// defaulting to a neutral 0.5 when there is no history (spec §4.3(ii)).
func (s *LabelStats) SuccessRatio() float64 {
	w := s.window()
	if len(w) == 0 {
		return 0.5
	}
	succeeded := 0
	for _, ok := range w {
		if ok {
			succeeded++
		}
	}
	return float64(succeeded) / float64(len(w))
}

// Clone returns a deep copy, so a handed-off Agent snapshot never shares
// the live ring buffer with the registry's own copy.
func (s *LabelStats) Clone() *LabelStats {
	cp := *s
	cp.Outcomes = append([]bool(nil), s.Outcomes...)
	return &cp
}

// Agent is an autonomous worker identity registered with the core.
type Agent struct {
	ID            string
	Role          AgentRole
	Capabilities  map[string]struct{}
	CurrentTaskID *int64

	RegisteredAt  time.Time
	LastHeartbeat time.Time

	// Performance is keyed by a deterministic joining of sorted labels
	// (see registry.LabelSetKey) so the Assigner's fallback scorer can
	// look up a historical success ratio per label combination.
	Performance map[string]*LabelStats
}

// IsIdle reports whether the agent currently holds no open assignment.
func (a *Agent) IsIdle() bool {
	return a.CurrentTaskID == nil
}

// Clone returns a deep-enough copy for safe handoff outside the
// serialization point.
func (a *Agent) Clone() *Agent {
	clone := *a
	clone.Capabilities = cloneSet(a.Capabilities)
	if a.CurrentTaskID != nil {
		id := *a.CurrentTaskID
		clone.CurrentTaskID = &id
	}
	clone.Performance = make(map[string]*LabelStats, len(a.Performance))
	for k, v := range a.Performance {
		clone.Performance[k] = v.Clone()
	}
	return &clone
}
