// Package persistence implements spec §4.10: a pluggable durable store for
// assignments, leases, decisions, the artifact index, agent registrations,
// and performance counters. Keyed access with atomic single-key writes and
// range scans is all the serialization point (spec §5) ever needs, since
// every multi-field mutation is journaled as one opaque record per change.
package persistence

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// KV is one key/value pair returned by a range scan.
type KV struct {
	Key   string
	Value []byte
}

// Store is the keyed-access abstraction spec §4.10 calls for. Put is an
// atomic single-key write; Scan returns every key under a prefix ordered
// lexicographically, matching the conceptual key layout of spec §6.
type Store interface {
	Put(key string, value []byte) error
	Get(key string) ([]byte, bool, error)
	Delete(key string) error
	Scan(prefix string) ([]KV, error)
	Close() error
}

// The key prefixes below mirror spec §6's "Persisted state layout" table
// verbatim so a Store implementation never needs to know the domain, only
// bytes under a string key.
const (
	prefixTask       = "tasks/"
	prefixLease      = "leases/"
	prefixAssignment = "assignments/"
	prefixDecision   = "decisions/"
	prefixArtifact   = "artifacts/"
	prefixAgent      = "agents/"
)

func TaskKey(taskID int64) string { return prefixTask + strconv.FormatInt(taskID, 10) }

func LeaseKey(taskID int64) string { return prefixLease + strconv.FormatInt(taskID, 10) }

func AssignmentKey(agentID string) string { return prefixAssignment + agentID }

func DecisionKey(taskID int64, decisionID string) string {
	return fmt.Sprintf("%s%d/%s", prefixDecision, taskID, decisionID)
}

func DecisionPrefix(taskID int64) string {
	return fmt.Sprintf("%s%d/", prefixDecision, taskID)
}

func ArtifactKey(taskID int64, artifactID string) string {
	return fmt.Sprintf("%s%d/%s", prefixArtifact, taskID, artifactID)
}

func ArtifactPrefix(taskID int64) string {
	return fmt.Sprintf("%s%d/", prefixArtifact, taskID)
}

func AgentKey(agentID string) string { return prefixAgent + agentID }

// TaskPrefix, LeasePrefix, AssignmentPrefix, and AgentPrefix expose the key
// prefixes above for startup rehydration scans (spec §3 "Used to recover
// after restart", §6 persisted state layout).
func TaskPrefix() string       { return prefixTask }
func LeasePrefix() string      { return prefixLease }
func AssignmentPrefix() string { return prefixAssignment }
func AgentPrefix() string      { return prefixAgent }

// PutJSON marshals v as JSON and writes it under key, the encoding every
// production caller uses to persist tasks, leases, assignment records, and
// agent registrations (spec §4.10/§6).
func PutJSON(store Store, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return store.Put(key, b)
}

// GetJSON reads key and unmarshals it into v. ok is false (with a nil
// error) if the key is absent.
func GetJSON(store Store, key string, v interface{}) (bool, error) {
	b, ok, err := store.Get(key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return true, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// TaskIDFromDecisionKey extracts the task id a decision key was built from,
// used when replaying the decision prefix scan during a context rebuild.
func TaskIDFromDecisionKey(key string) (int64, bool) {
	rest := strings.TrimPrefix(key, prefixDecision)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
