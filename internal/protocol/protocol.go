// Package protocol implements spec §6's request/response tool surface: a
// JSON envelope, a closed set of operation names, and role gating, built
// over internal/core.Core.
//
// Grounded on the teacher's cmd/server/main.go, whose net/http server wires
// fixed routes directly to handler funcs; here the same shape is
// generalized into a single dispatch table keyed by operation name, the
// way an MCP-style tool registry does (other_examples/, reference only).
package protocol

import (
	"context"
	"encoding/json"

	"github.com/jwwelbor/marcus/internal/coreerrors"
	"github.com/jwwelbor/marcus/internal/models"
)

// Envelope is the {ok, error_kind?, message?, retryable?} shape spec §6
// mandates for every response, with the operation's payload nested under
// Result so callers don't need a second unmarshal pass per operation.
type Envelope struct {
	OK        bool            `json:"ok"`
	Result    interface{}     `json:"result,omitempty"`
	ErrorKind coreerrors.Kind `json:"error_kind,omitempty"`
	Message   string          `json:"message,omitempty"`
	Retryable bool            `json:"retryable,omitempty"`
}

// Request is one inbound call: an operation name, the caller's role, and
// its raw JSON params.
type Request struct {
	Operation string           `json:"operation"`
	Role      models.AgentRole `json:"role"`
	Params    json.RawMessage  `json:"params"`
}

// handlerFunc is how each operation is implemented: decode params, call
// into Core, return a JSON-marshalable result.
type handlerFunc func(ctx context.Context, d *Dispatcher, params json.RawMessage) (interface{}, error)

// operation pairs a handler with whether it's an agent-lifecycle write
// (spec §6: "restricted to agent and admin") or a read (open to observer
// and above), reusing models.AgentRole's own gating predicates rather than
// inventing a parallel role hierarchy.
type operation struct {
	handler handlerFunc
	write   bool
}

// Dispatch routes a Request to its operation, enforcing role gating before
// ever touching Core, and always returns an Envelope — never a bare error —
// so transports have one shape to serialize.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Envelope {
	op, ok := operations[req.Operation]
	if !ok {
		return errEnvelope(coreerrors.New(coreerrors.UnknownTask, "unknown operation %q", req.Operation))
	}

	allowed := req.Role.CanRead()
	if op.write {
		allowed = req.Role.CanWriteAgentLifecycle()
	}
	if !allowed {
		return errEnvelope(coreerrors.New(coreerrors.CapabilityMismatch, "role %q may not call %q", req.Role, req.Operation))
	}

	result, err := d.invoke(ctx, op, req.Params)
	if err != nil {
		return errEnvelope(err)
	}
	return Envelope{OK: true, Result: result}
}

// invoke calls the operation's handler, recovering any panic at this
// boundary and converting it to PersistenceFailure (spec §7: "internal
// panics must be caught at the request handler and converted to
// PersistenceFailure or the appropriate kind") so a bug in one operation
// never takes down the whole server.
func (d *Dispatcher) invoke(ctx context.Context, op operation, params json.RawMessage) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = coreerrors.FromPanic(r)
		}
	}()
	return op.handler(ctx, d, params)
}

func errEnvelope(err error) Envelope {
	if ce, ok := coreerrors.As(err); ok {
		return Envelope{OK: false, ErrorKind: ce.Kind, Message: ce.Message, Retryable: ce.Retryable()}
	}
	return Envelope{OK: false, ErrorKind: coreerrors.PersistenceFailure, Message: err.Error()}
}

// decode is a small helper every handler uses to unmarshal its typed
// params, converting a malformed request into the same envelope shape a
// Core-level error would produce instead of a transport-level 400.
func decode(params json.RawMessage, v interface{}) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return coreerrors.New(coreerrors.Conflict, "malformed params: %v", err)
	}
	return nil
}
