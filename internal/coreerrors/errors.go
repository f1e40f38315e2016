// Package coreerrors implements the closed error_kind enum of spec §7 and
// the {ok, error_kind, message, retryable} response envelope every
// operation returns across the protocol boundary.
package coreerrors

import "fmt"

// Kind is the closed set of error kinds recognized by the protocol.
type Kind string

const (
	UnknownTask         Kind = "UnknownTask"
	UnknownAgent        Kind = "UnknownAgent"
	InvalidTransition   Kind = "InvalidTransition"
	NotHolder           Kind = "NotHolder"
	WrongLeaseHolder    Kind = "WrongLeaseHolder"
	LeaseExpired        Kind = "LeaseExpired"
	CycleWouldForm      Kind = "CycleWouldForm"
	CapabilityMismatch  Kind = "CapabilityMismatch"
	NoReadyTask         Kind = "NoReadyTask"
	ProviderUnavailable Kind = "ProviderUnavailable"
	PersistenceFailure  Kind = "PersistenceFailure"
	Timeout             Kind = "Timeout"
	Conflict            Kind = "Conflict"
)

// retryable records, per spec §7, which kinds are transient and eligible
// for internal bounded-backoff retry before surfacing.
var retryable = map[Kind]bool{
	ProviderUnavailable: true,
	Timeout:             true,
	Conflict:            true,
}

// Error is the structured error every core operation returns. It
// implements the standard error interface so it composes with %w/errors.Is
// within the core, while also being directly serializable into the
// protocol envelope.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable reports whether this error kind is retried internally before
// ever surfacing to a caller (spec §7 propagation policy).
func (e *Error) Retryable() bool {
	return retryable[e.Kind]
}

// New constructs a structured core error.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// As extracts a *Error from err if present.
func As(err error) (*Error, bool) {
	ce, ok := err.(*Error)
	return ce, ok
}

// FromPanic converts a recovered panic value into the PersistenceFailure
// kind mandated by spec §7 ("internal panics must be caught at the request
// handler and converted to PersistenceFailure or the appropriate kind").
func FromPanic(r interface{}) *Error {
	return New(PersistenceFailure, "recovered from panic: %v", r)
}
