package conversation

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a turn did not advance the flow.
type ErrorKind string

const (
	KindInputNotUnderstood  ErrorKind = "InputNotUnderstood"
	KindNoAvailability      ErrorKind = "NoAvailability"
	KindStaffUnassignable   ErrorKind = "StaffUnassignable"
	KindPersistenceConflict ErrorKind = "PersistenceConflict"
	KindPersistenceFailure  ErrorKind = "PersistenceFailure"
	KindSessionExpired      ErrorKind = "SessionExpired"
)

// ErrInvalidInbound is returned for messages missing a tenant or phone number.
var ErrInvalidInbound = errors.New("conversation: tenant id and phone number are required")

// FlowError carries the taxonomy kind alongside the underlying cause.
// Only PersistenceFailure escapes Engine.Handle; the other kinds become
// re-prompts.
type FlowError struct {
	Kind ErrorKind
	Err  error
}

func (e *FlowError) Error() string {
	if e.Err == nil {
		return "conversation: " + string(e.Kind)
	}
	return fmt.Sprintf("conversation: %s: %v", e.Kind, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// KindOf returns the taxonomy kind of err, or "" when it has none.
func KindOf(err error) ErrorKind {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
