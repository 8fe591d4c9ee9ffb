package core

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the closed taxonomy of engine failures. Callers
// match these with errors.Is; the concrete error types below carry the
// structured context.
var (
	// ErrNotFound tags lookups of unknown sessions, rooms or speakers.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition tags commands issued in a state that forbids
	// them. No state mutation occurs when this is returned.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrResponder tags responder call failures and abnormally ended
	// streams.
	ErrResponder = errors.New("responder failure")
)

// NotFoundError reports an unknown entity by kind ("session", "room",
// "speaker", "responder") and id. Matches ErrNotFound.
type NotFoundError struct {
	Kind string
	ID   string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidTransitionError reports a command rejected by the state machine,
// naming the command and the state that forbade it. Matches
// ErrInvalidTransition.
type InvalidTransitionError struct {
	Op    string
	State SessionState
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s while session is %s", e.Op, e.State)
}

// Is reports whether target is ErrInvalidTransition.
func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// ResponderError wraps a failed responder call with the model that produced
// it. Matches ErrResponder and unwraps to the underlying cause.
type ResponderError struct {
	ModelID string
	Err     error
}

// Error implements the error interface.
func (e *ResponderError) Error() string {
	return fmt.Sprintf("responder %s failed: %v", e.ModelID, e.Err)
}

// Is reports whether target is ErrResponder.
func (e *ResponderError) Is(target error) bool { return target == ErrResponder }

// Unwrap returns the underlying responder failure.
func (e *ResponderError) Unwrap() error { return e.Err }
