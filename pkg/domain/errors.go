package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across stores and the engine. Adapters translate
// backend-specific failures into these so callers can rely on errors.Is.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExists    = errors.New("session already exists")
	ErrFlowNotFound     = errors.New("flow not found")
	ErrSessionCompleted = errors.New("session already completed")
	ErrConcurrentTurn   = errors.New("another turn is in progress for this session")
)

// IntegrityError reports every structural violation found in a flow
// definition. Loaders collect all problems before failing so authors fix a
// flow in one pass instead of one error at a time.
type IntegrityError struct {
	FlowID     string
	Violations []string
}

func (e *IntegrityError) Error() string {
	if len(e.Violations) == 1 {
		return fmt.Sprintf("flow %q: %s", e.FlowID, e.Violations[0])
	}
	return fmt.Sprintf("flow %q: %d integrity violations:\n  - %s",
		e.FlowID, len(e.Violations), strings.Join(e.Violations, "\n  - "))
}

// Add records a violation.
func (e *IntegrityError) Add(format string, args ...any) {
	e.Violations = append(e.Violations, fmt.Sprintf(format, args...))
}

// OrNil returns the error when it carries violations, nil otherwise.
func (e *IntegrityError) OrNil() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}

// ValidationError rejects a user's input against a node's validation rules.
// It is a re-prompt signal, not a failure: the engine keeps the session on
// the same node and surfaces Message to the user.
type ValidationError struct {
	Rule    ValidationType
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation %s failed: %s", e.Rule, e.Message)
}

// ActionErrorKind classifies why an action failed.
type ActionErrorKind string

const (
	// ActionErrNetwork covers transport failures reaching the endpoint.
	ActionErrNetwork ActionErrorKind = "network"
	// ActionErrTimeout covers deadline and cancellation failures.
	ActionErrTimeout ActionErrorKind = "timeout"
	// ActionErrStatus covers non-2xx responses.
	ActionErrStatus ActionErrorKind = "status"
	// ActionErrBinding covers missing input variables or an unusable
	// response body.
	ActionErrBinding ActionErrorKind = "binding"
)

// ActionError wraps a failed action execution. When the failing action has
// no on_failure target the engine surfaces this to the caller with the
// session unchanged.
type ActionError struct {
	Action string
	Kind   ActionErrorKind
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %q failed (%s): %v", e.Action, e.Kind, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// ConditionError reports a condition that could not be evaluated, for
// example a malformed regex. The evaluator logs it and treats the
// condition as false.
type ConditionError struct {
	Field string
	Type  ConditionType
	Err   error
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("condition %s on %q: %v", e.Type, e.Field, e.Err)
}

func (e *ConditionError) Unwrap() error { return e.Err }

// UnresolvedTransitionError means a non-terminal node matched no transition
// and has no default. Validation prevents this for well-formed flows; it
// can still surface when conditions are all unevaluable at runtime.
type UnresolvedTransitionError struct {
	NodeID string
}

func (e *UnresolvedTransitionError) Error() string {
	return fmt.Sprintf("node %q: no transition matched and no default transition is set", e.NodeID)
}
