// Package kind classifies the error conditions the core produces (spec §7)
// so callers can branch on what went wrong with errors.Is/errors.As instead
// of string-matching a message.
package kind

import "fmt"

// Kind identifies one of the error categories the core recognizes.
type Kind int

const (
	// InvariantViolation marks a broken assumption in recorded trace data
	// (e.g. a wait with no matching signal). The owning trace is marked
	// FAILED and dropped from encoding.
	InvariantViolation Kind = iota
	// SolverError marks a solver that raised or returned Unknown. Branch
	// flips log and skip the branch; assertion verification logs and skips
	// the assertion; neither aborts the outer loop.
	SolverError
	// BadSyncCall marks a misuse of a synchronization primitive: unlock by
	// a non-owner, re-init of an existing object, or cond.Wait with the
	// mutex not held. The owning trace becomes FAILED.
	BadSyncCall
	// ScheduleExhausted marks a guided prefix mandating a thread that is
	// not schedulable; the execution state is terminated.
	ScheduleExhausted
	// AssertionFailure marks a user assertion the solver proved
	// falsifiable under some feasible schedule.
	AssertionFailure
)

func (k Kind) String() string {
	switch k {
	case InvariantViolation:
		return "InvariantViolation"
	case SolverError:
		return "SolverError"
	case BadSyncCall:
		return "BadSyncCall"
	case ScheduleExhausted:
		return "ScheduleExhausted"
	case AssertionFailure:
		return "AssertionFailure"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error pairs a Kind with a human-readable message and an optional
// underlying cause, implementing error and supporting errors.Is/errors.As
// via Unwrap — callers classify an error with:
//
//	var kerr *kind.Error
//	if errors.As(err, &kerr) && kerr.Kind == kind.BadSyncCall { ... }
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New returns an *Error of the given kind with the formatted message.
func New(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an *Error of the given kind, wrapping cause.
func Wrap(k Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any, enabling errors.Is/errors.As to
// see through to it.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a *kind.Error with the same Kind, allowing
// errors.Is(err, kind.New(kind.BadSyncCall, "")) style sentinel checks
// against just the kind, ignoring message/cause.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}
