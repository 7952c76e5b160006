// Package event defines the per-execution data model described by the
// trace / event model section of the specification: Event, Trace, and
// Prefix, along with the synchronization book-keeping tables (lock pairs,
// wait/signal, barriers) each Trace accumulates while being recorded.
//
// Events are owned by their Trace (an arena: Trace.Events, indexed by
// EventID-1). Cross-references — LatestWriteSameThread, the Prefix event
// list, create/join edges — are stored as plain EventID indices rather
// than pointers, so a Trace (and anything derived from it) remains
// serializable and safe to reason about once recording has finished.
package event

import (
	"fmt"

	"github.com/joeycumines/klee-mta-go/vectorclock"
)

// Kind classifies an Event for the purposes of formula encoding.
type Kind int

const (
	// Normal events participate in encoding.
	Normal Kind = iota
	// Ignore events are dropped prior to encoding.
	Ignore
	// Virtual events occupy a schedule slot with no underlying instruction
	// (thread start/end markers).
	Virtual
)

func (k Kind) String() string {
	switch k {
	case Normal:
		return "NORMAL"
	case Ignore:
		return "IGNORE"
	case Virtual:
		return "VIRTUAL"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ID identifies an event within a single Trace. ID-1 is the index of
// that Event within Trace.Events, per the arena-ownership design: events
// are append-only and never relocated, so an ID remains valid for the
// lifetime of the Trace.
type ID int

// None is the zero-value sentinel meaning "no event" — it never appears as
// a real ID because trace event IDs start at 1 (ID 0 is intentionally
// invalid so a zero-valued ID field reads as "unset").
const None ID = 0

// Ref names an event unambiguously across traces, for structures (like
// Prefix) that may need to refer to events recorded in more than one
// Trace over the lifetime of a run.
type Ref struct {
	TraceID int
	EventID ID
}

// Expr is an opaque symbolic-expression term produced by the (out of scope)
// symbolic-execution engine. The only fact the core needs about an Expr is
// the name of its root location, which RootName reports.
//
// Concrete expression representations are supplied by callers of this
// package (the Interpreter listeners populate Expr values); the core only
// ever inspects RootName and passes Expr values through opaquely to the
// encoder/solver boundary.
type Expr interface {
	// RootName returns the unambiguous location name this expression's
	// value ultimately derives from, e.g. "x" or "x_Init".
	RootName() string
}

// DependencySet is an optional capability an Expr may additionally
// implement: every location name its value depends on (its free
// variables), not just its root. Package filter uses this to compute the
// dependency closure over branch/assertion-relevant locations (spec
// §4.5); an Expr that doesn't implement it is treated as depending on
// nothing but its own RootName.
type DependencySet interface {
	Expr
	Dependencies() []string
}

// Event is a single observable step of one simulated thread.
type Event struct {
	ThreadID      int
	EventID       ID
	ThreadEventID int
	Kind          Kind

	// Name is the logical location touched by this event, e.g. "x". Empty
	// for events that do not touch a named location.
	Name string
	// GlobalName disambiguates a particular access: location + access
	// ordinal + load/store flag, assigned by the recorder for every
	// global load/store.
	GlobalName string

	IsGlobal               bool
	IsConditionInst        bool
	BrCondition            bool
	IsEventRelatedToBranch bool

	// LatestWriteSameThread is the ID of the last write of Name in the same
	// thread, or None if there isn't one. Populated during encoding
	// preparation (event.Trace.MarkLatestWrites), not during recording.
	LatestWriteSameThread ID

	// VectorClock is the per-thread vector clock snapshot at the moment this
	// event was recorded, used to compute the partial-order (happens-before)
	// formula during encoding.
	VectorClock vectorclock.Clock

	// CalledFunction is the callee name, for call events.
	CalledFunction string

	// InstParameter and RelatedSymbolicExpr hold the symbolic
	// operands/results the SymbolicListener captured for this event.
	InstParameter       []Expr
	RelatedSymbolicExpr []Expr

	// SourceFile and SourceLine identify where this event originated, used
	// when naming prefixes and reporting assertion failures.
	SourceFile string
	SourceLine int
}

func (e *Event) String() string {
	return fmt.Sprintf("Event{tid=%d eid=%d kind=%s name=%q global=%q}",
		e.ThreadID, e.EventID, e.Kind, e.Name, e.GlobalName)
}

// IsMemoryAccess reports whether this event represents a load or store of a
// tracked (global) location.
func (e *Event) IsMemoryAccess() bool {
	return e.IsGlobal && e.Name != ""
}
