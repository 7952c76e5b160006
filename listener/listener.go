// Package listener implements the observer pipeline the Interpreter drives
// on every instruction: a RecorderListener that captures events, globals,
// and synchronization calls (with their symbolic expressions) into a Trace;
// a SymbolicListener that captures fork path conditions; and a TaintListener
// that propagates taint tags for the dynamic taint analysis module. The
// three listeners are modeled as a capability set rather than a class
// hierarchy (spec's Design Notes favor tagged variants over inheritance for
// exactly this kind of polymorphism), and share nothing but the Context
// passed through a single Pipeline.
package listener

import (
	"github.com/joeycumines/klee-mta-go/interp"
)

// Context is shared, per-instruction state threaded through every listener
// in a Pipeline for the duration of one BeforeInstruction/AfterInstruction
// round trip. A RecorderListener that runs first in the pipeline records the
// event id it created here, so a SymbolicListener or TaintListener running
// after it can tag their own observations against the same event without
// each listener independently re-deriving it.
type Context struct {
	// LastEventID is the id of the event most recently appended to the
	// trace for the instruction currently being processed. Zero (event.None)
	// before any event has been recorded.
	LastEventID int
}

// Listener is the capability set every pipeline stage implements. A
// listener that has nothing to do at a given hook simply provides a no-op
// body (see NoopListener for an embeddable default).
type Listener interface {
	BeforeMain(ctx *Context, state interp.State)
	BeforeInstruction(ctx *Context, state interp.State, ki *interp.Instruction)
	AfterInstruction(ctx *Context, state interp.State, ki *interp.Instruction)
	ExecutionFailed(ctx *Context, state interp.State, ki *interp.Instruction)
}

// NoopListener can be embedded by a Listener implementation that only cares
// about a subset of the hooks.
type NoopListener struct{}

func (NoopListener) BeforeMain(*Context, interp.State)                         {}
func (NoopListener) BeforeInstruction(*Context, interp.State, *interp.Instruction) {}
func (NoopListener) AfterInstruction(*Context, interp.State, *interp.Instruction)  {}
func (NoopListener) ExecutionFailed(*Context, interp.State, *interp.Instruction)   {}

// Pipeline dispatches Interpreter callbacks to a fixed, ordered set of
// listeners. Order matters: a RecorderListener must run before any listener
// that relies on Context.LastEventID.
type Pipeline struct {
	listeners []Listener
	ctx       Context
}

// NewPipeline returns a Pipeline dispatching to listeners in order.
func NewPipeline(listeners ...Listener) *Pipeline {
	return &Pipeline{listeners: listeners}
}

func (p *Pipeline) BeforeMain(state interp.State) {
	for _, l := range p.listeners {
		l.BeforeMain(&p.ctx, state)
	}
}

func (p *Pipeline) BeforeInstruction(state interp.State, ki *interp.Instruction) {
	for _, l := range p.listeners {
		l.BeforeInstruction(&p.ctx, state, ki)
	}
}

func (p *Pipeline) AfterInstruction(state interp.State, ki *interp.Instruction) {
	for _, l := range p.listeners {
		l.AfterInstruction(&p.ctx, state, ki)
	}
}

func (p *Pipeline) ExecutionFailed(state interp.State, ki *interp.Instruction) {
	for _, l := range p.listeners {
		l.ExecutionFailed(&p.ctx, state, ki)
	}
}
