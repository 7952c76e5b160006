package listener

import (
	"github.com/joeycumines/klee-mta-go/event"
	"github.com/joeycumines/klee-mta-go/interp"
)

// TaintListener propagates taint tags for the dynamic taint analysis
// module (spec §4.7) as the trace is recorded. It seeds trace.DTAMSerial
// with every location the caller has declared a taint source, and performs
// an immediate, same-instruction propagation: a store whose value derives
// from an already-tainted read taints the written location too. This is
// the listener-time bootstrap DTAM's later serial/parallel/hybrid closure
// passes (package taint) start from — it is not itself the closure
// algorithm.
type TaintListener struct {
	trace    *event.Trace
	isSource func(name string) bool
}

// NewTaintListener returns a TaintListener that seeds taint from any
// location name for which isSource returns true. A nil isSource disables
// source seeding (propagation-only).
func NewTaintListener(trace *event.Trace, isSource func(name string) bool) *TaintListener {
	if trace.DTAMSerial == nil {
		trace.DTAMSerial = make(map[string]struct{})
	}
	if trace.TaintSymbolicExpr == nil {
		trace.TaintSymbolicExpr = make(map[string]struct{})
	}
	return &TaintListener{trace: trace, isSource: isSource}
}

func (t *TaintListener) BeforeMain(ctx *Context, state interp.State) {}

func (t *TaintListener) BeforeInstruction(ctx *Context, state interp.State, ki *interp.Instruction) {
}

func (t *TaintListener) ExecutionFailed(ctx *Context, state interp.State, ki *interp.Instruction) {}

func (t *TaintListener) AfterInstruction(ctx *Context, state interp.State, ki *interp.Instruction) {
	if ki.Opcode != "store" && ki.Opcode != "load" {
		return
	}
	ev := t.trace.Event(event.ID(ctx.LastEventID))
	if ev == nil || !ev.IsGlobal {
		return
	}

	if t.isSource != nil && t.isSource(ev.Name) {
		t.markSource(ev.Name)
	}

	if ki.Opcode != "store" {
		return
	}
	for _, operand := range ev.RelatedSymbolicExpr {
		if operand == nil {
			continue
		}
		if _, tainted := t.trace.TaintSymbolicExpr[operand.RootName()]; tainted {
			t.trace.TaintSymbolicExpr[ev.Name] = struct{}{}
			return
		}
	}
}

// markSource records name as both a directly-tainted location and a member
// of the dtam_serial seed set, the set package taint's closure starts
// from. Propagated (non-source) taint only ever joins
// TaintSymbolicExpr, never DTAMSerial, so the seed set stays exactly what
// the caller declared.
func (t *TaintListener) markSource(name string) {
	t.trace.TaintSymbolicExpr[name] = struct{}{}
	t.trace.DTAMSerial[name] = struct{}{}
}
