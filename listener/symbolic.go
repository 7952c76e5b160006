package listener

import (
	"github.com/joeycumines/klee-mta-go/event"
	"github.com/joeycumines/klee-mta-go/interp"
)

// SymbolicListener records the path conditions of forks (spec §4.1) into
// the trace. Its Listener hooks are no-ops and it never creates events of
// its own.
//
// Branch, assert and memory expressions are appended by RecorderListener at
// the point of recording (it has direct access to the event it just
// built). SymbolicListener exists for capturing path conditions
// accumulated from interp.ForkState — the one symbolic artifact that
// arises independently of any single instruction's event.
type SymbolicListener struct {
	trace *event.Trace
	ip    interp.Interpreter
}

// NewSymbolicListener returns a SymbolicListener appending to trace.
func NewSymbolicListener(trace *event.Trace, ip interp.Interpreter) *SymbolicListener {
	return &SymbolicListener{trace: trace, ip: ip}
}

func (s *SymbolicListener) BeforeMain(ctx *Context, state interp.State) {}

func (s *SymbolicListener) BeforeInstruction(ctx *Context, state interp.State, ki *interp.Instruction) {
}

func (s *SymbolicListener) AfterInstruction(ctx *Context, state interp.State, ki *interp.Instruction) {
}

func (s *SymbolicListener) ExecutionFailed(ctx *Context, state interp.State, ki *interp.Instruction) {
}

// RecordPathCondition records cond as the path condition a prior fork
// committed to, tagged against the event that fork was taken from. Called
// by an interp.Interpreter-driving engine immediately after an
// interp.ForkState call resolves one branch, since the path condition
// constraining that choice belongs to whichever event drove the fork, not
// to any instruction the listener pipeline sees on its own.
//
// filter.FilterUseless treats every recorded condition as permanently
// related (the same way it treats BrExpr/AssertExpr), so it survives
// FilterUseless's own from-scratch rebuild of trace.PathCondition.
func (s *SymbolicListener) RecordPathCondition(forkEvent event.ID, cond event.Expr) {
	s.trace.InsertForkCondition(forkEvent, cond)
}
