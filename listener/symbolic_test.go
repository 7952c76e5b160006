package listener_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/klee-mta-go/event"
	"github.com/joeycumines/klee-mta-go/filter"
	"github.com/joeycumines/klee-mta-go/interp"
	"github.com/joeycumines/klee-mta-go/listener"
)

func TestSymbolicListenerRecordedConditionSurvivesFilter(t *testing.T) {
	tr, exec, fi := setup(t)
	rec := listener.NewRecorderListener(tr, exec, fi, listener.GranularityInstruction)
	sym := listener.NewSymbolicListener(tr, fi)
	pipe := listener.NewPipeline(rec, sym)
	st := testState{tid: 1}
	pipe.BeforeMain(st)

	brKI := &interp.Instruction{Opcode: "br", File: "m.c", Line: 1, Operands: []int{1}}
	fi.evalResult = testExpr{root: "cond"}
	pipe.AfterInstruction(st, brKI)
	forkEvent := tr.BrExpr[0].Event

	// simulating what a ForkState-driving engine does immediately after
	// committing to one branch of that fork.
	sym.RecordPathCondition(forkEvent, testExpr{root: "taken_branch"})

	filter.FilterUseless(tr)

	require.Len(t, tr.PathCondition, 1)
	assert.Equal(t, "taken_branch", tr.PathCondition[0].Expr.RootName())
	assert.Contains(t, tr.PathConditionRelatedToBranch, tr.PathCondition[0])
}

func TestSymbolicListenerIgnoresNilCondition(t *testing.T) {
	tr, _, fi := setup(t)
	sym := listener.NewSymbolicListener(tr, fi)

	sym.RecordPathCondition(1, nil)

	assert.Empty(t, tr.ForkExpr)
}
