package encode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/klee-mta-go/encode"
	"github.com/joeycumines/klee-mta-go/event"
	"github.com/joeycumines/klee-mta-go/filter"
	"github.com/joeycumines/klee-mta-go/internal/fakesolver"
	"github.com/joeycumines/klee-mta-go/solverapi"
)

type rootExpr struct{ root string }

func (e rootExpr) RootName() string { return e.root }

func buildSampleTrace() *event.Trace {
	tr := event.NewTrace(1)
	tr.InsertGlobalVariableInitializer("x", 0)

	brEv := tr.InsertEvent(1, &event.Event{Name: "cond", IsConditionInst: true, BrCondition: true, SourceLine: 5})
	tr.BrExpr = append(tr.BrExpr, event.ExprRef{Event: brEv, Expr: rootExpr{root: "cond"}})

	writeEv := tr.InsertEvent(2, &event.Event{Name: "x", IsGlobal: true, GlobalName: "G1_xS1"})
	tr.WriteSet["x"] = append(tr.WriteSet["x"], writeEv)
	tr.StoreExpr = append(tr.StoreExpr, event.ExprRef{Event: writeEv, Expr: rootExpr{root: "x"}})

	readEv := tr.InsertEvent(1, &event.Event{Name: "x", IsGlobal: true, GlobalName: "G1_xL1"})
	tr.ReadSet["x"] = append(tr.ReadSet["x"], readEv)
	tr.RWExpr = append(tr.RWExpr, event.ExprRef{Event: readEv, Expr: rootExpr{root: "x"}})

	filter.FilterUseless(tr)
	return tr
}

func TestEncodeInitialValuesAssertsEveryTrackedGlobal(t *testing.T) {
	tr := buildSampleTrace()
	e := encode.New(fakesolver.New(), tr, 8)
	expr := e.EncodeInitialValues()
	require.NotNil(t, expr)
	assert.Equal(t, solverapi.BoolSort, expr.Sort())
}

func TestEncodeMemoryModelAndPartialOrderBuildWithoutPanicking(t *testing.T) {
	tr := buildSampleTrace()
	e := encode.New(fakesolver.New(), tr, 8)
	mm := e.EncodeMemoryModel()
	po := e.EncodePartialOrder()
	require.NotNil(t, mm)
	require.NotNil(t, po)
}

func TestEncodeReadFromBuildsDisjunctionPerRead(t *testing.T) {
	tr := buildSampleTrace()
	e := encode.New(fakesolver.New(), tr, 8)
	rf := e.EncodeReadFrom()
	require.NotNil(t, rf)
	assert.Equal(t, solverapi.BoolSort, rf.Sort())
}

func TestEncodeReturnsUnknownOnFakesolverDueToIntOrderVars(t *testing.T) {
	tr := buildSampleTrace()
	s := fakesolver.New()
	e := encode.New(s, tr, 8)
	e.Encode()
	result, err := s.Check()
	require.NoError(t, err)
	assert.Equal(t, solverapi.Unknown, result, "order variables are modeled in the integer theory, which fakesolver cannot brute-force")
}

func TestVerifyAssertionWithNoAssertionsReportsNoViolation(t *testing.T) {
	tr := buildSampleTrace()
	e := encode.New(fakesolver.New(), tr, 8)
	result, err := e.VerifyAssertion()
	require.NoError(t, err)
	assert.False(t, result.Violated)
}

func TestVerifyAssertionSkipsUnknownAndContinues(t *testing.T) {
	tr := buildSampleTrace()
	assertEv := tr.InsertEvent(1, &event.Event{Name: "assert_a", SourceFile: "m.c", SourceLine: 9})
	tr.AssertExpr = append(tr.AssertExpr, event.ExprRef{Event: assertEv, Expr: rootExpr{root: "a"}})
	filter.FilterUseless(tr)

	e := encode.New(fakesolver.New(), tr, 8)
	e.Encode()
	result, err := e.VerifyAssertion()
	require.NoError(t, err)
	assert.False(t, result.Violated, "fakesolver returns Unknown for any formula touching an int order variable, which VerifyAssertion treats as skip-and-continue")
}

func TestFlipIfBranchesCountsOutcomes(t *testing.T) {
	tr := buildSampleTrace()
	e := encode.New(fakesolver.New(), tr, 8)
	prefixes, stats := e.FlipIfBranches()
	assert.Equal(t, 0, stats.Flipped)
	assert.Empty(t, prefixes)
	assert.Equal(t, stats.Unknown+stats.UnsatByPreSolve+stats.Unsat, 1)
}
