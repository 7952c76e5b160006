package orchestrator_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/klee-mta-go/event"
	"github.com/joeycumines/klee-mta-go/interp"
	"github.com/joeycumines/klee-mta-go/internal/config"
	"github.com/joeycumines/klee-mta-go/internal/fakesolver"
	"github.com/joeycumines/klee-mta-go/listener"
	"github.com/joeycumines/klee-mta-go/orchestrator"
	"github.com/joeycumines/klee-mta-go/runtimedata"
	"github.com/joeycumines/klee-mta-go/solverapi"
	"github.com/joeycumines/klee-mta-go/thread"
)

// boolExpr is a minimal event.Expr/encode.Bridgeable literal, for tests
// that need an assertion condition with a known, fixed truth value without
// driving a real symbolic-execution engine.
type boolExpr struct {
	name string
	val  bool
}

func (b boolExpr) RootName() string { return b.name }
func (b boolExpr) ToSolver(s solverapi.Solver) solverapi.Expr { return s.Bool(b.val) }

// testState/testMO mirror listener's own recorder_test.go fakes.
type testState struct{ tid int }

func (s testState) ThreadID() int { return s.tid }

type testMO struct{ name string }

func (m testMO) Name() string { return m.name }

// scriptedInterp is a minimal interp.Interpreter whose Eval always returns
// a configured expression, used to drive assert/branch instructions with a
// known condition.
type scriptedInterp struct {
	evalResult event.Expr
	resolve    map[string]string
}

func newScriptedInterp() *scriptedInterp {
	return &scriptedInterp{resolve: make(map[string]string)}
}

func (s *scriptedInterp) BeforeMain(interp.State, string, interp.MemoryObject, int, interp.MemoryObject) {
}
func (s *scriptedInterp) BeforeExecuteInstruction(interp.State, *interp.Instruction) {}
func (s *scriptedInterp) AfterExecuteInstruction(interp.State, *interp.Instruction)  {}
func (s *scriptedInterp) ExecutionFailed(interp.State, *interp.Instruction)          {}
func (s *scriptedInterp) Eval(interp.State, int) event.Expr                         { return s.evalResult }
func (s *scriptedInterp) BindLocal(interp.State, *interp.Instruction, event.Expr)    {}
func (s *scriptedInterp) BindArgument(interp.State, int, event.Expr)                 {}
func (s *scriptedInterp) ExecuteMemoryOperation(state interp.State, mo interp.MemoryObject, isWrite bool, value event.Expr) event.Expr {
	if isWrite {
		return nil
	}
	return boolExpr{name: mo.Name()}
}
func (s *scriptedInterp) GetMemoryObject(state interp.State, ki *interp.Instruction, operandIndex int) interp.MemoryObject {
	return testMO{name: ki.CalleeName + "@" + ki.File}
}
func (s *scriptedInterp) ResolveExact(state interp.State, mo interp.MemoryObject) (string, bool) {
	name, ok := s.resolve[mo.Name()]
	return name, ok
}
func (s *scriptedInterp) ForkState(interp.State, event.Expr) (interp.State, interp.State) {
	return nil, nil
}

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	return cfg
}

func TestRunSingleTraceNoAssertionWritesBitcode(t *testing.T) {
	cfg := testConfig(t)
	rdm := runtimedata.New(cfg.OutputDir, nil, nil)

	interpret := func(ctx context.Context, cfg config.Config, tr *event.Trace, exec *thread.ExecutionState, prefix *event.Prefix) error {
		fi := newScriptedInterp()
		rec := listener.NewRecorderListener(tr, exec, fi, listener.GranularityInstruction)
		pipe := listener.NewPipeline(rec)
		st := testState{tid: 1}
		pipe.BeforeMain(st)
		pipe.AfterInstruction(st, &interp.Instruction{Opcode: "add", File: "m.c", Line: 1})
		return nil
	}

	loop := orchestrator.New(cfg, rdm, func() solverapi.Solver { return fakesolver.New() }, interpret, nil)
	require.NoError(t, loop.Run(context.Background()))
	assert.Nil(t, loop.AssertionViolation)

	_, err := os.Stat(filepath.Join(cfg.OutputDir, "Trace1.bitcode"))
	require.NoError(t, err)
	require.NoError(t, rdm.Close())
	_, err = os.Stat(filepath.Join(cfg.OutputDir, "statistics.info"))
	require.NoError(t, err)
}

func TestRunDetectsAssertionViolation(t *testing.T) {
	cfg := testConfig(t)
	rdm := runtimedata.New(cfg.OutputDir, nil, nil)

	interpret := func(ctx context.Context, cfg config.Config, tr *event.Trace, exec *thread.ExecutionState, prefix *event.Prefix) error {
		fi := newScriptedInterp()
		rec := listener.NewRecorderListener(tr, exec, fi, listener.GranularityInstruction)
		pipe := listener.NewPipeline(rec)
		st := testState{tid: 1}
		pipe.BeforeMain(st)

		fi.evalResult = boolExpr{name: "always_false", val: false}
		pipe.AfterInstruction(st, &interp.Instruction{Opcode: "call", File: "m.c", Line: 5, CalleeName: "assert"})
		return nil
	}

	loop := orchestrator.New(cfg, rdm, func() solverapi.Solver { return fakesolver.New() }, interpret, nil)
	require.NoError(t, loop.Run(context.Background()))

	require.NotNil(t, loop.AssertionViolation)
	assert.True(t, loop.AssertionViolation.Violated)
	assert.Equal(t, solverapi.Sat, loop.AssertionViolation.Result)

	_, err := os.Stat(filepath.Join(cfg.OutputDir, "Trace1.z3expr"))
	require.NoError(t, err)
}

func TestRunWithDSTAMEnabledPopulatesTaintSets(t *testing.T) {
	cfg := testConfig(t)
	cfg.EnableDSTAM = true
	rdm := runtimedata.New(cfg.OutputDir, nil, nil)

	interpret := func(ctx context.Context, cfg config.Config, tr *event.Trace, exec *thread.ExecutionState, prefix *event.Prefix) error {
		fi := newScriptedInterp()
		fi.resolve["store@m.c"] = "secret"
		rec := listener.NewRecorderListener(tr, exec, fi, listener.GranularityInstruction)
		taintListener := listener.NewTaintListener(tr, func(name string) bool { return name == "secret" })
		pipe := listener.NewPipeline(rec, taintListener)
		st := testState{tid: 1}
		pipe.BeforeMain(st)

		fi.evalResult = boolExpr{name: "v", val: true}
		pipe.AfterInstruction(st, &interp.Instruction{Opcode: "store", File: "m.c", Line: 7, CalleeName: "store"})
		return nil
	}

	loop := orchestrator.New(cfg, rdm, func() solverapi.Solver { return fakesolver.New() }, interpret, nil)
	require.NoError(t, loop.Run(context.Background()))
	assert.Nil(t, loop.AssertionViolation)

	tr := rdm.Trace(1)
	require.NotNil(t, tr)
	assert.Contains(t, tr.DTAMSerial, "secret")
	assert.NotNil(t, tr.DTAMParallel)
}
