package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/klee-mta-go/event"
	"github.com/joeycumines/klee-mta-go/internal/config"
	"github.com/joeycumines/klee-mta-go/internal/fakesolver"
	"github.com/joeycumines/klee-mta-go/interp"
	"github.com/joeycumines/klee-mta-go/listener"
	"github.com/joeycumines/klee-mta-go/solverapi"
	"github.com/joeycumines/klee-mta-go/thread"
)

func TestRootCmdFailsLoudlyWithNoEngineWired(t *testing.T) {
	var violated bool
	cmd := newRootCmd(&violated)
	cmd.SetArgs([]string{"--output-dir", t.TempDir(), "a.out"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, errNoEngine)
	assert.False(t, violated)
}

func TestRootCmdRunsToCompletionWithWiredEngine(t *testing.T) {
	origSolver, origInterpret := NewSolver, Interpret
	t.Cleanup(func() { NewSolver, Interpret = origSolver, origInterpret })

	NewSolver = func() solverapi.Solver { return fakesolver.New() }
	Interpret = func(ctx context.Context, cfg config.Config, tr *event.Trace, exec *thread.ExecutionState, prefix *event.Prefix) error {
		rec := listener.NewRecorderListener(tr, exec, noopInterp{}, listener.GranularityInstruction)
		pipe := listener.NewPipeline(rec)
		pipe.BeforeMain(rootTestState{})
		return nil
	}

	var violated bool
	cmd := newRootCmd(&violated)
	cmd.SetArgs([]string{"--output-dir", t.TempDir(), "a.out"})
	require.NoError(t, cmd.Execute())
	assert.False(t, violated)
}

type rootTestState struct{}

func (rootTestState) ThreadID() int { return 1 }

// noopInterp is the minimal interp.Interpreter a RunE-level smoke test
// needs: only BeforeMain is ever called, since the scripted execution
// issues no instructions.
type noopInterp struct{}

func (noopInterp) BeforeMain(interp.State, string, interp.MemoryObject, int, interp.MemoryObject) {}
func (noopInterp) BeforeExecuteInstruction(interp.State, *interp.Instruction)                     {}
func (noopInterp) AfterExecuteInstruction(interp.State, *interp.Instruction)                      {}
func (noopInterp) ExecutionFailed(interp.State, *interp.Instruction)                               {}
func (noopInterp) Eval(interp.State, int) event.Expr                                               { return nil }
func (noopInterp) BindLocal(interp.State, *interp.Instruction, event.Expr)                          {}
func (noopInterp) BindArgument(interp.State, int, event.Expr)                                       {}
func (noopInterp) ExecuteMemoryOperation(interp.State, interp.MemoryObject, bool, event.Expr) event.Expr {
	return nil
}
func (noopInterp) GetMemoryObject(interp.State, *interp.Instruction, int) interp.MemoryObject {
	return nil
}
func (noopInterp) ResolveExact(interp.State, interp.MemoryObject) (string, bool) { return "", false }
func (noopInterp) ForkState(interp.State, event.Expr) (interp.State, interp.State) {
	return nil, nil
}
