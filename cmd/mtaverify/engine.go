package main

import (
	"context"
	"errors"

	"github.com/joeycumines/klee-mta-go/event"
	"github.com/joeycumines/klee-mta-go/internal/config"
	"github.com/joeycumines/klee-mta-go/orchestrator"
	"github.com/joeycumines/klee-mta-go/solverapi"
	"github.com/joeycumines/klee-mta-go/thread"
)

// errNoEngine is returned by the default Interpret when nothing has
// replaced it, so a binary built without a real engine wired fails loudly
// rather than silently reporting "no violation found" for every program.
var errNoEngine = errors.New("mtaverify: no interp.Interpreter engine registered; set cmd/mtaverify.Interpret before Execute")

// NewSolver and Interpret are this binary's extension points onto the two
// external collaborators spec §1 keeps out of scope: a background SMT
// solver and the single-thread symbolic execution engine that actually
// steps a compiled program's instructions. Neither ships with this module —
// a real deployment links in a concrete solverapi.Solver (a Z3/CVC5
// binding, typically) and interp.Interpreter (the engine that loads the
// program image and drives listener.Pipeline's hooks) by replacing these
// before calling Execute. The zero-value defaults below only report that
// nothing is wired.
var (
	NewSolver func() solverapi.Solver = func() solverapi.Solver {
		panic("mtaverify: no solverapi.Solver backend registered; set cmd/mtaverify.NewSolver before Execute")
	}
	Interpret orchestrator.Interpret = func(ctx context.Context, cfg config.Config, tr *event.Trace, exec *thread.ExecutionState, prefix *event.Prefix) error {
		return errNoEngine
	}
)
