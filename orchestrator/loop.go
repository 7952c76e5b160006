// Package orchestrator implements the top-level verification loop of spec
// §4.9: create a trace, run one simulated execution through the listener
// pipeline, encode it, verify its assertions, flip its branches to enqueue
// new prefixes, optionally run the taint analysis passes, and repeat until
// the prefix work list is empty.
//
// The single-thread symbolic-execution engine that actually steps program
// instructions is explicitly out of scope (spec §1/§6) — it is an external
// collaborator this package only ever talks to through the Interpret
// callback, which stands in for "interpret(state)" in spec §4.9's
// pseudocode: build whatever interp.Interpreter and listener.Pipeline the
// concrete engine needs, record into trace and exec, and drive the
// execution to termination or deadlock before returning. This package's own
// tests play the role of that engine with a listener.RecorderListener wired
// directly over a scripted instruction sequence, the same pattern
// listener/recorder_test.go uses, and internal/fakesolver as the solver.
package orchestrator

import (
	"context"
	"time"

	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"

	"github.com/joeycumines/klee-mta-go/encode"
	"github.com/joeycumines/klee-mta-go/event"
	"github.com/joeycumines/klee-mta-go/filter"
	"github.com/joeycumines/klee-mta-go/internal/config"
	"github.com/joeycumines/klee-mta-go/internal/output"
	"github.com/joeycumines/klee-mta-go/kind"
	"github.com/joeycumines/klee-mta-go/runtimedata"
	"github.com/joeycumines/klee-mta-go/solverapi"
	"github.com/joeycumines/klee-mta-go/taint"
	"github.com/joeycumines/klee-mta-go/thread"
)

// Interpret runs one complete simulated execution into tr, via exec, guided
// by prefix (nil for the first, unguided execution of a run). It must
// drive exec's threads to termination or deadlock before returning. cfg is
// passed through so the concrete engine can honor GranularityLevel when
// building its own listener.RecorderListener.
type Interpret func(ctx context.Context, cfg config.Config, tr *event.Trace, exec *thread.ExecutionState, prefix *event.Prefix) error

// Loop drives spec §4.9's top-level verification loop against one compiled
// program. Not safe for concurrent use directly — callers wanting to
// explore independent prefixes concurrently should build one Loop (sharing
// rdm) per goroutine and drive them via
// runtimedata.Manager.ExploreConcurrently, since only the per-trace
// Encoder/Solver are per-goroutine state; RuntimeDataManager's own methods
// are already safe for concurrent use.
type Loop struct {
	cfg       config.Config
	rdm       *runtimedata.Manager
	newSolver func() solverapi.Solver
	interpret Interpret
	logger    *logiface.Logger[*izerolog.Event]

	schedType thread.SchedulerType

	// AssertionViolation is set once Run finds a feasible counterexample;
	// nil if the whole prefix set was explored with no violation (spec
	// §6's exit-code rule).
	AssertionViolation *encode.AssertionResult
}

// New returns a Loop exploring cfg.Program's simulated executions, pushing
// results into rdm, building a fresh solver per trace via newSolver, and
// driving each execution via interpret. logger may be nil to disable
// per-trace logging.
func New(cfg config.Config, rdm *runtimedata.Manager, newSolver func() solverapi.Solver, interpret Interpret, logger *logiface.Logger[*izerolog.Event]) *Loop {
	return &Loop{
		cfg:       cfg,
		rdm:       rdm,
		newSolver: newSolver,
		interpret: interpret,
		logger:    logger,
		schedType: thread.RoundRobin,
	}
}

// Run executes spec §4.9's pseudocode to completion: the initial trace,
// then every prefix the exploration discovers, in FIFO order, until the
// work list is empty or a violated assertion is found. Returns a non-nil
// error only when interpret itself fails or an output file cannot be
// written; solver/invariant/sync errors are logged and absorbed, matching
// spec §7's propagation policy.
func (l *Loop) Run(ctx context.Context) error {
	tr := l.rdm.CreateTrace(1)
	if err := l.runOnce(ctx, tr, nil); err != nil {
		return err
	}

	for {
		violated, err := l.processTrace(tr)
		if err != nil {
			return err
		}
		if violated {
			return nil
		}

		prefix, ok := l.rdm.NextPrefix()
		if !ok {
			return nil
		}

		tr = l.rdm.CreateTrace(tr.ID + 1)
		if err := l.runOnce(ctx, tr, prefix); err != nil {
			return err
		}
	}
}

// runOnce drives one interpret call, timing it into RunningDuration, and
// writes the trace's raw event dump (spec §6's TraceN.bitcode).
func (l *Loop) runOnce(ctx context.Context, tr *event.Trace, prefix *event.Prefix) error {
	exec := thread.NewExecutionState(l.schedType)

	start := time.Now()
	err := l.interpret(ctx, l.cfg, tr, exec, prefix)
	l.rdm.AddRunningDuration(time.Since(start))
	if err != nil {
		return err
	}

	return output.WriteBitcode(l.cfg.OutputDir, traceFileName(tr.ID), tr)
}

func traceFileName(id int) string {
	return "Trace" + itoa(id)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// processTrace implements the loop body after interpret returns: invariant
// checking, dedup, filtering, encoding, assertion verification, branch
// flipping, and (if enabled) the taint analysis passes. It returns
// violated=true if this trace's VerifyAssertion found a feasible
// counterexample, in which case l.AssertionViolation is populated and Run
// stops.
func (l *Loop) processTrace(tr *event.Trace) (violated bool, err error) {
	tr.ApplyInvariantResult()
	l.rdm.RecordTrace(tr)

	if tr.Type == event.Failed {
		l.logFailed(tr)
		return false, nil
	}

	if !l.rdm.IsCurrentTraceUntested() {
		return false, nil
	}

	filter.FilterUseless(tr)

	solver := l.newSolver()
	enc := encode.New(solver, tr, l.cfg.BitWidth)
	enc.Encode()

	start := time.Now()
	result, verr := enc.VerifyAssertion()
	l.rdm.AddSolvingDuration(time.Since(start))
	if verr != nil {
		if l.logger != nil {
			l.logger.Warning().Err(verr).Int("trace_id", tr.ID).Log("assertion verification returned an error; skipped")
		}
	} else if result.Violated {
		l.AssertionViolation = result
		if err := output.WriteModel(l.cfg.OutputDir, traceFileName(tr.ID), result.Result, result.Model); err != nil {
			return true, err
		}
		if err := l.writePrefixBitcode(result.Prefix); err != nil {
			return true, err
		}
		if l.logger != nil {
			l.logger.Warning().Int("trace_id", tr.ID).Str("assertion", result.Event.Name).Log("assertion violated")
		}
		return true, nil
	}

	flipStart := time.Now()
	prefixes, stats := enc.FlipIfBranches()
	l.rdm.AddSolvingDuration(time.Since(flipStart))
	for i := 0; i < stats.Flipped; i++ {
		l.rdm.RecordBranchSat()
	}
	for i := 0; i < stats.Unsat+stats.UnsatByPreSolve; i++ {
		l.rdm.RecordBranchUnsat()
	}
	for i := 0; i < stats.Unknown; i++ {
		l.rdm.RecordBranchUnknown()
	}
	for _, p := range prefixes {
		l.rdm.AddPrefix(p)
		if err := l.writePrefixBitcode(p); err != nil {
			return false, err
		}
	}

	if l.cfg.EnableDSTAM {
		dtamStart := time.Now()
		taint.RunDTAM(tr)
		l.rdm.AddDTAMDuration(time.Since(dtamStart))

		if l.cfg.EnableSymbolicTaint {
			ptsStart := time.Now()
			if err := taint.RunSymbolicTaint(enc); err != nil && l.logger != nil {
				l.logger.Warning().Err(err).Int("trace_id", tr.ID).Log("symbolic taint refinement returned an error; skipped")
			}
			l.rdm.AddPTSDuration(time.Since(ptsStart))
		}
	}

	return false, nil
}

// writePrefixBitcode renders <prefix.Name>.bitcode by resolving every
// event reference in the prefix back to its owning trace, in prefix order
// (spec §6's "event dump reconstructed from a solver model" — the model is
// what produced this ordering).
func (l *Loop) writePrefixBitcode(p *event.Prefix) error {
	if p == nil {
		return nil
	}
	events := make([]*event.Event, 0, len(p.Events))
	for _, ref := range p.Events {
		owner := l.rdm.Trace(ref.TraceID)
		if owner == nil {
			continue
		}
		if ev := owner.Event(ref.EventID); ev != nil {
			events = append(events, ev)
		}
	}
	return output.WriteBitcodeEvents(l.cfg.OutputDir, p.Name, events)
}

func (l *Loop) logFailed(tr *event.Trace) {
	if l.logger == nil {
		return
	}
	for _, e := range tr.InvariantViolations {
		k := kind.InvariantViolation
		if ke, ok := e.(*kind.Error); ok {
			k = ke.Kind
		}
		l.logger.Warning().Int("trace_id", tr.ID).Str("kind", k.String()).Err(e).Log("trace failed")
	}
}
