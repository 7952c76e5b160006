package encode

import (
	"sort"
	"strconv"

	"github.com/joeycumines/klee-mta-go/event"
	"github.com/joeycumines/klee-mta-go/kind"
	"github.com/joeycumines/klee-mta-go/solverapi"
)

// AssertionResult reports the outcome of checking one assertion event.
type AssertionResult struct {
	Event    *event.Event
	Violated bool
	Prefix   *event.Prefix // non-nil only when Violated
	// Result and Model are the final solver Check outcome and (if Sat) the
	// model that produced Prefix, kept for callers rendering the
	// assertion-verification solver state to <trace>.z3expr (spec §6).
	Result solverapi.CheckResult
	Model  solverapi.Model
}

// VerifyAssertion implements spec §4.6's verify_assertion: for each
// recorded assertion event in order, it pushes a scope, asserts the
// negation of that assertion's condition plus the dominance constraints
// from every preceding assertion/branch (same-thread: the earlier
// assert/branch condition must hold outright; cross-thread: it holds
// whenever it precedes the event under test in the order variables), and
// checks. A Sat result means a feasible schedule falsifies the assertion:
// VerifyAssertion reconstructs the witnessing Prefix, reports the
// violation, and stops (fail-fast) without checking later assertions. An
// Unsat result continues to the next assertion, and so does an Unknown
// result (that assertion is skipped without an error). An error from Check
// or GetModel also skips that assertion and continues with the next; if no
// assertion is found violated, the first such error is returned, wrapped as
// kind.SolverError, alongside the no-violation result.
func (e *Encoder) VerifyAssertion() (*AssertionResult, error) {
	var firstErr error
	for i, aref := range e.trace.AssertExpr {
		a := e.trace.Event(aref.Event)
		if a == nil {
			continue
		}

		e.solver.Push()
		e.solver.Add(e.solver.Not(e.bridge(aref.Expr)))
		e.addDominance(i, a)

		result, err := e.solver.Check()
		if err != nil {
			e.solver.Pop()
			if firstErr == nil {
				firstErr = kind.Wrap(kind.SolverError, err, "checking assertion at %s:%d", a.SourceFile, a.SourceLine)
			}
			continue
		}

		switch result {
		case solverapi.Sat:
			model, err := e.solver.GetModel()
			e.solver.Pop()
			if err != nil {
				if firstErr == nil {
					firstErr = kind.Wrap(kind.SolverError, err, "extracting model for assertion violation at %s:%d", a.SourceFile, a.SourceLine)
				}
				continue
			}
			prefix := e.buildPrefix(assertPrefixName(a), model)
			return &AssertionResult{Event: a, Violated: true, Prefix: prefix, Result: result, Model: model}, nil
		case solverapi.Unsat:
			e.solver.Pop()
		default: // Unknown
			e.solver.Pop()
		}
	}
	return &AssertionResult{Violated: false, Result: solverapi.Unsat}, firstErr
}

// addDominance asserts, for every assertion/branch preceding index i in
// trace.AssertExpr/trace.BrExpr program order within the same thread, that
// its condition holds outright, and for every one in a different thread,
// that it holds whenever its order precedes ev's.
func (e *Encoder) addDominance(beforeAssertIdx int, ev *event.Event) {
	for j := 0; j < beforeAssertIdx; j++ {
		aref := e.trace.AssertExpr[j]
		other := e.trace.Event(aref.Event)
		if other == nil {
			continue
		}
		e.addDominanceEdge(ev, other, aref.Expr)
	}
	for _, bref := range e.trace.BrExpr {
		other := e.trace.Event(bref.Event)
		if other == nil || other.EventID == ev.EventID {
			continue
		}
		e.addDominanceEdge(ev, other, bref.Expr)
	}
}

func (e *Encoder) addDominanceEdge(ev, other *event.Event, cond event.Expr) {
	condExpr := e.bridge(cond)
	if other.ThreadID == ev.ThreadID {
		if other.EventID < ev.EventID {
			e.solver.Add(condExpr)
		}
		return
	}
	e.solver.Add(e.solver.Implies(e.solver.Lt(e.order(other), e.order(ev)), condExpr))
}

func assertPrefixName(a *event.Event) string {
	return "assert_" + a.Name
}

// buildPrefix samples the given model by reading each event's order
// variable and sorting the trace's events ascending by sampled order,
// producing the Prefix a guided re-execution follows (spec §4.6's
// "the model is sampled by reading each event's order variable and
// sorting ascending").
func (e *Encoder) buildPrefix(name string, model solverapi.Model) *event.Prefix {
	type sampled struct {
		ref   event.Ref
		order int64
	}
	samples := make([]sampled, 0, len(e.trace.Events))
	for _, ev := range e.trace.Events {
		if ev.Kind == event.Ignore {
			continue
		}
		val, ok := model["E_"+orderName(ev)]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			continue
		}
		samples = append(samples, sampled{ref: event.Ref{TraceID: e.trace.ID, EventID: ev.EventID}, order: n})
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].order < samples[j].order })

	refs := make([]event.Ref, len(samples))
	threadIDMap := make(map[event.Ref]int)
	for i, s := range samples {
		refs[i] = s.ref
		if childID, ok := e.trace.CreateThreadPoint[s.ref.EventID]; ok {
			threadIDMap[s.ref] = childID
		}
	}
	return event.NewPrefix(name, refs, threadIDMap)
}
