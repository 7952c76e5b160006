package encode

import (
	"github.com/joeycumines/klee-mta-go/event"
	"github.com/joeycumines/klee-mta-go/filter"
	"github.com/joeycumines/klee-mta-go/solverapi"
)

// FlipStats counts what happened to each recorded branch during
// FlipIfBranches, for the statistics RuntimeDataManager dumps on close.
type FlipStats struct {
	Flipped        int
	UnsatByPreSolve int
	Unsat          int
	Unknown        int
}

// FlipIfBranches implements spec §4.6's flip_if_branches: for every
// recorded branch, it runs the cheap filter.FilterUselessWithSet pre-solve
// check first (skipping branches that provably cannot yield a new
// interleaving), then pushes a scope, asserts the branch condition's
// negation plus the same dominance constraints VerifyAssertion uses
// (preceding branches in the same/cross thread, every recorded
// assertion), concretizes reads outside the branch's dependency closure to
// their location's recorded final value, and checks. A Sat result yields a new Prefix
// (named Trace<id>-L<line>-<event_name>-<taken>-<flipped>); Unsat and
// Unknown are both counted and skipped, matching spec §5's fail-open
// handling of solver exceptions/timeouts on a branch flip.
func (e *Encoder) FlipIfBranches() ([]*event.Prefix, FlipStats) {
	var prefixes []*event.Prefix
	var stats FlipStats

	for i, bref := range e.trace.BrExpr {
		b := e.trace.Event(bref.Event)
		if b == nil {
			continue
		}

		if !filter.FilterUselessWithSet(e.trace, nil) {
			stats.UnsatByPreSolve++
			continue
		}

		e.solver.Push()
		e.solver.Add(e.solver.Not(e.bridge(bref.Expr)))
		e.addBranchDominance(i, b)
		e.concretizeOutsideClosure(b)

		result, err := e.solver.Check()
		if err != nil {
			e.solver.Pop()
			stats.Unknown++
			continue
		}

		switch result {
		case solverapi.Sat:
			model, merr := e.solver.GetModel()
			e.solver.Pop()
			if merr != nil {
				stats.Unknown++
				continue
			}
			prefixes = append(prefixes, e.buildPrefix(flipPrefixName(e.trace.ID, b), model))
			stats.Flipped++
		case solverapi.Unsat:
			e.solver.Pop()
			stats.Unsat++
		default:
			e.solver.Pop()
			stats.Unknown++
		}
	}

	return prefixes, stats
}

// addBranchDominance mirrors VerifyAssertion's addDominance with the roles
// of assertions and branches swapped: every recorded assertion dominates
// unconditionally, while only branches preceding brIdx do.
func (e *Encoder) addBranchDominance(brIdx int, ev *event.Event) {
	for j := 0; j < brIdx; j++ {
		other := e.trace.Event(e.trace.BrExpr[j].Event)
		if other == nil {
			continue
		}
		e.addDominanceEdge(ev, other, e.trace.BrExpr[j].Expr)
	}
	for _, aref := range e.trace.AssertExpr {
		other := e.trace.Event(aref.Event)
		if other == nil || other.EventID == ev.EventID {
			continue
		}
		e.addDominanceEdge(ev, other, aref.Expr)
	}
}

// concretizeOutsideClosure forces every read not in branchEvent's
// dependency closure to equal its location's value in
// Trace.GlobalVariableFinal, per spec §4.6's optional read-value
// concretization. Reads of a location with no recorded final value are
// left unconstrained.
func (e *Encoder) concretizeOutsideClosure(branchEvent *event.Event) {
	idx := -1
	for i, bref := range e.trace.BrExpr {
		if bref.Event == branchEvent.EventID {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= len(e.trace.BrRelatedSymbolicExpr) {
		return
	}
	closure := e.trace.BrRelatedSymbolicExpr[idx]

	for name, ids := range e.trace.ReadSet {
		if _, inClosure := closure[name]; inClosure {
			continue
		}
		for _, rid := range ids {
			r := e.trace.Event(rid)
			if r == nil {
				continue
			}
			if val, ok := e.trace.GlobalVariableFinal[name]; ok {
				e.solver.Add(e.solver.Eq(e.valueConst(r), e.solver.BV(val, e.bitWidth)))
			}
		}
	}
}

func flipPrefixName(traceID int, b *event.Event) string {
	taken := "false"
	if b.BrCondition {
		taken = "true"
	}
	return "Trace" + itoa(traceID) + "-L" + itoa(b.SourceLine) + "-" + b.Name + "-" + taken + "-flipped"
}
