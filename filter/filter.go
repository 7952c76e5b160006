// Package filter implements the expression-filter pass of spec §4.5: given
// a raw recorded Trace, it computes the dependency closure of every branch
// and assertion condition over the trace's store expressions, then derives
// the branch-relevant subsets of the read/write sets and path condition the
// encoder consumes.
package filter

import (
	"golang.org/x/exp/slices"

	"github.com/joeycumines/klee-mta-go/event"
)

// FilterUseless runs the full filter pass over t, populating
// BrRelatedSymbolicExpr, AssertRelatedSymbolicExpr, ForkRelatedSymbolicExpr,
// AllRelatedSymbolicExprs, RelatedSymbolicExpr, VarThread, PathCondition
// (every ForkExpr entry plus absorbed store expressions),
// PathConditionRelatedToBranch, ReadSetRelatedToBranch,
// WriteSetRelatedToBranch, and each Event's IsEventRelatedToBranch flag.
// Idempotent: calling it again on an already-filtered trace recomputes the
// same fixed point (spec §8 testable property 5); t.ForkExpr itself is
// never modified, only re-absorbed into the rebuilt PathCondition.
func FilterUseless(t *event.Trace) {
	frontier := make(map[string]struct{})

	t.BrRelatedSymbolicExpr = make([]map[string]struct{}, len(t.BrExpr))
	for i, ref := range t.BrExpr {
		names := depNameSet(ref.Expr)
		t.BrRelatedSymbolicExpr[i] = names
		addAll(frontier, names)
	}

	t.AssertRelatedSymbolicExpr = make([]map[string]struct{}, len(t.AssertExpr))
	for i, ref := range t.AssertExpr {
		names := depNameSet(ref.Expr)
		t.AssertRelatedSymbolicExpr[i] = names
		addAll(frontier, names)
	}

	// ForkExpr conditions are always related, like BrExpr/AssertExpr, and
	// always re-included in the rebuilt PathCondition below — unlike the
	// store-absorbed entries absorbStoreExprs appends, they don't need to be
	// reachable from the frontier to survive the filter.
	t.ForkRelatedSymbolicExpr = make([]map[string]struct{}, len(t.ForkExpr))
	t.PathCondition = append([]event.ExprRef(nil), t.ForkExpr...)
	for i, ref := range t.ForkExpr {
		names := depNameSet(ref.Expr)
		t.ForkRelatedSymbolicExpr[i] = names
		addAll(frontier, names)
	}

	t.AllRelatedSymbolicExprs = make(map[string]map[string]struct{})
	absorbStoreExprs(t, frontier, make(map[event.ID]bool))

	t.RelatedSymbolicExpr = copySet(frontier)

	computeVarThread(t)
	filterBranchRelevantSubsets(t, frontier)
	markEventRelated(t, frontier)
}

// FilterUselessWithSet expands an already-filtered trace's closure with
// extraNames (location names supplied by a caller outside the filter
// pass — e.g. the encoder checking whether concretizing a read is
// required), absorbing any newly reachable store expressions into
// PathCondition and re-deriving RelatedSymbolicExpr, VarThread, the
// branch-relevant subsets, and each Event's IsEventRelatedToBranch flag;
// BrRelatedSymbolicExpr, AssertRelatedSymbolicExpr and
// ForkRelatedSymbolicExpr are left as FilterUseless set them. It reports
// whether any name in the expanded closure has VarThread == 0 (shared):
// the cheap pre-solve check spec §4.5 describes, used to skip branches
// that cannot yield a new interleaving no matter how the solver resolves
// them.
func FilterUselessWithSet(t *event.Trace, extraNames []string) bool {
	if t.RelatedSymbolicExpr == nil {
		t.RelatedSymbolicExpr = make(map[string]struct{})
	}
	frontier := copySet(t.RelatedSymbolicExpr)
	for _, n := range extraNames {
		frontier[n] = struct{}{}
	}

	already := make(map[event.ID]bool, len(t.PathCondition))
	for _, ref := range t.PathCondition {
		already[ref.Event] = true
	}
	absorbStoreExprs(t, frontier, already)

	t.RelatedSymbolicExpr = frontier
	computeVarThread(t)
	filterBranchRelevantSubsets(t, frontier)
	markEventRelated(t, frontier)

	for n := range frontier {
		if t.VarThread[n] == 0 {
			return true
		}
	}
	return false
}

// absorbStoreExprs repeatedly scans t.StoreExpr for expressions whose root
// name is in frontier (and not already absorbed, per already), folding
// their dependency names into frontier and t.AllRelatedSymbolicExprs and
// appending the expression to t.PathCondition, until no pass makes
// progress.
func absorbStoreExprs(t *event.Trace, frontier map[string]struct{}, already map[event.ID]bool) {
	if t.AllRelatedSymbolicExprs == nil {
		t.AllRelatedSymbolicExprs = make(map[string]map[string]struct{})
	}
	for {
		changed := false
		for _, ref := range t.StoreExpr {
			if already[ref.Event] {
				continue
			}
			root := ref.Expr.RootName()
			if _, ok := frontier[root]; !ok {
				continue
			}
			deps := depNameSet(ref.Expr)
			set := t.AllRelatedSymbolicExprs[root]
			if set == nil {
				set = make(map[string]struct{})
				t.AllRelatedSymbolicExprs[root] = set
			}
			for n := range deps {
				set[n] = struct{}{}
				if _, ok := frontier[n]; !ok {
					frontier[n] = struct{}{}
				}
			}
			already[ref.Event] = true
			t.PathCondition = append(t.PathCondition, ref)
			changed = true
		}
		if !changed {
			break
		}
	}
}

// depNameSet returns e's root name plus every name in its DependencySet,
// if it implements that optional capability.
func depNameSet(e event.Expr) map[string]struct{} {
	set := map[string]struct{}{e.RootName(): {}}
	if de, ok := e.(event.DependencySet); ok {
		for _, n := range de.Dependencies() {
			set[n] = struct{}{}
		}
	}
	return set
}

func addAll(dst, src map[string]struct{}) {
	for n := range src {
		dst[n] = struct{}{}
	}
}

func copySet(src map[string]struct{}) map[string]struct{} {
	dst := make(map[string]struct{}, len(src))
	for n := range src {
		dst[n] = struct{}{}
	}
	return dst
}

// computeVarThread populates t.VarThread: for every name touched by a read
// or write, or appearing in the current closure, the single thread id that
// touches it, 0 if two or more threads do, or -1 if it is untouched.
func computeVarThread(t *event.Trace) {
	touch := make(map[string]map[int]struct{})
	record := func(name string, ids []event.ID) {
		for _, id := range ids {
			ev := t.Event(id)
			if ev == nil {
				continue
			}
			m := touch[name]
			if m == nil {
				m = make(map[int]struct{})
				touch[name] = m
			}
			m[ev.ThreadID] = struct{}{}
		}
	}
	for name, ids := range t.ReadSet {
		record(name, ids)
	}
	for name, ids := range t.WriteSet {
		record(name, ids)
	}

	names := make(map[string]struct{}, len(touch)+len(t.RelatedSymbolicExpr))
	for n := range touch {
		names[n] = struct{}{}
	}
	for n := range t.RelatedSymbolicExpr {
		names[n] = struct{}{}
	}

	t.VarThread = make(map[string]int, len(names))
	for n := range names {
		threads := touch[n]
		switch len(threads) {
		case 0:
			t.VarThread[n] = -1
		case 1:
			for tid := range threads {
				t.VarThread[n] = tid
			}
		default:
			t.VarThread[n] = 0
		}
	}
}

func filterBranchRelevantSubsets(t *event.Trace, frontier map[string]struct{}) {
	t.ReadSetRelatedToBranch = make(map[string][]event.ID)
	for name, ids := range t.ReadSet {
		if _, ok := frontier[name]; ok {
			sorted := append([]event.ID(nil), ids...)
			slices.Sort(sorted)
			t.ReadSetRelatedToBranch[name] = sorted
		}
	}
	t.WriteSetRelatedToBranch = make(map[string][]event.ID)
	for name, ids := range t.WriteSet {
		if _, ok := frontier[name]; ok {
			sorted := append([]event.ID(nil), ids...)
			slices.Sort(sorted)
			t.WriteSetRelatedToBranch[name] = sorted
		}
	}

	t.PathConditionRelatedToBranch = nil
	for _, ref := range t.PathCondition {
		if _, ok := frontier[ref.Expr.RootName()]; ok {
			t.PathConditionRelatedToBranch = append(t.PathConditionRelatedToBranch, ref)
		}
	}
}

func markEventRelated(t *event.Trace, frontier map[string]struct{}) {
	for _, ev := range t.Events {
		if ev.IsMemoryAccess() {
			_, ev.IsEventRelatedToBranch = frontier[ev.Name]
		} else {
			ev.IsEventRelatedToBranch = true
		}
	}
}
