// Package taint implements the Dynamic Taint Analysis Module (DTAM) and
// its solver-based symbolic-taint refinement (PTS), spec §4.7: a second
// pass over an already-recorded (and, for PTS, already-filtered) Trace
// that propagates taint from a user-declared seed set across the trace's
// data-flow graph, then asks a solver which of the reachable-but-not-
// directly-tainted candidates can actually be tainted under some feasible
// interleaving.
package taint

import (
	"sort"

	"github.com/joeycumines/klee-mta-go/event"
)

// edge is one data-flow dependency: value at location From feeds into a
// store of location To, witnessed by a representative pair of events used
// by the hybrid pass's happens-before filter.
type edge struct {
	from, to            string
	fromEvent, toEvent  event.ID
}

// buildGraph constructs DTAM's affectation graph: for every recorded
// store, an edge from each location its value depends on (its operand
// reads) to the location it writes (spec §4.7: "each store inserts edges
// from its operand reads to itself"). Reads of a tainted location need no
// edge of their own: since a location's taint is tracked at the name
// level, any access — read or store — of an already-tainted name is
// already covered by that name being in the reachable set ("each load is
// an edge target").
func buildGraph(t *event.Trace) []edge {
	var edges []edge
	for _, ref := range t.StoreExpr {
		s := t.Event(ref.Event)
		if s == nil {
			continue
		}
		for _, dep := range dependencyNames(ref.Expr) {
			if dep == s.Name {
				continue
			}
			edges = append(edges, edge{
				from:      dep,
				to:        s.Name,
				fromEvent: lastAccessBefore(t, dep, s.EventID),
				toEvent:   s.EventID,
			})
		}
	}
	return edges
}

// dependencyNames returns e's root name plus every name in its
// event.DependencySet, if it implements that optional capability.
func dependencyNames(e event.Expr) []string {
	if e == nil {
		return nil
	}
	names := []string{e.RootName()}
	if de, ok := e.(event.DependencySet); ok {
		names = append(names, de.Dependencies()...)
	}
	return names
}

// lastAccessBefore returns the latest read or write event of name with an
// EventID strictly less than before, or event.None if there isn't one.
func lastAccessBefore(t *event.Trace, name string, before event.ID) event.ID {
	best := event.None
	consider := func(ids []event.ID) {
		for _, id := range ids {
			if id < before && id > best {
				best = id
			}
		}
	}
	consider(t.ReadSet[name])
	consider(t.WriteSet[name])
	return best
}

// reachable computes the set of names reachable from seed by following
// edges for which keep(e) is true, to a fixed point.
func reachable(seed map[string]struct{}, edges []edge, keep func(edge) bool) map[string]struct{} {
	result := make(map[string]struct{}, len(seed))
	for n := range seed {
		result[n] = struct{}{}
	}
	for {
		changed := false
		for _, e := range edges {
			if !keep(e) {
				continue
			}
			if _, ok := result[e.from]; !ok {
				continue
			}
			if _, ok := result[e.to]; !ok {
				result[e.to] = struct{}{}
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return result
}

// RunDTAM populates Trace.DTAMParallel and Trace.DTAMHybrid from
// Trace.DTAMSerial (the user/listener-declared seed set, spec §4.7):
// DTAMParallel is the full reachability closure over the data-flow graph;
// DTAMHybrid is the same closure but with an edge u->v discarded whenever
// u's vector clock does not happen-before v's, eliminating propagation
// through interleavings that could never actually occur. An edge with no
// determinable representative event (e.g. a location never otherwise
// accessed before the store) is conservatively kept in both passes, since
// there is no evidence to exclude it.
func RunDTAM(t *event.Trace) {
	if t.DTAMSerial == nil {
		t.DTAMSerial = make(map[string]struct{})
	}
	edges := buildGraph(t)

	t.DTAMParallel = reachable(t.DTAMSerial, edges, func(edge) bool { return true })

	t.DTAMHybrid = reachable(t.DTAMSerial, edges, func(e edge) bool {
		if e.fromEvent == event.None || e.toEvent == event.None {
			return true
		}
		from, to := t.Event(e.fromEvent), t.Event(e.toEvent)
		if from == nil || to == nil {
			return true
		}
		return from.VectorClock.HappensBefore(to.VectorClock)
	})
}

// Candidates returns dtam_parallel \ dtam_serial, sorted, the candidate
// set spec §4.7's symbolic-taint pass refines.
func Candidates(t *event.Trace) []string {
	var out []string
	for n := range t.DTAMParallel {
		if _, serial := t.DTAMSerial[n]; !serial {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
