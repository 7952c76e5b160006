// Package encode translates an already-filtered Trace into a single
// solver formula under six sub-formulas (spec §4.6): initial values, path
// condition, memory model, partial order, read-from, and synchronization.
// It also implements the two consumers of that formula — assertion
// verification and branch flipping — both of which push a speculative
// solver scope, query it, and pop before continuing.
package encode

import (
	"sort"

	"github.com/joeycumines/klee-mta-go/event"
	"github.com/joeycumines/klee-mta-go/solverapi"
)

// EFinalOffset is the constant the order variable for E_FINAL is derived
// from: E_FINAL = unique_event_count + EFinalOffset (spec §4.6 point 3).
const EFinalOffset = 100

// Bridgeable is the optional capability an event.Expr may implement to
// translate itself into a solver-native Expr directly. Without it, Encoder
// falls back to treating the expression as an opaque named boolean atom —
// the bridge from the (out-of-scope) symbolic engine's own expression
// representation into solverapi.Expr is itself an external concern this
// module only declares a contract for, mirroring how solverapi.Solver
// itself is interface-only.
type Bridgeable interface {
	event.Expr
	ToSolver(s solverapi.Solver) solverapi.Expr
}

// Encoder builds solver formulas for one Trace against one Solver. Not
// safe for concurrent use — it owns the Solver's single assertion context,
// per spec §5's single-owner-per-encoder-instance rule.
type Encoder struct {
	solver   solverapi.Solver
	trace    *event.Trace
	bitWidth int

	orderVars map[string]solverapi.Expr
}

// New returns an Encoder for trace against solver, using bitWidth for
// every bit-vector constant it creates.
func New(solver solverapi.Solver, trace *event.Trace, bitWidth int) *Encoder {
	return &Encoder{
		solver:    solver,
		trace:     trace,
		bitWidth:  bitWidth,
		orderVars: make(map[string]solverapi.Expr),
	}
}

// Solver returns the underlying solverapi.Solver, for callers (e.g.
// package runtimedata) that need to push/pop/check outside the six
// sub-formula builders.
func (e *Encoder) Solver() solverapi.Solver { return e.solver }

// Trace returns the Trace this Encoder was built for.
func (e *Encoder) Trace() *event.Trace { return e.trace }

// orderName is the key an event contributes to the memory-model's per-
// unique-event-name order variable: its GlobalName if it is a tracked
// memory access, else its (possibly cluster-collapsed) Name, prefixed with
// the event's thread id. listener.RecorderListener makes both names unique
// only within one thread (GlobalName's access ordinal is per thread, and
// every thread starts with a "thread_start" event), so the prefix keeps
// events of different threads on different order variables.
func orderName(ev *event.Event) string {
	name := ev.Name
	if ev.IsGlobal {
		name = ev.GlobalName
	}
	return "T" + itoa(ev.ThreadID) + "_" + name
}

// orderVar returns (creating if necessary) the integer order-variable
// constant for the given unique event name.
func (e *Encoder) orderVar(name string) solverapi.Expr {
	if v, ok := e.orderVars[name]; ok {
		return v
	}
	v := e.solver.IntConst("E_" + name)
	e.orderVars[name] = v
	return v
}

// order returns the order variable for ev.
func (e *Encoder) order(ev *event.Event) solverapi.Expr {
	return e.orderVar(orderName(ev))
}

// valueConst returns the solver constant representing the value read or
// written by a global memory access event, keyed by its thread id and
// GlobalName (which disambiguates load/store and access ordinal within
// that thread).
func (e *Encoder) valueConst(ev *event.Event) solverapi.Expr {
	return e.solver.BVConst("V_T"+itoa(ev.ThreadID)+"_"+ev.GlobalName, e.bitWidth)
}

// bridge translates an opaque event.Expr into a solver Expr, via Bridgeable
// if the concrete value supports it, else as an opaque named boolean atom.
func (e *Encoder) bridge(expr event.Expr) solverapi.Expr {
	if expr == nil {
		return e.solver.Bool(true)
	}
	if b, ok := expr.(Bridgeable); ok {
		return b.ToSolver(e.solver)
	}
	return e.solver.BoolConst(expr.RootName())
}

// sortedThreadIDs returns this Encoder's trace's thread ids in ascending
// order, matching event.Trace's own internal traversal order.
func (e *Encoder) sortedThreadIDs() []int {
	ids := make([]int, 0, len(e.trace.Threads))
	for tid := range e.trace.Threads {
		ids = append(ids, tid)
	}
	sort.Ints(ids)
	return ids
}

func andAll(s solverapi.Solver, exprs []solverapi.Expr) solverapi.Expr {
	if len(exprs) == 0 {
		return s.Bool(true)
	}
	return s.And(exprs...)
}

// EncodeInitialValues asserts name_Init == g0 for every tracked global with
// a known initializer (spec §4.6 point 1). Initializers are recorded as a
// single int64 value with no separate boolean sort tag, so every
// initializer is encoded in the bit-vector theory — a known simplification
// noted in the grounding ledger.
func (e *Encoder) EncodeInitialValues() solverapi.Expr {
	names := make([]string, 0, len(e.trace.GlobalVariableInitializer))
	for name := range e.trace.GlobalVariableInitializer {
		names = append(names, name)
	}
	sort.Strings(names)

	exprs := make([]solverapi.Expr, 0, len(names))
	for _, name := range names {
		val := e.trace.GlobalVariableInitializer[name]
		exprs = append(exprs, e.solver.Eq(
			e.solver.BVConst(name+"_Init", e.bitWidth),
			e.solver.BV(val, e.bitWidth),
		))
	}
	return andAll(e.solver, exprs)
}

// EncodePathCondition conjoins path_condition_related_to_branch, bridged
// to solver expressions (spec §4.6 point 2).
func (e *Encoder) EncodePathCondition() solverapi.Expr {
	exprs := make([]solverapi.Expr, 0, len(e.trace.PathConditionRelatedToBranch))
	for _, ref := range e.trace.PathConditionRelatedToBranch {
		exprs = append(exprs, e.bridge(ref.Expr))
	}
	return andAll(e.solver, exprs)
}

// EncodeBranchConditions conjoins every recorded branch's condition in its
// taken direction (bridged, not negated) — the set of constraints package
// taint's symbolic-taint refinement calls "preceding branches" (spec
// §4.7) when it builds the sync-aware formula a taint-tag check is
// checked against.
func (e *Encoder) EncodeBranchConditions() solverapi.Expr {
	exprs := make([]solverapi.Expr, 0, len(e.trace.BrExpr))
	for _, ref := range e.trace.BrExpr {
		cond := e.bridge(ref.Expr)
		if ev := e.trace.Event(ref.Event); ev != nil && !ev.BrCondition {
			cond = e.solver.Not(cond)
		}
		exprs = append(exprs, cond)
	}
	return andAll(e.solver, exprs)
}

// EncodeMemoryModel builds the per-thread total-order constraints of spec
// §4.6 point 3: E(E_INIT) = 0, E_INIT < E(first) and E(last) < E_FINAL per
// thread, E(prev) < E(next) for consecutive distinct-named events within a
// thread, and E_FINAL = unique_event_count + 100.
func (e *Encoder) EncodeMemoryModel() solverapi.Expr {
	// E_INIT is constrained to equal 0 and never appears anywhere else, so
	// it is substituted directly as the literal 0 rather than introduced
	// as its own named constant.
	eInit := e.solver.Int(0)
	var exprs []solverapi.Expr

	unique := make(map[string]struct{})
	for _, ev := range e.trace.Events {
		unique[orderName(ev)] = struct{}{}
	}
	eFinal := e.solver.Int(int64(len(unique) + EFinalOffset))

	for _, tid := range e.sortedThreadIDs() {
		ids := e.trace.Threads[tid]
		if len(ids) == 0 {
			continue
		}

		var names []string
		var firstEv, lastEv *event.Event
		for _, id := range ids {
			ev := e.trace.Event(id)
			if ev == nil || ev.Kind == event.Ignore {
				continue
			}
			if firstEv == nil {
				firstEv = ev
			}
			lastEv = ev
			name := orderName(ev)
			if len(names) == 0 || names[len(names)-1] != name {
				names = append(names, name)
			}
		}
		if firstEv == nil {
			continue
		}

		exprs = append(exprs, e.solver.Lt(eInit, e.order(firstEv)))
		exprs = append(exprs, e.solver.Lt(e.order(lastEv), eFinal))

		for i := 1; i < len(names); i++ {
			exprs = append(exprs, e.solver.Lt(e.orderVar(names[i-1]), e.orderVar(names[i])))
		}
	}

	return andAll(e.solver, exprs)
}

// EncodePartialOrder asserts thread-create and thread-join happens-before
// edges (spec §4.6 point 4).
func (e *Encoder) EncodePartialOrder() solverapi.Expr {
	var exprs []solverapi.Expr

	for creatorEvent, childThread := range e.trace.CreateThreadPoint {
		creator := e.trace.Event(creatorEvent)
		first := e.firstEventOfThread(childThread)
		if creator == nil || first == nil {
			continue
		}
		exprs = append(exprs, e.solver.Lt(e.order(creator), e.order(first)))
	}

	for joinerEvent, joinedThread := range e.trace.JoinThreadPoint {
		joiner := e.trace.Event(joinerEvent)
		last := e.lastEventOfThread(joinedThread)
		if joiner == nil || last == nil {
			continue
		}
		exprs = append(exprs, e.solver.Lt(e.order(last), e.order(joiner)))
	}

	return andAll(e.solver, exprs)
}

func (e *Encoder) firstEventOfThread(tid int) *event.Event {
	for _, id := range e.trace.Threads[tid] {
		if ev := e.trace.Event(id); ev != nil && ev.Kind != event.Ignore {
			return ev
		}
	}
	return nil
}

func (e *Encoder) lastEventOfThread(tid int) *event.Event {
	ids := e.trace.Threads[tid]
	for i := len(ids) - 1; i >= 0; i-- {
		if ev := e.trace.Event(ids[i]); ev != nil && ev.Kind != event.Ignore {
			return ev
		}
	}
	return nil
}

// EncodeReadFrom builds the read-from disjunction of spec §4.6 point 5 for
// every relevant (branch-closure) read of every relevant write location.
func (e *Encoder) EncodeReadFrom() solverapi.Expr {
	var outer []solverapi.Expr

	names := make([]string, 0, len(e.trace.ReadSetRelatedToBranch))
	for name := range e.trace.ReadSetRelatedToBranch {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		writes := e.trace.WriteSetRelatedToBranch[name]
		for _, rid := range e.trace.ReadSetRelatedToBranch[name] {
			r := e.trace.Event(rid)
			if r == nil {
				continue
			}
			outer = append(outer, e.readFromDisjunction(r, name, writes))
		}
	}

	return andAll(e.solver, outer)
}

// readFromDisjunction builds the single read-from formula for read event r
// of location name, given candidateWrites (every write of name in the
// branch closure).
func (e *Encoder) readFromDisjunction(r *event.Event, name string, candidateWrites []event.ID) solverapi.Expr {
	w := e.relevantWrites(r, candidateWrites)

	var disjuncts []solverapi.Expr

	// (a) r reads the initial value.
	var initBranch []solverapi.Expr
	for _, wid := range w {
		we := e.trace.Event(wid)
		if we == nil {
			continue
		}
		initBranch = append(initBranch, e.solver.Lt(e.order(r), e.order(we)))
	}
	initBranch = append(initBranch, e.solver.Eq(e.valueConst(r), e.solver.BVConst(name+"_Init", e.bitWidth)))
	disjuncts = append(disjuncts, andAll(e.solver, initBranch))

	// (b) r reads from some w in W.
	for _, wid := range w {
		we := e.trace.Event(wid)
		if we == nil {
			continue
		}
		branch := []solverapi.Expr{
			e.solver.Eq(e.valueConst(r), e.valueConst(we)),
			e.solver.Lt(e.order(we), e.order(r)),
		}
		for _, otherID := range w {
			if otherID == wid {
				continue
			}
			other := e.trace.Event(otherID)
			if other == nil || other.ThreadID == we.ThreadID {
				continue
			}
			branch = append(branch, e.solver.Or(
				e.solver.Lt(e.order(other), e.order(we)),
				e.solver.Lt(e.order(r), e.order(other)),
			))
		}
		if next := e.nextWriteSameThread(we, name); next != nil {
			branch = append(branch, e.solver.Lt(e.order(r), e.order(next)))
		}
		disjuncts = append(disjuncts, andAll(e.solver, branch))
	}

	return e.solver.Or(disjuncts...)
}

// relevantWrites is W from spec §4.6 point 5: every write of name in a
// thread other than r's, plus r's own latest-write-same-thread if any.
func (e *Encoder) relevantWrites(r *event.Event, candidateWrites []event.ID) []event.ID {
	var w []event.ID
	for _, wid := range candidateWrites {
		we := e.trace.Event(wid)
		if we == nil || we.ThreadID == r.ThreadID {
			continue
		}
		w = append(w, wid)
	}
	if r.LatestWriteSameThread != event.None {
		w = append(w, r.LatestWriteSameThread)
	}
	return w
}

// nextWriteSameThread returns the next write of name in we's own thread
// after we, if any, for the read-from tightening clause.
func (e *Encoder) nextWriteSameThread(we *event.Event, name string) *event.Event {
	ids := e.trace.Threads[we.ThreadID]
	found := false
	for _, id := range ids {
		ev := e.trace.Event(id)
		if ev == nil {
			continue
		}
		if !found {
			if id == we.EventID {
				found = true
			}
			continue
		}
		if ev.Name == name && ev.IsGlobal {
			if isWriteEvent(e.trace, name, id) {
				return ev
			}
		}
	}
	return nil
}

func isWriteEvent(t *event.Trace, name string, id event.ID) bool {
	for _, wid := range t.WriteSet[name] {
		if wid == id {
			return true
		}
	}
	return false
}

// EncodeSynchronization builds the lock/unlock, wait/signal matching, and
// barrier sub-formula of spec §4.6 point 6.
func (e *Encoder) EncodeSynchronization() solverapi.Expr {
	var exprs []solverapi.Expr
	exprs = append(exprs, e.encodeLockPairs()...)
	exprs = append(exprs, e.encodeWaitSignal()...)
	exprs = append(exprs, e.encodeBarriers()...)
	return andAll(e.solver, exprs)
}

func (e *Encoder) encodeLockPairs() []solverapi.Expr {
	var exprs []solverapi.Expr
	for _, mutex := range sortedKeys(e.trace.AllLockUnlock) {
		pairs := e.trace.AllLockUnlock[mutex]
		for i := 0; i < len(pairs); i++ {
			for j := i + 1; j < len(pairs); j++ {
				pi, pj := pairs[i], pairs[j]
				if pi.ThreadID == pj.ThreadID || pi.Unlock == event.None || pj.Unlock == event.None {
					continue
				}
				ui, lj := e.trace.Event(pi.Unlock), e.trace.Event(pj.Lock)
				uj, li := e.trace.Event(pj.Unlock), e.trace.Event(pi.Lock)
				if ui == nil || lj == nil || uj == nil || li == nil {
					continue
				}
				exprs = append(exprs, e.solver.Or(
					e.solver.Lt(e.order(ui), e.order(lj)),
					e.solver.Lt(e.order(uj), e.order(li)),
				))
			}
		}
	}
	return exprs
}

func (e *Encoder) encodeWaitSignal() []solverapi.Expr {
	var exprs []solverapi.Expr
	for _, cond := range sortedKeys(e.trace.AllWait) {
		waits := e.trace.AllWait[cond]
		signals := e.trace.AllSignal[cond]
		if len(waits) == 0 || len(signals) == 0 {
			continue
		}

		matches := make(map[[2]int]solverapi.Expr)
		for wi, wl := range waits {
			we := e.trace.Event(wl.Wait)
			for si, sid := range signals {
				se := e.trace.Event(sid)
				if we == nil || se == nil {
					continue
				}
				m := e.solver.IntConst(matchVarName(cond, wi, si))
				matches[[2]int{wi, si}] = m
				exprs = append(exprs, e.solver.Or(e.solver.Eq(m, e.solver.Int(0)), e.solver.Eq(m, e.solver.Int(1))))
				if we.ThreadID == se.ThreadID {
					exprs = append(exprs, e.solver.Eq(m, e.solver.Int(0)))
				}
				lockByWait := e.trace.Event(wl.LockByWait)
				matchedImplies := e.solver.And(
					e.solver.Lt(e.order(we), e.order(se)),
				)
				if lockByWait != nil {
					matchedImplies = e.solver.And(matchedImplies, e.solver.Lt(e.order(se), e.order(lockByWait)))
				}
				exprs = append(exprs, e.solver.Implies(e.solver.Eq(m, e.solver.Int(1)), matchedImplies))
			}
		}

		for wi := range waits {
			var sum solverapi.Expr
			for si := range signals {
				m, ok := matches[[2]int{wi, si}]
				if !ok {
					continue
				}
				if sum == nil {
					sum = m
				} else {
					sum = e.solver.Plus(sum, m)
				}
			}
			if sum != nil {
				exprs = append(exprs, e.solver.Or(
					e.solver.Eq(sum, e.solver.Int(0)),
					e.solver.Eq(sum, e.solver.Int(1)),
				), e.solver.Not(e.solver.Eq(sum, e.solver.Int(0))))
			}
		}

		for si := range signals {
			var sum solverapi.Expr
			for wi := range waits {
				m, ok := matches[[2]int{wi, si}]
				if !ok {
					continue
				}
				if sum == nil {
					sum = m
				} else {
					sum = e.solver.Plus(sum, m)
				}
			}
			if sum != nil {
				exprs = append(exprs, e.solver.Or(
					e.solver.Eq(sum, e.solver.Int(0)),
					e.solver.Eq(sum, e.solver.Int(1)),
				))
			}
		}
	}
	return exprs
}

func matchVarName(cond string, waitIdx, signalIdx int) string {
	return "m_" + cond + "_w" + itoa(waitIdx) + "_s" + itoa(signalIdx)
}

func (e *Encoder) encodeBarriers() []solverapi.Expr {
	var exprs []solverapi.Expr
	for _, barrier := range sortedKeys(e.trace.AllBarrier) {
		byRound := make(map[int][]event.ID)
		for _, bw := range e.trace.AllBarrier[barrier] {
			byRound[bw.Round] = append(byRound[bw.Round], bw.Event)
		}
		for round := range byRound {
			ids := byRound[round]
			for i := 1; i < len(ids); i++ {
				a, b := e.trace.Event(ids[i-1]), e.trace.Event(ids[i])
				if a == nil || b == nil {
					continue
				}
				exprs = append(exprs, e.solver.Eq(e.order(a), e.order(b)))
			}
		}
	}
	return exprs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Encode asserts all six sub-formulas into the Solver's current scope and
// returns their conjunction. Callers wanting a speculative query should
// Push before calling Encode-derived helpers (VerifyAssertion and
// FlipIfBranches do this themselves) and Pop after.
func (e *Encoder) Encode() solverapi.Expr {
	e.trace.MarkLatestWrites()
	conj := e.solver.And(
		e.EncodeInitialValues(),
		e.EncodePathCondition(),
		e.EncodeMemoryModel(),
		e.EncodePartialOrder(),
		e.EncodeReadFrom(),
		e.EncodeSynchronization(),
	)
	e.solver.Add(conj)
	return conj
}
