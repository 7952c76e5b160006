package event

import "github.com/joeycumines/klee-mta-go/kind"

// CheckInvariants validates the universal trace invariants from spec §3 and
// §8 (testable property 1 and 2): per-thread event-id monotonicity, path
// ordering, read/write set membership, lock pairing, and wait/signal
// matching. It returns every violation found; an empty slice means the
// trace is structurally sound. ApplyInvariantResult marks the trace Failed
// when the slice is non-empty.
func (t *Trace) CheckInvariants() []error {
	var errs []error

	for _, tid := range t.sortedThreadIDs() {
		ids := t.Threads[tid]
		for i, id := range ids {
			ev := t.Event(id)
			if ev == nil {
				errs = append(errs, kind.New(kind.InvariantViolation, "event: thread %d position %d: dangling id %d", tid, i, id))
				continue
			}
			if ev.ThreadID != tid {
				errs = append(errs, kind.New(kind.InvariantViolation, "event: event %d recorded under thread %d but has ThreadID %d", id, tid, ev.ThreadID))
			}
			if ev.ThreadEventID != i+1 {
				errs = append(errs, kind.New(kind.InvariantViolation, "event: thread %d event %d: ThreadEventID %d != position %d", tid, id, ev.ThreadEventID, i+1))
			}
			if i > 0 {
				prev := t.Event(ids[i-1])
				if prev != nil && !(prev.EventID < ev.EventID) {
					errs = append(errs, kind.New(kind.InvariantViolation, "event: thread %d: event id %d does not strictly increase after %d", tid, ev.EventID, prev.EventID))
				}
			}
		}
	}

	for i := 1; i < len(t.Path); i++ {
		a, b := t.Event(t.Path[i-1]), t.Event(t.Path[i])
		if a == nil || b == nil {
			continue
		}
		if a.ThreadID == b.ThreadID && !(a.EventID < b.EventID) {
			errs = append(errs, kind.New(kind.InvariantViolation, "event: path position %d: same-thread events out of order (%d then %d)", i, a.EventID, b.EventID))
		}
	}

	for name, ids := range t.ReadSet {
		for _, id := range ids {
			ev := t.Event(id)
			if ev == nil || ev.Name != name || !ev.IsGlobal {
				errs = append(errs, kind.New(kind.InvariantViolation, "event: read_set[%q] contains event %d with name=%q is_global=%v", name, id, ev.Name, ev.IsGlobal))
			}
		}
	}
	for name, ids := range t.WriteSet {
		for _, id := range ids {
			ev := t.Event(id)
			if ev == nil || ev.Name != name || !ev.IsGlobal {
				errs = append(errs, kind.New(kind.InvariantViolation, "event: write_set[%q] contains event %d with name=%q is_global=%v", name, id, ev.Name, ev.IsGlobal))
			}
		}
	}

	for mutex, pairs := range t.AllLockUnlock {
		for _, p := range pairs {
			lock := t.Event(p.Lock)
			if lock == nil || lock.ThreadID != p.ThreadID {
				errs = append(errs, kind.New(kind.InvariantViolation, "event: lock pair on %q: lock event %d not owned by thread %d", mutex, p.Lock, p.ThreadID))
				continue
			}
			if p.Unlock == None {
				continue // incomplete pair, permitted at trace end
			}
			unlock := t.Event(p.Unlock)
			if unlock == nil || unlock.ThreadID != p.ThreadID {
				errs = append(errs, kind.New(kind.InvariantViolation, "event: lock pair on %q: unlock event %d not owned by thread %d", mutex, p.Unlock, p.ThreadID))
				continue
			}
			if !(unlock.EventID > lock.EventID) {
				errs = append(errs, kind.New(kind.InvariantViolation, "event: lock pair on %q: unlock %d does not follow lock %d", mutex, p.Unlock, p.Lock))
			}
		}
	}

	for cond, waits := range t.AllWait {
		for _, w := range waits {
			waitEv := t.Event(w.Wait)
			if waitEv == nil {
				continue
			}
			matched := false
			for _, sigID := range t.AllSignal[cond] {
				if sig := t.Event(sigID); sig != nil && sig.ThreadID != waitEv.ThreadID {
					matched = true
					break
				}
			}
			if !matched {
				errs = append(errs, kind.New(kind.InvariantViolation, "event: wait on %q by thread %d (event %d) has no matching signal from another thread", cond, waitEv.ThreadID, w.Wait))
			}
		}
	}

	for name, waits := range t.AllBarrier {
		byRound := make(map[int]map[int]bool)
		for _, bw := range waits {
			ev := t.Event(bw.Event)
			if ev == nil {
				continue
			}
			if byRound[bw.Round] == nil {
				byRound[bw.Round] = make(map[int]bool)
			}
			if byRound[bw.Round][ev.ThreadID] {
				errs = append(errs, kind.New(kind.InvariantViolation, "event: barrier %q round %d: thread %d waits more than once in the same round", name, bw.Round, ev.ThreadID))
			}
			byRound[bw.Round][ev.ThreadID] = true
		}
	}

	return errs
}

// ApplyInvariantResult stores the result of CheckInvariants and, per spec
// §7's propagation policy, marks the trace Failed if any invariant was
// violated (an InvariantViolation short-circuits encoding).
func (t *Trace) ApplyInvariantResult() {
	t.InvariantViolations = t.CheckInvariants()
	if len(t.InvariantViolations) > 0 {
		t.Type = Failed
	}
}
