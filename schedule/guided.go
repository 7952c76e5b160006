package schedule

// Guided composes (not inherits) a sub-Queue: while a forced key sequence
// is unexhausted, SelectCurrent/SelectNext return whichever enqueued item's
// key matches the next forced key; once the sequence is exhausted, every
// call delegates to the sub-Queue. This models the Guided thread scheduler
// of spec §4.3 generically enough to also back condition/barrier wait-list
// scheduling, which uses the same "follow a forced order, then fall back"
// shape.
//
// While unexhausted, a forced key that matches no currently-schedulable
// item is a mandate failure, not a cue to fall back to the sub-Queue:
// SelectCurrent/SelectNext report ok=false and MandateFailed reports true,
// so a caller can tell "the replayed schedule's next thread isn't
// runnable" apart from "the sub-Queue itself has nothing left".
type Guided[T comparable, K comparable] struct {
	sub           Queue[T]
	keyOf         func(T) K
	keys          []K
	pos           int
	mandateFailed bool
}

// NewGuided wraps sub with a forced key sequence. keyOf extracts the
// comparison key (e.g. thread id) from an item of type T.
func NewGuided[T comparable, K comparable](sub Queue[T], keyOf func(T) K, keys []K) *Guided[T, K] {
	return &Guided[T, K]{sub: sub, keyOf: keyOf, keys: keys}
}

// Exhausted reports whether the forced key sequence has been fully
// consumed (every subsequent selection delegates to the sub-queue).
func (q *Guided[T, K]) Exhausted() bool {
	return q.pos >= len(q.keys)
}

// find returns the first enqueued item whose key matches the one at the
// given position in the forced sequence, if any, and whether the position
// is in range at all.
func (q *Guided[T, K]) find(at int) (T, bool) {
	var zero T
	if at >= len(q.keys) {
		return zero, false
	}
	want := q.keys[at]
	for _, item := range q.sub.PeekAll() {
		if q.keyOf(item) == want {
			return item, true
		}
	}
	return zero, false
}

// MandateFailed reports whether the most recent SelectCurrent/SelectNext
// call failed specifically because the sequence is unexhausted and its
// next forced key matched no currently-schedulable item.
func (q *Guided[T, K]) MandateFailed() bool { return q.mandateFailed }

func (q *Guided[T, K]) SelectCurrent() (T, bool) {
	if !q.Exhausted() {
		item, ok := q.find(q.pos)
		q.mandateFailed = !ok
		if ok {
			return item, true
		}
		var zero T
		return zero, false
	}
	q.mandateFailed = false
	return q.sub.SelectCurrent()
}

func (q *Guided[T, K]) SelectNext() (T, bool) {
	if !q.Exhausted() {
		item, ok := q.find(q.pos)
		q.mandateFailed = !ok
		if ok {
			q.pos++
			return item, true
		}
		var zero T
		return zero, false
	}
	q.mandateFailed = false
	return q.sub.SelectNext()
}

func (q *Guided[T, K]) Add(item T) { q.sub.Add(item) }

func (q *Guided[T, K]) Remove(item T) bool { return q.sub.Remove(item) }

func (q *Guided[T, K]) PopAll() []T { return q.sub.PopAll() }

func (q *Guided[T, K]) PeekAll() []T { return q.sub.PeekAll() }

func (q *Guided[T, K]) Len() int { return q.sub.Len() }

func (q *Guided[T, K]) Empty() bool { return q.sub.Empty() }

func (q *Guided[T, K]) Reschedule() { q.sub.Reschedule() }

func (q *Guided[T, K]) Clone() Queue[T] {
	clone := &Guided[T, K]{
		sub:           q.sub.Clone(),
		keyOf:         q.keyOf,
		keys:          append([]K(nil), q.keys...),
		pos:           q.pos,
		mandateFailed: q.mandateFailed,
	}
	return clone
}
