// Package schedule provides the pluggable scheduling policies shared by the
// thread scheduler and the per-synchronization-object wait-list schedulers
// (mutex blocked lists, condition wait lists, barrier wait lists all pick
// their next waiter using the same small set of policies).
//
// Each concrete policy is a generic Queue[T]; Guided additionally wraps a
// sub-Queue and a forced key sequence (the thread-id order mandated by a
// Prefix), falling back to the sub-Queue once that sequence is exhausted.
package schedule

// Queue is a polymorphic scheduling policy over items of type T (typically
// *thread.Thread or *syncmgr.WaitParam). Implementations are not expected
// to be safe for concurrent use — callers serialize access to the owning
// scheduler/manager.
type Queue[T any] interface {
	// SelectCurrent returns the item the policy currently favors, without
	// removing it, or the zero value and false if the queue is empty.
	SelectCurrent() (T, bool)
	// SelectNext advances the policy's internal state (if applicable, e.g.
	// round-robin rotation) and returns the next item to run, without
	// removing it.
	SelectNext() (T, bool)
	// Add enqueues item.
	Add(item T)
	// Remove removes item if present, reporting whether it was found.
	Remove(item T) bool
	// PopAll drains and returns every item, in policy order.
	PopAll() []T
	// PeekAll returns every enqueued item, in policy order, without
	// removing them.
	PeekAll() []T
	// Len reports the number of enqueued items.
	Len() int
	// Empty reports whether the queue holds no items.
	Empty() bool
	// Reschedule applies the policy's periodic reordering (a no-op for
	// policies without one, e.g. FIFS and Preemptive).
	Reschedule()
	// Clone returns an independent deep copy of the queue's scheduling
	// state (not of the items themselves), for ExecutionState branching.
	Clone() Queue[T]
}
