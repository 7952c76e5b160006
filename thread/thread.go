// Package thread models a single simulated thread's execution state and the
// pool of threads making up one execution, together with the scheduler
// deciding which schedulable thread runs next.
package thread

import (
	"fmt"

	"github.com/joeycumines/klee-mta-go/vectorclock"
)

// State is a Thread's current blocking status.
type State int

const (
	// Runnable threads may be selected to execute their next event.
	Runnable State = iota
	// MutexBlocked threads are waiting to acquire a held mutex. Unlike the
	// other blocked states, a mutex-blocked thread remains schedulable: the
	// scheduler retries the lock attempt each time it is selected.
	MutexBlocked
	// CondBlocked threads are waiting on a condition variable.
	CondBlocked
	// BarrierBlocked threads are waiting at a barrier.
	BarrierBlocked
	// JoinBlocked threads are waiting for another thread to terminate.
	JoinBlocked
	// Terminated threads have finished and will never run again.
	Terminated
)

func (s State) String() string {
	switch s {
	case Runnable:
		return "RUNNABLE"
	case MutexBlocked:
		return "MUTEX_BLOCKED"
	case CondBlocked:
		return "COND_BLOCKED"
	case BarrierBlocked:
		return "BARRIER_BLOCKED"
	case JoinBlocked:
		return "JOIN_BLOCKED"
	case Terminated:
		return "TERMINATED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Thread is a single simulated thread of control.
type Thread struct {
	ID            int
	ParentID      int
	HasParent     bool
	State         State
	VectorClock   vectorclock.Clock
	NextEventID   int
	WaitingMutex  string
	WaitingCond   string
	WaitingJoinID int
}

// New returns a Runnable thread with id threadID, a fresh vector clock, and
// parentID recorded if hasParent (the program's initial thread has none).
func New(threadID int, parentID int, hasParent bool) *Thread {
	return &Thread{ID: threadID, ParentID: parentID, HasParent: hasParent, State: Runnable}
}

// IsRunnable reports whether the thread is in the Runnable state.
func (t *Thread) IsRunnable() bool { return t.State == Runnable }

// IsMutexBlocked reports whether the thread is blocked on a mutex.
func (t *Thread) IsMutexBlocked() bool { return t.State == MutexBlocked }

// IsSchedulable reports whether the scheduler may select this thread: it
// must be either Runnable, or MutexBlocked (so the scheduler can retry the
// lock attempt — matching the original tool's isSchedulable definition).
func (t *Thread) IsSchedulable() bool {
	return t.IsRunnable() || t.IsMutexBlocked()
}

// IsTerminated reports whether the thread has finished.
func (t *Thread) IsTerminated() bool { return t.State == Terminated }

func (t *Thread) String() string {
	return fmt.Sprintf("Thread{id=%d state=%s}", t.ID, t.State)
}

// Clone returns an independent copy of the thread, for branching an
// ExecutionState.
func (t *Thread) Clone() *Thread {
	clone := *t
	return &clone
}
