package thread

import (
	"github.com/joeycumines/klee-mta-go/kind"
	"github.com/joeycumines/klee-mta-go/syncmgr"
)

// ExecutionState is the mutable state of one in-progress simulated
// execution: every thread created so far, the scheduler choosing among the
// schedulable ones, and the synchronization managers those threads block
// on. One ExecutionState corresponds to one Trace being recorded.
type ExecutionState struct {
	Threads  *List
	Sched    *Scheduler
	Mutexes  *syncmgr.MutexManager
	Conds    *syncmgr.CondManager
	Barriers *syncmgr.BarrierManager

	nextThreadID int
}

// NewExecutionState returns a fresh ExecutionState with a single runnable
// main thread (id 1, no parent) already added to both the thread list and
// the scheduler.
func NewExecutionState(schedType SchedulerType) *ExecutionState {
	mutexes := syncmgr.NewMutexManager()
	conds := syncmgr.NewCondManager(mutexes)
	s := &ExecutionState{
		Threads:      NewList(),
		Sched:        New(schedType),
		Mutexes:      mutexes,
		Conds:        conds,
		Barriers:     syncmgr.NewBarrierManager(),
		nextThreadID: 1,
	}
	main := New(s.nextThreadID, 0, false)
	s.nextThreadID++
	s.Threads.Add(main)
	s.Sched.Add(main)
	return s
}

// SpawnThread creates a new thread with parentID as its creator, adds it to
// the thread list and the scheduler, and returns it.
func (s *ExecutionState) SpawnThread(parentID int) *Thread {
	t := New(s.nextThreadID, parentID, true)
	s.nextThreadID++
	s.Threads.Add(t)
	s.Sched.Add(t)
	return t
}

// Current returns the thread the scheduler currently favors to run, or nil
// if none is schedulable (the execution has deadlocked or finished).
//
// A Guided scheduler replaying a prefix is a third possibility: its next
// mandated thread-id may no longer be schedulable (the thread it refers to
// has since blocked or terminated). Current returns nil for that case too,
// but MandateFailed distinguishes it from an ordinary deadlock/finish so a
// driver can raise kind.ScheduleExhausted per spec §4.3/§7 instead of
// silently running whatever else happens to be ready.
func (s *ExecutionState) Current() *Thread {
	t, ok := s.Sched.SelectCurrent()
	if !ok {
		return nil
	}
	return t
}

// MandateFailed reports whether the most recent Current/Sched.SelectNext
// call failed because a Guided prefix's mandated thread-id was not
// schedulable. CurrentErr wraps this into a *kind.Error directly.
func (s *ExecutionState) MandateFailed() bool { return s.Sched.MandateFailed() }

// CurrentErr is Current, but returns a *kind.Error of kind
// ScheduleExhausted instead of a nil thread when a Guided prefix's
// mandated thread-id has stopped being schedulable, per spec §4.3/§7's
// "execution state is terminated" contract for that condition.
func (s *ExecutionState) CurrentErr() (*Thread, error) {
	t := s.Current()
	if t == nil && s.MandateFailed() {
		return nil, kind.New(kind.ScheduleExhausted, "guided prefix mandates a thread id that is not currently schedulable")
	}
	return t, nil
}

// Block transitions t out of Runnable into the given blocked state and
// removes it from the scheduler's ready queue. newState must not be
// Runnable or Terminated — use Unblock or Terminate for those transitions.
func (s *ExecutionState) Block(t *Thread, newState State) {
	t.State = newState
	s.Sched.Remove(t)
}

// Unblock transitions t back to Runnable and re-adds it to the scheduler.
func (s *ExecutionState) Unblock(t *Thread) {
	t.State = Runnable
	s.Sched.Add(t)
}

// Terminate transitions t to Terminated and removes it from the scheduler.
func (s *ExecutionState) Terminate(t *Thread) {
	t.State = Terminated
	s.Sched.Remove(t)
}

// TryLockMutex attempts to lock mutexName for t. On success t remains
// Runnable; on failure t is transitioned to MutexBlocked (but, per the
// original semantics, MutexBlocked threads remain schedulable so the
// scheduler can retry the attempt on a later turn).
func (s *ExecutionState) TryLockMutex(t *Thread, mutexName string) bool {
	if s.Mutexes.TryLock(mutexName, t.ID) {
		if t.State == MutexBlocked {
			t.State = Runnable
		}
		return true
	}
	t.State = MutexBlocked
	t.WaitingMutex = mutexName
	return true // still schedulable: caller re-attempts next turn
}

// IsDeadlocked reports whether no thread in the thread list is schedulable
// and at least one thread has not terminated — the hallmark of a deadlock
// (every remaining thread permanently blocked on cond/barrier/join).
func (s *ExecutionState) IsDeadlocked() bool {
	unfinished := s.Threads.Unfinished()
	if len(unfinished) == 0 {
		return false
	}
	for _, t := range unfinished {
		if t.IsSchedulable() {
			return false
		}
	}
	return true
}

// Clone returns an independent deep copy of the execution state, used when
// branching exploration at a symbolic decision point: mutating the clone's
// threads, scheduler, or synchronization managers never affects s.
func (s *ExecutionState) Clone() *ExecutionState {
	mutexes := s.Mutexes.Clone()
	return &ExecutionState{
		Threads:      s.Threads.Clone(),
		Sched:        s.Sched.Clone(),
		Mutexes:      mutexes,
		Conds:        s.Conds.Clone(mutexes),
		Barriers:     s.Barriers.Clone(),
		nextThreadID: s.nextThreadID,
	}
}
