package thread

import (
	"github.com/joeycumines/klee-mta-go/event"
	"github.com/joeycumines/klee-mta-go/schedule"
)

// SchedulerType names one of the four thread-scheduling policies an
// ExecutionState can run with.
type SchedulerType int

const (
	// RoundRobin rotates the running thread out after a fixed number of
	// consecutive instructions.
	RoundRobin SchedulerType = iota
	// FIFS runs ready threads in the order they became ready.
	FIFS
	// Preemptive always runs the most recently readied thread.
	Preemptive
	// Guided replays a forced thread-id order drawn from a Prefix, then
	// falls back to a sub-scheduler once the prefix is exhausted.
	Guided
)

// Scheduler selects, among a pool of schedulable threads, which one runs
// next. It is a thin, typed wrapper over schedule.Queue[*Thread] that also
// tracks which SchedulerType it was built with (needed when cloning an
// ExecutionState, so the clone's scheduler matches).
type Scheduler struct {
	typ   SchedulerType
	queue schedule.Queue[*Thread]
}

func newQueue(t SchedulerType) schedule.Queue[*Thread] {
	switch t {
	case RoundRobin:
		return schedule.NewRoundRobin[*Thread]()
	case Preemptive:
		return schedule.NewPreemptive[*Thread]()
	default:
		return schedule.NewFIFS[*Thread]()
	}
}

// New returns a Scheduler using the named policy.
func New(t SchedulerType) *Scheduler {
	return &Scheduler{typ: t, queue: newQueue(t)}
}

// NewGuided returns a Scheduler that replays prefix's thread-id order,
// falling back to a sub-scheduler of type fallback once exhausted.
func NewGuided(fallback SchedulerType, prefix *event.Prefix, threadIDOf func(event.Ref) int) *Scheduler {
	var keys []int
	for _, ref := range prefix.Events {
		keys = append(keys, threadIDOf(ref))
	}
	sub := newQueue(fallback)
	guided := schedule.NewGuided[*Thread, int](sub, func(t *Thread) int { return t.ID }, keys)
	return &Scheduler{typ: Guided, queue: guided}
}

// Type reports which policy this Scheduler was constructed with.
func (s *Scheduler) Type() SchedulerType { return s.typ }

// SelectCurrent returns the currently favored thread without advancing any
// internal state.
func (s *Scheduler) SelectCurrent() (*Thread, bool) { return s.queue.SelectCurrent() }

// SelectNext advances the scheduler and returns the next thread to run.
func (s *Scheduler) SelectNext() (*Thread, bool) { return s.queue.SelectNext() }

// mandateReporter is implemented by schedule.Guided. Scheduler only ever
// holds its queue behind the schedule.Queue[*Thread] interface, so it
// type-asserts against this rather than importing schedule.Guided directly.
type mandateReporter interface{ MandateFailed() bool }

// MandateFailed reports whether the last SelectCurrent/SelectNext call
// failed because a Guided scheduler's forced thread-id, from a replayed
// prefix, was not among the currently-schedulable threads. Always false
// for the other three policies.
func (s *Scheduler) MandateFailed() bool {
	mr, ok := s.queue.(mandateReporter)
	return ok && mr.MandateFailed()
}

// Add enqueues t as schedulable.
func (s *Scheduler) Add(t *Thread) { s.queue.Add(t) }

// Remove removes t (it has blocked or terminated).
func (s *Scheduler) Remove(t *Thread) bool { return s.queue.Remove(t) }

// PopAll drains and returns every schedulable thread.
func (s *Scheduler) PopAll() []*Thread { return s.queue.PopAll() }

// Len reports how many threads are currently schedulable.
func (s *Scheduler) Len() int { return s.queue.Len() }

// Empty reports whether no thread is currently schedulable.
func (s *Scheduler) Empty() bool { return s.queue.Empty() }

// Reschedule applies the policy's periodic reordering (RoundRobin's
// rotate-after-MaxInst rule; a no-op for the other policies).
func (s *Scheduler) Reschedule() { s.queue.Reschedule() }

// Clone returns an independent copy of the scheduler's internal state.
func (s *Scheduler) Clone() *Scheduler {
	return &Scheduler{typ: s.typ, queue: s.queue.Clone()}
}
