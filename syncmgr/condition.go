package syncmgr

import (
	"github.com/joeycumines/klee-mta-go/schedule"
)

// Condition is a named condition variable: threads call Wait to join its
// wait list (after releasing the associated mutex, a step the caller is
// responsible for), and Signal/Broadcast to release one or all of them (the
// caller is responsible for the released thread(s) re-acquiring the mutex
// before running again).
type Condition struct {
	ID   int
	Name string

	waiting schedule.Queue[*WaitParam]
}

// NewCondition returns a Condition whose wait list is ordered by waiting,
// one of the schedule package's Queue implementations (FIFS, Preemptive, or
// a Guided wrapper around one of those).
func NewCondition(id int, name string, waiting schedule.Queue[*WaitParam]) *Condition {
	return &Condition{ID: id, Name: name, waiting: waiting}
}

// Wait enqueues param on the condition's wait list.
func (c *Condition) Wait(param *WaitParam) {
	c.waiting.Add(param)
}

// Signal releases the scheduler-selected waiter, removing and returning it,
// or returns nil if no thread is waiting.
func (c *Condition) Signal() *WaitParam {
	param, ok := c.waiting.SelectNext()
	if !ok {
		return nil
	}
	c.waiting.Remove(param)
	return param
}

// Broadcast releases every waiting thread, in scheduler order.
func (c *Condition) Broadcast() []*WaitParam {
	return c.waiting.PopAll()
}

// Len reports the number of threads currently waiting.
func (c *Condition) Len() int { return c.waiting.Len() }

// Clone returns an independent copy of the condition and its wait list.
func (c *Condition) Clone() *Condition {
	return &Condition{ID: c.ID, Name: c.Name, waiting: c.waiting.Clone()}
}
