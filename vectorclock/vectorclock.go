// Package vectorclock implements fixed-width vector clocks used to compare
// events recorded across the simulated threads of an execution trace.
//
// Unlike a general distributed-systems vector clock (e.g. one indexed by a
// dynamically joining set of processes), the width here is bounded by
// MaxThreads: thread ids are small dense integers allocated by
// thread.ExecutionState, never recycled mid-trace.
package vectorclock

import "fmt"

// MaxThreads is the hard cap on simulated threads per execution, and
// therefore the fixed width of every Clock. It mirrors the 16-thread cap
// baked into the original implementation's vector clock width.
const MaxThreads = 16

// Clock is a fixed-width vector clock. The zero value is a valid all-zero
// clock. Clock is a value type; callers needing shared mutation should take
// a pointer.
type Clock [MaxThreads]int

// New returns a zeroed Clock.
func New() Clock {
	return Clock{}
}

// Tick increments the component belonging to threadID in place.
func (c *Clock) Tick(threadID int) {
	c.mustIndex(threadID)
	c[threadID]++
}

// Merge updates c to the component-wise maximum of c and other, the usual
// vector-clock join used when a happens-before edge (thread create, thread
// join, lock hand-off, signal/wait match, barrier release) is recorded.
func (c *Clock) Merge(other Clock) {
	for i := range c {
		if other[i] > c[i] {
			c[i] = other[i]
		}
	}
}

// LessOrEqual reports whether c happens-before-or-equal other, i.e. every
// component of c is <= the corresponding component of other.
func (c Clock) LessOrEqual(other Clock) bool {
	for i := range c {
		if c[i] > other[i] {
			return false
		}
	}
	return true
}

// HappensBefore reports whether c strictly happens-before other: c <= other
// component-wise, and c != other.
func (c Clock) HappensBefore(other Clock) bool {
	return c.LessOrEqual(other) && c != other
}

// Concurrent reports whether neither clock happens-before the other.
func (c Clock) Concurrent(other Clock) bool {
	return !c.LessOrEqual(other) && !other.LessOrEqual(c)
}

func (c *Clock) mustIndex(threadID int) {
	if threadID < 0 || threadID >= MaxThreads {
		panic(fmt.Sprintf("vectorclock: thread id %d out of range [0,%d)", threadID, MaxThreads))
	}
}

// String renders the clock as a space-separated bracketed list (fmt's %v
// form of the underlying array).
func (c Clock) String() string {
	return fmt.Sprintf("%v", [MaxThreads]int(c))
}
