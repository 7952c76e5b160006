package thread

// List owns every thread created during an execution, including terminated
// ones (needed for join bookkeeping and trace reconstruction), indexed by
// thread id for O(1) lookup.
type List struct {
	order []int
	byID  map[int]*Thread
}

// NewList returns an empty thread list.
func NewList() *List {
	return &List{byID: make(map[int]*Thread)}
}

// Add registers t, appending to iteration order. Panics if t.ID is already
// present — thread ids are assigned once and never reused within a List.
func (l *List) Add(t *Thread) {
	if _, ok := l.byID[t.ID]; ok {
		panic("thread: duplicate thread id added to List")
	}
	l.order = append(l.order, t.ID)
	l.byID[t.ID] = t
}

// ByID returns the thread with the given id, or nil if absent.
func (l *List) ByID(threadID int) *Thread {
	return l.byID[threadID]
}

// Len returns the number of threads ever added (including terminated ones).
func (l *List) Len() int { return len(l.order) }

// Last returns the most recently added thread, or nil if the list is empty.
func (l *List) Last() *Thread {
	if len(l.order) == 0 {
		return nil
	}
	return l.byID[l.order[len(l.order)-1]]
}

// Unfinished returns every thread not in the Terminated state, in creation
// order.
func (l *List) Unfinished() []*Thread {
	var out []*Thread
	for _, id := range l.order {
		t := l.byID[id]
		if !t.IsTerminated() {
			out = append(out, t)
		}
	}
	return out
}

// All returns every thread in creation order.
func (l *List) All() []*Thread {
	out := make([]*Thread, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.byID[id])
	}
	return out
}

// Clone returns an independent deep copy of the list (each Thread is itself
// cloned), for branching an ExecutionState.
func (l *List) Clone() *List {
	clone := &List{order: append([]int(nil), l.order...), byID: make(map[int]*Thread, len(l.byID))}
	for id, t := range l.byID {
		clone.byID[id] = t.Clone()
	}
	return clone
}
