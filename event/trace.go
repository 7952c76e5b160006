package event

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joeycumines/klee-mta-go/kind"
)

// TraceType classifies a completed Trace.
type TraceType int

const (
	// Unique traces have not been seen before (by RuntimeDataManager's
	// dedup check) and are candidates for encoding.
	Unique TraceType = iota
	// Redundant traces are behaviourally equivalent, by abstract
	// event-kind sequence, to one already explored.
	Redundant
	// Failed traces broke a recording-time invariant (e.g. a condition
	// variable wait with no matching signal anywhere) and are dropped
	// from encoding.
	Failed
)

func (t TraceType) String() string {
	switch t {
	case Unique:
		return "UNIQUE"
	case Redundant:
		return "REDUNDANT"
	case Failed:
		return "FAILED"
	default:
		return fmt.Sprintf("TraceType(%d)", int(t))
	}
}

// LockPair records one lock/unlock pair recorded against a named mutex.
// Unlock is None if the pair is incomplete (the thread terminated, or the
// trace ended, while still holding the lock).
type LockPair struct {
	ThreadID int
	Mutex    string
	Lock     ID
	Unlock   ID // None if incomplete
}

// WaitLock pairs a recorded cond_wait event with the lock-reacquire event
// conceptually embedded within the wait primitive (pthread_cond_wait
// re-acquires its mutex before returning).
type WaitLock struct {
	Wait        ID
	LockByWait  ID
}

// BarrierWait records one barrier_wait event along with the release round
// it belongs to, so the encoder can assert order-variable equality across
// every wait in a single round.
type BarrierWait struct {
	Event ID
	Round int
}

// ExprRef tags an opaque symbolic expression with the event that produced
// it, since Trace's raw expression logs (store/br/assert/rw/path-condition)
// need to trace back to their owning event during filtering and encoding.
type ExprRef struct {
	Event ID
	Expr  Expr
}

// Trace is the record of one full simulated execution.
type Trace struct {
	ID            int
	nextEventID   ID
	Events        []*Event // arena, indexed by ID-1 (ID 0 == None is invalid)
	Threads       map[int][]ID
	Path          []ID
	Type          TraceType

	CreateThreadPoint map[ID]int // event -> spawned thread id
	JoinThreadPoint   map[ID]int // event -> joined thread id

	ReadSet  map[string][]ID
	WriteSet map[string][]ID

	AllLockUnlock map[string][]*LockPair
	AllWait       map[string][]*WaitLock
	AllSignal     map[string][]ID
	AllBarrier    map[string][]BarrierWait

	GlobalVariableInitializer map[string]int64
	GlobalVariableFinal       map[string]int64

	StoreExpr      []ExprRef
	BrExpr         []ExprRef
	AssertExpr     []ExprRef
	RWExpr         []ExprRef
	PathCondition  []ExprRef

	// ForkExpr holds path conditions committed to by an out-of-scope
	// symbolic-execution engine's own fork decisions (via
	// listener.SymbolicListener.RecordPathCondition), as opposed to
	// PathCondition, which filter.FilterUseless derives and overwrites every
	// pass. Unlike PathCondition, FilterUseless treats ForkExpr the same way
	// it treats BrExpr/AssertExpr: always seeded into the dependency
	// frontier and always re-included in the rebuilt PathCondition.
	ForkExpr []ExprRef

	// Derived by filter.FilterUseless; zero-valued until then.
	BrRelatedSymbolicExpr     []map[string]struct{}
	AssertRelatedSymbolicExpr []map[string]struct{}
	ForkRelatedSymbolicExpr   []map[string]struct{}
	AllRelatedSymbolicExprs   map[string]map[string]struct{}
	RelatedSymbolicExpr       map[string]struct{}
	VarThread                 map[string]int // 0 == shared, -1 == nobody relevant
	PathConditionRelatedToBranch []ExprRef
	ReadSetRelatedToBranch       map[string][]ID
	WriteSetRelatedToBranch      map[string][]ID

	// Taint book-keeping, populated by package taint.
	TaintSymbolicExpr   map[string]struct{}
	UntaintSymbolicExpr map[string]struct{}
	PotentialTaint      map[string]struct{}
	DTAMSerial          map[string]struct{}
	DTAMParallel        map[string]struct{}
	DTAMHybrid          map[string]struct{}
	TaintPTS            []string
	NoTaintPTS          []string

	// InvariantViolations accumulates errors discovered by CheckInvariants.
	InvariantViolations []error
}

// NewTrace allocates an empty Trace ready to receive recorder events.
func NewTrace(id int) *Trace {
	return &Trace{
		ID:                        id,
		nextEventID:               1,
		Threads:                   make(map[int][]ID),
		CreateThreadPoint:         make(map[ID]int),
		JoinThreadPoint:           make(map[ID]int),
		ReadSet:                   make(map[string][]ID),
		WriteSet:                  make(map[string][]ID),
		AllLockUnlock:             make(map[string][]*LockPair),
		AllWait:                   make(map[string][]*WaitLock),
		AllSignal:                 make(map[string][]ID),
		AllBarrier:                make(map[string][]BarrierWait),
		GlobalVariableInitializer: make(map[string]int64),
		GlobalVariableFinal:       make(map[string]int64),
	}
}

// InsertEvent assigns this event its EventID/ThreadEventID, appends it to
// the owning Trace's arena, per-thread list, and path, and returns its ID.
func (t *Trace) InsertEvent(threadID int, ev *Event) ID {
	ev.ThreadID = threadID
	ev.EventID = t.nextEventID
	t.nextEventID++

	ev.ThreadEventID = len(t.Threads[threadID]) + 1

	t.Events = append(t.Events, ev)
	t.Threads[threadID] = append(t.Threads[threadID], ev.EventID)
	t.Path = append(t.Path, ev.EventID)

	return ev.EventID
}

// Event resolves an ID to its Event, or nil if out of range / None.
func (t *Trace) Event(id ID) *Event {
	if id == None || int(id) > len(t.Events) {
		return nil
	}
	return t.Events[id-1]
}

// InsertThreadCreate records a thread-create edge: creatorEvent spawned
// childThread.
func (t *Trace) InsertThreadCreate(creatorEvent ID, childThread int) {
	t.CreateThreadPoint[creatorEvent] = childThread
}

// InsertThreadJoin records a thread-join edge: joinerEvent joined
// joinedThread.
func (t *Trace) InsertThreadJoin(joinerEvent ID, joinedThread int) {
	t.JoinThreadPoint[joinerEvent] = joinedThread
}

// InsertWait records a cond_wait on condName, along with the lock-reacquire
// event conceptually embedded in the wait primitive.
func (t *Trace) InsertWait(condName string, wait, lockByWait ID) {
	t.AllWait[condName] = append(t.AllWait[condName], &WaitLock{Wait: wait, LockByWait: lockByWait})
}

// InsertSignal records a cond_signal event on condName.
func (t *Trace) InsertSignal(condName string, ev ID) {
	t.AllSignal[condName] = append(t.AllSignal[condName], ev)
}

// InsertBarrierWait records a barrier_wait event on barrierName for the
// given release round.
func (t *Trace) InsertBarrierWait(barrierName string, ev ID, round int) {
	t.AllBarrier[barrierName] = append(t.AllBarrier[barrierName], BarrierWait{Event: ev, Round: round})
}

// InsertForkCondition records a path condition a symbolic-execution engine
// committed to at forkEvent, via an interp.ForkState call that resolved one
// branch of a fork. A no-op if cond is nil.
func (t *Trace) InsertForkCondition(forkEvent ID, cond Expr) {
	if cond == nil {
		return
	}
	t.ForkExpr = append(t.ForkExpr, ExprRef{Event: forkEvent, Expr: cond})
}

// InsertLockOrUnlock updates the lock-pair table for mutex, either opening
// a new pair (isLock) or closing the most recent open pair for threadID
// (!isLock). It returns an error (BadSyncCall-shaped) if an unlock is
// recorded for a thread that holds no open lock on mutex.
func (t *Trace) InsertLockOrUnlock(threadID int, mutex string, ev ID, isLock bool) error {
	pairs := t.AllLockUnlock[mutex]
	if isLock {
		pairs = append(pairs, &LockPair{ThreadID: threadID, Mutex: mutex, Lock: ev, Unlock: None})
		t.AllLockUnlock[mutex] = pairs
		return nil
	}

	for i := len(pairs) - 1; i >= 0; i-- {
		if pairs[i].ThreadID == threadID && pairs[i].Unlock == None {
			pairs[i].Unlock = ev
			return nil
		}
	}
	return kind.New(kind.BadSyncCall, "unlock of mutex %q by thread %d with no open lock pair", mutex, threadID)
}

// InsertGlobalVariableInitializer records the initial concrete value of a
// tracked global.
func (t *Trace) InsertGlobalVariableInitializer(name string, val int64) {
	t.GlobalVariableInitializer[name] = val
}

// InsertGlobalVariableFinal records the final observed concrete value of a
// tracked global.
func (t *Trace) InsertGlobalVariableFinal(name string, val int64) {
	t.GlobalVariableFinal[name] = val
}

// InsertReadSet records that event ev read location name.
func (t *Trace) InsertReadSet(name string, ev ID) {
	t.ReadSet[name] = append(t.ReadSet[name], ev)
}

// InsertWriteSet records that event ev wrote location name.
func (t *Trace) InsertWriteSet(name string, ev ID) {
	t.WriteSet[name] = append(t.WriteSet[name], ev)
}

// MarkLatestWrites populates Event.LatestWriteSameThread for every global
// memory event, scanning each thread's event list in program order. This is
// encoding preparation, not part of recording (spec §3).
func (t *Trace) MarkLatestWrites() {
	for _, threadID := range t.sortedThreadIDs() {
		last := make(map[string]ID)
		for _, id := range t.Threads[threadID] {
			ev := t.Event(id)
			if ev == nil || !ev.IsMemoryAccess() {
				continue
			}
			if prev, ok := last[ev.Name]; ok {
				ev.LatestWriteSameThread = prev
			}
			// only writes extend the chain: a read observes the latest
			// write but does not itself become one.
			if _, isWrite := writeIndex(t.WriteSet[ev.Name], id); isWrite {
				last[ev.Name] = id
			}
		}
	}
}

func writeIndex(writes []ID, id ID) (int, bool) {
	for i, w := range writes {
		if w == id {
			return i, true
		}
	}
	return 0, false
}

func (t *Trace) sortedThreadIDs() []int {
	ids := make([]int, 0, len(t.Threads))
	for tid := range t.Threads {
		ids = append(ids, tid)
	}
	sort.Ints(ids)
	return ids
}

// Abstract computes a canonical representation of this trace: the
// per-thread sequence of event kinds/names plus a summary of the
// synchronization tables, used by RuntimeDataManager to detect that two
// executions are behaviourally equivalent (spec §4.8,
// is_current_trace_untested).
func (t *Trace) Abstract() string {
	var b strings.Builder
	for _, tid := range t.sortedThreadIDs() {
		fmt.Fprintf(&b, "T%d:", tid)
		for _, id := range t.Threads[tid] {
			ev := t.Event(id)
			if ev.Kind == Ignore {
				continue
			}
			fmt.Fprintf(&b, "[%s/%s]", ev.Kind, ev.GlobalName)
		}
		b.WriteByte(';')
	}

	b.WriteString("locks:")
	for _, name := range sortedKeysLockUnlock(t.AllLockUnlock) {
		fmt.Fprintf(&b, "%s=%d;", name, len(t.AllLockUnlock[name]))
	}
	b.WriteString("signals:")
	for _, name := range sortedKeysIDs(t.AllSignal) {
		fmt.Fprintf(&b, "%s=%d;", name, len(t.AllSignal[name]))
	}
	b.WriteString("barriers:")
	for _, name := range sortedKeysBarrier(t.AllBarrier) {
		fmt.Fprintf(&b, "%s=%d;", name, len(t.AllBarrier[name]))
	}
	return b.String()
}

func sortedKeysLockUnlock(m map[string][]*LockPair) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysIDs(m map[string][]ID) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysBarrier(m map[string][]BarrierWait) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
