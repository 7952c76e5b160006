package listener

import (
	"fmt"
	"strings"

	"github.com/joeycumines/klee-mta-go/event"
	"github.com/joeycumines/klee-mta-go/interp"
	"github.com/joeycumines/klee-mta-go/kind"
	"github.com/joeycumines/klee-mta-go/thread"
)

// Granularity selects how the RecorderListener names non-memory, non-sync
// events for the purposes of the encoder's memory-model formula (spec
// §4.1/§4.6.3): instructions sharing a name get ordering constraints that
// collapse trivially within the group.
type Granularity int

const (
	// GranularityInstruction keeps every instruction's event name unique
	// within its thread — no clustering.
	GranularityInstruction Granularity = iota
	// GranularitySourceLine collapses consecutive same-thread instructions
	// from the same source line with no global/sync operation.
	GranularitySourceLine
	// GranularityBasicBlock is the basic-block level. This
	// implementation approximates basic-block boundaries with source line,
	// since interp.Instruction carries no block identifier — a documented
	// simplification, not a distinct algorithm from GranularitySourceLine.
	GranularityBasicBlock
)

// RecorderListener is the primary Listener: it classifies every executed
// instruction, appends the corresponding event to the Trace, and drives the
// thread/synchronization managers of the ExecutionState being recorded
// against (lock/unlock, wait/signal/broadcast, barrier wait, thread
// create/join).
type RecorderListener struct {
	trace       *event.Trace
	exec        *thread.ExecutionState
	interp      interp.Interpreter
	scratch     *ScratchStack
	granularity Granularity

	memIDs        map[string]int
	nextMemID     int
	accessOrdinal map[string]int
	clusterKey    map[int]string
	nextSeq       map[int]int

	// pendingJoin is allocated by NewRecorderListener but not read or
	// written by any method; join edges are recorded by NotifyJoinTarget.
	pendingJoin map[int]int
}

// NewRecorderListener returns a RecorderListener appending to trace and
// driving exec, via ip, at the given naming granularity.
func NewRecorderListener(trace *event.Trace, exec *thread.ExecutionState, ip interp.Interpreter, granularity Granularity) *RecorderListener {
	return &RecorderListener{
		trace:         trace,
		exec:          exec,
		interp:        ip,
		scratch:       NewScratchStack(),
		granularity:   granularity,
		memIDs:        make(map[string]int),
		accessOrdinal: make(map[string]int),
		clusterKey:    make(map[int]string),
		nextSeq:       make(map[int]int),
		pendingJoin:   make(map[int]int),
	}
}

func (r *RecorderListener) BeforeMain(ctx *Context, state interp.State) {
	main := r.exec.Threads.ByID(state.ThreadID())
	if main == nil {
		return
	}
	main.VectorClock.Tick(main.ID)
	r.appendVirtual(state.ThreadID(), "thread_start")
}

func (r *RecorderListener) BeforeInstruction(ctx *Context, state interp.State, ki *interp.Instruction) {
	// No pre-execution bookkeeping is required: every hook's effect is
	// recorded once the instruction has actually executed.
}

func (r *RecorderListener) ExecutionFailed(ctx *Context, state interp.State, ki *interp.Instruction) {
	r.trace.InvariantViolations = append(r.trace.InvariantViolations,
		kind.New(kind.InvariantViolation, "execution failed at %s:%d (opcode %s)", ki.File, ki.Line, ki.Opcode))
}

func (r *RecorderListener) AfterInstruction(ctx *Context, state interp.State, ki *interp.Instruction) {
	threadID := state.ThreadID()

	switch {
	case isThreadOp(ki.CalleeName):
		ctx.LastEventID = int(r.handlePthreadCall(state, ki, threadID))
	case isBranch(ki.Opcode):
		ctx.LastEventID = int(r.handleBranch(state, ki, threadID))
	case isAssertCall(ki.CalleeName):
		ctx.LastEventID = int(r.handleAssert(state, ki, threadID))
	case isMemoryOp(ki.Opcode):
		ctx.LastEventID = int(r.handleMemory(state, ki, threadID))
	default:
		ctx.LastEventID = int(r.handleNormal(state, ki, threadID))
	}
}

func isThreadOp(callee string) bool { return strings.HasPrefix(callee, "pthread") }
func isBranch(opcode string) bool   { return opcode == "br" }
func isAssertCall(callee string) bool {
	return callee == "assert" || callee == "klee_assert"
}
func isMemoryOp(opcode string) bool { return opcode == "load" || opcode == "store" }

func (r *RecorderListener) newEvent(threadID int, name string, kindVal event.Kind) *event.Event {
	t := r.exec.Threads.ByID(threadID)
	ev := &event.Event{
		Name: name,
		Kind: kindVal,
	}
	if t != nil {
		ev.VectorClock = t.VectorClock
	}
	return ev
}

func (r *RecorderListener) appendVirtual(threadID int, name string) event.ID {
	ev := r.newEvent(threadID, name, event.Virtual)
	return r.trace.InsertEvent(threadID, ev)
}

// clusterName derives this instruction's event Name under the configured
// Granularity.
func (r *RecorderListener) clusterName(threadID int, ki *interp.Instruction) string {
	switch r.granularity {
	case GranularitySourceLine, GranularityBasicBlock:
		return fmt.Sprintf("%s:%d", ki.File, ki.Line)
	default:
		r.nextSeq[threadID]++
		return fmt.Sprintf("%s:%d#%d", ki.File, ki.Line, r.nextSeq[threadID])
	}
}

func (r *RecorderListener) handleNormal(state interp.State, ki *interp.Instruction, threadID int) event.ID {
	ev := r.newEvent(threadID, r.clusterName(threadID, ki), event.Normal)
	ev.SourceFile, ev.SourceLine = ki.File, ki.Line
	ev.CalledFunction = ki.CalleeName
	t := r.exec.Threads.ByID(threadID)
	if t != nil {
		t.VectorClock.Tick(threadID)
		ev.VectorClock = t.VectorClock
	}
	return r.trace.InsertEvent(threadID, ev)
}

func (r *RecorderListener) handleBranch(state interp.State, ki *interp.Instruction, threadID int) event.ID {
	ev := r.newEvent(threadID, r.clusterName(threadID, ki), event.Normal)
	ev.SourceFile, ev.SourceLine = ki.File, ki.Line
	ev.IsConditionInst = true
	// Convention: Operands[0] != 0 marks the branch as having taken its
	// "true" arm. This stands in for a concrete interpreter's own notion of
	// "which successor actually ran" (interp.Interpreter is an external
	// collaborator; no concrete implementation ships with this module).
	ev.BrCondition = len(ki.Operands) > 0 && ki.Operands[0] != 0
	cond := r.interp.Eval(state, 0)
	if cond != nil {
		ev.RelatedSymbolicExpr = append(ev.RelatedSymbolicExpr, cond)
	}
	t := r.exec.Threads.ByID(threadID)
	if t != nil {
		t.VectorClock.Tick(threadID)
		ev.VectorClock = t.VectorClock
	}
	id := r.trace.InsertEvent(threadID, ev)
	if cond != nil {
		r.trace.BrExpr = append(r.trace.BrExpr, event.ExprRef{Event: id, Expr: cond})
	}
	return id
}

func (r *RecorderListener) handleAssert(state interp.State, ki *interp.Instruction, threadID int) event.ID {
	ev := r.newEvent(threadID, r.clusterName(threadID, ki), event.Normal)
	ev.SourceFile, ev.SourceLine = ki.File, ki.Line
	ev.CalledFunction = ki.CalleeName
	cond := r.interp.Eval(state, 0)
	if cond != nil {
		ev.RelatedSymbolicExpr = append(ev.RelatedSymbolicExpr, cond)
	}
	t := r.exec.Threads.ByID(threadID)
	if t != nil {
		t.VectorClock.Tick(threadID)
		ev.VectorClock = t.VectorClock
	}
	id := r.trace.InsertEvent(threadID, ev)
	if cond != nil {
		r.trace.AssertExpr = append(r.trace.AssertExpr, event.ExprRef{Event: id, Expr: cond})
	}
	return id
}

func (r *RecorderListener) memID(name string) int {
	if id, ok := r.memIDs[name]; ok {
		return id
	}
	r.nextMemID++
	r.memIDs[name] = r.nextMemID
	return r.nextMemID
}

func (r *RecorderListener) handleMemory(state interp.State, ki *interp.Instruction, threadID int) event.ID {
	isWrite := ki.Opcode == "store"
	operandIdx := 0
	if isWrite {
		operandIdx = 1
	}
	mo := r.interp.GetMemoryObject(state, ki, operandIdx)
	if mo == nil {
		return r.handleNormal(state, ki, threadID)
	}
	name, ok := r.interp.ResolveExact(state, mo)
	if !ok {
		// Not a tracked global (e.g. a stack/heap-local access) — record as
		// an ordinary, non-global event.
		return r.handleNormal(state, ki, threadID)
	}

	var value event.Expr
	if isWrite {
		value = r.interp.Eval(state, 0)
	}
	result := r.interp.ExecuteMemoryOperation(state, mo, isWrite, value)

	ordKey := fmt.Sprintf("%d:%s", threadID, name)
	r.accessOrdinal[ordKey]++
	ordinal := r.accessOrdinal[ordKey]
	flag := "L"
	if isWrite {
		flag = "S"
	}
	globalName := fmt.Sprintf("G%d_%s%s%d", r.memID(name), name, flag, ordinal)

	ev := r.newEvent(threadID, name, event.Normal)
	ev.SourceFile, ev.SourceLine = ki.File, ki.Line
	ev.IsGlobal = true
	ev.GlobalName = globalName
	if isWrite {
		ev.RelatedSymbolicExpr = append(ev.RelatedSymbolicExpr, value)
	} else if result != nil {
		ev.RelatedSymbolicExpr = append(ev.RelatedSymbolicExpr, result)
	}
	t := r.exec.Threads.ByID(threadID)
	if t != nil {
		t.VectorClock.Tick(threadID)
		ev.VectorClock = t.VectorClock
	}
	id := r.trace.InsertEvent(threadID, ev)

	if isWrite {
		r.trace.InsertWriteSet(name, id)
		if value != nil {
			r.trace.StoreExpr = append(r.trace.StoreExpr, event.ExprRef{Event: id, Expr: value})
		}
	} else {
		r.trace.InsertReadSet(name, id)
		if result != nil {
			r.trace.RWExpr = append(r.trace.RWExpr, event.ExprRef{Event: id, Expr: result})
		}
	}
	return id
}

func (r *RecorderListener) handlePthreadCall(state interp.State, ki *interp.Instruction, threadID int) event.ID {
	switch ki.CalleeName {
	case "pthread_create":
		return r.handleCreate(state, ki, threadID)
	case "pthread_join":
		return r.handleJoin(state, ki, threadID)
	case "pthread_mutex_lock":
		return r.handleLock(state, ki, threadID)
	case "pthread_mutex_unlock":
		return r.handleUnlock(state, ki, threadID)
	case "pthread_cond_wait":
		return r.handleCondWait(state, ki, threadID)
	case "pthread_cond_signal":
		return r.handleCondSignal(state, ki, threadID)
	case "pthread_cond_broadcast":
		return r.handleCondBroadcast(state, ki, threadID)
	case "pthread_barrier_wait":
		return r.handleBarrierWait(state, ki, threadID)
	case "pthread_barrier_init":
		return r.handleBarrierInit(state, ki, threadID)
	default:
		return r.handleNormal(state, ki, threadID)
	}
}

func (r *RecorderListener) syncEvent(threadID int, ki *interp.Instruction, name string) *event.Event {
	ev := r.newEvent(threadID, name, event.Normal)
	ev.SourceFile, ev.SourceLine = ki.File, ki.Line
	ev.CalledFunction = ki.CalleeName
	return ev
}

func (r *RecorderListener) tick(threadID int, ev *event.Event) event.ID {
	t := r.exec.Threads.ByID(threadID)
	if t != nil {
		t.VectorClock.Tick(threadID)
		ev.VectorClock = t.VectorClock
	}
	return r.trace.InsertEvent(threadID, ev)
}

func (r *RecorderListener) handleCreate(state interp.State, ki *interp.Instruction, threadID int) event.ID {
	ev := r.syncEvent(threadID, ki, "pthread_create")
	id := r.tick(threadID, ev)

	child := r.exec.SpawnThread(threadID)
	creator := r.exec.Threads.ByID(threadID)
	if creator != nil {
		child.VectorClock.Merge(creator.VectorClock)
		child.VectorClock.Tick(child.ID)
	}
	r.trace.InsertThreadCreate(id, child.ID)
	r.appendVirtual(child.ID, "thread_start")
	return id
}

func (r *RecorderListener) handleJoin(state interp.State, ki *interp.Instruction, threadID int) event.ID {
	ev := r.syncEvent(threadID, ki, "pthread_join")
	id := r.tick(threadID, ev)
	return id
}

// NotifyJoinTarget records which thread id the preceding pthread_join call
// targets, once the caller (the driving orchestrator, which alone knows how
// to resolve the joined MemoryObject to a thread id) has resolved it.
func (r *RecorderListener) NotifyJoinTarget(joinEvent event.ID, joinedThreadID int) {
	r.trace.InsertThreadJoin(joinEvent, joinedThreadID)
	joiner := r.trace.Event(joinEvent)
	joined := r.exec.Threads.ByID(joinedThreadID)
	if joiner != nil && joined != nil {
		joiner.VectorClock.Merge(joined.VectorClock)
	}
}

func (r *RecorderListener) handleLock(state interp.State, ki *interp.Instruction, threadID int) event.ID {
	mo := r.interp.GetMemoryObject(state, ki, 0)
	name, _ := r.interp.ResolveExact(state, mo)
	ev := r.syncEvent(threadID, ki, "lock:"+name)
	id := r.tick(threadID, ev)
	r.exec.TryLockMutex(r.exec.Threads.ByID(threadID), name)
	if err := r.trace.InsertLockOrUnlock(threadID, name, id, true); err != nil {
		r.trace.InvariantViolations = append(r.trace.InvariantViolations, err)
	}
	return id
}

func (r *RecorderListener) handleUnlock(state interp.State, ki *interp.Instruction, threadID int) event.ID {
	mo := r.interp.GetMemoryObject(state, ki, 0)
	name, _ := r.interp.ResolveExact(state, mo)
	ev := r.syncEvent(threadID, ki, "unlock:"+name)
	id := r.tick(threadID, ev)
	if err := r.exec.Mutexes.Unlock(name, threadID); err != nil {
		r.trace.InvariantViolations = append(r.trace.InvariantViolations, err)
	}
	if err := r.trace.InsertLockOrUnlock(threadID, name, id, false); err != nil {
		r.trace.InvariantViolations = append(r.trace.InvariantViolations, err)
	}
	return id
}

func (r *RecorderListener) handleCondWait(state interp.State, ki *interp.Instruction, threadID int) event.ID {
	condMO := r.interp.GetMemoryObject(state, ki, 0)
	condName, _ := r.interp.ResolveExact(state, condMO)
	mutexMO := r.interp.GetMemoryObject(state, ki, 1)
	mutexName, _ := r.interp.ResolveExact(state, mutexMO)

	ev := r.syncEvent(threadID, ki, "wait:"+condName)
	id := r.tick(threadID, ev)

	if err := r.exec.Conds.Wait(condName, mutexName, threadID); err != nil {
		r.trace.InvariantViolations = append(r.trace.InvariantViolations, err)
		return id
	}
	if t := r.exec.Threads.ByID(threadID); t != nil {
		r.exec.Block(t, thread.CondBlocked)
		t.WaitingCond = condName
	}

	lockEv := r.syncEvent(threadID, ki, "lock_by_wait:"+mutexName)
	lockID := r.trace.InsertEvent(threadID, lockEv)
	r.trace.InsertWait(condName, id, lockID)
	return id
}

func (r *RecorderListener) handleCondSignal(state interp.State, ki *interp.Instruction, threadID int) event.ID {
	condMO := r.interp.GetMemoryObject(state, ki, 0)
	condName, _ := r.interp.ResolveExact(state, condMO)

	ev := r.syncEvent(threadID, ki, "signal:"+condName)
	id := r.tick(threadID, ev)
	r.trace.InsertSignal(condName, id)

	released, ok, err := r.exec.Conds.Signal(condName)
	if err != nil {
		r.trace.InvariantViolations = append(r.trace.InvariantViolations, err)
		return id
	}
	if ok {
		r.wakeFromCond(released, threadID)
	}
	return id
}

func (r *RecorderListener) handleCondBroadcast(state interp.State, ki *interp.Instruction, threadID int) event.ID {
	condMO := r.interp.GetMemoryObject(state, ki, 0)
	condName, _ := r.interp.ResolveExact(state, condMO)

	ev := r.syncEvent(threadID, ki, "broadcast:"+condName)
	id := r.tick(threadID, ev)
	r.trace.InsertSignal(condName, id)

	for _, released := range r.exec.Conds.Broadcast(condName) {
		r.wakeFromCond(released, threadID)
	}
	return id
}

func (r *RecorderListener) wakeFromCond(releasedThreadID int, signaler int) {
	woken := r.exec.Threads.ByID(releasedThreadID)
	if woken == nil {
		return
	}
	signalerThread := r.exec.Threads.ByID(signaler)
	if signalerThread != nil {
		woken.VectorClock.Merge(signalerThread.VectorClock)
	}
	r.exec.Unblock(woken)
	woken.WaitingCond = ""
}

func (r *RecorderListener) handleBarrierWait(state interp.State, ki *interp.Instruction, threadID int) event.ID {
	mo := r.interp.GetMemoryObject(state, ki, 0)
	name, _ := r.interp.ResolveExact(state, mo)

	ev := r.syncEvent(threadID, ki, "barrier:"+name)
	id := r.tick(threadID, ev)

	released, round, ok := r.exec.Barriers.Wait(name, threadID)
	if !ok {
		// No matching pthread_barrier_init was observed (or this Interpreter
		// does not surface it separately); fall back to the "unknown count"
		// sentinel per spec §4.2, so the barrier at least accumulates
		// waiters instead of rejecting the call outright.
		r.exec.Barriers.Init(name, 0x7fffffff)
		released, round, _ = r.exec.Barriers.Wait(name, threadID)
	}
	if t := r.exec.Threads.ByID(threadID); t != nil {
		// round is the release-round this call belongs to, captured before
		// Wait bumps Barrier.Round on release, so the releasing (Count-th)
		// caller is tagged with the same round as the waiters before it.
		r.trace.InsertBarrierWait(name, id, round)
	}

	if released == nil {
		if t := r.exec.Threads.ByID(threadID); t != nil {
			r.exec.Block(t, thread.BarrierBlocked)
			t.WaitingMutex = ""
		}
		return id
	}

	merged := r.exec.Threads.ByID(threadID).VectorClock
	for _, tid := range released {
		if other := r.exec.Threads.ByID(tid); other != nil {
			merged.Merge(other.VectorClock)
		}
	}
	for _, tid := range released {
		t := r.exec.Threads.ByID(tid)
		if t == nil {
			continue
		}
		t.VectorClock = merged
		if t.State == thread.BarrierBlocked {
			r.exec.Unblock(t)
		}
	}
	return id
}

func (r *RecorderListener) handleBarrierInit(state interp.State, ki *interp.Instruction, threadID int) event.ID {
	mo := r.interp.GetMemoryObject(state, ki, 0)
	name, _ := r.interp.ResolveExact(state, mo)
	count := 0x7fffffff
	if len(ki.Operands) > 1 {
		count = ki.Operands[1]
	}
	r.exec.Barriers.Init(name, count)

	ev := r.syncEvent(threadID, ki, "barrier_init:"+name)
	return r.tick(threadID, ev)
}
