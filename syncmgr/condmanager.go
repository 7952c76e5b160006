package syncmgr

import (
	"fmt"

	"github.com/joeycumines/klee-mta-go/schedule"
)

// CondSchedulerType selects the wait-list ordering policy a newly added
// condition variable uses.
type CondSchedulerType int

const (
	// CondFIFS orders waiters first-in-first-woken.
	CondFIFS CondSchedulerType = iota
	// CondPreemptive wakes the most recently added waiter first.
	CondPreemptive
)

func newCondQueue(t CondSchedulerType) schedule.Queue[*WaitParam] {
	switch t {
	case CondPreemptive:
		return schedule.NewPreemptive[*WaitParam]()
	default:
		return schedule.NewFIFS[*WaitParam]()
	}
}

// CondManager owns the pool of named condition variables for a single
// execution, and coordinates waking waiters with the MutexManager that owns
// the mutexes those waiters must re-acquire.
type CondManager struct {
	pool          map[string]*Condition
	mutexManager  *MutexManager
	defaultPolicy CondSchedulerType
	nextID        int
}

// NewCondManager returns an empty manager. mutexManager may be nil; set it
// with SetMutexManager once available (the two managers are constructed
// independently and wired together afterward, mirroring the original
// runtime's two-phase setup).
func NewCondManager(mutexManager *MutexManager) *CondManager {
	return &CondManager{pool: make(map[string]*Condition), mutexManager: mutexManager}
}

// SetMutexManager wires the mutex manager whose mutexes this CondManager's
// waiters release/re-acquire around a wait.
func (m *CondManager) SetMutexManager(mutexManager *MutexManager) {
	m.mutexManager = mutexManager
}

// SetDefaultSchedulerType controls the wait-list policy used for
// conditions added via AddCondition without an explicit policy.
func (m *CondManager) SetDefaultSchedulerType(t CondSchedulerType) {
	m.defaultPolicy = t
}

// AddCondition registers condName with the manager's default wait-list
// policy if not already present; a no-op otherwise.
func (m *CondManager) AddCondition(condName string) {
	m.AddConditionWithPolicy(condName, m.defaultPolicy)
}

// AddConditionWithPolicy registers condName with an explicit wait-list
// policy if not already present; a no-op otherwise.
func (m *CondManager) AddConditionWithPolicy(condName string, policy CondSchedulerType) {
	if _, ok := m.pool[condName]; ok {
		return
	}
	m.nextID++
	m.pool[condName] = NewCondition(m.nextID, condName, newCondQueue(policy))
}

// Condition returns the named condition, or nil if it hasn't been added.
func (m *CondManager) Condition(condName string) *Condition {
	return m.pool[condName]
}

// Wait releases mutexName (which threadID must currently hold) and joins
// threadID onto condName's wait list.
func (m *CondManager) Wait(condName, mutexName string, threadID int) error {
	if m.mutexManager != nil {
		if err := m.mutexManager.Unlock(mutexName, threadID); err != nil {
			return fmt.Errorf("syncmgr: wait on %q: %w", condName, err)
		}
	}
	m.AddCondition(condName)
	m.pool[condName].Wait(NewWaitParam(mutexName, threadID))
	return nil
}

// Signal releases one waiter on condName, re-locking its mutex on its
// behalf, and returns the released thread id. Returns ok=false if no
// thread was waiting.
func (m *CondManager) Signal(condName string) (releasedThreadID int, ok bool, err error) {
	cond := m.pool[condName]
	if cond == nil {
		return 0, false, nil
	}
	param := cond.Signal()
	if param == nil {
		return 0, false, nil
	}
	if m.mutexManager != nil {
		m.mutexManager.Mutex(param.MutexName).Lock(param.ThreadID)
	}
	return param.ThreadID, true, nil
}

// Broadcast releases every waiter on condName, re-locking each one's mutex
// in scheduler order (the last one re-locked is the one that holds it
// afterwards), and returns the released thread ids in that order.
func (m *CondManager) Broadcast(condName string) []int {
	cond := m.pool[condName]
	if cond == nil {
		return nil
	}
	released := cond.Broadcast()
	threads := make([]int, 0, len(released))
	for _, param := range released {
		if m.mutexManager != nil {
			m.mutexManager.Mutex(param.MutexName).Lock(param.ThreadID)
		}
		threads = append(threads, param.ThreadID)
	}
	return threads
}

// Clear empties the condition pool.
func (m *CondManager) Clear() {
	m.pool = make(map[string]*Condition)
	m.nextID = 0
}

// Clone returns an independent deep copy of the manager, wired to
// mutexManager (the caller passes in the clone of the MutexManager it
// belongs with, since MutexManager and CondManager are cloned together).
func (m *CondManager) Clone(mutexManager *MutexManager) *CondManager {
	clone := &CondManager{
		pool:          make(map[string]*Condition, len(m.pool)),
		mutexManager:  mutexManager,
		defaultPolicy: m.defaultPolicy,
		nextID:        m.nextID,
	}
	for name, cond := range m.pool {
		clone.pool[name] = cond.Clone()
	}
	return clone
}
