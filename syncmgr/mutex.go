// Package syncmgr models the synchronization primitives a recorded program
// can use — mutexes, condition variables, and barriers — together with the
// managers that own pools of them by name and the schedulers that decide,
// among threads blocked on the same primitive, which one unblocks next.
//
// Each manager is intentionally not safe for concurrent use: the recorder
// drives one thread at a time (this package exists to model *that* thread's
// notion of concurrency, not to provide it).
package syncmgr

import (
	"fmt"

	"github.com/joeycumines/klee-mta-go/kind"
)

// Mutex is a single named mutex: which thread (if any) currently holds it.
type Mutex struct {
	ID   int
	Name string

	locked         bool
	lockedThreadID int
}

// NewMutex returns an unlocked mutex.
func NewMutex(id int, name string) *Mutex {
	return &Mutex{ID: id, Name: name}
}

// IsLocked reports whether the mutex is currently held.
func (m *Mutex) IsLocked() bool { return m.locked }

// LockedThread returns the id of the thread holding the mutex. Only
// meaningful when IsLocked is true.
func (m *Mutex) LockedThread() int { return m.lockedThreadID }

// Lock marks the mutex held by threadID. The caller (MutexManager) is
// responsible for only calling this once the mutex is known to be free.
func (m *Mutex) Lock(threadID int) {
	m.locked = true
	m.lockedThreadID = threadID
}

// Unlock releases the mutex.
func (m *Mutex) Unlock() {
	m.locked = false
	m.lockedThreadID = 0
}

// IsOwnedBy reports whether threadID currently holds this mutex.
func (m *Mutex) IsOwnedBy(threadID int) bool {
	return m.locked && m.lockedThreadID == threadID
}

func (m *Mutex) String() string {
	if !m.locked {
		return fmt.Sprintf("Mutex(%s, unlocked)", m.Name)
	}
	return fmt.Sprintf("Mutex(%s, locked by thread %d)", m.Name, m.lockedThreadID)
}

// MutexManager owns the pool of named mutexes used by a single execution. A
// thread attempting to lock an already-held mutex is reported as blocked by
// TryLock rather than scheduled onto a wait list directly — the caller
// (thread.ExecutionState) owns blocking a thread once it knows the lock
// attempt failed.
type MutexManager struct {
	pool   map[string]*Mutex
	nextID int
}

// NewMutexManager returns an empty manager.
func NewMutexManager() *MutexManager {
	return &MutexManager{pool: make(map[string]*Mutex)}
}

// Mutex returns the named mutex, creating it (unlocked) on first reference —
// matching the original tool's implicit mutex creation on first lock/unlock
// of a previously unseen name.
func (m *MutexManager) Mutex(name string) *Mutex {
	if mu, ok := m.pool[name]; ok {
		return mu
	}
	m.nextID++
	mu := NewMutex(m.nextID, name)
	m.pool[name] = mu
	return mu
}

// TryLock attempts to lock the named mutex for threadID. It returns true if
// the lock succeeded; false if the mutex is already held (by a different
// thread — a thread re-locking its own mutex is a recorder-level invariant
// violation, not something this type resolves).
func (m *MutexManager) TryLock(name string, threadID int) bool {
	mu := m.Mutex(name)
	if mu.IsLocked() {
		return false
	}
	mu.Lock(threadID)
	return true
}

// Unlock releases the named mutex. Returns an error if the mutex is not
// currently held by threadID.
func (m *MutexManager) Unlock(name string, threadID int) error {
	mu := m.Mutex(name)
	if !mu.IsOwnedBy(threadID) {
		return kind.New(kind.BadSyncCall, "thread %d cannot unlock mutex %q: not the owner", threadID, name)
	}
	mu.Unlock()
	return nil
}

// Clear empties the pool, releasing every mutex (used between explorations
// of independent traces, where the simulated program restarts from scratch).
func (m *MutexManager) Clear() {
	m.pool = make(map[string]*Mutex)
	m.nextID = 0
}

// Clone returns an independent deep copy of the manager's pool, for
// branching an ExecutionState.
func (m *MutexManager) Clone() *MutexManager {
	clone := &MutexManager{pool: make(map[string]*Mutex, len(m.pool)), nextID: m.nextID}
	for name, mu := range m.pool {
		copied := *mu
		clone.pool[name] = &copied
	}
	return clone
}
