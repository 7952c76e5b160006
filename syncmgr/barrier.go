package syncmgr

// Barrier is a named barrier with a fixed participant count: once count
// threads have called Wait, all of them are released together and the
// barrier resets for its next round.
type Barrier struct {
	Name    string
	Count   int
	Current int
	Round   int

	blocked []int
}

// NewBarrier returns a barrier requiring count participants per round.
func NewBarrier(name string, count int) *Barrier {
	return &Barrier{Name: name, Count: count}
}

// Wait adds threadID to the barrier's current round. It returns the set of
// threads released (including threadID) once the round is complete, or nil
// if the round is still awaiting more participants. round is always the
// round threadID's own call belongs to, captured before any release bumps
// b.Round — so the releasing (Count-th) caller gets the same round number
// as the participants that arrived before it.
func (b *Barrier) Wait(threadID int) (released []int, round int) {
	round = b.Round
	b.blocked = append(b.blocked, threadID)
	b.Current++
	if b.Current < b.Count {
		return nil, round
	}
	released = b.blocked
	b.blocked = nil
	b.Current = 0
	b.Round++
	return released, round
}

// BarrierManager owns the pool of named barriers for a single execution.
type BarrierManager struct {
	pool map[string]*Barrier
}

// NewBarrierManager returns an empty manager.
func NewBarrierManager() *BarrierManager {
	return &BarrierManager{pool: make(map[string]*Barrier)}
}

// Init registers barrierName with the given participant count. A no-op if
// the barrier already exists (the count from the first init call wins).
func (m *BarrierManager) Init(barrierName string, count int) {
	if _, ok := m.pool[barrierName]; ok {
		return
	}
	m.pool[barrierName] = NewBarrier(barrierName, count)
}

// Barrier returns the named barrier, or nil if it hasn't been initialized.
func (m *BarrierManager) Barrier(barrierName string) *Barrier {
	return m.pool[barrierName]
}

// Wait joins threadID to barrierName's current round, returning the
// released thread set once the round completes (nil while still waiting)
// and the round threadID's own call belongs to. Returns ok=false if the
// barrier was never initialized.
func (m *BarrierManager) Wait(barrierName string, threadID int) (released []int, round int, ok bool) {
	b := m.pool[barrierName]
	if b == nil {
		return nil, 0, false
	}
	released, round = b.Wait(threadID)
	return released, round, true
}

// Clear empties the barrier pool.
func (m *BarrierManager) Clear() {
	m.pool = make(map[string]*Barrier)
}

// Clone returns an independent deep copy of the manager's pool.
func (m *BarrierManager) Clone() *BarrierManager {
	clone := &BarrierManager{pool: make(map[string]*Barrier, len(m.pool))}
	for name, b := range m.pool {
		copied := *b
		copied.blocked = append([]int(nil), b.blocked...)
		clone.pool[name] = &copied
	}
	return clone
}
