package event

// Prefix is an ordered event list plus a thread-id map, used to force the
// next guided execution (spec §3). Once built from a solver model it is
// consumed exactly once by a Guided thread scheduler: each call to Next
// advances the cursor.
//
// Prefix borrows event references from the Trace that produced them (via
// Ref, not *Event) and must not be used after that Trace is discarded;
// in this implementation Traces are retained for the lifetime of the run
// (runtimedata.Manager never frees them), so this is never an issue
// in practice.
type Prefix struct {
	Name        string
	Events      []Ref
	ThreadIDMap map[Ref]int // event -> spawned thread id, for thread-create events in the prefix
	position    int
}

// NewPrefix constructs a Prefix with the given name, event order, and
// thread-id map (which may be nil/empty if the prefix contains no
// thread-create events).
func NewPrefix(name string, events []Ref, threadIDMap map[Ref]int) *Prefix {
	if threadIDMap == nil {
		threadIDMap = make(map[Ref]int)
	}
	return &Prefix{Name: name, Events: events, ThreadIDMap: threadIDMap}
}

// IsFinished reports whether every event in the prefix has been consumed.
func (p *Prefix) IsFinished() bool {
	return p.position >= len(p.Events)
}

// Current returns the next event the prefix mandates, or the zero Ref and
// false if the prefix is exhausted.
func (p *Prefix) Current() (Ref, bool) {
	if p.IsFinished() {
		return Ref{}, false
	}
	return p.Events[p.position], true
}

// Advance moves the cursor to the next event in the prefix.
func (p *Prefix) Advance() {
	if !p.IsFinished() {
		p.position++
	}
}

// Reuse resets the cursor to the beginning, allowing the same Prefix to
// seed more than one guided execution (useful in tests).
func (p *Prefix) Reuse() {
	p.position = 0
}

// NextSpawnedThread returns the thread id spawned by the current prefix
// event, if any (used when the Guided scheduler must register a
// newly-created thread before continuing to follow the prefix).
func (p *Prefix) NextSpawnedThread() (int, bool) {
	ref, ok := p.Current()
	if !ok {
		return 0, false
	}
	tid, ok := p.ThreadIDMap[ref]
	return tid, ok
}
