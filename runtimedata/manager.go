// Package runtimedata implements RuntimeDataManager (spec §4.8): the
// orchestrator's trace arena, dedup cache, prefix work queue, and
// aggregated-statistics dump, plus (spec §5's explicit permission to
// "parallelize outer iterations by cloning RuntimeDataManager state") a
// concurrent prefix-exploration helper built on golang.org/x/sync/errgroup.
package runtimedata

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"

	"github.com/joeycumines/klee-mta-go/event"
	"github.com/joeycumines/klee-mta-go/internal/output"
	"github.com/joeycumines/klee-mta-go/internal/telemetry"
)

// Manager is RuntimeDataManager: it owns every Trace created during a
// verification run, the FIFO prefix work list flip_if_branches/
// verify_assertion feed, the canonical-abstract dedup cache, and the
// counters Close renders to ./output_info/statistics.info and
// statics.txt. All methods are safe for concurrent use, since
// ExploreConcurrently drives them from multiple goroutines.
type Manager struct {
	mu      sync.Mutex
	dir     string
	logger  *logiface.Logger[*izerolog.Event]
	metrics *telemetry.Metrics

	traces  map[int]*event.Trace
	current *event.Trace

	tested map[string]struct{}
	queue  []*event.Prefix

	stats output.Statistics
}

// New constructs a Manager. logger and metrics may be the package-level
// telemetry defaults (telemetry.L(), a telemetry.NewMetrics registry) or
// nil; a nil metrics disables Prometheus updates, a nil logger disables
// logging, matching this module's general "explicit, not hidden global"
// wiring rule (SPEC_FULL.md §A.1).
func New(outputDir string, logger *logiface.Logger[*izerolog.Event], metrics *telemetry.Metrics) *Manager {
	return &Manager{
		dir:     outputDir,
		logger:  logger,
		metrics: metrics,
		traces:  make(map[int]*event.Trace),
		tested:  make(map[string]struct{}),
	}
}

// CreateTrace allocates a new Trace, makes it current, and records it in
// the arena (spec §4.8's create_trace).
func (m *Manager) CreateTrace(id int) *event.Trace {
	tr := event.NewTrace(id)

	m.mu.Lock()
	m.traces[id] = tr
	m.current = tr
	m.stats.Traces++
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.Traces.Inc()
	}
	if m.logger != nil {
		m.logger.Info().Int("trace_id", id).Log("trace created")
	}
	return tr
}

// Current returns the trace most recently created.
func (m *Manager) Current() *event.Trace {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Trace returns a previously created trace by id, or nil.
func (m *Manager) Trace(id int) *event.Trace {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.traces[id]
}

// IsCurrentTraceUntested computes the current trace's canonical abstract
// (event.Trace.Abstract) and reports whether it has been seen before,
// marking the trace Unique or Redundant accordingly and updating the
// dedup cache (spec §4.8's is_current_trace_untested).
func (m *Manager) IsCurrentTraceUntested() bool {
	m.mu.Lock()
	tr := m.current
	m.mu.Unlock()
	if tr == nil {
		return false
	}

	abstract := tr.Abstract()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, seen := m.tested[abstract]; seen {
		tr.Type = event.Redundant
		return false
	}
	m.tested[abstract] = struct{}{}
	tr.Type = event.Unique
	return true
}

// AddPrefix enqueues p onto the FIFO prefix work list.
func (m *Manager) AddPrefix(p *event.Prefix) {
	if p == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, p)
}

// NextPrefix dequeues the next prefix to explore, FIFO, reporting false
// once the queue is empty.
func (m *Manager) NextPrefix() (*event.Prefix, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil, false
	}
	p := m.queue[0]
	m.queue = m.queue[1:]
	return p, true
}

// RecordTrace folds a completed trace's instruction/lock/sync/shared-
// variable counts into the aggregated statistics Close eventually renders.
func (m *Manager) RecordTrace(tr *event.Trace) {
	if tr == nil {
		return
	}
	locks, lockPairs := 0, 0
	for _, pairs := range tr.AllLockUnlock {
		for _, p := range pairs {
			locks++
			if p.Unlock != event.None {
				locks++
				lockPairs++
			}
		}
	}
	signals := 0
	for _, s := range tr.AllSignal {
		signals += len(s)
	}
	waits := 0
	for _, w := range tr.AllWait {
		waits += len(w)
	}
	reads, writes := 0, 0
	names := make(map[string]struct{})
	for name, ids := range tr.ReadSet {
		reads += len(ids)
		names[name] = struct{}{}
	}
	for name, ids := range tr.WriteSet {
		writes += len(ids)
		names[name] = struct{}{}
	}
	shared := 0
	for name := range names {
		if touchesMultipleThreads(tr, name) {
			shared++
		}
	}

	m.mu.Lock()
	m.stats.Instructions += len(tr.Events)
	m.stats.Locks += locks
	m.stats.LockPairs += lockPairs
	m.stats.Signals += signals
	m.stats.Waits += waits
	m.stats.Reads += reads
	m.stats.Writes += writes
	m.stats.SharedVariables += shared
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.Instructions.Add(float64(len(tr.Events)))
		m.metrics.Locks.Add(float64(locks))
		m.metrics.LockPairs.Add(float64(lockPairs))
		m.metrics.Signals.Add(float64(signals))
		m.metrics.Waits.Add(float64(waits))
		m.metrics.SharedVariables.Set(float64(shared))
	}
}

func touchesMultipleThreads(tr *event.Trace, name string) bool {
	threads := make(map[int]struct{})
	for _, id := range tr.ReadSet[name] {
		if ev := tr.Event(id); ev != nil {
			threads[ev.ThreadID] = struct{}{}
		}
	}
	for _, id := range tr.WriteSet[name] {
		if ev := tr.Event(id); ev != nil {
			threads[ev.ThreadID] = struct{}{}
		}
	}
	return len(threads) > 1
}

// AddSolvingDuration accumulates time spent inside solver Check calls.
func (m *Manager) AddSolvingDuration(d time.Duration) {
	m.mu.Lock()
	m.stats.SolvingDuration += d
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.SolvingDuration.Observe(d.Seconds())
	}
}

// AddRunningDuration accumulates time spent interpreting a guided execution.
func (m *Manager) AddRunningDuration(d time.Duration) {
	m.mu.Lock()
	m.stats.RunningDuration += d
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.RunningDuration.Observe(d.Seconds())
	}
}

// AddDTAMDuration accumulates time spent in the dynamic taint analysis pass.
func (m *Manager) AddDTAMDuration(d time.Duration) {
	m.mu.Lock()
	m.stats.DTAMDuration += d
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.DTAMDuration.Observe(d.Seconds())
	}
}

// AddPTSDuration accumulates time spent in the solver-refined potential
// taint set pass.
func (m *Manager) AddPTSDuration(d time.Duration) {
	m.mu.Lock()
	m.stats.PTSDuration += d
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.PTSDuration.Observe(d.Seconds())
	}
}

// RecordBranchSat, RecordBranchUnsat, and RecordBranchUnknown tally
// flip_if_branches check outcomes.
func (m *Manager) RecordBranchSat() {
	m.mu.Lock()
	m.stats.BranchesSat++
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.BranchesSat.Inc()
	}
}

func (m *Manager) RecordBranchUnsat() {
	m.mu.Lock()
	m.stats.BranchesUnsat++
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.BranchesUnsat.Inc()
	}
}

func (m *Manager) RecordBranchUnknown() {
	m.mu.Lock()
	m.stats.BranchesUnknown++
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.BranchesUnknown.Inc()
	}
}

// DumpStatistics renders the current aggregated counters to
// ./output_info/statistics.info and statics.txt.
func (m *Manager) DumpStatistics() error {
	m.mu.Lock()
	stats := m.stats
	m.mu.Unlock()
	return output.WriteStatistics(m.dir, stats)
}

// Close dumps aggregated statistics, modeling the original's destructor-
// time statistics dump as an explicit io.Closer call, following this
// module's general destructor-to-Close idiom.
func (m *Manager) Close() error {
	return m.DumpStatistics()
}

// ExploreConcurrently drains the prefix work queue in waves, running each
// wave's prefixes through work with up to maxConcurrency goroutines at a
// time (0 means unlimited), via errgroup.Group.SetLimit. Because work
// itself may enqueue further prefixes (branch flips discovered while
// exploring a guided execution), draining repeats in further waves until
// one wave enqueues nothing left to explore. The first error from any
// work call aborts the run and is returned; a trace-level error (a Trace
// going FAILED) should instead be handled inside work and not returned,
// per spec §5's "solver/exploration errors never abort the outer loop".
func (m *Manager) ExploreConcurrently(ctx context.Context, maxConcurrency int, work func(ctx context.Context, p *event.Prefix) error) error {
	for {
		g, gctx := errgroup.WithContext(ctx)
		if maxConcurrency > 0 {
			g.SetLimit(maxConcurrency)
		}

		drained := 0
		for {
			p, ok := m.NextPrefix()
			if !ok {
				break
			}
			drained++
			g.Go(func() error { return work(gctx, p) })
		}

		if err := g.Wait(); err != nil {
			return err
		}
		if drained == 0 {
			return nil
		}
	}
}
