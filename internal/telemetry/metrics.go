package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the Prometheus-backed counterpart of the statistics.info /
// statics.txt dump (spec §6): runtimedata.Manager updates these collectors
// as it accumulates the counts that DumpStatistics later writes to the
// plain-text files via internal/output (CreateTrace, RecordTrace, the
// Add*Duration methods and the RecordBranch* methods), so a --metrics-addr
// scrape reflects the same numbers.
type Metrics struct {
	Traces           prometheus.Counter
	Instructions     prometheus.Counter
	Locks            prometheus.Counter
	LockPairs        prometheus.Counter
	Signals          prometheus.Counter
	Waits            prometheus.Counter
	SharedVariables  prometheus.Gauge
	SolvingDuration  prometheus.Histogram
	RunningDuration  prometheus.Histogram
	DTAMDuration     prometheus.Histogram
	PTSDuration      prometheus.Histogram
	BranchesSat      prometheus.Counter
	BranchesUnsat    prometheus.Counter
	BranchesUnknown  prometheus.Counter
}

// NewMetrics constructs a Metrics and registers every collector with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Traces: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mtaverify",
			Name:      "traces_total",
			Help:      "Number of traces created by the runtime data manager.",
		}),
		Instructions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mtaverify",
			Name:      "instructions_total",
			Help:      "Number of instruction events recorded across all traces.",
		}),
		Locks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mtaverify",
			Name:      "locks_total",
			Help:      "Number of lock/unlock events recorded across all traces.",
		}),
		LockPairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mtaverify",
			Name:      "lock_pairs_total",
			Help:      "Number of matched lock/unlock pairs recorded across all traces.",
		}),
		Signals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mtaverify",
			Name:      "signals_total",
			Help:      "Number of condition-variable signal events recorded across all traces.",
		}),
		Waits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mtaverify",
			Name:      "waits_total",
			Help:      "Number of condition-variable wait events recorded across all traces.",
		}),
		SharedVariables: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mtaverify",
			Name:      "shared_variables",
			Help:      "Number of global variable names touched by more than one thread in the current trace.",
		}),
		SolvingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mtaverify",
			Name:      "solving_duration_seconds",
			Help:      "Cumulative time spent inside solver Check calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		RunningDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mtaverify",
			Name:      "running_duration_seconds",
			Help:      "Cumulative time spent interpreting a guided execution.",
			Buckets:   prometheus.DefBuckets,
		}),
		DTAMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mtaverify",
			Name:      "dtam_duration_seconds",
			Help:      "Cumulative time spent in the dynamic taint analysis pass.",
			Buckets:   prometheus.DefBuckets,
		}),
		PTSDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mtaverify",
			Name:      "pts_duration_seconds",
			Help:      "Cumulative time spent in the solver-refined potential taint set pass.",
			Buckets:   prometheus.DefBuckets,
		}),
		BranchesSat: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mtaverify",
			Name:      "branches_sat_total",
			Help:      "Number of branch-flip checks that returned Sat (a new prefix was produced).",
		}),
		BranchesUnsat: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mtaverify",
			Name:      "branches_unsat_total",
			Help:      "Number of branch-flip checks that returned Unsat.",
		}),
		BranchesUnknown: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mtaverify",
			Name:      "branches_unknown_total",
			Help:      "Number of branch-flip checks that returned Unknown or errored.",
		}),
	}
	reg.MustRegister(
		m.Traces, m.Instructions, m.Locks, m.LockPairs, m.Signals, m.Waits,
		m.SharedVariables, m.SolvingDuration, m.RunningDuration, m.DTAMDuration,
		m.PTSDuration, m.BranchesSat, m.BranchesUnsat, m.BranchesUnknown,
	)
	return m
}
