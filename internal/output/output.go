// Package output renders the ./output_info/ file set spec §6 requires:
// TraceN.bitcode / <prefix>.bitcode event dumps, TraceN.z3expr /
// <prefix>.z3expr solver-result dumps, and the statistics.info /
// statics.txt counter summaries. Every writer uses
// github.com/joeycumines/go-utilpkg/jsonenc for allocation-light number and
// string escaping, the way the teacher's logiface/izerolog stack does for
// its own JSON output.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/joeycumines/go-utilpkg/jsonenc"

	"github.com/joeycumines/klee-mta-go/event"
	"github.com/joeycumines/klee-mta-go/solverapi"
)

// WriteBitcode renders <name>.bitcode under dir: one JSON-object line per
// event in t.Events order, spec §6's "ordered event dump".
func WriteBitcode(dir, name string, t *event.Trace) error {
	return WriteBitcodeEvents(dir, name, t.Events)
}

// WriteBitcodeEvents renders <name>.bitcode under dir from an explicit
// event sequence rather than a whole Trace's arena order: one JSON-object
// line per event, in the given order. Used to render a prefix's
// reconstructed event dump (spec §6's "<prefix_name>.bitcode — event dump
// reconstructed from a solver model"), where the events are drawn from
// their owning traces and reordered per the solver's sampled schedule
// rather than any single trace's own arena order.
func WriteBitcodeEvents(dir, name string, events []*event.Event) error {
	var buf []byte
	for _, ev := range events {
		buf = appendEventLine(buf, ev)
	}
	return writeFile(dir, name+".bitcode", buf)
}

func appendEventLine(dst []byte, ev *event.Event) []byte {
	dst = append(dst, '{')
	dst = append(dst, `"thread":`...)
	dst = strconv.AppendInt(dst, int64(ev.ThreadID), 10)
	dst = append(dst, `,"event":`...)
	dst = strconv.AppendInt(dst, int64(ev.EventID), 10)
	dst = append(dst, `,"kind":`...)
	dst = jsonenc.AppendString(dst, ev.Kind.String())
	dst = append(dst, `,"name":`...)
	dst = jsonenc.AppendString(dst, ev.Name)
	if ev.IsGlobal {
		dst = append(dst, `,"global":`...)
		dst = jsonenc.AppendString(dst, ev.GlobalName)
	}
	if ev.CalledFunction != "" {
		dst = append(dst, `,"call":`...)
		dst = jsonenc.AppendString(dst, ev.CalledFunction)
	}
	if ev.SourceFile != "" {
		dst = append(dst, `,"source":`...)
		dst = jsonenc.AppendString(dst, fmt.Sprintf("%s:%d", ev.SourceFile, ev.SourceLine))
	}
	dst = append(dst, '}', '\n')
	return dst
}

// WriteModel renders <name>.z3expr under dir: the check result plus the
// solver model's constant assignments, sorted by name. solverapi.Expr is
// intentionally opaque (the core never inspects or reconstructs a solver
// script), so this is the model only, not a full script reconstruction of
// the asserted formula.
func WriteModel(dir, name string, result solverapi.CheckResult, model solverapi.Model) error {
	var buf []byte
	buf = append(buf, `{"result":`...)
	buf = jsonenc.AppendString(buf, result.String())
	buf = append(buf, `,"model":{`...)

	keys := make([]string, 0, len(model))
	for k := range model {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = jsonenc.AppendString(buf, k)
		buf = append(buf, ':')
		buf = jsonenc.AppendString(buf, model[k])
	}
	buf = append(buf, '}', '}', '\n')
	return writeFile(dir, name+".z3expr", buf)
}

// Statistics is the counter/timing snapshot spec §6's statistics.info and
// statics.txt both render, from a single source of truth so the two files
// (and the Prometheus collectors in internal/telemetry) never drift apart.
type Statistics struct {
	Traces          int
	Instructions    int
	Locks           int
	LockPairs       int
	Signals         int
	Waits           int
	Reads           int
	Writes          int
	SharedVariables int

	SolvingDuration time.Duration
	RunningDuration time.Duration
	DTAMDuration    time.Duration
	PTSDuration     time.Duration

	BranchesSat     int
	BranchesUnsat   int
	BranchesUnknown int
}

// WriteStatistics renders both statistics.info (machine-readable, a single
// JSON object) and statics.txt (human-readable key: value lines) under dir.
func WriteStatistics(dir string, s Statistics) error {
	if err := writeFile(dir, "statistics.info", appendStatisticsJSON(nil, s)); err != nil {
		return err
	}
	return writeFile(dir, "statics.txt", appendStatisticsText(nil, s))
}

func appendStatisticsJSON(dst []byte, s Statistics) []byte {
	dst = append(dst, '{')
	dst = append(dst, `"traces":`...)
	dst = strconv.AppendInt(dst, int64(s.Traces), 10)
	dst = append(dst, `,"instructions":`...)
	dst = strconv.AppendInt(dst, int64(s.Instructions), 10)
	dst = append(dst, `,"locks":`...)
	dst = strconv.AppendInt(dst, int64(s.Locks), 10)
	dst = append(dst, `,"lock_pairs":`...)
	dst = strconv.AppendInt(dst, int64(s.LockPairs), 10)
	dst = append(dst, `,"signals":`...)
	dst = strconv.AppendInt(dst, int64(s.Signals), 10)
	dst = append(dst, `,"waits":`...)
	dst = strconv.AppendInt(dst, int64(s.Waits), 10)
	dst = append(dst, `,"reads":`...)
	dst = strconv.AppendInt(dst, int64(s.Reads), 10)
	dst = append(dst, `,"writes":`...)
	dst = strconv.AppendInt(dst, int64(s.Writes), 10)
	dst = append(dst, `,"shared_variables":`...)
	dst = strconv.AppendInt(dst, int64(s.SharedVariables), 10)
	dst = append(dst, `,"solving_duration_ms":`...)
	dst = strconv.AppendInt(dst, s.SolvingDuration.Milliseconds(), 10)
	dst = append(dst, `,"running_duration_ms":`...)
	dst = strconv.AppendInt(dst, s.RunningDuration.Milliseconds(), 10)
	dst = append(dst, `,"dtam_duration_ms":`...)
	dst = strconv.AppendInt(dst, s.DTAMDuration.Milliseconds(), 10)
	dst = append(dst, `,"pts_duration_ms":`...)
	dst = strconv.AppendInt(dst, s.PTSDuration.Milliseconds(), 10)
	dst = append(dst, `,"branches_sat":`...)
	dst = strconv.AppendInt(dst, int64(s.BranchesSat), 10)
	dst = append(dst, `,"branches_unsat":`...)
	dst = strconv.AppendInt(dst, int64(s.BranchesUnsat), 10)
	dst = append(dst, `,"branches_unknown":`...)
	dst = strconv.AppendInt(dst, int64(s.BranchesUnknown), 10)
	dst = append(dst, '}', '\n')
	return dst
}

func appendStatisticsText(dst []byte, s Statistics) []byte {
	line := func(label string, val int64) {
		dst = append(dst, label...)
		dst = append(dst, ": "...)
		dst = strconv.AppendInt(dst, val, 10)
		dst = append(dst, '\n')
	}
	line("traces", int64(s.Traces))
	line("instructions", int64(s.Instructions))
	line("locks", int64(s.Locks))
	line("lock_pairs", int64(s.LockPairs))
	line("signals", int64(s.Signals))
	line("waits", int64(s.Waits))
	line("reads", int64(s.Reads))
	line("writes", int64(s.Writes))
	line("shared_variables", int64(s.SharedVariables))
	line("solving_duration_ms", s.SolvingDuration.Milliseconds())
	line("running_duration_ms", s.RunningDuration.Milliseconds())
	line("dtam_duration_ms", s.DTAMDuration.Milliseconds())
	line("pts_duration_ms", s.PTSDuration.Milliseconds())
	line("branches_sat", int64(s.BranchesSat))
	line("branches_unsat", int64(s.BranchesUnsat))
	line("branches_unknown", int64(s.BranchesUnknown))
	return dst
}

func writeFile(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), data, 0644)
}
