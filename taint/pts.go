package taint

import (
	"sort"

	"github.com/joeycumines/klee-mta-go/encode"
	"github.com/joeycumines/klee-mta-go/kind"
	"github.com/joeycumines/klee-mta-go/solverapi"
)

// RunSymbolicTaint implements spec §4.7's PTS pass: for each candidate
// location in dtam_parallel \ dtam_serial, it pushes a scope over the
// synchronization formula plus path conditions and taken branch
// directions, asserts that candidate's tag constant true, and checks. A
// Sat result adds the candidate — and every other candidate whose tag is
// simultaneously true in the returned model — to Trace.TaintPTS; anything
// else (Unsat or Unknown) adds it to Trace.NoTaintPTS, matching this
// module's fail-open handling of solver timeouts (spec §5). An error from
// Check ends the pass and is returned wrapped as kind.SolverError.
// enc must already have Encode (or at least EncodeSynchronization/
// EncodePathCondition) available against the same Trace RunDTAM populated.
func RunSymbolicTaint(enc *encode.Encoder) error {
	t := enc.Trace()
	candidates := Candidates(t)
	if len(candidates) == 0 {
		return nil
	}

	solver := enc.Solver()
	base := solver.And(enc.EncodeSynchronization(), enc.EncodePathCondition(), enc.EncodeBranchConditions())

	tagged := make(map[string]struct{})
	untagged := make(map[string]struct{})

	for _, v := range candidates {
		if _, done := tagged[v]; done {
			continue
		}
		if _, done := untagged[v]; done {
			continue
		}

		solver.Push()
		solver.Add(base)
		solver.Add(solver.BoolConst(tagName(v)))

		result, err := solver.Check()
		if err != nil {
			solver.Pop()
			return kind.Wrap(kind.SolverError, err, "checking symbolic taint tag for %q", v)
		}

		switch result {
		case solverapi.Sat:
			model, merr := solver.GetModel()
			solver.Pop()
			if merr != nil {
				untagged[v] = struct{}{}
				continue
			}
			tagged[v] = struct{}{}
			for _, other := range candidates {
				if other == v {
					continue
				}
				if val, ok := model[tagName(other)]; ok && val == "true" {
					tagged[other] = struct{}{}
				}
			}
		default:
			untagged[v] = struct{}{}
		}
	}

	t.TaintPTS = sortedKeys(tagged)
	var noTaint []string
	for _, v := range candidates {
		if _, ok := tagged[v]; !ok {
			noTaint = append(noTaint, v)
		}
	}
	sort.Strings(noTaint)
	t.NoTaintPTS = noTaint
	return nil
}

func tagName(v string) string { return v + "_tag" }

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
