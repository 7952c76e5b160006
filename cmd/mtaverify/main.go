// Command mtaverify is the CLI entrypoint: it wires internal/config,
// internal/telemetry, runtimedata, and orchestrator into one run against a
// single compiled program, per spec §6's minimal CLI surface. Building a
// binary that can actually verify a real program additionally requires
// replacing NewSolver and Interpret (see engine.go) with a concrete SMT
// solver binding and symbolic execution engine — both explicitly out of
// scope for this module (spec §1).
package main

import (
	"fmt"
	"os"
)

func main() {
	violated, err := Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if violated {
		os.Exit(1)
	}
}

// Execute runs the mtaverify root command against os.Args, reporting
// whether a feasible assertion counterexample was found (spec §6's exit
// code rule: 0 if not, non-zero if so).
func Execute() (violated bool, err error) {
	cmd := newRootCmd(&violated)
	err = cmd.Execute()
	return violated, err
}
