// Package telemetry holds the package-level logging default and the
// Prometheus metrics registry for a verification run.
//
// Core packages never read the package-level default directly: spec
// components (runtimedata.Manager, encode.Encoder, taint, orchestrator.Loop)
// take a *logiface.Logger[*izerolog.Event] explicitly, typically obtained by
// calling L() once during wiring in cmd/mtaverify. Only the CLI entrypoint
// calls Configure, following the package-level-logger pattern of
// eventloop/logging.go (SetStructuredLogger / getGlobalLogger), adapted from
// that package's hand-rolled Logger interface to logiface+izerolog+zerolog.
package telemetry

import (
	"os"
	"sync"

	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	current = newDefaultLogger()
)

// newDefaultLogger builds the out-of-the-box default: human-readable
// zerolog console output to stderr at Informational level and above.
func newDefaultLogger() *logiface.Logger[*izerolog.Event] {
	z := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	return izerolog.L.New(
		izerolog.L.WithZerolog(z),
		izerolog.L.WithLevel(izerolog.L.LevelInformational()),
	)
}

// Configure replaces the package-level default logger. Only cmd/mtaverify
// should call this, once, during startup.
func Configure(logger *logiface.Logger[*izerolog.Event]) {
	mu.Lock()
	defer mu.Unlock()
	current = logger
}

// L returns the current package-level default logger, for components that
// aren't handed one explicitly (i.e. the CLI entrypoint itself).
func L() *logiface.Logger[*izerolog.Event] {
	mu.RLock()
	defer mu.RUnlock()
	return current
}
