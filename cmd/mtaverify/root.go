package main

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/joeycumines/izerolog"

	"github.com/joeycumines/klee-mta-go/internal/config"
	"github.com/joeycumines/klee-mta-go/internal/telemetry"
	"github.com/joeycumines/klee-mta-go/orchestrator"
	"github.com/joeycumines/klee-mta-go/runtimedata"
)

// newRootCmd builds the mtaverify command: one positional argument naming
// the compiled program under verification (spec §6's minimal CLI surface),
// plus the flag surface internal/config.BindFlags declares. violated is set
// to true if the run finds a feasible assertion counterexample, so main can
// translate that into spec §6's non-zero exit code without RunE itself
// needing to abuse cobra's own error-as-exit-status convention for a
// successful, completed run.
func newRootCmd(violated *bool) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "mtaverify <program>",
		Short:         "Concurrency-aware symbolic verifier for multithreaded programs",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags(), configPath, args[0])
			if err != nil {
				return err
			}

			logger := telemetry.L()
			if cfg.PrintSolvingResult {
				z := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
				logger = izerolog.L.New(
					izerolog.L.WithZerolog(z),
					izerolog.L.WithLevel(izerolog.L.LevelTrace()),
				)
			}
			telemetry.Configure(logger)

			var metrics *telemetry.Metrics
			if cfg.MetricsAddr != "" {
				reg := prometheus.NewRegistry()
				metrics = telemetry.NewMetrics(reg)
				srv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
				go func() {
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Warning().Err(err).Str("addr", cfg.MetricsAddr).Log("metrics server stopped")
					}
				}()
				defer srv.Close()
			}

			rdm := runtimedata.New(cfg.OutputDir, logger, metrics)
			defer func() {
				if cerr := rdm.Close(); cerr != nil {
					logger.Warning().Err(cerr).Log("writing final statistics failed")
				}
			}()

			loop := orchestrator.New(cfg, rdm, NewSolver, Interpret, logger)
			if err := loop.Run(cmd.Context()); err != nil {
				return err
			}

			if loop.AssertionViolation != nil {
				*violated = true
				logger.Warning().Str("program", cfg.Program).Log("assertion violation found")
			}
			return nil
		},
	}

	config.BindFlags(cmd.Flags())
	cmd.Flags().StringVar(&configPath, "config", "", "path to an optional TOML/YAML configuration file")

	return cmd
}
