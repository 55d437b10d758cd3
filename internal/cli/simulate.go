package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/countprof/countprof/internal/hostsim"
	"github.com/countprof/countprof/internal/profiler"
	"github.com/countprof/countprof/internal/report"
)

// newSimulateCmd creates the simulate command: it profiles a deterministic
// simulated workload, which exercises the full sampling pipeline without a
// live host runtime attached.
func newSimulateCmd() *cobra.Command {
	var (
		pflags     profilerFlags
		iterations int
		dump       bool
		pprofPath  string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Profile a simulated workload and print the folded report",
		Long: `Run the built-in simulated workload under a profiling session and write
the resulting folded stacks to stdout.

The workload mixes hot loops, helper calls and periodic blocking waits, so
the adaptive cadence and (when enabled) the drift guard both get exercised.
Output is deterministic for a given set of options.

Examples:
  # Print folded stacks, pipe into flamegraph.pl
  countprof simulate | flamegraph.pl > profile.svg

  # Write <pid>.cp into the output directory instead of stdout
  countprof simulate --dump --output-dir /tmp/profiles

  # Sample at current line instead of function definition line
  countprof simulate --granularity current-line

  # Also produce a pprof profile
  countprof simulate --pprof profile.pb.gz`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if iterations < 1 {
				return fmt.Errorf("iterations must be at least 1, got %d", iterations)
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			pflags.apply(cmd.Flags(), cfg)

			rt := hostsim.New(hostsim.DemoProgram(iterations))
			session := profiler.New(sessionConfig(cfg), rt, rt, rt, logger)

			start := time.Now()
			session.Start()
			rt.Run()
			session.Stop()

			logger.Info().
				Int("iterations", iterations).
				Int64("operations", rt.OpsExecuted()).
				Int64("simulated_us", rt.Now()).
				Dur("wall", time.Since(start)).
				Int("paths", session.Tree().Nodes()).
				Uint64("samples", session.Tree().Total()).
				Int("threshold", session.Threshold()).
				Msg("simulation finished")
			logSelfUsage(logger)

			if pprofPath != "" {
				entries := report.Entries(session.Tree(), !cfg.OmitZeroCounts)
				if err := writePprofFile(pprofPath, entries); err != nil {
					return err
				}
				logger.Info().Str("path", pprofPath).Msg("pprof profile written")
			}

			if dump {
				path, err := session.Dump()
				if err != nil {
					return err
				}
				logger.Info().Str("path", path).Msg("report dumped")
				return nil
			}
			return session.WriteTo(cmd.OutOrStdout())
		},
	}

	pflags.addFlags(cmd.Flags())
	cmd.Flags().IntVar(&iterations, "iterations", 50, "Workload iterations to run")
	cmd.Flags().BoolVar(&dump, "dump", false, "Write <pid>.cp to the output directory instead of stdout")
	cmd.Flags().StringVar(&pprofPath, "pprof", "", "Also write a pprof profile to this path")
	return cmd
}

func writePprofFile(path string, entries []report.Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pprof file: %w", err)
	}
	if err := report.WritePprof(f, entries, time.Now()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
