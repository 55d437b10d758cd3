// Package cli wires the countprof commands: simulating a profiled run,
// converting and ingesting folded reports, and querying the report store.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/countprof/countprof/internal/config"
	"github.com/countprof/countprof/internal/logging"
	"github.com/countprof/countprof/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "countprof",
	Short: "countprof - adaptive operation-count profiler tooling",
	Long: `countprof samples call stacks on an adaptive operation-count cadence and
aggregates them into a call path tree.

The cadence self-tunes toward roughly one sample per millisecond: each sample
measures the observed operation rate, and a windowed median of those
measurements smooths out bursts and stalls. Dumps use the folded stack format
(one "frame;frame;frame count" line per path) consumed by flamegraph tooling.

Reports can be ingested into a local DuckDB database and queried for the
hottest call paths, or converted to pprof for use with go tool pprof.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newConvertCmd())
	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newTopCmd())
	rootCmd.AddCommand(newReportsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("countprof version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}

// loadConfig builds the effective configuration (defaults plus COUNTPROF_*
// environment overrides) and a logger for it.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	return cfg, logger, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
