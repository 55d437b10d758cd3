package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/countprof/countprof/internal/report"
)

// newConvertCmd creates the convert command: folded stacks in, pprof out.
func newConvertCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "convert [report.cp]",
		Short: "Convert a folded report to pprof format",
		Long: `Convert a folded-stack report to the pprof protobuf format for use with
go tool pprof and pprof-compatible viewers.

Reads from the given file, or stdin when no file is named. Writes to stdout
unless --output is given.

Examples:
  countprof convert 1234.cp --output profile.pb.gz
  countprof simulate | countprof convert | go tool pprof -top -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			sampledAt := time.Now()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open report: %w", err)
				}
				defer func() { _ = f.Close() }()
				if fi, err := f.Stat(); err == nil {
					sampledAt = fi.ModTime()
				}
				in = f
			}

			entries, err := report.ParseFolded(in)
			if err != nil {
				return err
			}

			if output == "" {
				return report.WritePprof(cmd.OutOrStdout(), entries, sampledAt)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			if err := report.WritePprof(f, entries, sampledAt); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the profile to this path instead of stdout")
	return cmd
}
