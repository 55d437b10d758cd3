package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/countprof/countprof/internal/errors"
	"github.com/countprof/countprof/internal/store"
)

// newIngestCmd creates the ingest command: folded report files into the
// local report database.
func newIngestCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "ingest <report.cp> [report.cp...]",
		Short: "Ingest folded reports into the report database",
		Long: `Parse folded-stack report files and store them in the local DuckDB
database for querying with 'countprof top'.

Each file becomes one report; its ID is printed on success.

Examples:
  countprof ingest 1234.cp
  countprof ingest profiles/*.cp --db reports.db`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.DatabasePath = dbPath
			}

			s, err := store.Open(cfg.DatabasePath, logger)
			if err != nil {
				return err
			}
			defer errors.DeferClose(logger, s, "close report store")

			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("open report: %w", err)
				}
				summary, err := s.IngestFolded(cmd.Context(), filepath.Base(path), f)
				_ = f.Close()
				if err != nil {
					return err
				}
				cmd.Printf("%s  %s  (%d samples, %d paths)\n",
					summary.ReportID, summary.Source, summary.TotalSamples, summary.Paths)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Report database path (default from config)")
	return cmd
}
