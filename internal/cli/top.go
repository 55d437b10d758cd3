package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/countprof/countprof/internal/errors"
	"github.com/countprof/countprof/internal/store"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// newTopCmd creates the top command: hottest call paths from the report
// database.
func newTopCmd() *cobra.Command {
	var (
		dbPath   string
		reportID string
		limit    int
		plain    bool
	)

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the hottest call paths from ingested reports",
		Long: `Query the report database for the call paths with the most samples.

Without --report, counts are aggregated across all ingested reports.

Examples:
  countprof top
  countprof top --report 3f2a... --limit 5
  countprof top --plain | sort -k1 -n`,
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

			paths, err := s.TopPaths(cmd.Context(), reportID, limit)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				cmd.PrintErrln("no samples found (ingest a report first)")
				return nil
			}

			var total uint64
			for _, p := range paths {
				total += p.Count
			}

			if plain {
				for _, p := range paths {
					cmd.Printf("%d %s\n", p.Count, p.Path())
				}
				return nil
			}

			cmd.Println(headerStyle.Render(fmt.Sprintf("%8s  %6s  %s", "SAMPLES", "SHARE", "CALL PATH")))
			for _, p := range paths {
				share := float64(p.Count) / float64(total) * 100
				cmd.Printf("%s  %s  %s\n",
					countStyle.Render(fmt.Sprintf("%8d", p.Count)),
					dimStyle.Render(fmt.Sprintf("%5.1f%%", share)),
					strings.Join(p.Frames, dimStyle.Render(";")),
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Report database path (default from config)")
	cmd.Flags().StringVar(&reportID, "report", "", "Restrict to one report ID")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum paths to show")
	cmd.Flags().BoolVar(&plain, "plain", false, "Unstyled machine-friendly output")
	return cmd
}

// newReportsCmd creates the reports command: list ingested reports.
func newReportsCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List ingested reports",
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

			reports, err := s.ListReports(cmd.Context())
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				cmd.PrintErrln("no reports ingested")
				return nil
			}

			cmd.Println(headerStyle.Render(fmt.Sprintf("%-36s  %-20s  %10s  %6s  %s",
				"REPORT ID", "INGESTED", "SAMPLES", "PATHS", "SOURCE")))
			for _, r := range reports {
				cmd.Printf("%-36s  %-20s  %10d  %6d  %s\n",
					r.ReportID,
					r.IngestedAt.Format("2006-01-02 15:04:05"),
					r.TotalSamples,
					r.Paths,
					r.Source,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Report database path (default from config)")
	return cmd
}
