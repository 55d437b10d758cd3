package cli

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/spf13/pflag"

	"github.com/countprof/countprof/internal/config"
	"github.com/countprof/countprof/internal/profiler"
)

// profilerFlags holds the flag values shared by commands that run a
// profiling session. Flags override environment and defaults only when set
// explicitly.
type profilerFlags struct {
	granularity    string
	window         int
	driftGuard     bool
	driftThreshold time.Duration
	omitZeroCounts bool
	outputDir      string
}

// addFlags registers the profiler flags on a FlagSet.
func (f *profilerFlags) addFlags(flags *pflag.FlagSet) {
	def := config.Default()
	flags.StringVar(&f.granularity, "granularity", def.Granularity,
		"Line recorded per frame: definition-line or current-line")
	flags.IntVar(&f.window, "window", def.Window,
		"Cadence filter median window size")
	flags.BoolVar(&f.driftGuard, "drift-guard", def.DriftGuard,
		"Force a sample on call entry after long sampling gaps")
	flags.DurationVar(&f.driftThreshold, "drift-threshold", def.DriftThreshold,
		"Gap length that triggers a drift-guard sample")
	flags.BoolVar(&f.omitZeroCounts, "omit-zero-counts", def.OmitZeroCounts,
		"Drop never-sampled interior call paths from the dump")
	flags.StringVar(&f.outputDir, "output-dir", def.OutputDir,
		"Directory for dump files (default: working directory)")
}

// apply layers explicitly-set flags over cfg.
func (f *profilerFlags) apply(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("granularity") {
		cfg.Granularity = f.granularity
	}
	if flags.Changed("window") {
		cfg.Window = f.window
	}
	if flags.Changed("drift-guard") {
		cfg.DriftGuard = f.driftGuard
	}
	if flags.Changed("drift-threshold") {
		cfg.DriftThreshold = f.driftThreshold
	}
	if flags.Changed("omit-zero-counts") {
		cfg.OmitZeroCounts = f.omitZeroCounts
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = f.outputDir
	}
}

// sessionConfig converts the effective configuration into per-session
// profiler settings.
func sessionConfig(cfg *config.Config) profiler.Config {
	return profiler.Config{
		Granularity:    profiler.ParseGranularity(cfg.Granularity),
		Window:         cfg.Window,
		DriftGuard:     cfg.DriftGuard,
		DriftThreshold: cfg.DriftThreshold,
		OmitZeroCounts: cfg.OmitZeroCounts,
		OutputDir:      cfg.OutputDir,
	}
}

// logSelfUsage logs this process's CPU time and resident memory, so long
// simulation runs leave a footprint record next to their results.
func logSelfUsage(logger zerolog.Logger) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Debug().Err(err).Msg("self process lookup failed")
		return
	}

	ev := logger.Debug()
	if times, err := proc.Times(); err == nil {
		ev = ev.Float64("cpu_user_s", times.User).Float64("cpu_system_s", times.System)
	}
	if mi, err := proc.MemoryInfo(); err == nil {
		ev = ev.Uint64("rss_bytes", mi.RSS)
	}
	ev.Msg("process usage")
}
