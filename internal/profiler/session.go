// Package profiler implements an embeddable statistical call-stack sampling
// profiler for operation-counted host runtimes. A Session arms the host's
// event driver with an adaptive operation threshold so samples land roughly
// once per millisecond, aggregates each sampled stack into a frame-identity
// trie, and dumps folded-stack reports on demand.
package profiler

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/countprof/countprof/internal/profiler/cadence"
	"github.com/countprof/countprof/internal/profiler/host"
	"github.com/countprof/countprof/internal/profiler/stacktree"
	"github.com/countprof/countprof/internal/report"
)

// State is the session lifecycle state.
type State int

const (
	// Stopped means the host driver is disarmed; accumulated data is kept.
	Stopped State = iota
	// Running means the session is armed and sampling.
	Running
)

// Session is one profiling session: the sample dispatcher, cadence filter,
// and aggregation tree behind a start/stop/dump surface. The session runs
// entirely on the host runtime's thread, re-entrantly from its event
// mechanism; there is no background work and no locking. One session per
// profiled runtime.
//
// A sampled stack's growth is the only steady-state allocation; if the
// process cannot allocate a tree node the Go runtime aborts, which is the
// session's documented out-of-memory policy.
type Session struct {
	cfg    Config
	logger zerolog.Logger

	driver host.EventDriver
	clock  host.Clock
	res    resolver

	filter *cadence.Filter
	tree   *stacktree.Tree

	state       State
	threshold   int
	lastSample  int64
	driftMicros int64
}

// New wires a session to its host collaborators. A nil clock falls back to a
// process-monotonic microsecond clock. The session registers itself as the
// driver's handler; it does not arm the driver until Start.
func New(cfg Config, driver host.EventDriver, walker host.StackWalker, clock host.Clock, logger zerolog.Logger) *Session {
	if clock == nil {
		base := time.Now()
		clock = host.ClockFunc(func() int64 {
			return time.Since(base).Microseconds()
		})
	}
	drift := cfg.DriftThreshold
	if drift <= 0 {
		drift = DefaultDriftThreshold
	}

	s := &Session{
		cfg:         cfg,
		logger:      logger.With().Str("component", "profiler").Logger(),
		driver:      driver,
		clock:       clock,
		res:         resolver{walker: walker, granularity: cfg.Granularity},
		filter:      cadence.New(cfg.Window),
		tree:        stacktree.New(),
		threshold:   1,
		driftMicros: drift.Microseconds(),
	}
	driver.SetHandler(s.handleEvent)
	return s
}

func (s *Session) mode() host.Mode {
	mode := host.OnOperationCount
	if s.cfg.DriftGuard {
		mode |= host.OnCallEntry
	}
	return mode
}

// Start begins (or resumes) sampling. Calling Start on a running session is
// harmless: it rearms the driver with the current threshold and returns.
// After a Stop/Start cycle the session keeps accumulating into the same tree.
func (s *Session) Start() {
	if s.state == Running {
		s.driver.Arm(s.threshold, s.mode())
		s.logger.Debug().Msg("session already running, rearmed")
		return
	}
	s.state = Running
	s.driver.Arm(s.threshold, s.mode())
	s.lastSample = s.clock.Now()
	s.logger.Info().
		Int("threshold", s.threshold).
		Stringer("granularity", s.cfg.Granularity).
		Bool("drift_guard", s.cfg.DriftGuard).
		Msg("profiling started")
}

// Stop halts sampling and synchronously disarms the host driver; no further
// events fire until the next Start. Idempotent. Accumulated data is kept and
// remains dumpable.
func (s *Session) Stop() {
	if s.state == Stopped {
		return
	}
	s.state = Stopped
	s.driver.Disarm()
	s.logger.Info().
		Uint64("samples", s.tree.Total()).
		Int("paths", s.tree.Nodes()).
		Msg("profiling stopped")
}

// handleEvent is the dispatcher invoked by the host driver.
func (s *Session) handleEvent(ev host.Event) {
	if s.state != Running {
		return
	}
	if ev == host.CallEntered {
		// Drift guard: only sample when the count event has silently
		// fallen more than the threshold behind wall clock.
		if !s.cfg.DriftGuard || s.clock.Now()-s.lastSample <= s.driftMicros {
			return
		}
	}
	s.sample()
}

// sample runs one dispatch: measure the interval, adapt the threshold,
// rearm, then record the stack. lastSample is re-read after aggregation so
// trie maintenance cost stays out of the next interval's rate measurement.
func (s *Session) sample() {
	now := s.clock.Now()
	elapsed := now - s.lastSample
	if elapsed < 1 {
		elapsed = 1
	}

	next := s.filter.Observe(s.threshold, elapsed)
	if next < 1 {
		next = 1
	}
	s.threshold = next
	s.driver.Arm(next, s.mode())

	// An empty stack at sample time records nothing; the cadence update and
	// rearm above still happened.
	s.tree.Record(s.res.frameAt)

	s.lastSample = s.clock.Now()
}

// State reports the lifecycle state.
func (s *Session) State() State { return s.state }

// Threshold reports the currently armed operation threshold.
func (s *Session) Threshold() int { return s.threshold }

// Tree exposes the aggregation tree. Callers must not mutate it; reading is
// safe whenever the host runtime is not inside a sample callback.
func (s *Session) Tree() *stacktree.Tree { return s.tree }

// WriteTo writes a folded-stack snapshot of the accumulated data.
func (s *Session) WriteTo(w io.Writer) error {
	return report.WriteFolded(w, s.tree, !s.cfg.OmitZeroCounts)
}

// Dump writes a full folded-stack snapshot to <pid>.cp under the configured
// output directory and returns the file path. It may be called at any time,
// including while running, does not clear accumulated data, and produces an
// independent snapshot on every call. A failed write leaves in-memory state
// untouched.
func (s *Session) Dump() (string, error) {
	path := filepath.Join(s.cfg.OutputDir, fmt.Sprintf("%d.cp", os.Getpid()))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create dump file: %w", err)
	}
	if err := report.WriteFolded(f, s.tree, !s.cfg.OmitZeroCounts); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write dump: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close dump file: %w", err)
	}

	s.logger.Info().
		Str("path", path).
		Uint64("samples", s.tree.Total()).
		Msg("profile dumped")
	return path, nil
}
