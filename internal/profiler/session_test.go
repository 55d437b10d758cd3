package profiler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/countprof/countprof/internal/profiler/host"
	"github.com/countprof/countprof/internal/testutil"
)

type harness struct {
	session *Session
	driver  *testutil.FakeDriver
	clock   *testutil.VirtualClock
	stack   *testutil.StackScript
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		driver: &testutil.FakeDriver{},
		clock:  &testutil.VirtualClock{},
		stack:  &testutil.StackScript{},
	}
	h.session = New(cfg, h.driver, h.stack, h.clock, testutil.NewTestLogger(t))
	return h
}

// tick advances the virtual clock and delivers a count event.
func (h *harness) tick(micros int64) {
	h.clock.Advance(micros)
	h.driver.Fire(host.CountReached)
}

func frame(unit string, line int) host.FrameInfo {
	return host.FrameInfo{Unit: unit, CurrentLine: line, DefinitionLine: line}
}

func TestStartArmsInitialThreshold(t *testing.T) {
	h := newHarness(t, Config{})
	assert.Equal(t, Stopped, h.session.State())

	h.session.Start()
	assert.Equal(t, Running, h.session.State())
	require.Len(t, h.driver.Arms, 1)
	assert.Equal(t, testutil.ArmCall{Threshold: 1, Mode: host.OnOperationCount}, h.driver.Arms[0])
}

func TestStartWithDriftGuardArmsCallEntry(t *testing.T) {
	h := newHarness(t, Config{DriftGuard: true})
	h.session.Start()
	assert.Equal(t, host.OnOperationCount|host.OnCallEntry, h.driver.LastArm().Mode)
}

func TestStartWhileRunningRearms(t *testing.T) {
	h := newHarness(t, Config{})
	h.session.Start()
	h.session.Start()

	assert.Equal(t, Running, h.session.State())
	assert.Len(t, h.driver.Arms, 2, "second Start just rearms")
}

func TestStopIsIdempotentAndRetainsData(t *testing.T) {
	h := newHarness(t, Config{})
	h.stack.Frames = []host.FrameInfo{frame("main.lua", 10)}
	h.session.Start()
	h.tick(1000)
	require.Equal(t, uint64(1), h.session.Tree().Total())

	h.session.Stop()
	h.session.Stop()
	assert.Equal(t, 1, h.driver.Disarms)
	assert.Equal(t, Stopped, h.session.State())
	assert.Equal(t, uint64(1), h.session.Tree().Total(), "stop keeps accumulated data")

	// Events cannot arrive after the synchronous disarm.
	h.tick(1000)
	assert.Equal(t, uint64(1), h.session.Tree().Total())
}

func TestStartAfterStopResumesSameTree(t *testing.T) {
	h := newHarness(t, Config{})
	h.stack.Frames = []host.FrameInfo{frame("main.lua", 10)}
	h.session.Start()
	h.tick(1000)
	h.session.Stop()

	h.session.Start()
	h.tick(1000)
	assert.Equal(t, uint64(2), h.session.Tree().Total(), "restart accumulates into the same tree")
}

func TestSampleRearmsBeforeRecording(t *testing.T) {
	h := newHarness(t, Config{})
	h.stack.Frames = []host.FrameInfo{frame("main.lua", 10)}
	h.session.Start()

	h.tick(1000)
	require.Len(t, h.driver.Arms, 2)
	assert.GreaterOrEqual(t, h.driver.LastArm().Threshold, 1)
	assert.Equal(t, h.session.Threshold(), h.driver.LastArm().Threshold)
}

func TestThresholdAdaptsToFastRuntime(t *testing.T) {
	h := newHarness(t, Config{})
	h.stack.Frames = []host.FrameInfo{frame("hot.lua", 1)}
	h.session.Start()

	// Every armed threshold executes within 1us: measured throughput keeps
	// rising, and once the median window fills the armed count must grow
	// well past the initial 1.
	for i := 0; i < 64; i++ {
		h.tick(1)
	}
	assert.Greater(t, h.session.Threshold(), 1000)

	// Thresholds never drop below 1 regardless of measurements.
	for _, arm := range h.driver.Arms {
		assert.GreaterOrEqual(t, arm.Threshold, 1)
	}
}

func TestEmptyStackStillUpdatesCadence(t *testing.T) {
	h := newHarness(t, Config{})
	h.stack.Frames = nil
	h.session.Start()

	h.tick(1000)
	assert.Equal(t, uint64(0), h.session.Tree().Total())
	assert.Len(t, h.driver.Arms, 2, "rearm happens even when nothing was recorded")
}

func TestCallEventsIgnoredWithoutDriftGuard(t *testing.T) {
	h := newHarness(t, Config{})
	h.stack.Frames = []host.FrameInfo{frame("main.lua", 10)}
	h.session.Start()

	h.clock.Advance(50_000)
	h.driver.Fire(host.CallEntered)
	assert.Equal(t, uint64(0), h.session.Tree().Total())
}

func TestDriftGuardForcesSampleAfterLongGap(t *testing.T) {
	h := newHarness(t, Config{DriftGuard: true})
	h.stack.Frames = []host.FrameInfo{frame("main.lua", 10)}
	h.session.Start()

	// Inside the 10ms budget: call events are cheap no-ops.
	h.clock.Advance(9_000)
	h.driver.Fire(host.CallEntered)
	assert.Equal(t, uint64(0), h.session.Tree().Total())

	// Past the budget: the gap is treated as an expired count.
	h.clock.Advance(2_000)
	h.driver.Fire(host.CallEntered)
	assert.Equal(t, uint64(1), h.session.Tree().Total())
}

func TestDriftGuardCustomThreshold(t *testing.T) {
	h := newHarness(t, Config{DriftGuard: true, DriftThreshold: 2 * time.Millisecond})
	h.stack.Frames = []host.FrameInfo{frame("main.lua", 10)}
	h.session.Start()

	h.clock.Advance(2_500)
	h.driver.Fire(host.CallEntered)
	assert.Equal(t, uint64(1), h.session.Tree().Total())
}

func TestGranularitySelectsLine(t *testing.T) {
	info := host.FrameInfo{Unit: "mod.lua", CurrentLine: 42, DefinitionLine: 7}

	for _, tc := range []struct {
		granularity Granularity
		wantLine    int
	}{
		{DefinitionLine, 7},
		{CurrentLine, 42},
	} {
		h := newHarness(t, Config{Granularity: tc.granularity})
		h.stack.Frames = []host.FrameInfo{info}
		h.session.Start()
		h.tick(1000)

		var buf bytes.Buffer
		require.NoError(t, h.session.WriteTo(&buf))
		assert.Equal(t, fmt.Sprintf("mod.lua:%d 1\n", tc.wantLine), buf.String())
	}
}

func TestDumpWritesPidFile(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, Config{OutputDir: dir})
	h.stack.Frames = []host.FrameInfo{frame("main.lua", 10)}
	h.session.Start()
	h.tick(1000)

	path, err := h.session.Dump()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, fmt.Sprintf("%d.cp", os.Getpid())), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "main.lua:10 1\n", string(data))
}

func TestDumpIsStableAndRepeatable(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, Config{OutputDir: dir})
	h.stack.Frames = []host.FrameInfo{frame("main.lua", 10), frame("helper.lua", 4)}
	h.session.Start()
	h.tick(1000)
	h.tick(1000)

	path, err := h.session.Dump()
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = h.session.Dump()
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second, "dumps without new samples must be byte identical")
	assert.Equal(t, uint64(2), h.session.Tree().Total(), "dump does not clear data")
}

func TestDumpFailureLeavesStateIntact(t *testing.T) {
	h := newHarness(t, Config{OutputDir: filepath.Join(t.TempDir(), "missing", "dir")})
	h.stack.Frames = []host.FrameInfo{frame("main.lua", 10)}
	h.session.Start()
	h.tick(1000)

	_, err := h.session.Dump()
	require.Error(t, err)
	assert.Equal(t, uint64(1), h.session.Tree().Total())

	var buf bytes.Buffer
	require.NoError(t, h.session.WriteTo(&buf))
	assert.Equal(t, "main.lua:10 1\n", buf.String())
}

func TestEndToEndScenario(t *testing.T) {
	h := newHarness(t, Config{})
	h.session.Start()

	h.stack.Frames = []host.FrameInfo{frame("main", 10)}
	h.tick(1000)
	h.stack.Frames = []host.FrameInfo{frame("main", 10), frame("helper", 4)}
	h.tick(1000)
	h.tick(1000)

	var buf bytes.Buffer
	require.NoError(t, h.session.WriteTo(&buf))
	assert.Contains(t, buf.String(), "main:10 1\n")
	assert.Contains(t, buf.String(), "main:10;helper:4 2\n")
}
