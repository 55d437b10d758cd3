package testutil

import (
	"github.com/countprof/countprof/internal/profiler/host"
)

// VirtualClock is a manually advanced microsecond clock.
type VirtualClock struct {
	micros int64
}

// Now implements host.Clock.
func (c *VirtualClock) Now() int64 { return c.micros }

// Advance moves the clock forward by the given number of microseconds.
func (c *VirtualClock) Advance(micros int64) { c.micros += micros }

// ArmCall records one Arm invocation on the fake driver.
type ArmCall struct {
	Threshold int
	Mode      host.Mode
}

// FakeDriver is a hand-cranked host.EventDriver: tests fire events
// explicitly and inspect what the profiler armed in response.
type FakeDriver struct {
	handler func(host.Event)
	Arms    []ArmCall
	Disarms int
	Armed   bool
}

// SetHandler implements host.EventDriver.
func (d *FakeDriver) SetHandler(fn func(host.Event)) { d.handler = fn }

// Arm implements host.EventDriver.
func (d *FakeDriver) Arm(threshold int, mode host.Mode) {
	d.Arms = append(d.Arms, ArmCall{Threshold: threshold, Mode: mode})
	d.Armed = true
}

// Disarm implements host.EventDriver.
func (d *FakeDriver) Disarm() {
	d.Disarms++
	d.Armed = false
}

// Fire delivers an event to the registered handler, mimicking the runtime
// invoking the profiler re-entrantly. Events on a disarmed driver are
// swallowed, as a real runtime would.
func (d *FakeDriver) Fire(ev host.Event) {
	if d.handler == nil || !d.Armed {
		return
	}
	d.handler(ev)
}

// LastArm returns the most recent Arm call; zero value when never armed.
func (d *FakeDriver) LastArm() ArmCall {
	if len(d.Arms) == 0 {
		return ArmCall{}
	}
	return d.Arms[len(d.Arms)-1]
}

// StackScript is a StackWalker serving a fixed stack, outermost frame first.
// Swap Frames between fires to emulate the program moving between call
// paths; nil means an empty stack at sample time.
type StackScript struct {
	Frames []host.FrameInfo
}

// FrameAt implements host.StackWalker. Depth 0 is the innermost frame, which
// is the last element of Frames.
func (s *StackScript) FrameAt(depth int) (host.FrameInfo, bool) {
	i := len(s.Frames) - 1 - depth
	if i < 0 {
		return host.FrameInfo{}, false
	}
	return s.Frames[i], true
}
