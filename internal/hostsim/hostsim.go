// Package hostsim is a deterministic simulated host runtime for the
// profiler: a scripted program whose execution is described as a sequence of
// (stack, operations, elapsed time) steps. It implements the host event
// driver, stack walker, and clock contracts, so an entire profiling session
// can run without a real interpreter, with reproducible results.
package hostsim

import (
	"github.com/countprof/countprof/internal/profiler/host"
)

// Step is one slice of simulated execution: the program runs Ops low-level
// operations spread evenly over Micros microseconds while Stack (outermost
// frame first) is the call stack. Ops of zero models a blocking stall.
type Step struct {
	Stack  []host.FrameInfo
	Ops    int64
	Micros int64
}

// Repeat returns the steps repeated n times, modeling a program loop.
func Repeat(n int, steps []Step) []Step {
	out := make([]Step, 0, n*len(steps))
	for i := 0; i < n; i++ {
		out = append(out, steps...)
	}
	return out
}

// Runtime executes a scripted program, firing count events whenever the
// armed operation threshold expires and call events whenever the stack
// grows. The virtual clock advances proportionally to operations consumed
// within each step, so identical scripts always produce identical samples.
type Runtime struct {
	program []Step
	handler func(host.Event)

	mode      host.Mode
	armed     bool
	threshold int64
	budget    int64

	micros  int64
	opsRun  int64
	current []host.FrameInfo
}

// New returns a runtime for the given program.
func New(program []Step) *Runtime {
	return &Runtime{program: program}
}

// SetHandler implements host.EventDriver.
func (r *Runtime) SetHandler(fn func(host.Event)) { r.handler = fn }

// Arm implements host.EventDriver. As with an interpreter count hook, the
// threshold stays in effect until the next Arm or Disarm; a threshold below
// 1 is treated as 1.
func (r *Runtime) Arm(threshold int, mode host.Mode) {
	if threshold < 1 {
		threshold = 1
	}
	r.threshold = int64(threshold)
	r.budget = r.threshold
	r.mode = mode
	r.armed = true
}

// Disarm implements host.EventDriver.
func (r *Runtime) Disarm() { r.armed = false }

// Now implements host.Clock.
func (r *Runtime) Now() int64 { return r.micros }

// FrameAt implements host.StackWalker over the current step's stack.
func (r *Runtime) FrameAt(depth int) (host.FrameInfo, bool) {
	i := len(r.current) - 1 - depth
	if i < 0 {
		return host.FrameInfo{}, false
	}
	return r.current[i], true
}

// OpsExecuted reports the total operations the program has run.
func (r *Runtime) OpsExecuted() int64 { return r.opsRun }

// Run executes the whole program. Events are delivered synchronously on the
// caller's goroutine, exactly as an interpreter hook would run.
func (r *Runtime) Run() {
	for _, step := range r.program {
		r.runStep(step)
	}
}

func (r *Runtime) runStep(step Step) {
	grew := len(step.Stack) > len(r.current)
	r.current = step.Stack
	if grew && r.armed && r.mode&host.OnCallEntry != 0 {
		r.handler(host.CallEntered)
	}

	if step.Ops <= 0 {
		// Blocking stall: time passes, no operations execute, so no count
		// event can fire.
		r.micros += step.Micros
		return
	}

	var done, elapsed int64
	for done < step.Ops {
		chunk := step.Ops - done
		if r.armed && r.budget < chunk {
			chunk = r.budget
		}
		done += chunk

		// Advance the clock to the proportional position within the step.
		target := step.Micros * done / step.Ops
		r.micros += target - elapsed
		elapsed = target
		r.opsRun += chunk

		if r.armed {
			r.budget -= chunk
			if r.budget <= 0 {
				// Like an interpreter count hook, the threshold re-applies
				// until the handler rearms with a new one.
				r.budget = r.threshold
				r.handler(host.CountReached)
			}
		}
	}
}
