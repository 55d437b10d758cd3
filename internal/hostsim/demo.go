package hostsim

import "github.com/countprof/countprof/internal/profiler/host"

// Demo stack frames, shared by the simulate command and tests.
var (
	demoMain   = host.FrameInfo{Unit: "main.lua", CurrentLine: 8, DefinitionLine: 3}
	demoWork   = host.FrameInfo{Unit: "work.lua", CurrentLine: 17, DefinitionLine: 12}
	demoInner  = host.FrameInfo{Unit: "work.lua", CurrentLine: 34, DefinitionLine: 31}
	demoHelper = host.FrameInfo{Unit: "util.lua", CurrentLine: 6, DefinitionLine: 5}
	demoIO     = host.FrameInfo{Unit: "io.lua", CurrentLine: 11, DefinitionLine: 9}
)

// DemoProgram builds a canned workload: a main loop spending most of its
// operations in a two-deep hot path, some in a cheap helper, and stalling on
// blocking I/O every eighth iteration. The stall is longer than the default
// drift threshold, so guarded and unguarded sessions produce visibly
// different gap behavior.
func DemoProgram(iterations int) []Step {
	var program []Step
	for i := 0; i < iterations; i++ {
		program = append(program,
			Step{Stack: stack(demoMain), Ops: 2_000, Micros: 200},
			Step{Stack: stack(demoMain, demoWork), Ops: 40_000, Micros: 4_000},
			Step{Stack: stack(demoMain, demoWork, demoInner), Ops: 120_000, Micros: 6_000},
			Step{Stack: stack(demoMain, demoHelper), Ops: 8_000, Micros: 800},
		)
		if i%8 == 7 {
			program = append(program, Step{Stack: stack(demoMain, demoIO), Micros: 15_000})
		}
	}
	return program
}

func stack(frames ...host.FrameInfo) []host.FrameInfo { return frames }
