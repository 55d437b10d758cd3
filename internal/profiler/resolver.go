package profiler

import (
	"github.com/countprof/countprof/internal/profiler/host"
	"github.com/countprof/countprof/internal/profiler/stacktree"
)

// resolver adapts the host's stack walk into frame identities, applying the
// configured line granularity. Exhaustion of the stack is reported via the
// bool, not as an error; it is the aggregator's termination signal.
type resolver struct {
	walker      host.StackWalker
	granularity Granularity
}

func (r resolver) frameAt(depth int) (stacktree.Frame, bool) {
	info, ok := r.walker.FrameAt(depth)
	if !ok {
		return stacktree.Frame{}, false
	}
	line := info.CurrentLine
	if r.granularity == DefinitionLine {
		line = info.DefinitionLine
	}
	return stacktree.Frame{Unit: info.Unit, Line: line}, true
}
