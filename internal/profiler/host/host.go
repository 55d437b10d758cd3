// Package host defines the contracts an embedding runtime must satisfy for
// the profiler to sample it: an operation-counted event driver, a stack
// walker, and a monotonic clock.
package host

// Mode selects which runtime events the driver delivers to the profiler.
type Mode uint8

const (
	// OnOperationCount fires the handler after the armed number of
	// low-level operations has executed.
	OnOperationCount Mode = 1 << iota
	// OnCallEntry additionally fires the handler on every function entry.
	// Used by the drift guard; adds overhead to each call.
	OnCallEntry
)

// Event identifies why the driver invoked the profiler's handler.
type Event uint8

const (
	// CountReached means the armed operation threshold expired.
	CountReached Event = iota
	// CallEntered means a function entry was observed (OnCallEntry mode).
	CallEntered
)

// FrameInfo is the stack metadata the runtime exposes for one frame.
// Unit identifies the source or compilation unit; the profiler does not
// assume the string outlives the callback and interns what it keeps.
type FrameInfo struct {
	Unit           string
	CurrentLine    int
	DefinitionLine int
}

// StackWalker exposes the currently executing call stack. Depth 0 is the
// innermost frame; FrameAt reports false once depth exceeds the stack height.
type StackWalker interface {
	FrameAt(depth int) (FrameInfo, bool)
}

// EventDriver is the runtime facility that invokes the profiler. Arm replaces
// any previous threshold; Disarm stops event delivery until the next Arm.
// The handler runs synchronously on the runtime's own thread and may rearm
// before returning.
type EventDriver interface {
	SetHandler(fn func(Event))
	Arm(threshold int, mode Mode)
	Disarm()
}

// Clock supplies monotonic time in microseconds.
type Clock interface {
	Now() int64
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() int64

// Now implements Clock.
func (f ClockFunc) Now() int64 { return f() }
