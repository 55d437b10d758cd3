package stacktree

import "strconv"

// Frame identifies one call-stack position: a source unit plus a line number.
// Comparable, so it serves directly as a map key; two frames are the same
// logical node when both fields match.
type Frame struct {
	Unit string
	Line int
}

// String renders the frame in the "unit:line" form used by folded output.
func (f Frame) String() string {
	return f.Unit + ":" + strconv.Itoa(f.Line)
}
