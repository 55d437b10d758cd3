package profiler

import "time"

// DefaultDriftThreshold is how far behind wall clock a guarded session may
// fall before a call-entry event forces a sample.
const DefaultDriftThreshold = 10 * time.Millisecond

// Granularity selects which line number identifies a frame.
type Granularity int

const (
	// DefinitionLine records the line where the executing callable was
	// defined. The default: it keeps all samples of one function on one
	// node regardless of which statement was running.
	DefinitionLine Granularity = iota
	// CurrentLine records the exact line executing at sample time.
	CurrentLine
)

// String implements fmt.Stringer.
func (g Granularity) String() string {
	switch g {
	case CurrentLine:
		return "current-line"
	default:
		return "definition-line"
	}
}

// ParseGranularity maps a config string to a Granularity. Unknown values
// fall back to DefinitionLine.
func ParseGranularity(s string) Granularity {
	if s == "current-line" {
		return CurrentLine
	}
	return DefinitionLine
}

// Config holds per-session profiler settings. The zero value is usable:
// definition-line granularity, a 19-wide cadence window, no drift guard,
// every tree node emitted on dump, output in the current working directory.
type Config struct {
	// Granularity selects the line recorded per frame.
	Granularity Granularity
	// Window overrides the cadence filter's median window size.
	Window int
	// DriftGuard also samples on call entry whenever more than
	// DriftThreshold has passed since the last sample. Bounds the worst-
	// case sampling gap when throughput collapses (e.g. a blocking call),
	// at the cost of overhead on every call.
	DriftGuard bool
	// DriftThreshold defaults to DefaultDriftThreshold when zero.
	DriftThreshold time.Duration
	// OmitZeroCounts drops tree nodes that were never the innermost frame
	// from dumps. Off by default: interior nodes preserve the full
	// call-graph shape and downstream tooling may rely on them.
	OmitZeroCounts bool
	// OutputDir is where Dump writes <pid>.cp. Empty means the current
	// working directory.
	OutputDir string
}
