// Package cadence adapts the profiler's operation-count threshold so that
// sampling tracks a wall-clock rate of roughly one sample per millisecond
// regardless of how fast the runtime executes operations.
package cadence

// DefaultWindow is the number of recent rate measurements the median spans.
// Wide enough to ride out single-sample spikes (GC pauses, I/O stalls),
// short enough to track genuine throughput shifts within ~19 samples.
const DefaultWindow = 19

// Filter derives the next operation-count threshold from a windowed median
// of observed execution rates. The raw per-interval rate is far too noisy to
// rearm on directly; the median of a short rolling window is robust to
// outliers while still converging on real throughput changes.
//
// Zero-filled at construction: the first window-1 observations include stale
// zero entries in the median. Accepted startup noise, not corrected.
type Filter struct {
	win  []int // sorted
	ring []int // arrival order
	idx  int   // ring cursor
}

// New returns a Filter over the given window size. Sizes below 1 fall back
// to DefaultWindow.
func New(window int) *Filter {
	if window < 1 {
		window = DefaultWindow
	}
	return &Filter{
		win:  make([]int, window),
		ring: make([]int, window),
	}
}

// Observe folds one interval measurement into the window and returns the
// threshold to arm for the next interval: the median operations-per-
// millisecond over the window, clamped to at least 1 so the event driver is
// never armed with a degenerate count. elapsedMicros below 1 is treated as 1.
//
// No allocation; O(window) worst case per call.
func (f *Filter) Observe(operations int, elapsedMicros int64) int {
	if elapsedMicros < 1 {
		elapsedMicros = 1
	}
	rate := int(int64(operations) * 1000 / elapsedMicros)

	med := f.update(rate)
	if med < 1 {
		med = 1
	}
	return med
}

// update slides the window by one value and returns the new median. The
// sorted window is repaired in place: the evicted value's slot is located,
// then the new value is bubbled toward its ordered position one slot at a
// time, shifting neighbors over the vacated slot.
func (f *Filter) update(v int) int {
	f.idx++
	if f.idx >= len(f.ring) {
		f.idx = 0
	}
	evicted := f.ring[f.idx]
	f.ring[f.idx] = v

	i := 0
	for f.win[i] != evicted {
		i++
	}

	if v < evicted {
		for i > 0 && v < f.win[i-1] {
			f.win[i] = f.win[i-1]
			i--
		}
	} else {
		for i < len(f.win)-1 && v > f.win[i+1] {
			f.win[i] = f.win[i+1]
			i++
		}
	}
	f.win[i] = v

	return f.win[len(f.win)/2]
}

// Window reports the configured window size.
func (f *Filter) Window() int { return len(f.win) }
