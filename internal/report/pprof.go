package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/pprof/profile"

	"github.com/countprof/countprof/internal/safe"
)

// WritePprof converts folded entries into a pprof profile (gzipped proto)
// with a single "samples/count" value type. Zero-count entries carry no
// weight in pprof and are skipped. Each distinct frame becomes one function
// and one location; pprof wants locations leaf first, so paths are reversed.
func WritePprof(w io.Writer, entries []Entry, sampledAt time.Time) error {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "samples", Unit: "count"},
		},
		TimeNanos: sampledAt.UnixNano(),
	}

	locs := map[string]*profile.Location{}
	locationFor := func(frame string) *profile.Location {
		if loc, ok := locs[frame]; ok {
			return loc
		}
		unit, line := splitFrame(frame)
		fn := &profile.Function{
			ID:       uint64(len(p.Function) + 1),
			Name:     frame,
			Filename: unit,
		}
		p.Function = append(p.Function, fn)
		loc := &profile.Location{
			ID:   uint64(len(p.Location) + 1),
			Line: []profile.Line{{Function: fn, Line: int64(line)}},
		}
		p.Location = append(p.Location, loc)
		locs[frame] = loc
		return loc
	}

	for _, e := range entries {
		if e.Count == 0 || len(e.Frames) == 0 {
			continue
		}
		value, _ := safe.Uint64ToInt64(e.Count)
		sample := &profile.Sample{
			Location: make([]*profile.Location, 0, len(e.Frames)),
			Value:    []int64{value},
		}
		for i := len(e.Frames) - 1; i >= 0; i-- {
			sample.Location = append(sample.Location, locationFor(e.Frames[i]))
		}
		p.Sample = append(p.Sample, sample)
	}

	if err := p.CheckValid(); err != nil {
		return fmt.Errorf("built invalid pprof profile: %w", err)
	}
	if err := p.Write(w); err != nil {
		return fmt.Errorf("write pprof profile: %w", err)
	}
	return nil
}

// splitFrame splits "unit:line" on the last colon. Frames without a parseable
// line keep the whole string as the unit and report line 0.
func splitFrame(frame string) (string, int) {
	sep := strings.LastIndexByte(frame, ':')
	if sep < 0 {
		return frame, 0
	}
	line, err := strconv.Atoi(frame[sep+1:])
	if err != nil {
		return frame, 0
	}
	return frame[:sep], line
}
