package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePprofRoundTrip(t *testing.T) {
	entries := []Entry{
		{Frames: []string{"main:10", "helper:4"}, Count: 2},
		{Frames: []string{"main:10"}, Count: 1},
		{Frames: []string{"main:10", "idle:1"}, Count: 0}, // dropped
	}

	var buf bytes.Buffer
	sampledAt := time.Unix(1700000000, 0)
	require.NoError(t, WritePprof(&buf, entries, sampledAt))

	p, err := profile.Parse(&buf)
	require.NoError(t, err)
	require.NoError(t, p.CheckValid())

	require.Len(t, p.SampleType, 1)
	assert.Equal(t, "samples", p.SampleType[0].Type)
	assert.Equal(t, "count", p.SampleType[0].Unit)
	assert.Equal(t, sampledAt.UnixNano(), p.TimeNanos)

	require.Len(t, p.Sample, 2, "zero-count entries carry no pprof weight")

	// pprof locations are leaf first.
	first := p.Sample[0]
	assert.Equal(t, []int64{2}, first.Value)
	require.Len(t, first.Location, 2)
	assert.Equal(t, "helper:4", first.Location[0].Line[0].Function.Name)
	assert.Equal(t, int64(4), first.Location[0].Line[0].Line)
	assert.Equal(t, "main:10", first.Location[1].Line[0].Function.Name)

	// Shared frames map to one location.
	second := p.Sample[1]
	require.Len(t, second.Location, 1)
	assert.Same(t, first.Location[1], second.Location[0])
}

func TestWritePprofEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePprof(&buf, nil, time.Now()))

	p, err := profile.Parse(&buf)
	require.NoError(t, err)
	assert.Empty(t, p.Sample)
}

func TestSplitFrame(t *testing.T) {
	for _, tc := range []struct {
		in   string
		unit string
		line int
	}{
		{"main.lua:10", "main.lua", 10},
		{"c:/src/x.lua:3", "c:/src/x.lua", 3},
		{"noline", "noline", 0},
		{"trailing:", "trailing:", 0},
	} {
		unit, line := splitFrame(tc.in)
		assert.Equal(t, tc.unit, unit, tc.in)
		assert.Equal(t, tc.line, line, tc.in)
	}
}
