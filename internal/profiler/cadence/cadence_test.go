package cadence

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bruteMedian recomputes the median over the last min(n, w) values plus
// zero-fill padding, mirroring the filter's zero-initialized window.
func bruteMedian(history []int, w int) int {
	window := make([]int, w)
	copy(window, tail(history, w))
	sort.Ints(window)
	return window[w/2]
}

func tail(s []int, n int) []int {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func TestUpdateMatchesBruteForceMedian(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	sequences := map[string]func(i int) int{
		"random":      func(i int) int { return rng.Intn(10_000) },
		"increasing":  func(i int) int { return i * 7 },
		"decreasing":  func(i int) int { return 100_000 - i*13 },
		"repeats":     func(i int) int { return []int{5, 5, 9, 9, 9}[i%5] },
		"oscillating": func(i int) int { return []int{1, 1_000_000}[i%2] },
	}

	for name, gen := range sequences {
		t.Run(name, func(t *testing.T) {
			f := New(DefaultWindow)
			var history []int
			for i := 0; i < 500; i++ {
				v := gen(i)
				history = append(history, v)
				got := f.update(v)
				want := bruteMedian(history, DefaultWindow)
				require.Equal(t, want, got, "median diverged after %d insertions", i+1)
			}
		})
	}
}

func TestUpdateSmallWindows(t *testing.T) {
	for _, w := range []int{1, 3, 5} {
		f := New(w)
		rng := rand.New(rand.NewSource(int64(w)))
		var history []int
		for i := 0; i < 200; i++ {
			v := rng.Intn(100)
			history = append(history, v)
			require.Equal(t, bruteMedian(history, w), f.update(v))
		}
	}
}

func TestObserveConstantRateConverges(t *testing.T) {
	f := New(DefaultWindow)

	// 5000 operations per 1000us = 5000 ops/ms.
	var got int
	for i := 0; i < DefaultWindow; i++ {
		got = f.Observe(5000, 1000)
	}
	assert.Equal(t, 5000, got, "median should converge to the constant rate within one window")
}

func TestObserveClampsToOne(t *testing.T) {
	f := New(DefaultWindow)

	// Zero work observed: rate is 0, but the armed threshold must stay >= 1.
	assert.Equal(t, 1, f.Observe(0, 1000))

	// Elapsed time below a microsecond is clamped before dividing.
	assert.Equal(t, 1, New(1).Observe(0, 0))
	assert.Equal(t, 7_000, New(1).Observe(7, 0))
}

func TestObserveTruncatesIntegerRate(t *testing.T) {
	// 999 ops over 1000us truncates to 999 ops/ms; 1 op over 3000us truncates
	// to 0 and the window absorbs it as a zero measurement.
	f := New(1)
	assert.Equal(t, 999, f.Observe(999, 1000))
	assert.Equal(t, 1, f.Observe(1, 3000))
}

func TestNewDefaultsWindow(t *testing.T) {
	assert.Equal(t, DefaultWindow, New(0).Window())
	assert.Equal(t, DefaultWindow, New(-3).Window())
	assert.Equal(t, 7, New(7).Window())
}

func TestStartupZeroFillDominatesEarlyMedian(t *testing.T) {
	f := New(DefaultWindow)

	// A handful of large observations cannot outvote the zero fill until a
	// majority of the window has been replaced.
	for i := 0; i < DefaultWindow/2; i++ {
		assert.Equal(t, 1, f.Observe(1_000_000, 1))
	}
	for i := 0; i < DefaultWindow; i++ {
		f.Observe(1_000_000, 1)
	}
	assert.Equal(t, 1_000_000_000, f.Observe(1_000_000, 1))
}
