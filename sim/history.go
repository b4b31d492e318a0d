// Bounded per-step history buffers and streaming aggregates.

package sim

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultHistoryCapacity is the number of samples each history buffer retains
// before the oldest samples are overwritten.
const DefaultHistoryCapacity = 100_000

// History is a fixed-capacity ring buffer of float64 samples, one per step.
// Once full, each Record overwrites the oldest sample. Total keeps counting
// so callers can still tell how many steps were recorded.
type History struct {
	buf   []float64
	head  int // index of the oldest retained sample
	size  int // number of retained samples
	total int64
}

// NewHistory creates a History retaining at most capacity samples.
// A non-positive capacity falls back to DefaultHistoryCapacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{buf: make([]float64, capacity)}
}

// Record appends a sample, evicting the oldest one when full.
func (h *History) Record(v float64) {
	c := len(h.buf)
	if h.size < c {
		h.buf[(h.head+h.size)%c] = v
		h.size++
	} else {
		h.buf[h.head] = v
		h.head = (h.head + 1) % c
	}
	h.total++
}

// Len returns the number of retained samples.
func (h *History) Len() int { return h.size }

// Cap returns the maximum number of retained samples.
func (h *History) Cap() int { return len(h.buf) }

// Total returns the number of samples ever recorded, including evicted ones.
func (h *History) Total() int64 { return h.total }

// At returns the i-th retained sample, oldest first.
func (h *History) At(i int) float64 {
	if i < 0 || i >= h.size {
		panic("History.At: index out of range")
	}
	return h.buf[(h.head+i)%len(h.buf)]
}

// Latest returns the most recent sample and false if the history is empty.
func (h *History) Latest() (float64, bool) {
	if h.size == 0 {
		return 0, false
	}
	return h.At(h.size - 1), true
}

// Last returns a copy of the most recent n samples in chronological order.
// Fewer samples are returned when fewer are retained.
func (h *History) Last(n int) []float64 {
	if n > h.size {
		n = h.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	start := h.size - n
	for i := range out {
		out[i] = h.At(start + i)
	}
	return out
}

// Values returns a copy of every retained sample in chronological order.
func (h *History) Values() []float64 {
	return h.Last(h.size)
}

// WindowMean returns the mean of the most recent n samples, or 0 if empty.
func (h *History) WindowMean(n int) float64 {
	w := h.Last(n)
	if len(w) == 0 {
		return 0
	}
	return stat.Mean(w, nil)
}

// WindowStdDev returns the sample standard deviation of the most recent n
// samples, or 0 when fewer than two are available.
func (h *History) WindowStdDev(n int) float64 {
	w := h.Last(n)
	if len(w) < 2 {
		return 0
	}
	return stat.StdDev(w, nil)
}

// === RunningStats ===

// RunningStats accumulates count, mean and variance of a stream in O(1)
// space using Welford's update. It never forgets a sample, so it stays exact
// after the ring buffers have evicted the early part of a run.
type RunningStats struct {
	n    int64
	mean float64
	m2   float64
	max  float64
}

// Add folds one sample into the aggregate.
func (r *RunningStats) Add(x float64) {
	r.n++
	delta := x - r.mean
	r.mean += delta / float64(r.n)
	r.m2 += delta * (x - r.mean)
	if r.n == 1 || x > r.max {
		r.max = x
	}
}

// Count returns the number of samples seen.
func (r *RunningStats) Count() int64 { return r.n }

// Mean returns the running mean, or 0 if empty.
func (r *RunningStats) Mean() float64 { return r.mean }

// Max returns the largest sample seen, or 0 if empty.
func (r *RunningStats) Max() float64 { return r.max }

// Variance returns the sample variance, or 0 with fewer than two samples.
func (r *RunningStats) Variance() float64 {
	if r.n < 2 {
		return 0
	}
	return r.m2 / float64(r.n-1)
}

// StdDev returns the sample standard deviation.
func (r *RunningStats) StdDev() float64 {
	return math.Sqrt(r.Variance())
}
