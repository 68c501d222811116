package timegrid

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrEmptyGrid     = errors.New("timegrid: grid needs at least two sample times")
	ErrNotAscending  = errors.New("timegrid: sample times must be strictly ascending")
	ErrBadHorizon    = errors.New("timegrid: end time must be greater than start time")
	ErrNotFinite     = errors.New("timegrid: sample times must be finite")
	ErrNegativeStart = errors.New("timegrid: start time must be non-negative")
)

// Grid is a fixed, ascending list of simulated sample times. Trajectories
// are recorded against a Grid, so every realization of an ensemble shares
// the same time axis. A Grid is immutable once built.
type Grid struct {
	times []float64
}

// Linspace builds a grid of n evenly spaced samples covering [start, end],
// endpoints included.
func Linspace(start, end float64, n int) (Grid, error) {
	if n < 2 {
		return Grid{}, ErrEmptyGrid
	}
	if math.IsNaN(start) || math.IsInf(start, 0) || math.IsNaN(end) || math.IsInf(end, 0) {
		return Grid{}, ErrNotFinite
	}
	if start < 0 {
		return Grid{}, ErrNegativeStart
	}
	if end <= start {
		return Grid{}, fmt.Errorf("%w: start=%v end=%v", ErrBadHorizon, start, end)
	}

	times := make([]float64, n)
	step := (end - start) / float64(n-1)
	for i := range times {
		times[i] = start + float64(i)*step
	}
	// Pin the endpoint so float accumulation never leaves the last sample
	// short of the horizon.
	times[n-1] = end
	return Grid{times: times}, nil
}

// FromTimes builds a grid from an explicit list of sample times. The list
// is copied, validated for strict ascent, and must contain at least two
// finite, non-negative entries.
func FromTimes(times []float64) (Grid, error) {
	if len(times) < 2 {
		return Grid{}, ErrEmptyGrid
	}
	out := make([]float64, len(times))
	copy(out, times)
	for i, t := range out {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return Grid{}, fmt.Errorf("%w: index %d", ErrNotFinite, i)
		}
		if i == 0 {
			if t < 0 {
				return Grid{}, ErrNegativeStart
			}
			continue
		}
		if t <= out[i-1] {
			return Grid{}, fmt.Errorf("%w: index %d (%v after %v)", ErrNotAscending, i, t, out[i-1])
		}
	}
	return Grid{times: out}, nil
}

// Len returns the number of sample times.
func (g Grid) Len() int { return len(g.times) }

// Start returns the first sample time.
func (g Grid) Start() float64 {
	if len(g.times) == 0 {
		return 0
	}
	return g.times[0]
}

// End returns the last sample time, which is also the simulation horizon.
func (g Grid) End() float64 {
	if len(g.times) == 0 {
		return 0
	}
	return g.times[len(g.times)-1]
}

// At returns the i-th sample time.
func (g Grid) At(i int) float64 { return g.times[i] }

// Times returns a copy of the sample times.
func (g Grid) Times() []float64 {
	out := make([]float64, len(g.times))
	copy(out, g.times)
	return out
}
