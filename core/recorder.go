package core

// recorder resamples one realization's irregular jump records onto a fixed
// ascending grid. Populations are piecewise constant between jumps, so each
// sample holds the vector from the most recent record at or before the
// sample time (last value held constant).
type recorder struct {
	grid []float64
	// series is laid out [species][gridIndex]; species-major keeps each
	// observable's sampled sequence contiguous for the result accessors.
	series [][]int64

	held []int64
	next int // next grid index to fill
}

func newRecorder(grid []float64, initial []int64) *recorder {
	r := &recorder{
		grid:   grid,
		series: make([][]int64, len(initial)),
		held:   make([]int64, len(initial)),
	}
	copy(r.held, initial)
	for i := range r.series {
		r.series[i] = make([]int64, len(grid))
	}
	return r
}

// observe records that the population vector changed to pops at time t.
// Grid points strictly before t are filled with the previously held vector;
// a grid point exactly at t takes the new value, matching the rule that an
// instant's samples reflect all reactions and events applied at that
// instant. Records must arrive in non-decreasing time order; a jump may
// skip any number of grid points.
func (r *recorder) observe(t float64, pops []int64) {
	for r.next < len(r.grid) && r.grid[r.next] < t {
		r.fill()
	}
	copy(r.held, pops)
}

// finish fills every remaining grid point with the held vector once the
// realization reaches the horizon.
func (r *recorder) finish() {
	for r.next < len(r.grid) {
		r.fill()
	}
}

func (r *recorder) fill() {
	for s := range r.series {
		r.series[s][r.next] = r.held[s]
	}
	r.next++
}
