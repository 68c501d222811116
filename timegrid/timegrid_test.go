package timegrid

import (
	"errors"
	"math"
	"testing"
)

func TestLinspaceCoversHorizon(t *testing.T) {
	g, err := Linspace(0, 180, 181)
	if err != nil {
		t.Fatalf("Linspace failed: %v", err)
	}
	if g.Len() != 181 {
		t.Fatalf("Len = %d, want 181", g.Len())
	}
	if g.Start() != 0 {
		t.Fatalf("Start = %v, want 0", g.Start())
	}
	if g.End() != 180 {
		t.Fatalf("End = %v, want exactly 180", g.End())
	}
	for i := 0; i < g.Len(); i++ {
		if got, want := g.At(i), float64(i); math.Abs(got-want) > 1e-9 {
			t.Fatalf("At(%d) = %v, want %v", i, got, want)
		}
	}
}

func TestLinspaceEndpointIsExact(t *testing.T) {
	// 0.1 steps accumulate float error; the endpoint must still be exact.
	g, err := Linspace(0, 1, 11)
	if err != nil {
		t.Fatalf("Linspace failed: %v", err)
	}
	if g.End() != 1 {
		t.Fatalf("End = %v, want exactly 1", g.End())
	}
}

func TestLinspaceRejectsBadHorizon(t *testing.T) {
	if _, err := Linspace(10, 10, 5); !errors.Is(err, ErrBadHorizon) {
		t.Fatalf("equal start/end: got %v, want ErrBadHorizon", err)
	}
	if _, err := Linspace(5, 1, 5); !errors.Is(err, ErrBadHorizon) {
		t.Fatalf("end before start: got %v, want ErrBadHorizon", err)
	}
	if _, err := Linspace(0, 10, 1); !errors.Is(err, ErrEmptyGrid) {
		t.Fatalf("single sample: got %v, want ErrEmptyGrid", err)
	}
	if _, err := Linspace(-1, 10, 5); !errors.Is(err, ErrNegativeStart) {
		t.Fatalf("negative start: got %v, want ErrNegativeStart", err)
	}
}

func TestFromTimesValidates(t *testing.T) {
	if _, err := FromTimes([]float64{0, 1, 1, 2}); !errors.Is(err, ErrNotAscending) {
		t.Fatalf("duplicate time: got %v, want ErrNotAscending", err)
	}
	if _, err := FromTimes([]float64{0, math.NaN()}); !errors.Is(err, ErrNotFinite) {
		t.Fatalf("NaN time: got %v, want ErrNotFinite", err)
	}
	if _, err := FromTimes([]float64{3}); !errors.Is(err, ErrEmptyGrid) {
		t.Fatalf("short list: got %v, want ErrEmptyGrid", err)
	}
}

func TestFromTimesCopiesInput(t *testing.T) {
	in := []float64{0, 1, 2}
	g, err := FromTimes(in)
	if err != nil {
		t.Fatalf("FromTimes failed: %v", err)
	}
	in[1] = 99
	if g.At(1) != 1 {
		t.Fatalf("grid aliased caller slice: At(1) = %v, want 1", g.At(1))
	}
	out := g.Times()
	out[0] = -5
	if g.At(0) != 0 {
		t.Fatalf("Times() aliased internal slice: At(0) = %v, want 0", g.At(0))
	}
}
