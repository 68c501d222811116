package core

import (
	"math"
	"math/rand/v2"
)

// newRealizationRand derives the random source for one realization of an
// ensemble. Every realization gets its own PCG stream keyed by (baseSeed,
// realization index), so ensembles are reproducible from a single seed and
// trajectories never share generator state.
func newRealizationRand(baseSeed uint64, realization int) *rand.Rand {
	return rand.New(rand.NewPCG(baseSeed, uint64(realization)))
}

// poisson draws a Poisson-distributed count with the given mean. Small
// means use Knuth's product method; large means use the normal
// approximation, which is well inside tau-leaping's own error budget.
func poisson(rng *rand.Rand, mean float64) int64 {
	if mean <= 0 {
		return 0
	}
	if mean < 30 {
		limit := math.Exp(-mean)
		p := 1.0
		k := int64(0)
		for {
			p *= rng.Float64()
			if p <= limit {
				return k
			}
			k++
		}
	}
	k := int64(math.Floor(mean + math.Sqrt(mean)*rng.NormFloat64() + 0.5))
	if k < 0 {
		return 0
	}
	return k
}
