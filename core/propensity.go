package core

import "math"

// Propensity evaluation. For every reaction j the result a_j is a finite,
// non-negative rate. The zero-on-undefined convention applies throughout:
// a reactant population below its stoichiometric requirement, a division by
// zero, or any non-finite intermediate all evaluate to exactly 0 rather
// than raising. The SEIR transmission rate divides by the living population,
// which is zero only in a fully absorbed model where a transmission rate of
// zero is the correct answer; flooring keeps such boundary states
// well-defined instead of faulting.

// propensity computes a_j for reaction j against the current state.
func (n *ReactionNetwork) propensity(j int, st *State) float64 {
	r := &n.reactions[j]

	// Feasibility first: if any reactant is short, the reaction cannot
	// fire regardless of how the rate formula evaluates.
	for _, s := range r.reactants {
		if st.populations[s.species] < s.coeff {
			return 0
		}
	}

	var a float64
	switch r.kind {
	case rateMassAction:
		k := r.constant
		if r.param >= 0 {
			k = st.parameters[r.param]
		}
		a = k
		for _, s := range r.reactants {
			a *= combinations(st.populations[s.species], s.coeff)
		}
	case rateExpression:
		a = r.rate.eval(st)
	}

	if math.IsNaN(a) || math.IsInf(a, 0) || a < 0 {
		return 0
	}
	return a
}

// propensities fills a with every reaction's propensity and returns the sum.
// len(a) must equal NumReactions.
func (n *ReactionNetwork) propensities(st *State, a []float64) float64 {
	total := 0.0
	for j := range n.reactions {
		a[j] = n.propensity(j, st)
		total += a[j]
	}
	return total
}

// combinations returns C(n, k) as a float64 using the falling-factorial
// form, the mass-action factor for a reactant consumed k at a time from a
// population of n. Coefficients are small integers, so the loop is cheap.
func combinations(n, k int64) float64 {
	if n < k {
		return 0
	}
	num := 1.0
	for i := int64(0); i < k; i++ {
		num *= float64(n - i)
	}
	den := 1.0
	for i := int64(2); i <= k; i++ {
		den *= float64(i)
	}
	return num / den
}
