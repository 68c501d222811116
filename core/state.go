package core

// State is one realization's private, mutable snapshot: current simulated
// time, integer populations, and parameter values. A State is created from
// the network's initial values when a realization starts and is never
// shared between realizations.
type State struct {
	Time float64

	network     *ReactionNetwork
	populations []int64
	parameters  []float64
}

func (n *ReactionNetwork) newState() *State {
	st := &State{
		network:     n,
		populations: n.InitialPopulations(),
		parameters:  make([]float64, len(n.parameters)),
	}
	for i, p := range n.parameters {
		st.parameters[i] = p.Value
	}
	return st
}

// Population returns the current population of a species by name.
func (st *State) Population(name string) (int64, bool) {
	idx, ok := st.network.speciesIndex[name]
	if !ok {
		return 0, false
	}
	return st.populations[idx], true
}

// Parameter returns the current value of a parameter by name.
func (st *State) Parameter(name string) (float64, bool) {
	idx, ok := st.network.paramIndex[name]
	if !ok {
		return 0, false
	}
	return st.parameters[idx], true
}

// applyDelta adds a reaction's net stoichiometric change to the population
// vector. It reports the index of the first species that would go negative,
// without mutating anything, so callers can reject infeasible applications.
func (st *State) applyDelta(delta []int64) (int, bool) {
	for i, d := range delta {
		if d < 0 && st.populations[i]+d < 0 {
			return i, false
		}
	}
	for i, d := range delta {
		st.populations[i] += d
	}
	return 0, true
}
