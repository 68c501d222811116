package core

import (
	"testing"

	"github.com/signalsfoundry/kinetics-simulator/model"
)

func TestMassActionPropensity(t *testing.T) {
	n, err := NewReactionNetwork(model.NetworkDefinition{
		Name: "mass-action",
		Species: []model.SpeciesDefinition{
			{Name: "A", InitialPopulation: 10},
			{Name: "B", InitialPopulation: 4},
		},
		Parameters: []model.ParameterDefinition{
			{Name: "k", Value: 0.5},
		},
		Reactions: []model.ReactionDefinition{
			{
				Name:      "unimolecular",
				Reactants: []model.StoichEntry{{Species: "A", Coefficient: 1}},
				Rate:      model.MassActionParameter("k"),
			},
			{
				Name: "bimolecular",
				Reactants: []model.StoichEntry{
					{Species: "A", Coefficient: 1},
					{Species: "B", Coefficient: 1},
				},
				Rate: model.MassActionConstant(2),
			},
			{
				Name:      "dimerization",
				Reactants: []model.StoichEntry{{Species: "B", Coefficient: 2}},
				Rate:      model.MassActionConstant(3),
			},
			{
				Name: "source",
				Products: []model.StoichEntry{
					{Species: "A", Coefficient: 1},
				},
				Rate: model.MassActionConstant(7),
			},
		},
	})
	if err != nil {
		t.Fatalf("NewReactionNetwork: %v", err)
	}
	st := n.newState()

	cases := []struct {
		reaction int
		want     float64
	}{
		{0, 0.5 * 10},        // k * A
		{1, 2 * 10 * 4},      // k * A * B
		{2, 3 * (4 * 3 / 2)}, // k * C(B,2)
		{3, 7},               // zeroth order, constant rate
	}
	for _, tc := range cases {
		if got := n.propensity(tc.reaction, st); got != tc.want {
			t.Errorf("propensity(%d) = %v, want %v", tc.reaction, got, tc.want)
		}
	}

	a := make([]float64, n.NumReactions())
	total := n.propensities(st, a)
	want := 5.0 + 80 + 18 + 7
	if total != want {
		t.Errorf("total = %v, want %v", total, want)
	}
}

func TestPropensityInfeasibleIsZero(t *testing.T) {
	n, err := NewReactionNetwork(model.NetworkDefinition{
		Name: "infeasible",
		Species: []model.SpeciesDefinition{
			{Name: "A", InitialPopulation: 1},
		},
		Reactions: []model.ReactionDefinition{
			{
				Name:      "pair",
				Reactants: []model.StoichEntry{{Species: "A", Coefficient: 2}},
				Rate:      model.MassActionConstant(100),
			},
		},
	})
	if err != nil {
		t.Fatalf("NewReactionNetwork: %v", err)
	}
	st := n.newState()

	// One copy cannot satisfy a coefficient of two, whatever the rate says.
	if got := n.propensity(0, st); got != 0 {
		t.Fatalf("propensity = %v, want 0 for infeasible reaction", got)
	}
}

func TestPropensityUndefinedExpressionIsZero(t *testing.T) {
	n, err := NewReactionNetwork(model.NetworkDefinition{
		Name: "undefined",
		Species: []model.SpeciesDefinition{
			{Name: "S", InitialPopulation: 0},
			{Name: "I", InitialPopulation: 0},
		},
		Parameters: []model.ParameterDefinition{
			{Name: "Ki", Value: 0.4},
			{Name: "neg", Value: -5},
		},
		Reactions: []model.ReactionDefinition{
			{
				Name:      "transmission",
				Reactants: []model.StoichEntry{{Species: "S", Coefficient: 1}},
				Products:  []model.StoichEntry{{Species: "I", Coefficient: 1}},
				Rate:      model.ExpressionRate("Ki * S * I / (S + I)"),
			},
			{
				Name:     "negative-rate",
				Products: []model.StoichEntry{{Species: "S", Coefficient: 1}},
				Rate:     model.ExpressionRate("neg"),
			},
			{
				Name:     "overflow",
				Products: []model.StoichEntry{{Species: "S", Coefficient: 1}},
				Rate:     model.ExpressionRate("10 ^ 400"),
			},
		},
	})
	if err != nil {
		t.Fatalf("NewReactionNetwork: %v", err)
	}
	st := n.newState()

	// S = I = 0: the transmission rate divides by zero, which floors to 0.
	// Negative and infinite rates floor the same way.
	for j := 0; j < n.NumReactions(); j++ {
		if got := n.propensity(j, st); got != 0 {
			t.Errorf("propensity(%d) = %v, want 0", j, got)
		}
	}
}

func TestCombinations(t *testing.T) {
	cases := []struct {
		n, k int64
		want float64
	}{
		{10, 1, 10},
		{10, 2, 45},
		{4, 3, 4},
		{5, 5, 1},
		{3, 4, 0}, // short population
		{0, 1, 0},
		{7, 0, 1}, // zeroth order
	}
	for _, tc := range cases {
		if got := combinations(tc.n, tc.k); got != tc.want {
			t.Errorf("combinations(%d, %d) = %v, want %v", tc.n, tc.k, got, tc.want)
		}
	}
}
