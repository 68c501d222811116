package core

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/signalsfoundry/kinetics-simulator/model"
)

// JSON scenario loading. This is the upstream-collaborator surface: it
// turns a structured network description into the model.NetworkDefinition
// shape of the Build-model call, and nothing more. Structural validation
// (unknown references, duplicates, bad coefficients) stays in
// NewReactionNetwork, the same checks direct construction gets.

// internal JSON shapes, kept unexported so the format can evolve.
type networkJSON struct {
	Name       string          `json:"name"`
	Species    []speciesJSON   `json:"species"`
	Parameters []parameterJSON `json:"parameters"`
	Reactions  []reactionJSON  `json:"reactions"`
	Events     []eventJSON     `json:"events"`
}

type speciesJSON struct {
	Name       string `json:"name"`
	Population int64  `json:"population"`
}

type parameterJSON struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type stoichJSON struct {
	Species     string `json:"species"`
	Coefficient *int64 `json:"coefficient"` // optional; defaults to 1
}

type rateJSON struct {
	Constant   *float64 `json:"constant"`
	Parameter  string   `json:"parameter"`
	Expression string   `json:"expression"`
}

type reactionJSON struct {
	Name      string       `json:"name"`
	Reactants []stoichJSON `json:"reactants"`
	Products  []stoichJSON `json:"products"`
	Rate      rateJSON     `json:"rate"`
}

type assignmentJSON struct {
	Target     string `json:"target"`
	Expression string `json:"expression"`
}

type eventJSON struct {
	Name                 string           `json:"name"`
	Trigger              string           `json:"trigger"`
	Delay                float64          `json:"delay"`
	Persistent           bool             `json:"persistent"`
	UseTriggerTimeValues bool             `json:"use_trigger_time_values"`
	Assignments          []assignmentJSON `json:"assignments"`
}

// LoadNetworkDefinition reads a JSON network description from r and returns
// the definition ready for NewReactionNetwork. It fails only on JSON and
// shape errors; model-level validation happens at compile time.
func LoadNetworkDefinition(r io.Reader) (model.NetworkDefinition, error) {
	var payload networkJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return model.NetworkDefinition{}, fmt.Errorf("LoadNetworkDefinition: decode failed: %w", err)
	}

	def := model.NetworkDefinition{Name: payload.Name}

	for _, s := range payload.Species {
		def.Species = append(def.Species, model.SpeciesDefinition{
			Name:              s.Name,
			InitialPopulation: s.Population,
		})
	}
	for _, p := range payload.Parameters {
		def.Parameters = append(def.Parameters, model.ParameterDefinition{
			Name:  p.Name,
			Value: p.Value,
		})
	}

	for _, jr := range payload.Reactions {
		rd := model.ReactionDefinition{
			Name:      jr.Name,
			Reactants: stoichFromJSON(jr.Reactants),
			Products:  stoichFromJSON(jr.Products),
		}
		switch {
		case jr.Rate.Expression != "":
			rd.Rate = model.ExpressionRate(jr.Rate.Expression)
		case jr.Rate.Parameter != "":
			rd.Rate = model.MassActionParameter(jr.Rate.Parameter)
		case jr.Rate.Constant != nil:
			rd.Rate = model.MassActionConstant(*jr.Rate.Constant)
		default:
			return model.NetworkDefinition{}, fmt.Errorf(
				"LoadNetworkDefinition: reaction %q has no rate", jr.Name)
		}
		def.Reactions = append(def.Reactions, rd)
	}

	for _, je := range payload.Events {
		ed := model.EventDefinition{
			Name:                 je.Name,
			Trigger:              je.Trigger,
			Delay:                je.Delay,
			Persistent:           je.Persistent,
			UseTriggerTimeValues: je.UseTriggerTimeValues,
		}
		for _, ja := range je.Assignments {
			ed.Assignments = append(ed.Assignments, model.EventAssignment{
				Target:     ja.Target,
				Expression: ja.Expression,
			})
		}
		def.Events = append(def.Events, ed)
	}

	return def, nil
}

func stoichFromJSON(entries []stoichJSON) []model.StoichEntry {
	out := make([]model.StoichEntry, 0, len(entries))
	for _, e := range entries {
		coeff := int64(1)
		if e.Coefficient != nil {
			coeff = *e.Coefficient
		}
		out = append(out, model.StoichEntry{Species: e.Species, Coefficient: coeff})
	}
	return out
}
