package core

import (
	"fmt"

	"github.com/signalsfoundry/kinetics-simulator/model"
)

// timeSymbol is the reserved identifier for current simulated time inside
// rate, trigger, and assignment expressions.
const timeSymbol = "t"

type stoich struct {
	species int
	coeff   int64
}

type rateKind int

const (
	rateMassAction rateKind = iota
	rateExpression
)

type compiledReaction struct {
	name      string
	reactants []stoich
	products  []stoich
	// delta is the dense net population change per species index; applying
	// a firing is a single vector add.
	delta []int64

	kind     rateKind
	constant float64
	param    int // parameter index for the mass-action constant, -1 for literal
	rate     expr
}

type assignTarget int

const (
	assignParameter assignTarget = iota
	assignSpecies
)

type compiledAssignment struct {
	target assignTarget
	index  int
	value  expr
}

type compiledEvent struct {
	name             string
	trigger          expr
	delay            float64
	persistent       bool
	captureAtTrigger bool
	assignments      []compiledAssignment
}

// ReactionNetwork is the immutable, compiled form of a network definition.
// It is safe to share read-only across any number of realizations; all
// mutable state lives in per-realization State values.
type ReactionNetwork struct {
	name string

	species      []model.SpeciesDefinition
	speciesIndex map[string]int

	parameters []model.ParameterDefinition
	paramIndex map[string]int

	reactions []compiledReaction
	events    []compiledEvent
}

// NewReactionNetwork validates def and compiles it. Unknown references,
// duplicate identifiers, non-positive stoichiometric coefficients, negative
// initial populations or delays, and malformed expressions all fail with a
// *ModelError before any simulation can start.
func NewReactionNetwork(def model.NetworkDefinition) (*ReactionNetwork, error) {
	if len(def.Species) == 0 {
		return nil, modelErrorf(def.Name, ErrEmptyName, "network declares no species")
	}

	n := &ReactionNetwork{
		name:         def.Name,
		species:      make([]model.SpeciesDefinition, len(def.Species)),
		speciesIndex: make(map[string]int, len(def.Species)),
		parameters:   make([]model.ParameterDefinition, len(def.Parameters)),
		paramIndex:   make(map[string]int, len(def.Parameters)),
	}

	for i, s := range def.Species {
		if s.Name == "" {
			return nil, modelErrorf("", ErrEmptyName, "species %d has no name", i)
		}
		if s.Name == timeSymbol {
			return nil, modelErrorf(s.Name, ErrDuplicateName, "%q is reserved for simulated time", timeSymbol)
		}
		if _, exists := n.speciesIndex[s.Name]; exists {
			return nil, modelErrorf(s.Name, ErrDuplicateName, "species declared twice")
		}
		if s.InitialPopulation < 0 {
			return nil, modelErrorf(s.Name, ErrBadInitialValue, "initial population %d", s.InitialPopulation)
		}
		n.species[i] = s
		n.speciesIndex[s.Name] = i
	}

	for i, p := range def.Parameters {
		if p.Name == "" {
			return nil, modelErrorf("", ErrEmptyName, "parameter %d has no name", i)
		}
		if p.Name == timeSymbol {
			return nil, modelErrorf(p.Name, ErrDuplicateName, "%q is reserved for simulated time", timeSymbol)
		}
		if _, exists := n.speciesIndex[p.Name]; exists {
			return nil, modelErrorf(p.Name, ErrDuplicateName, "name already declared as a species")
		}
		if _, exists := n.paramIndex[p.Name]; exists {
			return nil, modelErrorf(p.Name, ErrDuplicateName, "parameter declared twice")
		}
		n.parameters[i] = p
		n.paramIndex[p.Name] = i
	}

	seenReactions := make(map[string]bool, len(def.Reactions))
	for _, r := range def.Reactions {
		if r.Name == "" {
			return nil, modelErrorf("", ErrEmptyName, "reaction has no name")
		}
		if seenReactions[r.Name] {
			return nil, modelErrorf(r.Name, ErrDuplicateName, "reaction declared twice")
		}
		seenReactions[r.Name] = true

		cr, err := n.compileReaction(r)
		if err != nil {
			return nil, err
		}
		n.reactions = append(n.reactions, cr)
	}

	seenEvents := make(map[string]bool, len(def.Events))
	for _, ev := range def.Events {
		if ev.Name == "" {
			return nil, modelErrorf("", ErrEmptyName, "event has no name")
		}
		if seenEvents[ev.Name] {
			return nil, modelErrorf(ev.Name, ErrDuplicateName, "event declared twice")
		}
		seenEvents[ev.Name] = true

		ce, err := n.compileEvent(ev)
		if err != nil {
			return nil, err
		}
		n.events = append(n.events, ce)
	}

	return n, nil
}

func (n *ReactionNetwork) compileReaction(r model.ReactionDefinition) (compiledReaction, error) {
	cr := compiledReaction{
		name:  r.Name,
		delta: make([]int64, len(n.species)),
		param: -1,
	}

	var err error
	if cr.reactants, err = n.compileStoich(r.Name, r.Reactants, -1, cr.delta); err != nil {
		return compiledReaction{}, err
	}
	if cr.products, err = n.compileStoich(r.Name, r.Products, +1, cr.delta); err != nil {
		return compiledReaction{}, err
	}

	switch r.Rate.Kind {
	case model.RateMassAction:
		cr.kind = rateMassAction
		if r.Rate.Parameter != "" {
			idx, ok := n.paramIndex[r.Rate.Parameter]
			if !ok {
				return compiledReaction{}, modelErrorf(r.Name, ErrUnknownReference,
					"rate parameter %q", r.Rate.Parameter)
			}
			cr.param = idx
		} else {
			if r.Rate.Constant < 0 {
				return compiledReaction{}, modelErrorf(r.Name, ErrBadRateConstant,
					"%g", r.Rate.Constant)
			}
			cr.constant = r.Rate.Constant
		}
	case model.RateExpression:
		cr.kind = rateExpression
		e, err := parseExpr(r.Rate.Expression, n.resolveIdent)
		if err != nil {
			return compiledReaction{}, modelErrorf(r.Name, err, "")
		}
		cr.rate = e
	default:
		return compiledReaction{}, modelErrorf(r.Name, ErrBadExpression,
			"unknown rate kind %d", r.Rate.Kind)
	}

	return cr, nil
}

func (n *ReactionNetwork) compileStoich(reaction string, entries []model.StoichEntry, sign int64, delta []int64) ([]stoich, error) {
	out := make([]stoich, 0, len(entries))
	for _, e := range entries {
		idx, ok := n.speciesIndex[e.Species]
		if !ok {
			return nil, modelErrorf(reaction, ErrUnknownReference, "species %q", e.Species)
		}
		if e.Coefficient <= 0 {
			return nil, modelErrorf(reaction, ErrBadStoichiometry,
				"species %q coefficient %d", e.Species, e.Coefficient)
		}
		out = append(out, stoich{species: idx, coeff: e.Coefficient})
		delta[idx] += sign * e.Coefficient
	}
	return out, nil
}

func (n *ReactionNetwork) compileEvent(ev model.EventDefinition) (compiledEvent, error) {
	if ev.Delay < 0 {
		return compiledEvent{}, modelErrorf(ev.Name, ErrBadDelay, "%g", ev.Delay)
	}
	trigger, err := parseExpr(ev.Trigger, n.resolveIdent)
	if err != nil {
		return compiledEvent{}, modelErrorf(ev.Name, err, "")
	}

	ce := compiledEvent{
		name:             ev.Name,
		trigger:          trigger,
		delay:            ev.Delay,
		persistent:       ev.Persistent,
		captureAtTrigger: ev.UseTriggerTimeValues,
	}
	if len(ev.Assignments) == 0 {
		return compiledEvent{}, modelErrorf(ev.Name, ErrBadExpression, "event has no assignments")
	}
	for _, a := range ev.Assignments {
		ca := compiledAssignment{}
		if idx, ok := n.paramIndex[a.Target]; ok {
			ca.target = assignParameter
			ca.index = idx
		} else if idx, ok := n.speciesIndex[a.Target]; ok {
			ca.target = assignSpecies
			ca.index = idx
		} else {
			return compiledEvent{}, modelErrorf(ev.Name, ErrUnknownReference,
				"assignment target %q", a.Target)
		}
		value, err := parseExpr(a.Expression, n.resolveIdent)
		if err != nil {
			return compiledEvent{}, modelErrorf(ev.Name, err, "")
		}
		ca.value = value
		ce.assignments = append(ce.assignments, ca)
	}
	return ce, nil
}

func (n *ReactionNetwork) resolveIdent(name string) (expr, error) {
	if name == timeSymbol {
		return timeExpr{}, nil
	}
	if idx, ok := n.speciesIndex[name]; ok {
		return speciesExpr(idx), nil
	}
	if idx, ok := n.paramIndex[name]; ok {
		return paramExpr(idx), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownReference, name)
}

// Name returns the network's name.
func (n *ReactionNetwork) Name() string { return n.name }

// NumSpecies returns the number of declared species.
func (n *ReactionNetwork) NumSpecies() int { return len(n.species) }

// NumReactions returns the number of declared reactions.
func (n *ReactionNetwork) NumReactions() int { return len(n.reactions) }

// NumEvents returns the number of declared events.
func (n *ReactionNetwork) NumEvents() int { return len(n.events) }

// SpeciesNames returns declared species names in declaration order.
func (n *ReactionNetwork) SpeciesNames() []string {
	out := make([]string, len(n.species))
	for i, s := range n.species {
		out[i] = s.Name
	}
	return out
}

// ParameterNames returns declared parameter names in declaration order.
func (n *ReactionNetwork) ParameterNames() []string {
	out := make([]string, len(n.parameters))
	for i, p := range n.parameters {
		out[i] = p.Name
	}
	return out
}

// ReactionNames returns declared reaction names in declaration order.
func (n *ReactionNetwork) ReactionNames() []string {
	out := make([]string, len(n.reactions))
	for i, r := range n.reactions {
		out[i] = r.name
	}
	return out
}

// EventNames returns declared event names in declaration order.
func (n *ReactionNetwork) EventNames() []string {
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.name
	}
	return out
}

// SpeciesIndex returns the index of a species name, for callers that want
// to address trajectory columns positionally.
func (n *ReactionNetwork) SpeciesIndex(name string) (int, bool) {
	idx, ok := n.speciesIndex[name]
	return idx, ok
}

// InitialPopulations returns a fresh copy of the initial population vector.
func (n *ReactionNetwork) InitialPopulations() []int64 {
	out := make([]int64, len(n.species))
	for i, s := range n.species {
		out[i] = s.InitialPopulation
	}
	return out
}
