package model

// NetworkDefinition bundles the static description of a reaction network.
// It carries no behaviour; core.NewReactionNetwork validates and compiles
// it into an immutable handle.
type NetworkDefinition struct {
	Name       string
	Species    []SpeciesDefinition
	Parameters []ParameterDefinition
	Reactions  []ReactionDefinition
	Events     []EventDefinition
}
