package model

// SpeciesDefinition declares a species and the population it starts with.
// The initial value is the model's static description; each realization
// copies it into private mutable state before stepping.
type SpeciesDefinition struct {
	Name              string
	InitialPopulation int64
}

// ParameterDefinition declares a named rate parameter. Parameters are
// floating-point and change only through event assignments.
type ParameterDefinition struct {
	Name  string
	Value float64
}
