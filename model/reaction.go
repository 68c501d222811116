package model

// RateKind indicates how a reaction's propensity is computed.
type RateKind int

const (
	// RateMassAction multiplies a rate constant by the combinatorial
	// product of reactant populations.
	RateMassAction RateKind = iota
	// RateExpression evaluates an arbitrary algebraic formula over
	// species populations, parameters, and time.
	RateExpression
)

// StoichEntry pairs a species with a stoichiometric coefficient.
// Coefficients are strictly positive; a species absent from a reaction
// simply has no entry.
type StoichEntry struct {
	Species     string
	Coefficient int64
}

// RateSpec describes a reaction rate. For mass-action rates the constant
// is either a literal (Constant, when Parameter is empty) or the current
// value of a named parameter, so events can retune it mid-run.
type RateSpec struct {
	Kind       RateKind
	Constant   float64
	Parameter  string
	Expression string
}

// MassActionConstant builds a mass-action rate with a literal constant.
func MassActionConstant(k float64) RateSpec {
	return RateSpec{Kind: RateMassAction, Constant: k}
}

// MassActionParameter builds a mass-action rate whose constant is read
// from a parameter at evaluation time.
func MassActionParameter(name string) RateSpec {
	return RateSpec{Kind: RateMassAction, Parameter: name}
}

// ExpressionRate builds a rate evaluated from an algebraic formula.
func ExpressionRate(src string) RateSpec {
	return RateSpec{Kind: RateExpression, Expression: src}
}

// ReactionDefinition describes one reaction channel: the reactants it
// consumes, the products it produces, and how fast it fires.
type ReactionDefinition struct {
	Name      string
	Reactants []StoichEntry
	Products  []StoichEntry
	Rate      RateSpec
}
