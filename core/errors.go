package core

import (
	"errors"
	"fmt"
)

// Sentinel causes for ModelError, so callers can errors.Is on the class of
// structural problem without string matching.
var (
	ErrUnknownReference = errors.New("reference to undeclared species or parameter")
	ErrDuplicateName    = errors.New("duplicate identifier")
	ErrBadStoichiometry = errors.New("stoichiometric coefficient must be a positive integer")
	ErrBadInitialValue  = errors.New("initial population must be non-negative")
	ErrBadDelay         = errors.New("event delay must be non-negative")
	ErrBadRateConstant  = errors.New("mass-action rate constant must be non-negative")
	ErrBadExpression    = errors.New("malformed expression")
	ErrEmptyName        = errors.New("empty identifier")
)

// ModelError reports a structural problem found while compiling a network
// definition. It is always fatal and always surfaced before any stepping
// starts.
type ModelError struct {
	Element string // the species/parameter/reaction/event at fault
	Err     error
}

func (e *ModelError) Error() string {
	if e.Element == "" {
		return fmt.Sprintf("model: %v", e.Err)
	}
	return fmt.Sprintf("model: %s: %v", e.Element, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

func modelErrorf(element string, cause error, format string, args ...any) *ModelError {
	if format == "" {
		return &ModelError{Element: element, Err: cause}
	}
	return &ModelError{
		Element: element,
		Err:     fmt.Errorf("%w: %s", cause, fmt.Sprintf(format, args...)),
	}
}

// NegativePopulationError indicates a direct stoichiometry application drove
// a population below zero. The propensity convention makes infeasible
// reactions unselectable, so this is an engine bug guard, not a clamp: the
// realization dies with the state that exposed it.
type NegativePopulationError struct {
	Species  string
	Reaction string
	Time     float64
	Count    int64
}

func (e *NegativePopulationError) Error() string {
	return fmt.Sprintf("negative population: species %q reached %d via reaction %q at t=%g",
		e.Species, e.Count, e.Reaction, e.Time)
}

// StepLimitExceededError indicates a realization hit the configured maximum
// step count before reaching the horizon, guarding against runaway tiny
// steps.
type StepLimitExceededError struct {
	Limit int
	Time  float64
}

func (e *StepLimitExceededError) Error() string {
	return fmt.Sprintf("step limit exceeded: %d steps taken, simulated time %g", e.Limit, e.Time)
}

// SimulationError wraps a realization-level failure with the realization
// index and simulated time where it occurred.
type SimulationError struct {
	Realization int
	Time        float64
	Err         error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("realization %d failed at t=%g: %v", e.Realization, e.Time, e.Err)
}

func (e *SimulationError) Unwrap() error { return e.Err }
