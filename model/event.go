package model

// EventAssignment sets a species population or a parameter value to the
// result of an expression when its event fires.
type EventAssignment struct {
	Target     string
	Expression string
}

// EventDefinition describes a conditional event. The trigger is a boolean
// expression over species, parameters, and time; the event arms on each
// false-to-true edge of the trigger and fires Delay time units later.
//
// Persistent controls re-arming: a non-persistent event fires at most once
// per run, a persistent event may arm again on every fresh trigger edge.
// UseTriggerTimeValues selects whether assignment expressions are evaluated
// with the state captured at the trigger edge or with the state at fire time.
type EventDefinition struct {
	Name                 string
	Trigger              string
	Delay                float64
	Persistent           bool
	UseTriggerTimeValues bool
	Assignments          []EventAssignment
}
