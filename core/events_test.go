package core

import (
	"math"
	"testing"

	"github.com/signalsfoundry/kinetics-simulator/model"
)

// eventFixture compiles a single-species, single-parameter network with the
// given events and returns a fresh state for driving the scheduler by hand.
func eventFixture(t *testing.T, events ...model.EventDefinition) (*ReactionNetwork, *State) {
	t.Helper()
	n, err := NewReactionNetwork(model.NetworkDefinition{
		Name: "event-fixture",
		Species: []model.SpeciesDefinition{
			{Name: "X", InitialPopulation: 0},
		},
		Parameters: []model.ParameterDefinition{
			{Name: "k", Value: 1.0},
		},
		Events: events,
	})
	if err != nil {
		t.Fatalf("NewReactionNetwork: %v", err)
	}
	return n, n.newState()
}

func TestEventFiresOnceOnRisingEdge(t *testing.T) {
	n, st := eventFixture(t, model.EventDefinition{
		Name:        "threshold",
		Trigger:     "X > 10",
		Assignments: []model.EventAssignment{{Target: "k", Expression: "2"}},
	})
	es := newEventScheduler(n)

	// Below threshold: nothing arms.
	if _, err := es.poll(st); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if st.parameters[0] != 1 {
		t.Fatalf("event fired below threshold")
	}

	// Crossing fires exactly once.
	st.populations[0] = 11
	applied, err := es.poll(st)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if !applied || st.parameters[0] != 2 {
		t.Fatalf("event did not fire on crossing: applied=%v k=%v", applied, st.parameters[0])
	}

	// Still true: no re-fire. Drops false and crosses again: still no
	// re-fire, the event is not persistent.
	st.populations[0] = 20
	if applied, _ := es.poll(st); applied {
		t.Fatalf("event re-fired while trigger stayed true")
	}
	st.populations[0] = 0
	if _, err := es.poll(st); err != nil {
		t.Fatalf("poll: %v", err)
	}
	st.populations[0] = 50
	if applied, _ := es.poll(st); applied {
		t.Fatalf("non-persistent event fired twice")
	}
	if got := es.appliedFirings(); got != 1 {
		t.Fatalf("appliedFirings = %d, want 1", got)
	}
}

func TestPersistentEventReArms(t *testing.T) {
	n, st := eventFixture(t, model.EventDefinition{
		Name:       "repeat",
		Trigger:    "X > 10",
		Persistent: true,
		Assignments: []model.EventAssignment{
			{Target: "k", Expression: "k + 1"},
		},
	})
	es := newEventScheduler(n)

	for cycle := 0; cycle < 3; cycle++ {
		st.populations[0] = 0
		if _, err := es.poll(st); err != nil {
			t.Fatalf("poll: %v", err)
		}
		st.populations[0] = 11
		if _, err := es.poll(st); err != nil {
			t.Fatalf("poll: %v", err)
		}
	}
	// One increment per fresh edge; a level that stays high does not count.
	if st.parameters[0] != 4 {
		t.Fatalf("k = %v after 3 edges, want 4", st.parameters[0])
	}
	if got := es.appliedFirings(); got != 3 {
		t.Fatalf("appliedFirings = %d, want 3", got)
	}
}

func TestDelayedEventFireTimeValues(t *testing.T) {
	n, st := eventFixture(t, model.EventDefinition{
		Name:    "delayed",
		Trigger: "X > 10",
		Delay:   5,
		Assignments: []model.EventAssignment{
			{Target: "k", Expression: "X"},
		},
	})
	es := newEventScheduler(n)

	st.Time = 1
	st.populations[0] = 11
	if applied, _ := es.poll(st); applied {
		t.Fatalf("delayed event fired before its delay elapsed")
	}
	if ft := es.nextFireTime(); ft != 6 {
		t.Fatalf("nextFireTime = %v, want 6", ft)
	}

	// The population changes during the delay; without capture the
	// assignment evaluates at fire time.
	st.Time = 6
	st.populations[0] = 42
	if _, err := es.poll(st); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if st.parameters[0] != 42 {
		t.Fatalf("k = %v, want fire-time value 42", st.parameters[0])
	}
	if ft := es.nextFireTime(); !math.IsInf(ft, 1) {
		t.Fatalf("nextFireTime after firing = %v, want +Inf", ft)
	}
}

func TestDelayedEventTriggerTimeValues(t *testing.T) {
	n, st := eventFixture(t, model.EventDefinition{
		Name:                 "captured",
		Trigger:              "X > 10",
		Delay:                5,
		UseTriggerTimeValues: true,
		Assignments: []model.EventAssignment{
			{Target: "k", Expression: "X"},
		},
	})
	es := newEventScheduler(n)

	st.Time = 1
	st.populations[0] = 11
	if _, err := es.poll(st); err != nil {
		t.Fatalf("poll: %v", err)
	}

	st.Time = 6
	st.populations[0] = 42
	if _, err := es.poll(st); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if st.parameters[0] != 11 {
		t.Fatalf("k = %v, want captured trigger-time value 11", st.parameters[0])
	}
}

func TestArmedFiringSurvivesTriggerDrop(t *testing.T) {
	n, st := eventFixture(t, model.EventDefinition{
		Name:    "latched",
		Trigger: "X > 10",
		Delay:   5,
		Assignments: []model.EventAssignment{
			{Target: "k", Expression: "99"},
		},
	})
	es := newEventScheduler(n)

	st.Time = 0
	st.populations[0] = 11
	if _, err := es.poll(st); err != nil {
		t.Fatalf("poll: %v", err)
	}

	// Trigger drops back to false before the fire time; the firing stays
	// scheduled anyway.
	st.Time = 2
	st.populations[0] = 0
	if _, err := es.poll(st); err != nil {
		t.Fatalf("poll: %v", err)
	}
	st.Time = 5
	if _, err := es.poll(st); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if st.parameters[0] != 99 {
		t.Fatalf("k = %v, want 99: armed firing was cancelled", st.parameters[0])
	}
}

func TestEventAssignmentsApplyAtomically(t *testing.T) {
	n, err := NewReactionNetwork(model.NetworkDefinition{
		Name: "swap",
		Species: []model.SpeciesDefinition{
			{Name: "X", InitialPopulation: 0},
		},
		Parameters: []model.ParameterDefinition{
			{Name: "a", Value: 3},
			{Name: "b", Value: 7},
		},
		Events: []model.EventDefinition{
			{
				Name:    "swap",
				Trigger: "X > 0",
				Assignments: []model.EventAssignment{
					{Target: "a", Expression: "b"},
					{Target: "b", Expression: "a"},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("NewReactionNetwork: %v", err)
	}
	st := n.newState()
	es := newEventScheduler(n)

	st.populations[0] = 1
	if _, err := es.poll(st); err != nil {
		t.Fatalf("poll: %v", err)
	}
	// Both read the pre-event values, so the swap actually swaps.
	if st.parameters[0] != 7 || st.parameters[1] != 3 {
		t.Fatalf("after swap a=%v b=%v, want a=7 b=3", st.parameters[0], st.parameters[1])
	}
}

func TestSpeciesAssignmentRoundsAndRejectsNegative(t *testing.T) {
	n, st := eventFixture(t, model.EventDefinition{
		Name:    "set",
		Trigger: "t > 1",
		Assignments: []model.EventAssignment{
			{Target: "X", Expression: "k"},
		},
	})
	es := newEventScheduler(n)

	st.Time = 2
	st.parameters[0] = 4.6
	if _, err := es.poll(st); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if st.populations[0] != 5 {
		t.Fatalf("X = %d, want 4.6 rounded to 5", st.populations[0])
	}

	// A second network, assigning a negative value: the realization fails.
	n2, st2 := eventFixture(t, model.EventDefinition{
		Name:    "bad",
		Trigger: "t > 1",
		Assignments: []model.EventAssignment{
			{Target: "X", Expression: "-3"},
		},
	})
	es2 := newEventScheduler(n2)
	st2.Time = 2
	if _, err := es2.poll(st2); err == nil {
		t.Fatalf("negative species assignment succeeded, want error")
	} else if _, ok := err.(*NegativePopulationError); !ok {
		t.Fatalf("error = %T, want *NegativePopulationError", err)
	}
}

func TestZeroDelayCascade(t *testing.T) {
	// first sets X above second's threshold; second must fire in the same
	// poll pass.
	n, err := NewReactionNetwork(model.NetworkDefinition{
		Name: "cascade",
		Species: []model.SpeciesDefinition{
			{Name: "X", InitialPopulation: 0},
		},
		Parameters: []model.ParameterDefinition{
			{Name: "k", Value: 0},
		},
		Events: []model.EventDefinition{
			{
				Name:        "first",
				Trigger:     "t > 1",
				Assignments: []model.EventAssignment{{Target: "X", Expression: "100"}},
			},
			{
				Name:        "second",
				Trigger:     "X > 50",
				Assignments: []model.EventAssignment{{Target: "k", Expression: "1"}},
			},
		},
	})
	if err != nil {
		t.Fatalf("NewReactionNetwork: %v", err)
	}
	st := n.newState()
	es := newEventScheduler(n)

	st.Time = 2
	if _, err := es.poll(st); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if st.populations[0] != 100 || st.parameters[0] != 1 {
		t.Fatalf("cascade incomplete: X=%d k=%v", st.populations[0], st.parameters[0])
	}
	if got := es.appliedFirings(); got != 2 {
		t.Fatalf("appliedFirings = %d, want 2", got)
	}
}

func TestPendingQueueOrdersByFireTime(t *testing.T) {
	n, st := eventFixture(t,
		model.EventDefinition{
			Name:        "slow",
			Trigger:     "X > 0",
			Delay:       10,
			Assignments: []model.EventAssignment{{Target: "k", Expression: "2"}},
		},
		model.EventDefinition{
			Name:        "fast",
			Trigger:     "X > 0",
			Delay:       3,
			Assignments: []model.EventAssignment{{Target: "k", Expression: "k * 10"}},
		},
	)
	es := newEventScheduler(n)

	st.populations[0] = 1
	if _, err := es.poll(st); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if ft := es.nextFireTime(); ft != 3 {
		t.Fatalf("nextFireTime = %v, want the earlier firing at 3", ft)
	}

	// fast fires first (k -> 10), then slow overwrites (k -> 2).
	st.Time = 12
	if _, err := es.poll(st); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if st.parameters[0] != 2 {
		t.Fatalf("k = %v, want 2 after ordered firings", st.parameters[0])
	}
}
