package core

import (
	"math"
	"sort"
)

// Event lifecycle per realization. Each event walks an explicit phase
// machine so the delay/capture semantics stay auditable:
//
//	Armed   -> Pending   on a false-to-true trigger edge
//	Pending -> Fired     when the clock reaches the scheduled fire time
//	Fired   -> Armed     only for persistent events, which may then arm
//	                     again on the next fresh edge
//
// Policy for delayed firings: once armed, a firing is never cancelled, even
// if the trigger drops back to false before the fire time. Arming is the
// observable edge; the capture flag already decides whether assignment
// values come from the trigger instant or the fire instant, and cancelling
// would make that flag meaningless for delayed events.

type eventPhase int

const (
	eventArmed eventPhase = iota
	eventPending
	eventFired
)

type pendingFiring struct {
	event    int
	fireTime float64
	// captured holds assignment values evaluated at the trigger edge when
	// the event's capture flag is set; nil means evaluate at fire time.
	captured []float64
}

// eventScheduler tracks trigger truth values for edge detection and a
// fire-time-ordered queue of pending firings for one realization.
type eventScheduler struct {
	network   *ReactionNetwork
	phase     []eventPhase
	lastTruth []bool
	pending   []pendingFiring
	firings   int64
}

func newEventScheduler(n *ReactionNetwork) *eventScheduler {
	return &eventScheduler{
		network:   n,
		phase:     make([]eventPhase, len(n.events)),
		lastTruth: make([]bool, len(n.events)),
	}
}

// nextFireTime returns the earliest scheduled firing, or +Inf when nothing
// is pending. The stepper caps its time advances here so parameter changes
// land before any propensity evaluation past them.
func (es *eventScheduler) nextFireTime() float64 {
	if len(es.pending) == 0 {
		return math.Inf(1)
	}
	return es.pending[0].fireTime
}

// appliedFirings returns how many event firings have executed so far.
func (es *eventScheduler) appliedFirings() int64 { return es.firings }

// poll re-evaluates every trigger against the current state, arms fresh
// false-to-true edges, and applies all pending firings due at or before
// st.Time. Assignments of one firing can raise new edges at the same
// instant (a zero-delay cascade), so the pass repeats until quiescent,
// with a bound against events that toggle each other forever. It reports
// whether any assignment was applied.
func (es *eventScheduler) poll(st *State) (bool, error) {
	applied := false
	for round := 0; ; round++ {
		es.detectEdges(st)

		fired := false
		for len(es.pending) > 0 && es.pending[0].fireTime <= st.Time {
			p := es.pending[0]
			es.pending = es.pending[1:]
			if err := es.fire(st, p); err != nil {
				return applied, err
			}
			applied = true
			fired = true
		}
		if !fired {
			return applied, nil
		}
		if round >= 4*len(es.network.events)+4 {
			// Mutually re-triggering zero-delay events; stop the cascade
			// for this instant, the next poll continues it.
			return applied, nil
		}
	}
}

func (es *eventScheduler) detectEdges(st *State) {
	for i := range es.network.events {
		ev := &es.network.events[i]
		truth := truthy(ev.trigger.eval(st))
		edge := truth && !es.lastTruth[i]
		es.lastTruth[i] = truth
		if !edge || es.phase[i] != eventArmed {
			continue
		}

		p := pendingFiring{event: i, fireTime: st.Time + ev.delay}
		if ev.captureAtTrigger {
			p.captured = make([]float64, len(ev.assignments))
			for k, a := range ev.assignments {
				p.captured[k] = a.value.eval(st)
			}
		}
		es.phase[i] = eventPending
		es.enqueue(p)
	}
}

func (es *eventScheduler) enqueue(p pendingFiring) {
	// The queue holds at most one entry per event, so linear insertion is
	// fine. Ties on fire time keep declaration order.
	at := sort.Search(len(es.pending), func(i int) bool {
		if es.pending[i].fireTime != p.fireTime {
			return es.pending[i].fireTime > p.fireTime
		}
		return es.pending[i].event > p.event
	})
	es.pending = append(es.pending, pendingFiring{})
	copy(es.pending[at+1:], es.pending[at:])
	es.pending[at] = p
}

// fire applies a pending firing's assignments atomically: every value is
// evaluated (or taken from the captured snapshot) before anything is
// written, so assignments within one event never observe each other.
func (es *eventScheduler) fire(st *State, p pendingFiring) error {
	ev := &es.network.events[p.event]

	values := p.captured
	if values == nil {
		values = make([]float64, len(ev.assignments))
		for k, a := range ev.assignments {
			values[k] = a.value.eval(st)
		}
	}

	for k, a := range ev.assignments {
		v := values[k]
		switch a.target {
		case assignParameter:
			st.parameters[a.index] = v
		case assignSpecies:
			count := int64(math.Round(v))
			if count < 0 {
				return &NegativePopulationError{
					Species:  es.network.species[a.index].Name,
					Reaction: ev.name,
					Time:     st.Time,
					Count:    count,
				}
			}
			st.populations[a.index] = count
		}
	}

	es.firings++
	if ev.persistent {
		es.phase[p.event] = eventArmed
	} else {
		es.phase[p.event] = eventFired
	}
	return nil
}
