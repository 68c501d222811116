package core

import (
	"context"
	"math/rand/v2"
)

// StepMethod selects the stepping strategy for a run.
type StepMethod int

const (
	// StepExact is the Gillespie direct method: statistically exact
	// samples of the jump process, one reaction firing per step.
	StepExact StepMethod = iota
	// StepTauLeap fires Poisson-distributed batches of reactions over
	// bounded leap intervals, trading exactness for throughput.
	StepTauLeap
)

func (m StepMethod) String() string {
	switch m {
	case StepExact:
		return "exact"
	case StepTauLeap:
		return "tauleap"
	default:
		return "unknown"
	}
}

const (
	// DefaultEpsilon is the tau-leap relative tolerance: no propensity is
	// expected to change by more than this fraction over one leap.
	DefaultEpsilon = 0.025
	// DefaultMaxSteps guards a realization against runaway tiny steps.
	DefaultMaxSteps = 10_000_000

	// tauRetryLimit bounds tau-halving retries before a leap falls back
	// to a single exact step.
	tauRetryLimit = 8
	// tauExactThreshold switches to exact stepping when a leap would
	// cover fewer expected firings than a handful of exact steps.
	tauExactThreshold = 10.0

	// ctxCheckMask throttles context checks to every 1024 steps.
	ctxCheckMask = 1023
)

// stepper advances a single realization from the grid start to its horizon.
// It owns the realization's state, random source, event scheduler, and
// recorder; nothing in here is shared with other realizations.
type stepper struct {
	network *ReactionNetwork
	st      *State
	rng     *rand.Rand
	events  *eventScheduler
	rec     *recorder

	method   StepMethod
	epsilon  float64
	maxSteps int

	a         []float64 // scratch propensities
	leapDelta []int64   // scratch net change for one leap

	// idleHop is how far the clock moves per check while no reaction can
	// fire, so time-based triggers are still observed; one grid interval.
	idleHop float64

	steps           int
	reactionFirings int64
}

func newStepper(n *ReactionNetwork, grid []float64, rng *rand.Rand, method StepMethod, epsilon float64, maxSteps int) *stepper {
	st := n.newState()
	st.Time = grid[0]
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &stepper{
		network:   n,
		st:        st,
		rng:       rng,
		events:    newEventScheduler(n),
		rec:       newRecorder(grid, st.populations),
		method:    method,
		epsilon:   epsilon,
		maxSteps:  maxSteps,
		a:         make([]float64, n.NumReactions()),
		leapDelta: make([]int64, n.NumSpecies()),
		idleHop:   (grid[len(grid)-1] - grid[0]) / float64(len(grid)-1),
	}
}

// run drives the realization to the horizon. The loop is synchronous; the
// context is only consulted between steps so cancellation stays
// realization-granular with no suspension points inside a step.
func (s *stepper) run(ctx context.Context) error {
	end := s.rec.grid[len(s.rec.grid)-1]

	// Triggers already true at the start arm immediately (their initial
	// truth value is taken as false), so zero-delay events can fire
	// before the first reaction.
	s.rec.observe(s.st.Time, s.st.populations)
	if _, err := s.events.poll(s.st); err != nil {
		return err
	}
	s.rec.observe(s.st.Time, s.st.populations)

	for s.st.Time < end {
		if s.steps&ctxCheckMask == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if s.steps >= s.maxSteps {
			return &StepLimitExceededError{Limit: s.maxSteps, Time: s.st.Time}
		}
		s.steps++

		var err error
		if s.method == StepTauLeap {
			err = s.leapStep(end)
		} else {
			err = s.exactStep(end)
		}
		if err != nil {
			return err
		}
	}

	s.rec.finish()
	return nil
}

// exactStep performs one direct-method step: exponential waiting time with
// rate a0, then a single reaction chosen with probability proportional to
// its propensity.
func (s *stepper) exactStep(end float64) error {
	total := s.network.propensities(s.st, s.a)
	if total == 0 {
		// Absorbing for reactions. Walk the remaining horizon in grid
		// hops so time-based triggers still fire; an event assignment
		// can make propensities positive again.
		return s.idleAdvance(end)
	}

	t := s.st.Time + s.rng.ExpFloat64()/total

	// A pending event firing scheduled before the jump applies first and
	// invalidates these propensities; advance to it and redraw. The
	// exponential is memoryless, so redrawing keeps the sample exact.
	if ft := s.events.nextFireTime(); ft <= t && ft <= end {
		return s.advanceTo(ft)
	}
	if t >= end {
		return s.advanceTo(end)
	}

	s.st.Time = t
	j := s.selectReaction(total)
	r := &s.network.reactions[j]
	if idx, ok := s.st.applyDelta(r.delta); !ok {
		return &NegativePopulationError{
			Species:  s.network.species[idx].Name,
			Reaction: r.name,
			Time:     t,
			Count:    s.st.populations[idx] + r.delta[idx],
		}
	}
	s.reactionFirings++
	s.rec.observe(t, s.st.populations)

	if _, err := s.events.poll(s.st); err != nil {
		return err
	}
	s.rec.observe(t, s.st.populations)
	return nil
}

// selectReaction picks a reaction by cumulative propensity sum with a
// single uniform draw; ties break by declaration order.
func (s *stepper) selectReaction(total float64) int {
	u := s.rng.Float64() * total
	acc := 0.0
	last := 0
	for j, aj := range s.a {
		if aj == 0 {
			continue
		}
		acc += aj
		last = j
		if u < acc {
			return j
		}
	}
	// Float round-off can leave u a hair past the final cumulative sum;
	// the last feasible reaction absorbs it.
	return last
}

// advanceTo moves the clock without firing a reaction, then lets due
// events apply.
func (s *stepper) advanceTo(t float64) error {
	s.st.Time = t
	s.rec.observe(t, s.st.populations)
	if _, err := s.events.poll(s.st); err != nil {
		return err
	}
	s.rec.observe(t, s.st.populations)
	return nil
}

// idleAdvance hops the clock forward while no reaction can fire: to the
// next pending event firing if one is scheduled sooner, otherwise by one
// grid interval, never past the horizon.
func (s *stepper) idleAdvance(end float64) error {
	next := s.st.Time + s.idleHop
	if ft := s.events.nextFireTime(); ft < next {
		next = ft
	}
	if next > end {
		next = end
	}
	return s.advanceTo(next)
}
