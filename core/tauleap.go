package core

import "math"

// Tau-leaping: instead of firing reactions one at a time, choose a leap
// interval tau small enough that no propensity is expected to change by
// more than epsilon (relative), draw a Poisson count for every reaction
// over that interval, and apply the combined stoichiometric effect at
// once. A leap whose draws would exhaust a population is rejected and
// retried with tau halved; when retries run out, or when tau shrinks to
// the scale of individual firings, the step falls back to the exact
// method, which is always safe.

// leapStep performs one tau-leap step (or delegates to exactStep when
// leaping is not worthwhile).
func (s *stepper) leapStep(end float64) error {
	total := s.network.propensities(s.st, s.a)
	if total == 0 {
		return s.idleAdvance(end)
	}

	tau := s.tauBound()

	// Never leap across a pending event firing or the horizon.
	limit := end
	if ft := s.events.nextFireTime(); ft < limit {
		limit = ft
	}
	if s.st.Time+tau > limit {
		tau = limit - s.st.Time
	}

	for try := 0; try <= tauRetryLimit; try++ {
		if tau*total <= tauExactThreshold {
			return s.exactStep(end)
		}
		if s.tryLeap(tau) {
			return s.afterLeap(tau)
		}
		tau /= 2
	}
	return s.exactStep(end)
}

// tauBound computes the epsilon-bounded leap interval: for every species,
// the expected change and the variance of the change over tau must stay
// within max(epsilon*x_i, 1).
func (s *stepper) tauBound() float64 {
	tau := math.Inf(1)
	for i := range s.st.populations {
		var mu, sigma2 float64
		for j := range s.network.reactions {
			d := float64(s.network.reactions[j].delta[i])
			if d == 0 || s.a[j] == 0 {
				continue
			}
			mu += d * s.a[j]
			sigma2 += d * d * s.a[j]
		}
		bound := math.Max(s.epsilon*float64(s.st.populations[i]), 1)
		if mu != 0 {
			if t := bound / math.Abs(mu); t < tau {
				tau = t
			}
		}
		if sigma2 != 0 {
			if t := bound * bound / sigma2; t < tau {
				tau = t
			}
		}
	}
	return tau
}

// tryLeap draws Poisson firing counts for every reaction over tau and
// applies their net effect if no population would go negative. It mutates
// nothing on rejection.
func (s *stepper) tryLeap(tau float64) bool {
	for i := range s.leapDelta {
		s.leapDelta[i] = 0
	}
	var fired int64
	for j := range s.network.reactions {
		if s.a[j] == 0 {
			continue
		}
		k := poisson(s.rng, s.a[j]*tau)
		if k == 0 {
			continue
		}
		fired += k
		for i, d := range s.network.reactions[j].delta {
			s.leapDelta[i] += k * d
		}
	}

	for i, d := range s.leapDelta {
		if s.st.populations[i]+d < 0 {
			return false
		}
	}
	for i, d := range s.leapDelta {
		s.st.populations[i] += d
	}
	s.reactionFirings += fired
	return true
}

// afterLeap advances the clock past an accepted leap and lets due events
// apply against the post-leap state.
func (s *stepper) afterLeap(tau float64) error {
	t := s.st.Time + tau
	s.st.Time = t
	s.rec.observe(t, s.st.populations)
	if _, err := s.events.poll(s.st); err != nil {
		return err
	}
	s.rec.observe(t, s.st.populations)
	return nil
}
