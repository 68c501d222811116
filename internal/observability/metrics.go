package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EngineCollector bundles Prometheus metrics for the simulation engine and
// provides a ready-to-serve /metrics handler. It satisfies
// core.EngineMetrics, so the ensemble runner can drive it directly.
type EngineCollector struct {
	gatherer prometheus.Gatherer

	EnsemblesTotal      prometheus.Counter
	RealizationsTotal   *prometheus.CounterVec
	ReactionFirings     prometheus.Counter
	RealizationSteps    prometheus.Histogram
	RealizationDuration prometheus.Histogram
	ActiveRealizations  prometheus.Gauge
}

// NewEngineCollector registers engine Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when
// nil. Registration tolerates collectors that already exist, so repeated
// construction against one registry reuses them.
func NewEngineCollector(reg prometheus.Registerer) (*EngineCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ensembles := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_ensembles_total",
		Help: "Total number of ensemble runs started.",
	})
	ensembles, err := registerCounter(reg, ensembles, "engine_ensembles_total")
	if err != nil {
		return nil, err
	}

	realizations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_realizations_total",
		Help: "Total number of finished realizations, labeled by outcome status.",
	}, []string{"status"})
	realizations, err = registerCounterVec(reg, realizations, "engine_realizations_total")
	if err != nil {
		return nil, err
	}

	firings := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_reaction_firings_total",
		Help: "Cumulative number of reaction firings applied across all realizations.",
	})
	firings, err = registerCounter(reg, firings, "engine_reaction_firings_total")
	if err != nil {
		return nil, err
	}

	steps := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "engine_realization_steps",
		Help:    "Steps taken per realization.",
		Buckets: prometheus.ExponentialBuckets(100, 4, 10),
	})
	steps, err = registerHistogram(reg, steps, "engine_realization_steps")
	if err != nil {
		return nil, err
	}

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "engine_realization_duration_seconds",
		Help:    "Wall-clock duration per realization in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})
	duration, err = registerHistogram(reg, duration, "engine_realization_duration_seconds")
	if err != nil {
		return nil, err
	}

	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_active_realizations",
		Help: "Number of realizations currently running.",
	})
	active, err = registerGauge(reg, active, "engine_active_realizations")
	if err != nil {
		return nil, err
	}

	return &EngineCollector{
		gatherer:            gatherer,
		EnsemblesTotal:      ensembles,
		RealizationsTotal:   realizations,
		ReactionFirings:     firings,
		RealizationSteps:    steps,
		RealizationDuration: duration,
		ActiveRealizations:  active,
	}, nil
}

// EnsembleStarted implements core.EngineMetrics.
func (c *EngineCollector) EnsembleStarted(realizations int) {
	if c == nil {
		return
	}
	c.EnsemblesTotal.Inc()
	c.ActiveRealizations.Add(float64(realizations))
}

// RealizationFinished implements core.EngineMetrics.
func (c *EngineCollector) RealizationFinished(status string, steps int, reactionFirings int64, seconds float64) {
	if c == nil {
		return
	}
	c.RealizationsTotal.WithLabelValues(status).Inc()
	c.ReactionFirings.Add(float64(reactionFirings))
	c.RealizationSteps.Observe(float64(steps))
	c.RealizationDuration.Observe(seconds)
	c.ActiveRealizations.Dec()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *EngineCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return g, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
