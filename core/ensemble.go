package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/kinetics-simulator/internal/logging"
	"github.com/signalsfoundry/kinetics-simulator/timegrid"
)

var ErrBadRunConfig = errors.New("invalid run configuration")

// EngineMetrics receives engine-level measurements from the ensemble
// runner. observability.EngineCollector satisfies it; runs without metrics
// simply leave it unset.
type EngineMetrics interface {
	EnsembleStarted(realizations int)
	RealizationFinished(status string, steps int, reactionFirings int64, seconds float64)
}

// RunConfig describes one ensemble run.
type RunConfig struct {
	// Realizations is the number of independent sample paths; at least 1.
	Realizations int
	// Grid is the shared sample-time grid; its last point is the horizon.
	Grid timegrid.Grid
	// Method selects exact or tau-leap stepping.
	Method StepMethod
	// Epsilon is the tau-leap relative tolerance; 0 means DefaultEpsilon.
	Epsilon float64
	// MaxSteps bounds each realization's step count; 0 means DefaultMaxSteps.
	MaxSteps int
	// Seed makes the whole ensemble reproducible: realization i draws from
	// a PCG stream keyed (Seed, i). 0 picks a fresh seed for this run.
	Seed uint64
	// Workers caps concurrent realizations; 0 means GOMAXPROCS.
	Workers int
}

// RealizationStatus reports the outcome of one realization. Failed
// realizations carry their error here; the rest of the ensemble is
// unaffected.
type RealizationStatus struct {
	Index           int
	Err             error
	Steps           int
	ReactionFirings int64
	EventFirings    int64
}

// EnsembleResult holds every realization's recorded trajectory on the
// shared grid, indexable by realization number regardless of completion
// order. Failed realizations have a status error and no trajectory.
type EnsembleResult struct {
	grid     timegrid.Grid
	network  *ReactionNetwork
	seed     uint64
	series   [][][]int64 // [realization][species][grid index]
	statuses []RealizationStatus
}

// Grid returns the shared sample-time grid.
func (r *EnsembleResult) Grid() timegrid.Grid { return r.grid }

// Seed returns the base seed the ensemble actually ran with, so an
// unseeded run can still be reproduced.
func (r *EnsembleResult) Seed() uint64 { return r.seed }

// Realizations returns the number of realizations in the ensemble.
func (r *EnsembleResult) Realizations() int { return len(r.statuses) }

// Statuses returns a copy of the per-realization status list.
func (r *EnsembleResult) Statuses() []RealizationStatus {
	out := make([]RealizationStatus, len(r.statuses))
	copy(out, r.statuses)
	return out
}

// Err returns the lowest-indexed realization failure, or nil when every
// realization completed. Failures are already wrapped as *SimulationError.
func (r *EnsembleResult) Err() error {
	for _, s := range r.statuses {
		if s.Err != nil {
			return s.Err
		}
	}
	return nil
}

// Series returns the sampled populations of one species for one
// realization, aligned to the grid. The slice is a copy.
func (r *EnsembleResult) Series(realization int, species string) ([]int64, error) {
	if realization < 0 || realization >= len(r.statuses) {
		return nil, fmt.Errorf("realization %d out of range [0,%d)", realization, len(r.statuses))
	}
	if err := r.statuses[realization].Err; err != nil {
		return nil, err
	}
	idx, ok := r.network.SpeciesIndex(species)
	if !ok {
		return nil, fmt.Errorf("%w: species %q", ErrUnknownReference, species)
	}
	src := r.series[realization][idx]
	out := make([]int64, len(src))
	copy(out, src)
	return out, nil
}

// EnsembleRunner fans an ensemble out over worker goroutines. Realizations
// are embarrassingly parallel: the only shared object is the read-only
// network, so no locking is involved.
//
// Failure policy is partial continuation: a realization that dies records
// its error in the status list and the others keep running, so one bad
// sample path does not discard a large ensemble. Callers wanting
// all-or-nothing check Result.Err().
type EnsembleRunner struct {
	network *ReactionNetwork
	log     logging.Logger
	metrics EngineMetrics
	tracer  trace.Tracer
}

// RunnerOption configures an EnsembleRunner.
type RunnerOption func(*EnsembleRunner)

// WithLogger attaches a structured logger for run lifecycle messages.
// Errors are never logged, only returned.
func WithLogger(l logging.Logger) RunnerOption {
	return func(r *EnsembleRunner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMetrics attaches an engine metrics sink.
func WithMetrics(m EngineMetrics) RunnerOption {
	return func(r *EnsembleRunner) { r.metrics = m }
}

// WithTracer attaches an OpenTelemetry tracer; the runner then opens a
// span per run and per realization.
func WithTracer(t trace.Tracer) RunnerOption {
	return func(r *EnsembleRunner) { r.tracer = t }
}

// NewEnsembleRunner builds a runner over a compiled network.
func NewEnsembleRunner(n *ReactionNetwork, opts ...RunnerOption) *EnsembleRunner {
	r := &EnsembleRunner{network: n, log: logging.Noop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the configured ensemble. It returns an error only for
// invalid configuration or a fully cancelled context; realization-level
// failures land in the result's status list per the partial-continuation
// policy.
func (r *EnsembleRunner) Run(ctx context.Context, cfg RunConfig) (*EnsembleResult, error) {
	if cfg.Realizations < 1 {
		return nil, fmt.Errorf("%w: realizations %d", ErrBadRunConfig, cfg.Realizations)
	}
	if cfg.Grid.Len() < 2 {
		return nil, fmt.Errorf("%w: sample grid is empty", ErrBadRunConfig)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	if r.tracer != nil {
		var span trace.Span
		ctx, span = r.tracer.Start(ctx, "ensemble.run", trace.WithAttributes(
			attribute.String("network", r.network.Name()),
			attribute.Int("realizations", cfg.Realizations),
			attribute.String("method", cfg.Method.String()),
		))
		defer span.End()
	}

	r.log.Info(ctx, "ensemble run starting",
		logging.String("network", r.network.Name()),
		logging.Int("realizations", cfg.Realizations),
		logging.String("method", cfg.Method.String()),
		logging.Any("seed", seed),
	)
	if r.metrics != nil {
		r.metrics.EnsembleStarted(cfg.Realizations)
	}

	result := &EnsembleResult{
		grid:     cfg.Grid,
		network:  r.network,
		seed:     seed,
		series:   make([][][]int64, cfg.Realizations),
		statuses: make([]RealizationStatus, cfg.Realizations),
	}
	grid := cfg.Grid.Times()

	started := time.Now()
	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < cfg.Realizations; i++ {
		g.Go(func() error {
			result.statuses[i] = r.runOne(ctx, i, grid, seed, cfg, result)
			return nil
		})
	}
	// Workers never return errors; failures are per-realization statuses.
	_ = g.Wait()

	failed := 0
	for _, s := range result.statuses {
		if s.Err != nil {
			failed++
		}
	}
	r.log.Info(ctx, "ensemble run finished",
		logging.String("network", r.network.Name()),
		logging.Int("realizations", cfg.Realizations),
		logging.Int("failed", failed),
		logging.Any("elapsed", time.Since(started)),
	)
	return result, nil
}

func (r *EnsembleRunner) runOne(ctx context.Context, i int, grid []float64, seed uint64, cfg RunConfig, result *EnsembleResult) RealizationStatus {
	if r.tracer != nil {
		var span trace.Span
		ctx, span = r.tracer.Start(ctx, "ensemble.realization",
			trace.WithAttributes(attribute.Int("realization", i)))
		defer span.End()
	}

	started := time.Now()
	stp := newStepper(r.network, grid, newRealizationRand(seed, i), cfg.Method, cfg.Epsilon, cfg.MaxSteps)
	err := stp.run(ctx)

	status := RealizationStatus{
		Index:           i,
		Steps:           stp.steps,
		ReactionFirings: stp.reactionFirings,
		EventFirings:    stp.events.appliedFirings(),
	}
	if err != nil {
		status.Err = &SimulationError{Realization: i, Time: stp.st.Time, Err: err}
	} else {
		result.series[i] = stp.rec.series
	}

	if r.metrics != nil {
		r.metrics.RealizationFinished(statusLabel(err), stp.steps, stp.reactionFirings, time.Since(started).Seconds())
	}
	return status
}

func statusLabel(err error) string {
	var negErr *NegativePopulationError
	var limitErr *StepLimitExceededError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &negErr):
		return "negative_population"
	case errors.As(err, &limitErr):
		return "step_limit"
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
