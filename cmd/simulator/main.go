package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"go.opentelemetry.io/otel"

	"github.com/signalsfoundry/kinetics-simulator/core"
	"github.com/signalsfoundry/kinetics-simulator/internal/logging"
	"github.com/signalsfoundry/kinetics-simulator/internal/observability"
	"github.com/signalsfoundry/kinetics-simulator/model"
	"github.com/signalsfoundry/kinetics-simulator/registry"
	"github.com/signalsfoundry/kinetics-simulator/timegrid"
)

// Built-in SEIR outbreak scenario: COVID-like parameters over a closed
// population of 10000 with 2 initially infectious individuals. A distancing
// event cuts the transmission constant once the symptomatic count passes
// 100.
const (
	totalPopulation      = 10000
	initialInfectious    = 2
	basicReproduction    = 2.4
	meanIncubationPeriod = 4.0
	meanInfectiousPeriod = 6.0
	symptomaticFraction  = 0.2
	distancingFactor     = 0.8
)

func main() {
	realizations := flag.Int("realizations", 10, "number of independent realizations")
	endTime := flag.Float64("end", 180, "simulation horizon (start is 0)")
	samples := flag.Int("samples", 181, "number of sample times across the horizon")
	method := flag.String("method", "exact", "stepping method: exact or tauleap")
	epsilon := flag.Float64("epsilon", core.DefaultEpsilon, "tau-leap relative tolerance")
	seed := flag.Uint64("seed", 0, "base seed; 0 picks a fresh one")
	scenarioPath := flag.String("scenario", "", "path to a JSON network description (default: built-in SEIR outbreak)")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus /metrics on this address (e.g. :9090)")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx, log := logging.WithRunLogger(context.Background(), log)

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		panic(fmt.Errorf("init tracing: %w", err))
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	stepMethod, err := parseMethod(*method)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	// Models live in an explicit registry; the built-in outbreak scenario
	// is always available, a -scenario file adds (and selects) another.
	models := registry.New()
	seir, err := core.NewReactionNetwork(seirOutbreak())
	if err != nil {
		panic(fmt.Errorf("compile built-in scenario: %w", err))
	}
	if err := models.Add(seir.Name(), seir); err != nil {
		panic(err)
	}

	network := seir
	if *scenarioPath != "" {
		f, err := os.Open(*scenarioPath)
		if err != nil {
			panic(fmt.Errorf("open scenario %q: %w", *scenarioPath, err))
		}
		def, err := core.LoadNetworkDefinition(f)
		f.Close()
		if err != nil {
			panic(fmt.Errorf("load scenario %q: %w", *scenarioPath, err))
		}
		loaded, err := core.NewReactionNetwork(def)
		if err != nil {
			panic(fmt.Errorf("compile scenario %q: %w", *scenarioPath, err))
		}
		if err := models.Add(loaded.Name(), loaded); err != nil {
			panic(err)
		}
		network = loaded
	}
	fmt.Printf("Registered models: %v\n", models.Names())

	grid, err := timegrid.Linspace(0, *endTime, *samples)
	if err != nil {
		panic(fmt.Errorf("build sample grid: %w", err))
	}

	opts := []core.RunnerOption{
		core.WithLogger(log),
		core.WithTracer(otel.Tracer("kinetics-simulator")),
	}
	if *metricsAddr != "" {
		collector, err := observability.NewEngineCollector(nil)
		if err != nil {
			panic(fmt.Errorf("register metrics: %w", err))
		}
		opts = append(opts, core.WithMetrics(collector))
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", collector.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
			}
		}()
		fmt.Printf("Serving metrics on %s/metrics\n", *metricsAddr)
	}

	runner := core.NewEnsembleRunner(network, opts...)
	result, err := runner.Run(ctx, core.RunConfig{
		Realizations: *realizations,
		Grid:         grid,
		Method:       stepMethod,
		Epsilon:      *epsilon,
		Seed:         *seed,
	})
	if err != nil {
		panic(fmt.Errorf("run ensemble: %w", err))
	}

	printSummary(network, result)
}

func parseMethod(s string) (core.StepMethod, error) {
	switch s {
	case "exact", "ssa", "direct":
		return core.StepExact, nil
	case "tauleap", "approximate":
		return core.StepTauLeap, nil
	default:
		return 0, fmt.Errorf("unknown method %q (want exact or tauleap)", s)
	}
}

func printSummary(network *core.ReactionNetwork, result *core.EnsembleResult) {
	failed := 0
	for _, s := range result.Statuses() {
		if s.Err != nil {
			failed++
			fmt.Printf("realization %d failed: %v\n", s.Index, s.Err)
		}
	}
	ok := result.Realizations() - failed
	fmt.Printf("Completed %d/%d realizations on %d sample times (seed %d)\n",
		ok, result.Realizations(), result.Grid().Len(), result.Seed())
	if ok == 0 {
		return
	}

	fmt.Printf("%-14s %10s %10s %10s\n", "species", "mean", "min", "max")
	last := result.Grid().Len() - 1
	for _, name := range network.SpeciesNames() {
		var sum, count int64
		minV := int64(-1)
		maxV := int64(-1)
		for i := 0; i < result.Realizations(); i++ {
			series, err := result.Series(i, name)
			if err != nil {
				continue
			}
			v := series[last]
			sum += v
			count++
			if minV < 0 || v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
		fmt.Printf("%-14s %10.1f %10d %10d\n", name, float64(sum)/float64(count), minV, maxV)
	}
}

// seirOutbreak builds the built-in scenario definition. Transmission uses
// an expression rate (frequency-dependent on the living population), the
// rest are mass-action with parameter-backed constants so the distancing
// event can retune Ki mid-run.
func seirOutbreak() model.NetworkDefinition {
	return model.NetworkDefinition{
		Name: "seir-outbreak",
		Species: []model.SpeciesDefinition{
			{Name: "S", InitialPopulation: totalPopulation - initialInfectious},
			{Name: "E", InitialPopulation: 0},
			{Name: "Y", InitialPopulation: 0},
			{Name: "A", InitialPopulation: 0},
			{Name: "I", InitialPopulation: initialInfectious},
			{Name: "C", InitialPopulation: initialInfectious},
			{Name: "R", InitialPopulation: 0},
		},
		Parameters: []model.ParameterDefinition{
			{Name: "Ki", Value: basicReproduction / meanInfectiousPeriod},
			{Name: "Ky", Value: symptomaticFraction / meanIncubationPeriod},
			{Name: "Ka", Value: (1 - symptomaticFraction) / meanIncubationPeriod},
			{Name: "Kr", Value: 1 / meanInfectiousPeriod},
		},
		Reactions: []model.ReactionDefinition{
			{
				Name:      "transmission",
				Reactants: []model.StoichEntry{{Species: "S", Coefficient: 1}},
				Products:  []model.StoichEntry{{Species: "E", Coefficient: 1}},
				Rate:      model.ExpressionRate("Ki * S * I / (S + E + I + R)"),
			},
			{
				Name:      "infectious_asymptomatic",
				Reactants: []model.StoichEntry{{Species: "E", Coefficient: 1}},
				Products: []model.StoichEntry{
					{Species: "A", Coefficient: 1},
					{Species: "I", Coefficient: 1},
					{Species: "C", Coefficient: 1},
				},
				Rate: model.MassActionParameter("Ka"),
			},
			{
				Name:      "infectious_symptomatic",
				Reactants: []model.StoichEntry{{Species: "E", Coefficient: 1}},
				Products: []model.StoichEntry{
					{Species: "Y", Coefficient: 1},
					{Species: "I", Coefficient: 1},
					{Species: "C", Coefficient: 1},
				},
				Rate: model.MassActionParameter("Ky"),
			},
			{
				Name:      "recovery",
				Reactants: []model.StoichEntry{{Species: "I", Coefficient: 1}},
				Products:  []model.StoichEntry{{Species: "R", Coefficient: 1}},
				Rate:      model.MassActionParameter("Kr"),
			},
		},
		Events: []model.EventDefinition{
			{
				Name:    "distancing",
				Trigger: "Y > 100",
				Delay:   0,
				Assignments: []model.EventAssignment{
					{
						Target:     "Ki",
						Expression: fmt.Sprintf("%g", distancingFactor/meanInfectiousPeriod),
					},
				},
			},
		},
	}
}
