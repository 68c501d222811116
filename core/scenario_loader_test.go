package core

import (
	"strings"
	"testing"

	"github.com/signalsfoundry/kinetics-simulator/model"
)

const outbreakScenarioJSON = `{
  "name": "loaded-outbreak",
  "species": [
    {"name": "S", "population": 9998},
    {"name": "I", "population": 2},
    {"name": "R", "population": 0}
  ],
  "parameters": [
    {"name": "Ki", "value": 0.4},
    {"name": "Kr", "value": 0.1666}
  ],
  "reactions": [
    {
      "name": "transmission",
      "reactants": [{"species": "S"}],
      "products": [{"species": "I"}],
      "rate": {"expression": "Ki * S * I / (S + I + R)"}
    },
    {
      "name": "recovery",
      "reactants": [{"species": "I"}],
      "products": [{"species": "R"}],
      "rate": {"parameter": "Kr"}
    },
    {
      "name": "import",
      "products": [{"species": "I", "coefficient": 2}],
      "rate": {"constant": 0.01}
    }
  ],
  "events": [
    {
      "name": "distancing",
      "trigger": "I > 100",
      "delay": 2,
      "persistent": false,
      "use_trigger_time_values": true,
      "assignments": [{"target": "Ki", "expression": "Ki / 2"}]
    }
  ]
}`

func TestLoadNetworkDefinition(t *testing.T) {
	def, err := LoadNetworkDefinition(strings.NewReader(outbreakScenarioJSON))
	if err != nil {
		t.Fatalf("LoadNetworkDefinition: %v", err)
	}

	if def.Name != "loaded-outbreak" {
		t.Errorf("Name = %q", def.Name)
	}
	if len(def.Species) != 3 || def.Species[0].InitialPopulation != 9998 {
		t.Errorf("species = %+v", def.Species)
	}
	if len(def.Parameters) != 2 || def.Parameters[0].Name != "Ki" {
		t.Errorf("parameters = %+v", def.Parameters)
	}

	if got := def.Reactions[0].Rate; got.Kind != model.RateExpression {
		t.Errorf("transmission rate = %+v, want expression", got)
	}
	if got := def.Reactions[1].Rate; got.Kind != model.RateMassAction || got.Parameter != "Kr" {
		t.Errorf("recovery rate = %+v, want mass-action on Kr", got)
	}
	if got := def.Reactions[2].Rate; got.Kind != model.RateMassAction || got.Constant != 0.01 {
		t.Errorf("import rate = %+v, want constant 0.01", got)
	}

	// Omitted coefficient defaults to 1; explicit one is honored.
	if got := def.Reactions[0].Reactants[0].Coefficient; got != 1 {
		t.Errorf("default coefficient = %d, want 1", got)
	}
	if got := def.Reactions[2].Products[0].Coefficient; got != 2 {
		t.Errorf("explicit coefficient = %d, want 2", got)
	}

	ev := def.Events[0]
	if ev.Trigger != "I > 100" || ev.Delay != 2 || !ev.UseTriggerTimeValues {
		t.Errorf("event = %+v", ev)
	}

	// The loaded definition compiles like a hand-built one.
	n, err := NewReactionNetwork(def)
	if err != nil {
		t.Fatalf("NewReactionNetwork on loaded definition: %v", err)
	}
	if n.NumSpecies() != 3 || n.NumReactions() != 3 || n.NumEvents() != 1 {
		t.Errorf("compiled counts = %d/%d/%d", n.NumSpecies(), n.NumReactions(), n.NumEvents())
	}
}

func TestLoadNetworkDefinitionMissingRate(t *testing.T) {
	payload := `{
  "name": "broken",
  "species": [{"name": "X", "population": 1}],
  "reactions": [{"name": "ghost", "reactants": [{"species": "X"}], "rate": {}}]
}`
	if _, err := LoadNetworkDefinition(strings.NewReader(payload)); err == nil {
		t.Fatalf("reaction without a rate accepted")
	}
}

func TestLoadNetworkDefinitionRejectsUnknownFields(t *testing.T) {
	payload := `{"name": "typo", "speciez": []}`
	if _, err := LoadNetworkDefinition(strings.NewReader(payload)); err == nil {
		t.Fatalf("unknown field accepted")
	}
}

func TestLoadNetworkDefinitionBadJSON(t *testing.T) {
	if _, err := LoadNetworkDefinition(strings.NewReader("{not json")); err == nil {
		t.Fatalf("malformed JSON accepted")
	}
}
