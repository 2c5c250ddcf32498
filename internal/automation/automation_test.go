package automation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/legsim/internal/config"
	"github.com/san-kum/legsim/internal/dynamo"
	"github.com/san-kum/legsim/internal/logging"
)

const scenarioYAML = `
name: contact stiffness
description: the same drop on two grounds
steps:
  - model: point
    preset: drop
    duration: 0.3
    params:
      contact.kp: 2000
  - model: box
    duration: 0.2
    params:
      mass: 3
`

func TestScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(scenarioYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "contact stiffness" || len(sc.Steps) != 2 {
		t.Fatalf("scenario = %+v", sc)
	}

	cfg, err := sc.Steps[0].Config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Contact.Kp != 2000 || cfg.Duration != 0.3 || cfg.InitState.Position[2] != 0.5 {
		t.Errorf("step 1 config = %+v", cfg)
	}
	cfg, err = sc.Steps[1].Config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model != "box" || cfg.Body.Mass != 3 {
		t.Errorf("step 2 config = %+v", cfg)
	}

	results, err := RunScenario(context.Background(), sc, logging.NewTestLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].StepsTaken != 600 || results[1].StepsTaken != 400 {
		t.Errorf("got %d results", len(results))
	}
}

func TestScenarioStopsAtFailure(t *testing.T) {
	sc := &Scenario{Steps: []ScenarioStep{
		{Model: "point", Preset: "drop", Duration: 0.05},
		{Model: "point", Params: map[string]float64{"stiffness": 1}},
		{Model: "point"},
	}}
	results, err := RunScenario(context.Background(), sc, nil)
	if !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("err = %v, want ErrParameterBounds", err)
	}
	if len(results) != 1 {
		t.Errorf("%d results before the failure, want 1", len(results))
	}
	if _, err := (ScenarioStep{Model: "point", Preset: "nope"}).Config(); err == nil {
		t.Error("unknown preset should fail")
	}
}

func TestMonteCarlo(t *testing.T) {
	base := config.GetPreset("box", "drop")
	base.Duration = 0.4
	mc := &MonteCarloConfig{
		Base:          base,
		PositionNoise: 0.05,
		AngleNoise:    0.1,
		NumTrials:     4,
		Seed:          7,
		Parallel:      2,
	}

	a, b := mc.Trials(), mc.Trials()
	for i := range a {
		if a[i].InitState.Position != b[i].InitState.Position || a[i].InitState.RPY != b[i].InitState.RPY {
			t.Fatalf("trial %d differs between draws", i)
		}
		if a[i].InitState.Position == base.InitState.Position {
			t.Errorf("trial %d was not perturbed", i)
		}
	}
	if base.InitState.Position[2] != 0.5 {
		t.Error("drawing trials changed the base config")
	}

	results, err := RunMonteCarlo(context.Background(), mc)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("%d results, want 4", len(results))
	}
	for i, r := range results {
		if r.Trial != i || r.Position != a[i].InitState.Position {
			t.Errorf("result %d out of order", i)
		}
		if _, ok := r.Metrics["min_base_height"]; !ok {
			t.Errorf("trial %d has no metrics", i)
		}
	}
	stable, unstable := MonteCarloStats(results)
	if stable+unstable != 4 {
		t.Errorf("stats %d + %d", stable, unstable)
	}

	if _, err := RunMonteCarlo(context.Background(), &MonteCarloConfig{}); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("empty config: err = %v", err)
	}
}
