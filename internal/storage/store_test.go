package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/legsim/internal/dynamo"
)

func testResult() *dynamo.Result {
	s0 := dynamo.NewRobotState(1)
	s0.BodyPosition = mgl64.Vec3{0, 0, 0.5}
	s1 := s0.Clone()
	s1.BodyPosition[2] = 0.45
	s1.Q[0] = 0.1

	return &dynamo.Result{
		States:        []dynamo.RobotState{s0, s1},
		Controls:      []dynamo.Control{{0}, {1.5}},
		ContactForces: [][]mgl64.Vec3{{{}, {}}, {{0, 0, 3}, {0, 1, 2}}},
		Times:         []float64{0.0, 0.01},
		StepsTaken:    1,
		Metrics: map[string]float64{
			"energy": 1.5,
		},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(RunMetadata{Model: "test", Dt: 0.01, Duration: 1, Integrator: "semi_implicit", Controller: "none"}, testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if meta.Model != "test" {
		t.Errorf("expected model 'test', got '%s'", meta.Model)
	}

	if meta.Steps != 1 {
		t.Errorf("expected 1 step, got %d", meta.Steps)
	}

	if meta.Metrics["energy"] != 1.5 {
		t.Errorf("expected energy 1.5, got %f", meta.Metrics["energy"])
	}

	header, states, times, err := st.LoadStates(runID)
	if err != nil {
		t.Fatalf("load states failed: %v", err)
	}

	if len(states) != 2 || len(times) != 2 {
		t.Fatalf("expected 2 states and times, got %d and %d", len(states), len(times))
	}

	if len(header) != len(states[1]) {
		t.Fatalf("header has %d columns, rows have %d", len(header), len(states[1]))
	}

	col := map[string]int{}
	for i, name := range header {
		col[name] = i
	}
	if got := states[1][col["z"]]; got != 0.45 {
		t.Errorf("z = %g, want 0.45", got)
	}
	if got := states[1][col["u0"]]; got != 1.5 {
		t.Errorf("u0 = %g, want 1.5", got)
	}
	if got := states[1][col["f1y"]]; got != 1 {
		t.Errorf("f1y = %g, want 1", got)
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if _, err := st.Save(RunMetadata{Model: "test"}, testResult()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	if len(runs) != 1 {
		t.Errorf("expected 1 run, got %d", len(runs))
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(RunMetadata{Model: "test"}, &dynamo.Result{})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	if _, err := os.Stat(filepath.Join(runDir, "metadata.json")); os.IsNotExist(err) {
		t.Error("metadata.json not created")
	}
	if _, err := os.Stat(filepath.Join(runDir, "states.csv")); os.IsNotExist(err) {
		t.Error("states.csv not created")
	}
}

func TestLoadMissingRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("ghost"); err == nil {
		t.Error("expected an error for a missing run")
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, RunMetadata{Model: "point"}, testResult()); err != nil {
		t.Fatal(err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatal(err)
	}
	if data.Model != "point" || len(data.States) != 2 || len(data.Labels) != len(data.States[0]) {
		t.Errorf("decoded %+v", data)
	}
	if data.ContactForces[1][0][2] != 3 {
		t.Errorf("contact force = %v", data.ContactForces[1][0])
	}
}

func TestLoadResult(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	want := testResult()
	runID, err := st.Save(RunMetadata{Model: "test"}, want)
	if err != nil {
		t.Fatal(err)
	}

	meta, got, err := st.LoadResult(runID)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Joints != 1 || meta.Contacts != 2 {
		t.Errorf("joints/contacts = %d/%d, want 1/2", meta.Joints, meta.Contacts)
	}
	if len(got.States) != 2 || got.States[1].BodyPosition[2] != 0.45 || got.States[1].Q[0] != 0.1 {
		t.Errorf("states = %+v", got.States)
	}
	if got.States[0].BodyOrientation != want.States[0].BodyOrientation {
		t.Errorf("orientation = %v", got.States[0].BodyOrientation)
	}
	if got.Controls[1][0] != 1.5 {
		t.Errorf("control = %v", got.Controls[1])
	}
	if got.ContactForces[1][1] != (mgl64.Vec3{0, 1, 2}) {
		t.Errorf("contact force = %v", got.ContactForces[1][1])
	}
	if got.Metrics["energy"] != 1.5 || got.StepsTaken != 1 {
		t.Errorf("metrics %v steps %d", got.Metrics, got.StepsTaken)
	}

	if _, _, err := st.LoadResult("missing"); err == nil {
		t.Error("missing run should fail")
	}
}
