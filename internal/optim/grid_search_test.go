package optim

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/legsim/internal/config"
	"github.com/san-kum/legsim/internal/dynamo"
)

func pointDrop() *config.Config {
	cfg := config.GetPreset("point", "drop")
	cfg.Duration = 0.6
	return cfg
}

func TestCellOrder(t *testing.T) {
	g := NewGridSearch([]string{"a", "b"}, [][]float64{{1, 2}, {10, 20, 30}})
	if g.Size() != 6 {
		t.Fatalf("Size() = %d, want 6", g.Size())
	}
	want := [][2]float64{{1, 10}, {1, 20}, {1, 30}, {2, 10}, {2, 20}, {2, 30}}
	for i, w := range want {
		c := g.cell(i)
		if c["a"] != w[0] || c["b"] != w[1] {
			t.Errorf("cell(%d) = %v, want a=%g b=%g", i, c, w[0], w[1])
		}
	}
}

func TestSearchFindsSoftestContact(t *testing.T) {
	g := NewGridSearch([]string{"contact.kp"}, [][]float64{{20000, 2000, 5000}})
	g.SetLimit(2)

	res, err := g.Search(context.Background(), Builder(pointDrop), "min_base_height")
	if err != nil {
		t.Fatal(err)
	}
	if res.Best["contact.kp"] != 2000 {
		t.Errorf("best kp = %g, want 2000", res.Best["contact.kp"])
	}
	if len(res.Points) != 3 {
		t.Fatalf("%d points, want 3", len(res.Points))
	}
	for _, p := range res.Points {
		if p.Err != nil {
			t.Errorf("%v: %v", p.Params, p.Err)
		}
		if p.Value > res.BestValue {
			continue
		}
		if p.Params["contact.kp"] != 2000 {
			t.Errorf("%v scored %g, not above best %g", p.Params, p.Value, res.BestValue)
		}
	}
}

func TestSearchErrors(t *testing.T) {
	ctx := context.Background()

	g := NewGridSearch([]string{"contact.kp"}, nil)
	if _, err := g.Search(ctx, Builder(pointDrop), "energy"); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("mismatched ranges: err = %v", err)
	}

	g = NewGridSearch([]string{"contact.kp"}, [][]float64{{}})
	if _, err := g.Search(ctx, Builder(pointDrop), "energy"); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("empty grid: err = %v", err)
	}

	g = NewGridSearch([]string{"dt"}, [][]float64{{-1, 0}})
	res, err := g.Search(ctx, Builder(pointDrop), "energy_drift")
	if err == nil {
		t.Fatal("all-invalid grid should fail")
	}
	for _, p := range res.Points {
		if p.Err == nil {
			t.Errorf("%v evaluated without error", p.Params)
		}
	}

	g = NewGridSearch([]string{"stiffness"}, [][]float64{{1}})
	if _, err := g.Search(ctx, Builder(pointDrop), "energy"); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("unknown parameter: err = %v", err)
	}
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGridSearch([]string{"contact.kd"}, [][]float64{{50, 100}})
	if _, err := g.Search(ctx, Builder(pointDrop), "energy_drift"); !errors.Is(err, dynamo.ErrContextCanceled) {
		t.Errorf("err = %v, want ErrContextCanceled", err)
	}
}

func TestApply(t *testing.T) {
	cfg := config.DefaultConfig()
	for name, v := range map[string]float64{
		"contact.kp": 1, "contact.kd": 2, "contact.tangential_damping": 3,
		"controller.kp": 4, "controller.kd": 5, "controller.limit": 6, "dt": 7, "mass": 8,
	} {
		if err := Apply(cfg, name, v); err != nil {
			t.Errorf("Apply(%q): %v", name, err)
		}
	}
	if cfg.Contact.Kp != 1 || cfg.Contact.TangentialDamping != 3 || cfg.ControllerParams.Limit != 6 || cfg.Body.Mass != 8 {
		t.Errorf("Apply left %+v", cfg)
	}
}
