package viz

import (
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/legsim/internal/config"
	"github.com/san-kum/legsim/internal/experiment"
	"github.com/san-kum/legsim/internal/model"
	"github.com/san-kum/legsim/internal/spatial"
)

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestCanvas(t *testing.T) {
	c := NewCanvas(2, 1)
	if w, h := c.Dots(); w != 4 || h != 4 {
		t.Fatalf("Dots() = %d, %d", w, h)
	}
	c.Set(0, 0)
	c.Set(9, 9)
	c.Set(-1, 0)
	if got := c.String(); got != "⠁⠀" {
		t.Errorf("String() = %q", got)
	}

	c.Clear()
	c.DrawLine(0, 0, 3, 3)
	for i := 0; i < 4; i++ {
		if !c.IsSet(i, i) {
			t.Errorf("dot (%d, %d) not set", i, i)
		}
	}
	if c.IsSet(3, 0) {
		t.Error("dot off the diagonal is set")
	}
}

func TestCameraProject(t *testing.T) {
	cam := &Camera{Zoom: 0.1}
	tests := []struct {
		name  string
		pitch float64
		p     mgl64.Vec3
		x, y  int
	}{
		{"target", 0, mgl64.Vec3{}, 50, 40},
		{"right", 0, mgl64.Vec3{1, 0, 0}, 58, 40},
		{"up", 0, mgl64.Vec3{0, 0, 1}, 50, 32},
		{"depth", 0, mgl64.Vec3{0, 1, 0}, 50, 40},
		{"far from above", math.Pi / 2, mgl64.Vec3{0, 1, 0}, 50, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam.Pitch = tt.pitch
			if x, y := cam.Project(tt.p, 100, 80); x != tt.x || y != tt.y {
				t.Errorf("Project(%v) = %d, %d, want %d, %d", tt.p, x, y, tt.x, tt.y)
			}
		})
	}
}

func TestSkeletonEdges(t *testing.T) {
	box := NewSkeleton(model.NewBox(1, spatial.Vec3[float64]{0.3, 0.2, 0.1}))
	if len(box.contactEdges) != 12 {
		t.Errorf("box outline has %d edges, want 12", len(box.contactEdges))
	}
	q, err := model.NewQuadruped(model.MiniCheetahParams())
	if err != nil {
		t.Fatal(err)
	}
	if got := NewSkeleton(q).contactEdges; len(got) != 0 {
		t.Errorf("quadruped feet joined by %d edges, want none", len(got))
	}
}

func newLive(t *testing.T, model, preset string) Live {
	t.Helper()
	cfg := config.GetPreset(model, preset)
	exp := experiment.New(cfg, nil)
	if err := exp.Setup(); err != nil {
		t.Fatal(err)
	}
	rt, err := exp.Realtime()
	if err != nil {
		t.Fatal(err)
	}
	display, err := exp.DisplayModel()
	if err != nil {
		t.Fatal(err)
	}
	return NewLive(model+"/"+preset, rt, display, exp.Simulator().Scene(), exp.InitialState(), cfg.Duration)
}

func TestLiveUpdate(t *testing.T) {
	l := newLive(t, "box", "drop")

	next, cmd := l.Update(frameMsg{})
	l = next.(Live)
	if cmd == nil {
		t.Error("running view should wait for the next frame")
	}
	if len(l.heights) != 1 || l.heights[0] != 0.5 {
		t.Errorf("height history = %v", l.heights)
	}
	if strings.Trim(l.canvas.String(), "⠀\n") == "" {
		t.Error("canvas is blank")
	}

	next, _ = l.Update(key(" "))
	l = next.(Live)
	if !l.rt.Paused() {
		t.Error("space did not pause")
	}
	view := l.View()
	for _, want := range []string{"BOX/DROP", "PAUSED", "Contacts"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	next, _ = l.Update(key("r"))
	if l = next.(Live); len(l.heights) != 0 {
		t.Error("reset kept the height history")
	}
	if _, cmd := l.Update(key("q")); cmd == nil {
		t.Error("q should quit")
	}
}

func TestLiveTunesGains(t *testing.T) {
	l := newLive(t, "quadruped", "stand")
	if strings.Join(l.paramKeys, ",") != "Kd,Kp,Limit" {
		t.Fatalf("gains = %v", l.paramKeys)
	}
	kp := l.initialParams["Kp"]

	next, _ := l.Update(key("tab"))
	l = next.(Live)
	if l.paramKeys[l.selected] != "Kp" {
		t.Fatalf("tab selected %s, want Kp", l.paramKeys[l.selected])
	}
	next, _ = l.Update(key("]"))
	l = next.(Live)
	if got := l.params["Kp"]; math.Abs(got-kp*gainStep) > 1e-9 {
		t.Errorf("Kp = %g, want %g", got, kp*gainStep)
	}
	if !strings.Contains(l.View(), "GAINS") {
		t.Error("view does not list the gains")
	}

	next, _ = l.Update(key("r"))
	if l = next.(Live); l.params["Kp"] != kp {
		t.Errorf("reset left Kp at %g, want %g", l.params["Kp"], kp)
	}

	b := newLive(t, "box", "drop")
	if len(b.paramKeys) != 0 {
		t.Errorf("uncontrolled box lists gains %v", b.paramKeys)
	}
	next, _ = b.Update(key("]"))
	if strings.Contains(next.(Live).View(), "GAINS") {
		t.Error("box view lists gains")
	}
}

func TestAppendCapped(t *testing.T) {
	var s []float64
	for i := 0; i < historyCapacity+5; i++ {
		s = appendCapped(s, float64(i))
	}
	if len(s) != historyCapacity || s[0] != 5 || s[len(s)-1] != historyCapacity+4 {
		t.Errorf("len %d, first %g, last %g", len(s), s[0], s[len(s)-1])
	}
}

func TestPicker(t *testing.T) {
	p := NewPicker(nil)
	if len(p.entries) != 10 || p.entries[0].String() != "box/drop" {
		t.Fatalf("entries = %v", p.entries)
	}

	next, _ := p.Update(key("j"))
	p = next.(Picker)
	if p.cursor != 1 {
		t.Errorf("cursor = %d, want 1", p.cursor)
	}
	if !strings.Contains(p.View(), "box/slope") {
		t.Error("menu does not list box/slope")
	}

	next, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p = next.(Picker)
	if p.err != nil || p.live == nil || cmd == nil {
		t.Fatalf("start failed: %v", p.err)
	}
	if !strings.Contains(p.View(), "BOX/SLOPE") {
		t.Error("live view not shown")
	}

	next, _ = p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if p = next.(Picker); p.live != nil {
		t.Error("esc did not return to the menu")
	}
}
