package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/legsim/internal/collision"
	"github.com/san-kum/legsim/internal/dynamo"
	"github.com/san-kum/legsim/internal/metrics"
	"github.com/san-kum/legsim/internal/model"
	"github.com/san-kum/legsim/internal/sim"
	"github.com/san-kum/legsim/internal/spatial"
)

const (
	canvasWidth     = 64
	canvasHeight    = 24
	historyCapacity = 600
	forceScale      = 0.004 // metres per newton
	kickSpeed       = 0.5   // m/s
	gainStep        = 1.05
)

type frameMsg struct{}

// Live is a bubbletea model that follows a sim.Realtime. The realtime loop
// must be started separately; Live only reads snapshots and queues input.
type Live struct {
	title    string
	rt       *sim.Realtime
	display  *model.FloatingBase
	skeleton *Skeleton
	scene    []collision.Primitive
	initial  dynamo.RobotState
	duration float64

	cam    *Camera
	canvas *Canvas
	snap   sim.Snapshot

	heights []float64
	loads   []float64

	params        map[string]float64
	initialParams map[string]float64
	paramKeys     []string
	selected      int

	showForces bool
	showHelp   bool
}

// NewLive returns a view of rt. display is a copy of the simulated model
// used only for drawing; scene is the collision geometry to outline.
func NewLive(title string, rt *sim.Realtime, display *model.FloatingBase, scene []collision.Primitive,
	initial dynamo.RobotState, duration float64) Live {
	l := Live{
		title:      title,
		rt:         rt,
		display:    display,
		skeleton:   NewSkeleton(display),
		scene:      scene,
		initial:    initial.Clone(),
		duration:   duration,
		cam:        NewCamera(),
		canvas:     NewCanvas(canvasWidth, canvasHeight),
		snap:       rt.Snapshot(),
		heights:    make([]float64, 0, historyCapacity),
		loads:      make([]float64, 0, historyCapacity),
		showForces: true,
	}
	l.params = make(map[string]float64, len(l.snap.Params))
	l.initialParams = make(map[string]float64, len(l.snap.Params))
	for k, v := range l.snap.Params {
		l.params[k], l.initialParams[k] = v, v
		l.paramKeys = append(l.paramKeys, k)
	}
	sort.Strings(l.paramKeys)
	l.redraw()
	return l
}

func waitFrame(rt *sim.Realtime) tea.Cmd {
	return func() tea.Msg {
		<-rt.Updates()
		return frameMsg{}
	}
}

func (l Live) Init() tea.Cmd { return waitFrame(l.rt) }

func (l Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		l.snap = l.rt.Snapshot()
		l.heights = appendCapped(l.heights, l.snap.State.BodyPosition[2])
		l.loads = appendCapped(l.loads, l.snap.Stats.TotalNormalLoad)
		for k, v := range l.snap.Params {
			l.params[k] = v
		}
		l.redraw()
		if l.snap.Done {
			return l, nil
		}
		return l, waitFrame(l.rt)
	case tea.KeyMsg:
		return l.handleKey(msg)
	}
	return l, nil
}

func (l Live) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return l, tea.Quit
	case " ":
		l.rt.SetPaused(!l.rt.Paused())
	case "r":
		l.rt.Reset(l.initial)
		for _, k := range l.paramKeys {
			l.setParam(k, l.initialParams[k])
		}
		l.heights, l.loads = l.heights[:0], l.loads[:0]
	case "tab":
		if len(l.paramKeys) > 0 {
			l.selected = (l.selected + 1) % len(l.paramKeys)
		}
	case "]":
		l.adjustParam(gainStep)
	case "[":
		l.adjustParam(1 / gainStep)
	case "k":
		l.rt.Kick(spatial.SVec[float64]{0, 0, 0, 0, 0, kickSpeed})
	case "w":
		l.rt.Kick(spatial.SVec[float64]{0, 0, 0, kickSpeed, 0, 0})
	case "s":
		l.rt.Kick(spatial.SVec[float64]{0, 0, 0, -kickSpeed, 0, 0})
	case "a":
		l.rt.Kick(spatial.SVec[float64]{0, 0, 0, 0, kickSpeed, 0})
	case "d":
		l.rt.Kick(spatial.SVec[float64]{0, 0, 0, 0, -kickSpeed, 0})
	case "left", "h":
		l.cam.Rotate(-0.1, 0)
	case "right", "l":
		l.cam.Rotate(0.1, 0)
	case "up":
		l.cam.Rotate(0, 0.1)
	case "down":
		l.cam.Rotate(0, -0.1)
	case "+", "=":
		l.cam.ZoomIn()
	case "-", "_":
		l.cam.ZoomOut()
	case "f":
		l.showForces = !l.showForces
	case "?":
		l.showHelp = !l.showHelp
	}
	l.redraw()
	return l, nil
}

// adjustParam scales the selected controller gain.
func (l *Live) adjustParam(factor float64) {
	if len(l.paramKeys) == 0 {
		return
	}
	key := l.paramKeys[l.selected]
	l.setParam(key, l.params[key]*factor)
}

func (l *Live) setParam(key string, v float64) {
	if err := l.rt.SetParam(key, v); err != nil {
		return
	}
	l.params[key] = v
}

func appendCapped(s []float64, v float64) []float64 {
	if len(s) == historyCapacity {
		copy(s, s[1:])
		s = s[:len(s)-1]
	}
	return append(s, v)
}

// redraw poses the display model from the current snapshot and renders it.
func (l *Live) redraw() {
	if err := l.display.SetState(l.snap.State); err != nil {
		return
	}
	l.display.ForwardKinematics()

	base := l.snap.State.BodyPosition
	l.cam.Target = base
	l.cam.Target[2] = math.Min(base[2], 0.5) / 2

	l.canvas.Clear()
	for _, p := range l.scene {
		l.cam.DrawPrimitive(l.canvas, p)
	}
	l.skeleton.Draw(l.canvas, l.cam, l.display)
	if l.showForces {
		DrawForces(l.canvas, l.cam, l.display, l.snap.ContactForces, forceScale)
	}
}

func (l Live) status() string {
	switch {
	case l.snap.Err != nil:
		return statusFailed.Render("FAILED")
	case l.snap.Done:
		return statusPaused.Render("DONE")
	case l.rt.Paused():
		return statusPaused.Render("PAUSED")
	}
	return statusRunning.Render("RUNNING")
}

func (l Live) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(l.title)) + "\n")
	s.WriteString(l.status() + "\n")
	if l.duration > 0 {
		s.WriteString(ProgressBar(l.snap.Time/l.duration, 30) + "\n")
	}
	if l.snap.Err != nil {
		s.WriteString(statusFailed.Render(l.snap.Err.Error()) + "\n")
	}
	s.WriteString("\n")

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	st := l.snap.State
	row("Time", fmt.Sprintf("%.3fs", l.snap.Time))
	row("Steps", fmt.Sprintf("%d", l.snap.Steps))
	row("Height", fmt.Sprintf("%.4fm", st.BodyPosition[2]))
	row("Tilt", fmt.Sprintf("%.1f°", metrics.Tilt(st.BodyOrientation)*180/math.Pi))
	row("Contacts", fmt.Sprintf("%d/%d", l.snap.Stats.ActiveContacts, len(l.snap.ContactForces)))
	row("Penetration", fmt.Sprintf("%.2fmm", l.snap.Stats.MaxPenetration*1000))
	row("Load", fmt.Sprintf("%.1fN", l.snap.Stats.TotalNormalLoad))

	if len(l.heights) > 1 {
		chart := asciigraph.Plot(l.heights, asciigraph.Height(5), asciigraph.Width(32),
			asciigraph.Precision(3), asciigraph.Caption("base height [m]"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	s.WriteString(labelStyle.Render("Load") + SparklineChart(l.loads, 30) + "\n")

	if len(l.paramKeys) > 0 {
		s.WriteString("\nGAINS\n")
		for i, k := range l.paramKeys {
			val, initial := l.params[k], l.initialParams[k]
			ratio := 0.0
			if initial != 0 {
				ratio = math.Max(0, math.Min(1, val/(2*initial)))
			}
			line := fmt.Sprintf("%-6s %s %.2f", k, ProgressBar(ratio, 10), val)
			if i == l.selected {
				s.WriteString(activeParamStyle.Render("> "+line) + "\n")
			} else {
				s.WriteString("  " + valueStyle.Render(line) + "\n")
			}
		}
	}

	s.WriteString(helpStyle.Render("SP:Pause R:Reset Q:Quit ?:Help"))
	view := lipgloss.JoinHorizontal(lipgloss.Top, canvasStyle.Render(l.canvas.String()), statsStyle.Render(s.String()))
	if l.showHelp {
		return helpText + "\n" + view
	}
	return view
}

const helpText = `
  Space      pause / resume
  R          reset to the initial state
  K          kick up
  W A S D    kick forward, left, back, right
  ←/→ ↑/↓    turn / tilt the camera
  + -        zoom
  F          toggle contact forces
  Tab        select a controller gain
  [ ]        lower / raise the selected gain
  Q Esc      quit
`
