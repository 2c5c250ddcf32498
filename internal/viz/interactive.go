package viz

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/legsim/internal/config"
	"github.com/san-kum/legsim/internal/experiment"
	"github.com/san-kum/legsim/internal/logging"
)

var presetInfo = map[string]string{
	"point/drop":      "point mass onto the ground",
	"point/slide":     "sliding to rest on friction",
	"box/drop":        "tilted box landing on a corner",
	"box/tumble":      "spinning box bouncing",
	"box/slope":       "box sliding off a ramp",
	"quadruped/stand": "pd-held standing pose",
	"quadruped/drop":  "landing from half a metre",
	"quadruped/kick":  "standing, pushed forward",
	"quadruped/slope": "standing on an incline",
	"quadruped/flop":  "unpowered collapse",
}

type presetEntry struct{ model, preset string }

func (e presetEntry) String() string { return e.model + "/" + e.preset }

// Picker lists every preset and opens a live view of the chosen one. Esc in
// the live view returns to the list.
type Picker struct {
	entries []presetEntry
	cursor  int
	logger  logging.Logger

	live   *Live
	cancel context.CancelFunc
	err    error
}

func NewPicker(logger logging.Logger) Picker {
	if logger == nil {
		logger = logging.NewNop()
	}
	var entries []presetEntry
	models := make([]string, 0, len(config.Presets))
	for m := range config.Presets {
		models = append(models, m)
	}
	sort.Strings(models)
	for _, m := range models {
		presets := config.ListPresets(m)
		sort.Strings(presets)
		for _, p := range presets {
			entries = append(entries, presetEntry{m, p})
		}
	}
	return Picker{entries: entries, logger: logger}
}

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if p.live != nil {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			p.stop()
			return p, nil
		}
		next, cmd := p.live.Update(msg)
		live := next.(Live)
		p.live = &live
		return p, cmd
	}

	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch k.String() {
	case "q", "ctrl+c", "esc":
		return p, tea.Quit
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.entries)-1 {
			p.cursor++
		}
	case "enter", " ":
		return p.start()
	}
	return p, nil
}

func (p Picker) start() (tea.Model, tea.Cmd) {
	e := p.entries[p.cursor]
	cfg := config.GetPreset(e.model, e.preset)
	exp := experiment.New(cfg, p.logger.Named(e.String()))
	if p.err = exp.Setup(); p.err != nil {
		return p, nil
	}
	rt, err := exp.Realtime()
	if err != nil {
		p.err = err
		return p, nil
	}
	display, err := exp.DisplayModel()
	if err != nil {
		p.err = err
		return p, nil
	}

	live := NewLive(e.String(), rt, display, exp.Simulator().Scene(), exp.InitialState(), cfg.Duration)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := rt.Run(ctx); err != nil {
			p.logger.Warnw("realtime run stopped", "preset", e.String(), "error", err)
		}
	}()
	p.live, p.cancel, p.err = &live, cancel, nil
	return p, live.Init()
}

func (p *Picker) stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.live, p.cancel = nil, nil
}

func (p Picker) View() string {
	if p.live != nil {
		return p.live.View()
	}
	var b strings.Builder
	b.WriteString("\n\n    " + menuTitle.Render("LEGSIM") + "\n    " + subtle.Render("floating-base contact simulation") +
		"\n    " + subtle.Render(strings.Repeat("─", 32)) + "\n\n")
	for i, e := range p.entries {
		name := fmt.Sprintf("%-18s", e)
		if i == p.cursor {
			b.WriteString("    " + menuCursor.Render("▸") + " " + menuSelected.Render(name) + "  " + menuDesc.Render(presetInfo[e.String()]) + "\n")
		} else {
			b.WriteString("      " + menuIdle.Render(name) + "  " + subtle.Render(presetInfo[e.String()]) + "\n")
		}
	}
	if p.err != nil {
		b.WriteString("\n    " + statusFailed.Render(p.err.Error()) + "\n")
	}
	b.WriteString("\n    " + keyHint("j/k", "navigate", "enter", "run", "q", "quit") + "\n")
	return b.String()
}

// RunPicker blocks until the user quits the picker.
func RunPicker(logger logging.Logger) error {
	final, err := tea.NewProgram(NewPicker(logger), tea.WithAltScreen()).Run()
	if p, ok := final.(Picker); ok {
		p.stop()
	}
	return err
}

// RunLive shows l until the user quits. The caller owns the realtime loop.
func RunLive(l Live) error {
	_, err := tea.NewProgram(l, tea.WithAltScreen()).Run()
	return err
}
