package sim

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/legsim/internal/contact"
	"github.com/san-kum/legsim/internal/dynamo"
	"github.com/san-kum/legsim/internal/spatial"
)

// Snapshot is a copy of the simulation published after each frame.
type Snapshot struct {
	State         dynamo.RobotState
	ContactForces []mgl64.Vec3
	Stats         contact.Stats
	// Params holds the controller gains when the controller is
	// dynamo.Configurable.
	Params map[string]float64
	Time   float64
	Steps  int
	Done   bool
	Err    error
}

// Realtime runs a simulator paced against the wall clock on its own
// goroutine. Other goroutines read Snapshots and queue kicks, resets and gain
// changes; they never touch the simulator or controller directly.
type Realtime struct {
	sim        *Simulator
	controller dynamo.Controller
	cfg        dynamo.Config

	// Speed is simulated seconds per wall-clock second.
	Speed float64
	// Frame is the wall-clock period between publications.
	Frame time.Duration

	paused  atomic.Bool
	mu      sync.Mutex
	snap    Snapshot
	kicks   []spatial.SVec[float64]
	reset   *dynamo.RobotState
	params  []paramChange
	updates chan struct{}
}

func NewRealtime(s *Simulator, controller dynamo.Controller, cfg dynamo.Config) *Realtime {
	r := &Realtime{
		sim:        s,
		controller: controller,
		cfg:        cfg,
		Speed:      1,
		Frame:      time.Second / 60,
		updates:    make(chan struct{}, 1),
	}
	r.snap.State = s.State()
	r.snap.ContactForces = make([]mgl64.Vec3, s.TotalGroundContactCount())
	if c, ok := controller.(dynamo.Configurable); ok {
		r.snap.Params = c.GetParams()
	}
	return r
}

type paramChange struct {
	name  string
	value float64
}

// Snapshot returns a copy of the latest published frame.
func (r *Realtime) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.snap
	out.State = r.snap.State.Clone()
	out.ContactForces = append([]mgl64.Vec3(nil), r.snap.ContactForces...)
	if r.snap.Params != nil {
		out.Params = make(map[string]float64, len(r.snap.Params))
		for k, v := range r.snap.Params {
			out.Params[k] = v
		}
	}
	return out
}

// Updates receives a value whenever a new frame is published. Frames are
// coalesced if the reader falls behind.
func (r *Realtime) Updates() <-chan struct{} { return r.updates }

// Kick queues a base velocity change for the next frame.
func (r *Realtime) Kick(delta spatial.SVec[float64]) {
	r.mu.Lock()
	r.kicks = append(r.kicks, delta)
	r.mu.Unlock()
}

// Reset queues a state replacement for the next frame and restarts the clock.
func (r *Realtime) Reset(state dynamo.RobotState) {
	r.mu.Lock()
	st := state.Clone()
	r.reset = &st
	r.mu.Unlock()
}

// SetParam queues a controller gain change for the next frame. Only gains
// listed in the snapshot Params can be set.
func (r *Realtime) SetParam(name string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.snap.Params[name]; !ok {
		return fmt.Errorf("controller has no parameter %q: %w", name, dynamo.ErrParameterBounds)
	}
	r.params = append(r.params, paramChange{name, value})
	return nil
}

// SetPaused stops or resumes stepping. Queued kicks and resets still apply
// while paused.
func (r *Realtime) SetPaused(p bool) { r.paused.Store(p) }
func (r *Realtime) Paused() bool     { return r.paused.Load() }

// Run blocks until ctx is cancelled, the configured duration elapses (a
// non-positive duration runs forever) or a step fails.
func (r *Realtime) Run(ctx context.Context) error {
	if r.cfg.Dt <= 0 || r.Speed <= 0 || r.Frame <= 0 {
		return fmt.Errorf("realtime needs positive dt, speed and frame: %w", dynamo.ErrParameterBounds)
	}

	ticker := time.NewTicker(r.Frame)
	defer ticker.Stop()

	zero := make(dynamo.Control, r.sim.Model().NumJoints())
	stepsPerFrame := max(int(math.Round(r.Frame.Seconds()*r.Speed/r.cfg.Dt)), 1)
	t, steps := 0.0, 0

	for {
		select {
		case <-ctx.Done():
			r.finish(nil)
			return nil
		case <-ticker.C:
		}

		if err := r.applyQueued(&t); err != nil {
			r.finish(err)
			return err
		}

		if r.paused.Load() {
			r.publish(t, steps, false, nil)
			continue
		}

		for k := 0; k < stepsPerFrame; k++ {
			u := zero
			if r.controller != nil {
				u = r.controller.Compute(r.sim.state, t)
			}
			if err := r.sim.Step(r.cfg.Dt, u, r.cfg.Kp, r.cfg.Kd); err != nil {
				err = &dynamo.SimulationError{Step: steps, Time: t, Wrapped: err}
				r.finish(err)
				return err
			}
			t += r.cfg.Dt
			steps++
		}

		if r.cfg.ValidateState && !r.sim.state.IsValid() {
			err := dynamo.SimError{Time: t, Step: steps, Message: "invalid state (NaN/Inf)"}
			r.finish(err)
			return err
		}

		r.publish(t, steps, false, nil)
		if r.cfg.Duration > 0 && t >= r.cfg.Duration-r.cfg.Dt/2 {
			r.finish(nil)
			return nil
		}
	}
}

func (r *Realtime) applyQueued(t *float64) error {
	r.mu.Lock()
	kicks, reset, params := r.kicks, r.reset, r.params
	r.kicks, r.reset, r.params = nil, nil, nil
	r.mu.Unlock()

	if c, ok := r.controller.(dynamo.Configurable); ok {
		for _, p := range params {
			if err := c.SetParam(p.name, p.value); err != nil {
				return err
			}
		}
	}

	if reset != nil {
		if err := r.sim.Reset(*reset); err != nil {
			return err
		}
		*t = 0
	}
	for _, k := range kicks {
		if err := r.sim.Kick(k); err != nil {
			return err
		}
	}
	return nil
}

func (r *Realtime) publish(t float64, steps int, done bool, err error) {
	r.mu.Lock()
	r.snap.State.CopyFrom(r.sim.state)
	for i := range r.snap.ContactForces {
		r.snap.ContactForces[i] = r.sim.ContactForce(i)
	}
	r.snap.Stats = r.sim.ContactStats()
	if c, ok := r.controller.(dynamo.Configurable); ok {
		r.snap.Params = c.GetParams()
	}
	r.snap.Time = t
	r.snap.Steps = steps
	r.snap.Done = done
	r.snap.Err = err
	r.mu.Unlock()

	select {
	case r.updates <- struct{}{}:
	default:
	}
}

func (r *Realtime) finish(err error) {
	r.mu.Lock()
	t, steps := r.snap.Time, r.snap.Steps
	r.mu.Unlock()
	r.publish(t, steps, true, err)
}
