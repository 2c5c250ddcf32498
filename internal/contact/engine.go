// Package contact turns ground-contact penetrations into penalty forces.
package contact

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/legsim/internal/collision"
	"github.com/san-kum/legsim/internal/dynamo"
	"github.com/san-kum/legsim/internal/spatial"
)

// Policy selects how a point that penetrates several primitives is treated.
type Policy int

const (
	// AccumulateAll sums the force from every penetrating primitive.
	AccumulateAll Policy = iota
	// FirstHit uses only the first penetrating primitive in registration order.
	FirstHit
)

func (p Policy) String() string {
	switch p {
	case AccumulateAll:
		return "accumulate"
	case FirstHit:
		return "first"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy is the inverse of Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "accumulate":
		return AccumulateAll, nil
	case "first":
		return FirstHit, nil
	default:
		return 0, fmt.Errorf("contact policy %q: %w", s, dynamo.ErrParameterBounds)
	}
}

// Law holds the parts of the contact model that stay fixed across steps.
// The stiffness and damping gains are passed to every Resolve.
type Law struct {
	// TangentialDamping is the viscous friction gain. Zero means use the
	// normal damping gain kd.
	TangentialDamping float64
	Policy            Policy
}

func DefaultLaw() Law {
	return Law{Policy: AccumulateAll}
}

// PointForce is the world-frame force on a contact point that penetrates
// with the given depth and outward normal n while moving with velocity v.
func (l Law) PointForce(mu, depth float64, n, v mgl64.Vec3, kp, kd float64) mgl64.Vec3 {
	vn := v.Dot(n)
	fn := kp*depth - kd*vn
	if fn <= 0 {
		return mgl64.Vec3{}
	}
	f := n.Mul(fn)

	vt := v.Sub(n.Mul(vn))
	speed := vt.Len()
	if speed == 0 {
		return f
	}
	kt := l.TangentialDamping
	if kt == 0 {
		kt = kd
	}
	ft := math.Min(mu*fn, kt*speed)
	return f.Sub(vt.Mul(ft / speed))
}

// Stats summarises the most recent Resolve.
type Stats struct {
	ActiveContacts  int
	MaxPenetration  float64
	TotalNormalLoad float64
}

// Engine owns the scene primitives and the per-point force record. It is not
// safe for concurrent use.
type Engine struct {
	law        Law
	primitives []collision.Primitive

	bodyForces  []spatial.SVec[float64]
	pointForces []mgl64.Vec3
	stats       Stats
}

func NewEngine(law Law) *Engine {
	return &Engine{law: law}
}

func (e *Engine) Law() Law { return e.law }

// Add appends a primitive and returns its index.
func (e *Engine) Add(p collision.Primitive) int {
	e.primitives = append(e.primitives, p)
	return len(e.primitives) - 1
}

func (e *Engine) NumPrimitives() int { return len(e.primitives) }

func (e *Engine) Primitive(i int) collision.Primitive { return e.primitives[i] }

// Resolve computes contact forces for every point against every primitive.
// points and velocities are world-frame; bodies[i] owns point i. It returns
// one world spatial force (about the origin) per body and one world force per
// point. Both slices are reused by the next call.
func (e *Engine) Resolve(points, velocities []mgl64.Vec3, bodies []int, numBodies int, kp, kd float64) ([]spatial.SVec[float64], []mgl64.Vec3) {
	if cap(e.bodyForces) < numBodies {
		e.bodyForces = make([]spatial.SVec[float64], numBodies)
	}
	e.bodyForces = e.bodyForces[:numBodies]
	clear(e.bodyForces)

	if cap(e.pointForces) < len(points) {
		e.pointForces = make([]mgl64.Vec3, len(points))
	}
	e.pointForces = e.pointForces[:len(points)]
	clear(e.pointForces)

	e.stats = Stats{}

	for i, p := range points {
		var f mgl64.Vec3
		touched := false
		for _, prim := range e.primitives {
			hit, depth, n := prim.Penetration(p)
			if !hit {
				continue
			}
			touched = true
			if depth > e.stats.MaxPenetration {
				e.stats.MaxPenetration = depth
			}
			pf := e.law.PointForce(prim.Mu(), depth, n, velocities[i], kp, kd)
			e.stats.TotalNormalLoad += pf.Dot(n)
			f = f.Add(pf)
			if e.law.Policy == FirstHit {
				break
			}
		}
		if !touched {
			continue
		}
		e.stats.ActiveContacts++
		e.pointForces[i] = f

		b := bodies[i]
		e.bodyForces[b] = e.bodyForces[b].Add(spatial.ForceAtPoint(spatial.Vec3[float64](p), spatial.Vec3[float64](f)))
	}
	return e.bodyForces, e.pointForces
}

// Force returns the world force on point i from the last Resolve.
func (e *Engine) Force(i int) mgl64.Vec3 {
	if i < 0 || i >= len(e.pointForces) {
		return mgl64.Vec3{}
	}
	return e.pointForces[i]
}

func (e *Engine) Stats() Stats { return e.stats }
