package metrics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/legsim/internal/dynamo"
)

// Stability is the fraction of samples in which the base stays upright,
// that is its z axis within maxTilt radians of world z.
type Stability struct {
	name       string
	maxTilt    float64
	violations int
	samples    int
}

func NewStability(maxTilt float64) *Stability {
	return &Stability{
		name:    "stability",
		maxTilt: maxTilt,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(sample dynamo.Sample) {
	s.samples++
	if Tilt(sample.State.BodyOrientation) > s.maxTilt {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// Tilt is the angle between the body z axis and world z.
func Tilt(q mgl64.Quat) float64 {
	up := q.Rotate(mgl64.Vec3{0, 0, 1})
	return math.Acos(mgl64.Clamp(up[2]/up.Len(), -1, 1))
}
