package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/legsim/internal/collision"
	"github.com/san-kum/legsim/internal/model"
)

// Camera is an orthographic view of the world, z up. Yaw turns about the
// world z axis; Pitch tilts the view down towards the ground.
type Camera struct {
	Target mgl64.Vec3
	Yaw    float64
	Pitch  float64
	// Zoom is dots per metre divided by the canvas height in dots.
	Zoom float64
}

func NewCamera() *Camera {
	return &Camera{Yaw: -math.Pi / 6, Pitch: 0.35, Zoom: 1.2}
}

func (c *Camera) Rotate(dyaw, dpitch float64) {
	c.Yaw += dyaw
	c.Pitch = mgl64.Clamp(c.Pitch+dpitch, -math.Pi/2, math.Pi/2)
}

func (c *Camera) ZoomIn()  { c.Zoom = math.Min(20, c.Zoom*1.2) }
func (c *Camera) ZoomOut() { c.Zoom = math.Max(0.05, c.Zoom/1.2) }

func (c *Camera) view() mgl64.Mat3 {
	return mgl64.Rotate3DX(c.Pitch).Mul3(mgl64.Rotate3DZ(-c.Yaw))
}

// Project maps a world point to canvas dots. The camera looks along +y of
// its own frame, so x is screen right and z is screen up.
func (c *Camera) Project(p mgl64.Vec3, w, h int) (int, int) {
	v := c.view().Mul3x1(p.Sub(c.Target))
	scale := c.Zoom * float64(h)
	return w/2 + int(math.Round(v[0]*scale)), h/2 - int(math.Round(v[2]*scale))
}

func (c *Camera) segment(cv *Canvas, a, b mgl64.Vec3) {
	w, h := cv.Dots()
	x0, y0 := c.Project(a, w, h)
	x1, y1 := c.Project(b, w, h)
	cv.DrawLine(x0, y0, x1, y1)
}

func (c *Camera) mark(cv *Canvas, p mgl64.Vec3) {
	w, h := cv.Dots()
	cv.Mark(c.Project(p, w, h))
}

// boxEdges indexes the corners of a box enumerated with x slowest and z
// fastest.
var boxEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7},
	{0, 2}, {1, 3}, {4, 6}, {5, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// DrawPrimitive outlines a box, or draws a grid for a plane centred under
// the camera target.
func (c *Camera) DrawPrimitive(cv *Canvas, p collision.Primitive) {
	switch p.Kind() {
	case collision.Plane:
		const half, cells = 1.0, 8
		ox, oy := math.Round(c.Target[0]*4)/4, math.Round(c.Target[1]*4)/4
		for i := 0; i <= cells; i++ {
			d := -half + 2*half*float64(i)/cells
			c.segment(cv, mgl64.Vec3{ox + d, oy - half, p.Height()}, mgl64.Vec3{ox + d, oy + half, p.Height()})
			c.segment(cv, mgl64.Vec3{ox - half, oy + d, p.Height()}, mgl64.Vec3{ox + half, oy + d, p.Height()})
		}
	case collision.Box:
		var corners [8]mgl64.Vec3
		h, ori := p.HalfExtents(), p.Orientation()
		i := 0
		for _, sx := range []float64{-1, 1} {
			for _, sy := range []float64{-1, 1} {
				for _, sz := range []float64{-1, 1} {
					corners[i] = p.Position().Add(ori.Mul3x1(mgl64.Vec3{sx * h[0], sy * h[1], sz * h[2]}))
					i++
				}
			}
		}
		for _, e := range boxEdges {
			c.segment(cv, corners[e[0]], corners[e[1]])
		}
	}
}

// Skeleton is the drawable structure of a model: a segment from every body
// to its parent, plus edges between contacts of the same body that differ
// along a single local axis (the outline of a box body).
type Skeleton struct {
	contactEdges [][2]int
}

func NewSkeleton(m *model.FloatingBase) *Skeleton {
	s := &Skeleton{}
	gcs := m.GroundContacts()
	for i := range gcs {
		for j := i + 1; j < len(gcs); j++ {
			if gcs[i].Body != gcs[j].Body {
				continue
			}
			differ := 0
			for k := 0; k < 3; k++ {
				if math.Abs(gcs[i].Local[k]-gcs[j].Local[k]) > 1e-12 {
					differ++
				}
			}
			if differ == 1 {
				s.contactEdges = append(s.contactEdges, [2]int{i, j})
			}
		}
	}
	return s
}

// Draw renders m, whose kinematics must be current.
func (s *Skeleton) Draw(cv *Canvas, cam *Camera, m *model.FloatingBase) {
	for i := 1; i < m.NumBodies(); i++ {
		child, _ := m.BodyPose(i)
		parent, _ := m.BodyPose(m.Parent(i))
		cam.segment(cv, parent, child)
	}
	for _, e := range s.contactEdges {
		cam.segment(cv, m.GroundContactPosition(e[0]), m.GroundContactPosition(e[1]))
	}
	for i := 0; i < m.NumGroundContacts(); i++ {
		p := m.GroundContactPosition(i)
		body, _ := m.BodyPose(m.GroundContactBody(i))
		if m.GroundContactBody(i) != 0 {
			cam.segment(cv, body, p)
		}
		cam.mark(cv, p)
	}
}

// DrawForces draws each force as a segment from its contact point, scaled
// by metres per newton.
func DrawForces(cv *Canvas, cam *Camera, m *model.FloatingBase, forces []mgl64.Vec3, scale float64) {
	for i, f := range forces {
		if i >= m.NumGroundContacts() || f.Len() == 0 {
			continue
		}
		p := m.GroundContactPosition(i)
		cam.segment(cv, p, p.Add(f.Mul(scale)))
	}
}
