package model

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/legsim/internal/dynamo"
	"github.com/san-kum/legsim/internal/spatial"
)

var (
	_ dynamo.Model       = (*FloatingBase)(nil)
	_ dynamo.Hamiltonian = (*FloatingBase)(nil)
)

// StandardGravity is the default world gravity.
var StandardGravity = spatial.Vec3[float64]{0, 0, -9.81}

type body struct {
	name    string
	parent  int
	joint   Joint
	xtree   spatial.Xform[float64]
	inertia Inertia
	rigid   spatial.Mat6[float64]
}

// GroundContact is a point fixed on a body, checked against the scene.
type GroundContact struct {
	Body  int
	Local spatial.Vec3[float64]
}

// FloatingBase is an articulated rigid-body tree whose root has six free
// degrees of freedom. Body 0 is the base; body i > 0 hangs off joint i-1.
type FloatingBase struct {
	bodies   []body
	contacts []GroundContact
	gravity  spatial.Vec3[float64]
	state    dynamo.RobotState

	// scratch for the recursive passes, one entry per body
	xup []spatial.Xform[float64]
	xa  []spatial.Xform[float64]
	v   []spatial.SVec[float64]
	c   []spatial.SVec[float64]
	a   []spatial.SVec[float64]
	pA  []spatial.SVec[float64]
	IA  []spatial.Mat6[float64]
	U   []spatial.SVec[float64]
	d   []float64
	u   []float64

	gcPos []mgl64.Vec3
	gcVel []mgl64.Vec3
}

// New creates a model containing only the floating base.
func New(name string, base Inertia) *FloatingBase {
	m := &FloatingBase{gravity: StandardGravity}
	m.bodies = append(m.bodies, body{
		name:    name,
		parent:  -1,
		inertia: base,
		rigid:   base.Spatial(),
	})
	m.resize()
	return m
}

// AddBody attaches a body to parent through joint. xtree locates the joint
// frame in the parent frame. It returns the new body index.
func (m *FloatingBase) AddBody(name string, parent int, joint Joint, xtree spatial.Xform[float64], in Inertia) (int, error) {
	if parent < 0 || parent >= len(m.bodies) {
		return 0, fmt.Errorf("body %q: parent %d of %d bodies: %w", name, parent, len(m.bodies), dynamo.ErrParameterBounds)
	}
	if n := joint.Axis.Norm(); n < 0.999 || n > 1.001 {
		return 0, fmt.Errorf("body %q: joint axis %v is not unit length: %w", name, joint.Axis, dynamo.ErrParameterBounds)
	}
	m.bodies = append(m.bodies, body{
		name:    name,
		parent:  parent,
		joint:   joint,
		xtree:   xtree,
		inertia: in,
		rigid:   in.Spatial(),
	})
	m.resize()
	return len(m.bodies) - 1, nil
}

// AddGroundContact registers a contact point on body, in body coordinates.
func (m *FloatingBase) AddGroundContact(bodyIdx int, local spatial.Vec3[float64]) (int, error) {
	if bodyIdx < 0 || bodyIdx >= len(m.bodies) {
		return 0, fmt.Errorf("ground contact on body %d of %d: %w", bodyIdx, len(m.bodies), dynamo.ErrParameterBounds)
	}
	m.contacts = append(m.contacts, GroundContact{Body: bodyIdx, Local: local})
	m.gcPos = append(m.gcPos, mgl64.Vec3{})
	m.gcVel = append(m.gcVel, mgl64.Vec3{})
	return len(m.contacts) - 1, nil
}

func (m *FloatingBase) SetGravity(g spatial.Vec3[float64]) { m.gravity = g }
func (m *FloatingBase) Gravity() spatial.Vec3[float64]     { return m.gravity }

func (m *FloatingBase) resize() {
	n := len(m.bodies)
	m.xup = make([]spatial.Xform[float64], n)
	m.xa = make([]spatial.Xform[float64], n)
	m.v = make([]spatial.SVec[float64], n)
	m.c = make([]spatial.SVec[float64], n)
	m.a = make([]spatial.SVec[float64], n)
	m.pA = make([]spatial.SVec[float64], n)
	m.IA = make([]spatial.Mat6[float64], n)
	m.U = make([]spatial.SVec[float64], n)
	m.d = make([]float64, n)
	m.u = make([]float64, n)
	m.state = dynamo.NewRobotState(n - 1)
}

func (m *FloatingBase) NumBodies() int         { return len(m.bodies) }
func (m *FloatingBase) NumJoints() int         { return len(m.bodies) - 1 }
func (m *FloatingBase) NumDOF() int            { return len(m.bodies) + 5 }
func (m *FloatingBase) NumGroundContacts() int { return len(m.contacts) }

func (m *FloatingBase) BodyName(i int) string { return m.bodies[i].name }
func (m *FloatingBase) Parent(i int) int      { return m.bodies[i].parent }
func (m *FloatingBase) GroundContacts() []GroundContact {
	return append([]GroundContact(nil), m.contacts...)
}

func (m *FloatingBase) TotalMass() float64 {
	total := 0.0
	for _, b := range m.bodies {
		total += b.inertia.Mass
	}
	return total
}

func (m *FloatingBase) State() dynamo.RobotState { return m.state.Clone() }

func (m *FloatingBase) SetState(s dynamo.RobotState) error {
	nj := m.NumJoints()
	if len(s.Q) != nj || len(s.Qd) != nj {
		return fmt.Errorf("state has %d/%d joint entries, model has %d joints: %w",
			len(s.Q), len(s.Qd), nj, dynamo.ErrDimensionMismatch)
	}
	m.state.CopyFrom(s)
	return nil
}

func (m *FloatingBase) GroundContactPosition(i int) mgl64.Vec3 { return m.gcPos[i] }
func (m *FloatingBase) GroundContactVelocity(i int) mgl64.Vec3 { return m.gcVel[i] }
func (m *FloatingBase) GroundContactBody(i int) int            { return m.contacts[i].Body }

// BodyPose returns the world position and orientation (body -> world) of a
// body for the current state.
func (m *FloatingBase) BodyPose(i int) (mgl64.Vec3, mgl64.Mat3) {
	m.kinematics()
	x := m.xa[i]
	return mgl64.Vec3(x.R), mgl64.Mat3(x.E.Transpose())
}

// kinematics fills xup, xa, v and c for the current state.
func (m *FloatingBase) kinematics() {
	st := &m.state
	q := st.BodyOrientation
	rot := spatial.Mat3FromCols(
		spatial.Vec3[float64](q.Rotate(mgl64.Vec3{1, 0, 0})),
		spatial.Vec3[float64](q.Rotate(mgl64.Vec3{0, 1, 0})),
		spatial.Vec3[float64](q.Rotate(mgl64.Vec3{0, 0, 1})),
	)
	m.xa[0] = spatial.Xform[float64]{E: rot.Transpose(), R: spatial.Vec3[float64](st.BodyPosition)}
	m.xup[0] = m.xa[0]
	m.v[0] = st.BodyVelocity
	m.c[0] = spatial.SVec[float64]{}

	for i := 1; i < len(m.bodies); i++ {
		b := &m.bodies[i]
		xj := b.joint.Transform(st.Q[i-1])
		m.xup[i] = xj.Compose(b.xtree)
		m.xa[i] = m.xup[i].Compose(m.xa[b.parent])

		vJ := b.joint.MotionSubspace().Scale(st.Qd[i-1])
		m.v[i] = m.xup[i].ApplyMotion(m.v[b.parent]).Add(vJ)
		m.c[i] = spatial.CrossMotion(m.v[i], vJ)
	}
}

// ForwardKinematics updates ground-contact positions and velocities in the
// world frame.
func (m *FloatingBase) ForwardKinematics() {
	m.kinematics()
	for k, gc := range m.contacts {
		x := m.xa[gc.Body]
		rwb := x.E.Transpose()
		v := m.v[gc.Body]
		vp := v.Linear().Add(v.Angular().Cross(gc.Local))
		m.gcPos[k] = mgl64.Vec3(x.InversePoint(gc.Local))
		m.gcVel[k] = mgl64.Vec3(rwb.MulVec(vp))
	}
}

// RunABA runs the articulated-body algorithm. ext may be nil; otherwise it
// holds one world-frame spatial force per body.
func (m *FloatingBase) RunABA(tau []float64, ext []spatial.SVec[float64], out *dynamo.StateDerivative) error {
	n := len(m.bodies)
	if len(tau) != n-1 {
		return fmt.Errorf("tau has %d entries, model has %d joints: %w", len(tau), n-1, dynamo.ErrDimensionMismatch)
	}
	if ext != nil && len(ext) != n {
		return fmt.Errorf("external forces for %d bodies, model has %d: %w", len(ext), n, dynamo.ErrDimensionMismatch)
	}

	m.kinematics()

	for i := 0; i < n; i++ {
		inertia := m.bodies[i].rigid
		m.IA[i] = inertia
		m.pA[i] = spatial.CrossForce(m.v[i], inertia.MulVec(m.v[i]))
		if ext != nil && !ext[i].IsZero() {
			m.pA[i] = m.pA[i].Sub(m.xa[i].ApplyForce(ext[i]))
		}
	}

	for i := n - 1; i > 0; i-- {
		b := &m.bodies[i]
		s := b.joint.MotionSubspace()
		m.U[i] = m.IA[i].MulVec(s)
		m.d[i] = s.Dot(m.U[i])
		m.u[i] = tau[i-1] - s.Dot(m.pA[i])

		ia := m.IA[i].Sub(spatial.Outer(m.U[i], m.U[i]).Scale(1 / m.d[i]))
		pa := m.pA[i].Add(ia.MulVec(m.c[i])).Add(m.U[i].Scale(m.u[i] / m.d[i]))
		m.IA[b.parent] = m.IA[b.parent].Add(spatial.CongruenceXform(m.xup[i], ia))
		m.pA[b.parent] = m.pA[b.parent].Add(m.xup[i].TransposeForce(pa))
	}

	// Gravity-free base acceleration; uniform gravity leaves joint
	// accelerations unchanged and is added to the base afterwards.
	a0, err := solveArticulated(m.IA[0], m.pA[0].Scale(-1))
	if err != nil {
		return err
	}
	m.a[0] = a0

	if len(out.Qdd) != n-1 {
		out.Qdd = make([]float64, n-1)
	}
	for i := 1; i < n; i++ {
		b := &m.bodies[i]
		m.a[i] = m.xup[i].ApplyMotion(m.a[b.parent]).Add(m.c[i])
		qdd := (m.u[i] - m.U[i].Dot(m.a[i])) / m.d[i]
		m.a[i] = m.a[i].Add(b.joint.MotionSubspace().Scale(qdd))
		out.Qdd[i-1] = qdd
	}

	ag := spatial.MakeSVec(spatial.Vec3[float64]{}, m.gravity)
	out.BodyAcceleration = a0.Add(m.xa[0].ApplyMotion(ag))
	rwb := m.xa[0].E.Transpose()
	out.BodyPositionRate = mgl64.Vec3(rwb.MulVec(m.state.BodyVelocity.Linear()))
	return nil
}

// solveArticulated solves IA x = b for the base articulated inertia, which
// is symmetric positive definite for a physical model.
func solveArticulated(ia spatial.Mat6[float64], b spatial.SVec[float64]) (spatial.SVec[float64], error) {
	sym := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		for j := i; j < 6; j++ {
			sym.SetSym(i, j, 0.5*(ia[i][j]+ia[j][i]))
		}
	}
	rhs := mat.NewVecDense(6, append([]float64(nil), b[:]...))

	var x mat.VecDense
	var chol mat.Cholesky
	if chol.Factorize(sym) {
		if err := chol.SolveVecTo(&x, rhs); err == nil {
			return toSVec(&x), nil
		}
	}

	if err := x.SolveVec(sym, rhs); err != nil {
		return spatial.SVec[float64]{}, fmt.Errorf("base articulated inertia is singular: %v: %w", err, dynamo.ErrUnstable)
	}
	return toSVec(&x), nil
}

func toSVec(v *mat.VecDense) spatial.SVec[float64] {
	var out spatial.SVec[float64]
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

// Energy is the kinetic plus gravitational potential energy.
func (m *FloatingBase) Energy() float64 {
	m.kinematics()
	kinetic, potential := 0.0, 0.0
	for i, b := range m.bodies {
		kinetic += 0.5 * m.v[i].Dot(b.rigid.MulVec(m.v[i]))
		com := m.xa[i].InversePoint(b.inertia.COM)
		potential -= b.inertia.Mass * m.gravity.Dot(com)
	}
	return kinetic + potential
}
