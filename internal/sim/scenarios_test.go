package sim_test

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/legsim/internal/contact"
	"github.com/san-kum/legsim/internal/dynamo"
	"github.com/san-kum/legsim/internal/model"
	"github.com/san-kum/legsim/internal/sim"
	"github.com/san-kum/legsim/internal/spatial"
)

const (
	kp = 5000.0
	kd = 100.0
	dt = 0.0005
)

func place(s *sim.Simulator, pos mgl64.Vec3, q mgl64.Quat, v spatial.SVec[float64]) {
	st := s.State()
	st.BodyPosition = pos
	st.BodyOrientation = q
	st.BodyVelocity = v
	Expect(s.SetState(st)).To(Succeed())
}

func stepN(s *sim.Simulator, n int, tau []float64) {
	for i := 0; i < n; i++ {
		Expect(s.Step(dt, tau, kp, kd)).To(Succeed())
	}
}

var _ = Describe("Simulator", func() {
	var s *sim.Simulator

	Describe("a point foot resting on the ground", func() {
		BeforeEach(func() {
			var err error
			s, err = sim.New(model.NewPointFoot(1))
			Expect(err).NotTo(HaveOccurred())
			s.AddCollisionPlane(0.8, 0, 0)
			place(s, mgl64.Vec3{}, mgl64.QuatIdent(), spatial.SVec[float64]{})
		})

		It("settles where the normal force carries its weight", func() {
			stepN(s, 4000, nil)

			Expect(s.ContactForce(0)[2]).To(BeNumerically("~", 9.81, 1e-6))
			Expect(s.State().BodyPosition[2]).To(BeNumerically("~", -9.81/kp, 1e-9))
			Expect(s.State().BodyVelocity.Linear().Norm()).To(BeNumerically("<", 1e-9))
		})

		It("never pulls the foot down while it lifts off", func() {
			place(s, mgl64.Vec3{0, 0, -0.001}, mgl64.QuatIdent(), spatial.MakeSVec(spatial.Vec3[float64]{}, spatial.Vec3[float64]{0, 0, 3}))
			for i := 0; i < 400; i++ {
				stepN(s, 1, nil)
				Expect(s.ContactForce(0)[2]).To(BeNumerically(">=", 0))
			}
		})

		It("keeps sliding friction inside the cone", func() {
			place(s, mgl64.Vec3{0, 0, -0.002}, mgl64.QuatIdent(), spatial.MakeSVec(spatial.Vec3[float64]{}, spatial.Vec3[float64]{2, 1, 0}))
			for i := 0; i < 400; i++ {
				stepN(s, 1, nil)
				f := s.ContactForce(0)
				Expect(math.Hypot(f[0], f[1])).To(BeNumerically("<=", 0.8*f[2]+1e-9))
			}
		})
	})

	Describe("free flight", func() {
		BeforeEach(func() {
			var err error
			s, err = sim.New(model.NewBox(2, spatial.Vec3[float64]{0.3, 0.2, 0.1}))
			Expect(err).NotTo(HaveOccurred())
			s.AddCollisionPlane(0.8, 0, 0)
		})

		It("reports zero contact force above the ground", func() {
			place(s, mgl64.Vec3{0, 0, 3}, mgl64.QuatIdent(), spatial.SVec[float64]{})
			stepN(s, 100, nil)
			for i := 0; i < s.TotalGroundContactCount(); i++ {
				Expect(s.ContactForce(i)).To(Equal(mgl64.Vec3{}))
			}
		})

		It("keeps the orientation a unit quaternion while tumbling", func() {
			place(s, mgl64.Vec3{0, 0, 0.3}, mgl64.QuatIdent(), spatial.SVec[float64]{3, -7, 11, 0.5, 0, 0})
			for i := 0; i < 2000; i++ {
				stepN(s, 1, nil)
				Expect(s.State().BodyOrientation.Len()).To(BeNumerically("~", 1, 1e-12))
			}
		})

		It("is deterministic", func() {
			other, err := sim.New(model.NewBox(2, spatial.Vec3[float64]{0.3, 0.2, 0.1}))
			Expect(err).NotTo(HaveOccurred())
			other.AddCollisionPlane(0.8, 0, 0)

			v := spatial.SVec[float64]{1, 2, 3, 0.2, 0, -1}
			q := mgl64.QuatRotate(0.4, mgl64.Vec3{0, 1, 0})
			place(s, mgl64.Vec3{0, 0, 0.4}, q, v)
			place(other, mgl64.Vec3{0, 0, 0.4}, q, v)

			stepN(s, 1500, nil)
			stepN(other, 1500, nil)
			Expect(other.State().Flatten()).To(Equal(s.State().Flatten()))
		})
	})

	Describe("a resting box", func() {
		It("spreads its weight over the corners", func() {
			var err error
			s, err = sim.New(model.NewBox(2, spatial.Vec3[float64]{0.3, 0.2, 0.1}))
			Expect(err).NotTo(HaveOccurred())
			s.AddCollisionPlane(0.8, 0, 0)
			place(s, mgl64.Vec3{0, 0, 0.05}, mgl64.QuatIdent(), spatial.SVec[float64]{})

			stepN(s, 6000, nil)
			total := 0.0
			for i := 0; i < s.TotalGroundContactCount(); i++ {
				total += s.ContactForce(i)[2]
			}
			Expect(total).To(BeNumerically("~", 2*9.81, 1e-4))
			Expect(s.ContactStats().ActiveContacts).To(Equal(4))
		})
	})

	Describe("a box primitive standing in for the ground", func() {
		It("produces the same trajectory as a plane", func() {
			run := func(addGround func(*sim.Simulator)) dynamo.RobotState {
				sm, err := sim.New(model.NewPointFoot(1))
				Expect(err).NotTo(HaveOccurred())
				addGround(sm)
				place(sm, mgl64.Vec3{0.2, 0.1, 0.05}, mgl64.QuatIdent(), spatial.MakeSVec(spatial.Vec3[float64]{}, spatial.Vec3[float64]{0.5, 0, 0}))
				stepN(sm, 1000, nil)
				return sm.State()
			}

			plane := run(func(sm *sim.Simulator) { sm.AddCollisionPlane(0.6, 0, 0) })
			box := run(func(sm *sim.Simulator) {
				sm.AddCollisionBox(0.6, 0, 50, 50, 2, mgl64.Vec3{0, 0, -1}, mgl64.Ident3())
			})
			for k, v := range plane.Flatten() {
				Expect(box.Flatten()[k]).To(BeNumerically("~", v, 1e-9))
			}
		})
	})

	Describe("contact policies", func() {
		It("FirstHit ignores a second overlapping primitive", func() {
			build := func(p contact.Policy) *sim.Simulator {
				sm, err := sim.New(model.NewPointFoot(1), sim.WithContactLaw(contact.Law{Policy: p}))
				Expect(err).NotTo(HaveOccurred())
				sm.AddCollisionPlane(0.8, 0, 0)
				sm.AddCollisionPlane(0.8, 0, 0)
				place(sm, mgl64.Vec3{0, 0, -0.01}, mgl64.QuatIdent(), spatial.SVec[float64]{})
				Expect(sm.Step(dt, nil, kp, 0)).To(Succeed())
				return sm
			}

			Expect(build(contact.AccumulateAll).ContactForce(0)[2]).To(BeNumerically("~", 100, 1e-9))
			Expect(build(contact.FirstHit).ContactForce(0)[2]).To(BeNumerically("~", 50, 1e-9))
		})
	})

	Describe("a free-falling quadruped", func() {
		It("keeps its joint pose", func() {
			m, err := model.NewQuadruped(model.MiniCheetahParams())
			Expect(err).NotTo(HaveOccurred())
			s, err = sim.New(m)
			Expect(err).NotTo(HaveOccurred())

			st := s.State()
			copy(st.Q, model.StandingPose())
			st.BodyPosition = mgl64.Vec3{0, 0, 5}
			Expect(s.SetState(st)).To(Succeed())

			stepN(s, 200, make([]float64, m.NumJoints()))
			got := s.State()
			for i, q := range model.StandingPose() {
				Expect(got.Q[i]).To(BeNumerically("~", q, 1e-9))
				Expect(got.Qd[i]).To(BeNumerically("~", 0, 1e-9))
			}
			Expect(got.BodyPosition[2]).To(BeNumerically("<", 5))
		})
	})
})
