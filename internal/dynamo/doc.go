// Package dynamo provides the core types shared by the simulation packages.
//
// The package defines:
//
//   - [RobotState]: floating-base pose, body velocity and joint state
//   - [StateDerivative]: output of forward dynamics
//   - [Model]: the articulated model a simulator borrows
//   - [Integrator]: advances a state by a derivative
//   - [Controller], [Metric], [Observer]: hooks driven by a runner
//
// # Example
//
//	m := model.NewPointFoot(1.0)
//	s, _ := sim.New(m)
//	s.AddCollisionPlane(0.8, 0, 0)
//	_ = s.Step(0.001, nil, 5000, 100)
//
// # Thread Safety
//
// Models and simulators are NOT thread-safe. A model must be driven by a single
// simulator at a time; concurrent readers need external synchronisation such
// as sim.Realtime snapshots.
package dynamo
