// Package control provides joint-space controllers for articulated models.
//
// Controllers implement the [dynamo.Controller] interface and return one
// torque per joint:
//
//   - [JointPD]: proportional-derivative tracking of joint targets
//   - [None]: zero torque
//
// # Usage
//
//	pd := control.NewJointPD(40, 1, 18, model.StandingPose())
//	r := sim.NewRunner(s, pd)
//	// Controller.Compute is called every step
//
// The returned slice is reused between calls.
package control
