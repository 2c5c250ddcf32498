// Package spatial implements 6D spatial vector algebra for rigid-body trees.
//
// Spatial vectors are ordered [angular; linear]. The same [SVec] type carries
// motion (velocity, acceleration) and force (moment, force) quantities; the
// operation decides which interpretation applies.
//
// A transform [Xform] with rotation E and translation r maps coordinates of
// frame A into frame B, where E takes A-coordinates to B-coordinates and r is
// the origin of B expressed in A:
//
//	X v  = [E w; E(v - r×w)]       motion
//	X* f = [E(n - r×f); E f]       force
//
// Every type is generic over the floating point element type. [Vec3] and
// [Mat3] share their memory layout with mathgl's mgl64/mgl32 vectors and
// column-major matrices, so values convert with a plain type conversion.
package spatial
