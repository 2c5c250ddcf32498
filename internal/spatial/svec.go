package spatial

import "golang.org/x/exp/constraints"

// SVec is a spatial vector [angular; linear].
type SVec[T constraints.Float] [6]T

// MakeSVec joins an angular and a linear part.
func MakeSVec[T constraints.Float](angular, linear Vec3[T]) SVec[T] {
	return SVec[T]{angular[0], angular[1], angular[2], linear[0], linear[1], linear[2]}
}

func (v SVec[T]) Angular() Vec3[T] { return Vec3[T]{v[0], v[1], v[2]} }
func (v SVec[T]) Linear() Vec3[T]  { return Vec3[T]{v[3], v[4], v[5]} }

func (v SVec[T]) Add(u SVec[T]) SVec[T] {
	var r SVec[T]
	for i := range v {
		r[i] = v[i] + u[i]
	}
	return r
}

func (v SVec[T]) Sub(u SVec[T]) SVec[T] {
	var r SVec[T]
	for i := range v {
		r[i] = v[i] - u[i]
	}
	return r
}

func (v SVec[T]) Scale(s T) SVec[T] {
	var r SVec[T]
	for i := range v {
		r[i] = v[i] * s
	}
	return r
}

func (v SVec[T]) Dot(u SVec[T]) T {
	var s T
	for i := range v {
		s += v[i] * u[i]
	}
	return s
}

func (v SVec[T]) IsZero() bool {
	return v == SVec[T]{}
}

// ForceAtPoint converts a linear force f acting at point p into the
// equivalent spatial force about the origin p is expressed in: [p×f; f].
func ForceAtPoint[T constraints.Float](p, f Vec3[T]) SVec[T] {
	return MakeSVec(p.Cross(f), f)
}

// CrossMotion is the spatial motion cross product v ×m.
func CrossMotion[T constraints.Float](v, m SVec[T]) SVec[T] {
	w, vl := v.Angular(), v.Linear()
	mw, ml := m.Angular(), m.Linear()
	return MakeSVec(w.Cross(mw), w.Cross(ml).Add(vl.Cross(mw)))
}

// CrossForce is the spatial force cross product v ×* f.
func CrossForce[T constraints.Float](v, f SVec[T]) SVec[T] {
	w, vl := v.Angular(), v.Linear()
	n, fl := f.Angular(), f.Linear()
	return MakeSVec(w.Cross(n).Add(vl.Cross(fl)), w.Cross(fl))
}
