package spatial

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Vec3 is a 3-vector.
type Vec3[T constraints.Float] [3]T

// Mat3 is a column-major 3x3 matrix.
type Mat3[T constraints.Float] [9]T

func (a Vec3[T]) Add(b Vec3[T]) Vec3[T] {
	return Vec3[T]{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func (a Vec3[T]) Sub(b Vec3[T]) Vec3[T] {
	return Vec3[T]{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func (a Vec3[T]) Scale(s T) Vec3[T] {
	return Vec3[T]{a[0] * s, a[1] * s, a[2] * s}
}

func (a Vec3[T]) Neg() Vec3[T] {
	return Vec3[T]{-a[0], -a[1], -a[2]}
}

func (a Vec3[T]) Dot(b Vec3[T]) T {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func (a Vec3[T]) Cross(b Vec3[T]) Vec3[T] {
	return Vec3[T]{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func (a Vec3[T]) Norm() T {
	return T(math.Sqrt(float64(a.Dot(a))))
}

// Ident3 returns the 3x3 identity.
func Ident3[T constraints.Float]() Mat3[T] {
	return Mat3[T]{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Diag3 returns a diagonal matrix.
func Diag3[T constraints.Float](x, y, z T) Mat3[T] {
	return Mat3[T]{x, 0, 0, 0, y, 0, 0, 0, z}
}

// Mat3FromCols builds a matrix from its columns.
func Mat3FromCols[T constraints.Float](c0, c1, c2 Vec3[T]) Mat3[T] {
	return Mat3[T]{c0[0], c0[1], c0[2], c1[0], c1[1], c1[2], c2[0], c2[1], c2[2]}
}

// Skew returns the cross product matrix of v, so that Skew(v)*u == v×u.
func Skew[T constraints.Float](v Vec3[T]) Mat3[T] {
	return Mat3[T]{
		0, v[2], -v[1],
		-v[2], 0, v[0],
		v[1], -v[0], 0,
	}
}

// AxisAngle returns the rotation of angle radians about the unit axis
// (Rodrigues' formula). The result rotates vectors; its transpose is the
// matching coordinate transform.
func AxisAngle[T constraints.Float](axis Vec3[T], angle T) Mat3[T] {
	s, c := math.Sincos(float64(angle))
	k := Skew(axis)
	kk := k.Mul(k)
	return Ident3[T]().Add(k.Scale(T(s))).Add(kk.Scale(T(1 - c)))
}

func RotX[T constraints.Float](angle T) Mat3[T] { return AxisAngle(Vec3[T]{1, 0, 0}, angle) }
func RotY[T constraints.Float](angle T) Mat3[T] { return AxisAngle(Vec3[T]{0, 1, 0}, angle) }
func RotZ[T constraints.Float](angle T) Mat3[T] { return AxisAngle(Vec3[T]{0, 0, 1}, angle) }

func (m Mat3[T]) At(row, col int) T {
	return m[col*3+row]
}

func (m Mat3[T]) Col(col int) Vec3[T] {
	return Vec3[T]{m[col*3], m[col*3+1], m[col*3+2]}
}

func (m Mat3[T]) Add(n Mat3[T]) Mat3[T] {
	var r Mat3[T]
	for i := range m {
		r[i] = m[i] + n[i]
	}
	return r
}

func (m Mat3[T]) Sub(n Mat3[T]) Mat3[T] {
	var r Mat3[T]
	for i := range m {
		r[i] = m[i] - n[i]
	}
	return r
}

func (m Mat3[T]) Scale(s T) Mat3[T] {
	var r Mat3[T]
	for i := range m {
		r[i] = m[i] * s
	}
	return r
}

func (m Mat3[T]) Transpose() Mat3[T] {
	return Mat3[T]{m[0], m[3], m[6], m[1], m[4], m[7], m[2], m[5], m[8]}
}

func (m Mat3[T]) MulVec(v Vec3[T]) Vec3[T] {
	return Vec3[T]{
		m[0]*v[0] + m[3]*v[1] + m[6]*v[2],
		m[1]*v[0] + m[4]*v[1] + m[7]*v[2],
		m[2]*v[0] + m[5]*v[1] + m[8]*v[2],
	}
}

func (m Mat3[T]) Mul(n Mat3[T]) Mat3[T] {
	return Mat3FromCols(m.MulVec(n.Col(0)), m.MulVec(n.Col(1)), m.MulVec(n.Col(2)))
}
