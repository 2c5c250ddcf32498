package spatial

import "golang.org/x/exp/constraints"

// Mat6 is a row-major 6x6 spatial matrix (inertias, transform matrices).
type Mat6[T constraints.Float] [6][6]T

// RigidInertia returns the spatial inertia of a body with the given mass,
// centre of mass and rotational inertia about the centre of mass, all in the
// body frame.
func RigidInertia[T constraints.Float](mass T, com Vec3[T], icom Mat3[T]) Mat6[T] {
	c := Skew(com)
	upper := icom.Add(c.Mul(c.Transpose()).Scale(mass))
	mc := c.Scale(mass)
	var m Mat6[T]
	for r := 0; r < 3; r++ {
		for k := 0; k < 3; k++ {
			m[r][k] = upper.At(r, k)
			m[r][k+3] = mc.At(r, k)
			m[r+3][k] = mc.At(k, r)
		}
		m[r+3][r+3] = mass
	}
	return m
}

// Outer returns a bᵀ.
func Outer[T constraints.Float](a, b SVec[T]) Mat6[T] {
	var m Mat6[T]
	for r := range a {
		for c := range b {
			m[r][c] = a[r] * b[c]
		}
	}
	return m
}

func (m Mat6[T]) MulVec(v SVec[T]) SVec[T] {
	var r SVec[T]
	for i := range m {
		var s T
		for j := range v {
			s += m[i][j] * v[j]
		}
		r[i] = s
	}
	return r
}

func (m Mat6[T]) Mul(n Mat6[T]) Mat6[T] {
	var r Mat6[T]
	for i := 0; i < 6; i++ {
		for k := 0; k < 6; k++ {
			a := m[i][k]
			if a == 0 {
				continue
			}
			for j := 0; j < 6; j++ {
				r[i][j] += a * n[k][j]
			}
		}
	}
	return r
}

func (m Mat6[T]) Transpose() Mat6[T] {
	var r Mat6[T]
	for i := range m {
		for j := range m[i] {
			r[j][i] = m[i][j]
		}
	}
	return r
}

func (m Mat6[T]) Add(n Mat6[T]) Mat6[T] {
	for i := range m {
		for j := range m[i] {
			m[i][j] += n[i][j]
		}
	}
	return m
}

func (m Mat6[T]) Sub(n Mat6[T]) Mat6[T] {
	for i := range m {
		for j := range m[i] {
			m[i][j] -= n[i][j]
		}
	}
	return m
}

func (m Mat6[T]) Scale(s T) Mat6[T] {
	for i := range m {
		for j := range m[i] {
			m[i][j] *= s
		}
	}
	return m
}

// CongruenceXform returns Xᵀ M X. It carries an articulated inertia
// expressed in a child frame into the parent frame.
func CongruenceXform[T constraints.Float](x Xform[T], m Mat6[T]) Mat6[T] {
	xm := x.Matrix()
	return xm.Transpose().Mul(m).Mul(xm)
}
