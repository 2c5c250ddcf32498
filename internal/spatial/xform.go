package spatial

import "golang.org/x/exp/constraints"

// Xform is a Plücker coordinate transform from frame A to frame B.
type Xform[T constraints.Float] struct {
	// E rotates A-coordinates into B-coordinates.
	E Mat3[T]
	// R is the origin of B expressed in A.
	R Vec3[T]
}

func IdentityXform[T constraints.Float]() Xform[T] {
	return Xform[T]{E: Ident3[T]()}
}

// Translation returns the transform to a frame displaced by r without rotation.
func Translation[T constraints.Float](r Vec3[T]) Xform[T] {
	return Xform[T]{E: Ident3[T](), R: r}
}

// Rotation returns the transform to a frame rotated by rot, where rot takes
// vectors of the new frame into the old one.
func Rotation[T constraints.Float](rot Mat3[T]) Xform[T] {
	return Xform[T]{E: rot.Transpose()}
}

// ApplyMotion transforms a motion vector from A to B.
func (x Xform[T]) ApplyMotion(v SVec[T]) SVec[T] {
	w := v.Angular()
	return MakeSVec(x.E.MulVec(w), x.E.MulVec(v.Linear().Sub(x.R.Cross(w))))
}

// ApplyForce transforms a force vector from A to B (X*).
func (x Xform[T]) ApplyForce(f SVec[T]) SVec[T] {
	fl := f.Linear()
	return MakeSVec(x.E.MulVec(f.Angular().Sub(x.R.Cross(fl))), x.E.MulVec(fl))
}

// TransposeForce maps a force expressed in B back into A (Xᵀ).
func (x Xform[T]) TransposeForce(f SVec[T]) SVec[T] {
	et := x.E.Transpose()
	fl := et.MulVec(f.Linear())
	return MakeSVec(et.MulVec(f.Angular()).Add(x.R.Cross(fl)), fl)
}

// InverseMotion transforms a motion vector from B back to A.
func (x Xform[T]) InverseMotion(v SVec[T]) SVec[T] {
	et := x.E.Transpose()
	w := et.MulVec(v.Angular())
	return MakeSVec(w, et.MulVec(v.Linear()).Add(x.R.Cross(w)))
}

func (x Xform[T]) Inverse() Xform[T] {
	return Xform[T]{E: x.E.Transpose(), R: x.E.MulVec(x.R).Neg()}
}

// Compose returns x∘y: apply y (A→B) first, then x (B→C).
func (x Xform[T]) Compose(y Xform[T]) Xform[T] {
	return Xform[T]{
		E: x.E.Mul(y.E),
		R: y.R.Add(y.E.Transpose().MulVec(x.R)),
	}
}

// Matrix returns the 6x6 motion transform [E 0; -E r× E].
func (x Xform[T]) Matrix() Mat6[T] {
	ner := x.E.Mul(Skew(x.R)).Scale(-1)
	var m Mat6[T]
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m[r][c] = x.E.At(r, c)
			m[r+3][c+3] = x.E.At(r, c)
			m[r+3][c] = ner.At(r, c)
		}
	}
	return m
}

// TransformPoint expresses a point given in A in B coordinates.
func (x Xform[T]) TransformPoint(p Vec3[T]) Vec3[T] {
	return x.E.MulVec(p.Sub(x.R))
}

// InversePoint expresses a point given in B in A coordinates.
func (x Xform[T]) InversePoint(p Vec3[T]) Vec3[T] {
	return x.R.Add(x.E.Transpose().MulVec(p))
}
