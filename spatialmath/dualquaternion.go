package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"
)

// DualQuaternion defines a rigid transformation in 3D as a unit dual quaternion. The real part is the
// rotation and the dual part is half the translation multiplied by the rotation.
// DualQuaternion is a value type; all operations return new values.
type DualQuaternion struct {
	dualquat.Number
}

// NewZeroDualQuaternion returns the dual quaternion representing no rotation and no translation.
// Since the real part of a dual quaternion should be a unit quaternion, not all zeroes, this should be used
// instead of DualQuaternion{}.
func NewZeroDualQuaternion() DualQuaternion {
	return DualQuaternion{dualquat.Number{
		Real: quat.Number{Real: 1},
		Dual: quat.Number{},
	}}
}

// NewDualQuaternion returns the dual quaternion which rotates by q and then translates by pt.
// q is normalized first.
func NewDualQuaternion(pt r3.Vector, q quat.Number) DualQuaternion {
	q = Normalize(q)
	return DualQuaternion{dualquat.Number{
		Real: q,
		Dual: quat.Scale(0.5, quat.Mul(quat.Number{Imag: pt.X, Jmag: pt.Y, Kmag: pt.Z}, q)),
	}}
}

// NewDualQuaternionFromOrientation returns the dual quaternion for the given point and orientation.
func NewDualQuaternionFromOrientation(pt r3.Vector, o Orientation) DualQuaternion {
	if o == nil {
		o = NewZeroOrientation()
	}
	return NewDualQuaternion(pt, o.Quaternion())
}

// Rotation returns the rotation quaternion.
func (q DualQuaternion) Rotation() quat.Number {
	return q.Real
}

// Orientation returns the rotation as an Orientation.
func (q DualQuaternion) Orientation() Orientation {
	o := quaternion(q.Real)
	return &o
}

// Point returns the translation encoded in the dual quaternion.
func (q DualQuaternion) Point() r3.Vector {
	t := quat.Scale(2, quat.Mul(q.Dual, quat.Conj(q.Real)))
	return r3.Vector{X: t.Imag, Y: t.Jmag, Z: t.Kmag}
}

// Compose returns the transformation that applies b and then a.
func Compose(a, b DualQuaternion) DualQuaternion {
	return DualQuaternion{dualquat.Mul(a.Number, b.Number)}
}

// Invert returns the inverse rigid transformation: rotation conj(R) and translation conj(R)(-t).
func (q DualQuaternion) Invert() DualQuaternion {
	rot := quat.Conj(q.Real)
	return NewDualQuaternion(RotateVector(rot, q.Point().Mul(-1)), rot)
}

// TransformPoint applies the rotation then the translation to pt.
func (q DualQuaternion) TransformPoint(pt r3.Vector) r3.Vector {
	return RotateVector(q.Real, pt).Add(q.Point())
}

// AlmostEqual returns whether two dual quaternions describe the same transformation within tol.
func (q DualQuaternion) AlmostEqual(other DualQuaternion, tol float64) bool {
	return R3VectorAlmostEqual(q.Point(), other.Point(), tol) && QuaternionAlmostEqual(q.Real, other.Real, tol)
}

func (q DualQuaternion) String() string {
	pt := q.Point()
	return fmt.Sprintf("{X:%.4f Y:%.4f Z:%.4f W:%.6f I:%.6f J:%.6f K:%.6f}",
		pt.X, pt.Y, pt.Z, q.Real.Real, q.Real.Imag, q.Real.Jmag, q.Real.Kmag)
}

// R3VectorAlmostEqual compares two r3.Vectors component-wise within tol.
func R3VectorAlmostEqual(a, b r3.Vector, tol float64) bool {
	d := a.Sub(b)
	return d.X <= tol && d.X >= -tol && d.Y <= tol && d.Y >= -tol && d.Z <= tol && d.Z >= -tol
}
