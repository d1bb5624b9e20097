package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func TestDualQuaternionPoint(t *testing.T) {
	pt := r3.Vector{10, -2, 3.5}
	dq := NewDualQuaternion(pt, q45x)
	test.That(t, R3VectorAlmostEqual(dq.Point(), pt, 1e-12), test.ShouldBeTrue)
	test.That(t, QuaternionAlmostEqual(dq.Rotation(), q45x, 1e-12), test.ShouldBeTrue)

	zero := NewZeroDualQuaternion()
	test.That(t, zero.Point(), test.ShouldResemble, r3.Vector{})
	test.That(t, zero.TransformPoint(pt), test.ShouldResemble, pt)
}

func TestDualQuaternionCompose(t *testing.T) {
	q90z := (&R4AA{Theta: math.Pi / 2, RZ: 1}).ToQuat()
	a := NewDualQuaternion(r3.Vector{1, 0, 0}, q90z)
	b := NewDualQuaternion(r3.Vector{0, 2, 0}, quat.Number{Real: 1})

	// b first: (1,0,0) -> (1,2,0); then a: rotate to (-2,1,0), translate to (-1,1,0)
	ab := Compose(a, b)
	p := ab.TransformPoint(r3.Vector{1, 0, 0})
	test.That(t, R3VectorAlmostEqual(p, r3.Vector{-1, 1, 0}, 1e-12), test.ShouldBeTrue)
	test.That(t, R3VectorAlmostEqual(p, a.TransformPoint(b.TransformPoint(r3.Vector{1, 0, 0})), 1e-12), test.ShouldBeTrue)
}

func TestDualQuaternionInvert(t *testing.T) {
	dq := NewDualQuaternion(r3.Vector{4, 5, 6}, aa45x.ToQuat())
	inv := dq.Invert()
	test.That(t, Compose(dq, inv).AlmostEqual(NewZeroDualQuaternion(), 1e-12), test.ShouldBeTrue)
	test.That(t, Compose(inv, dq).AlmostEqual(NewZeroDualQuaternion(), 1e-12), test.ShouldBeTrue)

	pt := r3.Vector{-3, 7, 1}
	test.That(t, R3VectorAlmostEqual(inv.TransformPoint(dq.TransformPoint(pt)), pt, 1e-12), test.ShouldBeTrue)
}

func TestDualQuaternionFromOrientation(t *testing.T) {
	dq := NewDualQuaternionFromOrientation(r3.Vector{1, 2, 3}, nil)
	test.That(t, dq.AlmostEqual(NewDualQuaternion(r3.Vector{1, 2, 3}, quat.Number{Real: 1}), 1e-12), test.ShouldBeTrue)
	test.That(t, OrientationAlmostEqual(dq.Orientation(), NewZeroOrientation()), test.ShouldBeTrue)
	test.That(t, dq.String(), test.ShouldContainSubstring, "X:1.0000")
}
