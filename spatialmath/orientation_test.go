package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

// represent a 45 degree rotation around the x axis in all the representations
var (
	th    = math.Pi / 4.
	q45x  = quat.Number{math.Cos(th / 2.), math.Sin(th / 2.), 0, 0} // in quaternion representation
	aa45x = &R4AA{th, 1., 0., 0.}                                 // in axis-angle representation
)

func TestZeroOrientation(t *testing.T) {
	zero := NewZeroOrientation()
	test.That(t, zero.AxisAngles(), test.ShouldResemble, &R4AA{0, 0, 0, 1})
	test.That(t, zero.Quaternion(), test.ShouldResemble, quat.Number{1, 0, 0, 0})
}

func TestQuaternions(t *testing.T) {
	qq45x := quaternion(q45x)
	test.That(t, qq45x.Quaternion().Real, test.ShouldAlmostEqual, q45x.Real)
	test.That(t, qq45x.Quaternion().Imag, test.ShouldAlmostEqual, q45x.Imag)
	test.That(t, qq45x.AxisAngles().Theta, test.ShouldAlmostEqual, aa45x.Theta)
	test.That(t, qq45x.AxisAngles().RX, test.ShouldAlmostEqual, aa45x.RX)
	test.That(t, qq45x.AxisAngles().RY, test.ShouldAlmostEqual, aa45x.RY)
	test.That(t, qq45x.AxisAngles().RZ, test.ShouldAlmostEqual, aa45x.RZ)
}

func TestAxisAngles(t *testing.T) {
	q := aa45x.ToQuat()
	test.That(t, QuaternionAlmostEqual(q, q45x, 1e-9), test.ShouldBeTrue)

	deg := NewR4AADegrees(45, 2, 0, 0)
	test.That(t, QuaternionAlmostEqual(deg.Quaternion(), q45x, 1e-9), test.ShouldBeTrue)
	test.That(t, deg.RX, test.ShouldAlmostEqual, 1)

	zeroAxis := &R4AA{Theta: 1}
	test.That(t, QuaternionAlmostEqual(zeroAxis.ToQuat(), quat.Number{math.Cos(0.5), 0, 0, math.Sin(0.5)}, 1e-9), test.ShouldBeTrue)

	r4 := R3ToR4(aa45x.ToR3())
	test.That(t, r4.Theta, test.ShouldAlmostEqual, th)
	test.That(t, R3ToR4(r3.Vector{}), test.ShouldResemble, NewR4AA())
}

func TestNormalize(t *testing.T) {
	test.That(t, Normalize(quat.Number{}), test.ShouldResemble, quat.Number{Real: 1})
	n := Normalize(quat.Number{2, 0, 0, 2})
	test.That(t, quat.Abs(n), test.ShouldAlmostEqual, 1)
	test.That(t, n.Real, test.ShouldAlmostEqual, math.Sqrt2/2)

	test.That(t, Canonicalize(quat.Number{-1, 0, 0, 0}), test.ShouldResemble, quat.Number{1, 0, 0, 0})
	test.That(t, QuaternionAlmostEqual(q45x, Flip(q45x), 1e-9), test.ShouldBeTrue)
}

func TestOrientationBetween(t *testing.T) {
	o1 := NewZeroOrientation()
	q := quaternion(q45x)
	between := OrientationBetween(o1, &q)
	test.That(t, OrientationAlmostEqual(between, &q), test.ShouldBeTrue)
}

func TestRotateVector(t *testing.T) {
	q90z := (&R4AA{Theta: math.Pi / 2, RZ: 1}).ToQuat()
	v := RotateVector(q90z, r3.Vector{1, 0, 0})
	test.That(t, v.X, test.ShouldAlmostEqual, 0)
	test.That(t, v.Y, test.ShouldAlmostEqual, 1)
	test.That(t, v.Z, test.ShouldAlmostEqual, 0)
}
