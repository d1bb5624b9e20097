// Package transform defines Transform, a rigid 3D transform carrying an estimation error bound and
// the time window during which it is valid.
package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/navcore/spatialmath"
)

// Transform is a rigid transform (rotation then translation) with an error bound and a validity
// window. It is a small value type; copy it freely. The zero value is not a valid transform; start
// from NewIdentity or New.
type Transform struct {
	pose       spatialmath.DualQuaternion
	errorBound float64
	window     Window
}

// New returns a transform valid from now for validFor. Use Forever for a transform that does not expire.
func New(translation r3.Vector, rotation quat.Number, errorBound float64, validFor time.Duration) Transform {
	return NewAt(Now(), translation, rotation, errorBound, validFor)
}

// NewAt returns a transform valid from start for validFor.
func NewAt(start time.Time, translation r3.Vector, rotation quat.Number, errorBound float64, validFor time.Duration) Transform {
	return Transform{
		pose:       spatialmath.NewDualQuaternion(translation, rotation),
		errorBound: errorBound,
		window:     NewWindow(start, validFor),
	}
}

// NewWithWindow returns a transform valid over the given window.
func NewWithWindow(translation r3.Vector, rotation quat.Number, errorBound float64, window Window) Transform {
	return Transform{
		pose:       spatialmath.NewDualQuaternion(translation, rotation),
		errorBound: errorBound,
		window:     window,
	}
}

// Identity returns the identity transform with zero error, valid from now for validFor.
func Identity(validFor time.Duration) Transform {
	return Transform{pose: spatialmath.NewZeroDualQuaternion(), window: NewWindow(Now(), validFor)}
}

// NewIdentity returns the identity transform with zero error that is valid at every instant.
func NewIdentity() Transform {
	return Transform{pose: spatialmath.NewZeroDualQuaternion(), window: AlwaysValid()}
}

// Translation returns the translation applied after the rotation.
func (t Transform) Translation() r3.Vector {
	return t.pose.Point()
}

// Rotation returns the rotation as a unit quaternion.
func (t Transform) Rotation() quat.Number {
	return t.pose.Rotation()
}

// Pose returns the rigid part of the transform.
func (t Transform) Pose() spatialmath.DualQuaternion {
	return t.pose
}

// ErrorBound returns the estimated error of the transform, in the units of its translation.
func (t Transform) ErrorBound() float64 {
	return t.errorBound
}

// Window returns the validity window.
func (t Transform) Window() Window {
	return t.window
}

// Start returns the beginning of the validity window.
func (t Transform) Start() time.Time {
	return t.window.Start
}

// Expiration returns the end of the validity window.
func (t Transform) Expiration() time.Time {
	return t.window.Expiration
}

// Inverse returns the transform undoing t. The error bound and validity window are kept.
func (t Transform) Inverse() Transform {
	return Transform{pose: t.pose.Invert(), errorBound: t.errorBound, window: t.window}
}

// Compose returns the transform applying b and then a. Error bounds add up and the validity window
// is the intersection of both windows.
func Compose(a, b Transform) Transform {
	return Transform{
		pose:       spatialmath.Compose(a.pose, b.pose),
		errorBound: a.errorBound + b.errorBound,
		window:     a.window.Intersect(b.window),
	}
}

// TransformPoint maps p through the transform.
func (t Transform) TransformPoint(p r3.Vector) r3.Vector {
	return t.pose.TransformPoint(p)
}

// IsValidNow returns whether the transform is valid at the current time.
func (t Transform) IsValidNow() bool {
	return t.window.Contains(Now())
}

// IsValidAt returns whether the transform is valid at instant at.
func (t Transform) IsValidAt(at time.Time) bool {
	return t.window.Contains(at)
}

// IsIdentity returns whether the rigid part is the identity within tol.
func (t Transform) IsIdentity(tol float64) bool {
	return math.Abs(math.Abs(t.Rotation().Real)-1) <= tol && t.Translation().Norm() <= tol
}

// IsNumericallyEquivalent returns whether both transforms map points the same way within tol. Error
// bounds and windows are not compared.
func (t Transform) IsNumericallyEquivalent(other Transform, tol float64) bool {
	return t.pose.AlmostEqual(other.pose, tol)
}

func (t Transform) String() string {
	return fmt.Sprintf("%s error:%g valid:%s", t.pose, t.errorBound, t.window)
}

type transformJSON struct {
	Translation r3.Vector    `json:"translation"`
	Rotation    rotationJSON `json:"rotation"`
	Error       float64      `json:"error"`
	Window      Window       `json:"window"`
}

type rotationJSON struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// MarshalJSON encodes the transform with its rotation as a w, x, y, z quaternion.
func (t Transform) MarshalJSON() ([]byte, error) {
	q := t.Rotation()
	return json.Marshal(transformJSON{
		Translation: t.Translation(),
		Rotation:    rotationJSON{W: q.Real, X: q.Imag, Y: q.Jmag, Z: q.Kmag},
		Error:       t.errorBound,
		Window:      t.window,
	})
}

// UnmarshalJSON decodes a transform written by MarshalJSON. A missing window means always valid.
func (t *Transform) UnmarshalJSON(data []byte) error {
	var raw transformJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "cannot decode transform")
	}
	if raw.Error < 0 {
		return errors.Errorf("transform error bound must not be negative, got %g", raw.Error)
	}
	window := raw.Window
	if window.Start.IsZero() && window.Expiration.IsZero() {
		window = AlwaysValid()
	}
	q := quat.Number{Real: raw.Rotation.W, Imag: raw.Rotation.X, Jmag: raw.Rotation.Y, Kmag: raw.Rotation.Z}
	*t = NewWithWindow(raw.Translation, q, raw.Error, window)
	return nil
}
