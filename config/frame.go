package config

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/navcore/spatialmath"
	"go.viam.com/navcore/transform"
)

// Translation is a point or offset, in the units of the tracker (usually millimeters).
type Translation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vector returns the translation as an r3.Vector.
func (t Translation) Vector() r3.Vector {
	return r3.Vector{X: t.X, Y: t.Y, Z: t.Z}
}

// Orientation is a rotation of TH degrees around the axis (X, Y, Z). The zero value is no rotation.
type Orientation struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
	TH float64 `json:"th"`
}

// Quaternion returns the orientation as a unit quaternion.
func (o Orientation) Quaternion() quat.Number {
	return spatialmath.NewR4AADegrees(o.TH, o.X, o.Y, o.Z).ToQuat()
}

// FrameConfig is a coordinate system and, unless it is a root, its pose in its parent.
type FrameConfig struct {
	Name        string      `json:"name"`
	Parent      string      `json:"parent,omitempty"`
	Translation Translation `json:"translation"`
	Orientation Orientation `json:"orientation"`
	// Error is the estimated error of the pose, in translation units.
	Error float64 `json:"error,omitempty"`
}

// Transform returns the pose of the frame in its parent, valid at every instant.
func (f FrameConfig) Transform() transform.Transform {
	return transform.NewWithWindow(f.Translation.Vector(), f.Orientation.Quaternion(), f.Error, transform.AlwaysValid())
}

// LandmarkPair is one image landmark and the tracker landmark measured at the same fiducial.
type LandmarkPair struct {
	Image   Translation `json:"image"`
	Tracker Translation `json:"tracker"`
}

// Target is a named point, in image coordinates, to estimate the registration error at.
type Target struct {
	Name  string      `json:"name"`
	Point Translation `json:"point"`
}
