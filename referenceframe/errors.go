package referenceframe

import (
	"github.com/pkg/errors"
)

var (
	// ErrDisconnected is returned when two coordinate systems share no common ancestor.
	ErrDisconnected = errors.New("coordinate systems are not connected")
	// ErrSelfParent is returned when a coordinate system is asked to become its own parent.
	ErrSelfParent = errors.New("coordinate system cannot be its own parent")
	// ErrParentCausesCycle is returned when reparenting would make a coordinate system its own ancestor.
	ErrParentCausesCycle = errors.New("parent would create a cycle")
	// ErrNoParent is returned when an operation needs a parent and the coordinate system is a root.
	ErrNoParent = errors.New("coordinate system has no parent")
	// ErrUnknownCoordinateSystem is returned for handles that were removed or belong to another tree.
	ErrUnknownCoordinateSystem = errors.New("coordinate system not in tree")

	errNilCoordinateSystem = errors.Wrap(ErrUnknownCoordinateSystem, "nil coordinate system")
)

// NewDisconnectedError returns an error indicating there is no path between src and dst.
func NewDisconnectedError(src, dst *CoordinateSystem) error {
	return errors.Wrapf(ErrDisconnected, "from %q to %q", src.Name(), dst.Name())
}

// NewUnknownCoordinateSystemError returns an error indicating cs is not part of the tree.
func NewUnknownCoordinateSystemError(cs *CoordinateSystem, tree string) error {
	if cs == nil {
		return errors.Wrapf(ErrUnknownCoordinateSystem, "nil coordinate system in %q", tree)
	}
	return errors.Wrapf(ErrUnknownCoordinateSystem, "%q in %q", cs.Name(), tree)
}

// NewParentCausesCycleError returns an error indicating parent already descends from cs.
func NewParentCausesCycleError(cs, parent *CoordinateSystem) error {
	return errors.Wrapf(ErrParentCausesCycle, "%q descends from %q", parent.Name(), cs.Name())
}
