package referenceframe

import (
	"github.com/golang/geo/r3"
	"github.com/google/uuid"

	"go.viam.com/navcore/transform"
)

// CoordinateSystem is a handle to a node of a Tree. Objects that need a pose (images, trackers,
// tools, targets) hold one and delegate every request to the owning tree.
type CoordinateSystem struct {
	id   uuid.UUID
	name string
	tree *Tree
}

// ID returns the unique id of the coordinate system.
func (cs *CoordinateSystem) ID() uuid.UUID {
	if cs == nil {
		return uuid.Nil
	}
	return cs.id
}

// Name returns the diagnostic name of the coordinate system.
func (cs *CoordinateSystem) Name() string {
	if cs == nil {
		return "<nil>"
	}
	return cs.name
}

// Tree returns the tree owning the coordinate system.
func (cs *CoordinateSystem) Tree() *Tree {
	if cs == nil {
		return nil
	}
	return cs.tree
}

// owner returns the tree cs was created by. Nil handles and handles not made by a tree have none.
func (cs *CoordinateSystem) owner() (*Tree, error) {
	if cs == nil || cs.tree == nil {
		return nil, errNilCoordinateSystem
	}
	return cs.tree, nil
}

func (cs *CoordinateSystem) String() string {
	return cs.Name()
}

// SetTransformAndParent detaches cs from its current parent and attaches it to parent, with tf
// mapping coordinates of cs into coordinates of parent. A nil parent detaches cs.
func (cs *CoordinateSystem) SetTransformAndParent(tf transform.Transform, parent *CoordinateSystem) error {
	t, err := cs.owner()
	if err != nil {
		return err
	}
	return t.setTransformAndParent(cs, tf, parent)
}

// UpdateTransformToParent replaces the transform to the current parent without reparenting.
func (cs *CoordinateSystem) UpdateTransformToParent(tf transform.Transform) error {
	t, err := cs.owner()
	if err != nil {
		return err
	}
	return t.updateTransformToParent(cs, tf)
}

// Detach makes cs a root. Its transform to parent is reset to identity.
func (cs *CoordinateSystem) Detach() error {
	return cs.SetTransformAndParent(transform.NewIdentity(), nil)
}

// TransformToParent returns the raw transform to the parent. Roots return ErrNoParent.
func (cs *CoordinateSystem) TransformToParent() (transform.Transform, error) {
	t, err := cs.owner()
	if err != nil {
		return transform.Transform{}, err
	}
	return t.transformToParent(cs)
}

// Parent returns the parent of cs. Roots return ErrNoParent.
func (cs *CoordinateSystem) Parent() (*CoordinateSystem, error) {
	t, err := cs.owner()
	if err != nil {
		return nil, err
	}
	return t.parent(cs)
}

// ComputeTransformTo returns the transform mapping coordinates of cs into coordinates of other.
// Coordinate systems of different trees are disconnected.
func (cs *CoordinateSystem) ComputeTransformTo(other *CoordinateSystem) (transform.Transform, error) {
	t, err := cs.owner()
	if err != nil {
		return transform.Transform{}, err
	}
	return t.ComputeTransform(cs, other)
}

// TransformPointTo maps p, expressed in cs, into other.
func (cs *CoordinateSystem) TransformPointTo(p r3.Vector, other *CoordinateSystem) (r3.Vector, error) {
	tf, err := cs.ComputeTransformTo(other)
	if err != nil {
		return r3.Vector{}, err
	}
	return tf.TransformPoint(p), nil
}

func (t *Tree) setTransformAndParent(cs *CoordinateSystem, tf transform.Transform, parent *CoordinateSystem) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, err := t.lookup(cs)
	if err != nil {
		return err
	}
	if parent == nil {
		n.parent = nil
		n.toParent = transform.NewIdentity()
		t.logger.Debugw("detached coordinate system", "name", cs.name)
		return nil
	}
	p, err := t.lookup(parent)
	if err != nil {
		return err
	}
	if p == n {
		return ErrSelfParent
	}
	for ancestor := p; ancestor != nil; ancestor = ancestor.parent {
		if ancestor == n {
			return NewParentCausesCycleError(cs, parent)
		}
	}
	n.parent = p
	n.toParent = tf
	t.logger.Debugw("set coordinate system parent", "name", cs.name, "parent", parent.name)
	return nil
}

func (t *Tree) updateTransformToParent(cs *CoordinateSystem, tf transform.Transform) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, err := t.lookup(cs)
	if err != nil {
		return err
	}
	if n.parent == nil {
		return ErrNoParent
	}
	n.toParent = tf
	return nil
}

func (t *Tree) transformToParent(cs *CoordinateSystem) (transform.Transform, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, err := t.lookup(cs)
	if err != nil {
		return transform.Transform{}, err
	}
	if n.parent == nil {
		return transform.Transform{}, ErrNoParent
	}
	return n.toParent, nil
}

func (t *Tree) parent(cs *CoordinateSystem) (*CoordinateSystem, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, err := t.lookup(cs)
	if err != nil {
		return nil, err
	}
	if n.parent == nil {
		return nil, ErrNoParent
	}
	return n.parent.cs, nil
}
