package referenceframe

import (
	"go.viam.com/navcore/transform"
)

// ComputeTransform returns the transform mapping coordinates of src into coordinates of dst. Both are
// walked up to their lowest common ancestor; the result is inverse(dst->lca) composed with
// (src->lca). Error bounds of every hop add up and the validity window is the intersection of the
// windows of every hop. A coordinate system resolved against itself yields the identity, valid at
// every instant. A dst held by another tree is disconnected from src.
func (t *Tree) ComputeTransform(src, dst *CoordinateSystem) (transform.Transform, error) {
	if other := dst.Tree(); other != nil && other != t && src.Tree() == t {
		// Each tree is checked under its own lock.
		if t.Contains(src) && other.Contains(dst) {
			t.logger.Warnw("no common ancestor", "from", src.name, "to", dst.name, "to_tree", other.name)
			return transform.Transform{}, NewDisconnectedError(src, dst)
		}
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	s, err := t.lookup(src)
	if err != nil {
		return transform.Transform{}, err
	}
	d, err := t.lookup(dst)
	if err != nil {
		return transform.Transform{}, err
	}

	srcToAncestor := transform.NewIdentity()
	dstToAncestor := transform.NewIdentity()
	if s == d {
		return srcToAncestor, nil
	}

	srcDepth, dstDepth := depth(s), depth(d)
	for ; srcDepth > dstDepth; srcDepth-- {
		// toParent gives FROM s TO parent. Add new transforms to the left.
		srcToAncestor = transform.Compose(s.toParent, srcToAncestor)
		s = s.parent
	}
	for ; dstDepth > srcDepth; dstDepth-- {
		dstToAncestor = transform.Compose(d.toParent, dstToAncestor)
		d = d.parent
	}
	for s != d {
		if s.parent == nil {
			// Equal depths, so both are roots of different trees.
			t.logger.Warnw("no common ancestor", "from", src.name, "to", dst.name)
			return transform.Transform{}, NewDisconnectedError(src, dst)
		}
		srcToAncestor = transform.Compose(s.toParent, srcToAncestor)
		dstToAncestor = transform.Compose(d.toParent, dstToAncestor)
		s, d = s.parent, d.parent
	}

	return transform.Compose(dstToAncestor.Inverse(), srcToAncestor), nil
}

// depth returns the number of hops from n to its root.
func depth(n *node) int {
	hops := 0
	for ; n.parent != nil; n = n.parent {
		hops++
	}
	return hops
}
