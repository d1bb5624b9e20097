// Package referenceframe maintains a forest of coordinate systems, each holding the transform to its
// parent, and resolves the transform between any two connected coordinate systems.
package referenceframe

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"

	"go.viam.com/navcore/logging"
	"go.viam.com/navcore/transform"
	"go.viam.com/navcore/utils"
)

// node is the arena entry of a coordinate system. Only the parent link is stored; children are
// never enumerated from their parent.
type node struct {
	cs       *CoordinateSystem
	parent   *node
	toParent transform.Transform
}

// Tree owns a set of coordinate systems and the parent links between them. Structural changes take
// the write lock; resolution only takes the read lock and may run concurrently.
type Tree struct {
	name   string
	logger logging.Logger

	mu    sync.RWMutex
	nodes map[uuid.UUID]*node
}

// NewTree returns an empty tree.
func NewTree(name string, logger logging.Logger) *Tree {
	return &Tree{name: name, logger: logger, nodes: map[uuid.UUID]*node{}}
}

// Name returns the name of the tree.
func (t *Tree) Name() string {
	return t.name
}

// NewCoordinateSystem adds a root coordinate system to the tree. The name is used for diagnostics
// only and need not be unique.
func (t *Tree) NewCoordinateSystem(name string) *CoordinateSystem {
	cs := &CoordinateSystem{id: uuid.New(), name: name, tree: t}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes[cs.id] = &node{cs: cs, toParent: transform.NewIdentity()}
	return cs
}

// Len returns the number of coordinate systems in the tree.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// Contains returns whether cs is part of the tree.
func (t *Tree) Contains(cs *CoordinateSystem) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, err := t.lookup(cs)
	return err == nil
}

// CoordinateSystems returns every coordinate system of the tree sorted by name.
func (t *Tree) CoordinateSystems() []*CoordinateSystem {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sortedHandles()
}

// Names returns the names of every coordinate system of the tree, sorted.
func (t *Tree) Names() []string {
	return lo.Map(t.CoordinateSystems(), func(cs *CoordinateSystem, _ int) string { return cs.Name() })
}

func (t *Tree) sortedHandles() []*CoordinateSystem {
	handles := lo.Map(lo.Values(t.nodes), func(n *node, _ int) *CoordinateSystem { return n.cs })
	sort.Slice(handles, func(i, j int) bool {
		if handles[i].name != handles[j].name {
			return handles[i].name < handles[j].name
		}
		return handles[i].id.String() < handles[j].id.String()
	})
	return handles
}

// Remove deletes cs from the tree. Its children become roots; they are not reparented to the
// grandparent. The handle is unusable afterwards.
func (t *Tree) Remove(cs *CoordinateSystem) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, err := t.lookup(cs)
	if err != nil {
		return err
	}
	var orphaned []string
	for _, other := range t.nodes {
		if other.parent == n {
			other.parent = nil
			other.toParent = transform.NewIdentity()
			orphaned = append(orphaned, other.cs.name)
		}
	}
	delete(t.nodes, cs.id)
	t.logger.Debugw("removed coordinate system", "name", cs.name, "orphaned", orphaned)
	return nil
}

// lookup must be called with the lock held.
func (t *Tree) lookup(cs *CoordinateSystem) (*node, error) {
	if cs == nil || cs.tree != t {
		return nil, NewUnknownCoordinateSystemError(cs, t.name)
	}
	n, ok := t.nodes[cs.id]
	if !ok {
		return nil, NewUnknownCoordinateSystemError(cs, t.name)
	}
	return n, nil
}

// String prints out a table of each coordinate system in the tree, with columns of name, parent,
// translation, rotation, error and validity.
func (t *Tree) String() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"#", "Name", "Parent", "Translation", "Orientation", "Error", "Valid"})
	for i, cs := range t.sortedHandles() {
		n := t.nodes[cs.id]
		parent := ""
		if n.parent != nil {
			parent = n.parent.cs.name
		}
		tra := n.toParent.Translation()
		aa := n.toParent.Pose().Orientation().AxisAngles()
		tw.AppendRow(table.Row{
			fmt.Sprintf("%d", i+1),
			cs.name,
			parent,
			fmt.Sprintf("X:%.2f, Y:%.2f, Z:%.2f", tra.X, tra.Y, tra.Z),
			fmt.Sprintf("TH:%.2f, X:%.3f, Y:%.3f, Z:%.3f", utils.RadToDeg(aa.Theta), aa.RX, aa.RY, aa.RZ),
			fmt.Sprintf("%g", n.toParent.ErrorBound()),
			n.toParent.Window().String(),
		})
	}
	return tw.Render()
}
