package octree

import (
	"github.com/aukilabs/sowilo/geom"
	"github.com/golang/geo/r3"
)

type nodeKind uint8

const (
	containerNode nodeKind = iota
	leafNode
)

// noChild marks unused child slots of leaves.
const noChild = int32(-1)

// Sample is a value recorded at a position.
type Sample[T comparable] struct {
	Position r3.Vector
	Value    T
}

// node is an arena entry. Containers route through mid and own exactly 8
// children; leaves hold at most one sample.
type node[T comparable] struct {
	kind     nodeKind
	bounds   geom.Box
	mid      r3.Vector
	children [8]int32

	occupied bool
	sample   Sample[T]
}

// Leaf is a read-only view of a terminal node.
type Leaf[T comparable] struct {
	Bounds   geom.Box
	Occupied bool
	Sample   Sample[T]
}

func (n *node[T]) isLeaf() bool {
	return n.kind == leafNode
}

func (n *node[T]) toLeaf() Leaf[T] {
	return Leaf[T]{
		Bounds:   n.bounds,
		Occupied: n.occupied,
		Sample:   n.sample,
	}
}

// whichChild returns the child number whose octant holds p. A set bit selects
// the lower half on its axis: bit 0 = x, bit 1 = y, bit 2 = z.
func whichChild(mid r3.Vector, p r3.Vector) int {
	i := 0
	if p.X < mid.X {
		i |= 1
	}
	if p.Y < mid.Y {
		i |= 2
	}
	if p.Z < mid.Z {
		i |= 4
	}
	return i
}

// childBounds returns the bounds of child i of a container spanning b and
// split at mid.
func childBounds(b geom.Box, mid r3.Vector, i int) geom.Box {
	child := geom.Box{Min: mid, Max: b.Max}
	if i&1 != 0 {
		child.Min.X = b.Min.X
		child.Max.X = mid.X
	}
	if i&2 != 0 {
		child.Min.Y = b.Min.Y
		child.Max.Y = mid.Y
	}
	if i&4 != 0 {
		child.Min.Z = b.Min.Z
		child.Max.Z = mid.Z
	}
	return child
}

// parentBounds returns the bounds of the parent twice the size of b in which
// b would be child i, along with the parent split point.
func parentBounds(b geom.Box, i int) (geom.Box, r3.Vector) {
	size := 2 * b.Size()
	parent := geom.Box{
		Min: r3.Vector{X: b.Max.X - size, Y: b.Max.Y - size, Z: b.Max.Z - size},
		Max: b.Max,
	}
	mid := b.Min

	if i&1 != 0 {
		parent.Min.X = b.Min.X
		parent.Max.X = b.Min.X + size
		mid.X = b.Max.X
	}
	if i&2 != 0 {
		parent.Min.Y = b.Min.Y
		parent.Max.Y = b.Min.Y + size
		mid.Y = b.Max.Y
	}
	if i&4 != 0 {
		parent.Min.Z = b.Min.Z
		parent.Max.Z = b.Min.Z + size
		mid.Z = b.Max.Z
	}
	return parent, mid
}

// growthChild returns which child the current root becomes when growing
// toward p. A coordinate equal to the root minimum counts as lesser, so the
// root becomes the upper half on that axis.
func growthChild(root geom.Box, p r3.Vector) int {
	i := 0
	if p.X > root.Min.X {
		i |= 1
	}
	if p.Y > root.Min.Y {
		i |= 2
	}
	if p.Z > root.Min.Z {
		i |= 4
	}
	return i
}
