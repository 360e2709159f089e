// Package octree implements a sparse octree that accumulates samples at
// arbitrary 3D positions without a predefined bounding volume.
//
// Nodes live in an arena and reference their children by index. The tree
// grows by making the current root a child of a parent twice its size, and
// refines by splitting an occupied leaf into a container of 8 leaves so two
// distinct samples never share a leaf above the minimum size.
package octree

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/geom"
	"github.com/golang/geo/r3"
)

const (
	// Fraction of the default size placed below the seed on every axis so
	// the seed is strictly interior.
	seedOffset = 0.2
)

// Index is a sparse octree of samples of type T.
type Index[T comparable] struct {
	seed        r3.Vector
	minSize     float64
	defaultSize float64

	nodes []node[T]
	root  int32
	meta  Metadata
}

// NewIndex creates an index whose root is a container of 8 empty leaves of
// edge defaultSize placed around seed.
func NewIndex[T comparable](seed r3.Vector, minSize float64, defaultSize float64) (*Index[T], error) {
	if !geom.IsFinite(seed) {
		return nil, errors.New("seed point is not finite").
			WithType(geom.ErrTypeInvalidConfiguration).
			WithTag("seed", seed)
	}

	if !(minSize > 0) || !(defaultSize > 0) || math.IsInf(defaultSize, 0) {
		return nil, errors.New("octree sizes must be positive").
			WithType(geom.ErrTypeInvalidConfiguration).
			WithTag("min_size", minSize).
			WithTag("default_size", defaultSize)
	}

	if minSize > defaultSize {
		return nil, errors.New("min size is greater than default size").
			WithType(geom.ErrTypeInvalidConfiguration).
			WithTag("min_size", minSize).
			WithTag("default_size", defaultSize)
	}

	idx := &Index[T]{
		seed:        seed,
		minSize:     minSize,
		defaultSize: defaultSize,
	}
	idx.Reset()
	return idx, nil
}

// Reset discards every node and sample and restarts from an empty root at
// the seed.
func (idx *Index[T]) Reset() {
	buffer := seedOffset * idx.defaultSize
	min := r3.Vector{
		X: idx.seed.X - buffer,
		Y: idx.seed.Y - buffer,
		Z: idx.seed.Z - buffer,
	}

	idx.nodes = idx.nodes[:0]
	idx.root = idx.newContainer(geom.NewCube(min, idx.defaultSize))
	idx.meta = Metadata{
		Components:      9,
		Leaves:          8,
		Volume:          idx.nodes[idx.root].bounds.Volume(),
		MemoryFootprint: memoryFootprint(1, 8),
	}
}

func (idx *Index[T]) MinSize() float64 {
	return idx.minSize
}

func (idx *Index[T]) DefaultSize() float64 {
	return idx.defaultSize
}

func (idx *Index[T]) Seed() r3.Vector {
	return idx.seed
}

// Metadata returns the incrementally maintained aggregates.
func (idx *Index[T]) Metadata() Metadata {
	return idx.meta
}

// Bounds returns the root bounds.
func (idx *Index[T]) Bounds() geom.Box {
	return idx.nodes[idx.root].bounds
}

// Contains reports whether p is within the root bounds.
func (idx *Index[T]) Contains(p r3.Vector) bool {
	return idx.nodes[idx.root].bounds.Contains(p)
}

// Get returns the value of the leaf containing p. The value of an unoccupied
// leaf is the zero value of T; use Occupied or Leaf to tell them apart.
func (idx *Index[T]) Get(p r3.Vector) (T, error) {
	i, err := idx.find(p)
	if err != nil {
		var zero T
		return zero, err
	}
	return idx.nodes[i].sample.Value, nil
}

// Occupied reports whether the leaf containing p holds a sample.
func (idx *Index[T]) Occupied(p r3.Vector) (bool, error) {
	i, err := idx.find(p)
	if err != nil {
		return false, err
	}
	return idx.nodes[i].occupied, nil
}

// Leaf returns the leaf containing p.
func (idx *Index[T]) Leaf(p r3.Vector) (Leaf[T], error) {
	i, err := idx.find(p)
	if err != nil {
		return Leaf[T]{}, err
	}
	return idx.nodes[i].toLeaf(), nil
}

// Set records value at p, growing the tree when p is outside the root. When
// subdivide is true, an occupied leaf that is at least twice the minimum
// size is split until p and the prior sample are in distinct leaves.
// Otherwise the leaf is overwritten. The returned delta has already been
// applied to the index metadata.
func (idx *Index[T]) Set(p r3.Vector, value T, subdivide bool) (Delta, error) {
	if !geom.IsFinite(p) {
		return Delta{}, errors.New("point is not finite").
			WithType(geom.ErrTypeInvalidConfiguration).
			WithTag("point", p)
	}

	var change Delta
	if !idx.Contains(p) {
		change = idx.grow(p)
	}

	i := idx.root
	for {
		n := &idx.nodes[i]
		if !n.isLeaf() {
			child, err := idx.route(i, p)
			if err != nil {
				idx.commit(change)
				return change, err
			}
			i = child
			continue
		}

		if !n.occupied ||
			!subdivide ||
			n.sample.Position == p ||
			n.bounds.Size() < 2*idx.minSize {
			change = change.Add(idx.assign(i, p, value))
			break
		}

		change = change.Add(idx.split(i))
	}

	idx.commit(change)
	return change, nil
}

// commit applies change to the metadata. The total volume is always the
// closed-form volume of the root.
func (idx *Index[T]) commit(change Delta) {
	idx.meta.apply(change)
	idx.meta.Volume = idx.nodes[idx.root].bounds.Volume()
}

// Walk calls fn for every leaf in depth-first child order until fn returns
// false.
func (idx *Index[T]) Walk(fn func(Leaf[T]) bool) {
	stack := []int32{idx.root}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &idx.nodes[i]
		if n.isLeaf() {
			if !fn(n.toLeaf()) {
				return
			}
			continue
		}

		for c := 7; c >= 0; c-- {
			stack = append(stack, n.children[c])
		}
	}
}

// Recount computes the aggregates with a full traversal of the tree.
func (idx *Index[T]) Recount() Metadata {
	var m Metadata

	stack := []int32{idx.root}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &idx.nodes[i]
		m.Components++
		if n.isLeaf() {
			m.Leaves++
			if n.occupied {
				m.OccupiedLeaves++
				m.OccupiedVolume += n.bounds.Volume()
			}
			continue
		}
		stack = append(stack, n.children[:]...)
	}

	m.Volume = idx.nodes[idx.root].bounds.Volume()
	m.MemoryFootprint = memoryFootprint(m.Containers(), m.Leaves)
	return m
}

// grow doubles the root toward p until the root contains p.
func (idx *Index[T]) grow(p r3.Vector) Delta {
	var change Delta
	volume := idx.nodes[idx.root].bounds.Volume()

	for !idx.Contains(p) {
		old := idx.nodes[idx.root].bounds
		childNum := growthChild(old, p)
		bounds, mid := parentBounds(old, childNum)

		parent := idx.appendNode(node[T]{
			kind:   containerNode,
			bounds: bounds,
			mid:    mid,
		})
		for c := 0; c < 8; c++ {
			child := idx.root
			if c != childNum {
				child = idx.newLeaf(childBounds(bounds, mid, c))
			}
			idx.nodes[parent].children[c] = child
		}
		idx.root = parent

		change.Components += 8
		change.Leaves += 7
	}

	change.Volume = idx.nodes[idx.root].bounds.Volume() - volume
	return change
}

// split turns the occupied leaf i into a container of 8 leaves and moves its
// sample to the child that contains it.
func (idx *Index[T]) split(i int32) Delta {
	leaf := idx.nodes[i]
	mid := leaf.bounds.Center()

	children := idx.newLeaves(leaf.bounds, mid)
	idx.nodes[i] = node[T]{
		kind:     containerNode,
		bounds:   leaf.bounds,
		mid:      mid,
		children: children,
	}

	holder := &idx.nodes[children[whichChild(mid, leaf.sample.Position)]]
	holder.occupied = true
	holder.sample = leaf.sample

	return Delta{
		Components:     8,
		Leaves:         7,
		OccupiedVolume: holder.bounds.Volume() - leaf.bounds.Volume(),
	}
}

func (idx *Index[T]) assign(i int32, p r3.Vector, value T) Delta {
	n := &idx.nodes[i]
	wasEmpty := !n.occupied

	n.occupied = true
	n.sample = Sample[T]{Position: p, Value: value}

	if wasEmpty {
		return Delta{
			OccupiedLeaves: 1,
			OccupiedVolume: n.bounds.Volume(),
		}
	}
	return Delta{}
}

func (idx *Index[T]) find(p r3.Vector) (int32, error) {
	if !idx.Contains(p) {
		return 0, errors.New("point is not contained in octree").
			WithType(geom.ErrTypeOutOfBounds).
			WithTag("point", p).
			WithTag("min", idx.Bounds().Min).
			WithTag("max", idx.Bounds().Max)
	}

	i := idx.root
	for !idx.nodes[i].isLeaf() {
		child, err := idx.route(i, p)
		if err != nil {
			return 0, err
		}
		i = child
	}
	return i, nil
}

// route returns the child of container i that contains p.
func (idx *Index[T]) route(i int32, p r3.Vector) (int32, error) {
	n := &idx.nodes[i]
	child := n.children[whichChild(n.mid, p)]

	if child == noChild || !idx.nodes[child].bounds.Contains(p) {
		return 0, errors.New("point is not contained in any child").
			WithType(geom.ErrTypeInternalInconsistency).
			WithTag("point", p).
			WithTag("min", n.bounds.Min).
			WithTag("max", n.bounds.Max)
	}
	return child, nil
}

func (idx *Index[T]) newContainer(b geom.Box) int32 {
	mid := b.Center()
	children := idx.newLeaves(b, mid)
	return idx.appendNode(node[T]{
		kind:     containerNode,
		bounds:   b,
		mid:      mid,
		children: children,
	})
}

func (idx *Index[T]) newLeaves(b geom.Box, mid r3.Vector) [8]int32 {
	var children [8]int32
	for c := 0; c < 8; c++ {
		children[c] = idx.newLeaf(childBounds(b, mid, c))
	}
	return children
}

func (idx *Index[T]) newLeaf(b geom.Box) int32 {
	return idx.appendNode(node[T]{
		kind:     leafNode,
		bounds:   b,
		children: [8]int32{noChild, noChild, noChild, noChild, noChild, noChild, noChild, noChild},
	})
}

func (idx *Index[T]) appendNode(n node[T]) int32 {
	idx.nodes = append(idx.nodes, n)
	return int32(len(idx.nodes) - 1)
}
