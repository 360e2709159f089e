package projector

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/geom"
	"github.com/golang/geo/r3"
)

const (
	// Angle between a surface and the plane perpendicular to the line of
	// sight up to which an object keeps its apparent size, in degrees.
	obliqueAngle = 30

	// Upper bound of cells per axis and per grid.
	maxGridAxis  = 1 << 10
	maxGridCells = maxGridAxis * maxGridAxis
)

// Hit is a point seen from a frustum.
type Hit struct {
	Point    r3.Vector
	Angle    AngularVector
	Distance float64
}

type occlusionCell struct {
	closest  Hit
	occupied bool
}

// OcclusionGrid approximates occlusion by keeping the closest point per cell
// of a grid laid over the field of view.
type OcclusionGrid struct {
	cols  int
	rows  int
	fov   AngularVector
	cells []occlusionCell
}

// GridSize returns the number of columns and rows needed so a cell covers the
// apparent size of an object of objectSize seen at objectDistance.
func GridSize(objectSize float64, objectDistance float64, fov AngularVector) (int, int, error) {
	if !(objectSize > 0) || !(objectDistance > 0) ||
		math.IsInf(objectSize, 0) || math.IsInf(objectDistance, 0) {
		return 0, 0, errors.New("occlusion object size and distance must be positive").
			WithType(geom.ErrTypeInvalidConfiguration).
			WithTag("object_size", objectSize).
			WithTag("object_distance", objectDistance)
	}

	if !fov.valid() {
		return 0, 0, errors.New("field of view must be positive").
			WithType(geom.ErrTypeInvalidConfiguration).
			WithTag("theta", fov.Theta).
			WithTag("phi", fov.Phi)
	}

	apparentSize := objectSize * math.Cos(geom.DegToRad(obliqueAngle))
	axis := func(angle float64) int {
		n := math.Round(2 * objectDistance * math.Tan(geom.DegToRad(angle)/2) / apparentSize)
		if !(n >= 1) {
			return 1
		}
		if n > maxGridAxis {
			return maxGridAxis
		}
		return int(n)
	}
	return axis(fov.Theta), axis(fov.Phi), nil
}

// NewOcclusionGrid creates a grid sized with GridSize.
func NewOcclusionGrid(objectSize float64, objectDistance float64, fov AngularVector) (*OcclusionGrid, error) {
	cols, rows, err := GridSize(objectSize, objectDistance, fov)
	if err != nil {
		return nil, err
	}
	return NewOcclusionGridSize(cols, rows, fov)
}

// NewOcclusionGridSize creates a cols x rows grid over fov.
func NewOcclusionGridSize(cols int, rows int, fov AngularVector) (*OcclusionGrid, error) {
	if cols <= 0 || rows <= 0 || cols*rows > maxGridCells {
		return nil, errors.New("invalid occlusion grid size").
			WithType(geom.ErrTypeInvalidConfiguration).
			WithTag("cols", cols).
			WithTag("rows", rows)
	}

	if !fov.valid() {
		return nil, errors.New("field of view must be positive").
			WithType(geom.ErrTypeInvalidConfiguration).
			WithTag("theta", fov.Theta).
			WithTag("phi", fov.Phi)
	}

	return &OcclusionGrid{
		cols:  cols,
		rows:  rows,
		fov:   fov,
		cells: make([]occlusionCell, cols*rows),
	}, nil
}

// Dims returns the number of columns and rows.
func (g *OcclusionGrid) Dims() (int, int) {
	return g.cols, g.rows
}

// Offer submits h to the cell its angle maps to. It becomes the cell
// representative when the cell is empty or h is strictly closer than the
// current one. It returns whether h was retained.
func (g *OcclusionGrid) Offer(h Hit) (bool, error) {
	i, j, err := h.Angle.Map(g.fov, g.cols, g.rows)
	if err != nil {
		return false, err
	}

	c := &g.cells[j*g.cols+i]
	if c.occupied && !(h.Distance < c.closest.Distance) {
		return false, nil
	}

	c.closest = h
	c.occupied = true
	return true, nil
}

// Reset empties every cell.
func (g *OcclusionGrid) Reset() {
	for i := range g.cells {
		g.cells[i] = occlusionCell{}
	}
}

// Points returns the representative of every occupied cell, row by row.
func (g *OcclusionGrid) Points() []Hit {
	var hits []Hit
	for _, c := range g.cells {
		if c.occupied {
			hits = append(hits, c.closest)
		}
	}
	return hits
}
