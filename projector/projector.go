// Package projector decides which 3D points are visible from a viewpoint,
// resolves occlusion approximately and assigns each visible point a value,
// usually read from the sensor raster.
package projector

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/geom"
	"github.com/aukilabs/sowilo/octree"
	"github.com/golang/geo/r3"
)

// Batch is a named group of mesh vertices.
type Batch struct {
	Name     string
	Vertices []r3.Vector

	// Whether the batch is rendered. Hidden batches are never projected.
	Visible bool

	// Optional bounds used to skip batches that cannot be in view.
	Bounds *geom.Box
}

// Stats are the counters of the last projection.
type Stats struct {
	Batches       int `json:"batches"`
	CulledBatches int `json:"culled_batches"`
	Checked       int `json:"checked"`
	InView        int `json:"in_view"`
	Retained      int `json:"retained"`
}

// Projector projects vertex batches onto values.
type Projector struct {
	// The size of the smallest object that should not hide what is behind
	// it, and the distance at which it is seen.
	ObjectSize     float64
	ObjectDistance float64

	// Disables skipping batches whose bounds are out of view.
	DisableBoundsCulling bool

	stats Stats
}

// Project returns a sample for every visible and non-occluded vertex of the
// visible batches. Values are produced by src.
func (p *Projector) Project(f Frustum, batches []Batch, src ValueSource) ([]octree.Sample[byte], error) {
	p.stats = Stats{}

	grid, err := NewOcclusionGrid(p.ObjectSize, p.ObjectDistance, f.FOV)
	if err != nil {
		return nil, err
	}

	for _, b := range batches {
		if !b.Visible {
			continue
		}
		p.stats.Batches++

		if b.Bounds != nil && !p.DisableBoundsCulling && !AnyInView(f, *b.Bounds) {
			p.stats.CulledBatches++
			continue
		}

		for _, v := range b.Vertices {
			p.stats.Checked++

			a := f.Angular(v)
			if !f.FOV.Contains(a) {
				continue
			}
			p.stats.InView++

			if _, err := grid.Offer(Hit{
				Point:    v,
				Angle:    a,
				Distance: f.Distance(v),
			}); err != nil {
				return nil, errors.New("offering vertex to occlusion grid failed").
					WithTag("batch", b.Name).
					Wrap(err)
			}
		}
	}

	hits := grid.Points()
	p.stats.Retained = len(hits)

	samples := make([]octree.Sample[byte], 0, len(hits))
	for _, h := range hits {
		v, err := src.Value(f.FOV, h)
		if err != nil {
			return nil, errors.New("reading vertex value failed").
				WithTag("point", h.Point).
				Wrap(err)
		}

		samples = append(samples, octree.Sample[byte]{
			Position: h.Point,
			Value:    v,
		})
	}
	return samples, nil
}

// Stats returns the counters of the last call to Project.
func (p *Projector) Stats() Stats {
	return p.stats
}
