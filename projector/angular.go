package projector

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/geom"
	"github.com/golang/geo/r3"
)

// AngularVector is a direction expressed as two angles in degrees relative to
// the local forward axis. Theta is the horizontal angle from the z axis
// toward x, in (-180, 180]. Phi is the elevation above the xz plane, in
// [-90, 90].
//
// When used as a field of view, Theta and Phi hold the full angle extents.
type AngularVector struct {
	Theta float64 `json:"theta"`
	Phi   float64 `json:"phi"`
}

// NewAngularVector returns the angles of a direction given in the local frame
// (x right, y up, z forward).
func NewAngularVector(local r3.Vector) AngularVector {
	return AngularVector{
		Theta: geom.RadToDeg(math.Atan2(local.X, local.Z)),
		Phi:   geom.RadToDeg(math.Atan2(local.Y, math.Hypot(local.X, local.Z))),
	}
}

// Contains reports whether v is strictly inside the field of view described
// by a.
func (a AngularVector) Contains(v AngularVector) bool {
	return math.Abs(v.Theta) < a.Theta/2 && math.Abs(v.Phi) < a.Phi/2
}

// Map returns the column and row of v in a cols x rows grid spanning the
// field of view fov. Indices are floored then clamped to the last slot so a
// direction that rounds onto the outer edge stays in the grid. Directions
// outside fov are rejected.
func (a AngularVector) Map(fov AngularVector, cols int, rows int) (int, int, error) {
	if !fov.Contains(a) {
		return 0, 0, errors.New("direction is outside of the field of view").
			WithType(geom.ErrTypeOutOfRange).
			WithTag("theta", a.Theta).
			WithTag("phi", a.Phi).
			WithTag("fov_theta", fov.Theta).
			WithTag("fov_phi", fov.Phi)
	}

	if cols <= 0 || rows <= 0 {
		return 0, 0, errors.New("grid is empty").
			WithType(geom.ErrTypeOutOfRange).
			WithTag("cols", cols).
			WithTag("rows", rows)
	}

	return mapAxis(a.Theta, fov.Theta, cols), mapAxis(a.Phi, fov.Phi, rows), nil
}

func mapAxis(angle float64, fov float64, n int) int {
	i := int(math.Floor(float64(n)/2 + float64(n)*angle/fov))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (a AngularVector) valid() bool {
	return a.Theta > 0 && a.Phi > 0 &&
		!math.IsInf(a.Theta, 0) && !math.IsInf(a.Phi, 0)
}
