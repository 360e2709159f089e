package projector

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/geom"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

// Frustum is a viewpoint pose with a full angle field of view.
type Frustum struct {
	Position    r3.Vector
	Orientation mgl64.Quat
	FOV         AngularVector
}

// NewFrustum returns a frustum after validating its field of view and
// position. The orientation is normalized.
func NewFrustum(position r3.Vector, orientation mgl64.Quat, fov AngularVector) (Frustum, error) {
	if !fov.valid() {
		return Frustum{}, errors.New("field of view must be positive").
			WithType(geom.ErrTypeInvalidConfiguration).
			WithTag("theta", fov.Theta).
			WithTag("phi", fov.Phi)
	}

	if !geom.IsFinite(position) {
		return Frustum{}, errors.New("frustum position is not finite").
			WithType(geom.ErrTypeInvalidConfiguration).
			WithTag("position", position)
	}

	if orientation.Len() == 0 {
		return Frustum{}, errors.New("frustum orientation is a zero quaternion").
			WithType(geom.ErrTypeInvalidConfiguration)
	}

	return Frustum{
		Position:    position,
		Orientation: orientation.Normalize(),
		FOV:         fov,
	}, nil
}

// Local returns the direction from the frustum position to p expressed in
// the frustum local frame.
func (f Frustum) Local(p r3.Vector) r3.Vector {
	d := p.Sub(f.Position)
	v := f.Orientation.Inverse().Rotate(mgl64.Vec3{d.X, d.Y, d.Z})
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

// Angular returns the angles of p as seen from the frustum.
func (f Frustum) Angular(p r3.Vector) AngularVector {
	return NewAngularVector(f.Local(p))
}

// InView reports whether p is inside the field of view.
func (f Frustum) InView(p r3.Vector) bool {
	return f.FOV.Contains(f.Angular(p))
}

// Distance returns the distance from the frustum position to p.
func (f Frustum) Distance(p r3.Vector) float64 {
	return f.Position.Distance(p)
}

// EulerOrientation returns the rotation described by yaw (around y), pitch
// (around x) and roll (around z) in degrees. Roll is applied first, then
// pitch, then yaw.
func EulerOrientation(yaw float64, pitch float64, roll float64) mgl64.Quat {
	qy := mgl64.QuatRotate(geom.DegToRad(yaw), mgl64.Vec3{0, 1, 0})
	qx := mgl64.QuatRotate(geom.DegToRad(pitch), mgl64.Vec3{1, 0, 0})
	qz := mgl64.QuatRotate(geom.DegToRad(roll), mgl64.Vec3{0, 0, 1})
	return qy.Mul(qx).Mul(qz)
}
