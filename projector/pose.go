package projector

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/geom"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

// Rotation is a quaternion as sent by clients.
type Rotation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

func (r Rotation) Quat() mgl64.Quat {
	return mgl64.Quat{W: r.W, V: mgl64.Vec3{r.X, r.Y, r.Z}}
}

// Pose is the pose of the headset carrying the sensor.
type Pose struct {
	Position r3.Vector `json:"position"`
	Rotation Rotation  `json:"rotation"`
}

// Validate checks that the pose can be turned into a frustum.
func (p Pose) Validate() error {
	if !geom.IsFinite(p.Position) {
		return errors.New("pose position is not finite").
			WithType(geom.ErrTypeInvalidConfiguration).
			WithTag("position", p.Position)
	}

	if l := p.Rotation.Quat().Len(); !(l > 0) || math.IsInf(l, 0) {
		return errors.New("pose rotation is not a valid quaternion").
			WithType(geom.ErrTypeInvalidConfiguration).
			WithTag("rotation", p.Rotation)
	}
	return nil
}

// Frustum returns the frustum of a sensor mounted at offset from the headset
// with the given field of view. The offset is added in world coordinates and
// is not rotated by the headset orientation.
func (p Pose) Frustum(offset r3.Vector, fov AngularVector) (Frustum, error) {
	if err := p.Validate(); err != nil {
		return Frustum{}, err
	}
	return NewFrustum(p.Position.Add(offset), p.Rotation.Quat(), fov)
}
