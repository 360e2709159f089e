package projector

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/geom"
	"github.com/aukilabs/sowilo/raster"
)

// ValueSource produces the sample value of a visible point.
type ValueSource interface {
	Value(fov AngularVector, h Hit) (byte, error)
}

// RasterSource reads the value of the raster pixel a point maps to.
type RasterSource struct {
	Raster raster.Raster
}

func (s RasterSource) Value(fov AngularVector, h Hit) (byte, error) {
	i, j, err := h.Angle.Map(fov, s.Raster.Width, s.Raster.Height)
	if err != nil {
		return 0, err
	}
	return s.Raster.At(i, j)
}

// ProximitySource derives the value from the distance to the viewpoint.
// Points at Near or closer get 255, points at Far or further get 0.
type ProximitySource struct {
	Near float64
	Far  float64
}

// NewProximitySource returns a proximity source after validating its bounds.
func NewProximitySource(near float64, far float64) (ProximitySource, error) {
	if near < 0 || !(far > near) || math.IsInf(far, 0) {
		return ProximitySource{}, errors.New("invalid proximity bounds").
			WithType(geom.ErrTypeInvalidConfiguration).
			WithTag("near", near).
			WithTag("far", far)
	}
	return ProximitySource{Near: near, Far: far}, nil
}

func (s ProximitySource) Value(fov AngularVector, h Hit) (byte, error) {
	if !(s.Far > s.Near) {
		return 0, errors.New("invalid proximity bounds").
			WithType(geom.ErrTypeInvalidConfiguration).
			WithTag("near", s.Near).
			WithTag("far", s.Far)
	}

	v := 255 * (s.Far - h.Distance) / (s.Far - s.Near)
	switch {
	case v <= 0:
		return 0, nil
	case v >= 255:
		return 255, nil
	default:
		return byte(math.Round(v)), nil
	}
}
