package geom

import (
	"math"

	"github.com/golang/geo/r3"
)

func DegToRad(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}

func RadToDeg(rad float64) float64 {
	return rad * (180.0 / math.Pi)
}

// IsFinite reports whether none of the vector components is NaN or infinite.
func IsFinite(v r3.Vector) bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Box is an axis aligned box. Containment is half-open: a point belongs to the
// box when Min <= p < Max on every axis.
type Box struct {
	Min r3.Vector `json:"min"`
	Max r3.Vector `json:"max"`
}

// NewCube returns the cube of the given edge whose minimum corner is min.
func NewCube(min r3.Vector, edge float64) Box {
	return Box{
		Min: min,
		Max: r3.Vector{X: min.X + edge, Y: min.Y + edge, Z: min.Z + edge},
	}
}

func (b Box) Contains(p r3.Vector) bool {
	if p.X < b.Min.X || p.X >= b.Max.X {
		return false
	}
	if p.Y < b.Min.Y || p.Y >= b.Max.Y {
		return false
	}
	if p.Z < b.Min.Z || p.Z >= b.Max.Z {
		return false
	}
	return true
}

// Size returns the edge length along x. Octree nodes are cubes so this is the
// edge length on every axis.
func (b Box) Size() float64 {
	return b.Max.X - b.Min.X
}

func (b Box) Extents() r3.Vector {
	return b.Max.Sub(b.Min)
}

func (b Box) Center() r3.Vector {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b Box) Volume() float64 {
	e := b.Extents()
	return e.X * e.Y * e.Z
}

// Corners returns the 8 corners of the box. Corner i takes the minimum on
// the axes whose bit is set in i (bit 0 = x, bit 1 = y, bit 2 = z).
func (b Box) Corners() [8]r3.Vector {
	var corners [8]r3.Vector
	for i := 0; i < 8; i++ {
		c := b.Max
		if i&1 != 0 {
			c.X = b.Min.X
		}
		if i&2 != 0 {
			c.Y = b.Min.Y
		}
		if i&4 != 0 {
			c.Z = b.Min.Z
		}
		corners[i] = c
	}
	return corners
}

func (b Box) EqualWithEpsilon(o Box, epsilon float64) bool {
	return VectorEqualWithEpsilon(b.Min, o.Min, epsilon) &&
		VectorEqualWithEpsilon(b.Max, o.Max, epsilon)
}

func VectorEqualWithEpsilon(v1 r3.Vector, v2 r3.Vector, epsilon float64) bool {
	return math.Abs(v1.X-v2.X) <= epsilon &&
		math.Abs(v1.Y-v2.Y) <= epsilon &&
		math.Abs(v1.Z-v2.Z) <= epsilon
}
