package projector

import (
	"math"

	"github.com/aukilabs/sowilo/geom"
)

// AnyInView reports whether a box may be visible from f. It is true when a
// corner of the box is in the field of view, or when corners in front of the
// viewpoint lie on opposite sides of it: diagonal quadrants, left and right
// edges, or top and bottom edges.
func AnyInView(f Frustum, b geom.Box) bool {
	var (
		topRight, topLeft, botLeft, botRight bool
		left, right, top, bot                bool
	)

	halfTheta := f.FOV.Theta / 2
	halfPhi := f.FOV.Phi / 2

	for _, c := range b.Corners() {
		a := f.Angular(c)
		if f.FOV.Contains(a) {
			return true
		}

		// Corners behind the viewpoint cannot span the view.
		if math.Abs(a.Theta) >= 90 {
			continue
		}

		switch {
		case a.Theta > 0 && a.Phi > 0:
			topRight = true
		case a.Theta > 0:
			botRight = true
		case a.Phi > 0:
			topLeft = true
		default:
			botLeft = true
		}

		switch {
		case a.Theta > 0 && math.Abs(a.Phi) < halfPhi:
			right = true
		case a.Theta < 0 && math.Abs(a.Phi) < halfPhi:
			left = true
		case a.Phi > 0 && math.Abs(a.Theta) < halfTheta:
			top = true
		case a.Phi < 0 && math.Abs(a.Theta) < halfTheta:
			bot = true
		}
	}

	return (topRight && botLeft) ||
		(topLeft && botRight) ||
		(left && right) ||
		(top && bot)
}
