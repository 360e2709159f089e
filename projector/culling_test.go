package projector

import (
	"testing"

	"github.com/aukilabs/sowilo/geom"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/require"
)

func TestAnyInView(t *testing.T) {
	f := Frustum{
		Orientation: mgl64.QuatIdent(),
		FOV:         AngularVector{Theta: 60, Phi: 60},
	}

	t.Run("corner in view", func(t *testing.T) {
		require.True(t, AnyInView(f, geom.Box{
			Min: r3.Vector{X: -0.5, Y: -0.5, Z: 2},
			Max: r3.Vector{X: 0.5, Y: 0.5, Z: 3},
		}))
	})

	t.Run("box behind", func(t *testing.T) {
		require.False(t, AnyInView(f, geom.Box{
			Min: r3.Vector{X: -1, Y: -1, Z: -5},
			Max: r3.Vector{X: 1, Y: 1, Z: -4},
		}))
	})

	t.Run("diagonal corners span the view", func(t *testing.T) {
		require.True(t, AnyInView(f, geom.Box{
			Min: r3.Vector{X: -10, Y: -10, Z: 1},
			Max: r3.Vector{X: 10, Y: 10, Z: 2},
		}))
	})

	t.Run("left and right edges span the view", func(t *testing.T) {
		require.True(t, AnyInView(f, geom.Box{
			Min: r3.Vector{X: -10, Y: 0.5, Z: 1},
			Max: r3.Vector{X: 10, Y: 0.6, Z: 1.1},
		}))
	})

	t.Run("top and bottom edges span the view", func(t *testing.T) {
		require.True(t, AnyInView(f, geom.Box{
			Min: r3.Vector{X: 0.5, Y: -10, Z: 1},
			Max: r3.Vector{X: 0.6, Y: 10, Z: 1.1},
		}))
	})

	t.Run("box on one side", func(t *testing.T) {
		require.False(t, AnyInView(f, geom.Box{
			Min: r3.Vector{X: -10, Y: -1, Z: 1},
			Max: r3.Vector{X: -9, Y: 1, Z: 2},
		}))
	})
}
