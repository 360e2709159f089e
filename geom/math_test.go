package geom

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/require"
)

func TestAngleConversion(t *testing.T) {
	require.InDelta(t, math.Pi, DegToRad(180), 1e-12)
	require.InDelta(t, 90, RadToDeg(math.Pi/2), 1e-12)
}

func TestIsFinite(t *testing.T) {
	require.True(t, IsFinite(r3.Vector{X: 1, Y: -2, Z: 3}))
	require.False(t, IsFinite(r3.Vector{X: math.NaN()}))
	require.False(t, IsFinite(r3.Vector{Y: math.Inf(1)}))
	require.False(t, IsFinite(r3.Vector{Z: math.Inf(-1)}))
}

func TestBoxContains(t *testing.T) {
	box := NewCube(r3.Vector{}, 1)

	t.Run("min corner is inside", func(t *testing.T) {
		require.True(t, box.Contains(r3.Vector{}))
	})

	t.Run("max faces are outside", func(t *testing.T) {
		require.False(t, box.Contains(r3.Vector{X: 1, Y: 0.5, Z: 0.5}))
		require.False(t, box.Contains(r3.Vector{X: 0.5, Y: 1, Z: 0.5}))
		require.False(t, box.Contains(r3.Vector{X: 0.5, Y: 0.5, Z: 1}))
	})

	t.Run("below min is outside", func(t *testing.T) {
		require.False(t, box.Contains(r3.Vector{X: -0.0001, Y: 0.5, Z: 0.5}))
	})
}

func TestBoxMeasures(t *testing.T) {
	box := NewCube(r3.Vector{}, 2)

	require.Equal(t, r3.Vector{}, box.Min)
	require.Equal(t, r3.Vector{X: 2, Y: 2, Z: 2}, box.Max)
	require.Equal(t, 2.0, box.Size())
	require.Equal(t, 8.0, box.Volume())
	require.Equal(t, r3.Vector{X: 1, Y: 1, Z: 1}, box.Center())
}

func TestBoxCorners(t *testing.T) {
	box := NewCube(r3.Vector{}, 1)
	corners := box.Corners()

	require.Equal(t, box.Max, corners[0])
	require.Equal(t, box.Min, corners[7])

	seen := make(map[r3.Vector]struct{})
	for _, c := range corners {
		seen[c] = struct{}{}
	}
	require.Len(t, seen, 8)
}
