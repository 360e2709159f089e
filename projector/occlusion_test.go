package projector

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/geom"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/require"
)

func TestGridSize(t *testing.T) {
	t.Run("cells cover the apparent object size", func(t *testing.T) {
		cols, rows, err := GridSize(0.1, 1, AngularVector{Theta: 60, Phi: 60})
		require.NoError(t, err)
		require.Equal(t, 13, cols)
		require.Equal(t, 13, rows)
	})

	t.Run("at least one cell per axis", func(t *testing.T) {
		cols, rows, err := GridSize(100, 1, AngularVector{Theta: 200, Phi: 10})
		require.NoError(t, err)
		require.Equal(t, 1, cols)
		require.Equal(t, 1, rows)
	})

	t.Run("invalid object size", func(t *testing.T) {
		_, _, err := GridSize(0, 1, AngularVector{Theta: 60, Phi: 60})
		require.True(t, errors.IsType(err, geom.ErrTypeInvalidConfiguration))
	})

	t.Run("invalid field of view", func(t *testing.T) {
		_, _, err := GridSize(0.1, 1, AngularVector{Theta: 60})
		require.True(t, errors.IsType(err, geom.ErrTypeInvalidConfiguration))
	})
}

func TestOcclusionGrid(t *testing.T) {
	fov := AngularVector{Theta: 60, Phi: 60}
	near := Hit{Point: r3.Vector{Z: 1}, Distance: 1}
	far := Hit{Point: r3.Vector{Z: 2}, Distance: 2}

	t.Run("closest wins when inserted first", func(t *testing.T) {
		g, err := NewOcclusionGridSize(1, 1, fov)
		require.NoError(t, err)

		retained, err := g.Offer(near)
		require.NoError(t, err)
		require.True(t, retained)

		retained, err = g.Offer(far)
		require.NoError(t, err)
		require.False(t, retained)
		require.Equal(t, []Hit{near}, g.Points())
	})

	t.Run("closest wins when inserted last", func(t *testing.T) {
		g, err := NewOcclusionGridSize(1, 1, fov)
		require.NoError(t, err)

		_, err = g.Offer(far)
		require.NoError(t, err)
		retained, err := g.Offer(near)
		require.NoError(t, err)
		require.True(t, retained)
		require.Equal(t, []Hit{near}, g.Points())
	})

	t.Run("ties keep the first point", func(t *testing.T) {
		g, err := NewOcclusionGridSize(1, 1, fov)
		require.NoError(t, err)

		other := Hit{Point: r3.Vector{X: 0.01, Z: 1}, Distance: 1}
		_, err = g.Offer(near)
		require.NoError(t, err)
		retained, err := g.Offer(other)
		require.NoError(t, err)
		require.False(t, retained)
		require.Equal(t, []Hit{near}, g.Points())
	})

	t.Run("distinct cells keep their own point", func(t *testing.T) {
		g, err := NewOcclusionGridSize(2, 1, fov)
		require.NoError(t, err)

		left := Hit{Point: r3.Vector{X: -1, Z: 3}, Angle: AngularVector{Theta: -10}, Distance: 3}
		right := Hit{Point: r3.Vector{X: 1, Z: 3}, Angle: AngularVector{Theta: 10}, Distance: 3}
		_, err = g.Offer(right)
		require.NoError(t, err)
		_, err = g.Offer(left)
		require.NoError(t, err)
		require.Equal(t, []Hit{left, right}, g.Points())
	})

	t.Run("reset", func(t *testing.T) {
		g, err := NewOcclusionGridSize(3, 3, fov)
		require.NoError(t, err)
		cols, rows := g.Dims()
		require.Equal(t, 3, cols)
		require.Equal(t, 3, rows)

		_, err = g.Offer(near)
		require.NoError(t, err)
		g.Reset()
		require.Empty(t, g.Points())
	})

	t.Run("outside of field of view", func(t *testing.T) {
		g, err := NewOcclusionGridSize(3, 3, fov)
		require.NoError(t, err)

		_, err = g.Offer(Hit{Angle: AngularVector{Theta: 45}})
		require.True(t, errors.IsType(err, geom.ErrTypeOutOfRange))
	})

	t.Run("invalid size", func(t *testing.T) {
		_, err := NewOcclusionGridSize(0, 3, fov)
		require.True(t, errors.IsType(err, geom.ErrTypeInvalidConfiguration))
	})
}
