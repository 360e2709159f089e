package raster

import (
	"math"
	"sync"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/geom"
	"github.com/stretchr/testify/require"
)

func TestRaster(t *testing.T) {
	r, err := New(4, 3)
	require.NoError(t, err)
	require.Len(t, r.Data, 12)
	require.NoError(t, r.Validate())

	t.Run("set and get a pixel", func(t *testing.T) {
		require.NoError(t, r.Set(3, 2, 200))

		v, err := r.At(3, 2)
		require.NoError(t, err)
		require.Equal(t, byte(200), v)
		require.Equal(t, byte(200), r.Data[2*4+3])
	})

	t.Run("pixel outside of raster", func(t *testing.T) {
		_, err := r.At(4, 0)
		require.True(t, errors.IsType(err, geom.ErrTypeOutOfRange))

		_, err = r.At(0, -1)
		require.True(t, errors.IsType(err, geom.ErrTypeOutOfRange))
	})

	t.Run("clone does not share data", func(t *testing.T) {
		c := r.Clone()
		c.Data[0] = 42
		require.Equal(t, byte(0), r.Data[0])
	})

	t.Run("invalid dimensions", func(t *testing.T) {
		_, err := New(0, 3)
		require.True(t, errors.IsType(err, geom.ErrTypeInvalidConfiguration))

		err = Raster{Width: 2, Height: 2, Data: []byte{1}}.Validate()
		require.True(t, errors.IsType(err, geom.ErrTypeInvalidConfiguration))
	})

	t.Run("dimensions above max axis", func(t *testing.T) {
		_, err := New(MaxAxis+1, 1)
		require.True(t, errors.IsType(err, geom.ErrTypeInvalidConfiguration))

		_, err = New(math.MaxInt, math.MaxInt)
		require.True(t, errors.IsType(err, geom.ErrTypeInvalidConfiguration))

		err = Raster{Width: MaxAxis + 1, Height: 1, Data: make([]byte, MaxAxis+1)}.Validate()
		require.True(t, errors.IsType(err, geom.ErrTypeInvalidConfiguration))
	})

	t.Run("overflowing dimensions with empty data", func(t *testing.T) {
		// 2^32 * 2^32 wraps to 0 on 64 bits.
		side := math.MaxInt>>31 + 1
		err := Raster{Width: side, Height: side}.Validate()
		require.True(t, errors.IsType(err, geom.ErrTypeInvalidConfiguration))
	})

	t.Run("max axis raster", func(t *testing.T) {
		r, err := New(MaxAxis, 1)
		require.NoError(t, err)
		require.NoError(t, r.Validate())
	})
}

func TestPattern(t *testing.T) {
	t.Run("diagonal", func(t *testing.T) {
		r, err := NewPattern(PatternDiagonal, 3, 3)
		require.NoError(t, err)

		first, _ := r.At(0, 0)
		last, _ := r.At(2, 2)
		require.Equal(t, byte(0), first)
		require.Equal(t, byte(255), last)
	})

	t.Run("vertical", func(t *testing.T) {
		r, err := NewPattern(PatternVertical, 2, 5)
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			bottom, _ := r.At(i, 0)
			top, _ := r.At(i, 4)
			require.Equal(t, byte(0), bottom)
			require.Equal(t, byte(255), top)
		}
	})

	t.Run("max", func(t *testing.T) {
		r, err := NewPattern(PatternMax, 2, 2)
		require.NoError(t, err)
		require.Equal(t, []byte{255, 255, 255, 255}, r.Data)
	})

	t.Run("single pixel", func(t *testing.T) {
		r, err := NewPattern(PatternDiagonal, 1, 1)
		require.NoError(t, err)
		require.Equal(t, []byte{255}, r.Data)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewPattern("checkers", 2, 2)
		require.True(t, errors.IsType(err, geom.ErrTypeInvalidConfiguration))
	})
}

func TestMailbox(t *testing.T) {
	var m Mailbox[Raster]

	t.Run("empty mailbox", func(t *testing.T) {
		_, version := m.Get()
		require.Zero(t, version)

		_, _, ok := m.Poll(0)
		require.False(t, ok)
		require.True(t, m.UpdatedAt().IsZero())
	})

	t.Run("put increments version", func(t *testing.T) {
		r, _ := New(1, 1)
		require.Equal(t, uint64(1), m.Put(r))
		require.Equal(t, uint64(2), m.Put(r))
		require.Equal(t, uint64(2), m.Version())
		require.False(t, m.UpdatedAt().IsZero())
	})

	t.Run("poll returns only newer content", func(t *testing.T) {
		r, version, ok := m.Poll(1)
		require.True(t, ok)
		require.Equal(t, uint64(2), version)
		require.Equal(t, 1, r.Width)

		_, version, ok = m.Poll(version)
		require.False(t, ok)
		require.Equal(t, uint64(2), version)
	})

	t.Run("concurrent producers", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				r, _ := New(2, 2)
				m.Put(r)
			}()
		}
		wg.Wait()
		require.Equal(t, uint64(12), m.Version())
	})
}
