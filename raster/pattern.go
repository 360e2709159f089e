package raster

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/geom"
)

// Pattern is a synthetic raster used until the sensor delivers a frame.
type Pattern string

const (
	PatternDiagonal Pattern = "diagonal"
	PatternVertical Pattern = "vertical"
	PatternMax      Pattern = "max"
)

// NewPattern returns a width x height raster filled with p.
func NewPattern(p Pattern, width int, height int) (Raster, error) {
	r, err := New(width, height)
	if err != nil {
		return Raster{}, err
	}

	var fill func(i, j int) byte
	switch p {
	case PatternDiagonal:
		fill = func(i, j int) byte {
			return gradient(i+j, width+height-2)
		}

	case PatternVertical:
		fill = func(i, j int) byte {
			return gradient(j, height-1)
		}

	case PatternMax:
		fill = func(i, j int) byte {
			return 255
		}

	default:
		return Raster{}, errors.New("unknown raster pattern").
			WithType(geom.ErrTypeInvalidConfiguration).
			WithTag("pattern", p)
	}

	for j := 0; j < height; j++ {
		for i := 0; i < width; i++ {
			r.Data[j*width+i] = fill(i, j)
		}
	}
	return r, nil
}

func gradient(step int, steps int) byte {
	if steps <= 0 {
		return 255
	}
	return byte(255 * step / steps)
}
