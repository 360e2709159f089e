// Package raster holds the 2D intensity rasters produced by the sensor and
// the mailbox through which they are handed to the frame loop.
package raster

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/geom"
)

// MaxAxis is the maximum raster width or height.
const MaxAxis = 1 << 14

// Raster is a width x height grid of intensity bytes stored row by row.
// Row 0 is the bottom of the sensor image.
type Raster struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"data"`
}

// New returns a zeroed raster.
func New(width int, height int) (Raster, error) {
	if err := validateDimensions(width, height); err != nil {
		return Raster{}, err
	}

	return Raster{
		Width:  width,
		Height: height,
		Data:   make([]byte, width*height),
	}, nil
}

// Validate checks the dimensions and that the data length matches them.
func (r Raster) Validate() error {
	if err := validateDimensions(r.Width, r.Height); err != nil {
		return err
	}

	if len(r.Data) != r.Width*r.Height {
		return errors.New("raster data does not match its dimensions").
			WithType(geom.ErrTypeInvalidConfiguration).
			WithTag("width", r.Width).
			WithTag("height", r.Height).
			WithTag("length", len(r.Data))
	}
	return nil
}

func validateDimensions(width int, height int) error {
	if width <= 0 || height <= 0 || width > MaxAxis || height > MaxAxis {
		return errors.New("raster dimensions must be positive and at most max axis").
			WithType(geom.ErrTypeInvalidConfiguration).
			WithTag("width", width).
			WithTag("height", height).
			WithTag("max_axis", MaxAxis)
	}
	return nil
}

// Index returns the position of pixel (i, j) in Data.
func (r Raster) Index(i int, j int) (int, error) {
	if i < 0 || i >= r.Width || j < 0 || j >= r.Height {
		return 0, errors.New("pixel is outside of the raster").
			WithType(geom.ErrTypeOutOfRange).
			WithTag("i", i).
			WithTag("j", j).
			WithTag("width", r.Width).
			WithTag("height", r.Height)
	}

	index := j*r.Width + i
	if index >= len(r.Data) {
		return 0, errors.New("pixel index is greater than raster data").
			WithType(geom.ErrTypeOutOfRange).
			WithTag("index", index).
			WithTag("length", len(r.Data))
	}
	return index, nil
}

// At returns the value of pixel (i, j).
func (r Raster) At(i int, j int) (byte, error) {
	index, err := r.Index(i, j)
	if err != nil {
		return 0, err
	}
	return r.Data[index], nil
}

// Set changes the value of pixel (i, j).
func (r Raster) Set(i int, j int, v byte) error {
	index, err := r.Index(i, j)
	if err != nil {
		return err
	}
	r.Data[index] = v
	return nil
}

// Clone returns a deep copy of r.
func (r Raster) Clone() Raster {
	data := make([]byte, len(r.Data))
	copy(data, r.Data)
	r.Data = data
	return r
}
