// Package profile loads the sensor profile: the sensor optics and mounting,
// the occlusion sizing, the proximity range and the sample store resolution.
//
// Profiles are YAML or TOML files. Fields left out keep their default value.
package profile

import (
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/geom"
	"github.com/aukilabs/sowilo/octree"
	"github.com/aukilabs/sowilo/projector"
	"github.com/aukilabs/sowilo/raster"
	"github.com/aukilabs/sowilo/samplestore"
	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"
)

type Profile struct {
	Sensor    Sensor    `yaml:"sensor"    toml:"sensor"`
	Occlusion Occlusion `yaml:"occlusion" toml:"occlusion"`
	Proximity Proximity `yaml:"proximity" toml:"proximity"`
	Store     Store     `yaml:"store"     toml:"store"`
}

type Sensor struct {
	// Actual field of view of the sensor in degrees.
	FOV Angles `yaml:"fov" toml:"fov"`

	// Factor applied to each axis of the field of view.
	FOVReduction Angles `yaml:"fov_reduction" toml:"fov_reduction"`

	// Position of the sensor relative to the headset, in meters.
	Offset Vector `yaml:"offset" toml:"offset"`

	// Raster used until the sensor sends its first frame.
	DefaultPattern string `yaml:"default_pattern" toml:"default_pattern"`
	DefaultWidth   int    `yaml:"default_width"   toml:"default_width"`
	DefaultHeight  int    `yaml:"default_height"  toml:"default_height"`
}

type Occlusion struct {
	// Minimum size, in meters, of an object that hides what is behind it.
	ObjectSize float64 `yaml:"object_size" toml:"object_size"`

	// Distance at which the object size is evaluated, in meters.
	ObjectDistance float64 `yaml:"object_distance" toml:"object_distance"`
}

type Proximity struct {
	Near float64 `yaml:"near" toml:"near"`
	Far  float64 `yaml:"far"  toml:"far"`
}

type Store struct {
	MinSize     float64 `yaml:"min_size"     toml:"min_size"`
	DefaultSize float64 `yaml:"default_size" toml:"default_size"`
	Seed        Vector  `yaml:"seed"         toml:"seed"`
}

type Angles struct {
	Theta float64 `yaml:"theta" toml:"theta"`
	Phi   float64 `yaml:"phi"   toml:"phi"`
}

type Vector struct {
	X float64 `yaml:"x" toml:"x"`
	Y float64 `yaml:"y" toml:"y"`
	Z float64 `yaml:"z" toml:"z"`
}

func (v Vector) R3() r3.Vector {
	return r3.Vector{X: v.X, Y: v.Y, Z: v.Z}
}

// Default returns the profile of the reference sensor.
func Default() Profile {
	return Profile{
		Sensor: Sensor{
			FOV:            Angles{Theta: 30, Phi: 17},
			FOVReduction:   Angles{Theta: 1, Phi: 1},
			DefaultPattern: string(raster.PatternDiagonal),
			DefaultWidth:   160,
			DefaultHeight:  90,
		},
		Occlusion: Occlusion{
			ObjectSize:     0.1,
			ObjectDistance: 5,
		},
		Proximity: Proximity{
			Near: 0.5,
			Far:  5,
		},
		Store: Store{
			MinSize:     0.1,
			DefaultSize: 1,
		},
	}
}

// Load reads the profile at path over the default profile. The format is
// picked from the file extension.
func Load(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, errors.New("reading profile failed").
			WithTag("path", path).
			Wrap(err)
	}

	p := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)

	case ".toml":
		err = toml.Unmarshal(data, &p)

	default:
		return Profile{}, errors.New("unsupported profile format").
			WithType(geom.ErrTypeInvalidConfiguration).
			WithTag("path", path).
			WithTag("extension", ext)
	}
	if err != nil {
		return Profile{}, errors.New("parsing profile failed").
			WithType(geom.ErrTypeInvalidConfiguration).
			WithTag("path", path).
			Wrap(err)
	}

	if err := p.Validate(); err != nil {
		return Profile{}, errors.New("invalid profile").
			WithTag("path", path).
			Wrap(err)
	}
	return p, nil
}

// Validate checks that every component built from the profile can be
// created.
func (p Profile) Validate() error {
	if _, err := projector.NewFrustum(r3.Vector{}, projector.EulerOrientation(0, 0, 0), p.FOV()); err != nil {
		return err
	}

	if _, _, err := projector.GridSize(p.Occlusion.ObjectSize, p.Occlusion.ObjectDistance, p.FOV()); err != nil {
		return err
	}

	if _, err := projector.NewProximitySource(p.Proximity.Near, p.Proximity.Far); err != nil {
		return err
	}

	if _, err := raster.NewPattern(raster.Pattern(p.Sensor.DefaultPattern), p.Sensor.DefaultWidth, p.Sensor.DefaultHeight); err != nil {
		return err
	}

	if !geom.IsFinite(p.Sensor.Offset.R3()) {
		return errors.New("sensor offset is not finite").
			WithType(geom.ErrTypeInvalidConfiguration).
			WithTag("offset", p.Sensor.Offset)
	}

	if !isFactor(p.Sensor.FOVReduction.Theta) || !isFactor(p.Sensor.FOVReduction.Phi) {
		return errors.New("field of view reduction must be in (0, 1]").
			WithType(geom.ErrTypeInvalidConfiguration).
			WithTag("fov_reduction", p.Sensor.FOVReduction)
	}

	c := p.StoreConfig()
	if _, err := octree.NewIndex[byte](c.Seed, c.MinSize, c.DefaultSize); err != nil {
		return err
	}
	return nil
}

// FOV returns the field of view after reduction.
func (p Profile) FOV() projector.AngularVector {
	return projector.AngularVector{
		Theta: p.Sensor.FOV.Theta * p.Sensor.FOVReduction.Theta,
		Phi:   p.Sensor.FOV.Phi * p.Sensor.FOVReduction.Phi,
	}
}

// ProximitySource returns the proximity value source. It must only be called
// on a validated profile.
func (p Profile) ProximitySource() projector.ProximitySource {
	return projector.ProximitySource{
		Near: p.Proximity.Near,
		Far:  p.Proximity.Far,
	}
}

// DefaultRaster returns the raster used before the first sensor frame.
func (p Profile) DefaultRaster() (raster.Raster, error) {
	return raster.NewPattern(raster.Pattern(p.Sensor.DefaultPattern), p.Sensor.DefaultWidth, p.Sensor.DefaultHeight)
}

func (p Profile) StoreConfig() samplestore.Config {
	return samplestore.Config{
		Seed:        p.Store.Seed.R3(),
		MinSize:     p.Store.MinSize,
		DefaultSize: p.Store.DefaultSize,
	}
}

func isFactor(f float64) bool {
	return f > 0 && f <= 1 && !math.IsNaN(f)
}
