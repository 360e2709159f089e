// Package samplestore accumulates byte samples in a sparse octree and keeps
// the points of interest labelled by the operator.
//
// A Store is not safe for concurrent use.
package samplestore

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sowilo/geom"
	"github.com/aukilabs/sowilo/octree"
	"github.com/golang/geo/r3"
	"github.com/google/uuid"
)

// Config describes the octree backing a store.
type Config struct {
	Seed        r3.Vector
	MinSize     float64
	DefaultSize float64
}

// Entry is an occupied leaf of the store.
type Entry struct {
	Bounds   geom.Box  `json:"bounds"`
	Position r3.Vector `json:"position"`
	Value    byte      `json:"value"`
}

// About describes the state of a store.
type About struct {
	octree.Metadata
	Bounds      geom.Box  `json:"bounds"`
	MinSize     float64   `json:"min_size"`
	DefaultSize float64   `json:"default_size"`
	Points      int       `json:"points"`
	LastUpdated time.Time `json:"last_updated"`
}

// Point is a labelled position inside the store.
type Point struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Position  r3.Vector `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	config      Config
	index       *octree.Index[byte]
	points      []Point
	lastUpdated time.Time
}

// New creates an empty store.
func New(c Config) (*Store, error) {
	index, err := octree.NewIndex[byte](c.Seed, c.MinSize, c.DefaultSize)
	if err != nil {
		return nil, errors.New("creating sample store failed").Wrap(err)
	}

	s := &Store{
		config:      c,
		index:       index,
		lastUpdated: time.Now(),
	}
	s.report()
	return s, nil
}

// Set records every sample. When subdivide is true, leaves are split so
// distinct samples keep distinct leaves down to the minimum size. It stops at
// the first failing sample; samples before it stay recorded.
func (s *Store) Set(samples []octree.Sample[byte], subdivide bool) (octree.Delta, error) {
	var change octree.Delta
	defer s.report()

	for _, sample := range samples {
		d, err := s.index.Set(sample.Position, sample.Value, subdivide)
		change = change.Add(d)
		if err != nil {
			setErrors.WithLabelValues(errors.Type(err)).Inc()
			return change, errors.New("setting sample failed").
				WithTag("position", sample.Position).
				Wrap(err)
		}
		samplesSet.Inc()
	}

	s.lastUpdated = time.Now()
	return change, nil
}

// Get returns the value recorded in the leaf containing p.
func (s *Store) Get(p r3.Vector) (byte, error) {
	return s.index.Get(p)
}

// Occupied reports whether the leaf containing p holds a sample.
func (s *Store) Occupied(p r3.Vector) (bool, error) {
	return s.index.Occupied(p)
}

// Contains reports whether p is inside the store without growing it.
func (s *Store) Contains(p r3.Vector) bool {
	return s.index.Contains(p)
}

// Reset discards every sample and point.
func (s *Store) Reset() {
	s.index.Reset()
	s.points = nil
	s.lastUpdated = time.Now()
	s.report()
}

// Clear discards every sample and keeps the points of interest.
func (s *Store) Clear() {
	s.index.Reset()
	s.lastUpdated = time.Now()
	s.report()
}

// Resolution returns the minimum leaf size.
func (s *Store) Resolution() float64 {
	return s.config.MinSize
}

// SetResolution discards every sample and point and restarts with a new
// minimum leaf size. Existing samples are not re-bucketed.
func (s *Store) SetResolution(minSize float64) error {
	c := s.config
	c.MinSize = minSize

	index, err := octree.NewIndex[byte](c.Seed, c.MinSize, c.DefaultSize)
	if err != nil {
		return errors.New("changing sample store resolution failed").Wrap(err)
	}

	s.config = c
	s.index = index
	s.points = nil
	s.lastUpdated = time.Now()
	s.report()
	return nil
}

// Snapshot returns every occupied leaf.
func (s *Store) Snapshot() []Entry {
	entries := make([]Entry, 0, s.index.Metadata().OccupiedLeaves)
	s.index.Walk(func(l octree.Leaf[byte]) bool {
		if l.Occupied {
			entries = append(entries, Entry{
				Bounds:   l.Bounds,
				Position: l.Sample.Position,
				Value:    l.Sample.Value,
			})
		}
		return true
	})
	return entries
}

// About returns the store metadata.
func (s *Store) About() About {
	return About{
		Metadata:    s.index.Metadata(),
		Bounds:      s.index.Bounds(),
		MinSize:     s.index.MinSize(),
		DefaultSize: s.index.DefaultSize(),
		Points:      len(s.points),
		LastUpdated: s.lastUpdated,
	}
}

// SavePoint labels a position. The position must be inside the store.
func (s *Store) SavePoint(label string, p r3.Vector) (Point, error) {
	if !s.index.Contains(p) {
		return Point{}, errors.New("point of interest is outside of the store").
			WithType(geom.ErrTypeOutOfBounds).
			WithTag("label", label).
			WithTag("position", p)
	}

	point := Point{
		ID:        uuid.NewString(),
		Label:     label,
		Position:  p,
		CreatedAt: time.Now(),
	}
	s.points = append(s.points, point)
	return point, nil
}

// Points returns the points of interest in the order they were saved.
func (s *Store) Points() []Point {
	points := make([]Point, len(s.points))
	copy(points, s.points)
	return points
}

func (s *Store) report() {
	m := s.index.Metadata()
	leavesGauge.Set(float64(m.Leaves))
	occupiedLeavesGauge.Set(float64(m.OccupiedLeaves))
	volumeGauge.Set(m.Volume)
	occupiedVolumeGauge.Set(m.OccupiedVolume)
	memoryGauge.Set(float64(m.MemoryFootprint))
}
