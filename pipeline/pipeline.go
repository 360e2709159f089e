// Package pipeline runs the frame loop: once per frame it takes the latest
// raster, pose and meshes, projects the raster onto the visible vertices and
// records the resulting samples in the store.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/sowilo/featureflag"
	"github.com/aukilabs/sowilo/profile"
	"github.com/aukilabs/sowilo/projector"
	"github.com/aukilabs/sowilo/raster"
	"github.com/aukilabs/sowilo/samplestore"
	"github.com/golang/geo/r3"
)

const (
	ErrTypeInvalidRaster = "invalid-raster"
	ErrTypeInvalidPose   = "invalid-pose"
)

// Result describes a cycle.
type Result struct {
	Projected     bool            `json:"projected"`
	Samples       int             `json:"samples"`
	Stats         projector.Stats `json:"stats"`
	RasterVersion uint64          `json:"raster_version"`
	PoseVersion   uint64          `json:"pose_version"`
	MeshVersion   uint64          `json:"mesh_version"`
	Duration      time.Duration   `json:"duration"`
}

// Status is what the pipeline publishes for readers outside the frame loop.
type Status struct {
	Store        samplestore.About `json:"store"`
	Last         Result            `json:"last"`
	Cycles       uint64            `json:"cycles"`
	FeatureFlags []string          `json:"feature_flags"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type Pipeline struct {
	// The duration of a frame.
	FrameDuration time.Duration

	// The minimum duration between two store snapshots.
	SnapshotInterval time.Duration

	profile      profile.Profile
	featureFlags featureflag.FeatureFlag
	inputs       *Inputs
	store        *samplestore.Store
	projector    projector.Projector

	raster        raster.Raster
	rasterVersion uint64
	pose          projector.Pose
	poseVersion   uint64
	meshVersion   uint64
	cycleCount    atomic.Uint64

	lastSnapshot time.Time

	storeMutex sync.Mutex

	mutex    sync.RWMutex
	status   Status
	snapshot []samplestore.Entry
	points   []samplestore.Point
}

// New creates a pipeline reading from inputs. The profile must be valid.
func New(p profile.Profile, flags featureflag.FeatureFlag, inputs *Inputs) (*Pipeline, error) {
	store, err := samplestore.New(p.StoreConfig())
	if err != nil {
		return nil, errors.New("creating pipeline failed").Wrap(err)
	}

	defaultRaster, err := p.DefaultRaster()
	if err != nil {
		return nil, errors.New("creating pipeline failed").Wrap(err)
	}

	pl := &Pipeline{
		FrameDuration:    time.Millisecond * 33,
		SnapshotInterval: time.Second,
		profile:          p,
		featureFlags:     flags,
		inputs:           inputs,
		store:            store,
		projector: projector.Projector{
			ObjectSize:           p.Occlusion.ObjectSize,
			ObjectDistance:       p.Occlusion.ObjectDistance,
			DisableBoundsCulling: flags.IsSet(featureflag.FlagDisableBoundsCulling),
		},
		raster: defaultRaster,
	}
	pl.publish(Result{}, true)
	return pl, nil
}

// Run runs a cycle every frame until ctx is done. Failing cycles are logged
// and do not stop the loop.
func (p *Pipeline) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.FrameDuration)
	defer ticker.Stop()

	logs.WithTag("frame_duration", p.FrameDuration).
		WithTag("feature_flags", p.featureFlags.List()).
		Info("starting frame loop")

	for {
		select {
		case <-ctx.Done():
			logs.WithTag("cycles", p.cycleCount.Load()).Info("stopping frame loop")
			return ctx.Err()

		case <-ticker.C:
			if _, err := p.Cycle(); err != nil {
				logs.Warn(errors.New("frame loop cycle failed").Wrap(err))
			}
		}
	}
}

// Cycle runs a single frame. Nothing is projected until a pose was received,
// nor when no input changed since the previous cycle.
func (p *Pipeline) Cycle() (Result, error) {
	start := time.Now()
	p.cycleCount.Add(1)

	res, err := p.cycle()
	res.Duration = time.Since(start)

	switch {
	case err != nil:
		cycles.WithLabelValues(resultFailed).Inc()
		cycleErrors.WithLabelValues(errors.Type(err)).Inc()

	case res.Projected:
		cycles.WithLabelValues(resultProjected).Inc()

	default:
		cycles.WithLabelValues(resultSkipped).Inc()
	}

	if err == nil && res.Projected {
		publishStart := time.Now()
		p.publish(res, false)
		stageLatency.WithLabelValues(stagePublish).Observe(time.Since(publishStart).Seconds())

		logs.WithTag("samples", res.Samples).
			WithTag("checked", res.Stats.Checked).
			WithTag("in_view", res.Stats.InView).
			WithTag("retained", res.Stats.Retained).
			WithTag("raster_version", res.RasterVersion).
			WithTag("pose_version", res.PoseVersion).
			WithTag("duration", res.Duration).
			Debug("frame projected")
	}
	return res, err
}

func (p *Pipeline) cycle() (Result, error) {
	pollStart := time.Now()
	changed, err := p.poll()
	stageLatency.WithLabelValues(stagePoll).Observe(time.Since(pollStart).Seconds())

	res := Result{
		RasterVersion: p.rasterVersion,
		PoseVersion:   p.poseVersion,
		MeshVersion:   p.meshVersion,
	}
	if err != nil {
		return res, err
	}
	if !changed || p.poseVersion == 0 {
		return res, nil
	}

	frustum, err := p.pose.Frustum(p.profile.Sensor.Offset.R3(), p.profile.FOV())
	if err != nil {
		return res, errors.New("creating sensor frustum failed").
			WithType(ErrTypeInvalidPose).
			WithTag("pose_version", p.poseVersion).
			Wrap(err)
	}

	var source projector.ValueSource = projector.RasterSource{Raster: p.raster}
	p.featureFlags.IfSet(featureflag.FlagProximityMode, func() {
		source = p.profile.ProximitySource()
	})

	batches, _ := p.inputs.Meshes()

	projectStart := time.Now()
	samples, err := p.projector.Project(frustum, batches, source)
	stageLatency.WithLabelValues(stageProject).Observe(time.Since(projectStart).Seconds())
	if err != nil {
		return res, errors.New("projecting raster failed").Wrap(err)
	}

	res.Stats = p.projector.Stats()
	vertices.WithLabelValues("checked").Set(float64(res.Stats.Checked))
	vertices.WithLabelValues("in_view").Set(float64(res.Stats.InView))
	vertices.WithLabelValues("retained").Set(float64(res.Stats.Retained))
	if updatedAt := p.inputs.rasters.UpdatedAt(); !updatedAt.IsZero() {
		rasterAge.Set(time.Since(updatedAt).Seconds())
	}

	storeStart := time.Now()
	p.storeMutex.Lock()
	p.featureFlags.IfSet(featureflag.FlagLiveOnly, p.store.Clear)

	subdivide := !p.featureFlags.IsSet(featureflag.FlagDisableSubdivide)
	_, err = p.store.Set(samples, subdivide)
	p.storeMutex.Unlock()
	stageLatency.WithLabelValues(stageStore).Observe(time.Since(storeStart).Seconds())
	if err != nil {
		return res, errors.New("recording samples failed").Wrap(err)
	}

	res.Projected = true
	res.Samples = len(samples)
	return res, nil
}

// poll takes the latest inputs and reports whether any of them changed.
func (p *Pipeline) poll() (bool, error) {
	var changed bool

	if r, version, ok := p.inputs.rasters.Poll(p.rasterVersion); ok {
		p.rasterVersion = version
		if err := r.Validate(); err != nil {
			return false, errors.New("received raster is invalid").
				WithType(ErrTypeInvalidRaster).
				WithTag("raster_version", version).
				Wrap(err)
		}
		p.raster = r
		changed = true
	}

	if pose, version, ok := p.inputs.poses.Poll(p.poseVersion); ok {
		p.pose = pose
		p.poseVersion = version
		changed = true
	}

	if version := p.inputs.MeshVersion(); version != p.meshVersion {
		p.meshVersion = version
		changed = true
	}

	return changed, nil
}

func (p *Pipeline) publish(res Result, force bool) {
	p.storeMutex.Lock()
	var snapshot []samplestore.Entry
	takeSnapshot := force || time.Since(p.lastSnapshot) >= p.SnapshotInterval
	if takeSnapshot {
		snapshot = p.store.Snapshot()
		p.lastSnapshot = time.Now()
	}

	status := Status{
		Store:        p.store.About(),
		Last:         res,
		Cycles:       p.cycleCount.Load(),
		FeatureFlags: p.featureFlags.List(),
		UpdatedAt:    time.Now(),
	}
	points := p.store.Points()
	p.storeMutex.Unlock()

	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.status = status
	p.points = points
	if takeSnapshot {
		p.snapshot = snapshot
	}
}

// Status returns the last published status.
func (p *Pipeline) Status() Status {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return p.status
}

// Snapshot returns the occupied leaves of the last published snapshot.
func (p *Pipeline) Snapshot() []samplestore.Entry {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return p.snapshot
}

// Points returns the points of interest of the last published status.
func (p *Pipeline) Points() []samplestore.Point {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return p.points
}

// Ready reports whether a sensor raster was received.
func (p *Pipeline) Ready() bool {
	return p.inputs.RasterVersion() != 0
}

// SavePoint labels a position of the store.
func (p *Pipeline) SavePoint(label string, pos r3.Vector) (samplestore.Point, error) {
	p.storeMutex.Lock()
	point, err := p.store.SavePoint(label, pos)
	points := p.store.Points()
	p.storeMutex.Unlock()
	if err != nil {
		return samplestore.Point{}, err
	}

	p.mutex.Lock()
	p.points = points
	p.mutex.Unlock()

	logs.WithTag("id", point.ID).
		WithTag("label", label).
		WithTag("position", pos).
		Info("point of interest saved")
	return point, nil
}

// SetResolution restarts the store with a new minimum leaf size.
func (p *Pipeline) SetResolution(minSize float64) error {
	p.storeMutex.Lock()
	err := p.store.SetResolution(minSize)
	p.storeMutex.Unlock()
	if err != nil {
		return err
	}

	p.publish(p.Status().Last, true)
	logs.WithTag("min_size", minSize).Info("sample store resolution changed")
	return nil
}
