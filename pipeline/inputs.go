package pipeline

import (
	"sort"
	"sync"

	"github.com/aukilabs/sowilo/projector"
	"github.com/aukilabs/sowilo/raster"
)

// Inputs collects what producers hand to the frame loop. It is safe for
// concurrent use.
type Inputs struct {
	rasters raster.Mailbox[raster.Raster]
	poses   raster.Mailbox[projector.Pose]

	meshMutex   sync.Mutex
	meshes      map[string]projector.Batch
	meshVersion uint64
}

// PutRaster replaces the current sensor raster and returns its version. The
// raster must not be modified afterward.
func (in *Inputs) PutRaster(r raster.Raster) uint64 {
	return in.rasters.Put(r)
}

// PutPose replaces the current headset pose and returns its version.
func (in *Inputs) PutPose(p projector.Pose) uint64 {
	return in.poses.Put(p)
}

// PutMesh adds or replaces the batch with the same name and returns the
// catalogue version.
func (in *Inputs) PutMesh(b projector.Batch) uint64 {
	in.meshMutex.Lock()
	defer in.meshMutex.Unlock()

	if in.meshes == nil {
		in.meshes = make(map[string]projector.Batch)
	}
	in.meshes[b.Name] = b
	in.meshVersion++
	return in.meshVersion
}

// RemoveMesh removes a batch and reports whether it existed.
func (in *Inputs) RemoveMesh(name string) bool {
	in.meshMutex.Lock()
	defer in.meshMutex.Unlock()

	if _, ok := in.meshes[name]; !ok {
		return false
	}
	delete(in.meshes, name)
	in.meshVersion++
	return true
}

// Meshes returns the batches sorted by name with the catalogue version.
func (in *Inputs) Meshes() ([]projector.Batch, uint64) {
	in.meshMutex.Lock()
	defer in.meshMutex.Unlock()

	batches := make([]projector.Batch, 0, len(in.meshes))
	for _, b := range in.meshes {
		batches = append(batches, b)
	}
	sort.Slice(batches, func(i, j int) bool {
		return batches[i].Name < batches[j].Name
	})
	return batches, in.meshVersion
}

// MeshVersion returns the catalogue version.
func (in *Inputs) MeshVersion() uint64 {
	in.meshMutex.Lock()
	defer in.meshMutex.Unlock()

	return in.meshVersion
}

// RasterVersion returns the version of the last raster put.
func (in *Inputs) RasterVersion() uint64 {
	return in.rasters.Version()
}
