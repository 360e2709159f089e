package geom

// Error types shared by the spatial packages. They are attached to errors with
// WithType and matched with errors.IsType.
const (
	// The target point is not contained by the current structure.
	ErrTypeOutOfBounds = "out-of-bounds"

	// A computed raster or grid index falls outside its extent.
	ErrTypeOutOfRange = "out-of-range"

	// A size, field of view or input point cannot be used.
	ErrTypeInvalidConfiguration = "invalid-configuration"

	// A container failed to route a point to exactly one child.
	ErrTypeInternalInconsistency = "internal-inconsistency"
)
