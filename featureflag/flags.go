package featureflag

type Flag string

const (
	// Values come from the distance to the sensor instead of the raster.
	FlagProximityMode Flag = "PROXIMITY_MODE"

	// The store is emptied before each cycle so it only holds what the
	// sensor currently sees.
	FlagLiveOnly Flag = "LIVE_ONLY"

	// Leaves are overwritten instead of being split.
	FlagDisableSubdivide Flag = "DISABLE_SUBDIVIDE"

	// Every visible batch is projected vertex by vertex.
	FlagDisableBoundsCulling Flag = "DISABLE_BOUNDS_CULLING"
)
