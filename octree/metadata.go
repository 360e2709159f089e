package octree

const (
	// ContainerByteCost is the memory cost of a container. Containers only
	// own their children.
	ContainerByteCost = 0

	// LeafByteCost is the memory cost of a leaf: occupancy flag, bounds,
	// sample position, a one byte sample value and bookkeeping.
	LeafByteCost = 130
)

// Delta is the change of the index aggregates produced by a mutation.
type Delta struct {
	Components     int
	Leaves         int
	OccupiedLeaves int
	Volume         float64
	OccupiedVolume float64
}

func (d Delta) Add(o Delta) Delta {
	return Delta{
		Components:     d.Components + o.Components,
		Leaves:         d.Leaves + o.Leaves,
		OccupiedLeaves: d.OccupiedLeaves + o.OccupiedLeaves,
		Volume:         d.Volume + o.Volume,
		OccupiedVolume: d.OccupiedVolume + o.OccupiedVolume,
	}
}

// Metadata holds the aggregates of an index.
type Metadata struct {
	Components      int     `json:"components"`
	Leaves          int     `json:"leaves"`
	OccupiedLeaves  int     `json:"occupied_leaves"`
	Volume          float64 `json:"volume"`
	OccupiedVolume  float64 `json:"occupied_volume"`
	MemoryFootprint int     `json:"memory_footprint"`
}

// Containers returns the number of non-leaf nodes.
func (m Metadata) Containers() int {
	return m.Components - m.Leaves
}

func (m *Metadata) apply(d Delta) {
	m.Components += d.Components
	m.Leaves += d.Leaves
	m.OccupiedLeaves += d.OccupiedLeaves
	m.Volume += d.Volume
	m.OccupiedVolume += d.OccupiedVolume
	m.MemoryFootprint = memoryFootprint(m.Containers(), m.Leaves)
}

func memoryFootprint(containers int, leaves int) int {
	return containers*ContainerByteCost + leaves*LeafByteCost
}
