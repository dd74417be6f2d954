package models

// Raw shared-memory record types. These structs define the exact byte layout
// of the cross-process region, so every field is a fixed-size 4-byte scalar
// and every list has a compile-time capacity. Higher-level wrappers
// (PoseBuffer, CoordsList, CircleList) operate on pointers into these
// records; processes mapping the same segment see the same bytes.

// Capacities of the fixed shared-memory containers.
const (
	PoseBufferCapacity = 256 // retained pose history entries
	CoordsListCapacity = 128 // points per coords list
	CircleListCapacity = 64  // circles per obstacle list
)

// PoseData is the wire representation of a Pose.
type PoseData struct {
	X     float32
	Y     float32
	Angle float32
}

// Pose converts the wire record to the float64 API type.
func (d PoseData) Pose() Pose {
	return Pose{X: float64(d.X), Y: float64(d.Y), Angle: float64(d.Angle)}
}

// Set stores the API pose into the wire record.
func (d *PoseData) Set(p Pose) {
	d.X = float32(p.X)
	d.Y = float32(p.Y)
	d.Angle = float32(p.Angle)
}

// CoordsData is the wire representation of a Coords.
type CoordsData struct {
	X float32
	Y float32
}

// CircleData is the wire representation of a plain circle (detector and
// monitor obstacle lists).
type CircleData struct {
	X      float32
	Y      float32
	Radius float32
}

// PoseBufferData is the wire representation of the pose history ring.
// Head is the next write slot, Tail the oldest entry; Full disambiguates a
// wrapped buffer from an empty one when Head == Tail.
type PoseBufferData struct {
	Poses [PoseBufferCapacity]PoseData
	Head  int32
	Tail  int32
	Full  int32
}

// CoordsListData is a fixed-capacity point list.
type CoordsListData struct {
	Count  int32
	Points [CoordsListCapacity]CoordsData
}

// CircleListData is a fixed-capacity circle list.
type CircleListData struct {
	Count   int32
	Circles [CircleListCapacity]CircleData
}
