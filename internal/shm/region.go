package shm

import (
	"fmt"
	"log"
	"unsafe"

	"github.com/banshee-data/navcore/internal/models"
)

// Capacities of the region's fixed buffers.
const (
	// MaxLidarPoints bounds the scan and world-coordinate buffers. One spin
	// of the supported sensors yields at most ~500 points after filtering.
	MaxLidarPoints = 1024
	// MaxPathPoses bounds the planner's published path.
	MaxPathPoses = 64
	// MaxObstacles bounds the planner-provided obstacle lists.
	MaxObstacles = 32
	// CameraFrameBytes bounds the camera/simulation frame buffer.
	CameraFrameBytes = 64 * 1024
)

// ObstacleCircleData is the wire record of a planner-provided circle
// obstacle.
type ObstacleCircleData struct {
	ID                uint32
	Center            models.PoseData
	Radius            float32
	BoundingBoxMargin float32
	BoundingBoxPoints int32
}

// ObstacleRectangleData is the wire record of a planner-provided rectangle
// obstacle.
type ObstacleRectangleData struct {
	ID                uint32
	Center            models.PoseData
	LengthX           float32
	LengthY           float32
	BoundingBoxMargin float32
}

// ObstacleCircleListData is a fixed-capacity circle obstacle list.
type ObstacleCircleListData struct {
	Count int32
	Items [MaxObstacles]ObstacleCircleData
}

// ObstacleRectangleListData is a fixed-capacity rectangle obstacle list.
type ObstacleRectangleListData struct {
	Count int32
	Items [MaxObstacles]ObstacleRectangleData
}

// PathData is the planner's published path.
type PathData struct {
	Count int32
	Poses [MaxPathPoses]models.PoseData
}

// CameraFrameData is an opaque camera or simulation frame.
type CameraFrameData struct {
	Length int32
	Bytes  [CameraFrameBytes]byte
}

// RegionData is the fixed layout of the shared region. All fields are
// 4-byte scalars or fixed arrays thereof, so the layout is identical in
// every process mapping the segment. Each logically distinct field is
// guarded by its own WritePriorityLock (see LockName); there is no
// region-wide lock, and multi-field reads across two locks may observe
// torn combinations by design.
type RegionData struct {
	PoseCurrentBuffer  models.PoseBufferData
	PoseOrder          models.PoseData
	TableLimits        [4]float32 // x min, x max, y min, y max
	LidarData          [MaxLidarPoints][3]float32 // angle, distance, intensity
	LidarCoords        [MaxLidarPoints][3]float32 // x, y, reserved
	DetectorObstacles  models.CircleListData
	MonitorObstacles   models.CircleListData
	CircleObstacles    ObstacleCircleListData
	RectangleObstacles ObstacleRectangleListData
	AvoidancePath      PathData
	AvoidanceBlocked   int32
	CameraFrame        CameraFrameData
}

// LockName identifies one independently guarded region field.
type LockName int

const (
	LockPoseCurrent LockName = iota
	LockPoseOrder
	LockLidarData
	LockLidarCoords
	LockDetectorObstacles
	LockMonitorObstacles
	LockObstacles
	LockAvoidanceBlocked
	LockAvoidancePath
	LockCameraData
	lockNameCount
)

var lockNames = map[LockName]string{
	LockPoseCurrent:       "PoseCurrent",
	LockPoseOrder:         "PoseOrder",
	LockLidarData:         "LidarData",
	LockLidarCoords:       "LidarCoords",
	LockDetectorObstacles: "DetectorObstacles",
	LockMonitorObstacles:  "MonitorObstacles",
	LockObstacles:         "Obstacles",
	LockAvoidanceBlocked:  "AvoidanceBlocked",
	LockAvoidancePath:     "AvoidancePath",
	LockCameraData:        "CameraData",
}

func (n LockName) String() string {
	if s, ok := lockNames[n]; ok {
		return s
	}
	return fmt.Sprintf("LockName(%d)", int(n))
}

// Region is a process's attachment to the named shared region and its
// per-field locks.
type Region struct {
	name  string
	owner bool
	seg   *segment
	data  *RegionData
	locks map[LockName]*WritePriorityLock
}

// OpenRegion creates (owner) or attaches to (non-owner) the named shared
// region and all of its locks. The owner zero-initializes the segment and
// pre-terminates the lidar buffers with sentinel rows.
func OpenRegion(name string, owner bool) (*Region, error) {
	size := int(unsafe.Sizeof(RegionData{}))
	seg, err := openSegment(name, owner, size)
	if err != nil {
		return nil, err
	}

	r := &Region{
		name:  name,
		owner: owner,
		seg:   seg,
		data:  (*RegionData)(unsafe.Pointer(&seg.mem[0])),
		locks: make(map[LockName]*WritePriorityLock, lockNameCount),
	}

	if owner {
		*r.data = RegionData{}
		sentinelFill(&r.data.LidarData)
		sentinelFill(&r.data.LidarCoords)
	}

	for ln := LockName(0); ln < lockNameCount; ln++ {
		lock, err := OpenWritePriorityLock(name+"_"+ln.String(), owner)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.locks[ln] = lock
	}

	log.Printf("shm: region %q attached (owner=%v, size=%d bytes)", name, owner, size)
	return r, nil
}

// Data exposes the raw shared layout. Callers must hold the appropriate
// per-field lock while touching a field.
func (r *Region) Data() *RegionData {
	return r.data
}

// Lock returns the WritePriorityLock guarding the given field.
func (r *Region) Lock(name LockName) *WritePriorityLock {
	return r.locks[name]
}

// PoseBuffer returns the pose history backed by the shared segment. Access
// under the PoseCurrent lock.
func (r *Region) PoseBuffer() *models.PoseBuffer {
	return models.NewBorrowedPoseBuffer(&r.data.PoseCurrentBuffer)
}

// DetectorObstacles returns the detector obstacle list backed by the shared
// segment. Access under the DetectorObstacles lock.
func (r *Region) DetectorObstacles() *models.CircleList {
	return models.NewBorrowedCircleList(&r.data.DetectorObstacles)
}

// MonitorObstacles returns the monitor obstacle list backed by the shared
// segment. Access under the MonitorObstacles lock.
func (r *Region) MonitorObstacles() *models.CircleList {
	return models.NewBorrowedCircleList(&r.data.MonitorObstacles)
}

// Close detaches from the region and all of its locks. Only the owner
// unlinks the underlying named objects.
func (r *Region) Close() error {
	var firstErr error
	for _, lock := range r.locks {
		if err := lock.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.seg != nil {
		if err := r.seg.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// sentinelFill terminates every row of a lidar buffer.
func sentinelFill(buf *[MaxLidarPoints][3]float32) {
	for i := range buf {
		buf[i][0] = -1
		buf[i][1] = -1
		buf[i][2] = -1
	}
}

// WriteRows copies rows into a lidar buffer and appends the sentinel row.
// It returns the number of rows written, excluding the sentinel. Rows past
// capacity-1 are dropped so the sentinel always fits.
func WriteRows(dst *[MaxLidarPoints][3]float32, rows [][3]float32) int {
	n := len(rows)
	if n > MaxLidarPoints-1 {
		n = MaxLidarPoints - 1
	}
	copy(dst[:n], rows[:n])
	dst[n][0] = -1
	dst[n][1] = -1
	dst[n][2] = -1
	return n
}

// ReadRows returns a copy of the rows preceding the sentinel.
func ReadRows(src *[MaxLidarPoints][3]float32) [][3]float32 {
	var out [][3]float32
	for i := range src {
		if src[i][0] < 0 {
			break
		}
		out = append(out, src[i])
	}
	return out
}
