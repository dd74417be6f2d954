package avoidance

import (
	"github.com/banshee-data/navcore/internal/models"
	"github.com/banshee-data/navcore/internal/monitoring"
	"github.com/banshee-data/navcore/internal/obstacles"
	"github.com/banshee-data/navcore/internal/shm"
)

// RegionBridge reads planner-provided obstacles from the shared region and
// writes planning results back. It pairs a Planner (in-process) with the
// cross-process surface other robot processes see.
type RegionBridge struct {
	region  *shm.Region
	planner *Planner
}

// NewRegionBridge binds planner to region.
func NewRegionBridge(region *shm.Region, planner *Planner) *RegionBridge {
	return &RegionBridge{region: region, planner: planner}
}

// SyncObstacles replaces the planner's dynamic obstacle set with the
// circle and rectangle lists currently published in the region.
func (b *RegionBridge) SyncObstacles() {
	data := b.region.Data()
	lock := b.region.Lock(shm.LockObstacles)
	lock.StartReading()
	circles := data.CircleObstacles
	rects := data.RectangleObstacles
	lock.FinishReading()

	b.planner.ClearDynamicObstacles()

	n := int(circles.Count)
	if n > shm.MaxObstacles {
		n = shm.MaxObstacles
	}
	for i := 0; i < n; i++ {
		item := circles.Items[i]
		boxPoints := int(item.BoundingBoxPoints)
		if boxPoints <= 0 {
			boxPoints = obstacles.DefaultBoundingBoxPoints
		}
		center := item.Center.Pose()
		b.planner.AddDynamicObstacle(obstacles.NewCircle(
			center.X, center.Y, center.Angle,
			float64(item.Radius), float64(item.BoundingBoxMargin), boxPoints))
	}

	n = int(rects.Count)
	if n > shm.MaxObstacles {
		n = shm.MaxObstacles
	}
	for i := 0; i < n; i++ {
		item := rects.Items[i]
		center := item.Center.Pose()
		b.planner.AddDynamicObstacle(obstacles.NewRectangle(
			center.X, center.Y, center.Angle,
			float64(item.LengthX), float64(item.LengthY),
			float64(item.BoundingBoxMargin)))
	}
}

// PublishPath writes the planner's last computed path into the region and
// notifies consumers. Paths longer than the shared buffer are truncated
// from the far end; the truncated path still starts at the robot.
func (b *RegionBridge) PublishPath() {
	data := b.region.Data()
	size := b.planner.GetPathSize()
	if size > shm.MaxPathPoses {
		monitoring.Logf("avoidance: path of %d poses truncated to %d", size, shm.MaxPathPoses)
		size = shm.MaxPathPoses
	}

	lock := b.region.Lock(shm.LockAvoidancePath)
	lock.StartWriting()
	data.AvoidancePath.Count = int32(size)
	for i := 0; i < size; i++ {
		pose, err := b.planner.GetPathPose(i)
		if err != nil {
			break
		}
		data.AvoidancePath.Poses[i].Set(pose)
	}
	lock.FinishWriting()
	lock.PostUpdate()
}

// ReadPath returns the path currently published in the region.
func (b *RegionBridge) ReadPath() []models.Pose {
	data := b.region.Data()
	lock := b.region.Lock(shm.LockAvoidancePath)
	lock.StartReading()
	n := int(data.AvoidancePath.Count)
	if n > shm.MaxPathPoses {
		n = shm.MaxPathPoses
	}
	path := make([]models.Pose, n)
	for i := 0; i < n; i++ {
		path[i] = data.AvoidancePath.Poses[i].Pose()
	}
	lock.FinishReading()
	return path
}

// SetBlocked publishes whether the planner currently has no route.
func (b *RegionBridge) SetBlocked(blocked bool) {
	data := b.region.Data()
	lock := b.region.Lock(shm.LockAvoidanceBlocked)
	lock.StartWriting()
	if blocked {
		data.AvoidanceBlocked = 1
	} else {
		data.AvoidanceBlocked = 0
	}
	lock.FinishWriting()
	lock.PostUpdate()
}

// Blocked reads the published blocked flag.
func (b *RegionBridge) Blocked() bool {
	data := b.region.Data()
	lock := b.region.Lock(shm.LockAvoidanceBlocked)
	lock.StartReading()
	blocked := data.AvoidanceBlocked != 0
	lock.FinishReading()
	return blocked
}
