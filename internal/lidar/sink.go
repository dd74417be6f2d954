package lidar

import (
	"github.com/banshee-data/navcore/internal/shm"
)

// RegionSink publishes completed scans into the shared region's lidar
// buffer under the LidarData write lock, then posts an update so
// registered consumers wake.
type RegionSink struct {
	region *shm.Region
}

// NewRegionSink returns a sink writing into region.
func NewRegionSink(region *shm.Region) *RegionSink {
	return &RegionSink{region: region}
}

// PublishScan overwrites the shared scan buffer with rows and a trailing
// sentinel, then notifies consumers.
func (s *RegionSink) PublishScan(rows [][3]float32) {
	lock := s.region.Lock(shm.LockLidarData)
	lock.StartWriting()
	n := shm.WriteRows(&s.region.Data().LidarData, rows)
	lock.FinishWriting()
	lock.PostUpdate()
	debugf("sink: published %d scan rows", n)
}
