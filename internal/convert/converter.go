// Package convert transforms completed polar scans from the shared lidar
// buffer into world-frame Cartesian coordinates, using the robot pose
// history to compensate for the delay between scan start and pose sample.
package convert

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/navcore/internal/models"
	"github.com/banshee-data/navcore/internal/monitoring"
	"github.com/banshee-data/navcore/internal/shm"
)

// Config carries the converter tuning.
type Config struct {
	// OffsetX and OffsetY are the lidar origin relative to the robot
	// center, in millimeters, in the robot frame.
	OffsetX float64
	OffsetY float64
	// TableMargin shrinks (positive) or grows (negative) the table limits
	// when dropping out-of-bounds points, in millimeters.
	TableMargin float64
	// PoseHistoryIndex selects which pose to pair with a scan:
	// 0 is the most recent, larger values reach further back to match the
	// sensor latency.
	PoseHistoryIndex int
	// WaitTimeout bounds each update wait so the stop flag is observed
	// even if no producer ever posts again.
	WaitTimeout time.Duration
}

// DefaultConfig returns converter tuning with no lidar offset and a
// 20 mm boundary margin.
func DefaultConfig() Config {
	return Config{
		TableMargin: 20,
		WaitTimeout: 500 * time.Millisecond,
	}
}

// Converter consumes scan updates and republishes world coordinates.
// Run blocks until Stop is called; both are safe from different
// goroutines.
type Converter struct {
	region *shm.Region
	cfg    Config

	stopped atomic.Bool
	wg      sync.WaitGroup
}

// New registers the converter as a LidarData consumer on region.
func New(region *shm.Region, cfg Config) *Converter {
	region.Lock(shm.LockLidarData).RegisterConsumer()
	return &Converter{region: region, cfg: cfg}
}

// Start launches the conversion loop goroutine.
func (c *Converter) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run()
	}()
}

// Stop signals the loop and wakes it if it is parked waiting for a scan,
// then waits for it to exit.
func (c *Converter) Stop() {
	if c.stopped.Swap(true) {
		return
	}
	c.region.Lock(shm.LockLidarData).PostUpdate()
	c.wg.Wait()
}

func (c *Converter) run() {
	scanLock := c.region.Lock(shm.LockLidarData)
	for !c.stopped.Load() {
		if !scanLock.WaitUpdateTimeout(c.cfg.WaitTimeout) {
			continue
		}
		if c.stopped.Load() {
			return
		}
		c.convertOnce()
	}
}

// convertOnce reads the current pose and scan under their locks, projects
// every point into the world frame, drops points outside the table limits
// and publishes the result.
func (c *Converter) convertOnce() {
	data := c.region.Data()

	poseLock := c.region.Lock(shm.LockPoseCurrent)
	poseLock.StartReading()
	pose, err := c.region.PoseBuffer().Get(c.cfg.PoseHistoryIndex)
	if err != nil {
		// Fall back to the latest pose until enough history accumulates.
		pose = c.region.PoseBuffer().Latest()
	}
	poseLock.FinishReading()

	scanLock := c.region.Lock(shm.LockLidarData)
	scanLock.StartReading()
	scan := shm.ReadRows(&data.LidarData)
	limits := data.TableLimits
	scanLock.FinishReading()

	rows := c.transform(pose, scan, limits)

	coordsLock := c.region.Lock(shm.LockLidarCoords)
	coordsLock.StartWriting()
	n := shm.WriteRows(&data.LidarCoords, rows)
	coordsLock.FinishWriting()
	coordsLock.PostUpdate()

	if n < len(rows) {
		monitoring.Logf("convert: world buffer truncated to %d of %d points", n, len(rows))
	}
}

// transform projects polar scan rows {angle°, distance mm, intensity}
// through the lidar offset and the robot pose into world millimeters,
// keeping only points inside the table limits shrunk by the margin.
func (c *Converter) transform(pose models.Pose, scan [][3]float32, limits [4]float32) [][3]float32 {
	xMin := float64(limits[0]) + c.cfg.TableMargin
	xMax := float64(limits[1]) - c.cfg.TableMargin
	yMin := float64(limits[2]) + c.cfg.TableMargin
	yMax := float64(limits[3]) - c.cfg.TableMargin

	sin, cos := math.Sincos(models.Deg2Rad(pose.Angle))
	rows := make([][3]float32, 0, len(scan))
	for _, row := range scan {
		angle := models.Deg2Rad(float64(row[0]))
		distance := float64(row[1])

		// Lidar frame to robot frame.
		rx := distance*math.Cos(angle) + c.cfg.OffsetX
		ry := distance*math.Sin(angle) + c.cfg.OffsetY

		// Robot frame to world frame.
		gx := pose.X + rx*cos - ry*sin
		gy := pose.Y + rx*sin + ry*cos

		if gx < xMin || gx > xMax || gy < yMin || gy > yMax {
			continue
		}
		rows = append(rows, [3]float32{float32(gx), float32(gy), row[2]})
	}
	return rows
}
