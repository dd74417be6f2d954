// Command plan attaches to an existing shared region, runs a one-shot
// avoidance computation from the robot's current pose to a target, and
// prints the resulting path.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/banshee-data/navcore/internal/avoidance"
	"github.com/banshee-data/navcore/internal/models"
	"github.com/banshee-data/navcore/internal/shm"
	"github.com/banshee-data/navcore/internal/version"
)

var (
	shmName = flag.String("shm-name", "navcore", "Name of the shared memory region")
	targetX = flag.Float64("x", 0, "Target x in mm")
	targetY = flag.Float64("y", 0, "Target y in mm")
	angle   = flag.Float64("angle", 0, "Target heading in degrees")
	publish = flag.Bool("publish", false, "Also publish the path into the shared region")
)

func main() {
	flag.Parse()
	log.Println(version.String())

	region, err := shm.OpenRegion(*shmName, false)
	if err != nil {
		log.Fatalf("failed to attach to shared region: %v", err)
	}
	defer region.Close()

	data := region.Data()
	limits := data.TableLimits
	borders := []models.Coords{
		{X: float64(limits[0]), Y: float64(limits[2])},
		{X: float64(limits[1]), Y: float64(limits[2])},
		{X: float64(limits[1]), Y: float64(limits[3])},
		{X: float64(limits[0]), Y: float64(limits[3])},
	}
	planner, err := avoidance.NewPlanner(borders)
	if err != nil {
		log.Fatalf("failed to build planner: %v", err)
	}
	bridge := avoidance.NewRegionBridge(region, planner)
	bridge.SyncObstacles()

	poseLock := region.Lock(shm.LockPoseCurrent)
	poseLock.StartReading()
	current := region.PoseBuffer().Latest()
	poseLock.FinishReading()

	target := models.Pose{X: *targetX, Y: *targetY, Angle: *angle}
	if !planner.Avoidance(current, target) {
		log.Fatalf("no path from (%.1f, %.1f) to (%.1f, %.1f)", current.X, current.Y, target.X, target.Y)
	}

	for i := 0; i < planner.GetPathSize(); i++ {
		pose, err := planner.GetPathPose(i)
		if err != nil {
			log.Fatalf("failed to read path pose: %v", err)
		}
		fmt.Printf("%2d: %8.1f %8.1f %6.1f\n", i, pose.X, pose.Y, pose.Angle)
	}

	if *publish {
		bridge.PublishPath()
		bridge.SetBlocked(false)
	}
}
