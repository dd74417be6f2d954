package avoidance

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/navcore/internal/models"
	"github.com/banshee-data/navcore/internal/obstacles"
	"github.com/banshee-data/navcore/internal/shm"
)

func openTestRegion(t *testing.T) *shm.Region {
	t.Helper()
	oldDir := shm.Dir
	shm.Dir = t.TempDir()
	t.Cleanup(func() { shm.Dir = oldDir })

	region, err := shm.OpenRegion("avoidance_test", true)
	require.NoError(t, err)
	t.Cleanup(func() { region.Close() })
	return region
}

func TestSyncObstacles(t *testing.T) {
	region := openTestRegion(t)
	planner := newTestPlanner(t)
	bridge := NewRegionBridge(region, planner)

	data := region.Data()
	data.CircleObstacles.Count = 1
	data.CircleObstacles.Items[0] = shm.ObstacleCircleData{
		Center:            models.PoseData{X: 1500, Y: 1000},
		Radius:            200,
		BoundingBoxMargin: 50,
		BoundingBoxPoints: 8,
	}
	data.RectangleObstacles.Count = 1
	data.RectangleObstacles.Items[0] = shm.ObstacleRectangleData{
		Center:            models.PoseData{X: 500, Y: 500, Angle: 45},
		LengthX:           300,
		LengthY:           200,
		BoundingBoxMargin: 50,
	}

	bridge.SyncObstacles()

	got := planner.DynamicObstacles()
	require.Len(t, got, 2)
	require.Equal(t, models.Pose{X: 1500, Y: 1000}, got[0].Center())
	require.True(t, got[0].IsPointInside(models.Coords{X: 1500, Y: 1000}))
	require.Len(t, got[0].BoundingBox(), 8)
	require.Equal(t, models.Pose{X: 500, Y: 500, Angle: 45}, got[1].Center())

	// A second sync replaces rather than accumulates.
	bridge.SyncObstacles()
	require.Len(t, planner.DynamicObstacles(), 2)
}

func TestSyncObstaclesBoxPointsFallback(t *testing.T) {
	region := openTestRegion(t)
	planner := newTestPlanner(t)
	bridge := NewRegionBridge(region, planner)

	data := region.Data()
	data.CircleObstacles.Count = 1
	data.CircleObstacles.Items[0] = shm.ObstacleCircleData{
		Center: models.PoseData{X: 1000, Y: 1000},
		Radius: 100,
	}

	bridge.SyncObstacles()

	got := planner.DynamicObstacles()
	require.Len(t, got, 1)
	require.Len(t, got[0].BoundingBox(), obstacles.DefaultBoundingBoxPoints)
}

func TestPublishAndReadPath(t *testing.T) {
	region := openTestRegion(t)
	planner := newTestPlanner(t)
	bridge := NewRegionBridge(region, planner)

	require.True(t, planner.Avoidance(
		models.Pose{X: 100, Y: 1000},
		models.Pose{X: 2900, Y: 1000, Angle: 90},
	))
	bridge.PublishPath()

	got := bridge.ReadPath()
	require.Equal(t, []models.Pose{
		{X: 100, Y: 1000},
		{X: 2900, Y: 1000, Angle: 90},
	}, got)
}

func TestBlockedFlag(t *testing.T) {
	region := openTestRegion(t)
	bridge := NewRegionBridge(region, newTestPlanner(t))

	require.False(t, bridge.Blocked())
	bridge.SetBlocked(true)
	require.True(t, bridge.Blocked())
	bridge.SetBlocked(false)
	require.False(t, bridge.Blocked())
}
