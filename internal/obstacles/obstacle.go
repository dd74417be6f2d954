// Package obstacles implements the obstacle shapes used by the avoidance
// planner: circles, convex polygons, and rectangles (a polygon
// specialization). Every shape precomputes a bounding box — a polygon with a
// safety margin enclosing the obstacle — whose vertices become candidate
// path points during graph construction. Bounding boxes are regenerated
// whenever the underlying geometry changes.
package obstacles

import (
	"github.com/google/uuid"

	"github.com/banshee-data/navcore/internal/models"
)

// Obstacle is the capability set shared by all obstacle shapes.
type Obstacle interface {
	// ID identifies the obstacle across planning cycles.
	ID() uuid.UUID
	// Center returns the obstacle's reference pose.
	Center() models.Pose
	// Radius returns the circumscribed radius.
	Radius() float64
	// BoundingBox returns the margin-expanded vertex list used as planner
	// graph candidates.
	BoundingBox() []models.Coords
	// IsPointInside reports whether p lies inside the obstacle.
	IsPointInside(p models.Coords) bool
	// IsSegmentCrossing reports whether the segment [a, b] crosses the
	// obstacle.
	IsSegmentCrossing(a, b models.Coords) bool
	// NearestPoint returns the closest safe point on the obstacle boundary.
	NearestPoint(p models.Coords) models.Coords
}

// newObstacleID returns a fresh obstacle identity.
func newObstacleID() uuid.UUID {
	return uuid.New()
}

// isSegmentCrossingLine reports whether the segment [a, b] crosses the
// infinite line through (c, d): the endpoints of [a, b] must lie on opposite
// sides of the line.
func isSegmentCrossingLine(a, b, c, d models.Coords) bool {
	ab := models.Coords{X: b.X - a.X, Y: b.Y - a.Y}
	ac := models.Coords{X: c.X - a.X, Y: c.Y - a.Y}
	ad := models.Coords{X: d.X - a.X, Y: d.Y - a.Y}

	det := (ab.X*ad.Y - ab.Y*ad.X) * (ab.X*ac.Y - ab.Y*ac.X)
	return det < 0
}

// isSegmentCrossingSegment reports whether the segments [a, b] and [c, d]
// properly intersect.
func isSegmentCrossingSegment(a, b, c, d models.Coords) bool {
	return isSegmentCrossingLine(a, b, c, d) && isSegmentCrossingLine(c, d, a, b)
}
