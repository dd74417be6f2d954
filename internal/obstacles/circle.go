package obstacles

import (
	"math"

	"github.com/google/uuid"

	"github.com/banshee-data/navcore/internal/models"
)

// DefaultBoundingBoxPoints is the default vertex count of a circle's
// bounding polygon. Six vertices keeps the planner graph small while staying
// within ~15% of the true circle area.
const DefaultBoundingBoxPoints = 6

// Circle is a circular obstacle.
type Circle struct {
	id          uuid.UUID
	center      models.Pose
	radius      float64
	margin      float64
	boxPoints   int
	boundingBox []models.Coords
}

// NewCircle returns a circle obstacle at (x, y) with the given radius. The
// bounding box circumscribes the circle with boxPoints vertices expanded by
// margin.
func NewCircle(x, y, angle, radius, margin float64, boxPoints int) *Circle {
	if boxPoints < 3 {
		boxPoints = DefaultBoundingBoxPoints
	}
	c := &Circle{
		id:        uuid.New(),
		center:    models.NewPose(x, y, angle),
		radius:    radius,
		margin:    margin,
		boxPoints: boxPoints,
	}
	c.updateBoundingBox()
	return c
}

// ID implements Obstacle.
func (c *Circle) ID() uuid.UUID {
	return c.id
}

// Center implements Obstacle.
func (c *Circle) Center() models.Pose {
	return c.center
}

// Radius implements Obstacle.
func (c *Circle) Radius() float64 {
	return c.radius
}

// BoundingBox implements Obstacle.
func (c *Circle) BoundingBox() []models.Coords {
	return c.boundingBox
}

// SetCenter moves the obstacle and regenerates its bounding box.
func (c *Circle) SetCenter(p models.Pose) {
	c.center = p
	c.updateBoundingBox()
}

// IsPointInside implements Obstacle.
func (c *Circle) IsPointInside(p models.Coords) bool {
	return p.Distance(c.center.Coords()) < c.radius
}

// isLineCrossing reports whether the infinite line through a and b passes
// within the circle's radius of its center.
func (c *Circle) isLineCrossing(a, b models.Coords) bool {
	ab := models.Coords{X: b.X - a.X, Y: b.Y - a.Y}
	ac := models.Coords{X: c.center.X - a.X, Y: c.center.Y - a.Y}

	numerator := math.Abs(ab.X*ac.Y - ab.Y*ac.X)
	denominator := math.Hypot(ab.X, ab.Y)
	if denominator == 0 {
		return c.IsPointInside(a)
	}
	return numerator/denominator < c.radius
}

// IsSegmentCrossing implements Obstacle. The segment crosses iff the
// supporting line passes through the circle and the center projects onto
// the segment (or an endpoint is inside).
func (c *Circle) IsSegmentCrossing(a, b models.Coords) bool {
	if !c.isLineCrossing(a, b) {
		return false
	}
	if c.IsPointInside(a) || c.IsPointInside(b) {
		return true
	}

	ab := models.Coords{X: b.X - a.X, Y: b.Y - a.Y}
	ac := models.Coords{X: c.center.X - a.X, Y: c.center.Y - a.Y}
	bc := models.Coords{X: c.center.X - b.X, Y: c.center.Y - b.Y}

	scal1 := ab.X*ac.X + ab.Y*ac.Y
	scal2 := -ab.X*bc.X - ab.Y*bc.Y
	return scal1 >= 0 && scal2 >= 0
}

// NearestPoint implements Obstacle. The returned point sits on the
// margin-expanded boundary along the ray from the center through p, so a
// start pose snapped out of the obstacle lands at a safe distance.
func (c *Circle) NearestPoint(p models.Coords) models.Coords {
	vect := models.Coords{X: p.X - c.center.X, Y: p.Y - c.center.Y}
	norm := math.Hypot(vect.X, vect.Y)
	if norm == 0 {
		// p is exactly at the center; pick an arbitrary direction.
		return models.Coords{X: c.center.X + c.radius + c.margin, Y: c.center.Y}
	}
	scale := (c.radius + c.margin) / norm
	return models.Coords{
		X: c.center.X + vect.X*scale,
		Y: c.center.Y + vect.Y*scale,
	}
}

// updateBoundingBox regenerates the bounding polygon: a regular polygon
// circumscribing the circle, expanded by the margin.
func (c *Circle) updateBoundingBox() {
	if c.radius <= 0 {
		c.boundingBox = nil
		return
	}
	circumscribed := c.radius/math.Cos(math.Pi/float64(c.boxPoints)) + c.margin
	box := make([]models.Coords, 0, c.boxPoints)
	for i := 0; i < c.boxPoints; i++ {
		angle := float64(i) * 2 * math.Pi / float64(c.boxPoints)
		box = append(box, models.Coords{
			X: c.center.X + circumscribed*math.Cos(angle),
			Y: c.center.Y + circumscribed*math.Sin(angle),
		})
	}
	c.boundingBox = box
}
