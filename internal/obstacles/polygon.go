package obstacles

import (
	"errors"
	"math"

	"github.com/google/uuid"

	"github.com/banshee-data/navcore/internal/models"
)

// ErrTooFewPoints is returned when constructing a polygon with fewer than
// three vertices.
var ErrTooFewPoints = errors.New("obstacles: polygon needs at least 3 points")

// Polygon is a convex polygonal obstacle with counter-clockwise vertex
// order.
type Polygon struct {
	id          uuid.UUID
	points      []models.Coords
	center      models.Pose
	radius      float64
	margin      float64
	boundingBox []models.Coords
}

// NewPolygon returns a polygon obstacle over the given counter-clockwise
// vertices. The centroid and circumscribed radius are precomputed; the
// bounding box offsets each vertex outward from the centroid by margin.
func NewPolygon(points []models.Coords, margin float64) (*Polygon, error) {
	if len(points) < 3 {
		return nil, ErrTooFewPoints
	}
	p := &Polygon{
		id:     uuid.New(),
		points: append([]models.Coords(nil), points...),
		margin: margin,
	}
	p.computeCentroid()
	p.computeRadius()
	p.updateBoundingBox()
	return p, nil
}

// ID implements Obstacle.
func (p *Polygon) ID() uuid.UUID {
	return p.id
}

// Center implements Obstacle.
func (p *Polygon) Center() models.Pose {
	return p.center
}

// Radius implements Obstacle.
func (p *Polygon) Radius() float64 {
	return p.radius
}

// Points returns the polygon vertices.
func (p *Polygon) Points() []models.Coords {
	return p.points
}

// BoundingBox implements Obstacle.
func (p *Polygon) BoundingBox() []models.Coords {
	return p.boundingBox
}

// IsPointInside implements Obstacle. The point must be strictly on the left
// of every edge of the counter-clockwise vertex loop.
func (p *Polygon) IsPointInside(point models.Coords) bool {
	n := len(p.points)
	for i := 0; i < n; i++ {
		a := p.points[i]
		b := p.points[(i+1)%n]

		ab := models.Coords{X: b.X - a.X, Y: b.Y - a.Y}
		ap := models.Coords{X: point.X - a.X, Y: point.Y - a.Y}
		if ab.X*ap.Y-ab.Y*ap.X <= 0 {
			return false
		}
	}
	return true
}

// IsSegmentCrossing implements Obstacle. A segment crosses the polygon when
// it properly intersects an edge, when a vertex lies strictly between its
// endpoints, or when both endpoints are non-adjacent vertices of the polygon
// itself (a chord through the interior).
func (p *Polygon) IsSegmentCrossing(a, b models.Coords) bool {
	n := len(p.points)

	ia := p.vertexIndex(a)
	ib := p.vertexIndex(b)
	if ia >= 0 && ib >= 0 {
		diff := ia - ib
		if diff < 0 {
			diff = -diff
		}
		// Adjacent vertices (including the closing edge) share a polygon
		// edge; anything else is a chord.
		if diff != 1 && diff != n-1 {
			return true
		}
	}

	for i := 0; i < n; i++ {
		v := p.points[i]
		vNext := p.points[(i+1)%n]
		if isSegmentCrossingSegment(a, b, v, vNext) {
			return true
		}
		if v.OnSegment(a, b) && !v.Equal(a) && !v.Equal(b) {
			return true
		}
	}
	return false
}

// NearestPoint implements Obstacle. It returns the bounding-box vertex
// closest to p, which keeps a snapped start pose outside the obstacle with
// the safety margin applied.
func (p *Polygon) NearestPoint(point models.Coords) models.Coords {
	minDistance := math.MaxFloat64
	closest := point
	for _, v := range p.boundingBox {
		if d := point.Distance(v); d < minDistance {
			minDistance = d
			closest = v
		}
	}
	return closest
}

// vertexIndex returns the index of the vertex equal to c, or -1.
func (p *Polygon) vertexIndex(c models.Coords) int {
	for i, v := range p.points {
		if v.Equal(c) {
			return i
		}
	}
	return -1
}

// computeCentroid computes the area-weighted centroid of the vertex loop.
func (p *Polygon) computeCentroid() {
	var xSum, ySum, area float64
	n := len(p.points)
	for i := 0; i < n; i++ {
		p1 := p.points[i]
		p2 := p.points[(i+1)%n]
		cross := p1.X*p2.Y - p2.X*p1.Y
		area += cross
		xSum += (p1.X + p2.X) * cross
		ySum += (p1.Y + p2.Y) * cross
	}
	area *= 0.5
	factor := 1.0 / (6.0 * math.Abs(area))
	p.center = models.NewPose(xSum*factor, ySum*factor, 0)
}

// computeRadius computes the circumscribed radius around the centroid.
func (p *Polygon) computeRadius() {
	p.radius = 0
	c := p.center.Coords()
	for _, v := range p.points {
		if d := c.Distance(v); d > p.radius {
			p.radius = d
		}
	}
}

// updateBoundingBox regenerates the margin-expanded bounding polygon by
// pushing each vertex outward from the centroid.
func (p *Polygon) updateBoundingBox() {
	c := p.center.Coords()
	box := make([]models.Coords, 0, len(p.points))
	for _, v := range p.points {
		d := c.Distance(v)
		if d == 0 {
			box = append(box, v)
			continue
		}
		scale := (d + p.margin) / d
		box = append(box, models.Coords{
			X: c.X + (v.X-c.X)*scale,
			Y: c.Y + (v.Y-c.Y)*scale,
		})
	}
	p.boundingBox = box
}
