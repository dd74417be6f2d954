package obstacles

import (
	"math"

	"github.com/banshee-data/navcore/internal/models"
)

// Rectangle is a rectangular obstacle, modeled as a Polygon with four fixed
// vertices rather than a separate data layout. The inside/crossing tests
// come from the embedded polygon; only construction and the bounding box
// are rectangle-specific.
type Rectangle struct {
	Polygon
	lengthX float64
	lengthY float64
}

// NewRectangle returns a rectangle obstacle centered at (x, y), rotated by
// angle degrees, with side lengths lengthX and lengthY.
func NewRectangle(x, y, angle, lengthX, lengthY, margin float64) *Rectangle {
	r := &Rectangle{lengthX: lengthX, lengthY: lengthY}
	r.Polygon.id = newObstacleID()
	r.Polygon.margin = margin
	r.Polygon.center = models.NewPose(x, y, angle)
	// Circumscribed radius is half the diagonal.
	r.Polygon.radius = math.Hypot(lengthX, lengthY) / 2
	r.Polygon.points = rectangleVertices(x, y, angle, lengthX, lengthY)
	r.updateBoundingBox()
	return r
}

// LengthX returns the side length along the rectangle's own X axis.
func (r *Rectangle) LengthX() float64 {
	return r.lengthX
}

// LengthY returns the side length along the rectangle's own Y axis.
func (r *Rectangle) LengthY() float64 {
	return r.lengthY
}

// SetCenter moves the rectangle and regenerates its vertices and bounding
// box.
func (r *Rectangle) SetCenter(p models.Pose) {
	r.Polygon.center = p
	r.Polygon.points = rectangleVertices(p.X, p.Y, p.Angle, r.lengthX, r.lengthY)
	r.updateBoundingBox()
}

// updateBoundingBox regenerates the bounding box: the same rectangle grown
// by the margin on each side.
func (r *Rectangle) updateBoundingBox() {
	c := r.Polygon.center
	r.Polygon.boundingBox = rectangleVertices(
		c.X, c.Y, c.Angle,
		r.lengthX+r.Polygon.margin,
		r.lengthY+r.Polygon.margin,
	)
}

// rectangleVertices returns the four corners of a rotated rectangle in
// counter-clockwise order.
func rectangleVertices(x, y, angle, lengthX, lengthY float64) []models.Coords {
	cos := math.Cos(models.Deg2Rad(angle))
	sin := math.Sin(models.Deg2Rad(angle))
	hx := lengthX / 2
	hy := lengthY / 2

	return []models.Coords{
		{X: x - hx*cos + hy*sin, Y: y - hx*sin - hy*cos},
		{X: x + hx*cos + hy*sin, Y: y + hx*sin - hy*cos},
		{X: x + hx*cos - hy*sin, Y: y + hx*sin + hy*cos},
		{X: x - hx*cos - hy*sin, Y: y - hx*sin + hy*cos},
	}
}
