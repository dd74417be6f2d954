// Package models holds the plain geometric value types shared across the
// perception and planning packages: 2D coordinates, robot poses, and the
// fixed-capacity lists that back their shared-memory representation.
//
// All positions are world millimetres; all angles are degrees.
package models

import "math"

// Coords is a 2D point in world coordinates.
type Coords struct {
	X float64
	Y float64
}

// NewCoords returns a Coords at (x, y).
func NewCoords(x, y float64) Coords {
	return Coords{X: x, Y: y}
}

// Distance returns the Euclidean distance to other.
func (c Coords) Distance(other Coords) float64 {
	return math.Hypot(other.X-c.X, other.Y-c.Y)
}

// Equal reports whether two points coincide within tolerance.
func (c Coords) Equal(other Coords) bool {
	const tolerance = 1e-9
	return math.Abs(c.X-other.X) <= tolerance && math.Abs(c.Y-other.Y) <= tolerance
}

// OnSegment reports whether c lies on the segment [a, b].
func (c Coords) OnSegment(a, b Coords) bool {
	// Collinearity first: cross product of (b-a) and (c-a) must vanish.
	cross := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	const tolerance = 1e-6
	if math.Abs(cross) > tolerance {
		return false
	}
	// Then projection bounds.
	dot := (c.X-a.X)*(b.X-a.X) + (c.Y-a.Y)*(b.Y-a.Y)
	if dot < 0 {
		return false
	}
	squaredLen := (b.X-a.X)*(b.X-a.X) + (b.Y-a.Y)*(b.Y-a.Y)
	return dot <= squaredLen
}

// Pose is a robot position and heading in the world frame.
type Pose struct {
	X     float64
	Y     float64
	Angle float64 // heading in degrees
}

// NewPose returns a Pose at (x, y) with the given heading.
func NewPose(x, y, angle float64) Pose {
	return Pose{X: x, Y: y, Angle: angle}
}

// Coords returns the position component of the pose.
func (p Pose) Coords() Coords {
	return Coords{X: p.X, Y: p.Y}
}

// Deg2Rad converts degrees to radians.
func Deg2Rad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Rad2Deg converts radians to degrees.
func Rad2Deg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
