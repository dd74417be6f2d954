// Package avoidance plans obstacle-free paths across the table using a
// visibility graph over obstacle bounding-box vertices and Dijkstra's
// shortest path.
package avoidance

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/banshee-data/navcore/internal/models"
	"github.com/banshee-data/navcore/internal/obstacles"
)

// ErrPathIndex reports indexed access past the computed path.
var ErrPathIndex = errors.New("avoidance: path index out of range")

// Graph point indices 0 and 1 are reserved for the endpoints.
const (
	startIndex  = 0
	finishIndex = 1
)

// Planner computes paths from a start pose to a finish pose around the
// current dynamic obstacle set. The graph is rebuilt from scratch on every
// Avoidance call; there is no incremental maintenance, so a changed
// obstacle set needs nothing beyond the next call. Planner methods are not
// safe for concurrent use.
type Planner struct {
	borders *obstacles.Polygon
	dynamic []obstacles.Obstacle

	points []models.Coords
	graph  map[int]map[int]float64

	path   []models.Pose
	finish models.Pose
}

// NewPlanner builds a planner whose world is bounded by the given convex
// counter-clockwise border polygon.
func NewPlanner(borders []models.Coords) (*Planner, error) {
	poly, err := obstacles.NewPolygon(borders, 0)
	if err != nil {
		return nil, fmt.Errorf("avoidance: borders: %w", err)
	}
	return &Planner{borders: poly}, nil
}

// AddDynamicObstacle registers an obstacle for subsequent planning calls.
func (p *Planner) AddDynamicObstacle(o obstacles.Obstacle) {
	p.dynamic = append(p.dynamic, o)
}

// RemoveDynamicObstacle drops the obstacle with the given id, if present.
func (p *Planner) RemoveDynamicObstacle(id uuid.UUID) {
	for i, o := range p.dynamic {
		if o.ID() == id {
			p.dynamic = append(p.dynamic[:i], p.dynamic[i+1:]...)
			return
		}
	}
}

// ClearDynamicObstacles drops all registered obstacles.
func (p *Planner) ClearDynamicObstacles() {
	p.dynamic = p.dynamic[:0]
}

// DynamicObstacles returns the registered obstacle set.
func (p *Planner) DynamicObstacles() []obstacles.Obstacle {
	return p.dynamic
}

// inBounds reports whether an obstacle's center lies inside the borders.
// Out-of-bounds obstacles are ignored entirely: they can neither block
// segments nor contribute graph vertices.
func (p *Planner) inBounds(o obstacles.Obstacle) bool {
	return p.borders.IsPointInside(o.Center().Coords())
}

// Avoidance computes a path from start to finish. It returns false when
// the finish lies outside the borders or inside an obstacle, or when no
// unobstructed route exists. On success the path runs start to finish
// inclusive and is readable through GetPathSize/GetPathPose.
func (p *Planner) Avoidance(start, finish models.Pose) bool {
	p.path = nil
	p.finish = finish

	startPoint := start.Coords()
	finishPoint := finish.Coords()

	if !p.borders.IsPointInside(finishPoint) {
		return false
	}
	for _, o := range p.dynamic {
		if !p.inBounds(o) {
			continue
		}
		if o.IsPointInside(finishPoint) {
			return false
		}
		// A start inside an obstacle is recoverable: plan from the nearest
		// boundary point instead.
		if o.IsPointInside(startPoint) {
			startPoint = o.NearestPoint(startPoint)
		}
	}

	p.buildGraph(startPoint, finishPoint)
	coords, ok := p.dijkstra()
	if !ok {
		return false
	}

	p.path = make([]models.Pose, len(coords))
	for i, c := range coords {
		p.path[i] = models.Pose{X: c.X, Y: c.Y}
	}
	p.path[len(p.path)-1].Angle = finish.Angle
	return true
}

// GetPathSize returns the number of poses in the last computed path, zero
// when the last call failed.
func (p *Planner) GetPathSize() int {
	return len(p.path)
}

// GetPathPose returns the pose at the given position along the path, start
// first.
func (p *Planner) GetPathPose(index int) (models.Pose, error) {
	if index < 0 || index >= len(p.path) {
		return models.Pose{}, fmt.Errorf("%w: %d of %d", ErrPathIndex, index, len(p.path))
	}
	return p.path[index], nil
}

// CheckRecompute reports whether the straight segment between start and
// stop crosses any in-bounds obstacle. Calling loops use it to decide when
// a previously computed path has gone stale.
func (p *Planner) CheckRecompute(start, stop models.Coords) bool {
	for _, o := range p.dynamic {
		if !p.inBounds(o) {
			continue
		}
		if o.IsSegmentCrossing(start, stop) {
			return true
		}
	}
	return false
}

// buildGraph assembles the valid point set and all-pairs visibility edges.
// Points are the endpoints plus every in-bounds obstacle's bounding-box
// vertices, excluding vertices outside the borders or inside another
// obstacle. An edge joins two points iff their segment crosses no
// in-bounds obstacle; its weight is the Euclidean distance.
func (p *Planner) buildGraph(start, finish models.Coords) {
	p.points = p.points[:0]
	p.points = append(p.points, start, finish)

	for _, o := range p.dynamic {
		if !p.inBounds(o) {
			continue
		}
		for _, v := range o.BoundingBox() {
			if !p.borders.IsPointInside(v) {
				continue
			}
			if p.insideOther(v, o) {
				continue
			}
			p.points = append(p.points, v)
		}
	}

	p.graph = make(map[int]map[int]float64, len(p.points))
	for i := 0; i < len(p.points); i++ {
		for j := i + 1; j < len(p.points); j++ {
			if p.segmentBlocked(p.points[i], p.points[j]) {
				continue
			}
			d := p.points[i].Distance(p.points[j])
			p.addEdge(i, j, d)
			p.addEdge(j, i, d)
		}
	}
}

func (p *Planner) insideOther(v models.Coords, owner obstacles.Obstacle) bool {
	for _, o := range p.dynamic {
		if o.ID() == owner.ID() || !p.inBounds(o) {
			continue
		}
		if o.IsPointInside(v) {
			return true
		}
	}
	return false
}

func (p *Planner) segmentBlocked(a, b models.Coords) bool {
	for _, o := range p.dynamic {
		if !p.inBounds(o) {
			continue
		}
		if o.IsSegmentCrossing(a, b) {
			return true
		}
	}
	return false
}

func (p *Planner) addEdge(from, to int, weight float64) {
	if p.graph[from] == nil {
		p.graph[from] = make(map[int]float64)
	}
	p.graph[from][to] = weight
}

// dijkstra runs the shortest-path search from the start point to the
// finish point and returns the route start to finish inclusive. It fails
// when the start has no edges or the graph is disconnected between the
// two endpoints.
func (p *Planner) dijkstra() ([]models.Coords, bool) {
	if len(p.graph[startIndex]) == 0 {
		return nil, false
	}

	checked := make(map[int]bool, len(p.points))
	distances := make(map[int]float64, len(p.points))
	parents := make(map[int]int, len(p.points))
	distances[startIndex] = 0

	for {
		// Pick the cheapest unvisited point with a known distance.
		current := -1
		best := math.Inf(1)
		for idx, d := range distances {
			if !checked[idx] && d < best {
				current = idx
				best = d
			}
		}
		if current == -1 {
			return nil, false
		}
		if current == finishIndex {
			break
		}
		checked[current] = true

		for neighbor, weight := range p.graph[current] {
			if checked[neighbor] {
				continue
			}
			candidate := best + weight
			if d, known := distances[neighbor]; !known || candidate < d {
				distances[neighbor] = candidate
				parents[neighbor] = current
			}
		}
	}

	var route []models.Coords
	for idx := finishIndex; ; idx = parents[idx] {
		route = append(route, p.points[idx])
		if idx == startIndex {
			break
		}
	}
	for i, j := 0, len(route)-1; i < j; i, j = i+1, j-1 {
		route[i], route[j] = route[j], route[i]
	}
	return route, true
}
