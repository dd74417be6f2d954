package models

import (
	"errors"
	"fmt"
)

// ErrListFull is returned when appending to a fixed-capacity list that has
// reached its capacity. This is a caller contract violation, not a runtime
// condition, so it is surfaced as a hard error.
var ErrListFull = errors.New("models: list is full")

// The fixed-capacity list wrappers below either own their backing record or
// borrow one living inside the shared-memory region. Ownership is decided
// once at construction; the call surface is identical either way, so call
// sites never need to know which variant backs a given list.

// CoordsList is a bounded list of 2D points.
type CoordsList struct {
	data *CoordsListData
}

// NewOwnedCoordsList returns a CoordsList backed by process-local storage.
func NewOwnedCoordsList() *CoordsList {
	return &CoordsList{data: &CoordsListData{}}
}

// NewBorrowedCoordsList returns a CoordsList operating on an existing
// record, typically a field of the shared region.
func NewBorrowedCoordsList(data *CoordsListData) *CoordsList {
	return &CoordsList{data: data}
}

// Size returns the number of stored points.
func (l *CoordsList) Size() int {
	return int(l.data.Count)
}

// Clear empties the list.
func (l *CoordsList) Clear() {
	l.data.Count = 0
}

// Append adds a point to the list.
func (l *CoordsList) Append(c Coords) error {
	if l.data.Count >= CoordsListCapacity {
		return ErrListFull
	}
	l.data.Points[l.data.Count] = CoordsData{X: float32(c.X), Y: float32(c.Y)}
	l.data.Count++
	return nil
}

// Get returns the point at index.
func (l *CoordsList) Get(index int) (Coords, error) {
	if index < 0 || index >= int(l.data.Count) {
		return Coords{}, fmt.Errorf("models: coords index %d out of range [0, %d)", index, l.data.Count)
	}
	p := l.data.Points[index]
	return Coords{X: float64(p.X), Y: float64(p.Y)}, nil
}

// Index returns the position of the first point equal to c, or -1.
func (l *CoordsList) Index(c Coords) int {
	for i := 0; i < int(l.data.Count); i++ {
		p := l.data.Points[i]
		if (Coords{X: float64(p.X), Y: float64(p.Y)}).Equal(c) {
			return i
		}
	}
	return -1
}

// Slice returns a copy of the list contents.
func (l *CoordsList) Slice() []Coords {
	out := make([]Coords, 0, l.data.Count)
	for i := 0; i < int(l.data.Count); i++ {
		p := l.data.Points[i]
		out = append(out, Coords{X: float64(p.X), Y: float64(p.Y)})
	}
	return out
}

// Circle is a plain circle used by the detector and monitor obstacle lists.
type Circle struct {
	Center Coords
	Radius float64
}

// CircleList is a bounded list of circles.
type CircleList struct {
	data *CircleListData
}

// NewOwnedCircleList returns a CircleList backed by process-local storage.
func NewOwnedCircleList() *CircleList {
	return &CircleList{data: &CircleListData{}}
}

// NewBorrowedCircleList returns a CircleList operating on an existing record.
func NewBorrowedCircleList(data *CircleListData) *CircleList {
	return &CircleList{data: data}
}

// Size returns the number of stored circles.
func (l *CircleList) Size() int {
	return int(l.data.Count)
}

// Clear empties the list.
func (l *CircleList) Clear() {
	l.data.Count = 0
}

// Append adds a circle to the list.
func (l *CircleList) Append(c Circle) error {
	if l.data.Count >= CircleListCapacity {
		return ErrListFull
	}
	l.data.Circles[l.data.Count] = CircleData{
		X:      float32(c.Center.X),
		Y:      float32(c.Center.Y),
		Radius: float32(c.Radius),
	}
	l.data.Count++
	return nil
}

// Get returns the circle at index.
func (l *CircleList) Get(index int) (Circle, error) {
	if index < 0 || index >= int(l.data.Count) {
		return Circle{}, fmt.Errorf("models: circle index %d out of range [0, %d)", index, l.data.Count)
	}
	c := l.data.Circles[index]
	return Circle{Center: Coords{X: float64(c.X), Y: float64(c.Y)}, Radius: float64(c.Radius)}, nil
}

// Slice returns a copy of the list contents.
func (l *CircleList) Slice() []Circle {
	out := make([]Circle, 0, l.data.Count)
	for i := 0; i < int(l.data.Count); i++ {
		c := l.data.Circles[i]
		out = append(out, Circle{Center: Coords{X: float64(c.X), Y: float64(c.Y)}, Radius: float64(c.Radius)})
	}
	return out
}
