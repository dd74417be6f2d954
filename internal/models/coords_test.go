package models

import (
	"math"
	"testing"
)

func TestCoordsDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b Coords
		want float64
	}{
		{"same point", Coords{X: 10, Y: 10}, Coords{X: 10, Y: 10}, 0},
		{"horizontal", Coords{X: 0, Y: 0}, Coords{X: 100, Y: 0}, 100},
		{"vertical", Coords{X: 0, Y: 0}, Coords{X: 0, Y: 50}, 50},
		{"diagonal", Coords{X: 0, Y: 0}, Coords{X: 3, Y: 4}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Distance(tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Distance() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestCoordsOnSegment(t *testing.T) {
	a := Coords{X: 0, Y: 0}
	b := Coords{X: 100, Y: 100}

	tests := []struct {
		name  string
		point Coords
		want  bool
	}{
		{"midpoint", Coords{X: 50, Y: 50}, true},
		{"endpoint a", a, true},
		{"endpoint b", b, true},
		{"collinear but past b", Coords{X: 150, Y: 150}, false},
		{"collinear but before a", Coords{X: -10, Y: -10}, false},
		{"off the line", Coords{X: 50, Y: 51}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.point.OnSegment(a, b); got != tt.want {
				t.Errorf("OnSegment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAngleConversions(t *testing.T) {
	if got := Deg2Rad(180); math.Abs(got-math.Pi) > 1e-12 {
		t.Errorf("Deg2Rad(180) = %f, want pi", got)
	}
	if got := Rad2Deg(math.Pi / 2); math.Abs(got-90) > 1e-12 {
		t.Errorf("Rad2Deg(pi/2) = %f, want 90", got)
	}
}
