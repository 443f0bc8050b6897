// Package models contains domain types for the plotter studio backend.
package models

import "math"

// Unit is the length unit a document is declared in.
type Unit string

const (
	UnitInches      Unit = "in"
	UnitMillimeters Unit = "mm"
)

// Point is a 2D coordinate in the owning document's unit.
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Polyline is one continuous pen-down stroke. Fewer than two points draws nothing.
type Polyline []Point

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Drawable reports whether the polyline has enough points to be plotted.
func (p Polyline) Drawable() bool {
	return len(p) >= 2
}

// Start returns the first point. The polyline must not be empty.
func (p Polyline) Start() Point {
	return p[0]
}

// End returns the last point. The polyline must not be empty.
func (p Polyline) End() Point {
	return p[len(p)-1]
}

// Length sums the distances between consecutive points.
func (p Polyline) Length() float64 {
	total := 0.0
	for i := 1; i < len(p); i++ {
		total += Distance(p[i-1], p[i])
	}
	return total
}

// Clone returns a copy that shares no backing storage with p.
func (p Polyline) Clone() Polyline {
	if p == nil {
		return nil
	}
	out := make(Polyline, len(p))
	copy(out, p)
	return out
}

// Reversed returns a reversed copy of p.
func (p Polyline) Reversed() Polyline {
	out := make(Polyline, len(p))
	for i, pt := range p {
		out[len(p)-1-i] = pt
	}
	return out
}

// ClonePolylines deep-copies a polyline list.
func ClonePolylines(polylines []Polyline) []Polyline {
	out := make([]Polyline, len(polylines))
	for i, pl := range polylines {
		out[i] = pl.Clone()
	}
	return out
}
