// Package geom holds the small amount of 2D geometry shared by the content
// stream tracker, the graphics sequence and the spatial index.
package geom

import (
	"fmt"
	"math"
)

// Point represents a 2D point in PDF user space
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle given by its lower-left and upper-right corners
type Rect struct {
	LLX, LLY, URX, URY float64
}

// NewRect creates a rectangle from an origin and a size, normalising negative sizes
func NewRect(x, y, width, height float64) Rect {
	return RectFromPoints(Point{X: x, Y: y}, Point{X: x + width, Y: y + height})
}

// RectFromPoints returns the smallest rectangle covering all points
func RectFromPoints(points ...Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	for _, p := range points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{LLX: minX, LLY: minY, URX: maxX, URY: maxY}
}

// Width returns the horizontal extent
func (r Rect) Width() float64 { return r.URX - r.LLX }

// Height returns the vertical extent
func (r Rect) Height() float64 { return r.URY - r.LLY }

// IsEmpty reports whether the rectangle has no area and no position
func (r Rect) IsEmpty() bool {
	return r == Rect{}
}

// Union returns the smallest rectangle containing both r and o.
// An empty rectangle is the identity element.
func (r Rect) Union(o Rect) Rect {
	if r.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return r
	}
	return Rect{
		LLX: math.Min(r.LLX, o.LLX),
		LLY: math.Min(r.LLY, o.LLY),
		URX: math.Max(r.URX, o.URX),
		URY: math.Max(r.URY, o.URY),
	}
}

// Intersects checks if two rectangles overlap (touching edges count)
func (r Rect) Intersects(o Rect) bool {
	return !(o.LLX > r.URX || o.URX < r.LLX || o.LLY > r.URY || o.URY < r.LLY)
}

// Contains checks if o lies entirely within r
func (r Rect) Contains(o Rect) bool {
	return o.LLX >= r.LLX && o.URX <= r.URX && o.LLY >= r.LLY && o.URY <= r.URY
}

// ContainsPoint checks if p lies within r
func (r Rect) ContainsPoint(p Point) bool {
	return p.X >= r.LLX && p.X <= r.URX && p.Y >= r.LLY && p.Y <= r.URY
}

// Transform maps the four corners through m and returns their bounding box
func (r Rect) Transform(m Matrix) Rect {
	return RectFromPoints(
		m.Transform(Point{X: r.LLX, Y: r.LLY}),
		m.Transform(Point{X: r.URX, Y: r.LLY}),
		m.Transform(Point{X: r.LLX, Y: r.URY}),
		m.Transform(Point{X: r.URX, Y: r.URY}),
	)
}

func (r Rect) String() string {
	return fmt.Sprintf("[%.2f %.2f %.2f %.2f]", r.LLX, r.LLY, r.URX, r.URY)
}

// Matrix is a PDF transformation matrix [a b c d e f]
type Matrix [6]float64

// Identity returns the identity matrix
func Identity() Matrix {
	return Matrix{1, 0, 0, 1, 0, 0}
}

// Translate returns a translation matrix
func Translate(tx, ty float64) Matrix {
	return Matrix{1, 0, 0, 1, tx, ty}
}

// Scale returns a scaling matrix
func Scale(sx, sy float64) Matrix {
	return Matrix{sx, 0, 0, sy, 0, 0}
}

// Multiply returns m × o, i.e. m applied first and o second
func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[1]*o[2],
		m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2],
		m[2]*o[1] + m[3]*o[3],
		m[4]*o[0] + m[5]*o[2] + o[4],
		m[4]*o[1] + m[5]*o[3] + o[5],
	}
}

// Transform applies the matrix to a point
func (m Matrix) Transform(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// IsIdentity reports whether m is the identity matrix
func (m Matrix) IsIdentity() bool {
	return m == Identity()
}

func (m Matrix) String() string {
	return fmt.Sprintf("[%g %g %g %g %g %g]", m[0], m[1], m[2], m[3], m[4], m[5])
}
