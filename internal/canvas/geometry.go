package canvas

import "math"

// Numeric contract shared by the validator, executor and layout engine.
const (
	MinPosition  = -50000.0
	MaxPosition  = 50000.0
	MinDimension = 10.0
	MaxDimension = 5000.0
)

// Point is a canvas coordinate. The origin is top-left, x grows right and y grows down.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned box given by its top-left corner and size.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectAround returns a rect of the given size centered on c.
func RectAround(c Point, width, height float64) Rect {
	return Rect{X: c.X - width/2, Y: c.Y - height/2, Width: width, Height: height}
}

// Center returns the center of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Intersects reports whether a and b overlap with positive area.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.Right() && r.Right() > o.X &&
		r.Y < o.Bottom() && r.Bottom() > o.Y
}

// Union returns the smallest rect containing both r and o.
func (r Rect) Union(o Rect) Rect {
	x1 := math.Min(r.X, o.X)
	y1 := math.Min(r.Y, o.Y)
	x2 := math.Max(r.Right(), o.Right())
	y2 := math.Max(r.Bottom(), o.Bottom())
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Contains reports whether o lies fully inside r.
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.Right() <= r.Right() && o.Bottom() <= r.Bottom()
}

// Gap returns the separation between two boxes: the larger of the
// horizontal and vertical gaps. It is negative when they overlap.
func Gap(a, b Rect) float64 {
	gx := math.Max(b.X-a.Right(), a.X-b.Right())
	gy := math.Max(b.Y-a.Bottom(), a.Y-b.Bottom())
	return math.Max(gx, gy)
}

// Distance returns the euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// BoundingBox returns the union of the bounds of objs, or a zero rect when empty.
func BoundingBox(objs []Object) Rect {
	var box Rect
	for i, o := range objs {
		if i == 0 {
			box = o.Bounds()
			continue
		}
		box = box.Union(o.Bounds())
	}
	return box
}

// ClampPosition forces v into [MinPosition, MaxPosition]. NaN becomes 0.
func ClampPosition(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(MinPosition, math.Min(MaxPosition, v))
}

// ClampDimension forces v into [MinDimension, MaxDimension]. NaN becomes MinDimension.
func ClampDimension(v float64) float64 {
	if math.IsNaN(v) {
		return MinDimension
	}
	return math.Max(MinDimension, math.Min(MaxDimension, v))
}
