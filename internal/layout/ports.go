package layout

import (
	"math"

	"github.com/starford/canvasai/internal/canvas"
)

// SuggestPorts picks the source and target ports for a connector between
// from and to by comparing the horizontal and vertical distance between
// their centers. Ties prefer the horizontal axis and the right side.
func SuggestPorts(from, to canvas.Object) (canvas.Port, canvas.Port) {
	fc, tc := from.Center(), to.Center()
	dx := tc.X - fc.X
	dy := tc.Y - fc.Y

	if math.Abs(dx) >= math.Abs(dy) {
		if dx >= 0 {
			return canvas.PortRight, canvas.PortLeft
		}
		return canvas.PortLeft, canvas.PortRight
	}
	if dy > 0 {
		return canvas.PortBottom, canvas.PortTop
	}
	return canvas.PortTop, canvas.PortBottom
}

// AnchorPoint returns the canvas coordinate of port on o.
func AnchorPoint(o canvas.Object, port canvas.Port) canvas.Point {
	r := o.Bounds()
	c := r.Center()
	switch port {
	case canvas.PortTop:
		return canvas.Point{X: c.X, Y: r.Y}
	case canvas.PortRight:
		return canvas.Point{X: r.Right(), Y: c.Y}
	case canvas.PortBottom:
		return canvas.Point{X: c.X, Y: r.Bottom()}
	case canvas.PortLeft:
		return canvas.Point{X: r.X, Y: c.Y}
	}
	return c
}

// ConnectorBounds returns the box spanned by the two anchor points, with
// each side at least canvas.MinDimension long.
func ConnectorBounds(from, to canvas.Object, fromPort, toPort canvas.Port) canvas.Rect {
	a := AnchorPoint(from, fromPort)
	b := AnchorPoint(to, toPort)
	r := canvas.Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
	r.Width = math.Max(r.Width, canvas.MinDimension)
	r.Height = math.Max(r.Height, canvas.MinDimension)
	return r
}
