// Package collision separates newly placed canvas objects so that they do
// not overlap each other or the objects already on the board.
package collision

import (
	"math"

	"github.com/starford/canvasai/internal/canvas"
)

const (
	// Padding is the minimum gap kept between two object bounds.
	Padding = 20.0
	// MaxIterations bounds the number of separation passes.
	MaxIterations = 30

	epsilon = 0.01
)

type body struct {
	obj     *canvas.Object
	movable bool
}

// Resolve returns copies of newObjs moved apart from each other and from
// existing, which never moves. Connectors are ignored, and an object is
// never pushed away from the frame it belongs to. Positions are rounded
// to integers.
func Resolve(newObjs, existing []canvas.Object) []canvas.Object {
	out := canvas.Clone(newObjs)
	if len(out) == 0 {
		return out
	}

	var movable []body
	for i := range out {
		if out[i].Type() == canvas.TypeConnector {
			continue
		}
		movable = append(movable, body{obj: &out[i], movable: true})
	}
	var fixed []body
	for i := range existing {
		if existing[i].Type() == canvas.TypeConnector {
			continue
		}
		o := existing[i]
		fixed = append(fixed, body{obj: &o})
	}

	if len(movable)+len(fixed) > 1 {
		for pass := 0; pass < MaxIterations; pass++ {
			moved := false
			for i := 0; i < len(movable); i++ {
				for j := i + 1; j < len(movable); j++ {
					if separate(movable[i], movable[j]) {
						moved = true
					}
				}
				for j := range fixed {
					if separate(movable[i], fixed[j]) {
						moved = true
					}
				}
			}
			if !moved {
				break
			}
		}
	}

	for i := range out {
		out[i].X = canvas.ClampPosition(math.Round(out[i].X))
		out[i].Y = canvas.ClampPosition(math.Round(out[i].Y))
	}
	return out
}

// separate pushes a and b apart along the axis of lesser penetration and
// reports whether anything moved.
func separate(a, b body) bool {
	if related(*a.obj, *b.obj) {
		return false
	}
	ra, rb := a.obj.Bounds(), b.obj.Bounds()

	penX := math.Min(ra.Right(), rb.Right()) + Padding - math.Max(ra.X, rb.X)
	penY := math.Min(ra.Bottom(), rb.Bottom()) + Padding - math.Max(ra.Y, rb.Y)
	if penX <= epsilon || penY <= epsilon {
		return false
	}

	ca, cb := ra.Center(), rb.Center()
	share := 0.5
	if !b.movable {
		share = 1
	}

	if penX <= penY {
		// Equal centers push a to the left.
		dir := -1.0
		if ca.X > cb.X {
			dir = 1
		}
		a.obj.X += dir * penX * share
		if b.movable {
			b.obj.X -= dir * penX * (1 - share)
		}
	} else {
		dir := -1.0
		if ca.Y > cb.Y {
			dir = 1
		}
		a.obj.Y += dir * penY * share
		if b.movable {
			b.obj.Y -= dir * penY * (1 - share)
		}
	}
	return true
}

func related(a, b canvas.Object) bool {
	return (a.ParentFrameID != "" && a.ParentFrameID == b.ID) ||
		(b.ParentFrameID != "" && b.ParentFrameID == a.ID)
}
