package layout

import (
	"math"

	"github.com/starford/canvasai/internal/canvas"
)

// StackDirection is the main axis of a stack.
type StackDirection string

const (
	StackVertical   StackDirection = "vertical"
	StackHorizontal StackDirection = "horizontal"
)

// Alignment positions objects on the cross axis.
type Alignment string

const (
	AlignStart  Alignment = "start"
	AlignCenter Alignment = "center"
	AlignEnd    Alignment = "end"
)

// StackOptions configures Stack. The zero value stacks vertically,
// start-aligned, from the origin.
type StackOptions struct {
	Direction StackDirection `json:"direction"`
	Gap       float64        `json:"gap"`
	Align     Alignment      `json:"align"`
	Origin    canvas.Point   `json:"origin"`
}

// Stack places objects one after another along a single axis.
func Stack(objs []canvas.Object, opts StackOptions) Result {
	out, nodes := split(objs)
	gap := gapOr(opts.Gap)
	horizontal := opts.Direction == StackHorizontal

	var cross float64
	for _, i := range nodes {
		if horizontal {
			cross = math.Max(cross, out[i].Height)
		} else {
			cross = math.Max(cross, out[i].Width)
		}
	}

	cursor := 0.0
	for _, i := range nodes {
		o := &out[i]
		size, main := o.Width, o.Height
		if horizontal {
			size, main = o.Height, o.Width
		}
		var offset float64
		switch opts.Align {
		case AlignCenter:
			offset = (cross - size) / 2
		case AlignEnd:
			offset = cross - size
		}
		if horizontal {
			o.X = opts.Origin.X + cursor
			o.Y = opts.Origin.Y + offset
		} else {
			o.X = opts.Origin.X + offset
			o.Y = opts.Origin.Y + cursor
		}
		cursor += main + gap
	}
	return finish(out, nodes)
}
