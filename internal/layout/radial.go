package layout

import (
	"math"

	"github.com/starford/canvasai/internal/canvas"
)

// DefaultRadius is used when RadialOptions.Radius is not positive.
const DefaultRadius = 300.0

// RadialOptions configures Radial. StartAngle is in degrees, measured
// clockwise from the positive x axis.
type RadialOptions struct {
	Center     canvas.Point `json:"center"`
	Radius     float64      `json:"radius"`
	StartAngle float64      `json:"startAngle"`
}

// Radial spreads objects evenly on a circle, centering each object on its
// point. A single object is centered on the circle center.
func Radial(objs []canvas.Object, opts RadialOptions) Result {
	out, nodes := split(objs)
	radius := opts.Radius
	if radius <= 0 {
		radius = DefaultRadius
	}

	if len(nodes) == 1 {
		o := &out[nodes[0]]
		o.X = opts.Center.X - o.Width/2
		o.Y = opts.Center.Y - o.Height/2
		return finish(out, nodes)
	}

	step := 2 * math.Pi / float64(len(nodes))
	start := opts.StartAngle * math.Pi / 180
	for n, i := range nodes {
		angle := start + float64(n)*step
		o := &out[i]
		o.X = opts.Center.X + radius*math.Cos(angle) - o.Width/2
		o.Y = opts.Center.Y + radius*math.Sin(angle) - o.Height/2
	}
	return finish(out, nodes)
}
