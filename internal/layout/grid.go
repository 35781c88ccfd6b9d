package layout

import (
	"math"

	"github.com/starford/canvasai/internal/canvas"
)

// GridOptions configures Grid. Zero values select defaults: columns from
// the square root of the object count, cells sized to the largest object.
type GridOptions struct {
	Columns    int          `json:"columns"`
	CellWidth  float64      `json:"cellWidth"`
	CellHeight float64      `json:"cellHeight"`
	Gap        float64      `json:"gap"`
	Origin     canvas.Point `json:"origin"`
}

// Grid places objects row-major, each centered in its cell.
func Grid(objs []canvas.Object, opts GridOptions) Result {
	out, nodes := split(objs)
	if len(nodes) == 0 {
		return finish(out, nodes)
	}

	cols := opts.Columns
	if cols == 0 {
		cols = int(math.Ceil(math.Sqrt(float64(len(nodes)))))
	}
	cols = max(1, cols)

	cellW, cellH := opts.CellWidth, opts.CellHeight
	if cellW <= 0 || cellH <= 0 {
		var maxW, maxH float64
		for _, i := range nodes {
			maxW = math.Max(maxW, out[i].Width)
			maxH = math.Max(maxH, out[i].Height)
		}
		if cellW <= 0 {
			cellW = maxW
		}
		if cellH <= 0 {
			cellH = maxH
		}
	}
	gap := gapOr(opts.Gap)

	for n, i := range nodes {
		col, row := n%cols, n/cols
		cellX := opts.Origin.X + float64(col)*(cellW+gap)
		cellY := opts.Origin.Y + float64(row)*(cellH+gap)
		out[i].X = cellX + (cellW-out[i].Width)/2
		out[i].Y = cellY + (cellH-out[i].Height)/2
	}
	return finish(out, nodes)
}
