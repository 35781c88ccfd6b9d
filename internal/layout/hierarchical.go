package layout

import (
	"math"
	"sort"

	"github.com/starford/canvasai/internal/canvas"
)

// Direction is the flow direction of a hierarchical layout.
type Direction string

const (
	DirectionTB Direction = "TB"
	DirectionLR Direction = "LR"
	DirectionBT Direction = "BT"
	DirectionRL Direction = "RL"
)

// Defaults for HierarchicalOptions.
const (
	DefaultNodeSep = 50.0
	DefaultRankSep = 80.0
	orderSweeps    = 4
)

// HierarchicalOptions configures Hierarchical. NodeSep separates objects
// within a rank and RankSep separates ranks.
type HierarchicalOptions struct {
	Direction Direction    `json:"direction"`
	NodeSep   float64      `json:"nodeSep"`
	RankSep   float64      `json:"rankSep"`
	Origin    canvas.Point `json:"origin"`
}

// Hierarchical ranks objects along the connectors between them and lays
// the ranks out in the configured direction. Connectors that reference
// objects outside the set are ignored. The top-left of the result sits at
// Origin.
func Hierarchical(objs []canvas.Object, opts HierarchicalOptions) Result {
	out, nodes := split(objs)
	if len(nodes) <= 1 {
		return finish(out, nodes)
	}
	if opts.NodeSep <= 0 {
		opts.NodeSep = DefaultNodeSep
	}
	if opts.RankSep <= 0 {
		opts.RankSep = DefaultRankSep
	}

	g := newGraph(out, nodes)
	g.breakCycles()
	rank := g.ranks()
	layers := g.order(rank)

	vertical := opts.Direction != DirectionLR && opts.Direction != DirectionRL
	reversed := opts.Direction == DirectionBT || opts.Direction == DirectionRL

	mainSize := func(o canvas.Object) float64 {
		if vertical {
			return o.Height
		}
		return o.Width
	}
	crossSize := func(o canvas.Object) float64 {
		if vertical {
			return o.Width
		}
		return o.Height
	}

	centers := make([]canvas.Point, len(nodes))
	var main float64
	for r, layer := range layers {
		var thick, span float64
		for k, v := range layer {
			o := out[nodes[v]]
			thick = math.Max(thick, mainSize(o))
			span += crossSize(o)
			if k > 0 {
				span += opts.NodeSep
			}
		}
		if r > 0 {
			main += opts.RankSep
		}
		rankCenter := main + thick/2
		main += thick

		cross := -span / 2
		for _, v := range layer {
			o := out[nodes[v]]
			c := cross + crossSize(o)/2
			cross += crossSize(o) + opts.NodeSep

			m := rankCenter
			if reversed {
				m = -m
			}
			if vertical {
				centers[v] = canvas.Point{X: c, Y: m}
			} else {
				centers[v] = canvas.Point{X: m, Y: c}
			}
		}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	for v, i := range nodes {
		o := &out[i]
		o.X = centers[v].X - o.Width/2
		o.Y = centers[v].Y - o.Height/2
		minX = math.Min(minX, o.X)
		minY = math.Min(minY, o.Y)
	}
	for _, i := range nodes {
		out[i].X += opts.Origin.X - minX
		out[i].Y += opts.Origin.Y - minY
	}
	return finish(out, nodes)
}

type graph struct {
	n     int
	edges map[[2]int]struct{}
}

func newGraph(objs []canvas.Object, nodes []int) *graph {
	byID := make(map[string]int, len(nodes))
	for v, i := range nodes {
		byID[objs[i].ID] = v
	}
	g := &graph{n: len(nodes), edges: make(map[[2]int]struct{})}
	for _, o := range objs {
		c, ok := o.AsConnector()
		if !ok {
			continue
		}
		from, ok1 := byID[c.FromObjectID]
		to, ok2 := byID[c.ToObjectID]
		if !ok1 || !ok2 || from == to {
			continue
		}
		g.edges[[2]int{from, to}] = struct{}{}
	}
	return g
}

func (g *graph) adjacency() (succ, pred [][]int) {
	succ = make([][]int, g.n)
	pred = make([][]int, g.n)
	keys := make([][2]int, 0, len(g.edges))
	for e := range g.edges {
		keys = append(keys, e)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a][0] != keys[b][0] {
			return keys[a][0] < keys[b][0]
		}
		return keys[a][1] < keys[b][1]
	})
	for _, e := range keys {
		succ[e[0]] = append(succ[e[0]], e[1])
		pred[e[1]] = append(pred[e[1]], e[0])
	}
	return succ, pred
}

// breakCycles reverses DFS back edges so the graph becomes acyclic.
func (g *graph) breakCycles() {
	succ, _ := g.adjacency()
	const (
		unseen = iota
		active
		done
	)
	state := make([]int, g.n)
	var reverse [][2]int
	var visit func(u int)
	visit = func(u int) {
		state[u] = active
		for _, v := range succ[u] {
			switch state[v] {
			case active:
				reverse = append(reverse, [2]int{u, v})
			case unseen:
				visit(v)
			}
		}
		state[u] = done
	}
	for u := 0; u < g.n; u++ {
		if state[u] == unseen {
			visit(u)
		}
	}
	for _, e := range reverse {
		delete(g.edges, e)
		g.edges[[2]int{e[1], e[0]}] = struct{}{}
	}
}

// ranks assigns each node the length of the longest path reaching it.
func (g *graph) ranks() []int {
	succ, pred := g.adjacency()
	indeg := make([]int, g.n)
	for v := range pred {
		indeg[v] = len(pred[v])
	}
	rank := make([]int, g.n)
	queue := make([]int, 0, g.n)
	for v := 0; v < g.n; v++ {
		if indeg[v] == 0 {
			queue = append(queue, v)
		}
	}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range succ[u] {
			rank[v] = max(rank[v], rank[u]+1)
			indeg[v]--
			if indeg[v] == 0 {
				queue = append(queue, v)
			}
		}
	}
	return rank
}

// order groups nodes into layers and reduces crossings with barycenter sweeps.
func (g *graph) order(rank []int) [][]int {
	succ, pred := g.adjacency()
	maxRank := 0
	for _, r := range rank {
		maxRank = max(maxRank, r)
	}
	layers := make([][]int, maxRank+1)
	for v := 0; v < g.n; v++ {
		layers[rank[v]] = append(layers[rank[v]], v)
	}

	pos := make([]float64, g.n)
	index := func() {
		for _, layer := range layers {
			for k, v := range layer {
				pos[v] = float64(k)
			}
		}
	}
	index()

	reorder := func(layer []int, neighbors [][]int) {
		bary := make(map[int]float64, len(layer))
		for _, v := range layer {
			if len(neighbors[v]) == 0 {
				bary[v] = pos[v]
				continue
			}
			var sum float64
			for _, u := range neighbors[v] {
				sum += pos[u]
			}
			bary[v] = sum / float64(len(neighbors[v]))
		}
		sort.SliceStable(layer, func(a, b int) bool { return bary[layer[a]] < bary[layer[b]] })
		for k, v := range layer {
			pos[v] = float64(k)
		}
	}

	for sweep := 0; sweep < orderSweeps; sweep++ {
		if sweep%2 == 0 {
			for r := 1; r <= maxRank; r++ {
				reorder(layers[r], pred)
			}
		} else {
			for r := maxRank - 1; r >= 0; r-- {
				reorder(layers[r], succ)
			}
		}
	}
	return layers
}
