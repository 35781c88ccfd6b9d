// Package layout provides pure arrangement algorithms for canvas objects.
//
// Every algorithm copies its input, clamps positions to the board bounds
// and rounds them to integers. Connector objects are carried through
// unchanged; their geometry follows their endpoints.
package layout

import (
	"fmt"
	"math"

	"github.com/starford/canvasai/internal/canvas"
)

// DefaultGap is the spacing used when an option leaves it at zero.
const DefaultGap = 20.0

// Algorithm names an arrangement.
type Algorithm string

const (
	AlgorithmHierarchical Algorithm = "hierarchical"
	AlgorithmGrid         Algorithm = "grid"
	AlgorithmStack        Algorithm = "stack"
	AlgorithmRadial       Algorithm = "radial"
)

// Algorithms lists the supported arrangements.
var Algorithms = []Algorithm{AlgorithmHierarchical, AlgorithmGrid, AlgorithmStack, AlgorithmRadial}

// Result is the output of an arrangement. BoundingBox contains every
// arranged (non-connector) object.
type Result struct {
	Objects     []canvas.Object `json:"objects"`
	BoundingBox canvas.Rect     `json:"boundingBox"`
}

// Options collects the options of every algorithm so callers can decode
// one document and dispatch by name.
type Options struct {
	Hierarchical HierarchicalOptions `json:"hierarchical"`
	Grid         GridOptions         `json:"grid"`
	Stack        StackOptions        `json:"stack"`
	Radial       RadialOptions       `json:"radial"`
}

// Arrange dispatches to the named algorithm.
func Arrange(alg Algorithm, objs []canvas.Object, opts Options) (Result, error) {
	switch alg {
	case AlgorithmHierarchical:
		return Hierarchical(objs, opts.Hierarchical), nil
	case AlgorithmGrid:
		return Grid(objs, opts.Grid), nil
	case AlgorithmStack:
		return Stack(objs, opts.Stack), nil
	case AlgorithmRadial:
		return Radial(objs, opts.Radial), nil
	}
	return Result{}, fmt.Errorf("layout: unknown algorithm %q", alg)
}

// split copies objs and returns the copy plus the indexes of the
// non-connector objects in input order.
func split(objs []canvas.Object) ([]canvas.Object, []int) {
	out := canvas.Clone(objs)
	if out == nil {
		out = []canvas.Object{}
	}
	nodes := make([]int, 0, len(out))
	for i := range out {
		if out[i].Type() != canvas.TypeConnector {
			nodes = append(nodes, i)
		}
	}
	return out, nodes
}

// finish clamps and rounds the arranged objects and computes the bounding box.
func finish(out []canvas.Object, nodes []int) Result {
	var box canvas.Rect
	for n, i := range nodes {
		o := &out[i]
		o.X = canvas.ClampPosition(math.Round(o.X))
		o.Y = canvas.ClampPosition(math.Round(o.Y))
		if n == 0 {
			box = o.Bounds()
		} else {
			box = box.Union(o.Bounds())
		}
	}
	return Result{Objects: out, BoundingBox: box}
}

func gapOr(v float64) float64 {
	if v == 0 {
		return DefaultGap
	}
	return math.Max(0, v)
}
