package layout

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/canvasai/internal/canvas"
)

func box(id string, w, h float64) canvas.Object {
	return canvas.Object{ID: id, X: 3.3, Y: 7.7, Width: w, Height: h, Shape: canvas.Rectangle{}}
}

func edge(id, from, to string) canvas.Object {
	return canvas.Object{ID: id, Width: 10, Height: 10, Shape: canvas.Connector{FromObjectID: from, ToObjectID: to}}
}

func byID(objs []canvas.Object) map[string]canvas.Object {
	m := make(map[string]canvas.Object, len(objs))
	for _, o := range objs {
		m[o.ID] = o
	}
	return m
}

func assertWellFormed(t *testing.T, in []canvas.Object, res Result) {
	t.Helper()
	require.Len(t, res.Objects, len(in))
	for _, o := range res.Objects {
		if o.Type() == canvas.TypeConnector {
			continue
		}
		assert.Equal(t, math.Round(o.X), o.X, "x of %s not integral", o.ID)
		assert.Equal(t, math.Round(o.Y), o.Y, "y of %s not integral", o.ID)
		assert.True(t, res.BoundingBox.Contains(o.Bounds()), "%s outside bounding box", o.ID)
	}
}

func TestHierarchical_ChainTopToBottom(t *testing.T) {
	in := []canvas.Object{
		box("a", 100, 50), box("b", 100, 50), box("c", 100, 50),
		edge("e1", "a", "b"), edge("e2", "b", "c"), edge("e3", "c", "outside"),
	}
	snapshot := canvas.Clone(in)

	res := Hierarchical(in, HierarchicalOptions{})

	assertWellFormed(t, in, res)
	if diff := cmp.Diff(snapshot, in); diff != "" {
		t.Fatalf("input mutated (-want +got):\n%s", diff)
	}
	m := byID(res.Objects)
	assert.Equal(t, 0.0, m["a"].Y)
	assert.Equal(t, 50.0+DefaultRankSep, m["b"].Y)
	assert.Equal(t, 2*(50.0+DefaultRankSep), m["c"].Y)
	assert.Equal(t, m["a"].X, m["c"].X)
	assert.Equal(t, in[3], res.Objects[3], "connector should pass through")
}

func TestHierarchical_LeftToRightAndReversed(t *testing.T) {
	in := []canvas.Object{box("a", 100, 50), box("b", 100, 50), edge("e", "a", "b")}

	lr := byID(Hierarchical(in, HierarchicalOptions{Direction: DirectionLR}).Objects)
	assert.Less(t, lr["a"].X, lr["b"].X)
	assert.Equal(t, lr["a"].Y, lr["b"].Y)

	rl := byID(Hierarchical(in, HierarchicalOptions{Direction: DirectionRL}).Objects)
	assert.Greater(t, rl["a"].X, rl["b"].X)

	bt := byID(Hierarchical(in, HierarchicalOptions{Direction: DirectionBT}).Objects)
	assert.Greater(t, bt["a"].Y, bt["b"].Y)
}

func TestHierarchical_CycleTerminates(t *testing.T) {
	in := []canvas.Object{box("a", 80, 80), box("b", 80, 80), edge("e1", "a", "b"), edge("e2", "b", "a")}

	res := Hierarchical(in, HierarchicalOptions{Origin: canvas.Point{X: 500, Y: 500}})

	assertWellFormed(t, in, res)
	m := byID(res.Objects)
	assert.NotEqual(t, m["a"].Y, m["b"].Y)
	assert.Equal(t, 500.0, res.BoundingBox.X)
	assert.Equal(t, 500.0, res.BoundingBox.Y)
}

func TestHierarchical_SiblingsShareRank(t *testing.T) {
	in := []canvas.Object{
		box("root", 100, 100), box("l", 100, 100), box("r", 100, 100),
		edge("e1", "root", "l"), edge("e2", "root", "r"),
	}

	m := byID(Hierarchical(in, HierarchicalOptions{NodeSep: 30}).Objects)

	assert.Equal(t, m["l"].Y, m["r"].Y)
	assert.Equal(t, 130.0, math.Abs(m["r"].X-m["l"].X))
	rootCenter := m["root"].X + 50
	assert.Equal(t, (m["l"].X+m["r"].X)/2+50, rootCenter)
}

func TestHierarchical_SingleObjectUnchangedButRounded(t *testing.T) {
	in := []canvas.Object{box("a", 100, 100)}

	res := Hierarchical(in, HierarchicalOptions{})

	assert.Equal(t, 3.0, res.Objects[0].X)
	assert.Equal(t, 8.0, res.Objects[0].Y)
	assert.Empty(t, Hierarchical(nil, HierarchicalOptions{}).Objects)
}

func TestGrid(t *testing.T) {
	in := []canvas.Object{box("a", 100, 100), box("b", 50, 50), box("c", 100, 100), box("d", 100, 100), box("e", 100, 100)}

	res := Grid(in, GridOptions{Gap: 10, Origin: canvas.Point{X: 100, Y: 200}})

	assertWellFormed(t, in, res)
	m := byID(res.Objects)
	// Five objects default to three columns.
	assert.Equal(t, 100.0, m["a"].X)
	assert.Equal(t, 235.0, m["b"].X) // centered in the second cell
	assert.Equal(t, 320.0, m["c"].X)
	assert.Equal(t, 100.0, m["d"].X)
	assert.Equal(t, 310.0, m["d"].Y)
	assert.Equal(t, canvas.Rect{X: 100, Y: 200, Width: 320, Height: 210}, res.BoundingBox)
}

func TestGrid_MinimumOneColumn(t *testing.T) {
	in := []canvas.Object{box("a", 10, 10), box("b", 10, 10)}
	m := byID(Grid(in, GridOptions{Columns: -4}).Objects)
	assert.Equal(t, m["a"].X, m["b"].X)
	assert.Less(t, m["a"].Y, m["b"].Y)
}

func TestStack(t *testing.T) {
	in := []canvas.Object{box("a", 100, 40), box("b", 50, 80)}

	res := Stack(in, StackOptions{Direction: StackHorizontal, Gap: 10, Align: AlignEnd})

	assertWellFormed(t, in, res)
	m := byID(res.Objects)
	assert.Equal(t, 0.0, m["a"].X)
	assert.Equal(t, 40.0, m["a"].Y)
	assert.Equal(t, 110.0, m["b"].X)
	assert.Equal(t, 0.0, m["b"].Y)

	v := byID(Stack(in, StackOptions{Align: AlignCenter}).Objects)
	assert.Equal(t, 25.0, v["b"].X)
	assert.Equal(t, 40.0+DefaultGap, v["b"].Y)
}

func TestRadial(t *testing.T) {
	in := []canvas.Object{box("a", 100, 100), box("b", 100, 100), box("c", 100, 100), box("d", 100, 100)}

	res := Radial(in, RadialOptions{Center: canvas.Point{X: 1000, Y: 1000}, Radius: 200})

	assertWellFormed(t, in, res)
	m := byID(res.Objects)
	assert.Equal(t, canvas.Point{X: 1200, Y: 1000}, m["a"].Center())
	assert.Equal(t, canvas.Point{X: 1000, Y: 1200}, m["b"].Center())
	assert.Equal(t, canvas.Point{X: 800, Y: 1000}, m["c"].Center())

	single := Radial(in[:1], RadialOptions{Center: canvas.Point{X: 50, Y: 50}})
	assert.Equal(t, canvas.Point{X: 50, Y: 50}, single.Objects[0].Center())
}

func TestArrangeClampsToBounds(t *testing.T) {
	in := []canvas.Object{box("a", 100, 100), box("b", 100, 100)}
	res, err := Arrange(AlgorithmStack, in, Options{Stack: StackOptions{Origin: canvas.Point{X: 60000, Y: -60000}}})
	require.NoError(t, err)
	for _, o := range res.Objects {
		assert.LessOrEqual(t, o.X, canvas.MaxPosition)
		assert.GreaterOrEqual(t, o.Y, canvas.MinPosition)
	}

	_, err = Arrange("spiral", in, Options{})
	assert.Error(t, err)
}

func TestSuggestPorts(t *testing.T) {
	at := func(x, y float64) canvas.Object { return canvas.Object{X: x, Y: y, Width: 100, Height: 100} }
	tests := []struct {
		name     string
		from, to canvas.Object
		fp, tp   canvas.Port
	}{
		{"right", at(0, 0), at(300, 50), canvas.PortRight, canvas.PortLeft},
		{"left", at(300, 0), at(0, 50), canvas.PortLeft, canvas.PortRight},
		{"below", at(0, 0), at(50, 300), canvas.PortBottom, canvas.PortTop},
		{"above", at(0, 300), at(50, 0), canvas.PortTop, canvas.PortBottom},
		{"diagonal tie", at(0, 0), at(200, 200), canvas.PortRight, canvas.PortLeft},
		{"same spot", at(0, 0), at(0, 0), canvas.PortRight, canvas.PortLeft},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp, tp := SuggestPorts(tt.from, tt.to)
			assert.Equal(t, tt.fp, fp)
			assert.Equal(t, tt.tp, tp)
		})
	}
}

func TestConnectorBounds(t *testing.T) {
	a := canvas.Object{X: 0, Y: 0, Width: 100, Height: 100}
	b := canvas.Object{X: 300, Y: 0, Width: 100, Height: 100}
	r := ConnectorBounds(a, b, canvas.PortRight, canvas.PortLeft)
	assert.Equal(t, canvas.Rect{X: 100, Y: 50, Width: 200, Height: canvas.MinDimension}, r)
}
