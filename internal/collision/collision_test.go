package collision

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/canvasai/internal/canvas"
)

func note(id string, x, y, w, h float64) canvas.Object {
	return canvas.Object{ID: id, X: x, Y: y, Width: w, Height: h, Shape: canvas.StickyNote{}}
}

func assertSeparated(t *testing.T, objs []canvas.Object) {
	t.Helper()
	for i := 0; i < len(objs); i++ {
		for j := i + 1; j < len(objs); j++ {
			gap := canvas.Gap(objs[i].Bounds(), objs[j].Bounds())
			assert.GreaterOrEqual(t, gap, Padding-1, "objects %s and %s too close", objs[i].ID, objs[j].ID)
		}
	}
}

func TestResolve_EmptyAndSingle(t *testing.T) {
	assert.Empty(t, Resolve(nil, nil))

	single := []canvas.Object{note("a", 12, 34, 100, 100)}
	assert.Equal(t, single, Resolve(single, nil))
}

func TestResolve_TwoAtOrigin(t *testing.T) {
	in := []canvas.Object{note("a", 0, 0, 200, 200), note("b", 0, 0, 200, 200)}

	out := Resolve(in, nil)

	require.Len(t, out, 2)
	assertSeparated(t, out)
	assert.Equal(t, 0.0, in[0].X, "input mutated")
	assert.Equal(t, 0.0, in[1].X, "input mutated")
	// The push is split evenly between two movable objects.
	assert.Equal(t, -110.0, out[0].X)
	assert.Equal(t, 110.0, out[1].X)
}

func TestResolve_FixedObjectAbsorbsNothing(t *testing.T) {
	existing := []canvas.Object{note("old", 0, 0, 200, 200)}
	in := []canvas.Object{note("new", 50, 10, 200, 200)}

	out := Resolve(in, existing)

	assert.Equal(t, 0.0, existing[0].X)
	assertSeparated(t, append(out, existing...))
	// Lesser overlap is along x, so the new object moves right by the full push.
	assert.Equal(t, 220.0, out[0].X)
	assert.Equal(t, 10.0, out[0].Y)
}

func TestResolve_Cluster(t *testing.T) {
	var in []canvas.Object
	for i := 0; i < 4; i++ {
		in = append(in, note(fmt.Sprintf("n%d", i), float64(i*30), float64(i*20), 150, 150))
	}
	existing := []canvas.Object{note("fixed", 400, 0, 200, 200)}

	out := Resolve(in, existing)

	assertSeparated(t, append(canvas.Clone(out), existing...))
	for _, o := range out {
		assert.Equal(t, math.Round(o.X), o.X)
		assert.Equal(t, math.Round(o.Y), o.Y)
	}
}

func TestResolve_ChildStaysInParentFrame(t *testing.T) {
	existing := []canvas.Object{{ID: "f", X: 0, Y: 0, Width: 1000, Height: 800, Shape: canvas.Frame{}}}
	child := note("c", 100, 100, 200, 200)
	child.ParentFrameID = "f"

	out := Resolve([]canvas.Object{child}, existing)

	assert.Equal(t, 100.0, out[0].X)
	assert.Equal(t, 100.0, out[0].Y)
}

func TestResolve_ConnectorsIgnored(t *testing.T) {
	conn := canvas.Object{ID: "k", X: 0, Y: 0, Width: 300, Height: 10, Shape: canvas.Connector{}}
	in := []canvas.Object{conn, note("a", 0, 0, 200, 200)}

	out := Resolve(in, nil)

	assert.Equal(t, conn.X, out[0].X)
	assert.Equal(t, 0.0, out[1].X)
	assert.Equal(t, 0.0, out[1].Y)
}
