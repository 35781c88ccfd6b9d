package canvas

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectJSON_ConnectorProperties(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	obj := Object{
		ID:      "c1",
		BoardID: "b1",
		X:       10, Y: 20, Width: 100, Height: 10,
		Version:   3,
		CreatedAt: now,
		UpdatedAt: now,
		Shape: Connector{
			FromObjectID: "a", ToObjectID: "b",
			FromPort: PortRight, ToPort: PortLeft,
			ArrowStyle: ArrowEnd, StrokeStyle: StrokeDashed,
		},
	}

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"connector"`)
	assert.Contains(t, string(data), `"parentFrameId":null`)
	assert.Contains(t, string(data), `"fromObjectId":"a"`)

	var back Object
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, obj, back)
}

func TestObjectJSON_MissingPropertiesUsesDefaults(t *testing.T) {
	var obj Object
	require.NoError(t, json.Unmarshal([]byte(`{"id":"r","type":"rectangle","parentFrameId":"f1"}`), &obj))
	assert.Equal(t, TypeRectangle, obj.Type())
	assert.Equal(t, "f1", obj.ParentFrameID)
	assert.Equal(t, Rectangle{StrokeWidth: 2}, obj.Shape)
}

func TestObjectJSON_UnknownType(t *testing.T) {
	var obj Object
	err := json.Unmarshal([]byte(`{"id":"x","type":"hexagon"}`), &obj)
	require.Error(t, err)
}

func TestGap(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 100, Height: 100}
	assert.Equal(t, 20.0, Gap(a, Rect{X: 120, Y: 0, Width: 50, Height: 50}))
	assert.Equal(t, 30.0, Gap(a, Rect{X: 0, Y: 130, Width: 50, Height: 50}))
	assert.Less(t, Gap(a, Rect{X: 50, Y: 50, Width: 100, Height: 100}), 0.0)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, MinPosition, ClampPosition(-999999))
	assert.Equal(t, MaxPosition, ClampPosition(math.Inf(1)))
	assert.Equal(t, 0.0, ClampPosition(math.NaN()))
	assert.Equal(t, MinDimension, ClampDimension(1))
	assert.Equal(t, MaxDimension, ClampDimension(9000))
	assert.Equal(t, 250.0, ClampDimension(250))
}

func TestBoundingBox(t *testing.T) {
	objs := []Object{
		{X: 0, Y: 0, Width: 10, Height: 10},
		{X: 100, Y: -50, Width: 20, Height: 20},
	}
	assert.Equal(t, Rect{X: 0, Y: -50, Width: 120, Height: 60}, BoundingBox(objs))
	assert.Equal(t, Rect{}, BoundingBox(nil))
}
