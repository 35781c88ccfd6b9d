// Package canvas defines the canvas object model shared by the command pipeline.
package canvas

import (
	"encoding/json"
	"fmt"
	"time"
)

// ObjectType is the closed set of canvas object kinds.
type ObjectType string

const (
	TypeStickyNote ObjectType = "sticky_note"
	TypeRectangle  ObjectType = "rectangle"
	TypeCircle     ObjectType = "circle"
	TypeText       ObjectType = "text"
	TypeFrame      ObjectType = "frame"
	TypeConnector  ObjectType = "connector"
)

// ObjectTypes lists every object type in a stable order.
var ObjectTypes = []ObjectType{TypeStickyNote, TypeRectangle, TypeCircle, TypeText, TypeFrame, TypeConnector}

// Valid reports whether t is one of the known object types.
func (t ObjectType) Valid() bool {
	switch t {
	case TypeStickyNote, TypeRectangle, TypeCircle, TypeText, TypeFrame, TypeConnector:
		return true
	}
	return false
}

// Port is a named attachment point on an object.
type Port string

const (
	PortTop    Port = "top"
	PortRight  Port = "right"
	PortBottom Port = "bottom"
	PortLeft   Port = "left"
	PortCenter Port = "center"
)

// Valid reports whether p is a known port name.
func (p Port) Valid() bool {
	switch p {
	case PortTop, PortRight, PortBottom, PortLeft, PortCenter:
		return true
	}
	return false
}

// ArrowStyle controls connector arrowheads.
type ArrowStyle string

const (
	ArrowNone ArrowStyle = "none"
	ArrowEnd  ArrowStyle = "end"
)

// StrokeStyle controls connector line rendering.
type StrokeStyle string

const (
	StrokeSolid  StrokeStyle = "solid"
	StrokeDashed StrokeStyle = "dashed"
)

// Shape holds the type-specific properties of an object. The set of
// implementations is closed; switch over it exhaustively.
type Shape interface {
	Type() ObjectType
	isShape()
}

// StickyNote has no extra properties.
type StickyNote struct{}

// Rectangle is an outlined box.
type Rectangle struct {
	StrokeColor string  `json:"strokeColor,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
}

// Circle is an ellipse inscribed in the object bounds.
type Circle struct {
	StrokeColor string `json:"strokeColor,omitempty"`
}

// Text is a free-standing text block.
type Text struct {
	FontSize float64 `json:"fontSize,omitempty"`
}

// Frame groups child objects that reference it via ParentFrameID.
type Frame struct{}

// Connector links two objects.
type Connector struct {
	FromObjectID string      `json:"fromObjectId"`
	ToObjectID   string      `json:"toObjectId"`
	FromPort     Port        `json:"fromPort"`
	ToPort       Port        `json:"toPort"`
	ArrowStyle   ArrowStyle  `json:"arrowStyle"`
	StrokeStyle  StrokeStyle `json:"strokeStyle"`
}

func (StickyNote) Type() ObjectType { return TypeStickyNote }
func (Rectangle) Type() ObjectType  { return TypeRectangle }
func (Circle) Type() ObjectType     { return TypeCircle }
func (Text) Type() ObjectType       { return TypeText }
func (Frame) Type() ObjectType      { return TypeFrame }
func (Connector) Type() ObjectType  { return TypeConnector }

func (StickyNote) isShape() {}
func (Rectangle) isShape()  {}
func (Circle) isShape()     {}
func (Text) isShape()       {}
func (Frame) isShape()      {}
func (Connector) isShape()  {}

// DefaultShape returns the zero-valued shape for t.
func DefaultShape(t ObjectType) (Shape, error) {
	switch t {
	case TypeStickyNote:
		return StickyNote{}, nil
	case TypeRectangle:
		return Rectangle{StrokeWidth: 2}, nil
	case TypeCircle:
		return Circle{}, nil
	case TypeText:
		return Text{FontSize: 16}, nil
	case TypeFrame:
		return Frame{}, nil
	case TypeConnector:
		return Connector{FromPort: PortCenter, ToPort: PortCenter, ArrowStyle: ArrowEnd, StrokeStyle: StrokeSolid}, nil
	}
	return nil, fmt.Errorf("canvas: unknown object type %q", t)
}

// Object is a single element on a board. The object type is carried by
// Shape, so type and properties cannot disagree. Object contains no
// reference types, so a plain assignment is a full copy.
type Object struct {
	ID            string
	BoardID       string
	X             float64
	Y             float64
	Width         float64
	Height        float64
	Rotation      float64
	Content       string
	Color         string
	Version       int
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ParentFrameID string
	Shape         Shape
}

// Type returns the object type, or "" when no shape is set.
func (o Object) Type() ObjectType {
	if o.Shape == nil {
		return ""
	}
	return o.Shape.Type()
}

// Bounds returns the axis-aligned bounding box of the object.
func (o Object) Bounds() Rect {
	return Rect{X: o.X, Y: o.Y, Width: o.Width, Height: o.Height}
}

// Center returns the center point of the object bounds.
func (o Object) Center() Point {
	return o.Bounds().Center()
}

// AsConnector returns the connector properties when o is a connector.
func (o Object) AsConnector() (Connector, bool) {
	c, ok := o.Shape.(Connector)
	return c, ok
}

// Clone copies a slice of objects.
func Clone(objs []Object) []Object {
	if objs == nil {
		return nil
	}
	out := make([]Object, len(objs))
	copy(out, objs)
	return out
}

// Index maps object ids to their position in objs.
func Index(objs []Object) map[string]int {
	idx := make(map[string]int, len(objs))
	for i, o := range objs {
		idx[o.ID] = i
	}
	return idx
}

type objectJSON struct {
	ID            string          `json:"id"`
	BoardID       string          `json:"boardId"`
	Type          ObjectType      `json:"type"`
	X             float64         `json:"x"`
	Y             float64         `json:"y"`
	Width         float64         `json:"width"`
	Height        float64         `json:"height"`
	Rotation      float64         `json:"rotation"`
	Content       string          `json:"content"`
	Color         string          `json:"color"`
	Version       int             `json:"version"`
	CreatedBy     string          `json:"createdBy"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	ParentFrameID *string         `json:"parentFrameId"`
	Properties    json.RawMessage `json:"properties,omitempty"`
}

// MarshalJSON encodes the object with its shape under "properties".
func (o Object) MarshalJSON() ([]byte, error) {
	w := objectJSON{
		ID:        o.ID,
		BoardID:   o.BoardID,
		Type:      o.Type(),
		X:         o.X,
		Y:         o.Y,
		Width:     o.Width,
		Height:    o.Height,
		Rotation:  o.Rotation,
		Content:   o.Content,
		Color:     o.Color,
		Version:   o.Version,
		CreatedBy: o.CreatedBy,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	if o.ParentFrameID != "" {
		pf := o.ParentFrameID
		w.ParentFrameID = &pf
	}
	if o.Shape != nil {
		props, err := json.Marshal(o.Shape)
		if err != nil {
			return nil, fmt.Errorf("canvas: encode properties: %w", err)
		}
		w.Properties = props
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes an object and selects the shape variant from "type".
func (o *Object) UnmarshalJSON(data []byte) error {
	var w objectJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	shape, err := decodeShape(w.Type, w.Properties)
	if err != nil {
		return err
	}
	*o = Object{
		ID:        w.ID,
		BoardID:   w.BoardID,
		X:         w.X,
		Y:         w.Y,
		Width:     w.Width,
		Height:    w.Height,
		Rotation:  w.Rotation,
		Content:   w.Content,
		Color:     w.Color,
		Version:   w.Version,
		CreatedBy: w.CreatedBy,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
		Shape:     shape,
	}
	if w.ParentFrameID != nil {
		o.ParentFrameID = *w.ParentFrameID
	}
	return nil
}

func decodeShape(t ObjectType, props json.RawMessage) (Shape, error) {
	shape, err := DefaultShape(t)
	if err != nil {
		return nil, err
	}
	if len(props) == 0 || string(props) == "null" {
		return shape, nil
	}
	switch s := shape.(type) {
	case StickyNote, Frame:
		return s, nil
	case Rectangle:
		err = json.Unmarshal(props, &s)
		return s, err
	case Circle:
		err = json.Unmarshal(props, &s)
		return s, err
	case Text:
		err = json.Unmarshal(props, &s)
		return s, err
	case Connector:
		err = json.Unmarshal(props, &s)
		return s, err
	}
	return nil, fmt.Errorf("canvas: unhandled shape %T", shape)
}
