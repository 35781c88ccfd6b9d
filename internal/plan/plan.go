// Package plan defines the typed contract between model output and canvas
// mutations, and validates plans against untrusted input.
package plan

import (
	"encoding/json"
	"fmt"

	"github.com/starford/canvasai/internal/canvas"
)

// Plan is the model's proposed change set for one command.
type Plan struct {
	Objects       []Object       `json:"objects"`
	Modifications []Modification `json:"modifications,omitempty"`
	Message       string         `json:"message"`
}

// Clone returns a deep copy of p.
func (p Plan) Clone() Plan {
	out := Plan{Message: p.Message}
	if p.Objects != nil {
		out.Objects = make([]Object, len(p.Objects))
		for i, o := range p.Objects {
			out.Objects[i] = o.clone()
		}
	}
	if p.Modifications != nil {
		out.Modifications = make([]Modification, len(p.Modifications))
		copy(out.Modifications, p.Modifications)
	}
	return out
}

// ConnectorStyle selects arrowhead and stroke for a new connector.
type ConnectorStyle string

const (
	StyleArrow  ConnectorStyle = "arrow"
	StyleLine   ConnectorStyle = "line"
	StyleDashed ConnectorStyle = "dashed"
)

// ConnectorSpec holds the fields only meaningful for connector objects.
type ConnectorSpec struct {
	FromObjectID string
	ToObjectID   string
	FromPort     canvas.Port
	ToPort       canvas.Port
	Style        ConnectorStyle
}

// Object is a new object requested by a plan. Connector is non-nil
// exactly when Type is canvas.TypeConnector.
type Object struct {
	Type          canvas.ObjectType
	X             float64
	Y             float64
	Width         *float64
	Height        *float64
	Content       string
	Color         string
	ParentFrameID string
	Connector     *ConnectorSpec
}

func (o Object) clone() Object {
	if o.Width != nil {
		w := *o.Width
		o.Width = &w
	}
	if o.Height != nil {
		h := *o.Height
		o.Height = &h
	}
	if o.Connector != nil {
		c := *o.Connector
		o.Connector = &c
	}
	return o
}

type objectJSON struct {
	Type           canvas.ObjectType `json:"type"`
	X              *float64          `json:"x"`
	Y              *float64          `json:"y"`
	Width          *float64          `json:"width,omitempty"`
	Height         *float64          `json:"height,omitempty"`
	Content        string            `json:"content,omitempty"`
	Color          string            `json:"color,omitempty"`
	ParentFrameID  *string           `json:"parentFrameId,omitempty"`
	FromObjectID   string            `json:"fromObjectId,omitempty"`
	ToObjectID     string            `json:"toObjectId,omitempty"`
	FromPort       canvas.Port       `json:"fromPort,omitempty"`
	ToPort         canvas.Port       `json:"toPort,omitempty"`
	ConnectorStyle ConnectorStyle    `json:"connectorStyle,omitempty"`
}

// MarshalJSON writes the flat wire form.
func (o Object) MarshalJSON() ([]byte, error) {
	x, y := o.X, o.Y
	w := objectJSON{
		Type:    o.Type,
		X:       &x,
		Y:       &y,
		Width:   o.Width,
		Height:  o.Height,
		Content: o.Content,
		Color:   o.Color,
	}
	if o.ParentFrameID != "" {
		pf := o.ParentFrameID
		w.ParentFrameID = &pf
	}
	if c := o.Connector; c != nil {
		w.FromObjectID = c.FromObjectID
		w.ToObjectID = c.ToObjectID
		w.FromPort = c.FromPort
		w.ToPort = c.ToPort
		w.ConnectorStyle = c.Style
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the flat wire form. Position is required.
func (o *Object) UnmarshalJSON(data []byte) error {
	var w objectJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if !w.Type.Valid() {
		return fmt.Errorf("plan: unknown object type %q", w.Type)
	}
	if w.X == nil || w.Y == nil {
		return fmt.Errorf("plan: %s object requires x and y", w.Type)
	}
	*o = Object{
		Type:    w.Type,
		X:       *w.X,
		Y:       *w.Y,
		Width:   w.Width,
		Height:  w.Height,
		Content: w.Content,
		Color:   w.Color,
	}
	if w.ParentFrameID != nil {
		o.ParentFrameID = *w.ParentFrameID
	}
	if w.Type == canvas.TypeConnector {
		o.Connector = &ConnectorSpec{
			FromObjectID: w.FromObjectID,
			ToObjectID:   w.ToObjectID,
			FromPort:     w.FromPort,
			ToPort:       w.ToPort,
			Style:        w.ConnectorStyle,
		}
	}
	return nil
}

// Action names a modification kind.
type Action string

const (
	ActionMove       Action = "move"
	ActionResize     Action = "resize"
	ActionRecolor    Action = "recolor"
	ActionUpdateText Action = "update_text"
	ActionDelete     Action = "delete"
)

// Change is the action-specific payload of a modification. The set of
// implementations is closed.
type Change interface {
	Action() Action
	isChange()
}

// Move sets a new top-left position.
type Move struct{ X, Y float64 }

// Resize sets a new size.
type Resize struct{ Width, Height float64 }

// Recolor sets a new color.
type Recolor struct{ Color string }

// UpdateText replaces the content.
type UpdateText struct{ Content string }

// Delete removes the object.
type Delete struct{}

func (Move) Action() Action       { return ActionMove }
func (Resize) Action() Action     { return ActionResize }
func (Recolor) Action() Action    { return ActionRecolor }
func (UpdateText) Action() Action { return ActionUpdateText }
func (Delete) Action() Action     { return ActionDelete }

func (Move) isChange()       {}
func (Resize) isChange()     {}
func (Recolor) isChange()    {}
func (UpdateText) isChange() {}
func (Delete) isChange()     {}

// Modification targets an existing object.
type Modification struct {
	TargetID string
	Change   Change
}

type modificationJSON struct {
	TargetID string   `json:"targetId"`
	Action   Action   `json:"action"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Color    *string  `json:"color,omitempty"`
	Content  *string  `json:"content,omitempty"`
}

// MarshalJSON writes the flat wire form.
func (m Modification) MarshalJSON() ([]byte, error) {
	w := modificationJSON{TargetID: m.TargetID}
	switch c := m.Change.(type) {
	case Move:
		w.Action, w.X, w.Y = ActionMove, &c.X, &c.Y
	case Resize:
		w.Action, w.Width, w.Height = ActionResize, &c.Width, &c.Height
	case Recolor:
		w.Action, w.Color = ActionRecolor, &c.Color
	case UpdateText:
		w.Action, w.Content = ActionUpdateText, &c.Content
	case Delete:
		w.Action = ActionDelete
	default:
		return nil, fmt.Errorf("plan: modification %q has no change", m.TargetID)
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the flat wire form and builds the matching Change.
func (m *Modification) UnmarshalJSON(data []byte) error {
	var w modificationJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.TargetID = w.TargetID
	switch w.Action {
	case ActionMove:
		if w.X == nil || w.Y == nil {
			return fmt.Errorf("plan: move of %q requires x and y", w.TargetID)
		}
		m.Change = Move{X: *w.X, Y: *w.Y}
	case ActionResize:
		if w.Width == nil || w.Height == nil {
			return fmt.Errorf("plan: resize of %q requires width and height", w.TargetID)
		}
		m.Change = Resize{Width: *w.Width, Height: *w.Height}
	case ActionRecolor:
		if w.Color == nil {
			return fmt.Errorf("plan: recolor of %q requires color", w.TargetID)
		}
		m.Change = Recolor{Color: *w.Color}
	case ActionUpdateText:
		if w.Content == nil {
			return fmt.Errorf("plan: update_text of %q requires content", w.TargetID)
		}
		m.Change = UpdateText{Content: *w.Content}
	case ActionDelete:
		m.Change = Delete{}
	default:
		return fmt.Errorf("plan: unknown action %q", w.Action)
	}
	return nil
}
