// Package tools defines the per-capability functions a model may call
// directly instead of returning a plan, and runs them against a board.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/starford/canvasai/internal/canvas"
	"github.com/starford/canvasai/internal/plan"
)

// Tool names.
const (
	CreateStickyNote = "create_sticky_note"
	CreateShape      = "create_shape"
	CreateFrame      = "create_frame"
	CreateConnector  = "create_connector"
	MoveObject       = "move_object"
	ResizeObject     = "resize_object"
	ChangeColor      = "change_color"
	UpdateText       = "update_text"
	DeleteObject     = "delete_object"
)

var (
	ErrUnknownTool = errors.New("unknown tool")
	ErrBadArgument = errors.New("bad argument")
)

// ParamType is the JSON type of a tool parameter.
type ParamType string

const (
	TypeString ParamType = "string"
	TypeNumber ParamType = "number"
)

// Param describes one tool argument.
type Param struct {
	Name        string
	Type        ParamType
	Required    bool
	Enum        []string
	Description string
}

// Definition describes one tool for the model.
type Definition struct {
	Name        string
	Description string
	Params      []Param
}

// Call is one tool invocation returned by a model.
type Call struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

func num(name, desc string, required bool) Param {
	return Param{Name: name, Type: TypeNumber, Required: required, Description: desc}
}

func str(name, desc string, required bool, enum ...string) Param {
	return Param{Name: name, Type: TypeString, Required: required, Enum: enum, Description: desc}
}

func ports() []string {
	return []string{string(canvas.PortTop), string(canvas.PortRight), string(canvas.PortBottom), string(canvas.PortLeft), string(canvas.PortCenter)}
}

var placement = []Param{
	num("x", "Left edge in canvas coordinates", true),
	num("y", "Top edge in canvas coordinates", true),
	num("width", "Width in pixels", false),
	num("height", "Height in pixels", false),
}

var definitions = []Definition{
	{
		Name:        CreateStickyNote,
		Description: "Create a sticky note.",
		Params: append(append([]Param{}, placement...),
			str("content", "Note text", false),
			str("color", "Palette name or hex color", false),
			str("parentFrameId", "Id of the frame containing the note", false),
		),
	},
	{
		Name:        CreateShape,
		Description: "Create a rectangle, circle or text label.",
		Params: append([]Param{
			str("shape", "Kind of shape", true, string(canvas.TypeRectangle), string(canvas.TypeCircle), string(canvas.TypeText)),
		}, append(append([]Param{}, placement...),
			str("content", "Text inside the shape", false),
			str("color", "Palette name or hex color", false),
			str("parentFrameId", "Id of the frame containing the shape", false),
		)...),
	},
	{
		Name:        CreateFrame,
		Description: "Create a titled frame that groups other objects.",
		Params: append(append([]Param{}, placement...),
			str("title", "Frame title", false),
			str("color", "Palette name or hex color", false),
		),
	},
	{
		Name:        CreateConnector,
		Description: "Connect two existing objects, from source to target.",
		Params: []Param{
			str("fromObjectId", "Source object id", true),
			str("toObjectId", "Target object id", true),
			str("fromPort", "Attachment side on the source", false, ports()...),
			str("toPort", "Attachment side on the target", false, ports()...),
			str("style", "Line style", false, string(plan.StyleArrow), string(plan.StyleLine), string(plan.StyleDashed)),
		},
	},
	{
		Name:        MoveObject,
		Description: "Move an existing object so its top-left corner is at (x, y).",
		Params:      []Param{str("objectId", "Object id", true), num("x", "New left edge", true), num("y", "New top edge", true)},
	},
	{
		Name:        ResizeObject,
		Description: "Resize an existing object.",
		Params:      []Param{str("objectId", "Object id", true), num("width", "New width", true), num("height", "New height", true)},
	},
	{
		Name:        ChangeColor,
		Description: "Change the color of an existing object.",
		Params:      []Param{str("objectId", "Object id", true), str("color", "Palette name or hex color", true)},
	},
	{
		Name:        UpdateText,
		Description: "Replace the text of an existing object.",
		Params:      []Param{str("objectId", "Object id", true), str("content", "New text", true)},
	},
	{
		Name:        DeleteObject,
		Description: "Delete an existing object.",
		Params:      []Param{str("objectId", "Object id", true)},
	},
}

// Definitions returns every tool the model may call.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

func lookup(name string) (Definition, bool) {
	for _, d := range definitions {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// ParseCalls decodes a JSON array of {"name","args"} objects, or a single
// such object, repairing malformed JSON when possible. Models sometimes
// write calls as text.
func ParseCalls(text string) ([]Call, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("tools: parse calls: empty text")
	}
	if calls, err := decodeCalls(text); err == nil {
		return calls, nil
	}
	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return nil, fmt.Errorf("tools: parse calls: %w", err)
	}
	calls, err := decodeCalls(repaired)
	if err != nil {
		return nil, fmt.Errorf("tools: parse calls: %w", err)
	}
	return calls, nil
}

var errNotACall = errors.New("object has no tool name")

func decodeCalls(text string) ([]Call, error) {
	var calls []Call
	if err := json.Unmarshal([]byte(text), &calls); err == nil {
		return calls, nil
	}
	var one Call
	if err := json.Unmarshal([]byte(text), &one); err != nil {
		return nil, err
	}
	if one.Name == "" {
		return nil, errNotACall
	}
	return []Call{one}, nil
}

type args struct {
	def  Definition
	vals map[string]any
}

func (a args) check() error {
	for _, p := range a.def.Params {
		v, ok := a.vals[p.Name]
		if !ok || v == nil {
			if p.Required {
				return fmt.Errorf("%w: %s is required", ErrBadArgument, p.Name)
			}
			continue
		}
		switch p.Type {
		case TypeNumber:
			if _, err := toFloat(v); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrBadArgument, p.Name, err)
			}
		case TypeString:
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("%w: %s must be a string", ErrBadArgument, p.Name)
			}
			if len(p.Enum) > 0 && !contains(p.Enum, s) {
				return fmt.Errorf("%w: %s must be one of %s", ErrBadArgument, p.Name, strings.Join(p.Enum, ", "))
			}
			if p.Required && strings.TrimSpace(s) == "" && p.Name != "content" {
				return fmt.Errorf("%w: %s is empty", ErrBadArgument, p.Name)
			}
		}
	}
	return nil
}

func (a args) str(name string) string {
	s, _ := a.vals[name].(string)
	return s
}

func (a args) num(name string) float64 {
	f, _ := toFloat(a.vals[name])
	return f
}

func (a args) optNum(name string) *float64 {
	if v, ok := a.vals[name]; !ok || v == nil {
		return nil
	}
	f := a.num(name)
	return &f
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	}
	return 0, fmt.Errorf("not a number: %T", v)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Translate converts one call into the equivalent single-step plan.
func Translate(c Call) (plan.Plan, error) {
	def, ok := lookup(c.Name)
	if !ok {
		return plan.Plan{}, fmt.Errorf("%w: %q", ErrUnknownTool, c.Name)
	}
	a := args{def: def, vals: c.Args}
	if a.vals == nil {
		a.vals = map[string]any{}
	}
	if err := a.check(); err != nil {
		return plan.Plan{}, err
	}

	newObject := func(t canvas.ObjectType, content string) plan.Plan {
		return plan.Plan{Objects: []plan.Object{{
			Type:          t,
			X:             a.num("x"),
			Y:             a.num("y"),
			Width:         a.optNum("width"),
			Height:        a.optNum("height"),
			Content:       content,
			Color:         a.str("color"),
			ParentFrameID: a.str("parentFrameId"),
		}}}
	}
	modify := func(change plan.Change) plan.Plan {
		return plan.Plan{Modifications: []plan.Modification{{TargetID: a.str("objectId"), Change: change}}}
	}

	switch c.Name {
	case CreateStickyNote:
		return newObject(canvas.TypeStickyNote, a.str("content")), nil
	case CreateShape:
		return newObject(canvas.ObjectType(a.str("shape")), a.str("content")), nil
	case CreateFrame:
		return newObject(canvas.TypeFrame, a.str("title")), nil
	case CreateConnector:
		return plan.Plan{Objects: []plan.Object{{
			Type: canvas.TypeConnector,
			Connector: &plan.ConnectorSpec{
				FromObjectID: a.str("fromObjectId"),
				ToObjectID:   a.str("toObjectId"),
				FromPort:     canvas.Port(a.str("fromPort")),
				ToPort:       canvas.Port(a.str("toPort")),
				Style:        plan.ConnectorStyle(a.str("style")),
			},
		}}}, nil
	case MoveObject:
		return modify(plan.Move{X: a.num("x"), Y: a.num("y")}), nil
	case ResizeObject:
		return modify(plan.Resize{Width: a.num("width"), Height: a.num("height")}), nil
	case ChangeColor:
		return modify(plan.Recolor{Color: a.str("color")}), nil
	case UpdateText:
		return modify(plan.UpdateText{Content: a.str("content")}), nil
	case DeleteObject:
		return modify(plan.Delete{}), nil
	}
	return plan.Plan{}, fmt.Errorf("%w: %q", ErrUnknownTool, c.Name)
}
