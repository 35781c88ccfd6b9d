// Package executor turns a validated plan into concrete canvas objects and
// mutation lists. It performs no I/O.
package executor

import (
	"time"

	"github.com/google/uuid"

	"github.com/starford/canvasai/internal/canvas"
	"github.com/starford/canvasai/internal/collision"
	"github.com/starford/canvasai/internal/colors"
	"github.com/starford/canvasai/internal/layout"
	"github.com/starford/canvasai/internal/plan"
)

// Size is a default width and height.
type Size struct {
	Width, Height float64
}

// DefaultSizes is the per-type size used when a plan object omits one.
var DefaultSizes = map[canvas.ObjectType]Size{
	canvas.TypeStickyNote: {200, 200},
	canvas.TypeRectangle:  {240, 160},
	canvas.TypeCircle:     {160, 160},
	canvas.TypeText:       {240, 60},
	canvas.TypeFrame:      {800, 600},
	canvas.TypeConnector:  {canvas.MinDimension, canvas.MinDimension},
}

// Result lists created objects, deleted ids and modified objects.
type Result struct {
	Objects         []canvas.Object `json:"objects"`
	DeletedIDs      []string        `json:"deletedIds"`
	ModifiedObjects []canvas.Object `json:"modifiedObjects"`
}

// Upserts returns created and modified objects in one list.
func (r Result) Upserts() []canvas.Object {
	out := make([]canvas.Object, 0, len(r.Objects)+len(r.ModifiedObjects))
	out = append(out, r.Objects...)
	return append(out, r.ModifiedObjects...)
}

// Executor applies plans. NewID and Now are injectable for deterministic output.
type Executor struct {
	NewID func() string
	Now   func() time.Time
}

// New returns an executor using random UUIDs and the wall clock.
func New() *Executor {
	return &Executor{NewID: uuid.NewString, Now: time.Now}
}

// Execute applies p to existing. Modifications whose target is absent are
// skipped, as are connectors whose endpoints cannot be found. New objects
// are separated from each other and from the remaining board.
func (e *Executor) Execute(p plan.Plan, boardID, userID string, existing []canvas.Object) Result {
	now := e.Now().UTC()

	working := canvas.Clone(existing)
	index := canvas.Index(working)

	var res Result
	deleted := make(map[string]bool)
	modified := make(map[string]bool)
	var modifiedOrder []string

	for _, m := range p.Modifications {
		i, ok := index[m.TargetID]
		if !ok || deleted[m.TargetID] {
			continue
		}
		if _, isDelete := m.Change.(plan.Delete); isDelete {
			deleted[m.TargetID] = true
			res.DeletedIDs = append(res.DeletedIDs, m.TargetID)
			continue
		}
		o := &working[i]
		if !apply(o, m.Change) {
			continue
		}
		o.Version++
		o.UpdatedAt = now
		if !modified[o.ID] {
			modified[o.ID] = true
			modifiedOrder = append(modifiedOrder, o.ID)
		}
	}
	for _, id := range modifiedOrder {
		if !deleted[id] {
			res.ModifiedObjects = append(res.ModifiedObjects, working[index[id]])
		}
	}

	board := make([]canvas.Object, 0, len(working))
	for _, o := range working {
		if !deleted[o.ID] {
			board = append(board, o)
		}
	}
	boardIndex := canvas.Index(board)

	var created []canvas.Object
	for _, po := range p.Objects {
		o, ok := e.build(po, boardID, userID, now, board, boardIndex)
		if ok {
			created = append(created, o)
		}
	}
	res.Objects = collision.Resolve(created, board)
	return res
}

func apply(o *canvas.Object, c plan.Change) bool {
	switch c := c.(type) {
	case plan.Move:
		o.X, o.Y = c.X, c.Y
	case plan.Resize:
		o.Width, o.Height = c.Width, c.Height
	case plan.Recolor:
		o.Color = colors.Resolve(c.Color, o.Type())
	case plan.UpdateText:
		o.Content = c.Content
	default:
		return false
	}
	return true
}

func (e *Executor) build(po plan.Object, boardID, userID string, now time.Time, board []canvas.Object, index map[string]int) (canvas.Object, bool) {
	def := DefaultSizes[po.Type]
	o := canvas.Object{
		ID:            e.NewID(),
		BoardID:       boardID,
		X:             po.X,
		Y:             po.Y,
		Width:         def.Width,
		Height:        def.Height,
		Content:       po.Content,
		Color:         colors.Resolve(po.Color, po.Type),
		Version:       1,
		CreatedBy:     userID,
		CreatedAt:     now,
		UpdatedAt:     now,
		ParentFrameID: po.ParentFrameID,
	}
	if po.Width != nil {
		o.Width = *po.Width
	}
	if po.Height != nil {
		o.Height = *po.Height
	}

	switch po.Type {
	case canvas.TypeStickyNote:
		o.Shape = canvas.StickyNote{}
	case canvas.TypeRectangle:
		o.Shape = canvas.Rectangle{StrokeWidth: 2}
	case canvas.TypeCircle:
		o.Shape = canvas.Circle{}
	case canvas.TypeText:
		o.Shape = canvas.Text{FontSize: 16}
	case canvas.TypeFrame:
		o.Shape = canvas.Frame{}
	case canvas.TypeConnector:
		spec := po.Connector
		if spec == nil {
			return canvas.Object{}, false
		}
		fi, ok1 := index[spec.FromObjectID]
		ti, ok2 := index[spec.ToObjectID]
		if !ok1 || !ok2 {
			return canvas.Object{}, false
		}
		from, to := board[fi], board[ti]
		fp, tp := spec.FromPort, spec.ToPort
		if fp == "" || tp == "" {
			sf, st := layout.SuggestPorts(from, to)
			if fp == "" {
				fp = sf
			}
			if tp == "" {
				tp = st
			}
		}
		arrow, stroke := connectorStyle(spec.Style)
		o.Shape = canvas.Connector{
			FromObjectID: from.ID,
			ToObjectID:   to.ID,
			FromPort:     fp,
			ToPort:       tp,
			ArrowStyle:   arrow,
			StrokeStyle:  stroke,
		}
		r := layout.ConnectorBounds(from, to, fp, tp)
		o.X, o.Y, o.Width, o.Height = r.X, r.Y, r.Width, r.Height
	default:
		return canvas.Object{}, false
	}
	return o, true
}

func connectorStyle(s plan.ConnectorStyle) (canvas.ArrowStyle, canvas.StrokeStyle) {
	switch s {
	case plan.StyleLine:
		return canvas.ArrowNone, canvas.StrokeSolid
	case plan.StyleDashed:
		return canvas.ArrowEnd, canvas.StrokeDashed
	}
	return canvas.ArrowEnd, canvas.StrokeSolid
}
