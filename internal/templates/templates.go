// Package templates matches common board requests to hand-designed object
// sets so they can be produced without a model call.
package templates

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/canvasai/internal/canvas"
	"github.com/starford/canvasai/internal/colors"
	"github.com/starford/canvasai/internal/layout"
)

// Built-in template names.
const (
	SWOT          = "swot"
	Kanban        = "kanban"
	Retrospective = "retrospective"
	Brainstorm    = "brainstorm"
	UserJourney   = "user_journey"
)

// Request carries the placement context of a generated template.
type Request struct {
	BoardID string
	UserID  string
	Center  canvas.Point
}

// Result is a generated object set: a frame followed by its children.
type Result struct {
	Objects []canvas.Object
	Message string
}

// Template is a named object set with the phrases that select it.
type Template struct {
	Name        string
	Description string
	Patterns    []*regexp.Regexp
	build       func(b *builder) string
}

// Matches reports whether any pattern matches command.
func (t *Template) Matches(command string) bool {
	for _, p := range t.Patterns {
		if p.MatchString(command) {
			return true
		}
	}
	return false
}

// Registry holds templates in match order. Built-ins always come first.
type Registry struct {
	mu      sync.RWMutex
	builtin []*Template
	custom  []*Template
}

// NewRegistry returns a registry with the built-in templates.
func NewRegistry() *Registry {
	return &Registry{builtin: builtins()}
}

// SetCustom replaces the user-defined templates. Custom templates whose
// name collides with a built-in are ignored.
func (r *Registry) SetCustom(ts []*Template) {
	taken := make(map[string]struct{}, len(r.builtin))
	for _, t := range r.builtin {
		taken[t.Name] = struct{}{}
	}
	kept := make([]*Template, 0, len(ts))
	for _, t := range ts {
		if _, dup := taken[t.Name]; dup {
			continue
		}
		taken[t.Name] = struct{}{}
		kept = append(kept, t)
	}
	r.mu.Lock()
	r.custom = kept
	r.mu.Unlock()
}

func (r *Registry) all() []*Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Template, 0, len(r.builtin)+len(r.custom))
	out = append(out, r.builtin...)
	return append(out, r.custom...)
}

// Match returns the name of the first template whose patterns match command.
func (r *Registry) Match(command string) (string, bool) {
	for _, t := range r.all() {
		if t.Matches(command) {
			return t.Name, true
		}
	}
	return "", false
}

// Info describes a registered template.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Custom      bool   `json:"custom"`
}

// List returns every registered template in match order.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.builtin)+len(r.custom))
	for _, t := range r.builtin {
		out = append(out, Info{Name: t.Name, Description: t.Description})
	}
	for _, t := range r.custom {
		out = append(out, Info{Name: t.Name, Description: t.Description, Custom: true})
	}
	return out
}

func (r *Registry) get(name string) (*Template, bool) {
	for _, t := range r.all() {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Generator turns templates into objects. NewID and Now are injectable for
// deterministic output.
type Generator struct {
	Registry *Registry
	NewID    func() string
	Now      func() time.Time
}

// NewGenerator returns a generator using random UUIDs and the wall clock.
func NewGenerator(reg *Registry) *Generator {
	return &Generator{Registry: reg, NewID: uuid.NewString, Now: time.Now}
}

// Match is a shortcut for g.Registry.Match.
func (g *Generator) Match(command string) (string, bool) {
	return g.Registry.Match(command)
}

// Generate builds the named template around req.Center.
func (g *Generator) Generate(name string, req Request) (Result, error) {
	t, ok := g.Registry.get(name)
	if !ok {
		return Result{}, fmt.Errorf("templates: unknown template %q", name)
	}
	b := &builder{g: g, req: req, now: g.Now().UTC()}
	msg := t.build(b)
	return Result{Objects: b.objs, Message: msg}, nil
}

// builder accumulates objects for one generation.
type builder struct {
	g     *Generator
	req   Request
	now   time.Time
	objs  []canvas.Object
	frame string
}

func (b *builder) add(shape canvas.Shape, r canvas.Rect, content, color string) canvas.Object {
	o := canvas.Object{
		ID:            b.g.NewID(),
		BoardID:       b.req.BoardID,
		X:             canvas.ClampPosition(r.X),
		Y:             canvas.ClampPosition(r.Y),
		Width:         canvas.ClampDimension(r.Width),
		Height:        canvas.ClampDimension(r.Height),
		Content:       content,
		Color:         colors.Resolve(color, shape.Type()),
		Version:       1,
		CreatedBy:     b.req.UserID,
		CreatedAt:     b.now,
		UpdatedAt:     b.now,
		ParentFrameID: b.frame,
		Shape:         shape,
	}
	b.objs = append(b.objs, o)
	return o
}

// frameAt adds the frame centered on the request center and returns its
// top-left corner. Later objects become its children.
func (b *builder) frameAt(width, height float64, title string) canvas.Point {
	r := canvas.RectAround(b.req.Center, width, height)
	f := b.add(canvas.Frame{}, r, title, "white")
	b.frame = f.ID
	return canvas.Point{X: f.X, Y: f.Y}
}

// connect links two generated objects using suggested ports.
func (b *builder) connect(from, to canvas.Object) {
	fp, tp := layout.SuggestPorts(from, to)
	r := layout.ConnectorBounds(from, to, fp, tp)
	b.add(canvas.Connector{
		FromObjectID: from.ID,
		ToObjectID:   to.ID,
		FromPort:     fp,
		ToPort:       tp,
		ArrowStyle:   canvas.ArrowEnd,
		StrokeStyle:  canvas.StrokeSolid,
	}, r, "", "")
}

func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}
