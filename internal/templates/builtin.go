package templates

import (
	"github.com/starford/canvasai/internal/canvas"
	"github.com/starford/canvasai/internal/layout"
)

func builtins() []*Template {
	return []*Template{
		{
			Name:        SWOT,
			Description: "Strengths, weaknesses, opportunities and threats in four quadrants",
			Patterns:    patterns(`\bswot\b`),
			build:       buildSWOT,
		},
		{
			Name:        Kanban,
			Description: "To do, in progress and done columns",
			Patterns:    patterns(`\bkanban\b`, `\b(task|sprint)\s+board\b`),
			build:       buildKanban,
		},
		{
			Name:        Retrospective,
			Description: "What went well, what to improve and action items",
			Patterns:    patterns(`\bretro(spective)?\b`, `\bwent\s+well\b`),
			build:       buildRetrospective,
		},
		{
			Name:        Brainstorm,
			Description: "Central topic with ideas arranged around it",
			Patterns:    patterns(`\bbrainstorm(ing)?\b`, `\bmind\s*map\b`),
			build:       buildBrainstorm,
		},
		{
			Name:        UserJourney,
			Description: "Customer journey stages from awareness to advocacy",
			Patterns:    patterns(`\b(user|customer)\s+journey\b`, `\bjourney\s+map\b`),
			build:       buildUserJourney,
		},
	}
}

func buildSWOT(b *builder) string {
	o := b.frameAt(880, 880, "SWOT Analysis")
	quadrants := []struct {
		dx, dy float64
		label  string
		color  string
	}{
		{30, 70, "Strengths", "green"},
		{450, 70, "Weaknesses", "red"},
		{30, 470, "Opportunities", "blue"},
		{450, 470, "Threats", "orange"},
	}
	for _, q := range quadrants {
		b.add(canvas.Rectangle{StrokeWidth: 2}, canvas.Rect{X: o.X + q.dx, Y: o.Y + q.dy, Width: 400, Height: 380}, q.label, q.color)
	}
	return "Created a SWOT analysis with four quadrants"
}

// columns lays out titled columns inside a fresh frame and returns the
// column objects.
func columns(b *builder, title string, labels, colors []string) []canvas.Object {
	const colW, colH, gap, top = 320.0, 540.0, 20.0, 80.0
	width := float64(len(labels))*(colW+gap) + gap
	o := b.frameAt(width, top+colH+gap, title)
	out := make([]canvas.Object, len(labels))
	for i, label := range labels {
		r := canvas.Rect{X: o.X + gap + float64(i)*(colW+gap), Y: o.Y + top, Width: colW, Height: colH}
		out[i] = b.add(canvas.Rectangle{StrokeWidth: 2}, r, label, colors[i])
	}
	return out
}

func buildKanban(b *builder) string {
	cols := columns(b, "Kanban Board",
		[]string{"To Do", "In Progress", "Done"},
		[]string{"gray", "blue", "green"})
	todo := cols[0]
	b.add(canvas.StickyNote{}, canvas.Rect{X: todo.X + 60, Y: todo.Y + 70, Width: 200, Height: 200}, "First task", "yellow")
	return "Created a Kanban board with To Do, In Progress and Done columns"
}

func buildRetrospective(b *builder) string {
	columns(b, "Retrospective",
		[]string{"What went well", "What could be improved", "Action items"},
		[]string{"green", "red", "blue"})
	return "Created a retrospective board with three columns"
}

func buildBrainstorm(b *builder) string {
	o := b.frameAt(1000, 1000, "Brainstorm")
	center := canvas.Point{X: o.X + 500, Y: o.Y + 500}
	topic := b.add(canvas.Circle{}, canvas.RectAround(center, 200, 200), "Main topic", "purple")

	ideas := make([]canvas.Object, 6)
	for i := range ideas {
		ideas[i] = canvas.Object{Width: 160, Height: 160, Shape: canvas.StickyNote{}}
	}
	placed := layout.Radial(ideas, layout.RadialOptions{Center: center, Radius: 330, StartAngle: -90})
	for _, p := range placed.Objects {
		idea := b.add(canvas.StickyNote{}, p.Bounds(), "Idea", "yellow")
		b.connect(topic, idea)
	}
	return "Created a brainstorm with a central topic and six ideas"
}

func buildUserJourney(b *builder) string {
	o := b.frameAt(1400, 400, "User Journey")
	stages := []string{"Awareness", "Consideration", "Purchase", "Retention", "Advocacy"}
	cards := make([]canvas.Object, len(stages))
	for i := range cards {
		cards[i] = canvas.Object{Width: 220, Height: 220, Shape: canvas.StickyNote{}}
	}
	placed := layout.Stack(cards, layout.StackOptions{
		Direction: layout.StackHorizontal,
		Gap:       60,
		Origin:    canvas.Point{X: o.X + 30, Y: o.Y + 120},
	})
	var prev canvas.Object
	for i, p := range placed.Objects {
		stage := b.add(canvas.StickyNote{}, p.Bounds(), stages[i], "blue")
		if i > 0 {
			b.connect(prev, stage)
		}
		prev = stage
	}
	return "Created a user journey map with five stages"
}
