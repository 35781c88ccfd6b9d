// Package prompt turns board state into the bounded, sanitized text given
// to the model.
package prompt

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/starford/canvasai/internal/canvas"
)

// Tier caps and text limits.
const (
	MaxViewportObjects = 50
	MaxNearbyObjects   = 30
	MaxContentLength   = 500
	BriefContentLength = 30
	maxIDLength        = 64
)

// Serialized is the tiered view of a board. Each tier holds one rendered
// line per object.
type Serialized struct {
	Selected     []string
	Viewport     []string
	Nearby       []string
	DistantCount int
	Summary      string
	// SelectedIDs are the selected ids that resolved to objects.
	SelectedIDs []string
}

// Serialize classifies objects into tiers: selected objects first, then
// objects overlapping the viewport (closest first, capped), then objects
// overlapping a region twice the viewport size (capped, brief). Everything
// else, including tier overflow, is only counted.
func Serialize(objects []canvas.Object, viewport canvas.Rect, selectedIDs []string) Serialized {
	selected := make(map[string]struct{}, len(selectedIDs))
	for _, id := range selectedIDs {
		selected[id] = struct{}{}
	}

	var s Serialized
	center := viewport.Center()
	nearRegion := canvas.RectAround(center, viewport.Width*2, viewport.Height*2)

	var inView, near []canvas.Object
	for _, o := range objects {
		if _, ok := selected[o.ID]; ok {
			s.Selected = append(s.Selected, fullLine(o))
			s.SelectedIDs = append(s.SelectedIDs, o.ID)
			continue
		}
		b := o.Bounds()
		switch {
		case b.Intersects(viewport):
			inView = append(inView, o)
		case b.Intersects(nearRegion):
			near = append(near, o)
		default:
			s.DistantCount++
		}
	}

	sort.SliceStable(inView, func(i, j int) bool {
		return canvas.Distance(inView[i].Center(), center) < canvas.Distance(inView[j].Center(), center)
	})
	if len(inView) > MaxViewportObjects {
		s.DistantCount += len(inView) - MaxViewportObjects
		inView = inView[:MaxViewportObjects]
	}
	for _, o := range inView {
		s.Viewport = append(s.Viewport, fullLine(o))
	}

	if len(near) > MaxNearbyObjects {
		s.DistantCount += len(near) - MaxNearbyObjects
		near = near[:MaxNearbyObjects]
	}
	for _, o := range near {
		s.Nearby = append(s.Nearby, briefLine(o))
	}

	s.Summary = fmt.Sprintf("%d objects on the board: %d selected, %d in view, %d nearby, %d elsewhere (not shown).",
		len(objects), len(s.Selected), len(s.Viewport), len(s.Nearby), s.DistantCount)
	return s
}

func fullLine(o canvas.Object) string {
	line := fmt.Sprintf("- [%s] %s at (%d, %d) size %dx%d color %s",
		Sanitize(o.ID, maxIDLength), o.Type(), round(o.X), round(o.Y), round(o.Width), round(o.Height), Sanitize(o.Color, 32))
	if o.ParentFrameID != "" {
		line += " in frame [" + Sanitize(o.ParentFrameID, maxIDLength) + "]"
	}
	if c, ok := o.AsConnector(); ok {
		line += fmt.Sprintf(" from [%s] to [%s]", Sanitize(c.FromObjectID, maxIDLength), Sanitize(c.ToObjectID, maxIDLength))
	}
	if o.Content != "" {
		line += fmt.Sprintf(": %q", Sanitize(o.Content, MaxContentLength))
	}
	return line
}

func briefLine(o canvas.Object) string {
	line := fmt.Sprintf("- [%s] %s at (%d, %d)", Sanitize(o.ID, maxIDLength), o.Type(), round(o.X), round(o.Y))
	if o.Content != "" {
		line += fmt.Sprintf(": %q", Sanitize(o.Content, BriefContentLength))
	}
	return line
}

func round(v float64) int64 {
	if v < 0 {
		return int64(v - 0.5)
	}
	return int64(v + 0.5)
}

// Sanitize makes untrusted text safe to embed in a single prompt line:
// control characters and line breaks become spaces, whitespace runs
// collapse, and the result is cut to max runes.
func Sanitize(s string, max int) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if r == utf8.RuneError || unicode.IsControl(r) || unicode.IsSpace(r) {
			if !space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	out := strings.TrimRight(b.String(), " ")
	if utf8.RuneCountInString(out) <= max {
		return out
	}
	runes := []rune(out)
	return string(runes[:max]) + "…"
}
