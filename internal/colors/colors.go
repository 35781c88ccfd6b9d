// Package colors resolves semantic color names and literal color strings
// to concrete colors for canvas objects.
package colors

import (
	"regexp"
	"strings"

	"github.com/starford/canvasai/internal/canvas"
)

// Swatch is a named palette entry.
type Swatch struct {
	Name     string
	Hex      string
	Guidance string
}

var palette = []Swatch{
	{Name: "yellow", Hex: "#FFEB3B", Guidance: "default for ideas and general notes"},
	{Name: "green", Hex: "#A5D6A7", Guidance: "positive items, strengths, done"},
	{Name: "red", Hex: "#EF9A9A", Guidance: "negative items, risks, blockers"},
	{Name: "blue", Hex: "#90CAF9", Guidance: "information, opportunities, in progress"},
	{Name: "orange", Hex: "#FFCC80", Guidance: "warnings, threats, needs attention"},
	{Name: "purple", Hex: "#CE93D8", Guidance: "questions and open topics"},
	{Name: "pink", Hex: "#F48FB1", Guidance: "feelings and user quotes"},
	{Name: "gray", Hex: "#E0E0E0", Guidance: "neutral, background, parked items"},
	{Name: "white", Hex: "#FFFFFF", Guidance: "frames and plain backgrounds"},
	{Name: "black", Hex: "#212121", Guidance: "text and connectors"},
}

// Semantic aliases map intent words onto palette names.
var aliases = map[string]string{
	"grey":        "gray",
	"positive":    "green",
	"success":     "green",
	"strength":    "green",
	"negative":    "red",
	"danger":      "red",
	"weakness":    "red",
	"error":       "red",
	"info":        "blue",
	"opportunity": "blue",
	"warning":     "orange",
	"threat":      "orange",
	"question":    "purple",
	"idea":        "yellow",
	"note":        "yellow",
	"neutral":     "gray",
}

var fallback = map[canvas.ObjectType]string{
	canvas.TypeStickyNote: "#FFEB3B",
	canvas.TypeRectangle:  "#90CAF9",
	canvas.TypeCircle:     "#A5D6A7",
	canvas.TypeText:       "#212121",
	canvas.TypeFrame:      "#F5F5F5",
	canvas.TypeConnector:  "#424242",
}

var (
	hexRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	rgbRe = regexp.MustCompile(`^rgba?\(\s*\d{1,3}%?\s*,\s*\d{1,3}%?\s*,\s*\d{1,3}%?\s*(?:,\s*(?:0|1|0?\.\d+|\d{1,3}%)\s*)?\)$`)
	hslRe = regexp.MustCompile(`^hsla?\(\s*\d{1,3}(?:deg)?\s*,\s*\d{1,3}%\s*,\s*\d{1,3}%\s*(?:,\s*(?:0|1|0?\.\d+|\d{1,3}%)\s*)?\)$`)
)

// Palette returns the named palette in display order.
func Palette() []Swatch {
	out := make([]Swatch, len(palette))
	copy(out, palette)
	return out
}

// Lookup returns the hex value of a palette name or alias.
func Lookup(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if a, ok := aliases[key]; ok {
		key = a
	}
	for _, s := range palette {
		if s.Name == key {
			return s.Hex, true
		}
	}
	return "", false
}

// IsLiteral reports whether s is a hex, rgb(a) or hsl(a) color literal.
func IsLiteral(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return hexRe.MatchString(s) || rgbRe.MatchString(s) || hslRe.MatchString(s)
}

// Fallback returns the default color for t.
func Fallback(t canvas.ObjectType) string {
	if c, ok := fallback[t]; ok {
		return c
	}
	return fallback[canvas.TypeStickyNote]
}

// Resolve maps input to a concrete color: palette lookup first, then a
// valid literal passes through, otherwise the per-type fallback.
func Resolve(input string, t canvas.ObjectType) string {
	if input == "" {
		return Fallback(t)
	}
	if hex, ok := Lookup(input); ok {
		return hex
	}
	if IsLiteral(input) {
		return strings.TrimSpace(input)
	}
	return Fallback(t)
}
