package templates

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/canvasai/internal/canvas"
)

// File is the YAML form of a user-defined template. Child coordinates are
// offsets from the frame's top-left corner.
type File struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Patterns    []string    `yaml:"patterns"`
	Title       string      `yaml:"title"`
	Message     string      `yaml:"message"`
	Frame       FrameSize   `yaml:"frame"`
	Children    []ChildSpec `yaml:"children"`
}

// FrameSize is the size of the enclosing frame.
type FrameSize struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// ChildSpec is one object inside a custom template frame.
type ChildSpec struct {
	Type    canvas.ObjectType `yaml:"type"`
	X       float64           `yaml:"x"`
	Y       float64           `yaml:"y"`
	Width   float64           `yaml:"width"`
	Height  float64           `yaml:"height"`
	Content string            `yaml:"content"`
	Color   string            `yaml:"color"`
}

// Compile validates f and turns it into a Template.
func (f File) Compile() (*Template, error) {
	if strings.TrimSpace(f.Name) == "" {
		return nil, errors.New("templates: name is required")
	}
	if len(f.Patterns) == 0 {
		return nil, fmt.Errorf("templates: %s: at least one pattern is required", f.Name)
	}
	if f.Frame.Width <= 0 || f.Frame.Height <= 0 {
		return nil, fmt.Errorf("templates: %s: frame size is required", f.Name)
	}
	pats := make([]*regexp.Regexp, 0, len(f.Patterns))
	for _, p := range f.Patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("templates: %s: pattern %q: %w", f.Name, p, err)
		}
		pats = append(pats, re)
	}
	for i, c := range f.Children {
		if !c.Type.Valid() || c.Type == canvas.TypeConnector || c.Type == canvas.TypeFrame {
			return nil, fmt.Errorf("templates: %s: child %d has unsupported type %q", f.Name, i, c.Type)
		}
	}

	spec := f
	return &Template{
		Name:        spec.Name,
		Description: spec.Description,
		Patterns:    pats,
		build: func(b *builder) string {
			title := spec.Title
			if title == "" {
				title = spec.Name
			}
			o := b.frameAt(spec.Frame.Width, spec.Frame.Height, title)
			for _, c := range spec.Children {
				shape, _ := canvas.DefaultShape(c.Type)
				b.add(shape, canvas.Rect{X: o.X + c.X, Y: o.Y + c.Y, Width: c.Width, Height: c.Height}, c.Content, c.Color)
			}
			if spec.Message != "" {
				return spec.Message
			}
			return fmt.Sprintf("Created the %s template", title)
		},
	}, nil
}

// LoadDir reads every *.yaml and *.yml file in dir. A missing directory
// yields no templates.
func LoadDir(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("templates: read dir %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isTemplateFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]*Template, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("templates: read %s: %w", name, err)
		}
		var f File
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("templates: parse %s: %w", name, err)
		}
		t, err := f.Compile()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func isTemplateFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
