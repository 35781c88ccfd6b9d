package plan

import (
	"fmt"
	"strings"

	"github.com/starford/canvasai/internal/canvas"
)

// Severity classifies a validation error.
type Severity string

const (
	// SeverityHard errors invalidate the plan.
	SeverityHard Severity = "hard"
	// SeveritySoft errors were corrected in place.
	SeveritySoft Severity = "soft"
)

// ValidationError describes one problem found in a plan.
type ValidationError struct {
	Severity Severity `json:"severity"`
	Field    string   `json:"field"`
	Message  string   `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationResult is the outcome of Validate. Corrected always has every
// numeric field inside the global bounds.
type ValidationResult struct {
	Valid     bool
	Errors    []ValidationError
	Corrected Plan
}

// Messages returns the error texts.
func (r ValidationResult) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Error()
	}
	return out
}

// HardErrors returns only errors with SeverityHard.
func (r ValidationResult) HardErrors() []ValidationError {
	var out []ValidationError
	for _, e := range r.Errors {
		if e.Severity == SeverityHard {
			out = append(out, e)
		}
	}
	return out
}

// Validate clamps numeric fields and checks references against existing.
// Missing connector endpoints and missing modification targets are hard
// errors; a missing parent frame is nulled out as a soft error.
func Validate(p Plan, existing []canvas.Object) ValidationResult {
	ids := make(map[string]struct{}, len(existing))
	for _, o := range existing {
		ids[o.ID] = struct{}{}
	}
	known := func(id string) bool {
		_, ok := ids[id]
		return ok
	}

	res := ValidationResult{Corrected: p.Clone()}
	hard := func(field, format string, args ...any) {
		res.Errors = append(res.Errors, ValidationError{Severity: SeverityHard, Field: field, Message: fmt.Sprintf(format, args...)})
	}
	soft := func(field, format string, args ...any) {
		res.Errors = append(res.Errors, ValidationError{Severity: SeveritySoft, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	for i := range res.Corrected.Objects {
		o := &res.Corrected.Objects[i]
		field := fmt.Sprintf("objects[%d]", i)

		o.X = canvas.ClampPosition(o.X)
		o.Y = canvas.ClampPosition(o.Y)
		if o.Width != nil {
			*o.Width = canvas.ClampDimension(*o.Width)
		}
		if o.Height != nil {
			*o.Height = canvas.ClampDimension(*o.Height)
		}

		if o.Type == canvas.TypeConnector {
			c := o.Connector
			if c == nil {
				c = &ConnectorSpec{}
				o.Connector = c
			}
			if !known(c.FromObjectID) {
				hard(field+".fromObjectId", "object %q not found", c.FromObjectID)
			}
			if !known(c.ToObjectID) {
				hard(field+".toObjectId", "object %q not found", c.ToObjectID)
			}
			if c.FromPort != "" && !c.FromPort.Valid() {
				c.FromPort = ""
			}
			if c.ToPort != "" && !c.ToPort.Valid() {
				c.ToPort = ""
			}
		}

		if o.ParentFrameID != "" && !known(o.ParentFrameID) {
			soft(field+".parentFrameId", "frame %q not found, cleared", o.ParentFrameID)
			o.ParentFrameID = ""
		}
	}

	mods := res.Corrected.Modifications[:0:0]
	for i, m := range res.Corrected.Modifications {
		field := fmt.Sprintf("modifications[%d]", i)
		if !known(m.TargetID) {
			hard(field+".targetId", "object %q not found", m.TargetID)
			continue
		}
		switch c := m.Change.(type) {
		case Move:
			m.Change = Move{X: canvas.ClampPosition(c.X), Y: canvas.ClampPosition(c.Y)}
		case Resize:
			m.Change = Resize{Width: canvas.ClampDimension(c.Width), Height: canvas.ClampDimension(c.Height)}
		case Recolor, UpdateText, Delete:
		default:
			hard(field+".action", "missing action")
			continue
		}
		mods = append(mods, m)
	}
	res.Corrected.Modifications = mods

	res.Valid = len(res.HardErrors()) == 0
	return res
}

// Summary returns a one-line description of hard errors, for logs and messages.
func (r ValidationResult) Summary() string {
	hard := r.HardErrors()
	if len(hard) == 0 {
		return ""
	}
	parts := make([]string, len(hard))
	for i, e := range hard {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}
