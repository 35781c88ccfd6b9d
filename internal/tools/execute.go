package tools

import (
	"github.com/starford/canvasai/internal/canvas"
	"github.com/starford/canvasai/internal/executor"
	"github.com/starford/canvasai/internal/plan"
)

// Skip records a call that was not applied.
type Skip struct {
	Index  int    `json:"index"`
	Tool   string `json:"tool"`
	Reason string `json:"reason"`
}

// Report summarizes a batch of calls.
type Report struct {
	Applied int    `json:"applied"`
	Skipped []Skip `json:"skipped,omitempty"`
}

// Execute validates each call on its own against existing, drops the ones
// that fail, and executes the rest as a single plan so new objects are
// separated together.
func Execute(calls []Call, boardID, userID string, existing []canvas.Object, ex *executor.Executor) (executor.Result, Report) {
	var merged plan.Plan
	var rep Report
	for i, c := range calls {
		p, err := Translate(c)
		if err != nil {
			rep.Skipped = append(rep.Skipped, Skip{Index: i, Tool: c.Name, Reason: err.Error()})
			continue
		}
		v := plan.Validate(p, existing)
		if !v.Valid {
			rep.Skipped = append(rep.Skipped, Skip{Index: i, Tool: c.Name, Reason: v.Summary()})
			continue
		}
		merged.Objects = append(merged.Objects, v.Corrected.Objects...)
		merged.Modifications = append(merged.Modifications, v.Corrected.Modifications...)
		rep.Applied++
	}
	return ex.Execute(merged, boardID, userID, existing), rep
}
