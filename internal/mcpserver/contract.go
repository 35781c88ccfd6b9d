package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/canvasai/internal/pipeline"
	"github.com/starford/canvasai/internal/prompt"
	"github.com/starford/canvasai/internal/tools"
)

// PromptContractURI identifies the prompt contract resource.
const PromptContractURI = "canvas://prompt-contract"

// PromptContract returns the fixed prompt sections the model sees before
// any board content, followed by the tool catalogue. It never contains
// board state.
func PromptContract() string {
	var b strings.Builder
	b.WriteString(prompt.Instructions(prompt.Viewport(pipeline.DefaultCenter)))

	b.WriteString("\nTOOLS\n")
	for _, d := range tools.Definitions() {
		fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Description)
		for _, p := range d.Params {
			req := "optional"
			if p.Required {
				req = "required"
			}
			line := fmt.Sprintf("    %s (%s, %s)", p.Name, p.Type, req)
			if len(p.Enum) > 0 {
				line += " one of " + strings.Join(p.Enum, "|")
			}
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}
