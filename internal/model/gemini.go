package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/starford/canvasai/internal/canvas"
	"github.com/starford/canvasai/internal/plan"
	"github.com/starford/canvasai/internal/tools"
)

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// DefaultGeminiModel is used when GeminiConfig.Model is empty.
const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini calls the Gemini API. Plan mode requests JSON constrained by a
// response schema; tools mode offers function declarations.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates a client for the Gemini API backend.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("model: gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("model: gemini: create client: %w", err)
	}
	name := cfg.Model
	if name == "" {
		name = DefaultGeminiModel
	}
	return &Gemini{client: client, model: name, timeout: cfg.Timeout}, nil
}

// Generate runs one call. A timeout or an unparseable answer is reported
// as ErrNoOutput.
func (g *Gemini) Generate(ctx context.Context, req Request) (Response, error) {
	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.Models.GenerateContent(callCtx, g.model,
		[]*genai.Content{genai.NewContentFromText(req.Command, genai.RoleUser)},
		generateConfig(req))
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return Response{}, fmt.Errorf("%w: timed out after %s", ErrNoOutput, g.timeout)
		}
		return Response{}, fmt.Errorf("model: gemini: generate: %w", err)
	}
	return decode(resp, req.Mode)
}

func generateConfig(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemPrompt, genai.RoleUser),
	}
	if req.Mode == ModeTools {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: functionDeclarations()}}
		return cfg
	}
	cfg.ResponseMIMEType = "application/json"
	cfg.ResponseSchema = planSchema()
	return cfg
}

func decode(resp *genai.GenerateContentResponse, mode Mode) (Response, error) {
	if resp == nil {
		return Response{}, ErrNoOutput
	}
	var out Response
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{InputTokens: int(u.PromptTokenCount), OutputTokens: int(u.CandidatesTokenCount)}
	}

	if mode == ModeTools {
		for _, fc := range resp.FunctionCalls() {
			out.ToolCalls = append(out.ToolCalls, tools.Call{Name: fc.Name, Args: fc.Args})
		}
		if len(out.ToolCalls) > 0 {
			return out, nil
		}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return out, ErrNoOutput
	}
	if mode == ModeTools {
		if calls, err := tools.ParseCalls(text); err == nil && len(calls) > 0 {
			out.ToolCalls = calls
			return out, nil
		}
		if !strings.Contains(text, "{") {
			// A prose answer without calls is a refusal or a clarification.
			out.Plan = &plan.Plan{Message: text}
			return out, nil
		}
	}
	p, err := plan.Parse(text)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrNoOutput, err)
	}
	out.Plan = &p
	return out, nil
}

func functionDeclarations() []*genai.FunctionDeclaration {
	defs := tools.Definitions()
	out := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, d := range defs {
		params := &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}}
		for _, p := range d.Params {
			s := &genai.Schema{Description: p.Description, Enum: p.Enum}
			switch p.Type {
			case tools.TypeNumber:
				s.Type = genai.TypeNumber
			default:
				s.Type = genai.TypeString
			}
			params.Properties[p.Name] = s
			if p.Required {
				params.Required = append(params.Required, p.Name)
			}
		}
		out = append(out, &genai.FunctionDeclaration{Name: d.Name, Description: d.Description, Parameters: params})
	}
	return out
}

func planSchema() *genai.Schema {
	number := func(desc string) *genai.Schema { return &genai.Schema{Type: genai.TypeNumber, Description: desc} }
	text := func(desc string, enum ...string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc, Enum: enum}
	}

	types := make([]string, len(canvas.ObjectTypes))
	for i, t := range canvas.ObjectTypes {
		types[i] = string(t)
	}
	ports := []string{string(canvas.PortTop), string(canvas.PortRight), string(canvas.PortBottom), string(canvas.PortLeft), string(canvas.PortCenter)}
	actions := []string{string(plan.ActionMove), string(plan.ActionResize), string(plan.ActionRecolor), string(plan.ActionUpdateText), string(plan.ActionDelete)}

	object := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"type":           text("Object type", types...),
			"x":              number("Left edge"),
			"y":              number("Top edge"),
			"width":          number("Width"),
			"height":         number("Height"),
			"content":        text("Text content"),
			"color":          text("Palette name or hex color"),
			"parentFrameId":  text("Id of an existing frame"),
			"fromObjectId":   text("Connector source id"),
			"toObjectId":     text("Connector target id"),
			"fromPort":       text("Connector source port", ports...),
			"toPort":         text("Connector target port", ports...),
			"connectorStyle": text("Connector style", string(plan.StyleArrow), string(plan.StyleLine), string(plan.StyleDashed)),
		},
		Required: []string{"type", "x", "y"},
	}
	modification := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"targetId": text("Id of an existing object"),
			"action":   text("Change to apply", actions...),
			"x":        number("New left edge for move"),
			"y":        number("New top edge for move"),
			"width":    number("New width for resize"),
			"height":   number("New height for resize"),
			"color":    text("New color for recolor"),
			"content":  text("New text for update_text"),
		},
		Required: []string{"targetId", "action"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"objects":       {Type: genai.TypeArray, Items: object},
			"modifications": {Type: genai.TypeArray, Items: modification},
			"message":       text("One-line summary shown to the user"),
		},
		Required: []string{"objects", "message"},
	}
}
