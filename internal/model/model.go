// Package model is the boundary to the generative model. The pipeline only
// sees the Client interface.
package model

import (
	"context"
	"errors"

	"github.com/starford/canvasai/internal/plan"
	"github.com/starford/canvasai/internal/tools"
)

var (
	// ErrNoOutput means the model returned nothing usable. It is the only
	// failure the router retries.
	ErrNoOutput = errors.New("model: no usable output")
	// ErrDisabled is returned by the client used when no provider is configured.
	ErrDisabled = errors.New("model: no provider configured")
)

// Mode selects the output contract requested from the model.
type Mode string

const (
	ModePlan  Mode = "plan"
	ModeTools Mode = "tools"
)

// Request is one model invocation.
type Request struct {
	SystemPrompt string
	Command      string
	Mode         Mode
}

// Usage counts tokens consumed by one call.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Total returns input plus output tokens.
func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

// Add returns the sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{InputTokens: u.InputTokens + o.InputTokens, OutputTokens: u.OutputTokens + o.OutputTokens}
}

// Response carries either a plan or tool calls, never both.
type Response struct {
	Plan      *plan.Plan
	ToolCalls []tools.Call
	Usage     Usage
}

// Client generates a response for a prompt.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Disabled is the client used when the provider is "none". Template
// commands still work; everything else fails with ErrDisabled.
type Disabled struct{}

func (Disabled) Generate(context.Context, Request) (Response, error) {
	return Response{}, ErrDisabled
}
