// Package telemetry mirrors every command outcome to a set of sinks
// without blocking the caller.
package telemetry

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/canvasai/internal/prompt"
)

// TraceRecord describes one routed command.
type TraceRecord struct {
	ID            string    `json:"id"`
	BoardID       string    `json:"boardId"`
	UserID        string    `json:"userId"`
	Command       string    `json:"command"`
	Prompt        string    `json:"prompt,omitempty"`
	Success       bool      `json:"success"`
	IsTemplate    bool      `json:"isTemplate"`
	Message       string    `json:"message"`
	ObjectCount   int       `json:"objectCount"`
	ModifiedCount int       `json:"modifiedCount"`
	DeletedCount  int       `json:"deletedCount"`
	SkippedCalls  int       `json:"skippedCalls"`
	InputTokens   int       `json:"inputTokens"`
	OutputTokens  int       `json:"outputTokens"`
	LatencyMs     int64     `json:"latencyMs"`
	Attempts      int       `json:"attempts"`
	Error         string    `json:"error,omitempty"`
	StartedAt     time.Time `json:"startedAt"`
	// ModelMessage marks Message as written by the model, which may quote
	// board content.
	ModelMessage bool `json:"-"`
}

// MaxTextLength caps Message and Error after redaction.
const MaxTextLength = 200

// Outcome labels a record for metrics.
func (r TraceRecord) Outcome() string {
	if r.Success {
		return "success"
	}
	return "failure"
}

// Source labels whether the template path or the model answered.
func (r TraceRecord) Source() string {
	if r.IsTemplate {
		return "template"
	}
	return "model"
}

// Latency returns LatencyMs as a duration.
func (r TraceRecord) Latency() time.Duration {
	return time.Duration(r.LatencyMs) * time.Millisecond
}

// Redacted returns a copy whose prompt keeps the fixed instruction sections
// but not the board state, which carries user content. A model-written
// message is replaced by its length; error text is flattened and capped.
func (r TraceRecord) Redacted() TraceRecord {
	if i := strings.Index(r.Prompt, prompt.HeaderBoardState); i >= 0 {
		rest := len(r.Prompt) - i
		r.Prompt = r.Prompt[:i] + fmt.Sprintf("[board state redacted: %d chars]", rest)
	}
	if r.ModelMessage && r.Message != "" {
		r.Message = fmt.Sprintf("[model message redacted: %d chars]", utf8.RuneCountInString(r.Message))
	}
	r.ModelMessage = false
	r.Message = prompt.Sanitize(r.Message, MaxTextLength)
	r.Error = prompt.Sanitize(r.Error, MaxTextLength)
	return r
}
