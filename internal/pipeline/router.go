// Package pipeline routes a free-text command to a template or the model
// and turns the answer into canvas mutations.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/canvasai/internal/canvas"
	"github.com/starford/canvasai/internal/executor"
	"github.com/starford/canvasai/internal/model"
	"github.com/starford/canvasai/internal/plan"
	"github.com/starford/canvasai/internal/prompt"
	"github.com/starford/canvasai/internal/telemetry"
	"github.com/starford/canvasai/internal/templates"
	"github.com/starford/canvasai/internal/tools"
)

// MaxAttempts is the number of model calls made for one command. Only
// model.ErrNoOutput triggers another attempt.
const MaxAttempts = 2

// MaxCommandLength caps the command text passed to the model.
const MaxCommandLength = 2000

// DefaultCenter is the viewport center assumed when the client sends none.
var DefaultCenter = canvas.Point{X: prompt.DefaultViewportWidth / 2, Y: prompt.DefaultViewportHeight / 2}

// User-facing failure messages.
const (
	MsgEmptyCommand = "Please enter a command."
	MsgNoOutput     = "The assistant could not produce a usable answer. Please try again."
	MsgDisabled     = "AI commands are not available because no model is configured."
	MsgUnavailable  = "The assistant is unavailable right now. Please try again later."
	MsgInternal     = "Something went wrong while processing the command."
)

// Recorder receives one trace per routed command and must not block.
type Recorder interface {
	Record(ctx context.Context, rec telemetry.TraceRecord)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, telemetry.TraceRecord) {}

// Command is one request from the command bar.
type Command struct {
	Text           string          `json:"command"`
	BoardID        string          `json:"boardId"`
	UserID         string          `json:"userId"`
	Objects        []canvas.Object `json:"objects"`
	ViewportCenter *canvas.Point   `json:"viewportCenter,omitempty"`
	SelectedIDs    []string        `json:"selectedObjectIds,omitempty"`
}

// Result is what the caller applies. Objects are upserts (new and
// modified); DeletedIDs are removals.
type Result struct {
	Success    bool            `json:"success"`
	Objects    []canvas.Object `json:"objects"`
	DeletedIDs []string        `json:"deletedIds,omitempty"`
	Message    string          `json:"message"`
	TokensUsed int             `json:"tokensUsed"`
	LatencyMs  int64           `json:"latencyMs"`
	IsTemplate bool            `json:"isTemplate"`
}

// Router orchestrates template matching, the model call, validation and
// execution. It holds no per-command state and is safe for concurrent use.
type Router struct {
	model     model.Client
	templates *templates.Generator
	executor  *executor.Executor
	recorder  Recorder
	logger    *slog.Logger
	mode      model.Mode
	now       func() time.Time
	newID     func() string
}

// NewRouter returns a router calling client for non-template commands.
func NewRouter(client model.Client, opts ...Option) *Router {
	r := &Router{
		model:     client,
		templates: templates.NewGenerator(templates.NewRegistry()),
		executor:  executor.New(),
		recorder:  nopRecorder{},
		logger:    slog.Default(),
		mode:      model.ModePlan,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.model == nil {
		r.model = model.Disabled{}
	}
	return r
}

// Route runs one command. It never returns an error: failures come back
// as a Result with Success false. The trace is recorded in the background.
func (r *Router) Route(ctx context.Context, cmd Command) (res Result) {
	start := r.now()
	rec := telemetry.TraceRecord{
		ID:        r.newID(),
		BoardID:   cmd.BoardID,
		UserID:    cmd.UserID,
		Command:   cmd.Text,
		StartedAt: start.UTC(),
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("command panicked",
				slog.String("trace_id", rec.ID),
				slog.String("panic", fmt.Sprint(p)))
			res = failure(MsgInternal)
			rec.Error = fmt.Sprintf("panic: %v", p)
		}
		res.LatencyMs = r.now().Sub(start).Milliseconds()
		if res.Objects == nil {
			res.Objects = []canvas.Object{}
		}
		rec.Success = res.Success
		rec.IsTemplate = res.IsTemplate
		rec.Message = res.Message
		rec.DeletedCount = len(res.DeletedIDs)
		rec.LatencyMs = res.LatencyMs
		r.recorder.Record(ctx, rec)
	}()

	return r.route(ctx, cmd, &rec)
}

func (r *Router) route(ctx context.Context, cmd Command, rec *telemetry.TraceRecord) Result {
	text := strings.TrimSpace(cmd.Text)
	if text == "" {
		rec.Error = "empty command"
		return failure(MsgEmptyCommand)
	}
	if len([]rune(text)) > MaxCommandLength {
		text = string([]rune(text)[:MaxCommandLength])
	}

	center := DefaultCenter
	if cmd.ViewportCenter != nil {
		center = *cmd.ViewportCenter
	}

	if name, ok := r.templates.Match(text); ok {
		gen, err := r.templates.Generate(name, templates.Request{BoardID: cmd.BoardID, UserID: cmd.UserID, Center: center})
		if err != nil {
			rec.Error = err.Error()
			return failure(MsgInternal)
		}
		rec.ObjectCount = len(gen.Objects)
		return Result{Success: true, Objects: gen.Objects, Message: gen.Message, IsTemplate: true}
	}

	system := prompt.Build(cmd.Objects, prompt.Viewport(center), cmd.SelectedIDs)
	rec.Prompt = system

	resp, usage, err := r.generate(ctx, model.Request{SystemPrompt: system, Command: text, Mode: r.mode}, rec)
	rec.InputTokens, rec.OutputTokens = usage.InputTokens, usage.OutputTokens
	if err != nil {
		rec.Error = err.Error()
		res := failure(failureMessage(err))
		res.TokensUsed = usage.Total()
		return res
	}

	var out executor.Result
	var msg string
	if len(resp.ToolCalls) > 0 {
		var rep tools.Report
		out, rep = tools.Execute(resp.ToolCalls, cmd.BoardID, cmd.UserID, cmd.Objects, r.executor)
		rec.SkippedCalls = len(rep.Skipped)
		if len(rep.Skipped) > 0 {
			r.logger.Info("skipped invalid tool calls",
				slog.String("trace_id", rec.ID),
				slog.Int("applied", rep.Applied),
				slog.Int("skipped", len(rep.Skipped)))
		}
		msg = describe(out)
	} else {
		v := plan.Validate(*resp.Plan, cmd.Objects)
		if !v.Valid {
			r.logger.Info("plan had invalid references",
				slog.String("trace_id", rec.ID),
				slog.Int("hard_errors", len(v.HardErrors())),
				slog.Any("errors", v.Messages()))
		}
		out = r.executor.Execute(v.Corrected, cmd.BoardID, cmd.UserID, cmd.Objects)
		msg = strings.TrimSpace(resp.Plan.Message)
		if msg == "" {
			msg = describe(out)
		} else {
			rec.ModelMessage = true
		}
	}

	rec.ObjectCount = len(out.Objects)
	rec.ModifiedCount = len(out.ModifiedObjects)
	return Result{
		Success:    true,
		Objects:    out.Upserts(),
		DeletedIDs: out.DeletedIDs,
		Message:    msg,
		TokensUsed: usage.Total(),
	}
}

func (r *Router) generate(ctx context.Context, req model.Request, rec *telemetry.TraceRecord) (model.Response, model.Usage, error) {
	var usage model.Usage
	var err error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		rec.Attempts = attempt
		var resp model.Response
		resp, err = r.model.Generate(ctx, req)
		usage = usage.Add(resp.Usage)
		if err == nil && len(resp.ToolCalls) == 0 && resp.Plan == nil {
			err = model.ErrNoOutput
		}
		if err == nil {
			return resp, usage, nil
		}
		if !errors.Is(err, model.ErrNoOutput) {
			break
		}
		r.logger.Warn("model returned no usable output",
			slog.String("trace_id", rec.ID),
			slog.Int("attempt", attempt))
	}
	return model.Response{}, usage, err
}

func failure(msg string) Result {
	return Result{Success: false, Objects: []canvas.Object{}, Message: msg}
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrNoOutput):
		return MsgNoOutput
	case errors.Is(err, model.ErrDisabled):
		return MsgDisabled
	}
	return MsgUnavailable
}

func describe(out executor.Result) string {
	var parts []string
	if n := len(out.Objects); n > 0 {
		parts = append(parts, fmt.Sprintf("created %d", n))
	}
	if n := len(out.ModifiedObjects); n > 0 {
		parts = append(parts, fmt.Sprintf("updated %d", n))
	}
	if n := len(out.DeletedIDs); n > 0 {
		parts = append(parts, fmt.Sprintf("deleted %d", n))
	}
	if len(parts) == 0 {
		return "No changes were made."
	}
	s := strings.Join(parts, ", ")
	return strings.ToUpper(s[:1]) + s[1:] + " object(s)."
}
