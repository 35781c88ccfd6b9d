package pipeline

import (
	"log/slog"
	"time"

	"github.com/starford/canvasai/internal/executor"
	"github.com/starford/canvasai/internal/model"
	"github.com/starford/canvasai/internal/templates"
)

// Option is a functional option for configuring a Router.
type Option func(*Router)

// WithTemplates sets the template generator consulted before the model.
func WithTemplates(g *templates.Generator) Option {
	return func(r *Router) {
		r.templates = g
	}
}

// WithExecutor sets the plan executor.
func WithExecutor(e *executor.Executor) Option {
	return func(r *Router) {
		r.executor = e
	}
}

// WithRecorder sets where trace records go.
func WithRecorder(rec Recorder) Option {
	return func(r *Router) {
		r.recorder = rec
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

// WithMode selects plan or tool-call output.
func WithMode(m model.Mode) Option {
	return func(r *Router) {
		r.mode = m
	}
}

// WithClock overrides the time source used for latency and trace timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		r.now = now
	}
}

// WithIDs overrides the trace id generator.
func WithIDs(newID func() string) Option {
	return func(r *Router) {
		r.newID = newID
	}
}
