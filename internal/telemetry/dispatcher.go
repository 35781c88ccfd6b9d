package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Sink receives redacted trace records.
type Sink interface {
	Name() string
	Record(ctx context.Context, rec TraceRecord) error
}

// DefaultSinkTimeout bounds one sink write.
const DefaultSinkTimeout = 5 * time.Second

// Dispatcher fans records out to sinks in the background. The set of
// sinks is fixed at construction.
type Dispatcher struct {
	logger  *slog.Logger
	sinks   []Sink
	timeout time.Duration

	mu       sync.Mutex
	closed   bool
	inflight int
	// idle is closed whenever inflight is zero.
	idle chan struct{}
}

// NewDispatcher returns a dispatcher writing to sinks. Nil sinks are dropped.
func NewDispatcher(logger *slog.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	idle := make(chan struct{})
	close(idle)
	d := &Dispatcher{logger: logger, timeout: DefaultSinkTimeout, idle: idle}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	return d
}

// Names lists the configured sinks.
func (d *Dispatcher) Names() []string {
	out := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		out[i] = s.Name()
	}
	return out
}

// Record redacts rec and hands it to every sink without waiting. Sink
// errors and panics are logged and otherwise ignored. Records arriving
// after Close are dropped.
func (d *Dispatcher) Record(ctx context.Context, rec TraceRecord) {
	if len(d.sinks) == 0 {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Debug("telemetry closed, record dropped", slog.String("trace_id", rec.ID))
		return
	}
	if d.inflight == 0 {
		d.idle = make(chan struct{})
	}
	d.inflight += len(d.sinks)
	d.mu.Unlock()

	rec = rec.Redacted()
	base := context.WithoutCancel(ctx)
	for _, s := range d.sinks {
		go func(s Sink) {
			defer d.done()
			defer func() {
				if p := recover(); p != nil {
					d.logger.Error("telemetry sink panicked",
						slog.String("sink", s.Name()),
						slog.String("panic", fmt.Sprint(p)))
				}
			}()
			sctx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()
			if err := s.Record(sctx, rec); err != nil {
				d.logger.Warn("telemetry sink failed",
					slog.String("sink", s.Name()),
					slog.String("trace_id", rec.ID),
					slog.String("error", err.Error()))
			}
		}(s)
	}
}

func (d *Dispatcher) done() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inflight--
	if d.inflight == 0 {
		close(d.idle)
	}
}

// Flush waits until no record is in flight or ctx ends.
func (d *Dispatcher) Flush(ctx context.Context) error {
	d.mu.Lock()
	idle := d.idle
	d.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("telemetry: flush: %w", ctx.Err())
	}
}

// Close stops accepting records and waits for the in-flight ones.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return d.Flush(ctx)
}
