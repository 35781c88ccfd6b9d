package tracestore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor prunes old traces on a cron schedule until its context ends.
type Janitor struct {
	store     Store
	schedule  string
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewJanitor validates the schedule and returns a janitor for store.
func NewJanitor(store Store, schedule string, retention time.Duration, logger *slog.Logger) (*Janitor, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("tracestore: prune schedule %q: %w", schedule, err)
	}
	if retention <= 0 {
		return nil, fmt.Errorf("tracestore: retention must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{store: store, schedule: schedule, retention: retention, logger: logger, now: time.Now}, nil
}

// RunOnce deletes traces older than the retention window.
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	n, err := j.store.Prune(ctx, j.now().Add(-j.retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		j.logger.Info("pruned traces", slog.Int64("count", n))
	}
	return n, nil
}

// Run blocks until ctx is done, pruning on every tick of the schedule.
func (j *Janitor) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(j.schedule, func() {
		if _, err := j.RunOnce(ctx); err != nil {
			j.logger.Warn("prune traces failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return fmt.Errorf("tracestore: schedule prune: %w", err)
	}
	j.logger.Info("trace retention scheduled",
		slog.String("schedule", j.schedule),
		slog.String("retention", j.retention.String()))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
