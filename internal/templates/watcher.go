package templates

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// Reload loads dir into reg, replacing the previous custom templates.
func Reload(reg *Registry, dir string) (int, error) {
	ts, err := LoadDir(dir)
	if err != nil {
		return 0, err
	}
	reg.SetCustom(ts)
	return len(ts), nil
}

// Watch loads dir into reg and reloads it whenever a file in it changes,
// until ctx is cancelled. A broken file keeps the last good set loaded.
func Watch(ctx context.Context, reg *Registry, dir string, logger *slog.Logger) error {
	if n, err := Reload(reg, dir); err != nil {
		logger.Warn("templates: initial load failed", slog.String("dir", dir), slog.String("error", err.Error()))
	} else {
		logger.Info("templates: loaded", slog.String("dir", dir), slog.Int("count", n))
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("templates: watcher started", slog.String("dir", dir))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(reloadDebounce)
			fire = timer.C
		} else {
			timer.Reset(reloadDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("templates: watcher stopped")
			return nil

		case <-fire:
			n, err := Reload(reg, dir)
			if err != nil {
				logger.Warn("templates: reload failed", slog.String("error", err.Error()))
				continue
			}
			logger.Info("templates: reloaded", slog.Int("count", n))

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isTemplateFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("templates: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
