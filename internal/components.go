package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/starford/canvasai/internal/commandservice"
	"github.com/starford/canvasai/internal/model"
	"github.com/starford/canvasai/internal/pipeline"
	"github.com/starford/canvasai/internal/sse"
	"github.com/starford/canvasai/internal/telemetry"
	"github.com/starford/canvasai/internal/templates"
	"github.com/starford/canvasai/internal/tracestore"
)

// sseKeepalive is the comment interval on idle event streams.
const sseKeepalive = 15 * time.Second

// components holds everything built from the configuration. Sinks are
// resolved here once; nothing reads the configuration after startup.
type components struct {
	logger     *slog.Logger
	templates  *templates.Registry
	dispatcher *telemetry.Dispatcher
	otel       *telemetry.OTelSink
	metrics    *prometheus.Registry
	traces     *tracestore.DB
	janitor    *tracestore.Janitor
	broker     *sse.Broker
	commands   *commandservice.Service
}

func newComponents(ctx context.Context, cfg *Config, version string, logger *slog.Logger) (_ *components, err error) {
	c := &components{logger: logger, templates: templates.NewRegistry()}
	defer func() {
		if err != nil {
			c.close(context.Background())
		}
	}()

	if dir := cfg.Templates.Dir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create templates dir: %w", err)
		}
		if !cfg.Templates.Watch {
			if n, err := templates.Reload(c.templates, dir); err != nil {
				logger.Warn("templates: load failed", slog.String("dir", dir), slog.String("error", err.Error()))
			} else {
				logger.Info("templates: loaded", slog.String("dir", dir), slog.Int("count", n))
			}
		}
	}

	var sinks []telemetry.Sink
	if cfg.Telemetry.Log.Enabled {
		sinks = append(sinks, telemetry.NewLogSink(logger))
	}
	if cfg.Telemetry.OTel.Enabled {
		c.otel, err = telemetry.NewOTelSink(ctx, cfg.Telemetry.OTel.OTelConfig(version))
		if err != nil {
			return nil, fmt.Errorf("init otel sink: %w", err)
		}
		sinks = append(sinks, c.otel)
	}
	if cfg.Telemetry.Prometheus.Enabled {
		c.metrics = prometheus.NewRegistry()
		ps, err := telemetry.NewPrometheusSink(c.metrics)
		if err != nil {
			return nil, fmt.Errorf("init prometheus sink: %w", err)
		}
		sinks = append(sinks, ps)
	}
	if sc := cfg.Telemetry.SQLite; sc.Enabled {
		c.traces, err = tracestore.Open(sc.Path)
		if err != nil {
			return nil, fmt.Errorf("init trace store: %w", err)
		}
		c.janitor, err = tracestore.NewJanitor(c.traces, sc.PruneSchedule, sc.Retention, logger)
		if err != nil {
			return nil, fmt.Errorf("init trace janitor: %w", err)
		}
		sinks = append(sinks, c.traces)
	}
	c.dispatcher = telemetry.NewDispatcher(logger, sinks...)

	var client model.Client
	if cfg.Model.Provider == ProviderGemini {
		client, err = model.NewGemini(ctx, model.GeminiConfig{
			APIKey:  cfg.Model.APIKey,
			Model:   cfg.Model.Name,
			Timeout: cfg.Model.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init model: %w", err)
		}
	}

	router := pipeline.NewRouter(client,
		pipeline.WithTemplates(templates.NewGenerator(c.templates)),
		pipeline.WithRecorder(c.dispatcher),
		pipeline.WithLogger(logger),
		pipeline.WithMode(cfg.Model.Mode),
	)

	c.broker = sse.NewBroker(sseKeepalive)
	c.commands, err = commandservice.New(router,
		commandservice.WithPublisher(c.broker),
		commandservice.WithCacheSize(cfg.Pipeline.IdempotencyCacheSize),
		commandservice.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("Components ready",
		slog.String("model_provider", cfg.Model.Provider),
		slog.String("model_mode", string(cfg.Model.Mode)),
		slog.Any("sinks", c.dispatcher.Names()))
	return c, nil
}

// close flushes pending trace records and releases resources.
func (c *components) close(ctx context.Context) {
	var errs []error
	if c.dispatcher != nil {
		errs = append(errs, c.dispatcher.Close(ctx))
	}
	if c.otel != nil {
		errs = append(errs, c.otel.Shutdown(ctx))
	}
	if c.broker != nil {
		c.broker.Close()
	}
	if c.traces != nil {
		errs = append(errs, c.traces.Close())
	}
	if err := errors.Join(errs...); err != nil {
		c.logger.Warn("shutdown incomplete", slog.String("error", err.Error()))
	}
}
