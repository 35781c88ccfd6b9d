package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Exporter names.
const (
	ExporterOTLP   = "otlp"
	ExporterZipkin = "zipkin"
)

// SpanCommand is the name of the span emitted per command.
const SpanCommand = "canvasai.command"

// OTelConfig configures the OpenTelemetry sink.
type OTelConfig struct {
	Exporter       string
	Endpoint       string
	SampleRate     float64
	ServiceName    string
	ServiceVersion string
}

// OTelSink exports one span per command.
type OTelSink struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewOTelSink builds the exporter named in cfg.
func NewOTelSink(ctx context.Context, cfg OTelConfig) (*OTelSink, error) {
	var exporter sdktrace.SpanExporter
	var err error
	switch cfg.Exporter {
	case ExporterOTLP, "":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4318"
		}
		exporter, err = otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(),
		)
	case ExporterZipkin:
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "http://localhost:9411/api/v2/spans"
		}
		exporter, err = zipkin.New(endpoint)
	default:
		return nil, fmt.Errorf("telemetry: unsupported exporter %q", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("telemetry: create %s exporter: %w", cfg.Exporter, err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create resource: %w", err)
	}

	rate := cfg.SampleRate
	if rate <= 0 || rate > 1 {
		rate = 1
	}
	return NewOTelSinkWithProvider(sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(rate)),
	)), nil
}

// NewOTelSinkWithProvider wraps an existing provider.
func NewOTelSinkWithProvider(p *sdktrace.TracerProvider) *OTelSink {
	return &OTelSink{provider: p, tracer: p.Tracer("canvasai")}
}

func (s *OTelSink) Name() string { return "otel" }

func (s *OTelSink) Record(ctx context.Context, rec TraceRecord) error {
	_, span := s.tracer.Start(ctx, SpanCommand,
		trace.WithTimestamp(rec.StartedAt),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("canvas.trace_id", rec.ID),
			attribute.String("canvas.board_id", rec.BoardID),
			attribute.String("canvas.user_id", rec.UserID),
			attribute.String("canvas.source", rec.Source()),
			attribute.Bool("canvas.success", rec.Success),
			attribute.Int("canvas.objects_created", rec.ObjectCount),
			attribute.Int("canvas.objects_modified", rec.ModifiedCount),
			attribute.Int("canvas.objects_deleted", rec.DeletedCount),
			attribute.Int("canvas.attempts", rec.Attempts),
			attribute.Int("llm.input_tokens", rec.InputTokens),
			attribute.Int("llm.output_tokens", rec.OutputTokens),
		))
	if rec.Error != "" {
		span.SetStatus(codes.Error, rec.Error)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(rec.StartedAt.Add(rec.Latency())))
	return nil
}

// Shutdown flushes and stops the exporter.
func (s *OTelSink) Shutdown(ctx context.Context) error {
	return s.provider.Shutdown(ctx)
}
