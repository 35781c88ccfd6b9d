package telemetry

import (
	"context"
	"log/slog"
)

// LogSink writes one structured line per command. Command text and board
// content are left out.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Record(ctx context.Context, rec TraceRecord) error {
	level := slog.LevelInfo
	attrs := []slog.Attr{
		slog.String("trace_id", rec.ID),
		slog.String("board_id", rec.BoardID),
		slog.String("user_id", rec.UserID),
		slog.Bool("success", rec.Success),
		slog.String("source", rec.Source()),
		slog.Int("objects", rec.ObjectCount),
		slog.Int("modified", rec.ModifiedCount),
		slog.Int("deleted", rec.DeletedCount),
		slog.Int("input_tokens", rec.InputTokens),
		slog.Int("output_tokens", rec.OutputTokens),
		slog.Int("attempts", rec.Attempts),
		slog.Int64("latency_ms", rec.LatencyMs),
	}
	if rec.Error != "" {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", rec.Error))
	}
	s.logger.LogAttrs(ctx, level, "command processed", attrs...)
	return nil
}
