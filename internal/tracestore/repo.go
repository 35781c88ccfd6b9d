package tracestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/canvasai/internal/apperr"
	"github.com/starford/canvasai/internal/telemetry"
)

// Store is the read/write surface used by the HTTP layer.
type Store interface {
	telemetry.Sink
	List(ctx context.Context, p ListParams) ([]telemetry.TraceRecord, error)
	Get(ctx context.Context, id string) (telemetry.TraceRecord, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

var _ Store = (*DB)(nil)

// Paging limits for List.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// ListParams filters List. Zero values mean no filter and the default limit.
type ListParams struct {
	BoardID string
	Limit   int
}

func (db *DB) Name() string { return "sqlite" }

// Record stores rec, replacing any earlier record with the same id.
func (db *DB) Record(ctx context.Context, rec telemetry.TraceRecord) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO traces (id, board_id, user_id, command, prompt, success, is_template, message,
			object_count, modified_count, deleted_count, skipped_calls,
			input_tokens, output_tokens, latency_ms, attempts, error, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			success    = excluded.success,
			message    = excluded.message,
			error      = excluded.error,
			latency_ms = excluded.latency_ms
	`, rec.ID, rec.BoardID, rec.UserID, rec.Command, rec.Prompt, rec.Success, rec.IsTemplate, rec.Message,
		rec.ObjectCount, rec.ModifiedCount, rec.DeletedCount, rec.SkippedCalls,
		rec.InputTokens, rec.OutputTokens, rec.LatencyMs, rec.Attempts, rec.Error, rec.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("tracestore: insert trace: %w", err)
	}
	return nil
}

const selectColumns = `id, board_id, user_id, command, prompt, success, is_template, message,
	object_count, modified_count, deleted_count, skipped_calls,
	input_tokens, output_tokens, latency_ms, attempts, error, started_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (telemetry.TraceRecord, error) {
	var r telemetry.TraceRecord
	err := s.Scan(&r.ID, &r.BoardID, &r.UserID, &r.Command, &r.Prompt, &r.Success, &r.IsTemplate, &r.Message,
		&r.ObjectCount, &r.ModifiedCount, &r.DeletedCount, &r.SkippedCalls,
		&r.InputTokens, &r.OutputTokens, &r.LatencyMs, &r.Attempts, &r.Error, &r.StartedAt)
	r.StartedAt = r.StartedAt.UTC()
	return r, err
}

// List returns the most recent traces first.
func (db *DB) List(ctx context.Context, p ListParams) ([]telemetry.TraceRecord, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `SELECT ` + selectColumns + ` FROM traces`
	var args []any
	if p.BoardID != "" {
		query += ` WHERE board_id = ?`
		args = append(args, p.BoardID)
	}
	query += ` ORDER BY started_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("tracestore: list traces: %w", err)
	}
	defer rows.Close()

	out := []telemetry.TraceRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("tracestore: scan trace: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns one trace or apperr.ErrNotFound.
func (db *DB) Get(ctx context.Context, id string) (telemetry.TraceRecord, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM traces WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return telemetry.TraceRecord{}, fmt.Errorf("tracestore: trace %q: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return telemetry.TraceRecord{}, fmt.Errorf("tracestore: get trace: %w", err)
	}
	return r, nil
}

// Prune deletes traces that started before the cutoff and reports how many
// were removed.
func (db *DB) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM traces WHERE started_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("tracestore: prune: %w", err)
	}
	return res.RowsAffected()
}
