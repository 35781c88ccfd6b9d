// Package testutil provides shared test helpers: a scripted model client,
// a recording trace sink and a temporary trace database.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/starford/canvasai/internal/model"
	"github.com/starford/canvasai/internal/telemetry"
	"github.com/starford/canvasai/internal/tracestore"
)

// Reply is one scripted answer of FakeModel.
type Reply struct {
	Response model.Response
	Err      error
}

// FakeModel answers with scripted replies in order and records every
// request. Once the script runs out it repeats the last reply.
type FakeModel struct {
	mu       sync.Mutex
	replies  []Reply
	requests []model.Request
	// Hook, when set, runs before each reply is returned.
	Hook func(ctx context.Context, req model.Request)
}

// NewFakeModel returns a model that plays replies in order.
func NewFakeModel(replies ...Reply) *FakeModel {
	return &FakeModel{replies: replies}
}

func (f *FakeModel) Generate(ctx context.Context, req model.Request) (model.Response, error) {
	f.mu.Lock()
	n := len(f.requests)
	f.requests = append(f.requests, req)
	var r Reply
	switch {
	case len(f.replies) == 0:
		r = Reply{Err: model.ErrNoOutput}
	case n < len(f.replies):
		r = f.replies[n]
	default:
		r = f.replies[len(f.replies)-1]
	}
	hook := f.Hook
	f.mu.Unlock()

	if hook != nil {
		hook(ctx, req)
	}
	return r.Response, r.Err
}

// Requests returns a copy of the requests received so far.
func (f *FakeModel) Requests() []model.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Request(nil), f.requests...)
}

// Recorder collects trace records synchronously.
type Recorder struct {
	mu      sync.Mutex
	records []telemetry.TraceRecord
}

func (r *Recorder) Record(_ context.Context, rec telemetry.TraceRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

// Records returns a copy of everything recorded.
func (r *Recorder) Records() []telemetry.TraceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]telemetry.TraceRecord(nil), r.records...)
}

// TestTraceStore creates a temporary SQLite trace store that is
// automatically cleaned up.
func TestTraceStore(t *testing.T) *tracestore.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "canvasai-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := tracestore.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
