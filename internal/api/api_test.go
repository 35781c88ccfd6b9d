package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/canvasai/internal/apperr"
	"github.com/starford/canvasai/internal/canvas"
	"github.com/starford/canvasai/internal/commandservice"
	"github.com/starford/canvasai/internal/model"
	"github.com/starford/canvasai/internal/pipeline"
	"github.com/starford/canvasai/internal/plan"
	"github.com/starford/canvasai/internal/telemetry"
	"github.com/starford/canvasai/internal/templates"
	"github.com/starford/canvasai/internal/testutil"
	"github.com/starford/canvasai/internal/tracestore"
)

type testEnv struct {
	router http.Handler
	model  *testutil.FakeModel
	traces *tracestore.DB
}

// newTestEnv wires a real pipeline, command service and trace store behind
// the router. An empty token means auth is disabled.
func newTestEnv(t *testing.T, token string, replies ...testutil.Reply) testEnv {
	t.Helper()
	return newTestEnvWithSSE(t, token, nil, replies...)
}

func newTestEnvWithSSE(t *testing.T, token string, sseHandler http.Handler, replies ...testutil.Reply) testEnv {
	t.Helper()

	db := testutil.TestTraceStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	disp := telemetry.NewDispatcher(logger, db)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		disp.Flush(ctx)
	})

	reg := templates.NewRegistry()
	fm := testutil.NewFakeModel(replies...)
	pr := pipeline.NewRouter(fm,
		pipeline.WithTemplates(templates.NewGenerator(reg)),
		pipeline.WithRecorder(disp),
		pipeline.WithLogger(logger),
	)
	svc, err := commandservice.New(pr, commandservice.WithLogger(logger))
	if err != nil {
		t.Fatalf("commandservice.New: %v", err)
	}

	h := NewHandler(svc, reg, db)
	return testEnv{
		router: NewRouter(h, token != "", token, sseHandler),
		model:  fm,
		traces: db,
	}
}

func do(t *testing.T, h http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func sticky(id string, x, y float64) canvas.Object {
	return canvas.Object{ID: id, X: x, Y: y, Width: 100, Height: 100, Shape: canvas.StickyNote{}}
}

func TestRunCommand_Template(t *testing.T) {
	env := newTestEnv(t, "")

	w := do(t, env.router, http.MethodPost, "/boards/b1/commands",
		map[string]any{"command": "Create a SWOT analysis", "userId": "u1"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res CommandResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !res.Success || !res.IsTemplate {
		t.Errorf("result = %+v, want successful template", res)
	}
	if len(res.Objects) < 4 {
		t.Errorf("objects = %d, want at least 4", len(res.Objects))
	}
	for _, o := range res.Objects {
		if o.BoardID != "b1" {
			t.Errorf("object %s board = %q, want b1", o.ID, o.BoardID)
		}
	}
	if n := len(env.model.Requests()); n != 0 {
		t.Errorf("model called %d times for a template", n)
	}
}

func TestRunCommand_ModelPlan(t *testing.T) {
	p := plan.Plan{
		Objects: []plan.Object{{Type: canvas.TypeStickyNote, X: 500, Y: 500, Content: "hi"}},
		Message: "Added a note",
	}
	env := newTestEnv(t, "", testutil.Reply{Response: model.Response{Plan: &p, Usage: model.Usage{InputTokens: 10, OutputTokens: 2}}})

	w := do(t, env.router, http.MethodPost, "/boards/b1/commands", map[string]any{
		"command":        "add a note saying hi",
		"userId":         "u1",
		"objects":        []canvas.Object{sticky("n1", 0, 0)},
		"viewportCenter": canvas.Point{X: 0, Y: 0},
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res CommandResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if !res.Success || res.Message != "Added a note" || res.TokensUsed != 12 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Objects) != 1 || res.Objects[0].Content != "hi" {
		t.Fatalf("objects = %+v", res.Objects)
	}
}

func TestRunCommand_FailureIsStillOK(t *testing.T) {
	env := newTestEnv(t, "", testutil.Reply{Err: model.ErrNoOutput})

	w := do(t, env.router, http.MethodPost, "/boards/b1/commands",
		map[string]any{"command": "do something clever", "userId": "u1"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res CommandResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Success {
		t.Error("expected failed result")
	}
	if res.Message != pipeline.MsgNoOutput {
		t.Errorf("message = %q", res.Message)
	}
	if res.Objects == nil {
		t.Error("objects must be an empty list, not null")
	}
}

func TestRunCommand_Validation(t *testing.T) {
	env := newTestEnv(t, "")

	tests := []struct {
		name   string
		body   any
		header map[string]string
	}{
		{"missing user", map[string]any{"command": "x"}, nil},
		{"unknown object type", map[string]any{"command": "x", "userId": "u", "objects": []map[string]any{{"id": "a", "type": "blob"}}}, nil},
		{"long idempotency key", map[string]any{"command": "x", "userId": "u"}, map[string]string{"Idempotency-Key": strings.Repeat("k", MaxIdempotencyKey+1)}},
		{"long command", map[string]any{"command": strings.Repeat("é", MaxCommandRunes+1), "userId": "u"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, env.router, http.MethodPost, "/boards/b1/commands", tt.body, tt.header)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400, body = %s", w.Code, w.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/boards/b1/commands", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad JSON = %d, want 400", w.Code)
	}
}

func TestRunCommand_IdempotencyKey(t *testing.T) {
	p := plan.Plan{Objects: []plan.Object{{Type: canvas.TypeStickyNote, X: 0, Y: 0, Content: "once"}}}
	env := newTestEnv(t, "", testutil.Reply{Response: model.Response{Plan: &p}})
	body := map[string]any{"command": "add one note", "userId": "u1"}
	hdr := map[string]string{"Idempotency-Key": "abc"}

	first := do(t, env.router, http.MethodPost, "/boards/b1/commands", body, hdr)
	second := do(t, env.router, http.MethodPost, "/boards/b1/commands", body, hdr)
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("status = %d/%d", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("replayed body differs:\n%s\n%s", first.Body.String(), second.Body.String())
	}
	if n := len(env.model.Requests()); n != 1 {
		t.Errorf("model called %d times, want 1", n)
	}
}

func TestArrange(t *testing.T) {
	env := newTestEnv(t, "")

	w := do(t, env.router, http.MethodPost, "/layout/grid", map[string]any{
		"objects": []canvas.Object{sticky("a", 900, 900), sticky("b", -300, 40)},
		"options": map[string]any{"grid": map[string]any{"columns": 2, "gap": 20}},
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res LayoutResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Objects) != 2 {
		t.Fatalf("objects = %d", len(res.Objects))
	}
	if res.Objects[0].X != 0 || res.Objects[1].X != 120 || res.Objects[1].Y != 0 {
		t.Errorf("positions = (%v,%v) (%v,%v)", res.Objects[0].X, res.Objects[0].Y, res.Objects[1].X, res.Objects[1].Y)
	}
	if res.BoundingBox != (canvas.Rect{X: 0, Y: 0, Width: 220, Height: 100}) {
		t.Errorf("bounding box = %+v", res.BoundingBox)
	}
}

func TestArrange_UnknownAlgorithm(t *testing.T) {
	env := newTestEnv(t, "")

	w := do(t, env.router, http.MethodPost, "/layout/spiral", map[string]any{"objects": []canvas.Object{}}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSuggestPorts(t *testing.T) {
	env := newTestEnv(t, "")

	w := do(t, env.router, http.MethodPost, "/ports", map[string]any{
		"from": sticky("a", 0, 0),
		"to":   sticky("b", 0, 400),
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res PortsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.FromPort != canvas.PortBottom || res.ToPort != canvas.PortTop {
		t.Errorf("ports = %s -> %s, want bottom -> top", res.FromPort, res.ToPort)
	}

	bad := sticky("c", 0, 0)
	bad.Width = 0
	w = do(t, env.router, http.MethodPost, "/ports", map[string]any{"from": bad, "to": sticky("d", 0, 0)}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero-size endpoint = %d, want 400", w.Code)
	}
}

func TestListTemplates(t *testing.T) {
	env := newTestEnv(t, "")

	w := do(t, env.router, http.MethodGet, "/templates", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res TemplatesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	names := map[string]bool{}
	for _, info := range res.Templates {
		names[info.Name] = true
	}
	for _, want := range []string{templates.SWOT, templates.Kanban, templates.Retrospective, templates.Brainstorm, templates.UserJourney} {
		if !names[want] {
			t.Errorf("missing template %q in %v", want, names)
		}
	}
}

func TestTraces(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	for i, board := range []string{"b1", "b2", "b1"} {
		rec := telemetry.TraceRecord{
			ID:        "t" + string(rune('a'+i)),
			BoardID:   board,
			UserID:    "u",
			Command:   "cmd",
			Success:   true,
			StartedAt: now.Add(time.Duration(i) * time.Second),
		}
		if err := env.traces.Record(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	w := do(t, env.router, http.MethodGet, "/traces?board=b1&limit=10", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var list TracesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Traces) != 2 || list.Traces[0].ID != "tc" || list.Traces[1].ID != "ta" {
		t.Errorf("traces = %+v", list.Traces)
	}

	w = do(t, env.router, http.MethodGet, "/traces/tb", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var one telemetry.TraceRecord
	_ = json.Unmarshal(w.Body.Bytes(), &one)
	if one.BoardID != "b2" {
		t.Errorf("board = %q", one.BoardID)
	}

	w = do(t, env.router, http.MethodGet, "/traces/nope", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing trace = %d, want 404", w.Code)
	}
}

func TestTraces_Disabled(t *testing.T) {
	h := NewHandler(nil, templates.NewRegistry(), nil)
	router := NewRouter(h, false, "", nil)

	w := do(t, router, http.MethodGet, "/traces", nil, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("decode: %w", apperr.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("trace: %w", apperr.ErrNotFound), http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{context.Canceled, 499},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeError(rec, "test", tt.err)
		if rec.Code != tt.want {
			t.Errorf("writeError(%v) = %d, want %d", tt.err, rec.Code, tt.want)
		}
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	env := newTestEnv(t, "secret123")

	w := do(t, env.router, http.MethodGet, "/templates", nil, map[string]string{"Authorization": "Bearer secret123"})
	if w.Code != http.StatusOK {
		t.Errorf("authed = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	env := newTestEnv(t, "secret123")

	w := do(t, env.router, http.MethodPost, "/boards/b1/commands", map[string]any{"command": "x", "userId": "u"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	env := newTestEnv(t, "secret123")

	w := do(t, env.router, http.MethodGet, "/templates", nil, map[string]string{"Authorization": "Bearer wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	env := newTestEnv(t, "")

	w := do(t, env.router, http.MethodGet, "/templates", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

func blockingSSE() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	env := newTestEnvWithSSE(t, "secret", blockingSSE())

	w := do(t, env.router, http.MethodGet, "/events", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	env := newTestEnvWithSSE(t, "tok", blockingSSE())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events?board=b1", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
