package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/canvasai/internal/canvas"
	"github.com/starford/canvasai/internal/commandservice"
	"github.com/starford/canvasai/internal/layout"
	"github.com/starford/canvasai/internal/model"
	"github.com/starford/canvasai/internal/pipeline"
	"github.com/starford/canvasai/internal/prompt"
	"github.com/starford/canvasai/internal/templates"
	"github.com/starford/canvasai/internal/testutil"
	"github.com/starford/canvasai/internal/tools"
)

func testServer(t *testing.T, replies ...testutil.Reply) (*Server, *testutil.FakeModel) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := templates.NewRegistry()
	fm := testutil.NewFakeModel(replies...)
	router := pipeline.NewRouter(fm,
		pipeline.WithTemplates(templates.NewGenerator(reg)),
		pipeline.WithLogger(logger),
	)
	svc, err := commandservice.New(router, commandservice.WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	return New(svc, reg, "test"), fm
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case ToolRunCommand:
		result, err = srv.runCommand(ctx, req)
	case ToolArrange:
		result, err = srv.arrangeObjects(ctx, req)
	case ToolSuggestPorts:
		result, err = srv.suggestPorts(ctx, req)
	case ToolListTemplates:
		result, err = srv.listTemplates(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// object builds the loosely typed form a client sends.
func object(id string, x, y float64) map[string]any {
	return map[string]any{"id": id, "type": "sticky_note", "x": x, "y": y, "width": 100, "height": 100}
}

func TestRunCommand_Template(t *testing.T) {
	srv, fm := testServer(t)

	r := callTool(t, srv, ToolRunCommand, map[string]any{
		"board_id":   "b1",
		"user_id":    "u1",
		"command":    "set up a kanban board",
		"viewport_x": 0.0,
		"viewport_y": 0.0,
	})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	var res pipeline.Result
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if !res.IsTemplate || len(res.Objects) == 0 {
		t.Fatalf("result = %+v", res)
	}
	if c := res.Objects[0].Center(); c != (canvas.Point{}) {
		t.Errorf("frame center = %+v, want origin", c)
	}
	if len(fm.Requests()) != 0 {
		t.Error("template should not reach the model")
	}
}

func TestRunCommand_PassesBoardToModel(t *testing.T) {
	call := tools.Call{Name: tools.ChangeColor, Args: map[string]any{"objectId": "n1", "color": "green"}}
	srv, fm := testServer(t, testutil.Reply{Response: model.Response{ToolCalls: []tools.Call{call}}})

	r := callTool(t, srv, ToolRunCommand, map[string]any{
		"board_id":     "b1",
		"user_id":      "u1",
		"command":      "make the selected note green",
		"objects":      []any{object("n1", 0, 0)},
		"selected_ids": []any{"n1"},
	})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	reqs := fm.Requests()
	if len(reqs) != 1 || !strings.Contains(reqs[0].SystemPrompt, "[n1]") {
		t.Fatalf("model requests = %+v", reqs)
	}
	var res pipeline.Result
	_ = json.Unmarshal([]byte(resultText(r)), &res)
	if len(res.Objects) != 1 || res.Objects[0].Version != 1 {
		t.Errorf("objects = %+v", res.Objects)
	}
}

func TestRunCommand_Failure(t *testing.T) {
	srv, _ := testServer(t, testutil.Reply{Err: model.ErrNoOutput})

	r := callTool(t, srv, ToolRunCommand, map[string]any{"board_id": "b", "user_id": "u", "command": "do a thing"})
	if !r.IsError {
		t.Fatal("expected error result")
	}
	if resultText(r) != pipeline.MsgNoOutput {
		t.Errorf("text = %q", resultText(r))
	}
}

func TestRunCommand_MissingArgs(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, ToolRunCommand, map[string]any{"board_id": "b", "command": "x"})
	if !r.IsError {
		t.Error("expected error for missing user_id")
	}
	r = callTool(t, srv, ToolRunCommand, map[string]any{"board_id": "b", "user_id": "u", "command": "x", "objects": "not json"})
	if !r.IsError {
		t.Error("expected error for malformed objects")
	}
}

func TestArrangeObjects(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, ToolArrange, map[string]any{
		"algorithm": "stack",
		"objects":   []any{object("a", 500, 500), object("b", -40, 7)},
		"options":   map[string]any{"stack": map[string]any{"direction": "vertical", "gap": 10}},
	})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	var res layout.Result
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Objects) != 2 {
		t.Fatalf("objects = %d", len(res.Objects))
	}
	if gap := res.Objects[1].Y - res.Objects[0].Bounds().Bottom(); gap != 10 {
		t.Errorf("gap = %v, want 10", gap)
	}

	r = callTool(t, srv, ToolArrange, map[string]any{"algorithm": "spiral", "objects": []any{}})
	if !r.IsError {
		t.Error("expected error for unknown algorithm")
	}
}

func TestSuggestPorts(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, ToolSuggestPorts, map[string]any{
		"from": object("a", 400, 0),
		"to":   object("b", 0, 0),
	})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	var ports map[string]canvas.Port
	_ = json.Unmarshal([]byte(resultText(r)), &ports)
	if ports["fromPort"] != canvas.PortLeft || ports["toPort"] != canvas.PortRight {
		t.Errorf("ports = %v", ports)
	}

	r = callTool(t, srv, ToolSuggestPorts, map[string]any{"from": object("a", 0, 0)})
	if !r.IsError {
		t.Error("expected error without target")
	}
}

func TestListTemplates(t *testing.T) {
	srv, _ := testServer(t)

	text := resultText(callTool(t, srv, ToolListTemplates, map[string]any{}))
	for _, name := range []string{templates.SWOT, templates.Retrospective} {
		if !strings.Contains(text, `"`+name+`"`) {
			t.Errorf("template %q missing from %s", name, text)
		}
	}
}

func TestPromptContractResource(t *testing.T) {
	srv, _ := testServer(t)

	contents, err := srv.readPromptContract(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("unexpected content type %T", contents[0])
	}
	if tc.URI != PromptContractURI {
		t.Errorf("uri = %q", tc.URI)
	}
	for _, want := range []string{prompt.HeaderRole, prompt.HeaderPalette, tools.CreateConnector} {
		if !strings.Contains(tc.Text, want) {
			t.Errorf("contract missing %q", want)
		}
	}
	if strings.Contains(tc.Text, prompt.HeaderBoardState) {
		t.Error("contract must not contain board state")
	}
}
