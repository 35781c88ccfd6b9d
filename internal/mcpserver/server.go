// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the canvas command pipeline via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/canvasai/internal/canvas"
	"github.com/starford/canvasai/internal/layout"
	"github.com/starford/canvasai/internal/pipeline"
	"github.com/starford/canvasai/internal/templates"
)

// Tool names.
const (
	ToolRunCommand    = "run_canvas_command"
	ToolArrange       = "arrange_objects"
	ToolSuggestPorts  = "suggest_ports"
	ToolListTemplates = "list_templates"
)

// CommandSubmitter runs a command through the per-user queue.
type CommandSubmitter interface {
	Submit(ctx context.Context, cmd pipeline.Command, idempotencyKey string) (pipeline.Result, error)
}

// TemplateLister lists registered templates.
type TemplateLister interface {
	List() []templates.Info
}

// Server wraps the MCP server with the canvas tools.
type Server struct {
	mcp       *server.MCPServer
	commands  CommandSubmitter
	templates TemplateLister
}

// New creates a new MCP server with all canvas tools registered.
func New(commands CommandSubmitter, tmpl TemplateLister, version string) *Server {
	s := &Server{commands: commands, templates: tmpl}

	s.mcp = server.NewMCPServer(
		"CanvasAI",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool(ToolRunCommand,
		mcp.WithDescription("Run a natural-language command against a board snapshot. "+
			"Returns the objects to upsert and the ids to delete. "+
			"Read the canvas://prompt-contract resource to see what the assistant is told."),
		mcp.WithString("board_id", mcp.Required(), mcp.Description("Board id")),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User issuing the command")),
		mcp.WithString("command", mcp.Required(), mcp.Description("The command text")),
		mcp.WithArray("objects", mcp.Description("Current board objects"), mcp.Items(map[string]any{"type": "object"})),
		mcp.WithArray("selected_ids", mcp.Description("Ids of selected objects"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithNumber("viewport_x", mcp.Description("Viewport center x")),
		mcp.WithNumber("viewport_y", mcp.Description("Viewport center y")),
	), s.runCommand)

	s.mcp.AddTool(mcp.NewTool(ToolArrange,
		mcp.WithDescription("Arrange objects with a layout algorithm. Connectors are carried through unchanged."),
		mcp.WithString("algorithm", mcp.Required(),
			mcp.Enum(string(layout.AlgorithmHierarchical), string(layout.AlgorithmGrid), string(layout.AlgorithmStack), string(layout.AlgorithmRadial)),
			mcp.Description("Layout algorithm")),
		mcp.WithArray("objects", mcp.Required(), mcp.Description("Objects to arrange"), mcp.Items(map[string]any{"type": "object"})),
		mcp.WithObject("options", mcp.Description("Per-algorithm options keyed by algorithm name")),
	), s.arrangeObjects)

	s.mcp.AddTool(mcp.NewTool(ToolSuggestPorts,
		mcp.WithDescription("Suggest which sides a connector between two objects should attach to."),
		mcp.WithObject("from", mcp.Required(), mcp.Description("Source object")),
		mcp.WithObject("to", mcp.Required(), mcp.Description("Target object")),
	), s.suggestPorts)

	s.mcp.AddTool(mcp.NewTool(ToolListTemplates,
		mcp.WithDescription("List the board templates that answer commands without the model."),
	), s.listTemplates)

	s.mcp.AddResource(
		mcp.NewResource(PromptContractURI, "Prompt Contract",
			mcp.WithResourceDescription("Fixed instructions given to the model before the board state."),
			mcp.WithMIMEType("text/plain"),
		),
		s.readPromptContract,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

// decodeArg re-encodes a loosely typed argument into v. A string argument
// is taken as JSON text.
func decodeArg(args map[string]any, key string, v any) error {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil
	}
	var data []byte
	if s, isString := raw.(string); isString {
		data = []byte(s)
	} else {
		var err error
		if data, err = json.Marshal(raw); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func (s *Server) runCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	boardID, err := req.RequireString("board_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	userID, err := req.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cmd := pipeline.Command{Text: text, BoardID: boardID, UserID: userID}
	args := req.GetArguments()
	if err := decodeArg(args, "objects", &cmd.Objects); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := decodeArg(args, "selected_ids", &cmd.SelectedIDs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	x, hasX := args["viewport_x"].(float64)
	y, hasY := args["viewport_y"].(float64)
	if hasX && hasY {
		cmd.ViewportCenter = &canvas.Point{X: x, Y: y}
	}

	res, err := s.commands.Submit(ctx, cmd, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !res.Success {
		return mcp.NewToolResultError(res.Message), nil
	}
	return jsonResult(res)
}

func (s *Server) arrangeObjects(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	alg, err := req.RequireString("algorithm")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := req.GetArguments()
	var objs []canvas.Object
	if err := decodeArg(args, "objects", &objs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var opts layout.Options
	if err := decodeArg(args, "options", &opts); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := layout.Arrange(layout.Algorithm(strings.ToLower(alg)), objs, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) suggestPorts(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	var from, to canvas.Object
	if err := decodeArg(args, "from", &from); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := decodeArg(args, "to", &to); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if from.Shape == nil || to.Shape == nil {
		return mcp.NewToolResultError("from and to objects are required"), nil
	}
	fp, tp := layout.SuggestPorts(from, to)
	return jsonResult(map[string]canvas.Port{"fromPort": fp, "toPort": tp})
}

func (s *Server) listTemplates(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.templates.List())
}

func (s *Server) readPromptContract(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      PromptContractURI,
			MIMEType: "text/plain",
			Text:     PromptContract(),
		},
	}, nil
}
