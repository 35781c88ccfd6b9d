package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/canvasai/internal"
	"github.com/starford/canvasai/internal/canvas"
	"github.com/starford/canvasai/internal/pipeline"
	pkgconfig "github.com/starford/canvasai/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithVersion(version),
		internal.WithLogOutput(os.Stderr),
	)
}

// readBoard accepts either a JSON array of objects or {"objects": [...]}.
func readBoard(path string) ([]canvas.Object, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read board: %w", err)
	}
	var objs []canvas.Object
	if err := json.Unmarshal(data, &objs); err == nil {
		return objs, nil
	}
	var doc struct {
		Objects []canvas.Object `json:"objects"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse board %s: %w", path, err)
	}
	return doc.Objects, nil
}

func runOnce(ctx context.Context, cmd *cli.Command) error {
	text := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if text == "" {
		return errors.New("a command is required, e.g. canvasai run \"create a SWOT analysis\"")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	objs, err := readBoard(cmd.String("board"))
	if err != nil {
		return err
	}

	res, err := internal.RunOnce(ctx, pipeline.Command{
		Text:    text,
		BoardID: cmd.String("board-id"),
		UserID:  cmd.String("user"),
		Objects: objs,
	}, internal.WithConfig(cfg), internal.WithVersion(version), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if !res.Success {
		return cli.Exit("", 2)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "canvasai",
		Usage:  "Natural-language commands for a collaborative canvas",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:      "run",
				Usage:     "Run one command against a board file and print the result",
				ArgsUsage: "COMMAND",
				Action:    runOnce,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "board", Aliases: []string{"b"}, Usage: "JSON file with the board objects"},
					&cli.StringFlag{Name: "board-id", Value: "cli", Usage: "Board id stamped on new objects"},
					&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Value: "cli", Usage: "User id"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
