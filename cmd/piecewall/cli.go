package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/AO-5002/piecewall/internal/config"
	"github.com/AO-5002/piecewall/internal/db"
	"github.com/AO-5002/piecewall/internal/errors"
	"github.com/AO-5002/piecewall/internal/hub"
	"github.com/AO-5002/piecewall/internal/mcp"
	"github.com/AO-5002/piecewall/internal/ops"
	"github.com/AO-5002/piecewall/internal/summarize"
	"github.com/AO-5002/piecewall/internal/web"
)

// newService wires a Service to storage with the configured summarizer. A
// summarizer that cannot be built (e.g. no API key) only fails consolidation.
func newService(storage ops.Storage, cfg *config.Config, logger *slog.Logger, opts ...ops.Option) *ops.Service {
	sum, err := summarize.New(cfg)
	if err != nil {
		logger.Debug("summarizer unavailable", "error", err)
		sum = summarize.Func(func(context.Context, []string) (string, error) {
			return "", err
		})
	}
	base := []ops.Option{ops.WithSummarizer(sum), ops.WithLogger(logger)}
	return ops.New(storage, cfg, append(base, opts...)...)
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(database *sql.DB, cfg *config.Config) *cli.App {
	logger := slog.Default()

	var svc *ops.Service
	if database != nil {
		svc = newService(db.NewRooms(database), cfg, logger)
	}

	app := &cli.App{
		Name:    "piecewall",
		Usage:   "Collaborative sticky-note wall",
		Version: Version,
		Commands: []*cli.Command{
			addCmd(svc),
			updateCmd(svc),
			deleteCmd(svc),
			duplicateCmd(svc),
			recolorCmd(svc),
			showCmd(svc),
			roomsCmd(svc),
			clearCmd(svc),
			seedCmd(svc),
			consolidateCmd(svc),
			exportCmd(svc),
			importCmd(svc),
			serveCmd(database, cfg, logger),
			mcpCmd(svc),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func roomFlag() cli.Flag {
	return &cli.StringFlag{Name: "room", Aliases: []string{"r"}, Value: "default", Usage: "Room name"}
}

// pieceText returns --text, or stdin when the flag is absent and input is piped.
func pieceText(c *cli.Context) (string, error) {
	if c.IsSet("text") || !stdinHasData() {
		return c.String("text"), nil
	}
	text, err := readStdin()
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return text, nil
}

// addCmd creates the add command.
func addCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add a piece to a room (text from --text or stdin)",
		Flags: []cli.Flag{
			roomFlag(),
			&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Usage: "Piece text"},
			&cli.StringFlag{Name: "color", Aliases: []string{"c"}, Usage: "Hex color (random palette color if omitted)"},
		},
		Action: func(c *cli.Context) error {
			text, err := pieceText(c)
			if err != nil {
				return outputError(err)
			}

			output, err := svc.Add(c.Context, ops.AddInput{
				Room:  c.String("room"),
				Text:  text,
				Color: c.String("color"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// updateCmd creates the update command.
func updateCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Replace a piece's text (from --text or stdin)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			roomFlag(),
			&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Usage: "New text"},
		},
		Action: func(c *cli.Context) error {
			text, err := pieceText(c)
			if err != nil {
				return outputError(err)
			}

			output, err := svc.UpdateText(c.Context, ops.UpdateTextInput{
				Room: c.String("room"),
				ID:   c.Args().First(),
				Text: text,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Remove a piece",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{roomFlag()},
		Action: func(c *cli.Context) error {
			output, err := svc.Delete(c.Context, ops.DeleteInput{
				Room: c.String("room"),
				ID:   c.Args().First(),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// duplicateCmd creates the duplicate command.
func duplicateCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "duplicate",
		Usage:     "Append a copy of a piece",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{roomFlag()},
		Action: func(c *cli.Context) error {
			output, err := svc.Duplicate(c.Context, ops.DuplicateInput{
				Room: c.String("room"),
				ID:   c.Args().First(),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// recolorCmd creates the recolor command.
func recolorCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:      "recolor",
		Usage:     "Change a piece's color",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			roomFlag(),
			&cli.StringFlag{Name: "color", Aliases: []string{"c"}, Required: true, Usage: "Hex color"},
		},
		Action: func(c *cli.Context) error {
			output, err := svc.Recolor(c.Context, ops.RecolorInput{
				Room:  c.String("room"),
				ID:    c.Args().First(),
				Color: c.String("color"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print a room's pieces and layout",
		Flags: []cli.Flag{roomFlag()},
		Action: func(c *cli.Context) error {
			output, err := svc.Get(c.Context, ops.GetInput{Room: c.String("room")})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// roomsCmd creates the rooms command.
func roomsCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "rooms",
		Usage: "List rooms, most recently updated first",
		Action: func(c *cli.Context) error {
			output, err := svc.ListRooms(c.Context)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// clearCmd creates the clear command.
func clearCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Remove every piece from a room",
		Flags: []cli.Flag{roomFlag()},
		Action: func(c *cli.Context) error {
			output, err := svc.Clear(c.Context, ops.ClearInput{Room: c.String("room")})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// seedCmd creates the seed command.
func seedCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Fill an empty room with the starter pieces",
		Flags: []cli.Flag{roomFlag()},
		Action: func(c *cli.Context) error {
			output, err := svc.Seed(c.Context, ops.SeedInput{Room: c.String("room")})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// consolidateCmd creates the consolidate command.
func consolidateCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "consolidate",
		Usage: "Summarize every regular piece into one consolidated piece",
		Flags: []cli.Flag{roomFlag()},
		Action: func(c *cli.Context) error {
			output, err := svc.Consolidate(c.Context, ops.ConsolidateInput{Room: c.String("room")})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a room to a JSON or YAML file",
		Flags: []cli.Flag{
			roomFlag(),
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.piecewall/exports/<room>-<timestamp>.json)"},
		},
		Action: func(c *cli.Context) error {
			output, err := svc.Export(c.Context, ops.ExportInput{
				Room: c.String("room"),
				Path: c.String("path"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a room from a JSON or YAML export",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "room", Aliases: []string{"r"}, Usage: "Target room (default: the room in the file)"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "replace", Usage: "Import mode: replace|append"},
		},
		Action: func(c *cli.Context) error {
			output, err := svc.Import(c.Context, ops.ImportInput{
				Path: c.String("path"),
				Room: c.String("room"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(database *sql.DB, cfg *config.Config, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web UI with live updates",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8080, Usage: "Listen port"},
			&cli.BoolFlag{Name: "ephemeral", Usage: "Keep rooms in memory only"},
		},
		Action: func(c *cli.Context) error {
			var storage ops.Storage = db.NewRooms(database)
			if c.Bool("ephemeral") {
				storage = db.NewMemory()
			}

			events := hub.New(hub.WithLogger(logger))
			svc := newService(storage, cfg, logger, ops.WithNotifier(events))

			srv, err := web.NewServer(svc, events, web.Options{
				Version: Version,
				Bind:    c.String("bind"),
				Port:    c.Int("port"),
				Logger:  logger,
			})
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return events.Run(ctx) })
			g.Go(func() error { return web.Run(ctx, srv, logger) })
			if err := g.Wait(); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(svc *ops.Service) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			if err := mcp.Run(svc, Version); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	e := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", e.Code, e.Message), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
