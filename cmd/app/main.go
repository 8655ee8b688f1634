package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/secondbrain/internal"
	"github.com/starford/secondbrain/internal/engine"
	"github.com/starford/secondbrain/internal/journal"
	"github.com/starford/secondbrain/internal/mcpserver"
	pkgconfig "github.com/starford/secondbrain/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// oneShot builds the engine with an open journal for a single CLI operation.
func oneShot(cmd *cli.Command, fn func(ctx context.Context, cfg *internal.Config, eng *engine.Engine) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := internal.NewLogger(cfg)

	db, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("init journal: %w", err)
	}
	defer db.Close()

	eng, err := internal.BuildEngine(cfg, db, nil, logger)
	if err != nil {
		return err
	}
	return fn(context.Background(), cfg, eng)
}

func main() {
	cmd := &cli.Command{
		Name:   "secondbrain",
		Usage:  "Change-driven note processing engine: watches a Markdown vault and enriches notes with LLM analysis",
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
				Name:      "process",
				Usage:     "Run the processing pipeline once for a single note",
				ArgsUsage: "<note path or name>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					note := cmd.Args().First()
					if note == "" {
						return fmt.Errorf("note argument is required")
					}
					return oneShot(cmd, func(ctx context.Context, _ *internal.Config, eng *engine.Engine) error {
						outcome, err := eng.ProcessNote(ctx, note)
						if err != nil {
							return err
						}
						fmt.Printf("wrote %s\n", outcome.Target)
						return nil
					})
				},
			},
			{
				Name:      "daily",
				Usage:     "Create the daily note if absent and summarize it into its review section",
				ArgsUsage: "[YYYY-MM-DD]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					date := time.Now()
					if raw := cmd.Args().First(); raw != "" {
						parsed, err := time.Parse("2006-01-02", raw)
						if err != nil {
							return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
						}
						date = parsed
					}
					return oneShot(cmd, func(ctx context.Context, _ *internal.Config, eng *engine.Engine) error {
						outcome, err := eng.DailyReview(ctx, date)
						if err != nil {
							return err
						}
						fmt.Printf("updated %s\n", outcome.Target)
						return nil
					})
				},
			},
			{
				Name:  "mcp",
				Usage: "Serve MCP tools over stdio",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return oneShot(cmd, func(_ context.Context, _ *internal.Config, eng *engine.Engine) error {
						return mcpserver.New(eng).ServeStdio()
					})
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
