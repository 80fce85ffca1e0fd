package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/neox5/chainbox/internal/adapter"
	"github.com/neox5/chainbox/internal/app"
	"github.com/neox5/chainbox/internal/config"
	"github.com/neox5/chainbox/internal/metric"
	"github.com/neox5/chainbox/internal/upstream/blockinfo"
	"github.com/neox5/chainbox/internal/version"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:    "chainbox",
		Usage:   "Poll blockchain balances and contract state and expose them as metrics",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "path to configuration file",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "check",
				Usage:  "validate the configuration and build every source without polling",
				Action: check,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func serve(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	logger := setupLogger(cmd.Bool("debug"))

	slog.Info("starting chainbox", "version", version.String(), "config", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Setup graceful shutdown
	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(shutdownCtx, cfg, app.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Debug("--- Application Running ---")
	if err := application.Run(shutdownCtx); err != nil {
		slog.Error("exporter error", "error", err)
		return err
	}

	slog.Info("shutdown complete")
	return nil
}

func check(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	logger := setupLogger(cmd.Bool("debug"))

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store := metric.NewStore()
	registry, buildErr := adapter.BuildRegistry(ctx, cfg.EnabledSources(), store,
		adapter.DefaultClients(blockinfo.DefaultTimeout), logger)
	defer func() { _ = registry.Close() }()

	for _, name := range registry.Names() {
		a, _ := registry.Get(name)
		fmt.Printf("%s\n", name)
		for _, key := range a.Keys() {
			fmt.Printf("  %s\n", key)
		}
	}
	fmt.Printf("%d sources, %d keys\n", registry.Len(), store.Len())

	if buildErr != nil {
		return fmt.Errorf("configuration has invalid sources: %w", buildErr)
	}
	return nil
}
