// Command ego executes a YAML run file and prints the outcome as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/copyleftdev/egoserver/internal/config"
	"github.com/copyleftdev/egoserver/internal/logging"
	"github.com/copyleftdev/egoserver/internal/runner"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ego: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("ego", flag.ContinueOnError)
	file := fs.String("f", "", "path to the YAML run file")
	level := fs.String("log-level", "warn", "log level (debug, info, warn, error)")
	format := fs.String("log-format", "console", "log format (json, console)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		fs.Usage()
		return fmt.Errorf("a run file is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.NewLogger(&logging.Config{Level: *level, Format: *format, Output: "stderr"})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	spec, err := config.LoadRunFile(*file, cfg.EGO)
	if err != nil {
		return err
	}

	ego, err := runner.Build(spec, logger)
	if err != nil {
		return err
	}
	ego.SetProgressCallback(func(percent float64) {
		logger.Debug("Progress", zap.Float64("percent", percent))
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := ego.Run(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(runner.NewOutcome(result))
}
