package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"complexome/internal/annotation"
	"complexome/internal/config"
	"complexome/internal/infrastructure"
	"complexome/internal/operations"
	"complexome/internal/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses the arguments, runs the pipeline once and returns the exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(config.AppName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	settingsPath := fs.String("settings", "", "pipeline settings file (.json, .yaml or .yml)")
	tablePath := fs.String("table", "", "protein groups file (.txt or .tsv)")
	showVersion := fs.Bool("version", false, "print the version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintf(stdout, "%s %s\n", config.AppName, config.AppVersion)
		return 0
	}

	if err := validation.NewFileValidator(nil).ValidateInputs(*settingsPath, *tablePath); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fs.Usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to load configuration: %v\n", err)
		return 1
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize logger: %v\n", err)
		return 1
	}
	defer infrastructure.CloseLogFile()

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		logger.Error("otel_initialization_failed", slog.String("error", err.Error()))
		providers = infrastructure.NoopProviders(logger)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Error("otel_shutdown_failed", slog.String("error", err.Error()))
		}
	}()

	ctx = infrastructure.EnsureRunID(ctx)
	reporter := operations.NewReporter(
		func(message string) {
			fmt.Fprintln(stdout, message)
		},
		func(message string, err error) {
			if err == nil {
				fmt.Fprintln(stderr, message)
				return
			}
			fmt.Fprintf(stderr, "%s (%v)\n", message, err)
		},
		logger,
	)

	logger.InfoContext(ctx, "pipeline_requested",
		slog.String("version", config.AppVersion),
		slog.String("settings_path", *settingsPath),
		slog.String("table_path", *tablePath))

	err = operations.RunPipeline(ctx, operations.Dependencies{
		Logger:    logger,
		Providers: providers,
		Client:    annotation.NewClient(cfg.HTTP, logger),
		Reporter:  reporter,
		Config:    operations.NewConfigFromSettings(cfg.Pipeline),
	}, *settingsPath, *tablePath)
	if err != nil {
		if operations.GetErrorType(err) == operations.ErrorTypeCancellation {
			fmt.Fprintln(stderr, "The run was cancelled")
			return 130
		}
		return 1
	}

	statuses, errs := reporter.Counts()
	logger.InfoContext(ctx, "pipeline_finished",
		slog.Int("status_messages", statuses),
		slog.Int("error_messages", errs))
	return 0
}
