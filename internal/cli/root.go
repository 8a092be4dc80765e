// Package cli implements the ragsync command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"ragsync/internal/config"
	"ragsync/internal/contextutil"
)

// Replaced in tests.
var (
	loadConfig = config.Load
	newApp     = buildApp
)

// Execute runs the command line with the process arguments and returns the
// exit code. SIGINT and SIGTERM cancel the running command.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "ragsync",
		Short: "Incremental document ingestion and retrieval-augmented answers",
		Long: `ragsync loads PDF and Word documents from a data directory, splits them
into chunks with stable identifiers and adds the chunks the vector store does
not have yet. Questions are answered by a language model from the most
similar chunks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "log format: text, json (overrides LOG_FORMAT)")

	root.AddCommand(
		newIngestCmd(g),
		newQueryCmd(g),
		newStatusCmd(g),
		newServeCmd(g),
	)
	return root
}

// setup loads the configuration, applies flag overrides, installs the logger
// in the command context and builds the application.
func (g *globalFlags) setup(cmd *cobra.Command, override func(cfg *config.Config)) (*App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if g.logLevel != "" {
		level, err := config.ParseLogLevel(g.logLevel)
		if err != nil {
			return nil, err
		}
		cfg.LogLevel = level
	}
	if g.logFormat != "" {
		cfg.LogFormat = strings.ToLower(g.logFormat)
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(logger)
	logger.Debug("logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(contextutil.WithLogger(ctx, logger))

	return newApp(cfg)
}

// newLogger writes to w so that command output on stdout stays clean.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
