package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"ragsync/internal/config"
	"ragsync/internal/contextutil"
	"ragsync/internal/indexer"
	"ragsync/internal/watch"
)

func newIngestCmd(g *globalFlags) *cobra.Command {
	var (
		reset   bool
		dataDir string
		watchFS bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Add new document chunks to the vector store",
		Long: `Loads every PDF and Word document at the top level of the data directory,
splits them into chunks and inserts the chunks whose identifiers are not in
the vector store yet. Existing records are never rewritten.

With --reset the store is wiped first. With --watch the command keeps running
and ingests again whenever a document is added or modified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := g.setup(cmd, func(cfg *config.Config) {
				if dataDir != "" {
					cfg.DataPath = dataDir
				}
			})
			if err != nil {
				return err
			}

			if err := runIngest(cmd, app, reset); err != nil {
				return err
			}
			if !watchFS {
				return nil
			}
			return watchIngest(cmd, app)
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "wipe the vector store before ingesting")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory to read documents from (overrides DATA_PATH)")
	cmd.Flags().BoolVar(&watchFS, "watch", false, "keep running and ingest again when documents change")
	return cmd
}

// runIngest runs the pipeline once and prints its summary. Finding no
// documents is a warning, not a failure.
func runIngest(cmd *cobra.Command, app *App, reset bool) error {
	ctx := cmd.Context()

	cmd.Printf("Loading documents from %s\n", app.Loader.Dir())

	report, err := app.Pipeline.Run(ctx, indexer.RunOptions{
		Reset: reset,
		OnCleared: func() {
			cmd.Println("Database cleared.")
		},
	})
	if errors.Is(err, indexer.ErrNoInput) {
		printReport(cmd, report)
		cmd.Println("Warning: no documents found in the data folder.")
		return nil
	}
	if err != nil {
		return err
	}

	printReport(cmd, report)
	return nil
}

func printReport(cmd *cobra.Command, report *indexer.Report) {
	if report == nil {
		return
	}
	cmd.Printf("Loaded %d pages from %d documents.\n", report.Pages, report.Files)
	for _, loadErr := range report.LoadErrors {
		cmd.Printf("Warning: %v\n", loadErr)
	}

	if report.Sync == nil {
		return
	}
	cmd.Printf("Split documents into %d chunks.\n", report.Chunks)
	if st := report.Stats; st != nil {
		cmd.Printf("Chunk tokens: min %d, mean %.2f, p95 %d, max %d (index %s)\n",
			st.ChunkTokenStats.Min, st.ChunkTokenStats.Mean, st.ChunkTokenStats.P95, st.ChunkTokenStats.Max, st.IndexVersion)
	}
	cmd.Printf("Existing document count in DB: %d\n", report.Sync.Existing)
	if report.Sync.New == 0 {
		cmd.Println("No new documents to add.")
		return
	}
	cmd.Printf("Adding %d new chunks to the database...\n", report.Sync.New)
	for _, writeErr := range report.Sync.Failures {
		cmd.Printf("Warning: %v\n", writeErr)
	}
	cmd.Printf("Inserted %d chunks (%d failed).\n", report.Sync.Inserted, report.Sync.New-report.Sync.Inserted)
}

// watchIngest ingests again on every settled change until the command
// context is cancelled.
func watchIngest(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()
	logger := contextutil.LoggerFromContext(ctx)

	w := watch.New(app.Config.DataPath, app.Loader.Extensions(), func(ctx context.Context) {
		if err := runIngest(cmd, app, false); err != nil {
			logger.ErrorContext(ctx, "ingestion failed", "error", err)
		}
	})
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	cmd.Printf("Watching %s for changes. Press Ctrl+C to stop.\n", app.Config.DataPath)
	<-ctx.Done()
	return nil
}
