package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	nethttp "net/http"
	"time"

	"github.com/spf13/cobra"

	"ragsync/internal/contextutil"
	"ragsync/internal/http"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the question and ingestion HTTP API",
		Long: `Starts the HTTP API on API_PORT:

  POST /api/v1/ask      answer a question (add ?stream=true for server-sent events)
  POST /api/v1/index    start an ingestion in the background (add ?reset=true to wipe first)
  GET  /api/health      store reachability and record count`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := g.setup(cmd, nil)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := contextutil.LoggerFromContext(ctx)

			// Fail fast when the embedding service is down or returns the wrong size.
			vec, err := app.Embedder.EmbedQuery(ctx, "test")
			if err != nil {
				return fmt.Errorf("failed to validate embedding client: %w", err)
			}
			logger.InfoContext(ctx, "embedding client validated", "vector_size", len(vec))

			router := http.NewRouter(&http.Deps{
				Engine:  app.Engine,
				Indexer: app.Pipeline,
				Opener:  app.Opener,
				Logger:  logger,
			})

			ln, err := net.Listen("tcp", ":"+app.Config.APIPort)
			if err != nil {
				return fmt.Errorf("failed to listen on port %s: %w", app.Config.APIPort, err)
			}
			srv := &nethttp.Server{
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Serve(ln)
			}()
			logger.InfoContext(ctx, "API server listening", "addr", ln.Addr().String(), "store", app.Opener.Location())
			cmd.Printf("Listening on %s\n", ln.Addr().String())

			select {
			case err := <-errCh:
				return fmt.Errorf("API server failed: %w", err)
			case <-ctx.Done():
			}

			logger.InfoContext(ctx, "shutting down API server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
				return fmt.Errorf("failed to shut down API server: %w", err)
			}
			router.Wait()
			return nil
		},
	}
}
