package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"ragsync/internal/indexer"
)

func newStatusCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the vector store location, record count and indexed sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := g.setup(cmd, nil)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			cmd.Printf("Backend:  %s\n", app.Config.StoreBackend)
			cmd.Printf("Location: %s\n", app.Opener.Location())
			cmd.Printf("Data:     %s\n", app.Config.DataPath)

			store, err := app.Opener.Open(ctx)
			if err != nil {
				return fmt.Errorf("failed to open store at %s: %w", app.Opener.Location(), err)
			}
			defer func() {
				_ = store.Close()
			}()

			count, err := store.Count(ctx)
			if err != nil {
				return fmt.Errorf("failed to count records: %w", err)
			}
			cmd.Printf("Records:  %d\n", count)

			ids, err := store.ListIDs(ctx)
			if err != nil {
				return fmt.Errorf("failed to list records: %w", err)
			}
			bySource := indexer.CountBySource(ids)
			sources := make([]string, 0, len(bySource))
			for source := range bySource {
				sources = append(sources, source)
			}
			sort.Strings(sources)

			cmd.Printf("Sources:  %d\n", len(sources))
			for _, source := range sources {
				name := source
				if name == "" {
					name = "(unrecognised ids)"
				}
				cmd.Printf("  %s: %d\n", name, bySource[source])
			}
			return nil
		},
	}
}
