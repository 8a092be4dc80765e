package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ragsync/internal/rag"
)

func newQueryCmd(g *globalFlags) *cobra.Command {
	var (
		k      int
		stream bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "query [question...]",
		Short: "Answer a question from the ingested documents",
		Long: `Embeds the question, retrieves the most similar chunks from the vector
store and asks the language model to answer from them. The answer is printed
with the cited chunks and their sources.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := g.setup(cmd, nil)
			if err != nil {
				return err
			}

			req := rag.AskRequest{
				Question: strings.Join(args, " "),
				K:        k,
			}
			ctx := cmd.Context()

			if asJSON {
				resp, err := app.Engine.Ask(ctx, req)
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(resp, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal response: %w", err)
				}
				cmd.Println(string(data))
				return nil
			}

			cmd.Println()
			cmd.Println("--- RAG Response ---")
			if stream {
				cmd.Print("Response: ")
				resp, err := app.Engine.AskStream(ctx, req, func(token string) error {
					cmd.Print(token)
					return nil
				})
				cmd.Println()
				if err != nil {
					return err
				}
				cmd.Println()
				printSources(cmd, resp.References)
				return nil
			}

			resp, err := app.Engine.Ask(ctx, req)
			if err != nil {
				return err
			}
			cmd.Printf("Response: %s\n\n", resp.Answer)
			printSources(cmd, resp.References)
			return nil
		},
	}

	cmd.Flags().IntVarP(&k, "k", "k", 0, fmt.Sprintf("number of chunks to retrieve, at most %d (default QUERY_K)", rag.MaxK))
	cmd.Flags().BoolVar(&stream, "stream", false, "print the answer as it is generated")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the answer and references as JSON")
	cmd.MarkFlagsMutuallyExclusive("stream", "json")
	return cmd
}

func printSources(cmd *cobra.Command, refs []rag.Reference) {
	cmd.Println("--- Cited Text and Sources ---")
	for i, ref := range refs {
		cmd.Println()
		cmd.Printf("Document Chunk #%d (Source: %s, Page: %d, ID: %s)\n", i+1, ref.Source, ref.Page, ref.ChunkID)
		cmd.Printf("Content:\n%s\n", strings.TrimSpace(ref.Text))
	}
	cmd.Println("-----------------------------")
}
