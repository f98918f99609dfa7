package cli

import (
	"context"
	"fmt"

	"github.com/musicofhel/link-forge-sub001/internal/service"
	"github.com/spf13/cobra"
)

var chunksLimit int

var chunksCmd = &cobra.Command{
	Use:   "chunks <query>",
	Short: "Passage-level vector search",
	Long: `Search document chunks by vector similarity.

Returns matching passages with their parent link's URL, title, and
forge score. Unlike 'search', chunk results are pure vector hits with
no keyword blending.

Examples:
  linkforge chunks "connection pool sizing"`,
	Args: cobra.ExactArgs(1),
	RunE: runChunks,
}

func init() {
	chunksCmd.Flags().IntVarP(&chunksLimit, "limit", "n", 10, "max results")
}

func runChunks(cmd *cobra.Command, args []string) error {
	emb, err := getEmbedder()
	if err != nil {
		return err
	}

	search := service.NewSearch(dbClient, emb, nil)
	results, err := search.ChunkSearch(context.Background(), args[0], nil, chunksLimit)
	if err != nil {
		return fmt.Errorf("chunk search: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d passages:\n\n", len(results))
	for i, result := range results {
		fmt.Printf("%d. %s (%.3f)\n", i+1, result.Title, result.Score)
		fmt.Printf("   %s\n", result.URL)
		content := result.Content
		if len(content) > 200 {
			content = content[:200] + "..."
		}
		fmt.Printf("   %s\n\n", content)
	}

	return nil
}
