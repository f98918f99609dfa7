package cli

import (
	"context"
	"fmt"

	"github.com/musicofhel/link-forge-sub001/internal/service"
	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Hybrid search over collected links",
	Long: `Search collected links using hybrid vector + keyword retrieval.

Vector similarity and keyword matches are merged by URL and re-ranked
by blending query relevance (70%) with the stored forge score (30%).

Examples:
  linkforge search "rate limiting"
  linkforge search "kubernetes operators" -n 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "max results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	emb, err := getEmbedder()
	if err != nil {
		return err
	}

	search := service.NewSearch(dbClient, emb, nil)
	results, err := search.HybridSearch(context.Background(), args[0], nil, searchLimit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(results))
	for i, result := range results {
		fmt.Printf("%d. %s (%.3f) [%s]\n", i+1, result.Link.Title, result.Score, result.MatchType)
		fmt.Printf("   %s\n", result.Link.URL)
		if result.Link.Description != "" {
			fmt.Printf("   %s\n", result.Link.Description)
		}
		if verbose {
			if result.CategoryName != nil {
				fmt.Printf("   Category: %s\n", *result.CategoryName)
			}
			if len(result.Tags) > 0 {
				fmt.Printf("   Tags: %v\n", result.Tags)
			}
		}
		fmt.Println()
	}

	return nil
}
