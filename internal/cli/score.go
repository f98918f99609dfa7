package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/musicofhel/link-forge-sub001/internal/queue"
	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score <url> <value>",
	Short: "Set the forge score on a collected link",
	Long: `Set the usefulness signal on a link, in the range 0 to 1.

The forge score contributes 30% of the final ranking in hybrid search.

Examples:
  linkforge score https://example.com/article 0.8`,
	Args: cobra.ExactArgs(2),
	RunE: runScore,
}

func runScore(cmd *cobra.Command, args []string) error {
	payload, err := queue.URLPayload(args[0])
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	score, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid score: %w", err)
	}
	if score < 0 || score > 1 {
		return fmt.Errorf("score must be between 0 and 1, got %v", score)
	}

	ctx := context.Background()
	link, err := dbClient.GetLinkByURL(ctx, payload.Key)
	if err != nil {
		return fmt.Errorf("lookup link: %w", err)
	}
	if link == nil {
		return fmt.Errorf("no link found for %s", payload.Key)
	}

	if err := dbClient.SetForgeScore(ctx, payload.Key, score); err != nil {
		return fmt.Errorf("set score: %w", err)
	}

	fmt.Printf("Set forge score %.2f on %s\n", score, payload.Key)
	return nil
}
