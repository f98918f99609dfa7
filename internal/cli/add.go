package cli

import (
	"context"
	"fmt"

	"github.com/musicofhel/link-forge-sub001/internal/queue"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Enqueue a link for ingestion",
	Long: `Enqueue a shared link into the ingestion queue.

The URL is canonicalized (lowercased scheme/host, fragment dropped,
trailing slash trimmed) before deduplication: if the same link is
already queued or processing, no new job is created.

Examples:
  linkforge add https://example.com/article
  linkforge add "https://blog.example.com/post?id=42"`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	payload, err := queue.URLPayload(args[0])
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	jobID, err := newQueue().Enqueue(context.Background(), payload)
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}

	fmt.Printf("Enqueued %s\n", payload.Key)
	fmt.Printf("Job: %s\n", jobID)
	return nil
}
