package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/musicofhel/link-forge-sub001/internal/queue"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Enqueue a Markdown file for ingestion",
	Long: `Enqueue a local Markdown file into the ingestion queue.

The dedup key is the SHA-256 of the file content, so re-ingesting an
unchanged file does not create a second job. YAML frontmatter fields
(title, description, category, tags) are picked up during processing.

Examples:
  linkforge ingest notes/kubernetes.md`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	payload, err := queue.FilePayload(path, content)
	if err != nil {
		return fmt.Errorf("invalid file: %w", err)
	}

	jobID, err := newQueue().Enqueue(context.Background(), payload)
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}

	fmt.Printf("Enqueued %s\n", path)
	fmt.Printf("Job: %s\n", jobID)
	return nil
}
