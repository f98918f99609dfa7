package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ingestion queue job counts",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	stats, err := newQueue().Stats(context.Background())
	if err != nil {
		return fmt.Errorf("queue stats: %w", err)
	}

	fmt.Println("Queue:")
	fmt.Printf("  queued:      %d\n", stats.Queued)
	fmt.Printf("  processing:  %d\n", stats.Processing)
	fmt.Printf("  completed:   %d\n", stats.Completed)
	fmt.Printf("  failed:      %d\n", stats.Failed)
	fmt.Printf("  dead_letter: %d\n", stats.DeadLetter)
	return nil
}
