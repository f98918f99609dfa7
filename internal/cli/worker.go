package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/musicofhel/link-forge-sub001/internal/processor"
	"github.com/musicofhel/link-forge-sub001/internal/service"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the ingestion worker loop",
	Long: `Run a worker that claims queued jobs, extracts and embeds their
content, and writes the results to the graph store.

Multiple workers may run concurrently against the same database; the
lease-based claim protocol hands each job to exactly one of them.
Stops cleanly on SIGINT/SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	emb, err := getEmbedder()
	if err != nil {
		return err
	}

	workerID := workerIdentity()
	worker := service.NewWorker(
		workerID,
		newQueue(),
		dbClient,
		processor.New(cfg.FetchTimeout),
		emb,
		nil,
		service.WorkerConfig{
			Concurrency:     cfg.WorkerConcurrency,
			PollInterval:    cfg.PollInterval,
			ReclaimInterval: cfg.ReclaimInterval,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Worker %s running, Ctrl+C to stop\n", workerID)
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker: %w", err)
	}
	return nil
}

// workerIdentity builds a lease-owner id unique to this process.
func workerIdentity() string {
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return fmt.Sprintf("%s-%s", host, uuid.New().String()[:8])
}
