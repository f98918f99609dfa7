package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/musicofhel/link-forge-sub001/internal/metrics"
	"github.com/musicofhel/link-forge-sub001/internal/server"
	"github.com/musicofhel/link-forge-sub001/internal/service"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the LinkForge HTTP API: enqueue links, hybrid search, chunk
search, queue stats, runtime metrics, and health.

Stops cleanly on SIGINT/SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	emb, err := getEmbedder()
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	search := service.NewSearch(dbClient, emb, collector)
	srv := server.New(newQueue(), search, collector)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.ListenAddr)
	}()

	fmt.Printf("API listening on %s, Ctrl+C to stop\n", cfg.ListenAddr)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
