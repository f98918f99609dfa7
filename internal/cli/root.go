// Package cli provides the command-line interface for linkforge.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/musicofhel/link-forge-sub001/internal/config"
	"github.com/musicofhel/link-forge-sub001/internal/db"
	"github.com/musicofhel/link-forge-sub001/internal/llm"
	"github.com/musicofhel/link-forge-sub001/internal/queue"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and db client
	cfg      config.Config
	dbClient *db.Client

	// Lazy-initialized embedder
	embedder *llm.Embedder

	logCleanup func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "linkforge",
	Short: "Community link collector with hybrid retrieval",
	Long: `LinkForge collects links shared in a community channel, enriches them
with readable content and vector embeddings, and serves hybrid
(semantic + keyword) retrieval ranked by a usefulness signal.

Links and Markdown files are enqueued into a durable ingestion queue
and processed by workers; search blends vector similarity, keyword
matching, and the stored forge score.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, cleanup := config.SetupLogger(cfg.LogFile, level)
		slog.SetDefault(logger)
		logCleanup = cleanup

		// Connect to database
		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx, cfg.EmbedDimension); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if logCleanup != nil {
			_ = logCleanup()
		}
	},
}

// getEmbedder lazily initializes the embedding client. Commands that
// never embed (add, ingest, stats, score) skip the provider entirely.
func getEmbedder() (*llm.Embedder, error) {
	if embedder == nil {
		var err error
		embedder, err = llm.NewEmbedder(cfg)
		if err != nil {
			return nil, fmt.Errorf("init embedder: %w", err)
		}
	}
	return embedder, nil
}

// newQueue builds the ingestion queue over the connected store with the
// configured policy.
func newQueue() *queue.Queue {
	return queue.New(dbClient, queue.Config{
		LeaseDuration: cfg.LeaseDuration,
		MaxAttempts:   cfg.MaxAttempts,
	})
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(chunksCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(serveCmd)
}
