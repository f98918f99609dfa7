package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/musicofhel/link-forge-sub001/internal/metrics"
	"github.com/musicofhel/link-forge-sub001/internal/models"
	"github.com/musicofhel/link-forge-sub001/internal/processor"
	"github.com/musicofhel/link-forge-sub001/internal/queue"
	"github.com/panjf2000/ants/v2"
)

// GraphWriter is the write surface of the graph store consumed by the
// worker loop.
type GraphWriter interface {
	GetLinkByURL(ctx context.Context, url string) (*models.Link, error)
	UpsertLink(ctx context.Context, input models.LinkInput) (*models.Link, error)
	ReplaceChunks(ctx context.Context, link *models.Link, chunks []models.ChunkInput) error
	AttachCategory(ctx context.Context, link *models.Link, name string) error
	AttachTags(ctx context.Context, link *models.Link, names []string) error
}

// ContentProcessor extracts a document from a claimed job's payload.
type ContentProcessor interface {
	Process(ctx context.Context, job *models.QueueJob) (*processor.Document, error)
}

// WorkerConfig holds worker loop tuning, fixed per deployment.
type WorkerConfig struct {
	// Concurrency is the number of jobs processed in parallel.
	Concurrency int

	// PollInterval is how often the loop looks for queued jobs.
	PollInterval time.Duration

	// ReclaimInterval is how often expired leases are swept back to
	// queued.
	ReclaimInterval time.Duration
}

// DefaultWorkerConfig returns the default worker tuning.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Concurrency:     4,
		PollInterval:    2 * time.Second,
		ReclaimInterval: 30 * time.Second,
	}
}

// Worker drives the claim, process, complete/fail cycle against the
// ingestion queue.
type Worker struct {
	id        string
	queue     *queue.Queue
	store     GraphWriter
	processor ContentProcessor
	embedder  Embedder
	metrics   *metrics.Collector
	cfg       WorkerConfig
}

// NewWorker creates a worker identified by id. The id is the lease
// owner recorded on claimed jobs, so it must be unique per worker
// process.
func NewWorker(id string, q *queue.Queue, store GraphWriter, proc ContentProcessor, embedder Embedder, collector *metrics.Collector, cfg WorkerConfig) *Worker {
	def := DefaultWorkerConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.ReclaimInterval <= 0 {
		cfg.ReclaimInterval = def.ReclaimInterval
	}
	return &Worker{
		id:        id,
		queue:     q,
		store:     store,
		processor: proc,
		embedder:  embedder,
		metrics:   collector,
		cfg:       cfg,
	}
}

// Run polls the queue until the context is cancelled, claiming jobs
// into a bounded goroutine pool and sweeping stale leases periodically.
func (w *Worker) Run(ctx context.Context) error {
	pool, err := ants.NewPool(w.cfg.Concurrency)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	slog.Info("worker started",
		"worker", w.id, "concurrency", w.cfg.Concurrency,
		"poll_interval", w.cfg.PollInterval)

	poll := time.NewTicker(w.cfg.PollInterval)
	defer poll.Stop()
	reclaim := time.NewTicker(w.cfg.ReclaimInterval)
	defer reclaim.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopping", "worker", w.id)
			return ctx.Err()

		case <-reclaim.C:
			if _, err := w.queue.ReclaimStale(ctx); err != nil {
				slog.Error("reclaim sweep failed", "worker", w.id, "error", err)
			}

		case <-poll.C:
			w.drainQueue(ctx, pool)
		}
	}
}

// drainQueue claims jobs into the pool until it is full or the queue
// runs dry.
func (w *Worker) drainQueue(ctx context.Context, pool *ants.Pool) {
	for pool.Free() > 0 {
		claimStart := time.Now()
		job, err := w.queue.Claim(ctx, w.id)
		w.metrics.RecordTiming(metrics.OpQueueClaim, time.Since(claimStart), err)
		if err != nil {
			slog.Error("claim failed", "worker", w.id, "error", err)
			return
		}
		if job == nil {
			return
		}

		claimed := job
		if err := pool.Submit(func() { w.handle(ctx, claimed) }); err != nil {
			slog.Error("pool submit failed", "worker", w.id, "error", err)
			w.reportFailure(ctx, claimed, err)
			return
		}
	}
}

// handle runs one job to completion or failure.
func (w *Worker) handle(ctx context.Context, job *models.QueueJob) {
	jobID, err := models.RecordIDString(job.ID)
	if err != nil {
		slog.Error("bad job id", "worker", w.id, "error", err)
		return
	}

	start := time.Now()
	err = w.process(ctx, job)
	w.metrics.RecordTiming(metrics.OpProcess, time.Since(start), err)

	if err != nil {
		w.reportFailure(ctx, job, err)
		return
	}

	if err := w.queue.MarkCompleted(ctx, jobID, w.id); err != nil {
		if errors.Is(err, queue.ErrStaleLease) {
			slog.Warn("lease lost before completion, work abandoned",
				"worker", w.id, "job_id", jobID)
			return
		}
		slog.Error("mark completed failed", "worker", w.id, "job_id", jobID, "error", err)
	}
}

// reportFailure records a processing failure, tolerating a lost lease.
func (w *Worker) reportFailure(ctx context.Context, job *models.QueueJob, procErr error) {
	jobID, err := models.RecordIDString(job.ID)
	if err != nil {
		slog.Error("bad job id", "worker", w.id, "error", err)
		return
	}

	if _, err := w.queue.MarkFailed(ctx, jobID, w.id, procErr); err != nil {
		if errors.Is(err, queue.ErrStaleLease) {
			slog.Warn("lease lost before failure report",
				"worker", w.id, "job_id", jobID)
			return
		}
		slog.Error("mark failed errored", "worker", w.id, "job_id", jobID, "error", err)
	}
}

// process extracts, embeds, and writes one job's document to the graph.
func (w *Worker) process(ctx context.Context, job *models.QueueJob) error {
	doc, err := w.processor.Process(ctx, job)
	if err != nil {
		return fmt.Errorf("process payload: %w", err)
	}

	embedStart := time.Now()
	docEmbedding, err := w.embedder.Embed(ctx, embeddingText(doc))
	w.metrics.RecordTiming(metrics.OpEmbedding, time.Since(embedStart), err)
	if err != nil {
		return fmt.Errorf("embed document: %w", err)
	}

	chunkEmbeddings, err := w.embedder.EmbedBatch(ctx, doc.Chunks)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	// Reprocessing must not clobber an externally assigned forge score.
	var forgeScore float64
	var quality *string
	if existing, err := w.store.GetLinkByURL(ctx, doc.URL); err != nil {
		return fmt.Errorf("lookup existing link: %w", err)
	} else if existing != nil {
		forgeScore = existing.ForgeScore
		quality = existing.Quality
	}

	link, err := w.store.UpsertLink(ctx, models.LinkInput{
		URL:         doc.URL,
		Title:       doc.Title,
		Description: doc.Description,
		Content:     doc.Text,
		Embedding:   docEmbedding,
		ForgeScore:  forgeScore,
		ContentType: doc.ContentType,
		Quality:     quality,
	})
	if err != nil {
		return fmt.Errorf("upsert link: %w", err)
	}

	chunks := make([]models.ChunkInput, len(doc.Chunks))
	for i, text := range doc.Chunks {
		chunks[i] = models.ChunkInput{
			Content:   text,
			Position:  i,
			Embedding: chunkEmbeddings[i],
		}
	}
	if err := w.store.ReplaceChunks(ctx, link, chunks); err != nil {
		return fmt.Errorf("replace chunks: %w", err)
	}

	if doc.Category != "" {
		if err := w.store.AttachCategory(ctx, link, doc.Category); err != nil {
			return fmt.Errorf("attach category: %w", err)
		}
	}
	if len(doc.Tags) > 0 {
		if err := w.store.AttachTags(ctx, link, doc.Tags); err != nil {
			return fmt.Errorf("attach tags: %w", err)
		}
	}

	slog.Info("job processed",
		"worker", w.id, "url", doc.URL, "chunks", len(chunks))
	return nil
}

// embeddingText builds the document-level embedding input from title,
// description, and body text.
func embeddingText(doc *processor.Document) string {
	text := doc.Title
	if doc.Description != "" {
		text += "\n\n" + doc.Description
	}
	if doc.Text != "" {
		text += "\n\n" + doc.Text
	}
	return text
}
