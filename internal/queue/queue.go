// Package queue implements the durable ingestion work queue: job
// lifecycle with lease-based claiming, retry, and stale-job recovery.
//
// The queue itself holds no state. Every transition is delegated to the
// Store as an atomic conditional update, so any number of workers may
// call Claim/MarkCompleted/MarkFailed concurrently against one shared
// durable store without in-process coordination.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/musicofhel/link-forge-sub001/internal/models"
)

// Sentinel errors reported to callers.
var (
	// ErrStaleLease indicates a completion or failure report on a job
	// the caller no longer owns: the job is terminal, leased to another
	// worker, or the lease expired. The worker should abandon its
	// in-flight work.
	ErrStaleLease = errors.New("stale lease")

	// ErrEmptyPayload indicates an enqueue attempt without a content key.
	ErrEmptyPayload = errors.New("empty payload")
)

// Store is the durable queue table. Implementations must make each
// conditional transition (TryClaim, CompleteJob, FailJob) a single
// serializable operation; correctness depends on that guarantee, not on
// coordination between callers.
type Store interface {
	FindActiveJobByKey(ctx context.Context, payloadKey string) (*models.QueueJob, error)
	CreateJob(ctx context.Context, id string, kind models.PayloadKind, payloadKey, payloadRef string, maxAttempts int) (*models.QueueJob, error)
	QueuedCandidates(ctx context.Context, limit int) ([]models.QueueJob, error)
	TryClaim(ctx context.Context, id, workerID string, leaseExpiresAt time.Time) (*models.QueueJob, error)
	CompleteJob(ctx context.Context, id, workerID string) (*models.QueueJob, error)
	FailJob(ctx context.Context, id, workerID, lastError string) (*models.QueueJob, error)
	ReclaimExpired(ctx context.Context, now time.Time) (int, error)
	CountJobsByState(ctx context.Context) (map[models.JobState]int, error)
}

// Config holds queue policy, fixed per deployment.
type Config struct {
	// LeaseDuration is how long a claimed job stays owned before it
	// becomes reclaimable.
	LeaseDuration time.Duration

	// MaxAttempts is the retry ceiling; once attempts reaches it a
	// failure is terminal (dead_letter).
	MaxAttempts int

	// ClaimBatch is how many queued candidates to fetch per claim round.
	ClaimBatch int
}

// DefaultConfig returns the default queue policy.
func DefaultConfig() Config {
	return Config{
		LeaseDuration: 5 * time.Minute,
		MaxAttempts:   3,
		ClaimBatch:    8,
	}
}

// Payload identifies a unit of ingestion work. Key is the stable dedup
// key (canonical URL or file content hash); Ref is what the worker
// fetches to process the job.
type Payload struct {
	Kind models.PayloadKind
	Key  string
	Ref  string
}

// Queue is the ingestion job lifecycle engine.
type Queue struct {
	store Store
	cfg   Config

	// now is swappable for tests.
	now func() time.Time
}

// New creates a queue over the given store with the given policy.
func New(store Store, cfg Config) *Queue {
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = DefaultConfig().LeaseDuration
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.ClaimBatch <= 0 {
		cfg.ClaimBatch = DefaultConfig().ClaimBatch
	}
	return &Queue{store: store, cfg: cfg, now: time.Now}
}

// Enqueue registers a payload for ingestion and returns the job id.
// Idempotent on the producer side: if a non-terminal job already holds
// the same payload key, its id is returned and no row is created.
func (q *Queue) Enqueue(ctx context.Context, payload Payload) (string, error) {
	if payload.Key == "" {
		return "", ErrEmptyPayload
	}
	if payload.Kind != models.PayloadURL && payload.Kind != models.PayloadFile {
		return "", fmt.Errorf("unknown payload kind: %q", payload.Kind)
	}

	existing, err := q.store.FindActiveJobByKey(ctx, payload.Key)
	if err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}
	if existing != nil {
		id, err := models.RecordIDString(existing.ID)
		if err != nil {
			return "", fmt.Errorf("enqueue: %w", err)
		}
		slog.Debug("enqueue deduplicated", "job_id", id, "payload_key", payload.Key)
		return id, nil
	}

	id := uuid.New().String()
	job, err := q.store.CreateJob(ctx, id, payload.Kind, payload.Key, payload.Ref, q.cfg.MaxAttempts)
	if err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}

	jobID, err := models.RecordIDString(job.ID)
	if err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}
	slog.Info("job enqueued", "job_id", jobID, "kind", payload.Kind, "payload_key", payload.Key)
	return jobID, nil
}

// claimRounds bounds re-fetching of candidate batches when every
// candidate is stolen by a concurrent claimer mid-round.
const claimRounds = 3

// Claim hands the caller at most one queued job, transitioned to
// processing under a lease of LeaseDuration. Returns (nil, nil) when no
// queued job exists. Selection is FIFO by creation time; under
// concurrent callers each job is returned to exactly one of them.
func (q *Queue) Claim(ctx context.Context, workerID string) (*models.QueueJob, error) {
	if workerID == "" {
		return nil, fmt.Errorf("claim: worker id required")
	}

	for round := 0; round < claimRounds; round++ {
		candidates, err := q.store.QueuedCandidates(ctx, q.cfg.ClaimBatch)
		if err != nil {
			return nil, fmt.Errorf("claim: %w", err)
		}
		if len(candidates) == 0 {
			return nil, nil
		}

		expires := q.now().Add(q.cfg.LeaseDuration)
		for _, candidate := range candidates {
			id, err := models.RecordIDString(candidate.ID)
			if err != nil {
				return nil, fmt.Errorf("claim: %w", err)
			}

			job, err := q.store.TryClaim(ctx, id, workerID, expires)
			if err != nil {
				return nil, fmt.Errorf("claim: %w", err)
			}
			if job != nil {
				slog.Debug("job claimed",
					"job_id", id, "worker", workerID, "attempt", job.Attempts)
				return job, nil
			}
			// Lost the race for this candidate; try the next one.
		}
	}

	return nil, nil
}

// MarkCompleted finishes a job under a live lease. Returns ErrStaleLease
// if the caller no longer owns the job; the store is left untouched in
// that case.
func (q *Queue) MarkCompleted(ctx context.Context, jobID, workerID string) error {
	job, err := q.store.CompleteJob(ctx, jobID, workerID)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	if job == nil {
		return fmt.Errorf("mark completed %s: %w", jobID, ErrStaleLease)
	}

	slog.Info("job completed", "job_id", jobID, "worker", workerID)
	return nil
}

// MarkFailed records a processing failure under a live lease and
// returns the resulting state: queued while the retry budget lasts,
// dead_letter once attempts reached max_attempts. Returns ErrStaleLease
// if the caller no longer owns the job.
func (q *Queue) MarkFailed(ctx context.Context, jobID, workerID string, procErr error) (models.JobState, error) {
	msg := "processing failed"
	if procErr != nil {
		msg = procErr.Error()
	}

	job, err := q.store.FailJob(ctx, jobID, workerID, msg)
	if err != nil {
		return "", fmt.Errorf("mark failed: %w", err)
	}
	if job == nil {
		return "", fmt.Errorf("mark failed %s: %w", jobID, ErrStaleLease)
	}

	if job.Status == models.JobDeadLetter {
		slog.Error("job dead-lettered",
			"job_id", jobID, "attempts", job.Attempts, "error", msg)
	} else {
		slog.Warn("job failed, requeued",
			"job_id", jobID, "attempts", job.Attempts, "error", msg)
	}
	return job.Status, nil
}

// ReclaimStale re-queues processing jobs whose lease expired (worker
// crashed or hung), leaving attempts untouched. Idempotent; intended to
// run periodically. Returns the number of jobs reclaimed.
func (q *Queue) ReclaimStale(ctx context.Context) (int, error) {
	reclaimed, err := q.store.ReclaimExpired(ctx, q.now())
	if err != nil {
		return 0, fmt.Errorf("reclaim stale: %w", err)
	}
	if reclaimed > 0 {
		slog.Info("reclaimed stale jobs", "count", reclaimed)
	}
	return reclaimed, nil
}

// Stats holds per-state job counts for observability.
type Stats struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	DeadLetter int `json:"dead_letter"`
}

// Stats returns current job counts per state. Read-only.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	counts, err := q.store.CountJobsByState(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return Stats{
		Queued:     counts[models.JobQueued],
		Processing: counts[models.JobProcessing],
		Completed:  counts[models.JobCompleted],
		Failed:     counts[models.JobFailed],
		DeadLetter: counts[models.JobDeadLetter],
	}, nil
}
