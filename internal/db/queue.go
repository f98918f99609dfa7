// Package db provides the durable queue store backed by SurrealDB.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/musicofhel/link-forge-sub001/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// Queue store operations. Each state transition is a single conditional
// UPDATE statement: the WHERE clause re-checks the current state, and
// SurrealDB executes the statement as one serializable transaction.
// That guarantee - not in-process locking - is what makes concurrent
// claim/complete/fail safe.

// FindActiveJobByKey returns the non-terminal job holding the payload
// key, or nil if none exists. Used for producer-side dedup.
func (c *Client) FindActiveJobByKey(ctx context.Context, payloadKey string) (*models.QueueJob, error) {
	results, err := surrealdb.Query[[]models.QueueJob](ctx, c.db, `
		SELECT * FROM queue_job
		WHERE payload_key = $key AND status INSIDE ["queued", "processing"]
		LIMIT 1
	`, map[string]any{"key": payloadKey})
	if err != nil {
		return nil, fmt.Errorf("find active job: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// CreateJob inserts a new queued job row with the given id.
func (c *Client) CreateJob(ctx context.Context, id string, kind models.PayloadKind, payloadKey, payloadRef string, maxAttempts int) (*models.QueueJob, error) {
	results, err := surrealdb.Query[[]models.QueueJob](ctx, c.db, `
		CREATE type::record("queue_job", $id) SET
			payload_kind = $kind,
			payload_key = $key,
			payload_ref = $ref,
			status = "queued",
			attempts = 0,
			max_attempts = $max_attempts,
			lease_owner = NONE,
			lease_expires_at = NONE,
			last_error = NONE
		RETURN AFTER
	`, map[string]any{
		"id":           id,
		"kind":         string(kind),
		"key":          payloadKey,
		"ref":          payloadRef,
		"max_attempts": maxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("create job: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create job: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// QueuedCandidates returns up to limit queued jobs in claim order:
// oldest created_at first, ties broken by record id.
func (c *Client) QueuedCandidates(ctx context.Context, limit int) ([]models.QueueJob, error) {
	results, err := surrealdb.Query[[]models.QueueJob](ctx, c.db, `
		SELECT * FROM queue_job
		WHERE status = "queued"
		ORDER BY created_at ASC, id ASC
		LIMIT $limit
	`, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("queued candidates: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.QueueJob{}, nil
	}
	return (*results)[0].Result, nil
}

// TryClaim atomically transitions a job from queued to processing,
// granting the worker a lease and incrementing attempts. Returns nil if
// the job was no longer queued at update time (lost race).
func (c *Client) TryClaim(ctx context.Context, id, workerID string, leaseExpiresAt time.Time) (*models.QueueJob, error) {
	results, err := surrealdb.Query[[]models.QueueJob](ctx, c.db, `
		UPDATE type::record("queue_job", $id) SET
			status = "processing",
			lease_owner = $worker,
			lease_expires_at = $expires,
			attempts += 1,
			updated_at = time::now()
		WHERE status = "queued"
		RETURN AFTER
	`, map[string]any{
		"id":      id,
		"worker":  workerID,
		"expires": leaseExpiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("try claim: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// CompleteJob transitions a processing job to completed, guarded by a
// live lease held by workerID. Returns nil if the guard did not match
// (terminal job, foreign owner, or expired lease).
func (c *Client) CompleteJob(ctx context.Context, id, workerID string) (*models.QueueJob, error) {
	results, err := surrealdb.Query[[]models.QueueJob](ctx, c.db, `
		UPDATE type::record("queue_job", $id) SET
			status = "completed",
			lease_owner = NONE,
			lease_expires_at = NONE,
			updated_at = time::now()
		WHERE status = "processing"
			AND lease_owner = $worker
			AND lease_expires_at > time::now()
		RETURN AFTER
	`, map[string]any{"id": id, "worker": workerID})
	if err != nil {
		return nil, fmt.Errorf("complete job: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// FailJob records a failure under a live lease. The job goes back to
// queued while attempts remain, or to dead_letter once the retry budget
// is exhausted. Returns nil if the lease guard did not match.
func (c *Client) FailJob(ctx context.Context, id, workerID, lastError string) (*models.QueueJob, error) {
	results, err := surrealdb.Query[[]models.QueueJob](ctx, c.db, `
		UPDATE type::record("queue_job", $id) SET
			status = IF attempts >= max_attempts THEN "dead_letter" ELSE "queued" END,
			last_error = $err,
			lease_owner = NONE,
			lease_expires_at = NONE,
			updated_at = time::now()
		WHERE status = "processing"
			AND lease_owner = $worker
			AND lease_expires_at > time::now()
		RETURN AFTER
	`, map[string]any{"id": id, "worker": workerID, "err": lastError})
	if err != nil {
		return nil, fmt.Errorf("fail job: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// ReclaimExpired re-queues processing jobs whose lease expired before
// now, clearing the lease without touching attempts (the increment
// happened at claim time). Idempotent. Returns the number of jobs
// reclaimed.
func (c *Client) ReclaimExpired(ctx context.Context, now time.Time) (int, error) {
	results, err := surrealdb.Query[[]models.QueueJob](ctx, c.db, `
		UPDATE queue_job SET
			status = "queued",
			lease_owner = NONE,
			lease_expires_at = NONE,
			updated_at = time::now()
		WHERE status = "processing" AND lease_expires_at < $now
		RETURN AFTER
	`, map[string]any{"now": now})
	if err != nil {
		return 0, fmt.Errorf("reclaim expired: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	return len((*results)[0].Result), nil
}

// stateCount maps a job state to its row count.
type stateCount struct {
	Status models.JobState `json:"status"`
	Count  int             `json:"count"`
}

// CountJobsByState returns job counts grouped by state. Read-only.
func (c *Client) CountJobsByState(ctx context.Context) (map[models.JobState]int, error) {
	results, err := surrealdb.Query[[]stateCount](ctx, c.db, `
		SELECT status, count() AS count FROM queue_job GROUP BY status
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}

	counts := make(map[models.JobState]int)
	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			counts[row.Status] = row.Count
		}
	}
	return counts, nil
}
