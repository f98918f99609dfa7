package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/musicofhel/link-forge-sub001/internal/models"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// memStore is an in-memory Store for unit tests. It reproduces the
// durable store's contract: every conditional transition is a single
// operation under one lock, so concurrent callers observe the same
// serializable behavior as the real table.
type memStore struct {
	mu   sync.Mutex
	jobs map[string]*models.QueueJob
	now  func() time.Time

	// seq orders created_at deterministically even when jobs are
	// created within the same wall-clock instant.
	seq int
}

func newMemStore() *memStore {
	return &memStore{
		jobs: make(map[string]*models.QueueJob),
		now:  time.Now,
	}
}

func jobIDString(job *models.QueueJob) string {
	return models.MustRecordIDString(job.ID)
}

func (m *memStore) FindActiveJobByKey(ctx context.Context, payloadKey string) (*models.QueueJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.jobs {
		if job.PayloadKey == payloadKey &&
			(job.Status == models.JobQueued || job.Status == models.JobProcessing) {
			copied := *job
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateJob(ctx context.Context, id string, kind models.PayloadKind, payloadKey, payloadRef string, maxAttempts int) (*models.QueueJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	job := &models.QueueJob{
		ID:          surrealmodels.RecordID{Table: "queue_job", ID: id},
		PayloadKind: kind,
		PayloadKey:  payloadKey,
		PayloadRef:  payloadRef,
		Status:      models.JobQueued,
		Attempts:    0,
		MaxAttempts: maxAttempts,
		CreatedAt:   m.now().Add(time.Duration(m.seq) * time.Microsecond),
		UpdatedAt:   m.now(),
	}
	m.jobs[id] = job
	copied := *job
	return &copied, nil
}

func (m *memStore) QueuedCandidates(ctx context.Context, limit int) ([]models.QueueJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var queued []*models.QueueJob
	for _, job := range m.jobs {
		if job.Status == models.JobQueued {
			queued = append(queued, job)
		}
	}
	sort.Slice(queued, func(i, j int) bool {
		if !queued[i].CreatedAt.Equal(queued[j].CreatedAt) {
			return queued[i].CreatedAt.Before(queued[j].CreatedAt)
		}
		return jobIDString(queued[i]) < jobIDString(queued[j])
	})

	if len(queued) > limit {
		queued = queued[:limit]
	}
	result := make([]models.QueueJob, len(queued))
	for i, job := range queued {
		result[i] = *job
	}
	return result, nil
}

func (m *memStore) TryClaim(ctx context.Context, id, workerID string, leaseExpiresAt time.Time) (*models.QueueJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status != models.JobQueued {
		return nil, nil
	}

	job.Status = models.JobProcessing
	owner := workerID
	expires := leaseExpiresAt
	job.LeaseOwner = &owner
	job.LeaseExpiresAt = &expires
	job.Attempts++
	job.UpdatedAt = m.now()

	copied := *job
	return &copied, nil
}

// leaseLive reports whether job holds a live lease owned by workerID.
func (m *memStore) leaseLive(job *models.QueueJob, workerID string) bool {
	return job.Status == models.JobProcessing &&
		job.LeaseOwner != nil && *job.LeaseOwner == workerID &&
		job.LeaseExpiresAt != nil && job.LeaseExpiresAt.After(m.now())
}

func (m *memStore) CompleteJob(ctx context.Context, id, workerID string) (*models.QueueJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || !m.leaseLive(job, workerID) {
		return nil, nil
	}

	job.Status = models.JobCompleted
	job.LeaseOwner = nil
	job.LeaseExpiresAt = nil
	job.UpdatedAt = m.now()

	copied := *job
	return &copied, nil
}

func (m *memStore) FailJob(ctx context.Context, id, workerID, lastError string) (*models.QueueJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || !m.leaseLive(job, workerID) {
		return nil, nil
	}

	if job.Attempts >= job.MaxAttempts {
		job.Status = models.JobDeadLetter
	} else {
		job.Status = models.JobQueued
	}
	msg := lastError
	job.LastError = &msg
	job.LeaseOwner = nil
	job.LeaseExpiresAt = nil
	job.UpdatedAt = m.now()

	copied := *job
	return &copied, nil
}

func (m *memStore) ReclaimExpired(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reclaimed := 0
	for _, job := range m.jobs {
		if job.Status == models.JobProcessing &&
			job.LeaseExpiresAt != nil && job.LeaseExpiresAt.Before(now) {
			job.Status = models.JobQueued
			job.LeaseOwner = nil
			job.LeaseExpiresAt = nil
			job.UpdatedAt = m.now()
			reclaimed++
		}
	}
	return reclaimed, nil
}

func (m *memStore) CountJobsByState(ctx context.Context) (map[models.JobState]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[models.JobState]int)
	for _, job := range m.jobs {
		counts[job.Status]++
	}
	return counts, nil
}

// get returns a copy of the stored job for assertions.
func (m *memStore) get(id string) *models.QueueJob {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	copied := *job
	return &copied
}
