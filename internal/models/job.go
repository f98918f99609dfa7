// Package models defines data structures for the LinkForge graph database.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// JobState is the lifecycle state of a queued ingestion job.
type JobState string

const (
	JobQueued     JobState = "queued"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
	JobDeadLetter JobState = "dead_letter"
)

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobDeadLetter
}

// PayloadKind distinguishes URL jobs from uploaded-file jobs.
type PayloadKind string

const (
	PayloadURL  PayloadKind = "url"
	PayloadFile PayloadKind = "file"
)

// QueueJob is a persisted unit of ingestion work.
//
// Lease invariant: LeaseOwner/LeaseExpiresAt are set iff Status is
// "processing". PayloadKey is the dedup key (canonical URL, or file
// content hash); PayloadRef is what the worker actually fetches (the
// URL itself, or the stored file path).
type QueueJob struct {
	ID             surrealmodels.RecordID `json:"id"`
	PayloadKind    PayloadKind            `json:"payload_kind"`
	PayloadKey     string                 `json:"payload_key"`
	PayloadRef     string                 `json:"payload_ref"`
	Status         JobState               `json:"status"`
	Attempts       int                    `json:"attempts"`
	MaxAttempts    int                    `json:"max_attempts"`
	LeaseOwner     *string                `json:"lease_owner,omitempty"`
	LeaseExpiresAt *time.Time             `json:"lease_expires_at,omitempty"`
	LastError      *string                `json:"last_error,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}
