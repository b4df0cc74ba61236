// Package tasks implements the durable processing queue. Tasks live in
// Postgres; workers claim them with bounded leases so a crashed worker's
// task becomes claimable again once its lease expires.
package tasks

import (
	"time"

	"github.com/google/uuid"
)

// Status values for a processing task.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Live reports whether the status is non-terminal.
func (s Status) Live() bool {
	return s == StatusQueued || s == StatusRunning
}

// Task is one unit of pipeline work for a document. At most one live task
// exists per document; NotBefore defers retries, LeaseExpiresAt bounds a
// worker's exclusive claim.
type Task struct {
	ID             uuid.UUID  `json:"id"`
	DocumentID     uuid.UUID  `json:"document_id"`
	Status         Status     `json:"status"`
	Attempt        int        `json:"attempt"`
	LastError      *string    `json:"last_error,omitempty"`
	NotBefore      time.Time  `json:"not_before"`
	LeaseExpiresAt *time.Time `json:"lease_expires_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Backoff returns the retry delay before the given attempt number runs
// again: base doubled per prior attempt, bounded by cap.
func Backoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= cap || delay <= 0 {
			return cap
		}
	}

	if delay > cap {
		return cap
	}
	return delay
}
