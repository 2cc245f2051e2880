// Package storage defines the worker's durable delivery-attempt log.
package storage

import (
	"context"
	"time"
)

// AttemptRecord is one notification dispatch outcome.
type AttemptRecord struct {
	ID         int64
	TaskID     string
	Kind       string
	Owner      string
	Outcome    string
	RetryCount int
	LastError  string
	CreatedAt  time.Time
}

// AttemptStore persists dispatch outcomes for operator review.
type AttemptStore interface {
	RecordAttempt(ctx context.Context, attempt AttemptRecord) error
	// ListAttempts lists newest-first records; a non-empty taskID filters to
	// that task.
	ListAttempts(ctx context.Context, taskID string, limit int) ([]AttemptRecord, error)
}
