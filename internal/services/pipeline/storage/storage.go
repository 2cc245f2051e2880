// Package storage defines persistence contracts for the recruitment pipeline.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/hiring.space/internal/services/pipeline/domain"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a write conflicts with uniqueness constraints.
	ErrConflict = errors.New("record conflict")
	// ErrLeaseLost indicates a task is no longer leased to the caller.
	ErrLeaseLost = errors.New("notification lease lost")
)

// CandidateStore persists candidate records.
type CandidateStore interface {
	CreateCandidate(ctx context.Context, candidate domain.Candidate) error
	GetCandidate(ctx context.Context, candidateID string) (domain.Candidate, error)
}

// TransitionWrite is one stage transition and every side effect that must
// commit with it.
type TransitionWrite struct {
	CandidateID string
	From        domain.Stage
	To          domain.Stage
	At          time.Time

	AutomationTriggered bool
	Notes               string

	// Scores and CompositeScore are recorded on the candidate when set.
	Scores         *domain.SubScores
	CompositeScore *int

	// IssueToken supersedes the candidate's valid tokens and inserts this one.
	IssueToken *domain.InterviewToken
	// RedeemSecret consumes the matching token; the write fails with the
	// token's denial when it is not redeemable.
	RedeemSecret string
	// CompleteToken marks the candidate's latest token completed.
	CompleteToken bool

	Notifications []domain.NotificationTask
}

// TransitionResult reports what ApplyTransition committed.
type TransitionResult struct {
	// Applied is false when the candidate was already at To; no audit entry,
	// token issuance, or notification was written in that case.
	Applied   bool
	Candidate domain.Candidate
	Audit     domain.AuditEntry
	// Token is the redeemed or issued token, when either was requested.
	Token *domain.InterviewToken
}

// PipelineStore applies stage transitions atomically with their audit entry.
type PipelineStore interface {
	ApplyTransition(ctx context.Context, write TransitionWrite) (TransitionResult, error)
}

// TokenIssue re-issues interview access outside a stage transition.
type TokenIssue struct {
	Token domain.InterviewToken
	// RequireStage rejects the issue unless the candidate is at this stage.
	RequireStage  domain.Stage
	Notifications []domain.NotificationTask
}

// TokenStore persists interview tokens.
type TokenStore interface {
	IssueToken(ctx context.Context, issue TokenIssue) error
	GetTokenBySecret(ctx context.Context, secret string) (domain.InterviewToken, error)
	ListTokensByCandidate(ctx context.Context, candidateID string) ([]domain.InterviewToken, error)
	MarkTokenCompleted(ctx context.Context, candidateID string, at time.Time) error
}

// ClaimRequest selects due tasks for one drain pass.
type ClaimRequest struct {
	Owner      string
	Limit      int
	MaxRetries int
	Now        time.Time
	LeaseTTL   time.Duration
}

// AttemptResult records the outcome of one leased dispatch.
type AttemptResult struct {
	TaskID     string
	Owner      string
	Transition domain.Transition
	At         time.Time
}

// LeaseRenewal extends a live lease right before a dispatch.
type LeaseRenewal struct {
	TaskID   string
	Owner    string
	Now      time.Time
	LeaseTTL time.Duration
}

// QueueStore persists notification tasks with lease-based claiming.
type QueueStore interface {
	EnqueueNotification(ctx context.Context, task domain.NotificationTask) error
	ClaimDueNotifications(ctx context.Context, req ClaimRequest) ([]domain.NotificationTask, error)
	// RenewNotificationLease returns ErrLeaseLost unless the task is still
	// pending and leased to renewal.Owner with an unexpired lease.
	RenewNotificationLease(ctx context.Context, renewal LeaseRenewal) error
	CompleteNotificationAttempt(ctx context.Context, result AttemptResult) error
	GetNotification(ctx context.Context, taskID string) (domain.NotificationTask, error)
	ListNotificationsByCandidate(ctx context.Context, candidateID string) ([]domain.NotificationTask, error)
}

// AuditStore reads the append-only audit log. Appends happen inside
// ApplyTransition.
type AuditStore interface {
	// ListAuditEntries returns up to limit entries with id greater than
	// afterID, ordered by timestamp then id.
	ListAuditEntries(ctx context.Context, candidateID string, afterID int64, limit int) ([]domain.AuditEntry, error)
}

// Store is the full pipeline persistence surface.
type Store interface {
	CandidateStore
	PipelineStore
	TokenStore
	QueueStore
	AuditStore
}
