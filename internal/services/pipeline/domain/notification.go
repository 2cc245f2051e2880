package domain

import (
	"bytes"
	"encoding/json"
	"net/mail"
	"strings"
	"time"

	apperrors "github.com/louisbranch/hiring.space/internal/platform/errors"
)

// Kind identifies which outbound message a task renders.
type Kind string

const (
	KindSelection Kind = "selection"
	KindRejection Kind = "rejection"
	KindScheduled Kind = "scheduled"
	KindCompleted Kind = "completed"
)

// ParseKind validates a notification kind.
func ParseKind(raw string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case KindSelection, KindRejection, KindScheduled, KindCompleted:
		return kind, nil
	default:
		return "", apperrors.Newf(apperrors.CodeInvalidArgument, "unknown notification kind %q", raw)
	}
}

// Recipient is the addressee of an outbound message.
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (r Recipient) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "recipient name is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(r.Email)); err != nil {
		return apperrors.Newf(apperrors.CodeInvalidArgument, "recipient email %q is invalid", r.Email)
	}
	return nil
}

// Payload is the kind-specific data needed to render one message.
type Payload interface {
	Kind() Kind
	Validate() error
}

// SelectionPayload announces selection and carries the interview link.
type SelectionPayload struct {
	Recipient      Recipient `json:"recipient"`
	JobTitle       string    `json:"job_title"`
	InterviewLink  string    `json:"interview_link"`
	TokenExpiresAt time.Time `json:"token_expires_at"`
}

func (SelectionPayload) Kind() Kind { return KindSelection }

func (p SelectionPayload) Validate() error {
	if err := p.Recipient.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(p.JobTitle) == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "job title is required")
	}
	if strings.TrimSpace(p.InterviewLink) == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "interview link is required")
	}
	if p.TokenExpiresAt.IsZero() {
		return apperrors.New(apperrors.CodeInvalidArgument, "token expiry is required")
	}
	return nil
}

// RejectionPayload informs a candidate they were not selected.
type RejectionPayload struct {
	Recipient Recipient `json:"recipient"`
	JobTitle  string    `json:"job_title"`
}

func (RejectionPayload) Kind() Kind { return KindRejection }

func (p RejectionPayload) Validate() error {
	if err := p.Recipient.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(p.JobTitle) == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "job title is required")
	}
	return nil
}

// ScheduledPayload confirms the interview session was opened.
type ScheduledPayload struct {
	Recipient     Recipient `json:"recipient"`
	JobTitle      string    `json:"job_title"`
	InterviewLink string    `json:"interview_link,omitempty"`
	ScheduledAt   time.Time `json:"scheduled_at"`
}

func (ScheduledPayload) Kind() Kind { return KindScheduled }

func (p ScheduledPayload) Validate() error {
	if err := p.Recipient.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(p.JobTitle) == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "job title is required")
	}
	if p.ScheduledAt.IsZero() {
		return apperrors.New(apperrors.CodeInvalidArgument, "scheduled time is required")
	}
	return nil
}

// CompletedPayload thanks the candidate after the interview.
type CompletedPayload struct {
	Recipient   Recipient `json:"recipient"`
	JobTitle    string    `json:"job_title"`
	CompletedAt time.Time `json:"completed_at"`
}

func (CompletedPayload) Kind() Kind { return KindCompleted }

func (p CompletedPayload) Validate() error {
	if err := p.Recipient.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(p.JobTitle) == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "job title is required")
	}
	if p.CompletedAt.IsZero() {
		return apperrors.New(apperrors.CodeInvalidArgument, "completion time is required")
	}
	return nil
}

// EncodePayload validates p and serializes it for storage.
func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "payload is required")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "encode payload", err)
	}
	return data, nil
}

// DecodePayload parses a stored payload for kind and validates it.
func DecodePayload(kind Kind, raw []byte) (Payload, error) {
	var p Payload
	switch kind {
	case KindSelection:
		p = &SelectionPayload{}
	case KindRejection:
		p = &RejectionPayload{}
	case KindScheduled:
		p = &ScheduledPayload{}
	case KindCompleted:
		p = &CompletedPayload{}
	default:
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "unknown notification kind %q", kind)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "decode "+string(kind)+" payload", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// TaskStatus is the delivery state of a notification task.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskSent    TaskStatus = "sent"
	TaskFailed  TaskStatus = "failed"
)

// Terminal reports whether no further delivery attempt happens from s.
func (s TaskStatus) Terminal() bool {
	return s == TaskSent || s == TaskFailed
}

// NotificationTask is one durable outbound message.
type NotificationTask struct {
	ID           string
	CandidateID  string
	Kind         Kind
	Payload      []byte
	Status       TaskStatus
	ScheduledFor time.Time
	RetryCount   int
	LastError    string
	SentAt       *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewNotificationTask builds a pending task for payload, due at scheduledFor.
func NewNotificationTask(id, candidateID string, payload Payload, scheduledFor, now time.Time) (NotificationTask, error) {
	id = strings.TrimSpace(id)
	candidateID = strings.TrimSpace(candidateID)
	if id == "" || candidateID == "" {
		return NotificationTask{}, apperrors.New(apperrors.CodeInvalidArgument, "task id and candidate id are required")
	}
	data, err := EncodePayload(payload)
	if err != nil {
		return NotificationTask{}, err
	}
	now = now.UTC()
	if scheduledFor.IsZero() {
		scheduledFor = now
	}
	return NotificationTask{
		ID:           id,
		CandidateID:  candidateID,
		Kind:         payload.Kind(),
		Payload:      data,
		Status:       TaskPending,
		ScheduledFor: scheduledFor.UTC(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Due reports whether the task may be dispatched at now under maxRetries.
func (t NotificationTask) Due(now time.Time, maxRetries int) bool {
	return t.Status == TaskPending && !t.ScheduledFor.After(now) && t.RetryCount < maxRetries
}

// AttemptOutcome is the recorded result of one dispatch.
type AttemptOutcome string

const (
	OutcomeSent   AttemptOutcome = "sent"
	OutcomeRetry  AttemptOutcome = "retry"
	OutcomeFailed AttemptOutcome = "failed"
)

// Transition is the task state after one dispatch attempt.
type Transition struct {
	Status     TaskStatus
	RetryCount int
	Outcome    AttemptOutcome
	LastError  string
}

// AfterSuccess is the task state after a successful send.
func (t NotificationTask) AfterSuccess() Transition {
	return Transition{Status: TaskSent, RetryCount: t.RetryCount, Outcome: OutcomeSent, LastError: t.LastError}
}

// AfterFailure is the task state after a failed send. Permanent failures
// exhaust the retry budget at once.
func (t NotificationTask) AfterFailure(maxRetries int, lastError string, permanent bool) Transition {
	count := t.RetryCount + 1
	if permanent && count < maxRetries {
		count = maxRetries
	}
	if count >= maxRetries {
		return Transition{Status: TaskFailed, RetryCount: count, Outcome: OutcomeFailed, LastError: lastError}
	}
	return Transition{Status: TaskPending, RetryCount: count, Outcome: OutcomeRetry, LastError: lastError}
}
