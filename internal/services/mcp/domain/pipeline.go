package domain

import (
	"context"
	"time"

	"github.com/louisbranch/hiring.space/internal/services/pipeline/app"
	pipelinedomain "github.com/louisbranch/hiring.space/internal/services/pipeline/domain"
	workerapp "github.com/louisbranch/hiring.space/internal/services/worker/app"
	workerstorage "github.com/louisbranch/hiring.space/internal/services/worker/storage"
)

// Pipeline is the pipeline service surface the tools call.
type Pipeline interface {
	RegisterCandidate(ctx context.Context, reg pipelinedomain.Registration) (pipelinedomain.Candidate, error)
	GetCandidate(ctx context.Context, candidateID string) (pipelinedomain.Candidate, error)
	ScoreAndGate(ctx context.Context, input app.ScoreInput) (app.GateOutcome, error)
	Transition(ctx context.Context, input app.TransitionInput) (app.TransitionResult, error)
	IssueInterviewAccess(ctx context.Context, candidateID string) (app.AccessGrant, error)
	RedeemInterviewAccess(ctx context.Context, secret string) (app.Redemption, error)
	CompleteInterview(ctx context.Context, candidateID, notes string) (app.TransitionResult, error)
	MarkInterviewCompleted(ctx context.Context, candidateID string) error
	CollectAuditTrail(ctx context.Context, candidateID string) ([]pipelinedomain.AuditEntry, error)
	ListNotifications(ctx context.Context, candidateID string) ([]pipelinedomain.NotificationTask, error)
}

// Drainer runs one notification drain pass.
type Drainer interface {
	Drain(ctx context.Context) (workerapp.DrainResult, error)
}

// AttemptLister reads the worker delivery attempt log.
type AttemptLister interface {
	ListAttempts(ctx context.Context, taskID string, limit int) ([]workerstorage.AttemptRecord, error)
}

// CandidateResult is a candidate as tools report it.
type CandidateResult struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	JobTitle          string `json:"job_title"`
	Source            string `json:"source"`
	AutomationEnabled bool   `json:"automation_enabled"`
	Stage             string `json:"stage"`
	SkillsMatch       *int   `json:"skills_match,omitempty"`
	ExperienceMatch   *int   `json:"experience_match,omitempty"`
	EducationMatch    *int   `json:"education_match,omitempty"`
	CompositeScore    *int   `json:"composite_score,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// AuditEntryResult is one audit log entry.
type AuditEntryResult struct {
	ID                  int64  `json:"id"`
	FromStage           string `json:"from_stage"`
	ToStage             string `json:"to_stage"`
	AutomationTriggered bool   `json:"automation_triggered"`
	Timestamp           string `json:"timestamp"`
	Notes               string `json:"notes,omitempty"`
}

func candidateResult(c pipelinedomain.Candidate) CandidateResult {
	result := CandidateResult{
		ID:                c.ID,
		Name:              c.Name,
		Email:             c.Email,
		JobTitle:          c.JobTitle,
		Source:            string(c.Source),
		AutomationEnabled: c.AutomationEnabled,
		Stage:             string(c.Stage),
		CompositeScore:    c.CompositeScore,
		CreatedAt:         formatTime(c.CreatedAt),
		UpdatedAt:         formatTime(c.UpdatedAt),
	}
	if c.Scores != nil {
		skills, experience, education := c.Scores.Skills, c.Scores.Experience, c.Scores.Education
		result.SkillsMatch = &skills
		result.ExperienceMatch = &experience
		result.EducationMatch = &education
	}
	return result
}

func auditEntryResult(entry pipelinedomain.AuditEntry) AuditEntryResult {
	return AuditEntryResult{
		ID:                  entry.ID,
		FromStage:           string(entry.FromStage),
		ToStage:             string(entry.ToStage),
		AutomationTriggered: entry.AutomationTriggered,
		Timestamp:           formatTime(entry.Timestamp),
		Notes:               entry.Notes,
	}
}

func auditEntryPtr(entry *pipelinedomain.AuditEntry) *AuditEntryResult {
	if entry == nil {
		return nil
	}
	result := auditEntryResult(*entry)
	return &result
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
