package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/louisbranch/hiring.space/internal/platform/logger"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/domain"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/storage"
	"go.uber.org/zap"
)

// TransitionInput requests one stage change.
type TransitionInput struct {
	CandidateID         string
	To                  domain.Stage
	AutomationTriggered bool
	Notes               string
}

// TransitionResult reports the candidate after a transition request.
type TransitionResult struct {
	Candidate domain.Candidate
	// Applied is false when the candidate was already at the target stage.
	Applied bool
	Audit   *domain.AuditEntry
	// Token and InterviewLink are set when the transition issued access.
	Token         *domain.InterviewToken
	InterviewLink string
}

// Transition moves a candidate along one edge of the pipeline graph and
// commits the edge's side effects with it. Repeating an applied transition
// succeeds without a second audit entry.
func (s *Service) Transition(ctx context.Context, input TransitionInput) (result TransitionResult, err error) {
	if err := s.ready(); err != nil {
		return TransitionResult{}, err
	}
	ctx, span := startSpan(ctx, "transition", input.CandidateID)
	defer func() { endSpan(span, err) }()

	candidate, err := s.getCandidate(ctx, input.CandidateID)
	if err != nil {
		return TransitionResult{}, err
	}
	return s.transition(ctx, candidate, transitionPlan{
		to:                  input.To,
		automationTriggered: input.AutomationTriggered,
		notes:               input.Notes,
	})
}

// CompleteInterview records the interview as done: the candidate moves to
// interviewed, the token is marked completed, and the thank-you message is
// queued. Re-delivered completion callbacks are no-ops.
func (s *Service) CompleteInterview(ctx context.Context, candidateID, notes string) (result TransitionResult, err error) {
	if err := s.ready(); err != nil {
		return TransitionResult{}, err
	}
	ctx, span := startSpan(ctx, "complete_interview", candidateID)
	defer func() { endSpan(span, err) }()

	candidate, err := s.getCandidate(ctx, candidateID)
	if err != nil {
		return TransitionResult{}, err
	}
	if strings.TrimSpace(notes) == "" {
		notes = "interview completed"
	}
	return s.transition(ctx, candidate, transitionPlan{
		to:                  domain.StageInterviewed,
		automationTriggered: true,
		notes:               notes,
	})
}

type transitionPlan struct {
	to                  domain.Stage
	automationTriggered bool
	notes               string
	scores              *domain.SubScores
	composite           *int
	redeemSecret        string
}

// transition builds the storage write for candidate's current stage and plan.to
// and applies it.
func (s *Service) transition(ctx context.Context, candidate domain.Candidate, plan transitionPlan) (TransitionResult, error) {
	from := candidate.Stage
	if from == plan.to && plan.redeemSecret == "" {
		return TransitionResult{Candidate: candidate}, nil
	}
	if plan.redeemSecret != "" {
		from = domain.StageSelected
	}
	if err := domain.ValidateTransition(from, plan.to); err != nil {
		s.log.Warn("transition rejected",
			zap.String(logger.FieldCandidateID, candidate.ID),
			zap.String(logger.FieldStage, string(candidate.Stage)),
			zap.String("to_stage", string(plan.to)),
		)
		return TransitionResult{}, err
	}

	now := s.nowUTC()
	write := storage.TransitionWrite{
		CandidateID:         candidate.ID,
		From:                from,
		To:                  plan.to,
		At:                  now,
		AutomationTriggered: plan.automationTriggered,
		Notes:               strings.TrimSpace(plan.notes),
		Scores:              plan.scores,
		CompositeScore:      plan.composite,
		RedeemSecret:        plan.redeemSecret,
	}
	var link string
	switch plan.to {
	case domain.StageSelected:
		token, err := s.newToken(candidate.ID, now)
		if err != nil {
			return TransitionResult{}, err
		}
		write.IssueToken = &token
		link = domain.InterviewLink(s.cfg.InterviewBaseURL, token.Secret)
		if err := s.queue(&write, candidate, domain.SelectionPayload{
			Recipient:      candidate.Recipient(),
			JobTitle:       candidate.JobTitle,
			InterviewLink:  link,
			TokenExpiresAt: token.ExpiresAt,
		}, now.Add(s.cfg.SelectionDelay), now); err != nil {
			return TransitionResult{}, err
		}
	case domain.StageRejected:
		if err := s.queue(&write, candidate, domain.RejectionPayload{
			Recipient: candidate.Recipient(),
			JobTitle:  candidate.JobTitle,
		}, now.Add(s.cfg.RejectionDelay), now); err != nil {
			return TransitionResult{}, err
		}
	case domain.StageInterviewScheduled:
		if plan.redeemSecret != "" {
			link = domain.InterviewLink(s.cfg.InterviewBaseURL, plan.redeemSecret)
		}
		if err := s.queue(&write, candidate, domain.ScheduledPayload{
			Recipient:     candidate.Recipient(),
			JobTitle:      candidate.JobTitle,
			InterviewLink: link,
			ScheduledAt:   now,
		}, now, now); err != nil {
			return TransitionResult{}, err
		}
	case domain.StageInterviewed:
		write.CompleteToken = true
		if err := s.queue(&write, candidate, domain.CompletedPayload{
			Recipient:   candidate.Recipient(),
			JobTitle:    candidate.JobTitle,
			CompletedAt: now,
		}, now, now); err != nil {
			return TransitionResult{}, err
		}
	}

	applied, err := s.store.ApplyTransition(ctx, write)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return TransitionResult{}, domain.ErrCandidateNotFound
		}
		if errors.Is(err, domain.ErrIllegalTransition) {
			s.log.Warn("transition lost to a concurrent change",
				zap.String(logger.FieldCandidateID, candidate.ID),
				zap.String("from_stage", string(from)),
				zap.String("to_stage", string(plan.to)),
			)
		}
		return TransitionResult{}, err
	}

	result := TransitionResult{Candidate: applied.Candidate, Applied: applied.Applied, Token: applied.Token}
	if !applied.Applied {
		return result, nil
	}
	audit := applied.Audit
	result.Audit = &audit
	result.InterviewLink = link
	s.log.Info("candidate transitioned",
		zap.String(logger.FieldCandidateID, candidate.ID),
		zap.String("from_stage", string(from)),
		zap.String(logger.FieldStage, string(plan.to)),
		zap.Bool("automation_triggered", plan.automationTriggered),
		zap.Int("notifications", len(write.Notifications)),
	)
	return result, nil
}

// queue adds a notification to write when the candidate's source allows
// outbound automation.
func (s *Service) queue(write *storage.TransitionWrite, candidate domain.Candidate, payload domain.Payload, scheduledFor, now time.Time) error {
	task, ok, err := s.newTask(candidate, payload, scheduledFor, now)
	if err != nil || !ok {
		return err
	}
	write.Notifications = append(write.Notifications, task)
	return nil
}

func (s *Service) newTask(candidate domain.Candidate, payload domain.Payload, scheduledFor, now time.Time) (domain.NotificationTask, bool, error) {
	if !candidate.AutomationEnabled {
		s.log.Debug("notification suppressed by source",
			zap.String(logger.FieldCandidateID, candidate.ID),
			zap.String(logger.FieldKind, string(payload.Kind())),
			zap.String("source", string(candidate.Source)),
		)
		return domain.NotificationTask{}, false, nil
	}
	taskID, err := s.newID()
	if err != nil {
		return domain.NotificationTask{}, false, err
	}
	task, err := domain.NewNotificationTask(taskID, candidate.ID, payload, scheduledFor, now)
	if err != nil {
		return domain.NotificationTask{}, false, err
	}
	return task, true, nil
}
