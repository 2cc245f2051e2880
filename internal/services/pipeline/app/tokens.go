package app

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/louisbranch/hiring.space/internal/platform/errors"
	"github.com/louisbranch/hiring.space/internal/platform/logger"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/domain"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/storage"
	"go.uber.org/zap"
)

// AccessGrant is a freshly issued interview credential.
type AccessGrant struct {
	Token         domain.InterviewToken
	InterviewLink string
}

// Redemption reports a successful interview link redemption.
type Redemption struct {
	CandidateID string
	Candidate   domain.Candidate
	// Scheduled is false when the candidate had already been scheduled by
	// another path; the token is still consumed.
	Scheduled bool
	Audit     *domain.AuditEntry
}

func (s *Service) newToken(candidateID string, now time.Time) (domain.InterviewToken, error) {
	tokenID, err := s.newID()
	if err != nil {
		return domain.InterviewToken{}, err
	}
	secret, err := s.newSecret()
	if err != nil {
		return domain.InterviewToken{}, err
	}
	return domain.NewInterviewToken(tokenID, candidateID, secret, now, s.cfg.TokenTTL)
}

// IssueInterviewAccess re-issues the interview link for a selected candidate.
// Any still-valid earlier link stops working.
func (s *Service) IssueInterviewAccess(ctx context.Context, candidateID string) (grant AccessGrant, err error) {
	if err := s.ready(); err != nil {
		return AccessGrant{}, err
	}
	ctx, span := startSpan(ctx, "issue_interview_access", candidateID)
	defer func() { endSpan(span, err) }()

	candidate, err := s.getCandidate(ctx, candidateID)
	if err != nil {
		return AccessGrant{}, err
	}
	if candidate.Stage != domain.StageSelected {
		return AccessGrant{}, apperrors.Newf(apperrors.CodeIllegalTransition,
			"interview access requires stage %s, candidate is %s", domain.StageSelected, candidate.Stage)
	}

	now := s.nowUTC()
	token, err := s.newToken(candidate.ID, now)
	if err != nil {
		return AccessGrant{}, err
	}
	link := domain.InterviewLink(s.cfg.InterviewBaseURL, token.Secret)
	issue := storage.TokenIssue{Token: token, RequireStage: domain.StageSelected}
	task, ok, err := s.newTask(candidate, domain.SelectionPayload{
		Recipient:      candidate.Recipient(),
		JobTitle:       candidate.JobTitle,
		InterviewLink:  link,
		TokenExpiresAt: token.ExpiresAt,
	}, now, now)
	if err != nil {
		return AccessGrant{}, err
	}
	if ok {
		issue.Notifications = append(issue.Notifications, task)
	}
	if err := s.store.IssueToken(ctx, issue); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return AccessGrant{}, domain.ErrCandidateNotFound
		}
		return AccessGrant{}, err
	}
	s.log.Info("interview access issued",
		zap.String(logger.FieldCandidateID, candidate.ID),
		zap.Time("expires_at", token.ExpiresAt),
	)
	return AccessGrant{Token: token, InterviewLink: link}, nil
}

// RedeemInterviewAccess consumes an interview link and schedules the
// interview in the same transaction.
func (s *Service) RedeemInterviewAccess(ctx context.Context, secret string) (redemption Redemption, err error) {
	if err := s.ready(); err != nil {
		return Redemption{}, err
	}
	ctx, span := startSpan(ctx, "redeem_interview_access", "")
	defer func() { endSpan(span, err) }()

	secret = strings.TrimSpace(secret)
	token, err := s.store.GetTokenBySecret(ctx, secret)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.log.Info("interview access denied", zap.String("reason", "not_found"))
			return Redemption{}, domain.ErrTokenNotFound
		}
		return Redemption{}, err
	}
	span.SetAttributes(candidateAttr(token.CandidateID))
	if denial := token.RedeemError(s.nowUTC()); denial != nil {
		s.logDenial(token.CandidateID, denial)
		return Redemption{}, denial
	}

	candidate, err := s.getCandidate(ctx, token.CandidateID)
	if err != nil {
		return Redemption{}, err
	}
	result, err := s.transition(ctx, candidate, transitionPlan{
		to:                  domain.StageInterviewScheduled,
		automationTriggered: true,
		notes:               "interview link redeemed",
		redeemSecret:        secret,
	})
	if err != nil {
		if isTokenDenial(err) {
			s.logDenial(token.CandidateID, err)
		}
		return Redemption{}, err
	}
	return Redemption{
		CandidateID: candidate.ID,
		Candidate:   result.Candidate,
		Scheduled:   result.Applied,
		Audit:       result.Audit,
	}, nil
}

// AccessCheck describes a redeemable interview link.
type AccessCheck struct {
	CandidateID string
	ExpiresAt   time.Time
}

// CheckInterviewAccess reports whether secret could be redeemed now without
// consuming it.
func (s *Service) CheckInterviewAccess(ctx context.Context, secret string) (check AccessCheck, err error) {
	if err := s.ready(); err != nil {
		return AccessCheck{}, err
	}
	ctx, span := startSpan(ctx, "check_interview_access", "")
	defer func() { endSpan(span, err) }()

	token, err := s.store.GetTokenBySecret(ctx, strings.TrimSpace(secret))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return AccessCheck{}, domain.ErrTokenNotFound
		}
		return AccessCheck{}, err
	}
	span.SetAttributes(candidateAttr(token.CandidateID))
	if denial := token.RedeemError(s.nowUTC()); denial != nil {
		return AccessCheck{}, denial
	}
	return AccessCheck{CandidateID: token.CandidateID, ExpiresAt: token.ExpiresAt}, nil
}

func isTokenDenial(err error) bool {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeTokenNotFound, apperrors.CodeTokenExpired, apperrors.CodeTokenAlreadyUsed:
		return true
	default:
		return false
	}
}

func (s *Service) logDenial(candidateID string, err error) {
	s.log.Info("interview access denied",
		zap.String(logger.FieldCandidateID, candidateID),
		zap.String("reason", strings.ToLower(string(apperrors.CodeOf(err)))),
	)
}

// MarkInterviewCompleted flags the candidate's interview token completed
// without moving the stage. Repeating it is a no-op.
func (s *Service) MarkInterviewCompleted(ctx context.Context, candidateID string) (err error) {
	if err := s.ready(); err != nil {
		return err
	}
	ctx, span := startSpan(ctx, "mark_interview_completed", candidateID)
	defer func() { endSpan(span, err) }()

	candidate, err := s.getCandidate(ctx, candidateID)
	if err != nil {
		return err
	}
	if err := s.store.MarkTokenCompleted(ctx, candidate.ID, s.nowUTC()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.ErrTokenNotFound
		}
		return err
	}
	return nil
}
