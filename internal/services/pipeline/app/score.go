package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/hiring.space/internal/platform/logger"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/domain"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/scoring"
	"go.uber.org/zap"
)

// ScoreInput requests the score gate for one candidate. When Scores is set
// the scorer is skipped and the given sub-scores are gated as-is.
type ScoreInput struct {
	CandidateID string
	Scores      *domain.SubScores
}

// GateOutcome is the result of ScoreAndGate.
type GateOutcome struct {
	Candidate domain.Candidate
	Scores    domain.SubScores
	Gate      domain.GateResult
	// Fallback is true when the neutral sub-scores replaced the scorer's.
	Fallback bool
	// Applied is false when the candidate had already been gated.
	Applied       bool
	Audit         *domain.AuditEntry
	InterviewLink string
}

// ScoreAndGate scores a screening candidate, records the composite, and
// moves it to selected or rejected. A candidate already past screening
// returns its recorded gate without side effects.
func (s *Service) ScoreAndGate(ctx context.Context, input ScoreInput) (outcome GateOutcome, err error) {
	if err := s.ready(); err != nil {
		return GateOutcome{}, err
	}
	ctx, span := startSpan(ctx, "score_and_gate", input.CandidateID)
	defer func() { endSpan(span, err) }()

	candidate, err := s.getCandidate(ctx, input.CandidateID)
	if err != nil {
		return GateOutcome{}, err
	}
	if candidate.Stage != domain.StageScreening {
		return recordedGate(candidate)
	}

	var (
		scores   domain.SubScores
		fallback bool
		note     string
	)
	if input.Scores != nil {
		if err := input.Scores.Validate(); err != nil {
			return GateOutcome{}, err
		}
		scores = *input.Scores
		note = "scores provided by caller"
	} else {
		result := scoring.Evaluate(ctx, s.scorer, scoring.Request{
			CandidateID: candidate.ID,
			JobTitle:    candidate.JobTitle,
			ResumeText:  candidate.ResumeText,
		}, s.cfg.ScoreTimeout)
		if result.Fallback {
			s.log.Warn("scorer fallback used",
				zap.String(logger.FieldCandidateID, candidate.ID),
				zap.Error(result.Err),
			)
		}
		scores, fallback, note = result.Scores, result.Fallback, result.Note()
	}

	gate, err := domain.Decide(scores)
	if err != nil {
		return GateOutcome{}, err
	}
	composite := gate.Composite
	result, err := s.transition(ctx, candidate, transitionPlan{
		to:                  gate.Decision.Stage(),
		automationTriggered: true,
		notes: fmt.Sprintf("composite %d (skills %d, experience %d, education %d): %s",
			gate.Composite, scores.Skills, scores.Experience, scores.Education, note),
		scores:    &scores,
		composite: &composite,
	})
	if err != nil {
		if errors.Is(err, domain.ErrIllegalTransition) {
			// A concurrent gate won; report what it recorded.
			current, getErr := s.getCandidate(ctx, candidate.ID)
			if getErr == nil && current.Stage != domain.StageScreening {
				return recordedGate(current)
			}
		}
		return GateOutcome{}, err
	}
	return GateOutcome{
		Candidate:     result.Candidate,
		Scores:        scores,
		Gate:          gate,
		Fallback:      fallback,
		Applied:       result.Applied,
		Audit:         result.Audit,
		InterviewLink: result.InterviewLink,
	}, nil
}

func recordedGate(candidate domain.Candidate) (GateOutcome, error) {
	if candidate.Scores == nil || candidate.CompositeScore == nil {
		return GateOutcome{}, fmt.Errorf("candidate %s is at %s without a recorded score: %w",
			candidate.ID, candidate.Stage, domain.ErrIllegalTransition)
	}
	decision := domain.DecisionRejected
	if candidate.Stage != domain.StageRejected {
		decision = domain.DecisionSelected
	}
	return GateOutcome{
		Candidate: candidate,
		Scores:    *candidate.Scores,
		Gate:      domain.GateResult{Composite: *candidate.CompositeScore, Decision: decision},
	}, nil
}
