// Package scoring defines the scoring collaborator used by the score gate.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/hiring.space/internal/platform/errors"
	"github.com/louisbranch/hiring.space/internal/platform/logger"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/domain"
)

// Request is the candidate material a scorer evaluates.
type Request struct {
	CandidateID string
	JobTitle    string
	ResumeText  string
}

// Scorer produces the three match sub-scores for one candidate.
type Scorer interface {
	Score(ctx context.Context, req Request) (domain.SubScores, error)
}

// Assessment is a scorer answer with the reasoning behind it.
type Assessment struct {
	Scores         domain.SubScores
	Recommendation string
	Strengths      []string
	Concerns       []string
}

// Assessor is implemented by scorers that can explain their sub-scores.
// Evaluate prefers it over Score.
type Assessor interface {
	Assess(ctx context.Context, req Request) (Assessment, error)
}

const maxNoteRunes = 600

// Fixed returns the same sub-scores for every request.
type Fixed domain.SubScores

// Score implements Scorer.
func (f Fixed) Score(context.Context, Request) (domain.SubScores, error) {
	return domain.SubScores(f), nil
}

// Result is the outcome of Evaluate.
type Result struct {
	Scores         domain.SubScores
	Recommendation string
	Strengths      []string
	Concerns       []string
	// Fallback is true when Scores is the neutral substitute.
	Fallback bool
	// Err is the scorer failure that triggered the fallback.
	Err error
}

// Note summarizes the result for an audit entry.
func (r Result) Note() string {
	if r.Fallback {
		return fmt.Sprintf("scorer fallback used (%s)", errorText(r.Err))
	}
	parts := []string{"scored by collaborator"}
	if r.Recommendation != "" {
		parts = append(parts, "recommendation: "+r.Recommendation)
	}
	if items := joinItems(r.Strengths); items != "" {
		parts = append(parts, "strengths: "+items)
	}
	if items := joinItems(r.Concerns); items != "" {
		parts = append(parts, "concerns: "+items)
	}
	return logger.Truncate(strings.Join(parts, "; "), maxNoteRunes)
}

func joinItems(items []string) string {
	kept := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			kept = append(kept, item)
		}
	}
	return strings.Join(kept, ", ")
}

// Evaluate calls scorer within timeout. Unavailable, slow, or out-of-range
// answers are replaced by domain.FallbackSubScores so the pipeline never
// blocks on the scorer.
func Evaluate(ctx context.Context, scorer Scorer, req Request, timeout time.Duration) Result {
	if scorer == nil {
		return fallback(apperrors.New(apperrors.CodeCollaboratorUnavailable, "scorer is not configured"))
	}
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	assessment, err := assess(callCtx, scorer, req)
	scores := assessment.Scores
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fallback(apperrors.Wrap(apperrors.CodeCollaboratorUnavailable, "scorer timed out", err))
		}
		return fallback(apperrors.Wrap(apperrors.CodeCollaboratorUnavailable, "scorer failed", err))
	}
	if err := scores.Validate(); err != nil {
		return fallback(apperrors.Wrap(apperrors.CodeCollaboratorUnavailable, "scorer returned invalid sub-scores", err))
	}
	return Result{
		Scores:         scores,
		Recommendation: assessment.Recommendation,
		Strengths:      assessment.Strengths,
		Concerns:       assessment.Concerns,
	}
}

func assess(ctx context.Context, scorer Scorer, req Request) (Assessment, error) {
	if assessor, ok := scorer.(Assessor); ok {
		return assessor.Assess(ctx, req)
	}
	scores, err := scorer.Score(ctx, req)
	return Assessment{Scores: scores}, err
}

func fallback(err error) Result {
	return Result{Scores: domain.FallbackSubScores, Fallback: true, Err: err}
}

func errorText(err error) string {
	if err == nil {
		return "no error"
	}
	return strings.TrimSpace(err.Error())
}
