package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/hiring.space/internal/platform/errors"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/domain"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/storage"
)

// ApplyTransition moves a candidate from write.From to write.To and commits
// the audit entry, score, token, and notification side effects in the same
// transaction. The stage update is a check-and-set on write.From, so
// concurrent transitions for one candidate serialize and only one applies.
func (s *Store) ApplyTransition(ctx context.Context, write storage.TransitionWrite) (storage.TransitionResult, error) {
	if err := s.ready(ctx); err != nil {
		return storage.TransitionResult{}, err
	}
	write.CandidateID = strings.TrimSpace(write.CandidateID)
	write.RedeemSecret = strings.TrimSpace(write.RedeemSecret)
	if write.CandidateID == "" {
		return storage.TransitionResult{}, fmt.Errorf("candidate id is required")
	}
	if write.At.IsZero() {
		return storage.TransitionResult{}, fmt.Errorf("transition time is required")
	}
	if err := domain.ValidateTransition(write.From, write.To); err != nil {
		return storage.TransitionResult{}, err
	}

	var result storage.TransitionResult
	err := s.inTx(ctx, "transition", func(tx *sql.Tx) error {
		if write.RedeemSecret != "" {
			token, err := redeemToken(ctx, tx, write.CandidateID, write.RedeemSecret, write.At)
			if err != nil {
				return err
			}
			result.Token = &token
		}

		at, err := nextAuditTime(ctx, tx, write.CandidateID, write.At)
		if err != nil {
			return err
		}

		applied, err := casStage(ctx, tx, write, at)
		if err != nil {
			return err
		}
		if !applied {
			current, err := getCandidate(ctx, tx, write.CandidateID)
			if err != nil {
				return err
			}
			if current.Stage != write.To {
				return apperrors.Newf(apperrors.CodeIllegalTransition,
					"candidate %s is at %s; cannot move %s -> %s", write.CandidateID, current.Stage, write.From, write.To)
			}
			if write.CompleteToken {
				if err := completeTokenIfIssued(ctx, tx, write.CandidateID, write.At); err != nil {
					return err
				}
			}
			result.Candidate = current
			return nil
		}

		entry, err := appendAudit(ctx, tx, domain.AuditEntry{
			CandidateID:         write.CandidateID,
			FromStage:           write.From,
			ToStage:             write.To,
			AutomationTriggered: write.AutomationTriggered,
			Notes:               strings.TrimSpace(write.Notes),
			Timestamp:           at,
		})
		if err != nil {
			return err
		}

		if write.IssueToken != nil {
			if write.IssueToken.CandidateID != write.CandidateID {
				return fmt.Errorf("issued token belongs to candidate %s", write.IssueToken.CandidateID)
			}
			if err := issueToken(ctx, tx, *write.IssueToken); err != nil {
				return err
			}
			issued := *write.IssueToken
			result.Token = &issued
		}
		if write.CompleteToken {
			if err := completeTokenIfIssued(ctx, tx, write.CandidateID, write.At); err != nil {
				return err
			}
		}
		for _, task := range write.Notifications {
			if task.CandidateID != write.CandidateID {
				return fmt.Errorf("notification %s belongs to candidate %s", task.ID, task.CandidateID)
			}
			if err := insertNotification(ctx, tx, task); err != nil {
				return err
			}
		}

		candidate, err := getCandidate(ctx, tx, write.CandidateID)
		if err != nil {
			return err
		}
		result.Applied = true
		result.Candidate = candidate
		result.Audit = entry
		return nil
	})
	if err != nil {
		return storage.TransitionResult{}, err
	}
	return result, nil
}

func casStage(ctx context.Context, tx *sql.Tx, write storage.TransitionWrite, at time.Time) (bool, error) {
	var skills, experience, education, composite sql.NullInt64
	if write.Scores != nil {
		skills = sql.NullInt64{Int64: int64(write.Scores.Skills), Valid: true}
		experience = sql.NullInt64{Int64: int64(write.Scores.Experience), Valid: true}
		education = sql.NullInt64{Int64: int64(write.Scores.Education), Valid: true}
	}
	if write.CompositeScore != nil {
		composite = sql.NullInt64{Int64: int64(*write.CompositeScore), Valid: true}
	}

	res, err := tx.ExecContext(ctx, `
UPDATE candidates SET
	stage = ?,
	skills_match = COALESCE(?, skills_match),
	experience_match = COALESCE(?, experience_match),
	education_match = COALESCE(?, education_match),
	composite_score = COALESCE(?, composite_score),
	updated_at = ?
WHERE id = ? AND stage = ?`,
		string(write.To),
		skills,
		experience,
		education,
		composite,
		toMillis(at),
		write.CandidateID,
		string(write.From),
	)
	if err != nil {
		return false, fmt.Errorf("update candidate stage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update candidate stage rows: %w", err)
	}
	return n == 1, nil
}

// nextAuditTime returns at, bumped past the candidate's latest audit entry
// so per-candidate timestamps stay strictly increasing at millisecond
// precision.
func nextAuditTime(ctx context.Context, q sqlQueryer, candidateID string, at time.Time) (time.Time, error) {
	var latest sql.NullInt64
	if err := q.QueryRowContext(ctx,
		`SELECT MAX(created_at) FROM audit_log WHERE candidate_id = ?`, candidateID,
	).Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("read latest audit time: %w", err)
	}
	at = fromMillis(toMillis(at))
	if latest.Valid && toMillis(at) <= latest.Int64 {
		at = fromMillis(latest.Int64 + 1)
	}
	return at, nil
}

func appendAudit(ctx context.Context, q sqlQueryer, entry domain.AuditEntry) (domain.AuditEntry, error) {
	res, err := q.ExecContext(ctx, `
INSERT INTO audit_log (candidate_id, from_stage, to_stage, automation_triggered, notes, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		entry.CandidateID,
		string(entry.FromStage),
		string(entry.ToStage),
		boolInt(entry.AutomationTriggered),
		entry.Notes,
		toMillis(entry.Timestamp),
	)
	if err != nil {
		return domain.AuditEntry{}, fmt.Errorf("append audit entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.AuditEntry{}, fmt.Errorf("audit entry id: %w", err)
	}
	entry.ID = id
	return entry, nil
}

// redeemToken consumes the token matching secret for candidateID, or returns
// the denial explaining why it cannot be consumed.
func redeemToken(ctx context.Context, tx *sql.Tx, candidateID, secret string, at time.Time) (domain.InterviewToken, error) {
	res, err := tx.ExecContext(ctx, `
UPDATE interview_tokens SET redeemed_at = ?
WHERE secret = ? AND candidate_id = ? AND redeemed_at IS NULL AND expires_at > ?`,
		toMillis(at), secret, candidateID, toMillis(at),
	)
	if err != nil {
		return domain.InterviewToken{}, fmt.Errorf("redeem token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.InterviewToken{}, fmt.Errorf("redeem token rows: %w", err)
	}

	token, err := getTokenBySecret(ctx, tx, secret)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.InterviewToken{}, domain.ErrTokenNotFound
		}
		return domain.InterviewToken{}, err
	}
	if token.CandidateID != candidateID {
		return domain.InterviewToken{}, domain.ErrTokenNotFound
	}
	if n == 0 {
		if denial := token.RedeemError(at); denial != nil {
			return domain.InterviewToken{}, denial
		}
		return domain.InterviewToken{}, fmt.Errorf("redeem token %s: not redeemable", token.ID)
	}
	return token, nil
}

func completeTokenIfIssued(ctx context.Context, q sqlQueryer, candidateID string, at time.Time) error {
	if err := markTokenCompleted(ctx, q, candidateID, at); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}
