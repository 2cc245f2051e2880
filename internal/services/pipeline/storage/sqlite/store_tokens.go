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

const tokenColumns = `id, candidate_id, secret, issued_at, expires_at, redeemed_at, interview_completed`

// IssueToken supersedes the candidate's valid tokens, inserts the new one,
// and enqueues the accompanying notifications in one transaction.
func (s *Store) IssueToken(ctx context.Context, issue storage.TokenIssue) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	token := issue.Token
	if strings.TrimSpace(token.ID) == "" || strings.TrimSpace(token.CandidateID) == "" || strings.TrimSpace(token.Secret) == "" {
		return fmt.Errorf("token id, candidate id, and secret are required")
	}

	return s.inTx(ctx, "issue token", func(tx *sql.Tx) error {
		candidate, err := getCandidate(ctx, tx, token.CandidateID)
		if err != nil {
			return err
		}
		if issue.RequireStage != "" && candidate.Stage != issue.RequireStage {
			return apperrors.Newf(apperrors.CodeIllegalTransition,
				"candidate %s is at %s; interview access requires %s", candidate.ID, candidate.Stage, issue.RequireStage)
		}
		if err := issueToken(ctx, tx, token); err != nil {
			return err
		}
		for _, task := range issue.Notifications {
			if task.CandidateID != token.CandidateID {
				return fmt.Errorf("notification %s belongs to candidate %s", task.ID, task.CandidateID)
			}
			if err := insertNotification(ctx, tx, task); err != nil {
				return err
			}
		}
		return nil
	})
}

// issueToken expires every still-valid token of the candidate at the new
// token's issue time, then inserts it.
func issueToken(ctx context.Context, q sqlQueryer, token domain.InterviewToken) error {
	issuedAt := toMillis(token.IssuedAt)
	if _, err := q.ExecContext(ctx, `
UPDATE interview_tokens SET expires_at = ?
WHERE candidate_id = ? AND redeemed_at IS NULL AND expires_at > ?`,
		issuedAt, token.CandidateID, issuedAt,
	); err != nil {
		return fmt.Errorf("supersede tokens: %w", err)
	}

	_, err := q.ExecContext(ctx, `
INSERT INTO interview_tokens (`+tokenColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		token.ID,
		token.CandidateID,
		token.Secret,
		issuedAt,
		toMillis(token.ExpiresAt),
		nullMillis(token.RedeemedAt),
		boolInt(token.InterviewCompleted),
	)
	if err != nil {
		if isUniqueConstraintError(err) || isForeignKeyConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// GetTokenBySecret loads the token matching secret.
func (s *Store) GetTokenBySecret(ctx context.Context, secret string) (domain.InterviewToken, error) {
	if err := s.ready(ctx); err != nil {
		return domain.InterviewToken{}, err
	}
	return getTokenBySecret(ctx, s.sqlDB, strings.TrimSpace(secret))
}

func getTokenBySecret(ctx context.Context, q sqlQueryer, secret string) (domain.InterviewToken, error) {
	if secret == "" {
		return domain.InterviewToken{}, storage.ErrNotFound
	}
	row := q.QueryRowContext(ctx, `SELECT `+tokenColumns+` FROM interview_tokens WHERE secret = ?`, secret)
	token, err := scanToken(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.InterviewToken{}, storage.ErrNotFound
		}
		return domain.InterviewToken{}, fmt.Errorf("get token: %w", err)
	}
	return token, nil
}

// ListTokensByCandidate lists a candidate's tokens, oldest first.
func (s *Store) ListTokensByCandidate(ctx context.Context, candidateID string) ([]domain.InterviewToken, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+tokenColumns+` FROM interview_tokens
WHERE candidate_id = ?
ORDER BY issued_at ASC, id ASC`, strings.TrimSpace(candidateID))
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []domain.InterviewToken
	for rows.Next() {
		token, err := scanToken(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return tokens, nil
}

// MarkTokenCompleted flags the candidate's interview token completed.
// Repeating it is a no-op.
func (s *Store) MarkTokenCompleted(ctx context.Context, candidateID string, at time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	candidateID = strings.TrimSpace(candidateID)
	if candidateID == "" {
		return fmt.Errorf("candidate id is required")
	}
	return markTokenCompleted(ctx, s.sqlDB, candidateID, at)
}

// markTokenCompleted targets the redeemed token when there is one, else the
// latest issued. An unredeemed target is consumed so it cannot open a
// second session.
func markTokenCompleted(ctx context.Context, q sqlQueryer, candidateID string, at time.Time) error {
	res, err := q.ExecContext(ctx, `
UPDATE interview_tokens SET
	interview_completed = 1,
	redeemed_at = COALESCE(redeemed_at, ?)
WHERE id = (
	SELECT id FROM interview_tokens
	WHERE candidate_id = ?
	ORDER BY (redeemed_at IS NULL) ASC, issued_at DESC, id DESC
	LIMIT 1
)`, toMillis(at), candidateID)
	if err != nil {
		return fmt.Errorf("mark token completed: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("mark token completed rows: %w", err)
	} else if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanToken(scan scanner) (domain.InterviewToken, error) {
	var (
		token               domain.InterviewToken
		issuedAt, expiresAt int64
		redeemedAt          sql.NullInt64
		completed           int
	)
	if err := scan(
		&token.ID,
		&token.CandidateID,
		&token.Secret,
		&issuedAt,
		&expiresAt,
		&redeemedAt,
		&completed,
	); err != nil {
		return domain.InterviewToken{}, err
	}
	token.IssuedAt = fromMillis(issuedAt)
	token.ExpiresAt = fromMillis(expiresAt)
	token.RedeemedAt = timePtr(redeemedAt)
	token.InterviewCompleted = completed != 0
	return token, nil
}
