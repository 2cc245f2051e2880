package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/hiring.space/internal/services/pipeline/domain"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/storage"
)

const candidateColumns = `
	id, name, email, job_title, resume_text, source, automation_enabled, stage,
	skills_match, experience_match, education_match, composite_score, created_at, updated_at`

// CreateCandidate inserts a new candidate record.
func (s *Store) CreateCandidate(ctx context.Context, candidate domain.Candidate) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	candidate.ID = strings.TrimSpace(candidate.ID)
	if candidate.ID == "" {
		return fmt.Errorf("candidate id is required")
	}
	if !candidate.Stage.Valid() {
		return fmt.Errorf("candidate stage %q is invalid", candidate.Stage)
	}

	var skills, experience, education, composite sql.NullInt64
	if candidate.Scores != nil {
		skills = sql.NullInt64{Int64: int64(candidate.Scores.Skills), Valid: true}
		experience = sql.NullInt64{Int64: int64(candidate.Scores.Experience), Valid: true}
		education = sql.NullInt64{Int64: int64(candidate.Scores.Education), Valid: true}
	}
	if candidate.CompositeScore != nil {
		composite = sql.NullInt64{Int64: int64(*candidate.CompositeScore), Valid: true}
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO candidates (`+candidateColumns+`
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		candidate.ID,
		candidate.Name,
		candidate.Email,
		candidate.JobTitle,
		candidate.ResumeText,
		string(candidate.Source),
		boolInt(candidate.AutomationEnabled),
		string(candidate.Stage),
		skills,
		experience,
		education,
		composite,
		toMillis(candidate.CreatedAt),
		toMillis(candidate.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("create candidate: %w", err)
	}
	return nil
}

// GetCandidate loads one candidate record.
func (s *Store) GetCandidate(ctx context.Context, candidateID string) (domain.Candidate, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Candidate{}, err
	}
	return getCandidate(ctx, s.sqlDB, strings.TrimSpace(candidateID))
}

func getCandidate(ctx context.Context, q sqlQueryer, candidateID string) (domain.Candidate, error) {
	if candidateID == "" {
		return domain.Candidate{}, fmt.Errorf("candidate id is required")
	}
	row := q.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = ?`, candidateID)
	candidate, err := scanCandidate(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Candidate{}, storage.ErrNotFound
		}
		return domain.Candidate{}, fmt.Errorf("get candidate: %w", err)
	}
	return candidate, nil
}

func scanCandidate(scan scanner) (domain.Candidate, error) {
	var (
		candidate                                domain.Candidate
		source, stage                            string
		automation                               int
		skills, experience, education, composite sql.NullInt64
		createdAt, updatedAt                     int64
	)
	if err := scan(
		&candidate.ID,
		&candidate.Name,
		&candidate.Email,
		&candidate.JobTitle,
		&candidate.ResumeText,
		&source,
		&automation,
		&stage,
		&skills,
		&experience,
		&education,
		&composite,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.Candidate{}, err
	}
	candidate.Source = domain.Source(source)
	candidate.Stage = domain.Stage(stage)
	candidate.AutomationEnabled = automation != 0
	if skills.Valid && experience.Valid && education.Valid {
		candidate.Scores = &domain.SubScores{
			Skills:     int(skills.Int64),
			Experience: int(experience.Int64),
			Education:  int(education.Int64),
		}
	}
	if composite.Valid {
		value := int(composite.Int64)
		candidate.CompositeScore = &value
	}
	candidate.CreatedAt = fromMillis(createdAt)
	candidate.UpdatedAt = fromMillis(updatedAt)
	return candidate, nil
}
