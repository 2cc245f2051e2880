package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/hiring.space/internal/services/pipeline/domain"
)

// ListAuditEntries pages through a candidate's audit log in timestamp order.
// Entries are appended with strictly increasing timestamps, so id order and
// timestamp order agree and afterID works as a keyset cursor.
func (s *Store) ListAuditEntries(ctx context.Context, candidateID string, afterID int64, limit int) ([]domain.AuditEntry, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	candidateID = strings.TrimSpace(candidateID)
	if candidateID == "" {
		return nil, fmt.Errorf("candidate id is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, candidate_id, from_stage, to_stage, automation_triggered, notes, created_at
FROM audit_log
WHERE candidate_id = ? AND id > ?
ORDER BY created_at ASC, id ASC
LIMIT ?`, candidateID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0, limit)
	for rows.Next() {
		var (
			entry     domain.AuditEntry
			from, to  string
			automated int
			createdAt int64
		)
		if err := rows.Scan(&entry.ID, &entry.CandidateID, &from, &to, &automated, &entry.Notes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.FromStage = domain.Stage(from)
		entry.ToStage = domain.Stage(to)
		entry.AutomationTriggered = automated != 0
		entry.Timestamp = fromMillis(createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
