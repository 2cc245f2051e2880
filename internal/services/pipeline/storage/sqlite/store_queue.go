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

const notificationColumns = `
	id, candidate_id, kind, payload_json, status, scheduled_for, retry_count,
	last_error, sent_at, created_at, updated_at`

// EnqueueNotification appends one pending notification task.
func (s *Store) EnqueueNotification(ctx context.Context, task domain.NotificationTask) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return insertNotification(ctx, s.sqlDB, task)
}

func insertNotification(ctx context.Context, q sqlQueryer, task domain.NotificationTask) error {
	task.ID = strings.TrimSpace(task.ID)
	task.CandidateID = strings.TrimSpace(task.CandidateID)
	if task.ID == "" || task.CandidateID == "" {
		return fmt.Errorf("task id and candidate id are required")
	}
	if task.Status != domain.TaskPending || task.RetryCount != 0 {
		return fmt.Errorf("task %s must be enqueued pending with no retries", task.ID)
	}
	if len(task.Payload) == 0 {
		return fmt.Errorf("task %s payload is required", task.ID)
	}

	_, err := q.ExecContext(ctx, `
INSERT INTO notification_queue (`+notificationColumns+`
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.CandidateID,
		string(task.Kind),
		string(task.Payload),
		string(task.Status),
		toMillis(task.ScheduledFor),
		task.RetryCount,
		task.LastError,
		nullMillis(task.SentAt),
		toMillis(task.CreatedAt),
		toMillis(task.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) || isForeignKeyConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// ClaimDueNotifications leases up to req.Limit due tasks to req.Owner,
// oldest-due first. A task is due when it is pending, scheduled at or before
// req.Now, under req.MaxRetries, and not leased to a live owner.
func (s *Store) ClaimDueNotifications(ctx context.Context, req storage.ClaimRequest) ([]domain.NotificationTask, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	req.Owner = strings.TrimSpace(req.Owner)
	if req.Owner == "" {
		return nil, fmt.Errorf("lease owner is required")
	}
	if req.Limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	if req.MaxRetries <= 0 {
		return nil, fmt.Errorf("max retries must be greater than zero")
	}
	if req.LeaseTTL <= 0 {
		return nil, fmt.Errorf("lease ttl must be greater than zero")
	}
	now := toMillis(req.Now)
	leaseExpiresAt := toMillis(req.Now.Add(req.LeaseTTL))

	var claimed []domain.NotificationTask
	err := s.inTx(ctx, "claim notifications", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
SELECT id FROM notification_queue
WHERE status = 'pending'
	AND scheduled_for <= ?
	AND retry_count < ?
	AND (lease_expires_at IS NULL OR lease_expires_at <= ?)
ORDER BY scheduled_for ASC, created_at ASC, id ASC
LIMIT ?`, now, req.MaxRetries, now, req.Limit)
		if err != nil {
			return fmt.Errorf("select due notifications: %w", err)
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				_ = rows.Close()
				return fmt.Errorf("scan due notification: %w", err)
			}
			ids = append(ids, id)
		}
		if err := rows.Close(); err != nil {
			return fmt.Errorf("close due notifications: %w", err)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate due notifications: %w", err)
		}

		for _, id := range ids {
			res, err := tx.ExecContext(ctx, `
UPDATE notification_queue SET lease_owner = ?, lease_expires_at = ?, updated_at = ?
WHERE id = ?
	AND status = 'pending'
	AND retry_count < ?
	AND (lease_expires_at IS NULL OR lease_expires_at <= ?)`,
				req.Owner, leaseExpiresAt, now, id, req.MaxRetries, now)
			if err != nil {
				return fmt.Errorf("lease notification %s: %w", id, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("lease notification %s rows: %w", id, err)
			}
			if n == 0 {
				continue
			}
			task, err := getNotification(ctx, tx, id)
			if err != nil {
				return err
			}
			claimed = append(claimed, task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// RenewNotificationLease pushes the lease of a task still held by
// renewal.Owner to renewal.Now + renewal.LeaseTTL.
func (s *Store) RenewNotificationLease(ctx context.Context, renewal storage.LeaseRenewal) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	renewal.TaskID = strings.TrimSpace(renewal.TaskID)
	renewal.Owner = strings.TrimSpace(renewal.Owner)
	if renewal.TaskID == "" || renewal.Owner == "" {
		return fmt.Errorf("task id and lease owner are required")
	}
	if renewal.LeaseTTL <= 0 {
		return fmt.Errorf("lease ttl must be greater than zero")
	}
	now := toMillis(renewal.Now)
	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE notification_queue SET lease_expires_at = ?, updated_at = ?
WHERE id = ?
	AND status = 'pending'
	AND lease_owner = ?
	AND lease_expires_at > ?`,
		toMillis(renewal.Now.Add(renewal.LeaseTTL)), now, renewal.TaskID, renewal.Owner, now)
	if err != nil {
		return fmt.Errorf("renew notification lease: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("renew notification lease rows: %w", err)
	}
	if n == 0 {
		if _, err := getNotification(ctx, s.sqlDB, renewal.TaskID); err != nil {
			return err
		}
		return storage.ErrLeaseLost
	}
	return nil
}

// CompleteNotificationAttempt records one dispatch outcome for a task leased
// to result.Owner and releases the lease.
func (s *Store) CompleteNotificationAttempt(ctx context.Context, result storage.AttemptResult) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result.TaskID = strings.TrimSpace(result.TaskID)
	result.Owner = strings.TrimSpace(result.Owner)
	if result.TaskID == "" || result.Owner == "" {
		return fmt.Errorf("task id and lease owner are required")
	}
	next := result.Transition
	switch next.Status {
	case domain.TaskPending, domain.TaskSent, domain.TaskFailed:
	default:
		return fmt.Errorf("task status %q is invalid", next.Status)
	}

	var sentAt sql.NullInt64
	if next.Status == domain.TaskSent {
		sentAt = sql.NullInt64{Int64: toMillis(result.At), Valid: true}
	}
	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE notification_queue SET
	status = ?,
	retry_count = ?,
	last_error = ?,
	sent_at = COALESCE(?, sent_at),
	lease_owner = '',
	lease_expires_at = NULL,
	updated_at = ?
WHERE id = ? AND status = 'pending' AND lease_owner = ?`,
		string(next.Status),
		next.RetryCount,
		next.LastError,
		sentAt,
		toMillis(result.At),
		result.TaskID,
		result.Owner,
	)
	if err != nil {
		return fmt.Errorf("complete notification attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete notification attempt rows: %w", err)
	}
	if n == 0 {
		if _, err := getNotification(ctx, s.sqlDB, result.TaskID); err != nil {
			return err
		}
		return storage.ErrLeaseLost
	}
	return nil
}

// GetNotification loads one task.
func (s *Store) GetNotification(ctx context.Context, taskID string) (domain.NotificationTask, error) {
	if err := s.ready(ctx); err != nil {
		return domain.NotificationTask{}, err
	}
	return getNotification(ctx, s.sqlDB, strings.TrimSpace(taskID))
}

func getNotification(ctx context.Context, q sqlQueryer, taskID string) (domain.NotificationTask, error) {
	row := q.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notification_queue WHERE id = ?`, taskID)
	task, err := scanNotification(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotificationTask{}, storage.ErrNotFound
		}
		return domain.NotificationTask{}, fmt.Errorf("get notification: %w", err)
	}
	return task, nil
}

// ListNotificationsByCandidate lists a candidate's tasks in creation order.
func (s *Store) ListNotificationsByCandidate(ctx context.Context, candidateID string) ([]domain.NotificationTask, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+notificationColumns+` FROM notification_queue
WHERE candidate_id = ?
ORDER BY created_at ASC, id ASC`, strings.TrimSpace(candidateID))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var tasks []domain.NotificationTask
	for rows.Next() {
		task, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return tasks, nil
}

func scanNotification(scan scanner) (domain.NotificationTask, error) {
	var (
		task                               domain.NotificationTask
		kind, payload, status              string
		scheduledFor, createdAt, updatedAt int64
		sentAt                             sql.NullInt64
	)
	if err := scan(
		&task.ID,
		&task.CandidateID,
		&kind,
		&payload,
		&status,
		&scheduledFor,
		&task.RetryCount,
		&task.LastError,
		&sentAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.NotificationTask{}, err
	}
	task.Kind = domain.Kind(kind)
	task.Payload = []byte(payload)
	task.Status = domain.TaskStatus(status)
	task.ScheduledFor = fromMillis(scheduledFor)
	task.SentAt = timePtr(sentAt)
	task.CreatedAt = fromMillis(createdAt)
	task.UpdatedAt = fromMillis(updatedAt)
	return task, nil
}
