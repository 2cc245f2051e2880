package domain

import (
	"context"
	"fmt"

	workerapp "github.com/louisbranch/hiring.space/internal/services/worker/app"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	defaultAttemptLimit = 20
	maxAttemptLimit     = 200
)

// NotificationResult is one queued notification.
type NotificationResult struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Status       string `json:"status"`
	ScheduledFor string `json:"scheduled_for"`
	RetryCount   int    `json:"retry_count"`
	LastError    string `json:"last_error,omitempty"`
	SentAt       string `json:"sent_at,omitempty"`
}

// NotificationsResult lists a candidate's notifications.
type NotificationsResult struct {
	CandidateID   string               `json:"candidate_id"`
	Notifications []NotificationResult `json:"notifications"`
}

// ListNotificationsTool defines the notification listing tool.
func ListNotificationsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_notifications",
		Description: "Lists notification tasks queued for a candidate with their delivery state",
	}
}

// ListNotificationsHandler executes a notification listing.
func ListNotificationsHandler(pipeline Pipeline) mcp.ToolHandlerFor[CandidateInput, NotificationsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CandidateInput) (*mcp.CallToolResult, NotificationsResult, error) {
		tasks, err := pipeline.ListNotifications(ctx, input.CandidateID)
		if err != nil {
			return nil, NotificationsResult{}, fmt.Errorf("list notifications failed: %w", err)
		}
		result := NotificationsResult{CandidateID: input.CandidateID, Notifications: make([]NotificationResult, 0, len(tasks))}
		for _, task := range tasks {
			item := NotificationResult{
				ID:           task.ID,
				Kind:         string(task.Kind),
				Status:       string(task.Status),
				ScheduledFor: formatTime(task.ScheduledFor),
				RetryCount:   task.RetryCount,
				LastError:    task.LastError,
			}
			if task.SentAt != nil {
				item.SentAt = formatTime(*task.SentAt)
			}
			result.Notifications = append(result.Notifications, item)
		}
		return nil, result, nil
	}
}

// DrainInput takes no arguments.
type DrainInput struct{}

// DrainNotificationsTool defines the manual drain tool.
func DrainNotificationsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "drain_notifications",
		Description: "Runs one notification drain pass now and reports what it dispatched",
	}
}

// DrainNotificationsHandler executes one drain pass.
func DrainNotificationsHandler(drainer Drainer) mcp.ToolHandlerFor[DrainInput, workerapp.DrainResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ DrainInput) (*mcp.CallToolResult, workerapp.DrainResult, error) {
		result, err := drainer.Drain(ctx)
		if err != nil {
			return nil, workerapp.DrainResult{}, fmt.Errorf("drain notifications failed: %w", err)
		}
		return nil, result, nil
	}
}

// DeliveryAttemptsInput filters the attempt log.
type DeliveryAttemptsInput struct {
	TaskID string `json:"task_id,omitempty" jsonschema:"only attempts for this notification task"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum attempts to return, newest first"`
}

// DeliveryAttemptResult is one recorded delivery attempt.
type DeliveryAttemptResult struct {
	TaskID     string `json:"task_id"`
	Kind       string `json:"kind"`
	Owner      string `json:"owner"`
	Outcome    string `json:"outcome"`
	RetryCount int    `json:"retry_count"`
	LastError  string `json:"last_error,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// DeliveryAttemptsResult lists delivery attempts newest first.
type DeliveryAttemptsResult struct {
	Attempts []DeliveryAttemptResult `json:"attempts"`
}

// DeliveryAttemptsTool defines the attempt log tool.
func DeliveryAttemptsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_delivery_attempts",
		Description: "Lists recorded email delivery attempts, newest first",
	}
}

// DeliveryAttemptsHandler executes an attempt log query.
func DeliveryAttemptsHandler(attempts AttemptLister) mcp.ToolHandlerFor[DeliveryAttemptsInput, DeliveryAttemptsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DeliveryAttemptsInput) (*mcp.CallToolResult, DeliveryAttemptsResult, error) {
		limit := input.Limit
		if limit <= 0 {
			limit = defaultAttemptLimit
		}
		if limit > maxAttemptLimit {
			limit = maxAttemptLimit
		}
		records, err := attempts.ListAttempts(ctx, input.TaskID, limit)
		if err != nil {
			return nil, DeliveryAttemptsResult{}, fmt.Errorf("list delivery attempts failed: %w", err)
		}
		result := DeliveryAttemptsResult{Attempts: make([]DeliveryAttemptResult, 0, len(records))}
		for _, record := range records {
			result.Attempts = append(result.Attempts, DeliveryAttemptResult{
				TaskID:     record.TaskID,
				Kind:       record.Kind,
				Owner:      record.Owner,
				Outcome:    record.Outcome,
				RetryCount: record.RetryCount,
				LastError:  record.LastError,
				CreatedAt:  formatTime(record.CreatedAt),
			})
		}
		return nil, result, nil
	}
}
