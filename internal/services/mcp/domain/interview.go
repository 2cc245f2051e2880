package domain

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AccessResult reports an issued interview credential.
type AccessResult struct {
	CandidateID   string `json:"candidate_id"`
	TokenID       string `json:"token_id"`
	InterviewLink string `json:"interview_link"`
	ExpiresAt     string `json:"expires_at"`
}

// IssueInterviewAccessTool defines the interview link issuance tool.
func IssueInterviewAccessTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "issue_interview_access",
		Description: "Issues a fresh interview link for a selected candidate, superseding earlier links",
	}
}

// IssueInterviewAccessHandler executes link issuance.
func IssueInterviewAccessHandler(pipeline Pipeline) mcp.ToolHandlerFor[CandidateInput, AccessResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CandidateInput) (*mcp.CallToolResult, AccessResult, error) {
		grant, err := pipeline.IssueInterviewAccess(ctx, input.CandidateID)
		if err != nil {
			return nil, AccessResult{}, fmt.Errorf("issue interview access failed: %w", err)
		}
		return nil, AccessResult{
			CandidateID:   grant.Token.CandidateID,
			TokenID:       grant.Token.ID,
			InterviewLink: grant.InterviewLink,
			ExpiresAt:     formatTime(grant.Token.ExpiresAt),
		}, nil
	}
}

// RedeemInterviewAccessInput carries the secret from an interview link.
type RedeemInterviewAccessInput struct {
	Token string `json:"token" jsonschema:"secret from the interview link"`
}

// RedemptionResult reports a redeemed interview link.
type RedemptionResult struct {
	CandidateID string            `json:"candidate_id"`
	Stage       string            `json:"stage"`
	Scheduled   bool              `json:"scheduled"`
	Audit       *AuditEntryResult `json:"audit,omitempty"`
}

// RedeemInterviewAccessTool defines the link redemption tool.
func RedeemInterviewAccessTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "redeem_interview_access",
		Description: "Redeems an interview link once and schedules the interview",
	}
}

// RedeemInterviewAccessHandler executes a redemption.
func RedeemInterviewAccessHandler(pipeline Pipeline) mcp.ToolHandlerFor[RedeemInterviewAccessInput, RedemptionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RedeemInterviewAccessInput) (*mcp.CallToolResult, RedemptionResult, error) {
		redemption, err := pipeline.RedeemInterviewAccess(ctx, input.Token)
		if err != nil {
			return nil, RedemptionResult{}, fmt.Errorf("redeem interview access failed: %w", err)
		}
		return nil, RedemptionResult{
			CandidateID: redemption.CandidateID,
			Stage:       string(redemption.Candidate.Stage),
			Scheduled:   redemption.Scheduled,
			Audit:       auditEntryPtr(redemption.Audit),
		}, nil
	}
}

// CompleteInterviewInput closes a scheduled interview.
type CompleteInterviewInput struct {
	CandidateID string `json:"candidate_id" jsonschema:"candidate identifier"`
	Notes       string `json:"notes,omitempty" jsonschema:"interviewer notes for the audit log"`
}

// CompleteInterviewTool defines the interview completion tool.
func CompleteInterviewTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "complete_interview",
		Description: "Moves a scheduled candidate to interviewed and queues the completion email",
	}
}

// CompleteInterviewHandler executes an interview completion.
func CompleteInterviewHandler(pipeline Pipeline) mcp.ToolHandlerFor[CompleteInterviewInput, TransitionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CompleteInterviewInput) (*mcp.CallToolResult, TransitionResult, error) {
		result, err := pipeline.CompleteInterview(ctx, input.CandidateID, input.Notes)
		if err != nil {
			return nil, TransitionResult{}, fmt.Errorf("complete interview failed: %w", err)
		}
		return nil, transitionResult(result), nil
	}
}

// MarkInterviewCompletedResult acknowledges the token flag.
type MarkInterviewCompletedResult struct {
	CandidateID string `json:"candidate_id"`
	Marked      bool   `json:"marked"`
}

// MarkInterviewCompletedTool defines the token completion flag tool.
func MarkInterviewCompletedTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "mark_interview_completed",
		Description: "Flags the candidate's redeemed interview token as completed without changing stage",
	}
}

// MarkInterviewCompletedHandler executes the token completion flag.
func MarkInterviewCompletedHandler(pipeline Pipeline) mcp.ToolHandlerFor[CandidateInput, MarkInterviewCompletedResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CandidateInput) (*mcp.CallToolResult, MarkInterviewCompletedResult, error) {
		if err := pipeline.MarkInterviewCompleted(ctx, input.CandidateID); err != nil {
			return nil, MarkInterviewCompletedResult{}, fmt.Errorf("mark interview completed failed: %w", err)
		}
		return nil, MarkInterviewCompletedResult{CandidateID: input.CandidateID, Marked: true}, nil
	}
}
