package domain

import (
	"context"
	"fmt"

	"github.com/louisbranch/hiring.space/internal/services/pipeline/app"
	pipelinedomain "github.com/louisbranch/hiring.space/internal/services/pipeline/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterCandidateInput represents the MCP tool input for candidate registration.
type RegisterCandidateInput struct {
	Name              string `json:"name" jsonschema:"candidate full name"`
	Email             string `json:"email" jsonschema:"candidate email address"`
	JobTitle          string `json:"job_title" jsonschema:"job the candidate applied for"`
	ResumeText        string `json:"resume_text,omitempty" jsonschema:"plain-text resume used for scoring"`
	Source            string `json:"source,omitempty" jsonschema:"provenance tag (real, test, demo); defaults to real"`
	AutomationEnabled *bool  `json:"automation_enabled,omitempty" jsonschema:"override whether notifications are sent for this candidate"`
}

// CandidateInput identifies one candidate.
type CandidateInput struct {
	CandidateID string `json:"candidate_id" jsonschema:"candidate identifier"`
}

// RegisterCandidateTool defines the candidate registration tool.
func RegisterCandidateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "register_candidate",
		Description: "Registers a candidate in the screening stage",
	}
}

// RegisterCandidateHandler executes a candidate registration.
func RegisterCandidateHandler(pipeline Pipeline) mcp.ToolHandlerFor[RegisterCandidateInput, CandidateResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RegisterCandidateInput) (*mcp.CallToolResult, CandidateResult, error) {
		candidate, err := pipeline.RegisterCandidate(ctx, pipelinedomain.Registration{
			Name:       input.Name,
			Email:      input.Email,
			JobTitle:   input.JobTitle,
			ResumeText: input.ResumeText,
			Source:     input.Source,
			Automation: input.AutomationEnabled,
		})
		if err != nil {
			return nil, CandidateResult{}, fmt.Errorf("register candidate failed: %w", err)
		}
		return nil, candidateResult(candidate), nil
	}
}

// GetCandidateTool defines the candidate lookup tool.
func GetCandidateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_candidate",
		Description: "Returns a candidate's stage and scores",
	}
}

// GetCandidateHandler executes a candidate lookup.
func GetCandidateHandler(pipeline Pipeline) mcp.ToolHandlerFor[CandidateInput, CandidateResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CandidateInput) (*mcp.CallToolResult, CandidateResult, error) {
		candidate, err := pipeline.GetCandidate(ctx, input.CandidateID)
		if err != nil {
			return nil, CandidateResult{}, fmt.Errorf("get candidate failed: %w", err)
		}
		return nil, candidateResult(candidate), nil
	}
}

// ScoreAndGateInput represents the MCP tool input for screening a candidate.
type ScoreAndGateInput struct {
	CandidateID     string `json:"candidate_id" jsonschema:"candidate identifier"`
	SkillsMatch     *int   `json:"skills_match,omitempty" jsonschema:"manual skills sub-score 0-100; all three or none"`
	ExperienceMatch *int   `json:"experience_match,omitempty" jsonschema:"manual experience sub-score 0-100"`
	EducationMatch  *int   `json:"education_match,omitempty" jsonschema:"manual education sub-score 0-100"`
}

// ScoreAndGateResult reports the gate decision.
type ScoreAndGateResult struct {
	Candidate      CandidateResult   `json:"candidate"`
	CompositeScore int               `json:"composite_score"`
	Decision       string            `json:"decision"`
	Fallback       bool              `json:"fallback"`
	Applied        bool              `json:"applied"`
	InterviewLink  string            `json:"interview_link,omitempty"`
	Audit          *AuditEntryResult `json:"audit,omitempty"`
}

// ScoreAndGateTool defines the screening tool.
func ScoreAndGateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "score_and_gate",
		Description: "Scores a screening candidate and selects or rejects them; omitted sub-scores are requested from the scorer",
	}
}

// ScoreAndGateHandler executes a screening.
func ScoreAndGateHandler(pipeline Pipeline) mcp.ToolHandlerFor[ScoreAndGateInput, ScoreAndGateResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ScoreAndGateInput) (*mcp.CallToolResult, ScoreAndGateResult, error) {
		scores, err := manualScores(input)
		if err != nil {
			return nil, ScoreAndGateResult{}, err
		}
		outcome, err := pipeline.ScoreAndGate(ctx, app.ScoreInput{CandidateID: input.CandidateID, Scores: scores})
		if err != nil {
			return nil, ScoreAndGateResult{}, fmt.Errorf("score and gate failed: %w", err)
		}
		return nil, ScoreAndGateResult{
			Candidate:      candidateResult(outcome.Candidate),
			CompositeScore: outcome.Gate.Composite,
			Decision:       string(outcome.Gate.Decision),
			Fallback:       outcome.Fallback,
			Applied:        outcome.Applied,
			InterviewLink:  outcome.InterviewLink,
			Audit:          auditEntryPtr(outcome.Audit),
		}, nil
	}
}

func manualScores(input ScoreAndGateInput) (*pipelinedomain.SubScores, error) {
	provided := 0
	for _, v := range []*int{input.SkillsMatch, input.ExperienceMatch, input.EducationMatch} {
		if v != nil {
			provided++
		}
	}
	switch provided {
	case 0:
		return nil, nil
	case 3:
		return &pipelinedomain.SubScores{
			Skills:     *input.SkillsMatch,
			Experience: *input.ExperienceMatch,
			Education:  *input.EducationMatch,
		}, nil
	default:
		return nil, fmt.Errorf("provide all three sub-scores or none")
	}
}

// TransitionInput represents the MCP tool input for a manual stage change.
type TransitionInput struct {
	CandidateID string `json:"candidate_id" jsonschema:"candidate identifier"`
	ToStage     string `json:"to_stage" jsonschema:"target stage (selected, rejected, interview_scheduled, interviewed)"`
	Notes       string `json:"notes,omitempty" jsonschema:"audit note"`
}

// TransitionResult reports a stage change.
type TransitionResult struct {
	Candidate     CandidateResult   `json:"candidate"`
	Applied       bool              `json:"applied"`
	InterviewLink string            `json:"interview_link,omitempty"`
	Audit         *AuditEntryResult `json:"audit,omitempty"`
}

// TransitionTool defines the manual transition tool.
func TransitionTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "transition_candidate",
		Description: "Moves a candidate along one legal pipeline edge with its side effects; repeating an applied move is a no-op",
	}
}

// TransitionHandler executes a manual transition.
func TransitionHandler(pipeline Pipeline) mcp.ToolHandlerFor[TransitionInput, TransitionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TransitionInput) (*mcp.CallToolResult, TransitionResult, error) {
		stage, err := pipelinedomain.ParseStage(input.ToStage)
		if err != nil {
			return nil, TransitionResult{}, err
		}
		result, err := pipeline.Transition(ctx, app.TransitionInput{
			CandidateID: input.CandidateID,
			To:          stage,
			Notes:       input.Notes,
		})
		if err != nil {
			return nil, TransitionResult{}, fmt.Errorf("transition failed: %w", err)
		}
		return nil, transitionResult(result), nil
	}
}

func transitionResult(result app.TransitionResult) TransitionResult {
	return TransitionResult{
		Candidate:     candidateResult(result.Candidate),
		Applied:       result.Applied,
		InterviewLink: result.InterviewLink,
		Audit:         auditEntryPtr(result.Audit),
	}
}

// AuditTrailResult lists a candidate's audit entries oldest first.
type AuditTrailResult struct {
	CandidateID string             `json:"candidate_id"`
	Entries     []AuditEntryResult `json:"entries"`
}

// AuditTrailTool defines the audit query tool.
func AuditTrailTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "audit_trail",
		Description: "Lists every stage transition recorded for a candidate, oldest first",
	}
}

// AuditTrailHandler executes an audit query.
func AuditTrailHandler(pipeline Pipeline) mcp.ToolHandlerFor[CandidateInput, AuditTrailResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CandidateInput) (*mcp.CallToolResult, AuditTrailResult, error) {
		entries, err := pipeline.CollectAuditTrail(ctx, input.CandidateID)
		if err != nil {
			return nil, AuditTrailResult{}, fmt.Errorf("audit trail failed: %w", err)
		}
		result := AuditTrailResult{CandidateID: input.CandidateID, Entries: make([]AuditEntryResult, 0, len(entries))}
		for _, entry := range entries {
			result.Entries = append(result.Entries, auditEntryResult(entry))
		}
		return nil, result, nil
	}
}
