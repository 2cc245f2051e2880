package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const candidateURIPrefix = "candidate://"

// CandidateRecord is the candidate resource body.
type CandidateRecord struct {
	Candidate CandidateResult    `json:"candidate"`
	Audit     []AuditEntryResult `json:"audit"`
}

// CandidateResourceTemplate defines the readable candidate record.
func CandidateResourceTemplate() *mcp.ResourceTemplate {
	return &mcp.ResourceTemplate{
		Name:        "candidate",
		Title:       "Candidate",
		Description: "Candidate stage, scores and audit trail. URI format: candidate://{candidate_id}",
		MIMEType:    "application/json",
		URITemplate: "candidate://{candidate_id}",
	}
}

// CandidateResourceHandler reads one candidate record.
func CandidateResourceHandler(pipeline Pipeline) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if req == nil || req.Params == nil {
			return nil, fmt.Errorf("resource uri is required")
		}
		uri := req.Params.URI
		candidateID, err := parseCandidateURI(uri)
		if err != nil {
			return nil, err
		}
		candidate, err := pipeline.GetCandidate(ctx, candidateID)
		if err != nil {
			return nil, fmt.Errorf("get candidate failed: %w", err)
		}
		entries, err := pipeline.CollectAuditTrail(ctx, candidateID)
		if err != nil {
			return nil, fmt.Errorf("audit trail failed: %w", err)
		}
		record := CandidateRecord{Candidate: candidateResult(candidate), Audit: make([]AuditEntryResult, 0, len(entries))}
		for _, entry := range entries {
			record.Audit = append(record.Audit, auditEntryResult(entry))
		}
		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal candidate record: %w", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      uri,
					MIMEType: "application/json",
					Text:     string(data),
				},
			},
		}, nil
	}
}

func parseCandidateURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, candidateURIPrefix) {
		return "", fmt.Errorf("invalid candidate uri %q", uri)
	}
	candidateID := strings.Trim(strings.TrimPrefix(uri, candidateURIPrefix), "/")
	if candidateID == "" || strings.Contains(candidateID, "/") {
		return "", fmt.Errorf("invalid candidate uri %q", uri)
	}
	return candidateID, nil
}
