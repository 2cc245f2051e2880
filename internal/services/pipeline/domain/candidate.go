package domain

import (
	"net/mail"
	"strings"
	"time"

	apperrors "github.com/louisbranch/hiring.space/internal/platform/errors"
)

// Source tags where a candidate record came from.
type Source string

const (
	SourceReal Source = "real"
	SourceTest Source = "test"
	SourceDemo Source = "demo"
)

// ParseSource normalizes a source tag; empty means real.
func ParseSource(raw string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SourceReal:
		return SourceReal, nil
	case SourceTest:
		return SourceTest, nil
	case SourceDemo:
		return SourceDemo, nil
	default:
		return "", apperrors.Newf(apperrors.CodeInvalidArgument, "unknown source %q", raw)
	}
}

// AutomatesByDefault reports whether outbound automation fires for s unless
// overridden at registration.
func (s Source) AutomatesByDefault() bool {
	return s == SourceReal
}

// Candidate is one applicant moving through the pipeline.
type Candidate struct {
	ID         string
	Name       string
	Email      string
	JobTitle   string
	ResumeText string
	Source     Source
	// AutomationEnabled is resolved once at registration and gates every
	// outbound notification for the candidate.
	AutomationEnabled bool
	Stage             Stage
	Scores            *SubScores
	CompositeScore    *int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Recipient returns the email addressee for the candidate.
func (c Candidate) Recipient() Recipient {
	return Recipient{Name: c.Name, Email: c.Email}
}

// Registration is the input for creating a candidate.
type Registration struct {
	Name       string
	Email      string
	JobTitle   string
	ResumeText string
	Source     string
	// Automation overrides the source default when set.
	Automation *bool
}

// NewCandidate validates a registration and builds a screening-stage record.
func NewCandidate(id string, reg Registration, now time.Time) (Candidate, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Candidate{}, apperrors.New(apperrors.CodeInvalidArgument, "candidate id is required")
	}
	name := strings.TrimSpace(reg.Name)
	if name == "" {
		return Candidate{}, apperrors.New(apperrors.CodeInvalidArgument, "candidate name is required")
	}
	email, err := normalizeEmail(reg.Email)
	if err != nil {
		return Candidate{}, err
	}
	jobTitle := strings.TrimSpace(reg.JobTitle)
	if jobTitle == "" {
		return Candidate{}, apperrors.New(apperrors.CodeInvalidArgument, "job title is required")
	}
	source, err := ParseSource(reg.Source)
	if err != nil {
		return Candidate{}, err
	}
	automation := source.AutomatesByDefault()
	if reg.Automation != nil {
		automation = *reg.Automation
	}

	now = now.UTC()
	return Candidate{
		ID:                id,
		Name:              name,
		Email:             email,
		JobTitle:          jobTitle,
		ResumeText:        strings.TrimSpace(reg.ResumeText),
		Source:            source,
		AutomationEnabled: automation,
		Stage:             StageScreening,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperrors.New(apperrors.CodeInvalidArgument, "candidate email is required")
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Name != "" {
		return "", apperrors.Newf(apperrors.CodeInvalidArgument, "candidate email %q is invalid", raw)
	}
	return strings.ToLower(addr.Address), nil
}
