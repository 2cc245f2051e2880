package domain

import (
	"strings"

	apperrors "github.com/louisbranch/hiring.space/internal/platform/errors"
)

// Stage is a candidate's position in the recruitment lifecycle.
type Stage string

const (
	StageScreening          Stage = "screening"
	StageSelected           Stage = "selected"
	StageRejected           Stage = "rejected"
	StageInterviewScheduled Stage = "interview_scheduled"
	StageInterviewed        Stage = "interviewed"
)

var stageEdges = map[Stage][]Stage{
	StageScreening:          {StageSelected, StageRejected},
	StageSelected:           {StageInterviewScheduled},
	StageInterviewScheduled: {StageInterviewed},
	StageRejected:           nil,
	StageInterviewed:        nil,
}

// ParseStage normalizes and validates a stage name.
func ParseStage(raw string) (Stage, error) {
	stage := Stage(strings.ToLower(strings.TrimSpace(raw)))
	if !stage.Valid() {
		return "", apperrors.Newf(apperrors.CodeInvalidArgument, "unknown stage %q", raw)
	}
	return stage, nil
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := stageEdges[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s Stage) Terminal() bool {
	return s.Valid() && len(stageEdges[s]) == 0
}

// Next lists the stages reachable from s in one step.
func (s Stage) Next() []Stage {
	return append([]Stage(nil), stageEdges[s]...)
}

// CanTransition reports whether from -> to is an edge of the pipeline graph.
func CanTransition(from, to Stage) bool {
	for _, next := range stageEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrIllegalTransition for edges outside the graph.
func ValidateTransition(from, to Stage) error {
	if !CanTransition(from, to) {
		return apperrors.Newf(apperrors.CodeIllegalTransition, "illegal transition %s -> %s", from, to)
	}
	return nil
}
