package domain

import apperrors "github.com/louisbranch/hiring.space/internal/platform/errors"

// Gate policy, in percent. The weights sum to 100.
const (
	SkillsWeight       = 40
	ExperienceWeight   = 35
	EducationWeight    = 25
	SelectionThreshold = 75
	FallbackSubScore   = 70
)

// Decision is the binary outcome of the score gate.
type Decision string

const (
	DecisionSelected Decision = "selected"
	DecisionRejected Decision = "rejected"
)

// Stage returns the pipeline stage a decision moves a screening candidate to.
func (d Decision) Stage() Stage {
	if d == DecisionSelected {
		return StageSelected
	}
	return StageRejected
}

// SubScores are the three match percentages produced by the scorer.
type SubScores struct {
	Skills     int `json:"skills_match"`
	Experience int `json:"experience_match"`
	Education  int `json:"education_match"`
}

// FallbackSubScores is the neutral result used when the scorer cannot answer.
var FallbackSubScores = SubScores{
	Skills:     FallbackSubScore,
	Experience: FallbackSubScore,
	Education:  FallbackSubScore,
}

// Validate rejects sub-scores outside [0,100].
func (s SubScores) Validate() error {
	for _, field := range []struct {
		name  string
		value int
	}{
		{"skills match", s.Skills},
		{"experience match", s.Experience},
		{"education match", s.Education},
	} {
		if field.value < 0 || field.value > 100 {
			return apperrors.Newf(apperrors.CodeInvalidScoreInput, "%s %d out of range [0,100]", field.name, field.value)
		}
	}
	return nil
}

// GateResult is the composite score and decision for one candidate.
type GateResult struct {
	Composite int
	Decision  Decision
}

// Decide combines sub-scores into a rounded composite and applies the
// selection threshold.
func Decide(scores SubScores) (GateResult, error) {
	if err := scores.Validate(); err != nil {
		return GateResult{}, err
	}
	// Integer arithmetic keeps .5 boundaries exact; inputs are non-negative
	// so adding 50 before dividing rounds half up.
	weighted := scores.Skills*SkillsWeight + scores.Experience*ExperienceWeight + scores.Education*EducationWeight
	composite := (weighted + 50) / 100

	decision := DecisionRejected
	if composite >= SelectionThreshold {
		decision = DecisionSelected
	}
	return GateResult{Composite: composite, Decision: decision}, nil
}
