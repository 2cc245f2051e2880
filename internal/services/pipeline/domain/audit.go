package domain

import (
	"time"

	apperrors "github.com/louisbranch/hiring.space/internal/platform/errors"
)

// AuditEntry documents one applied stage transition.
type AuditEntry struct {
	ID                  int64
	CandidateID         string
	FromStage           Stage
	ToStage             Stage
	AutomationTriggered bool
	Timestamp           time.Time
	Notes               string
}

// ValidateJourney checks that entries form a legal path from screening with
// strictly increasing timestamps.
func ValidateJourney(entries []AuditEntry) error {
	current := StageScreening
	var last time.Time
	for i, entry := range entries {
		if entry.FromStage != current {
			return apperrors.Newf(apperrors.CodeIllegalTransition, "entry %d starts at %s, want %s", i, entry.FromStage, current)
		}
		if err := ValidateTransition(entry.FromStage, entry.ToStage); err != nil {
			return err
		}
		if i > 0 && !entry.Timestamp.After(last) {
			return apperrors.Newf(apperrors.CodeIllegalTransition, "entry %d timestamp %s not after %s", i, entry.Timestamp, last)
		}
		current = entry.ToStage
		last = entry.Timestamp
	}
	return nil
}
