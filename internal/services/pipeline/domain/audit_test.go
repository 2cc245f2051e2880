package domain

import (
	"errors"
	"testing"
	"time"
)

func TestValidateJourney(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC)
	legal := []AuditEntry{
		{FromStage: StageScreening, ToStage: StageSelected, Timestamp: t0},
		{FromStage: StageSelected, ToStage: StageInterviewScheduled, Timestamp: t0.Add(time.Millisecond)},
		{FromStage: StageInterviewScheduled, ToStage: StageInterviewed, Timestamp: t0.Add(time.Hour)},
	}
	if err := ValidateJourney(legal); err != nil {
		t.Fatalf("legal journey: %v", err)
	}
	if err := ValidateJourney(nil); err != nil {
		t.Fatalf("empty journey: %v", err)
	}

	gap := []AuditEntry{legal[0], legal[2]}
	if err := ValidateJourney(gap); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("gap err = %v, want ErrIllegalTransition", err)
	}

	sameTime := []AuditEntry{legal[0], {FromStage: StageSelected, ToStage: StageInterviewScheduled, Timestamp: t0}}
	if err := ValidateJourney(sameTime); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("same timestamp err = %v, want ErrIllegalTransition", err)
	}

	backwards := []AuditEntry{{FromStage: StageRejected, ToStage: StageScreening, Timestamp: t0}}
	if err := ValidateJourney(backwards); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("backwards err = %v, want ErrIllegalTransition", err)
	}
}
