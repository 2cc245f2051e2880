package domain

import (
	"errors"
	"testing"
)

func TestValidateTransitionGraph(t *testing.T) {
	t.Parallel()

	legal := map[[2]Stage]bool{
		{StageScreening, StageSelected}:             true,
		{StageScreening, StageRejected}:             true,
		{StageSelected, StageInterviewScheduled}:    true,
		{StageInterviewScheduled, StageInterviewed}: true,
	}
	all := []Stage{StageScreening, StageSelected, StageRejected, StageInterviewScheduled, StageInterviewed}
	for _, from := range all {
		for _, to := range all {
			err := ValidateTransition(from, to)
			if legal[[2]Stage{from, to}] {
				if err != nil {
					t.Fatalf("%s -> %s: unexpected error %v", from, to, err)
				}
				continue
			}
			if !errors.Is(err, ErrIllegalTransition) {
				t.Fatalf("%s -> %s: err = %v, want ErrIllegalTransition", from, to, err)
			}
		}
	}
}

func TestStageTerminal(t *testing.T) {
	t.Parallel()

	for stage, want := range map[Stage]bool{
		StageScreening:          false,
		StageSelected:           false,
		StageInterviewScheduled: false,
		StageRejected:           true,
		StageInterviewed:        true,
		Stage("archived"):       false,
	} {
		if got := stage.Terminal(); got != want {
			t.Fatalf("%s.Terminal() = %v, want %v", stage, got, want)
		}
	}
}

func TestParseStage(t *testing.T) {
	t.Parallel()

	got, err := ParseStage("  Interview_Scheduled ")
	if err != nil {
		t.Fatalf("parse stage: %v", err)
	}
	if got != StageInterviewScheduled {
		t.Fatalf("stage = %q, want %q", got, StageInterviewScheduled)
	}
	if _, err := ParseStage("hired"); err == nil {
		t.Fatal("expected unknown stage error")
	}
}

func TestStageNextReturnsCopy(t *testing.T) {
	t.Parallel()

	next := StageScreening.Next()
	next[0] = StageInterviewed
	if !CanTransition(StageScreening, StageSelected) {
		t.Fatal("expected graph to be unaffected by caller mutation")
	}
}
