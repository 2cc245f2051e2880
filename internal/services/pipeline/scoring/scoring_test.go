package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/hiring.space/internal/services/pipeline/domain"
)

type scorerFunc func(ctx context.Context, req Request) (domain.SubScores, error)

func (f scorerFunc) Score(ctx context.Context, req Request) (domain.SubScores, error) {
	return f(ctx, req)
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		scorer       Scorer
		wantScores   domain.SubScores
		wantFallback bool
	}{
		{
			name:       "collaborator answer",
			scorer:     Fixed{Skills: 90, Experience: 80, Education: 70},
			wantScores: domain.SubScores{Skills: 90, Experience: 80, Education: 70},
		},
		{
			name:         "no scorer",
			scorer:       nil,
			wantScores:   domain.FallbackSubScores,
			wantFallback: true,
		},
		{
			name: "scorer error",
			scorer: scorerFunc(func(context.Context, Request) (domain.SubScores, error) {
				return domain.SubScores{}, errors.New("boom")
			}),
			wantScores:   domain.FallbackSubScores,
			wantFallback: true,
		},
		{
			name:         "out of range answer",
			scorer:       Fixed{Skills: 101, Experience: 80, Education: 70},
			wantScores:   domain.FallbackSubScores,
			wantFallback: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Evaluate(context.Background(), tt.scorer, Request{CandidateID: "cand-1"}, time.Second)
			if got.Scores != tt.wantScores || got.Fallback != tt.wantFallback {
				t.Fatalf("Evaluate() = %+v, want scores %+v fallback %v", got, tt.wantScores, tt.wantFallback)
			}
			if tt.wantFallback && !errors.Is(got.Err, domain.ErrCollaboratorUnavailable) {
				t.Fatalf("fallback err = %v, want ErrCollaboratorUnavailable", got.Err)
			}
		})
	}
}

func TestEvaluateTimesOut(t *testing.T) {
	t.Parallel()
	slow := scorerFunc(func(ctx context.Context, _ Request) (domain.SubScores, error) {
		<-ctx.Done()
		return domain.SubScores{}, ctx.Err()
	})

	got := Evaluate(context.Background(), slow, Request{}, 10*time.Millisecond)
	if !got.Fallback || got.Scores != domain.FallbackSubScores {
		t.Fatalf("Evaluate() = %+v, want fallback", got)
	}
	if !strings.Contains(got.Note(), "timed out") {
		t.Fatalf("note = %q, want timeout mention", got.Note())
	}
}

type assessorFunc func(ctx context.Context, req Request) (Assessment, error)

func (f assessorFunc) Score(ctx context.Context, req Request) (domain.SubScores, error) {
	return domain.SubScores{}, errors.New("Score should not be called when Assess exists")
}

func (f assessorFunc) Assess(ctx context.Context, req Request) (Assessment, error) {
	return f(ctx, req)
}

func TestEvaluateKeepsAssessmentReasoning(t *testing.T) {
	t.Parallel()
	scorer := assessorFunc(func(context.Context, Request) (Assessment, error) {
		return Assessment{
			Scores:         domain.SubScores{Skills: 85, Experience: 80, Education: 75},
			Recommendation: "Recommended",
			Strengths:      []string{"Go services", " ", "SQL"},
			Concerns:       []string{"No on-call experience"},
		}, nil
	})

	got := Evaluate(context.Background(), scorer, Request{CandidateID: "cand-1"}, time.Second)
	if got.Fallback || got.Scores != (domain.SubScores{Skills: 85, Experience: 80, Education: 75}) {
		t.Fatalf("Evaluate() = %+v", got)
	}
	want := "scored by collaborator; recommendation: Recommended; strengths: Go services, SQL; concerns: No on-call experience"
	if note := got.Note(); note != want {
		t.Fatalf("note = %q, want %q", note, want)
	}

	long := Result{Strengths: []string{strings.Repeat("x", 2000)}}
	if n := len([]rune(long.Note())); n > maxNoteRunes+3 {
		t.Fatalf("note runes = %d, want at most %d", n, maxNoteRunes+3)
	}
}

func TestResultNote(t *testing.T) {
	t.Parallel()
	if note := (Result{}).Note(); note != "scored by collaborator" {
		t.Fatalf("note = %q", note)
	}
	if note := (Result{Fallback: true}).Note(); !strings.HasPrefix(note, "scorer fallback used") {
		t.Fatalf("note = %q", note)
	}
}
