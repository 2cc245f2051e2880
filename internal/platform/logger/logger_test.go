package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewBuildsLevels(t *testing.T) {
	info, err := New(true, false)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if info.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug disabled")
	}

	debug, err := FromConfig(Config{Debug: true})
	if err != nil {
		t.Fatalf("new debug logger: %v", err)
	}
	if !debug.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug enabled")
	}
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithFields(zap.New(core), zap.String(FieldCandidateID, "cand-1")).Info("scored")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()[FieldCandidateID]; got != "cand-1" {
		t.Fatalf("candidate_id = %v, want cand-1", got)
	}

	// Nil logger falls back to a no-op.
	WithFields(nil, zap.String("k", "v")).Info("ignored")
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{in: "  short  ", limit: 10, want: "short"},
		{in: "abcdef", limit: 3, want: "abc..."},
		{in: "абвгд", limit: 2, want: "аб..."},
		{in: "anything", limit: 0, want: ""},
	}
	for _, tc := range tests {
		if got := Truncate(tc.in, tc.limit); got != tc.want {
			t.Fatalf("Truncate(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}
