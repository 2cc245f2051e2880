package otel_test

import (
	"context"
	"testing"

	"github.com/louisbranch/hiring.space/internal/platform/otel"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	t.Setenv("HIRING_SPACE_OTEL_ENDPOINT", "")
	t.Setenv("HIRING_SPACE_OTEL_ENABLED", "")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_NoopWhenExplicitlyDisabled(t *testing.T) {
	t.Setenv("HIRING_SPACE_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("HIRING_SPACE_OTEL_ENABLED", "FALSE")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetupWithConfig_RejectsBadSampleRatio(t *testing.T) {
	_, err := otel.SetupWithConfig(context.Background(), "test-service", otel.Config{
		Endpoint:    "http://192.0.2.1:4318",
		SampleRatio: 1.5,
	})
	if err == nil {
		t.Fatal("expected sample ratio error")
	}
}

func TestSetupWithConfig_CreatesProvider(t *testing.T) {
	// Non-routable address; nothing is exported because no spans are recorded.
	shutdown, err := otel.SetupWithConfig(context.Background(), "test-service", otel.Config{
		Endpoint:    "http://192.0.2.1:4318",
		SampleRatio: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestConfigActive(t *testing.T) {
	tests := []struct {
		name string
		cfg  otel.Config
		want bool
	}{
		{name: "empty", cfg: otel.Config{}, want: false},
		{name: "endpoint", cfg: otel.Config{Endpoint: "http://x:4318"}, want: true},
		{name: "disabled", cfg: otel.Config{Endpoint: "http://x:4318", Enabled: "false"}, want: false},
		{name: "enabled", cfg: otel.Config{Endpoint: "http://x:4318", Enabled: "true"}, want: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.Active(); got != tc.want {
				t.Fatalf("Active() = %v, want %v", got, tc.want)
			}
		})
	}
}
