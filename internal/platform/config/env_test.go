package config

import (
	"strings"
	"testing"
	"time"
)

type envTestConfig struct {
	Port     int           `env:"HIRING_SPACE_TEST_PORT" envDefault:"123"`
	Interval time.Duration `env:"HIRING_SPACE_TEST_INTERVAL" envDefault:"1m"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("port = %d, want 123", cfg.Port)
	}
	if cfg.Interval != time.Minute {
		t.Fatalf("interval = %v, want 1m", cfg.Interval)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("HIRING_SPACE_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestParseEnvFromUsesGivenEnvironment(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("HIRING_SPACE_TEST_PORT", "999")

	if err := ParseEnvFrom(&cfg, map[string]string{"HIRING_SPACE_TEST_INTERVAL": "5s"}); err != nil {
		t.Fatalf("parse env from: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("port = %d, want 123", cfg.Port)
	}
	if cfg.Interval != 5*time.Second {
		t.Fatalf("interval = %v, want 5s", cfg.Interval)
	}
}
