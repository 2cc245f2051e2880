package mcp

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "localhost:8081" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Transport != "stdio" {
		t.Fatalf("expected default transport stdio, got %q", cfg.Transport)
	}
	if cfg.MaxRetries != 3 || cfg.MaxBatch != 50 {
		t.Fatalf("drain defaults = %d %d", cfg.MaxRetries, cfg.MaxBatch)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	t.Setenv("HIRING_SPACE_MCP_HTTP_ADDR", "env-http")
	t.Setenv("HIRING_SPACE_PIPELINE_DB_PATH", "/tmp/env.db")

	cfg, err := ParseConfig(fs, []string{"-http-addr", "flag-http", "-transport", "http"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "flag-http" {
		t.Fatalf("expected flag http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.Transport != "http" {
		t.Fatalf("expected transport http, got %q", cfg.Transport)
	}
	if cfg.PipelineDBPath != "/tmp/env.db" {
		t.Fatalf("expected env db path, got %q", cfg.PipelineDBPath)
	}
}
