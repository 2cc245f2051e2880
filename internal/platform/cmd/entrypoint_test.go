package cmd

import (
	"context"
	"errors"
	"flag"
	"testing"

	platformgrpc "github.com/louisbranch/hiring.space/internal/platform/grpc"
	"github.com/louisbranch/hiring.space/internal/platform/logger"
	"go.uber.org/zap"
)

type testConfig struct {
	Address string `env:"CMD_TEST_ADDRESS" envDefault:"127.0.0.1:8080"`
	Mode    string `env:"CMD_TEST_MODE" envDefault:"server"`
}

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	t.Setenv("CMD_TEST_ADDRESS", "env:9000")
	t.Setenv("CMD_TEST_MODE", "env-mode")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg := testConfig{}
	if err := ParseConfig(&cfg); err != nil {
		t.Fatalf("load config defaults: %v", err)
	}
	fs.StringVar(&cfg.Address, "address", cfg.Address, "address")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "mode")

	if err := ParseArgs(fs, []string{"-address", "flag:9001"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if cfg.Address != "flag:9001" {
		t.Fatalf("address = %q, want flag value", cfg.Address)
	}
	if cfg.Mode != "env-mode" {
		t.Fatalf("mode = %q, want env value", cfg.Mode)
	}
}

func TestParseArgsRejectsNilParser(t *testing.T) {
	if err := ParseArgs(nil, []string{}); err == nil {
		t.Fatal("expected parse args to reject nil parser")
	}
}

func TestBindLogFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var cfg logger.Config
	BindLogFlags(fs, &cfg)
	if err := ParseArgs(fs, []string{"-log-json", "-log-debug"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if !cfg.JSON || !cfg.Debug {
		t.Fatalf("log config = %+v, want both set", cfg)
	}
}

func TestRunWithTelemetryRejectsMissingInputs(t *testing.T) {
	run := func(context.Context, *zap.Logger) error { return nil }
	if err := RunWithTelemetry(context.Background(), "", logger.Config{}, run); err == nil {
		t.Fatal("expected missing service error")
	}
	if err := RunWithTelemetry(context.Background(), ServicePipeline, logger.Config{}, nil); err == nil {
		t.Fatal("expected missing run function error")
	}
}

func TestRunWithTelemetryPassesLoggerAndError(t *testing.T) {
	t.Setenv("HIRING_SPACE_OTEL_ENDPOINT", "")
	want := errors.New("boom")
	var got *zap.Logger
	err := RunWithTelemetry(context.Background(), ServiceWorker, logger.Config{}, func(_ context.Context, log *zap.Logger) error {
		got = log
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
	if got == nil {
		t.Fatal("expected logger passed to run")
	}
}

func TestHealthcheck(t *testing.T) {
	health, err := platformgrpc.StartHealth(0, "cmd.test")
	if err != nil {
		t.Fatalf("start health: %v", err)
	}
	port := health.Port()
	if err := Healthcheck(context.Background(), port, "cmd.test"); err != nil {
		t.Fatalf("healthcheck: %v", err)
	}

	health.SetServing("cmd.test", false)
	if err := Healthcheck(context.Background(), port, "cmd.test"); err == nil {
		t.Fatal("expected not-serving healthcheck to fail")
	}
	health.Stop()
}
