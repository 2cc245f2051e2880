// Package cmd holds the startup plumbing shared by every service command.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/hiring.space/internal/platform/config"
	platformgrpc "github.com/louisbranch/hiring.space/internal/platform/grpc"
	"github.com/louisbranch/hiring.space/internal/platform/logger"
	"github.com/louisbranch/hiring.space/internal/platform/otel"
	"go.uber.org/zap"
)

const (
	defaultOTelShutdownTimeout = 5 * time.Second
	healthcheckTimeout         = 3 * time.Second
)

// Service identifiers for telemetry and log naming.
const (
	ServicePipeline = "pipeline"
	ServiceWorker   = "worker"
	ServiceMCP      = "mcp"
)

// ParseConfig loads environment defaults into cfg.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses command-line flags.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// BindLogFlags registers the shared logging flags on fs.
func BindLogFlags(fs *flag.FlagSet, cfg *logger.Config) {
	fs.BoolVar(&cfg.JSON, "log-json", cfg.JSON, "Emit JSON-encoded logs")
	fs.BoolVar(&cfg.Debug, "log-debug", cfg.Debug, "Enable debug logging")
}

// RunWithTelemetry configures tracing and a service logger, then executes run.
func RunWithTelemetry(ctx context.Context, service string, logCfg logger.Config, run func(context.Context, *zap.Logger) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return fmt.Errorf("service name is required")
	}
	if run == nil {
		return fmt.Errorf("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	base, err := logger.FromConfig(logCfg)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	log := base.Named(service).With(zap.String(logger.FieldService, service))
	defer func() { _ = log.Sync() }()

	shutdown, err := otel.Setup(ctx, service)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultOTelShutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Warn("otel shutdown", zap.Error(err))
		}
	}()
	return run(ctx, log)
}

// Healthcheck probes the local gRPC health endpoint on port for service and
// returns nil once it reports SERVING.
func Healthcheck(ctx context.Context, port int, service string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, healthcheckTimeout)
	defer cancel()
	return platformgrpc.Probe(ctx, fmt.Sprintf("127.0.0.1:%d", port), service, nil)
}
