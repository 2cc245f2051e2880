package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisbranch/hiring.space/internal/platform/logger"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/app"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/server"
	pipelinesqlite "github.com/louisbranch/hiring.space/internal/services/pipeline/storage/sqlite"
	workerapp "github.com/louisbranch/hiring.space/internal/services/worker/app"
	workersqlite "github.com/louisbranch/hiring.space/internal/services/worker/storage/sqlite"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// TransportKind names the MCP transport.
type TransportKind string

const (
	// TransportStdio serves MCP over stdin and stdout.
	TransportStdio TransportKind = "stdio"
	// TransportHTTP serves MCP over streamable HTTP.
	TransportHTTP TransportKind = "http"
)

const (
	defaultHTTPAddr   = "localhost:8081"
	defaultPipelineDB = "data/pipeline.db"
	defaultWorkerDB   = "data/worker.db"
)

// Config controls the operator server process.
type Config struct {
	Transport      TransportKind
	HTTPAddr       string
	PipelineDBPath string
	WorkerDBPath   string
	ScorerAPIKey   string
	ScorerModel    string
	EmailAPIKey    string
	EmailFrom      string
	EmailEndpoint  string
	EmailLanguage  string
	Pipeline       app.Config
	Drain          workerapp.Config
}

func (c Config) normalized() Config {
	if c.Transport == "" {
		c.Transport = TransportStdio
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		c.HTTPAddr = defaultHTTPAddr
	}
	if strings.TrimSpace(c.PipelineDBPath) == "" {
		c.PipelineDBPath = defaultPipelineDB
	}
	if strings.TrimSpace(c.WorkerDBPath) == "" {
		c.WorkerDBPath = defaultWorkerDB
	}
	return c
}

// Run opens storage, builds the tools and serves the configured transport
// until ctx ends.
func Run(ctx context.Context, cfg Config, log *zap.Logger) error {
	cfg = cfg.normalized()
	switch cfg.Transport {
	case TransportStdio:
		return runWithTransport(ctx, cfg, log, &mcp.StdioTransport{})
	case TransportHTTP:
		return runWithHTTP(ctx, cfg, log)
	default:
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}
}

func runWithTransport(ctx context.Context, cfg Config, log *zap.Logger, transport mcp.Transport) (err error) {
	srv, closeStores, err := open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeStores()) }()
	return srv.ServeTransport(ctx, transport)
}

func runWithHTTP(ctx context.Context, cfg Config, log *zap.Logger) (err error) {
	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen on mcp http addr %s: %w", cfg.HTTPAddr, err)
	}
	srv, closeStores, err := open(ctx, cfg, log)
	if err != nil {
		_ = listener.Close()
		return err
	}
	defer func() { err = errors.Join(err, closeStores()) }()
	return srv.ServeHTTP(ctx, listener)
}

// open builds the server over both stores and returns a func closing them.
func open(ctx context.Context, cfg Config, log *zap.Logger) (*Server, func() error, error) {
	log = logger.OrNop(log)
	if err := cfg.Drain.Validate(); err != nil {
		return nil, nil, err
	}
	for _, path := range []string{cfg.PipelineDBPath, cfg.WorkerDBPath} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create storage dir %s: %w", dir, err)
			}
		}
	}

	pipelineStore, err := pipelinesqlite.Open(cfg.PipelineDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open pipeline sqlite store: %w", err)
	}
	attempts, err := workersqlite.Open(cfg.WorkerDBPath)
	if err != nil {
		_ = pipelineStore.Close()
		return nil, nil, fmt.Errorf("open worker sqlite store: %w", err)
	}
	closeStores := func() error {
		return errors.Join(pipelineStore.Close(), attempts.Close())
	}

	scorer, err := server.NewScorer(ctx, cfg.ScorerAPIKey, cfg.ScorerModel, log)
	if err != nil {
		_ = closeStores()
		return nil, nil, err
	}
	sender, err := workerapp.NewSender(cfg.EmailAPIKey, cfg.EmailFrom, cfg.EmailEndpoint, log)
	if err != nil {
		_ = closeStores()
		return nil, nil, err
	}

	pipeline := app.NewService(app.Dependencies{
		Store:  pipelineStore,
		Scorer: scorer,
		Logger: log.Named("app"),
	}, cfg.Pipeline)
	drainCfg := cfg.Drain
	if drainCfg.OwnerPrefix == "" {
		drainCfg.OwnerPrefix = "mcp"
	}
	drainer := workerapp.NewDrainer(workerapp.Dependencies{
		Queue:      pipelineStore,
		Dispatcher: workerapp.NewEmailDispatcher(sender, cfg.EmailLanguage),
		Attempts:   attempts,
		Logger:     log.Named("drain"),
	}, drainCfg)

	srv, err := New(Dependencies{
		Pipeline: pipeline,
		Drainer:  drainer,
		Attempts: attempts,
		Logger:   log.Named("mcp"),
	})
	if err != nil {
		_ = closeStores()
		return nil, nil, err
	}
	return srv, closeStores, nil
}
