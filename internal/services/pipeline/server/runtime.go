// Package server assembles and runs the pipeline process.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	platformgrpc "github.com/louisbranch/hiring.space/internal/platform/grpc"
	"github.com/louisbranch/hiring.space/internal/platform/logger"
	"github.com/louisbranch/hiring.space/internal/platform/timeouts"
	httpapi "github.com/louisbranch/hiring.space/internal/services/pipeline/api/http"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/app"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/scoring"
	pipelinesqlite "github.com/louisbranch/hiring.space/internal/services/pipeline/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// HealthService is the gRPC health service name reported by the pipeline.
const HealthService = "pipeline.runtime"

const (
	defaultHTTPAddr = ":8080"
	defaultPort     = 8091
	defaultDBPath   = "data/pipeline.db"
)

// RuntimeConfig controls pipeline startup and policy.
type RuntimeConfig struct {
	HTTPAddr         string
	Port             int
	DBPath           string
	TokenTTL         time.Duration
	InterviewBaseURL string
	ScorerAPIKey     string
	ScorerModel      string
	ScoreTimeout     time.Duration
	SelectionDelay   time.Duration
	RejectionDelay   time.Duration
}

func (c RuntimeConfig) normalized() RuntimeConfig {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		c.HTTPAddr = defaultHTTPAddr
	}
	if c.Port < 0 {
		c.Port = defaultPort
	}
	if strings.TrimSpace(c.DBPath) == "" {
		c.DBPath = defaultDBPath
	}
	return c
}

// Runtime is a started pipeline process.
type Runtime struct {
	log      *zap.Logger
	store    *pipelinesqlite.Store
	health   *platformgrpc.HealthServer
	listener net.Listener
	server   *http.Server
	serveErr chan error
}

// Start opens storage, builds the service and starts both listeners.
func Start(ctx context.Context, cfg RuntimeConfig, log *zap.Logger) (*Runtime, error) {
	cfg = cfg.normalized()
	log = logger.OrNop(log)

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create pipeline storage dir: %w", err)
		}
	}
	store, err := pipelinesqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open pipeline sqlite store: %w", err)
	}

	scorer, err := NewScorer(ctx, cfg.ScorerAPIKey, cfg.ScorerModel, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	service := app.NewService(app.Dependencies{
		Store:  store,
		Scorer: scorer,
		Logger: log.Named("app"),
	}, app.Config{
		TokenTTL:         cfg.TokenTTL,
		InterviewBaseURL: cfg.InterviewBaseURL,
		ScoreTimeout:     cfg.ScoreTimeout,
		SelectionDelay:   cfg.SelectionDelay,
		RejectionDelay:   cfg.RejectionDelay,
	})

	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on pipeline http addr %s: %w", cfg.HTTPAddr, err)
	}

	health, err := platformgrpc.StartHealth(cfg.Port, HealthService)
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, err
	}

	handler := httpapi.NewHandler(service, log.Named("http"))
	rt := &Runtime{
		log:      log,
		store:    store,
		health:   health,
		listener: listener,
		server: &http.Server{
			Handler:           otelhttp.NewHandler(handler, "pipeline.http"),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		serveErr: make(chan error, 1),
	}
	go func() {
		rt.serveErr <- rt.server.Serve(listener)
	}()

	log.Info("pipeline listening",
		zap.String("http_addr", listener.Addr().String()),
		zap.Int("health_port", health.Port()),
	)
	return rt, nil
}

// HTTPAddr returns the bound HTTP address.
func (r *Runtime) HTTPAddr() string {
	return r.listener.Addr().String()
}

// HealthPort returns the bound gRPC health port.
func (r *Runtime) HealthPort() int {
	return r.health.Port()
}

// Wait blocks until ctx ends or the HTTP server fails, then shuts down.
func (r *Runtime) Wait(ctx context.Context) error {
	var runErr error
	select {
	case <-ctx.Done():
	case err := <-r.serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("serve pipeline http: %w", err)
		}
	}
	if err := r.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown stops accepting requests, drains in-flight ones and closes storage.
func (r *Runtime) Shutdown() error {
	r.health.SetServing(HealthService, false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	var errs []error
	if err := r.server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown pipeline http: %w", err))
	}
	r.health.Stop()
	if err := r.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pipeline sqlite store: %w", err))
	}
	r.log.Info("pipeline stopped")
	return errors.Join(errs...)
}

// Run starts the pipeline and blocks until ctx ends.
func Run(ctx context.Context, cfg RuntimeConfig, log *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := Start(ctx, cfg, log)
	if err != nil {
		return err
	}
	return rt.Wait(ctx)
}

// NewScorer builds the Gemini scorer, or returns nil when apiKey is empty so
// every screening takes the fallback path.
func NewScorer(ctx context.Context, apiKey, model string, log *zap.Logger) (scoring.Scorer, error) {
	log = logger.OrNop(log)
	if strings.TrimSpace(apiKey) == "" {
		log.Warn("scorer api key not set; every screening uses fallback scores")
		return nil, nil
	}
	scorer, err := scoring.NewGeminiScorer(ctx, apiKey, model)
	if err != nil {
		return nil, fmt.Errorf("build gemini scorer: %w", err)
	}
	log.Info("scorer configured", zap.String("model", scorer.Model()))
	return scorer, nil
}
