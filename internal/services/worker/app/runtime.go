package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	platformgrpc "github.com/louisbranch/hiring.space/internal/platform/grpc"
	"github.com/louisbranch/hiring.space/internal/platform/logger"
	"github.com/louisbranch/hiring.space/internal/services/notifications/email"
	"github.com/louisbranch/hiring.space/internal/services/notifications/render"
	pipelinesqlite "github.com/louisbranch/hiring.space/internal/services/pipeline/storage/sqlite"
	workerdomain "github.com/louisbranch/hiring.space/internal/services/worker/domain"
	workersqlite "github.com/louisbranch/hiring.space/internal/services/worker/storage/sqlite"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// HealthService is the gRPC health service name reported by the worker.
const HealthService = "worker.runtime"

const (
	defaultWorkerPort   = 8092
	defaultWorkerDB     = "data/worker.db"
	defaultPipelineDB   = "data/pipeline.db"
	defaultEmailLangTag = "en"
)

// RuntimeConfig controls worker startup, collaborators and loop behavior.
type RuntimeConfig struct {
	Port           int
	PipelineDBPath string
	DBPath         string
	PollInterval   time.Duration
	MaxBatch       int
	MaxRetries     int
	LeaseTTL       time.Duration
	SendTimeout    time.Duration
	EmailAPIKey    string
	EmailFrom      string
	EmailEndpoint  string
	EmailLanguage  string
}

// NewSender picks the Resend sender when an API key is configured and the
// log-only sender otherwise.
func NewSender(apiKey, from, endpoint string, log *zap.Logger) (email.Sender, error) {
	log = logger.OrNop(log)
	if strings.TrimSpace(apiKey) == "" {
		log.Warn("email api key not set; notifications are logged, not sent")
		return email.NewLogSender(log.Named("email")), nil
	}
	var opts []email.ResendOption
	if strings.TrimSpace(endpoint) != "" {
		opts = append(opts, email.WithEndpoint(endpoint))
	}
	sender, err := email.NewResendSender(apiKey, from, log.Named("email"), opts...)
	if err != nil {
		return nil, fmt.Errorf("build email sender: %w", err)
	}
	return sender, nil
}

// NewEmailDispatcher builds the email dispatcher for lang (a BCP 47 tag).
func NewEmailDispatcher(sender email.Sender, lang string) *workerdomain.Dispatcher {
	if strings.TrimSpace(lang) == "" {
		lang = defaultEmailLangTag
	}
	return workerdomain.NewDispatcher(sender, render.Printer(language.Make(lang)))
}

// Run opens both stores, serves gRPC health and drains until ctx ends.
func Run(ctx context.Context, cfg RuntimeConfig, log *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log = logger.OrNop(log)
	if cfg.Port < 0 {
		cfg.Port = defaultWorkerPort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultWorkerDB
	}
	if strings.TrimSpace(cfg.PipelineDBPath) == "" {
		cfg.PipelineDBPath = defaultPipelineDB
	}

	for _, path := range []string{cfg.DBPath, cfg.PipelineDBPath} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create storage dir %s: %w", dir, err)
			}
		}
	}

	queue, err := pipelinesqlite.Open(cfg.PipelineDBPath)
	if err != nil {
		return fmt.Errorf("open pipeline sqlite store: %w", err)
	}
	defer func() {
		if closeErr := queue.Close(); closeErr != nil {
			log.Warn("close pipeline sqlite store", zap.Error(closeErr))
		}
	}()

	attempts, err := workersqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open worker sqlite store: %w", err)
	}
	defer func() {
		if closeErr := attempts.Close(); closeErr != nil {
			log.Warn("close worker sqlite store", zap.Error(closeErr))
		}
	}()

	sender, err := NewSender(cfg.EmailAPIKey, cfg.EmailFrom, cfg.EmailEndpoint, log)
	if err != nil {
		return err
	}

	drainCfg := Config{
		MaxBatch:     cfg.MaxBatch,
		MaxRetries:   cfg.MaxRetries,
		LeaseTTL:     cfg.LeaseTTL,
		SendTimeout:  cfg.SendTimeout,
		PollInterval: cfg.PollInterval,
	}
	if err := drainCfg.Validate(); err != nil {
		return err
	}
	drainer := NewDrainer(Dependencies{
		Queue:      queue,
		Dispatcher: NewEmailDispatcher(sender, cfg.EmailLanguage),
		Attempts:   attempts,
		Logger:     log.Named("drain"),
	}, drainCfg)

	health, err := platformgrpc.StartHealth(cfg.Port, HealthService)
	if err != nil {
		return err
	}
	defer health.Stop()

	log.Info("worker health listening", zap.Int("port", health.Port()))
	return drainer.Run(ctx)
}
