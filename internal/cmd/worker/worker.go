// Package worker parses worker command flags and launches the notification drain loop.
package worker

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/louisbranch/hiring.space/internal/platform/cmd"
	"github.com/louisbranch/hiring.space/internal/platform/logger"
	workerapp "github.com/louisbranch/hiring.space/internal/services/worker/app"
	"go.uber.org/zap"
)

// Config holds worker command configuration.
type Config struct {
	Port           int           `env:"HIRING_SPACE_WORKER_PORT" envDefault:"8092"`
	PipelineDBPath string        `env:"HIRING_SPACE_PIPELINE_DB_PATH" envDefault:"data/pipeline.db"`
	DBPath         string        `env:"HIRING_SPACE_WORKER_DB_PATH" envDefault:"data/worker.db"`
	PollInterval   time.Duration `env:"HIRING_SPACE_WORKER_POLL_INTERVAL" envDefault:"1m"`
	MaxBatch       int           `env:"HIRING_SPACE_WORKER_MAX_BATCH" envDefault:"50"`
	MaxRetries     int           `env:"HIRING_SPACE_WORKER_MAX_RETRIES" envDefault:"3"`
	LeaseTTL       time.Duration `env:"HIRING_SPACE_WORKER_LEASE_TTL" envDefault:"2m"`
	SendTimeout    time.Duration `env:"HIRING_SPACE_WORKER_SEND_TIMEOUT" envDefault:"15s"`
	EmailAPIKey    string        `env:"HIRING_SPACE_EMAIL_API_KEY"`
	EmailFrom      string        `env:"HIRING_SPACE_EMAIL_FROM" envDefault:"Hiring <hiring@example.com>"`
	EmailEndpoint  string        `env:"HIRING_SPACE_EMAIL_ENDPOINT"`
	EmailLanguage  string        `env:"HIRING_SPACE_EMAIL_LANGUAGE" envDefault:"en"`
	Healthcheck    bool
	Log            logger.Config
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The worker health gRPC server port")
	fs.StringVar(&cfg.PipelineDBPath, "pipeline-db-path", cfg.PipelineDBPath, "The pipeline SQLite database holding the notification queue")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The worker SQLite database path")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Notification drain interval")
	fs.IntVar(&cfg.MaxBatch, "max-batch", cfg.MaxBatch, "Maximum notifications claimed per drain")
	fs.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Delivery attempts before a notification fails")
	fs.DurationVar(&cfg.LeaseTTL, "lease-ttl", cfg.LeaseTTL, "Notification claim lease duration")
	fs.DurationVar(&cfg.SendTimeout, "send-timeout", cfg.SendTimeout, "Timeout for one email send")
	fs.StringVar(&cfg.EmailFrom, "email-from", cfg.EmailFrom, "Sender address for notification emails")
	fs.StringVar(&cfg.EmailLanguage, "email-language", cfg.EmailLanguage, "Language of notification emails (BCP 47)")
	fs.BoolVar(&cfg.Healthcheck, "healthcheck", false, "Probe the running worker's health endpoint and exit")
	entrypoint.BindLogFlags(fs, &cfg.Log)
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the worker runtime, or probes it when Healthcheck is set.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Healthcheck {
		return entrypoint.Healthcheck(ctx, cfg.Port, workerapp.HealthService)
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWorker, cfg.Log, func(ctx context.Context, log *zap.Logger) error {
		return workerapp.Run(ctx, workerapp.RuntimeConfig{
			Port:           cfg.Port,
			PipelineDBPath: cfg.PipelineDBPath,
			DBPath:         cfg.DBPath,
			PollInterval:   cfg.PollInterval,
			MaxBatch:       cfg.MaxBatch,
			MaxRetries:     cfg.MaxRetries,
			LeaseTTL:       cfg.LeaseTTL,
			SendTimeout:    cfg.SendTimeout,
			EmailAPIKey:    cfg.EmailAPIKey,
			EmailFrom:      cfg.EmailFrom,
			EmailEndpoint:  cfg.EmailEndpoint,
			EmailLanguage:  cfg.EmailLanguage,
		}, log)
	})
}
