// Package mcp parses operator MCP command flags and selects stdio or HTTP transport.
package mcp

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/louisbranch/hiring.space/internal/platform/cmd"
	"github.com/louisbranch/hiring.space/internal/platform/logger"
	mcpservice "github.com/louisbranch/hiring.space/internal/services/mcp/service"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/app"
	workerapp "github.com/louisbranch/hiring.space/internal/services/worker/app"
	"go.uber.org/zap"
)

// Config holds MCP command configuration.
type Config struct {
	Transport        string        `env:"HIRING_SPACE_MCP_TRANSPORT" envDefault:"stdio"`
	HTTPAddr         string        `env:"HIRING_SPACE_MCP_HTTP_ADDR" envDefault:"localhost:8081"`
	PipelineDBPath   string        `env:"HIRING_SPACE_PIPELINE_DB_PATH" envDefault:"data/pipeline.db"`
	WorkerDBPath     string        `env:"HIRING_SPACE_WORKER_DB_PATH" envDefault:"data/worker.db"`
	TokenTTL         time.Duration `env:"HIRING_SPACE_INTERVIEW_TOKEN_TTL" envDefault:"48h"`
	InterviewBaseURL string        `env:"HIRING_SPACE_INTERVIEW_BASE_URL" envDefault:"http://localhost:8080/interview/login"`
	ScorerAPIKey     string        `env:"HIRING_SPACE_SCORER_API_KEY"`
	ScorerModel      string        `env:"HIRING_SPACE_SCORER_MODEL"`
	ScoreTimeout     time.Duration `env:"HIRING_SPACE_SCORER_TIMEOUT" envDefault:"20s"`
	MaxBatch         int           `env:"HIRING_SPACE_WORKER_MAX_BATCH" envDefault:"50"`
	MaxRetries       int           `env:"HIRING_SPACE_WORKER_MAX_RETRIES" envDefault:"3"`
	SendTimeout      time.Duration `env:"HIRING_SPACE_WORKER_SEND_TIMEOUT" envDefault:"15s"`
	EmailAPIKey      string        `env:"HIRING_SPACE_EMAIL_API_KEY"`
	EmailFrom        string        `env:"HIRING_SPACE_EMAIL_FROM" envDefault:"Hiring <hiring@example.com>"`
	EmailEndpoint    string        `env:"HIRING_SPACE_EMAIL_ENDPOINT"`
	EmailLanguage    string        `env:"HIRING_SPACE_EMAIL_LANGUAGE" envDefault:"en"`
	Log              logger.Config
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport type: stdio or http")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address (for HTTP transport)")
	fs.StringVar(&cfg.PipelineDBPath, "pipeline-db-path", cfg.PipelineDBPath, "The pipeline SQLite database path")
	fs.StringVar(&cfg.WorkerDBPath, "worker-db-path", cfg.WorkerDBPath, "The worker SQLite database path")
	fs.StringVar(&cfg.InterviewBaseURL, "interview-base-url", cfg.InterviewBaseURL, "Base URL of candidate interview links")
	fs.StringVar(&cfg.EmailLanguage, "email-language", cfg.EmailLanguage, "Language of notification emails (BCP 47)")
	entrypoint.BindLogFlags(fs, &cfg.Log)
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the operator MCP server.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMCP, cfg.Log, func(ctx context.Context, log *zap.Logger) error {
		return mcpservice.Run(ctx, mcpservice.Config{
			Transport:      mcpservice.TransportKind(cfg.Transport),
			HTTPAddr:       cfg.HTTPAddr,
			PipelineDBPath: cfg.PipelineDBPath,
			WorkerDBPath:   cfg.WorkerDBPath,
			ScorerAPIKey:   cfg.ScorerAPIKey,
			ScorerModel:    cfg.ScorerModel,
			EmailAPIKey:    cfg.EmailAPIKey,
			EmailFrom:      cfg.EmailFrom,
			EmailEndpoint:  cfg.EmailEndpoint,
			EmailLanguage:  cfg.EmailLanguage,
			Pipeline: app.Config{
				TokenTTL:         cfg.TokenTTL,
				InterviewBaseURL: cfg.InterviewBaseURL,
				ScoreTimeout:     cfg.ScoreTimeout,
			},
			Drain: workerapp.Config{
				MaxBatch:    cfg.MaxBatch,
				MaxRetries:  cfg.MaxRetries,
				SendTimeout: cfg.SendTimeout,
			},
		}, log)
	})
}
