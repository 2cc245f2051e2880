// Package pipeline parses pipeline command flags and launches the pipeline runtime.
package pipeline

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/louisbranch/hiring.space/internal/platform/cmd"
	"github.com/louisbranch/hiring.space/internal/platform/logger"
	"github.com/louisbranch/hiring.space/internal/services/pipeline/server"
	"go.uber.org/zap"
)

// Config holds pipeline command configuration.
type Config struct {
	HTTPAddr         string        `env:"HIRING_SPACE_PIPELINE_HTTP_ADDR" envDefault:":8080"`
	Port             int           `env:"HIRING_SPACE_PIPELINE_PORT" envDefault:"8091"`
	DBPath           string        `env:"HIRING_SPACE_PIPELINE_DB_PATH" envDefault:"data/pipeline.db"`
	TokenTTL         time.Duration `env:"HIRING_SPACE_INTERVIEW_TOKEN_TTL" envDefault:"48h"`
	InterviewBaseURL string        `env:"HIRING_SPACE_INTERVIEW_BASE_URL" envDefault:"http://localhost:8080/interview/login"`
	ScorerAPIKey     string        `env:"HIRING_SPACE_SCORER_API_KEY"`
	ScorerModel      string        `env:"HIRING_SPACE_SCORER_MODEL"`
	ScoreTimeout     time.Duration `env:"HIRING_SPACE_SCORER_TIMEOUT" envDefault:"20s"`
	SelectionDelay   time.Duration `env:"HIRING_SPACE_SELECTION_DELAY"`
	RejectionDelay   time.Duration `env:"HIRING_SPACE_REJECTION_DELAY"`
	Healthcheck      bool
	Log              logger.Config
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The pipeline HTTP API address")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The pipeline health gRPC server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The pipeline SQLite database path")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "Interview link lifetime")
	fs.StringVar(&cfg.InterviewBaseURL, "interview-base-url", cfg.InterviewBaseURL, "Base URL of candidate interview links")
	fs.StringVar(&cfg.ScorerModel, "scorer-model", cfg.ScorerModel, "Gemini model used for resume scoring")
	fs.DurationVar(&cfg.ScoreTimeout, "scorer-timeout", cfg.ScoreTimeout, "Timeout for one scoring call")
	fs.DurationVar(&cfg.SelectionDelay, "selection-delay", cfg.SelectionDelay, "Delay before the selection email is due")
	fs.DurationVar(&cfg.RejectionDelay, "rejection-delay", cfg.RejectionDelay, "Delay before the rejection email is due")
	fs.BoolVar(&cfg.Healthcheck, "healthcheck", false, "Probe the running pipeline's health endpoint and exit")
	entrypoint.BindLogFlags(fs, &cfg.Log)
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the pipeline runtime, or probes it when Healthcheck is set.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Healthcheck {
		return entrypoint.Healthcheck(ctx, cfg.Port, server.HealthService)
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServicePipeline, cfg.Log, func(ctx context.Context, log *zap.Logger) error {
		return server.Run(ctx, server.RuntimeConfig{
			HTTPAddr:         cfg.HTTPAddr,
			Port:             cfg.Port,
			DBPath:           cfg.DBPath,
			TokenTTL:         cfg.TokenTTL,
			InterviewBaseURL: cfg.InterviewBaseURL,
			ScorerAPIKey:     cfg.ScorerAPIKey,
			ScorerModel:      cfg.ScorerModel,
			ScoreTimeout:     cfg.ScoreTimeout,
			SelectionDelay:   cfg.SelectionDelay,
			RejectionDelay:   cfg.RejectionDelay,
		}, log)
	})
}
