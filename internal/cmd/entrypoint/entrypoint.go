// Package entrypoint supervises the pipeline and worker processes of one
// container.
package entrypoint

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	platformcmd "github.com/louisbranch/hiring.space/internal/platform/cmd"
	"github.com/louisbranch/hiring.space/internal/platform/logger"
	"go.uber.org/zap"
)

// Config holds supervisor configuration.
type Config struct {
	DataDir          string        `env:"HIRING_SPACE_DATA_DIR" envDefault:"/data"`
	PipelineBin      string        `env:"HIRING_SPACE_PIPELINE_BIN" envDefault:"/app/pipeline"`
	WorkerBin        string        `env:"HIRING_SPACE_WORKER_BIN" envDefault:"/app/worker"`
	PipelineHTTPAddr string        `env:"HIRING_SPACE_PIPELINE_HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	ShutdownGrace    time.Duration `env:"HIRING_SPACE_SHUTDOWN_GRACE" envDefault:"10s"`
	Log              logger.Config
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Directory holding the pipeline and worker databases")
	fs.StringVar(&cfg.PipelineBin, "pipeline-bin", cfg.PipelineBin, "Path of the pipeline binary")
	fs.StringVar(&cfg.WorkerBin, "worker-bin", cfg.WorkerBin, "Path of the worker binary")
	fs.StringVar(&cfg.PipelineHTTPAddr, "http-addr", cfg.PipelineHTTPAddr, "Pipeline HTTP listen address")
	fs.DurationVar(&cfg.ShutdownGrace, "shutdown-grace", cfg.ShutdownGrace, "Time children get to exit after SIGTERM")
	platformcmd.BindLogFlags(fs, &cfg.Log)
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Child is one supervised command.
type Child struct {
	Name string
	Path string
	Args []string
}

// Children returns the pipeline and worker commands sharing cfg.DataDir.
// The worker drains the queue inside the pipeline database.
func Children(cfg Config) []Child {
	pipelineDB := filepath.Join(cfg.DataDir, "pipeline.db")
	return []Child{
		{
			Name: platformcmd.ServicePipeline,
			Path: cfg.PipelineBin,
			Args: []string{"-http-addr=" + cfg.PipelineHTTPAddr, "-db-path=" + pipelineDB},
		},
		{
			Name: platformcmd.ServiceWorker,
			Path: cfg.WorkerBin,
			Args: []string{"-pipeline-db-path=" + pipelineDB, "-db-path=" + filepath.Join(cfg.DataDir, "worker.db")},
		},
	}
}

// Run supervises the children described by cfg and returns the process exit
// code.
func Run(ctx context.Context, cfg Config) (int, error) {
	log, err := logger.FromConfig(cfg.Log)
	if err != nil {
		return 1, fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	return Supervise(ctx, Children(cfg), cfg.ShutdownGrace, log.Named("entrypoint"))
}

type childExit struct {
	name string
	err  error
}

// Supervise starts every child and waits. The first child to exit, or ctx
// ending, sends SIGTERM to the rest; a child still running after grace is
// killed. The exit code is the first child's, or 0 on shutdown by ctx.
func Supervise(ctx context.Context, children []Child, grace time.Duration, log *zap.Logger) (int, error) {
	if len(children) == 0 {
		return 1, errors.New("no child processes to supervise")
	}
	log = logger.OrNop(log)
	runCtx, stopAll := context.WithCancel(ctx)
	defer stopAll()

	exits := make(chan childExit, len(children))
	started := 0
	for _, child := range children {
		cmd := exec.CommandContext(runCtx, child.Path, child.Args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
		cmd.WaitDelay = grace
		if err := cmd.Start(); err != nil {
			stopAll()
			for range started {
				<-exits
			}
			return 1, fmt.Errorf("start %s: %w", child.Name, err)
		}
		started++
		log.Info("child started", zap.String("child", child.Name), zap.Int("pid", cmd.Process.Pid))
		go func() { exits <- childExit{name: child.Name, err: cmd.Wait()} }()
	}

	first := <-exits
	shutdown := ctx.Err() != nil
	stopAll()
	for range started - 1 {
		exit := <-exits
		log.Info("child stopped", zap.String("child", exit.name), zap.NamedError("exit", exit.err))
	}
	if shutdown {
		log.Info("shutdown complete")
		return 0, nil
	}
	log.Warn("child exited; stopped the others", zap.String("child", first.name), zap.NamedError("exit", first.err))
	return exitCode(first.err), nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	return 1
}
