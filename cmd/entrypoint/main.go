// Package main runs the pipeline and the notification worker in one container.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	entrypointcmd "github.com/louisbranch/hiring.space/internal/cmd/entrypoint"
)

func main() {
	cfg, err := entrypointcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[ENTRYPOINT] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code, err := entrypointcmd.Run(ctx, cfg)
	if err != nil {
		log.Fatalf("supervise: %v", err)
	}
	stop()
	os.Exit(code)
}
