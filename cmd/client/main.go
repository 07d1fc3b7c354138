package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/atinyakov/ProjectMarket/internal/client"
	"github.com/atinyakov/ProjectMarket/internal/client/shell"
	"github.com/atinyakov/ProjectMarket/internal/config"
	"github.com/atinyakov/ProjectMarket/internal/logger"
)

var (
	version   string
	buildDate string
)

// main parses the configuration, restores the session and runs the shell.
func main() {
	if len(os.Args) > 1 && os.Args[1] == "-version" {
		fmt.Printf("ProjectMarket Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	opts, err := config.ParseClient(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	l := logger.New()
	if err := l.Init(opts.LogLevel); err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Log.Sync() }()

	app, err := client.New(opts, l.Log)
	if err != nil {
		l.Log.Fatal("failed to start client", zap.Error(err))
	}
	defer func() {
		if err := app.Close(); err != nil {
			l.Log.Warn("failed to close credential store", zap.Error(err))
		}
	}()
	app.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := shell.New(app, os.Stdin, os.Stdout, l.Log).Run(ctx); err != nil && ctx.Err() == nil {
		l.Log.Error("shell stopped", zap.Error(err))
	}
}
