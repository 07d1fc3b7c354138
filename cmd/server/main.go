// Package main initializes and starts the ProjectMarket reference backend,
// setting up configuration, logging, the database, repositories, services,
// the AI assistant, handlers and optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/ProjectMarket/internal/assistant"
	"github.com/atinyakov/ProjectMarket/internal/config"
	"github.com/atinyakov/ProjectMarket/internal/db"
	"github.com/atinyakov/ProjectMarket/internal/logger"
	"github.com/atinyakov/ProjectMarket/internal/repository"
	"github.com/atinyakov/ProjectMarket/internal/server/handler/http"
	"github.com/atinyakov/ProjectMarket/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse flags, environment and config file.
	options, err := config.ParseServer(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	l := logger.New()
	defer func() { _ = l.Log.Sync() }()
	if err := l.Init(options.LogLevel); err != nil {
		log.Fatal(err)
	}
	zapLogger := l.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection and schema.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	// Purge expired login sessions in the background.
	db.StartSessionCleaner(ctx, postgresDB, time.Duration(options.CleanupInterval), zapLogger)

	// Initialize repositories.
	userRepo := repository.NewPostgresUserRepository(postgresDB)
	sessionRepo := repository.NewPostgresSessionRepository(postgresDB)
	submissionRepo := repository.NewPostgresSubmissionRepository(postgresDB)

	// Initialize business-logic services.
	authService := service.NewAuthService(userRepo, sessionRepo, time.Duration(options.SessionTTL))
	fileService := service.NewFileService(submissionRepo)
	searchService := service.NewSearchService(submissionRepo)

	var model assistant.Completer = assistant.Offline{}
	if options.AIKey != "" {
		model = assistant.NewOpenRouter(options.AIURL, options.AIKey, options.AIModel,
			options.AIRatePerMinute, zapLogger.Named("assistant"))
	} else {
		zapLogger.Warn("no AI API key configured, assistant answers are canned")
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(http.Handlers{
		Auth:   http.NewAuthHandler(authService, zapLogger),
		Search: http.NewSearchHandler(searchService, zapLogger),
		AI:     http.NewAIHandler(assistant.New(model), zapLogger),
		Files:  http.NewFileHandler(fileService, zapLogger),
	}, authService, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("failed to shut down server", zap.Error(err))
		}
	}()

	if options.TLSCert != "" {
		// Load server TLS certificate and key.
		cert, err := tls.LoadX509KeyPair(options.TLSCert, options.TLSKey)
		if err != nil {
			zapLogger.Fatal("failed to load server TLS cert/key", zap.Error(err))
		}
		server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
		err = server.ListenAndServeTLS("", "")
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("failed to start HTTPS server", zap.Error(err))
		}
		return
	}

	zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}
