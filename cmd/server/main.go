package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"voicenote-ai/internal/api"
	"voicenote-ai/internal/config"
	"voicenote-ai/internal/generation"
	"voicenote-ai/internal/pipeline"
	"voicenote-ai/internal/transcription"
	"voicenote-ai/internal/youtube"
	"voicenote-ai/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	// Credentials come from the environment; .env is a convenience for
	// local development and is allowed to be absent
	_ = godotenv.Load()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting voicenote-ai server",
		logger.String("version", Version),
		logger.String("transcription_provider", cfg.Transcription.Provider),
		logger.String("generation_provider", cfg.Generation.Provider))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transcriber, err := transcription.NewFromConfig(cfg.Transcription, log)
	if err != nil {
		log.Error("Failed to create transcription provider", logger.Error(err))
		os.Exit(1)
	}

	generator, err := generation.NewFromConfig(ctx, cfg.Generation, log)
	if err != nil {
		log.Error("Failed to create content generator", logger.Error(err))
		os.Exit(1)
	}

	fetcher, err := youtube.NewClient(cfg.YouTube, log)
	if err != nil {
		log.Error("Failed to create transcript fetch client", logger.Error(err))
		os.Exit(1)
	}

	notePipeline := pipeline.New(
		transcriber,
		fetcher,
		generator,
		transcription.Options{
			Language: cfg.Transcription.Language,
			Prompt:   cfg.Transcription.Prompt,
		},
		log,
	)

	router := api.NewRouter(notePipeline, cfg, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", logger.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error on startup", logger.String("addr", addr), logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	// Cancel the main context so in-flight upstream calls stop
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	}

	log.Info("Server fully stopped")
}
