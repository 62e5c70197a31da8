package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/voxchat/internal/api"
	"github.com/satriahrh/voxchat/internal/auth"
	"github.com/satriahrh/voxchat/internal/catalog"
	"github.com/satriahrh/voxchat/internal/config"
	"github.com/satriahrh/voxchat/internal/providers"
	"github.com/satriahrh/voxchat/internal/tempaudio"
	"github.com/satriahrh/voxchat/internal/websocket"
	"github.com/satriahrh/voxchat/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.IsDevelopment() {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
	logger.Info("Server exited")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	cat, err := catalog.Load(cfg.CatalogFile, cfg.ModelOverride())
	if err != nil {
		return err
	}

	// Initialize adapters
	completion, err := providers.NewCompletion(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create completion adapter: %w", err)
	}
	transcription, closeSTT, err := providers.NewTranscription(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create transcription adapter: %w", err)
	}
	defer closeSTT()
	synthesis, voices, err := providers.NewSynthesis(cfg, cat, logger)
	if err != nil {
		return fmt.Errorf("failed to create synthesis adapter: %w", err)
	}

	store, err := tempaudio.NewStore(cfg.TempAudioDir, logger)
	if err != nil {
		return err
	}
	policy, err := usecase.ParseFailurePolicy(cfg.STTFailurePolicy)
	if err != nil {
		return err
	}

	// Initialize usecase services
	chatService := usecase.NewChatService(completion, synthesis, cat.Models, usecase.ChatConfig{
		SystemPrompt:      cfg.DefaultSystemPrompt,
		CompletionTimeout: cfg.CompletionTimeout,
		SynthesisTimeout:  cfg.SynthesisTimeout,
	}, logger)
	voiceService := usecase.NewVoiceService(transcription, store, chatService, usecase.VoiceConfig{
		FailurePolicy:        policy,
		TranscriptionTimeout: cfg.TranscriptionTimeout,
	}, logger)

	hub := websocket.NewHub(logger)

	e := api.NewServer(api.Dependencies{
		Chat:    chatService,
		Voice:   voiceService,
		Catalog: cat,
		Voices:  voices,
		Auth:    auth.NewAuthenticator(cfg.AuthSecret, cfg.AuthAPIKey),
		Hub:     hub,
	}, api.ServerConfig{BodyLimit: cfg.MaxUploadSize}, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("Server started",
			zap.String("port", cfg.Port),
			zap.String("modelService", cfg.ModelService),
			zap.String("sttService", cfg.STTService),
			zap.String("ttsService", cfg.TTSService))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Server is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
